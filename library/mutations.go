package library

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/readstack/readstack-mcp/api"
)

// ToggleRead flips the read flag of one document. Only that document's
// isRead field changes locally; the rest of the list is untouched.
func (c *Controller) ToggleRead(ctx context.Context, docID string) (*api.Document, error) {
	if err := c.session.RequireAuth(); err != nil {
		return nil, err
	}

	c.mu.Lock()
	current, ok := c.findLocked(docID)
	c.mu.Unlock()
	target := true
	if ok {
		target = !current.IsRead
	}

	doc, err := c.backend.ToggleRead(ctx, docID, target)
	if err != nil {
		return nil, c.session.HandleAuthFailure(err)
	}

	c.patch(docID, func(d *api.Document) {
		d.IsRead = doc.IsRead
	})
	return doc, nil
}

// Delete removes the document server-side and drops it from the local list.
func (c *Controller) Delete(ctx context.Context, docID string) error {
	if err := c.session.RequireAuth(); err != nil {
		return err
	}
	if err := c.backend.DeleteDocument(ctx, docID); err != nil {
		return c.session.HandleAuthFailure(err)
	}

	c.mu.Lock()
	for i := range c.docs {
		if c.docs[i].ID == docID {
			c.docs = append(c.docs[:i], c.docs[i+1:]...)
			break
		}
	}
	notify := c.onChange
	c.mu.Unlock()
	if notify != nil {
		notify()
	}
	return nil
}

// TriggerCodeAnalysis enqueues a code-analysis job for the document. A
// server-reported "already in progress" conflict is a state transition, not
// a failure: the document is marked processing locally and nil is returned.
func (c *Controller) TriggerCodeAnalysis(ctx context.Context, docID string) error {
	if err := c.session.RequireAuth(); err != nil {
		return err
	}
	err := c.backend.TriggerCodeAnalysis(ctx, docID)
	if err != nil {
		if !isAnalysisInProgress(err) {
			return c.session.HandleAuthFailure(err)
		}
		c.logger.Debug("code analysis already running", zap.String("doc", docID))
	}

	c.patch(docID, func(d *api.Document) {
		d.CodeAnalysisStatus = api.StatusProcessing
	})
	return nil
}

func isAnalysisInProgress(err error) bool {
	var apiErr *api.Error
	if !errors.As(err, &apiErr) || apiErr.Kind != api.KindBusiness {
		return false
	}
	return apiErr.StatusCode == 409 ||
		strings.Contains(strings.ToLower(apiErr.ServerMessage), "already in progress")
}

func (c *Controller) findLocked(docID string) (*api.Document, bool) {
	for i := range c.docs {
		if c.docs[i].ID == docID {
			return &c.docs[i], true
		}
	}
	return nil, false
}

// patch applies fn to the named document in place and fires the change
// callback. Unknown ids are ignored; the document may have scrolled out of
// the accumulated window.
func (c *Controller) patch(docID string, fn func(*api.Document)) {
	c.mu.Lock()
	if doc, ok := c.findLocked(docID); ok {
		fn(doc)
	}
	notify := c.onChange
	c.mu.Unlock()
	if notify != nil {
		notify()
	}
}
