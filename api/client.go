// Package api is the typed client for the readstack document-library REST
// backend. It owns request construction, auth header injection, and the
// classification of failures into the Kind taxonomy; it holds no state
// beyond the HTTP client itself.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

// AuthHeaderFunc supplies the Authorization header for a request. ok is
// false when no credential is available; the request is then sent
// unauthenticated.
type AuthHeaderFunc func() (key, value string, ok bool)

type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
	authHeader AuthHeaderFunc
}

func NewClient(baseURL string, timeout time.Duration, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// SetAuthHeaderFunc wires the session's header builder into the client.
func (c *Client) SetAuthHeaderFunc(fn AuthHeaderFunc) {
	c.authHeader = fn
}

// errorBody is the message payload shape of 4xx/5xx responses. Backends have
// used both keys over time.
type errorBody struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

func (b errorBody) text() string {
	if b.Message != "" {
		return b.Message
	}
	return b.Error
}

// do issues the request and decodes a 2xx JSON body into out (out may be
// nil). Non-2xx responses and transport failures come back as *Error.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.authHeader != nil {
		if key, value, ok := c.authHeader(); ok {
			req.Header.Set(key, value)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		apiErr := classifyTransport(err)
		c.logger.Debug("request failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.String("kind", apiErr.Kind.String()),
			zap.Error(err))
		return apiErr
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var eb errorBody
		_ = json.NewDecoder(resp.Body).Decode(&eb)
		apiErr := classifyStatus(resp.StatusCode, eb.text())
		c.logger.Debug("request rejected",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
			zap.String("kind", apiErr.Kind.String()))
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response body: %w", err)
	}
	return nil
}

// ListDocuments fetches one page of the server-filtered, server-ordered
// document list. The client never re-applies filtering or sorting on top.
func (c *Client) ListDocuments(ctx context.Context, q ListQuery) (*DocumentList, error) {
	sortField, order := "createdAt", "desc"
	switch q.Sort {
	case SortOldest:
		order = "asc"
	case SortTitle:
		sortField, order = "title", "asc"
	}

	params := url.Values{}
	params.Set("limit", strconv.Itoa(q.Limit))
	params.Set("offset", strconv.Itoa(q.Offset))
	params.Set("sort", sortField)
	params.Set("order", order)
	if q.Search != "" {
		params.Set("search", q.Search)
	}
	if q.ReadFilter != ReadAll {
		params.Set("readFilter", string(q.ReadFilter))
	}
	if q.Tag != "" {
		params.Set("tags", q.Tag)
	}

	var list DocumentList
	if err := c.do(ctx, http.MethodGet, "/documents", params, nil, &list); err != nil {
		return nil, err
	}
	return &list, nil
}

// DownloadURL resolves the download location for a document's source file.
func (c *Client) DownloadURL(ctx context.Context, docID string) (string, error) {
	var resp struct {
		URL string `json:"url"`
	}
	if err := c.do(ctx, http.MethodGet, "/documents/"+url.PathEscape(docID)+"/download", nil, nil, &resp); err != nil {
		return "", err
	}
	return resp.URL, nil
}

// GetNotes fetches the notes bundle with inline content where available.
func (c *Client) GetNotes(ctx context.Context, docID string) (*NotesBundle, error) {
	params := url.Values{"inline": {"true"}}
	var bundle NotesBundle
	if err := c.do(ctx, http.MethodGet, "/documents/"+url.PathEscape(docID)+"/notes", params, nil, &bundle); err != nil {
		return nil, err
	}
	if bundle.DocumentID == "" {
		bundle.DocumentID = docID
	}
	return &bundle, nil
}

// ToggleRead sets the read flag and returns the updated document.
func (c *Client) ToggleRead(ctx context.Context, docID string, isRead bool) (*Document, error) {
	body := map[string]bool{"isRead": isRead}
	var doc Document
	if err := c.do(ctx, http.MethodPatch, "/documents/"+url.PathEscape(docID)+"/read", nil, body, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

func (c *Client) DeleteDocument(ctx context.Context, docID string) error {
	return c.do(ctx, http.MethodDelete, "/documents/"+url.PathEscape(docID), nil, nil, nil)
}

// TriggerCodeAnalysis enqueues a code-analysis job. A conflict response means
// a job is already running; callers treat that as a state, not a failure.
func (c *Client) TriggerCodeAnalysis(ctx context.Context, docID string) error {
	return c.do(ctx, http.MethodPost, "/code-analysis/"+url.PathEscape(docID), nil, nil, nil)
}

// ReplaceNoteContent overwrites the body of one note kind.
func (c *Client) ReplaceNoteContent(ctx context.Context, docID string, kind NoteKind, content string) error {
	body := map[string]string{
		"kind":    string(kind),
		"content": content,
	}
	return c.do(ctx, http.MethodPut, "/documents/"+url.PathEscape(docID)+"/notes/content", nil, body, nil)
}

// SubmitAIEdit enqueues an AI rewrite of the notes per the given instruction.
func (c *Client) SubmitAIEdit(ctx context.Context, docID, prompt string) error {
	body := map[string]string{"prompt": prompt}
	return c.do(ctx, http.MethodPost, "/documents/"+url.PathEscape(docID)+"/notes/ai-edit", nil, body, nil)
}

func (c *Client) AIEditStatus(ctx context.Context, docID string) (*AIEditState, error) {
	var state AIEditState
	if err := c.do(ctx, http.MethodGet, "/documents/"+url.PathEscape(docID)+"/notes/ai-edit/status", nil, nil, &state); err != nil {
		return nil, err
	}
	return &state, nil
}

func (c *Client) ListUserNotes(ctx context.Context, docID string) ([]UserNote, error) {
	var notes []UserNote
	if err := c.do(ctx, http.MethodGet, "/documents/"+url.PathEscape(docID)+"/user-notes", nil, nil, &notes); err != nil {
		return nil, err
	}
	return notes, nil
}

func (c *Client) CreateUserNote(ctx context.Context, docID, title, content string) (*UserNote, error) {
	body := map[string]string{"title": title, "content": content}
	var note UserNote
	if err := c.do(ctx, http.MethodPost, "/documents/"+url.PathEscape(docID)+"/user-notes", nil, body, &note); err != nil {
		return nil, err
	}
	return &note, nil
}

func (c *Client) UpdateUserNote(ctx context.Context, docID, noteID, title, content string) (*UserNote, error) {
	body := map[string]string{"title": title, "content": content}
	var note UserNote
	if err := c.do(ctx, http.MethodPut, "/documents/"+url.PathEscape(docID)+"/user-notes/"+url.PathEscape(noteID), nil, body, &note); err != nil {
		return nil, err
	}
	return &note, nil
}

func (c *Client) DeleteUserNote(ctx context.Context, docID, noteID string) error {
	return c.do(ctx, http.MethodDelete, "/documents/"+url.PathEscape(docID)+"/user-notes/"+url.PathEscape(noteID), nil, nil, nil)
}

func (c *Client) ListTags(ctx context.Context) ([]Tag, error) {
	var tags []Tag
	if err := c.do(ctx, http.MethodGet, "/tags", nil, nil, &tags); err != nil {
		return nil, err
	}
	return tags, nil
}

// VerifyAuth checks an explicit token against the backend. It bypasses the
// registered header builder because it runs before a session exists.
func (c *Client) VerifyAuth(ctx context.Context, token string) (*VerifyResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/auth/verify", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, classifyTransport(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var eb errorBody
		_ = json.NewDecoder(resp.Body).Decode(&eb)
		return nil, classifyStatus(resp.StatusCode, eb.text())
	}

	var result VerifyResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response body: %w", err)
	}
	return &result, nil
}
