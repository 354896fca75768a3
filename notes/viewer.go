// Package notes loads and prepares one document's notes bundle for display:
// front-matter split, boilerplate stripping, diagram repair, the AI-edit
// submit-and-poll flow, and manual content replacement.
package notes

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/readstack/readstack-mcp/api"
	"github.com/readstack/readstack-mcp/session"
)

// Backend is what the viewer needs from the API client.
type Backend interface {
	GetNotes(ctx context.Context, docID string) (*api.NotesBundle, error)
	SubmitAIEdit(ctx context.Context, docID, prompt string) error
	AIEditStatus(ctx context.Context, docID string) (*api.AIEditState, error)
	ReplaceNoteContent(ctx context.Context, docID string, kind api.NoteKind, content string) error
}

// ContentFetcher resolves externally hosted note content (a bundle that
// carries a URL but no inline body) into markdown.
type ContentFetcher func(ctx context.Context, url string) (string, error)

// AIEditPhase is the local lifecycle of an AI-edit submission.
type AIEditPhase string

const (
	AIEditIdle       AIEditPhase = "idle"
	AIEditSubmitting AIEditPhase = "submitting"
	AIEditQueued     AIEditPhase = "queued"
	AIEditProcessing AIEditPhase = "processing"
)

// Event names emitted through OnEvent for job-status streaming.
const (
	EventAIEditQueued     = "ai_edit_queued"
	EventAIEditProcessing = "ai_edit_processing"
	EventAIEditCompleted  = "ai_edit_completed"
	EventAIEditFailed     = "ai_edit_failed"
	EventNotesRefetched   = "notes_refetched"
)

// RenderedNote is one tab of the bundle, prepared for display.
type RenderedNote struct {
	Kind     api.NoteKind      `json:"kind"`
	Meta     map[string]string `json:"meta,omitempty"`
	Segments []Segment         `json:"segments"`
	// Raw is the stripped body before segmentation; the edit buffer loads
	// from it.
	Raw string `json:"raw"`
}

// View is the viewer's presentable state.
type View struct {
	DocumentID string            `json:"documentId"`
	ActiveTab  api.NoteKind      `json:"activeTab"`
	Paper      *RenderedNote     `json:"paper,omitempty"`
	Code       *RenderedNote     `json:"code,omitempty"`
	Status     api.ProcessingStatus `json:"status"`
	ReaderMode bool              `json:"readerMode"`
	AIEdit     AIEditPhase       `json:"aiEdit"`
	AIEditErr  string            `json:"aiEditError,omitempty"`
}

type Viewer struct {
	backend      Backend
	session      *session.Session
	fetchContent ContentFetcher
	logger       *zap.Logger
	pollInterval time.Duration

	mu         sync.Mutex
	docID      string
	bundle     *api.NotesBundle
	activeTab  api.NoteKind
	aiPhase    AIEditPhase
	aiErr      string
	pollCancel context.CancelFunc
	onEvent    func(name string, data any)
}

func NewViewer(backend Backend, sess *session.Session, fetchContent ContentFetcher, pollInterval time.Duration, logger *zap.Logger) *Viewer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if pollInterval <= 0 {
		pollInterval = 3 * time.Second
	}
	return &Viewer{
		backend:      backend,
		session:      sess,
		fetchContent: fetchContent,
		logger:       logger,
		pollInterval: pollInterval,
		aiPhase:      AIEditIdle,
	}
}

// OnEvent registers a hook for job-status events (fed to the SSE stream).
func (v *Viewer) OnEvent(fn func(name string, data any)) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.onEvent = fn
}

func (v *Viewer) emit(name string, data any) {
	v.mu.Lock()
	fn := v.onEvent
	v.mu.Unlock()
	if fn != nil {
		fn(name, data)
	}
}

// Open fetches the bundle for a document and selects the active tab.
func (v *Viewer) Open(ctx context.Context, docID string, preferred api.NoteKind) (*View, error) {
	bundle, err := v.backend.GetNotes(ctx, docID)
	if err != nil {
		return nil, err
	}
	if err := v.inlineExternalContent(ctx, bundle); err != nil {
		// External content is an enhancement; the inline bundle still renders.
		v.logger.Warn("failed to fetch hosted note content", zap.Error(err))
	}

	v.mu.Lock()
	v.docID = docID
	v.bundle = bundle
	v.activeTab = SelectTab(preferred, bundle)
	v.mu.Unlock()
	return v.view(), nil
}

// inlineExternalContent resolves URL-only notes into markdown bodies.
func (v *Viewer) inlineExternalContent(ctx context.Context, bundle *api.NotesBundle) error {
	if v.fetchContent == nil {
		return nil
	}
	for _, note := range []*api.Note{&bundle.Paper, &bundle.Code} {
		if !note.Available || note.Content != "" || note.URL == "" {
			continue
		}
		content, err := v.fetchContent(ctx, note.URL)
		if err != nil {
			return err
		}
		note.Content = content
	}
	return nil
}

// View returns the current rendered state.
func (v *Viewer) View() *View { return v.view() }

func (v *Viewer) view() *View {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.bundle == nil {
		return &View{AIEdit: v.aiPhase, AIEditErr: v.aiErr}
	}
	out := &View{
		DocumentID: v.docID,
		ActiveTab:  v.activeTab,
		Status:     v.bundle.Status,
		ReaderMode: v.bundle.ReaderMode,
		AIEdit:     v.aiPhase,
		AIEditErr:  v.aiErr,
	}
	if v.bundle.Paper.Available && v.bundle.Paper.Content != "" {
		out.Paper = renderNote(api.NotePaper, v.bundle.Paper.Content)
	}
	if v.bundle.Code.Available && v.bundle.Code.Content != "" {
		out.Code = renderNote(api.NoteCode, v.bundle.Code.Content)
	}
	return out
}

func renderNote(kind api.NoteKind, content string) *RenderedNote {
	meta, body := SplitFrontMatter(content)
	body = StripBoilerplate(body)
	return &RenderedNote{
		Kind:     kind,
		Meta:     meta,
		Segments: Segments(body),
		Raw:      body,
	}
}

// SetActiveTab switches tabs when the requested tab has content.
func (v *Viewer) SetActiveTab(kind api.NoteKind) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.bundle == nil {
		return
	}
	v.activeTab = SelectTab(kind, v.bundle)
}

// SubmitAIEdit enqueues an AI rewrite and starts polling for completion. A
// previous poll for this viewer is torn down first.
func (v *Viewer) SubmitAIEdit(ctx context.Context, prompt string) error {
	if err := v.session.RequireAuth(); err != nil {
		return err
	}

	v.mu.Lock()
	docID := v.docID
	v.aiPhase = AIEditSubmitting
	v.aiErr = ""
	v.mu.Unlock()

	if err := v.backend.SubmitAIEdit(ctx, docID, prompt); err != nil {
		v.mu.Lock()
		v.aiPhase = AIEditIdle
		v.mu.Unlock()
		return v.session.HandleAuthFailure(err)
	}

	v.mu.Lock()
	v.aiPhase = AIEditQueued
	if v.pollCancel != nil {
		v.pollCancel()
	}
	pollCtx, cancel := context.WithCancel(context.Background())
	v.pollCancel = cancel
	v.mu.Unlock()

	v.emit(EventAIEditQueued, map[string]string{"documentId": docID})
	go v.poll(pollCtx, docID)
	return nil
}

// poll checks the job status on a fixed period until it resolves. Completed
// and "no active job" both trigger exactly one full refetch.
func (v *Viewer) poll(ctx context.Context, docID string) {
	ticker := time.NewTicker(v.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		state, err := v.backend.AIEditStatus(ctx, docID)
		if err != nil {
			// Transient poll failures are retried on the next tick.
			v.logger.Debug("ai edit status poll failed", zap.Error(err))
			continue
		}

		switch {
		case !state.Active, state.Status == api.StatusCompleted:
			v.refetch(ctx, docID)
			v.finishPoll(AIEditIdle, "")
			v.emit(EventAIEditCompleted, map[string]string{"documentId": docID})
			return
		case state.Status == api.StatusFailed:
			msg := state.Error
			if msg == "" {
				msg = "AI edit failed"
			}
			v.finishPoll(AIEditIdle, msg)
			v.emit(EventAIEditFailed, map[string]string{"documentId": docID, "error": msg})
			return
		case state.Status == api.StatusProcessing:
			v.mu.Lock()
			changed := v.aiPhase != AIEditProcessing
			v.aiPhase = AIEditProcessing
			v.mu.Unlock()
			if changed {
				v.emit(EventAIEditProcessing, map[string]string{"documentId": docID})
			}
		}
	}
}

func (v *Viewer) refetch(ctx context.Context, docID string) {
	bundle, err := v.backend.GetNotes(ctx, docID)
	if err != nil {
		v.logger.Warn("notes refetch after ai edit failed", zap.Error(err))
		return
	}
	if err := v.inlineExternalContent(ctx, bundle); err != nil {
		v.logger.Warn("failed to fetch hosted note content", zap.Error(err))
	}
	v.mu.Lock()
	v.bundle = bundle
	v.activeTab = SelectTab(v.activeTab, bundle)
	v.mu.Unlock()
	v.emit(EventNotesRefetched, map[string]string{"documentId": docID})
}

func (v *Viewer) finishPoll(phase AIEditPhase, errMsg string) {
	v.mu.Lock()
	v.aiPhase = phase
	v.aiErr = errMsg
	if v.pollCancel != nil {
		v.pollCancel()
		v.pollCancel = nil
	}
	v.mu.Unlock()
}

// SaveContent replaces the active tab's note body. Local state updates from
// the edited buffer directly; the client is the source of truth for its own
// edit, so no refetch happens.
func (v *Viewer) SaveContent(ctx context.Context, content string) error {
	if err := v.session.RequireAuth(); err != nil {
		return err
	}

	v.mu.Lock()
	docID := v.docID
	tab := v.activeTab
	v.mu.Unlock()

	if err := v.backend.ReplaceNoteContent(ctx, docID, tab, content); err != nil {
		return v.session.HandleAuthFailure(err)
	}

	v.mu.Lock()
	if v.bundle != nil {
		switch tab {
		case api.NoteCode:
			v.bundle.Code.Content = content
			v.bundle.Code.Available = true
		default:
			v.bundle.Paper.Content = content
			v.bundle.Paper.Available = true
		}
	}
	v.mu.Unlock()
	return nil
}

// EditBuffer returns the active tab's stripped body for manual editing.
func (v *Viewer) EditBuffer() string {
	view := v.view()
	switch view.ActiveTab {
	case api.NoteCode:
		if view.Code != nil {
			return view.Code.Raw
		}
	default:
		if view.Paper != nil {
			return view.Paper.Raw
		}
	}
	return ""
}

// Close tears the poll down so no timer outlives the view.
func (v *Viewer) Close() {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.pollCancel != nil {
		v.pollCancel()
		v.pollCancel = nil
	}
}

// TrimPrompt normalizes a user instruction before submission.
func TrimPrompt(prompt string) string {
	return strings.TrimSpace(prompt)
}
