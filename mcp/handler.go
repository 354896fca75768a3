// Package mcp exposes the document library to MCP clients: one tool per
// user-facing operation, over stdio or streamable HTTP, plus an SSE stream
// of asynchronous job events.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/readstack/readstack-mcp/api"
	"github.com/readstack/readstack-mcp/library"
	"github.com/readstack/readstack-mcp/notes"
	"github.com/readstack/readstack-mcp/scrape"
	"github.com/readstack/readstack-mcp/session"
	"github.com/readstack/readstack-mcp/usernotes"
)

const Version = "0.1.0"

// Deps is everything the tool handlers operate on.
type Deps struct {
	Client     *api.Client
	HTTPClient *http.Client
	Session    *session.Session
	Controller *library.Controller
	Tags       *library.TagCatalog
	UserNotes  *usernotes.Service
	// NewViewer builds a notes viewer; the registry keeps one per open
	// document so polls can be torn down on close.
	NewViewer func() *notes.Viewer
	Events    *EventBroker
	Logger    *zap.Logger
}

// viewerRegistry tracks open notes viewers per document.
type viewerRegistry struct {
	mu      sync.Mutex
	open    map[string]*notes.Viewer
	factory func() *notes.Viewer
	events  *EventBroker
}

func (r *viewerRegistry) get(docID string) (*notes.Viewer, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.open[docID]
	return v, ok
}

func (r *viewerRegistry) obtain(docID string) *notes.Viewer {
	r.mu.Lock()
	defer r.mu.Unlock()
	if v, ok := r.open[docID]; ok {
		return v
	}
	v := r.factory()
	if r.events != nil {
		v.OnEvent(r.events.Publish)
	}
	r.open[docID] = v
	return v
}

// close tears down the viewer's poll so no timer outlives the view.
func (r *viewerRegistry) close(docID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.open[docID]
	if !ok {
		return false
	}
	v.Close()
	delete(r.open, docID)
	return true
}

// NewServer builds the MCP server with every library tool registered.
func NewServer(deps Deps) *server.MCPServer {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.HTTPClient == nil {
		deps.HTTPClient = http.DefaultClient
	}

	s := server.NewMCPServer(
		"Readstack Library MCP",
		Version,
		server.WithToolCapabilities(false),
	)

	registry := &viewerRegistry{
		open:    map[string]*notes.Viewer{},
		factory: deps.NewViewer,
		events:  deps.Events,
	}

	registerListingTools(s, deps)
	registerMutationTools(s, deps)
	registerNotesTools(s, deps, registry)
	registerUserNoteTools(s, deps)
	registerAuthTools(s, deps)

	return s
}

// jsonResult marshals v into a text tool result.
func jsonResult(v any) (*mcp.CallToolResult, error) {
	payload, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal response: %v", err)), nil
	}
	return mcp.NewToolResultText(string(payload)), nil
}

// toolError converts a classified failure into the message a tool caller
// sees. Auth failures always point at the login tool instead of a generic
// error.
func toolError(err error) *mcp.CallToolResult {
	if errors.Is(err, session.ErrAuthRequired) {
		return mcp.NewToolResultError("authentication required: run the login tool with your access token first")
	}
	var apiErr *api.Error
	if errors.As(err, &apiErr) {
		return mcp.NewToolResultError(apiErr.Message())
	}
	return mcp.NewToolResultError(err.Error())
}

// ---- listing tools ----

type ListDocumentsRequest struct {
	Search     string `json:"search"`     // Title search text
	Tag        string `json:"tag"`        // Tag name filter
	ReadFilter string `json:"readFilter"` // "", "unread" or "read"
	Sort       string `json:"sort"`       // "newest", "oldest" or "title"
}

type ListDocumentsResponse struct {
	Documents []api.Document `json:"documents"`
	HasMore   bool           `json:"hasMore"`
}

func registerListingTools(s *server.MCPServer, deps Deps) {
	listTool := mcp.NewTool("list_documents",
		mcp.WithDescription("List library documents with search, tag, read-status and sort filters applied server-side"),
		mcp.WithString("search", mcp.Description("Title search text")),
		mcp.WithString("tag", mcp.Description("Tag name to filter by")),
		mcp.WithString("readFilter", mcp.Description("Read-status filter: empty for all, 'unread' or 'read'")),
		mcp.WithString("sort", mcp.Description("Sort order: 'newest' (default), 'oldest' or 'title'")),
	)
	s.AddTool(listTool, mcp.NewTypedToolHandler(getListDocumentsHandler(deps)))

	loadMoreTool := mcp.NewTool("load_more",
		mcp.WithDescription("Load the next page of the current document listing"),
	)
	s.AddTool(loadMoreTool, mcp.NewTypedToolHandler(getLoadMoreHandler(deps)))

	tagsTool := mcp.NewTool("list_tags",
		mcp.WithDescription("List the available tags for filtering"),
	)
	s.AddTool(tagsTool, mcp.NewTypedToolHandler(getListTagsHandler(deps)))

	downloadTool := mcp.NewTool("download_url",
		mcp.WithDescription("Resolve the download URL for a document's source file"),
		mcp.WithString("documentId", mcp.Required(), mcp.Description("The document identifier")),
	)
	s.AddTool(downloadTool, mcp.NewTypedToolHandler(getDownloadURLHandler(deps)))

	previewTool := mcp.NewTool("preview_source",
		mcp.WithDescription("Fetch a document's source page and convert its main content to markdown"),
		mcp.WithString("url", mcp.Required(), mcp.Description("The source page URL")),
		mcp.WithString("selector", mcp.Description("Optional CSS selector for the content region (e.g. '#content', '.article', 'main')")),
	)
	s.AddTool(previewTool, mcp.NewTypedToolHandler(getPreviewSourceHandler(deps)))
}

func getListDocumentsHandler(deps Deps) func(ctx context.Context, request mcp.CallToolRequest, args ListDocumentsRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, request mcp.CallToolRequest, args ListDocumentsRequest) (*mcp.CallToolResult, error) {
		sort := api.SortOrder(args.Sort)
		switch sort {
		case api.SortNewest, api.SortOldest, api.SortTitle:
		case "":
			sort = api.SortNewest
		default:
			return mcp.NewToolResultError("sort must be 'newest', 'oldest' or 'title'"), nil
		}
		readFilter := api.ReadFilter(args.ReadFilter)
		switch readFilter {
		case api.ReadAll, api.ReadUnread, api.ReadRead:
		default:
			return mcp.NewToolResultError("readFilter must be empty, 'unread' or 'read'"), nil
		}

		deps.Controller.SetFilters(args.Search, args.Tag, readFilter, sort)
		if err := deps.Controller.RefreshWait(ctx); err != nil {
			return toolError(err), nil
		}
		return jsonResult(ListDocumentsResponse{
			Documents: deps.Controller.Documents(),
			HasMore:   deps.Controller.HasMore(),
		})
	}
}

type LoadMoreRequest struct{}

func getLoadMoreHandler(deps Deps) func(ctx context.Context, request mcp.CallToolRequest, args LoadMoreRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, request mcp.CallToolRequest, args LoadMoreRequest) (*mcp.CallToolResult, error) {
		if err := deps.Controller.LoadMore(ctx); err != nil {
			if errors.Is(err, library.ErrFetchInFlight) {
				return mcp.NewToolResultError("a fetch is already in flight, try again"), nil
			}
			return toolError(err), nil
		}
		return jsonResult(ListDocumentsResponse{
			Documents: deps.Controller.Documents(),
			HasMore:   deps.Controller.HasMore(),
		})
	}
}

type ListTagsRequest struct{}

func getListTagsHandler(deps Deps) func(ctx context.Context, request mcp.CallToolRequest, args ListTagsRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, request mcp.CallToolRequest, args ListTagsRequest) (*mcp.CallToolResult, error) {
		return jsonResult(map[string]any{"tags": deps.Tags.Tags(ctx)})
	}
}

type DocumentRequest struct {
	DocumentID string `json:"documentId"` // The document identifier
}

func getDownloadURLHandler(deps Deps) func(ctx context.Context, request mcp.CallToolRequest, args DocumentRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, request mcp.CallToolRequest, args DocumentRequest) (*mcp.CallToolResult, error) {
		if args.DocumentID == "" {
			return mcp.NewToolResultError("documentId is required"), nil
		}
		url, err := deps.Client.DownloadURL(ctx, args.DocumentID)
		if err != nil {
			return toolError(err), nil
		}
		return jsonResult(map[string]string{"url": url})
	}
}

type PreviewSourceRequest struct {
	URL      string `json:"url"`      // The source page URL
	Selector string `json:"selector"` // Optional CSS selector
}

func getPreviewSourceHandler(deps Deps) func(ctx context.Context, request mcp.CallToolRequest, args PreviewSourceRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, request mcp.CallToolRequest, args PreviewSourceRequest) (*mcp.CallToolResult, error) {
		if args.URL == "" {
			return mcp.NewToolResultError("url is required"), nil
		}
		summary, markdown, err := scrape.Fetch(ctx, deps.HTTPClient, args.URL, args.Selector)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to fetch source page: %v", err)), nil
		}
		return jsonResult(map[string]any{"summary": summary, "markdown": markdown})
	}
}

// ---- mutation tools ----

type DeleteDocumentRequest struct {
	DocumentID string `json:"documentId"` // The document identifier
	Confirm    bool   `json:"confirm"`    // Must be true; deletion is destructive
}

func registerMutationTools(s *server.MCPServer, deps Deps) {
	toggleTool := mcp.NewTool("toggle_read",
		mcp.WithDescription("Toggle the read flag of a document (requires login)"),
		mcp.WithString("documentId", mcp.Required(), mcp.Description("The document identifier")),
	)
	s.AddTool(toggleTool, mcp.NewTypedToolHandler(getToggleReadHandler(deps)))

	deleteTool := mcp.NewTool("delete_document",
		mcp.WithDescription("Delete a document from the library (requires login and confirm=true)"),
		mcp.WithString("documentId", mcp.Required(), mcp.Description("The document identifier")),
		mcp.WithBoolean("confirm", mcp.Required(), mcp.Description("Must be true to delete")),
	)
	s.AddTool(deleteTool, mcp.NewTypedToolHandler(getDeleteDocumentHandler(deps)))

	analysisTool := mcp.NewTool("trigger_code_analysis",
		mcp.WithDescription("Enqueue code analysis for a document (requires login)"),
		mcp.WithString("documentId", mcp.Required(), mcp.Description("The document identifier")),
	)
	s.AddTool(analysisTool, mcp.NewTypedToolHandler(getTriggerAnalysisHandler(deps)))
}

func getToggleReadHandler(deps Deps) func(ctx context.Context, request mcp.CallToolRequest, args DocumentRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, request mcp.CallToolRequest, args DocumentRequest) (*mcp.CallToolResult, error) {
		if args.DocumentID == "" {
			return mcp.NewToolResultError("documentId is required"), nil
		}
		doc, err := deps.Controller.ToggleRead(ctx, args.DocumentID)
		if err != nil {
			return toolError(err), nil
		}
		return jsonResult(map[string]any{"document": doc})
	}
}

func getDeleteDocumentHandler(deps Deps) func(ctx context.Context, request mcp.CallToolRequest, args DeleteDocumentRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, request mcp.CallToolRequest, args DeleteDocumentRequest) (*mcp.CallToolResult, error) {
		if args.DocumentID == "" {
			return mcp.NewToolResultError("documentId is required"), nil
		}
		if !args.Confirm {
			return mcp.NewToolResultError("deletion requires confirm=true"), nil
		}
		if err := deps.Controller.Delete(ctx, args.DocumentID); err != nil {
			return toolError(err), nil
		}
		if deps.Events != nil {
			deps.Events.Publish("document_deleted", map[string]string{"documentId": args.DocumentID})
		}
		return jsonResult(map[string]string{"deleted": args.DocumentID})
	}
}

func getTriggerAnalysisHandler(deps Deps) func(ctx context.Context, request mcp.CallToolRequest, args DocumentRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, request mcp.CallToolRequest, args DocumentRequest) (*mcp.CallToolResult, error) {
		if args.DocumentID == "" {
			return mcp.NewToolResultError("documentId is required"), nil
		}
		if err := deps.Controller.TriggerCodeAnalysis(ctx, args.DocumentID); err != nil {
			return toolError(err), nil
		}
		if deps.Events != nil {
			deps.Events.Publish("code_analysis_triggered", map[string]string{"documentId": args.DocumentID})
		}
		return jsonResult(map[string]string{"documentId": args.DocumentID, "codeAnalysisStatus": string(api.StatusProcessing)})
	}
}

// ---- notes tools ----

type ViewNotesRequest struct {
	DocumentID string `json:"documentId"` // The document identifier
	Tab        string `json:"tab"`        // Preferred tab: "paper" or "code"
}

type SaveNotesRequest struct {
	DocumentID string `json:"documentId"` // The document identifier
	Content    string `json:"content"`    // Replacement markdown body for the active tab
}

type AIEditRequest struct {
	DocumentID string `json:"documentId"` // The document identifier
	Prompt     string `json:"prompt"`     // The rewrite instruction
}

func registerNotesTools(s *server.MCPServer, deps Deps, registry *viewerRegistry) {
	viewTool := mcp.NewTool("view_notes",
		mcp.WithDescription("Fetch and render the notes bundle for a document, including repaired diagrams"),
		mcp.WithString("documentId", mcp.Required(), mcp.Description("The document identifier")),
		mcp.WithString("tab", mcp.Description("Preferred tab: 'paper' or 'code'; falls back to whichever has content")),
	)
	s.AddTool(viewTool, mcp.NewTypedToolHandler(getViewNotesHandler(registry)))

	closeTool := mcp.NewTool("close_notes",
		mcp.WithDescription("Close an open notes view and stop any running AI-edit polling"),
		mcp.WithString("documentId", mcp.Required(), mcp.Description("The document identifier")),
	)
	s.AddTool(closeTool, mcp.NewTypedToolHandler(getCloseNotesHandler(registry)))

	saveTool := mcp.NewTool("save_notes",
		mcp.WithDescription("Replace the active tab's note content (requires login)"),
		mcp.WithString("documentId", mcp.Required(), mcp.Description("The document identifier")),
		mcp.WithString("content", mcp.Required(), mcp.Description("The replacement markdown body")),
	)
	s.AddTool(saveTool, mcp.NewTypedToolHandler(getSaveNotesHandler(registry)))

	aiEditTool := mcp.NewTool("edit_notes_ai",
		mcp.WithDescription("Submit an AI rewrite of the notes and poll until it resolves (requires login)"),
		mcp.WithString("documentId", mcp.Required(), mcp.Description("The document identifier")),
		mcp.WithString("prompt", mcp.Required(), mcp.Description("The rewrite instruction")),
	)
	s.AddTool(aiEditTool, mcp.NewTypedToolHandler(getAIEditHandler(registry)))

	statusTool := mcp.NewTool("ai_edit_status",
		mcp.WithDescription("Report the local status of an AI-edit job for an open notes view"),
		mcp.WithString("documentId", mcp.Required(), mcp.Description("The document identifier")),
	)
	s.AddTool(statusTool, mcp.NewTypedToolHandler(getAIEditStatusHandler(registry)))
}

func getViewNotesHandler(registry *viewerRegistry) func(ctx context.Context, request mcp.CallToolRequest, args ViewNotesRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, request mcp.CallToolRequest, args ViewNotesRequest) (*mcp.CallToolResult, error) {
		if args.DocumentID == "" {
			return mcp.NewToolResultError("documentId is required"), nil
		}
		preferred := api.NoteKind(args.Tab)
		switch preferred {
		case api.NotePaper, api.NoteCode, "":
		default:
			return mcp.NewToolResultError("tab must be 'paper' or 'code'"), nil
		}
		viewer := registry.obtain(args.DocumentID)
		view, err := viewer.Open(ctx, args.DocumentID, preferred)
		if err != nil {
			return toolError(err), nil
		}
		return jsonResult(view)
	}
}

func getCloseNotesHandler(registry *viewerRegistry) func(ctx context.Context, request mcp.CallToolRequest, args DocumentRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, request mcp.CallToolRequest, args DocumentRequest) (*mcp.CallToolResult, error) {
		if args.DocumentID == "" {
			return mcp.NewToolResultError("documentId is required"), nil
		}
		closed := registry.close(args.DocumentID)
		return jsonResult(map[string]bool{"closed": closed})
	}
}

func getSaveNotesHandler(registry *viewerRegistry) func(ctx context.Context, request mcp.CallToolRequest, args SaveNotesRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, request mcp.CallToolRequest, args SaveNotesRequest) (*mcp.CallToolResult, error) {
		if args.DocumentID == "" {
			return mcp.NewToolResultError("documentId is required"), nil
		}
		viewer, ok := registry.get(args.DocumentID)
		if !ok {
			return mcp.NewToolResultError("no open notes view for this document, call view_notes first"), nil
		}
		if err := viewer.SaveContent(ctx, args.Content); err != nil {
			return toolError(err), nil
		}
		return jsonResult(viewer.View())
	}
}

func getAIEditHandler(registry *viewerRegistry) func(ctx context.Context, request mcp.CallToolRequest, args AIEditRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, request mcp.CallToolRequest, args AIEditRequest) (*mcp.CallToolResult, error) {
		if args.DocumentID == "" {
			return mcp.NewToolResultError("documentId is required"), nil
		}
		prompt := notes.TrimPrompt(args.Prompt)
		if prompt == "" {
			return mcp.NewToolResultError("prompt is required"), nil
		}
		viewer, ok := registry.get(args.DocumentID)
		if !ok {
			return mcp.NewToolResultError("no open notes view for this document, call view_notes first"), nil
		}
		if err := viewer.SubmitAIEdit(ctx, prompt); err != nil {
			return toolError(err), nil
		}
		return jsonResult(map[string]string{"documentId": args.DocumentID, "aiEdit": string(notes.AIEditQueued)})
	}
}

func getAIEditStatusHandler(registry *viewerRegistry) func(ctx context.Context, request mcp.CallToolRequest, args DocumentRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, request mcp.CallToolRequest, args DocumentRequest) (*mcp.CallToolResult, error) {
		if args.DocumentID == "" {
			return mcp.NewToolResultError("documentId is required"), nil
		}
		viewer, ok := registry.get(args.DocumentID)
		if !ok {
			return mcp.NewToolResultError("no open notes view for this document"), nil
		}
		view := viewer.View()
		return jsonResult(map[string]string{
			"documentId": args.DocumentID,
			"aiEdit":     string(view.AIEdit),
			"error":      view.AIEditErr,
		})
	}
}

// ---- user note tools ----

type UserNoteCreateRequest struct {
	DocumentID string `json:"documentId"` // The document identifier
	Title      string `json:"title"`      // Note title
	Content    string `json:"content"`    // Markdown content
}

type UserNoteUpdateRequest struct {
	DocumentID string `json:"documentId"` // The document identifier
	NoteID     string `json:"noteId"`     // The user note identifier
	Title      string `json:"title"`      // Note title
	Content    string `json:"content"`    // Markdown content
}

type UserNoteDeleteRequest struct {
	DocumentID string `json:"documentId"` // The document identifier
	NoteID     string `json:"noteId"`     // The user note identifier
	Confirm    bool   `json:"confirm"`    // Must be true; deletion is destructive
}

func registerUserNoteTools(s *server.MCPServer, deps Deps) {
	listTool := mcp.NewTool("list_user_notes",
		mcp.WithDescription("List your own notes for a document with stripped-markdown previews"),
		mcp.WithString("documentId", mcp.Required(), mcp.Description("The document identifier")),
	)
	s.AddTool(listTool, mcp.NewTypedToolHandler(getListUserNotesHandler(deps)))

	createTool := mcp.NewTool("create_user_note",
		mcp.WithDescription("Create a user note on a document (requires login)"),
		mcp.WithString("documentId", mcp.Required(), mcp.Description("The document identifier")),
		mcp.WithString("title", mcp.Required(), mcp.Description("Note title")),
		mcp.WithString("content", mcp.Description("Markdown content")),
	)
	s.AddTool(createTool, mcp.NewTypedToolHandler(getCreateUserNoteHandler(deps)))

	updateTool := mcp.NewTool("update_user_note",
		mcp.WithDescription("Update a user note (requires login)"),
		mcp.WithString("documentId", mcp.Required(), mcp.Description("The document identifier")),
		mcp.WithString("noteId", mcp.Required(), mcp.Description("The user note identifier")),
		mcp.WithString("title", mcp.Description("Note title")),
		mcp.WithString("content", mcp.Description("Markdown content")),
	)
	s.AddTool(updateTool, mcp.NewTypedToolHandler(getUpdateUserNoteHandler(deps)))

	deleteTool := mcp.NewTool("delete_user_note",
		mcp.WithDescription("Delete a user note (requires login and confirm=true)"),
		mcp.WithString("documentId", mcp.Required(), mcp.Description("The document identifier")),
		mcp.WithString("noteId", mcp.Required(), mcp.Description("The user note identifier")),
		mcp.WithBoolean("confirm", mcp.Required(), mcp.Description("Must be true to delete")),
	)
	s.AddTool(deleteTool, mcp.NewTypedToolHandler(getDeleteUserNoteHandler(deps)))
}

func getListUserNotesHandler(deps Deps) func(ctx context.Context, request mcp.CallToolRequest, args DocumentRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, request mcp.CallToolRequest, args DocumentRequest) (*mcp.CallToolResult, error) {
		if args.DocumentID == "" {
			return mcp.NewToolResultError("documentId is required"), nil
		}
		items, err := deps.UserNotes.List(ctx, args.DocumentID)
		if err != nil {
			return toolError(err), nil
		}
		return jsonResult(map[string]any{"notes": items})
	}
}

func getCreateUserNoteHandler(deps Deps) func(ctx context.Context, request mcp.CallToolRequest, args UserNoteCreateRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, request mcp.CallToolRequest, args UserNoteCreateRequest) (*mcp.CallToolResult, error) {
		if args.DocumentID == "" || args.Title == "" {
			return mcp.NewToolResultError("documentId and title are required"), nil
		}
		note, err := deps.UserNotes.Create(ctx, args.DocumentID, args.Title, args.Content)
		if err != nil {
			return toolError(err), nil
		}
		return jsonResult(map[string]any{"note": note})
	}
}

func getUpdateUserNoteHandler(deps Deps) func(ctx context.Context, request mcp.CallToolRequest, args UserNoteUpdateRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, request mcp.CallToolRequest, args UserNoteUpdateRequest) (*mcp.CallToolResult, error) {
		if args.DocumentID == "" || args.NoteID == "" {
			return mcp.NewToolResultError("documentId and noteId are required"), nil
		}
		note, err := deps.UserNotes.Update(ctx, args.DocumentID, args.NoteID, args.Title, args.Content)
		if err != nil {
			return toolError(err), nil
		}
		return jsonResult(map[string]any{"note": note})
	}
}

func getDeleteUserNoteHandler(deps Deps) func(ctx context.Context, request mcp.CallToolRequest, args UserNoteDeleteRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, request mcp.CallToolRequest, args UserNoteDeleteRequest) (*mcp.CallToolResult, error) {
		if args.DocumentID == "" || args.NoteID == "" {
			return mcp.NewToolResultError("documentId and noteId are required"), nil
		}
		if err := deps.UserNotes.Delete(ctx, args.DocumentID, args.NoteID, args.Confirm); err != nil {
			if errors.Is(err, usernotes.ErrConfirmationRequired) {
				return mcp.NewToolResultError("deletion requires confirm=true"), nil
			}
			return toolError(err), nil
		}
		return jsonResult(map[string]string{"deleted": args.NoteID})
	}
}

// ---- auth tools ----

type LoginRequest struct {
	Token string `json:"token"` // The opaque access token
}

func registerAuthTools(s *server.MCPServer, deps Deps) {
	loginTool := mcp.NewTool("login",
		mcp.WithDescription("Verify an access token and start an authenticated session"),
		mcp.WithString("token", mcp.Required(), mcp.Description("The opaque access token for the backend")),
	)
	s.AddTool(loginTool, mcp.NewTypedToolHandler(getLoginHandler(deps)))

	logoutTool := mcp.NewTool("logout",
		mcp.WithDescription("Discard the stored credential and end the session"),
	)
	s.AddTool(logoutTool, mcp.NewTypedToolHandler(getLogoutHandler(deps)))

	statusTool := mcp.NewTool("auth_status",
		mcp.WithDescription("Report the current session state"),
	)
	s.AddTool(statusTool, mcp.NewTypedToolHandler(getAuthStatusHandler(deps)))
}

func getLoginHandler(deps Deps) func(ctx context.Context, request mcp.CallToolRequest, args LoginRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, request mcp.CallToolRequest, args LoginRequest) (*mcp.CallToolResult, error) {
		if args.Token == "" {
			return mcp.NewToolResultError("token is required"), nil
		}
		if err := deps.Session.Login(ctx, args.Token); err != nil {
			if errors.Is(err, session.ErrAuthRequired) {
				return mcp.NewToolResultError("the token was rejected by the backend"), nil
			}
			return toolError(err), nil
		}
		return jsonResult(map[string]string{"status": deps.Session.Status().String()})
	}
}

type EmptyRequest struct{}

func getLogoutHandler(deps Deps) func(ctx context.Context, request mcp.CallToolRequest, args EmptyRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, request mcp.CallToolRequest, args EmptyRequest) (*mcp.CallToolResult, error) {
		if err := deps.Session.Logout(); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to discard credential: %v", err)), nil
		}
		return jsonResult(map[string]string{"status": deps.Session.Status().String()})
	}
}

func getAuthStatusHandler(deps Deps) func(ctx context.Context, request mcp.CallToolRequest, args EmptyRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, request mcp.CallToolRequest, args EmptyRequest) (*mcp.CallToolResult, error) {
		return jsonResult(map[string]string{"status": deps.Session.Status().String()})
	}
}
