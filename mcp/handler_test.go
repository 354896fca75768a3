package mcp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/readstack/readstack-mcp/api"
	"github.com/readstack/readstack-mcp/library"
	"github.com/readstack/readstack-mcp/notes"
	"github.com/readstack/readstack-mcp/session"
	"github.com/readstack/readstack-mcp/usernotes"
)

// testBackend serves just enough of the REST API to exercise the handlers.
func testBackend(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/verify", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(api.VerifyResult{Valid: true})
	})
	mux.HandleFunc("/documents", func(w http.ResponseWriter, r *http.Request) {
		hasMore := false
		json.NewEncoder(w).Encode(api.DocumentList{
			Items: []api.Document{
				{ID: "doc-1", Title: "Attention Is All You Need"},
				{ID: "doc-2", Title: "Deep Residual Learning"},
			},
			HasMore: &hasMore,
		})
	})
	mux.HandleFunc("/tags", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]api.Tag{{ID: "t1", Name: "ml", Color: "#ff0000"}})
	})
	mux.HandleFunc("/documents/doc-1/notes", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"paperNotes": api.Note{Available: true, Content: "# Summary\n\nKey ideas."},
			"codeNotes":  api.Note{Available: false},
			"status":     "completed",
		})
	})
	mux.HandleFunc("/documents/doc-1/read", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			IsRead bool `json:"isRead"`
		}
		json.NewDecoder(r.Body).Decode(&body)
		json.NewEncoder(w).Encode(api.Document{ID: "doc-1", IsRead: body.IsRead})
	})
	mux.HandleFunc("/documents/doc-1", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete {
			http.NotFound(w, r)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("/code-analysis/doc-1", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	})
	mux.HandleFunc("/documents/doc-1/user-notes", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			var body api.UserNote
			json.NewDecoder(r.Body).Decode(&body)
			body.ID = "note-1"
			json.NewEncoder(w).Encode(body)
		default:
			json.NewEncoder(w).Encode([]api.UserNote{
				{ID: "note-1", Title: "Reading notes", Content: "Some **bold** thoughts."},
			})
		}
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func testDeps(t *testing.T) Deps {
	t.Helper()
	srv := testBackend(t)
	client := api.NewClient(srv.URL, 5*time.Second, nil)
	sess := session.New(&session.MemoryTokenStore{}, client, nil)
	client.SetAuthHeaderFunc(sess.AuthHeader)
	if err := sess.Login(context.Background(), "test-token"); err != nil {
		t.Fatalf("login failed: %v", err)
	}

	controller := library.NewController(client, sess, nil, library.Options{PageSize: 10})
	t.Cleanup(controller.Close)

	return Deps{
		Client:     client,
		HTTPClient: srv.Client(),
		Session:    sess,
		Controller: controller,
		Tags:       library.NewTagCatalog(client, time.Minute, nil),
		UserNotes:  usernotes.NewService(client, sess, nil),
		NewViewer: func() *notes.Viewer {
			return notes.NewViewer(client, sess, nil, 10*time.Millisecond, nil)
		},
	}
}

func callReq(name string, args any) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Request: mcp.Request{Method: "tools/call"},
		Params:  mcp.CallToolParams{Name: name, Arguments: args},
	}
}

func textContent(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if result == nil || len(result.Content) == 0 {
		t.Fatal("handler returned no content")
	}
	text, ok := mcp.AsTextContent(result.Content[0])
	if !ok {
		t.Fatalf("expected text content, got %T", result.Content[0])
	}
	return text.Text
}

func TestNewServer(t *testing.T) {
	server := NewServer(testDeps(t))
	if server == nil {
		t.Fatal("NewServer() returned nil")
	}
}

func TestListDocumentsHandler(t *testing.T) {
	deps := testDeps(t)
	handler := getListDocumentsHandler(deps)

	args := ListDocumentsRequest{Sort: "newest"}
	result, err := handler(context.Background(), callReq("list_documents", args), args)
	if err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected tool error: %s", textContent(t, result))
	}

	var resp ListDocumentsResponse
	if err := json.Unmarshal([]byte(textContent(t, result)), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp.Documents) != 2 {
		t.Fatalf("expected 2 documents, got %d", len(resp.Documents))
	}
	if resp.HasMore {
		t.Fatal("expected hasMore=false")
	}
}

func TestListDocumentsHandlerRejectsBadSort(t *testing.T) {
	deps := testDeps(t)
	handler := getListDocumentsHandler(deps)

	args := ListDocumentsRequest{Sort: "alphabetical"}
	result, err := handler(context.Background(), callReq("list_documents", args), args)
	if err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	if !result.IsError {
		t.Fatal("expected error result for invalid sort")
	}
}

func TestListTagsHandler(t *testing.T) {
	deps := testDeps(t)
	handler := getListTagsHandler(deps)

	result, err := handler(context.Background(), callReq("list_tags", ListTagsRequest{}), ListTagsRequest{})
	if err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	if !strings.Contains(textContent(t, result), `"ml"`) {
		t.Fatalf("expected tag name in response, got %s", textContent(t, result))
	}
}

func TestDeleteDocumentHandlerRequiresConfirm(t *testing.T) {
	deps := testDeps(t)
	handler := getDeleteDocumentHandler(deps)

	args := DeleteDocumentRequest{DocumentID: "doc-1"}
	result, err := handler(context.Background(), callReq("delete_document", args), args)
	if err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	if !result.IsError {
		t.Fatal("expected error result without confirm")
	}

	args.Confirm = true
	result, err = handler(context.Background(), callReq("delete_document", args), args)
	if err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected tool error: %s", textContent(t, result))
	}
}

func TestToggleReadHandler(t *testing.T) {
	deps := testDeps(t)
	if err := deps.Controller.RefreshWait(context.Background()); err != nil {
		t.Fatalf("refresh failed: %v", err)
	}
	handler := getToggleReadHandler(deps)

	args := DocumentRequest{DocumentID: "doc-1"}
	result, err := handler(context.Background(), callReq("toggle_read", args), args)
	if err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected tool error: %s", textContent(t, result))
	}
	if !strings.Contains(textContent(t, result), `"isRead":true`) {
		t.Fatalf("expected toggled document in response, got %s", textContent(t, result))
	}
}

func TestMutationHandlersRequireLogin(t *testing.T) {
	deps := testDeps(t)
	if err := deps.Session.Logout(); err != nil {
		t.Fatalf("logout failed: %v", err)
	}
	handler := getToggleReadHandler(deps)

	args := DocumentRequest{DocumentID: "doc-1"}
	result, err := handler(context.Background(), callReq("toggle_read", args), args)
	if err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	if !result.IsError {
		t.Fatal("expected error result when logged out")
	}
	if !strings.Contains(textContent(t, result), "login") {
		t.Fatalf("auth error should point at the login tool, got %s", textContent(t, result))
	}
}

func TestViewNotesHandler(t *testing.T) {
	deps := testDeps(t)
	registry := &viewerRegistry{open: map[string]*notes.Viewer{}, factory: deps.NewViewer}
	handler := getViewNotesHandler(registry)

	args := ViewNotesRequest{DocumentID: "doc-1", Tab: "code"}
	result, err := handler(context.Background(), callReq("view_notes", args), args)
	if err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected tool error: %s", textContent(t, result))
	}

	var view notes.View
	if err := json.Unmarshal([]byte(textContent(t, result)), &view); err != nil {
		t.Fatalf("failed to decode view: %v", err)
	}
	// Code tab has no content, so the viewer falls back to paper.
	if view.ActiveTab != api.NotePaper {
		t.Fatalf("expected paper tab fallback, got %s", view.ActiveTab)
	}
	if view.Paper == nil {
		t.Fatal("expected rendered paper notes")
	}
}

func TestCloseNotesHandler(t *testing.T) {
	deps := testDeps(t)
	registry := &viewerRegistry{open: map[string]*notes.Viewer{}, factory: deps.NewViewer}

	viewHandler := getViewNotesHandler(registry)
	viewArgs := ViewNotesRequest{DocumentID: "doc-1"}
	if _, err := viewHandler(context.Background(), callReq("view_notes", viewArgs), viewArgs); err != nil {
		t.Fatalf("view handler returned error: %v", err)
	}

	closeHandler := getCloseNotesHandler(registry)
	args := DocumentRequest{DocumentID: "doc-1"}
	result, err := closeHandler(context.Background(), callReq("close_notes", args), args)
	if err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	if !strings.Contains(textContent(t, result), `"closed":true`) {
		t.Fatalf("expected closed=true, got %s", textContent(t, result))
	}

	// A second close reports there was nothing open.
	result, _ = closeHandler(context.Background(), callReq("close_notes", args), args)
	if !strings.Contains(textContent(t, result), `"closed":false`) {
		t.Fatalf("expected closed=false, got %s", textContent(t, result))
	}
}

func TestAIEditHandlerRequiresOpenView(t *testing.T) {
	deps := testDeps(t)
	registry := &viewerRegistry{open: map[string]*notes.Viewer{}, factory: deps.NewViewer}
	handler := getAIEditHandler(registry)

	args := AIEditRequest{DocumentID: "doc-1", Prompt: "shorten"}
	result, err := handler(context.Background(), callReq("edit_notes_ai", args), args)
	if err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	if !result.IsError {
		t.Fatal("expected error result without an open view")
	}
}

func TestUserNoteHandlers(t *testing.T) {
	deps := testDeps(t)

	listHandler := getListUserNotesHandler(deps)
	listArgs := DocumentRequest{DocumentID: "doc-1"}
	result, err := listHandler(context.Background(), callReq("list_user_notes", listArgs), listArgs)
	if err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	if !strings.Contains(textContent(t, result), `"preview"`) {
		t.Fatalf("expected previews in listing, got %s", textContent(t, result))
	}

	createHandler := getCreateUserNoteHandler(deps)
	createArgs := UserNoteCreateRequest{DocumentID: "doc-1", Title: "Follow up", Content: "Re-read section 3."}
	result, err = createHandler(context.Background(), callReq("create_user_note", createArgs), createArgs)
	if err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected tool error: %s", textContent(t, result))
	}

	deleteHandler := getDeleteUserNoteHandler(deps)
	deleteArgs := UserNoteDeleteRequest{DocumentID: "doc-1", NoteID: "note-1"}
	result, err = deleteHandler(context.Background(), callReq("delete_user_note", deleteArgs), deleteArgs)
	if err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	if !result.IsError {
		t.Fatal("expected error result without confirm")
	}
}

func TestAuthStatusHandler(t *testing.T) {
	deps := testDeps(t)
	handler := getAuthStatusHandler(deps)

	result, err := handler(context.Background(), callReq("auth_status", EmptyRequest{}), EmptyRequest{})
	if err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	if !strings.Contains(textContent(t, result), "authenticated") {
		t.Fatalf("expected authenticated status, got %s", textContent(t, result))
	}
}
