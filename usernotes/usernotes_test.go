package usernotes

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/readstack/readstack-mcp/api"
	"github.com/readstack/readstack-mcp/session"
)

func TestPreviewStripsMarkdown(t *testing.T) {
	content := "# Heading\n\nSome **bold** and _italic_ text with a [link](https://example.com) " +
		"and `inline code`.\n\n- item one\n- item two\n\n> a quote\n\n```go\nfunc hidden() {}\n```\n"
	got := Preview(content)
	assert.NotContains(t, got, "#")
	assert.NotContains(t, got, "**")
	assert.NotContains(t, got, "](")
	assert.NotContains(t, got, "`")
	assert.NotContains(t, got, "func hidden")
	assert.Contains(t, got, "Heading")
	assert.Contains(t, got, "bold")
	assert.Contains(t, got, "link")
	assert.Contains(t, got, "item one")
	assert.Contains(t, got, "a quote")
}

func TestPreviewTruncates(t *testing.T) {
	long := strings.Repeat("word ", 100)
	got := Preview(long)
	assert.LessOrEqual(t, len([]rune(got)), PreviewBudget+1)
	assert.True(t, strings.HasSuffix(got, "…"))
}

func TestPreviewShortContentUntouched(t *testing.T) {
	assert.Equal(t, "short note", Preview("short note"))
}

type fakeBackend struct {
	notes   []api.UserNote
	deleted []string
}

func (f *fakeBackend) ListUserNotes(ctx context.Context, docID string) ([]api.UserNote, error) {
	return f.notes, nil
}

func (f *fakeBackend) CreateUserNote(ctx context.Context, docID, title, content string) (*api.UserNote, error) {
	note := api.UserNote{ID: "n1", Title: title, Content: content}
	f.notes = append(f.notes, note)
	return &note, nil
}

func (f *fakeBackend) UpdateUserNote(ctx context.Context, docID, noteID, title, content string) (*api.UserNote, error) {
	return &api.UserNote{ID: noteID, Title: title, Content: content}, nil
}

func (f *fakeBackend) DeleteUserNote(ctx context.Context, docID, noteID string) error {
	f.deleted = append(f.deleted, noteID)
	return nil
}

type okVerifier struct{}

func (okVerifier) VerifyAuth(ctx context.Context, token string) (*api.VerifyResult, error) {
	return &api.VerifyResult{Valid: true}, nil
}

func authedSession(t *testing.T) *session.Session {
	t.Helper()
	sess := session.New(&session.MemoryTokenStore{}, okVerifier{}, nil)
	require.NoError(t, sess.Login(context.Background(), "tok"))
	return sess
}

func TestListAddsPreviews(t *testing.T) {
	backend := &fakeBackend{notes: []api.UserNote{
		{ID: "n1", Title: "t", Content: "# Heading\n\nbody"},
	}}
	svc := NewService(backend, authedSession(t), nil)

	items, err := svc.List(context.Background(), "doc1")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Heading body", items[0].Preview)
}

func TestDeleteRequiresConfirmation(t *testing.T) {
	backend := &fakeBackend{}
	svc := NewService(backend, authedSession(t), nil)

	err := svc.Delete(context.Background(), "doc1", "n1", false)
	assert.ErrorIs(t, err, ErrConfirmationRequired)
	assert.Empty(t, backend.deleted)

	require.NoError(t, svc.Delete(context.Background(), "doc1", "n1", true))
	assert.Equal(t, []string{"n1"}, backend.deleted)
}

func TestWritesGateOnAuth(t *testing.T) {
	backend := &fakeBackend{}
	sess := session.New(&session.MemoryTokenStore{}, okVerifier{}, nil)
	prompted := false
	sess.OnAuthRequired(func() { prompted = true })
	svc := NewService(backend, sess, nil)

	_, err := svc.Create(context.Background(), "doc1", "title", "content")
	assert.ErrorIs(t, err, session.ErrAuthRequired)
	assert.True(t, prompted)
	assert.Empty(t, backend.notes)
}
