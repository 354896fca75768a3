// Package usernotes is CRUD over free-form user-authored markdown notes
// scoped to one document, with a stripped-markdown list preview.
package usernotes

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/readstack/readstack-mcp/api"
	"github.com/readstack/readstack-mcp/session"
)

// PreviewBudget is the character cap for list previews.
const PreviewBudget = 160

// ErrConfirmationRequired is returned by Delete when the caller has not
// collected an explicit confirmation.
var ErrConfirmationRequired = errors.New("deletion requires confirmation")

// Backend is what the service needs from the API client.
type Backend interface {
	ListUserNotes(ctx context.Context, docID string) ([]api.UserNote, error)
	CreateUserNote(ctx context.Context, docID, title, content string) (*api.UserNote, error)
	UpdateUserNote(ctx context.Context, docID, noteID, title, content string) (*api.UserNote, error)
	DeleteUserNote(ctx context.Context, docID, noteID string) error
}

type Service struct {
	backend Backend
	session *session.Session
	logger  *zap.Logger
}

func NewService(backend Backend, sess *session.Session, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{backend: backend, session: sess, logger: logger}
}

// ListItem is one row of the list view.
type ListItem struct {
	api.UserNote
	Preview string `json:"preview"`
}

func (s *Service) List(ctx context.Context, docID string) ([]ListItem, error) {
	raw, err := s.backend.ListUserNotes(ctx, docID)
	if err != nil {
		return nil, err
	}
	items := make([]ListItem, len(raw))
	for i, note := range raw {
		items[i] = ListItem{UserNote: note, Preview: Preview(note.Content)}
	}
	return items, nil
}

func (s *Service) Create(ctx context.Context, docID, title, content string) (*api.UserNote, error) {
	if err := s.session.RequireAuth(); err != nil {
		return nil, err
	}
	note, err := s.backend.CreateUserNote(ctx, docID, title, content)
	if err != nil {
		return nil, s.session.HandleAuthFailure(err)
	}
	return note, nil
}

func (s *Service) Update(ctx context.Context, docID, noteID, title, content string) (*api.UserNote, error) {
	if err := s.session.RequireAuth(); err != nil {
		return nil, err
	}
	note, err := s.backend.UpdateUserNote(ctx, docID, noteID, title, content)
	if err != nil {
		return nil, s.session.HandleAuthFailure(err)
	}
	return note, nil
}

// Delete removes a note. confirmed guards against accidental destruction;
// callers must collect an explicit confirmation first.
func (s *Service) Delete(ctx context.Context, docID, noteID string, confirmed bool) error {
	if !confirmed {
		return ErrConfirmationRequired
	}
	if err := s.session.RequireAuth(); err != nil {
		return err
	}
	if err := s.backend.DeleteUserNote(ctx, docID, noteID); err != nil {
		return s.session.HandleAuthFailure(err)
	}
	return nil
}

var (
	mdHeading   = regexp.MustCompile(`(?m)^#{1,6}\s+`)
	mdEmphasis  = regexp.MustCompile(`(\*\*|__|\*|_|~~)`)
	mdCodeFence = regexp.MustCompile("(?s)```.*?```")
	mdInline    = regexp.MustCompile("`([^`]*)`")
	mdLink      = regexp.MustCompile(`\[([^\]]*)\]\([^)]*\)`)
	mdImage     = regexp.MustCompile(`!\[[^\]]*\]\([^)]*\)`)
	mdListMark  = regexp.MustCompile(`(?m)^\s*([-*+]|\d+\.)\s+`)
	mdQuote     = regexp.MustCompile(`(?m)^>\s?`)
)

// Preview strips markdown syntax markers and truncates to PreviewBudget
// runes, appending an ellipsis when content was cut.
func Preview(content string) string {
	text := mdCodeFence.ReplaceAllString(content, " ")
	text = mdImage.ReplaceAllString(text, "")
	text = mdLink.ReplaceAllString(text, "$1")
	text = mdInline.ReplaceAllString(text, "$1")
	text = mdHeading.ReplaceAllString(text, "")
	text = mdListMark.ReplaceAllString(text, "")
	text = mdQuote.ReplaceAllString(text, "")
	text = mdEmphasis.ReplaceAllString(text, "")
	text = strings.Join(strings.Fields(text), " ")

	runes := []rune(text)
	if len(runes) <= PreviewBudget {
		return text
	}
	return strings.TrimSpace(string(runes[:PreviewBudget])) + "…"
}
