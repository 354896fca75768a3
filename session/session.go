// Package session holds the bearer credential and its verified state. Every
// mutating operation consults it before touching the network, and demotes it
// when the backend rejects a credential mid-flight.
package session

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/readstack/readstack-mcp/api"
)

// Status is the session lifecycle state.
type Status int

const (
	StatusUnauthenticated Status = iota
	StatusVerifying
	StatusAuthenticated
)

func (s Status) String() string {
	switch s {
	case StatusVerifying:
		return "verifying"
	case StatusAuthenticated:
		return "authenticated"
	default:
		return "unauthenticated"
	}
}

// ErrAuthRequired is returned by RequireAuth when no verified credential is
// held. Callers surface a login prompt, never a generic error banner.
var ErrAuthRequired = errors.New("authentication required")

// Verifier is the subset of the API client the session needs.
type Verifier interface {
	VerifyAuth(ctx context.Context, token string) (*api.VerifyResult, error)
}

type Session struct {
	mu       sync.Mutex
	status   Status
	token    string
	store    TokenStore
	verifier Verifier
	logger   *zap.Logger

	// onAuthRequired is the login prompt hook. Fired on RequireAuth failure
	// and on mid-flight 401/403 demotion.
	onAuthRequired func()
}

func New(store TokenStore, verifier Verifier, logger *zap.Logger) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Session{
		status:   StatusUnauthenticated,
		store:    store,
		verifier: verifier,
		logger:   logger,
	}
}

// OnAuthRequired registers the login prompt callback.
func (s *Session) OnAuthRequired(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onAuthRequired = fn
}

func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// AuthHeader builds the Authorization header for the API client. ok is false
// unless the session is authenticated with a concrete token (an auth-disabled
// backend authenticates without one).
func (s *Session) AuthHeader() (key, value string, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status != StatusAuthenticated || s.token == "" {
		return "", "", false
	}
	return "Authorization", "Bearer " + s.token, true
}

// Verify checks any persisted credential on startup. A valid token or an
// auth-disabled backend both yield the authenticated state. An invalid token
// is discarded from storage; a transport failure keeps it for the next try.
func (s *Session) Verify(ctx context.Context) error {
	s.mu.Lock()
	token, err := s.store.Load()
	if err != nil {
		s.mu.Unlock()
		return err
	}
	s.status = StatusVerifying
	s.mu.Unlock()

	result, verr := s.verifier.VerifyAuth(ctx, token)

	s.mu.Lock()
	defer s.mu.Unlock()
	if verr != nil {
		s.status = StatusUnauthenticated
		if api.IsAuth(verr) {
			s.token = ""
			if cerr := s.store.Clear(); cerr != nil {
				s.logger.Warn("failed to discard invalid credential", zap.Error(cerr))
			}
			s.logger.Info("stored credential rejected, cleared")
			return nil
		}
		s.logger.Warn("credential verification unreachable", zap.Error(verr))
		return verr
	}
	if result.Valid || result.AuthDisabled {
		s.status = StatusAuthenticated
		s.token = token
		if result.AuthDisabled {
			s.logger.Info("backend auth disabled, session authenticated")
		}
		return nil
	}
	s.status = StatusUnauthenticated
	s.token = ""
	if cerr := s.store.Clear(); cerr != nil {
		s.logger.Warn("failed to discard invalid credential", zap.Error(cerr))
	}
	return nil
}

// Login verifies the given token and persists it only on success.
func (s *Session) Login(ctx context.Context, token string) error {
	s.mu.Lock()
	s.status = StatusVerifying
	s.mu.Unlock()

	result, err := s.verifier.VerifyAuth(ctx, token)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.status = StatusUnauthenticated
		return err
	}
	if !result.Valid && !result.AuthDisabled {
		s.status = StatusUnauthenticated
		return ErrAuthRequired
	}
	s.status = StatusAuthenticated
	s.token = token
	if err := s.store.Save(token); err != nil {
		s.logger.Warn("failed to persist credential", zap.Error(err))
	}
	return nil
}

// Logout discards the credential and returns to the unauthenticated state.
func (s *Session) Logout() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = StatusUnauthenticated
	s.token = ""
	return s.store.Clear()
}

// RequireAuth short-circuits mutating operations. On failure it fires the
// login prompt and returns ErrAuthRequired.
func (s *Session) RequireAuth() error {
	s.mu.Lock()
	authed := s.status == StatusAuthenticated
	prompt := s.onAuthRequired
	s.mu.Unlock()
	if authed {
		return nil
	}
	if prompt != nil {
		prompt()
	}
	return ErrAuthRequired
}

// HandleAuthFailure demotes the session after a mid-flight 401/403: the
// credential may have expired between the RequireAuth check and use. Returns
// ErrAuthRequired when err was an auth failure, err otherwise.
func (s *Session) HandleAuthFailure(err error) error {
	if !api.IsAuth(err) {
		return err
	}
	s.mu.Lock()
	s.status = StatusUnauthenticated
	prompt := s.onAuthRequired
	s.mu.Unlock()
	s.logger.Info("credential rejected mid-request, demoting session")
	if prompt != nil {
		prompt()
	}
	return ErrAuthRequired
}
