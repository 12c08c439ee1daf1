package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"automation-hub/internal/domain"
)

// Login failure fallbacks used when the server gives no detail.
const (
	msgBadCredentials = "Incorrect email or password"
	msgLoginFailed    = "login failed"
)

// ErrSuperseded is returned when a logout happened while a login or profile
// request was in flight. The response was dropped.
var ErrSuperseded = errors.New("session changed while request was in flight")

// Store is the single owner of the session. The zero value is not usable;
// construct with New.
//
// Every logout advances an epoch. Login and profile responses are applied
// only if the epoch they started under is still current, so a reply that
// arrives after a logout never resurrects the old session.
type Store struct {
	auth   domain.AuthAPI
	tokens domain.TokenStore
	logger *slog.Logger
	now    func() time.Time

	mu     sync.Mutex
	phase  Phase
	token  string
	user   *domain.UserProfile
	errMsg string
	epoch  uint64

	subMu  sync.Mutex
	subs   map[int]func(State)
	nextID int
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// WithClock overrides the clock used for token expiry checks.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New creates an anonymous Store. Call Restore to pick up a persisted token.
func New(auth domain.AuthAPI, tokens domain.TokenStore, opts ...Option) *Store {
	s := &Store{
		auth:   auth,
		tokens: tokens,
		logger: slog.Default(),
		now:    time.Now,
		subs:   make(map[int]func(State)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Snapshot returns the current state.
func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Store) snapshotLocked() State {
	st := State{
		Phase:     s.phase,
		Token:     s.token,
		IsLoading: s.phase.Loading(),
		Error:     s.errMsg,
	}
	if s.user != nil {
		u := *s.user
		st.User = &u
		st.IsAuthenticated = true
	}
	return st
}

// Token returns the bearer token for outbound requests, or "".
func (s *Store) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

// ClearError drops the last login error.
func (s *Store) ClearError() {
	s.mu.Lock()
	changed := s.errMsg != ""
	s.errMsg = ""
	s.mu.Unlock()
	if changed {
		s.notify()
	}
}

// Subscribe registers fn to receive a snapshot after every state change.
// The returned function unregisters it.
func (s *Store) Subscribe(fn func(State)) (cancel func()) {
	s.subMu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	s.subMu.Unlock()
	return func() {
		s.subMu.Lock()
		delete(s.subs, id)
		s.subMu.Unlock()
	}
}

func (s *Store) notify() {
	st := s.Snapshot()
	s.subMu.Lock()
	fns := make([]func(State), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.subMu.Unlock()
	for _, fn := range fns {
		fn(st)
	}
}

// Login exchanges credentials for a token, persists it and then loads the
// profile. On rejected credentials the returned error is a
// *domain.AuthenticationError and nothing is persisted.
func (s *Store) Login(ctx context.Context, email, password string) error {
	s.mu.Lock()
	epoch := s.epoch
	s.phase = PhaseAuthenticating
	s.errMsg = ""
	s.mu.Unlock()
	s.notify()

	token, err := s.auth.Login(ctx, email, password)
	if err != nil {
		msg := loginFailureMessage(err)
		s.mu.Lock()
		if s.epoch == epoch {
			s.phase = settledPhase(s.user)
			s.errMsg = msg
		}
		s.mu.Unlock()
		s.notify()
		s.logger.Info("login rejected", "email", email, "error", msg)
		return &domain.AuthenticationError{Message: msg, Err: err}
	}

	s.mu.Lock()
	if s.epoch != epoch {
		s.mu.Unlock()
		return ErrSuperseded
	}
	if err := s.tokens.Save(ctx, token); err != nil {
		s.phase = settledPhase(s.user)
		s.errMsg = "could not store session"
		s.mu.Unlock()
		s.notify()
		return fmt.Errorf("persist token: %w", err)
	}
	s.token = token
	s.user = nil
	s.mu.Unlock()

	s.logger.Debug("login accepted", "email", email)
	return s.FetchUser(ctx)
}

// FetchUser loads the profile of the current token's owner.
//
// A rejection by the API is treated as a stale token and performs a full
// Logout. A network failure only drops the in-memory profile: the token
// stays stored so the next Restore can try again, and the returned error
// reports Retryable.
func (s *Store) FetchUser(ctx context.Context) error {
	s.mu.Lock()
	token, epoch := s.token, s.epoch
	s.mu.Unlock()
	if token == "" {
		return domain.ErrNotAuthenticated
	}

	profile, err := s.auth.Me(ctx)

	s.mu.Lock()
	if s.epoch != epoch || s.token != token {
		s.mu.Unlock()
		if err != nil {
			return err
		}
		return ErrSuperseded
	}
	if err == nil {
		s.user = profile
		s.phase = PhaseAuthenticated
		s.errMsg = ""
		s.mu.Unlock()
		s.notify()
		return nil
	}
	if isTransient(err) {
		s.user = nil
		s.phase = PhaseAnonymous
		s.mu.Unlock()
		s.notify()
		s.logger.Warn("profile fetch failed, keeping stored token", "error", err)
		return err
	}
	s.mu.Unlock()

	s.logger.Info("profile fetch rejected, logging out", "error", err)
	s.Logout()
	return err
}

// Logout clears the stored token and resets the session. It is synchronous
// and idempotent.
func (s *Store) Logout() {
	s.mu.Lock()
	s.logoutLocked()
	s.mu.Unlock()
	s.notify()
}

func (s *Store) logoutLocked() {
	s.epoch++
	s.token = ""
	s.user = nil
	s.phase = PhaseAnonymous
	// The in-memory reset stands even if the durable store fails.
	if err := s.tokens.Clear(context.Background()); err != nil {
		s.logger.Warn("clear stored token", "error", err)
	}
}

// HandleUnauthorized is the process-wide hook for a request rejected with
// 401. It logs out only if token is still the session's token, so a late
// rejection of an earlier session never ends a newer one.
func (s *Store) HandleUnauthorized(token string) {
	s.mu.Lock()
	if token == "" || token != s.token {
		s.mu.Unlock()
		return
	}
	s.logoutLocked()
	s.mu.Unlock()
	s.logger.Info("session expired")
	s.notify()
}

// Restore resumes a persisted session at startup. It returns once the
// session is either authenticated or logged out; only a transient network
// failure is reported as an error.
func (s *Store) Restore(ctx context.Context) error {
	s.mu.Lock()
	token, err := s.tokens.Load(ctx)
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("load stored token: %w", err)
	}
	if token == "" {
		s.phase = PhaseAnonymous
		s.mu.Unlock()
		s.notify()
		return nil
	}
	if expired(token, s.now()) {
		s.logoutLocked()
		s.mu.Unlock()
		s.logger.Info("stored token expired")
		s.notify()
		return nil
	}
	s.token = token
	s.user = nil
	s.phase = PhaseRestoring
	s.mu.Unlock()
	s.notify()

	err = s.FetchUser(ctx)
	if err != nil && isTransient(err) {
		return err
	}
	return nil
}

// settledPhase is where a failed login leaves the store.
func settledPhase(user *domain.UserProfile) Phase {
	if user != nil {
		return PhaseAuthenticated
	}
	return PhaseAnonymous
}

func loginFailureMessage(err error) string {
	var d interface{ Detail() string }
	if errors.As(err, &d) && d.Detail() != "" {
		return d.Detail()
	}
	var expiredErr *domain.SessionExpiredError
	if errors.As(err, &expiredErr) {
		return msgBadCredentials
	}
	return msgLoginFailed
}

func isTransient(err error) bool {
	var r interface{ Retryable() bool }
	if errors.As(err, &r) && r.Retryable() {
		return true
	}
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// expired reports whether token is a JWT whose exp claim is already past.
// Tokens that are not JWTs are never considered expired here.
func expired(token string, now time.Time) bool {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return !now.Before(exp.Time)
}
