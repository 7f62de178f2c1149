// Package auth holds the client's session state: current user, bearer token
// and its client-assigned expiration. The token itself is opaque; expiry is
// tracked locally, never parsed out of the token.
package auth

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/tikitihub/tikiti-go/internal/api"
	"github.com/tikitihub/tikiti-go/internal/domain"
	"github.com/tikitihub/tikiti-go/internal/persist"
)

// TokenTTL is the client-assigned session lifetime.
const TokenTTL = 24 * time.Hour

// snapshotName is the persistence namespace for the serialized session.
const snapshotName = "auth-storage"

type Clock interface{ Now() time.Time }

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// Result is the structured outcome of login/register actions. Error carries
// a user-facing message when Success is false.
type Result struct {
	Success bool
	Error   string
}

type snapshot struct {
	User            *domain.User `json:"user"`
	Token           string       `json:"token"`
	IsAuthenticated bool         `json:"isAuthenticated"`
	TokenExpiration *time.Time   `json:"tokenExpiration"`
}

// Store is the auth session store. Constructed once per application root;
// all state transitions are full snapshot replacements under the mutex.
type Store struct {
	api     *api.Client
	persist persist.Store
	clock   Clock
	log     zerolog.Logger

	mu              sync.RWMutex
	user            *domain.User
	token           string
	tokenExpiration time.Time
	loading         bool
	errMsg          string

	subMu   sync.Mutex
	subs    map[int]func()
	nextSub int
}

// New builds a store. p may be nil to disable persistence; a nil clk uses
// the system clock.
func New(client *api.Client, p persist.Store, clk Clock, log zerolog.Logger) *Store {
	if clk == nil {
		clk = systemClock{}
	}
	return &Store{
		api:     client,
		persist: p,
		clock:   clk,
		log:     log,
		subs:    make(map[int]func()),
	}
}

// Subscribe registers fn to run after every state transition and returns an
// unsubscribe func.
func (s *Store) Subscribe(fn func()) func() {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	s.nextSub++
	id := s.nextSub
	s.subs[id] = fn
	return func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()
		delete(s.subs, id)
	}
}

func (s *Store) notify() {
	s.subMu.Lock()
	fns := make([]func(), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.subMu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

// Login authenticates against /auth/login. On success the user, token and a
// fresh 24h expiration are stored and the bearer token is armed on the API
// client. Input failing validation never reaches the network.
func (s *Store) Login(ctx context.Context, email, password string) Result {
	req := domain.LoginRequest{Email: email, Password: password}
	if verr := domain.Validate(req); verr != nil {
		return Result{Success: false, Error: verr.Message}
	}

	s.setLoading(true)

	resp, err := s.api.Login(ctx, req)
	if err != nil {
		msg := api.UserMessage(err, "Login failed. Please try again.")
		s.failWith(msg)
		return Result{Success: false, Error: msg}
	}
	if !resp.Success {
		s.failWith("Login failed")
		return Result{Success: false, Error: "Login failed"}
	}

	expiration := s.clock.Now().Add(TokenTTL)
	s.mu.Lock()
	user := resp.User
	s.user = &user
	s.token = resp.Token
	s.tokenExpiration = expiration
	s.loading = false
	s.errMsg = ""
	s.mu.Unlock()

	s.api.SetToken(resp.Token)
	s.saveSnapshot()
	s.notify()
	return Result{Success: true}
}

// Register creates an account via /auth/register. It does not log the new
// user in.
func (s *Store) Register(ctx context.Context, name, email, password, phoneNumber, county string) Result {
	req := domain.RegisterRequest{
		Name:        name,
		Email:       email,
		Password:    password,
		PhoneNumber: phoneNumber,
		County:      county,
	}
	if verr := domain.Validate(req); verr != nil {
		return Result{Success: false, Error: verr.Message}
	}

	s.setLoading(true)

	resp, err := s.api.Register(ctx, req)
	if err != nil {
		msg := api.UserMessage(err, "Registration failed. Please try again.")
		s.failWith(msg)
		return Result{Success: false, Error: msg}
	}
	if !resp.Success {
		s.failWith("Registration failed")
		return Result{Success: false, Error: "Registration failed"}
	}

	s.mu.Lock()
	s.loading = false
	s.errMsg = ""
	s.mu.Unlock()
	s.notify()
	return Result{Success: true}
}

// Logout clears the session and disarms the bearer token. Safe to call when
// already logged out.
func (s *Store) Logout() {
	s.api.ClearToken()

	s.mu.Lock()
	s.user = nil
	s.token = ""
	s.tokenExpiration = time.Time{}
	s.errMsg = ""
	s.mu.Unlock()

	if s.persist != nil {
		if err := s.persist.Delete(context.Background(), snapshotName); err != nil {
			s.log.Warn().Err(err).Msg("delete auth snapshot failed")
		}
	}
	s.notify()
}

// IsTokenExpired reports true when no expiration is recorded or the
// recorded instant has passed.
func (s *Store) IsTokenExpired() bool {
	s.mu.RLock()
	exp := s.tokenExpiration
	s.mu.RUnlock()
	if exp.IsZero() {
		return true
	}
	return s.clock.Now().After(exp)
}

// CheckAuth reports whether a live session is held. An expired session is
// logged out as a side effect; a live one re-arms the bearer token so the
// check is safe to run periodically.
func (s *Store) CheckAuth() bool {
	s.mu.RLock()
	token := s.token
	s.mu.RUnlock()

	if token == "" {
		return false
	}
	if s.IsTokenExpired() {
		s.log.Info().Msg("token expired, logging out")
		s.Logout()
		return false
	}
	if s.api.Token() == "" {
		s.api.SetToken(token)
	}
	return true
}

// IsAuthenticated is derived state: a token is held and not expired.
func (s *Store) IsAuthenticated() bool {
	s.mu.RLock()
	token := s.token
	s.mu.RUnlock()
	return token != "" && !s.IsTokenExpired()
}

// HasRole reports whether an authenticated user holds the given role.
func (s *Store) HasRole(role string) bool {
	if !s.IsAuthenticated() {
		return false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user != nil && s.user.Role == role
}

// RefreshToken extends the session by another TokenTTL when a token is
// held. No-op otherwise.
func (s *Store) RefreshToken() {
	s.mu.Lock()
	if s.token == "" {
		s.mu.Unlock()
		return
	}
	s.tokenExpiration = s.clock.Now().Add(TokenTTL)
	s.mu.Unlock()
	s.saveSnapshot()
	s.notify()
}

// CurrentUser fetches the canonical user from /auth/me and replaces the held
// copy. Returns nil without error state when not authenticated or on
// failure.
func (s *Store) CurrentUser(ctx context.Context) *domain.User {
	if !s.CheckAuth() {
		return nil
	}
	user, err := s.api.CurrentUser(ctx)
	if err != nil {
		s.log.Warn().Err(err).Msg("fetch current user failed")
		return nil
	}
	s.mu.Lock()
	u := *user
	s.user = &u
	s.mu.Unlock()
	s.saveSnapshot()
	s.notify()
	out := *user
	return &out
}

// UpdateProfile applies the patch optimistically: the merged user is visible
// immediately, then either replaced by the server's canonical copy or rolled
// back to the exact pre-update snapshot on rejection. Unlike the other
// actions it returns the failure to the caller after rollback.
func (s *Store) UpdateProfile(ctx context.Context, patch domain.ProfileUpdate) (*domain.User, error) {
	if verr := domain.Validate(patch); verr != nil {
		return nil, verr
	}

	s.mu.Lock()
	if s.user == nil {
		s.mu.Unlock()
		return nil, errors.New("not authenticated")
	}
	previous := *s.user
	merged := patch.Apply(*s.user)
	s.user = &merged
	s.loading = true
	s.errMsg = ""
	s.mu.Unlock()
	s.notify()

	resp, err := s.api.UpdateProfile(ctx, patch)
	if err != nil || !resp.Success {
		if err == nil {
			err = errors.New("profile update rejected")
		}
		s.mu.Lock()
		restored := previous
		s.user = &restored
		s.loading = false
		s.errMsg = api.UserMessage(err, "Failed to update profile")
		s.mu.Unlock()
		s.notify()
		return nil, err
	}

	s.mu.Lock()
	user := resp.User
	s.user = &user
	s.loading = false
	s.mu.Unlock()
	s.saveSnapshot()
	s.notify()

	out := resp.User
	return &out, nil
}

// ClearError clears the held error without other side effects.
func (s *Store) ClearError() {
	s.mu.Lock()
	s.errMsg = ""
	s.mu.Unlock()
	s.notify()
}

// User returns a copy of the held user, nil when none.
func (s *Store) User() *domain.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

func (s *Store) TokenExpiration() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tokenExpiration
}

func (s *Store) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

func (s *Store) Error() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.errMsg
}

// Hydrate restores a persisted session. Runs once at startup; an expired
// session is restored as-is and invalidated by the next CheckAuth, but its
// bearer token is not armed.
func (s *Store) Hydrate(ctx context.Context) {
	if s.persist == nil {
		return
	}
	var snap snapshot
	found, err := s.persist.Load(ctx, snapshotName, &snap)
	if err != nil {
		s.log.Warn().Err(err).Msg("load auth snapshot failed")
		return
	}
	if !found {
		return
	}

	s.mu.Lock()
	s.user = snap.User
	s.token = snap.Token
	if snap.TokenExpiration != nil {
		s.tokenExpiration = *snap.TokenExpiration
	} else {
		s.tokenExpiration = time.Time{}
	}
	s.mu.Unlock()

	if snap.Token != "" && !s.IsTokenExpired() {
		s.api.SetToken(snap.Token)
	}
	s.notify()
}

func (s *Store) setLoading(v bool) {
	s.mu.Lock()
	s.loading = v
	s.errMsg = ""
	s.mu.Unlock()
	s.notify()
}

func (s *Store) failWith(msg string) {
	s.mu.Lock()
	s.loading = false
	s.errMsg = msg
	s.mu.Unlock()
	s.notify()
}

func (s *Store) saveSnapshot() {
	if s.persist == nil {
		return
	}
	s.mu.RLock()
	snap := snapshot{
		User:            s.user,
		Token:           s.token,
		IsAuthenticated: s.token != "" && !s.tokenExpiration.IsZero() && s.clock.Now().Before(s.tokenExpiration),
	}
	if !s.tokenExpiration.IsZero() {
		exp := s.tokenExpiration
		snap.TokenExpiration = &exp
	}
	s.mu.RUnlock()

	if err := s.persist.Save(context.Background(), snapshotName, snap); err != nil {
		s.log.Warn().Err(err).Msg("save auth snapshot failed")
	}
}
