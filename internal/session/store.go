package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ezfix/portal/internal/apiclient"
	"github.com/ezfix/portal/internal/dto"
	"github.com/ezfix/portal/internal/models"
	"github.com/ezfix/portal/internal/validator"
)

var ErrNotAuthenticated = errors.New("not signed in")

const (
	msgUnreachable   = "Unable to reach the server. Please check your connection."
	msgLoginFailed   = "Login failed. Please check your credentials."
	msgRegisterFail  = "Registration failed. Please try again."
	msgProfileFailed = "Failed to update profile."
	msgExpired       = "Your session has expired. Please sign in again."
)

type Status string

const (
	StatusLoading       Status = "loading"
	StatusAuthenticated Status = "authenticated"
	StatusAnonymous     Status = "anonymous"
	StatusUnreachable   Status = "unreachable"
)

// State is a snapshot of the session. Consumers must not treat a missing
// user as final while Status is loading.
type State struct {
	Status Status
	User   *models.User
	Error  string
}

func (s State) Authenticated() bool {
	return s.Status == StatusAuthenticated
}

func (s State) Loading() bool {
	return s.Status == StatusLoading
}

// Backend is the part of the REST API the store drives.
type Backend interface {
	Login(ctx context.Context, username, password string) (*dto.AuthResponse, error)
	Register(ctx context.Context, req dto.RegisterRequest) (*dto.AuthResponse, error)
	Refresh(ctx context.Context, refreshToken string) (*dto.AuthResponse, error)
	Logout(ctx context.Context, refreshToken string) error
	UpdateUser(ctx context.Context, id string, req dto.UpdateUserRequest) (*models.User, error)
}

// RegisterResult tells the caller whether registration left the user signed
// in or whether they still have to log in.
type RegisterResult struct {
	SignInRequired bool
}

type Option func(*Store)

func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithLeeway treats access tokens expiring within d as already expired.
func WithLeeway(d time.Duration) Option {
	return func(s *Store) { s.leeway = d }
}

// Store holds the signed-in identity and its credentials. It is safe for
// concurrent use and satisfies apiclient.TokenSource.
type Store struct {
	api      Backend
	storage  Storage
	validate *validator.Validator
	now      func() time.Time
	leeway   time.Duration

	mu      sync.RWMutex
	state   State
	access  string
	refresh string

	// refreshMu serializes refresh calls so concurrent 401s share one.
	refreshMu sync.Mutex

	listenersMu sync.Mutex
	listeners   []listener
	nextID      int
}

type listener struct {
	id int
	fn func(State)
}

func NewStore(api Backend, storage Storage, opts ...Option) *Store {
	s := &Store{
		api:      api,
		storage:  storage,
		validate: validator.New(),
		now:      time.Now,
		leeway:   30 * time.Second,
		state:    State{Status: StatusLoading},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// State returns a copy of the current session state.
func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot()
}

func (s *Store) snapshot() State {
	st := s.state
	if st.User != nil {
		u := *st.User
		st.User = &u
	}
	return st
}

// Subscribe registers fn for every state change and returns a function
// that removes it. fn is never called with the store locked.
func (s *Store) Subscribe(fn func(State)) func() {
	s.listenersMu.Lock()
	s.nextID++
	id := s.nextID
	s.listeners = append(s.listeners, listener{id: id, fn: fn})
	s.listenersMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.listenersMu.Lock()
			defer s.listenersMu.Unlock()
			for i, l := range s.listeners {
				if l.id == id {
					s.listeners = append(s.listeners[:i], s.listeners[i+1:]...)
					return
				}
			}
		})
	}
}

func (s *Store) setState(st State) {
	s.mu.Lock()
	s.state = st
	snap := s.snapshot()
	s.mu.Unlock()
	s.notify(snap)
}

func (s *Store) notify(st State) {
	s.listenersMu.Lock()
	fns := make([]func(State), len(s.listeners))
	for i, l := range s.listeners {
		fns[i] = l.fn
	}
	s.listenersMu.Unlock()

	for _, fn := range fns {
		fn(st)
	}
}

func (s *Store) fail(status Status, user *models.User, msg string) {
	s.setState(State{Status: status, User: user, Error: msg})
}

// AccessToken returns the current bearer credential, or "".
func (s *Store) AccessToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.access
}

func (s *Store) User() *models.User {
	return s.State().User
}

// Login signs in and persists the credentials. Failures are also recorded
// in State.Error.
func (s *Store) Login(ctx context.Context, in validator.LoginInput) error {
	if err := s.validate.Struct(in); err != nil {
		s.fail(StatusAnonymous, nil, err.Error())
		return err
	}

	resp, err := s.api.Login(ctx, in.Username, in.Password)
	if err != nil {
		s.fail(StatusAnonymous, nil, failureMessage(err, msgLoginFailed))
		return fmt.Errorf("login: %w", err)
	}
	if err := s.authenticate(resp, nil); err != nil {
		s.fail(StatusAnonymous, nil, msgLoginFailed)
		return fmt.Errorf("login: %w", err)
	}
	slog.Info("signed in", "user_id", s.User().ID)
	return nil
}

// Register creates an account. When the backend answers with credentials
// the user is signed in; otherwise SignInRequired is set.
func (s *Store) Register(ctx context.Context, in validator.RegisterInput) (RegisterResult, error) {
	if err := s.validate.Struct(in); err != nil {
		s.fail(StatusAnonymous, nil, err.Error())
		return RegisterResult{}, err
	}

	resp, err := s.api.Register(ctx, dto.RegisterRequest{
		Username: in.Username,
		Email:    in.Email,
		Password: in.Password,
	})
	if err != nil {
		s.fail(StatusAnonymous, nil, failureMessage(err, msgRegisterFail))
		return RegisterResult{}, fmt.Errorf("register: %w", err)
	}
	if resp.Access() == "" {
		s.setState(State{Status: StatusAnonymous})
		return RegisterResult{SignInRequired: true}, nil
	}
	if err := s.authenticate(resp, nil); err != nil {
		s.setState(State{Status: StatusAnonymous})
		return RegisterResult{SignInRequired: true}, nil
	}
	slog.Info("registered", "user_id", s.User().ID)
	return RegisterResult{}, nil
}

// Logout always ends the local session. The server-side revocation is
// best effort.
func (s *Store) Logout(ctx context.Context) {
	s.mu.RLock()
	refresh := s.refresh
	s.mu.RUnlock()

	if refresh != "" {
		if err := s.api.Logout(ctx, refresh); err != nil {
			slog.Warn("logout revocation failed", "error", err)
		}
	}
	s.clear(State{Status: StatusAnonymous})
}

// Restore hydrates the session from storage. A stored user with a live
// access token is used as is; otherwise the refresh token is exchanged.
func (s *Store) Restore(ctx context.Context) State {
	s.setState(State{Status: StatusLoading})

	access, _ := s.storage.Get(KeyAccessToken)
	if access == "" {
		access, _ = s.storage.Get(legacyKeyToken)
	}
	refresh, _ := s.storage.Get(KeyRefreshToken)
	user := s.storedUser()
	if user == nil && access != "" {
		user = userFromToken(access)
	}

	if access != "" && user != nil && !tokenExpired(access, s.now(), s.leeway) {
		s.mu.Lock()
		s.access, s.refresh = access, refresh
		s.mu.Unlock()
		s.persist(user, access, refresh)
		s.setState(State{Status: StatusAuthenticated, User: user})
		slog.Debug("session restored from storage", "user_id", user.ID)
		return s.State()
	}

	if refresh == "" {
		s.clear(State{Status: StatusAnonymous})
		return s.State()
	}

	resp, err := s.api.Refresh(ctx, refresh)
	switch {
	case err == nil:
		if resp.RefreshToken == "" {
			resp.RefreshToken = refresh
		}
		if err := s.authenticate(resp, user); err != nil {
			slog.Warn("refresh returned no usable identity", "error", err)
			s.clear(State{Status: StatusAnonymous})
		}
	case apiclient.IsUnreachable(err):
		slog.Warn("session restore could not reach backend", "error", err)
		s.mu.Lock()
		s.access, s.refresh = access, refresh
		s.mu.Unlock()
		s.fail(StatusUnreachable, user, msgUnreachable)
	default:
		slog.Info("stored session rejected", "error", err)
		s.clear(State{Status: StatusAnonymous})
	}
	return s.State()
}

// Refresh exchanges the refresh token for a new access token. A rejected
// refresh token ends the session.
func (s *Store) Refresh(ctx context.Context) error {
	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()
	return s.refreshLocked(ctx)
}

// RefreshAccess is called by the API client after a 401. Callers that
// waited on another refresh reuse its result.
func (s *Store) RefreshAccess(ctx context.Context) error {
	stale := s.AccessToken()
	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()
	if cur := s.AccessToken(); cur != "" && cur != stale {
		return nil
	}
	return s.refreshLocked(ctx)
}

func (s *Store) refreshLocked(ctx context.Context) error {
	s.mu.RLock()
	refresh := s.refresh
	var user *models.User
	if s.state.User != nil {
		u := *s.state.User
		user = &u
	}
	s.mu.RUnlock()

	if refresh == "" {
		return ErrNotAuthenticated
	}

	resp, err := s.api.Refresh(ctx, refresh)
	if err != nil {
		if apiclient.IsUnreachable(err) {
			return fmt.Errorf("refresh: %w", err)
		}
		slog.Info("refresh token rejected, signing out", "error", err)
		s.clear(State{Status: StatusAnonymous, Error: msgExpired})
		return fmt.Errorf("refresh: %w", err)
	}
	if resp.RefreshToken == "" {
		resp.RefreshToken = refresh
	}
	if err := s.authenticate(resp, user); err != nil {
		return fmt.Errorf("refresh: %w", err)
	}
	return nil
}

// UpdateProfile edits username and email and re-persists the user.
func (s *Store) UpdateProfile(ctx context.Context, in validator.ProfileInput) (*models.User, error) {
	current := s.User()
	if !current.Valid() {
		return nil, ErrNotAuthenticated
	}
	if err := s.validate.Struct(in); err != nil {
		return nil, err
	}

	updated, err := s.api.UpdateUser(ctx, current.ID, dto.UpdateUserRequest{
		Username: in.Username,
		Email:    in.Email,
	})
	if err != nil {
		return nil, fmt.Errorf("update profile: %w", &messageError{msg: failureMessage(err, msgProfileFailed), err: err})
	}

	merged := *current
	if updated != nil {
		if updated.Username != "" {
			merged.Username = updated.Username
		}
		if updated.Email != "" {
			merged.Email = updated.Email
		}
	} else {
		if in.Username != "" {
			merged.Username = in.Username
		}
		if in.Email != "" {
			merged.Email = in.Email
		}
	}

	s.mu.RLock()
	access, refresh := s.access, s.refresh
	s.mu.RUnlock()
	s.persist(&merged, access, refresh)
	s.setState(State{Status: StatusAuthenticated, User: &merged})
	slog.Info("profile updated", "user_id", merged.ID)
	return &merged, nil
}

// authenticate installs the credentials in resp. fallback supplies the user
// when the response carries none.
func (s *Store) authenticate(resp *dto.AuthResponse, fallback *models.User) error {
	access := resp.Access()
	if access == "" {
		return apiclient.ErrUnexpectedShape
	}
	user := resp.User.Normalize()
	if !user.Valid() {
		user = fallback
	}
	if !user.Valid() {
		user = userFromToken(access)
	}
	if !user.Valid() {
		return fmt.Errorf("%w: no user in auth response", apiclient.ErrUnexpectedShape)
	}

	s.mu.Lock()
	s.access, s.refresh = access, resp.RefreshToken
	s.mu.Unlock()
	s.persist(user, access, resp.RefreshToken)
	s.setState(State{Status: StatusAuthenticated, User: user})
	return nil
}

func (s *Store) persist(user *models.User, access, refresh string) {
	raw, err := json.Marshal(user)
	if err != nil {
		slog.Error("encode session user", "error", err)
		return
	}
	values := map[string]string{
		KeyUser:        string(raw),
		KeyAccessToken: access,
	}
	stale := []string{legacyKeyToken}
	if refresh != "" {
		values[KeyRefreshToken] = refresh
	} else {
		stale = append(stale, KeyRefreshToken)
	}
	if err := s.storage.Set(values); err != nil {
		slog.Error("persist session", "error", err)
	}
	for _, key := range stale {
		if _, ok := s.storage.Get(key); !ok {
			continue
		}
		if err := s.storage.Delete(key); err != nil {
			slog.Warn("drop stale session key", "key", key, "error", err)
		}
	}
}

func (s *Store) clear(st State) {
	s.mu.Lock()
	s.access, s.refresh = "", ""
	s.mu.Unlock()
	if err := s.storage.Delete(KeyUser, KeyAccessToken, KeyRefreshToken, legacyKeyToken); err != nil {
		slog.Error("clear session storage", "error", err)
	}
	s.setState(st)
}

// storedUser decodes the persisted user, accepting either id or _id.
func (s *Store) storedUser() *models.User {
	raw, ok := s.storage.Get(KeyUser)
	if !ok || raw == "" {
		return nil
	}
	var p dto.UserPayload
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		slog.Warn("discarding unreadable stored user", "error", err)
		return nil
	}
	u := p.Normalize()
	if !u.Valid() {
		return nil
	}
	return u
}

func failureMessage(err error, fallback string) string {
	if apiclient.IsUnreachable(err) {
		return msgUnreachable
	}
	return apiclient.Message(err, fallback)
}

// messageError carries the user-facing text alongside the cause.
type messageError struct {
	msg string
	err error
}

func (e *messageError) Error() string { return e.msg }
func (e *messageError) Unwrap() error { return e.err }

// Message returns the user-facing text for an error produced by the store.
func Message(err error) string {
	var me *messageError
	if errors.As(err, &me) {
		return me.msg
	}
	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		return ve.Error()
	}
	return failureMessage(err, "Something went wrong.")
}
