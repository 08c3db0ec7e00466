// Package session holds the console's authentication state: the signed-in
// user and the access/refresh token pair. A Store is the single source of
// truth for that state and persists every mutation through a Persister.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Zkeai/DDPay-web/common/logging"
	"github.com/Zkeai/DDPay-web/common/messaging"
)

// User is the identity record returned by the backend on login.
type User struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Avatar   string `json:"avatar"`
	Role     string `json:"role"`
}

// Snapshot is a point-in-time copy of the session. Empty strings and a nil
// User mean absent.
type Snapshot struct {
	User            *User
	AccessToken     string
	RefreshToken    string
	ExpiresIn       int64
	IsAuthenticated bool
}

func (s Snapshot) clone() Snapshot {
	if s.User != nil {
		u := *s.User
		s.User = &u
	}
	return s
}

// Event describes a session mutation delivered to a Notifier.
type Event struct {
	Type      string
	UserID    int64
	ExpiresAt *time.Time
}

// Notifier observes session mutations. Implementations must not block for
// long and must not fail the mutation.
type Notifier interface {
	Notify(ctx context.Context, ev Event)
}

// Store is an injectable session container. All methods are safe for
// concurrent use.
type Store struct {
	mu    sync.RWMutex
	state Snapshot

	// persistMu orders Save calls the same way mutations were applied.
	persistMu sync.Mutex

	persister Persister
	notifier  Notifier
	key       string
	now       func() time.Time
	logger    *logging.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithKey sets the storage key. Defaults to StorageKey.
func WithKey(key string) Option {
	return func(s *Store) {
		if key != "" {
			s.key = key
		}
	}
}

// WithNotifier attaches a Notifier invoked after every mutation.
func WithNotifier(n Notifier) Option {
	return func(s *Store) { s.notifier = n }
}

// WithClock overrides the clock used for expiry checks.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets the logger. Defaults to logging.Default().
func WithLogger(l *logging.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// New returns an empty Store. A nil persister keeps state in memory only.
func New(persister Persister, opts ...Option) *Store {
	s := &Store{
		persister: persister,
		key:       StorageKey,
		now:       time.Now,
		logger:    logging.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Open returns a Store rehydrated from persister. Missing or corrupt data
// yields an empty session; only I/O failures are returned.
func Open(ctx context.Context, persister Persister, opts ...Option) (*Store, error) {
	s := New(persister, opts...)
	if persister == nil {
		return s, nil
	}

	data, err := persister.Load(ctx, s.key)
	if errors.Is(err, ErrNotFound) {
		return s, nil
	}
	if errors.Is(err, ErrCorrupt) {
		s.logger.WarnContext(ctx, "discarding unreadable session", logging.Error(err))
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}

	state, err := decodeState(data)
	if err != nil {
		s.logger.WarnContext(ctx, "discarding unreadable session", logging.Error(err))
		return s, nil
	}
	if !state.consistent() {
		s.logger.WarnContext(ctx, "discarding inconsistent session")
		return s, nil
	}

	s.state = state
	return s, nil
}

func (s Snapshot) consistent() bool {
	if s.IsAuthenticated {
		return s.AccessToken != "" && s.User != nil
	}
	return s.User == nil
}

// Login overwrites every field and marks the session authenticated.
// Token format is not validated here.
func (s *Store) Login(ctx context.Context, user User, accessToken, refreshToken string, expiresIn int64) error {
	return s.signIn(ctx, messaging.EventLogin, user, accessToken, refreshToken, expiresIn)
}

// Register has the same effect as Login.
func (s *Store) Register(ctx context.Context, user User, accessToken, refreshToken string, expiresIn int64) error {
	return s.signIn(ctx, messaging.EventRegister, user, accessToken, refreshToken, expiresIn)
}

func (s *Store) signIn(ctx context.Context, event string, user User, accessToken, refreshToken string, expiresIn int64) error {
	return s.mutate(ctx, event, func(st *Snapshot) {
		*st = Snapshot{
			User:            &user,
			AccessToken:     accessToken,
			RefreshToken:    refreshToken,
			ExpiresIn:       expiresIn,
			IsAuthenticated: true,
		}
	})
}

// UpdateTokens replaces the token pair and lifetime, leaving the user and
// authentication flag untouched.
func (s *Store) UpdateTokens(ctx context.Context, accessToken, refreshToken string, expiresIn int64) error {
	return s.mutate(ctx, messaging.EventRefreshed, func(st *Snapshot) {
		st.AccessToken = accessToken
		st.RefreshToken = refreshToken
		st.ExpiresIn = expiresIn
	})
}

// SetUser replaces the stored user of an authenticated session.
// It is a no-op when signed out.
func (s *Store) SetUser(ctx context.Context, user User) error {
	if !s.IsAuthenticated() {
		return nil
	}
	return s.mutate(ctx, "", func(st *Snapshot) {
		if st.IsAuthenticated {
			st.User = &user
		}
	})
}

// Logout resets every field. Calling it while signed out is harmless.
func (s *Store) Logout(ctx context.Context) error {
	return s.mutate(ctx, messaging.EventLogout, func(st *Snapshot) {
		*st = Snapshot{}
	})
}

// mutate applies fn, then persists and notifies. The in-memory change is
// kept even when persisting fails.
func (s *Store) mutate(ctx context.Context, event string, fn func(*Snapshot)) error {
	s.persistMu.Lock()
	defer s.persistMu.Unlock()

	s.mu.Lock()
	var prevUserID int64
	if s.state.User != nil {
		prevUserID = s.state.User.ID
	}
	fn(&s.state)
	next := s.state.clone()
	s.mu.Unlock()

	var err error
	if s.persister != nil {
		var data []byte
		data, err = encodeState(next)
		if err == nil {
			err = s.persister.Save(ctx, s.key, data)
		}
		if err != nil {
			err = fmt.Errorf("persist session: %w", err)
		}
	}

	if s.notifier != nil && event != "" {
		ev := Event{Type: event, UserID: prevUserID}
		if next.User != nil {
			ev.UserID = next.User.ID
		}
		if exp, ok := TokenExpiry(next.AccessToken); ok {
			ev.ExpiresAt = &exp
		}
		s.notifier.Notify(ctx, ev)
	}

	return err
}

// Snapshot returns a copy of the current session.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.clone()
}

// User returns the signed-in user, or nil.
func (s *Store) User() *User {
	return s.Snapshot().User
}

// AccessToken returns the current access token, or "".
func (s *Store) AccessToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.AccessToken
}

// RefreshToken returns the current refresh token, or "".
func (s *Store) RefreshToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.RefreshToken
}

// IsAuthenticated reports whether a login, register or refresh has
// succeeded since the last logout.
func (s *Store) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.IsAuthenticated
}

// IsTokenExpired reports true when there is no access token, when it cannot
// be decoded, or when its expiry is at or before now.
func (s *Store) IsTokenExpired() bool {
	exp, ok := s.TokenExpiration()
	if !ok {
		return true
	}
	return !exp.After(s.now())
}

// TokenExpiration returns the access token's embedded expiry.
func (s *Store) TokenExpiration() (time.Time, bool) {
	return TokenExpiry(s.AccessToken())
}

