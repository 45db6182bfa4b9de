package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/acs/internal/shared"
	"golang.org/x/oauth2"
)

// TokenStore persists the credential pair between invocations.
//
// Token returns (nil, nil) when no credentials are stored. ClearToken must be idempotent.
type TokenStore interface {
	Token() (*oauth2.Token, error)
	SaveToken(token *oauth2.Token) error
	ClearToken() error
}

// MemoryTokenStore is a [TokenStore] that keeps the credential pair in process memory.
type MemoryTokenStore struct {
	mu    sync.Mutex
	token *oauth2.Token
}

// NewMemoryTokenStore creates a store seeded with token, which may be nil.
func NewMemoryTokenStore(token *oauth2.Token) *MemoryTokenStore {
	return &MemoryTokenStore{token: token}
}

func (s *MemoryTokenStore) Token() (*oauth2.Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.token == nil {
		return nil, nil
	}
	copied := *s.token
	return &copied, nil
}

func (s *MemoryTokenStore) SaveToken(token *oauth2.Token) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *token
	s.token = &copied
	return nil
}

func (s *MemoryTokenStore) ClearToken() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = nil
	return nil
}

// RefreshFunc exchanges a refresh token for a new credential pair.
type RefreshFunc func(ctx context.Context, refreshToken string) (*oauth2.Token, error)

type refreshResult struct {
	token *oauth2.Token
	err   error
}

// waiter is a caller queued behind the refresh in flight.
type waiter struct {
	ctx context.Context
	ch  chan refreshResult
}

// SessionOpts configures a [SessionManager].
type SessionOpts struct {
	Timeout          time.Duration
	Logger           *log.Logger
	OnSessionExpired func(err error)
}

// SessionManager coordinates token renewal so that at most one refresh is in flight.
//
// Callers that observe an expired access token while a refresh is outstanding are
// queued and resolved in arrival order once it settles.
type SessionManager struct {
	store     TokenStore
	refresh   RefreshFunc
	timeout   time.Duration
	logger    *log.Logger
	onExpired func(err error)

	mu         sync.Mutex
	refreshing bool
	queue      []waiter
}

// NewSessionManager creates a manager over store using refresh to renew tokens.
func NewSessionManager(store TokenStore, refresh RefreshFunc, opts SessionOpts) *SessionManager {
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	return &SessionManager{
		store:     store,
		refresh:   refresh,
		timeout:   opts.Timeout,
		logger:    opts.Logger,
		onExpired: opts.OnSessionExpired,
	}
}

// Token returns the stored credential pair, or nil when signed out.
func (m *SessionManager) Token() (*oauth2.Token, error) {
	return m.store.Token()
}

// Save stores a freshly issued credential pair.
func (m *SessionManager) Save(token *oauth2.Token) error {
	return m.store.SaveToken(token)
}

// Renew returns a usable access token after stale was rejected by the server.
//
// If the stored access token already differs from stale, another caller has
// renewed it and the stored token is returned without a network call. Otherwise
// the caller either starts the refresh or waits in the queue for it to settle.
func (m *SessionManager) Renew(ctx context.Context, stale string) (*oauth2.Token, error) {
	m.mu.Lock()
	current, err := m.store.Token()
	if err != nil {
		m.mu.Unlock()
		return nil, err
	}
	if current != nil && current.AccessToken != "" && current.AccessToken != stale {
		m.mu.Unlock()
		return current, nil
	}

	ch := make(chan refreshResult, 1)
	m.queue = append(m.queue, waiter{ctx: ctx, ch: ch})

	if !m.refreshing {
		m.refreshing = true
		go m.run(ctx, current)
	} else {
		m.logger.Debug("refresh in flight, queued request", "pending", len(m.queue))
	}
	m.mu.Unlock()

	select {
	case r := <-ch:
		return r.token, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Pending returns the number of callers waiting on the current refresh.
func (m *SessionManager) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.queue)
}

// Refreshing reports whether a refresh is outstanding.
func (m *SessionManager) Refreshing() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.refreshing
}

func (m *SessionManager) run(ctx context.Context, current *oauth2.Token) {
	var res refreshResult
	defer func() { m.settle(res) }()

	if current == nil || current.RefreshToken == "" {
		res.err = shared.ErrNoRefreshToken
		return
	}

	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.timeout)
	defer cancel()

	m.logger.Debug("refreshing access token")
	token, err := m.refresh(rctx, current.RefreshToken)
	if err != nil {
		res.err = err
		return
	}
	if token == nil || token.AccessToken == "" {
		res.err = shared.ErrRefreshFailed
		return
	}
	if token.RefreshToken == "" {
		token.RefreshToken = current.RefreshToken
	}
	if err := m.store.SaveToken(token); err != nil {
		res.err = err
		return
	}
	res.token = token
}

// settle clears the in-flight flag and drains the queue in insertion order,
// skipping callers that have already given up.
func (m *SessionManager) settle(res refreshResult) {
	if res.err != nil {
		m.logger.Warn("token refresh failed", "error", res.err)
		res.err = m.Expire(res.err)
	}

	m.mu.Lock()
	queue := m.queue
	m.queue = nil
	m.refreshing = false
	m.mu.Unlock()

	for _, w := range queue {
		if w.ctx.Err() != nil {
			continue
		}
		w.ch <- res
	}
}

// Expire purges the credentials, notifies the expiry hook and returns a session expired error.
func (m *SessionManager) Expire(cause error) error {
	if err := m.Logout(); err != nil {
		m.logger.Error("failed to purge credentials", "error", err)
	}
	expired := newSessionExpiredError(cause)
	if m.onExpired != nil {
		m.onExpired(expired)
	}
	return expired
}

// Logout removes both tokens from the store. Calling it when already signed out is a no-op.
func (m *SessionManager) Logout() error {
	if err := m.store.ClearToken(); err != nil && !errors.Is(err, shared.ErrNotAuthenticated) {
		return err
	}
	return nil
}
