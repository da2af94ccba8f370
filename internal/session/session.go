// Package session owns the application's authentication lifecycle.
//
// A Manager starts Uninitialized, moves to Restoring while the credential
// store is consulted, and settles on Authenticated or Anonymous. After that
// it only moves between those two through Login and Logout. The credential
// is present exactly when the status is Authenticated, and the
// authenticated transport always mirrors it.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robby/taskdeck/internal/api"
	"github.com/robby/taskdeck/internal/auth"
	"github.com/robby/taskdeck/internal/credstore"
	"github.com/robby/taskdeck/internal/domain"
)

// Status is the session lifecycle state.
type Status int

const (
	Uninitialized Status = iota
	Restoring
	Authenticated
	Anonymous
)

func (s Status) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Restoring:
		return "restoring"
	case Authenticated:
		return "authenticated"
	case Anonymous:
		return "anonymous"
	}
	return fmt.Sprintf("status(%d)", int(s))
}

// Resolved reports whether the restore phase is over.
func (s Status) Resolved() bool {
	return s == Authenticated || s == Anonymous
}

var (
	// ErrMalformedLogin is returned when a login response lacks a token,
	// an id, or carries an unknown role.
	ErrMalformedLogin = errors.New("malformed login response")
	// ErrNotReady is returned by Login before Initialize has resolved.
	ErrNotReady = errors.New("session is still restoring")
)

// State is a read-only snapshot of the session.
type State struct {
	Status    Status
	Principal domain.Principal // zero unless Authenticated
}

// Authenticated reports whether the snapshot carries a principal.
func (s State) Authenticated() bool {
	return s.Status == Authenticated
}

// Manager is the session state machine. It is safe for concurrent use, but
// the application drives it from a single logical thread.
type Manager struct {
	store     credstore.Store
	transport *auth.Transport
	logger    *slog.Logger
	now       func() time.Time

	mu        sync.Mutex
	status    Status
	principal domain.Principal
	token     string
	subs      map[int]func(State)
	nextSub   int
	closed    bool

	initOnce sync.Once
	ready    chan struct{}
}

// New creates an Uninitialized manager. logger may be nil.
func New(store credstore.Store, transport *auth.Transport, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		store:     store,
		transport: transport,
		logger:    logger.With("component", "session"),
		now:       time.Now,
		subs:      make(map[int]func(State)),
		ready:     make(chan struct{}),
	}
}

// Initialize restores a previous session from the credential store. Only
// the first call does anything; later calls return immediately. A missing,
// corrupt, incomplete or expired entry resolves to Anonymous.
func (m *Manager) Initialize(ctx context.Context) {
	m.initOnce.Do(func() {
		m.transition(func() {
			m.status = Restoring
		})

		token, principal, ok := m.restore(ctx)

		m.transition(func() {
			if ok {
				m.status = Authenticated
				m.principal = principal
				m.token = token
				m.transport.SetCredential(token)
			} else {
				m.status = Anonymous
				m.principal = domain.Principal{}
				m.token = ""
				m.transport.ClearCredential()
			}
		})
		close(m.ready)
	})
}

// restore loads and validates the stored credential. Failures are silent
// beyond a debug log; an unusable entry is cleared so it is not retried.
func (m *Manager) restore(ctx context.Context) (string, domain.Principal, bool) {
	if err := ctx.Err(); err != nil {
		m.logger.Debug("restore skipped", "error", err)
		return "", domain.Principal{}, false
	}

	token, principal, err := m.store.Load()
	if err != nil {
		if !errors.Is(err, credstore.ErrNotFound) {
			m.logger.Debug("stored session unreadable", "error", err)
			m.clearStore()
		}
		return "", domain.Principal{}, false
	}

	switch {
	case token == "" || !principal.Valid():
		m.logger.Debug("stored session incomplete")
	case tokenExpired(token, m.now()):
		m.logger.Debug("stored session expired", "user", principal.Email)
	default:
		m.logger.Debug("session restored", "user", principal.Email, "role", principal.Role)
		return token, principal, true
	}
	m.clearStore()
	return "", domain.Principal{}, false
}

// Ready is closed once Initialize has resolved the session.
func (m *Manager) Ready() <-chan struct{} {
	return m.ready
}

// Login turns a successful login response into the current session.
// Only the known identity fields are kept; anything else the server sent
// is ignored. On error nothing changes.
func (m *Manager) Login(resp api.LoginResponse) (domain.Principal, error) {
	principal, err := principalFrom(resp)
	if err != nil {
		return domain.Principal{}, err
	}

	m.mu.Lock()
	resolved := m.status.Resolved()
	m.mu.Unlock()
	if !resolved {
		return domain.Principal{}, ErrNotReady
	}

	if err := m.store.Save(resp.Token, principal); err != nil {
		m.logger.Warn("failed to persist session", "error", err)
	}

	m.transition(func() {
		m.status = Authenticated
		m.principal = principal
		m.token = resp.Token
		m.transport.SetCredential(resp.Token)
	})
	m.logger.Info("logged in", "user", principal.Email, "role", principal.Role)
	return principal, nil
}

// principalFrom selects the identity fields of a login response.
func principalFrom(resp api.LoginResponse) (domain.Principal, error) {
	if resp.Token == "" {
		return domain.Principal{}, fmt.Errorf("%w: missing token", ErrMalformedLogin)
	}
	if resp.ID == "" {
		return domain.Principal{}, fmt.Errorf("%w: missing user id", ErrMalformedLogin)
	}
	role, ok := domain.ParseRole(resp.Role)
	if !ok {
		return domain.Principal{}, fmt.Errorf("%w: unknown role %q", ErrMalformedLogin, resp.Role)
	}
	return domain.Principal{
		ID:          resp.ID,
		Email:       resp.Email,
		DisplayName: resp.FullName,
		Role:        role,
		TenantID:    resp.TenantID,
	}, nil
}

// Logout ends the session. It is a no-op unless Authenticated.
func (m *Manager) Logout() {
	m.mu.Lock()
	authenticated := m.status == Authenticated
	email := m.principal.Email
	m.mu.Unlock()
	if !authenticated {
		return
	}

	m.clearStore()
	m.transition(func() {
		m.status = Anonymous
		m.principal = domain.Principal{}
		m.token = ""
		m.transport.ClearCredential()
	})
	m.logger.Info("logged out", "user", email)
}

func (m *Manager) clearStore() {
	if err := m.store.Clear(); err != nil {
		m.logger.Warn("failed to clear stored session", "error", err)
	}
}

// Snapshot returns the current state.
func (m *Manager) Snapshot() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshot()
}

func (m *Manager) snapshot() State {
	return State{Status: m.status, Principal: m.principal}
}

// Subscribe registers fn to be called after every transition with the new
// state. The returned function removes the subscription.
func (m *Manager) Subscribe(fn func(State)) (unsubscribe func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return func() {}
	}
	id := m.nextSub
	m.nextSub++
	m.subs[id] = fn
	return func() {
		m.mu.Lock()
		delete(m.subs, id)
		m.mu.Unlock()
	}
}

// Close drops every subscriber. The manager keeps working, but nobody is
// notified anymore.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.subs = make(map[int]func(State))
}

// transition applies mutate under the lock and notifies subscribers
// outside it.
func (m *Manager) transition(mutate func()) {
	m.mu.Lock()
	mutate()
	state := m.snapshot()
	subs := make([]func(State), 0, len(m.subs))
	for _, fn := range m.subs {
		subs = append(subs, fn)
	}
	m.mu.Unlock()

	for _, fn := range subs {
		fn(state)
	}
}
