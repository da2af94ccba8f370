// Package credstore persists the session credential (an opaque token) and the
// principal it belongs to across process restarts.
//
// The store never interprets the token. Freshness checks belong to the
// session manager.
package credstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/robby/taskdeck/internal/domain"
)

// Entry keys. Both backends persist exactly these two string-keyed values.
const (
	KeyToken = "token"
	KeyUser  = "user"
)

var (
	// ErrNotFound indicates nothing was saved, or Clear ran since the last Save.
	ErrNotFound = errors.New("no stored credential")
	// ErrCorrupt indicates a stored entry could not be decoded.
	ErrCorrupt = errors.New("stored credential is corrupt")
)

// Store persists a token and principal pair.
type Store interface {
	// Save durably persists both values, overwriting any previous pair.
	Save(token string, principal domain.Principal) error
	// Load returns the last saved pair, or ErrNotFound.
	Load() (string, domain.Principal, error)
	// Clear removes both values. Clearing an empty store is not an error.
	Clear() error
}

// encodePrincipal serializes the principal using only its known fields.
func encodePrincipal(p domain.Principal) (string, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("failed to encode principal: %w", err)
	}
	return string(data), nil
}

// decodeEntries turns the raw key/value entries into a token and principal.
// A missing key on either side means nothing usable was stored.
func decodeEntries(entries map[string]string) (string, domain.Principal, error) {
	token, hasToken := entries[KeyToken]
	rawUser, hasUser := entries[KeyUser]
	if !hasToken || !hasUser || token == "" || rawUser == "" {
		return "", domain.Principal{}, ErrNotFound
	}

	var p domain.Principal
	if err := json.Unmarshal([]byte(rawUser), &p); err != nil {
		return "", domain.Principal{}, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return token, p, nil
}

// MemoryStore keeps entries in process memory. It is used in tests and
// when durable storage is disabled.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]string
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]string)}
}

// Save implements Store.
func (m *MemoryStore) Save(token string, principal domain.Principal) error {
	user, err := encodePrincipal(principal)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[KeyToken] = token
	m.entries[KeyUser] = user
	return nil
}

// Load implements Store.
func (m *MemoryStore) Load() (string, domain.Principal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return decodeEntries(m.entries)
}

// Clear implements Store.
func (m *MemoryStore) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = make(map[string]string)
	return nil
}

// Set writes a raw entry. Tests use it to simulate corrupt or partial data.
func (m *MemoryStore) Set(key, value string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = value
}

// Get returns a raw entry.
func (m *MemoryStore) Get(key string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.entries[key]
	return v, ok
}
