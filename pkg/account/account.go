// Package account holds the DM server accounts a device may open sessions
// with: the server URI and the credentials used in each direction.
package account

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/backkem/omadm/pkg/auth"
)

var (
	// ErrNotFound is returned when no account has the requested server id.
	ErrNotFound = errors.New("account: server not found")

	// ErrInvalidAccount is returned by Validate.
	ErrInvalidAccount = errors.New("account: invalid account")
)

// Credentials is one direction of authentication. Nonce is the value the
// peer will expect in the next digest.
type Credentials struct {
	Type   auth.Type
	Name   string
	Secret string
	Nonce  []byte
}

// Account describes one management server.
type Account struct {
	ServerID  string
	ServerURI string

	// ClientAuth is what the device sends to the server.
	ClientAuth Credentials

	// ServerAuth is what the device expects from the server.
	ServerAuth Credentials
}

// Validate checks the account.
func (a *Account) Validate() error {
	if a.ServerID == "" {
		return fmt.Errorf("%w: ServerID is required", ErrInvalidAccount)
	}
	if a.ServerURI == "" {
		return fmt.Errorf("%w: %s has no ServerURI", ErrInvalidAccount, a.ServerID)
	}
	if !a.ClientAuth.Type.IsValid() || !a.ServerAuth.Type.IsValid() {
		return fmt.Errorf("%w: %s has an unknown auth type", ErrInvalidAccount, a.ServerID)
	}
	return nil
}

// Clone returns a deep copy.
func (a *Account) Clone() *Account {
	c := *a
	c.ClientAuth.Nonce = append([]byte(nil), a.ClientAuth.Nonce...)
	c.ServerAuth.Nonce = append([]byte(nil), a.ServerAuth.Nonce...)
	return &c
}

// Store gives access to accounts. Update persists nonces learned during a
// session.
type Store interface {
	Lookup(ctx context.Context, serverID string) (*Account, error)
	Update(ctx context.Context, acc *Account) error
}

// StaticStore is an in-memory Store. All methods are safe for concurrent use.
type StaticStore struct {
	mu       sync.RWMutex
	accounts map[string]*Account
}

// NewStaticStore creates a store holding copies of accounts.
func NewStaticStore(accounts ...*Account) (*StaticStore, error) {
	s := &StaticStore{accounts: make(map[string]*Account, len(accounts))}
	for _, a := range accounts {
		if err := a.Validate(); err != nil {
			return nil, err
		}
		if _, dup := s.accounts[a.ServerID]; dup {
			return nil, fmt.Errorf("%w: duplicate server id %s", ErrInvalidAccount, a.ServerID)
		}
		s.accounts[a.ServerID] = a.Clone()
	}
	return s, nil
}

// Lookup implements Store.
func (s *StaticStore) Lookup(ctx context.Context, serverID string) (*Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.accounts[serverID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, serverID)
	}
	return a.Clone(), nil
}

// Update implements Store.
func (s *StaticStore) Update(ctx context.Context, acc *Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.accounts[acc.ServerID]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, acc.ServerID)
	}
	s.accounts[acc.ServerID] = acc.Clone()
	return nil
}
