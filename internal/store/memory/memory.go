// Package memory implements the store contract in process memory.
// It backs tests and local development; production uses the pg
// implementation.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cloudplayer/identity/internal/store"
	"github.com/cloudplayer/identity/pkg/provider"
)

type accountKey struct {
	providerID string
	accountID  string
}

// Store is an in-memory store.Store implementation. All operations are
// safe for concurrent use; uniqueness races on CreateAccount surface as
// store.ErrDuplicateAccount exactly as the pg implementation's unique
// constraint does.
type Store struct {
	mu       sync.Mutex
	users    map[string]store.User
	accounts map[accountKey]store.Account
	now      func() time.Time
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		users:    make(map[string]store.User),
		accounts: make(map[accountKey]store.Account),
		now:      time.Now,
	}
}

// SetClock overrides the store's clock. Test helper.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

func (s *Store) FindAccount(_ context.Context, providerID, accountID string) (store.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.accounts[accountKey{providerID, accountID}]
	if !ok {
		return store.Account{}, store.ErrNotFound
	}
	return a, nil
}

func (s *Store) CreateAccount(_ context.Context, na store.NewAccount) (store.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := accountKey{na.ProviderID, na.ID}
	if _, exists := s.accounts[key]; exists {
		return store.Account{}, store.ErrDuplicateAccount
	}

	now := s.now()
	a := store.Account{
		ID:              na.ID,
		ProviderID:      na.ProviderID,
		UserID:          na.UserID,
		Title:           na.Title,
		ImageURL:        na.ImageURL,
		AccessToken:     na.AccessToken,
		RefreshToken:    na.RefreshToken,
		TokenExpiration: na.TokenExpiration,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	s.accounts[key] = a
	return a, nil
}

func (s *Store) UpdateAccountTokens(_ context.Context, providerID, accountID string, upd store.AccountUpdate) (store.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := accountKey{providerID, accountID}
	a, ok := s.accounts[key]
	if !ok {
		return store.Account{}, store.ErrNotFound
	}

	a.Title = upd.Title
	a.ImageURL = upd.ImageURL
	a.AccessToken = upd.AccessToken
	a.RefreshToken = upd.RefreshToken
	a.TokenExpiration = upd.TokenExpiration
	a.UpdatedAt = s.now()
	s.accounts[key] = a
	return a, nil
}

func (s *Store) ListAccountsForUser(_ context.Context, userID string) ([]store.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []store.Account
	for _, a := range s.accounts {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ProviderID < out[j].ProviderID
	})
	return out, nil
}

func (s *Store) CreateUser(_ context.Context) (store.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u := store.User{
		ID:        uuid.NewString(),
		CreatedAt: s.now(),
	}
	s.users[u.ID] = u
	return u, nil
}

func (s *Store) PruneAnonymousUsers(_ context.Context, cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	pruned := 0
	for id, u := range s.users {
		if !u.CreatedAt.Before(cutoff) {
			continue
		}
		if s.hasRealAccount(id) {
			continue
		}
		delete(s.users, id)
		delete(s.accounts, accountKey{provider.Anchor, id})
		pruned++
	}
	return pruned, nil
}

// hasRealAccount reports whether the user owns any non-anchor account.
// Caller must hold the mutex.
func (s *Store) hasRealAccount(userID string) bool {
	for _, a := range s.accounts {
		if a.UserID == userID && a.ProviderID != provider.Anchor {
			return true
		}
	}
	return false
}

var (
	_ store.Store  = (*Store)(nil)
	_ store.Pruner = (*Store)(nil)
)
