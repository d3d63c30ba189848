// Package store defines the durable account and user contract the
// identity flows are built on. Implementations live in the pg and
// memory subpackages.
package store

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when a user or account does not exist.
	ErrNotFound = errors.New("store: not found")

	// ErrDuplicateAccount is returned when an account for the same
	// (provider id, account id) pair already exists. Callers recover by
	// re-fetching the winning row; this is never a fatal condition.
	ErrDuplicateAccount = errors.New("store: account already exists")
)

// User is the opaque identity root. A user owns zero or more accounts
// and is never deleted by the identity flows (the janitor may prune
// stale anonymous users).
type User struct {
	ID        string
	CreatedAt time.Time
}

// Account binds one provider account to one user. The composite key is
// (ProviderID, ID) where ID is the provider's account identifier. The
// owning user never changes after creation: linking a new provider to
// an existing user creates a new account, it never moves one.
type Account struct {
	// ID is the provider's account identifier. For the anchor
	// pseudo-provider it equals the owning user id.
	ID         string
	ProviderID string
	UserID     string

	// Denormalized profile snapshot, last-write-wins on each login.
	Title    string
	ImageURL string

	// Provider-scoped secrets.
	AccessToken     string
	RefreshToken    string
	TokenExpiration time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewAccount carries the fields of an account to be created.
type NewAccount struct {
	ID         string
	ProviderID string
	UserID     string

	Title    string
	ImageURL string

	AccessToken     string
	RefreshToken    string
	TokenExpiration time.Time
}

// AccountUpdate carries the fields refreshed on every provider login:
// the latest tokens and the current profile snapshot.
type AccountUpdate struct {
	Title    string
	ImageURL string

	AccessToken     string
	RefreshToken    string
	TokenExpiration time.Time
}

// Store is the durable boundary consumed by the identity flows.
//
// Implementations must provide at least read-committed isolation:
// concurrent CreateAccount calls for the same (provider id, account id)
// pair must not produce two rows. Uniqueness is enforced by the
// storage layer, not in-process locking, since requests may be served
// by independent processes; the loser observes ErrDuplicateAccount.
type Store interface {
	// FindAccount returns the account with the given composite key.
	// Returns ErrNotFound if no such account exists.
	FindAccount(ctx context.Context, providerID, accountID string) (Account, error)

	// CreateAccount persists a new account.
	// Returns ErrDuplicateAccount when the composite key is taken.
	CreateAccount(ctx context.Context, a NewAccount) (Account, error)

	// UpdateAccountTokens refreshes an account's tokens and profile
	// snapshot. Returns ErrNotFound if no such account exists.
	UpdateAccountTokens(ctx context.Context, providerID, accountID string, upd AccountUpdate) (Account, error)

	// ListAccountsForUser returns all accounts owned by a user,
	// ordered by creation time.
	ListAccountsForUser(ctx context.Context, userID string) ([]Account, error)

	// CreateUser persists a new user.
	CreateUser(ctx context.Context) (User, error)
}

// Pruner removes anonymous users that never completed a provider
// login. Implemented alongside Store; split out because only the
// janitor needs it.
type Pruner interface {
	// PruneAnonymousUsers deletes users created before the cutoff whose
	// only account is the anchor account, returning how many were
	// removed.
	PruneAnonymousUsers(ctx context.Context, cutoff time.Time) (int, error)
}
