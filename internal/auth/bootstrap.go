package auth

import (
	"context"
	"fmt"

	"github.com/cloudplayer/identity/internal/store"
	"github.com/cloudplayer/identity/pkg/provider"
	"github.com/cloudplayer/identity/pkg/session"
)

// Bootstrap creates fresh anonymous users for visitors that present no
// valid session token.
type Bootstrap struct {
	store store.Store
}

// NewBootstrap creates a Bootstrap backed by the given store.
func NewBootstrap(st store.Store) *Bootstrap {
	return &Bootstrap{store: st}
}

// Bootstrap creates a new user plus its anchor account and returns an
// identity with exactly the anchor slot set. Every call creates a new
// user: a client that keeps losing its cookie accumulates one throwaway
// anonymous user per loss, an accepted storage cost bounded by the
// janitor, not a correctness problem.
func (b *Bootstrap) Bootstrap(ctx context.Context) (session.Identity, error) {
	user, err := b.store.CreateUser(ctx)
	if err != nil {
		return session.Identity{}, fmt.Errorf("create anonymous user: %w", err)
	}

	// The anchor account id is the user id: a stable identity root
	// independent of any real provider.
	anchor, err := b.store.CreateAccount(ctx, store.NewAccount{
		ID:         user.ID,
		ProviderID: provider.Anchor,
		UserID:     user.ID,
	})
	if err != nil {
		return session.Identity{}, fmt.Errorf("create anchor account for user %s: %w", user.ID, err)
	}

	return session.Identity{
		UserID:   user.ID,
		Accounts: map[string]string{provider.Anchor: anchor.ID},
	}, nil
}
