// Package auth turns OAuth2 callback codes into durable, linked user
// identities: it exchanges the code, resolves the provider account and
// merges the result into the caller's session identity.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/cloudplayer/identity/internal/store"
	"github.com/cloudplayer/identity/pkg/oauthflow"
	"github.com/cloudplayer/identity/pkg/provider"
	"github.com/cloudplayer/identity/pkg/session"
)

// Exchanger performs the two outbound provider calls of the code flow.
// Implemented by oauthflow.Client; faked in tests.
type Exchanger interface {
	ExchangeCode(ctx context.Context, cfg provider.Config, code, redirectURI string) (oauthflow.AccessInfo, error)
	FetchAccountInfo(ctx context.Context, cfg provider.Config, access oauthflow.AccessInfo) (oauthflow.AccountInfo, error)
}

// Linker drives a provider callback from authorization code to merged
// session identity. It is safe for concurrent use; all state lives in
// the store and the per-request identity value.
type Linker struct {
	providers *provider.Registry
	exchanger Exchanger
	store     store.Store
	log       *slog.Logger
}

// NewLinker creates a linker. The registry is passed in explicitly;
// there is no ambient provider configuration.
func NewLinker(providers *provider.Registry, exchanger Exchanger, st store.Store, log *slog.Logger) *Linker {
	if log == nil {
		log = slog.Default()
	}
	return &Linker{
		providers: providers,
		exchanger: exchanger,
		store:     st,
		log:       log,
	}
}

// Complete runs the linking flow for one provider callback:
//
//	look up provider → exchange code → fetch account info →
//	find-or-create account → merge into the session identity
//
// When the provider account already exists, the session switches to
// the user who owns it: this is how a returning user on a new device
// regains their identity, and completing the same login twice updates
// the stored tokens instead of duplicating the account. When it does
// not exist, the account is attached to the session's current user, so
// linking a second provider never forks a second user.
//
// Nothing is persisted until account info is fully resolved, so any
// exchange or fetch failure leaves the store untouched.
func (l *Linker) Complete(ctx context.Context, sess session.Identity, providerID, code, redirectURI string) (session.Identity, error) {
	cfg, err := l.providers.Lookup(providerID)
	if err != nil {
		return sess, err
	}

	access, err := l.exchanger.ExchangeCode(ctx, cfg, code, redirectURI)
	if err != nil {
		return sess, fmt.Errorf("exchange code for %s: %w", providerID, err)
	}

	info, err := l.exchanger.FetchAccountInfo(ctx, cfg, access)
	if err != nil {
		return sess, fmt.Errorf("fetch account info for %s: %w", providerID, err)
	}

	account, err := l.store.FindAccount(ctx, providerID, info.ExternalID)
	switch {
	case err == nil:
		return l.linkExisting(ctx, sess, account, access, info)
	case errors.Is(err, store.ErrNotFound):
		return l.createAndAttach(ctx, sess, cfg.ID, access, info)
	default:
		return sess, fmt.Errorf("find account %s/%s: %w", providerID, info.ExternalID, err)
	}
}

// linkExisting reattaches the session to the user who owns the provider
// account, refreshing the stored tokens and profile snapshot, then
// re-derives every provider slot from that user's full account set.
func (l *Linker) linkExisting(ctx context.Context, sess session.Identity, account store.Account, access oauthflow.AccessInfo, info oauthflow.AccountInfo) (session.Identity, error) {
	if _, err := l.store.UpdateAccountTokens(ctx, account.ProviderID, account.ID, accountUpdate(access, info)); err != nil {
		return sess, fmt.Errorf("refresh account %s/%s: %w", account.ProviderID, account.ID, err)
	}

	accounts, err := l.store.ListAccountsForUser(ctx, account.UserID)
	if err != nil {
		return sess, fmt.Errorf("list accounts for user %s: %w", account.UserID, err)
	}

	return sess.Merge(account.UserID, refs(accounts)), nil
}

// createAndAttach creates a new account for the session's current user.
// An anonymous session without any user is bootstrapped first. Only the
// new slot changes, so the identity is extended in place rather than
// re-derived.
func (l *Linker) createAndAttach(ctx context.Context, sess session.Identity, providerID string, access oauthflow.AccessInfo, info oauthflow.AccountInfo) (session.Identity, error) {
	if sess.Absent() {
		bootstrapped, err := NewBootstrap(l.store).Bootstrap(ctx)
		if err != nil {
			return sess, err
		}
		sess = bootstrapped
	}

	account, err := l.store.CreateAccount(ctx, store.NewAccount{
		ID:              info.ExternalID,
		ProviderID:      providerID,
		UserID:          sess.UserID,
		Title:           info.DisplayName,
		ImageURL:        info.AvatarURL,
		AccessToken:     access.AccessToken,
		RefreshToken:    access.RefreshToken,
		TokenExpiration: access.Expiry,
	})
	if errors.Is(err, store.ErrDuplicateAccount) {
		// Lost a create race with a concurrent login for the same
		// provider account. The winning row is authoritative: re-fetch
		// once and link to it.
		l.log.InfoContext(ctx, "account create race lost, relinking",
			slog.String("provider", providerID),
			slog.String("account", info.ExternalID))

		account, err = l.store.FindAccount(ctx, providerID, info.ExternalID)
		if err != nil {
			return sess, fmt.Errorf("refetch account %s/%s after conflict: %w", providerID, info.ExternalID, err)
		}
		return l.linkExisting(ctx, sess, account, access, info)
	}
	if err != nil {
		return sess, fmt.Errorf("create account %s/%s: %w", providerID, info.ExternalID, err)
	}

	return sess.WithAccount(account.ProviderID, account.ID), nil
}

func accountUpdate(access oauthflow.AccessInfo, info oauthflow.AccountInfo) store.AccountUpdate {
	return store.AccountUpdate{
		Title:           info.DisplayName,
		ImageURL:        info.AvatarURL,
		AccessToken:     access.AccessToken,
		RefreshToken:    access.RefreshToken,
		TokenExpiration: access.Expiry,
	}
}

func refs(accounts []store.Account) []session.AccountRef {
	out := make([]session.AccountRef, len(accounts))
	for i, a := range accounts {
		out[i] = session.AccountRef{ProviderID: a.ProviderID, AccountID: a.ID}
	}
	return out
}
