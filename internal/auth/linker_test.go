package auth_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/cloudplayer/identity/internal/auth"
	"github.com/cloudplayer/identity/internal/store"
	"github.com/cloudplayer/identity/internal/store/memory"
	"github.com/cloudplayer/identity/pkg/oauthflow"
	"github.com/cloudplayer/identity/pkg/provider"
	"github.com/cloudplayer/identity/pkg/session"
)

type fakeExchanger struct {
	access       oauthflow.AccessInfo
	account      oauthflow.AccountInfo
	exchangeErr  error
	fetchErr     error
	exchanged    int
	fetched      int
	lastCode     string
	lastRedirect string
}

func (f *fakeExchanger) ExchangeCode(_ context.Context, _ provider.Config, code, redirectURI string) (oauthflow.AccessInfo, error) {
	f.exchanged++
	f.lastCode = code
	f.lastRedirect = redirectURI
	if f.exchangeErr != nil {
		return oauthflow.AccessInfo{}, f.exchangeErr
	}
	return f.access, nil
}

func (f *fakeExchanger) FetchAccountInfo(_ context.Context, _ provider.Config, _ oauthflow.AccessInfo) (oauthflow.AccountInfo, error) {
	f.fetched++
	if f.fetchErr != nil {
		return oauthflow.AccountInfo{}, f.fetchErr
	}
	return f.account, nil
}

func testRegistry(t *testing.T) *provider.Registry {
	t.Helper()
	reg, err := provider.NewRegistry(
		provider.Config{
			ID:           "demo",
			AuthorizeURL: "https://demo.test/authorize",
			TokenURL:     "https://demo.test/oauth/token",
			UserInfoURL:  "https://demo.test/me",
			ClientKey:    "demo-key",
			ClientSecret: "demo-secret",
		},
		provider.Config{
			ID:           "other",
			AuthorizeURL: "https://other.test/authorize",
			TokenURL:     "https://other.test/oauth/token",
			UserInfoURL:  "https://other.test/me",
			ClientKey:    "other-key",
			ClientSecret: "other-secret",
		},
	)
	require.NoError(t, err)
	return reg
}

func demoExchanger(externalID, name string) *fakeExchanger {
	return &fakeExchanger{
		access: oauthflow.AccessInfo{
			AccessToken:  "tok1",
			RefreshToken: "ref1",
			Expiry:       time.Now().Add(time.Hour).UTC(),
		},
		account: oauthflow.AccountInfo{
			ExternalID:  externalID,
			DisplayName: name,
		},
	}
}

func anchorAccount(t *testing.T, st *memory.Store, userID string) store.Account {
	t.Helper()
	a, err := st.FindAccount(context.Background(), provider.Anchor, userID)
	require.NoError(t, err)
	return a
}

func TestLinkerComplete(t *testing.T) {
	t.Parallel()

	t.Run("first login bootstraps user and creates account", func(t *testing.T) {
		t.Parallel()

		st := memory.New()
		ex := demoExchanger("42", "Ann")
		linker := auth.NewLinker(testRegistry(t), ex, st, nil)

		sess, err := linker.Complete(context.Background(), session.Identity{}, "demo", "abc", "https://api.test/auth/demo")
		require.NoError(t, err)

		require.False(t, sess.Absent())
		accountID, ok := sess.Account("demo")
		require.True(t, ok)
		require.Equal(t, "42", accountID)

		anchorID, ok := sess.Account(provider.Anchor)
		require.True(t, ok)
		require.Equal(t, sess.UserID, anchorID)

		account, err := st.FindAccount(context.Background(), "demo", "42")
		require.NoError(t, err)
		require.Equal(t, sess.UserID, account.UserID)
		require.Equal(t, "Ann", account.Title)
		require.Equal(t, "tok1", account.AccessToken)
		require.Equal(t, "ref1", account.RefreshToken)

		require.Equal(t, "abc", ex.lastCode)
		require.Equal(t, "https://api.test/auth/demo", ex.lastRedirect)
	})

	t.Run("repeat login updates tokens without duplicating", func(t *testing.T) {
		t.Parallel()

		st := memory.New()
		ex := demoExchanger("42", "Ann")
		linker := auth.NewLinker(testRegistry(t), ex, st, nil)

		first, err := linker.Complete(context.Background(), session.Identity{}, "demo", "abc", "uri")
		require.NoError(t, err)

		ex.access.AccessToken = "tok2"
		ex.access.RefreshToken = "ref2"
		ex.account.DisplayName = "Ann Updated"

		second, err := linker.Complete(context.Background(), first, "demo", "def", "uri")
		require.NoError(t, err)

		require.Equal(t, first.UserID, second.UserID)
		require.True(t, first.Equal(second))

		account, err := st.FindAccount(context.Background(), "demo", "42")
		require.NoError(t, err)
		require.Equal(t, "tok2", account.AccessToken)
		require.Equal(t, "ref2", account.RefreshToken)
		require.Equal(t, "Ann Updated", account.Title)

		accounts, err := st.ListAccountsForUser(context.Background(), first.UserID)
		require.NoError(t, err)
		require.Len(t, accounts, 2) // anchor + demo
	})

	t.Run("second provider attaches to same user", func(t *testing.T) {
		t.Parallel()

		st := memory.New()
		linker := auth.NewLinker(testRegistry(t), demoExchanger("42", "Ann"), st, nil)

		first, err := linker.Complete(context.Background(), session.Identity{}, "demo", "abc", "uri")
		require.NoError(t, err)

		linker = auth.NewLinker(testRegistry(t), demoExchanger("99", "Ann Elsewhere"), st, nil)
		second, err := linker.Complete(context.Background(), first, "other", "def", "uri")
		require.NoError(t, err)

		require.Equal(t, first.UserID, second.UserID)
		otherID, ok := second.Account("other")
		require.True(t, ok)
		require.Equal(t, "99", otherID)
		demoID, ok := second.Account("demo")
		require.True(t, ok)
		require.Equal(t, "42", demoID)

		account, err := st.FindAccount(context.Background(), "other", "99")
		require.NoError(t, err)
		require.Equal(t, first.UserID, account.UserID)
	})

	t.Run("known account switches session to owning user", func(t *testing.T) {
		t.Parallel()

		st := memory.New()

		// Device A establishes the account's owner.
		owner, err := auth.NewLinker(testRegistry(t), demoExchanger("42", "Ann"), st, nil).
			Complete(context.Background(), session.Identity{}, "demo", "abc", "uri")
		require.NoError(t, err)

		// Device B starts out as a separate anonymous user, then logs in
		// with the same provider account.
		stranger, err := auth.NewBootstrap(st).Bootstrap(context.Background())
		require.NoError(t, err)
		require.NotEqual(t, owner.UserID, stranger.UserID)

		adopted, err := auth.NewLinker(testRegistry(t), demoExchanger("42", "Ann"), st, nil).
			Complete(context.Background(), stranger, "demo", "def", "uri")
		require.NoError(t, err)

		require.Equal(t, owner.UserID, adopted.UserID)

		// Slots are re-derived from the owner's accounts; the stranger's
		// anchor slot is gone.
		anchorID, ok := adopted.Account(provider.Anchor)
		require.True(t, ok)
		require.Equal(t, owner.UserID, anchorID)

		// The account still belongs to the original owner.
		account, err := st.FindAccount(context.Background(), "demo", "42")
		require.NoError(t, err)
		require.Equal(t, owner.UserID, account.UserID)
	})

	t.Run("merge drops stale foreign slots", func(t *testing.T) {
		t.Parallel()

		st := memory.New()
		owner, err := auth.NewLinker(testRegistry(t), demoExchanger("42", "Ann"), st, nil).
			Complete(context.Background(), session.Identity{}, "demo", "abc", "uri")
		require.NoError(t, err)

		// A cookie that somehow carries a slot for a provider the owner
		// never linked.
		stale := owner.WithAccount("other", "someone-elses-account")

		relinked, err := auth.NewLinker(testRegistry(t), demoExchanger("42", "Ann"), st, nil).
			Complete(context.Background(), stale, "demo", "def", "uri")
		require.NoError(t, err)

		_, ok := relinked.Account("other")
		require.False(t, ok)
	})

	t.Run("unsupported provider", func(t *testing.T) {
		t.Parallel()

		linker := auth.NewLinker(testRegistry(t), demoExchanger("42", "Ann"), memory.New(), nil)

		sess := session.Identity{UserID: "u1", Accounts: map[string]string{provider.Anchor: "u1"}}
		got, err := linker.Complete(context.Background(), sess, "myspace", "abc", "uri")
		require.ErrorIs(t, err, provider.ErrUnsupportedProvider)
		require.True(t, got.Equal(sess))
	})

	t.Run("exchange failure leaves store untouched", func(t *testing.T) {
		t.Parallel()

		st := memory.New()
		ex := demoExchanger("42", "Ann")
		ex.exchangeErr = oauthflow.ErrProvider
		linker := auth.NewLinker(testRegistry(t), ex, st, nil)

		sess := session.Identity{UserID: "u1", Accounts: map[string]string{provider.Anchor: "u1"}}
		got, err := linker.Complete(context.Background(), sess, "demo", "abc", "uri")
		require.ErrorIs(t, err, oauthflow.ErrProvider)
		require.True(t, got.Equal(sess))
		require.Zero(t, ex.fetched)

		_, err = st.FindAccount(context.Background(), "demo", "42")
		require.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("userinfo failure leaves store untouched", func(t *testing.T) {
		t.Parallel()

		st := memory.New()
		ex := demoExchanger("42", "Ann")
		ex.fetchErr = oauthflow.ErrInvalidUserInfo
		linker := auth.NewLinker(testRegistry(t), ex, st, nil)

		sess := session.Identity{UserID: "u1", Accounts: map[string]string{provider.Anchor: "u1"}}
		got, err := linker.Complete(context.Background(), sess, "demo", "abc", "uri")
		require.ErrorIs(t, err, oauthflow.ErrInvalidUserInfo)
		require.True(t, got.Equal(sess))

		_, err = st.FindAccount(context.Background(), "demo", "42")
		require.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("create race recovers by relinking to winner", func(t *testing.T) {
		t.Parallel()

		st := memory.New()

		// Winner commits the account between this request's FindAccount
		// miss and its CreateAccount.
		racing := &racingStore{Store: st}
		winner, err := auth.NewBootstrap(st).Bootstrap(context.Background())
		require.NoError(t, err)
		racing.onMiss = func() {
			_, err := st.CreateAccount(context.Background(), store.NewAccount{
				ID:          "42",
				ProviderID:  "demo",
				UserID:      winner.UserID,
				AccessToken: "winner-token",
			})
			require.NoError(t, err)
		}

		linker := auth.NewLinker(testRegistry(t), demoExchanger("42", "Ann"), racing, nil)
		sess, err := linker.Complete(context.Background(), session.Identity{}, "demo", "abc", "uri")
		require.NoError(t, err)

		// The loser adopted the winner's user instead of creating a row.
		require.Equal(t, winner.UserID, sess.UserID)
		account, err := st.FindAccount(context.Background(), "demo", "42")
		require.NoError(t, err)
		require.Equal(t, winner.UserID, account.UserID)
		require.Equal(t, "tok1", account.AccessToken) // refreshed by the relink
	})
}

// racingStore wraps the memory store and runs onMiss after the first
// FindAccount miss, simulating a concurrent login winning the create.
type racingStore struct {
	*memory.Store
	onMiss func()
	fired  bool
}

func (r *racingStore) FindAccount(ctx context.Context, providerID, accountID string) (store.Account, error) {
	a, err := r.Store.FindAccount(ctx, providerID, accountID)
	if errors.Is(err, store.ErrNotFound) && !r.fired && r.onMiss != nil {
		r.fired = true
		r.onMiss()
	}
	return a, err
}

func TestBootstrap(t *testing.T) {
	t.Parallel()

	st := memory.New()
	sess, err := auth.NewBootstrap(st).Bootstrap(context.Background())
	require.NoError(t, err)

	require.False(t, sess.Absent())
	require.Len(t, sess.Accounts, 1)

	anchor := anchorAccount(t, st, sess.UserID)
	require.Equal(t, sess.UserID, anchor.ID)
	require.Equal(t, sess.UserID, anchor.UserID)
	require.Equal(t, provider.Anchor, anchor.ProviderID)
}
