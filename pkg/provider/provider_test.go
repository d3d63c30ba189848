package provider_test

import (
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cloudplayer/identity/pkg/provider"
)

func validConfig(id string) provider.Config {
	return provider.Config{
		ID:           id,
		AuthorizeURL: "https://" + id + ".test/authorize",
		TokenURL:     "https://" + id + ".test/oauth/token",
		UserInfoURL:  "https://" + id + ".test/me",
		ClientKey:    id + "-key",
		ClientSecret: id + "-secret",
	}
}

func TestNewRegistry(t *testing.T) {
	t.Parallel()

	t.Run("valid configs", func(t *testing.T) {
		t.Parallel()

		reg, err := provider.NewRegistry(validConfig("demo"), validConfig("other"))
		require.NoError(t, err)
		require.Equal(t, []string{"demo", "other"}, reg.IDs())
	})

	t.Run("defaults token param", func(t *testing.T) {
		t.Parallel()

		reg, err := provider.NewRegistry(validConfig("demo"))
		require.NoError(t, err)

		cfg, err := reg.Lookup("demo")
		require.NoError(t, err)
		require.Equal(t, "access_token", cfg.TokenParam)
	})

	t.Run("validation", func(t *testing.T) {
		t.Parallel()

		missingID := validConfig("")

		reservedID := validConfig(provider.Anchor)

		noKey := validConfig("demo")
		noKey.ClientKey = ""

		noSecret := validConfig("demo")
		noSecret.ClientSecret = ""

		noTokenURL := validConfig("demo")
		noTokenURL.TokenURL = ""

		for name, tc := range map[string]struct {
			cfg  provider.Config
			want error
		}{
			"missing id":       {missingID, provider.ErrMissingProviderID},
			"reserved id":      {reservedID, provider.ErrReservedProviderID},
			"missing key":      {noKey, provider.ErrMissingClientKey},
			"missing secret":   {noSecret, provider.ErrMissingClientSecret},
			"missing endpoint": {noTokenURL, provider.ErrMissingEndpoint},
		} {
			t.Run(name, func(t *testing.T) {
				t.Parallel()
				_, err := provider.NewRegistry(tc.cfg)
				require.ErrorIs(t, err, tc.want)
			})
		}
	})

	t.Run("duplicate id", func(t *testing.T) {
		t.Parallel()

		_, err := provider.NewRegistry(validConfig("demo"), validConfig("demo"))
		require.ErrorIs(t, err, provider.ErrDuplicateProvider)
	})
}

func TestRegistryLookup(t *testing.T) {
	t.Parallel()

	reg, err := provider.NewRegistry(validConfig("demo"))
	require.NoError(t, err)

	cfg, err := reg.Lookup("demo")
	require.NoError(t, err)
	require.Equal(t, "demo", cfg.ID)

	_, err = reg.Lookup("myspace")
	require.ErrorIs(t, err, provider.ErrUnsupportedProvider)

	_, err = reg.Lookup(provider.Anchor)
	require.ErrorIs(t, err, provider.ErrUnsupportedProvider)
}

func TestAuthCodeURL(t *testing.T) {
	t.Parallel()

	cfg := validConfig("demo")
	cfg.Scopes = []string{"profile", "email"}
	cfg.ExtraAuthParams = map[string]string{"access_type": "offline"}

	raw := cfg.AuthCodeURL("https://api.test/auth/demo", "xyz")
	require.True(t, strings.HasPrefix(raw, cfg.AuthorizeURL+"?"))

	u, err := url.Parse(raw)
	require.NoError(t, err)

	q := u.Query()
	require.Equal(t, "code", q.Get("response_type"))
	require.Equal(t, "demo-key", q.Get("client_id"))
	require.Equal(t, "https://api.test/auth/demo", q.Get("redirect_uri"))
	require.Equal(t, "profile email", q.Get("scope"))
	require.Equal(t, "xyz", q.Get("state"))
	require.Equal(t, "offline", q.Get("access_type"))
}

func TestBuiltinProviders(t *testing.T) {
	t.Parallel()

	t.Run("soundcloud", func(t *testing.T) {
		t.Parallel()

		cfg := provider.Soundcloud("key", "secret")
		require.Equal(t, "soundcloud", cfg.ID)
		require.Equal(t, "oauth_token", cfg.TokenParam)
		require.NotEmpty(t, cfg.AuthorizeURL)
		require.NotEmpty(t, cfg.TokenURL)
		require.NotEmpty(t, cfg.UserInfoURL)
	})

	t.Run("youtube", func(t *testing.T) {
		t.Parallel()

		cfg := provider.Youtube("key", "secret")
		require.Equal(t, "youtube", cfg.ID)
		require.Equal(t, "offline", cfg.ExtraAuthParams["access_type"])
		require.NotEmpty(t, cfg.Scopes)
	})

	t.Run("registrable together", func(t *testing.T) {
		t.Parallel()

		reg, err := provider.NewRegistry(
			provider.Soundcloud("k1", "s1"),
			provider.Youtube("k2", "s2"),
		)
		require.NoError(t, err)
		require.Equal(t, []string{"soundcloud", "youtube"}, reg.IDs())
	})
}
