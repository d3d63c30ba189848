package provider

import (
	"net/url"
	"sort"
	"strings"
)

// Anchor is the synthetic pseudo-provider assigned to every user at
// creation time. It is a stable identity root independent of any real
// provider and is never part of a Registry.
const Anchor = "cloudplayer"

// Config describes one OAuth2 provider: its endpoints, client
// credentials and authorize-time parameters. Values are immutable once
// the Config is handed to a Registry.
type Config struct {
	// ID is the provider identifier (e.g., "soundcloud", "youtube").
	ID string

	// AuthorizeURL is the endpoint the browser is redirected to.
	AuthorizeURL string

	// TokenURL is the endpoint the authorization code is exchanged at.
	TokenURL string

	// UserInfoURL is the endpoint resolving an access token to an account.
	UserInfoURL string

	// TokenParam is the query parameter name carrying the access token
	// on user-info calls (e.g., "oauth_token", "access_token").
	TokenParam string

	// ClientKey and ClientSecret are the OAuth2 client credentials.
	ClientKey    string
	ClientSecret string

	// Scopes requested at authorize time.
	Scopes []string

	// ExtraAuthParams are provider-specific authorize-time parameters
	// (e.g., access_type=offline for Google).
	ExtraAuthParams map[string]string
}

// AuthCodeURL builds the provider's authorization URL for the code flow.
func (c Config) AuthCodeURL(redirectURI, state string) string {
	q := url.Values{}
	q.Set("response_type", "code")
	q.Set("client_id", c.ClientKey)
	q.Set("redirect_uri", redirectURI)
	if len(c.Scopes) > 0 {
		q.Set("scope", strings.Join(c.Scopes, " "))
	}
	if state != "" {
		q.Set("state", state)
	}
	for k, v := range c.ExtraAuthParams {
		q.Set(k, v)
	}

	sep := "?"
	if strings.Contains(c.AuthorizeURL, "?") {
		sep = "&"
	}
	return c.AuthorizeURL + sep + q.Encode()
}

// Registry is a static, read-only catalog of supported providers.
// It is built once at startup and never mutated afterwards.
type Registry struct {
	configs map[string]Config
}

// NewRegistry creates a registry from the given provider configs.
// Returns an error if any config is incomplete or duplicated, or if a
// config claims the Anchor pseudo-provider id.
func NewRegistry(configs ...Config) (*Registry, error) {
	m := make(map[string]Config, len(configs))
	for _, c := range configs {
		switch {
		case c.ID == "":
			return nil, ErrMissingProviderID
		case c.ID == Anchor:
			return nil, ErrReservedProviderID
		case c.ClientKey == "":
			return nil, ErrMissingClientKey
		case c.ClientSecret == "":
			return nil, ErrMissingClientSecret
		case c.AuthorizeURL == "" || c.TokenURL == "" || c.UserInfoURL == "":
			return nil, ErrMissingEndpoint
		}
		if _, dup := m[c.ID]; dup {
			return nil, ErrDuplicateProvider
		}
		if c.TokenParam == "" {
			c.TokenParam = "access_token"
		}
		m[c.ID] = c
	}
	return &Registry{configs: m}, nil
}

// Lookup returns the config for the given provider id.
// Returns ErrUnsupportedProvider if the id is unknown.
func (r *Registry) Lookup(id string) (Config, error) {
	c, ok := r.configs[id]
	if !ok {
		return Config{}, ErrUnsupportedProvider
	}
	return c, nil
}

// IDs returns the registered provider ids in sorted order.
// The Anchor pseudo-provider is not included.
func (r *Registry) IDs() []string {
	ids := make([]string, 0, len(r.configs))
	for id := range r.configs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
