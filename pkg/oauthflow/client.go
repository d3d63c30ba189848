package oauthflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/oauth2"

	"github.com/cloudplayer/identity/pkg/provider"
)

// AccessInfo is the result of exchanging an authorization code.
type AccessInfo struct {
	AccessToken  string
	RefreshToken string

	// Expiry is the absolute expiration of the access token,
	// zero when the provider did not report one.
	Expiry time.Time
}

// AccountInfo is the provider account resolved from an access token.
type AccountInfo struct {
	// ExternalID is the provider's unique account identifier.
	ExternalID string

	DisplayName string
	AvatarURL   string
}

// Client performs the two outbound calls of the authorization code flow:
// code to access token, and access token to account info. It holds no
// per-provider state; the provider config is passed per call.
//
// Neither call retries on failure. Authorization codes are single-use,
// so replaying an exchange after a provider-side failure cannot succeed;
// retries, if any, belong to the caller.
type Client struct {
	httpClient *http.Client
}

// New creates a token exchange client.
func New(opts ...Option) *Client {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}

	return &Client{
		httpClient: &http.Client{
			Timeout:   o.timeout,
			Transport: &refererTransport{next: o.transport, referer: o.referer},
		},
	}
}

// ExchangeCode trades an authorization code for an access token via a
// form-encoded POST to the provider's token endpoint, carrying the
// client credentials in the request body.
func (c *Client) ExchangeCode(ctx context.Context, cfg provider.Config, code, redirectURI string) (AccessInfo, error) {
	conf := &oauth2.Config{
		ClientID:     cfg.ClientKey,
		ClientSecret: cfg.ClientSecret,
		RedirectURL:  redirectURI,
		Endpoint: oauth2.Endpoint{
			TokenURL:  cfg.TokenURL,
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)

	tok, err := conf.Exchange(ctx, code)
	if err != nil {
		return AccessInfo{}, classify(err)
	}
	if tok.AccessToken == "" {
		return AccessInfo{}, errors.Join(ErrProvider, errors.New("token response missing access_token"))
	}

	return AccessInfo{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		Expiry:       tok.Expiry,
	}, nil
}

// FetchAccountInfo resolves an access token to the provider account that
// owns it, attaching the token as the provider's query parameter.
// Returns ErrInvalidUserInfo when the response is empty, unparseable or
// lacks an account id. That condition indicates a misbehaving provider,
// not a caller error.
func (c *Client) FetchAccountInfo(ctx context.Context, cfg provider.Config, access AccessInfo) (AccountInfo, error) {
	u, err := url.Parse(cfg.UserInfoURL)
	if err != nil {
		return AccountInfo{}, errors.Join(ErrProvider, err)
	}
	q := u.Query()
	q.Set(cfg.TokenParam, access.AccessToken)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return AccountInfo{}, errors.Join(ErrProvider, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return AccountInfo{}, errors.Join(ErrNetwork, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return AccountInfo{}, errors.Join(ErrProvider,
			fmt.Errorf("userinfo request failed: status=%d body=%s", resp.StatusCode, body))
	}

	var raw map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return AccountInfo{}, errors.Join(ErrInvalidUserInfo, err)
	}

	info := parseAccountInfo(raw)
	if info.ExternalID == "" {
		return AccountInfo{}, errors.Join(ErrInvalidUserInfo, errors.New("userinfo response missing account id"))
	}
	return info, nil
}

// parseAccountInfo maps a raw user-info document to AccountInfo.
// Field fallbacks cover the payload shapes of the supported providers:
// some report name, others full_name or username; avatars arrive as
// picture or avatar_url.
func parseAccountInfo(raw map[string]any) AccountInfo {
	return AccountInfo{
		ExternalID:  stringField(raw, "id"),
		DisplayName: firstString(raw, "name", "full_name", "username"),
		AvatarURL:   firstString(raw, "picture", "avatar_url"),
	}
}

func stringField(raw map[string]any, key string) string {
	switch v := raw[key].(type) {
	case string:
		return v
	case float64:
		// JSON numbers decode as float64; provider account ids are integral.
		return strconv.FormatInt(int64(v), 10)
	default:
		return ""
	}
}

func firstString(raw map[string]any, keys ...string) string {
	for _, k := range keys {
		if s, ok := raw[k].(string); ok && s != "" {
			return s
		}
	}
	return ""
}

// classify maps an oauth2 exchange error onto the package taxonomy:
// a response the provider actually produced is a provider rejection,
// anything that never produced a response is a network failure.
func classify(err error) error {
	var rerr *oauth2.RetrieveError
	if errors.As(err, &rerr) {
		return errors.Join(ErrProvider, err)
	}
	var uerr *url.Error
	if errors.As(err, &uerr) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return errors.Join(ErrNetwork, err)
	}
	return errors.Join(ErrProvider, err)
}

// refererTransport stamps a fixed Referer header on every outbound call.
// Providers may allowlist API consumers by referer.
type refererTransport struct {
	next    http.RoundTripper
	referer string
}

func (t *refererTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.referer != "" {
		req = req.Clone(req.Context())
		req.Header.Set("Referer", t.referer)
	}
	next := t.next
	if next == nil {
		next = http.DefaultTransport
	}
	return next.RoundTrip(req)
}
