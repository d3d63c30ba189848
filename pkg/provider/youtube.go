package provider

// YoutubeProviderName is the identifier for the YouTube provider.
const YoutubeProviderName = "youtube"

// YoutubeDefaultScopes returns the default scopes for YouTube.
func YoutubeDefaultScopes() []string {
	return []string{
		"profile",
		"email",
		"https://www.googleapis.com/auth/youtube",
	}
}

// Youtube returns the provider config for YouTube (Google OAuth2).
// The offline access type is requested so a refresh token is issued on
// first authorization.
func Youtube(clientKey, clientSecret string) Config {
	return Config{
		ID:           YoutubeProviderName,
		AuthorizeURL: "https://accounts.google.com/o/oauth2/auth",
		TokenURL:     "https://accounts.google.com/o/oauth2/token",
		UserInfoURL:  "https://www.googleapis.com/oauth2/v2/userinfo",
		TokenParam:   "access_token",
		ClientKey:    clientKey,
		ClientSecret: clientSecret,
		Scopes:       YoutubeDefaultScopes(),
		ExtraAuthParams: map[string]string{
			"approval_prompt": "auto",
			"access_type":     "offline",
		},
	}
}
