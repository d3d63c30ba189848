package provider

// SoundcloudProviderName is the identifier for the SoundCloud provider.
const SoundcloudProviderName = "soundcloud"

// Soundcloud returns the provider config for SoundCloud.
// SoundCloud attaches the access token as oauth_token on user-info calls
// and requires no explicit scopes.
func Soundcloud(clientKey, clientSecret string) Config {
	return Config{
		ID:           SoundcloudProviderName,
		AuthorizeURL: "https://soundcloud.com/connect",
		TokenURL:     "https://api.soundcloud.com/oauth2/token",
		UserInfoURL:  "https://api.soundcloud.com/me",
		TokenParam:   "oauth_token",
		ClientKey:    clientKey,
		ClientSecret: clientSecret,
	}
}
