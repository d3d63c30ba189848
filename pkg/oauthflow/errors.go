package oauthflow

import "errors"

var (
	// ErrNetwork is returned when a provider could not be reached at all:
	// transport failures, timeouts and cancelled contexts.
	ErrNetwork = errors.New("oauthflow: provider unreachable")

	// ErrProvider is returned when a provider responded but rejected the
	// request or produced an unusable token response.
	ErrProvider = errors.New("oauthflow: provider rejected request")

	// ErrInvalidUserInfo is returned when a provider accepted the access
	// token but returned an empty or unusable user-info document.
	ErrInvalidUserInfo = errors.New("oauthflow: invalid user info")
)
