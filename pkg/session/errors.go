package session

import "errors"

var (
	// ErrNoSecret is returned when the signing secret is not provided.
	ErrNoSecret = errors.New("session: signing secret required")

	// ErrWeakSecret is returned when the signing secret is shorter than 32 bytes.
	ErrWeakSecret = errors.New("session: signing secret must be 32+ bytes")

	// ErrInvalidTTL is returned when the token lifetime is not positive.
	ErrInvalidTTL = errors.New("session: token lifetime must be positive")
)
