package provider

import "errors"

var (
	// ErrUnsupportedProvider is returned by Lookup for unknown provider ids.
	ErrUnsupportedProvider = errors.New("provider: unsupported provider")

	// ErrMissingProviderID is returned when a config has no provider id.
	ErrMissingProviderID = errors.New("provider: missing provider id")

	// ErrReservedProviderID is returned when a config claims the anchor
	// pseudo-provider id.
	ErrReservedProviderID = errors.New("provider: id is reserved for the anchor pseudo-provider")

	// ErrMissingClientKey is returned when the OAuth client key is not provided.
	ErrMissingClientKey = errors.New("provider: missing client key")

	// ErrMissingClientSecret is returned when the OAuth client secret is not provided.
	ErrMissingClientSecret = errors.New("provider: missing client secret")

	// ErrMissingEndpoint is returned when an endpoint URL is not provided.
	ErrMissingEndpoint = errors.New("provider: missing endpoint URL")

	// ErrDuplicateProvider is returned when two configs share a provider id.
	ErrDuplicateProvider = errors.New("provider: duplicate provider id")
)
