package oauthflow

import (
	"net/http"
	"time"
)

const defaultTimeout = 5 * time.Second

// Option configures the exchange client.
type Option func(*options)

type options struct {
	transport http.RoundTripper
	referer   string
	timeout   time.Duration
}

func defaultOptions() *options {
	return &options{timeout: defaultTimeout}
}

// WithTransport sets a custom transport for provider requests.
// Useful for testing with httptest servers.
func WithTransport(rt http.RoundTripper) Option {
	return func(o *options) {
		o.transport = rt
	}
}

// WithReferer sets the Referer header attached to every provider call.
func WithReferer(referer string) Option {
	return func(o *options) {
		o.referer = referer
	}
}

// WithTimeout bounds each outbound provider call.
// Default: 5 seconds.
func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.timeout = d
		}
	}
}
