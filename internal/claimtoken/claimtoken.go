// Package claimtoken implements cross-device session adoption: a
// not-yet-identified device creates a short token, an identified
// browser claims it, and the first device redeems it once to adopt the
// claimer's identity. Tokens are short-lived cache entries, never
// durable rows.
package claimtoken

import (
	"context"
	"errors"
	"time"

	"github.com/cloudplayer/identity/pkg/cache"
	"github.com/cloudplayer/identity/pkg/id"
	"github.com/cloudplayer/identity/pkg/session"
)

var (
	// ErrNotFound is returned for unknown or expired tokens.
	ErrNotFound = errors.New("claimtoken: token not found")

	// ErrAlreadyClaimed is returned when claiming a token twice.
	ErrAlreadyClaimed = errors.New("claimtoken: token already claimed")

	// ErrNotClaimed is returned when redeeming a token nobody claimed yet.
	ErrNotClaimed = errors.New("claimtoken: token not claimed yet")
)

// DefaultTTL bounds how long a token stays redeemable. Short enough
// that a token read off a screen cannot be replayed much later.
const DefaultTTL = 10 * time.Minute

// Record is one claim token and, once claimed, the identity it carries.
type Record struct {
	ID       string           `json:"id"`
	Claimed  bool             `json:"claimed"`
	Identity session.Identity `json:"identity"`
}

// Service issues, claims and redeems tokens on top of a TTL cache.
type Service struct {
	cache cache.Cache[Record]
	ttl   time.Duration
}

// New creates a claim token service. A non-positive ttl falls back to
// DefaultTTL.
func New(c cache.Cache[Record], ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Service{cache: c, ttl: ttl}
}

// Create issues a new unclaimed token.
func (s *Service) Create(ctx context.Context) (Record, error) {
	rec := Record{ID: id.NewClaimToken()}
	if err := s.cache.Set(ctx, rec.ID, rec, s.ttl); err != nil {
		return Record{}, err
	}
	return rec, nil
}

// Claim binds an identity to an unclaimed token. The claimed entry is
// rewritten with a fresh TTL window so the redeeming device has the
// full window to poll it back.
func (s *Service) Claim(ctx context.Context, tokenID string, identity session.Identity) error {
	rec, err := s.cache.Get(ctx, tokenID)
	if err != nil {
		if errors.Is(err, cache.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	if rec.Claimed {
		return ErrAlreadyClaimed
	}

	rec.Claimed = true
	rec.Identity = identity
	return s.cache.Set(ctx, tokenID, rec, s.ttl)
}

// Lookup returns the token's current state without consuming it.
// Unclaimed tokens are returned as-is so a device can poll until the
// claim arrives.
func (s *Service) Lookup(ctx context.Context, tokenID string) (Record, error) {
	rec, err := s.cache.Get(ctx, tokenID)
	if err != nil {
		if errors.Is(err, cache.ErrNotFound) {
			return Record{}, ErrNotFound
		}
		return Record{}, err
	}
	return rec, nil
}

// Redeem consumes a claimed token, returning the identity it carries.
// A token redeems at most once; the entry is deleted before returning.
func (s *Service) Redeem(ctx context.Context, tokenID string) (Record, error) {
	rec, err := s.Lookup(ctx, tokenID)
	if err != nil {
		return Record{}, err
	}
	if !rec.Claimed {
		return Record{}, ErrNotClaimed
	}
	if err := s.cache.Delete(ctx, tokenID); err != nil {
		return Record{}, err
	}
	return rec, nil
}
