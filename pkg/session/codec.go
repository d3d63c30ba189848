package session

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Codec signs identities into session tokens and verifies them back.
// Tokens are HS256 JWTs; the signing secret is process-wide and loaded
// once at startup. Rotating the secret invalidates every outstanding
// session token.
type Codec struct {
	secret []byte
	ttl    time.Duration
}

// claims is the JWT payload carried by the session token.
type claims struct {
	UserID   string            `json:"user_id"`
	Accounts map[string]string `json:"accounts"`
	jwt.RegisteredClaims
}

// NewCodec creates a codec with the given signing secret and token
// lifetime. The secret must be at least 32 bytes.
func NewCodec(secret string, ttl time.Duration) (*Codec, error) {
	if secret == "" {
		return nil, ErrNoSecret
	}
	if len(secret) < 32 {
		return nil, ErrWeakSecret
	}
	if ttl <= 0 {
		return nil, ErrInvalidTTL
	}
	return &Codec{secret: []byte(secret), ttl: ttl}, nil
}

// Encode signs the identity into a session token.
func (c *Codec) Encode(id Identity) (string, error) {
	now := time.Now()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		UserID:   id.UserID,
		Accounts: id.Accounts,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.ttl)),
		},
	})
	return tok.SignedString(c.secret)
}

// Decode verifies a session token and returns the identity it carries.
// A missing, expired, malformed or tampered token yields the absent
// identity, never an error: the caller bootstraps a fresh anonymous
// user in that case. A bad signature must not surface as a different
// user's identity.
func (c *Codec) Decode(token string) Identity {
	if token == "" {
		return Identity{}
	}

	var cl claims
	parsed, err := jwt.ParseWithClaims(token, &cl,
		func(*jwt.Token) (any, error) { return c.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	)
	if err != nil || !parsed.Valid {
		return Identity{}
	}

	return Identity{UserID: cl.UserID, Accounts: cl.Accounts}
}
