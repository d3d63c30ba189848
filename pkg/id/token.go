// Package id generates short, human-typable identifiers.
package id

import (
	"crypto/rand"
)

// Crockford base32 alphabet: no I, L, O, U, so tokens survive being
// read aloud or typed from another screen.
const alphabet = "0123456789ABCDEFGHJKMNPQRSTVWXYZ"

// ClaimTokenLength is the length of cross-device claim tokens.
const ClaimTokenLength = 6

// NewClaimToken generates a random claim token of ClaimTokenLength
// characters.
func NewClaimToken() string {
	return NewToken(ClaimTokenLength)
}

// NewToken generates a random token of n crockford-base32 characters.
func NewToken(n int) string {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand never fails on supported platforms; a broken
		// entropy source is not something to limp past.
		panic("id: crypto/rand unavailable: " + err.Error())
	}
	for i, b := range buf {
		buf[i] = alphabet[int(b)%len(alphabet)]
	}
	return string(buf)
}
