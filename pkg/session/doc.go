// Package session implements the stateless, client-held session
// identity: a signed mapping of provider id to account id used to
// reconstruct "who is this browser" on every request without
// server-side session storage.
//
// An [Identity] is decoded from an HS256 JWT at request start and
// re-encoded at request end only when it changed. Decoding never fails
// into the caller: any invalid token yields the absent identity, which
// the caller turns into a fresh anonymous user.
//
// Identities are immutable values. [Identity.Merge] and
// [Identity.WithAccount] return new identities, so the decoded identity
// and the one written back are never aliases of each other.
package session
