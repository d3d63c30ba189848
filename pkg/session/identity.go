package session

import "maps"

// AccountRef points one provider slot at a stored account.
type AccountRef struct {
	ProviderID string
	AccountID  string
}

// Identity is the client-held mapping of provider id to account id,
// plus the owning user id. It is a per-request value derived from the
// signed session token; mutations return a new Identity so the identity
// decoded at request start is never aliased by the one written back.
type Identity struct {
	UserID   string
	Accounts map[string]string
}

// Absent reports whether the identity carries no user at all, i.e. the
// session token was missing, expired or tampered with.
func (id Identity) Absent() bool {
	return id.UserID == ""
}

// Account returns the account id bound to the given provider slot.
func (id Identity) Account(providerID string) (string, bool) {
	accountID, ok := id.Accounts[providerID]
	return accountID, ok
}

// Merge re-derives the full provider map from the authoritative set of a
// user's accounts: the user id is replaced, every existing slot is
// dropped, and one slot is set per given account. Replace semantics
// close the stale-cookie case where a client retains a foreign account
// id under some provider key.
func (id Identity) Merge(userID string, accounts []AccountRef) Identity {
	next := Identity{
		UserID:   userID,
		Accounts: make(map[string]string, len(accounts)),
	}
	for _, a := range accounts {
		next.Accounts[a.ProviderID] = a.AccountID
	}
	return next
}

// WithAccount returns a copy of the identity with a single provider slot
// set, leaving every other slot untouched. Used when a freshly created
// account is the only change to the user's account set.
func (id Identity) WithAccount(providerID, accountID string) Identity {
	next := Identity{
		UserID:   id.UserID,
		Accounts: make(map[string]string, len(id.Accounts)+1),
	}
	maps.Copy(next.Accounts, id.Accounts)
	next.Accounts[providerID] = accountID
	return next
}

// Equal reports whether two identities carry the same user and slots.
// The session cookie is re-issued only when the identity changed.
func (id Identity) Equal(other Identity) bool {
	if id.UserID != other.UserID || len(id.Accounts) != len(other.Accounts) {
		return false
	}
	for p, a := range id.Accounts {
		if other.Accounts[p] != a {
			return false
		}
	}
	return true
}
