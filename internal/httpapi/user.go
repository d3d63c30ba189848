package httpapi

import "net/http"

type currentUserResponse struct {
	UserID   string            `json:"user_id"`
	Accounts map[string]string `json:"accounts"`
}

// handleCurrentUser returns the session's user id and provider slots.
func (h *Handler) handleCurrentUser(w http.ResponseWriter, r *http.Request) {
	ident := identityFrom(r.Context())
	h.writeJSON(w, http.StatusOK, currentUserResponse{
		UserID:   ident.UserID,
		Accounts: ident.Accounts,
	})
}
