package httpapi

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/cloudplayer/identity/internal/claimtoken"
)

type tokenResponse struct {
	ID      string `json:"id"`
	Claimed bool   `json:"claimed"`
}

// handleCreateToken issues a fresh claim token for the calling device.
func (h *Handler) handleCreateToken(w http.ResponseWriter, r *http.Request) {
	rec, err := h.cfg.Tokens.Create(r.Context())
	if err != nil {
		h.log.ErrorContext(r.Context(), "create claim token", slog.String("error", err.Error()))
		h.writeError(w, http.StatusServiceUnavailable, "token creation failed")
		return
	}
	h.writeJSON(w, http.StatusCreated, tokenResponse{ID: rec.ID, Claimed: rec.Claimed})
}

// handleClaimToken binds the calling session's identity to the token,
// handing that identity to whichever device redeems it.
func (h *Handler) handleClaimToken(w http.ResponseWriter, r *http.Request) {
	tokenID := chi.URLParam(r, "id")

	err := h.cfg.Tokens.Claim(r.Context(), tokenID, identityFrom(r.Context()))
	switch {
	case errors.Is(err, claimtoken.ErrNotFound):
		h.writeError(w, http.StatusNotFound, "token not found")
	case errors.Is(err, claimtoken.ErrAlreadyClaimed):
		h.writeError(w, http.StatusConflict, "token already claimed")
	case err != nil:
		h.log.ErrorContext(r.Context(), "claim token", slog.String("error", err.Error()))
		h.writeError(w, http.StatusServiceUnavailable, "claim failed")
	default:
		h.writeJSON(w, http.StatusOK, tokenResponse{ID: tokenID, Claimed: true})
	}
}

// handleLookupToken polls a token. Once the token is claimed the
// calling session adopts the claimer's identity and the token is
// consumed; until then the device keeps polling.
func (h *Handler) handleLookupToken(w http.ResponseWriter, r *http.Request) {
	tokenID := chi.URLParam(r, "id")

	rec, err := h.cfg.Tokens.Lookup(r.Context(), tokenID)
	if errors.Is(err, claimtoken.ErrNotFound) {
		h.writeError(w, http.StatusNotFound, "token not found")
		return
	}
	if err != nil {
		h.log.ErrorContext(r.Context(), "lookup claim token", slog.String("error", err.Error()))
		h.writeError(w, http.StatusServiceUnavailable, "lookup failed")
		return
	}

	if rec.Claimed {
		if _, err := h.cfg.Tokens.Redeem(r.Context(), tokenID); err == nil {
			setIdentity(r.Context(), rec.Identity)
		}
	}
	h.writeJSON(w, http.StatusOK, tokenResponse{ID: rec.ID, Claimed: rec.Claimed})
}
