package httpapi

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/cloudplayer/identity/pkg/oauthflow"
	"github.com/cloudplayer/identity/pkg/provider"
)

// handleAuth serves both halves of the OAuth flow on one route, as the
// provider redirects back to the same URL it was launched from: without
// a code parameter it starts the authorize redirect, with one it
// completes the callback.
func (h *Handler) handleAuth(w http.ResponseWriter, r *http.Request) {
	providerID := chi.URLParam(r, "provider")

	if code := r.URL.Query().Get("code"); code != "" {
		h.completeCallback(w, r, providerID, code)
		return
	}
	h.authorizeRedirect(w, r, providerID)
}

func (h *Handler) authorizeRedirect(w http.ResponseWriter, r *http.Request, providerID string) {
	cfg, err := h.cfg.Providers.Lookup(providerID)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "unsupported provider")
		return
	}
	http.Redirect(w, r, cfg.AuthCodeURL(h.redirectURI(providerID), ""), http.StatusFound)
}

// completeCallback drives the linking flow and always sends the browser
// to the landing page. Failures are reported through the structured
// error channel, never rendered to the browser; a client that needs to
// know whether the login took checks the session's provider slot.
func (h *Handler) completeCallback(w http.ResponseWriter, r *http.Request, providerID, code string) {
	ctx := r.Context()

	merged, err := h.cfg.Linker.Complete(ctx, identityFrom(ctx), providerID, code, h.redirectURI(providerID))
	if err != nil {
		h.log.ErrorContext(ctx, "provider callback failed",
			slog.String("provider", providerID),
			slog.Int("status", statusFor(err)),
			slog.String("error", err.Error()))
	} else {
		setIdentity(ctx, merged)
	}

	http.Redirect(w, r, h.cfg.LandingURL, http.StatusFound)
}

func (h *Handler) redirectURI(providerID string) string {
	return h.cfg.BaseURL + "/auth/" + providerID
}

// statusFor maps a linking failure onto the HTTP status recorded with
// it: caller errors, unreachable or rejecting providers, and providers
// returning unusable account data.
func statusFor(err error) int {
	switch {
	case errors.Is(err, provider.ErrUnsupportedProvider):
		return http.StatusBadRequest
	case errors.Is(err, oauthflow.ErrInvalidUserInfo):
		return http.StatusServiceUnavailable
	case errors.Is(err, oauthflow.ErrNetwork):
		return http.StatusBadGateway
	case errors.Is(err, oauthflow.ErrProvider):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
