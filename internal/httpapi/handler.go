// Package httpapi exposes the identity flows over HTTP: the OAuth
// authorize/callback endpoints, the session cookie plumbing, the
// current-user endpoint and the cross-device claim token endpoints.
package httpapi

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/cloudplayer/identity/internal/auth"
	"github.com/cloudplayer/identity/internal/claimtoken"
	"github.com/cloudplayer/identity/pkg/cookie"
	"github.com/cloudplayer/identity/pkg/health"
	"github.com/cloudplayer/identity/pkg/provider"
	"github.com/cloudplayer/identity/pkg/session"
)

// Config wires the handler's collaborators and request-independent
// settings.
type Config struct {
	Log       *slog.Logger
	Providers *provider.Registry
	Linker    *auth.Linker
	Bootstrap *auth.Bootstrap
	Tokens    *claimtoken.Service
	Codec     *session.Codec
	Cookies   *cookie.Manager

	// CookieName is the session cookie's fixed name.
	CookieName string

	// CookieTTL bounds the session cookie's lifetime in the browser.
	CookieTTL time.Duration

	// BaseURL is this service's external URL, used to derive OAuth
	// redirect URIs.
	BaseURL string

	// LandingURL is where the browser ends up after every provider
	// callback, success or not.
	LandingURL string

	// HealthChecks back the readiness endpoint.
	HealthChecks health.Checks
}

// Handler serves the identity HTTP API.
type Handler struct {
	cfg Config
	log *slog.Logger
}

// New creates the HTTP handler.
func New(cfg Config) *Handler {
	log := cfg.Log
	if log == nil {
		log = slog.Default()
	}
	return &Handler{cfg: cfg, log: log}
}

// Router builds the chi router for the full API surface.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/health/live", health.LivenessHandler())
	r.Get("/health/ready", health.ReadinessHandler(h.cfg.HealthChecks, h.log))

	r.Group(func(r chi.Router) {
		r.Use(h.withSession)

		r.Get("/auth/{provider}", h.handleAuth)
		r.Get("/user/me", h.handleCurrentUser)

		r.Post("/token", h.handleCreateToken)
		r.Put("/token/{id}", h.handleClaimToken)
		r.Get("/token/{id}", h.handleLookupToken)
	})

	return r
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.Error("write response", slog.String("error", err.Error()))
	}
}

type errorResponse struct {
	StatusCode int    `json:"status_code"`
	Reason     string `json:"reason"`
}

func (h *Handler) writeError(w http.ResponseWriter, status int, reason string) {
	h.writeJSON(w, status, errorResponse{StatusCode: status, Reason: reason})
}
