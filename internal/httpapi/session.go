package httpapi

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/cloudplayer/identity/pkg/session"
)

type sessionCtxKey struct{}

// sessionState tracks the identity decoded at request start and the
// one the request ends with. The cookie is re-issued only when they
// differ, so read-only requests never refresh the cookie.
type sessionState struct {
	original session.Identity
	current  session.Identity
}

// withSession decodes the session cookie, bootstraps a fresh anonymous
// user when the token is absent or invalid, and writes the cookie back
// just before the first byte of the response when the identity changed.
func (h *Handler) withSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, _ := h.cfg.Cookies.Get(r, h.cfg.CookieName)
		decoded := h.cfg.Codec.Decode(token)

		current := decoded
		if current.Absent() {
			bootstrapped, err := h.cfg.Bootstrap.Bootstrap(r.Context())
			if err != nil {
				h.log.ErrorContext(r.Context(), "bootstrap anonymous user",
					slog.String("error", err.Error()))
				h.writeError(w, http.StatusServiceUnavailable, "session unavailable")
				return
			}
			current = bootstrapped
		}

		st := &sessionState{original: decoded, current: current}
		sw := &sessionWriter{ResponseWriter: w, flush: func(w http.ResponseWriter) {
			h.issueCookie(r.Context(), w, st)
		}}

		ctx := context.WithValue(r.Context(), sessionCtxKey{}, st)
		next.ServeHTTP(sw, r.WithContext(ctx))

		// Handlers that wrote nothing still get their cookie.
		sw.beforeWrite()
	})
}

func (h *Handler) issueCookie(ctx context.Context, w http.ResponseWriter, st *sessionState) {
	if st.current.Equal(st.original) {
		return
	}
	token, err := h.cfg.Codec.Encode(st.current)
	if err != nil {
		h.log.ErrorContext(ctx, "encode session token", slog.String("error", err.Error()))
		return
	}
	h.cfg.Cookies.Set(w, h.cfg.CookieName, token, int(h.cfg.CookieTTL.Seconds()))
}

// identityFrom returns the request's current session identity.
func identityFrom(ctx context.Context) session.Identity {
	if st, ok := ctx.Value(sessionCtxKey{}).(*sessionState); ok {
		return st.current
	}
	return session.Identity{}
}

// setIdentity replaces the request's session identity; the middleware
// re-issues the cookie if it differs from the decoded one.
func setIdentity(ctx context.Context, id session.Identity) {
	if st, ok := ctx.Value(sessionCtxKey{}).(*sessionState); ok {
		st.current = id
	}
}

// sessionWriter defers the cookie write to the moment the first
// response byte goes out, after the handler had its chance to change
// the identity.
type sessionWriter struct {
	http.ResponseWriter
	flush   func(http.ResponseWriter)
	flushed bool
}

func (w *sessionWriter) WriteHeader(code int) {
	w.beforeWrite()
	w.ResponseWriter.WriteHeader(code)
}

func (w *sessionWriter) Write(b []byte) (int, error) {
	w.beforeWrite()
	return w.ResponseWriter.Write(b)
}

func (w *sessionWriter) beforeWrite() {
	if w.flushed {
		return
	}
	w.flushed = true
	w.flush(w.ResponseWriter)
}
