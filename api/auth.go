package api

import (
	"context"
	"net/http"

	"github.com/zhiluke001-ux/atag-ot/roster"
)

// Principal identifies the caller. Identity arrives via trusted headers
// set by the fronting proxy; this service does not do its own login.
type Principal struct {
	UserID string
	Role   roster.AccountRole
}

type principalKey struct{}

func principalFrom(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}

// requireUser rejects requests without an identity header.
func requireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID := r.Header.Get("X-User-Id")
		if userID == "" {
			writeError(w, http.StatusUnauthorized, "Missing identity", nil)
			return
		}
		p := Principal{
			UserID: userID,
			Role:   roster.AccountRole(r.Header.Get("X-User-Role")),
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), principalKey{}, p)))
	})
}

// requireAdmin allows only admin principals through.
func requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, ok := principalFrom(r.Context())
		if !ok || p.Role != roster.AccountAdmin {
			writeError(w, http.StatusForbidden, "Admin only", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}
