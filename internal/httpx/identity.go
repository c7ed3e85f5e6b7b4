package httpx

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

// Caller identity arrives from the auth gateway in trusted headers; this
// service never parses bearer tokens itself.
const (
	HeaderUserID = "X-User-Id"
	HeaderRole   = "X-User-Role"

	RoleAdmin = "ADMIN"
)

type ctxKey int

const (
	ctxKeyUserID ctxKey = iota
	ctxKeyRole
)

// Identity rejects requests without a parseable user id and stashes the
// caller in the request context.
func Identity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(r.Header.Get(HeaderUserID))
		if err != nil {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "missing or malformed " + HeaderUserID})
			return
		}
		ctx := context.WithValue(r.Context(), ctxKeyUserID, id)
		ctx = context.WithValue(ctx, ctxKeyRole, r.Header.Get(HeaderRole))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireAdmin gates the admin subtree.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if role, _ := r.Context().Value(ctxKeyRole).(string); role != RoleAdmin {
			writeJSON(w, http.StatusForbidden, map[string]string{"error": "admin role required"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func userID(r *http.Request) uuid.UUID {
	id, _ := r.Context().Value(ctxKeyUserID).(uuid.UUID)
	return id
}
