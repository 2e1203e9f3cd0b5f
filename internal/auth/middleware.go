package auth

import (
	"context"
	"net/http"
)

type contextKey string

var userCtxKey = contextKey("user_id")

// OptionalAuth stores the session's user id in the request context when the
// token is valid and passes every request through.
func (a *Authenticator) OptionalAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id := a.UserIDFromRequest(r); id > 0 {
			r = r.WithContext(WithUserID(r.Context(), id))
		}
		next.ServeHTTP(w, r)
	})
}

func WithUserID(ctx context.Context, id int64) context.Context {
	return context.WithValue(ctx, userCtxKey, id)
}

// UserIDFromContext returns the id stored by OptionalAuth, or 0.
func UserIDFromContext(ctx context.Context) int64 {
	id, _ := ctx.Value(userCtxKey).(int64)
	return id
}
