package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/procurehub/procurehub/internal/platform/httpx"
)

type userContextKey struct{}

// ContextWithUser stores the authenticated user in context.
func ContextWithUser(ctx context.Context, user *User) context.Context {
	return context.WithValue(ctx, userContextKey{}, user)
}

// UserFromContext extracts the authenticated user from context.
func UserFromContext(ctx context.Context) *User {
	user, _ := ctx.Value(userContextKey{}).(*User)
	return user
}

// BearerToken returns the token from an "Authorization: Bearer <token>" header.
func BearerToken(r *http.Request) (string, bool) {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// RequireUser gates a handler on a valid bearer token naming an active user.
func (h *Handler) RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := BearerToken(r)
		if !ok {
			h.record("resolve", "missing_token")
			httpx.RespondError(w, ErrNotAuthenticated)
			return
		}
		user, err := h.service.Resolve(r.Context(), token)
		if err != nil {
			h.record("resolve", outcome(err))
			h.respondError(w, err)
			return
		}
		h.record("resolve", "success")
		next.ServeHTTP(w, r.WithContext(ContextWithUser(r.Context(), user)))
	})
}
