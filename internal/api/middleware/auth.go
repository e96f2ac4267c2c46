package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/cloo-solutions/plotsearch/internal/api"
	"github.com/cloo-solutions/plotsearch/internal/authclient"
	"github.com/cloo-solutions/plotsearch/internal/domain"
)

type contextKey string

const claimsKey contextKey = "claims"

// TokenValidator resolves a bearer token to the caller's claims.
type TokenValidator interface {
	ValidateToken(ctx context.Context, token string) (*authclient.Claims, error)
}

// UserAuth requires a valid bearer token. A nil validator means no auth
// service is configured and every request is refused with 503.
func UserAuth(validator TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if validator == nil {
				api.Error(w, http.StatusServiceUnavailable, "authentication is not configured")
				return
			}

			header := r.Header.Get("Authorization")
			if header == "" {
				api.Error(w, http.StatusUnauthorized, "missing authorization header")
				return
			}
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || strings.TrimSpace(token) == "" {
				api.Error(w, http.StatusUnauthorized, "invalid authorization format")
				return
			}

			claims, err := validator.ValidateToken(r.Context(), strings.TrimSpace(token))
			if err != nil {
				if domain.IsInfrastructure(err) {
					api.HandleError(w, r, err)
					return
				}
				api.Error(w, http.StatusUnauthorized, "invalid token")
				return
			}

			if s := stateFrom(r.Context()); s != nil {
				s.userID = claims.UserID
			}
			ctx := context.WithValue(r.Context(), claimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetClaims returns the authenticated caller, or nil.
func GetClaims(ctx context.Context) *authclient.Claims {
	c, _ := ctx.Value(claimsKey).(*authclient.Claims)
	return c
}

// GetUserID returns the authenticated user id, or "".
func GetUserID(ctx context.Context) string {
	if c := GetClaims(ctx); c != nil {
		return c.UserID
	}
	return ""
}

// WithUserID returns ctx carrying claims for userID. Handlers mounted
// outside UserAuth, and tests, use it.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, claimsKey, &authclient.Claims{UserID: userID})
}
