package auth

import (
	"context"
	"net/http"
	"strings"

	casaauth "casa/internal/auth"
)

type contextKey string

const userIDKey contextKey = "user_id"

// TokenValidator validates bearer tokens.
type TokenValidator interface {
	Validate(token string) (*casaauth.Claims, error)
}

// UserID returns the authenticated user ID, or "" outside RequireAuth.
func UserID(ctx context.Context) string {
	userID, _ := ctx.Value(userIDKey).(string)
	return userID
}

// WithUserID returns ctx carrying an authenticated user ID.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// RequireAuth validates the bearer token and stores its user ID in the
// request context. Failures are passed to onError with
// casaauth.ErrMissingToken or casaauth.ErrInvalidToken.
func RequireAuth(validator TokenValidator, onError func(http.ResponseWriter, *http.Request, error)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				onError(w, r, casaauth.ErrMissingToken)
				return
			}
			scheme, token, ok := strings.Cut(header, " ")
			if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
				onError(w, r, casaauth.ErrInvalidToken)
				return
			}
			claims, err := validator.Validate(strings.TrimSpace(token))
			if err != nil {
				onError(w, r, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), claims.UserID)))
		})
	}
}
