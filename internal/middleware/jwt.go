package myMiddleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/masumkhan081/socket-talk/internal/api"
)

// Context keys (exported so other packages can read them).
type contextKey string

const (
	UserKey  contextKey = "user_id"
	EmailKey contextKey = "email"
)

// TokenValidator is what we need from the user service. The interface
// keeps 'middleware' decoupled from 'user'.
type TokenValidator interface {
	ValidateToken(tokenString string) (int64, string, error)
}

// VerificationChecker reports whether a user has confirmed their email.
type VerificationChecker interface {
	IsEmailVerified(ctx context.Context, userID int64) (bool, error)
}

type AuthMiddleware struct {
	validator TokenValidator
}

func NewAuthMiddleware(v TokenValidator) *AuthMiddleware {
	return &AuthMiddleware{validator: v}
}

// Handle rejects the request before any handler logic runs when the bearer
// token is missing, expired, or malformed.
func (am *AuthMiddleware) Handle(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenString := ""

		authHeader := r.Header.Get("Authorization")
		if authHeader != "" {
			parts := strings.Split(authHeader, " ")
			if len(parts) == 2 {
				tokenString = parts[1]
			}
		}

		// Fallback: query param, used by the websocket handshake where
		// browsers cannot set headers.
		if tokenString == "" {
			tokenString = r.URL.Query().Get("token")
		}

		if tokenString == "" {
			api.Fail(w, http.StatusUnauthorized, "Access token required", "No token provided")
			return
		}

		userID, email, err := am.validator.ValidateToken(tokenString)
		if err != nil {
			api.Fail(w, http.StatusUnauthorized, "Invalid token", "Authentication failed")
			return
		}

		ctx := context.WithValue(r.Context(), UserKey, userID)
		ctx = context.WithValue(ctx, EmailKey, email)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireVerified gates a route group on a confirmed email address.
func RequireVerified(checker VerificationChecker) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, ok := r.Context().Value(UserKey).(int64)
			if !ok {
				api.Fail(w, http.StatusUnauthorized, "Access token required", "No token provided")
				return
			}

			verified, err := checker.IsEmailVerified(r.Context(), userID)
			if err != nil {
				api.Internal(w)
				return
			}
			if !verified {
				api.Fail(w, http.StatusForbidden, "Email verification required",
					"Please verify your email address before accessing this resource")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// UserID pulls the authenticated user id out of a request context.
func UserID(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(UserKey).(int64)
	return id, ok
}
