package middleware

import (
	"net/http"
	"strings"

	"foodhub-be/internal/apperror"
	"foodhub-be/internal/auth"
	"foodhub-be/internal/httpx"
	"foodhub-be/internal/logger"
	"foodhub-be/internal/utils"

	"go.uber.org/zap"
)

// TokenParser verifies access tokens.
type TokenParser interface {
	Parse(token string) (*auth.Claims, error)
}

// Authenticate attaches the caller identity when a token is present.
// Anonymous requests pass through; a present but invalid token is rejected.
func Authenticate(parser TokenParser) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenStr := auth.ExtractAccessToken(r)
			if tokenStr == "" {
				next.ServeHTTP(w, r)
				return
			}

			claims, err := parser.Parse(tokenStr)
			if err != nil {
				logger.FromCtx(r.Context()).Warn("rejected access token", zap.Error(err))
				httpx.RespondError(r.Context(), w, apperror.New(apperror.ErrUnauthorized, "invalid or expired token"))
				return
			}

			userID, _ := claims.Subject()
			ctx := utils.SetUserContext(r.Context(), userID, claims.Email, strings.ToLower(claims.Role))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAuth rejects anonymous requests.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := utils.GetUserIDFromContext(r.Context()); !ok {
			httpx.RespondError(r.Context(), w, apperror.New(apperror.ErrUnauthorized, "authentication required"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAdmin rejects callers without the admin role.
func RequireAdmin(next http.Handler) http.Handler {
	return RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !utils.IsAdmin(r.Context()) {
			httpx.RespondError(r.Context(), w, apperror.New(apperror.ErrForbidden, "admin role required"))
			return
		}
		next.ServeHTTP(w, r)
	}))
}
