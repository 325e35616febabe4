package middleware

import (
	"context"
	"net/http"
	"strings"

	"tutorlane/backend/internal/auth"
)

type contextKey string

const (
	identityRefKey contextKey = "identity_ref"
	emailKey       contextKey = "email"
)

func IdentityRefFromContext(ctx context.Context) (string, bool) {
	val, ok := ctx.Value(identityRefKey).(string)
	return val, ok
}

func EmailFromContext(ctx context.Context) (string, bool) {
	val, ok := ctx.Value(emailKey).(string)
	return val, ok
}

func AuthMiddleware(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				http.Error(w, "missing Authorization", http.StatusUnauthorized)
				return
			}
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
				http.Error(w, "invalid Authorization", http.StatusUnauthorized)
				return
			}
			claims, err := auth.ParseAccessToken(secret, parts[1])
			if err != nil {
				http.Error(w, "invalid token", http.StatusUnauthorized)
				return
			}
			ctx := context.WithValue(r.Context(), identityRefKey, claims.IdentityRef)
			ctx = context.WithValue(ctx, emailKey, claims.Email)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
