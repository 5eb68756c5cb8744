// Package middleware provides HTTP middleware for authentication and rate
// limiting.
package middleware

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"chartly/internal/domain"
)

// Auth validates a bearer JWT signed with the shared HS256 secret and loads
// the named user with group memberships into the request context. Requests
// without an Authorization header pass through unauthenticated; the
// permission evaluator decides what an anonymous caller may do.
func Auth(secret string, users domain.UserRepository, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				next.ServeHTTP(w, r)
				return
			}

			tokenString := strings.TrimPrefix(header, "Bearer ")
			name, err := validateHS256(tokenString, secret)
			if err != nil {
				writeUnauthorized(w, "invalid token")
				return
			}

			user, err := users.GetByName(r.Context(), name)
			if err != nil {
				logger.Warn("token subject not found", "subject", name, "error", err)
				writeUnauthorized(w, "unknown user")
				return
			}

			next.ServeHTTP(w, r.WithContext(domain.WithUser(r.Context(), user)))
		})
	}
}

// validateHS256 parses and validates a token, returning the subject claim.
func validateHS256(tokenString, secret string) (string, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return "", err
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return "", fmt.Errorf("invalid token claims")
	}
	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return "", fmt.Errorf("token has no subject")
	}
	return sub, nil
}

func writeUnauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{"error": true, "data": msg})
}
