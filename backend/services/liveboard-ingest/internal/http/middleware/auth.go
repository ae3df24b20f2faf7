package middleware

import (
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

// Trigger credentials may be sent in a header or, for schedulers that cannot set
// headers, in the query string.
const (
	FunctionKeyHeader = "x-functions-key"
	FunctionKeyQuery  = "code"
)

// KeyAuthMiddleware accepts requests whose function key matches the bcrypt hash.
func KeyAuthMiddleware(keyHash string) func(http.Handler) http.Handler {
	hash := []byte(strings.TrimSpace(keyHash))
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get(FunctionKeyHeader)
			if key == "" {
				key = r.URL.Query().Get(FunctionKeyQuery)
			}
			if key == "" {
				http.Error(w, "missing function key", http.StatusUnauthorized)
				return
			}
			if err := bcrypt.CompareHashAndPassword(hash, []byte(key)); err != nil {
				http.Error(w, "invalid function key", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// JWTAuthMiddleware validates HMAC-signed bearer tokens.
func JWTAuthMiddleware(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				http.Error(w, "missing authorization header", http.StatusUnauthorized)
				return
			}
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				http.Error(w, "invalid authorization header", http.StatusUnauthorized)
				return
			}
			token, err := jwt.Parse(strings.TrimSpace(parts[1]), func(token *jwt.Token) (interface{}, error) {
				if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, jwt.ErrTokenUnverifiable
				}
				return []byte(secret), nil
			})
			if err != nil || !token.Valid {
				http.Error(w, "invalid token", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// TriggerAuth picks the middleware for mode. Anonymous mode returns nil.
func TriggerAuth(mode, keyHash, jwtSecret string) func(http.Handler) http.Handler {
	switch mode {
	case "key":
		return KeyAuthMiddleware(keyHash)
	case "jwt":
		return JWTAuthMiddleware(jwtSecret)
	default:
		return nil
	}
}
