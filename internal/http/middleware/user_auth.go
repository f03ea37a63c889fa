package middleware

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/namdevyakhya-17/psycare/internal/identity"
)

// userClaims accepts the user id either as "sub" or as the "id" claim issued
// by the account service.
type userClaims struct {
	UserID string `json:"id"`
	jwt.RegisteredClaims
}

func (c userClaims) userID() string {
	if strings.TrimSpace(c.Subject) != "" {
		return c.Subject
	}
	return strings.TrimSpace(c.UserID)
}

// UserJWT verifies an HS256 bearer token and stores the user id in context.
func UserJWT(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if secret == "" {
				writeError(w, http.StatusUnauthorized, "Authentication is not configured")
				return
			}
			auth := r.Header.Get("Authorization")
			if auth == "" || !strings.HasPrefix(auth, "Bearer ") {
				writeError(w, http.StatusUnauthorized, "No token, authorization denied")
				return
			}
			claims := userClaims{}
			token, err := jwt.ParseWithClaims(strings.TrimPrefix(auth, "Bearer "), &claims, func(token *jwt.Token) (any, error) {
				if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, jwt.ErrSignatureInvalid
				}
				return []byte(secret), nil
			})
			if err != nil || !token.Valid || claims.userID() == "" {
				writeError(w, http.StatusUnauthorized, "Token is not valid")
				return
			}
			ctx := identity.WithUserID(r.Context(), claims.userID())
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
