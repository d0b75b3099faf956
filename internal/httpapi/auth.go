package httpapi

import (
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// scanSecretHeader carries the shared secret for unauthenticated hardware
// scanners.
const scanSecretHeader = "X-Scan-Secret"

// Claims carried by dashboard bearer tokens.
type Claims struct {
	jwt.RegisteredClaims
	UserID string
}

// requireAuth admits the request when it presents the hardware shared
// secret or a valid dashboard bearer token.  With neither secret configured
// the surface is open (dev only).
func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.scanSecret == "" && len(s.jwtSecret) == 0 {
			next(w, r)
			return
		}

		if s.scanSecret != "" && r.Header.Get(scanSecretHeader) == s.scanSecret {
			next(w, r)
			return
		}

		if len(s.jwtSecret) > 0 {
			if token, ok := bearerToken(r); ok && s.validToken(token) {
				next(w, r)
				return
			}
		}

		writeError(w, http.StatusUnauthorized, "unauthorized", "missing or invalid credentials")
	}
}

func bearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(h, prefix) {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(h, prefix))
	return token, token != ""
}

func (s *Server) validToken(tokenString string) bool {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return s.jwtSecret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return false
	}
	return token.Valid
}
