package auth

import (
	"net/http"
	"strings"

	"client-registry/internal/httpx"
)

type TokenVerifier interface {
	Verify(raw string, kind TokenKind) (*Claims, error)
}

// Middleware admits requests carrying a valid access token. It never hits
// the database: a token is trusted from issuance until expiry.
//
// A missing token is 401 while a bad one is 403; clients rely on the split.
func Middleware(verifier TokenVerifier, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := strings.TrimSpace(r.Header.Get("Authorization"))
		if header == "" {
			httpx.WriteError(w, http.StatusUnauthorized, "No token provided")
			return
		}

		scheme, token, found := strings.Cut(header, " ")
		if !found || !strings.EqualFold(scheme, "Bearer") {
			httpx.WriteError(w, http.StatusUnauthorized, "Invalid authorization format")
			return
		}

		token = strings.TrimSpace(token)
		if token == "" {
			httpx.WriteError(w, http.StatusUnauthorized, "No token provided")
			return
		}

		claims, err := verifier.Verify(token, AccessToken)
		if err != nil {
			httpx.WriteError(w, http.StatusForbidden, "Invalid or expired token")
			return
		}

		identity := Identity{UserID: claims.Subject, TokenID: claims.ID}
		if claims.ExpiresAt != nil {
			identity.ExpiresAt = claims.ExpiresAt.Time.UTC()
		}

		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity)))
	})
}
