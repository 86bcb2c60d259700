// Package auth provides bearer-token authentication middleware.
//
// Tokens are HMAC-signed JWTs issued by the account service; this middleware
// only verifies the signature and extracts the subject user ID into the
// request context. Token issuance lives elsewhere.
package auth

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	dErrors "amora/pkg/domain-errors"
	"amora/pkg/platform/httputil"
	"amora/pkg/requestcontext"

	id "amora/pkg/domain"
)

// RequireUser verifies the Authorization bearer token and injects the user ID
// into the request context. Requests without a valid token are rejected with
// 401 before reaching handlers.
func RequireUser(signingKey string, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, err := userFromRequest(r, signingKey)
			if err != nil {
				if logger != nil {
					logger.InfoContext(r.Context(), "request authentication failed", "error", err)
				}
				httputil.WriteError(w, err)
				return
			}
			ctx := requestcontext.WithUserID(r.Context(), userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func userFromRequest(r *http.Request, signingKey string) (id.UserID, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return id.UserID{}, dErrors.New(dErrors.CodeUnauthorized, "authorization header is required")
	}
	raw, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return id.UserID{}, dErrors.New(dErrors.CodeUnauthorized, "authorization header must use the Bearer scheme")
	}

	claims := jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "unexpected token signing method")
		}
		return []byte(signingKey), nil
	})
	if err != nil || !token.Valid {
		return id.UserID{}, dErrors.New(dErrors.CodeUnauthorized, "invalid or expired token")
	}

	userID, err := id.ParseUserID(claims.Subject)
	if err != nil {
		return id.UserID{}, dErrors.New(dErrors.CodeUnauthorized, "token subject is not a valid user id")
	}
	return userID, nil
}
