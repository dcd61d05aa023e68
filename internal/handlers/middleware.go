package handlers

import (
	"context"
	"net/http"
	"strings"

	"gitlab.com/fbworkers.net/internal/core/ports/primary"
	"gitlab.com/fbworkers.net/internal/domain"
)

const signingMethod = "HS256"

type contextKey string

const authPayloadKey contextKey = "authPayload"

type MiddlewareProvider struct {
	jwt    primary.JWTService
	logger primary.Logger
}

func New(jwt primary.JWTService, logger primary.Logger) *MiddlewareProvider {
	return &MiddlewareProvider{
		jwt:    jwt,
		logger: logger,
	}
}

// AuthPayloadFrom returns the claims stored by JWTMiddleware.
func AuthPayloadFrom(ctx context.Context) (domain.AuthPayload, bool) {
	payload, ok := ctx.Value(authPayloadKey).(domain.AuthPayload)
	return payload, ok
}

// JWTMiddleware accepts HMAC bearer tokens that carry permission.
func (m *MiddlewareProvider) JWTMiddleware(permission string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				ResponseError(w, "Authorization header missing", http.StatusUnauthorized)
				return
			}

			tokenString := strings.TrimPrefix(authHeader, "Bearer ")
			valid, err := m.jwt.VerifyTokenHMAC(r.Context(), tokenString, signingMethod)
			if err != nil || !valid {
				m.logger.Debug("Rejected token", "path", r.URL.Path, "error", err)
				ResponseError(w, "Invalid token", http.StatusUnauthorized)
				return
			}

			payload, err := m.jwt.DecodeTokenPayload(r.Context(), tokenString)
			if err != nil {
				ResponseError(w, "Invalid token", http.StatusUnauthorized)
				return
			}
			if !payload.Has(permission) {
				m.logger.Warn("Token lacks permission", "user", payload.Username, "permission", permission)
				ResponseError(w, "Forbidden", http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), authPayloadKey, payload)))
		})
	}
}
