package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/markdave123-py/knowledge-assistant/internal/api"
	"github.com/markdave123-py/knowledge-assistant/internal/models"
)

// GatewayService is the only caller allowed on internal routes.
const GatewayService = "api-gateway"

type ctxKey int

const userContextKey ctxKey = iota

// ServiceClaims is the payload of a gateway-issued service token.
type ServiceClaims struct {
	Service     string              `json:"service"`
	UserContext *models.UserContext `json:"user_context,omitempty"`
	jwt.RegisteredClaims
}

// ServiceTokenMiddleware validates the gateway's HS256 bearer token and
// attaches the forwarded user context to the request context. With no
// secret configured every request is refused.
func ServiceTokenMiddleware(secret string) func(http.Handler) http.Handler {
	if secret == "" {
		return func(http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				api.WriteError(w, http.StatusServiceUnavailable, api.CodeUnavailable, "Service token secret not configured", nil)
			})
		}
	}

	key := []byte(secret)
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			auth := r.Header.Get("Authorization")
			if !strings.HasPrefix(auth, "Bearer ") {
				api.WriteError(w, http.StatusUnauthorized, api.CodeUnauthorized, "No token provided", nil)
				return
			}

			tokenStr := strings.TrimPrefix(auth, "Bearer ")
			claims := &ServiceClaims{}
			token, err := parser.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
				return key, nil
			})
			switch {
			case errors.Is(err, jwt.ErrTokenExpired):
				api.WriteError(w, http.StatusUnauthorized, api.CodeTokenExpired, "Service token has expired", nil)
				return
			case err != nil || !token.Valid:
				api.WriteError(w, http.StatusUnauthorized, api.CodeInvalidToken, "Invalid service token", nil)
				return
			}

			if claims.Service != GatewayService {
				api.WriteError(w, http.StatusForbidden, api.CodeForbidden, "Invalid service token", nil)
				return
			}

			ctx := WithUserContext(r.Context(), claims.UserContext)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// WithUserContext stores the caller identity on ctx.
func WithUserContext(ctx context.Context, u *models.UserContext) context.Context {
	return context.WithValue(ctx, userContextKey, u)
}

// UserContextFrom returns the identity forwarded in the service token.
// ok is true whenever a verified token was presented, even one carrying no
// user context; u is then nil and the caller is anonymous.
func UserContextFrom(ctx context.Context) (u *models.UserContext, ok bool) {
	u, ok = ctx.Value(userContextKey).(*models.UserContext)
	return u, ok
}
