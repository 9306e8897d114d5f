package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"go-school-portal/internal/metrics"
	"go-school-portal/internal/model"
	"go-school-portal/pkg/apierror"
)

type tokenValidator interface {
	ValidateToken(tokenString string) (*model.SessionClaims, error)
}

type contextKey string

const sessionClaimsContextKey contextKey = "session_claims"

// Guard rejection reasons, used as the metrics label.
const (
	reasonMissingHeader = "missing_header"
	reasonExpired       = "expired"
	reasonInvalid       = "invalid"
	reasonForbidden     = "forbidden"
)

type AuthMiddleware struct {
	validator tokenValidator
	metrics   *metrics.Metrics
}

func NewAuthMiddleware(validator tokenValidator, m *metrics.Metrics) *AuthMiddleware {
	return &AuthMiddleware{validator: validator, metrics: m}
}

// RequireAuth admits a request only when it carries a valid, unexpired
// "Authorization: Bearer <token>" header.
func (m *AuthMiddleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r.Header.Get("Authorization"))
		if !ok {
			m.reject(w, r, reasonMissingHeader, http.StatusForbidden, apierror.CodeAuthorizationRequired, "authorization required")
			return
		}

		claims, err := m.validator.ValidateToken(token)
		switch {
		case errors.Is(err, model.ErrExpiredToken):
			m.reject(w, r, reasonExpired, http.StatusUnauthorized, apierror.CodeTokenExpired, apierror.MessageTokenExpired)
			return
		case err != nil:
			m.reject(w, r, reasonInvalid, http.StatusForbidden, apierror.CodeInvalidToken, "invalid token")
			return
		}

		ctx := context.WithValue(r.Context(), sessionClaimsContextKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (m *AuthMiddleware) RequireRoles(allowedRoles ...string) func(http.Handler) http.Handler {
	roleSet := map[string]struct{}{}
	for _, role := range allowedRoles {
		roleSet[strings.ToLower(strings.TrimSpace(role))] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := ClaimsFromContext(r.Context())
			if !ok {
				m.reject(w, r, reasonMissingHeader, http.StatusForbidden, apierror.CodeAuthorizationRequired, "authorization required")
				return
			}

			if _, exists := roleSet[strings.ToLower(claims.Role)]; !exists {
				m.reject(w, r, reasonForbidden, http.StatusForbidden, apierror.CodeForbidden, "insufficient permissions")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RequireEntity rejects sessions issued by a registry other than the one in the {entity} route parameter.
func (m *AuthMiddleware) RequireEntity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := ClaimsFromContext(r.Context())
		if !ok {
			m.reject(w, r, reasonMissingHeader, http.StatusForbidden, apierror.CodeAuthorizationRequired, "authorization required")
			return
		}

		if claims.Entity != chi.URLParam(r, "entity") {
			m.reject(w, r, reasonForbidden, http.StatusForbidden, apierror.CodeForbidden, "session belongs to another registry")
			return
		}

		next.ServeHTTP(w, r)
	})
}

func ClaimsFromContext(ctx context.Context) (*model.SessionClaims, bool) {
	claims, ok := ctx.Value(sessionClaimsContextKey).(*model.SessionClaims)
	return claims, ok && claims != nil
}

// WithClaims attaches claims to ctx the same way RequireAuth does.
func WithClaims(ctx context.Context, claims *model.SessionClaims) context.Context {
	return context.WithValue(ctx, sessionClaimsContextKey, claims)
}

func bearerToken(header string) (string, bool) {
	fields := strings.Fields(header)
	if len(fields) != 2 || !strings.EqualFold(fields[0], "Bearer") {
		return "", false
	}
	return fields[1], true
}

func (m *AuthMiddleware) reject(w http.ResponseWriter, r *http.Request, reason string, status int, code string, message string) {
	m.metrics.GuardRejection(reason)
	slog.Debug("request rejected by guard", "request_id", RequestIDFromContext(r.Context()), "path", r.URL.Path, "reason", reason)
	writeJSONError(w, status, code, message)
}
