package session

import (
	"context"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/ProConnect-Lab/proconnect-backend/internal/httpx"
	"github.com/ProConnect-Lab/proconnect-backend/internal/session/entity"
	userentity "github.com/ProConnect-Lab/proconnect-backend/internal/user/entity"
)

type ctxKey struct{}

// WithPrincipal attaches p to ctx.
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, ctxKey{}, p)
}

// FromContext returns the principal set by RequireToken.
func FromContext(ctx context.Context) (*Principal, bool) {
	p, ok := ctx.Value(ctxKey{}).(*Principal)
	return p, ok && p != nil
}

// BearerToken extracts the credential from an `Authorization: Bearer` header.
func BearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if len(auth) < len("bearer ") || !strings.EqualFold(auth[:len("bearer ")], "bearer ") {
		return ""
	}
	return strings.TrimSpace(auth[len("bearer "):])
}

// Middleware guards routes with token and admin checks.
type Middleware struct {
	svc    *Service
	logger *zap.SugaredLogger
}

func NewMiddleware(svc *Service, logger *zap.SugaredLogger) *Middleware {
	return &Middleware{svc: svc, logger: logger}
}

// RequireToken rejects requests without a resolvable bearer token.
func (m *Middleware) RequireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := BearerToken(r)
		if raw == "" {
			httpx.Message(w, http.StatusUnauthorized, "Unauthenticated.")
			return
		}
		p, ok := m.svc.Resolve(r.Context(), raw)
		if !ok {
			httpx.Message(w, http.StatusUnauthorized, "Unauthenticated.")
			return
		}
		next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), p)))
	})
}

// RequireAdmin must run after RequireToken. A non-admin user gets 401, an
// admin holding a token without the admin capability gets 403.
func (m *Middleware) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, ok := FromContext(r.Context())
		if !ok {
			httpx.Message(w, http.StatusUnauthorized, "Unauthenticated.")
			return
		}
		if p.User.Role != userentity.RoleAdmin {
			httpx.Message(w, http.StatusUnauthorized, "Administrator required.")
			return
		}
		if !p.Token.Can(entity.CapabilityAdmin) {
			m.logger.Debugw("admin token without capability", "user_id", p.User.ID, "token", p.Token.ID)
			httpx.Message(w, http.StatusForbidden, "This token does not have the required permissions.")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Member wraps h with RequireToken.
func (m *Middleware) Member(h http.HandlerFunc) http.Handler {
	return m.RequireToken(h)
}

// Admin wraps h with RequireToken then RequireAdmin.
func (m *Middleware) Admin(h http.HandlerFunc) http.Handler {
	return m.RequireToken(m.RequireAdmin(h))
}
