package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/julienschmidt/httprouter"

	apperrors "navette/pkg/errors"
	httputil "navette/pkg/http"
	"navette/pkg/logger"
	"navette/pkg/token"
)

type ctxKey string

const (
	driverIDKey ctxKey = "driver_id"
	isAdminKey  ctxKey = "is_admin"
)

type Middleware struct {
	tokens *token.Manager
	writer *httputil.Writer
	log    *logger.Logger
}

func NewMiddleware(tokens *token.Manager, writer *httputil.Writer, log *logger.Logger) *Middleware {
	return &Middleware{
		tokens: tokens,
		writer: writer,
		log:    log,
	}
}

// RequireDriver admits driver tokens only. The driver id is placed on
// the request context for the handler.
func (m *Middleware) RequireDriver(next httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		claims, err := m.authenticate(r)
		if err != nil {
			_ = m.writer.Error(w, err)
			return
		}

		if claims.IsAdmin {
			_ = m.writer.Error(w, apperrors.Forbidden("Driver credentials required"))
			return
		}

		ctx := context.WithValue(r.Context(), driverIDKey, claims.Subject)
		next(w, r.WithContext(ctx), ps)
	}
}

// RequireAdmin admits tokens carrying the admin claim only.
func (m *Middleware) RequireAdmin(next httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		claims, err := m.authenticate(r)
		if err != nil {
			_ = m.writer.Error(w, err)
			return
		}

		if !claims.IsAdmin {
			_ = m.writer.Error(w, apperrors.Forbidden("Admin credentials required"))
			return
		}

		ctx := context.WithValue(r.Context(), isAdminKey, true)
		next(w, r.WithContext(ctx), ps)
	}
}

// Require admits any valid token, driver or admin.
func (m *Middleware) Require(next httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		claims, err := m.authenticate(r)
		if err != nil {
			_ = m.writer.Error(w, err)
			return
		}

		ctx := r.Context()
		if claims.IsAdmin {
			ctx = context.WithValue(ctx, isAdminKey, true)
		} else {
			ctx = context.WithValue(ctx, driverIDKey, claims.Subject)
		}

		next(w, r.WithContext(ctx), ps)
	}
}

func (m *Middleware) authenticate(r *http.Request) (*token.Claims, error) {
	raw := bearerToken(r)
	if raw == "" {
		return nil, apperrors.Unauthorized("Missing authentication token")
	}

	claims, err := m.tokens.Verify(raw)
	if err != nil {
		m.log.Warn("Token verification failed",
			"path", r.URL.Path,
			"error", err,
		)
		return nil, apperrors.Unauthorized("Invalid or expired token")
	}

	return claims, nil
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}

	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}

	return strings.TrimSpace(parts[1])
}

// DriverID returns the authenticated driver id, or empty for admin or
// unauthenticated contexts.
func DriverID(ctx context.Context) string {
	if id, ok := ctx.Value(driverIDKey).(string); ok {
		return id
	}
	return ""
}

// IsAdmin reports whether the request context carries the admin claim.
func IsAdmin(ctx context.Context) bool {
	admin, ok := ctx.Value(isAdminKey).(bool)
	return ok && admin
}
