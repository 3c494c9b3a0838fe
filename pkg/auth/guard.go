package auth

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/boogy/drinks-warden/pkg/autherr"
	"github.com/boogy/drinks-warden/pkg/metrics"
	"github.com/boogy/drinks-warden/pkg/utils"
	"github.com/boogy/drinks-warden/pkg/validator"
	"github.com/go-chi/chi/v5/middleware"
)

// Verifier checks a raw token and returns its claims.
type Verifier interface {
	Validate(ctx context.Context, token string) (*validator.Claims, error)
}

// ProtectedHandlerFunc is an operation that runs only for authorized callers.
type ProtectedHandlerFunc func(w http.ResponseWriter, r *http.Request, claims *validator.Claims)

// Guard authorizes requests against a required permission. It keeps no
// per-request state.
type Guard struct {
	verifier Verifier
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

type GuardOption func(*Guard)

func WithMetrics(m *metrics.Metrics) GuardOption {
	return func(g *Guard) { g.metrics = m }
}

func WithLogger(l *slog.Logger) GuardOption {
	return func(g *Guard) {
		if l != nil {
			g.logger = l
		}
	}
}

func NewGuard(v Verifier, opts ...GuardOption) *Guard {
	g := &Guard{verifier: v, logger: slog.Default()}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Authorize extracts, verifies and checks the token carried by h.
func (g *Guard) Authorize(ctx context.Context, h http.Header, permission string) (*validator.Claims, error) {
	token, err := ExtractBearerToken(h)
	if err != nil {
		return nil, err
	}

	claims, err := g.verifier.Validate(ctx, token)
	if err != nil {
		g.logger.Debug("Token rejected",
			"token", utils.RedactToken(token, 8, 6),
			"requestId", middleware.GetReqID(ctx))
		return nil, err
	}

	if err := CheckPermission(permission, claims); err != nil {
		return nil, err
	}
	return claims, nil
}

// Require wraps next so that it only runs once the caller holds permission.
func (g *Guard) Require(permission string, next ProtectedHandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, err := g.Authorize(r.Context(), r.Header, permission)
		if err != nil {
			g.reject(r, permission, err)
			WriteFailure(w, err)
			return
		}

		g.metrics.ObserveAuth(permission, "allowed")
		g.logger.Info("Request authorized",
			"permission", permission,
			"subject", claims.Subject(),
			"requestId", middleware.GetReqID(r.Context()))

		next(w, r, claims)
	})
}

func (g *Guard) reject(r *http.Request, permission string, err error) {
	outcome := "error"
	level := slog.LevelError
	if f, ok := autherr.As(err); ok {
		outcome = string(f.Reason)
		level = slog.LevelWarn
	}
	g.metrics.ObserveAuth(permission, outcome)
	g.logger.Log(r.Context(), level, "Authorization failed",
		"permission", permission,
		"reason", outcome,
		"error", err.Error(),
		"method", r.Method,
		"path", r.URL.Path,
		"requestId", middleware.GetReqID(r.Context()))
}
