package handler

import (
	"context"
	"log/slog"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/boogy/drinks-warden/pkg/auth"
	"github.com/boogy/drinks-warden/pkg/drinks"
	"github.com/boogy/drinks-warden/pkg/metrics"
	"github.com/boogy/drinks-warden/pkg/version"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
)

// Permissions required by the protected routes
const (
	PermGetDrinksDetail = "get:drinks-detail"
	PermPostDrinks      = "post:drinks"
	PermPatchDrinks     = "patch:drinks"
	PermDeleteDrinks    = "delete:drinks"
)

// RouterDeps are the collaborators the HTTP API is built from
type RouterDeps struct {
	Store          *drinks.Store
	Guard          *auth.Guard
	Metrics        *metrics.Metrics // optional
	RequestTimeout time.Duration
}

// NewRouter builds the HTTP API shared by the local server and the Lambda adapters.
func NewRouter(deps RouterDeps) http.Handler {
	timeout := deps.RequestTimeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(recoverer)
	r.Use(deps.Metrics.Middleware)
	r.Use(requestLogger)
	r.Use(middleware.Timeout(timeout))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		respondStatus(w, http.StatusNotFound)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		respondStatus(w, http.StatusMethodNotAllowed)
	})

	h := NewDrinksHandler(deps.Store)
	g := deps.Guard

	r.Get("/drinks", h.List)
	r.Method(http.MethodGet, "/drinks-detail", g.Require(PermGetDrinksDetail, h.Detail))
	r.Method(http.MethodPost, "/drinks", g.Require(PermPostDrinks, h.Create))
	r.Method(http.MethodPatch, "/drinks/{id}", g.Require(PermPatchDrinks, h.Update))
	r.Method(http.MethodDelete, "/drinks/{id}", g.Require(PermDeleteDrinks, h.Delete))

	r.Get("/health", health)
	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", deps.Metrics.Handler())
	}

	return r
}

func health(w http.ResponseWriter, r *http.Request) {
	info := version.Get()
	respondJSON(w, http.StatusOK, HealthResponse{Status: "ok", Version: info.Version, Commit: info.Commit})
}

// requestID reuses a caller supplied UUID or assigns a new one, and makes it
// available through middleware.GetReqID.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.New().String()
		}
		w.Header().Set(RequestIDHeader, id)
		ctx := context.WithValue(r.Context(), middleware.RequestIDKey, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				slog.Error("Panic while serving request",
					slog.String("requestId", middleware.GetReqID(r.Context())),
					slog.Any("panic", rec),
					slog.String("stack", string(debug.Stack())))
				respondStatus(w, http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		slog.Info("Request completed",
			slog.String("requestId", middleware.GetReqID(r.Context())),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("sourceIp", r.RemoteAddr),
			slog.String("userAgent", r.UserAgent()),
			slog.Int("status", ww.Status()),
			slog.Int64("processingMs", time.Since(start).Milliseconds()))
	})
}
