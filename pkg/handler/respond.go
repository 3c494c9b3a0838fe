package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/boogy/drinks-warden/pkg/drinks"
	"github.com/go-chi/chi/v5/middleware"
)

func respondJSON(w http.ResponseWriter, status int, v any) {
	for k, val := range ResponseHeaders {
		w.Header().Set(k, val)
	}
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

// respondError maps err to a status code and writes the error body.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, ErrInvalidJSON), errors.Is(err, ErrBodyTooLarge):
		status = http.StatusBadRequest
	case errors.Is(err, ErrInvalidID), errors.Is(err, drinks.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, drinks.ErrInvalid), errors.Is(err, drinks.ErrDuplicateTitle):
		status = http.StatusUnprocessableEntity
	}

	level := slog.LevelWarn
	if status >= 500 {
		level = slog.LevelError
	}
	slog.Log(r.Context(), level, "Request error",
		slog.String("requestId", middleware.GetReqID(r.Context())),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.Int("status", status),
		slog.String("error", err.Error()))

	respondStatus(w, status)
}

func respondStatus(w http.ResponseWriter, status int) {
	respondJSON(w, status, ErrorResponse{Success: false, Error: status, Message: statusMessages[status]})
}
