package auth

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/boogy/drinks-warden/pkg/autherr"
)

// FailureResponse is the JSON body sent when a request is refused.
type FailureResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Error   int    `json:"error"`
}

// WriteFailure renders err. Authorization failures keep their own status and
// message; anything else is reported as an internal error.
func WriteFailure(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	message := "internal server error"

	if f, ok := autherr.As(err); ok {
		status = f.StatusCode
		message = f.Message
		w.Header().Set("WWW-Authenticate", challenge(f))
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(FailureResponse{Success: false, Message: message, Error: status}); err != nil {
		slog.Error("Failed to write failure response", "error", err)
	}
}

func challenge(f *autherr.Failure) string {
	switch f.Reason {
	case autherr.ReasonMissingHeader:
		return `Bearer realm="drinks"`
	case autherr.ReasonMissingPermissionsClaim, autherr.ReasonPermissionDenied:
		return `Bearer realm="drinks", error="insufficient_scope"`
	case autherr.ReasonMalformedHeader:
		return `Bearer realm="drinks", error="invalid_request"`
	default:
		return `Bearer realm="drinks", error="invalid_token"`
	}
}
