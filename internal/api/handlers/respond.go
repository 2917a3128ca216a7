package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/hugh/salespulse/internal/api/dto"
	"github.com/hugh/salespulse/internal/apperr"
	"github.com/hugh/salespulse/internal/auth"
)

const maxBodyBytes = 1 << 20

// Responder maps service errors to HTTP statuses. Internal error detail
// is only exposed when exposeErrors is set.
type Responder struct {
	logger       *slog.Logger
	exposeErrors bool
}

func NewResponder(logger *slog.Logger, exposeErrors bool) *Responder {
	return &Responder{logger: logger, exposeErrors: exposeErrors}
}

func (rs *Responder) Error(w http.ResponseWriter, r *http.Request, err error) {
	var verr *apperr.ValidationError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: verr.Message, Details: verr.Fields})
	case errors.Is(err, auth.ErrUserNotFound):
		writeJSON(w, http.StatusNotFound, dto.ErrorResponse{Error: "User not found"})
	case errors.Is(err, apperr.ErrNotFound):
		writeJSON(w, http.StatusNotFound, dto.ErrorResponse{Error: publicMessage(err, "Not found")})
	case errors.Is(err, apperr.ErrForbidden):
		writeJSON(w, http.StatusForbidden, dto.ErrorResponse{Error: "Forbidden"})
	case errors.Is(err, apperr.ErrConflict):
		writeJSON(w, http.StatusConflict, dto.ErrorResponse{Error: publicMessage(err, "Conflict")})
	case errors.Is(err, auth.ErrUserExists):
		writeJSON(w, http.StatusConflict, dto.ErrorResponse{Error: "User already exists"})
	default:
		rs.logger.Error("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"error", err,
		)
		resp := dto.ErrorResponse{Error: "Internal server error"}
		if rs.exposeErrors {
			resp.Details = map[string]string{"error": err.Error()}
		}
		writeJSON(w, http.StatusInternalServerError, resp)
	}
}

// decode reads a JSON body into v and runs its Validate method. It writes
// the 400 itself and reports false when the request should stop.
func decode(w http.ResponseWriter, r *http.Request, v interface{ Validate() map[string]string }) bool {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid request body"})
		return false
	}
	if errs := v.Validate(); len(errs) > 0 {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Validation failed", Details: errs})
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// publicMessage is the apperr message of err, or fallback when err carries
// none. Wrapped detail never reaches the client.
func publicMessage(err error, fallback string) string {
	if msg := apperr.Message(err); msg != "" {
		return capitalize(msg)
	}
	return fallback
}

func capitalize(s string) string {
	if s == "" || s[0] < 'a' || s[0] > 'z' {
		return s
	}
	return string(s[0]-'a'+'A') + s[1:]
}
