package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/mernauth/authserver/internal/services"
	"github.com/mernauth/authserver/internal/store"
)

type contextKey string

const contextPrincipalKey contextKey = "principal"

// Principal is the authenticated identity threaded through handlers after
// token verification.
type Principal struct {
	UserID   string
	Username string
}

func withPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, contextPrincipalKey, p)
}

// PrincipalFromContext extracts the authenticated principal set by the
// auth middleware.
func PrincipalFromContext(ctx context.Context) (Principal, error) {
	p, ok := ctx.Value(contextPrincipalKey).(Principal)
	if !ok || p.UserID == "" || p.Username == "" {
		return Principal{}, errors.New("missing principal")
	}
	return p, nil
}

// ErrorResponse is the uniform error body.
type ErrorResponse struct {
	Error string `json:"error"`
}

// ConflictResponse lists registration uniqueness conflicts.
type ConflictResponse struct {
	Errors []string `json:"errors"`
}

// MessageResponse is a bare acknowledgment body.
type MessageResponse struct {
	Msg string `json:"msg"`
}

func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}

// respondError is the terminal error responder: classified errors map to
// their status and body, anything else becomes a generic failure.
func respondError(w http.ResponseWriter, err error) {
	var validation *services.ValidationError
	if errors.As(err, &validation) {
		writeError(w, http.StatusBadRequest, validation.Message)
		return
	}

	var conflict *services.ConflictError
	if errors.As(err, &conflict) {
		writeJSON(w, http.StatusBadRequest, ConflictResponse{Errors: conflict.Reasons})
		return
	}

	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, services.ErrInvalidCredentials):
		writeError(w, http.StatusBadRequest, "username or password wrong")
	case errors.Is(err, services.ErrSessionExpired):
		writeError(w, http.StatusUnauthorized, "session expired")
	case errors.Is(err, services.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, "unauthorized")
	case errors.Is(err, services.ErrNoResetSession):
		writeError(w, http.StatusInternalServerError, "authentication failed")
	case errors.Is(err, services.ErrOtpInvalid), errors.Is(err, services.ErrOtpExpired):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
