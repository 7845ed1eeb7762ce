package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/mernauth/authserver/internal/services"
	"github.com/mernauth/authserver/internal/store"
)

// ResetHandler provides the three-step OTP password-reset endpoints.
type ResetHandler struct {
	authService *services.AuthService
}

// NewResetHandler constructs a ResetHandler with the provided service.
func NewResetHandler(authService *services.AuthService) *ResetHandler {
	return &ResetHandler{authService: authService}
}

// ResetRouter registers the password-reset routes on the given router.
// None of them require a bearer token; the reset session is the gate.
func ResetRouter(r chi.Router, handler *ResetHandler) {
	r.Get("/generateotp", handler.GenerateOtp)
	r.Post("/verifyotp", handler.VerifyOtp)
	r.Put("/resetpassword", handler.ResetPassword)
}

// GenerateOtp opens a reset session for the username and emails a 6-digit
// code. Requesting again invalidates any earlier code.
func (h *ResetHandler) GenerateOtp(w http.ResponseWriter, r *http.Request) {
	username := r.URL.Query().Get("username")

	if err := h.authService.RequestOtp(r.Context(), username); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "user not found")
			return
		}
		respondError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, MessageResponse{Msg: "otp sent successfully"})
}

type VerifyOtpRequest struct {
	Username string `json:"username"`
	Otp      string `json:"otp"`
}

// VerifyOtp checks the submitted code and marks the reset session verified.
func (h *ResetHandler) VerifyOtp(w http.ResponseWriter, r *http.Request) {
	var req VerifyOtpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	if err := h.authService.VerifyOtp(r.Context(), req.Username, req.Otp); err != nil {
		respondError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, MessageResponse{Msg: "otp verified successfully"})
}

type ResetPasswordRequest struct {
	Username        string `json:"username"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

// ResetPassword sets the new password for a verified reset session.
func (h *ResetHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req ResetPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	err := h.authService.ResetPassword(r.Context(), req.Username, req.Password, req.ConfirmPassword)
	if err != nil {
		// An unauthenticated reset attempt is a client error here, unlike
		// the missing-session case on /verifyotp.
		if errors.Is(err, services.ErrNoResetSession) {
			writeError(w, http.StatusBadRequest, "authentication failed")
			return
		}
		respondError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, MessageResponse{Msg: "password reset successfully"})
}
