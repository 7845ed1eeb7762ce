package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/mernauth/authserver/internal/services"
	"github.com/mernauth/authserver/internal/storage"
	"github.com/mernauth/authserver/internal/store"
)

const (
	maxAvatarMemory = 8 << 20
	maxAvatarBytes  = 8 << 20
	formFieldAvatar = "avatar"
	dateOnlyLayout  = "2006-01-02"
)

// UserHandler provides the profile endpoints. The avatar store is optional;
// avatar routes are only registered when it is configured.
type UserHandler struct {
	userService *services.UserService
	avatars     *storage.AvatarStore
}

// NewUserHandler constructs a UserHandler with the provided dependencies.
func NewUserHandler(userService *services.UserService, avatars *storage.AvatarStore) *UserHandler {
	return &UserHandler{
		userService: userService,
		avatars:     avatars,
	}
}

// UserRouter registers profile routes on the given router. All routes
// require an authenticated principal.
func UserRouter(r chi.Router, handler *UserHandler) {
	r.Get("/user/{username}", handler.Get)
	r.Put("/updateuser", handler.Update)
	if handler.avatars != nil {
		r.Post("/user/avatar", handler.UploadAvatar)
		r.Get("/user/{username}/avatar", handler.GetAvatar)
	}
}

// Get returns the caller's own user record, without the password hash.
func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	principal, err := PrincipalFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "auth failed")
		return
	}

	username := chi.URLParam(r, "username")
	if username != principal.Username {
		writeError(w, http.StatusBadRequest, "auth failed")
		return
	}

	user, err := h.userService.GetByUsername(r.Context(), username)
	if err != nil {
		respondError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, user)
}

type UpdateUserRequest struct {
	Email       *string `json:"email"`
	DisplayName *string `json:"displayName"`
	DateOfBirth *string `json:"dateOfBirth"`
}

// Update applies a partial update to the caller's own record and echoes an
// acknowledgment, not the record.
func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	principal, err := PrincipalFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "auth failed")
		return
	}

	var req UpdateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	update := services.UserUpdate{
		Email:       req.Email,
		DisplayName: req.DisplayName,
	}
	if req.DateOfBirth != nil {
		dob, err := time.Parse(dateOnlyLayout, *req.DateOfBirth)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid date of birth")
			return
		}
		update.DateOfBirth = &dob
	}

	if err := h.userService.Update(r.Context(), principal.UserID, update); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusBadRequest, "user not found")
			return
		}
		respondError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, MessageResponse{Msg: "user updated successfully"})
}

// UploadAvatar stores the uploaded image and records its key on the
// caller's profile.
func (h *UserHandler) UploadAvatar(w http.ResponseWriter, r *http.Request) {
	principal, err := PrincipalFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "auth failed")
		return
	}

	if err := r.ParseMultipartForm(maxAvatarMemory); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	file, header, err := r.FormFile(formFieldAvatar)
	if err != nil {
		writeError(w, http.StatusBadRequest, "avatar file is required")
		return
	}
	defer file.Close()

	if header.Size > maxAvatarBytes {
		writeError(w, http.StatusBadRequest, "avatar file too large")
		return
	}

	contentType := header.Header.Get("Content-Type")
	key, err := h.avatars.Put(r.Context(), principal.UserID, file, header.Size, contentType)
	if err != nil {
		respondError(w, err)
		return
	}

	if err := h.userService.SetAvatarKey(r.Context(), principal.UserID, key); err != nil {
		respondError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, MessageResponse{Msg: "avatar updated successfully"})
}

// GetAvatar streams the caller's stored avatar.
func (h *UserHandler) GetAvatar(w http.ResponseWriter, r *http.Request) {
	principal, err := PrincipalFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "auth failed")
		return
	}

	username := chi.URLParam(r, "username")
	if username != principal.Username {
		writeError(w, http.StatusBadRequest, "auth failed")
		return
	}

	user, err := h.userService.GetByUsername(r.Context(), username)
	if err != nil {
		respondError(w, err)
		return
	}
	if user.AvatarKey == "" {
		writeError(w, http.StatusNotFound, "avatar not found")
		return
	}

	object, err := h.avatars.Get(r.Context(), user.AvatarKey)
	if err != nil {
		respondError(w, err)
		return
	}
	defer object.Close()

	w.WriteHeader(http.StatusOK)
	_, _ = io.Copy(w, object)
}
