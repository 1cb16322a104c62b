package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/andrew11morozovtwo/bot-accounting/internal/auth"
	"github.com/andrew11morozovtwo/bot-accounting/internal/model"
	"github.com/andrew11morozovtwo/bot-accounting/internal/store"
)

// AuthHandler handles identity endpoints.
type AuthHandler struct {
	DB        *sqlx.DB
	JWTSecret string
}

type elevateRequest struct {
	Password string `json:"password"`
}

type tokenResponse struct {
	Token string      `json:"token"`
	User  *model.User `json:"user"`
}

// Me handles GET /api/me.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	jsonResponse(w, http.StatusOK, CurrentUser(r.Context()))
}

// Logout handles POST /api/auth/logout by revoking the presented token.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())
	if claims == nil || claims.ID == "" {
		jsonError(w, http.StatusBadRequest, "token has no id")
		return
	}

	expiresAt := time.Now().Add(auth.TokenExpiry)
	if claims.ExpiresAt != nil {
		expiresAt = claims.ExpiresAt.Time
	}
	if err := store.RevokeToken(r.Context(), h.DB, claims.ID, expiresAt); err != nil {
		writeError(w, r, err)
		return
	}

	slog.Info("token revoked", "user_id", claims.UserID)
	jsonResponse(w, http.StatusOK, map[string]string{"message": "logged out"})
}

// Elevate handles POST /api/auth/elevate. A user who knows the admin
// password becomes a system administrator, whatever their current role.
func (h *AuthHandler) Elevate(w http.ResponseWriter, r *http.Request) {
	user := CurrentUser(r.Context())

	var req elevateRequest
	if err := decodeJSON(r, &req); err != nil || req.Password == "" {
		jsonError(w, http.StatusBadRequest, "password required")
		return
	}

	hash, ok, err := store.GetSetting(r.Context(), h.DB, store.SettingAdminPasswordHash)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if !ok {
		jsonError(w, http.StatusForbidden, "elevation is disabled")
		return
	}
	if !auth.CheckPassword(hash, req.Password) {
		slog.Warn("elevation failed", "user_id", user.ID, "external_id", user.ExternalID, "remote", r.RemoteAddr)
		jsonError(w, http.StatusForbidden, "wrong password")
		return
	}

	if err := store.UpdateUser(r.Context(), h.DB, user.ID, model.RoleSystemAdmin, model.UserStatusActive); err != nil {
		writeError(w, r, err)
		return
	}
	user, err = store.GetUser(r.Context(), h.DB, user.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	token, err := auth.GenerateToken(h.JWTSecret, user)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to generate token")
		return
	}

	slog.Info("user elevated to system admin", "user_id", user.ID, "name", user.FullName)
	jsonResponse(w, http.StatusOK, tokenResponse{Token: token, User: user})
}
