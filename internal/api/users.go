package api

import (
	"log/slog"
	"net/http"

	"github.com/jmoiron/sqlx"

	"github.com/andrew11morozovtwo/bot-accounting/internal/model"
	"github.com/andrew11morozovtwo/bot-accounting/internal/store"
)

// UsersHandler handles user management endpoints (system admin only).
type UsersHandler struct {
	DB *sqlx.DB
}

type createUserRequest struct {
	ExternalID int64      `json:"external_id"`
	FullName   string     `json:"full_name"`
	Role       model.Role `json:"role"`
}

type updateUserRequest struct {
	Role   model.Role       `json:"role"`
	Status model.UserStatus `json:"status"`
}

// List handles GET /api/users.
func (h *UsersHandler) List(w http.ResponseWriter, r *http.Request) {
	users, err := store.ListUsers(r.Context(), h.DB)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if users == nil {
		users = []model.User{}
	}
	jsonResponse(w, http.StatusOK, users)
}

// Create handles POST /api/users.
func (h *UsersHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ExternalID == 0 {
		jsonError(w, http.StatusBadRequest, "external_id required")
		return
	}
	if req.Role == "" {
		req.Role = model.RoleUnknown
	}

	user, err := store.CreateUser(r.Context(), h.DB, req.ExternalID, req.FullName, req.Role)
	if err != nil {
		writeError(w, r, err)
		return
	}

	slog.Info("user created", "by", CurrentUser(r.Context()).ID,
		"user_id", user.ID, "external_id", user.ExternalID, "role", user.Role)
	jsonResponse(w, http.StatusCreated, user)
}

// Update handles PUT /api/users/{id}. Empty fields keep their value.
func (h *UsersHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	var req updateUserRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := store.GetUser(r.Context(), h.DB, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if req.Role == "" {
		req.Role = user.Role
	}
	if req.Status == "" {
		req.Status = user.Status
	}
	if err := store.UpdateUser(r.Context(), h.DB, id, req.Role, req.Status); err != nil {
		writeError(w, r, err)
		return
	}
	user, err = store.GetUser(r.Context(), h.DB, id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	slog.Info("user updated", "by", CurrentUser(r.Context()).ID,
		"user_id", user.ID, "role", user.Role, "status", user.Status)
	jsonResponse(w, http.StatusOK, user)
}
