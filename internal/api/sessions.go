package api

import (
	"net/http"

	"github.com/andrew11morozovtwo/bot-accounting/internal/session"
)

// SessionsHandler exposes the conversational forms to a chat adapter.
// Every call acts on the current user's single session.
type SessionsHandler struct {
	Engine *session.Engine
}

type startSessionRequest struct {
	Flow session.Flow `json:"flow"`
}

// Start handles POST /api/session.
func (h *SessionsHandler) Start(w http.ResponseWriter, r *http.Request) {
	var req startSessionRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	s, err := h.Engine.Start(r.Context(), CurrentUser(r.Context()).ID, req.Flow)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusCreated, s)
}

// Get handles GET /api/session.
func (h *SessionsHandler) Get(w http.ResponseWriter, r *http.Request) {
	s, err := h.Engine.Current(r.Context(), CurrentUser(r.Context()).ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, s)
}

// Input handles POST /api/session/input. Rejected input comes back as an
// error; the session stays where it was.
func (h *SessionsHandler) Input(w http.ResponseWriter, r *http.Request) {
	var in session.Input
	if err := decodeJSON(r, &in); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	s, err := h.Engine.Advance(r.Context(), CurrentUser(r.Context()).ID, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, s)
}

// Confirm handles POST /api/session/confirm.
func (h *SessionsHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	out, err := h.Engine.Confirm(r.Context(), CurrentUser(r.Context()).ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, out)
}

// Cancel handles DELETE /api/session.
func (h *SessionsHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	if err := h.Engine.Cancel(r.Context(), CurrentUser(r.Context()).ID); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
