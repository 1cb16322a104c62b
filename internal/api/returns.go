package api

import (
	"fmt"
	"log/slog"
	"mime"
	"net/http"

	"github.com/andrew11morozovtwo/bot-accounting/internal/custody"
	"github.com/andrew11morozovtwo/bot-accounting/internal/imaging"
	"github.com/andrew11morozovtwo/bot-accounting/internal/model"
	"github.com/andrew11morozovtwo/bot-accounting/internal/store"
)

// ReturnsHandler handles return requests and their approval.
type ReturnsHandler struct {
	Custody *custody.Service
}

type returnRequest struct {
	AssetID int64 `json:"asset_id"`
	Qty     int   `json:"qty"`
}

type approveRequest struct {
	Photo string `json:"photo"`
}

// Request handles POST /api/returns.
func (h *ReturnsHandler) Request(w http.ResponseWriter, r *http.Request) {
	var req returnRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	pr, err := h.Custody.RequestReturn(r.Context(), req.AssetID, req.Qty, CurrentUser(r.Context()).ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusCreated, pr)
}

// List handles GET /api/returns?status=. Approvers see every request,
// everyone else only their own.
func (h *ReturnsHandler) List(w http.ResponseWriter, r *http.Request) {
	status := model.ReturnStatus(r.URL.Query().Get("status"))
	switch status {
	case "", model.ReturnPending, model.ReturnApproved, model.ReturnRejected:
	default:
		jsonError(w, http.StatusBadRequest, "invalid status")
		return
	}

	var from int64
	if user := CurrentUser(r.Context()); !model.CanApproveReturns(user) {
		from = user.ID
	}

	returns, err := store.ListPendingReturns(r.Context(), h.Custody.DB(), status, from)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if returns == nil {
		returns = []model.PendingReturn{}
	}
	jsonResponse(w, http.StatusOK, returns)
}

// Approve handles POST /api/returns/{id}/approve. The photo is either a
// reference in a JSON body or an image uploaded as the "photo" field of a
// multipart form. An uploaded image is normalised here and stored by the
// approval itself.
func (h *ReturnsHandler) Approve(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid return id")
		return
	}

	var (
		op  *model.Operation
		err error
	)
	user := CurrentUser(r.Context())
	if mt, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type")); mt == "multipart/form-data" {
		// Only approvers get their uploads decoded.
		if !model.CanApproveReturns(user) {
			writeError(w, r, fmt.Errorf("user %d cannot approve returns: %w", user.ID, model.ErrUnauthorized))
			return
		}
		upload, ok := readUpload(w, r)
		if !ok {
			return
		}
		op, err = h.Custody.ApproveReturnWithUpload(r.Context(), id, user.ID, upload)
	} else {
		var req approveRequest
		if r.ContentLength != 0 {
			if err := decodeJSON(r, &req); err != nil {
				jsonError(w, http.StatusBadRequest, "invalid request body")
				return
			}
		}
		op, err = h.Custody.ApproveReturn(r.Context(), id, user.ID, req.Photo)
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, op)
}

func readUpload(w http.ResponseWriter, r *http.Request) (custody.Upload, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, imaging.MaxUploadBytes+1<<20)
	if err := r.ParseMultipartForm(imaging.MaxUploadBytes); err != nil {
		jsonError(w, http.StatusBadRequest, "file too large or invalid multipart form")
		return custody.Upload{}, false
	}
	file, _, err := r.FormFile("photo")
	if err != nil {
		jsonError(w, http.StatusBadRequest, "photo file required")
		return custody.Upload{}, false
	}
	defer file.Close()

	p, err := imaging.Normalize(file)
	if err != nil {
		writeError(w, r, err)
		return custody.Upload{}, false
	}

	slog.Debug("return photo normalised", "width", p.Width, "height", p.Height, "bytes", len(p.Data))
	return custody.Upload{Data: p.Data, MIME: p.MIME}, true
}

// Reject handles POST /api/returns/{id}/reject.
func (h *ReturnsHandler) Reject(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid return id")
		return
	}

	if err := h.Custody.RejectReturn(r.Context(), id, CurrentUser(r.Context()).ID); err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, map[string]string{"message": "return rejected"})
}
