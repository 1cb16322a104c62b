package api

import (
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/andrew11morozovtwo/bot-accounting/internal/custody"
	"github.com/andrew11morozovtwo/bot-accounting/internal/model"
	"github.com/andrew11morozovtwo/bot-accounting/internal/store"
)

// CustodyHandler handles stock movements and the operation log.
type CustodyHandler struct {
	Custody *custody.Service
}

type incomingRequest struct {
	Code       string                `json:"code"`
	Name       string                `json:"name"`
	CategoryID int64                 `json:"category_id"`
	Category   string                `json:"category"`
	Qty        int                   `json:"qty"`
	Labels     []string              `json:"labels"`
	Photos     []string              `json:"photos"`
	Prices     []decimal.NullDecimal `json:"prices"`
	Comment    string                `json:"comment"`
}

type moveRequest struct {
	AssetID     int64  `json:"asset_id"`
	Qty         int    `json:"qty"`
	RecipientID int64  `json:"recipient_id"`
	Comment     string `json:"comment"`
}

// Incoming handles POST /api/incoming.
func (h *CustodyHandler) Incoming(w http.ResponseWriter, r *http.Request) {
	var req incomingRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	receipt, err := h.Custody.Receive(r.Context(), custody.ReceiveRequest{
		ActorID:    CurrentUser(r.Context()).ID,
		Code:       req.Code,
		Name:       req.Name,
		CategoryID: req.CategoryID,
		Category:   req.Category,
		Qty:        req.Qty,
		Labels:     req.Labels,
		Photos:     req.Photos,
		Prices:     req.Prices,
		Comment:    req.Comment,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusCreated, receipt)
}

// Issue handles POST /api/issue.
func (h *CustodyHandler) Issue(w http.ResponseWriter, r *http.Request) {
	var req moveRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	op, err := h.Custody.Issue(r.Context(), req.AssetID, req.Qty, req.RecipientID, CurrentUser(r.Context()).ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusCreated, op)
}

// Transfer handles POST /api/transfer. The current user hands over units
// they hold.
func (h *CustodyHandler) Transfer(w http.ResponseWriter, r *http.Request) {
	var req moveRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	op, err := h.Custody.Transfer(r.Context(), req.AssetID, req.Qty, CurrentUser(r.Context()).ID, req.RecipientID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusCreated, op)
}

// WriteOff handles POST /api/writeoff.
func (h *CustodyHandler) WriteOff(w http.ResponseWriter, r *http.Request) {
	var req moveRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	op, err := h.Custody.WriteOff(r.Context(), req.AssetID, req.Qty, CurrentUser(r.Context()).ID, req.Comment)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusCreated, op)
}

// Confirm handles POST /api/operations/{id}/confirm.
func (h *CustodyHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid operation id")
		return
	}

	op, err := h.Custody.ConfirmCustody(r.Context(), id, CurrentUser(r.Context()).ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, op)
}

// ListOperations handles GET /api/operations. Filters: asset_id, user_id,
// type and limit. Users who neither issue nor approve returns only see
// operations they took part in.
func (h *CustodyHandler) ListOperations(w http.ResponseWriter, r *http.Request) {
	var f store.OperationFilter
	var ok bool
	if f.AssetID, ok = queryID(r, "asset_id"); !ok {
		jsonError(w, http.StatusBadRequest, "invalid asset_id")
		return
	}
	if f.UserID, ok = queryID(r, "user_id"); !ok {
		jsonError(w, http.StatusBadRequest, "invalid user_id")
		return
	}
	limit, ok := queryID(r, "limit")
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid limit")
		return
	}
	f.Limit = int(limit)
	f.Type = model.OperationType(r.URL.Query().Get("type"))

	if user := CurrentUser(r.Context()); !model.CanIssue(user) && !model.CanApproveReturns(user) {
		f.UserID = user.ID
	}

	ops, err := store.ListOperations(r.Context(), h.Custody.DB(), f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if ops == nil {
		ops = []model.Operation{}
	}
	jsonResponse(w, http.StatusOK, ops)
}

// Holdings handles GET /api/me/holdings.
func (h *CustodyHandler) Holdings(w http.ResponseWriter, r *http.Request) {
	holdings, err := store.HoldingsByUser(r.Context(), h.Custody.DB(), CurrentUser(r.Context()).ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if holdings == nil {
		holdings = []model.Holding{}
	}
	jsonResponse(w, http.StatusOK, holdings)
}
