package api

import (
	"log/slog"
	"net/http"

	"github.com/jmoiron/sqlx"

	"github.com/andrew11morozovtwo/bot-accounting/internal/model"
	"github.com/andrew11morozovtwo/bot-accounting/internal/store"
)

// CatalogHandler handles category and asset lookups.
type CatalogHandler struct {
	DB *sqlx.DB
}

type createCategoryRequest struct {
	Name string `json:"name"`
}

// ListCategories handles GET /api/categories.
func (h *CatalogHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := store.ListCategories(r.Context(), h.DB)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if cats == nil {
		cats = []model.Category{}
	}
	jsonResponse(w, http.StatusOK, cats)
}

// CreateCategory handles POST /api/categories.
func (h *CatalogHandler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var req createCategoryRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	cat, err := store.CreateCategory(r.Context(), h.DB, req.Name)
	if err != nil {
		writeError(w, r, err)
		return
	}

	slog.Info("category created", "by", CurrentUser(r.Context()).ID, "category", cat.Name)
	jsonResponse(w, http.StatusCreated, cat)
}

// ListAssets handles GET /api/assets, optionally filtered by category_id.
func (h *CatalogHandler) ListAssets(w http.ResponseWriter, r *http.Request) {
	categoryID, ok := queryID(r, "category_id")
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid category_id")
		return
	}

	assets, err := store.ListAssets(r.Context(), h.DB, categoryID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if assets == nil {
		assets = []model.Asset{}
	}
	jsonResponse(w, http.StatusOK, assets)
}

// GetAsset handles GET /api/assets/{id}.
func (h *CatalogHandler) GetAsset(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid asset id")
		return
	}

	asset, err := store.GetAsset(r.Context(), h.DB, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	available, err := store.CountAvailable(r.Context(), h.DB, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	photos, err := store.ListReturnPhotos(r.Context(), h.DB, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if photos == nil {
		photos = []model.ReturnPhoto{}
	}

	jsonResponse(w, http.StatusOK, map[string]any{
		"asset":         asset,
		"available":     available,
		"return_photos": photos,
	})
}

// ListInstances handles GET /api/assets/{id}/instances.
func (h *CatalogHandler) ListInstances(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid asset id")
		return
	}

	if _, err := store.GetAsset(r.Context(), h.DB, id); err != nil {
		writeError(w, r, err)
		return
	}
	instances, err := store.ListInstances(r.Context(), h.DB, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if instances == nil {
		instances = []model.AssetInstance{}
	}
	jsonResponse(w, http.StatusOK, instances)
}

// GetPhoto handles GET /api/photos/{id}.
func (h *CatalogHandler) GetPhoto(w http.ResponseWriter, r *http.Request) {
	if _, ok := pathID(r, "id"); !ok {
		jsonError(w, http.StatusBadRequest, "invalid photo id")
		return
	}

	data, mime, err := store.GetPhoto(r.Context(), h.DB, store.StoredPhotoPrefix+r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", mime)
	w.Header().Set("Cache-Control", "private, max-age=3600")
	w.Write(data)
}
