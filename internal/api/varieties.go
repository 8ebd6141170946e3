package api

import (
	"database/sql"
	"errors"
	"log/slog"
	"net/http"

	"github.com/erazemk/kalcki/internal/catalog"
	"github.com/erazemk/kalcki/internal/model"
	"github.com/erazemk/kalcki/internal/store"
)

// maxCatalogBytes bounds an imported YAML catalog.
const maxCatalogBytes = 1 << 20

// VarietiesHandler handles the variety catalog endpoints. Every request is
// scoped to the authenticated grower.
type VarietiesHandler struct {
	DB *sql.DB
}

type updateVarietyRequest struct {
	Version int64 `json:"version"`
	model.VarietyInput
}

// List handles GET /api/varieties. Deactivated varieties are included with
// ?inactive=true.
func (h *VarietiesHandler) List(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())
	includeInactive := r.URL.Query().Get("inactive") == "true"

	varieties, err := store.ListVarieties(r.Context(), h.DB, claims.UserID, includeInactive)
	if err != nil {
		writeError(w, err, "failed to list varieties")
		return
	}
	jsonResponse(w, http.StatusOK, varieties)
}

// Create handles POST /api/varieties.
func (h *VarietiesHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())

	var req model.VarietyInput
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	variety, err := store.CreateVariety(r.Context(), h.DB, claims.UserID, req)
	if err != nil {
		writeError(w, err, "failed to create variety")
		return
	}

	slog.Info("variety created", "user", claims.Username, "variety", variety.Name, "id", variety.ID)
	jsonResponse(w, http.StatusCreated, variety)
}

// Get handles GET /api/varieties/{id}.
func (h *VarietiesHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", "variety")
	if !ok {
		return
	}

	variety, err := store.GetVariety(r.Context(), h.DB, GetClaims(r.Context()).UserID, id)
	if err != nil {
		writeError(w, err, "failed to get variety")
		return
	}
	jsonResponse(w, http.StatusOK, variety)
}

// Update handles PUT /api/varieties/{id}. The body carries the full variety
// and the version it was read at.
func (h *VarietiesHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", "variety")
	if !ok {
		return
	}
	claims := GetClaims(r.Context())

	var req updateVarietyRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	variety, err := store.UpdateVariety(r.Context(), h.DB, claims.UserID, id, req.Version, req.VarietyInput)
	if err != nil {
		writeError(w, err, "failed to update variety")
		return
	}

	slog.Info("variety updated", "user", claims.Username, "variety", variety.Name, "version", variety.Version)
	jsonResponse(w, http.StatusOK, variety)
}

// Deactivate handles DELETE /api/varieties/{id}. The variety stays readable
// and so do its trays.
func (h *VarietiesHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", "variety")
	if !ok {
		return
	}
	claims := GetClaims(r.Context())

	if err := store.DeactivateVariety(r.Context(), h.DB, claims.UserID, id); err != nil {
		writeError(w, err, "failed to deactivate variety")
		return
	}

	slog.Info("variety deactivated", "user", claims.Username, "id", id)
	jsonResponse(w, http.StatusOK, map[string]string{"message": "variety deactivated"})
}

// Import handles POST /api/varieties/import with a YAML catalog body. Either
// every entry is stored or none is.
func (h *VarietiesHandler) Import(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, maxCatalogBytes)
	defer r.Body.Close()

	inputs, err := catalog.Read(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			jsonError(w, http.StatusRequestEntityTooLarge, "catalog too large")
			return
		}
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	varieties, err := store.ImportVarieties(r.Context(), h.DB, claims.UserID, inputs)
	if err != nil {
		writeError(w, err, "failed to import varieties")
		return
	}

	slog.Info("varieties imported", "user", claims.Username, "count", len(varieties))
	jsonResponse(w, http.StatusCreated, varieties)
}
