package api

import (
	"database/sql"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/erazemk/kalcki/internal/model"
	"github.com/erazemk/kalcki/internal/store"
)

// SeedsHandler handles seed inventory endpoints.
type SeedsHandler struct {
	DB *sql.DB
}

type createSeedBatchRequest struct {
	model.SeedBatchInput
	PurchasedAt *isoDate `json:"purchasedAt"`
}

type adjustSeedBatchRequest struct {
	Delta float64 `json:"delta"`
}

// List handles GET /api/seeds, optionally narrowed with ?varietyId=.
func (h *SeedsHandler) List(w http.ResponseWriter, r *http.Request) {
	var varietyID int64
	if v := r.URL.Query().Get("varietyId"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil || id <= 0 {
			jsonError(w, http.StatusBadRequest, "invalid varietyId")
			return
		}
		varietyID = id
	}

	batches, err := store.ListSeedBatches(r.Context(), h.DB, GetClaims(r.Context()).UserID, varietyID)
	if err != nil {
		writeError(w, err, "failed to list seed batches")
		return
	}
	jsonResponse(w, http.StatusOK, batches)
}

// Create handles POST /api/seeds.
func (h *SeedsHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())

	var req createSeedBatchRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.SeedBatchInput.PurchasedAt = req.PurchasedAt.ptr()

	batch, err := store.CreateSeedBatch(r.Context(), h.DB, claims.UserID, req.SeedBatchInput)
	if err != nil {
		writeError(w, err, "failed to create seed batch")
		return
	}

	slog.Info("seed batch added", "user", claims.Username, "batch", batch.ID, "variety", batch.VarietyID, "grams", batch.QuantityGrams)
	jsonResponse(w, http.StatusCreated, batch)
}

// Adjust handles POST /api/seeds/{id}/adjust.
func (h *SeedsHandler) Adjust(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", "seed batch")
	if !ok {
		return
	}
	claims := GetClaims(r.Context())

	var req adjustSeedBatchRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	batch, err := store.AdjustSeedBatch(r.Context(), h.DB, claims.UserID, id, req.Delta)
	if err != nil {
		writeError(w, err, "failed to adjust seed batch")
		return
	}

	slog.Info("seed stock adjusted", "user", claims.Username, "batch", id, "delta", req.Delta, "grams", batch.QuantityGrams)
	jsonResponse(w, http.StatusOK, batch)
}
