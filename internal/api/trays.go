package api

import (
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/erazemk/kalcki/internal/imaging"
	"github.com/erazemk/kalcki/internal/model"
	"github.com/erazemk/kalcki/internal/store"
)

// TraysHandler handles tray lifecycle endpoints. Every request is scoped to
// the authenticated grower.
type TraysHandler struct {
	DB *sql.DB
}

// trayResponse adds the values derived from the current time to a tray.
type trayResponse struct {
	model.Tray
	AgeInDays        int      `json:"ageInDays"`
	DaysUntilHarvest *int     `json:"daysUntilHarvest"`
	NextStatuses     []string `json:"nextStatuses"`
}

func newTrayResponse(t *model.Tray, now time.Time) trayResponse {
	next := model.NextStatuses(t.Status, t.PlannedBlackoutDays)
	if next == nil {
		next = []string{}
	}
	return trayResponse{
		Tray:             *t,
		AgeInDays:        t.AgeInDays(now),
		DaysUntilHarvest: t.DaysUntilHarvest(now),
		NextStatuses:     next,
	}
}

type createTrayRequest struct {
	model.TrayInput
	SeedingDate *isoDate `json:"seedingDate"`
}

type statusRequest struct {
	model.StatusChange
	HarvestDate *isoDate `json:"actualHarvestDate"`
}

type rescheduleRequest struct {
	Version     int64    `json:"version"`
	SeedingDate *isoDate `json:"seedingDate"`
}

type addIssueRequest struct {
	Version int64 `json:"version"`
	model.IssueInput
	ReportDate *isoDate `json:"reportDate"`
}

type addIssueResponse struct {
	Tray  trayResponse `json:"tray"`
	Issue *model.Issue `json:"issue"`
}

type resolveIssueRequest struct {
	Version         int64  `json:"version"`
	ResolutionNotes string `json:"resolutionNotes"`
}

// trayFilter reads the varietyId, status and archived query parameters.
func trayFilter(q url.Values) (store.TrayFilter, error) {
	var filter store.TrayFilter
	if v := q.Get("varietyId"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil || id <= 0 {
			return filter, errors.New("invalid varietyId")
		}
		filter.VarietyID = id
	}
	if s := q.Get("status"); s != "" {
		if !model.ValidStatus(s) {
			return filter, errors.New("invalid status")
		}
		filter.Status = s
	}
	filter.IncludeArchived = q.Get("archived") == "true"
	return filter, nil
}

// List handles GET /api/trays.
func (h *TraysHandler) List(w http.ResponseWriter, r *http.Request) {
	filter, err := trayFilter(r.URL.Query())
	if err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	trays, err := store.ListTrays(r.Context(), h.DB, GetClaims(r.Context()).UserID, filter)
	if err != nil {
		writeError(w, err, "failed to list trays")
		return
	}

	now := time.Now()
	resp := make([]trayResponse, 0, len(trays))
	for i := range trays {
		resp = append(resp, newTrayResponse(&trays[i], now))
	}
	jsonResponse(w, http.StatusOK, resp)
}

// Create handles POST /api/trays.
func (h *TraysHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())

	var req createTrayRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.TrayInput.SeedingDate = req.SeedingDate.ptr()

	tray, err := store.CreateTray(r.Context(), h.DB, claims.UserID, req.TrayInput)
	if err != nil {
		writeError(w, err, "failed to create tray")
		return
	}

	slog.Info("tray created", "user", claims.Username, "tray", tray.ID, "variety", tray.VarietyName, "batch", tray.BatchID)
	jsonResponse(w, http.StatusCreated, newTrayResponse(tray, time.Now()))
}

// Get handles GET /api/trays/{id}.
func (h *TraysHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", "tray")
	if !ok {
		return
	}

	tray, err := store.GetTray(r.Context(), h.DB, GetClaims(r.Context()).UserID, id)
	if err != nil {
		writeError(w, err, "failed to get tray")
		return
	}
	jsonResponse(w, http.StatusOK, newTrayResponse(tray, time.Now()))
}

// Update handles PUT /api/trays/{id}.
func (h *TraysHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", "tray")
	if !ok {
		return
	}
	claims := GetClaims(r.Context())

	var req model.TrayUpdate
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	tray, err := store.UpdateTray(r.Context(), h.DB, claims.UserID, id, req)
	if err != nil {
		writeError(w, err, "failed to update tray")
		return
	}

	slog.Info("tray updated", "user", claims.Username, "tray", id, "version", tray.Version)
	jsonResponse(w, http.StatusOK, newTrayResponse(tray, time.Now()))
}

// Archive handles DELETE /api/trays/{id}.
func (h *TraysHandler) Archive(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", "tray")
	if !ok {
		return
	}
	claims := GetClaims(r.Context())

	if err := store.ArchiveTray(r.Context(), h.DB, claims.UserID, id); err != nil {
		writeError(w, err, "failed to archive tray")
		return
	}

	slog.Info("tray archived", "user", claims.Username, "tray", id)
	jsonResponse(w, http.StatusOK, map[string]string{"message": "tray archived"})
}

// ChangeStatus handles POST /api/trays/{id}/status.
func (h *TraysHandler) ChangeStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	h.changeStatus(w, r, req)
}

// Harvest handles POST /api/trays/{id}/harvest, a status change to harvested
// that carries the yield.
func (h *TraysHandler) Harvest(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.Status = model.StatusHarvested
	h.changeStatus(w, r, req)
}

func (h *TraysHandler) changeStatus(w http.ResponseWriter, r *http.Request, req statusRequest) {
	id, ok := pathID(w, r, "id", "tray")
	if !ok {
		return
	}
	claims := GetClaims(r.Context())
	req.StatusChange.HarvestDate = req.HarvestDate.ptr()

	tray, err := store.ChangeTrayStatus(r.Context(), h.DB, claims.UserID, id, req.StatusChange, time.Now())
	if err != nil {
		writeError(w, err, "failed to change tray status")
		return
	}

	slog.Info("tray status changed", "user", claims.Username, "tray", id, "status", tray.Status)
	jsonResponse(w, http.StatusOK, newTrayResponse(tray, time.Now()))
}

// Reschedule handles POST /api/trays/{id}/reschedule. The expected dates are
// derived again from the variety's current timing.
func (h *TraysHandler) Reschedule(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", "tray")
	if !ok {
		return
	}
	claims := GetClaims(r.Context())

	var req rescheduleRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	tray, err := store.RescheduleTray(r.Context(), h.DB, claims.UserID, id, req.Version, req.SeedingDate.ptr())
	if err != nil {
		writeError(w, err, "failed to reschedule tray")
		return
	}

	slog.Info("tray rescheduled", "user", claims.Username, "tray", id)
	jsonResponse(w, http.StatusOK, newTrayResponse(tray, time.Now()))
}

// AddIssue handles POST /api/trays/{id}/issues.
func (h *TraysHandler) AddIssue(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", "tray")
	if !ok {
		return
	}
	claims := GetClaims(r.Context())

	var req addIssueRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.IssueInput.ReportDate = req.ReportDate.ptr()

	now := time.Now()
	tray, issue, err := store.AddIssue(r.Context(), h.DB, claims.UserID, id, req.Version, req.IssueInput, now)
	if err != nil {
		writeError(w, err, "failed to add issue")
		return
	}

	slog.Info("tray issue reported", "user", claims.Username, "tray", id, "type", issue.Type, "severity", issue.Severity)
	jsonResponse(w, http.StatusCreated, addIssueResponse{Tray: newTrayResponse(tray, now), Issue: issue})
}

// ResolveIssue handles POST /api/trays/{id}/issues/{issueId}/resolve.
func (h *TraysHandler) ResolveIssue(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", "tray")
	if !ok {
		return
	}
	issueID := r.PathValue("issueId")
	claims := GetClaims(r.Context())

	var req resolveIssueRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	now := time.Now()
	tray, err := store.ResolveIssue(r.Context(), h.DB, claims.UserID, id, issueID, req.Version, req.ResolutionNotes, now)
	if err != nil {
		writeError(w, err, "failed to resolve issue")
		return
	}

	slog.Info("tray issue resolved", "user", claims.Username, "tray", id, "issue", issueID)
	jsonResponse(w, http.StatusOK, newTrayResponse(tray, now))
}

// History handles GET /api/trays/{id}/history.
func (h *TraysHandler) History(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", "tray")
	if !ok {
		return
	}

	events, err := store.ListTrayEvents(r.Context(), h.DB, GetClaims(r.Context()).UserID, id)
	if err != nil {
		writeError(w, err, "failed to get tray history")
		return
	}
	jsonResponse(w, http.StatusOK, events)
}

// UploadPhoto handles PUT /api/trays/{id}/photo with a multipart "photo" file.
// The photo is stored as a downscaled JPEG.
func (h *TraysHandler) UploadPhoto(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", "tray")
	if !ok {
		return
	}
	claims := GetClaims(r.Context())

	// Leave room for the multipart envelope.
	r.Body = http.MaxBytesReader(w, r.Body, imaging.MaxUploadBytes+1<<20)

	if err := r.ParseMultipartForm(imaging.MaxUploadBytes); err != nil {
		jsonError(w, http.StatusBadRequest, "file too large or invalid multipart form")
		return
	}

	file, _, err := r.FormFile("photo")
	if err != nil {
		jsonError(w, http.StatusBadRequest, "photo file required")
		return
	}
	defer file.Close()

	photo, err := imaging.NormalizePhoto(file)
	if err != nil {
		writeError(w, err, "failed to read photo")
		return
	}

	if err := store.SetTrayPhoto(r.Context(), h.DB, claims.UserID, id, photo.Data, photo.MIME); err != nil {
		writeError(w, err, "failed to save photo")
		return
	}

	slog.Info("tray photo uploaded", "user", claims.Username, "tray", id, "width", photo.Width, "height", photo.Height)
	jsonResponse(w, http.StatusOK, map[string]string{"message": "photo uploaded"})
}

// GetPhoto handles GET /api/trays/{id}/photo.
func (h *TraysHandler) GetPhoto(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", "tray")
	if !ok {
		return
	}

	data, mime, err := store.GetTrayPhoto(r.Context(), h.DB, GetClaims(r.Context()).UserID, id)
	if err != nil {
		writeError(w, err, "failed to get photo")
		return
	}

	w.Header().Set("Content-Type", mime)
	w.Header().Set("Cache-Control", "private, max-age=3600")
	w.Write(data)
}
