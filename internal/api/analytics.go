package api

import (
	"bytes"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/erazemk/kalcki/internal/analytics"
	"github.com/erazemk/kalcki/internal/model"
	"github.com/erazemk/kalcki/internal/store"
)

const xlsxMIME = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// AnalyticsHandler serves the schedule, analytics and activity views.
type AnalyticsHandler struct {
	DB *sql.DB
}

type analyticsResponse struct {
	Summary     analytics.Summary            `json:"summary"`
	Performance []analytics.PerformancePoint `json:"performance"`
	Report      *analytics.Report            `json:"report"`
}

// window reads the from and to query parameters.
func window(q url.Values) (analytics.Window, error) {
	from, err := queryDate(q, "from")
	if err != nil {
		return analytics.Window{}, err
	}
	to, err := queryDate(q, "to")
	if err != nil {
		return analytics.Window{}, err
	}
	if from != nil && to != nil && !from.Before(*to) {
		return analytics.Window{}, errors.New("from must be before to")
	}
	return analytics.Window{From: from, To: to}, nil
}

// loadTrays reads the tray filter and window from the query and loads the
// matching trays of the caller.
func (h *AnalyticsHandler) loadTrays(w http.ResponseWriter, r *http.Request) ([]model.Tray, analytics.Window, bool) {
	q := r.URL.Query()
	filter, err := trayFilter(q)
	if err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return nil, analytics.Window{}, false
	}
	win, err := window(q)
	if err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return nil, analytics.Window{}, false
	}

	trays, err := store.ListTrays(r.Context(), h.DB, GetClaims(r.Context()).UserID, filter)
	if err != nil {
		writeError(w, err, "failed to list trays")
		return nil, analytics.Window{}, false
	}
	return trays, win, true
}

// Schedule handles GET /api/schedules.
func (h *AnalyticsHandler) Schedule(w http.ResponseWriter, r *http.Request) {
	trays, win, ok := h.loadTrays(w, r)
	if !ok {
		return
	}
	jsonResponse(w, http.StatusOK, analytics.Schedule(trays, win, time.Now()))
}

// Analytics handles GET /api/analytics. With ?format=xlsx the report is
// returned as a workbook instead of JSON.
func (h *AnalyticsHandler) Analytics(w http.ResponseWriter, r *http.Request) {
	format := r.URL.Query().Get("format")
	if format != "" && format != "json" && format != "xlsx" {
		jsonError(w, http.StatusBadRequest, "format must be json or xlsx")
		return
	}

	trays, win, ok := h.loadTrays(w, r)
	if !ok {
		return
	}
	claims := GetClaims(r.Context())

	// Deactivated varieties still price their trays.
	varieties, err := store.ListVarieties(r.Context(), h.DB, claims.UserID, true)
	if err != nil {
		writeError(w, err, "failed to list varieties")
		return
	}

	report, err := analytics.BuildReport(trays, varieties, win)
	if err != nil {
		writeError(w, err, "failed to build report")
		return
	}
	perf := analytics.Performance(trays, win)

	if format != "xlsx" {
		jsonResponse(w, http.StatusOK, analyticsResponse{
			Summary:     analytics.Summarize(trays),
			Performance: perf,
			Report:      report,
		})
		return
	}

	var buf bytes.Buffer
	if err := analytics.WriteWorkbook(&buf, report, perf); err != nil {
		writeError(w, err, "failed to export report")
		return
	}

	slog.Info("report exported", "user", claims.Username, "trays", len(report.Trays))
	w.Header().Set("Content-Type", xlsxMIME)
	w.Header().Set("Content-Disposition", `attachment; filename="kalcki-report.xlsx"`)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.Write(buf.Bytes())
}

// Activity handles GET /api/activity, the latest tray events of the caller.
func (h *AnalyticsHandler) Activity(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > 500 {
			jsonError(w, http.StatusBadRequest, "limit must be between 1 and 500")
			return
		}
		limit = n
	}

	events, err := store.ListRecentEvents(r.Context(), h.DB, GetClaims(r.Context()).UserID, limit)
	if err != nil {
		writeError(w, err, "failed to list activity")
		return
	}
	jsonResponse(w, http.StatusOK, events)
}
