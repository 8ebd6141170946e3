package api

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/erazemk/kalcki/internal/auth"
	"github.com/erazemk/kalcki/internal/db"
	"github.com/erazemk/kalcki/internal/model"
	"github.com/erazemk/kalcki/internal/store"
)

const testJWTSecret = "test-secret"

func newTestServer(t *testing.T) (*httptest.Server, *sql.DB) {
	t.Helper()
	database := db.NewTestDB(t)
	router := NewRouter(database, auth.NewTokens(testJWTSecret, time.Hour))
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return server, database
}

func setupTestServer(t *testing.T) (*httptest.Server, string) {
	t.Helper()
	server, database := newTestServer(t)

	// Create admin user.
	hash, _ := auth.HashPassword("password")
	if _, err := store.CreateUser(context.Background(), database, "admin", hash, model.RoleAdmin); err != nil {
		t.Fatalf("create admin: %v", err)
	}

	return server, login(t, server, "admin", "password")
}

func login(t *testing.T, server *httptest.Server, username, password string) string {
	t.Helper()
	body, _ := json.Marshal(map[string]string{"username": username, "password": password})
	resp, err := http.Post(server.URL+"/api/auth/login", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("login request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login failed: %d", resp.StatusCode)
	}

	var loginResp struct {
		Token string `json:"token"`
	}
	json.NewDecoder(resp.Body).Decode(&loginResp)
	if loginResp.Token == "" {
		t.Fatal("empty token from login")
	}
	return loginResp.Token
}

func authRequest(method, url, token string, body any) (*http.Request, error) {
	var bodyReader *bytes.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		bodyReader = bytes.NewReader(data)
	} else {
		bodyReader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, url, bodyReader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

// doJSON sends an authenticated JSON request, decodes the response into out
// when given, and returns the status code.
func doJSON(t *testing.T, method, url, token string, body, out any) int {
	t.Helper()
	req, err := authRequest(method, url, token, body)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode %s %s (status %d): %v", method, url, resp.StatusCode, err)
		}
	}
	return resp.StatusCode
}

func varietyBody(name string, blackoutDays, growingDays int) map[string]any {
	return map[string]any{
		"name":              name,
		"germinationDays":   1,
		"blackoutDays":      blackoutDays,
		"growingDays":       growingDays,
		"seedDensity":       20,
		"pricePerGram":      0.02,
		"otherCostsPerTray": 1,
	}
}

func createVariety(t *testing.T, server *httptest.Server, token string, body map[string]any) model.Variety {
	t.Helper()
	var v model.Variety
	if status := doJSON(t, "POST", server.URL+"/api/varieties", token, body, &v); status != http.StatusCreated {
		t.Fatalf("create variety: expected 201, got %d", status)
	}
	return v
}

func createTray(t *testing.T, server *httptest.Server, token string, varietyID int64, seedingDate string) trayResponse {
	t.Helper()
	var tray trayResponse
	status := doJSON(t, "POST", server.URL+"/api/trays", token, map[string]any{
		"varietyId":   varietyID,
		"batchId":     "B-1",
		"seedAmount":  20,
		"traySize":    "10x20",
		"seedingDate": seedingDate,
	}, &tray)
	if status != http.StatusCreated {
		t.Fatalf("create tray: expected 201, got %d", status)
	}
	return tray
}

func TestLoginEndpoint(t *testing.T) {
	server, _ := setupTestServer(t)

	// Test invalid credentials.
	body, _ := json.Marshal(map[string]string{"username": "admin", "password": "wrong"})
	resp, _ := http.Post(server.URL+"/api/auth/login", "application/json", bytes.NewReader(body))
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401 for bad password, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestLogoutRevokesToken(t *testing.T) {
	server, token := setupTestServer(t)

	if status := doJSON(t, "POST", server.URL+"/api/auth/logout", token, nil, nil); status != http.StatusOK {
		t.Fatalf("expected 200 from logout, got %d", status)
	}
	if status := doJSON(t, "GET", server.URL+"/api/varieties", token, nil, nil); status != http.StatusUnauthorized {
		t.Errorf("expected 401 with revoked token, got %d", status)
	}

	// A fresh login still works.
	fresh := login(t, server, "admin", "password")
	if status := doJSON(t, "GET", server.URL+"/api/varieties", fresh, nil, nil); status != http.StatusOK {
		t.Errorf("expected 200 with new token, got %d", status)
	}
}

func TestChangePassword(t *testing.T) {
	server, token := setupTestServer(t)

	status := doJSON(t, "PUT", server.URL+"/api/auth/password", token, map[string]string{
		"currentPassword": "wrong",
		"newPassword":     "sprouting-2024",
	}, nil)
	if status != http.StatusUnauthorized {
		t.Errorf("expected 401 for wrong current password, got %d", status)
	}

	status = doJSON(t, "PUT", server.URL+"/api/auth/password", token, map[string]string{
		"currentPassword": "password",
		"newPassword":     "sprouting-2024",
	}, nil)
	if status != http.StatusOK {
		t.Fatalf("expected 200, got %d", status)
	}
	login(t, server, "admin", "sprouting-2024")
}

func TestUnauthenticatedAccess(t *testing.T) {
	server, _ := newTestServer(t)

	resp, _ := http.Get(server.URL + "/api/trays")
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401 for unauthenticated request, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp, _ = http.Get(server.URL + "/api/health")
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200 from health check, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestRoleBasedAccess(t *testing.T) {
	server, adminToken := setupTestServer(t)

	status := doJSON(t, "POST", server.URL+"/api/users", adminToken, map[string]string{
		"username": "grower1",
		"password": "microgreens",
		"role":     model.RoleGrower,
	}, nil)
	if status != http.StatusCreated {
		t.Fatalf("expected 201 creating grower, got %d", status)
	}
	growerToken := login(t, server, "grower1", "microgreens")

	// Growers should not access /api/users.
	if status := doJSON(t, "GET", server.URL+"/api/users", growerToken, nil, nil); status != http.StatusForbidden {
		t.Errorf("expected 403 for grower accessing users, got %d", status)
	}

	// But they do manage their own catalog.
	createVariety(t, server, growerToken, varietyBody("Radish", 2, 6))
	var varieties []model.Variety
	if status := doJSON(t, "GET", server.URL+"/api/varieties", growerToken, nil, &varieties); status != http.StatusOK {
		t.Fatalf("expected 200, got %d", status)
	}
	if len(varieties) != 1 {
		t.Errorf("expected 1 variety, got %d", len(varieties))
	}
}

func TestGrowersSeeOnlyOwnTrays(t *testing.T) {
	server, adminToken := setupTestServer(t)

	doJSON(t, "POST", server.URL+"/api/users", adminToken, map[string]string{
		"username": "grower1",
		"password": "microgreens",
	}, nil)
	growerToken := login(t, server, "grower1", "microgreens")

	v := createVariety(t, server, adminToken, varietyBody("Sunflower", 3, 7))
	tray := createTray(t, server, adminToken, v.ID, "2024-03-01")

	url := fmt.Sprintf("%s/api/trays/%d", server.URL, tray.ID)
	if status := doJSON(t, "GET", url, growerToken, nil, nil); status != http.StatusNotFound {
		t.Errorf("expected 404 for another grower's tray, got %d", status)
	}

	// Nor can they plant into someone else's variety.
	status := doJSON(t, "POST", server.URL+"/api/trays", growerToken, map[string]any{
		"varietyId":   v.ID,
		"seedingDate": "2024-03-01",
	}, nil)
	if status != http.StatusUnprocessableEntity {
		t.Errorf("expected 422 for foreign variety, got %d", status)
	}
}

func TestVarietyValidationErrors(t *testing.T) {
	server, token := setupTestServer(t)

	var resp validationResponse
	status := doJSON(t, "POST", server.URL+"/api/varieties", token, map[string]any{
		"name":         "  ",
		"blackoutDays": -1,
	}, &resp)
	if status != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", status)
	}

	got := map[string]bool{}
	for _, f := range resp.Fields {
		got[f.Field] = true
	}
	for _, field := range []string{"name", "germinationDays", "blackoutDays", "growingDays", "seedDensity"} {
		if !got[field] {
			t.Errorf("expected a field error for %s, got %+v", field, resp.Fields)
		}
	}
}

func TestVarietyUpdateAndDeactivate(t *testing.T) {
	server, token := setupTestServer(t)

	v := createVariety(t, server, token, varietyBody("Pea", 3, 9))
	tray := createTray(t, server, token, v.ID, "2024-03-01")
	url := fmt.Sprintf("%s/api/varieties/%d", server.URL, v.ID)

	body := varietyBody("Pea shoots", 4, 10)
	body["version"] = v.Version
	var updated model.Variety
	if status := doJSON(t, "PUT", url, token, body, &updated); status != http.StatusOK {
		t.Fatalf("expected 200, got %d", status)
	}
	if updated.Name != "Pea shoots" || updated.Version != v.Version+1 {
		t.Errorf("unexpected update result: %+v", updated)
	}

	// A second write with the old version is stale.
	if status := doJSON(t, "PUT", url, token, body, nil); status != http.StatusConflict {
		t.Errorf("expected 409 for stale version, got %d", status)
	}

	if status := doJSON(t, "DELETE", url, token, nil, nil); status != http.StatusOK {
		t.Fatalf("expected 200 from deactivate, got %d", status)
	}

	var got trayResponse
	trayURL := fmt.Sprintf("%s/api/trays/%d", server.URL, tray.ID)
	if status := doJSON(t, "GET", trayURL, token, nil, &got); status != http.StatusOK {
		t.Fatalf("expected tray to stay readable, got %d", status)
	}
	if got.PlannedGrowingDays != 9 {
		t.Errorf("variety edit moved tray schedule: planned growing days %d", got.PlannedGrowingDays)
	}

	var active []model.Variety
	doJSON(t, "GET", server.URL+"/api/varieties", token, nil, &active)
	if len(active) != 0 {
		t.Errorf("expected no active varieties, got %d", len(active))
	}
	var all []model.Variety
	doJSON(t, "GET", server.URL+"/api/varieties?inactive=true", token, nil, &all)
	if len(all) != 1 || all[0].IsActive {
		t.Errorf("expected one inactive variety, got %+v", all)
	}
}

func TestImportVarieties(t *testing.T) {
	server, token := setupTestServer(t)

	post := func(body string) *http.Response {
		req, _ := http.NewRequest("POST", server.URL+"/api/varieties/import", strings.NewReader(body))
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set("Content-Type", "application/yaml")
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatalf("import request: %v", err)
		}
		return resp
	}

	resp := post(`
varieties:
  - name: Pea shoots
    germination_days: 2
    blackout_days: 3
    growing_days: 9
    seed_density: 250
  - name: Radish
    germination_days: 1
    blackout_days: 2
    growing_days: 6
    seed_density: 30
    price_per_gram: 0.05
`)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	// The second entry is invalid, so nothing is stored.
	resp = post(`
varieties:
  - name: Basil
    germination_days: 4
    blackout_days: 0
    growing_days: 14
    seed_density: 10
  - name: Broken
    blackout_days: 2
`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400 for invalid catalog, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	var varieties []model.Variety
	doJSON(t, "GET", server.URL+"/api/varieties", token, nil, &varieties)
	if len(varieties) != 2 {
		t.Errorf("expected 2 varieties after import, got %d", len(varieties))
	}
}

func TestTrayLifecycleAPIFlow(t *testing.T) {
	server, token := setupTestServer(t)

	v := createVariety(t, server, token, varietyBody("Sunflower", 3, 7))
	tray := createTray(t, server, token, v.ID, "2024-03-01")

	wantHarvest := time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC)
	if tray.ExpectedHarvestDate == nil || !tray.ExpectedHarvestDate.Equal(wantHarvest) {
		t.Errorf("expected harvest %v, got %v", wantHarvest, tray.ExpectedHarvestDate)
	}
	if tray.Status != model.StatusSeeding {
		t.Errorf("expected seeding, got %s", tray.Status)
	}
	if len(tray.NextStatuses) != 2 {
		t.Errorf("expected blackout and discarded as next statuses, got %v", tray.NextStatuses)
	}

	base := fmt.Sprintf("%s/api/trays/%d", server.URL, tray.ID)

	// Skipping blackout is not allowed with a planned blackout.
	status := doJSON(t, "POST", base+"/status", token, map[string]any{"version": tray.Version, "status": "growing"}, nil)
	if status != http.StatusConflict {
		t.Errorf("expected 409 for invalid transition, got %d", status)
	}

	for _, next := range []string{model.StatusBlackout, model.StatusGrowing, model.StatusReady} {
		var moved trayResponse
		status := doJSON(t, "POST", base+"/status", token, map[string]any{"version": tray.Version, "status": next}, &moved)
		if status != http.StatusOK {
			t.Fatalf("move to %s: expected 200, got %d", next, status)
		}
		if moved.Status != next || moved.Version != tray.Version+1 {
			t.Fatalf("move to %s: got status %s version %d", next, moved.Status, moved.Version)
		}
		tray = moved
	}

	// Harvest needs results.
	var verr validationResponse
	status = doJSON(t, "POST", base+"/harvest", token, map[string]any{"version": tray.Version}, &verr)
	if status != http.StatusBadRequest || len(verr.Fields) != 2 {
		t.Errorf("expected 400 with 2 field errors, got %d %+v", status, verr.Fields)
	}

	status = doJSON(t, "POST", base+"/harvest", token, map[string]any{
		"version":           tray.Version,
		"yieldWeight":       150,
		"yieldQuality":      8,
		"actualHarvestDate": "2024-03-11",
	}, &tray)
	if status != http.StatusOK {
		t.Fatalf("harvest: expected 200, got %d", status)
	}
	if tray.Status != model.StatusHarvested || len(tray.NextStatuses) != 0 {
		t.Errorf("unexpected harvested tray: status %s, next %v", tray.Status, tray.NextStatuses)
	}
	if tray.DaysUntilHarvest == nil || *tray.DaysUntilHarvest != 0 {
		t.Errorf("expected 0 days until a past harvest, got %v", tray.DaysUntilHarvest)
	}

	// Terminal trays cannot move.
	status = doJSON(t, "POST", base+"/status", token, map[string]any{"version": tray.Version, "status": "discarded"}, nil)
	if status != http.StatusConflict {
		t.Errorf("expected 409 after harvest, got %d", status)
	}

	var history []model.TrayEvent
	if status := doJSON(t, "GET", base+"/history", token, nil, &history); status != http.StatusOK {
		t.Fatalf("history: expected 200, got %d", status)
	}
	if len(history) != 5 || history[0].ToStatus != model.StatusHarvested {
		t.Errorf("expected 5 events, newest harvested; got %+v", history)
	}

	var report analyticsResponse
	status = doJSON(t, "GET", server.URL+"/api/analytics?from=2024-03-01&to=2024-04-01", token, nil, &report)
	if status != http.StatusOK {
		t.Fatalf("analytics: expected 200, got %d", status)
	}
	if report.Report.Totals.Revenue != 3 || report.Report.Totals.Margin != 2 {
		t.Errorf("expected revenue 3 and margin 2, got %+v", report.Report.Totals)
	}
	if len(report.Performance) != 1 || report.Performance[0].Date != "2024-03-11" {
		t.Errorf("unexpected performance series: %+v", report.Performance)
	}
	if report.Summary.ByStatus[model.StatusHarvested] != 1 || report.Summary.SuccessRate != 100 {
		t.Errorf("unexpected summary: %+v", report.Summary)
	}

	var activity []model.TrayEvent
	doJSON(t, "GET", server.URL+"/api/activity?limit=2", token, nil, &activity)
	if len(activity) != 2 {
		t.Errorf("expected 2 activity events, got %d", len(activity))
	}
}

func TestScheduleEndpoint(t *testing.T) {
	server, token := setupTestServer(t)

	v := createVariety(t, server, token, varietyBody("Sunflower", 3, 7))
	createTray(t, server, token, v.ID, "2024-03-01")
	later := createTray(t, server, token, v.ID, "2024-03-05")

	// Discarded trays leave the schedule.
	url := fmt.Sprintf("%s/api/trays/%d/status", server.URL, later.ID)
	if status := doJSON(t, "POST", url, token, map[string]any{"version": later.Version, "status": "discarded"}, nil); status != http.StatusOK {
		t.Fatalf("discard: expected 200, got %d", status)
	}

	type event struct {
		Date   time.Time `json:"date"`
		Type   string    `json:"type"`
		TrayID int64     `json:"trayId"`
	}
	var events []event
	status := doJSON(t, "GET", server.URL+"/api/schedules?from=2024-03-01&to=2024-04-01", token, nil, &events)
	if status != http.StatusOK {
		t.Fatalf("expected 200, got %d", status)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %+v", events)
	}
	if events[0].Type != "blackout_end" || !events[0].Date.Equal(time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("unexpected first event: %+v", events[0])
	}
	if events[1].Type != "harvest" {
		t.Errorf("unexpected second event: %+v", events[1])
	}

	if status := doJSON(t, "GET", server.URL+"/api/schedules?from=2024-04-01&to=2024-03-01", token, nil, nil); status != http.StatusBadRequest {
		t.Errorf("expected 400 for inverted window, got %d", status)
	}
}

func TestTrayIssuesAPI(t *testing.T) {
	server, token := setupTestServer(t)

	v := createVariety(t, server, token, varietyBody("Basil", 0, 14))
	tray := createTray(t, server, token, v.ID, "2024-03-01")
	base := fmt.Sprintf("%s/api/trays/%d", server.URL, tray.ID)

	var added addIssueResponse
	status := doJSON(t, "POST", base+"/issues", token, map[string]any{
		"version":     tray.Version,
		"type":        "pest",
		"description": "fungus gnats",
		"severity":    2,
		"reportDate":  "2024-03-03",
	}, &added)
	if status != http.StatusCreated {
		t.Fatalf("add issue: expected 201, got %d", status)
	}
	if added.Issue == nil || added.Issue.ID == "" || len(added.Tray.Issues) != 1 {
		t.Fatalf("unexpected add issue response: %+v", added)
	}

	resolveURL := fmt.Sprintf("%s/issues/%s/resolve", base, added.Issue.ID)
	var resolved trayResponse
	status = doJSON(t, "POST", resolveURL, token, map[string]any{
		"version":         added.Tray.Version,
		"resolutionNotes": "sticky traps",
	}, &resolved)
	if status != http.StatusOK {
		t.Fatalf("resolve: expected 200, got %d", status)
	}
	if !resolved.Issues[0].Resolved || resolved.Issues[0].ResolutionNotes != "sticky traps" {
		t.Errorf("issue not resolved: %+v", resolved.Issues[0])
	}

	status = doJSON(t, "POST", resolveURL, token, map[string]any{"version": resolved.Version}, nil)
	if status != http.StatusConflict {
		t.Errorf("expected 409 resolving twice, got %d", status)
	}

	// Without a blackout stage a tray goes straight to growing.
	status = doJSON(t, "POST", base+"/status", token, map[string]any{"version": resolved.Version, "status": "growing"}, nil)
	if status != http.StatusOK {
		t.Errorf("expected 200 skipping blackout, got %d", status)
	}
}

func TestSeedsAPI(t *testing.T) {
	server, token := setupTestServer(t)

	v := createVariety(t, server, token, varietyBody("Pea", 3, 9))

	var batch model.SeedBatch
	status := doJSON(t, "POST", server.URL+"/api/seeds", token, map[string]any{
		"varietyId":     v.ID,
		"supplier":      "True Leaf",
		"quantityGrams": 1000,
		"purchasedAt":   "2024-02-20",
	}, &batch)
	if status != http.StatusCreated {
		t.Fatalf("expected 201, got %d", status)
	}

	url := fmt.Sprintf("%s/api/seeds/%d/adjust", server.URL, batch.ID)
	if status := doJSON(t, "POST", url, token, map[string]any{"delta": -250}, &batch); status != http.StatusOK {
		t.Fatalf("adjust: expected 200, got %d", status)
	}
	if batch.QuantityGrams != 750 {
		t.Errorf("expected 750 g, got %v", batch.QuantityGrams)
	}
	if status := doJSON(t, "POST", url, token, map[string]any{"delta": -1000}, nil); status != http.StatusBadRequest {
		t.Errorf("expected 400 overdrawing stock, got %d", status)
	}

	var batches []model.SeedBatch
	doJSON(t, "GET", fmt.Sprintf("%s/api/seeds?varietyId=%d", server.URL, v.ID), token, nil, &batches)
	if len(batches) != 1 {
		t.Errorf("expected 1 batch, got %d", len(batches))
	}
}

func TestArchiveHidesTray(t *testing.T) {
	server, token := setupTestServer(t)

	v := createVariety(t, server, token, varietyBody("Radish", 2, 6))
	tray := createTray(t, server, token, v.ID, "2024-03-01")

	url := fmt.Sprintf("%s/api/trays/%d", server.URL, tray.ID)
	if status := doJSON(t, "DELETE", url, token, nil, nil); status != http.StatusOK {
		t.Fatalf("archive: expected 200, got %d", status)
	}

	var trays []trayResponse
	doJSON(t, "GET", server.URL+"/api/trays", token, nil, &trays)
	if len(trays) != 0 {
		t.Errorf("expected archived tray to be hidden, got %d trays", len(trays))
	}
	doJSON(t, "GET", server.URL+"/api/trays?archived=true", token, nil, &trays)
	if len(trays) != 1 || !trays[0].IsArchived {
		t.Errorf("expected archived tray with archived=true, got %+v", trays)
	}
}

func TestAnalyticsWorkbookExport(t *testing.T) {
	server, token := setupTestServer(t)

	req, _ := authRequest("GET", server.URL+"/api/analytics?format=xlsx", token, nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("export request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != xlsxMIME {
		t.Errorf("unexpected content type %q", ct)
	}

	f, err := excelize.OpenReader(resp.Body)
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer f.Close()
	if sheets := f.GetSheetList(); len(sheets) != 3 || sheets[0] != "Trays" {
		t.Errorf("unexpected sheets %v", sheets)
	}
}

func TestTrayPhotoUpload(t *testing.T) {
	server, token := setupTestServer(t)

	v := createVariety(t, server, token, varietyBody("Radish", 2, 6))
	tray := createTray(t, server, token, v.ID, "2024-03-01")
	url := fmt.Sprintf("%s/api/trays/%d/photo", server.URL, tray.ID)

	req, _ := authRequest("GET", url, token, nil)
	resp, _ := http.DefaultClient.Do(req)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404 before upload, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	img := image.NewRGBA(image.Rect(0, 0, 2048, 1024))
	for x := 0; x < 2048; x++ {
		img.Set(x, x%1024, color.RGBA{G: 200, A: 255})
	}
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, _ := mw.CreateFormFile("photo", "tray.png")
	if err := png.Encode(part, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	mw.Close()

	req, _ = http.NewRequest("PUT", url, &body)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("upload: expected 200, got %d", resp.StatusCode)
	}

	req, _ = authRequest("GET", url, token, nil)
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("download: %v", err)
	}
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); ct != "image/jpeg" {
		t.Errorf("expected image/jpeg, got %q", ct)
	}
	cfg, err := jpeg.DecodeConfig(resp.Body)
	if err != nil {
		t.Fatalf("decode jpeg: %v", err)
	}
	if cfg.Width != 1024 || cfg.Height != 512 {
		t.Errorf("expected 1024x512, got %dx%d", cfg.Width, cfg.Height)
	}
}

func TestParseISODate(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Time
		wantErr bool
	}{
		{"2024-03-01", time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), false},
		{"2024-03-01T08:30:00Z", time.Date(2024, 3, 1, 8, 30, 0, 0, time.UTC), false},
		{"2024-03-01T10:30:00+02:00", time.Date(2024, 3, 1, 8, 30, 0, 0, time.UTC), false},
		{"01.03.2024", time.Time{}, true},
		{"", time.Time{}, true},
	}
	for _, tt := range tests {
		got, err := parseISODate(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseISODate(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if !tt.wantErr && !got.Equal(tt.want) {
			t.Errorf("parseISODate(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
