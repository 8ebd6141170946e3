package api

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/erazemk/kalcki/internal/auth"
	"github.com/erazemk/kalcki/internal/model"
)

// NewRouter creates the API router with all endpoints registered.
func NewRouter(db *sql.DB, tokens *auth.Tokens) http.Handler {
	mux := http.NewServeMux()

	authHandler := &AuthHandler{DB: db, Tokens: tokens}
	usersHandler := &UsersHandler{DB: db}
	varietiesHandler := &VarietiesHandler{DB: db}
	traysHandler := &TraysHandler{DB: db}
	seedsHandler := &SeedsHandler{DB: db}
	analyticsHandler := &AnalyticsHandler{DB: db}

	authMW := AuthMiddleware(tokens, db)
	requireAdmin := RequireRole(model.RoleAdmin)
	requireGrower := RequireRole(model.RoleGrower)

	// grower wraps a handler for any signed-in account.
	grower := func(h http.HandlerFunc) http.Handler {
		return authMW(requireGrower(h))
	}

	// Public.
	mux.HandleFunc("POST /api/auth/login", authHandler.Login)
	mux.HandleFunc("GET /api/health", func(w http.ResponseWriter, r *http.Request) {
		if err := db.PingContext(r.Context()); err != nil {
			slog.Error("health check failed", "error", err)
			jsonError(w, http.StatusServiceUnavailable, "database unavailable")
			return
		}
		jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// Authenticated routes.
	mux.Handle("PUT /api/auth/password", authMW(http.HandlerFunc(authHandler.ChangePassword)))
	mux.Handle("POST /api/auth/logout", authMW(http.HandlerFunc(authHandler.Logout)))

	// Users (admin only).
	mux.Handle("GET /api/users", authMW(requireAdmin(http.HandlerFunc(usersHandler.List))))
	mux.Handle("POST /api/users", authMW(requireAdmin(http.HandlerFunc(usersHandler.Create))))
	mux.Handle("GET /api/users/{id}", authMW(requireAdmin(http.HandlerFunc(usersHandler.Get))))
	mux.Handle("PUT /api/users/{id}", authMW(requireAdmin(http.HandlerFunc(usersHandler.Update))))
	mux.Handle("PUT /api/users/{id}/password", authMW(requireAdmin(http.HandlerFunc(usersHandler.ResetPassword))))
	mux.Handle("DELETE /api/users/{id}", authMW(requireAdmin(http.HandlerFunc(usersHandler.Delete))))

	// Variety catalog.
	mux.Handle("GET /api/varieties", grower(varietiesHandler.List))
	mux.Handle("POST /api/varieties", grower(varietiesHandler.Create))
	mux.Handle("POST /api/varieties/import", grower(varietiesHandler.Import))
	mux.Handle("GET /api/varieties/{id}", grower(varietiesHandler.Get))
	mux.Handle("PUT /api/varieties/{id}", grower(varietiesHandler.Update))
	mux.Handle("DELETE /api/varieties/{id}", grower(varietiesHandler.Deactivate))

	// Trays.
	mux.Handle("GET /api/trays", grower(traysHandler.List))
	mux.Handle("POST /api/trays", grower(traysHandler.Create))
	mux.Handle("GET /api/trays/{id}", grower(traysHandler.Get))
	mux.Handle("PUT /api/trays/{id}", grower(traysHandler.Update))
	mux.Handle("DELETE /api/trays/{id}", grower(traysHandler.Archive))
	mux.Handle("POST /api/trays/{id}/status", grower(traysHandler.ChangeStatus))
	mux.Handle("POST /api/trays/{id}/harvest", grower(traysHandler.Harvest))
	mux.Handle("POST /api/trays/{id}/reschedule", grower(traysHandler.Reschedule))
	mux.Handle("POST /api/trays/{id}/issues", grower(traysHandler.AddIssue))
	mux.Handle("POST /api/trays/{id}/issues/{issueId}/resolve", grower(traysHandler.ResolveIssue))
	mux.Handle("GET /api/trays/{id}/history", grower(traysHandler.History))
	mux.Handle("PUT /api/trays/{id}/photo", grower(traysHandler.UploadPhoto))
	mux.Handle("GET /api/trays/{id}/photo", grower(traysHandler.GetPhoto))

	// Seed inventory.
	mux.Handle("GET /api/seeds", grower(seedsHandler.List))
	mux.Handle("POST /api/seeds", grower(seedsHandler.Create))
	mux.Handle("POST /api/seeds/{id}/adjust", grower(seedsHandler.Adjust))

	// Schedule and analytics.
	mux.Handle("GET /api/schedules", grower(analyticsHandler.Schedule))
	mux.Handle("GET /api/analytics", grower(analyticsHandler.Analytics))
	mux.Handle("GET /api/activity", grower(analyticsHandler.Activity))

	return mux
}
