package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/ukydev/gearguard/internal/auth"
	"github.com/ukydev/gearguard/internal/db"
	"github.com/ukydev/gearguard/internal/maintenance"
	"github.com/ukydev/gearguard/internal/middleware"
	"github.com/ukydev/gearguard/internal/models"
)

// RouterConfig carries what the API router needs.
type RouterConfig struct {
	Auth      *auth.Service
	Users     db.UserCollection
	Service   *maintenance.Service
	Limiter   middleware.Limiter // nil disables rate limiting
	MaxUpload int64
}

// NewRouter sets up all application routes
func NewRouter(cfg RouterConfig) http.Handler {
	r := mux.NewRouter()
	r.Use(middleware.RequestLogger)
	if cfg.Limiter != nil {
		r.Use(middleware.RateLimit(cfg.Limiter))
	}

	authMW := middleware.NewAuthMiddleware(cfg.Auth)
	r.Use(authMW.Authenticate)

	r.HandleFunc("/health", health).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()

	users := NewAuthHandler(cfg.Auth, cfg.Users)
	api.HandleFunc("/auth/register", users.Register).Methods(http.MethodPost)
	api.HandleFunc("/auth/login", users.Login).Methods(http.MethodPost)
	api.HandleFunc("/auth/me", users.GetProfile).Methods(http.MethodGet)
	api.HandleFunc("/users", users.ListUsers).Methods(http.MethodGet)

	manageAssets := authMW.RequirePermission(models.ActionManageAssets)
	guarded := func(h http.HandlerFunc) http.Handler { return manageAssets(h) }

	equipment := NewEquipmentHandler(cfg.Service)
	api.HandleFunc("/equipment", equipment.List).Methods(http.MethodGet)
	api.HandleFunc("/equipment", equipment.Create).Methods(http.MethodPost)
	api.HandleFunc("/equipment/{id}", equipment.Get).Methods(http.MethodGet)
	api.HandleFunc("/equipment/{id}", equipment.Update).Methods(http.MethodPut)
	api.Handle("/equipment/{id}", guarded(equipment.Delete)).Methods(http.MethodDelete)
	api.HandleFunc("/equipment/{id}/maintenance", equipment.Requests).Methods(http.MethodGet)

	teams := NewTeamHandler(cfg.Service)
	api.HandleFunc("/maintenance-teams", teams.List).Methods(http.MethodGet)
	api.HandleFunc("/maintenance-teams", teams.Create).Methods(http.MethodPost)
	api.HandleFunc("/maintenance-teams/{id}", teams.Get).Methods(http.MethodGet)
	api.HandleFunc("/maintenance-teams/{id}", teams.Update).Methods(http.MethodPut)
	api.Handle("/maintenance-teams/{id}", guarded(teams.Delete)).Methods(http.MethodDelete)
	api.Handle("/maintenance-teams/{id}/members", guarded(teams.AddMember)).Methods(http.MethodPost)
	api.Handle("/maintenance-teams/{id}/members/{userId}", guarded(teams.RemoveMember)).Methods(http.MethodDelete)
	api.HandleFunc("/maintenance-teams/{id}/requests", teams.Requests).Methods(http.MethodGet)

	// Fixed paths are registered ahead of /{id} so they are not taken for ids.
	requests := NewRequestHandler(cfg.Service, cfg.MaxUpload)
	api.HandleFunc("/maintenance-requests", requests.List).Methods(http.MethodGet)
	api.HandleFunc("/maintenance-requests", requests.Create).Methods(http.MethodPost)
	api.HandleFunc("/maintenance-requests/kanban", requests.Kanban).Methods(http.MethodGet)
	api.HandleFunc("/maintenance-requests/calendar", requests.Calendar).Methods(http.MethodGet)
	api.HandleFunc("/maintenance-requests/stats/dashboard", requests.Dashboard).Methods(http.MethodGet)
	api.Handle("/maintenance-requests/export", authMW.RequireRole(models.RoleManager)(http.HandlerFunc(requests.Export))).Methods(http.MethodGet)
	api.HandleFunc("/maintenance-requests/{id}", requests.Get).Methods(http.MethodGet)
	api.HandleFunc("/maintenance-requests/{id}", requests.Update).Methods(http.MethodPut)
	api.HandleFunc("/maintenance-requests/{id}", requests.Delete).Methods(http.MethodDelete)
	api.HandleFunc("/maintenance-requests/{id}/stage", requests.ChangeStage).Methods(http.MethodPatch)
	api.HandleFunc("/maintenance-requests/{id}/notes", requests.AddNote).Methods(http.MethodPost)
	api.HandleFunc("/maintenance-requests/{id}/attachments", requests.AddAttachment).Methods(http.MethodPost)
	api.HandleFunc("/maintenance-requests/{id}/attachments/{attachmentId}", requests.DownloadAttachment).Methods(http.MethodGet)

	events := NewCalendarEventHandler(cfg.Service)
	api.HandleFunc("/calendar-events", events.List).Methods(http.MethodGet)
	api.HandleFunc("/calendar-events", events.Create).Methods(http.MethodPost)
	api.HandleFunc("/calendar-events/{id}", events.Update).Methods(http.MethodPut)
	api.HandleFunc("/calendar-events/{id}", events.Delete).Methods(http.MethodDelete)

	return r
}

func health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
