// Package api exposes TaskFlow over HTTP: the JSON application API under /api
// and the admin report surface under /admin.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"

	"github.com/bagaart/TaskFlow/internal/access"
	"github.com/bagaart/TaskFlow/internal/auth"
	"github.com/bagaart/TaskFlow/internal/dashboard"
	"github.com/bagaart/TaskFlow/internal/httputil"
	"github.com/bagaart/TaskFlow/internal/middleware"
	"github.com/bagaart/TaskFlow/internal/report"
	"github.com/bagaart/TaskFlow/internal/repository"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type BackupCreator interface {
	Create(ctx context.Context) (string, error)
}

type Deps struct {
	Store     repository.Store
	Guard     *access.Guard
	Auth      *auth.Service
	Tokens    *auth.TokenIssuer
	Reports   *report.Service
	Dashboard *dashboard.Dashboard
	Backups   BackupCreator
}

type API struct {
	store     repository.Store
	guard     *access.Guard
	auth      *auth.Service
	tokens    *auth.TokenIssuer
	reports   *report.Service
	dashboard *dashboard.Dashboard
	backups   BackupCreator
	mux       *http.ServeMux
	handler   http.Handler
}

func NewAPI(deps Deps) *API {
	api := &API{
		store:     deps.Store,
		guard:     deps.Guard,
		auth:      deps.Auth,
		tokens:    deps.Tokens,
		reports:   deps.Reports,
		dashboard: deps.Dashboard,
		backups:   deps.Backups,
		mux:       http.NewServeMux(),
	}

	api.setupRoutes()
	api.handler = middleware.MetricsMiddleware(api.mux)
	return api
}

func (a *API) setupRoutes() {
	authed := auth.Middleware(a.tokens, a.store)
	protect := func(pattern string, h http.HandlerFunc) {
		a.mux.Handle(pattern, authed(h))
	}

	a.mux.HandleFunc("GET /health", a.health)
	a.mux.Handle("GET /metrics", promhttp.Handler())

	a.mux.HandleFunc("POST /api/auth/register", a.register)
	a.mux.HandleFunc("POST /api/auth/login", a.login)
	protect("GET /api/auth/me", a.me)

	protect("GET /api/projects", a.listProjects)
	protect("POST /api/projects", a.createProject)
	protect("GET /api/project/{id}", a.getProject)
	protect("PUT /api/project/{id}", a.updateProject)
	protect("DELETE /api/project/{id}", a.deleteProject)
	protect("GET /api/project/{id}/stats", a.projectStats)
	protect("GET /api/project/{id}/board", a.projectBoard)
	protect("GET /api/project/{id}/members", a.listMembers)
	protect("POST /api/project/{id}/members", a.addMember)
	protect("DELETE /api/project/{id}/members/{userID}", a.removeMember)

	protect("GET /api/project/{id}/tasks", a.listTasks)
	protect("POST /api/project/{id}/tasks", a.createTask)
	protect("GET /api/task/{id}", a.getTask)
	protect("PUT /api/task/{id}", a.updateTask)
	protect("DELETE /api/task/{id}", a.deleteTask)
	protect("POST /api/task/{id}/move", a.moveTask)

	protect("GET /api/task/{id}/comments", a.listComments)
	protect("POST /api/task/{id}/comments", a.createComment)
	protect("DELETE /api/comment/{id}", a.deleteComment)

	protect("POST /admin/generate_report", a.generateReport)
	protect("GET /admin/reports", a.listReports)
	protect("GET /admin/download_report/{id}", a.downloadReport)
	protect("POST /admin/create_backup", a.createBackup)
	if a.dashboard != nil {
		protect("GET /admin/dashboard/stats", a.dashboard.GetStats)
		protect("GET /admin/dashboard/jobs", a.dashboard.GetRecentJobs)
	}
}

func (a *API) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.handler.ServeHTTP(w, r)
}

func (a *API) health(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSON(w, map[string]string{"status": "ok"}, http.StatusOK)
}

func decodeJSON(r *http.Request, v any) error {
	defer func() {
		if err := r.Body.Close(); err != nil {
			log.Printf("failed to close request body: %v", err)
		}
	}()

	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return &auth.ValidationError{Fields: []string{"body (invalid JSON)"}}
	}
	return nil
}

func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, &auth.ValidationError{Fields: []string{fmt.Sprintf("%s (numeric)", name)}}
	}
	return id, nil
}

// writeError maps domain errors onto HTTP statuses. Unknown errors are logged and hidden.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		authValidation   *auth.ValidationError
		reportValidation *report.ValidationError
	)

	switch {
	case errors.Is(err, auth.ErrUnauthenticated), errors.Is(err, auth.ErrInvalidCredentials):
		httputil.WriteJSONError(w, err.Error(), http.StatusUnauthorized)
	case errors.Is(err, access.ErrForbidden):
		httputil.WriteJSONError(w, "Access denied", http.StatusForbidden)
	case errors.As(err, &authValidation), errors.As(err, &reportValidation):
		httputil.WriteJSONError(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, repository.ErrNotFound):
		httputil.WriteJSONError(w, "Not found", http.StatusNotFound)
	case errors.Is(err, report.ErrReportNotReady), errors.Is(err, report.ErrArtifactMissing):
		httputil.WriteJSONError(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, auth.ErrEmailTaken), errors.Is(err, repository.ErrDuplicate):
		httputil.WriteJSONError(w, err.Error(), http.StatusConflict)
	default:
		log.Printf("[API] %s %s failed: %v", r.Method, r.URL.Path, err)
		httputil.WriteJSONError(w, "Internal server error", http.StatusInternalServerError)
	}
}
