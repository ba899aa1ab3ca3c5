package api

import (
	"io"
	"log"
	"net/http"
	"strconv"

	"github.com/bagaart/TaskFlow/internal/access"
	"github.com/bagaart/TaskFlow/internal/auth"
	"github.com/bagaart/TaskFlow/internal/httputil"
	"github.com/bagaart/TaskFlow/internal/models"
	"github.com/bagaart/TaskFlow/internal/report"
)

type GenerateReportResponse struct {
	Success  bool  `json:"success"`
	ReportID int64 `json:"report_id"`
}

type BackupResponse struct {
	Success bool   `json:"success"`
	File    string `json:"file"`
}

// generateReport creates the report and returns without waiting for the job.
func (a *API) generateReport(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFromContext(r.Context())
	if !a.guard.IsAdmin(user) {
		writeError(w, r, access.ErrForbidden)
		return
	}

	var req report.Request
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	rep, err := a.reports.Request(r.Context(), user, req)
	if err != nil {
		writeError(w, r, err)
		return
	}

	httputil.WriteJSON(w, GenerateReportResponse{Success: true, ReportID: rep.ID}, http.StatusCreated)
}

func (a *API) listReports(w http.ResponseWriter, r *http.Request) {
	reports, err := a.reports.List(r.Context(), auth.UserFromContext(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if reports == nil {
		reports = []models.Report{}
	}
	httputil.WriteJSON(w, reports, http.StatusOK)
}

func (a *API) downloadReport(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}

	art, err := a.reports.Open(r.Context(), auth.UserFromContext(r.Context()), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	defer func() {
		if err := art.File.Close(); err != nil {
			log.Printf("[Report %d] failed to close artifact: %v", id, err)
		}
	}()

	w.Header().Set("Content-Type", art.ContentType)
	w.Header().Set("Content-Length", strconv.FormatInt(art.Size, 10))
	w.Header().Set("Content-Disposition", `attachment; filename="`+art.Name+`"`)
	w.WriteHeader(http.StatusOK)

	if _, err := io.Copy(w, art.File); err != nil {
		log.Printf("[Report %d] failed to stream artifact: %v", id, err)
	}
}

func (a *API) createBackup(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFromContext(r.Context())
	if err := a.guard.Authorize(r.Context(), user, access.AdminResource, access.ActionManage); err != nil {
		writeError(w, r, err)
		return
	}
	if a.backups == nil {
		httputil.WriteJSONError(w, "Backups are not configured", http.StatusServiceUnavailable)
		return
	}

	path, err := a.backups.Create(r.Context())
	if err != nil {
		httputil.WriteJSONError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	httputil.WriteJSON(w, BackupResponse{Success: true, File: path}, http.StatusOK)
}
