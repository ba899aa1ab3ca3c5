package api

import (
	"net/http"
	"strings"

	"github.com/bagaart/TaskFlow/internal/access"
	"github.com/bagaart/TaskFlow/internal/auth"
	"github.com/bagaart/TaskFlow/internal/httputil"
	"github.com/bagaart/TaskFlow/internal/models"
	"github.com/bagaart/TaskFlow/internal/report"
)

type ProjectRequest struct {
	Name        string `json:"name" validate:"required,min=1,max=255"`
	Description string `json:"description" validate:"max=5000"`
}

type MemberRequest struct {
	UserID int64              `json:"user_id" validate:"required,gt=0"`
	Role   models.ProjectRole `json:"role" validate:"required,oneof=member manager analyst"`
}

type ProjectStats struct {
	ProjectID     int64                  `json:"project_id"`
	TotalTasks    int                    `json:"total_tasks"`
	TasksByStatus report.StatusBreakdown `json:"tasks_by_status"`
}

type BoardColumn struct {
	Status models.TaskStatus `json:"status"`
	Title  string            `json:"title"`
	Tasks  []models.Task     `json:"tasks"`
}

// authorizeProject checks the capability and only then loads the project, so
// non-participants get 403 whether or not the id exists.
func (a *API) authorizeProject(r *http.Request, action access.Action) (*models.Project, error) {
	id, err := pathID(r, "id")
	if err != nil {
		return nil, err
	}
	user := auth.UserFromContext(r.Context())
	if err := a.guard.Authorize(r.Context(), user, access.ProjectResource(id), action); err != nil {
		return nil, err
	}
	return a.store.GetProject(r.Context(), id)
}

func (a *API) listProjects(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFromContext(r.Context())
	projects, err := a.store.ListProjectsForUser(r.Context(), user.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, projects, http.StatusOK)
}

// createProject makes the caller the owner and a manager of the new project.
func (a *API) createProject(w http.ResponseWriter, r *http.Request) {
	var req ProjectRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if err := a.auth.Validate(req); err != nil {
		writeError(w, r, err)
		return
	}

	user := auth.UserFromContext(r.Context())
	project := &models.Project{Name: req.Name, Description: req.Description, OwnerID: user.ID}
	if err := a.store.CreateProject(r.Context(), project); err != nil {
		writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, project, http.StatusCreated)
}

func (a *API) getProject(w http.ResponseWriter, r *http.Request) {
	project, err := a.authorizeProject(r, access.ActionView)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, project, http.StatusOK)
}

func (a *API) updateProject(w http.ResponseWriter, r *http.Request) {
	project, err := a.authorizeProject(r, access.ActionEdit)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req ProjectRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if err := a.auth.Validate(req); err != nil {
		writeError(w, r, err)
		return
	}

	project.Name = req.Name
	project.Description = req.Description
	if err := a.store.UpdateProject(r.Context(), project); err != nil {
		writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, project, http.StatusOK)
}

func (a *API) deleteProject(w http.ResponseWriter, r *http.Request) {
	project, err := a.authorizeProject(r, access.ActionManage)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := a.store.DeleteProject(r.Context(), project.ID); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) projectStats(w http.ResponseWriter, r *http.Request) {
	project, err := a.authorizeProject(r, access.ActionView)
	if err != nil {
		writeError(w, r, err)
		return
	}

	tasks, err := a.store.ListProjectTasks(r.Context(), project.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	stats := ProjectStats{ProjectID: project.ID}
	for _, t := range tasks {
		stats.TasksByStatus.Add(t.Status)
	}
	stats.TotalTasks = stats.TasksByStatus.Total()
	httputil.WriteJSON(w, stats, http.StatusOK)
}

// projectBoard groups the project's tasks into one column per status, in board order.
func (a *API) projectBoard(w http.ResponseWriter, r *http.Request) {
	project, err := a.authorizeProject(r, access.ActionView)
	if err != nil {
		writeError(w, r, err)
		return
	}

	tasks, err := a.store.ListProjectTasks(r.Context(), project.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	columns := make([]BoardColumn, 0, len(models.TaskStatuses))
	for _, status := range models.TaskStatuses {
		column := BoardColumn{Status: status, Title: status.Label(), Tasks: []models.Task{}}
		for _, t := range tasks {
			if t.Status == status {
				column.Tasks = append(column.Tasks, t)
			}
		}
		columns = append(columns, column)
	}
	httputil.WriteJSON(w, columns, http.StatusOK)
}

func (a *API) listMembers(w http.ResponseWriter, r *http.Request) {
	project, err := a.authorizeProject(r, access.ActionView)
	if err != nil {
		writeError(w, r, err)
		return
	}

	members, err := a.store.ListProjectMembers(r.Context(), project.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if members == nil {
		members = []models.ProjectMember{}
	}
	httputil.WriteJSON(w, members, http.StatusOK)
}

func (a *API) addMember(w http.ResponseWriter, r *http.Request) {
	project, err := a.authorizeProject(r, access.ActionManage)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req MemberRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := a.auth.Validate(req); err != nil {
		writeError(w, r, err)
		return
	}

	if _, err := a.store.GetUser(r.Context(), req.UserID); err != nil {
		writeError(w, r, err)
		return
	}
	if err := a.store.AddMember(r.Context(), project.ID, req.UserID, req.Role); err != nil {
		writeError(w, r, err)
		return
	}

	httputil.WriteJSON(w, models.ProjectMember{ProjectID: project.ID, UserID: req.UserID, Role: req.Role}, http.StatusCreated)
}

// removeMember refuses to remove the owner, who must stay a participant.
func (a *API) removeMember(w http.ResponseWriter, r *http.Request) {
	project, err := a.authorizeProject(r, access.ActionManage)
	if err != nil {
		writeError(w, r, err)
		return
	}

	userID, err := pathID(r, "userID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if userID == project.OwnerID {
		httputil.WriteJSONError(w, "The project owner cannot be removed", http.StatusBadRequest)
		return
	}

	if err := a.store.RemoveMember(r.Context(), project.ID, userID); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
