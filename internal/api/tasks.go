package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/bagaart/TaskFlow/internal/access"
	"github.com/bagaart/TaskFlow/internal/auth"
	"github.com/bagaart/TaskFlow/internal/httputil"
	"github.com/bagaart/TaskFlow/internal/models"
)

type TaskRequest struct {
	Title       string     `json:"title" validate:"required,min=1,max=255"`
	Description string     `json:"description" validate:"max=5000"`
	Status      string     `json:"status"`
	Deadline    *time.Time `json:"deadline"`
	ManagerID   *int64     `json:"manager_id" validate:"omitempty,gt=0"`
	ExecutorIDs []int64    `json:"executor_ids" validate:"dive,gt=0"`
}

type MoveRequest struct {
	Status string `json:"status" validate:"required"`
}

type CommentRequest struct {
	Body string `json:"body" validate:"required,max=5000"`
}

// authorizeTask checks the capability and loads the task.
func (a *API) authorizeTask(r *http.Request, action access.Action) (*models.Task, error) {
	id, err := pathID(r, "id")
	if err != nil {
		return nil, err
	}
	task, err := a.store.GetTask(r.Context(), id)
	if err != nil {
		return nil, err
	}
	user := auth.UserFromContext(r.Context())
	if err := a.guard.Authorize(r.Context(), user, access.TaskResource(task), action); err != nil {
		return nil, err
	}
	return task, nil
}

// applyTaskRequest validates req and copies it onto t. Manager and executors
// must already participate in the task's project.
func (a *API) applyTaskRequest(ctx context.Context, req TaskRequest, t *models.Task) error {
	req.Title = strings.TrimSpace(req.Title)
	if err := a.auth.Validate(req); err != nil {
		return err
	}

	status := models.StatusTodo
	if req.Status != "" {
		parsed, err := models.ParseTaskStatus(req.Status)
		if err != nil {
			return &auth.ValidationError{Fields: []string{"status (oneof)"}}
		}
		status = parsed
	}

	assignees := append([]int64{}, req.ExecutorIDs...)
	if req.ManagerID != nil {
		assignees = append(assignees, *req.ManagerID)
	}
	for _, userID := range assignees {
		_, ok, err := a.store.GetMembership(ctx, t.ProjectID, userID)
		if err != nil {
			return err
		}
		if !ok {
			return &auth.ValidationError{Fields: []string{fmt.Sprintf("user %d (not a project participant)", userID)}}
		}
	}

	t.Title = req.Title
	t.Description = req.Description
	t.Status = status
	t.Deadline = req.Deadline
	t.ManagerID = req.ManagerID
	t.ExecutorIDs = req.ExecutorIDs
	if t.ExecutorIDs == nil {
		t.ExecutorIDs = []int64{}
	}
	return nil
}

func (a *API) listTasks(w http.ResponseWriter, r *http.Request) {
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
	if tasks == nil {
		tasks = []models.Task{}
	}
	httputil.WriteJSON(w, tasks, http.StatusOK)
}

func (a *API) createTask(w http.ResponseWriter, r *http.Request) {
	project, err := a.authorizeProject(r, access.ActionManage)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req TaskRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	task := &models.Task{ProjectID: project.ID}
	if err := a.applyTaskRequest(r.Context(), req, task); err != nil {
		writeError(w, r, err)
		return
	}
	if err := a.store.CreateTask(r.Context(), task); err != nil {
		writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, task, http.StatusCreated)
}

func (a *API) getTask(w http.ResponseWriter, r *http.Request) {
	task, err := a.authorizeTask(r, access.ActionView)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, task, http.StatusOK)
}

func (a *API) updateTask(w http.ResponseWriter, r *http.Request) {
	task, err := a.authorizeTask(r, access.ActionManage)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req TaskRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.Status == "" {
		req.Status = string(task.Status)
	}
	if err := a.applyTaskRequest(r.Context(), req, task); err != nil {
		writeError(w, r, err)
		return
	}
	if err := a.store.UpdateTask(r.Context(), task); err != nil {
		writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, task, http.StatusOK)
}

func (a *API) deleteTask(w http.ResponseWriter, r *http.Request) {
	task, err := a.authorizeTask(r, access.ActionManage)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := a.store.DeleteTask(r.Context(), task.ID); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// moveTask changes the board column of a task.
func (a *API) moveTask(w http.ResponseWriter, r *http.Request) {
	task, err := a.authorizeTask(r, access.ActionEdit)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req MoveRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := a.auth.Validate(req); err != nil {
		writeError(w, r, err)
		return
	}
	status, err := models.ParseTaskStatus(req.Status)
	if err != nil {
		writeError(w, r, &auth.ValidationError{Fields: []string{"status (oneof)"}})
		return
	}

	if err := a.store.UpdateTaskStatus(r.Context(), task.ID, status); err != nil {
		writeError(w, r, err)
		return
	}
	task.Status = status
	httputil.WriteJSON(w, task, http.StatusOK)
}

func (a *API) listComments(w http.ResponseWriter, r *http.Request) {
	task, err := a.authorizeTask(r, access.ActionView)
	if err != nil {
		writeError(w, r, err)
		return
	}

	comments, err := a.store.ListComments(r.Context(), task.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if comments == nil {
		comments = []models.Comment{}
	}
	httputil.WriteJSON(w, comments, http.StatusOK)
}

func (a *API) createComment(w http.ResponseWriter, r *http.Request) {
	task, err := a.authorizeTask(r, access.ActionEdit)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req CommentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	req.Body = strings.TrimSpace(req.Body)
	if err := a.auth.Validate(req); err != nil {
		writeError(w, r, err)
		return
	}

	user := auth.UserFromContext(r.Context())
	comment := &models.Comment{TaskID: task.ID, AuthorID: user.ID, Body: req.Body}
	if err := a.store.CreateComment(r.Context(), comment); err != nil {
		writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, comment, http.StatusCreated)
}

// deleteComment is allowed to the author and to whoever may manage the task.
func (a *API) deleteComment(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}

	comment, err := a.store.GetComment(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	user := auth.UserFromContext(r.Context())
	if comment.AuthorID != user.ID {
		task, err := a.store.GetTask(r.Context(), comment.TaskID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		if err := a.guard.Authorize(r.Context(), user, access.TaskResource(task), access.ActionManage); err != nil {
			writeError(w, r, err)
			return
		}
	}

	if err := a.store.DeleteComment(r.Context(), comment.ID); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
