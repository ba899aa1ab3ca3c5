// Package access is the single authorization layer for TaskFlow. Every
// handler and the report pipeline ask the Guard before touching data.
package access

import (
	"context"
	"errors"
	"fmt"

	"github.com/bagaart/TaskFlow/internal/models"
)

var ErrForbidden = errors.New("forbidden")

type Action string

const (
	ActionView   Action = "view"
	ActionEdit   Action = "edit"
	ActionManage Action = "manage"
)

type ResourceKind string

const (
	KindProject ResourceKind = "project"
	KindTask    ResourceKind = "task"
	KindAdmin   ResourceKind = "admin"
)

// Resource identifies what is being accessed. Task is required for KindTask.
type Resource struct {
	Kind      ResourceKind
	ProjectID int64
	Task      *models.Task
}

func ProjectResource(projectID int64) Resource {
	return Resource{Kind: KindProject, ProjectID: projectID}
}

func TaskResource(t *models.Task) Resource {
	return Resource{Kind: KindTask, ProjectID: t.ProjectID, Task: t}
}

// AdminResource covers reports, backups and the admin dashboard.
var AdminResource = Resource{Kind: KindAdmin}

type MembershipReader interface {
	GetMembership(ctx context.Context, projectID, userID int64) (models.ProjectRole, bool, error)
}

type Guard struct {
	members MembershipReader
}

func NewGuard(members MembershipReader) *Guard {
	return &Guard{members: members}
}

func (g *Guard) IsAdmin(u *models.User) bool {
	return u != nil && u.IsAdmin
}

// CanViewProject is true for any participant of the project. Admin status
// does not grant access to project data.
func (g *Guard) CanViewProject(ctx context.Context, u *models.User, projectID int64) (bool, error) {
	if u == nil {
		return false, nil
	}
	_, ok, err := g.members.GetMembership(ctx, projectID, u.ID)
	if err != nil {
		return false, fmt.Errorf("failed to check membership: %w", err)
	}
	return ok, nil
}

func (g *Guard) CanManageProject(ctx context.Context, u *models.User, projectID int64) (bool, error) {
	return g.hasRole(ctx, u, projectID, models.RoleManager)
}

// CanManageTask requires the manager role on the task's project.
func (g *Guard) CanManageTask(ctx context.Context, u *models.User, t *models.Task) (bool, error) {
	if t == nil {
		return false, nil
	}
	return g.hasRole(ctx, u, t.ProjectID, models.RoleManager)
}

// CanEditTask lets the project manager, the task manager and the task's
// executors change status and comment.
func (g *Guard) CanEditTask(ctx context.Context, u *models.User, t *models.Task) (bool, error) {
	if u == nil || t == nil {
		return false, nil
	}
	if t.ManagerID != nil && *t.ManagerID == u.ID {
		return true, nil
	}
	if t.IsExecutor(u.ID) {
		return true, nil
	}
	return g.CanManageTask(ctx, u, t)
}

func (g *Guard) hasRole(ctx context.Context, u *models.User, projectID int64, want models.ProjectRole) (bool, error) {
	if u == nil {
		return false, nil
	}
	role, ok, err := g.members.GetMembership(ctx, projectID, u.ID)
	if err != nil {
		return false, fmt.Errorf("failed to check membership: %w", err)
	}
	return ok && role == want, nil
}

// Authorize maps (resource, action) onto the named capabilities and returns
// ErrForbidden when the user lacks it.
func (g *Guard) Authorize(ctx context.Context, u *models.User, res Resource, action Action) error {
	var (
		allowed bool
		err     error
	)

	switch res.Kind {
	case KindAdmin:
		allowed = g.IsAdmin(u)
	case KindProject:
		switch action {
		case ActionView:
			allowed, err = g.CanViewProject(ctx, u, res.ProjectID)
		case ActionEdit, ActionManage:
			allowed, err = g.CanManageProject(ctx, u, res.ProjectID)
		}
	case KindTask:
		switch action {
		case ActionView:
			allowed, err = g.CanViewProject(ctx, u, res.ProjectID)
		case ActionEdit:
			allowed, err = g.CanEditTask(ctx, u, res.Task)
		case ActionManage:
			allowed, err = g.CanManageTask(ctx, u, res.Task)
		}
	}

	if err != nil {
		return err
	}
	if !allowed {
		return ErrForbidden
	}
	return nil
}
