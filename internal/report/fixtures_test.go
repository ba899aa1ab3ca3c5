package report

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/bagaart/TaskFlow/internal/models"
	"github.com/bagaart/TaskFlow/internal/repository"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	store   *repository.MockStore
	admin   *models.User
	ann     *models.User
	bob     *models.User
	project *models.Project
	tasks   []*models.Task
}

// seedUsersScenario creates one project with three tasks all executed by Ann:
// one To Do and two Done.
func seedUsersScenario(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	store := repository.NewMockStore()

	admin := &models.User{Name: "Admin", Email: "admin@example.com", IsAdmin: true}
	ann := &models.User{Name: "Ann", Email: "ann@example.com"}
	bob := &models.User{Name: "Bob", Email: "bob@example.com"}
	for _, u := range []*models.User{admin, ann, bob} {
		require.NoError(t, store.CreateUser(ctx, u))
	}

	project := &models.Project{
		Name:        "Apollo",
		Description: "Moon landing",
		OwnerID:     bob.ID,
		CreatedAt:   time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC),
	}
	require.NoError(t, store.CreateProject(ctx, project))
	require.NoError(t, store.AddMember(ctx, project.ID, ann.ID, models.RoleMember))

	deadline := time.Date(2024, 4, 15, 18, 0, 0, 0, time.UTC)
	created := time.Date(2024, 3, 2, 10, 5, 0, 0, time.UTC)
	tasks := []*models.Task{
		{ProjectID: project.ID, Title: "Design", Status: models.StatusTodo, ManagerID: &bob.ID, ExecutorIDs: []int64{ann.ID}, Deadline: &deadline, CreatedAt: created},
		{ProjectID: project.ID, Title: "Build", Status: models.StatusDone, ExecutorIDs: []int64{ann.ID}, CreatedAt: created},
		{ProjectID: project.ID, Title: "Launch", Status: models.StatusDone, ExecutorIDs: []int64{ann.ID}, CreatedAt: created},
	}
	for _, task := range tasks {
		require.NoError(t, store.CreateTask(ctx, task))
	}

	return &fixture{store: store, admin: admin, ann: ann, bob: bob, project: project, tasks: tasks}
}

// testFontDir returns the absolute path of the DejaVu fonts shipped in testdata.
func testFontDir(t *testing.T) string {
	t.Helper()
	dir, err := filepath.Abs(filepath.Join("testdata", "fonts"))
	require.NoError(t, err)
	return dir
}

func createReport(t *testing.T, store *repository.MockStore, typ models.ReportType, format models.ReportFormat, params map[string]any, requestedBy int64) *models.Report {
	t.Helper()
	rep := &models.Report{Type: typ, Format: format, Parameters: params, RequestedBy: requestedBy}
	require.NoError(t, store.CreateReport(context.Background(), rep))
	return rep
}

func dirEntries(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil
	}
	require.NoError(t, err)

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}
