package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/bagaart/TaskFlow/internal/access"
	"github.com/bagaart/TaskFlow/internal/auth"
	"github.com/bagaart/TaskFlow/internal/dashboard"
	"github.com/bagaart/TaskFlow/internal/models"
	"github.com/bagaart/TaskFlow/internal/queue"
	"github.com/bagaart/TaskFlow/internal/report"
	"github.com/bagaart/TaskFlow/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBackups struct {
	path  string
	err   error
	calls int
}

func (b *fakeBackups) Create(ctx context.Context) (string, error) {
	b.calls++
	return b.path, b.err
}

type testEnv struct {
	api     *API
	store   *repository.MockStore
	queue   *queue.Queue
	tokens  *auth.TokenIssuer
	backups *fakeBackups
}

func setupTestAPI(t *testing.T) *testEnv {
	t.Helper()
	mr := miniredis.RunT(t)

	q, err := queue.NewQueue(mr.Addr())
	require.NoError(t, err)
	t.Cleanup(func() { _ = q.Close() })

	store := repository.NewMockStore()
	guard := access.NewGuard(store)
	tokens := auth.NewTokenIssuer("test-secret", time.Hour)
	backups := &fakeBackups{path: "instance/backups/backup_20240101_000000.sql"}

	api := NewAPI(Deps{
		Store:     store,
		Guard:     guard,
		Auth:      auth.NewService(store, tokens),
		Tokens:    tokens,
		Reports:   report.NewService(store, guard, q),
		Dashboard: dashboard.NewDashboard(q, store, guard),
		Backups:   backups,
	})

	return &testEnv{api: api, store: store, queue: q, tokens: tokens, backups: backups}
}

// user creates a user and returns it with a bearer token.
func (e *testEnv) user(t *testing.T, name string, admin bool) (*models.User, string) {
	t.Helper()
	u := &models.User{Name: name, Email: name + "@example.com", IsAdmin: admin}
	require.NoError(t, e.store.CreateUser(context.Background(), u))

	token, err := e.tokens.Issue(u.ID)
	require.NoError(t, err)
	return u, token
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	e.api.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

// project creates a project owned by owner with the given extra participants.
func (e *testEnv) project(t *testing.T, owner *models.User, members map[*models.User]models.ProjectRole) *models.Project {
	t.Helper()
	ctx := context.Background()
	p := &models.Project{Name: "Apollo", Description: "Moon landing", OwnerID: owner.ID}
	require.NoError(t, e.store.CreateProject(ctx, p))
	for u, role := range members {
		require.NoError(t, e.store.AddMember(ctx, p.ID, u.ID, role))
	}
	return p
}

func TestHealthAndMetrics(t *testing.T) {
	env := setupTestAPI(t)

	w := env.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())

	w = env.do(t, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "taskflow_http_requests_total")
}

func TestRegisterAndLogin(t *testing.T) {
	env := setupTestAPI(t)

	reg := auth.RegisterRequest{Name: "Ann", Email: "ann@example.com", Password: "s3cret-pass", ConfirmPassword: "s3cret-pass"}
	w := env.do(t, http.MethodPost, "/api/auth/register", "", reg)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode[tokenResponse](t, w)
	assert.NotEmpty(t, created.Token)
	assert.Equal(t, "ann@example.com", created.User.Email)
	assert.NotContains(t, w.Body.String(), "password")

	w = env.do(t, http.MethodPost, "/api/auth/register", "", reg)
	assert.Equal(t, http.StatusConflict, w.Code)

	reg.ConfirmPassword = "different"
	reg.Email = "other@example.com"
	w = env.do(t, http.MethodPost, "/api/auth/register", "", reg)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "confirmpassword")

	w = env.do(t, http.MethodPost, "/api/auth/login", "", auth.LoginRequest{Email: "ann@example.com", Password: "s3cret-pass"})
	require.Equal(t, http.StatusOK, w.Code)
	login := decode[tokenResponse](t, w)

	w = env.do(t, http.MethodGet, "/api/auth/me", login.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Ann", decode[models.User](t, w).Name)

	w = env.do(t, http.MethodPost, "/api/auth/login", "", auth.LoginRequest{Email: "ann@example.com", Password: "wrong-pass"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	env := setupTestAPI(t)

	for _, path := range []string{"/api/auth/me", "/api/projects", "/admin/reports"} {
		w := env.do(t, http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code, path)

		w = env.do(t, http.MethodGet, path, "garbage", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code, path)
	}
}

func TestInvalidJSONBody(t *testing.T) {
	env := setupTestAPI(t)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", bytes.NewBufferString("{not json"))
	w := httptest.NewRecorder()
	env.api.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestProjectLifecycle(t *testing.T) {
	env := setupTestAPI(t)
	_, bobToken := env.user(t, "bob", false)
	ann, annToken := env.user(t, "ann", false)

	w := env.do(t, http.MethodPost, "/api/projects", bobToken, ProjectRequest{Name: "  Apollo  ", Description: "Moon"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	project := decode[models.Project](t, w)
	assert.Equal(t, "Apollo", project.Name)
	path := "/api/project/" + itoa(project.ID)

	w = env.do(t, http.MethodPost, "/api/projects", bobToken, ProjectRequest{Name: " "})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodGet, path, annToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code, "non-members cannot view")

	w = env.do(t, http.MethodPost, path+"/members", bobToken, MemberRequest{UserID: ann.ID, Role: models.RoleMember})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = env.do(t, http.MethodGet, path, annToken, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, http.MethodGet, "/api/projects", annToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]models.Project](t, w), 1)

	w = env.do(t, http.MethodPut, path, annToken, ProjectRequest{Name: "Renamed"})
	assert.Equal(t, http.StatusForbidden, w.Code, "members cannot edit")

	w = env.do(t, http.MethodPut, path, bobToken, ProjectRequest{Name: "Artemis"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Artemis", decode[models.Project](t, w).Name)

	w = env.do(t, http.MethodGet, path+"/members", annToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]models.ProjectMember](t, w), 2)

	w = env.do(t, http.MethodDelete, path+"/members/"+itoa(project.OwnerID), bobToken, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodDelete, path+"/members/"+itoa(ann.ID), bobToken, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = env.do(t, http.MethodDelete, path, annToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = env.do(t, http.MethodDelete, path, bobToken, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = env.do(t, http.MethodGet, path, bobToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code, "memberships go with the project")
}

func TestProjectAccess_MissingAndExistingLookAlike(t *testing.T) {
	env := setupTestAPI(t)
	bob, _ := env.user(t, "bob", false)
	_, eveToken := env.user(t, "eve", false)
	p := env.project(t, bob, nil)

	for _, suffix := range []string{"", "/stats", "/board", "/members", "/tasks"} {
		existing := env.do(t, http.MethodGet, "/api/project/"+itoa(p.ID)+suffix, eveToken, nil)
		missing := env.do(t, http.MethodGet, "/api/project/"+itoa(p.ID+1000)+suffix, eveToken, nil)

		assert.Equal(t, http.StatusForbidden, existing.Code, suffix)
		assert.Equal(t, existing.Code, missing.Code, suffix)
		assert.Equal(t, existing.Body.String(), missing.Body.String(), suffix)
	}
}

func TestAddMemberValidation(t *testing.T) {
	env := setupTestAPI(t)
	bob, bobToken := env.user(t, "bob", false)
	p := env.project(t, bob, nil)
	path := "/api/project/" + itoa(p.ID) + "/members"

	w := env.do(t, http.MethodPost, path, bobToken, MemberRequest{UserID: 999, Role: models.RoleMember})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(t, http.MethodPost, path, bobToken, map[string]any{"user_id": bob.ID, "role": "owner"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestProjectStats_NonParticipantForbidden(t *testing.T) {
	env := setupTestAPI(t)
	bob, _ := env.user(t, "bob", false)
	_, eveToken := env.user(t, "eve", false)
	_, adminToken := env.user(t, "admin", true)
	p := env.project(t, bob, nil)

	w := env.do(t, http.MethodGet, "/api/project/"+itoa(p.ID)+"/stats", eveToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.JSONEq(t, `{"error":"Access denied"}`, w.Body.String())

	w = env.do(t, http.MethodGet, "/api/project/"+itoa(p.ID)+"/stats", adminToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code, "admins use the report surface for project data")
}

func TestProjectStatsAndBoard(t *testing.T) {
	env := setupTestAPI(t)
	ctx := context.Background()
	bob, _ := env.user(t, "bob", false)
	ann, annToken := env.user(t, "ann", false)
	p := env.project(t, bob, map[*models.User]models.ProjectRole{ann: models.RoleAnalyst})

	for _, st := range []models.TaskStatus{models.StatusTodo, models.StatusDone, models.StatusDone} {
		require.NoError(t, env.store.CreateTask(ctx, &models.Task{ProjectID: p.ID, Title: "t", Status: st}))
	}

	w := env.do(t, http.MethodGet, "/api/project/"+itoa(p.ID)+"/stats", annToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	stats := decode[ProjectStats](t, w)
	assert.Equal(t, 3, stats.TotalTasks)
	assert.Equal(t, report.StatusBreakdown{Todo: 1, Done: 2}, stats.TasksByStatus)
	assert.Equal(t, stats.TotalTasks, stats.TasksByStatus.Total())

	w = env.do(t, http.MethodGet, "/api/project/"+itoa(p.ID)+"/board", annToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	board := decode[[]BoardColumn](t, w)
	require.Len(t, board, 3)
	assert.Equal(t, "To Do", board[0].Title)
	assert.Len(t, board[0].Tasks, 1)
	assert.Equal(t, "In Progress", board[1].Title)
	assert.Empty(t, board[1].Tasks)
	assert.Len(t, board[2].Tasks, 2)
}

func TestTaskLifecycle(t *testing.T) {
	env := setupTestAPI(t)
	bob, bobToken := env.user(t, "bob", false)
	ann, annToken := env.user(t, "ann", false)
	carl, carlToken := env.user(t, "carl", false)
	outsider, _ := env.user(t, "eve", false)
	p := env.project(t, bob, map[*models.User]models.ProjectRole{ann: models.RoleMember, carl: models.RoleMember})
	tasksPath := "/api/project/" + itoa(p.ID) + "/tasks"

	deadline := time.Date(2024, 4, 15, 18, 0, 0, 0, time.UTC)
	req := TaskRequest{Title: "Design", Deadline: &deadline, ManagerID: &bob.ID, ExecutorIDs: []int64{ann.ID}}

	w := env.do(t, http.MethodPost, tasksPath, annToken, req)
	assert.Equal(t, http.StatusForbidden, w.Code, "members cannot create tasks")

	bad := req
	bad.ExecutorIDs = []int64{outsider.ID}
	w = env.do(t, http.MethodPost, tasksPath, bobToken, bad)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "not a project participant")

	w = env.do(t, http.MethodPost, tasksPath, bobToken, req)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	task := decode[models.Task](t, w)
	assert.Equal(t, models.StatusTodo, task.Status)
	taskPath := "/api/task/" + itoa(task.ID)

	w = env.do(t, http.MethodGet, tasksPath, carlToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]models.Task](t, w), 1)

	w = env.do(t, http.MethodPost, taskPath+"/move", carlToken, MoveRequest{Status: "done"})
	assert.Equal(t, http.StatusForbidden, w.Code, "only executors and managers move tasks")

	w = env.do(t, http.MethodPost, taskPath+"/move", annToken, MoveRequest{Status: "In Progress"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, models.StatusInProgress, decode[models.Task](t, w).Status)

	w = env.do(t, http.MethodPost, taskPath+"/move", annToken, MoveRequest{Status: "blocked"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodPut, taskPath, annToken, TaskRequest{Title: "Renamed"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = env.do(t, http.MethodPut, taskPath, bobToken, TaskRequest{Title: "Renamed", ExecutorIDs: []int64{ann.ID, carl.ID}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	updated := decode[models.Task](t, w)
	assert.Equal(t, "Renamed", updated.Title)
	assert.Equal(t, models.StatusInProgress, updated.Status, "status is kept when omitted")
	assert.ElementsMatch(t, []int64{ann.ID, carl.ID}, updated.ExecutorIDs)

	w = env.do(t, http.MethodGet, taskPath, carlToken, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, http.MethodDelete, taskPath, bobToken, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = env.do(t, http.MethodGet, taskPath, bobToken, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(t, http.MethodGet, "/api/task/abc", bobToken, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestComments(t *testing.T) {
	env := setupTestAPI(t)
	ctx := context.Background()
	bob, bobToken := env.user(t, "bob", false)
	ann, annToken := env.user(t, "ann", false)
	carl, carlToken := env.user(t, "carl", false)
	p := env.project(t, bob, map[*models.User]models.ProjectRole{ann: models.RoleMember, carl: models.RoleMember})

	task := &models.Task{ProjectID: p.ID, Title: "Design", Status: models.StatusTodo, ExecutorIDs: []int64{ann.ID}}
	require.NoError(t, env.store.CreateTask(ctx, task))
	path := "/api/task/" + itoa(task.ID) + "/comments"

	w := env.do(t, http.MethodPost, path, carlToken, CommentRequest{Body: "hi"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = env.do(t, http.MethodPost, path, annToken, CommentRequest{Body: "   "})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodPost, path, annToken, CommentRequest{Body: "Started on it"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	comment := decode[models.Comment](t, w)
	assert.Equal(t, ann.ID, comment.AuthorID)

	w = env.do(t, http.MethodGet, path, carlToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]models.Comment](t, w), 1)

	w = env.do(t, http.MethodDelete, "/api/comment/"+itoa(comment.ID), carlToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = env.do(t, http.MethodDelete, "/api/comment/"+itoa(comment.ID), bobToken, nil)
	assert.Equal(t, http.StatusNoContent, w.Code, "project managers may delete any comment")
}
