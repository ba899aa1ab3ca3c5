package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/bagaart/TaskFlow/internal/models"
)

// MockStore is an in-memory Store used by tests across packages.
// It records report transitions so tests can assert on the state machine.
type MockStore struct {
	mu sync.Mutex

	Users    map[int64]*models.User
	Projects map[int64]*models.Project
	Members  map[int64]map[int64]models.ProjectRole
	Tasks    map[int64]*models.Task
	Comments map[int64]*models.Comment
	Reports  map[int64]*models.Report

	ClaimReportCalls    []ClaimReportCall
	CompleteReportCalls []CompleteReportCall
	FailReportCalls     []FailReportCall

	ListTasksError      error
	ListUsersError      error
	ListProjectsError   error
	CreateReportError   error
	CompleteReportError error
	FailReportError     error
	GetMembershipError  error

	nextID int64
}

type ClaimReportCall struct {
	ReportID int64
	WorkerID string
	Claimed  bool
}

type CompleteReportCall struct {
	ReportID int64
	FilePath string
}

type FailReportCall struct {
	ReportID int64
	Message  string
}

var _ Store = (*MockStore)(nil)

func NewMockStore() *MockStore {
	return &MockStore{
		Users:    make(map[int64]*models.User),
		Projects: make(map[int64]*models.Project),
		Members:  make(map[int64]map[int64]models.ProjectRole),
		Tasks:    make(map[int64]*models.Task),
		Comments: make(map[int64]*models.Comment),
		Reports:  make(map[int64]*models.Report),
	}
}

func (m *MockStore) id() int64 {
	m.nextID++
	return m.nextID
}

func (m *MockStore) CreateUser(ctx context.Context, u *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	email := strings.ToLower(u.Email)
	for _, existing := range m.Users {
		if existing.Email == email {
			return ErrDuplicate
		}
	}

	u.ID = m.id()
	u.Email = email
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now()
	}
	userCopy := *u
	m.Users[u.ID] = &userCopy
	return nil
}

func (m *MockStore) GetUser(ctx context.Context, id int64) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.Users[id]
	if !ok {
		return nil, ErrNotFound
	}
	userCopy := *u
	return &userCopy, nil
}

func (m *MockStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, u := range m.Users {
		if u.Email == strings.ToLower(email) {
			userCopy := *u
			return &userCopy, nil
		}
	}
	return nil, ErrNotFound
}

func (m *MockStore) ListUsers(ctx context.Context) ([]models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.ListUsersError != nil {
		return nil, m.ListUsersError
	}

	users := make([]models.User, 0, len(m.Users))
	for _, u := range m.Users {
		users = append(users, *u)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users, nil
}

func (m *MockStore) CreateProject(ctx context.Context, p *models.Project) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	p.ID = m.id()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}
	projectCopy := *p
	m.Projects[p.ID] = &projectCopy
	m.Members[p.ID] = map[int64]models.ProjectRole{p.OwnerID: models.RoleManager}
	return nil
}

func (m *MockStore) GetProject(ctx context.Context, id int64) (*models.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.Projects[id]
	if !ok {
		return nil, ErrNotFound
	}
	projectCopy := *p
	return &projectCopy, nil
}

func (m *MockStore) UpdateProject(ctx context.Context, p *models.Project) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.Projects[p.ID]
	if !ok {
		return ErrNotFound
	}
	existing.Name = p.Name
	existing.Description = p.Description
	return nil
}

func (m *MockStore) DeleteProject(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.Projects[id]; !ok {
		return ErrNotFound
	}
	delete(m.Projects, id)
	delete(m.Members, id)
	for taskID, t := range m.Tasks {
		if t.ProjectID == id {
			delete(m.Tasks, taskID)
		}
	}
	return nil
}

func (m *MockStore) ListProjects(ctx context.Context) ([]models.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.ListProjectsError != nil {
		return nil, m.ListProjectsError
	}
	return m.sortedProjects(func(*models.Project) bool { return true }), nil
}

func (m *MockStore) ListProjectsForUser(ctx context.Context, userID int64) ([]models.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.sortedProjects(func(p *models.Project) bool {
		_, ok := m.Members[p.ID][userID]
		return ok
	}), nil
}

func (m *MockStore) sortedProjects(keep func(*models.Project) bool) []models.Project {
	projects := make([]models.Project, 0, len(m.Projects))
	for _, p := range m.Projects {
		if keep(p) {
			projects = append(projects, *p)
		}
	}
	sort.Slice(projects, func(i, j int) bool { return projects[i].ID < projects[j].ID })
	return projects
}

func (m *MockStore) GetMembership(ctx context.Context, projectID, userID int64) (models.ProjectRole, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.GetMembershipError != nil {
		return "", false, m.GetMembershipError
	}
	role, ok := m.Members[projectID][userID]
	return role, ok, nil
}

func (m *MockStore) AddMember(ctx context.Context, projectID, userID int64, role models.ProjectRole) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.Projects[projectID]; !ok {
		return ErrNotFound
	}
	if m.Members[projectID] == nil {
		m.Members[projectID] = make(map[int64]models.ProjectRole)
	}
	m.Members[projectID][userID] = role
	return nil
}

func (m *MockStore) RemoveMember(ctx context.Context, projectID, userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.Members[projectID][userID]; !ok {
		return ErrNotFound
	}
	delete(m.Members[projectID], userID)
	return nil
}

func (m *MockStore) ListMembers(ctx context.Context) ([]models.ProjectMember, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var members []models.ProjectMember
	for projectID := range m.Members {
		members = append(members, m.projectMembers(projectID)...)
	}
	sort.Slice(members, func(i, j int) bool {
		if members[i].ProjectID != members[j].ProjectID {
			return members[i].ProjectID < members[j].ProjectID
		}
		return members[i].UserID < members[j].UserID
	})
	return members, nil
}

func (m *MockStore) ListProjectMembers(ctx context.Context, projectID int64) ([]models.ProjectMember, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	members := m.projectMembers(projectID)
	sort.Slice(members, func(i, j int) bool { return members[i].UserID < members[j].UserID })
	return members, nil
}

func (m *MockStore) projectMembers(projectID int64) []models.ProjectMember {
	var members []models.ProjectMember
	for userID, role := range m.Members[projectID] {
		name := ""
		if u, ok := m.Users[userID]; ok {
			name = u.Name
		}
		members = append(members, models.ProjectMember{
			ProjectID: projectID,
			UserID:    userID,
			UserName:  name,
			Role:      role,
		})
	}
	return members
}

func copyTask(t *models.Task) models.Task {
	c := *t
	c.ExecutorIDs = append([]int64{}, t.ExecutorIDs...)
	sort.Slice(c.ExecutorIDs, func(i, j int) bool { return c.ExecutorIDs[i] < c.ExecutorIDs[j] })
	return c
}

func (m *MockStore) CreateTask(ctx context.Context, t *models.Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if t.Status == "" {
		t.Status = models.StatusTodo
	}
	t.ID = m.id()
	now := time.Now()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	t.UpdatedAt = now
	if t.ExecutorIDs == nil {
		t.ExecutorIDs = []int64{}
	}
	stored := copyTask(t)
	m.Tasks[t.ID] = &stored
	return nil
}

func (m *MockStore) GetTask(ctx context.Context, id int64) (*models.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.Tasks[id]
	if !ok {
		return nil, ErrNotFound
	}
	c := copyTask(t)
	return &c, nil
}

func (m *MockStore) UpdateTask(ctx context.Context, t *models.Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.Tasks[t.ID]
	if !ok {
		return ErrNotFound
	}
	t.CreatedAt = existing.CreatedAt
	t.ProjectID = existing.ProjectID
	t.UpdatedAt = time.Now()
	stored := copyTask(t)
	m.Tasks[t.ID] = &stored
	return nil
}

func (m *MockStore) UpdateTaskStatus(ctx context.Context, id int64, status models.TaskStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.Tasks[id]
	if !ok {
		return ErrNotFound
	}
	t.Status = status
	t.UpdatedAt = time.Now()
	return nil
}

func (m *MockStore) DeleteTask(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.Tasks[id]; !ok {
		return ErrNotFound
	}
	delete(m.Tasks, id)
	return nil
}

func (m *MockStore) ListTasks(ctx context.Context) ([]models.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.ListTasksError != nil {
		return nil, m.ListTasksError
	}
	return m.sortedTasks(func(*models.Task) bool { return true }), nil
}

func (m *MockStore) ListProjectTasks(ctx context.Context, projectID int64) ([]models.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.sortedTasks(func(t *models.Task) bool { return t.ProjectID == projectID }), nil
}

func (m *MockStore) sortedTasks(keep func(*models.Task) bool) []models.Task {
	tasks := make([]models.Task, 0, len(m.Tasks))
	for _, t := range m.Tasks {
		if keep(t) {
			tasks = append(tasks, copyTask(t))
		}
	}
	sort.Slice(tasks, func(i, j int) bool { return tasks[i].ID < tasks[j].ID })
	return tasks
}

func (m *MockStore) CreateComment(ctx context.Context, c *models.Comment) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	c.ID = m.id()
	c.CreatedAt = time.Now()
	commentCopy := *c
	m.Comments[c.ID] = &commentCopy
	return nil
}

func (m *MockStore) GetComment(ctx context.Context, id int64) (*models.Comment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.Comments[id]
	if !ok {
		return nil, ErrNotFound
	}
	commentCopy := *c
	return &commentCopy, nil
}

func (m *MockStore) DeleteComment(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.Comments[id]; !ok {
		return ErrNotFound
	}
	delete(m.Comments, id)
	return nil
}

func (m *MockStore) ListComments(ctx context.Context, taskID int64) ([]models.Comment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var comments []models.Comment
	for _, c := range m.Comments {
		if c.TaskID == taskID {
			comments = append(comments, *c)
		}
	}
	sort.Slice(comments, func(i, j int) bool { return comments[i].ID < comments[j].ID })
	return comments, nil
}

func (m *MockStore) CreateReport(ctx context.Context, r *models.Report) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.CreateReportError != nil {
		return m.CreateReportError
	}
	if r.Parameters == nil {
		r.Parameters = map[string]any{}
	}
	r.ID = m.id()
	r.Status = models.ReportPending
	r.FilePath = nil
	r.ErrorMessage = nil
	r.ClaimedBy = nil
	r.CompletedAt = nil
	if r.Timestamp.IsZero() {
		r.Timestamp = time.Now()
	}
	reportCopy := *r
	m.Reports[r.ID] = &reportCopy
	return nil
}

func (m *MockStore) GetReport(ctx context.Context, id int64) (*models.Report, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.Reports[id]
	if !ok {
		return nil, ErrNotFound
	}
	reportCopy := *r
	return &reportCopy, nil
}

func (m *MockStore) ListRecentReports(ctx context.Context, limit int) ([]models.Report, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	reports := make([]models.Report, 0, len(m.Reports))
	for _, r := range m.Reports {
		reports = append(reports, *r)
	}
	sort.Slice(reports, func(i, j int) bool {
		if !reports[i].Timestamp.Equal(reports[j].Timestamp) {
			return reports[i].Timestamp.After(reports[j].Timestamp)
		}
		return reports[i].ID > reports[j].ID
	})
	if len(reports) > limit {
		reports = reports[:limit]
	}
	return reports, nil
}

func (m *MockStore) ClaimReport(ctx context.Context, id int64, workerID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.Reports[id]
	claimed := ok && r.Status == models.ReportPending && r.ClaimedBy == nil
	if claimed {
		owner := workerID
		r.ClaimedBy = &owner
	}
	m.ClaimReportCalls = append(m.ClaimReportCalls, ClaimReportCall{ReportID: id, WorkerID: workerID, Claimed: claimed})
	return claimed, nil
}

func (m *MockStore) CompleteReport(ctx context.Context, id int64, filePath string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.CompleteReportCalls = append(m.CompleteReportCalls, CompleteReportCall{ReportID: id, FilePath: filePath})
	if m.CompleteReportError != nil {
		return m.CompleteReportError
	}

	r, ok := m.Reports[id]
	if !ok || r.Status != models.ReportPending {
		return ErrNotPending
	}
	r.Status = models.ReportCompleted
	r.FilePath = &filePath
	r.CompletedAt = &at
	return nil
}

func (m *MockStore) FailReport(ctx context.Context, id int64, message string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.FailReportCalls = append(m.FailReportCalls, FailReportCall{ReportID: id, Message: message})
	if m.FailReportError != nil {
		return m.FailReportError
	}

	r, ok := m.Reports[id]
	if !ok || r.Status != models.ReportPending {
		return ErrNotPending
	}
	r.Status = models.ReportFailed
	r.ErrorMessage = &message
	r.CompletedAt = &at
	return nil
}

func (m *MockStore) CountReportsByStatus(ctx context.Context) (map[models.ReportStatus]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	counts := make(map[models.ReportStatus]int)
	for _, r := range m.Reports {
		counts[r.Status]++
	}
	return counts, nil
}

func (m *MockStore) Close() error {
	return nil
}
