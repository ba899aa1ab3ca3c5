// Package report aggregates TaskFlow data into flat records, renders them as
// JSON or PDF artifacts and drives the pending → completed | failed
// lifecycle of a Report.
package report

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/bagaart/TaskFlow/internal/models"
)

// Source is the read-only view of the store the aggregator needs.
type Source interface {
	ListTasks(ctx context.Context) ([]models.Task, error)
	ListProjects(ctx context.Context) ([]models.Project, error)
	ListUsers(ctx context.Context) ([]models.User, error)
	ListMembers(ctx context.Context) ([]models.ProjectMember, error)
}

type StatusBreakdown struct {
	Todo       int `json:"todo"`
	InProgress int `json:"in_progress"`
	Done       int `json:"done"`
}

func (b *StatusBreakdown) Add(s models.TaskStatus) {
	switch s {
	case models.StatusTodo:
		b.Todo++
	case models.StatusInProgress:
		b.InProgress++
	case models.StatusDone:
		b.Done++
	}
}

func (b StatusBreakdown) Total() int {
	return b.Todo + b.InProgress + b.Done
}

type TaskRecord struct {
	ID        int64  `json:"id"`
	Title     string `json:"title"`
	Status    string `json:"status"`
	Project   string `json:"project"`
	CreatedAt string `json:"created_at"`
	Deadline  string `json:"deadline"`
	Manager   string `json:"manager"`
	Executors string `json:"executors"`
}

type ProjectRecord struct {
	ID            int64           `json:"id"`
	Name          string          `json:"name"`
	Description   string          `json:"description"`
	Owner         string          `json:"owner"`
	CreatedAt     string          `json:"created_at"`
	TotalTasks    int             `json:"total_tasks"`
	TasksByStatus StatusBreakdown `json:"tasks_by_status"`
	Participants  string          `json:"participants"`
}

type UserRecord struct {
	ID                 int64           `json:"id"`
	Name               string          `json:"name"`
	Email              string          `json:"email"`
	TotalProjectsOwned int             `json:"total_projects_owned"`
	TotalTasksAssigned int             `json:"total_tasks_assigned"`
	TasksByStatus      StatusBreakdown `json:"tasks_by_status"`
}

type Table struct {
	Headers []string
	Rows    [][]string
}

type ChartPoint struct {
	Label string
	Value float64
}

type ChartSeries struct {
	Title  string
	Points []ChartPoint
}

// Empty is true when there is nothing to plot.
func (s ChartSeries) Empty() bool {
	for _, p := range s.Points {
		if p.Value > 0 {
			return false
		}
	}
	return true
}

// Dataset is one report's aggregated content in every shape the renderers need.
type Dataset struct {
	Type        models.ReportType
	Title       string
	Records     any
	Count       int
	Table       Table
	StatusChart ChartSeries
	UserChart   ChartSeries
}

type Aggregator struct {
	src Source
}

func NewAggregator(src Source) *Aggregator {
	return &Aggregator{src: src}
}

type snapshot struct {
	tasks    []models.Task
	projects []models.Project
	users    []models.User
	members  []models.ProjectMember

	userNames    map[int64]string
	projectNames map[int64]string
}

func (a *Aggregator) load(ctx context.Context) (*snapshot, error) {
	tasks, err := a.src.ListTasks(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load tasks: %w", err)
	}
	projects, err := a.src.ListProjects(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load projects: %w", err)
	}
	users, err := a.src.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load users: %w", err)
	}
	members, err := a.src.ListMembers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load members: %w", err)
	}

	sort.Slice(tasks, func(i, j int) bool { return tasks[i].ID < tasks[j].ID })
	sort.Slice(projects, func(i, j int) bool { return projects[i].ID < projects[j].ID })
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	sort.Slice(members, func(i, j int) bool {
		if members[i].ProjectID != members[j].ProjectID {
			return members[i].ProjectID < members[j].ProjectID
		}
		return members[i].UserID < members[j].UserID
	})

	s := &snapshot{
		tasks:        tasks,
		projects:     projects,
		users:        users,
		members:      members,
		userNames:    make(map[int64]string, len(users)),
		projectNames: make(map[int64]string, len(projects)),
	}
	for _, u := range users {
		s.userNames[u.ID] = u.Name
	}
	for _, p := range projects {
		s.projectNames[p.ID] = p.Name
	}

	return s, nil
}

// Build reads tasks, projects, users and members (four independent queries,
// no shared transaction) and produces the dataset for reportType.
func (a *Aggregator) Build(ctx context.Context, reportType models.ReportType) (*Dataset, error) {
	s, err := a.load(ctx)
	if err != nil {
		return nil, err
	}

	ds := &Dataset{
		Type:        reportType,
		StatusChart: s.statusSeries(),
		UserChart:   s.userSeries(),
	}

	switch reportType {
	case models.ReportTasks:
		records := s.taskRecords()
		ds.Title = "Tasks Report"
		ds.Records = records
		ds.Count = len(records)
		ds.Table = taskTable(records)
	case models.ReportProjects:
		records := s.projectRecords()
		ds.Title = "Projects Report"
		ds.Records = records
		ds.Count = len(records)
		ds.Table = projectTable(records)
	case models.ReportUsers:
		records := s.userRecords()
		ds.Title = "Users Report"
		ds.Records = records
		ds.Count = len(records)
		ds.Table = userTable(records)
	default:
		return nil, &ValidationError{Field: "type", Message: fmt.Sprintf("unsupported report type %q", reportType)}
	}

	return ds, nil
}

func (a *Aggregator) Tasks(ctx context.Context) ([]TaskRecord, error) {
	s, err := a.load(ctx)
	if err != nil {
		return nil, err
	}
	return s.taskRecords(), nil
}

func (a *Aggregator) Projects(ctx context.Context) ([]ProjectRecord, error) {
	s, err := a.load(ctx)
	if err != nil {
		return nil, err
	}
	return s.projectRecords(), nil
}

func (a *Aggregator) Users(ctx context.Context) ([]UserRecord, error) {
	s, err := a.load(ctx)
	if err != nil {
		return nil, err
	}
	return s.userRecords(), nil
}

func (s *snapshot) taskRecords() []TaskRecord {
	records := make([]TaskRecord, 0, len(s.tasks))
	for _, t := range s.tasks {
		var manager string
		if t.ManagerID != nil {
			manager = s.userNames[*t.ManagerID]
		}

		executors := append([]int64(nil), t.ExecutorIDs...)
		sort.Slice(executors, func(i, j int) bool { return executors[i] < executors[j] })
		names := make([]string, 0, len(executors))
		for _, id := range executors {
			names = append(names, s.userNames[id])
		}

		records = append(records, TaskRecord{
			ID:        t.ID,
			Title:     t.Title,
			Status:    t.Status.Label(),
			Project:   s.projectNames[t.ProjectID],
			CreatedAt: FormatDate(t.CreatedAt),
			Deadline:  FormatOptionalDate(t.Deadline),
			Manager:   manager,
			Executors: strings.Join(names, ", "),
		})
	}
	return records
}

func (s *snapshot) projectRecords() []ProjectRecord {
	breakdowns := make(map[int64]*StatusBreakdown, len(s.projects))
	for _, p := range s.projects {
		breakdowns[p.ID] = &StatusBreakdown{}
	}
	for _, t := range s.tasks {
		if b, ok := breakdowns[t.ProjectID]; ok {
			b.Add(t.Status)
		}
	}

	participants := make(map[int64][]string)
	for _, m := range s.members {
		name := m.UserName
		if name == "" {
			name = s.userNames[m.UserID]
		}
		participants[m.ProjectID] = append(participants[m.ProjectID], fmt.Sprintf("%s (%s)", name, m.Role))
	}

	records := make([]ProjectRecord, 0, len(s.projects))
	for _, p := range s.projects {
		b := *breakdowns[p.ID]
		records = append(records, ProjectRecord{
			ID:            p.ID,
			Name:          p.Name,
			Description:   p.Description,
			Owner:         s.userNames[p.OwnerID],
			CreatedAt:     FormatDate(p.CreatedAt),
			TotalTasks:    b.Total(),
			TasksByStatus: b,
			Participants:  strings.Join(participants[p.ID], ", "),
		})
	}
	return records
}

func (s *snapshot) userRecords() []UserRecord {
	owned := make(map[int64]int)
	for _, p := range s.projects {
		owned[p.OwnerID]++
	}

	assigned := make(map[int64]*StatusBreakdown, len(s.users))
	for _, u := range s.users {
		assigned[u.ID] = &StatusBreakdown{}
	}
	for _, t := range s.tasks {
		for _, id := range t.ExecutorIDs {
			if b, ok := assigned[id]; ok {
				b.Add(t.Status)
			}
		}
	}

	records := make([]UserRecord, 0, len(s.users))
	for _, u := range s.users {
		b := *assigned[u.ID]
		records = append(records, UserRecord{
			ID:                 u.ID,
			Name:               u.Name,
			Email:              u.Email,
			TotalProjectsOwned: owned[u.ID],
			TotalTasksAssigned: b.Total(),
			TasksByStatus:      b,
		})
	}
	return records
}

func (s *snapshot) statusSeries() ChartSeries {
	var b StatusBreakdown
	for _, t := range s.tasks {
		b.Add(t.Status)
	}
	return ChartSeries{
		Title: "Tasks by status",
		Points: []ChartPoint{
			{Label: models.StatusTodo.Label(), Value: float64(b.Todo)},
			{Label: models.StatusInProgress.Label(), Value: float64(b.InProgress)},
			{Label: models.StatusDone.Label(), Value: float64(b.Done)},
		},
	}
}

func (s *snapshot) userSeries() ChartSeries {
	counts := make(map[int64]int)
	for _, t := range s.tasks {
		for _, id := range t.ExecutorIDs {
			counts[id]++
		}
	}

	points := make([]ChartPoint, 0, len(s.users))
	for _, u := range s.users {
		points = append(points, ChartPoint{Label: u.Name, Value: float64(counts[u.ID])})
	}
	return ChartSeries{Title: "Tasks per user", Points: points}
}

func taskTable(records []TaskRecord) Table {
	t := Table{Headers: []string{"ID", "Title", "Status", "Project", "Created", "Deadline", "Manager", "Executors"}}
	for _, r := range records {
		t.Rows = append(t.Rows, []string{
			itoa(r.ID), r.Title, r.Status, r.Project, r.CreatedAt, r.Deadline, r.Manager, r.Executors,
		})
	}
	return t
}

func projectTable(records []ProjectRecord) Table {
	t := Table{Headers: []string{"ID", "Name", "Description", "Owner", "Created", "Total", "To Do", "In Progress", "Done", "Participants"}}
	for _, r := range records {
		t.Rows = append(t.Rows, []string{
			itoa(r.ID), r.Name, r.Description, r.Owner, r.CreatedAt,
			strconv.Itoa(r.TotalTasks),
			strconv.Itoa(r.TasksByStatus.Todo),
			strconv.Itoa(r.TasksByStatus.InProgress),
			strconv.Itoa(r.TasksByStatus.Done),
			r.Participants,
		})
	}
	return t
}

func userTable(records []UserRecord) Table {
	t := Table{Headers: []string{"ID", "Name", "Email", "Projects Owned", "Tasks Assigned", "To Do", "In Progress", "Done"}}
	for _, r := range records {
		t.Rows = append(t.Rows, []string{
			itoa(r.ID), r.Name, r.Email,
			strconv.Itoa(r.TotalProjectsOwned),
			strconv.Itoa(r.TotalTasksAssigned),
			strconv.Itoa(r.TasksByStatus.Todo),
			strconv.Itoa(r.TasksByStatus.InProgress),
			strconv.Itoa(r.TasksByStatus.Done),
		})
	}
	return t
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
