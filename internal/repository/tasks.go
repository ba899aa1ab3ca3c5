package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/bagaart/TaskFlow/internal/models"
	"github.com/lib/pq"
)

const selectTasks = `
	SELECT
		t.id, t.project_id, t.title, t.description, t.status,
		t.deadline, t.manager_id, t.created_at, t.updated_at,
		COALESCE(array_agg(te.user_id ORDER BY te.user_id) FILTER (WHERE te.user_id IS NOT NULL), '{}') AS executor_ids
	FROM tasks t
	LEFT JOIN task_executors te ON te.task_id = t.id
`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (*models.Task, error) {
	var t models.Task
	var deadline sql.NullTime
	var managerID sql.NullInt64
	var executors []int64

	if err := row.Scan(
		&t.ID,
		&t.ProjectID,
		&t.Title,
		&t.Description,
		&t.Status,
		&deadline,
		&managerID,
		&t.CreatedAt,
		&t.UpdatedAt,
		pq.Array(&executors),
	); err != nil {
		return nil, err
	}

	if deadline.Valid {
		t.Deadline = &deadline.Time
	}
	if managerID.Valid {
		t.ManagerID = &managerID.Int64
	}
	t.ExecutorIDs = executors
	if t.ExecutorIDs == nil {
		t.ExecutorIDs = []int64{}
	}

	return &t, nil
}

func (s *PostgresStore) CreateTask(ctx context.Context, t *models.Task) error {
	if t.Status == "" {
		t.Status = models.StatusTodo
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer rollback(tx)

	query := `
		INSERT INTO tasks (project_id, title, description, status, deadline, manager_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at
	`
	if err := tx.QueryRowContext(ctx, query,
		t.ProjectID,
		t.Title,
		t.Description,
		t.Status,
		nullTime(t.Deadline),
		nullInt64(t.ManagerID),
	).Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return fmt.Errorf("failed to create task: %w", err)
	}

	if err := setExecutors(ctx, tx, t.ID, t.ExecutorIDs); err != nil {
		return err
	}

	return tx.Commit()
}

func (s *PostgresStore) GetTask(ctx context.Context, id int64) (*models.Task, error) {
	row := s.db.QueryRowContext(ctx, selectTasks+` WHERE t.id = $1 GROUP BY t.id`, id)
	t, err := scanTask(row)
	if err != nil {
		return nil, notFound(err)
	}

	return t, nil
}

// UpdateTask rewrites the task columns and replaces its executor set.
func (s *PostgresStore) UpdateTask(ctx context.Context, t *models.Task) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer rollback(tx)

	query := `
		UPDATE tasks
		SET title = $1, description = $2, status = $3, deadline = $4, manager_id = $5, updated_at = NOW()
		WHERE id = $6
		RETURNING updated_at
	`
	var updatedAt time.Time
	err = tx.QueryRowContext(ctx, query,
		t.Title,
		t.Description,
		t.Status,
		nullTime(t.Deadline),
		nullInt64(t.ManagerID),
		t.ID,
	).Scan(&updatedAt)
	if err != nil {
		return notFound(err)
	}
	t.UpdatedAt = updatedAt

	if _, err := tx.ExecContext(ctx, `DELETE FROM task_executors WHERE task_id = $1`, t.ID); err != nil {
		return fmt.Errorf("failed to clear executors: %w", err)
	}
	if err := setExecutors(ctx, tx, t.ID, t.ExecutorIDs); err != nil {
		return err
	}

	return tx.Commit()
}

func setExecutors(ctx context.Context, tx *sql.Tx, taskID int64, executorIDs []int64) error {
	if len(executorIDs) == 0 {
		return nil
	}

	_, err := tx.ExecContext(ctx,
		`INSERT INTO task_executors (task_id, user_id) SELECT $1, unnest($2::bigint[]) ON CONFLICT DO NOTHING`,
		taskID, pq.Array(executorIDs),
	)
	if err != nil {
		return fmt.Errorf("failed to set executors: %w", err)
	}

	return nil
}

func (s *PostgresStore) UpdateTaskStatus(ctx context.Context, id int64, status models.TaskStatus) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE tasks SET status = $1, updated_at = NOW() WHERE id = $2`,
		status, id,
	)
	if err != nil {
		return fmt.Errorf("failed to update task status: %w", err)
	}

	return requireAffected(res, ErrNotFound)
}

func (s *PostgresStore) DeleteTask(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}

	return requireAffected(res, ErrNotFound)
}

func (s *PostgresStore) ListTasks(ctx context.Context) ([]models.Task, error) {
	return s.queryTasks(ctx, selectTasks+` GROUP BY t.id ORDER BY t.id`)
}

func (s *PostgresStore) ListProjectTasks(ctx context.Context, projectID int64) ([]models.Task, error) {
	return s.queryTasks(ctx, selectTasks+` WHERE t.project_id = $1 GROUP BY t.id ORDER BY t.id`, projectID)
}

func (s *PostgresStore) queryTasks(ctx context.Context, query string, args ...any) ([]models.Task, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	defer closeRows(rows)

	var tasks []models.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, *t)
	}

	return tasks, rows.Err()
}
