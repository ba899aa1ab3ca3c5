package repository

import (
	"context"
	"fmt"

	"github.com/bagaart/TaskFlow/internal/models"
)

func (s *PostgresStore) CreateComment(ctx context.Context, c *models.Comment) error {
	query := `
		INSERT INTO comments (task_id, author_id, body)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`
	if err := s.db.QueryRowContext(ctx, query, c.TaskID, c.AuthorID, c.Body).Scan(&c.ID, &c.CreatedAt); err != nil {
		return fmt.Errorf("failed to create comment: %w", err)
	}

	return nil
}

func (s *PostgresStore) GetComment(ctx context.Context, id int64) (*models.Comment, error) {
	var c models.Comment
	err := s.db.QueryRowContext(ctx,
		`SELECT id, task_id, author_id, body, created_at FROM comments WHERE id = $1`, id,
	).Scan(&c.ID, &c.TaskID, &c.AuthorID, &c.Body, &c.CreatedAt)
	if err != nil {
		return nil, notFound(err)
	}

	return &c, nil
}

func (s *PostgresStore) DeleteComment(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM comments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete comment: %w", err)
	}

	return requireAffected(res, ErrNotFound)
}

func (s *PostgresStore) ListComments(ctx context.Context, taskID int64) ([]models.Comment, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, task_id, author_id, body, created_at FROM comments WHERE task_id = $1 ORDER BY created_at, id`,
		taskID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list comments: %w", err)
	}
	defer closeRows(rows)

	var comments []models.Comment
	for rows.Next() {
		var c models.Comment
		if err := rows.Scan(&c.ID, &c.TaskID, &c.AuthorID, &c.Body, &c.CreatedAt); err != nil {
			return nil, err
		}
		comments = append(comments, c)
	}

	return comments, rows.Err()
}
