package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/bagaart/TaskFlow/internal/models"
)

// CreateProject inserts the project and registers its owner as manager in one transaction.
func (s *PostgresStore) CreateProject(ctx context.Context, p *models.Project) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer rollback(tx)

	query := `
		INSERT INTO projects (name, description, owner_id)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`
	if err := tx.QueryRowContext(ctx, query, p.Name, p.Description, p.OwnerID).Scan(&p.ID, &p.CreatedAt); err != nil {
		return fmt.Errorf("failed to create project: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO project_members (project_id, user_id, role) VALUES ($1, $2, $3)`,
		p.ID, p.OwnerID, models.RoleManager,
	); err != nil {
		return fmt.Errorf("failed to add project owner: %w", err)
	}

	return tx.Commit()
}

func (s *PostgresStore) GetProject(ctx context.Context, id int64) (*models.Project, error) {
	query := `
		SELECT id, name, description, owner_id, created_at
		FROM projects
		WHERE id = $1
	`
	var p models.Project
	err := s.db.QueryRowContext(ctx, query, id).Scan(&p.ID, &p.Name, &p.Description, &p.OwnerID, &p.CreatedAt)
	if err != nil {
		return nil, notFound(err)
	}

	return &p, nil
}

func (s *PostgresStore) UpdateProject(ctx context.Context, p *models.Project) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE projects SET name = $1, description = $2 WHERE id = $3`,
		p.Name, p.Description, p.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update project: %w", err)
	}

	return requireAffected(res, ErrNotFound)
}

func (s *PostgresStore) DeleteProject(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM projects WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete project: %w", err)
	}

	return requireAffected(res, ErrNotFound)
}

func (s *PostgresStore) ListProjects(ctx context.Context) ([]models.Project, error) {
	query := `
		SELECT id, name, description, owner_id, created_at
		FROM projects
		ORDER BY id
	`
	return s.queryProjects(ctx, query)
}

func (s *PostgresStore) ListProjectsForUser(ctx context.Context, userID int64) ([]models.Project, error) {
	query := `
		SELECT p.id, p.name, p.description, p.owner_id, p.created_at
		FROM projects p
		JOIN project_members pm ON pm.project_id = p.id
		WHERE pm.user_id = $1
		ORDER BY p.id
	`
	return s.queryProjects(ctx, query, userID)
}

func (s *PostgresStore) queryProjects(ctx context.Context, query string, args ...any) ([]models.Project, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	defer closeRows(rows)

	var projects []models.Project
	for rows.Next() {
		var p models.Project
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.OwnerID, &p.CreatedAt); err != nil {
			return nil, err
		}
		projects = append(projects, p)
	}

	return projects, rows.Err()
}

func (s *PostgresStore) GetMembership(ctx context.Context, projectID, userID int64) (models.ProjectRole, bool, error) {
	var role models.ProjectRole
	err := s.db.QueryRowContext(ctx,
		`SELECT role FROM project_members WHERE project_id = $1 AND user_id = $2`,
		projectID, userID,
	).Scan(&role)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get membership: %w", err)
	}

	return role, true, nil
}

// AddMember inserts the membership or changes the role of an existing one.
func (s *PostgresStore) AddMember(ctx context.Context, projectID, userID int64, role models.ProjectRole) error {
	query := `
		INSERT INTO project_members (project_id, user_id, role)
		VALUES ($1, $2, $3)
		ON CONFLICT (project_id, user_id) DO UPDATE SET role = EXCLUDED.role
	`
	if _, err := s.db.ExecContext(ctx, query, projectID, userID, role); err != nil {
		return fmt.Errorf("failed to add member: %w", err)
	}

	return nil
}

func (s *PostgresStore) RemoveMember(ctx context.Context, projectID, userID int64) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM project_members WHERE project_id = $1 AND user_id = $2`,
		projectID, userID,
	)
	if err != nil {
		return fmt.Errorf("failed to remove member: %w", err)
	}

	return requireAffected(res, ErrNotFound)
}

func (s *PostgresStore) ListMembers(ctx context.Context) ([]models.ProjectMember, error) {
	query := `
		SELECT pm.project_id, pm.user_id, u.name, pm.role
		FROM project_members pm
		JOIN users u ON u.id = pm.user_id
		ORDER BY pm.project_id, pm.user_id
	`
	return s.queryMembers(ctx, query)
}

func (s *PostgresStore) ListProjectMembers(ctx context.Context, projectID int64) ([]models.ProjectMember, error) {
	query := `
		SELECT pm.project_id, pm.user_id, u.name, pm.role
		FROM project_members pm
		JOIN users u ON u.id = pm.user_id
		WHERE pm.project_id = $1
		ORDER BY pm.user_id
	`
	return s.queryMembers(ctx, query, projectID)
}

func (s *PostgresStore) queryMembers(ctx context.Context, query string, args ...any) ([]models.ProjectMember, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	defer closeRows(rows)

	var members []models.ProjectMember
	for rows.Next() {
		var m models.ProjectMember
		if err := rows.Scan(&m.ProjectID, &m.UserID, &m.UserName, &m.Role); err != nil {
			return nil, err
		}
		members = append(members, m)
	}

	return members, rows.Err()
}
