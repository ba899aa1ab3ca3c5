package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/bagaart/TaskFlow/internal/models"
)

func (s *PostgresStore) CreateUser(ctx context.Context, u *models.User) error {
	query := `
		INSERT INTO users (name, email, password_hash, is_admin)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`
	err := s.db.QueryRowContext(ctx, query, u.Name, strings.ToLower(u.Email), u.PasswordHash, u.IsAdmin).
		Scan(&u.ID, &u.CreatedAt)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}

	u.Email = strings.ToLower(u.Email)
	return nil
}

func (s *PostgresStore) GetUser(ctx context.Context, id int64) (*models.User, error) {
	query := `
		SELECT id, name, email, password_hash, is_admin, created_at
		FROM users
		WHERE id = $1
	`
	var u models.User
	err := s.db.QueryRowContext(ctx, query, id).
		Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.IsAdmin, &u.CreatedAt)
	if err != nil {
		return nil, notFound(err)
	}

	return &u, nil
}

func (s *PostgresStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `
		SELECT id, name, email, password_hash, is_admin, created_at
		FROM users
		WHERE email = $1
	`
	var u models.User
	err := s.db.QueryRowContext(ctx, query, strings.ToLower(email)).
		Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.IsAdmin, &u.CreatedAt)
	if err != nil {
		return nil, notFound(err)
	}

	return &u, nil
}

func (s *PostgresStore) ListUsers(ctx context.Context) ([]models.User, error) {
	query := `
		SELECT id, name, email, password_hash, is_admin, created_at
		FROM users
		ORDER BY id
	`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer closeRows(rows)

	var users []models.User
	for rows.Next() {
		var u models.User
		if err := rows.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.IsAdmin, &u.CreatedAt); err != nil {
			return nil, err
		}
		users = append(users, u)
	}

	return users, rows.Err()
}
