package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/bagaart/TaskFlow/internal/models"
)

const selectReports = `
	SELECT
		id, report_type, format, parameters, status,
		file_path, error_message, requested_by, claimed_by,
		timestamp, completed_at
	FROM reports
`

func scanReport(row rowScanner) (*models.Report, error) {
	var r models.Report
	var params []byte
	var filePath, errorMessage, claimedBy sql.NullString
	var requestedBy sql.NullInt64
	var completedAt sql.NullTime

	if err := row.Scan(
		&r.ID,
		&r.Type,
		&r.Format,
		&params,
		&r.Status,
		&filePath,
		&errorMessage,
		&requestedBy,
		&claimedBy,
		&r.Timestamp,
		&completedAt,
	); err != nil {
		return nil, err
	}

	if len(params) > 0 {
		if err := json.Unmarshal(params, &r.Parameters); err != nil {
			return nil, fmt.Errorf("failed to unmarshal parameters: %w", err)
		}
	}
	if filePath.Valid {
		r.FilePath = &filePath.String
	}
	if errorMessage.Valid {
		r.ErrorMessage = &errorMessage.String
	}
	if requestedBy.Valid {
		r.RequestedBy = requestedBy.Int64
	}
	if claimedBy.Valid {
		r.ClaimedBy = &claimedBy.String
	}
	if completedAt.Valid {
		r.CompletedAt = &completedAt.Time
	}

	return &r, nil
}

// CreateReport inserts a pending report. Status, file path and error are never taken from r.
func (s *PostgresStore) CreateReport(ctx context.Context, r *models.Report) error {
	if r.Parameters == nil {
		r.Parameters = map[string]any{}
	}
	params, err := json.Marshal(r.Parameters)
	if err != nil {
		return fmt.Errorf("failed to marshal parameters: %w", err)
	}

	var requestedBy any
	if r.RequestedBy != 0 {
		requestedBy = r.RequestedBy
	}

	query := `
		INSERT INTO reports (report_type, format, parameters, status, requested_by)
		VALUES ($1, $2, $3, 'pending', $4)
		RETURNING id, timestamp
	`
	if err := s.db.QueryRowContext(ctx, query, r.Type, r.Format, params, requestedBy).Scan(&r.ID, &r.Timestamp); err != nil {
		return fmt.Errorf("failed to create report: %w", err)
	}

	r.Status = models.ReportPending
	r.FilePath = nil
	r.ErrorMessage = nil
	r.CompletedAt = nil
	return nil
}

func (s *PostgresStore) GetReport(ctx context.Context, id int64) (*models.Report, error) {
	r, err := scanReport(s.db.QueryRowContext(ctx, selectReports+` WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(err)
	}

	return r, nil
}

func (s *PostgresStore) ListRecentReports(ctx context.Context, limit int) ([]models.Report, error) {
	rows, err := s.db.QueryContext(ctx, selectReports+` ORDER BY timestamp DESC, id DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}
	defer closeRows(rows)

	reports := []models.Report{}
	for rows.Next() {
		r, err := scanReport(rows)
		if err != nil {
			return nil, err
		}
		reports = append(reports, *r)
	}

	return reports, rows.Err()
}

// ClaimReport marks a pending, unclaimed report as owned by workerID.
// It returns false when the report is missing, already claimed or terminal.
func (s *PostgresStore) ClaimReport(ctx context.Context, id int64, workerID string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE reports
		SET claimed_by = $1
		WHERE id = $2 AND status = 'pending' AND claimed_by IS NULL
	`, workerID, id)
	if err != nil {
		return false, fmt.Errorf("failed to claim report: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}

	return n == 1, nil
}

func (s *PostgresStore) CompleteReport(ctx context.Context, id int64, filePath string, at time.Time) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE reports
		SET status = 'completed', file_path = $1, completed_at = $2
		WHERE id = $3 AND status = 'pending'
	`, filePath, at, id)
	if err != nil {
		return fmt.Errorf("failed to complete report: %w", err)
	}

	return requireAffected(res, ErrNotPending)
}

func (s *PostgresStore) FailReport(ctx context.Context, id int64, message string, at time.Time) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE reports
		SET status = 'failed', error_message = $1, completed_at = $2
		WHERE id = $3 AND status = 'pending'
	`, message, at, id)
	if err != nil {
		return fmt.Errorf("failed to fail report: %w", err)
	}

	return requireAffected(res, ErrNotPending)
}

func (s *PostgresStore) CountReportsByStatus(ctx context.Context) (map[models.ReportStatus]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM reports GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("failed to count reports: %w", err)
	}
	defer closeRows(rows)

	counts := make(map[models.ReportStatus]int)
	for rows.Next() {
		var status models.ReportStatus
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		counts[status] = count
	}

	return counts, rows.Err()
}
