package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/bagaart/TaskFlow/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var reportColumns = []string{
	"id", "report_type", "format", "parameters", "status",
	"file_path", "error_message", "requested_by", "claimed_by",
	"timestamp", "completed_at",
}

func TestCreateReport(t *testing.T) {
	db, mock, store := setupMockDB(t)
	defer func() { _ = db.Close() }()

	now := time.Now()
	mock.ExpectQuery("INSERT INTO reports").
		WithArgs("users", "pdf", []byte(`{"include_charts":true}`), int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "timestamp"}).AddRow(12, now))

	r := &models.Report{
		Type:        models.ReportUsers,
		Format:      models.FormatPDF,
		Parameters:  map[string]any{"include_charts": true},
		RequestedBy: 1,
	}
	require.NoError(t, store.CreateReport(context.Background(), r))
	assert.Equal(t, int64(12), r.ID)
	assert.Equal(t, models.ReportPending, r.Status)
	assert.Nil(t, r.FilePath)
	assert.Nil(t, r.ErrorMessage)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetReport(t *testing.T) {
	db, mock, store := setupMockDB(t)
	defer func() { _ = db.Close() }()

	ctx := context.Background()
	now := time.Now()

	t.Run("completed report", func(t *testing.T) {
		rows := sqlmock.NewRows(reportColumns).
			AddRow(3, "tasks", "json", []byte(`{}`), "completed",
				"instance/reports/tasks_3_20240101_120000.json", nil, 1, "worker-1", now, now)

		mock.ExpectQuery("SELECT .* FROM reports WHERE id").
			WithArgs(int64(3)).
			WillReturnRows(rows)

		r, err := store.GetReport(ctx, 3)
		require.NoError(t, err)
		assert.Equal(t, models.ReportCompleted, r.Status)
		require.NotNil(t, r.FilePath)
		assert.Equal(t, "instance/reports/tasks_3_20240101_120000.json", *r.FilePath)
		assert.Nil(t, r.ErrorMessage)
		require.NotNil(t, r.ClaimedBy)
		assert.Equal(t, "worker-1", *r.ClaimedBy)
		assert.NotNil(t, r.CompletedAt)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		mock.ExpectQuery("SELECT .* FROM reports WHERE id").
			WithArgs(int64(404)).
			WillReturnError(sql.ErrNoRows)

		_, err := store.GetReport(ctx, 404)
		assert.ErrorIs(t, err, ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestListRecentReports(t *testing.T) {
	db, mock, store := setupMockDB(t)
	defer func() { _ = db.Close() }()

	now := time.Now()
	rows := sqlmock.NewRows(reportColumns).
		AddRow(2, "users", "pdf", []byte(`{"include_charts":false}`), "failed",
			nil, "font not found", 1, "worker-1", now, now).
		AddRow(1, "tasks", "json", []byte(`{}`), "pending",
			nil, nil, nil, nil, now.Add(-time.Minute), nil)

	mock.ExpectQuery("SELECT .* FROM reports ORDER BY timestamp DESC, id DESC LIMIT").
		WithArgs(50).
		WillReturnRows(rows)

	reports, err := store.ListRecentReports(context.Background(), 50)
	require.NoError(t, err)
	require.Len(t, reports, 2)
	assert.Equal(t, models.ReportFailed, reports[0].Status)
	require.NotNil(t, reports[0].ErrorMessage)
	assert.Equal(t, "font not found", *reports[0].ErrorMessage)
	assert.False(t, reports[0].BoolParam("include_charts"))
	assert.Equal(t, models.ReportPending, reports[1].Status)
	assert.Nil(t, reports[1].ClaimedBy)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListRecentReports_Empty(t *testing.T) {
	db, mock, store := setupMockDB(t)
	defer func() { _ = db.Close() }()

	mock.ExpectQuery("SELECT .* FROM reports ORDER BY").
		WithArgs(50).
		WillReturnRows(sqlmock.NewRows(reportColumns))

	reports, err := store.ListRecentReports(context.Background(), 50)
	require.NoError(t, err)
	assert.NotNil(t, reports)
	assert.Empty(t, reports)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClaimReport(t *testing.T) {
	db, mock, store := setupMockDB(t)
	defer func() { _ = db.Close() }()

	ctx := context.Background()

	mock.ExpectExec("UPDATE reports SET claimed_by").
		WithArgs("worker-1", int64(5)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	ok, err := store.ClaimReport(ctx, 5, "worker-1")
	require.NoError(t, err)
	assert.True(t, ok)

	mock.ExpectExec("UPDATE reports SET claimed_by").
		WithArgs("worker-2", int64(5)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	ok, err = store.ClaimReport(ctx, 5, "worker-2")
	require.NoError(t, err)
	assert.False(t, ok)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCompleteReport(t *testing.T) {
	db, mock, store := setupMockDB(t)
	defer func() { _ = db.Close() }()

	ctx := context.Background()
	at := time.Now()

	t.Run("pending report completes", func(t *testing.T) {
		mock.ExpectExec("UPDATE reports SET status = 'completed'").
			WithArgs("instance/reports/users_5.pdf", at, int64(5)).
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, store.CompleteReport(ctx, 5, "instance/reports/users_5.pdf", at))
	})

	t.Run("terminal report is left alone", func(t *testing.T) {
		mock.ExpectExec("UPDATE reports SET status = 'completed'").
			WithArgs("instance/reports/users_5.pdf", at, int64(5)).
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := store.CompleteReport(ctx, 5, "instance/reports/users_5.pdf", at)
		assert.ErrorIs(t, err, ErrNotPending)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFailReport(t *testing.T) {
	db, mock, store := setupMockDB(t)
	defer func() { _ = db.Close() }()

	ctx := context.Background()
	at := time.Now()

	mock.ExpectExec("UPDATE reports SET status = 'failed'").
		WithArgs("boom", at, int64(6)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, store.FailReport(ctx, 6, "boom", at))

	mock.ExpectExec("UPDATE reports SET status = 'failed'").
		WithArgs("boom", at, int64(6)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	assert.ErrorIs(t, store.FailReport(ctx, 6, "boom", at), ErrNotPending)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCountReportsByStatus(t *testing.T) {
	db, mock, store := setupMockDB(t)
	defer func() { _ = db.Close() }()

	rows := sqlmock.NewRows([]string{"status", "count"}).
		AddRow("pending", 2).
		AddRow("completed", 5)

	mock.ExpectQuery("SELECT status, COUNT\\(\\*\\) FROM reports GROUP BY status").
		WillReturnRows(rows)

	counts, err := store.CountReportsByStatus(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, counts[models.ReportPending])
	assert.Equal(t, 5, counts[models.ReportCompleted])
	assert.Equal(t, 0, counts[models.ReportFailed])
	assert.NoError(t, mock.ExpectationsWereMet())
}
