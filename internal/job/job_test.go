package job

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	payload := map[string]any{"report_id": 7}

	j := New(TypeGenerateReport, payload, PriorityMedium)

	assert.NotEmpty(t, j.ID)
	assert.Equal(t, TypeGenerateReport, j.Type)
	assert.Equal(t, payload, j.Payload)
	assert.Equal(t, PriorityMedium, j.Priority)
	assert.Equal(t, StatusPending, j.Status)
	assert.Equal(t, 0, j.MaxRetries)
	assert.False(t, j.CanRetry())
	assert.False(t, j.CreatedAt.IsZero())
	assert.False(t, j.ScheduledAt.IsZero())
	assert.Nil(t, j.StartedAt)
	assert.Nil(t, j.CompletedAt)
}

func TestReportIDSurvivesJSON(t *testing.T) {
	original := NewReportJob(42)

	id, ok := original.ReportID()
	require.True(t, ok)
	assert.Equal(t, int64(42), id)

	data, err := original.ToJSON()
	require.NoError(t, err)

	restored, err := FromJSON(data)
	require.NoError(t, err)

	id, ok = restored.ReportID()
	require.True(t, ok)
	assert.Equal(t, int64(42), id)
	assert.Equal(t, original.ID, restored.ID)
	assert.Equal(t, original.Type, restored.Type)
}

func TestReportID_Missing(t *testing.T) {
	j := New(TypeGenerateReport, map[string]any{"report_id": "seven"}, PriorityLow)

	_, ok := j.ReportID()
	assert.False(t, ok)
}

func TestFromJSON_InvalidJSON(t *testing.T) {
	_, err := FromJSON("invalid json")

	assert.Error(t, err)
}

func TestPriorityString(t *testing.T) {
	assert.Equal(t, "low", PriorityLow.String())
	assert.Equal(t, "medium", PriorityMedium.String())
	assert.Equal(t, "high", PriorityHigh.String())
	assert.Equal(t, "9", Priority(9).String())
}

func TestCanRetry(t *testing.T) {
	j := New(TypeCreateBackup, nil, PriorityLow)
	j.MaxRetries = 2
	assert.True(t, j.CanRetry())

	j.RetryCount = 2
	assert.False(t, j.CanRetry())
}
