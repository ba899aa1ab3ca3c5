package queue

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/bagaart/TaskFlow/internal/job"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestQueue(t *testing.T) (*Queue, *miniredis.Miniredis) {
	mr, err := miniredis.Run()
	require.NoError(t, err)

	q, err := NewQueue(mr.Addr())
	require.NoError(t, err)

	return q, mr
}

func TestNewQueue(t *testing.T) {
	q, mr := setupTestQueue(t)
	defer mr.Close()
	defer func() { _ = q.Close() }()

	assert.NotNil(t, q)
	assert.NotNil(t, q.client)
}

func TestNewQueue_InvalidAddress(t *testing.T) {
	_, err := NewQueue("invalid:99999")
	assert.Error(t, err)
}

func TestEnqueueAndDequeue(t *testing.T) {
	q, mr := setupTestQueue(t)
	defer mr.Close()
	defer func() { _ = q.Close() }()
	ctx := context.Background()

	original := job.NewReportJob(3)
	require.NoError(t, q.Enqueue(ctx, original))

	dequeued, err := q.Dequeue(ctx)
	require.NoError(t, err)
	require.NotNil(t, dequeued)

	assert.Equal(t, original.ID, dequeued.ID)
	assert.Equal(t, original.Type, dequeued.Type)
	assert.Equal(t, original.Status, dequeued.Status)

	id, ok := dequeued.ReportID()
	require.True(t, ok)
	assert.Equal(t, int64(3), id)
}

func TestDequeue_EmptyQueue(t *testing.T) {
	q, mr := setupTestQueue(t)
	defer mr.Close()
	defer func() { _ = q.Close() }()

	j, err := q.Dequeue(context.Background())

	assert.NoError(t, err)
	assert.Nil(t, j)
}

func TestDequeue_OnlyOnce(t *testing.T) {
	q, mr := setupTestQueue(t)
	defer mr.Close()
	defer func() { _ = q.Close() }()
	ctx := context.Background()

	require.NoError(t, q.Enqueue(ctx, job.NewReportJob(1)))

	first, err := q.Dequeue(ctx)
	require.NoError(t, err)
	require.NotNil(t, first)

	second, err := q.Dequeue(ctx)
	require.NoError(t, err)
	assert.Nil(t, second)
}

func TestPriorityOrdering(t *testing.T) {
	q, mr := setupTestQueue(t)
	defer mr.Close()
	defer func() { _ = q.Close() }()
	ctx := context.Background()

	scheduled := time.Now().Add(-time.Second)
	low := job.New("low", nil, job.PriorityLow)
	medium := job.New("medium", nil, job.PriorityMedium)
	high := job.New("high", nil, job.PriorityHigh)
	for _, j := range []*job.Job{low, medium, high} {
		j.ScheduledAt = scheduled
		require.NoError(t, q.Enqueue(ctx, j))
	}

	for _, expected := range []string{"high", "medium", "low"} {
		j, err := q.Dequeue(ctx)
		require.NoError(t, err)
		require.NotNil(t, j)
		assert.Equal(t, expected, j.Type)
	}
}

func TestScheduledJobs(t *testing.T) {
	q, mr := setupTestQueue(t)
	defer mr.Close()
	defer func() { _ = q.Close() }()
	ctx := context.Background()

	future := job.New("future", nil, job.PriorityHigh)
	future.ScheduledAt = time.Now().Add(time.Hour)

	now := job.New("now", nil, job.PriorityLow)

	require.NoError(t, q.Enqueue(ctx, future))
	require.NoError(t, q.Enqueue(ctx, now))

	dequeued, err := q.Dequeue(ctx)
	require.NoError(t, err)
	require.NotNil(t, dequeued)
	assert.Equal(t, "now", dequeued.Type)

	notYet, err := q.Dequeue(ctx)
	require.NoError(t, err)
	assert.Nil(t, notYet)

	depth, err := q.Depth(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), depth)
}

func TestUpdateJob(t *testing.T) {
	q, mr := setupTestQueue(t)
	defer mr.Close()
	defer func() { _ = q.Close() }()
	ctx := context.Background()

	j := job.New("test", nil, job.PriorityMedium)
	require.NoError(t, q.Enqueue(ctx, j))

	j.Status = job.StatusCompleted
	require.NoError(t, q.UpdateJob(ctx, j))

	retrieved, err := q.GetJob(ctx, j.ID)
	require.NoError(t, err)
	assert.Equal(t, job.StatusCompleted, retrieved.Status)
}

func TestGetJob_NotFound(t *testing.T) {
	q, mr := setupTestQueue(t)
	defer mr.Close()
	defer func() { _ = q.Close() }()

	_, err := q.GetJob(context.Background(), "non-existent-id")

	assert.ErrorIs(t, err, ErrJobNotFound)
}

func TestGetAllJobs(t *testing.T) {
	q, mr := setupTestQueue(t)
	defer mr.Close()
	defer func() { _ = q.Close() }()
	ctx := context.Background()

	require.NoError(t, q.Enqueue(ctx, job.New("a", nil, job.PriorityMedium)))
	require.NoError(t, q.Enqueue(ctx, job.New("b", nil, job.PriorityMedium)))

	jobs, err := q.GetAllJobs(ctx)
	require.NoError(t, err)
	assert.Len(t, jobs, 2)
}

func TestPrune(t *testing.T) {
	q, mr := setupTestQueue(t)
	defer mr.Close()
	defer func() { _ = q.Close() }()
	ctx := context.Background()

	old := time.Now().Add(-48 * time.Hour)
	done := job.New("done", nil, job.PriorityMedium)
	done.Status = job.StatusCompleted
	done.CompletedAt = &old

	running := job.New("running", nil, job.PriorityMedium)
	running.Status = job.StatusRunning

	require.NoError(t, q.UpdateJob(ctx, done))
	require.NoError(t, q.UpdateJob(ctx, running))

	pruned, err := q.Prune(ctx, time.Now().Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, pruned)

	_, err = q.GetJob(ctx, done.ID)
	assert.ErrorIs(t, err, ErrJobNotFound)

	_, err = q.GetJob(ctx, running.ID)
	assert.NoError(t, err)
}
