// Package queue implements the Redis-backed job queue shared by the API server and the workers.
package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bagaart/TaskFlow/internal/job"
	"github.com/bagaart/TaskFlow/internal/metrics"
	"github.com/redis/go-redis/v9"
)

const (
	jobsKey  = "taskflow:jobs"
	queueKey = "taskflow:job_queue"
)

var ErrJobNotFound = errors.New("job not found")

type Queue struct {
	client *redis.Client
}

func NewQueue(redisAddr string) (*Queue, error) {
	client := redis.NewClient(&redis.Options{
		Addr: redisAddr,
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Queue{client: client}, nil
}

// score orders by schedule time first, then by priority (higher first) within the same millisecond.
func score(j *job.Job) float64 {
	invertedPriority := float64(job.PriorityHigh - j.Priority)
	return float64(j.ScheduledAt.UnixMilli())*10 + invertedPriority
}

func (q *Queue) Enqueue(ctx context.Context, j *job.Job) error {
	jobJSON, err := j.ToJSON()
	if err != nil {
		return err
	}

	if err := q.client.HSet(ctx, jobsKey, j.ID, jobJSON).Err(); err != nil {
		return err
	}

	if err := q.client.ZAdd(ctx, queueKey, redis.Z{
		Score:  score(j),
		Member: j.ID,
	}).Err(); err != nil {
		return err
	}

	if j.RetryCount == 0 {
		metrics.RecordJobEnqueued(j.Type, j.Priority)
	}
	return nil
}

// Dequeue pops the next due job. It returns (nil, nil) when nothing is due or
// when another worker removed the same job first.
func (q *Queue) Dequeue(ctx context.Context) (*job.Job, error) {
	maxScore := float64(time.Now().UnixMilli())*10 + float64(job.PriorityHigh-job.PriorityLow)

	results, err := q.client.ZRangeByScore(ctx, queueKey, &redis.ZRangeBy{
		Min:   "-inf",
		Max:   fmt.Sprintf("%f", maxScore),
		Count: 1,
	}).Result()
	if err != nil || len(results) == 0 {
		return nil, err
	}

	jobID := results[0]

	removed, err := q.client.ZRem(ctx, queueKey, jobID).Result()
	if err != nil {
		return nil, err
	}
	if removed == 0 {
		return nil, nil
	}

	return q.GetJob(ctx, jobID)
}

func (q *Queue) UpdateJob(ctx context.Context, j *job.Job) error {
	jobJSON, err := j.ToJSON()
	if err != nil {
		return err
	}
	return q.client.HSet(ctx, jobsKey, j.ID, jobJSON).Err()
}

func (q *Queue) GetJob(ctx context.Context, jobID string) (*job.Job, error) {
	jobJSON, err := q.client.HGet(ctx, jobsKey, jobID).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrJobNotFound
	}
	if err != nil {
		return nil, err
	}
	return job.FromJSON(jobJSON)
}

func (q *Queue) GetAllJobs(ctx context.Context) ([]*job.Job, error) {
	jobMap, err := q.client.HGetAll(ctx, jobsKey).Result()
	if err != nil {
		return nil, err
	}

	jobs := make([]*job.Job, 0, len(jobMap))
	for _, jobJSON := range jobMap {
		j, err := job.FromJSON(jobJSON)
		if err != nil {
			continue
		}
		jobs = append(jobs, j)
	}

	return jobs, nil
}

// Depth is the number of jobs waiting in the queue, due or not.
func (q *Queue) Depth(ctx context.Context) (int64, error) {
	return q.client.ZCard(ctx, queueKey).Result()
}

// Prune drops finished job envelopes that completed before the cutoff.
func (q *Queue) Prune(ctx context.Context, before time.Time) (int, error) {
	jobs, err := q.GetAllJobs(ctx)
	if err != nil {
		return 0, err
	}

	pruned := 0
	for _, j := range jobs {
		if j.CompletedAt == nil || !j.CompletedAt.Before(before) {
			continue
		}
		if j.Status != job.StatusCompleted && j.Status != job.StatusFailed {
			continue
		}
		if err := q.client.HDel(ctx, jobsKey, j.ID).Err(); err != nil {
			return pruned, err
		}
		pruned++
	}

	return pruned, nil
}

func (q *Queue) Close() error {
	return q.client.Close()
}
