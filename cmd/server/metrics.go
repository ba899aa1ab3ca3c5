package main

import (
	"context"
	"log"
	"time"

	"github.com/bagaart/TaskFlow/internal/metrics"
	"github.com/bagaart/TaskFlow/internal/models"
)

const metricsInterval = 10 * time.Second

type queueDepther interface {
	Depth(ctx context.Context) (int64, error)
}

type reportCounter interface {
	CountReportsByStatus(ctx context.Context) (map[models.ReportStatus]int, error)
}

func startMetricsCollector(ctx context.Context, q queueDepther, reports reportCounter) {
	ticker := time.NewTicker(metricsInterval)
	defer ticker.Stop()

	updateMetrics(ctx, q, reports)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateMetrics(ctx, q, reports)
		}
	}
}

func updateMetrics(ctx context.Context, q queueDepther, reports reportCounter) {
	depth, err := q.Depth(ctx)
	if err != nil {
		log.Printf("Failed to get queue depth for metrics: %v", err)
	} else {
		metrics.UpdateQueueDepth(int(depth))
	}

	counts, err := reports.CountReportsByStatus(ctx)
	if err != nil {
		log.Printf("Failed to count reports for metrics: %v", err)
		return
	}

	byStatus := make(map[string]int, len(counts))
	for _, status := range []models.ReportStatus{models.ReportPending, models.ReportCompleted, models.ReportFailed} {
		byStatus[string(status)] = counts[status]
	}
	metrics.UpdateReportGauges(byStatus)
}
