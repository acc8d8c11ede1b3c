package tasks

import (
	"context"

	"github.com/ainewshq/ainews/app/news"
)

// TaskSchedulerInterface defines the interface for task scheduling operations.
// Used by the main application and the API to manage background task
// processing.
// Example usage:
//
//	scheduler := NewScheduler(orchestrator, extractor, articleStore, summarizer, sender, opts)
//	scheduler.Start()
//	defer scheduler.Stop()
//	scheduler.EnqueueTask(NewFetchCycleTask(orchestrator))
type TaskSchedulerInterface interface {
	Start()
	Stop()
	EnqueueTask(task TaskInterface) error
}

// SummarySender delivers a generated summary to its recipients.
type SummarySender interface {
	Send(ctx context.Context, summary *news.DailySummary) error
}
