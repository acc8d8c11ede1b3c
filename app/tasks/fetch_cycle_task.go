package tasks

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ainewshq/ainews/app/fetch"
)

// FetchCycleTask runs one fetch pass over the due sources, or over a single
// source when SourceID is set.
type FetchCycleTask struct {
	Task
	SourceID     string
	Force        bool
	orchestrator *fetch.Orchestrator
}

func NewFetchCycleTask(orchestrator *fetch.Orchestrator) *FetchCycleTask {
	return &FetchCycleTask{
		Task:         NewTask(TaskTypeFetchCycle, "all"),
		orchestrator: orchestrator,
	}
}

func NewFetchSourceTask(orchestrator *fetch.Orchestrator, sourceID string) *FetchCycleTask {
	return &FetchCycleTask{
		Task:         NewTask(TaskTypeFetchCycle, sourceID),
		SourceID:     sourceID,
		orchestrator: orchestrator,
	}
}

func (t *FetchCycleTask) Execute(ctx context.Context) error {

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	var err error
	var count int
	if t.SourceID != "" {
		fetched, fetchErr := t.orchestrator.FetchSingle(ctx, t.SourceID)
		count, err = len(fetched), fetchErr
	} else {
		fetched, fetchErr := t.orchestrator.FetchAll(ctx, nil, t.Force)
		count, err = len(fetched), fetchErr
	}
	if err != nil {
		slog.Error("Task failed", "type", "FetchCycle", "subject", t.Subject, "error", err)
		return fmt.Errorf("fetch cycle failed: %w", err)
	}

	slog.Info("Task completed",
		"type", "FetchCycle",
		"subject", t.Subject,
		"new_articles", count,
		"duration", t.GetDuration())

	return nil
}
