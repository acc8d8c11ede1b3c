package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ainewshq/ainews/app/digest"
	"github.com/ainewshq/ainews/app/news"
)

// GenerateSummaryTask produces the daily summary for one date and, when a
// sender is configured, delivers it.
type GenerateSummaryTask struct {
	Task
	TargetDate time.Time
	summarizer *digest.Summarizer
	sender     SummarySender
}

func NewGenerateSummaryTask(summarizer *digest.Summarizer, sender SummarySender, targetDate time.Time) *GenerateSummaryTask {
	return &GenerateSummaryTask{
		Task:       NewTask(TaskTypeGenerateSummary, news.DateKey(targetDate)),
		TargetDate: targetDate,
		summarizer: summarizer,
		sender:     sender,
	}
}

func (t *GenerateSummaryTask) Execute(ctx context.Context) error {

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	summary, err := t.summarizer.GenerateSummary(ctx, t.TargetDate, nil)
	if err != nil {
		slog.Error("Task failed", "type", "GenerateSummary", "date", t.Subject, "error", err)
		return fmt.Errorf("failed to generate summary: %w", err)
	}
	if summary == nil {
		slog.Info("Task completed", "type", "GenerateSummary", "date", t.Subject, "articles", 0)
		return nil
	}

	if t.sender != nil {
		if err := t.sender.Send(ctx, summary); err != nil {
			slog.Error("Task failed", "type", "GenerateSummary", "date", t.Subject, "error", err)
			return fmt.Errorf("failed to send summary: %w", err)
		}
	}

	slog.Info("Task completed",
		"type", "GenerateSummary",
		"date", t.Subject,
		"articles", summary.ArticleCount,
		"duration", t.GetDuration())

	return nil
}
