package tasks

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ainewshq/ainews/app/database"
	"github.com/ainewshq/ainews/app/fetch"
)

// EnrichArticlesTask extracts full page content for the thin articles of one
// day and persists the updated partition.
type EnrichArticlesTask struct {
	Task
	DateKey   string
	extractor *fetch.Extractor
	store     database.ArticleStore
}

func NewEnrichArticlesTask(extractor *fetch.Extractor, store database.ArticleStore, dateKey string) *EnrichArticlesTask {
	return &EnrichArticlesTask{
		Task:      NewTask(TaskTypeEnrichArticles, dateKey),
		DateKey:   dateKey,
		extractor: extractor,
		store:     store,
	}
}

func (t *EnrichArticlesTask) Execute(ctx context.Context) error {
	articles, err := t.store.Load(t.DateKey)
	if err != nil {
		slog.Error("Task failed", "type", "EnrichArticles", "date", t.DateKey, "error", err)
		return fmt.Errorf("failed to load articles for enrichment: %w", err)
	}
	if len(articles) == 0 {
		return nil
	}

	enriched := 0
	for i := range articles {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if t.extractor.Enrich(ctx, &articles[i]) {
			enriched++
		}
	}

	if enriched > 0 {
		if err := t.store.Save(t.DateKey, articles); err != nil {
			slog.Error("Task failed", "type", "EnrichArticles", "date", t.DateKey, "error", err)
			return fmt.Errorf("failed to save enriched articles: %w", err)
		}
	}

	slog.Info("Task completed",
		"type", "EnrichArticles",
		"date", t.DateKey,
		"articles", len(articles),
		"enriched", enriched,
		"duration", t.GetDuration())

	return nil
}
