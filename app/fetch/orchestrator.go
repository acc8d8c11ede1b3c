package fetch

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ainewshq/ainews/app/database"
	"github.com/ainewshq/ainews/app/news"
)

const DefaultMaxConcurrent = 10

// Orchestrator coordinates one fetch cycle: it selects due sources, fans out
// per-source fetches under a concurrency cap, deduplicates the merged results
// against the day's stored articles and persists what is genuinely new.
type Orchestrator struct {
	adapters      []Adapter
	registry      database.SourceRegistry
	store         database.ArticleStore
	deduplicator  *news.Deduplicator
	maxConcurrent int
}

func NewOrchestrator(adapters []Adapter, registry database.SourceRegistry,
	store database.ArticleStore, maxConcurrent int) *Orchestrator {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrent
	}
	return &Orchestrator{
		adapters:      adapters,
		registry:      registry,
		store:         store,
		deduplicator:  news.NewDeduplicator(news.DefaultSimilarityThreshold),
		maxConcurrent: maxConcurrent,
	}
}

// FetchAll runs one fetch cycle and returns only the new unique articles.
// With a nil source list it fetches the due sources, or every enabled source
// when force is set. Per-source failures are isolated; only persistence
// errors abort the cycle.
func (o *Orchestrator) FetchAll(ctx context.Context, sources []news.Source, force bool) ([]news.Article, error) {
	now := time.Now().UTC()

	if sources == nil {
		var err error
		if force {
			sources, err = o.registry.List(true)
		} else {
			sources, err = o.registry.DueForFetch(now)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to select sources: %w", err)
		}
	}

	if len(sources) == 0 {
		slog.Info("No sources to fetch")
		return nil, nil
	}

	var (
		mu     sync.Mutex
		merged []news.Article
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.maxConcurrent)

	for _, source := range sources {
		g.Go(func() error {
			articles := o.fetchSource(gctx, source)

			// A zero-result fetch still counts as an attempted fetch.
			if _, err := o.registry.MarkFetched(source.ID, time.Now().UTC()); err != nil {
				slog.Warn("Failed to mark source as fetched", "source", source.ID, "error", err)
			}

			mu.Lock()
			merged = append(merged, articles...)
			mu.Unlock()
			return nil
		})
	}

	// Tasks never return errors; failures are contained per source.
	_ = g.Wait()

	dateKey := news.DateKey(now)

	existing, err := o.store.Load(dateKey)
	if err != nil {
		return nil, fmt.Errorf("failed to load articles for %s: %w", dateKey, err)
	}

	unique := o.deduplicator.Deduplicate(merged, existing)

	if len(unique) > 0 {
		if err := o.store.Save(dateKey, append(existing, unique...)); err != nil {
			return nil, fmt.Errorf("failed to save articles for %s: %w", dateKey, err)
		}
	}

	slog.Info("Fetch cycle completed",
		"sources", len(sources),
		"fetched", len(merged),
		"new", len(unique))

	return unique, nil
}

// FetchSingle fetches one source by ID, ignoring its fetch interval. An
// unknown ID is logged and yields no articles.
func (o *Orchestrator) FetchSingle(ctx context.Context, sourceID string) ([]news.Article, error) {
	source, err := o.registry.Get(sourceID)
	if err != nil {
		return nil, fmt.Errorf("failed to look up source %s: %w", sourceID, err)
	}
	if source == nil {
		slog.Warn("Source not found", "source", sourceID)
		return nil, nil
	}

	return o.FetchAll(ctx, []news.Source{*source}, true)
}

// fetchSource dispatches the first matching adapter. Panics inside an adapter
// are contained here so one source can never take down the batch.
func (o *Orchestrator) fetchSource(ctx context.Context, source news.Source) (articles []news.Article) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Fetch panicked", "source", source.ID, "panic", r)
			articles = nil
		}
	}()

	for _, adapter := range o.adapters {
		if adapter.CanHandle(source) {
			return adapter.Fetch(ctx, source)
		}
	}

	slog.Warn("No adapter available for source type", "source", source.ID, "type", source.Type)
	return nil
}
