package api

import (
	"context"
	"time"

	"github.com/ainewshq/ainews/app/database"
	"github.com/ainewshq/ainews/app/digest"
	"github.com/ainewshq/ainews/app/discovery"
	"github.com/ainewshq/ainews/app/fetch"
	"github.com/ainewshq/ainews/app/news"
	"github.com/ainewshq/ainews/app/tasks"
)

type SummarizerInterface interface {
	GenerateSummary(ctx context.Context, targetDate time.Time, articles []news.Article) (*news.DailySummary, error)
	GetSummary(targetDate time.Time) (*news.DailySummary, error)
}

var _ SummarizerInterface = (*digest.Summarizer)(nil)

type SourceValidator interface {
	Validate(ctx context.Context, url string) fetch.ValidationResult
}

var _ SourceValidator = (*fetch.Validator)(nil)

type DiscoveryInterface interface {
	SuggestSources(ctx context.Context, topic string, count int) ([]discovery.Suggestion, error)
}

var _ DiscoveryInterface = (*discovery.Discovery)(nil)

type Handler struct {
	registry     database.SourceRegistry
	articles     database.ArticleStore
	summaries    database.SummaryStore
	summarizer   SummarizerInterface
	validator    SourceValidator
	discoverer   DiscoveryInterface
	orchestrator *fetch.Orchestrator
	scheduler    tasks.TaskSchedulerInterface
	version      string
}
