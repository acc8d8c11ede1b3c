package database

import (
	"time"

	"github.com/ainewshq/ainews/app/news"
)

// SourceRegistry holds source configuration records and answers the
// "which sources are due" query the fetch pipeline needs.
type SourceRegistry interface {
	List(enabledOnly bool) ([]news.Source, error)
	Get(id string) (*news.Source, error)
	Add(source news.Source) error
	Update(source news.Source) error
	Delete(id string) (bool, error)
	SetEnabled(id string, enabled bool) (bool, error)
	MarkFetched(id string, at time.Time) (bool, error)
	DueForFetch(now time.Time) ([]news.Source, error)
}

// ArticleStore persists articles per date partition with whole-partition
// replace semantics.
type ArticleStore interface {
	Load(dateKey string) ([]news.Article, error)
	Save(dateKey string, articles []news.Article) error
	ListDates() ([]string, error)
}

// SummaryStore persists at most one daily summary per date partition.
type SummaryStore interface {
	Load(dateKey string) ([]news.DailySummary, error)
	Save(dateKey string, summaries []news.DailySummary) error
	MarkDelivered(dateKey string, at time.Time) (bool, error)
	Latest() (*news.DailySummary, error)
}
