package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/ainewshq/ainews/app/news"
)

var _ SummaryStore = (*SummaryRepository)(nil)

// SummaryRepository stores at most one daily summary per date partition.
type SummaryRepository struct {
	db *DB
}

func NewSummaryRepository(db *DB) *SummaryRepository {
	return &SummaryRepository{db: db}
}

func (r *SummaryRepository) Load(dateKey string) ([]news.DailySummary, error) {
	row := r.db.QueryRow(`
		SELECT date_key, generated_at, article_count, article_ids, summary_text,
		       key_topics, notable_stories, model_used, tokens_used, delivered, delivered_at
		FROM summaries
		WHERE date_key = ?
	`, dateKey)

	var (
		summary     news.DailySummary
		generatedAt string
		articleIDs  string
		keyTopics   string
		stories     string
		tokensUsed  sql.NullInt64
		deliveredAt sql.NullString
	)

	err := row.Scan(&summary.Date, &generatedAt, &summary.ArticleCount, &articleIDs,
		&summary.SummaryText, &keyTopics, &stories, &summary.ModelUsed,
		&tokensUsed, &summary.Delivered, &deliveredAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan summary for %s: %w", dateKey, err)
	}

	if summary.GeneratedAt, err = parseTime(generatedAt); err != nil {
		return nil, err
	}
	if summary.DeliveredAt, err = parseNullableTime(deliveredAt); err != nil {
		return nil, err
	}
	if err := unmarshalJSON(articleIDs, &summary.ArticleIDs); err != nil {
		return nil, err
	}
	if err := unmarshalJSON(keyTopics, &summary.KeyTopics); err != nil {
		return nil, err
	}
	if err := unmarshalJSON(stories, &summary.NotableStories); err != nil {
		return nil, err
	}
	if tokensUsed.Valid {
		tokens := int(tokensUsed.Int64)
		summary.TokensUsed = &tokens
	}

	return []news.DailySummary{summary}, nil
}

// Save replaces the partition. The slice form matches the article store
// contract; only the first summary is kept since a date holds one digest.
func (r *SummaryRepository) Save(dateKey string, summaries []news.DailySummary) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM summaries WHERE date_key = ?", dateKey); err != nil {
		return fmt.Errorf("failed to clear summary for %s: %w", dateKey, err)
	}

	if len(summaries) > 0 {
		summary := summaries[0]

		articleIDs, err := marshalJSON(summary.ArticleIDs)
		if err != nil {
			return err
		}
		keyTopics, err := marshalJSON(summary.KeyTopics)
		if err != nil {
			return err
		}
		stories, err := marshalJSON(summary.NotableStories)
		if err != nil {
			return err
		}

		var tokensUsed sql.NullInt64
		if summary.TokensUsed != nil {
			tokensUsed = sql.NullInt64{Int64: int64(*summary.TokensUsed), Valid: true}
		}

		_, err = tx.Exec(`
			INSERT INTO summaries (date_key, generated_at, article_count, article_ids, summary_text,
			                       key_topics, notable_stories, model_used, tokens_used, delivered, delivered_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, dateKey, formatTime(summary.GeneratedAt), summary.ArticleCount, articleIDs,
			summary.SummaryText, keyTopics, stories, summary.ModelUsed,
			tokensUsed, summary.Delivered, formatNullableTime(summary.DeliveredAt))
		if err != nil {
			return fmt.Errorf("failed to insert summary for %s: %w", dateKey, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit summary for %s: %w", dateKey, err)
	}

	return nil
}

func (r *SummaryRepository) MarkDelivered(dateKey string, at time.Time) (bool, error) {
	result, err := r.db.Exec(`
		UPDATE summaries SET delivered = 1, delivered_at = ? WHERE date_key = ?
	`, formatTime(at), dateKey)
	if err != nil {
		return false, fmt.Errorf("failed to mark summary %s as delivered: %w", dateKey, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return affected > 0, nil
}

// Latest returns the most recent stored summary, or nil when none exist.
func (r *SummaryRepository) Latest() (*news.DailySummary, error) {
	row := r.db.QueryRow("SELECT date_key FROM summaries ORDER BY date_key DESC LIMIT 1")

	var dateKey string
	err := row.Scan(&dateKey)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find latest summary: %w", err)
	}

	summaries, err := r.Load(dateKey)
	if err != nil || len(summaries) == 0 {
		return nil, err
	}
	return &summaries[0], nil
}
