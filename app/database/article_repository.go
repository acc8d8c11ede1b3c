package database

import (
	"database/sql"
	"fmt"

	"github.com/ainewshq/ainews/app/news"
)

var _ ArticleStore = (*ArticleRepository)(nil)

// ArticleRepository stores articles partitioned by calendar date. Save
// replaces the whole partition inside one transaction, so a partition is
// never observed half-written.
type ArticleRepository struct {
	db *DB
}

func NewArticleRepository(db *DB) *ArticleRepository {
	return &ArticleRepository{db: db}
}

func (r *ArticleRepository) Load(dateKey string) ([]news.Article, error) {
	rows, err := r.db.Query(`
		SELECT id, title, url, source_id, published_at, fetched_at, content, content_hash, tags
		FROM articles
		WHERE date_key = ?
		ORDER BY position
	`, dateKey)
	if err != nil {
		return nil, fmt.Errorf("failed to load articles for %s: %w", dateKey, err)
	}
	defer rows.Close()

	var articles []news.Article
	for rows.Next() {
		var (
			article     news.Article
			publishedAt sql.NullString
			fetchedAt   string
			tags        string
		)

		err := rows.Scan(&article.ID, &article.Title, &article.URL, &article.SourceID,
			&publishedAt, &fetchedAt, &article.Content, &article.ContentHash, &tags)
		if err != nil {
			return nil, fmt.Errorf("failed to scan article: %w", err)
		}

		if article.PublishedAt, err = parseNullableTime(publishedAt); err != nil {
			return nil, err
		}
		if article.FetchedAt, err = parseTime(fetchedAt); err != nil {
			return nil, err
		}
		if err := unmarshalJSON(tags, &article.Tags); err != nil {
			return nil, err
		}

		articles = append(articles, article)
	}

	return articles, rows.Err()
}

func (r *ArticleRepository) Save(dateKey string, articles []news.Article) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM articles WHERE date_key = ?", dateKey); err != nil {
		return fmt.Errorf("failed to clear partition %s: %w", dateKey, err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO articles (date_key, id, title, url, source_id, published_at, fetched_at, content, content_hash, tags, position)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, article := range articles {
		tags, err := marshalJSON(article.Tags)
		if err != nil {
			return err
		}

		_, err = stmt.Exec(dateKey, article.ID, article.Title, article.URL, article.SourceID,
			formatNullableTime(article.PublishedAt), formatTime(article.FetchedAt),
			article.Content, article.ContentHash, tags, i)
		if err != nil {
			return fmt.Errorf("failed to insert article %s: %w", article.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit partition %s: %w", dateKey, err)
	}

	return nil
}

func (r *ArticleRepository) ListDates() ([]string, error) {
	rows, err := r.db.Query("SELECT DISTINCT date_key FROM articles ORDER BY date_key DESC")
	if err != nil {
		return nil, fmt.Errorf("failed to list article dates: %w", err)
	}
	defer rows.Close()

	var dates []string
	for rows.Next() {
		var date string
		if err := rows.Scan(&date); err != nil {
			return nil, fmt.Errorf("failed to scan date: %w", err)
		}
		dates = append(dates, date)
	}

	return dates, rows.Err()
}
