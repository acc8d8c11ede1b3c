package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/ainewshq/ainews/app/news"
)

var _ SourceRegistry = (*SourceRepository)(nil)

// SourceRepository handles database operations for news sources
type SourceRepository struct {
	db *DB
}

func NewSourceRepository(db *DB) *SourceRepository {
	return &SourceRepository{db: db}
}

const sourceColumns = "id, name, url, type, enabled, scrape_selector, last_fetched, fetch_interval_hours, tags, added_at"

func (r *SourceRepository) List(enabledOnly bool) ([]news.Source, error) {
	query := "SELECT " + sourceColumns + " FROM sources ORDER BY id"
	if enabledOnly {
		query = "SELECT " + sourceColumns + " FROM sources WHERE enabled = 1 ORDER BY id"
	}

	rows, err := r.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to list sources: %w", err)
	}
	defer rows.Close()

	var sources []news.Source
	for rows.Next() {
		source, err := scanSource(rows)
		if err != nil {
			return nil, err
		}
		sources = append(sources, source)
	}

	return sources, rows.Err()
}

func (r *SourceRepository) Get(id string) (*news.Source, error) {
	row := r.db.QueryRow("SELECT "+sourceColumns+" FROM sources WHERE id = ?", id)

	source, err := scanSource(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &source, nil
}

func (r *SourceRepository) Add(source news.Source) error {
	tags, err := marshalJSON(source.Tags)
	if err != nil {
		return err
	}

	_, err = r.db.Exec(`
		INSERT INTO sources (`+sourceColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, source.ID, source.Name, source.URL, string(source.Type), source.Enabled,
		source.ScrapeSelector, formatNullableTime(source.LastFetched),
		source.FetchIntervalHours, tags, formatTime(source.AddedAt))
	if err != nil {
		return fmt.Errorf("failed to insert source %s: %w", source.ID, err)
	}

	return nil
}

func (r *SourceRepository) Update(source news.Source) error {
	tags, err := marshalJSON(source.Tags)
	if err != nil {
		return err
	}

	_, err = r.db.Exec(`
		UPDATE sources
		SET name = ?, url = ?, type = ?, enabled = ?, scrape_selector = ?,
		    last_fetched = ?, fetch_interval_hours = ?, tags = ?
		WHERE id = ?
	`, source.Name, source.URL, string(source.Type), source.Enabled,
		source.ScrapeSelector, formatNullableTime(source.LastFetched),
		source.FetchIntervalHours, tags, source.ID)
	if err != nil {
		return fmt.Errorf("failed to update source %s: %w", source.ID, err)
	}

	return nil
}

// Upsert registers a source from configuration, inserting it when unknown and
// otherwise refreshing its settings while preserving the fetch timestamp.
func (r *SourceRepository) Upsert(source news.Source) error {
	existing, err := r.Get(source.ID)
	if err != nil {
		return fmt.Errorf("failed to check existing source: %w", err)
	}
	if existing == nil {
		return r.Add(source)
	}

	source.LastFetched = existing.LastFetched
	return r.Update(source)
}

func (r *SourceRepository) Delete(id string) (bool, error) {
	result, err := r.db.Exec("DELETE FROM sources WHERE id = ?", id)
	if err != nil {
		return false, fmt.Errorf("failed to delete source %s: %w", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return affected > 0, nil
}

func (r *SourceRepository) SetEnabled(id string, enabled bool) (bool, error) {
	result, err := r.db.Exec("UPDATE sources SET enabled = ? WHERE id = ?", enabled, id)
	if err != nil {
		return false, fmt.Errorf("failed to set enabled for source %s: %w", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return affected > 0, nil
}

func (r *SourceRepository) MarkFetched(id string, at time.Time) (bool, error) {
	result, err := r.db.Exec("UPDATE sources SET last_fetched = ? WHERE id = ?", formatTime(at), id)
	if err != nil {
		return false, fmt.Errorf("failed to mark source %s as fetched: %w", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return affected > 0, nil
}

// DueForFetch returns enabled sources whose fetch interval has elapsed.
// The interval check runs in Go so the predicate stays in one place.
func (r *SourceRepository) DueForFetch(now time.Time) ([]news.Source, error) {
	sources, err := r.List(true)
	if err != nil {
		return nil, err
	}

	due := make([]news.Source, 0, len(sources))
	for _, s := range sources {
		if s.ShouldFetch(now) {
			due = append(due, s)
		}
	}
	return due, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSource(row rowScanner) (news.Source, error) {
	var (
		source      news.Source
		sourceType  string
		lastFetched sql.NullString
		tags        string
		addedAt     string
	)

	err := row.Scan(&source.ID, &source.Name, &source.URL, &sourceType,
		&source.Enabled, &source.ScrapeSelector, &lastFetched,
		&source.FetchIntervalHours, &tags, &addedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return news.Source{}, err
		}
		return news.Source{}, fmt.Errorf("failed to scan source: %w", err)
	}

	source.Type = news.SourceType(sourceType)

	if source.LastFetched, err = parseNullableTime(lastFetched); err != nil {
		return news.Source{}, err
	}
	if source.AddedAt, err = parseTime(addedAt); err != nil {
		return news.Source{}, err
	}
	if err := unmarshalJSON(tags, &source.Tags); err != nil {
		return news.Source{}, err
	}

	return source, nil
}
