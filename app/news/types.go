package news

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"
)

type SourceType string

const (
	SourceTypeFeed   SourceType = "feed"
	SourceTypeAtom   SourceType = "atom"
	SourceTypeScrape SourceType = "scrape"
)

// Source is a configured origin of articles, either a syndication feed or a
// scraped web page.
type Source struct {
	ID                 string     `json:"id"`
	Name               string     `json:"name"`
	URL                string     `json:"url"`
	Type               SourceType `json:"type"`
	Enabled            bool       `json:"enabled"`
	ScrapeSelector     string     `json:"scrape_selector,omitempty"`
	LastFetched        *time.Time `json:"last_fetched,omitempty"`
	FetchIntervalHours int        `json:"fetch_interval_hours"`
	Tags               []string   `json:"tags,omitempty"`
	AddedAt            time.Time  `json:"added_at"`
}

// ShouldFetch reports whether enough time has passed since the last fetch.
// Disabled sources never fetch; sources that were never fetched always do.
func (s *Source) ShouldFetch(now time.Time) bool {
	if !s.Enabled {
		return false
	}
	if s.LastFetched == nil {
		return true
	}
	return now.Sub(*s.LastFetched).Hours() >= float64(s.FetchIntervalHours)
}

// Article is a single fetched news item. Its ID is derived from the URL so
// re-fetching the same URL yields the same identity.
type Article struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	URL         string     `json:"url"`
	SourceID    string     `json:"source_id"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
	FetchedAt   time.Time  `json:"fetched_at"`
	Content     string     `json:"content"`
	ContentHash string     `json:"content_hash"`
	Tags        []string   `json:"tags,omitempty"`
}

// NewArticle builds an article with both fingerprints computed.
func NewArticle(title, url, sourceID string, publishedAt *time.Time, content string, tags []string) Article {
	return Article{
		ID:          ArticleID(url),
		Title:       title,
		URL:         url,
		SourceID:    sourceID,
		PublishedAt: publishedAt,
		FetchedAt:   time.Now().UTC(),
		Content:     content,
		ContentHash: ContentHash(content),
		Tags:        tags,
	}
}

// SetContent replaces the article content and recomputes the content hash.
func (a *Article) SetContent(content string) {
	a.Content = content
	a.ContentHash = ContentHash(content)
}

func (a *Article) WordCount() int {
	return len(strings.Fields(a.Content))
}

// ArticleID derives the identity fingerprint from a URL.
func ArticleID(url string) string {
	sum := sha256.Sum256([]byte(url))
	return hex.EncodeToString(sum[:])[:16]
}

// ContentHash derives the content fingerprint from normalized body text.
// Empty content yields an empty hash, which never participates in dedup.
func ContentHash(content string) string {
	if content == "" {
		return ""
	}
	normalized := norm.NFC.String(strings.ToLower(strings.Join(strings.Fields(content), " ")))
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:])[:32]
}

// NotableStory is a single highlighted story inside a daily summary.
type NotableStory struct {
	Title  string `json:"title"`
	Source string `json:"source"`
	Brief  string `json:"brief"`
	URL    string `json:"url"`
}

// DailySummary is the generated digest for one calendar date.
type DailySummary struct {
	Date           string         `json:"date"`
	GeneratedAt    time.Time      `json:"generated_at"`
	ArticleCount   int            `json:"article_count"`
	ArticleIDs     []string       `json:"article_ids"`
	SummaryText    string         `json:"summary_text"`
	KeyTopics      []string       `json:"key_topics"`
	NotableStories []NotableStory `json:"notable_stories"`
	ModelUsed      string         `json:"model_used"`
	TokensUsed     *int           `json:"tokens_used,omitempty"`
	Delivered      bool           `json:"delivered"`
	DeliveredAt    *time.Time     `json:"delivered_at,omitempty"`
}

func (s *DailySummary) MarkDelivered() {
	now := time.Now().UTC()
	s.Delivered = true
	s.DeliveredAt = &now
}

// DateKey formats a time as the storage partition key, one per calendar date.
func DateKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

var (
	slugStrip    = regexp.MustCompile(`[^\w\s-]`)
	slugCollapse = regexp.MustCompile(`[-\s]+`)
)

// Slugify converts a display name into a stable source ID.
func Slugify(text string) string {
	text = strings.ToLower(strings.TrimSpace(text))
	text = slugStrip.ReplaceAllString(text, "")
	return slugCollapse.ReplaceAllString(text, "-")
}
