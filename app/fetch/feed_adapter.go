package fetch

import (
	"bytes"
	"cmp"
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/mmcdole/gofeed"

	"github.com/ainewshq/ainews/app/news"
)

var _ Adapter = (*FeedAdapter)(nil)

// FeedAdapter fetches and parses RSS and Atom feeds.
type FeedAdapter struct {
	httpClient   *http.Client
	gofeedParser *gofeed.Parser
	userAgent    string
	timeout      time.Duration
}

func NewFeedAdapter(httpClient *http.Client, userAgent string, timeout time.Duration) *FeedAdapter {
	return &FeedAdapter{
		httpClient:   httpClient,
		gofeedParser: gofeed.NewParser(),
		userAgent:    userAgent,
		timeout:      timeout,
	}
}

func (a *FeedAdapter) CanHandle(source news.Source) bool {
	return source.Type == news.SourceTypeFeed || source.Type == news.SourceTypeAtom
}

func (a *FeedAdapter) Fetch(ctx context.Context, source news.Source) []news.Article {
	data, err := fetchBytes(ctx, a.httpClient, source.URL, a.userAgent, a.timeout)
	if err != nil {
		slog.Error("Failed to fetch feed", "source", source.ID, "url", source.URL, "error", err)
		return nil
	}

	feed, err := a.gofeedParser.Parse(bytes.NewReader(data))
	if err != nil {
		slog.Error("Failed to parse feed", "source", source.ID, "error", err)
		return nil
	}

	articles := make([]news.Article, 0, len(feed.Items))
	for _, item := range feed.Items {
		if article, ok := a.parseItem(item, source); ok {
			articles = append(articles, article)
		}
	}

	return articles
}

// parseItem normalizes a single feed entry. Entries without a resolvable URL
// or a title are skipped.
func (a *FeedAdapter) parseItem(item *gofeed.Item, source news.Source) (news.Article, bool) {
	url := cmp.Or(item.Link, item.GUID)
	if url == "" {
		return news.Article{}, false
	}

	title := strings.TrimSpace(item.Title)
	if title == "" {
		return news.Article{}, false
	}

	content := a.extractContent(item)
	publishedAt := a.parseDate(item)

	var tags []string
	for _, category := range item.Categories {
		if category != "" {
			tags = append(tags, strings.ToLower(category))
		}
	}

	return news.NewArticle(title, url, source.ID, publishedAt, content, tags), true
}

// extractContent prefers the full content body over the summary/description.
func (a *FeedAdapter) extractContent(item *gofeed.Item) string {
	if item.Content != "" {
		return stripMarkup(item.Content)
	}
	if item.Description != "" {
		return stripMarkup(item.Description)
	}
	return ""
}

// parseDate tries the pre-parsed timestamps first, then falls back to parsing
// the raw date strings. Returns nil when nothing parses.
func (a *FeedAdapter) parseDate(item *gofeed.Item) *time.Time {
	if item.PublishedParsed != nil {
		return item.PublishedParsed
	}
	if item.UpdatedParsed != nil {
		return item.UpdatedParsed
	}

	for _, raw := range []string{item.Published, item.Updated} {
		if raw == "" {
			continue
		}
		if parsed, err := dateparse.ParseAny(raw); err == nil {
			return &parsed
		}
	}

	return nil
}
