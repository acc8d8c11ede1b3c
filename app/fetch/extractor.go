package fetch

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	readability "github.com/go-shiori/go-readability"

	"github.com/ainewshq/ainews/app/news"
)

// Articles with at least this many words are considered full enough and are
// not re-fetched.
const enrichWordThreshold = 200

// Extractor fetches an article page and pulls out the readable body text.
// It backs the best-effort content enrichment pass that runs outside the
// fetch pipeline's critical path.
type Extractor struct {
	httpClient *http.Client
	userAgent  string
	timeout    time.Duration
}

func NewExtractor(httpClient *http.Client, userAgent string, timeout time.Duration) *Extractor {
	return &Extractor{
		httpClient: httpClient,
		userAgent:  userAgent,
		timeout:    timeout,
	}
}

// ExtractFromURL fetches the page and returns its readable text content.
func (e *Extractor) ExtractFromURL(ctx context.Context, pageURL string) (string, error) {
	data, err := fetchBytes(ctx, e.httpClient, pageURL, e.userAgent, e.timeout)
	if err != nil {
		return "", err
	}

	parsedURL, err := url.Parse(pageURL)
	if err != nil {
		return "", fmt.Errorf("invalid article URL: %w", err)
	}

	article, err := readability.FromReader(bytes.NewReader(data), parsedURL)
	if err != nil {
		return "", fmt.Errorf("failed to extract content: %w", err)
	}

	content := collapseWhitespace(article.TextContent)
	if content == "" {
		return "", fmt.Errorf("no content extracted from %s", pageURL)
	}

	return content, nil
}

// Enrich replaces the article content with the extracted page body, but only
// when the article is thin and the extracted text is strictly longer. The
// content hash is recomputed on replacement. Failures are logged and the
// article is left untouched.
func (e *Extractor) Enrich(ctx context.Context, article *news.Article) bool {
	if article.WordCount() > enrichWordThreshold {
		return false
	}

	content, err := e.ExtractFromURL(ctx, article.URL)
	if err != nil {
		slog.Debug("Content enrichment skipped", "article", article.ID, "url", article.URL, "error", err)
		return false
	}

	if len(content) <= len(article.Content) {
		return false
	}

	article.SetContent(content)
	return true
}
