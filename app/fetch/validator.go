package fetch

import (
	"context"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/ainewshq/ainews/app/news"
)

const (
	DefaultValidateTimeout = 10 * time.Second

	// Only the head of the document is needed for type sniffing.
	validateSniffLimit = 5000
)

var titlePattern = regexp.MustCompile(`(?i)<title[^>]*>([^<]+)</title>`)

// ValidationResult describes what a candidate source URL points at.
type ValidationResult struct {
	Valid bool            `json:"valid"`
	Type  news.SourceType `json:"type,omitempty"`
	Title string          `json:"title,omitempty"`
	Error string          `json:"error,omitempty"`
}

// Validator probes a URL and detects whether it serves a syndication feed or
// a plain web page, so sources can be registered with the right adapter type.
type Validator struct {
	httpClient *http.Client
	userAgent  string
	timeout    time.Duration
}

func NewValidator(httpClient *http.Client, userAgent string, timeout time.Duration) *Validator {
	if timeout <= 0 {
		timeout = DefaultValidateTimeout
	}
	return &Validator{
		httpClient: httpClient,
		userAgent:  userAgent,
		timeout:    timeout,
	}
}

// Validate fetches the URL and classifies it. Fetch failures yield an invalid
// result, not an error; a reachable page that is not a feed is still valid as
// a scrape source.
func (v *Validator) Validate(ctx context.Context, url string) ValidationResult {
	timeoutCtx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(timeoutCtx, "GET", url, nil)
	if err != nil {
		return ValidationResult{Error: "invalid URL: " + err.Error()}
	}
	req.Header.Set("User-Agent", v.userAgent)

	resp, err := v.httpClient.Do(req)
	if err != nil {
		return ValidationResult{Error: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return ValidationResult{Error: "HTTP error: " + resp.Status}
	}

	head, err := io.ReadAll(io.LimitReader(resp.Body, validateSniffLimit))
	if err != nil {
		return ValidationResult{Error: "reading response: " + err.Error()}
	}
	content := string(head)

	contentType := strings.ToLower(resp.Header.Get("Content-Type"))

	if sourceType, ok := detectFeedType(content, contentType); ok {
		return ValidationResult{
			Valid: true,
			Type:  sourceType,
			Title: extractTitle(content),
		}
	}

	return ValidationResult{
		Valid: true,
		Type:  news.SourceTypeScrape,
		Title: extractTitle(content),
	}
}

// detectFeedType sniffs the content-type header first, then the document
// itself, for RSS and Atom markers.
func detectFeedType(content, contentType string) (news.SourceType, bool) {
	lower := strings.ToLower(content)

	if strings.Contains(contentType, "application/rss") || strings.Contains(contentType, "application/atom") {
		if strings.Contains(contentType, "atom") {
			return news.SourceTypeAtom, true
		}
		return news.SourceTypeFeed, true
	}

	if strings.Contains(contentType, "application/xml") || strings.Contains(contentType, "text/xml") {
		if strings.Contains(lower, "<feed") && strings.Contains(lower, "xmlns") {
			return news.SourceTypeAtom, true
		}
		if strings.Contains(lower, "<rss") || strings.Contains(lower, "<channel>") {
			return news.SourceTypeFeed, true
		}
	}

	if strings.Contains(lower, "<feed") && (strings.Contains(lower, "atom") || strings.Contains(lower, "xmlns")) {
		return news.SourceTypeAtom, true
	}
	if strings.Contains(lower, "<rss") || (strings.Contains(lower, "<channel>") && strings.Contains(lower, "<item>")) {
		return news.SourceTypeFeed, true
	}

	return "", false
}

func extractTitle(content string) string {
	if match := titlePattern.FindStringSubmatch(content); match != nil {
		return strings.TrimSpace(match[1])
	}
	return ""
}
