package fetch

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/ainewshq/ainews/app/news"
)

var _ Adapter = (*ScrapeAdapter)(nil)

// ScrapeAdapter extracts articles from a web page using the CSS selector
// configured on the source.
type ScrapeAdapter struct {
	httpClient *http.Client
	userAgent  string
	timeout    time.Duration
}

func NewScrapeAdapter(httpClient *http.Client, userAgent string, timeout time.Duration) *ScrapeAdapter {
	return &ScrapeAdapter{
		httpClient: httpClient,
		userAgent:  userAgent,
		timeout:    timeout,
	}
}

func (a *ScrapeAdapter) CanHandle(source news.Source) bool {
	return source.Type == news.SourceTypeScrape
}

func (a *ScrapeAdapter) Fetch(ctx context.Context, source news.Source) []news.Article {
	if source.ScrapeSelector == "" {
		slog.Warn("No scrape selector configured", "source", source.ID)
		return nil
	}

	data, err := fetchBytes(ctx, a.httpClient, source.URL, a.userAgent, a.timeout)
	if err != nil {
		slog.Error("Failed to fetch page", "source", source.ID, "url", source.URL, "error", err)
		return nil
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		slog.Error("Failed to parse page", "source", source.ID, "error", err)
		return nil
	}

	base, err := url.Parse(source.URL)
	if err != nil {
		slog.Error("Invalid source URL", "source", source.ID, "url", source.URL, "error", err)
		return nil
	}

	var articles []news.Article
	doc.Find(source.ScrapeSelector).Each(func(i int, element *goquery.Selection) {
		if article, ok := a.parseElement(element, base, source); ok {
			articles = append(articles, article)
		}
	})

	return articles
}

// parseElement turns one selected element into an article. Elements without a
// discoverable hyperlink or title are skipped.
func (a *ScrapeAdapter) parseElement(element *goquery.Selection, base *url.URL, source news.Source) (news.Article, bool) {
	link := element.Find("a[href]").First()
	if link.Length() == 0 {
		return news.Article{}, false
	}

	href, _ := link.Attr("href")
	if href == "" {
		return news.Article{}, false
	}

	articleURL := resolveURL(base, href)
	if articleURL == "" {
		return news.Article{}, false
	}

	title := collapseWhitespace(link.Text())
	if title == "" {
		heading := element.Find("h1, h2, h3, h4").First()
		title = collapseWhitespace(heading.Text())
	}
	if title == "" {
		return news.Article{}, false
	}

	var content string
	if paragraph := element.Find("p").First(); paragraph.Length() > 0 {
		content = collapseWhitespace(paragraph.Text())
	}

	// Publication dates are unreliable on scraped pages; the source tags carry over.
	return news.NewArticle(title, articleURL, source.ID, nil, content, source.Tags), true
}

func resolveURL(base *url.URL, href string) string {
	parsed, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if parsed.IsAbs() {
		return parsed.String()
	}
	return base.ResolveReference(parsed).String()
}
