package digest

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/ainewshq/ainews/app/database"
	"github.com/ainewshq/ainews/app/llm"
	"github.com/ainewshq/ainews/app/news"
)

const (
	DefaultMaxArticles = 50

	// Per-article content budget inside the prompt; longer bodies are cut so
	// prompt size stays bounded regardless of article length.
	promptContentLimit = 2000
)

const systemPrompt = `You are an AI news summarizer. Your task is to create a comprehensive yet concise daily summary of AI news articles.

Guidelines:
1. Focus on the most significant developments and trends
2. Group related stories together by theme
3. Highlight key players, companies, and technologies mentioned
4. Note any important implications or potential impacts
5. Keep the tone informative and professional
6. Include specific details and numbers when relevant

Output Format:
Respond with a JSON object containing:
{
  "summary": "A 2-4 paragraph summary covering the day's key AI developments",
  "key_topics": ["topic1", "topic2", ...],
  "notable_stories": [
    {
      "title": "Story title",
      "source": "Source name",
      "brief": "One sentence description",
      "url": "Article URL"
    }
  ]
}
key_topics should hold the 3-5 main topics covered and notable_stories the 3-5 most notable stories.`

// Summarizer turns one day's articles into a structured daily summary via
// the generative-text provider.
type Summarizer struct {
	provider    llm.Provider
	articles    database.ArticleStore
	summaries   database.SummaryStore
	model       string
	maxArticles int
	maxTokens   int
}

func NewSummarizer(provider llm.Provider, articles database.ArticleStore,
	summaries database.SummaryStore, model string, maxArticles, maxTokens int) *Summarizer {
	if maxArticles <= 0 {
		maxArticles = DefaultMaxArticles
	}
	return &Summarizer{
		provider:    provider,
		articles:    articles,
		summaries:   summaries,
		model:       model,
		maxArticles: maxArticles,
		maxTokens:   maxTokens,
	}
}

// GenerateSummary builds and persists the summary for targetDate. With a nil
// article list the stored partition is used; an empty day yields (nil, nil)
// without calling the provider. Regenerating overwrites the stored summary.
func (s *Summarizer) GenerateSummary(ctx context.Context, targetDate time.Time, articles []news.Article) (*news.DailySummary, error) {
	dateKey := news.DateKey(targetDate)

	if articles == nil {
		var err error
		articles, err = s.articles.Load(dateKey)
		if err != nil {
			return nil, fmt.Errorf("failed to load articles for %s: %w", dateKey, err)
		}
	}

	if len(articles) == 0 {
		slog.Info("No articles to summarize", "date", dateKey)
		return nil, nil
	}

	articles = s.limitArticles(articles)

	prompt := s.buildPrompt(articles)

	responseText, tokensUsed, err := s.provider.Generate(ctx, prompt, systemPrompt, s.maxTokens)
	if err != nil {
		return nil, fmt.Errorf("failed to generate summary for %s: %w", dateKey, err)
	}

	summary := s.parseResponse(responseText, articles, dateKey, tokensUsed)

	if err := s.summaries.Save(dateKey, []news.DailySummary{summary}); err != nil {
		return nil, fmt.Errorf("failed to save summary for %s: %w", dateKey, err)
	}

	slog.Info("Summary generated",
		"date", dateKey,
		"articles", summary.ArticleCount,
		"topics", len(summary.KeyTopics),
		"model", summary.ModelUsed)

	return &summary, nil
}

// GetSummary returns the stored summary for a date, or nil.
func (s *Summarizer) GetSummary(targetDate time.Time) (*news.DailySummary, error) {
	summaries, err := s.summaries.Load(news.DateKey(targetDate))
	if err != nil {
		return nil, err
	}
	if len(summaries) == 0 {
		return nil, nil
	}
	return &summaries[0], nil
}

// limitArticles keeps the most recent maxArticles entries, by publication
// time with fetch time as fallback. Older items are dropped entirely.
func (s *Summarizer) limitArticles(articles []news.Article) []news.Article {
	if len(articles) <= s.maxArticles {
		return articles
	}

	sorted := make([]news.Article, len(articles))
	copy(sorted, articles)
	sort.SliceStable(sorted, func(i, j int) bool {
		return effectiveTime(sorted[i]).After(effectiveTime(sorted[j]))
	})

	return sorted[:s.maxArticles]
}

func effectiveTime(a news.Article) time.Time {
	if a.PublishedAt != nil {
		return *a.PublishedAt
	}
	return a.FetchedAt
}

func (s *Summarizer) buildPrompt(articles []news.Article) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Please summarize the following %d AI news articles from today:\n\n", len(articles))

	for i, article := range articles {
		fmt.Fprintf(&b, "--- Article %d ---\n", i+1)
		fmt.Fprintf(&b, "Title: %s\n", article.Title)
		fmt.Fprintf(&b, "Source: %s\n", article.SourceID)
		fmt.Fprintf(&b, "URL: %s\n", article.URL)
		if article.PublishedAt != nil {
			fmt.Fprintf(&b, "Published: %s\n", article.PublishedAt.Format(time.RFC3339))
		}
		if article.Content != "" {
			fmt.Fprintf(&b, "Content: %s\n", truncateContent(article.Content, promptContentLimit))
		}
		b.WriteString("\n")
	}

	return b.String()
}

// truncateContent cuts content at limit bytes without splitting a multi-byte
// rune, backing off to the nearest rune boundary.
func truncateContent(content string, limit int) string {
	if len(content) <= limit {
		return content
	}
	for limit > 0 && !utf8.RuneStart(content[limit]) {
		limit--
	}
	return content[:limit] + "..."
}

type summaryResponse struct {
	Summary        string              `json:"summary"`
	KeyTopics      []string            `json:"key_topics"`
	NotableStories []news.NotableStory `json:"notable_stories"`
}

// parseResponse decodes the provider output. A response that is not valid
// JSON degrades to a raw-text summary rather than failing.
func (s *Summarizer) parseResponse(responseText string, articles []news.Article, dateKey string, tokensUsed int) news.DailySummary {
	articleIDs := make([]string, len(articles))
	for i, a := range articles {
		articleIDs[i] = a.ID
	}

	summary := news.DailySummary{
		Date:           dateKey,
		GeneratedAt:    time.Now().UTC(),
		ArticleCount:   len(articles),
		ArticleIDs:     articleIDs,
		SummaryText:    responseText,
		KeyTopics:      []string{},
		NotableStories: []news.NotableStory{},
		ModelUsed:      s.model,
	}
	if tokensUsed > 0 {
		summary.TokensUsed = &tokensUsed
	}

	var parsed summaryResponse
	if err := json.Unmarshal([]byte(stripCodeFences(responseText)), &parsed); err != nil {
		slog.Warn("Summary response is not valid JSON, storing raw text", "date", dateKey, "error", err)
		return summary
	}

	if parsed.Summary != "" {
		summary.SummaryText = parsed.Summary
	}
	if parsed.KeyTopics != nil {
		summary.KeyTopics = parsed.KeyTopics
	}
	if parsed.NotableStories != nil {
		summary.NotableStories = parsed.NotableStories
	}

	return summary
}

// stripCodeFences drops markdown fence lines so a ```json block parses.
func stripCodeFences(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}

	var kept []string
	for _, line := range strings.Split(text, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			continue
		}
		kept = append(kept, line)
	}
	return strings.TrimSpace(strings.Join(kept, "\n"))
}
