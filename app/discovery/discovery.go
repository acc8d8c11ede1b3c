package discovery

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ainewshq/ainews/app/llm"
	"github.com/ainewshq/ainews/app/news"
)

const (
	DefaultTopic = "artificial intelligence"
	DefaultCount = 5

	suggestMaxTokens = 2000
)

const systemPrompt = `You are an expert at finding high-quality news sources for AI and technology topics.

When suggesting sources, prioritize:
1. Official company blogs (OpenAI, Anthropic, Google AI, Meta AI, etc.)
2. Reputable tech news sites with AI coverage
3. Academic/research publication feeds
4. Industry analysis sites
5. Sources with RSS/Atom feeds (preferred over scraping)

For each source, provide accurate, verified URLs. Only suggest sources you are confident exist.`

// Suggestion is a candidate source proposed by the language model.
type Suggestion struct {
	Name        string `json:"name"`
	URL         string `json:"url"`
	Type        string `json:"type"`
	Description string `json:"description"`
}

// SourceType maps the model's type vocabulary onto source adapter types.
func (s Suggestion) SourceType() news.SourceType {
	switch strings.ToLower(s.Type) {
	case "rss":
		return news.SourceTypeFeed
	case "atom":
		return news.SourceTypeAtom
	default:
		return news.SourceTypeScrape
	}
}

// Discovery asks a language model to suggest news sources for a topic.
type Discovery struct {
	provider llm.Provider
}

func NewDiscovery(provider llm.Provider) *Discovery {
	return &Discovery{provider: provider}
}

// SuggestSources requests count source suggestions for topic. A response that
// cannot be parsed as a JSON array is logged and yields an empty list rather
// than an error.
func (d *Discovery) SuggestSources(ctx context.Context, topic string, count int) ([]Suggestion, error) {
	if topic == "" {
		topic = DefaultTopic
	}
	if count <= 0 {
		count = DefaultCount
	}

	responseText, _, err := d.provider.Generate(ctx, buildPrompt(topic, count), systemPrompt, suggestMaxTokens)
	if err != nil {
		return nil, fmt.Errorf("suggesting sources: %w", err)
	}

	var suggestions []Suggestion
	if err := json.Unmarshal([]byte(stripCodeFences(responseText)), &suggestions); err != nil {
		slog.Warn("Discovery response is not a JSON array", "topic", topic, "error", err)
		return []Suggestion{}, nil
	}

	slog.Info("Discovered source suggestions", "topic", topic, "count", len(suggestions))

	return suggestions, nil
}

func buildPrompt(topic string, count int) string {
	return fmt.Sprintf(`Suggest %d high-quality news sources for the topic: %q

For each source, provide a JSON array with objects containing:
- name: Display name of the source
- url: The RSS/Atom feed URL if available, otherwise the main page URL
- type: "rss" if it's an RSS/Atom feed, "web" if it requires scraping
- description: Brief description of what the source covers

Respond with only the JSON array, no other text.

Example format:
[
  {
    "name": "Example AI Blog",
    "url": "https://example.com/ai/feed.xml",
    "type": "rss",
    "description": "Covers AI research and industry news"
  }
]`, count, topic)
}

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
