package config

import (
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/ainewshq/ainews/app/news"
)

// Loader handles loading and validation of the source seed file
type Loader struct {
	path string
}

// NewLoader creates a new source seed loader
func NewLoader(path string) *Loader {
	return &Loader{path: path}
}

// LoadAll loads all sources declared in the seed file. A missing file is not
// an error, the registry is then managed through the API alone.
func (l *Loader) LoadAll() ([]news.Source, error) {
	data, err := os.ReadFile(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			slog.Info("No sources file found, skipping seed", "path", l.path)
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read sources file: %w", err)
	}

	var file SourcesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	sources := make([]news.Source, 0, len(file.Sources))
	seen := make(map[string]bool)
	for i := range file.Sources {
		entry := &file.Sources[i]
		l.setDefaults(entry)

		if err := l.validate(entry); err != nil {
			return nil, fmt.Errorf("invalid source at index %d: %w", i, err)
		}

		source := entry.ToSource()
		if seen[source.ID] {
			return nil, fmt.Errorf("duplicate source id %q", source.ID)
		}
		seen[source.ID] = true

		sources = append(sources, source)
	}

	slog.Info("Loaded source seed file", "path", l.path, "sources", len(sources))

	return sources, nil
}

// setDefaults applies default values to a source entry
func (l *Loader) setDefaults(entry *SourceConfig) {
	if entry.Type == "" {
		entry.Type = string(news.SourceTypeFeed)
	}
	if entry.FetchIntervalHours == 0 {
		entry.FetchIntervalHours = 24
	}
}

// validate validates a source entry
func (l *Loader) validate(entry *SourceConfig) error {
	if entry.URL == "" {
		return fmt.Errorf("source URL is required")
	}
	if entry.Name == "" {
		return fmt.Errorf("source name is required")
	}

	switch news.SourceType(entry.Type) {
	case news.SourceTypeFeed, news.SourceTypeAtom:
	case news.SourceTypeScrape:
		if entry.ScrapeSelector == "" {
			return fmt.Errorf("scrape sources require a selector")
		}
	default:
		return fmt.Errorf("unknown source type %q", entry.Type)
	}

	if entry.FetchIntervalHours < 0 {
		return fmt.Errorf("fetch interval must be non-negative")
	}

	return nil
}
