package config

import (
	"time"

	"github.com/ainewshq/ainews/app/news"
)

// SourcesFile is the top-level structure of a sources YAML file.
type SourcesFile struct {
	Sources []SourceConfig `yaml:"sources"`
}

// SourceConfig is one source entry as declared in YAML.
type SourceConfig struct {
	ID                 string   `yaml:"id"`
	Name               string   `yaml:"name"`
	URL                string   `yaml:"url"`
	Type               string   `yaml:"type"`
	ScrapeSelector     string   `yaml:"selector"`
	FetchIntervalHours int      `yaml:"fetch_interval_hours"`
	Enabled            *bool    `yaml:"enabled"`
	Tags               []string `yaml:"tags"`
}

// ToSource converts the YAML entry into a registry source. An absent id is
// derived from the name.
func (c *SourceConfig) ToSource() news.Source {
	id := c.ID
	if id == "" {
		id = news.Slugify(c.Name)
	}
	enabled := true
	if c.Enabled != nil {
		enabled = *c.Enabled
	}
	return news.Source{
		ID:                 id,
		Name:               c.Name,
		URL:                c.URL,
		Type:               news.SourceType(c.Type),
		Enabled:            enabled,
		ScrapeSelector:     c.ScrapeSelector,
		FetchIntervalHours: c.FetchIntervalHours,
		Tags:               c.Tags,
		AddedAt:            time.Now().UTC(),
	}
}
