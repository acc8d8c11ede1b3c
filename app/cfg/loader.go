package cfg

import (
	"cmp"
	"fmt"
	"time"

	"github.com/jessevdk/go-flags"
)

// Version is set at build time via -ldflags
var Version = "dev"

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

type rawCfg struct {
	// Storage configuration
	DBPath      string `long:"db-path" env:"DB_PATH" default:"./data/ainews.db" description:"Path to the SQLite database file"`
	SourcesFile string `long:"sources-file" env:"SOURCES_FILE" default:"./sources.yml" description:"YAML file seeding the source registry"`

	// Application configuration
	Port              string `long:"port" env:"PORT" default:"8080" description:"HTTP server port"`
	WorkerCount       int    `long:"worker-count" env:"WORKER_COUNT" default:"3" description:"Number of background workers"`
	SchedulerInterval int    `long:"scheduler-interval" env:"SCHEDULER_INTERVAL" default:"60" description:"Scheduler interval in seconds"`
	APIAccessKey      string `long:"api-key" env:"API_ACCESS_KEY" description:"API access key for authentication (optional)"`

	// Fetching configuration
	UserAgent            string `long:"user-agent" env:"USER_AGENT" default:"AiNews/1.0" description:"User agent string for HTTP requests"`
	FetchTimeout         int    `long:"fetch-timeout" env:"FETCH_TIMEOUT" default:"30" description:"Per-source fetch timeout in seconds"`
	MaxConcurrentFetches int    `long:"max-concurrent-fetches" env:"MAX_CONCURRENT_FETCHES" default:"10" description:"Maximum number of sources fetched in parallel"`

	// Summarization configuration
	AnthropicAPIKey       string `long:"anthropic-api-key" env:"ANTHROPIC_API_KEY" description:"Anthropic API key (required for summarization)"`
	Model                 string `long:"model" env:"MODEL" default:"claude-sonnet-4-20250514" description:"Model used for summarization"`
	MaxArticlesPerSummary int    `long:"max-articles-per-summary" env:"MAX_ARTICLES_PER_SUMMARY" default:"50" description:"Maximum number of articles included in one summary"`
	MaxSummaryTokens      int    `long:"max-summary-tokens" env:"MAX_SUMMARY_TOKENS" default:"4096" description:"Maximum tokens for a generated summary"`
	SummaryHour           int    `long:"summary-hour" env:"SUMMARY_HOUR" default:"21" description:"UTC hour after which the daily summary is generated (-1 disables)"`

	// Email delivery configuration
	SMTPHost     string   `long:"smtp-host" env:"SMTP_HOST" description:"SMTP server host"`
	SMTPPort     string   `long:"smtp-port" env:"SMTP_PORT" default:"587" description:"SMTP server port"`
	SMTPUser     string   `long:"smtp-user" env:"SMTP_USER" description:"SMTP username"`
	SMTPPassword string   `long:"smtp-password" env:"SMTP_PASSWORD" description:"SMTP password"`
	EmailFrom    string   `long:"email-from" env:"EMAIL_FROM" description:"Sender address for summary emails"`
	EmailTo      []string `long:"email-to" env:"EMAIL_TO" env-delim:"," description:"Recipient addresses for summary emails"`

	// One-shot commands
	RunFetch      bool   `long:"fetch" description:"Fetch articles once and exit"`
	FetchSource   string `long:"source" description:"Restrict --fetch to a single source id"`
	ForceFetch    bool   `long:"force" description:"Ignore fetch intervals with --fetch"`
	RunSummarize  bool   `long:"summarize" description:"Generate a summary once and exit"`
	RunSend       bool   `long:"send" description:"Send the summary email once and exit"`
	RunDiscover   bool   `long:"discover" description:"Suggest new sources once and exit"`
	DiscoverTopic string `long:"topic" description:"Topic for --discover (default artificial intelligence)"`
	DiscoverCount int    `long:"count" description:"Number of suggestions for --discover"`
	TargetDate    string `long:"date" description:"Target date for one-shot commands (YYYY-MM-DD, default today)"`

	// Application metadata
	Timezone string `long:"timezone" env:"TZ" default:"UTC" description:"Timezone for timestamps (e.g., UTC, America/New_York)"`
	Debug    bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`
}

func Load() (*Cfg, error) {
	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)

	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				return nil, nil
			}
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	cfg := &Cfg{
		DBPath:                raw.DBPath,
		SourcesFile:           raw.SourcesFile,
		Port:                  raw.Port,
		WorkerCount:           raw.WorkerCount,
		SchedulerInterval:     raw.SchedulerInterval,
		APIAccessKey:          raw.APIAccessKey,
		UserAgent:             raw.UserAgent,
		FetchTimeout:          raw.FetchTimeout,
		MaxConcurrentFetches:  raw.MaxConcurrentFetches,
		AnthropicAPIKey:       raw.AnthropicAPIKey,
		Model:                 raw.Model,
		MaxArticlesPerSummary: raw.MaxArticlesPerSummary,
		MaxSummaryTokens:      raw.MaxSummaryTokens,
		SummaryHour:           raw.SummaryHour,
		SMTPHost:              raw.SMTPHost,
		SMTPPort:              raw.SMTPPort,
		SMTPUser:              raw.SMTPUser,
		SMTPPassword:          raw.SMTPPassword,
		EmailFrom:             raw.EmailFrom,
		EmailTo:               raw.EmailTo,
		RunFetch:              raw.RunFetch,
		FetchSource:           raw.FetchSource,
		ForceFetch:            raw.ForceFetch,
		RunSummarize:          raw.RunSummarize,
		RunSend:               raw.RunSend,
		RunDiscover:           raw.RunDiscover,
		DiscoverTopic:         raw.DiscoverTopic,
		DiscoverCount:         raw.DiscoverCount,
		TargetDate:            raw.TargetDate,
		Timezone:              raw.Timezone,
		Debug:                 raw.Debug,
		Version:               GetVersion(),
	}

	if raw.TargetDate != "" {
		if _, err := time.Parse("2006-01-02", raw.TargetDate); err != nil {
			return nil, fmt.Errorf("invalid --date %q: %w", raw.TargetDate, err)
		}
	}

	if err := applyTimezone(cfg.Timezone); err != nil {
		fmt.Printf("Warning: Invalid timezone '%s', using system default: %v\n", cfg.Timezone, err)
	}

	return cfg, nil
}

func applyTimezone(timezone string) error {
	if timezone != "" {
		if loc, err := time.LoadLocation(timezone); err != nil {
			return err
		} else {
			time.Local = loc
			fmt.Printf("Timezone configured: %s\n", timezone)
		}
	}
	return nil
}
