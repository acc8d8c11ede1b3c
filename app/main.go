package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ainewshq/ainews/app/api"
	"github.com/ainewshq/ainews/app/cfg"
	"github.com/ainewshq/ainews/app/config"
	"github.com/ainewshq/ainews/app/database"
	"github.com/ainewshq/ainews/app/delivery"
	"github.com/ainewshq/ainews/app/digest"
	"github.com/ainewshq/ainews/app/discovery"
	"github.com/ainewshq/ainews/app/fetch"
	"github.com/ainewshq/ainews/app/llm"
	"github.com/ainewshq/ainews/app/news"
	"github.com/ainewshq/ainews/app/tasks"
)

func main() {
	appCfg, err := cfg.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if appCfg == nil {
		// Help was shown, exit gracefully
		return
	}

	setupLogging(appCfg.Debug)

	slog.Info("Starting AiNews", "version", appCfg.Version)

	db, err := database.NewConnection(appCfg.DBPath)
	if err != nil {
		slog.Error("Failed to open database", "path", appCfg.DBPath, "error", err)
		os.Exit(1)
	}
	defer db.Close()

	version, dirty, err := database.RunMigrations(db)
	if err != nil {
		slog.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}
	slog.Info("Database ready", "path", appCfg.DBPath, "schema_version", version, "dirty", dirty)

	sourceRepo := database.NewSourceRepository(db)
	articleRepo := database.NewArticleRepository(db)
	summaryRepo := database.NewSummaryRepository(db)

	seedSources(appCfg.SourcesFile, sourceRepo)

	httpClient := &http.Client{}
	fetchTimeout := time.Duration(appCfg.FetchTimeout) * time.Second

	adapters := []fetch.Adapter{
		fetch.NewFeedAdapter(httpClient, appCfg.UserAgent, fetchTimeout),
		fetch.NewScrapeAdapter(httpClient, appCfg.UserAgent, fetchTimeout),
	}
	orchestrator := fetch.NewOrchestrator(adapters, sourceRepo, articleRepo, appCfg.MaxConcurrentFetches)
	extractor := fetch.NewExtractor(httpClient, appCfg.UserAgent, fetchTimeout)
	validator := fetch.NewValidator(httpClient, appCfg.UserAgent, fetch.DefaultValidateTimeout)

	var summarizer *digest.Summarizer
	var discoverer *discovery.Discovery
	if appCfg.AnthropicAPIKey != "" {
		client := llm.NewAnthropicClient(appCfg.AnthropicAPIKey, appCfg.Model, 2*time.Minute)
		provider := llm.NewRetryingProvider(client, llm.DefaultBackoffPolicy())
		summarizer = digest.NewSummarizer(provider, articleRepo, summaryRepo,
			appCfg.Model, appCfg.MaxArticlesPerSummary, appCfg.MaxSummaryTokens)
		discoverer = discovery.NewDiscovery(provider)
	} else {
		slog.Warn("ANTHROPIC_API_KEY not set, summarization and discovery disabled")
	}

	mailer := delivery.NewMailer(appCfg.SMTPHost, appCfg.SMTPPort, appCfg.SMTPUser,
		appCfg.SMTPPassword, appCfg.EmailFrom, appCfg.EmailTo, summaryRepo)

	if appCfg.OneShot() {
		if err := runOneShot(appCfg, orchestrator, summarizer, discoverer, summaryRepo, mailer); err != nil {
			slog.Error("Command failed", "error", err)
			os.Exit(1)
		}
		return
	}

	scheduler := tasks.NewScheduler(orchestrator, extractor, articleRepo, summarizer, mailer, tasks.Options{
		Interval:    time.Duration(appCfg.SchedulerInterval) * time.Second,
		WorkerCount: appCfg.WorkerCount,
		SummaryHour: appCfg.SummaryHour,
	})
	scheduler.Start()
	defer scheduler.Stop()
	slog.Info("Background scheduler started", "workers", appCfg.WorkerCount, "interval_seconds", appCfg.SchedulerInterval)

	var apiSummarizer api.SummarizerInterface
	var apiDiscoverer api.DiscoveryInterface
	if summarizer != nil {
		apiSummarizer = summarizer
	}
	if discoverer != nil {
		apiDiscoverer = discoverer
	}
	handler := api.NewHandler(sourceRepo, articleRepo, summaryRepo, apiSummarizer,
		validator, apiDiscoverer, orchestrator, scheduler, appCfg.Version)
	server := api.NewServer(handler, appCfg.APIAccessKey)

	httpServer := &http.Server{
		Addr:         ":" + appCfg.Port,
		Handler:      server,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "port", appCfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		slog.Info("Received signal", "signal", sig.String())
	case err := <-serverErrChan:
		slog.Error("Server error", "error", err)
	}

	slog.Info("Shutting down gracefully")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	// Scheduler is stopped via defer
	slog.Info("Shutdown complete")
}

func setupLogging(debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})))
}

// seedSources registers the sources declared in the seed file. Existing
// registry entries keep their fetch history.
func seedSources(path string, repo *database.SourceRepository) {
	sources, err := config.NewLoader(path).LoadAll()
	if err != nil {
		slog.Error("Failed to load sources file", "path", path, "error", err)
		os.Exit(1)
	}

	registered := 0
	for _, source := range sources {
		if err := repo.Upsert(source); err != nil {
			slog.Warn("Failed to register source", "source", source.ID, "error", err)
			continue
		}
		registered++
	}
	if len(sources) > 0 {
		slog.Info("Registered sources", "registered", registered, "total", len(sources))
	}
}

// runOneShot executes a single pipeline step and exits, for cron-style use.
func runOneShot(appCfg *cfg.Cfg, orchestrator *fetch.Orchestrator,
	summarizer *digest.Summarizer, discoverer *discovery.Discovery,
	summaryRepo *database.SummaryRepository, mailer *delivery.Mailer) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	targetDate := time.Now().UTC()
	if appCfg.TargetDate != "" {
		parsed, err := time.Parse("2006-01-02", appCfg.TargetDate)
		if err != nil {
			return fmt.Errorf("invalid date %q: %w", appCfg.TargetDate, err)
		}
		targetDate = parsed
	}

	if appCfg.RunFetch {
		var articles []news.Article
		var err error
		if appCfg.FetchSource != "" {
			articles, err = orchestrator.FetchSingle(ctx, appCfg.FetchSource)
		} else {
			articles, err = orchestrator.FetchAll(ctx, nil, appCfg.ForceFetch)
		}
		if err != nil {
			return fmt.Errorf("fetch failed: %w", err)
		}
		slog.Info("Fetch complete", "new_articles", len(articles))
	}

	if appCfg.RunSummarize {
		if summarizer == nil {
			return fmt.Errorf("summarization requires ANTHROPIC_API_KEY")
		}
		summary, err := summarizer.GenerateSummary(ctx, targetDate, nil)
		if err != nil {
			return fmt.Errorf("summarization failed: %w", err)
		}
		if summary == nil {
			slog.Info("No articles to summarize", "date", news.DateKey(targetDate))
		} else {
			slog.Info("Summary generated", "date", summary.Date, "articles", summary.ArticleCount)
		}
	}

	if appCfg.RunDiscover {
		if discoverer == nil {
			return fmt.Errorf("source discovery requires ANTHROPIC_API_KEY")
		}
		suggestions, err := discoverer.SuggestSources(ctx, appCfg.DiscoverTopic, appCfg.DiscoverCount)
		if err != nil {
			return fmt.Errorf("discovery failed: %w", err)
		}
		for _, s := range suggestions {
			fmt.Printf("%s (%s)\n  %s\n  %s\n", s.Name, s.SourceType(), s.URL, s.Description)
		}
		if len(suggestions) == 0 {
			slog.Info("No source suggestions returned")
		}
	}

	if appCfg.RunSend {
		summaries, err := summaryRepo.Load(news.DateKey(targetDate))
		if err != nil {
			return fmt.Errorf("failed to load summary: %w", err)
		}
		if len(summaries) == 0 {
			return fmt.Errorf("no summary for %s, run --summarize first", news.DateKey(targetDate))
		}
		if err := mailer.Send(ctx, &summaries[0]); err != nil {
			return fmt.Errorf("delivery failed: %w", err)
		}
	}

	return nil
}
