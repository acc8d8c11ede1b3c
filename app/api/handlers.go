package api

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ainewshq/ainews/app/database"
	"github.com/ainewshq/ainews/app/fetch"
	"github.com/ainewshq/ainews/app/news"
	"github.com/ainewshq/ainews/app/tasks"
)

func NewHandler(registry database.SourceRegistry, articles database.ArticleStore,
	summaries database.SummaryStore, summarizer SummarizerInterface,
	validator SourceValidator, discoverer DiscoveryInterface,
	orchestrator *fetch.Orchestrator, scheduler tasks.TaskSchedulerInterface,
	version string) *Handler {
	return &Handler{
		registry:     registry,
		articles:     articles,
		summaries:    summaries,
		summarizer:   summarizer,
		validator:    validator,
		discoverer:   discoverer,
		orchestrator: orchestrator,
		scheduler:    scheduler,
		version:      version,
	}
}

func (h *Handler) GetHealth(c *gin.Context) {
	health := map[string]interface{}{
		"timestamp": time.Now().In(time.Local).Format(time.RFC3339),
		"version":   h.version,
	}

	if sources, err := h.registry.List(false); err == nil {
		health["sources"] = len(sources)
	}

	if dates, err := h.articles.ListDates(); err == nil {
		health["article_days"] = len(dates)
	}

	c.JSON(http.StatusOK, health)
}

func (h *Handler) APIListSources(c *gin.Context) {
	enabledOnly := c.Query("enabled") == "true"

	sources, err := h.registry.List(enabledOnly)
	if err != nil {
		slog.Error("Database error", "operation", "list_sources", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	c.JSON(http.StatusOK, map[string]interface{}{
		"sources": sources,
		"total":   len(sources),
	})
}

func (h *Handler) APIGetSource(c *gin.Context) {
	id := c.Param("id")

	source, err := h.registry.Get(id)
	if err != nil {
		slog.Error("Database error", "operation", "get_source", "source", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	if source == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Source not found"})
		return
	}

	c.JSON(http.StatusOK, source)
}

type sourceRequest struct {
	ID                 string   `json:"id"`
	Name               string   `json:"name"`
	URL                string   `json:"url"`
	Type               string   `json:"type"`
	ScrapeSelector     string   `json:"scrape_selector"`
	FetchIntervalHours int      `json:"fetch_interval_hours"`
	Enabled            *bool    `json:"enabled"`
	Tags               []string `json:"tags"`
}

func (r *sourceRequest) toSource() (news.Source, string) {
	if r.Name == "" {
		return news.Source{}, "Source name is required"
	}
	if r.URL == "" {
		return news.Source{}, "Source URL is required"
	}

	sourceType := news.SourceType(r.Type)
	if sourceType == "" {
		sourceType = news.SourceTypeFeed
	}
	switch sourceType {
	case news.SourceTypeFeed, news.SourceTypeAtom:
	case news.SourceTypeScrape:
		if r.ScrapeSelector == "" {
			return news.Source{}, "Scrape sources require a selector"
		}
	default:
		return news.Source{}, "Unknown source type"
	}

	id := r.ID
	if id == "" {
		id = news.Slugify(r.Name)
	}
	interval := r.FetchIntervalHours
	if interval == 0 {
		interval = 24
	}
	enabled := true
	if r.Enabled != nil {
		enabled = *r.Enabled
	}

	return news.Source{
		ID:                 id,
		Name:               r.Name,
		URL:                r.URL,
		Type:               sourceType,
		Enabled:            enabled,
		ScrapeSelector:     r.ScrapeSelector,
		FetchIntervalHours: interval,
		Tags:               r.Tags,
		AddedAt:            time.Now().UTC(),
	}, ""
}

func (h *Handler) APIAddSource(c *gin.Context) {
	var req sourceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	if req.Type == "" && req.URL != "" && h.validator != nil {
		result := h.validator.Validate(c.Request.Context(), req.URL)
		if !result.Valid {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Source URL is not reachable", "details": result.Error})
			return
		}
		req.Type = string(result.Type)
		if req.Name == "" && result.Title != "" {
			req.Name = result.Title
		}
	}

	source, problem := req.toSource()
	if problem != "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": problem})
		return
	}

	if existing, err := h.registry.Get(source.ID); err == nil && existing != nil {
		c.JSON(http.StatusConflict, gin.H{"error": "Source already exists", "id": source.ID})
		return
	}

	if err := h.registry.Add(source); err != nil {
		slog.Error("Database error", "operation", "add_source", "source", source.ID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	c.JSON(http.StatusCreated, source)
}

func (h *Handler) APIUpdateSource(c *gin.Context) {
	id := c.Param("id")

	existing, err := h.registry.Get(id)
	if err != nil {
		slog.Error("Database error", "operation", "get_source", "source", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	if existing == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Source not found"})
		return
	}

	var req sourceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	req.ID = id
	source, problem := req.toSource()
	if problem != "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": problem})
		return
	}
	source.AddedAt = existing.AddedAt
	source.LastFetched = existing.LastFetched

	if err := h.registry.Update(source); err != nil {
		slog.Error("Database error", "operation", "update_source", "source", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	c.JSON(http.StatusOK, source)
}

func (h *Handler) APIDeleteSource(c *gin.Context) {
	id := c.Param("id")

	found, err := h.registry.Delete(id)
	if err != nil {
		slog.Error("Database error", "operation", "delete_source", "source", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "Source not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "id": id})
}

func (h *Handler) APISetSourceEnabled(enabled bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")

		found, err := h.registry.SetEnabled(id, enabled)
		if err != nil {
			slog.Error("Database error", "operation", "set_source_enabled", "source", id, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
			return
		}
		if !found {
			c.JSON(http.StatusNotFound, gin.H{"error": "Source not found"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"success": true, "id": id, "enabled": enabled})
	}
}

type validateRequest struct {
	URL string `json:"url"`
}

func (h *Handler) APIValidateSource(c *gin.Context) {
	var req validateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}
	if req.URL == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Source URL is required"})
		return
	}
	if h.validator == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Source validation is not configured"})
		return
	}

	result := h.validator.Validate(c.Request.Context(), req.URL)

	c.JSON(http.StatusOK, result)
}

func (h *Handler) APIDiscoverSources(c *gin.Context) {
	if h.discoverer == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Source discovery is not configured"})
		return
	}

	topic := c.Query("topic")
	count := 0
	if raw := c.Query("count"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid count, expected a positive integer"})
			return
		}
		count = parsed
	}

	suggestions, err := h.discoverer.SuggestSources(c.Request.Context(), topic, count)
	if err != nil {
		slog.Error("Source discovery failed", "topic", topic, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Source discovery failed", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, map[string]interface{}{
		"suggestions": suggestions,
		"total":       len(suggestions),
	})
}

type fetchRequest struct {
	SourceID string `json:"source_id"`
	Force    bool   `json:"force"`
}

func (h *Handler) APITriggerFetch(c *gin.Context) {
	var req fetchRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
			return
		}
	}

	var task tasks.TaskInterface
	if req.SourceID != "" {
		source, err := h.registry.Get(req.SourceID)
		if err != nil {
			slog.Error("Database error", "operation", "get_source", "source", req.SourceID, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
			return
		}
		if source == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Source not found"})
			return
		}
		task = tasks.NewFetchSourceTask(h.orchestrator, req.SourceID)
	} else {
		fetchTask := tasks.NewFetchCycleTask(h.orchestrator)
		fetchTask.Force = req.Force
		task = fetchTask
	}

	if err := h.scheduler.EnqueueTask(task); err != nil {
		slog.Error("Error enqueueing fetch task", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to enqueue fetch task", "details": err.Error()})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"success": true,
		"task": gin.H{
			"id":   task.GetID(),
			"type": task.GetType(),
		},
	})
}

func (h *Handler) APIListArticles(c *gin.Context) {
	dateKey := c.Query("date")
	if dateKey == "" {
		dateKey = news.DateKey(time.Now().UTC())
	} else if _, err := time.Parse("2006-01-02", dateKey); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid date, expected YYYY-MM-DD"})
		return
	}

	articles, err := h.articles.Load(dateKey)
	if err != nil {
		slog.Error("Database error", "operation", "load_articles", "date", dateKey, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	c.JSON(http.StatusOK, map[string]interface{}{
		"date":     dateKey,
		"articles": articles,
		"total":    len(articles),
	})
}

func (h *Handler) APIListArticleDates(c *gin.Context) {
	dates, err := h.articles.ListDates()
	if err != nil {
		slog.Error("Database error", "operation", "list_dates", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	c.JSON(http.StatusOK, map[string]interface{}{
		"dates": dates,
		"total": len(dates),
	})
}

func (h *Handler) APIGetLatestSummary(c *gin.Context) {
	summary, err := h.summaries.Latest()
	if err != nil {
		slog.Error("Database error", "operation", "latest_summary", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	if summary == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "No summaries available"})
		return
	}

	c.JSON(http.StatusOK, summary)
}

func (h *Handler) APIGetSummary(c *gin.Context) {
	date, ok := parseDateParam(c)
	if !ok {
		return
	}

	summaries, err := h.summaries.Load(news.DateKey(date))
	if err != nil {
		slog.Error("Database error", "operation", "get_summary", "date", c.Param("date"), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	if len(summaries) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Summary not found"})
		return
	}

	c.JSON(http.StatusOK, summaries[0])
}

func (h *Handler) APIGenerateSummary(c *gin.Context) {
	date, ok := parseDateParam(c)
	if !ok {
		return
	}

	if h.summarizer == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Summarization is not configured"})
		return
	}

	summary, err := h.summarizer.GenerateSummary(c.Request.Context(), date, nil)
	if err != nil {
		slog.Error("Summary generation failed", "date", c.Param("date"), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Summary generation failed", "details": err.Error()})
		return
	}
	if summary == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "No articles for that date"})
		return
	}

	c.JSON(http.StatusOK, summary)
}

func parseDateParam(c *gin.Context) (time.Time, bool) {
	date, err := time.Parse("2006-01-02", c.Param("date"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid date, expected YYYY-MM-DD"})
		return time.Time{}, false
	}
	return date, true
}
