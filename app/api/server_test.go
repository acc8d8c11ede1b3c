package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ainewshq/ainews/app/discovery"
	"github.com/ainewshq/ainews/app/fetch"
	"github.com/ainewshq/ainews/app/news"
	"github.com/ainewshq/ainews/app/tasks"
)

const testAPIKey = "test-key"

type fakeRegistry struct {
	sources map[string]news.Source
}

func newFakeRegistry(sources ...news.Source) *fakeRegistry {
	r := &fakeRegistry{sources: make(map[string]news.Source)}
	for _, s := range sources {
		r.sources[s.ID] = s
	}
	return r
}

func (r *fakeRegistry) List(enabledOnly bool) ([]news.Source, error) {
	var out []news.Source
	for _, s := range r.sources {
		if enabledOnly && !s.Enabled {
			continue
		}
		out = append(out, s)
	}
	return out, nil
}

func (r *fakeRegistry) Get(id string) (*news.Source, error) {
	if s, ok := r.sources[id]; ok {
		return &s, nil
	}
	return nil, nil
}

func (r *fakeRegistry) Add(source news.Source) error {
	r.sources[source.ID] = source
	return nil
}

func (r *fakeRegistry) Update(source news.Source) error {
	r.sources[source.ID] = source
	return nil
}

func (r *fakeRegistry) Delete(id string) (bool, error) {
	if _, ok := r.sources[id]; !ok {
		return false, nil
	}
	delete(r.sources, id)
	return true, nil
}

func (r *fakeRegistry) SetEnabled(id string, enabled bool) (bool, error) {
	s, ok := r.sources[id]
	if !ok {
		return false, nil
	}
	s.Enabled = enabled
	r.sources[id] = s
	return true, nil
}

func (r *fakeRegistry) MarkFetched(id string, at time.Time) (bool, error) { return true, nil }

func (r *fakeRegistry) DueForFetch(now time.Time) ([]news.Source, error) { return nil, nil }

type fakeArticleStore struct {
	articles map[string][]news.Article
}

func (s *fakeArticleStore) Load(dateKey string) ([]news.Article, error) {
	return s.articles[dateKey], nil
}

func (s *fakeArticleStore) Save(dateKey string, articles []news.Article) error { return nil }

func (s *fakeArticleStore) ListDates() ([]string, error) {
	var dates []string
	for d := range s.articles {
		dates = append(dates, d)
	}
	return dates, nil
}

type fakeSummaryStore struct {
	summaries map[string][]news.DailySummary
}

func (s *fakeSummaryStore) Load(dateKey string) ([]news.DailySummary, error) {
	return s.summaries[dateKey], nil
}

func (s *fakeSummaryStore) Save(dateKey string, summaries []news.DailySummary) error { return nil }

func (s *fakeSummaryStore) MarkDelivered(dateKey string, at time.Time) (bool, error) {
	return false, nil
}

func (s *fakeSummaryStore) Latest() (*news.DailySummary, error) {
	for _, summaries := range s.summaries {
		if len(summaries) > 0 {
			return &summaries[0], nil
		}
	}
	return nil, nil
}

type fakeSummarizer struct {
	summaries map[string]*news.DailySummary
	generated int
}

func (f *fakeSummarizer) GenerateSummary(ctx context.Context, targetDate time.Time, articles []news.Article) (*news.DailySummary, error) {
	f.generated++
	return f.summaries[news.DateKey(targetDate)], nil
}

func (f *fakeSummarizer) GetSummary(targetDate time.Time) (*news.DailySummary, error) {
	return f.summaries[news.DateKey(targetDate)], nil
}

type fakeValidator struct {
	results map[string]fetch.ValidationResult
	calls   []string
}

func (f *fakeValidator) Validate(ctx context.Context, url string) fetch.ValidationResult {
	f.calls = append(f.calls, url)
	if result, ok := f.results[url]; ok {
		return result
	}
	return fetch.ValidationResult{Valid: true, Type: news.SourceTypeFeed}
}

type fakeDiscoverer struct {
	suggestions []discovery.Suggestion
	err         error
	topics      []string
	counts      []int
}

func (f *fakeDiscoverer) SuggestSources(ctx context.Context, topic string, count int) ([]discovery.Suggestion, error) {
	f.topics = append(f.topics, topic)
	f.counts = append(f.counts, count)
	return f.suggestions, f.err
}

type fakeScheduler struct {
	enqueued []tasks.TaskInterface
}

func (s *fakeScheduler) Start() {}
func (s *fakeScheduler) Stop()  {}

func (s *fakeScheduler) EnqueueTask(task tasks.TaskInterface) error {
	s.enqueued = append(s.enqueued, task)
	return nil
}

type testEnv struct {
	registry   *fakeRegistry
	articles   *fakeArticleStore
	summaries  *fakeSummaryStore
	summarizer *fakeSummarizer
	validator  *fakeValidator
	discoverer *fakeDiscoverer
	scheduler  *fakeScheduler
	server     http.Handler
}

func newTestEnv(sources ...news.Source) *testEnv {
	env := &testEnv{
		registry:   newFakeRegistry(sources...),
		articles:   &fakeArticleStore{articles: make(map[string][]news.Article)},
		summaries:  &fakeSummaryStore{summaries: make(map[string][]news.DailySummary)},
		summarizer: &fakeSummarizer{summaries: make(map[string]*news.DailySummary)},
		validator:  &fakeValidator{results: make(map[string]fetch.ValidationResult)},
		discoverer: &fakeDiscoverer{},
		scheduler:  &fakeScheduler{},
	}
	handler := NewHandler(env.registry, env.articles, env.summaries, env.summarizer,
		env.validator, env.discoverer, nil, env.scheduler, "test")
	env.server = NewServer(handler, testAPIKey)
	return env
}

func (env *testEnv) request(t *testing.T, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *strings.Reader
	if body != "" {
		reader = strings.NewReader(body)
	} else {
		reader = strings.NewReader("")
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", testAPIKey)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	env.server.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON response: %v", err)
	}
	return body
}

func testSource() news.Source {
	return news.Source{
		ID:                 "openai-blog",
		Name:               "OpenAI Blog",
		URL:                "https://openai.com/blog/rss.xml",
		Type:               news.SourceTypeFeed,
		Enabled:            true,
		FetchIntervalHours: 24,
		AddedAt:            time.Now().UTC(),
	}
}

func TestAuthMiddleware(t *testing.T) {
	env := newTestEnv()

	req := httptest.NewRequest("GET", "/api/sources", nil)
	w := httptest.NewRecorder()
	env.server.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("no key: status = %d, want 401", w.Code)
	}

	req = httptest.NewRequest("GET", "/api/sources", nil)
	req.Header.Set("X-API-Key", "wrong")
	w = httptest.NewRecorder()
	env.server.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("wrong key: status = %d, want 401", w.Code)
	}

	req = httptest.NewRequest("GET", "/api/sources", nil)
	req.Header.Set("Authorization", "Bearer "+testAPIKey)
	w = httptest.NewRecorder()
	env.server.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("bearer token: status = %d, want 200", w.Code)
	}
}

func TestHealthIsPublic(t *testing.T) {
	env := newTestEnv(testSource())

	req := httptest.NewRequest("GET", "/health", nil)
	w := httptest.NewRecorder()
	env.server.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	body := decodeBody(t, w)
	if body["sources"] != float64(1) {
		t.Errorf("sources = %v, want 1", body["sources"])
	}
}

func TestSourceCRUD(t *testing.T) {
	env := newTestEnv()

	w := env.request(t, "POST", "/api/sources", `{"name": "OpenAI Blog", "url": "https://openai.com/blog/rss.xml"}`, nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("add: status = %d, body %s", w.Code, w.Body.String())
	}
	created := decodeBody(t, w)
	if created["id"] != "openai-blog" {
		t.Errorf("derived id = %v", created["id"])
	}

	w = env.request(t, "POST", "/api/sources", `{"id": "openai-blog", "name": "Dup", "url": "https://example.com"}`, nil)
	if w.Code != http.StatusConflict {
		t.Errorf("duplicate add: status = %d, want 409", w.Code)
	}

	w = env.request(t, "GET", "/api/sources/openai-blog", "", nil)
	if w.Code != http.StatusOK {
		t.Errorf("get: status = %d, want 200", w.Code)
	}

	w = env.request(t, "PUT", "/api/sources/openai-blog", `{"name": "OpenAI Blog", "url": "https://openai.com/news/rss.xml", "fetch_interval_hours": 12}`, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("update: status = %d, body %s", w.Code, w.Body.String())
	}
	if env.registry.sources["openai-blog"].FetchIntervalHours != 12 {
		t.Errorf("update did not persist interval")
	}

	w = env.request(t, "POST", "/api/sources/openai-blog/disable", "", nil)
	if w.Code != http.StatusOK {
		t.Errorf("disable: status = %d, want 200", w.Code)
	}
	if env.registry.sources["openai-blog"].Enabled {
		t.Error("source still enabled after disable")
	}

	w = env.request(t, "DELETE", "/api/sources/openai-blog", "", nil)
	if w.Code != http.StatusOK {
		t.Errorf("delete: status = %d, want 200", w.Code)
	}

	w = env.request(t, "GET", "/api/sources/openai-blog", "", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("get after delete: status = %d, want 404", w.Code)
	}
}

func TestAddSourceValidation(t *testing.T) {
	env := newTestEnv()

	cases := []struct {
		name string
		body string
	}{
		{"missing url", `{"name": "No URL"}`},
		{"missing name", `{"url": "https://example.com"}`},
		{"scrape without selector", `{"name": "S", "url": "https://example.com", "type": "scrape"}`},
		{"unknown type", `{"name": "S", "url": "https://example.com", "type": "pigeon"}`},
		{"malformed json", `{`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := env.request(t, "POST", "/api/sources", tc.body, nil)
			if w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", w.Code)
			}
		})
	}
}

func TestTriggerFetch(t *testing.T) {
	env := newTestEnv(testSource())

	w := env.request(t, "POST", "/api/fetch", "", nil)
	if w.Code != http.StatusAccepted {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	if len(env.scheduler.enqueued) != 1 {
		t.Fatalf("enqueued %d tasks, want 1", len(env.scheduler.enqueued))
	}
	if env.scheduler.enqueued[0].GetType() != tasks.TaskTypeFetchCycle {
		t.Errorf("task type = %q", env.scheduler.enqueued[0].GetType())
	}

	w = env.request(t, "POST", "/api/fetch", `{"source_id": "openai-blog"}`, nil)
	if w.Code != http.StatusAccepted {
		t.Errorf("single source: status = %d", w.Code)
	}

	w = env.request(t, "POST", "/api/fetch", `{"source_id": "unknown"}`, nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("unknown source: status = %d, want 404", w.Code)
	}
}

func TestListArticles(t *testing.T) {
	env := newTestEnv()
	published := time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)
	env.articles.articles["2025-06-15"] = []news.Article{
		news.NewArticle("Title", "https://example.com/a", "openai-blog", &published, "content", nil),
	}

	w := env.request(t, "GET", "/api/articles?date=2025-06-15", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	body := decodeBody(t, w)
	if body["total"] != float64(1) {
		t.Errorf("total = %v, want 1", body["total"])
	}

	w = env.request(t, "GET", "/api/articles?date=June-15", "", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("invalid date: status = %d, want 400", w.Code)
	}

	// Default date is today, which holds nothing.
	w = env.request(t, "GET", "/api/articles", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("default date: status = %d", w.Code)
	}
	if body := decodeBody(t, w); body["total"] != float64(0) {
		t.Errorf("default date total = %v, want 0", body["total"])
	}
}

func TestSummaryEndpoints(t *testing.T) {
	env := newTestEnv()

	w := env.request(t, "GET", "/api/summaries/latest", "", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("latest with none: status = %d, want 404", w.Code)
	}

	w = env.request(t, "GET", "/api/summaries/2025-06-15", "", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("missing summary: status = %d, want 404", w.Code)
	}

	w = env.request(t, "GET", "/api/summaries/not-a-date", "", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("invalid date: status = %d, want 400", w.Code)
	}

	env.summarizer.summaries["2025-06-15"] = &news.DailySummary{
		Date:        "2025-06-15",
		SummaryText: "A quiet day.",
	}
	env.summaries.summaries["2025-06-15"] = []news.DailySummary{
		{Date: "2025-06-15", SummaryText: "A quiet day."},
	}

	w = env.request(t, "GET", "/api/summaries/2025-06-15", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if body := decodeBody(t, w); body["summary_text"] != "A quiet day." {
		t.Errorf("summary_text = %v", body["summary_text"])
	}

	w = env.request(t, "GET", "/api/summaries/latest", "", nil)
	if w.Code != http.StatusOK {
		t.Errorf("latest: status = %d, want 200", w.Code)
	}

	w = env.request(t, "POST", "/api/summaries/2025-06-15/generate", "", nil)
	if w.Code != http.StatusOK {
		t.Errorf("generate: status = %d, want 200", w.Code)
	}
	if env.summarizer.generated != 1 {
		t.Errorf("generated = %d, want 1", env.summarizer.generated)
	}

	w = env.request(t, "POST", "/api/summaries/2024-01-01/generate", "", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("generate empty day: status = %d, want 404", w.Code)
	}
}

func TestValidateSource(t *testing.T) {
	env := newTestEnv()
	env.validator.results["https://example.com/feed.xml"] = fetch.ValidationResult{
		Valid: true, Type: news.SourceTypeAtom, Title: "Example Feed",
	}

	w := env.request(t, "POST", "/api/sources/validate", `{"url": "https://example.com/feed.xml"}`, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	body := decodeBody(t, w)
	if body["valid"] != true || body["type"] != "atom" || body["title"] != "Example Feed" {
		t.Errorf("body = %v", body)
	}

	w = env.request(t, "POST", "/api/sources/validate", `{}`, nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("missing url: status = %d, want 400", w.Code)
	}

	env.validator.results["https://down.example.com"] = fetch.ValidationResult{
		Error: "connection refused",
	}
	w = env.request(t, "POST", "/api/sources/validate", `{"url": "https://down.example.com"}`, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("unreachable: status = %d", w.Code)
	}
	if body := decodeBody(t, w); body["valid"] != false || body["error"] != "connection refused" {
		t.Errorf("unreachable body = %v", body)
	}
}

func TestAddSourceDetectsType(t *testing.T) {
	env := newTestEnv()
	env.validator.results["https://example.com/feed"] = fetch.ValidationResult{
		Valid: true, Type: news.SourceTypeAtom, Title: "Example Atom Feed",
	}

	w := env.request(t, "POST", "/api/sources", `{"url": "https://example.com/feed"}`, nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	created := decodeBody(t, w)
	if created["type"] != "atom" {
		t.Errorf("type = %v, want atom", created["type"])
	}
	if created["name"] != "Example Atom Feed" {
		t.Errorf("name not taken from page title: %v", created["name"])
	}

	env.validator.results["https://down.example.com"] = fetch.ValidationResult{
		Error: "connection refused",
	}
	w = env.request(t, "POST", "/api/sources", `{"name": "Down", "url": "https://down.example.com"}`, nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("unreachable url: status = %d, want 400", w.Code)
	}

	// An explicit type skips validation.
	w = env.request(t, "POST", "/api/sources", `{"name": "Explicit", "url": "https://explicit.example.com", "type": "feed"}`, nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("explicit type: status = %d", w.Code)
	}
	for _, url := range env.validator.calls {
		if url == "https://explicit.example.com" {
			t.Error("validator called for explicit type")
		}
	}
}

func TestDiscoverSources(t *testing.T) {
	env := newTestEnv()
	env.discoverer.suggestions = []discovery.Suggestion{
		{Name: "OpenAI Blog", URL: "https://openai.com/blog/rss.xml", Type: "rss", Description: "Official announcements"},
	}

	w := env.request(t, "GET", "/api/sources/discover?topic=robotics&count=3", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	body := decodeBody(t, w)
	if body["total"] != float64(1) {
		t.Errorf("total = %v, want 1", body["total"])
	}
	if env.discoverer.topics[0] != "robotics" || env.discoverer.counts[0] != 3 {
		t.Errorf("passed topic=%q count=%d", env.discoverer.topics[0], env.discoverer.counts[0])
	}

	w = env.request(t, "GET", "/api/sources/discover?count=zero", "", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("invalid count: status = %d, want 400", w.Code)
	}
}

func TestDiscoverSourcesUnconfigured(t *testing.T) {
	env := newTestEnv()
	handler := NewHandler(env.registry, env.articles, env.summaries, env.summarizer,
		env.validator, nil, nil, env.scheduler, "test")
	server := NewServer(handler, testAPIKey)

	req := httptest.NewRequest("GET", "/api/sources/discover", nil)
	req.Header.Set("X-API-Key", testAPIKey)
	w := httptest.NewRecorder()
	server.ServeHTTP(w, req)
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", w.Code)
	}
}
