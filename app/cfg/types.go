package cfg

type Cfg struct {
	// Storage configuration
	DBPath      string
	SourcesFile string

	// Application configuration
	Port              string
	WorkerCount       int
	SchedulerInterval int
	APIAccessKey      string

	// Fetching configuration
	UserAgent            string
	FetchTimeout         int
	MaxConcurrentFetches int

	// Summarization configuration
	AnthropicAPIKey       string
	Model                 string
	MaxArticlesPerSummary int
	MaxSummaryTokens      int
	SummaryHour           int

	// Email delivery configuration
	SMTPHost     string
	SMTPPort     string
	SMTPUser     string
	SMTPPassword string
	EmailFrom    string
	EmailTo      []string

	// One-shot commands; when any is set the process runs the command and
	// exits instead of starting the server.
	RunFetch      bool
	FetchSource   string
	ForceFetch    bool
	RunSummarize  bool
	RunSend       bool
	RunDiscover   bool
	DiscoverTopic string
	DiscoverCount int
	TargetDate    string

	// Application metadata
	Timezone string
	Debug    bool
	Version  string
}

// OneShot reports whether the process should run a single command and exit.
func (c *Cfg) OneShot() bool {
	return c.RunFetch || c.RunSummarize || c.RunSend || c.RunDiscover
}
