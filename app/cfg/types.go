package cfg

type Cfg struct {
	// Server configuration
	Port              string
	BaseUrl           string
	FeedsDir          string
	WorkerCount       int
	SchedulerInterval int
	APIAccessKey      string

	// Fetching and caching
	CacheEnabled   bool
	CacheBackend   string
	CacheDBPath    string
	UserAgent      string
	RequestTimeout int
	MaxBodySize    int64
	StableIDs      bool

	// Logging
	LogFile   string
	LogFormat string

	// Application metadata
	Timezone string
	Debug    bool
	Version  string
}
