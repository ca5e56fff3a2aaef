package cfg

import (
	"cmp"
	"fmt"
	"os"
	"time"

	"github.com/jessevdk/go-flags"
)

// Version is set at build time via -ldflags
var Version = "dev"

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

type rawCfg struct {
	// Server configuration
	Port              string `long:"port" env:"PORT" default:"8080" description:"HTTP server port"`
	BaseUrl           string `long:"base-url" env:"BASE_URL" description:"Public base URL for the service (e.g., https://feeds.example.com)"`
	FeedsDir          string `long:"feeds-dir" env:"FEEDS_DIR" default:"./feeds" description:"Directory containing feed subscription files"`
	WorkerCount       int    `long:"worker-count" env:"WORKER_COUNT" default:"5" description:"Number of background workers for feed polling"`
	SchedulerInterval int    `long:"scheduler-interval" env:"SCHEDULER_INTERVAL" default:"30" description:"Scheduler interval in seconds"`
	APIAccessKey      string `long:"api-key" env:"API_ACCESS_KEY" description:"API access key for authentication (optional)"`

	// Fetching and caching
	DisableCache   bool   `long:"disable-cache" env:"DISABLE_CACHE" description:"Always perform full fetches without conditional requests"`
	CacheBackend   string `long:"cache-backend" env:"CACHE_BACKEND" default:"memory" choice:"memory" choice:"sqlite" description:"Where parsed feeds are cached"`
	CacheDBPath    string `long:"cache-db" env:"CACHE_DB" default:"./data/cache.db" description:"SQLite cache database path"`
	UserAgent      string `long:"user-agent" env:"USER_AGENT" default:"Feed Unify/1.0" description:"User agent string for HTTP requests"`
	RequestTimeout int    `long:"request-timeout" env:"REQUEST_TIMEOUT" default:"30" description:"HTTP request timeout in seconds"`
	MaxBodySize    int64  `long:"max-body-size" env:"MAX_BODY_SIZE" default:"10485760" description:"Maximum feed response size in bytes"`
	StableIDs      bool   `long:"stable-ids" env:"STABLE_IDS" description:"Derive ids of items without guid/link/id from their content instead of generating random ones"`

	// Logging
	LogFile   string `long:"log-file" env:"LOG_FILE" description:"Also write logs to this file, rotated by size"`
	LogFormat string `long:"log-format" env:"LOG_FORMAT" default:"text" choice:"text" choice:"json" description:"Log output format"`

	// Application metadata
	Timezone string `long:"timezone" env:"TZ" default:"UTC" description:"Timezone for timestamps (e.g., UTC, America/New_York)"`
	Debug    bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`
}

var globalCfg *Cfg

// Load parses the process arguments and environment. It returns (nil, nil)
// when help was requested.
func Load() (*Cfg, error) {
	return LoadArgs(os.Args[1:])
}

func LoadArgs(args []string) (*Cfg, error) {
	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)

	if _, err := parser.ParseArgs(args); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				return nil, nil
			}
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	if raw.RequestTimeout <= 0 {
		return nil, fmt.Errorf("request timeout must be positive, got %d", raw.RequestTimeout)
	}
	if raw.WorkerCount <= 0 {
		return nil, fmt.Errorf("worker count must be positive, got %d", raw.WorkerCount)
	}
	if raw.SchedulerInterval <= 0 {
		return nil, fmt.Errorf("scheduler interval must be positive, got %d", raw.SchedulerInterval)
	}

	cfg := &Cfg{
		Port:              raw.Port,
		BaseUrl:           raw.BaseUrl,
		FeedsDir:          raw.FeedsDir,
		WorkerCount:       raw.WorkerCount,
		SchedulerInterval: raw.SchedulerInterval,
		APIAccessKey:      raw.APIAccessKey,
		CacheEnabled:      !raw.DisableCache,
		CacheBackend:      raw.CacheBackend,
		CacheDBPath:       raw.CacheDBPath,
		UserAgent:         raw.UserAgent,
		RequestTimeout:    raw.RequestTimeout,
		MaxBodySize:       raw.MaxBodySize,
		StableIDs:         raw.StableIDs,
		LogFile:           raw.LogFile,
		LogFormat:         raw.LogFormat,
		Timezone:          raw.Timezone,
		Debug:             raw.Debug,
		Version:           GetVersion(),
	}

	if err := applyTimezone(cfg.Timezone); err != nil {
		fmt.Printf("Warning: Invalid timezone '%s', using system default: %v\n", cfg.Timezone, err)
	}

	globalCfg = cfg

	return cfg, nil
}

func Get() *Cfg {
	if globalCfg == nil {
		panic("configuration not loaded - call cfg.Load() first")
	}
	return globalCfg
}

func (c *Cfg) Timeout() time.Duration {
	return time.Duration(c.RequestTimeout) * time.Second
}

func applyTimezone(timezone string) error {
	if timezone == "" {
		return nil
	}
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return err
	}
	time.Local = loc
	return nil
}
