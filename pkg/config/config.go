// Package config assembles crawler configuration from defaults, an optional
// YAML file, .env files, and IGCRAWLER_* environment variables, in that
// order of precedence (command-line flags are merged on top by the CLI).
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"igcrawler/pkg/kv"
	"igcrawler/pkg/source"
)

// Config holds all configuration for a crawl run.
type Config struct {
	Crawl     CrawlConfig     `yaml:"crawl"`
	Filters   FilterConfig    `yaml:"filters"`
	Metadata  MetadataConfig  `yaml:"metadata"`
	Retry     RetryConfig     `yaml:"retry"`
	Instagram InstagramConfig `yaml:"instagram"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	State     StateConfig     `yaml:"state"`
	Output    OutputConfig    `yaml:"output"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// CrawlConfig controls the account loop.
type CrawlConfig struct {
	Accounts            []string      `yaml:"accounts"`
	Categories          []string      `yaml:"categories"`
	MaxVideosPerAccount int           `yaml:"max_videos_per_account"`
	AccountDelay        time.Duration `yaml:"account_delay"`
	CheckpointInterval  int           `yaml:"checkpoint_interval"`
	// StorageMethod is one of urls, files, both.
	StorageMethod string `yaml:"storage_method"`
}

// FilterConfig holds the inclusion filters applied before extraction.
type FilterConfig struct {
	VideosOnly bool   `yaml:"videos_only"`
	MinLikes   int    `yaml:"min_likes"`
	DateFrom   string `yaml:"date_from"`
	DateTo     string `yaml:"date_to"`
}

// MetadataConfig toggles the optional record fields.
type MetadataConfig struct {
	BasicInfo         bool `yaml:"basic_info"`
	EngagementMetrics bool `yaml:"engagement_metrics"`
	LocationHashtags  bool `yaml:"location_hashtags"`
}

// RetryConfig holds the backoff parameters for account loading.
type RetryConfig struct {
	MaxRetries   int           `yaml:"max_retries"`
	InitialDelay time.Duration `yaml:"initial_delay"`
	Multiplier   float64       `yaml:"multiplier"`
	MaxDelay     time.Duration `yaml:"max_delay"`
	Jitter       bool          `yaml:"jitter"`
}

// InstagramConfig holds session credentials and client settings.
type InstagramConfig struct {
	SessionID      string        `yaml:"session_id"`
	CSRFToken      string        `yaml:"csrf_token"`
	UserAgent      string        `yaml:"user_agent"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

// RateLimitConfig paces requests to the content source.
type RateLimitConfig struct {
	RequestsPerMinute int `yaml:"requests_per_minute"`
	BurstSize         int `yaml:"burst_size"`
}

// StateConfig selects where checkpoints are persisted.
type StateConfig struct {
	// Backend is file or redis.
	Backend   string         `yaml:"backend"`
	Directory string         `yaml:"directory"`
	Key       string         `yaml:"key"`
	Redis     kv.RedisConfig `yaml:"redis"`
}

// OutputConfig holds the media and dataset destinations.
type OutputConfig struct {
	BaseDirectory        string `yaml:"base_directory"`
	DatasetFile          string `yaml:"dataset_file"`
	CreateAccountFolders bool   `yaml:"create_account_folders"`
}

// LoggingConfig configures the logger.
type LoggingConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// Default returns a Config with working defaults for every field.
func Default() *Config {
	return &Config{
		Crawl: CrawlConfig{
			Categories:          []string{"posts", "reels"},
			MaxVideosPerAccount: 50,
			AccountDelay:        2 * time.Second,
			CheckpointInterval:  10,
			StorageMethod:       "both",
		},
		Filters: FilterConfig{
			VideosOnly: true,
			MinLikes:   0,
		},
		Metadata: MetadataConfig{
			BasicInfo:         true,
			EngagementMetrics: true,
			LocationHashtags:  true,
		},
		Retry: RetryConfig{
			MaxRetries:   3,
			InitialDelay: 5 * time.Second,
			Multiplier:   2.0,
			MaxDelay:     60 * time.Second,
			Jitter:       true,
		},
		Instagram: InstagramConfig{
			UserAgent:      "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36",
			RequestTimeout: 30 * time.Second,
		},
		RateLimit: RateLimitConfig{
			RequestsPerMinute: 60,
			BurstSize:         5,
		},
		State: StateConfig{
			Backend:   "file",
			Directory: "./state",
		},
		Output: OutputConfig{
			BaseDirectory:        "./downloads",
			DatasetFile:          "./dataset/records.jsonl",
			CreateAccountFolders: true,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// LoadFromFile overlays configuration from a YAML file. An empty path tries
// the default locations and is not an error when none exist.
func (c *Config) LoadFromFile(path string) error {
	if path == "" {
		path = findConfigFile()
		if path == "" {
			return nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}
	return nil
}

func findConfigFile() string {
	locations := []string{
		".igcrawler.yaml",
		".igcrawler.yml",
		filepath.Join(os.Getenv("HOME"), ".config", "igcrawler", "config.yaml"),
		filepath.Join(os.Getenv("HOME"), ".config", "igcrawler", "config.yml"),
	}
	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}
	return ""
}

// LoadFromEnv overlays configuration from IGCRAWLER_* environment variables.
func (c *Config) LoadFromEnv() {
	if v := os.Getenv("IGCRAWLER_SESSION_ID"); v != "" {
		c.Instagram.SessionID = v
	}
	if v := os.Getenv("IGCRAWLER_CSRF_TOKEN"); v != "" {
		c.Instagram.CSRFToken = v
	}
	if v := os.Getenv("IGCRAWLER_USER_AGENT"); v != "" {
		c.Instagram.UserAgent = v
	}
	if v := os.Getenv("IGCRAWLER_ACCOUNTS"); v != "" {
		c.Crawl.Accounts = splitList(v)
	}
	if v := os.Getenv("IGCRAWLER_CATEGORIES"); v != "" {
		c.Crawl.Categories = splitList(v)
	}
	if v := os.Getenv("IGCRAWLER_REQUESTS_PER_MINUTE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.RateLimit.RequestsPerMinute = n
		}
	}
	if v := os.Getenv("IGCRAWLER_STATE_BACKEND"); v != "" {
		c.State.Backend = v
	}
	if v := os.Getenv("IGCRAWLER_REDIS_URL"); v != "" {
		c.State.Redis.URL = v
	}
	if v := os.Getenv("IGCRAWLER_REDIS_PASSWORD"); v != "" {
		c.State.Redis.Password = v
	}
	if v := os.Getenv("IGCRAWLER_OUTPUT_DIR"); v != "" {
		c.Output.BaseDirectory = v
	}
	if v := os.Getenv("IGCRAWLER_DATASET_FILE"); v != "" {
		c.Output.DatasetFile = v
	}
	if v := os.Getenv("IGCRAWLER_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// ParseDate parses a YYYY-MM-DD filter boundary.
func ParseDate(s string) (time.Time, error) {
	return time.Parse("2006-01-02", s)
}

// Validate checks the configuration for consistency. The account list may
// be empty here; the CLI enforces it after merging arguments.
func (c *Config) Validate() error {
	var errs []error

	for _, name := range c.Crawl.Categories {
		if _, err := source.ParseCategory(name); err != nil {
			errs = append(errs, err)
		}
	}
	switch c.Crawl.StorageMethod {
	case "urls", "files", "both":
	default:
		errs = append(errs, fmt.Errorf("invalid storage method: %q", c.Crawl.StorageMethod))
	}
	if c.Crawl.CheckpointInterval <= 0 {
		errs = append(errs, errors.New("checkpoint interval must be positive"))
	}

	if c.Retry.MaxRetries < 0 {
		errs = append(errs, errors.New("max retries cannot be negative"))
	}
	if c.Retry.InitialDelay <= 0 {
		errs = append(errs, errors.New("initial retry delay must be positive"))
	}
	if c.Retry.Multiplier <= 1 {
		errs = append(errs, errors.New("retry multiplier must be greater than 1"))
	}
	if c.Retry.MaxDelay < c.Retry.InitialDelay {
		errs = append(errs, errors.New("max retry delay must be at least the initial delay"))
	}

	if c.Filters.DateFrom != "" {
		if _, err := ParseDate(c.Filters.DateFrom); err != nil {
			errs = append(errs, fmt.Errorf("invalid date_from: %w", err))
		}
	}
	if c.Filters.DateTo != "" {
		if _, err := ParseDate(c.Filters.DateTo); err != nil {
			errs = append(errs, fmt.Errorf("invalid date_to: %w", err))
		}
	}

	if c.RateLimit.RequestsPerMinute <= 0 {
		errs = append(errs, errors.New("requests per minute must be positive"))
	}

	switch c.State.Backend {
	case "file":
		if c.State.Directory == "" {
			errs = append(errs, errors.New("state directory is required for the file backend"))
		}
	case "redis":
		if c.State.Redis.URL == "" {
			errs = append(errs, errors.New("redis URL is required for the redis backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("invalid state backend: %q", c.State.Backend))
	}

	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "warning", "error", "disabled":
	default:
		errs = append(errs, fmt.Errorf("invalid log level: %q", c.Logging.Level))
	}

	return errors.Join(errs...)
}

// Load builds the effective configuration from all sources.
func Load(configPath string) (*Config, error) {
	// .env files are optional.
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".igcrawler.env"))

	cfg := Default()
	if err := cfg.LoadFromFile(configPath); err != nil {
		return nil, err
	}
	cfg.LoadFromEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}
