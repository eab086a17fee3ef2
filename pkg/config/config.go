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
)

// Config holds all configuration options for the crawler
type Config struct {
	// Platform credentials and endpoints
	Reddit RedditConfig `yaml:"reddit" json:"reddit"`

	// What to fetch
	Query QueryConfig `yaml:"query" json:"query"`

	// Media download settings
	Media MediaConfig `yaml:"media" json:"media"`

	// Artifact storage
	Storage StorageConfig `yaml:"storage" json:"storage"`

	// Ledger settings
	Ledger LedgerConfig `yaml:"ledger" json:"ledger"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`

	// Metrics push settings
	Metrics MetricsConfig `yaml:"metrics" json:"metrics"`
}

// RedditConfig holds API credentials and endpoint configuration
type RedditConfig struct {
	ClientID     string `yaml:"client_id" json:"client_id"`
	ClientSecret string `yaml:"client_secret" json:"client_secret"`
	Username     string `yaml:"username" json:"username"`
	Password     string `yaml:"password" json:"password"`
	UserAgent    string `yaml:"user_agent" json:"user_agent"`

	TokenURL string `yaml:"token_url" json:"token_url"`
	APIBase  string `yaml:"api_base" json:"api_base"`
	WebBase  string `yaml:"web_base" json:"web_base"`

	Timeout           time.Duration `yaml:"timeout" json:"timeout"`
	RequestsPerMinute int           `yaml:"requests_per_minute" json:"requests_per_minute"`
}

// HasCredentials reports whether all five authentication fields are set
func (r RedditConfig) HasCredentials() bool {
	return r.ClientID != "" && r.ClientSecret != "" && r.Username != "" &&
		r.Password != "" && r.UserAgent != ""
}

// QueryConfig describes which searches or listings a run issues
type QueryConfig struct {
	Queries       []string `yaml:"queries" json:"queries"`
	Subreddits    []string `yaml:"subreddits" json:"subreddits"`
	Sort          string   `yaml:"sort" json:"sort"`
	TimeFilter    string   `yaml:"time_filter" json:"time_filter"`
	MaxPosts      int      `yaml:"max_posts" json:"max_posts"`
	MediaOnly     bool     `yaml:"media_only" json:"media_only"`
	DownloadMedia bool     `yaml:"download_media" json:"download_media"`
}

// MediaConfig holds media download settings
type MediaConfig struct {
	Timeout         time.Duration `yaml:"timeout" json:"timeout"`
	MaxBytes        int64         `yaml:"max_bytes" json:"max_bytes"`
	ContinueOnError bool          `yaml:"continue_on_error" json:"continue_on_error"`
}

// StorageConfig selects and configures the artifact store backend
type StorageConfig struct {
	Backend   string `yaml:"backend" json:"backend"`
	LocalPath string `yaml:"local_path" json:"local_path"`
	Bucket    string `yaml:"bucket" json:"bucket"`
	Prefix    string `yaml:"prefix" json:"prefix"`
	Endpoint  string `yaml:"endpoint" json:"endpoint"`
	AccessKey string `yaml:"access_key" json:"access_key"`
	SecretKey string `yaml:"secret_key" json:"secret_key"`
	UseSSL    bool   `yaml:"use_ssl" json:"use_ssl"`
	Region    string `yaml:"region" json:"region"`
}

// LedgerConfig selects and configures the ledger backend
type LedgerConfig struct {
	Mode       string `yaml:"mode" json:"mode"`
	CSVPath    string `yaml:"csv_path" json:"csv_path"`
	SQLitePath string `yaml:"sqlite_path" json:"sqlite_path"`
}

// Path returns the file backing the configured mode
func (l LedgerConfig) Path() string {
	if strings.EqualFold(l.Mode, LedgerSQLite) {
		return l.SQLitePath
	}
	return l.CSVPath
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level" json:"level"`
	Format string `yaml:"format" json:"format"`
	File   string `yaml:"file" json:"file"`
}

// MetricsConfig holds Pushgateway settings. An empty URL disables pushing.
type MetricsConfig struct {
	PushgatewayURL string `yaml:"pushgateway_url" json:"pushgateway_url"`
	Job            string `yaml:"job" json:"job"`
}

const (
	BackendLocal = "local"
	BackendS3    = "s3"
	BackendGCS   = "gcs"

	LedgerCSV    = "csv"
	LedgerSQLite = "sqlite"
)

var (
	validSorts       = map[string]bool{"relevance": true, "hot": true, "top": true, "new": true, "comments": true, "rising": true}
	validTimeFilters = map[string]bool{"hour": true, "day": true, "week": true, "month": true, "year": true, "all": true}
	validBackends    = map[string]bool{BackendLocal: true, BackendS3: true, BackendGCS: true}
	validLedgerModes = map[string]bool{LedgerCSV: true, LedgerSQLite: true}
)

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Reddit: RedditConfig{
			UserAgent:         "socialcrawler/1.0",
			TokenURL:          "https://www.reddit.com/api/v1/access_token",
			APIBase:           "https://oauth.reddit.com",
			WebBase:           "https://www.reddit.com",
			Timeout:           20 * time.Second,
			RequestsPerMinute: 60,
		},
		Query: QueryConfig{
			Sort:       "new",
			TimeFilter: "all",
			MaxPosts:   50,
		},
		Media: MediaConfig{
			Timeout:  60 * time.Second,
			MaxBytes: 0, // 0 means no limit
		},
		Storage: StorageConfig{
			Backend:   BackendLocal,
			LocalPath: "cache",
			Prefix:    "social_crawler",
			UseSSL:    true,
		},
		Ledger: LedgerConfig{
			Mode:       LedgerCSV,
			CSVPath:    "ledger.csv",
			SQLitePath: "ledger.db",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		Metrics: MetricsConfig{
			Job: "socialcrawler",
		},
	}
}

// LoadFromEnv loads configuration from environment variables
func (c *Config) LoadFromEnv() error {
	// Credentials
	if v := os.Getenv("REDDIT_CLIENT_ID"); v != "" {
		c.Reddit.ClientID = v
	}
	if v := os.Getenv("REDDIT_CLIENT_SECRET"); v != "" {
		c.Reddit.ClientSecret = v
	}
	if v := os.Getenv("REDDIT_USERNAME"); v != "" {
		c.Reddit.Username = v
	}
	if v := os.Getenv("REDDIT_PASSWORD"); v != "" {
		c.Reddit.Password = v
	}
	if v := os.Getenv("REDDIT_USER_AGENT"); v != "" {
		c.Reddit.UserAgent = v
	}

	if rpm := os.Getenv("SOCIALCRAWLER_REQUESTS_PER_MINUTE"); rpm != "" {
		val, err := strconv.Atoi(rpm)
		if err != nil {
			return fmt.Errorf("SOCIALCRAWLER_REQUESTS_PER_MINUTE: %w", err)
		}
		c.Reddit.RequestsPerMinute = val
	}

	// Storage
	if v := os.Getenv("SOCIALCRAWLER_STORAGE_BACKEND"); v != "" {
		c.Storage.Backend = v
	}
	if v := os.Getenv("SOCIALCRAWLER_STORAGE_PATH"); v != "" {
		c.Storage.LocalPath = v
	}
	if v := os.Getenv("SOCIALCRAWLER_BUCKET"); v != "" {
		c.Storage.Bucket = v
	}
	if v := os.Getenv("SOCIALCRAWLER_PREFIX"); v != "" {
		c.Storage.Prefix = v
	}
	if v := os.Getenv("SOCIALCRAWLER_STORAGE_ENDPOINT"); v != "" {
		c.Storage.Endpoint = v
	}
	if v := os.Getenv("SOCIALCRAWLER_ACCESS_KEY"); v != "" {
		c.Storage.AccessKey = v
	}
	if v := os.Getenv("SOCIALCRAWLER_SECRET_KEY"); v != "" {
		c.Storage.SecretKey = v
	}

	// Ledger
	if v := os.Getenv("SOCIALCRAWLER_LEDGER_MODE"); v != "" {
		c.Ledger.Mode = v
	}
	if v := os.Getenv("SOCIALCRAWLER_LEDGER_CSV"); v != "" {
		c.Ledger.CSVPath = v
	}
	if v := os.Getenv("SOCIALCRAWLER_LEDGER_SQLITE"); v != "" {
		c.Ledger.SQLitePath = v
	}

	if v := os.Getenv("SOCIALCRAWLER_PUSHGATEWAY_URL"); v != "" {
		c.Metrics.PushgatewayURL = v
	}

	// Logging level
	if logLevel := os.Getenv("SOCIALCRAWLER_LOG_LEVEL"); logLevel != "" {
		c.Logging.Level = logLevel
	}

	return nil
}

// LoadFromFile loads configuration from a YAML file
func (c *Config) LoadFromFile(path string) error {
	// If path is empty, try default locations
	if path == "" {
		path = c.findConfigFile()
		if path == "" {
			return nil // No config file found, not an error
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

// findConfigFile searches for config file in standard locations
func (c *Config) findConfigFile() string {
	home := os.Getenv("HOME")
	locations := []string{
		".socialcrawler.yaml",
		".socialcrawler.yml",
		filepath.Join(home, ".config", "socialcrawler", "config.yaml"),
		filepath.Join(home, ".config", "socialcrawler", "config.yml"),
		filepath.Join(home, ".socialcrawler.yaml"),
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

// Validate checks if the configuration is valid. Credentials are not
// checked here since they may come from a credential store instead.
func (c *Config) Validate() error {
	var errs []error

	if c.Reddit.UserAgent == "" {
		errs = append(errs, errors.New("user agent is required"))
	}
	if c.Reddit.Timeout <= 0 {
		errs = append(errs, errors.New("reddit timeout must be positive"))
	}
	if c.Reddit.RequestsPerMinute < 0 {
		errs = append(errs, errors.New("requests per minute cannot be negative"))
	}
	for name, u := range map[string]string{"token_url": c.Reddit.TokenURL, "api_base": c.Reddit.APIBase, "web_base": c.Reddit.WebBase} {
		if u == "" {
			errs = append(errs, fmt.Errorf("reddit %s is required", name))
		}
	}

	// Query
	if len(c.Query.Queries) == 0 && len(c.Query.Subreddits) == 0 {
		errs = append(errs, errors.New("at least one query or subreddit is required"))
	}
	if !validSorts[strings.ToLower(c.Query.Sort)] {
		errs = append(errs, fmt.Errorf("invalid sort: %q", c.Query.Sort))
	}
	if !validTimeFilters[strings.ToLower(c.Query.TimeFilter)] {
		errs = append(errs, fmt.Errorf("invalid time filter: %q", c.Query.TimeFilter))
	}
	if c.Query.MaxPosts <= 0 {
		errs = append(errs, errors.New("max posts must be positive"))
	}

	if c.Media.Timeout <= 0 {
		errs = append(errs, errors.New("media timeout must be positive"))
	}
	if c.Media.MaxBytes < 0 {
		errs = append(errs, errors.New("media max bytes cannot be negative"))
	}

	// Storage
	backend := strings.ToLower(c.Storage.Backend)
	if !validBackends[backend] {
		errs = append(errs, fmt.Errorf("unsupported storage backend: %q", c.Storage.Backend))
	}
	if backend == BackendLocal && c.Storage.LocalPath == "" {
		errs = append(errs, errors.New("storage local path is required"))
	}
	if (backend == BackendS3 || backend == BackendGCS) && c.Storage.Bucket == "" {
		errs = append(errs, errors.New("storage bucket is required for remote backends"))
	}
	if backend == BackendS3 && c.Storage.Endpoint == "" {
		errs = append(errs, errors.New("storage endpoint is required for s3 backend"))
	}

	// Ledger
	if !validLedgerModes[strings.ToLower(c.Ledger.Mode)] {
		errs = append(errs, fmt.Errorf("unsupported ledger mode: %q", c.Ledger.Mode))
	} else if c.Ledger.Path() == "" {
		errs = append(errs, errors.New("ledger path is required"))
	}

	// Logging
	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, errors.New("invalid log level"))
	}
	validFormats := map[string]bool{"console": true, "json": true}
	if !validFormats[strings.ToLower(c.Logging.Format)] {
		errs = append(errs, errors.New("invalid log format"))
	}

	if c.Metrics.PushgatewayURL != "" && c.Metrics.Job == "" {
		errs = append(errs, errors.New("metrics job is required when pushing"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

// EnsurePaths creates the directories the configured local backends write into
func (c *Config) EnsurePaths() error {
	if strings.EqualFold(c.Storage.Backend, BackendLocal) {
		if err := os.MkdirAll(c.Storage.LocalPath, 0755); err != nil {
			return fmt.Errorf("failed to create storage directory: %w", err)
		}
	}
	if dir := filepath.Dir(c.Ledger.Path()); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create ledger directory: %w", err)
		}
	}
	if c.Logging.File != "" {
		if err := os.MkdirAll(filepath.Dir(c.Logging.File), 0755); err != nil {
			return fmt.Errorf("failed to create log directory: %w", err)
		}
	}
	return nil
}

// Save saves the configuration to a file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// Create directory if it doesn't exist
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// MergeCommandLineFlags merges command line flags into the configuration.
// Only keys present in the map are applied, so callers pass flags the user
// actually set.
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	if v, ok := flags["query"].([]string); ok {
		c.Query.Queries = v
	}
	if v, ok := flags["subreddit"].([]string); ok {
		c.Query.Subreddits = v
	}
	if v, ok := flags["sort"].(string); ok && v != "" {
		c.Query.Sort = v
	}
	if v, ok := flags["time-filter"].(string); ok && v != "" {
		c.Query.TimeFilter = v
	}
	if v, ok := flags["max-posts"].(int); ok && v > 0 {
		c.Query.MaxPosts = v
	}
	if v, ok := flags["media-only"].(bool); ok {
		c.Query.MediaOnly = v
	}
	if v, ok := flags["download-media"].(bool); ok {
		c.Query.DownloadMedia = v
	}
	if v, ok := flags["continue-on-media-error"].(bool); ok {
		c.Media.ContinueOnError = v
	}
	if v, ok := flags["storage-backend"].(string); ok && v != "" {
		c.Storage.Backend = v
	}
	if v, ok := flags["storage-path"].(string); ok && v != "" {
		c.Storage.LocalPath = v
	}
	if v, ok := flags["bucket"].(string); ok && v != "" {
		c.Storage.Bucket = v
	}
	if v, ok := flags["prefix"].(string); ok {
		c.Storage.Prefix = v
	}
	if v, ok := flags["ledger-mode"].(string); ok && v != "" {
		c.Ledger.Mode = v
	}
	if v, ok := flags["ledger-path"].(string); ok && v != "" {
		if strings.EqualFold(c.Ledger.Mode, LedgerSQLite) {
			c.Ledger.SQLitePath = v
		} else {
			c.Ledger.CSVPath = v
		}
	}
	if v, ok := flags["log-level"].(string); ok && v != "" {
		c.Logging.Level = v
	}
}

// Load loads configuration from all sources with proper precedence
// Precedence order: Command line flags > Environment variables > .env file > Config file > Defaults
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	config, err := Resolve(configPath, flags)
	if err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// Resolve layers defaults, file, environment and flags without validating.
// Commands that only read ledgers or print settings use it directly.
func Resolve(configPath string, flags map[string]interface{}) (*Config, error) {
	// Try to load .env files (don't fail if they don't exist)
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".socialcrawler.env"))

	config := DefaultConfig()

	if err := config.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	// Override with environment variables (includes values from .env)
	if err := config.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	config.MergeCommandLineFlags(flags)
	return config, nil
}
