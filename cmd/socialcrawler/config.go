package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
	"socialcrawler/pkg/config"
	"socialcrawler/pkg/ui"
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration files",
	Long: `Manage socialcrawler configuration files.

Configuration can be loaded from:
  - Command line flags (highest priority)
  - Environment variables
  - Configuration file
  - Default values (lowest priority)`,
}

// initCmd represents the config init command
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create an example configuration file",
	Long: `Create an example configuration file with all available options.

The file will be created in the current directory as '.socialcrawler.yaml'
unless a different path is specified with the --config flag.`,
	Run: runConfigInit,
}

// showCmd represents the config show command
var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long: `Show the effective configuration after merging every source.

Secrets are masked.`,
	Run: runConfigShow,
}

// validateCmd represents the config validate command
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration",
	Long: `Validate the effective configuration for a crawl.

This command checks:
  - YAML syntax
  - Query, sort and time filter values
  - Storage backend and ledger mode settings
  - Credential presence (as a warning, since stored accounts may be used)`,
	Run: runConfigValidate,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(initCmd)
	configCmd.AddCommand(showCmd)
	configCmd.AddCommand(validateCmd)
}

const exampleConfig = `# socialcrawler configuration
#
# Credentials may also come from REDDIT_CLIENT_ID, REDDIT_CLIENT_SECRET,
# REDDIT_USERNAME, REDDIT_PASSWORD and REDDIT_USER_AGENT, or from an
# account stored with 'socialcrawler auth login'.
# Other settings use the SOCIALCRAWLER_ prefix, for example
# SOCIALCRAWLER_LEDGER_MODE or SOCIALCRAWLER_STORAGE_BACKEND.

reddit:
  client_id: ""
  client_secret: ""
  username: ""
  password: ""
  user_agent: "socialcrawler/1.0"
  # HTTP timeout for API calls
  timeout: 20s
  # Pace of listing requests
  requests_per_minute: 60

query:
  # Search terms; when empty, subreddit listings are read instead
  queries: []
  # Subreddits to read; when empty with queries, the whole site is searched
  subreddits: ["golang"]
  # relevance, hot, top, new, comments, rising
  sort: "new"
  # hour, day, week, month, year, all
  time_filter: "all"
  # Posts per request, one page of at most 100
  max_posts: 50
  # Skip posts without a media URL
  media_only: false
  # Cache media next to the JSON archive
  download_media: false

media:
  timeout: 60s
  # Largest accepted body in bytes, 0 for no limit
  max_bytes: 0
  # Record posts whose media fetch failed instead of aborting the run
  continue_on_error: false

storage:
  # local, s3 or gcs
  backend: "local"
  local_path: "cache"
  # Used by s3 and gcs
  bucket: ""
  prefix: "social_crawler"
  endpoint: ""
  access_key: ""
  secret_key: ""
  use_ssl: true
  region: ""

ledger:
  # csv appends every processed post, sqlite keeps one row per post
  mode: "csv"
  csv_path: "ledger.csv"
  sqlite_path: "ledger.db"

logging:
  # debug, info, warn, error
  level: "info"
  # console or json
  format: "console"
  # Optional JSON log file
  file: ""

metrics:
  # Pushgateway to receive run metrics, empty to disable
  pushgateway_url: ""
  job: "socialcrawler"
`

func runConfigInit(cmd *cobra.Command, args []string) {
	configPath := configFile
	if configPath == "" {
		configPath = ".socialcrawler.yaml"
	}

	if _, err := os.Stat(configPath); err == nil {
		ui.PrintError("Configuration file already exists", configPath)
		ui.Println("\nTo overwrite, first remove the existing file:")
		ui.Println("  rm " + configPath)
		os.Exit(1)
	}

	if err := os.WriteFile(configPath, []byte(exampleConfig), 0600); err != nil {
		ui.PrintError("Failed to create configuration file", err.Error())
		os.Exit(1)
	}

	ui.PrintSuccess("Configuration file created: " + configPath)
	ui.Println("\nNext steps:")
	ui.Println("1. Set subreddits or queries and your credentials")
	ui.Println("2. Run 'socialcrawler config validate' to check the configuration")
	ui.Println("3. Start a run with 'socialcrawler crawl'")
}

func runConfigShow(cmd *cobra.Command, args []string) {
	cfg, err := config.Resolve(configFile, globalFlags())
	if err != nil {
		ui.PrintError("Failed to load configuration", err.Error())
		os.Exit(1)
	}

	data, err := yaml.Marshal(maskConfig(*cfg))
	if err != nil {
		ui.PrintError("Failed to format configuration", err.Error())
		os.Exit(1)
	}

	ui.PrintHighlight("Current Configuration")
	ui.Println()
	ui.Println(string(data))

	ui.Println("Configuration sources (in order of priority):")
	ui.Println("1. Command line flags")
	ui.Println("2. Environment variables (REDDIT_*, SOCIALCRAWLER_*)")
	if configFile != "" {
		ui.Println("3. Configuration file: " + configFile)
	} else {
		ui.Println("3. Configuration file: (default locations)")
	}
	ui.Println("4. Default values")
}

// maskConfig hides secrets before display
func maskConfig(cfg config.Config) config.Config {
	cfg.Reddit.ClientSecret = maskValue(cfg.Reddit.ClientSecret)
	cfg.Reddit.Password = maskValue(cfg.Reddit.Password)
	cfg.Storage.AccessKey = maskValue(cfg.Storage.AccessKey)
	cfg.Storage.SecretKey = maskValue(cfg.Storage.SecretKey)
	return cfg
}

func maskValue(s string) string {
	switch {
	case s == "":
		return ""
	case len(s) > 8:
		return s[:4] + "..." + s[len(s)-4:]
	default:
		return "***"
	}
}

func runConfigValidate(cmd *cobra.Command, args []string) {
	cfg, err := config.Load(configFile, globalFlags())
	if err != nil {
		ui.PrintError("Configuration validation failed", err.Error())
		os.Exit(1)
	}

	var warnings []string
	if !cfg.Reddit.HasCredentials() {
		warnings = append(warnings, "credentials are incomplete; a stored account will be required")
	}
	if cfg.Query.MaxPosts > 100 {
		warnings = append(warnings, "max_posts above 100 is truncated to a single page")
	}
	if cfg.Query.MediaOnly && !cfg.Query.DownloadMedia {
		warnings = append(warnings, "media_only is set but download_media is off; media will not be cached")
	}

	if len(warnings) > 0 {
		ui.PrintWarning("Configuration warnings:")
		for _, w := range warnings {
			ui.Println("  - " + w)
		}
		ui.Println()
	}

	ui.PrintSuccess("Configuration is valid")

	ui.Println("\nConfiguration summary:")
	ui.Println(fmt.Sprintf("  Subreddits: %v", cfg.Query.Subreddits))
	ui.Println(fmt.Sprintf("  Queries: %v", cfg.Query.Queries))
	ui.Println(fmt.Sprintf("  Sort: %s (%s)", cfg.Query.Sort, cfg.Query.TimeFilter))
	ui.Println(fmt.Sprintf("  Storage: %s", cfg.Storage.Backend))
	ui.Println(fmt.Sprintf("  Ledger: %s at %s", cfg.Ledger.Mode, cfg.Ledger.Path()))
	ui.Println(fmt.Sprintf("  Rate limit: %d requests/minute", cfg.Reddit.RequestsPerMinute))
}
