package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"socialcrawler/pkg/auth"
	"socialcrawler/pkg/config"
	"socialcrawler/pkg/crawler"
	"socialcrawler/pkg/logger"
	"socialcrawler/pkg/metrics"
	"socialcrawler/pkg/reddit"
	"socialcrawler/pkg/ui"
)

var accountName string

var crawlCmd = &cobra.Command{
	Use:   "crawl",
	Short: "Run one ingestion pass",
	Long: `Run one ingestion pass over the configured subreddits and queries.

With queries, every subreddit (or the whole site when none is given) is
searched for every query. Without queries, each subreddit's listing for the
configured sort order is read. Only one page of results is fetched per
request.

Credentials come from the config file or REDDIT_* variables when complete,
otherwise from the credential store ('socialcrawler auth login').`,
	Example: `  # Newest posts from two subreddits into the default CSV ledger
  socialcrawler crawl -s golang -s rust

  # Search for a term site-wide, keep only posts with media and cache it
  socialcrawler crawl --query "gopher" --media-only --download-media

  # Upsert into SQLite and archive to S3-compatible storage
  socialcrawler crawl -s pics --ledger-mode sqlite --storage-backend s3 --bucket crawl`,
	Args: cobra.NoArgs,
	RunE: runCrawl,
}

func init() {
	rootCmd.AddCommand(crawlCmd)
	addCrawlFlags(crawlCmd.Flags())
}

func addCrawlFlags(f *pflag.FlagSet) {
	f.StringSlice("query", nil, "search query (repeatable)")
	f.StringSliceP("subreddit", "s", nil, "subreddit to read (repeatable)")
	f.String("sort", "", "sort order (relevance, hot, top, new, comments, rising)")
	f.String("time-filter", "", "time filter (hour, day, week, month, year, all)")
	f.Int("max-posts", 0, "posts per request, at most one page of 100")
	f.Bool("media-only", false, "skip posts without a media URL")
	f.Bool("download-media", false, "cache media next to the JSON archive")
	f.Bool("continue-on-media-error", false, "record posts whose media fetch failed instead of aborting")
	f.String("storage-backend", "", "artifact store (local, s3, gcs)")
	f.String("storage-path", "", "root directory of the local store")
	f.String("bucket", "", "bucket for s3 and gcs")
	f.String("prefix", "", "object name prefix for s3 and gcs")
	f.String("ledger-mode", "", "ledger backend (csv, sqlite)")
	f.String("ledger-path", "", "ledger file for the selected mode")
	f.StringVarP(&accountName, "account", "a", "", "use a specific stored account")
}

// changedFlags collects only the flags set on the command line so they
// override file and environment values without clobbering them.
func changedFlags(fs *pflag.FlagSet) map[string]interface{} {
	flags := globalFlags()
	fs.Visit(func(f *pflag.Flag) {
		var v interface{}
		var err error
		switch f.Value.Type() {
		case "stringSlice":
			v, err = fs.GetStringSlice(f.Name)
		case "int":
			v, err = fs.GetInt(f.Name)
		case "bool":
			v, err = fs.GetBool(f.Name)
		default:
			v = f.Value.String()
		}
		if err == nil {
			flags[f.Name] = v
		}
	})
	return flags
}

func runCrawl(cmd *cobra.Command, args []string) error {
	ui.PrintLogo()

	cfg, err := config.Load(configFile, changedFlags(cmd.Flags()))
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	if err := logger.Initialize(&cfg.Logging); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	log := logger.GetLogger()
	log.WithField("version", version).Info("socialcrawler starting")

	if err := cfg.EnsurePaths(); err != nil {
		return err
	}

	creds, err := resolveCredentials(cfg)
	if err != nil {
		ui.PrintWarning("No Reddit credentials found")
		ui.Println("\nStore credentials with:")
		ui.Println("  socialcrawler auth login")
		ui.Println("\nor export REDDIT_CLIENT_ID, REDDIT_CLIENT_SECRET, REDDIT_USERNAME and REDDIT_PASSWORD")
		return err
	}
	ui.PrintInfo("Account", creds.Username)

	recorder := metrics.NewRecorder(nil)
	c, err := crawler.New(cfg, creds, crawler.WithLogger(log), crawler.WithMetrics(recorder))
	if err != nil {
		return err
	}
	defer c.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ui.PrintHighlight("[CRAWL STARTED]")
	sum, runErr := c.Run(ctx)

	if cfg.Metrics.PushgatewayURL != "" {
		pushCtx, cancel := context.WithTimeout(context.Background(), cfg.Reddit.Timeout)
		if err := recorder.Push(pushCtx, cfg.Metrics.PushgatewayURL, cfg.Metrics.Job); err != nil {
			log.WithError(err).Warn("metrics push failed")
		}
		cancel()
	}

	printSummary(sum)
	if runErr != nil {
		ui.PrintError("[CRAWL FAILED]")
		return runErr
	}

	ui.PrintSuccess("[CRAWL COMPLETED]")
	ui.PrintInfo("Ledger", cfg.Ledger.Path())
	return nil
}

func resolveCredentials(cfg *config.Config) (reddit.Credentials, error) {
	manager, err := auth.NewManager()
	if err != nil {
		logger.GetLogger().WithError(err).Warn("credential stores unavailable, using environment only")
		manager = auth.NewManagerWithStores(auth.NewEnvironmentStore())
	}
	return manager.Resolve(cfg.Reddit, accountName)
}

func printSummary(sum crawler.Summary) {
	ui.Println()
	ui.PrintCounts(
		[]string{"Seen", "Skipped", "Recorded", "Media downloaded", "Media reused", "Media failed"},
		[]int{sum.Seen, sum.Skipped, sum.Recorded, sum.MediaDownloaded, sum.MediaReused, sum.MediaFailed},
	)
}
