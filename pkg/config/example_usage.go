package config

// Example usage of the configuration system:
//
// 1. Load configuration with all sources:
//
//     cfg, err := config.Load("", nil)
//     if err != nil {
//         log.Fatal(err)
//     }
//
// 2. Load with a custom config file:
//
//     cfg, err := config.Load("/path/to/config.yaml", nil)
//
// 3. Load with command line flags (only the flags the user set):
//
//     flags := map[string]interface{}{
//         "subreddit":      []string{"golang"},
//         "query":          []string{"generics"},
//         "media-only":     true,
//         "download-media": true,
//         "ledger-mode":    "sqlite",
//     }
//     cfg, err := config.Load("", flags)
//
// 4. Programmatic configuration:
//
//     cfg := config.DefaultConfig()
//     cfg.Query.Subreddits = []string{"golang"}
//     cfg.Storage.Backend = config.BackendGCS
//     cfg.Storage.Bucket = "my-bucket"
//
//     if err := cfg.Validate(); err != nil {
//         log.Fatal(err)
//     }
//     if err := cfg.EnsurePaths(); err != nil {
//         log.Fatal(err)
//     }
//
// Environment variables:
//
//     REDDIT_CLIENT_ID, REDDIT_CLIENT_SECRET, REDDIT_USERNAME,
//     REDDIT_PASSWORD, REDDIT_USER_AGENT
//     SOCIALCRAWLER_STORAGE_BACKEND, SOCIALCRAWLER_STORAGE_PATH,
//     SOCIALCRAWLER_BUCKET, SOCIALCRAWLER_PREFIX, SOCIALCRAWLER_STORAGE_ENDPOINT,
//     SOCIALCRAWLER_ACCESS_KEY, SOCIALCRAWLER_SECRET_KEY,
//     SOCIALCRAWLER_LEDGER_MODE, SOCIALCRAWLER_LEDGER_CSV, SOCIALCRAWLER_LEDGER_SQLITE,
//     SOCIALCRAWLER_REQUESTS_PER_MINUTE, SOCIALCRAWLER_PUSHGATEWAY_URL,
//     SOCIALCRAWLER_LOG_LEVEL
