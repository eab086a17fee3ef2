package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"socialcrawler/pkg/config"
	"socialcrawler/pkg/ledger"
)

func TestExampleConfigParses(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(exampleConfig), 0600))

	cfg := config.DefaultConfig()
	require.NoError(t, cfg.LoadFromFile(path))
	require.NoError(t, cfg.Validate())

	assert.Equal(t, []string{"golang"}, cfg.Query.Subreddits)
	assert.Equal(t, config.DefaultConfig().Reddit.Timeout, cfg.Reddit.Timeout)
	assert.Equal(t, config.DefaultConfig().Ledger, cfg.Ledger)
}

func TestChangedFlagsOnlyIncludesSetFlags(t *testing.T) {
	fs := pflag.NewFlagSet("crawl", pflag.ContinueOnError)
	addCrawlFlags(fs)

	require.NoError(t, fs.Set("subreddit", "golang"))
	require.NoError(t, fs.Set("subreddit", "rust"))
	require.NoError(t, fs.Set("max-posts", "10"))
	require.NoError(t, fs.Set("media-only", "true"))
	require.NoError(t, fs.Set("ledger-mode", "sqlite"))

	flags := changedFlags(fs)

	assert.Equal(t, []string{"golang", "rust"}, flags["subreddit"])
	assert.Equal(t, 10, flags["max-posts"])
	assert.Equal(t, true, flags["media-only"])
	assert.Equal(t, "sqlite", flags["ledger-mode"])
	assert.NotContains(t, flags, "query")
	assert.NotContains(t, flags, "download-media")

	cfg := config.DefaultConfig()
	cfg.MergeCommandLineFlags(flags)
	assert.Equal(t, []string{"golang", "rust"}, cfg.Query.Subreddits)
	assert.Equal(t, 10, cfg.Query.MaxPosts)
	assert.False(t, cfg.Query.DownloadMedia)
}

func TestMaskConfig(t *testing.T) {
	cfg := *config.DefaultConfig()
	cfg.Reddit.ClientSecret = "supersecretvalue"
	cfg.Reddit.Password = "short"
	cfg.Storage.SecretKey = ""

	masked := maskConfig(cfg)

	assert.Equal(t, "supe...alue", masked.Reddit.ClientSecret)
	assert.Equal(t, "***", masked.Reddit.Password)
	assert.Equal(t, "", masked.Storage.SecretKey)
	assert.Equal(t, "supersecretvalue", cfg.Reddit.ClientSecret)
}

func TestLedgerRows(t *testing.T) {
	rows := ledgerRows([]ledger.Entry{
		{PostID: "a1", Subreddit: "pics", CreatedUTC: 1700000000, Title: "short", CachedMediaPath: "media/pics/a1.jpg"},
		{PostID: "b2", Subreddit: "golang", Title: "a title that is long enough to need cutting down for the table"},
	})

	require.Len(t, rows, 2)
	assert.Equal(t, []string{"a1", "pics", "2023-11-14 22:13", "short", "media/pics/a1.jpg"}, rows[0])
	assert.Equal(t, "", rows[1][2])
	assert.Len(t, []rune(rows[1][3]), 48)
	assert.Equal(t, "-", rows[1][4])
}
