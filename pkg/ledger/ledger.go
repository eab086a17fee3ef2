package ledger

import (
	"context"
	"strings"

	"socialcrawler/pkg/config"
	errs "socialcrawler/pkg/errors"
	"socialcrawler/pkg/logger"
)

// Entry is one processed post. Empty MediaURL, CachedJSONPath and
// CachedMediaPath mean absent.
type Entry struct {
	PostID          string
	CreatedUTC      float64
	Subreddit       string
	Author          string
	Title           string
	Permalink       string
	URL             string
	MediaURL        string
	CachedJSONPath  string
	CachedMediaPath string
}

// Columns is the fixed column order shared by both backends
var Columns = []string{
	"post_id",
	"created_utc",
	"subreddit",
	"author",
	"title",
	"permalink",
	"url",
	"media_url",
	"cached_json_path",
	"cached_media_path",
}

// Ledger durably records processed posts.
//
// The CSV backend appends one row per Record call, so recording a post
// twice leaves two rows. The SQLite backend keeps one row per post id and
// overwrites it on every Record call.
type Ledger interface {
	Record(ctx context.Context, e Entry) error
	Entries(ctx context.Context) ([]Entry, error)
	Close() error
}

// Open builds the Ledger selected by cfg.Mode
func Open(cfg config.LedgerConfig, log logger.Logger) (Ledger, error) {
	log = logger.OrGlobal(log)

	switch strings.ToLower(cfg.Mode) {
	case config.LedgerCSV:
		return OpenCSV(cfg.CSVPath, log)
	case config.LedgerSQLite:
		return OpenSQLite(cfg.SQLitePath, log)
	default:
		return nil, errs.NewConfigError("unsupported ledger mode: " + cfg.Mode)
	}
}
