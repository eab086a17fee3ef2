package ledger

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
	errs "socialcrawler/pkg/errors"
	"socialcrawler/pkg/logger"
)

const createTable = `
CREATE TABLE IF NOT EXISTS reddit_posts (
	post_id TEXT PRIMARY KEY,
	created_utc REAL,
	subreddit TEXT,
	author TEXT,
	title TEXT,
	permalink TEXT,
	url TEXT,
	media_url TEXT,
	cached_json_path TEXT,
	cached_media_path TEXT
)`

const upsertEntry = `
INSERT INTO reddit_posts (
	post_id, created_utc, subreddit, author, title,
	permalink, url, media_url, cached_json_path, cached_media_path
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(post_id) DO UPDATE SET
	created_utc = excluded.created_utc,
	subreddit = excluded.subreddit,
	author = excluded.author,
	title = excluded.title,
	permalink = excluded.permalink,
	url = excluded.url,
	media_url = excluded.media_url,
	cached_json_path = excluded.cached_json_path,
	cached_media_path = excluded.cached_media_path`

const selectEntries = `
SELECT post_id, created_utc, subreddit, author, title,
	permalink, url, media_url, cached_json_path, cached_media_path
FROM reddit_posts ORDER BY rowid`

// SQLiteLedger is the upsert backend, one row per post id
type SQLiteLedger struct {
	db     *sql.DB
	logger logger.Logger
}

// OpenSQLite opens or creates the database and its table
func OpenSQLite(path string, log logger.Logger) (*SQLiteLedger, error) {
	if path == "" {
		return nil, errs.NewConfigError("sqlite ledger path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, errs.NewLedgerError("failed to create ledger directory", err)
	}

	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, errs.NewLedgerError("failed to open ledger database", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(createTable); err != nil {
		db.Close()
		return nil, errs.NewLedgerError("failed to create ledger table", err)
	}

	return &SQLiteLedger{
		db:     db,
		logger: logger.OrGlobal(log).WithFields(map[string]interface{}{"component": "ledger.sqlite", "path": path}),
	}, nil
}

// Record inserts the entry or overwrites every column of its existing row
func (l *SQLiteLedger) Record(ctx context.Context, e Entry) error {
	_, err := l.db.ExecContext(ctx, upsertEntry,
		e.PostID,
		e.CreatedUTC,
		e.Subreddit,
		e.Author,
		e.Title,
		e.Permalink,
		e.URL,
		nullable(e.MediaURL),
		nullable(e.CachedJSONPath),
		nullable(e.CachedMediaPath),
	)
	if err != nil {
		return errs.NewLedgerError("failed to upsert "+e.PostID, err)
	}
	return nil
}

// Entries returns one entry per post id in first-insert order
func (l *SQLiteLedger) Entries(ctx context.Context) ([]Entry, error) {
	rows, err := l.db.QueryContext(ctx, selectEntries)
	if err != nil {
		return nil, errs.NewLedgerError("failed to query ledger", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var created sql.NullFloat64
		var subreddit, author, title, permalink, url, media, jsonPath, mediaPath sql.NullString
		if err := rows.Scan(&e.PostID, &created, &subreddit, &author, &title,
			&permalink, &url, &media, &jsonPath, &mediaPath); err != nil {
			return nil, errs.NewLedgerError("failed to scan ledger row", err)
		}
		e.CreatedUTC = created.Float64
		e.Subreddit = subreddit.String
		e.Author = author.String
		e.Title = title.String
		e.Permalink = permalink.String
		e.URL = url.String
		e.MediaURL = media.String
		e.CachedJSONPath = jsonPath.String
		e.CachedMediaPath = mediaPath.String
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, errs.NewLedgerError("failed to read ledger rows", err)
	}
	return entries, nil
}

func (l *SQLiteLedger) Close() error {
	return l.db.Close()
}

// nullable stores absent optional fields as NULL
func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
