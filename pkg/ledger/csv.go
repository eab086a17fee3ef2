package ledger

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	errs "socialcrawler/pkg/errors"
	"socialcrawler/pkg/logger"
)

// CSVLedger is the append-only backend
type CSVLedger struct {
	path   string
	logger logger.Logger
	mu     sync.Mutex
}

// OpenCSV writes the header if the file does not exist yet. An existing
// file is appended to as is.
func OpenCSV(path string, log logger.Logger) (*CSVLedger, error) {
	if path == "" {
		return nil, errs.NewConfigError("csv ledger path is required")
	}

	l := &CSVLedger{
		path:   path,
		logger: logger.OrGlobal(log).WithFields(map[string]interface{}{"component": "ledger.csv", "path": path}),
	}

	if err := l.init(); err != nil {
		return nil, err
	}
	return l, nil
}

func (l *CSVLedger) init() error {
	if _, err := os.Stat(l.path); err == nil {
		return nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return errs.NewLedgerError("failed to stat ledger", err)
	}

	if err := os.MkdirAll(filepath.Dir(l.path), 0755); err != nil {
		return errs.NewLedgerError("failed to create ledger directory", err)
	}

	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if errors.Is(err, os.ErrExist) {
		return nil
	}
	if err != nil {
		return errs.NewLedgerError("failed to create ledger", err)
	}

	if err := writeRow(f, Columns); err != nil {
		f.Close()
		return errs.NewLedgerError("failed to write ledger header", err)
	}
	if err := f.Close(); err != nil {
		return errs.NewLedgerError("failed to close ledger", err)
	}

	l.logger.Debug("ledger created")
	return nil
}

// Record appends one row
func (l *CSVLedger) Record(ctx context.Context, e Entry) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return errs.NewLedgerError("failed to open ledger", err)
	}

	if err := writeRow(f, entryRow(e)); err != nil {
		f.Close()
		return errs.NewLedgerError("failed to append "+e.PostID, err)
	}
	if err := f.Close(); err != nil {
		return errs.NewLedgerError("failed to close ledger", err)
	}
	return nil
}

// Entries returns every row in file order, duplicates included
func (l *CSVLedger) Entries(ctx context.Context) ([]Entry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.Open(l.path)
	if err != nil {
		return nil, errs.NewLedgerError("failed to open ledger", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = len(Columns)

	if _, err := r.Read(); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, errs.NewLedgerError("failed to read ledger header", err)
	}

	var entries []Entry
	for {
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, errs.NewLedgerError("failed to read ledger row", err)
		}
		e, err := rowEntry(row)
		if err != nil {
			return nil, errs.NewLedgerError("malformed ledger row", err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func (l *CSVLedger) Close() error {
	return nil
}

func writeRow(w io.Writer, row []string) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(row); err != nil {
		return err
	}
	cw.Flush()
	return cw.Error()
}

func entryRow(e Entry) []string {
	return []string{
		e.PostID,
		strconv.FormatFloat(e.CreatedUTC, 'f', -1, 64),
		e.Subreddit,
		e.Author,
		e.Title,
		e.Permalink,
		e.URL,
		e.MediaURL,
		e.CachedJSONPath,
		e.CachedMediaPath,
	}
}

func rowEntry(row []string) (Entry, error) {
	created, err := strconv.ParseFloat(row[1], 64)
	if err != nil {
		return Entry{}, fmt.Errorf("created_utc %q: %w", row[1], err)
	}
	return Entry{
		PostID:          row[0],
		CreatedUTC:      created,
		Subreddit:       row[2],
		Author:          row[3],
		Title:           row[4],
		Permalink:       row[5],
		URL:             row[6],
		MediaURL:        row[7],
		CachedJSONPath:  row[8],
		CachedMediaPath: row[9],
	}, nil
}
