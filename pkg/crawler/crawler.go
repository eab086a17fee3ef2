package crawler

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"sync"
	"time"

	"github.com/google/uuid"
	"socialcrawler/internal/downloader"
	"socialcrawler/pkg/config"
	errs "socialcrawler/pkg/errors"
	"socialcrawler/pkg/ledger"
	"socialcrawler/pkg/logger"
	"socialcrawler/pkg/metrics"
	"socialcrawler/pkg/reddit"
	"socialcrawler/pkg/storage"
)

// PostSource yields normalized posts for a query configuration
type PostSource interface {
	List(ctx context.Context, q config.QueryConfig) iter.Seq2[reddit.Post, error]
	Close() error
}

// MediaFetcher downloads media bytes
type MediaFetcher interface {
	Fetch(ctx context.Context, mediaURL string) ([]byte, error)
	Close() error
}

// Summary counts what one run did
type Summary struct {
	Seen            int
	Skipped         int
	Recorded        int
	MediaDownloaded int
	MediaReused     int
	MediaFailed     int
}

func (s Summary) fields() map[string]interface{} {
	return map[string]interface{}{
		"seen":             s.Seen,
		"skipped":          s.Skipped,
		"recorded":         s.Recorded,
		"media_downloaded": s.MediaDownloaded,
		"media_reused":     s.MediaReused,
		"media_failed":     s.MediaFailed,
	}
}

// Crawler drives one synchronous pass: posts from the source are filtered,
// archived to the store, and journaled in the ledger, one at a time.
type Crawler struct {
	cfg     *config.Config
	source  PostSource
	store   storage.Store
	ledger  ledger.Ledger
	fetcher MediaFetcher
	logger  logger.Logger
	metrics *metrics.Recorder

	closeOnce sync.Once
	closeErr  error
}

// Option replaces one of the components New would otherwise build
type Option func(*Crawler)

func WithSource(s PostSource) Option {
	return func(c *Crawler) { c.source = s }
}

func WithStore(s storage.Store) Option {
	return func(c *Crawler) { c.store = s }
}

func WithLedger(l ledger.Ledger) Option {
	return func(c *Crawler) { c.ledger = l }
}

func WithFetcher(f MediaFetcher) Option {
	return func(c *Crawler) { c.fetcher = f }
}

func WithLogger(l logger.Logger) Option {
	return func(c *Crawler) { c.logger = l }
}

func WithMetrics(m *metrics.Recorder) Option {
	return func(c *Crawler) { c.metrics = m }
}

// New wires a crawler from cfg. Components not supplied through options are
// built here. An unknown storage backend or ledger mode fails before any
// network activity, releasing whatever was passed in. The crawler owns every
// component and releases them in Close.
func New(cfg *config.Config, creds reddit.Credentials, opts ...Option) (*Crawler, error) {
	if cfg == nil {
		return nil, errs.NewConfigError("config is required")
	}

	c := &Crawler{cfg: cfg}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = logger.OrGlobal(c.logger).WithField("component", "crawler")

	if c.store == nil {
		store, err := storage.New(context.Background(), cfg.Storage, c.logger)
		if err != nil {
			c.Close()
			return nil, err
		}
		c.store = store
	}

	if c.ledger == nil {
		l, err := ledger.Open(cfg.Ledger, c.logger)
		if err != nil {
			c.Close()
			return nil, err
		}
		c.ledger = l
	}

	if c.source == nil {
		c.source = reddit.NewClient(creds, cfg.Reddit, c.logger)
	}

	if c.fetcher == nil {
		c.fetcher = downloader.NewFetcher(cfg.Media, creds.UserAgent, c.logger)
	}

	logger.LogComponentStart(c.logger, "crawler", map[string]interface{}{
		"storage_backend": cfg.Storage.Backend,
		"ledger_mode":     cfg.Ledger.Mode,
		"media_only":      cfg.Query.MediaOnly,
		"download_media":  cfg.Query.DownloadMedia,
	})

	return c, nil
}

// Run drains the source once. The first error ends the run; artifacts and
// ledger entries written before it stay in place.
func (c *Crawler) Run(ctx context.Context) (Summary, error) {
	log := c.logger.WithField("run_id", uuid.NewString())
	start := time.Now()

	log.InfoWithFields("crawl started", map[string]interface{}{
		"queries":    c.cfg.Query.Queries,
		"subreddits": c.cfg.Query.Subreddits,
		"sort":       c.cfg.Query.Sort,
		"max_posts":  c.cfg.Query.MaxPosts,
	})

	var sum Summary
	err := c.run(ctx, log, &sum)
	elapsed := time.Since(start)
	c.metrics.RunFinished(elapsed, err != nil)

	fields := sum.fields()
	fields["duration"] = elapsed
	if err != nil {
		log.WithError(err).ErrorWithFields("crawl failed", fields)
		return sum, err
	}

	log.InfoWithFields("crawl finished", fields)
	return sum, nil
}

func (c *Crawler) run(ctx context.Context, log logger.Logger, sum *Summary) error {
	for post, err := range c.source.List(ctx, c.cfg.Query) {
		if err != nil {
			return err
		}

		sum.Seen++
		c.metrics.PostSeen()

		if c.cfg.Query.MediaOnly && post.MediaURL == "" {
			sum.Skipped++
			c.metrics.PostSkipped()
			log.DebugWithFields("skipping post without media", map[string]interface{}{
				"post_id": post.ID,
			})
			continue
		}

		if err := c.process(ctx, log, post, sum); err != nil {
			return err
		}
	}
	return nil
}

// process archives one admitted post and journals it
func (c *Crawler) process(ctx context.Context, log logger.Logger, post reddit.Post, sum *Summary) error {
	jsonKey := JSONKey(post)
	if err := c.store.SaveJSON(ctx, jsonKey, post.Raw); err != nil {
		return fmt.Errorf("archive post %s: %w", post.ID, err)
	}

	var mediaKey string
	if c.cfg.Query.DownloadMedia && post.MediaURL != "" {
		key, err := c.cacheMedia(ctx, log, post, sum)
		switch {
		case err == nil:
			mediaKey = key
		case c.cfg.Media.ContinueOnError && errs.Is(err, errs.ErrorTypeMediaFetch):
			log.WarnWithFields("continuing without media", map[string]interface{}{
				"post_id": post.ID,
			})
		default:
			return err
		}
	}

	entry := ledger.Entry{
		PostID:          post.ID,
		CreatedUTC:      post.CreatedUTC,
		Subreddit:       post.Subreddit,
		Author:          post.Author,
		Title:           post.Title,
		Permalink:       post.Permalink,
		URL:             post.URL,
		MediaURL:        post.MediaURL,
		CachedJSONPath:  jsonKey,
		CachedMediaPath: mediaKey,
	}
	if err := c.ledger.Record(ctx, entry); err != nil {
		return fmt.Errorf("record post %s: %w", post.ID, err)
	}

	sum.Recorded++
	c.metrics.PostRecorded()
	return nil
}

// cacheMedia stores the media of post unless its key already exists, and
// returns the key.
func (c *Crawler) cacheMedia(ctx context.Context, log logger.Logger, post reddit.Post, sum *Summary) (string, error) {
	key := MediaKey(post)

	exists, err := c.store.Exists(ctx, key)
	if err != nil {
		return "", fmt.Errorf("check media %s: %w", key, err)
	}
	if exists {
		sum.MediaReused++
		c.metrics.MediaReused()
		logger.LogMediaFetch(log, post.ID, post.MediaURL, key, true, nil)
		return key, nil
	}

	data, err := c.fetcher.Fetch(ctx, post.MediaURL)
	if err != nil {
		sum.MediaFailed++
		c.metrics.MediaFailed()
		logger.LogMediaFetch(log, post.ID, post.MediaURL, key, false, err)
		return "", err
	}

	if err := c.store.SaveBytes(ctx, key, data); err != nil {
		return "", fmt.Errorf("store media %s: %w", key, err)
	}

	sum.MediaDownloaded++
	c.metrics.MediaDownloaded(len(data))
	logger.LogMediaFetch(log, post.ID, post.MediaURL, key, false, nil)
	return key, nil
}

// Close releases the source, the fetcher and the ledger. Later calls
// return the result of the first.
func (c *Crawler) Close() error {
	c.closeOnce.Do(func() {
		var closeErrs []error
		for _, closer := range []interface{ Close() error }{c.source, c.fetcher, c.ledger} {
			if closer == nil {
				continue
			}
			if err := closer.Close(); err != nil {
				closeErrs = append(closeErrs, err)
			}
		}
		c.closeErr = errors.Join(closeErrs...)
	})
	return c.closeErr
}
