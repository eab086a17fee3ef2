package crawler

import (
	"context"
	"encoding/json"
	"errors"
	"iter"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"socialcrawler/pkg/config"
	errs "socialcrawler/pkg/errors"
	"socialcrawler/pkg/ledger"
	"socialcrawler/pkg/logger"
	"socialcrawler/pkg/metrics"
	"socialcrawler/pkg/reddit"
	"socialcrawler/pkg/storage"
)

var testCreds = reddit.Credentials{
	ClientID:     "cid",
	ClientSecret: "secret",
	Username:     "bot",
	Password:     "pw",
	UserAgent:    "socialcrawler-test/1.0",
}

// platform serves the token endpoint, one subreddit listing and media files
type platform struct {
	srv        *httptest.Server
	mediaHits  int32
	mediaCode  int32
	listingHit int32

	mu       sync.Mutex
	children []map[string]interface{}
}

func (p *platform) setChildren(children ...map[string]interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.children = children
}

func newPlatform(t *testing.T) *platform {
	t.Helper()
	p := &platform{mediaCode: http.StatusOK}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/access_token", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token": "tok", "token_type": "bearer", "expires_in": 3600}`))
	})
	mux.HandleFunc("/r/pics/new", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&p.listingHit, 1)
		p.mu.Lock()
		children := make([]map[string]interface{}, 0, len(p.children))
		for _, c := range p.children {
			children = append(children, map[string]interface{}{"kind": "t3", "data": c})
		}
		p.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"kind": "Listing",
			"data": map[string]interface{}{"children": children},
		})
	})
	mux.HandleFunc("/media/", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&p.mediaHits, 1)
		code := int(atomic.LoadInt32(&p.mediaCode))
		if code != http.StatusOK {
			w.WriteHeader(code)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		w.Write([]byte("\x89PNG fake"))
	})

	p.srv = httptest.NewServer(mux)
	t.Cleanup(p.srv.Close)
	return p
}

func (p *platform) post(id string, extra map[string]interface{}) map[string]interface{} {
	d := map[string]interface{}{
		"id":          id,
		"title":       "post " + id,
		"subreddit":   "pics",
		"author":      "alice",
		"permalink":   "/r/pics/comments/" + id + "/",
		"url":         "https://www.reddit.com/r/pics/comments/" + id + "/",
		"created_utc": 1700000000.0,
	}
	for k, v := range extra {
		d[k] = v
	}
	return d
}

func (p *platform) config(t *testing.T, dir string) *config.Config {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Reddit.TokenURL = p.srv.URL + "/api/v1/access_token"
	cfg.Reddit.APIBase = p.srv.URL
	cfg.Reddit.RequestsPerMinute = 0
	cfg.Query.Subreddits = []string{"pics"}
	cfg.Storage.LocalPath = filepath.Join(dir, "cache")
	cfg.Ledger.CSVPath = filepath.Join(dir, "ledger.csv")
	cfg.Ledger.SQLitePath = filepath.Join(dir, "ledger.db")
	return cfg
}

func runOnce(t *testing.T, cfg *config.Config, opts ...Option) (Summary, error) {
	t.Helper()
	opts = append([]Option{WithLogger(logger.NewTestLogger())}, opts...)
	c, err := New(cfg, testCreds, opts...)
	require.NoError(t, err)
	defer c.Close()
	return c.Run(context.Background())
}

func readLedger(t *testing.T, cfg config.LedgerConfig) []ledger.Entry {
	t.Helper()
	l, err := ledger.Open(cfg, logger.NewNopLogger())
	require.NoError(t, err)
	defer l.Close()
	entries, err := l.Entries(context.Background())
	require.NoError(t, err)
	return entries
}

func TestRunMediaOnlyEndToEnd(t *testing.T) {
	p := newPlatform(t)
	p.setChildren(
		p.post("plain", nil),
		p.post("pic", map[string]interface{}{"url_overridden_by_dest": p.srv.URL + "/media/pic.png"}),
	)

	dir := t.TempDir()
	cfg := p.config(t, dir)
	cfg.Query.MediaOnly = true

	sum, err := runOnce(t, cfg)
	require.NoError(t, err)
	assert.Equal(t, Summary{Seen: 2, Skipped: 1, Recorded: 1}, sum)

	entries := readLedger(t, cfg.Ledger)
	require.Len(t, entries, 1)
	assert.Equal(t, "pic", entries[0].PostID)
	assert.Equal(t, "json/pics/pic.json", entries[0].CachedJSONPath)
	assert.Equal(t, p.srv.URL+"/media/pic.png", entries[0].MediaURL)
	assert.Empty(t, entries[0].CachedMediaPath)

	store, err := storage.NewLocalStore(cfg.Storage.LocalPath, nil)
	require.NoError(t, err)
	ctx := context.Background()

	ok, err := store.Exists(ctx, "json/pics/pic.json")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = store.Exists(ctx, "json/pics/plain.json")
	require.NoError(t, err)
	assert.False(t, ok)

	data, err := store.Read(ctx, "json/pics/pic.json")
	require.NoError(t, err)
	var raw map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, "pic", raw["id"])

	// media download was not requested
	assert.Equal(t, int32(0), atomic.LoadInt32(&p.mediaHits))
}

func TestRunMediaFetchedOnce(t *testing.T) {
	p := newPlatform(t)
	p.setChildren(p.post("pic", map[string]interface{}{"url_overridden_by_dest": p.srv.URL + "/media/pic.png"}))

	dir := t.TempDir()
	cfg := p.config(t, dir)
	cfg.Query.DownloadMedia = true

	first, err := runOnce(t, cfg)
	require.NoError(t, err)
	assert.Equal(t, 1, first.MediaDownloaded)

	second, err := runOnce(t, cfg)
	require.NoError(t, err)
	assert.Equal(t, 0, second.MediaDownloaded)
	assert.Equal(t, 1, second.MediaReused)

	assert.Equal(t, int32(1), atomic.LoadInt32(&p.mediaHits))
	assert.Equal(t, int32(2), atomic.LoadInt32(&p.listingHit))

	// append-only ledger keeps both runs
	entries := readLedger(t, cfg.Ledger)
	require.Len(t, entries, 2)
	for _, e := range entries {
		assert.Equal(t, "media/pics/pic.png", e.CachedMediaPath)
	}

	store, err := storage.NewLocalStore(cfg.Storage.LocalPath, nil)
	require.NoError(t, err)
	data, err := store.Read(context.Background(), "media/pics/pic.png")
	require.NoError(t, err)
	assert.Equal(t, "\x89PNG fake", string(data))
}

func TestRunSQLiteLedgerRerun(t *testing.T) {
	p := newPlatform(t)
	p.setChildren(p.post("abc", nil))

	cfg := p.config(t, t.TempDir())
	cfg.Ledger.Mode = config.LedgerSQLite

	_, err := runOnce(t, cfg)
	require.NoError(t, err)

	p.setChildren(p.post("abc", map[string]interface{}{"title": "Updated"}))
	_, err = runOnce(t, cfg)
	require.NoError(t, err)

	entries := readLedger(t, cfg.Ledger)
	require.Len(t, entries, 1)
	assert.Equal(t, "Updated", entries[0].Title)
}

func TestRunMediaFailure(t *testing.T) {
	setup := func(t *testing.T) (*platform, *config.Config) {
		p := newPlatform(t)
		atomic.StoreInt32(&p.mediaCode, http.StatusNotFound)
		p.setChildren(
			p.post("first", nil),
			p.post("broken", map[string]interface{}{"url_overridden_by_dest": p.srv.URL + "/media/broken.jpg"}),
			p.post("last", nil),
		)
		cfg := p.config(t, t.TempDir())
		cfg.Query.DownloadMedia = true
		return p, cfg
	}

	t.Run("aborts by default", func(t *testing.T) {
		_, cfg := setup(t)

		sum, err := runOnce(t, cfg)
		require.Error(t, err)
		assert.True(t, errs.Is(err, errs.ErrorTypeMediaFetch))
		assert.Equal(t, 1, sum.Recorded)
		assert.Equal(t, 1, sum.MediaFailed)

		// work done before the failure stays
		entries := readLedger(t, cfg.Ledger)
		require.Len(t, entries, 1)
		assert.Equal(t, "first", entries[0].PostID)
	})

	t.Run("continues when configured", func(t *testing.T) {
		_, cfg := setup(t)
		cfg.Media.ContinueOnError = true

		sum, err := runOnce(t, cfg)
		require.NoError(t, err)
		assert.Equal(t, Summary{Seen: 3, Recorded: 3, MediaFailed: 1}, sum)

		entries := readLedger(t, cfg.Ledger)
		require.Len(t, entries, 3)
		assert.Equal(t, "broken", entries[1].PostID)
		assert.NotEmpty(t, entries[1].MediaURL)
		assert.Empty(t, entries[1].CachedMediaPath)
	})
}

func TestRunAuthFailureBeforeListing(t *testing.T) {
	var listed int32
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/access_token", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error": "invalid_grant"}`))
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&listed, 1)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	cfg := (&platform{srv: srv}).config(t, t.TempDir())

	sum, err := runOnce(t, cfg)
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.ErrorTypeAuth))
	assert.Equal(t, Summary{}, sum)
	assert.Equal(t, int32(0), atomic.LoadInt32(&listed))
}

// fakeSource yields canned posts, then an optional error
type fakeSource struct {
	posts  []reddit.Post
	err    error
	closed int
}

func (f *fakeSource) List(ctx context.Context, q config.QueryConfig) iter.Seq2[reddit.Post, error] {
	return func(yield func(reddit.Post, error) bool) {
		for _, p := range f.posts {
			if !yield(p, nil) {
				return
			}
		}
		if f.err != nil {
			yield(reddit.Post{}, f.err)
		}
	}
}

func (f *fakeSource) Close() error {
	f.closed++
	return nil
}

type fakeFetcher struct {
	mu     sync.Mutex
	urls   []string
	closed int
}

func (f *fakeFetcher) Fetch(ctx context.Context, mediaURL string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.urls = append(f.urls, mediaURL)
	return []byte(mediaURL), nil
}

func (f *fakeFetcher) Close() error {
	f.closed++
	return errors.New("fetcher close failed")
}

func TestRunListingErrorStopsRun(t *testing.T) {
	listingErr := errs.NewListingError(http.StatusServiceUnavailable, "GET /r/pics/new", nil)
	src := &fakeSource{
		posts: []reddit.Post{{ID: "a", Subreddit: "pics", Raw: map[string]any{"id": "a"}}},
		err:   listingErr,
	}

	cfg := config.DefaultConfig()
	dir := t.TempDir()
	cfg.Storage.LocalPath = filepath.Join(dir, "cache")
	cfg.Ledger.CSVPath = filepath.Join(dir, "ledger.csv")

	sum, err := runOnce(t, cfg, WithSource(src), WithFetcher(&fakeFetcher{}))
	assert.ErrorIs(t, err, listingErr)
	assert.Equal(t, 1, sum.Recorded)
}

func TestRunRecordsMetrics(t *testing.T) {
	src := &fakeSource{posts: []reddit.Post{
		{ID: "a", Subreddit: "pics", MediaURL: "https://i.redd.it/a.gif"},
		{ID: "b", Subreddit: "pics"},
	}}
	fetcher := &fakeFetcher{}
	reg := prometheus.NewRegistry()

	cfg := config.DefaultConfig()
	dir := t.TempDir()
	cfg.Storage.LocalPath = filepath.Join(dir, "cache")
	cfg.Ledger.CSVPath = filepath.Join(dir, "ledger.csv")
	cfg.Query.MediaOnly = true
	cfg.Query.DownloadMedia = true

	sum, err := runOnce(t, cfg, WithSource(src), WithFetcher(fetcher), WithMetrics(metrics.NewRecorder(reg)))
	require.NoError(t, err)
	assert.Equal(t, Summary{Seen: 2, Skipped: 1, Recorded: 1, MediaDownloaded: 1}, sum)
	assert.Equal(t, []string{"https://i.redd.it/a.gif"}, fetcher.urls)

	expected := `
# HELP socialcrawler_posts_recorded_total Posts written to the ledger.
# TYPE socialcrawler_posts_recorded_total counter
socialcrawler_posts_recorded_total 1
# HELP socialcrawler_posts_skipped_total Posts dropped by the media-only filter.
# TYPE socialcrawler_posts_skipped_total counter
socialcrawler_posts_skipped_total 1
# HELP socialcrawler_media_bytes_total Bytes of media fetched.
# TYPE socialcrawler_media_bytes_total counter
socialcrawler_media_bytes_total 23
`
	assert.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected),
		"socialcrawler_posts_recorded_total",
		"socialcrawler_posts_skipped_total",
		"socialcrawler_media_bytes_total",
	))
}

func TestNewRejectsBadConfig(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{
			name:   "storage backend",
			mutate: func(cfg *config.Config) { cfg.Storage.Backend = "ftp" },
			want:   "unsupported storage backend",
		},
		{
			name:   "ledger mode",
			mutate: func(cfg *config.Config) { cfg.Ledger.Mode = "parquet" },
			want:   "unsupported ledger mode",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.DefaultConfig()
			cfg.Storage.LocalPath = t.TempDir()
			tt.mutate(cfg)

			src := &fakeSource{}
			c, err := New(cfg, testCreds, WithSource(src), WithLogger(logger.NewNopLogger()))
			require.Error(t, err)
			assert.Nil(t, c)
			assert.True(t, errs.Is(err, errs.ErrorTypeConfig))
			assert.Contains(t, err.Error(), tt.want)
			assert.Equal(t, 1, src.closed)
		})
	}

	_, err := New(nil, testCreds)
	assert.True(t, errs.Is(err, errs.ErrorTypeConfig))
}

func TestCloseReleasesOnce(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Ledger.CSVPath = filepath.Join(t.TempDir(), "ledger.csv")

	src := &fakeSource{}
	fetcher := &fakeFetcher{}
	c, err := New(cfg, testCreds,
		WithSource(src),
		WithFetcher(fetcher),
		WithStore(newMemStore()),
		WithLogger(logger.NewNopLogger()),
	)
	require.NoError(t, err)

	err = c.Close()
	assert.ErrorContains(t, err, "fetcher close failed")
	assert.Equal(t, err, c.Close())
	assert.Equal(t, 1, src.closed)
	assert.Equal(t, 1, fetcher.closed)
}

// memStore is an in-memory storage.Store
type memStore struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newMemStore() *memStore {
	return &memStore{objects: map[string][]byte{}}
}

func (m *memStore) SaveJSON(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return m.SaveBytes(ctx, key, data)
}

func (m *memStore) SaveBytes(ctx context.Context, key string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = append([]byte(nil), data...)
	return nil
}

func (m *memStore) Exists(ctx context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.objects[key]
	return ok, nil
}

func (m *memStore) Read(ctx context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[key]
	if !ok {
		return nil, errors.New("not found")
	}
	return data, nil
}

func TestRunWithMemStore(t *testing.T) {
	store := newMemStore()
	store.objects["media/u_bob/x.jpg"] = []byte("cached")

	src := &fakeSource{posts: []reddit.Post{
		{ID: "x", Subreddit: "u/bob", MediaURL: "https://i.redd.it/x.jpg", Raw: map[string]any{"id": "x"}},
	}}
	fetcher := &fakeFetcher{}

	cfg := config.DefaultConfig()
	cfg.Ledger.CSVPath = filepath.Join(t.TempDir(), "ledger.csv")
	cfg.Query.DownloadMedia = true

	sum, err := runOnce(t, cfg, WithSource(src), WithFetcher(fetcher), WithStore(store))
	require.NoError(t, err)
	assert.Equal(t, 1, sum.MediaReused)
	assert.Empty(t, fetcher.urls)

	ok, _ := store.Exists(context.Background(), "json/u/bob/x.json")
	assert.True(t, ok)
}
