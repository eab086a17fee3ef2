// Package metrics exposes per-run crawl counters and pushes them to a
// Prometheus Pushgateway at the end of a run.
package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

const namespace = "socialcrawler"

// Recorder holds the counters for one process. All methods are safe for
// concurrent use and a nil *Recorder is a no-op.
type Recorder struct {
	registry *prometheus.Registry

	postsSeen       prometheus.Counter
	postsSkipped    prometheus.Counter
	postsRecorded   prometheus.Counter
	mediaDownloaded prometheus.Counter
	mediaReused     prometheus.Counter
	mediaFailed     prometheus.Counter
	mediaBytes      prometheus.Counter
	runDuration     prometheus.Gauge
	lastSuccess     prometheus.Gauge
}

// NewRecorder registers the crawl metrics on reg. A nil reg gets a fresh
// registry.
func NewRecorder(reg *prometheus.Registry) *Recorder {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	counter := func(name, help string) prometheus.Counter {
		return prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      name,
			Help:      help,
		})
	}
	gauge := func(name, help string) prometheus.Gauge {
		return prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      name,
			Help:      help,
		})
	}

	r := &Recorder{
		registry:        reg,
		postsSeen:       counter("posts_seen_total", "Posts yielded by the platform API."),
		postsSkipped:    counter("posts_skipped_total", "Posts dropped by the media-only filter."),
		postsRecorded:   counter("posts_recorded_total", "Posts written to the ledger."),
		mediaDownloaded: counter("media_downloaded_total", "Media artifacts fetched and stored."),
		mediaReused:     counter("media_reused_total", "Media artifacts already present in the store."),
		mediaFailed:     counter("media_failed_total", "Media fetches that failed."),
		mediaBytes:      counter("media_bytes_total", "Bytes of media fetched."),
		runDuration:     gauge("run_duration_seconds", "Wall time of the last run."),
		lastSuccess:     gauge("last_success_timestamp_seconds", "Unix time of the last successful run."),
	}

	reg.MustRegister(
		r.postsSeen,
		r.postsSkipped,
		r.postsRecorded,
		r.mediaDownloaded,
		r.mediaReused,
		r.mediaFailed,
		r.mediaBytes,
		r.runDuration,
		r.lastSuccess,
	)
	return r
}

// Registry returns the registry the counters live on
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

func (r *Recorder) PostSeen() {
	if r != nil {
		r.postsSeen.Inc()
	}
}

func (r *Recorder) PostSkipped() {
	if r != nil {
		r.postsSkipped.Inc()
	}
}

func (r *Recorder) PostRecorded() {
	if r != nil {
		r.postsRecorded.Inc()
	}
}

// MediaDownloaded counts one stored media artifact of size bytes
func (r *Recorder) MediaDownloaded(size int) {
	if r != nil {
		r.mediaDownloaded.Inc()
		r.mediaBytes.Add(float64(size))
	}
}

func (r *Recorder) MediaReused() {
	if r != nil {
		r.mediaReused.Inc()
	}
}

func (r *Recorder) MediaFailed() {
	if r != nil {
		r.mediaFailed.Inc()
	}
}

// RunFinished sets the duration gauge, and the success timestamp when
// the run did not fail.
func (r *Recorder) RunFinished(d time.Duration, failed bool) {
	if r == nil {
		return
	}
	r.runDuration.Set(d.Seconds())
	if !failed {
		r.lastSuccess.SetToCurrentTime()
	}
}

// Push sends every metric on the registry to the Pushgateway at url,
// replacing the group for job.
func (r *Recorder) Push(ctx context.Context, url, job string) error {
	if r == nil || url == "" {
		return nil
	}
	if err := push.New(url, job).Gatherer(r.registry).PushContext(ctx); err != nil {
		return fmt.Errorf("failed to push metrics to %s: %w", url, err)
	}
	return nil
}
