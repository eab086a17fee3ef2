package downloader

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"socialcrawler/pkg/config"
	errs "socialcrawler/pkg/errors"
	"socialcrawler/pkg/logger"
)

// Fetcher downloads media bytes with a plain GET. Redirects are followed by
// the HTTP client. No credentials are attached.
type Fetcher struct {
	httpClient *http.Client
	userAgent  string
	maxBytes   int64
	logger     logger.Logger
}

// NewFetcher creates a media fetcher. A zero MaxBytes means no size cap.
func NewFetcher(cfg config.MediaConfig, userAgent string, log logger.Logger) *Fetcher {
	return &Fetcher{
		httpClient: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: http.DefaultTransport.(*http.Transport).Clone(),
		},
		userAgent: userAgent,
		maxBytes:  cfg.MaxBytes,
		logger:    logger.OrGlobal(log).WithField("component", "downloader"),
	}
}

// Fetch returns the full body of a 2xx response. Any other status, a
// transport failure, or a body over the size cap is a MediaFetchError.
func (f *Fetcher) Fetch(ctx context.Context, mediaURL string) ([]byte, error) {
	f.logger.DebugWithFields("downloading media", map[string]interface{}{
		"url": mediaURL,
	})

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, mediaURL, nil)
	if err != nil {
		return nil, errs.NewMediaFetchError(0, "invalid media url "+mediaURL, err)
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}

	start := time.Now()
	resp, err := f.httpClient.Do(req)
	if err != nil {
		f.logger.ErrorWithFields("failed to download media", map[string]interface{}{
			"url":   mediaURL,
			"error": err.Error(),
		})
		return nil, errs.NewMediaFetchError(0, "GET "+mediaURL, err)
	}
	defer resp.Body.Close()

	logger.LogRequest(f.logger, req.Method, mediaURL, resp.StatusCode,
		float64(time.Since(start).Microseconds())/1000)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, errs.NewMediaFetchError(resp.StatusCode,
			fmt.Sprintf("GET %s: %s", mediaURL, http.StatusText(resp.StatusCode)), nil)
	}

	data, err := f.readBody(resp.Body)
	if err != nil {
		f.logger.ErrorWithFields("failed to read media data", map[string]interface{}{
			"url":   mediaURL,
			"error": err.Error(),
		})
		return nil, errs.NewMediaFetchError(resp.StatusCode, "failed to read "+mediaURL, err)
	}

	f.logger.DebugWithFields("successfully downloaded media", map[string]interface{}{
		"url":  mediaURL,
		"size": len(data),
	})

	return data, nil
}

func (f *Fetcher) readBody(r io.Reader) ([]byte, error) {
	if f.maxBytes <= 0 {
		return io.ReadAll(r)
	}

	data, err := io.ReadAll(io.LimitReader(r, f.maxBytes+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > f.maxBytes {
		return nil, fmt.Errorf("body exceeds %d bytes", f.maxBytes)
	}
	return data, nil
}

// Close releases idle connections
func (f *Fetcher) Close() error {
	f.httpClient.CloseIdleConnections()
	return nil
}
