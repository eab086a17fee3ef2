package reddit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"iter"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"socialcrawler/pkg/config"
	errs "socialcrawler/pkg/errors"
	"socialcrawler/pkg/logger"
	"socialcrawler/pkg/ratelimit"
)

// Client talks to the platform API. It owns its token cache; a Client is
// meant to be driven by one goroutine at a time.
type Client struct {
	httpClient *http.Client
	oauth      *oauth2.Config
	creds      Credentials
	apiBase    string
	webBase    string
	limiter    ratelimit.Limiter
	logger     logger.Logger
	now        func() time.Time

	mu    sync.Mutex
	token accessToken
}

// Option customizes a Client
type Option func(*Client)

// WithClock replaces the clock used for token expiry checks
func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

// WithLimiter replaces the request pacer
func WithLimiter(l ratelimit.Limiter) Option {
	return func(c *Client) { c.limiter = l }
}

// WithTransport replaces the underlying round tripper. The User-Agent
// header is still applied on top of it.
func WithTransport(rt http.RoundTripper) Option {
	return func(c *Client) {
		c.httpClient.Transport = &userAgentTransport{base: rt, userAgent: c.creds.UserAgent}
	}
}

// NewClient creates a platform API client. No network activity happens
// until the first authenticated call.
func NewClient(creds Credentials, cfg config.RedditConfig, log logger.Logger, opts ...Option) *Client {
	log = logger.OrGlobal(log)

	c := &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
			Transport: &userAgentTransport{
				base:      http.DefaultTransport.(*http.Transport).Clone(),
				userAgent: creds.UserAgent,
			},
		},
		oauth: &oauth2.Config{
			ClientID:     creds.ClientID,
			ClientSecret: creds.ClientSecret,
			Endpoint: oauth2.Endpoint{
				TokenURL:  cfg.TokenURL,
				AuthStyle: oauth2.AuthStyleInHeader,
			},
		},
		creds:   creds,
		apiBase: strings.TrimRight(cfg.APIBase, "/"),
		webBase: strings.TrimRight(cfg.WebBase, "/"),
		limiter: ratelimit.PerMinute(cfg.RequestsPerMinute),
		logger:  log.WithField("component", "reddit"),
		now:     time.Now,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// List lazily yields the posts for q. Requests are issued one at a time as
// the sequence is consumed. The first failure is yielded as the final
// element and stops the sequence.
func (c *Client) List(ctx context.Context, q config.QueryConfig) iter.Seq2[Post, error] {
	return func(yield func(Post, error) bool) {
		if q.MaxPosts > MaxPageSize {
			c.logger.WarnWithFields("max posts exceeds one page; results are truncated to a single page", map[string]interface{}{
				"max_posts": q.MaxPosts,
				"page_size": MaxPageSize,
			})
		}

		for _, req := range planRequests(q) {
			posts, err := c.fetchListing(ctx, req)
			if err != nil {
				yield(Post{}, err)
				return
			}
			for _, p := range posts {
				if !yield(p, nil) {
					return
				}
			}
		}
	}
}

// Close releases idle connections held by the client
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

func (c *Client) fetchListing(ctx context.Context, lr listingRequest) ([]Post, error) {
	token, err := c.bearerToken(ctx)
	if err != nil {
		return nil, err
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, errs.NewListingError(0, "waiting for rate limiter", err)
	}

	endpoint := c.apiBase + lr.path + "?" + lr.params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, errs.NewListingError(0, "failed to create request", err)
	}
	req.Header.Set("Authorization", "bearer "+token)

	body, err := c.doRequest(req)
	if err != nil {
		return nil, err
	}

	posts, err := c.parseListing(body)
	if err != nil {
		c.logger.ErrorWithFields("failed to parse listing", map[string]interface{}{
			"path":         lr.path,
			"error":        err.Error(),
			"body_preview": preview(body),
		})
		return nil, err
	}

	c.logger.DebugWithFields("listing fetched", map[string]interface{}{
		"path":      lr.path,
		"subreddit": lr.subreddit,
		"query":     lr.query,
		"posts":     len(posts),
	})

	return posts, nil
}

// doRequest sends an API request and returns the body of a 2xx response
func (c *Client) doRequest(req *http.Request) ([]byte, error) {
	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.ErrorWithFields("HTTP request failed", map[string]interface{}{
			"method": req.Method,
			"url":    req.URL.String(),
			"error":  err.Error(),
		})
		return nil, errs.NewListingError(0, fmt.Sprintf("%s %s", req.Method, req.URL.Path), err)
	}
	defer resp.Body.Close()

	logger.LogRequest(c.logger, req.Method, req.URL.String(), resp.StatusCode,
		float64(time.Since(start).Microseconds())/1000)

	if err := checkResponseStatus(resp); err != nil {
		return nil, err
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errs.NewListingError(resp.StatusCode, "failed to read response body", err)
	}
	return body, nil
}

// checkResponseStatus maps any non-2xx listing response to a ListingError
func checkResponseStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	msg := fmt.Sprintf("%s %s", resp.Request.Method, resp.Request.URL.Path)
	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		msg += ": not authorized"
	case http.StatusNotFound:
		msg += ": not found"
	case http.StatusTooManyRequests:
		msg += ": rate limit exceeded"
	default:
		msg += ": " + http.StatusText(resp.StatusCode)
	}
	return errs.NewListingError(resp.StatusCode, msg, nil)
}

type listingResponse struct {
	Data struct {
		Children []struct {
			Kind string          `json:"kind"`
			Data json.RawMessage `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

func (c *Client) parseListing(body []byte) ([]Post, error) {
	var listing listingResponse
	if err := json.Unmarshal(body, &listing); err != nil {
		return nil, errs.New(errs.ErrorTypeParsing, 0, "failed to decode listing", err)
	}

	posts := make([]Post, 0, len(listing.Data.Children))
	for _, child := range listing.Data.Children {
		post, err := c.normalize(child.Data)
		if err != nil {
			return nil, err
		}
		posts = append(posts, post)
	}
	return posts, nil
}

// normalize flattens one record into a Post, keeping the raw record with
// its numbers as they were sent.
func (c *Client) normalize(data json.RawMessage) (Post, error) {
	var d PostData
	raw := map[string]any{}

	if len(data) > 0 && !bytes.Equal(data, []byte("null")) {
		if err := json.Unmarshal(data, &d); err != nil {
			return Post{}, errs.New(errs.ErrorTypeParsing, 0, "failed to decode post", err)
		}
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.UseNumber()
		if err := dec.Decode(&raw); err != nil {
			return Post{}, errs.New(errs.ErrorTypeParsing, 0, "failed to decode raw post", err)
		}
	}

	u := d.URLOverriddenByDest
	if u == "" {
		u = d.URL
	}

	return Post{
		ID:         d.ID,
		Title:      d.Title,
		Subreddit:  d.Subreddit,
		Author:     d.Author,
		Permalink:  c.webBase + d.Permalink,
		URL:        u,
		CreatedUTC: d.CreatedUTC,
		MediaURL:   ExtractMediaURL(d),
		Raw:        raw,
	}, nil
}

func preview(body []byte) string {
	s := string(body)
	if len(s) > 200 {
		s = s[:200] + "..."
	}
	return s
}

// userAgentTransport sets the configured User-Agent on every request,
// including the token exchange.
type userAgentTransport struct {
	base      http.RoundTripper
	userAgent string
}

func (t *userAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	r := req.Clone(req.Context())
	r.Header.Set("User-Agent", t.userAgent)
	return t.base.RoundTrip(r)
}

// CloseIdleConnections lets http.Client.CloseIdleConnections reach the
// wrapped transport.
func (t *userAgentTransport) CloseIdleConnections() {
	type closeIdler interface{ CloseIdleConnections() }
	if ci, ok := t.base.(closeIdler); ok {
		ci.CloseIdleConnections()
	}
}
