package reddit

import (
	"net/url"
	"strconv"

	"socialcrawler/pkg/config"
)

// MaxPageSize is the largest page the listing endpoints return. Only one
// page is fetched per request.
const MaxPageSize = 100

// listingRequest is one search or listing call of a run's fan-out
type listingRequest struct {
	subreddit string // empty for site-wide search
	query     string // empty for a plain listing
	path      string
	params    url.Values
}

// planRequests expands the query configuration into the ordered request
// list: subreddits x queries for searches, one listing per subreddit
// otherwise.
func planRequests(q config.QueryConfig) []listingRequest {
	var reqs []listingRequest

	if len(q.Queries) > 0 {
		targets := q.Subreddits
		if len(targets) == 0 {
			targets = []string{""}
		}
		for _, sub := range targets {
			for _, query := range q.Queries {
				reqs = append(reqs, searchRequest(sub, query, q))
			}
		}
		return reqs
	}

	for _, sub := range q.Subreddits {
		reqs = append(reqs, subredditListing(sub, q))
	}
	return reqs
}

func searchRequest(subreddit, query string, q config.QueryConfig) listingRequest {
	path := "/search"
	if subreddit != "" {
		path = "/r/" + subreddit + "/search"
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("sort", q.Sort)
	params.Set("t", q.TimeFilter)
	params.Set("limit", strconv.Itoa(q.MaxPosts))
	params.Set("restrict_sr", strconv.FormatBool(subreddit != ""))
	params.Set("include_over_18", "true")

	return listingRequest{subreddit: subreddit, query: query, path: path, params: params}
}

func subredditListing(subreddit string, q config.QueryConfig) listingRequest {
	params := url.Values{}
	params.Set("limit", strconv.Itoa(q.MaxPosts))
	params.Set("t", q.TimeFilter)

	return listingRequest{
		subreddit: subreddit,
		path:      "/r/" + subreddit + "/" + q.Sort,
		params:    params,
	}
}
