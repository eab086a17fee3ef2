package reddit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"socialcrawler/pkg/config"
)

func TestPlanRequestsSearchCrossProduct(t *testing.T) {
	reqs := planRequests(config.QueryConfig{
		Queries:    []string{"q1", "q2", "q3"},
		Subreddits: []string{"python", "golang"},
		Sort:       "relevance",
		TimeFilter: "month",
		MaxPosts:   10,
	})

	require.Len(t, reqs, 6)
	var got []string
	for _, r := range reqs {
		got = append(got, r.subreddit+":"+r.query)
		assert.Equal(t, "/r/"+r.subreddit+"/search", r.path)
		assert.Equal(t, "true", r.params.Get("restrict_sr"))
		assert.Equal(t, "relevance", r.params.Get("sort"))
		assert.Equal(t, "month", r.params.Get("t"))
	}
	assert.Equal(t, []string{
		"python:q1", "python:q2", "python:q3",
		"golang:q1", "golang:q2", "golang:q3",
	}, got)
}

func TestPlanRequestsSiteWide(t *testing.T) {
	reqs := planRequests(config.QueryConfig{Queries: []string{"golang"}, Sort: "new", TimeFilter: "all", MaxPosts: 5})

	require.Len(t, reqs, 1)
	assert.Equal(t, "/search", reqs[0].path)
	assert.Equal(t, "false", reqs[0].params.Get("restrict_sr"))
	assert.Equal(t, "true", reqs[0].params.Get("include_over_18"))
	assert.Equal(t, "5", reqs[0].params.Get("limit"))
}

func TestPlanRequestsListing(t *testing.T) {
	reqs := planRequests(config.QueryConfig{Subreddits: []string{"a", "b"}, Sort: "top", TimeFilter: "year", MaxPosts: 7})

	require.Len(t, reqs, 2)
	assert.Equal(t, "/r/a/top", reqs[0].path)
	assert.Equal(t, "/r/b/top", reqs[1].path)
	assert.Equal(t, "year", reqs[0].params.Get("t"))
	assert.Equal(t, "7", reqs[0].params.Get("limit"))
	assert.False(t, reqs[0].params.Has("restrict_sr"))
}

func TestPlanRequestsEmpty(t *testing.T) {
	assert.Empty(t, planRequests(config.QueryConfig{}))
}
