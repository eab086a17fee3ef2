package crawler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"socialcrawler/pkg/reddit"
)

func TestKeys(t *testing.T) {
	post := reddit.Post{ID: "abc", Subreddit: "pics", MediaURL: "https://i.redd.it/abc.png"}
	assert.Equal(t, "json/pics/abc.json", JSONKey(post))
	assert.Equal(t, "media/pics/abc.png", MediaKey(post))

	nested := reddit.Post{ID: "xyz", Subreddit: "u/someone", MediaURL: "https://v.redd.it/xyz/DASH_720.mp4?source=fallback"}
	assert.Equal(t, "json/u/someone/xyz.json", JSONKey(nested))
	assert.Equal(t, "media/u_someone/xyz.mp4", MediaKey(nested))
}

func TestMediaExtension(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"https://i.redd.it/abc.jpeg", ".jpeg"},
		{"https://i.redd.it/abc.JPG", ".JPG"},
		{"https://preview.redd.it/abc.png?width=640&s=sig", ".png"},
		{"https://v.redd.it/abc/DASH_720.mp4?source=fallback", ".mp4"},
		{"https://i.redd.it/abc?mimetype=image/jpeg", ".jpg"},
		{"https://i.redd.it/abc?x=1&mimetype=video%2Fmp4", ".mp4"},
		{"https://i.redd.it/abc?mimetype=video/quicktime", ".mov"},
		{"https://i.redd.it/abc?mimetype=image/webp", ".webp"},
		{"https://i.redd.it/abc?mimetype=application/x-nothing", ".bin"},
		{"https://i.redd.it/abc", ".bin"},
		{"https://i.redd.it/.hidden", ".bin"},
		{"https://i.redd.it/trailing.", ".bin"},
		{"https://i.redd.it/", ".bin"},
		{"://broken", ".bin"},
		{"", ".bin"},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			assert.Equal(t, tt.want, MediaExtension(tt.url))
		})
	}
}
