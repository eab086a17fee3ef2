package reddit

import (
	"html"
	"strings"
)

var mediaExtensions = []string{".jpg", ".jpeg", ".png", ".gif", ".mp4", ".mov"}

// ExtractMediaURL resolves the media URL of a record, first match wins:
// hosted video fallback, first preview image, then an overridden
// destination URL ending in a known media extension. Returns "" when
// none apply.
func ExtractMediaURL(d PostData) string {
	if d.IsVideo && d.Media != nil && d.Media.RedditVideo != nil && d.Media.RedditVideo.FallbackURL != "" {
		return d.Media.RedditVideo.FallbackURL
	}

	// a preview image wins even when its source URL is missing
	if d.Preview != nil && len(d.Preview.Images) > 0 {
		return html.UnescapeString(d.Preview.Images[0].Source.URL)
	}

	if u := d.URLOverriddenByDest; u != "" && hasMediaExtension(u) {
		return u
	}

	return ""
}

func hasMediaExtension(u string) bool {
	lower := strings.ToLower(u)
	for _, ext := range mediaExtensions {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}
