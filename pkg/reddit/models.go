package reddit

// Credentials are the five fields needed to obtain a password-grant token
type Credentials struct {
	ClientID     string
	ClientSecret string
	Username     string
	Password     string
	UserAgent    string
}

// Post is one normalized content item. MediaURL is empty when the record
// carries no media signal. Raw is the unmodified record as returned.
type Post struct {
	ID         string
	Title      string
	Subreddit  string
	Author     string
	Permalink  string
	URL        string
	CreatedUTC float64
	MediaURL   string
	Raw        map[string]any
}

// PostData is the subset of a listing child's "data" object the client reads
type PostData struct {
	ID                  string   `json:"id"`
	Title               string   `json:"title"`
	Subreddit           string   `json:"subreddit"`
	Author              string   `json:"author"`
	Permalink           string   `json:"permalink"`
	URL                 string   `json:"url"`
	URLOverriddenByDest string   `json:"url_overridden_by_dest"`
	CreatedUTC          float64  `json:"created_utc"`
	IsVideo             bool     `json:"is_video"`
	Media               *Media   `json:"media"`
	Preview             *Preview `json:"preview"`
}

// Media wraps the platform-hosted video block
type Media struct {
	RedditVideo *RedditVideo `json:"reddit_video"`
}

// RedditVideo holds the progressive download URL of a hosted video
type RedditVideo struct {
	FallbackURL string `json:"fallback_url"`
}

// Preview holds generated preview images
type Preview struct {
	Images []PreviewImage `json:"images"`
}

// PreviewImage is one preview entry; only the full-size source is used
type PreviewImage struct {
	Source ImageSource `json:"source"`
}

// ImageSource is the full-size preview rendition
type ImageSource struct {
	URL string `json:"url"`
}
