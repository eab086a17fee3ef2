package crawler

import (
	"mime"
	"net/url"
	"path"
	"strings"

	"socialcrawler/pkg/reddit"
)

// mediaTypeExtensions covers the types the platform reports in mimetype=
// query values. Anything else goes through the mime package.
var mediaTypeExtensions = map[string]string{
	"image/jpeg":      ".jpg",
	"image/jpg":       ".jpg",
	"image/png":       ".png",
	"image/gif":       ".gif",
	"image/webp":      ".webp",
	"video/mp4":       ".mp4",
	"video/quicktime": ".mov",
}

// JSONKey is where the raw record of post is archived
func JSONKey(post reddit.Post) string {
	return "json/" + post.Subreddit + "/" + post.ID + ".json"
}

// MediaKey is where the media bytes of post are cached. Slashes in the
// subreddit name are flattened so the key stays two levels deep.
func MediaKey(post reddit.Post) string {
	return "media/" + strings.ReplaceAll(post.Subreddit, "/", "_") + "/" + post.ID + MediaExtension(post.MediaURL)
}

// MediaExtension picks a file extension for a media URL: the suffix of
// the URL path, else the mimetype= query value, else ".bin".
func MediaExtension(mediaURL string) string {
	u, err := url.Parse(mediaURL)
	if err != nil {
		return ".bin"
	}

	if ext := pathSuffix(u.Path); ext != "" {
		return ext
	}

	if mt := u.Query().Get("mimetype"); mt != "" {
		if ext := extensionForType(mt); ext != "" {
			return ext
		}
	}

	return ".bin"
}

// pathSuffix returns the extension of the last path element. Dotfiles and
// names ending in a dot have none.
func pathSuffix(p string) string {
	base := path.Base(p)
	ext := path.Ext(base)
	if ext == "." || ext == base {
		return ""
	}
	return ext
}

func extensionForType(mediaType string) string {
	mt, _, err := mime.ParseMediaType(mediaType)
	if err != nil {
		mt = strings.ToLower(strings.TrimSpace(mediaType))
	}
	if ext, ok := mediaTypeExtensions[mt]; ok {
		return ext
	}
	exts, err := mime.ExtensionsByType(mt)
	if err != nil || len(exts) == 0 {
		return ""
	}
	return exts[0]
}
