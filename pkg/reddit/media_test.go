package reddit

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func previewOf(urls ...string) *Preview {
	p := &Preview{}
	for _, u := range urls {
		p.Images = append(p.Images, PreviewImage{Source: ImageSource{URL: u}})
	}
	return p
}

func TestExtractMediaURL(t *testing.T) {
	video := &Media{RedditVideo: &RedditVideo{FallbackURL: "https://v.redd.it/x/DASH_480.mp4"}}

	tests := []struct {
		name string
		data PostData
		want string
	}{
		{
			name: "video wins over preview and override",
			data: PostData{
				IsVideo:             true,
				Media:               video,
				Preview:             previewOf("https://preview.redd.it/x.jpg"),
				URLOverriddenByDest: "https://i.redd.it/x.png",
			},
			want: "https://v.redd.it/x/DASH_480.mp4",
		},
		{
			name: "video block ignored when not flagged as video",
			data: PostData{Media: video, Preview: previewOf("https://preview.redd.it/x.jpg")},
			want: "https://preview.redd.it/x.jpg",
		},
		{
			name: "video without fallback falls through",
			data: PostData{
				IsVideo:             true,
				Media:               &Media{RedditVideo: &RedditVideo{}},
				URLOverriddenByDest: "https://i.redd.it/x.gif",
			},
			want: "https://i.redd.it/x.gif",
		},
		{
			name: "first preview image is used and unescaped",
			data: PostData{Preview: previewOf(
				"https://preview.redd.it/a.jpg?width=1080&amp;format=pjpg",
				"https://preview.redd.it/b.jpg",
			)},
			want: "https://preview.redd.it/a.jpg?width=1080&format=pjpg",
		},
		{
			name: "preview wins over override",
			data: PostData{
				Preview:             previewOf("https://preview.redd.it/a.jpg"),
				URLOverriddenByDest: "https://i.redd.it/b.png",
			},
			want: "https://preview.redd.it/a.jpg",
		},
		{
			name: "empty preview image list falls through",
			data: PostData{Preview: &Preview{}, URLOverriddenByDest: "https://i.redd.it/b.mov"},
			want: "https://i.redd.it/b.mov",
		},
		{
			name: "override with jpeg extension",
			data: PostData{URLOverriddenByDest: "https://i.imgur.com/pic.jpeg"},
			want: "https://i.imgur.com/pic.jpeg",
		},
		{
			name: "override extension is case-insensitive",
			data: PostData{URLOverriddenByDest: "https://i.imgur.com/CLIP.MP4"},
			want: "https://i.imgur.com/CLIP.MP4",
		},
		{
			name: "override with unrecognized extension",
			data: PostData{URLOverriddenByDest: "https://i.imgur.com/anim.gifv"},
			want: "",
		},
		{
			name: "plain url is never considered",
			data: PostData{URL: "https://i.redd.it/x.png"},
			want: "",
		},
		{
			name: "no media signal",
			data: PostData{Title: "text post"},
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractMediaURL(tt.data))
		})
	}
}
