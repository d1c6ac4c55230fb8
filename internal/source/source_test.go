package source

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		url  string
		want Kind
	}{
		{"youtube watch", "https://www.youtube.com/watch?v=dQw4w9WgXcQ", KindYouTube},
		{"youtube short link", "https://youtu.be/dQw4w9WgXcQ", KindYouTube},
		{"youtube shorts", "https://youtube.com/shorts/abc123def45", KindYouTube},
		{"youtube music subdomain", "https://music.youtube.com/watch?v=dQw4w9WgXcQ", KindYouTube},
		{"instagram reel", "https://www.instagram.com/reel/Cxyz123/", KindInstagram},
		{"tiktok video", "https://www.tiktok.com/@cook/video/7283945610", KindTikTok},
		{"generic blog", "https://www.seriouseats.com/classic-carbonara", KindWeb},
		{"unknown scheme", "ftp://example.com/recipe", KindUnknown},
		{"not a url", "carbonara recipe", KindUnknown},
		{"empty", "", KindUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.url))
		})
	}
}

func TestExtractContentID(t *testing.T) {
	tests := []struct {
		name   string
		url    string
		kind   Kind
		want   string
		wantOK bool
	}{
		{"youtube watch param", "https://www.youtube.com/watch?v=dQw4w9WgXcQ", KindYouTube, "dQw4w9WgXcQ", true},
		{"youtube watch extra params", "https://www.youtube.com/watch?t=10&v=dQw4w9WgXcQ", KindYouTube, "dQw4w9WgXcQ", true},
		{"youtu.be path", "https://youtu.be/dQw4w9WgXcQ", KindYouTube, "dQw4w9WgXcQ", true},
		{"youtube shorts", "https://www.youtube.com/shorts/abc123def45", KindYouTube, "abc123def45", true},
		{"youtube embed", "https://www.youtube.com/embed/dQw4w9WgXcQ", KindYouTube, "dQw4w9WgXcQ", true},
		{"youtube channel page", "https://www.youtube.com/@somechef", KindYouTube, "", false},
		{"instagram reel", "https://www.instagram.com/reel/CxYz-12_ab/", KindInstagram, "CxYz-12_ab", true},
		{"instagram post", "https://www.instagram.com/p/CxYz12ab/", KindInstagram, "CxYz12ab", true},
		{"instagram profile", "https://www.instagram.com/somechef/", KindInstagram, "", false},
		{"tiktok video", "https://www.tiktok.com/@cook/video/7283945610123456789", KindTikTok, "7283945610123456789", true},
		{"tiktok profile", "https://www.tiktok.com/@cook", KindTikTok, "", false},
		{"web passthrough", "https://example.com/best-soup", KindWeb, "https://example.com/best-soup", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ExtractContentID(tt.url, tt.kind)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestKindIsVideo(t *testing.T) {
	assert.True(t, KindYouTube.IsVideo())
	assert.True(t, KindInstagram.IsVideo())
	assert.True(t, KindTikTok.IsVideo())
	assert.False(t, KindWeb.IsVideo())
	assert.False(t, KindImage.IsVideo())
}
