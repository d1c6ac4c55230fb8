// Package source classifies submitted content references and extracts
// platform-specific content identifiers. Pure string processing, no I/O.
package source

import (
	"net/url"
	"regexp"
	"strings"
)

// Kind is the origin classification of submitted content.
type Kind string

const (
	KindYouTube   Kind = "video-youtube"
	KindInstagram Kind = "video-instagram"
	KindTikTok    Kind = "video-tiktok"
	KindWeb       Kind = "web"
	KindImage     Kind = "image"
	KindUnknown   Kind = "unknown"
)

// IsVideo reports whether the kind is a video platform.
func (k Kind) IsVideo() bool {
	switch k {
	case KindYouTube, KindInstagram, KindTikTok:
		return true
	}
	return false
}

var (
	youtubeIDPatterns = []*regexp.Regexp{
		regexp.MustCompile(`[?&]v=([A-Za-z0-9_-]{6,})`),
		regexp.MustCompile(`youtu\.be/([A-Za-z0-9_-]{6,})`),
		regexp.MustCompile(`/shorts/([A-Za-z0-9_-]{6,})`),
		regexp.MustCompile(`/embed/([A-Za-z0-9_-]{6,})`),
	}
	instagramIDPattern = regexp.MustCompile(`instagram\.com/(?:[A-Za-z0-9_.]+/)?(?:p|reels?)/([A-Za-z0-9_-]+)`)
	tiktokIDPattern    = regexp.MustCompile(`tiktok\.com/.*/video/(\d+)`)
)

// Classify determines the source platform for a raw URL. Anything that parses
// as an http(s) URL but matches no known platform is generic web content.
func Classify(rawURL string) Kind {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return KindUnknown
	}

	host := strings.ToLower(u.Host)
	host = strings.TrimPrefix(host, "www.")

	switch {
	case host == "youtu.be" || host == "youtube.com" || strings.HasSuffix(host, ".youtube.com"):
		return KindYouTube
	case host == "instagram.com" || strings.HasSuffix(host, ".instagram.com"):
		return KindInstagram
	case host == "tiktok.com" || strings.HasSuffix(host, ".tiktok.com"):
		return KindTikTok
	}
	return KindWeb
}

// ExtractContentID pulls the platform content identifier out of a URL. For
// generic web content the canonical URL itself is the identifier. Returns
// false when the URL does not match the expected shape for its platform,
// which is a hard failure for the job.
func ExtractContentID(rawURL string, kind Kind) (string, bool) {
	switch kind {
	case KindYouTube:
		for _, re := range youtubeIDPatterns {
			if m := re.FindStringSubmatch(rawURL); len(m) == 2 {
				return m[1], true
			}
		}
		return "", false
	case KindInstagram:
		if m := instagramIDPattern.FindStringSubmatch(rawURL); len(m) == 2 {
			return m[1], true
		}
		return "", false
	case KindTikTok:
		if m := tiktokIDPattern.FindStringSubmatch(rawURL); len(m) == 2 {
			return m[1], true
		}
		return "", false
	case KindWeb, KindImage:
		if strings.TrimSpace(rawURL) == "" {
			return "", false
		}
		return rawURL, true
	}
	return "", false
}
