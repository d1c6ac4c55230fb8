// Package transcript acquires long-form text context for extraction:
// YouTube captions, pages linked from video descriptions, or raw page HTML.
// A missing transcript is degraded context, never a job failure.
package transcript

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"

	"github.com/plateful/ladle/internal/httpclient"
)

// ErrNoTranscript means the video simply has no usable captions.
var ErrNoTranscript = errors.New("no usable transcript")

// ErrBotChallenge means YouTube served a consent wall or CAPTCHA instead of
// the watch page. Logged for diagnostics, surfaced to callers as absence.
var ErrBotChallenge = errors.New("watch page blocked by bot challenge")

// minTranscriptLength is the floor below which joined caption text is
// treated as absent rather than as a transcript.
const minTranscriptLength = 50

const watchPageUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"

// CaptionFetcher retrieves caption text for YouTube videos by scraping the
// watch page for embedded caption-track URLs.
type CaptionFetcher struct {
	httpClient *http.Client
}

func NewCaptionFetcher() *CaptionFetcher {
	return &CaptionFetcher{httpClient: httpclient.InstrumentedClient}
}

// Transcript fetches and joins the caption text for a video. Returns
// ErrNoTranscript when captions are absent or too short, ErrBotChallenge
// when the page is a consent/CAPTCHA wall.
func (f *CaptionFetcher) Transcript(ctx context.Context, videoID string) (string, error) {
	ctx = httpclient.WithProvider(ctx, "YouTube")

	html, err := f.get(ctx, "https://www.youtube.com/watch?v="+videoID)
	if err != nil {
		return "", err
	}

	if isBotChallenge(html) {
		return "", ErrBotChallenge
	}

	tracks := findCaptionTracks(html)
	track := selectTrack(tracks)
	if track == nil {
		return "", ErrNoTranscript
	}

	timedText, err := f.get(ctx, track.BaseURL)
	if err != nil {
		return "", err
	}

	text := parseTimedText(timedText)
	if len(text) < minTranscriptLength {
		return "", ErrNoTranscript
	}
	return text, nil
}

func (f *CaptionFetcher) get(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", watchPageUserAgent)
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch returned status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return "", err
	}
	return string(data), nil
}

var botChallengeMarkers = []string{
	"consent.youtube.com",
	"g-recaptcha",
	"captcha-page",
	"unusual traffic",
}

func isBotChallenge(html string) bool {
	for _, marker := range botChallengeMarkers {
		if strings.Contains(html, marker) {
			return true
		}
	}
	return false
}

var (
	timedTextPattern  = regexp.MustCompile(`(?s)<text[^>]*>(.*?)</text>`)
	whitespacePattern = regexp.MustCompile(`\s+`)
)

// parseTimedText extracts the caption bodies from timed-text XML, decodes
// entities and joins them with single spaces.
func parseTimedText(xml string) string {
	matches := timedTextPattern.FindAllStringSubmatch(xml, -1)
	parts := make([]string, 0, len(matches))
	for _, m := range matches {
		body := decodeXMLEntities(m[1])
		body = strings.TrimSpace(body)
		if body != "" {
			parts = append(parts, body)
		}
	}
	joined := strings.Join(parts, " ")
	return strings.TrimSpace(whitespacePattern.ReplaceAllString(joined, " "))
}

var xmlEntities = strings.NewReplacer(
	"&amp;#39;", "'",
	"&amp;quot;", `"`,
	"&amp;", "&",
	"&lt;", "<",
	"&gt;", ">",
	"&quot;", `"`,
	"&#39;", "'",
	"&apos;", "'",
)

func decodeXMLEntities(s string) string {
	return xmlEntities.Replace(s)
}
