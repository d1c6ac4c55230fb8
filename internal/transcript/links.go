package transcript

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/plateful/ladle/internal/httpclient"
)

// maxCandidateLinks bounds how many description links are scraped when no
// transcript is available.
const maxCandidateLinks = 2

// linkDenylist holds domains that never host the actual recipe: social
// platforms, shorteners, marketplaces.
var linkDenylist = []string{
	"youtube.com",
	"youtu.be",
	"instagram.com",
	"tiktok.com",
	"facebook.com",
	"twitter.com",
	"x.com",
	"pinterest.com",
	"linktr.ee",
	"bit.ly",
	"t.co",
	"tinyurl.com",
	"amzn.to",
	"amazon.com",
	"etsy.com",
	"patreon.com",
	"discord.gg",
}

var linkPattern = regexp.MustCompile(`https?://[^\s<>"')\]]+`)

// ExtractRecipeLinks scans a video description for candidate recipe links,
// discarding denylisted domains and playlist URLs, capped at
// maxCandidateLinks.
func ExtractRecipeLinks(description string) []string {
	matches := linkPattern.FindAllString(description, -1)

	var links []string
	seen := make(map[string]bool)
	for _, raw := range matches {
		raw = strings.TrimRight(raw, ".,;")
		if seen[raw] {
			continue
		}
		seen[raw] = true

		u, err := url.Parse(raw)
		if err != nil || u.Host == "" {
			continue
		}
		if isDenylisted(u.Host) || isPlaylist(raw) {
			continue
		}

		links = append(links, raw)
		if len(links) == maxCandidateLinks {
			break
		}
	}
	return links
}

func isDenylisted(host string) bool {
	host = strings.ToLower(strings.TrimPrefix(host, "www."))
	for _, blocked := range linkDenylist {
		if host == blocked || strings.HasSuffix(host, "."+blocked) {
			return true
		}
	}
	return false
}

func isPlaylist(link string) bool {
	return strings.Contains(link, "list=") || strings.Contains(link, "/playlist")
}

// LinkedPageScraper fetches candidate recipe pages and reduces them to plain
// text usable as prompt context in place of a transcript.
type LinkedPageScraper struct {
	httpClient *http.Client
	textBudget int
}

func NewLinkedPageScraper(textBudget int) *LinkedPageScraper {
	return &LinkedPageScraper{
		httpClient: httpclient.InstrumentedClient,
		textBudget: textBudget,
	}
}

// ScrapeAll fetches each link, strips markup and concatenates the results.
// Individual link failures are logged and skipped.
func (s *LinkedPageScraper) ScrapeAll(ctx context.Context, links []string) string {
	var sections []string
	for _, link := range links {
		text, err := s.scrape(ctx, link)
		if err != nil {
			slog.Warn("Linked page scrape failed", "url", link, "error", err)
			continue
		}
		if text != "" {
			sections = append(sections, "Content from "+link+":\n"+text)
		}
	}
	return strings.Join(sections, "\n\n")
}

func (s *LinkedPageScraper) scrape(ctx context.Context, link string) (string, error) {
	ctx = httpclient.WithProvider(ctx, "LinkedPage")

	req, err := http.NewRequestWithContext(ctx, "GET", link, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", watchPageUserAgent)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	doc, err := goquery.NewDocumentFromReader(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return "", err
	}

	doc.Find("script, style, noscript, nav, footer").Remove()
	text := whitespacePattern.ReplaceAllString(doc.Text(), " ")
	text = strings.TrimSpace(text)

	if s.textBudget > 0 && len(text) > s.textBudget {
		text = text[:s.textBudget]
	}
	return text, nil
}
