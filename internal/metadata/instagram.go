package metadata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"time"

	"github.com/plateful/ladle/internal/httpclient"
	"github.com/plateful/ladle/internal/source"
)

// browserUserAgent makes the OG-tag scrape look like a regular browser visit.
// Instagram serves a bot-challenge page to unknown agents.
const browserUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"

const instagramCacheTTL = 1 * time.Hour

// InstagramFetcher prefers the authenticated oEmbed endpoint when an access
// token is configured and falls back to scraping the public page's Open
// Graph tags. If both fail it returns a placeholder rather than failing the
// job; extraction continues with degraded context.
type InstagramFetcher struct {
	accessToken string
	httpClient  *http.Client
	cache       *Cache
}

func NewInstagramFetcher(accessToken string, cache *Cache) *InstagramFetcher {
	return &InstagramFetcher{
		accessToken: accessToken,
		httpClient:  httpclient.InstrumentedClient,
		cache:       cache,
	}
}

func (f *InstagramFetcher) Fetch(ctx context.Context, postURL string) (*Metadata, error) {
	ctx = httpclient.WithProvider(ctx, "Instagram")

	if cached := f.cache.Get(ctx, postURL); cached != nil {
		return cached, nil
	}

	if f.accessToken != "" {
		if meta, err := f.fetchOEmbed(ctx, postURL); err == nil {
			f.cache.Set(ctx, postURL, meta, instagramCacheTTL)
			return meta, nil
		} else {
			slog.Warn("Instagram oEmbed failed, falling back to OG scrape", "error", err)
		}
	}

	if meta, err := f.scrapeOpenGraph(ctx, postURL); err == nil {
		f.cache.Set(ctx, postURL, meta, instagramCacheTTL)
		return meta, nil
	} else {
		slog.Warn("Instagram OG scrape failed, using placeholder metadata", "error", err)
	}

	return Placeholder(source.KindInstagram, postURL, "Instagram"), nil
}

func (f *InstagramFetcher) fetchOEmbed(ctx context.Context, postURL string) (*Metadata, error) {
	endpoint := fmt.Sprintf("https://graph.facebook.com/v19.0/instagram_oembed?url=%s&access_token=%s",
		url.QueryEscape(postURL), url.QueryEscape(f.accessToken))

	req, err := http.NewRequestWithContext(ctx, "GET", endpoint, nil)
	if err != nil {
		return nil, err
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("oEmbed returned status %d", resp.StatusCode)
	}

	var body struct {
		Title        string `json:"title"`
		AuthorName   string `json:"author_name"`
		ThumbnailURL string `json:"thumbnail_url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, err
	}

	return &Metadata{
		Platform:     source.KindInstagram,
		CanonicalURL: postURL,
		Title:        body.Title,
		Description:  body.Title,
		Creator:      body.AuthorName,
		ThumbnailURL: body.ThumbnailURL,
		Hashtags:     ExtractHashtags(body.Title),
	}, nil
}

func (f *InstagramFetcher) scrapeOpenGraph(ctx context.Context, postURL string) (*Metadata, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", postURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", browserUserAgent)

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("page fetch returned status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, 2<<20))
	if err != nil {
		return nil, err
	}
	html := string(data)

	description := metaContent(html, "og:description")
	creator, caption := StripCaptionWrapper(description)
	if caption == "" {
		caption = description
	}

	title := metaContent(html, "og:title")
	if title == "" {
		title = titleTag(html)
	}
	if title == "" && caption == "" {
		return nil, fmt.Errorf("no Open Graph data found")
	}

	return &Metadata{
		Platform:     source.KindInstagram,
		CanonicalURL: postURL,
		Title:        title,
		Description:  caption,
		Creator:      creator,
		ThumbnailURL: metaContent(html, "og:image"),
		Hashtags:     ExtractHashtags(caption),
	}, nil
}

// captionWrapperPattern matches Instagram's og:description framing:
// `<likes>, <comments> - <creator> on Instagram: "<caption>"`.
var captionWrapperPattern = regexp.MustCompile(`(?s)^[\d.,KM]+ [Ll]ikes?, [\d.,KM]+ [Cc]omments? - ([\w.]+) on Instagram: [“"](.*)[”"]\s*$`)

// StripCaptionWrapper removes the likes/comments framing Instagram puts
// around the real caption. Returns empty strings when the wrapper is absent.
func StripCaptionWrapper(description string) (creator, caption string) {
	if m := captionWrapperPattern.FindStringSubmatch(description); len(m) == 3 {
		return m[1], m[2]
	}
	return "", ""
}
