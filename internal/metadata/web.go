package metadata

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/plateful/ladle/internal/errors"
	"github.com/plateful/ladle/internal/httpclient"
	"github.com/plateful/ladle/internal/source"
)

// WebFetcher fetches an arbitrary page and pulls Open Graph fields out of
// the raw HTML. The HTML itself is returned alongside the metadata: for
// generic web imports the model gets the full page as context.
type WebFetcher struct {
	httpClient *http.Client
}

func NewWebFetcher() *WebFetcher {
	return &WebFetcher{httpClient: httpclient.InstrumentedClient}
}

// Fetch retrieves pageURL and extracts metadata. A non-2xx response or
// transport error is fatal for the job.
func (f *WebFetcher) Fetch(ctx context.Context, pageURL string) (*Metadata, string, error) {
	ctx = httpclient.WithProvider(ctx, "Web")

	req, err := http.NewRequestWithContext(ctx, "GET", pageURL, nil)
	if err != nil {
		return nil, "", errors.NewFetchError("invalid page URL", "WEB_FETCH_ERROR", err)
	}
	req.Header.Set("User-Agent", browserUserAgent)

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, "", errors.NewFetchError("page fetch failed", "WEB_FETCH_ERROR", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, "", errors.NewFetchError(
			fmt.Sprintf("page fetch returned status %d", resp.StatusCode), "WEB_FETCH_ERROR", nil)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, "", errors.NewFetchError("failed to read page body", "WEB_FETCH_ERROR", err)
	}
	html := string(data)

	title := metaContent(html, "og:title")
	if title == "" {
		title = titleTag(html)
	}

	siteName := metaContent(html, "og:site_name")
	if siteName == "" {
		if u, err := url.Parse(pageURL); err == nil {
			siteName = u.Hostname()
		}
	}

	meta := &Metadata{
		Platform:     source.KindWeb,
		CanonicalURL: pageURL,
		Title:        title,
		Description:  metaContent(html, "og:description"),
		Creator:      siteName,
		ThumbnailURL: metaContent(html, "og:image"),
		Hashtags:     []string{},
	}
	return meta, html, nil
}
