package metadata

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/plateful/ladle/internal/httpclient"
	"github.com/plateful/ladle/internal/source"
)

// TikTokFetcher uses the public oEmbed endpoint. Same degradation policy as
// Instagram: on failure the job proceeds with placeholder metadata.
type TikTokFetcher struct {
	httpClient *http.Client
}

func NewTikTokFetcher() *TikTokFetcher {
	return &TikTokFetcher{httpClient: httpclient.InstrumentedClient}
}

func (f *TikTokFetcher) Fetch(ctx context.Context, videoURL string) (*Metadata, error) {
	ctx = httpclient.WithProvider(ctx, "TikTok")

	meta, err := f.fetchOEmbed(ctx, videoURL)
	if err != nil {
		slog.Warn("TikTok oEmbed failed, using placeholder metadata", "error", err)
		return Placeholder(source.KindTikTok, videoURL, "TikTok"), nil
	}
	return meta, nil
}

func (f *TikTokFetcher) fetchOEmbed(ctx context.Context, videoURL string) (*Metadata, error) {
	endpoint := "https://www.tiktok.com/oembed?url=" + url.QueryEscape(videoURL)

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
		Platform:     source.KindTikTok,
		CanonicalURL: videoURL,
		Title:        body.Title,
		Description:  body.Title,
		Creator:      body.AuthorName,
		ThumbnailURL: body.ThumbnailURL,
		Hashtags:     ExtractHashtags(body.Title),
	}, nil
}
