package metadata

import (
	"context"
	"fmt"

	"github.com/plateful/ladle/internal/errors"
	"github.com/plateful/ladle/internal/source"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"
)

// YouTubeFetcher reads video snippets from the YouTube Data API. Unlike the
// other platforms there is no scrape fallback: a private or deleted video is
// fatal for the job.
type YouTubeFetcher struct {
	svc *youtube.Service
}

func NewYouTubeFetcher(ctx context.Context, apiKey string) (*YouTubeFetcher, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("YouTube API key is required")
	}
	svc, err := youtube.NewService(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create YouTube service: %w", err)
	}
	return &YouTubeFetcher{svc: svc}, nil
}

func (f *YouTubeFetcher) Fetch(ctx context.Context, videoID string) (*Metadata, error) {
	resp, err := f.svc.Videos.List([]string{"snippet"}).Id(videoID).Context(ctx).Do()
	if err != nil {
		return nil, errors.NewFetchError("YouTube metadata lookup failed", "YOUTUBE_METADATA_ERROR", err)
	}
	if len(resp.Items) == 0 {
		return nil, errors.NewFetchError("video not found or private", "YOUTUBE_VIDEO_NOT_FOUND", nil)
	}

	snippet := resp.Items[0].Snippet
	return &Metadata{
		Platform:     source.KindYouTube,
		CanonicalURL: "https://www.youtube.com/watch?v=" + videoID,
		Title:        snippet.Title,
		Description:  snippet.Description,
		Creator:      snippet.ChannelTitle,
		ThumbnailURL: bestThumbnail(snippet.Thumbnails),
		Hashtags:     ExtractHashtags(snippet.Description),
	}, nil
}

// bestThumbnail walks the resolution preference order and returns the first
// variant the video actually has.
func bestThumbnail(t *youtube.ThumbnailDetails) string {
	if t == nil {
		return ""
	}
	for _, candidate := range []*youtube.Thumbnail{t.Maxres, t.Standard, t.High, t.Medium, t.Default} {
		if candidate != nil && candidate.Url != "" {
			return candidate.Url
		}
	}
	return ""
}
