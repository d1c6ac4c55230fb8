// Package metadata retrieves title/description/author/thumbnail context for
// submitted content, one adapter per platform. Adapters degrade differently:
// YouTube failures are fatal to the job, Instagram and TikTok fall back to a
// minimal placeholder so extraction can continue with reduced context.
package metadata

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"github.com/plateful/ladle/internal/source"
)

// Metadata is the ephemeral context snapshot for one piece of content. It is
// not persisted on its own; the worker snapshots it onto the completed
// import job for audit.
type Metadata struct {
	Platform     source.Kind `json:"platform"`
	CanonicalURL string      `json:"canonical_url"`
	Title        string      `json:"title"`
	Description  string      `json:"description"`
	Creator      string      `json:"creator"`
	ThumbnailURL string      `json:"thumbnail_url"`
	Hashtags     []string    `json:"hashtags"`
}

// Fetcher retrieves metadata for a platform content identifier.
type Fetcher interface {
	Fetch(ctx context.Context, contentID string) (*Metadata, error)
}

var hashtagPattern = regexp.MustCompile(`#\w+`)

// ExtractHashtags collects #tag tokens from free text, leading '#' stripped.
func ExtractHashtags(text string) []string {
	matches := hashtagPattern.FindAllString(text, -1)
	tags := make([]string, 0, len(matches))
	for _, m := range matches {
		tags = append(tags, strings.TrimPrefix(m, "#"))
	}
	return tags
}

// Placeholder returns the degraded-context fallback used when a platform's
// metadata endpoints are unreachable.
func Placeholder(kind source.Kind, canonicalURL, platformName string) *Metadata {
	return &Metadata{
		Platform:     kind,
		CanonicalURL: canonicalURL,
		Title:        platformName + " Video",
		Hashtags:     []string{},
	}
}

// metaContent extracts the content attribute of a <meta> tag identified by
// property= or name=. Tolerant regex on purpose: scraped pages are rarely
// well-formed enough for a strict parse, and attribute order varies.
func metaContent(html, property string) string {
	quoted := regexp.QuoteMeta(property)
	patterns := []*regexp.Regexp{
		regexp.MustCompile(`(?is)<meta[^>]+(?:property|name)=["']` + quoted + `["'][^>]*content=["']([^"']*)["']`),
		regexp.MustCompile(`(?is)<meta[^>]+content=["']([^"']*)["'][^>]*(?:property|name)=["']` + quoted + `["']`),
	}
	for _, re := range patterns {
		if m := re.FindStringSubmatch(html); len(m) == 2 {
			return decodeEntities(strings.TrimSpace(m[1]))
		}
	}
	return ""
}

var titleTagPattern = regexp.MustCompile(`(?is)<title[^>]*>(.*?)</title>`)

func titleTag(html string) string {
	if m := titleTagPattern.FindStringSubmatch(html); len(m) == 2 {
		return decodeEntities(strings.TrimSpace(m[1]))
	}
	return ""
}

var (
	decEntityPattern = regexp.MustCompile(`&#(\d+);`)
	hexEntityPattern = regexp.MustCompile(`&#x([0-9a-fA-F]+);`)
	namedEntities    = strings.NewReplacer(
		"&amp;", "&",
		"&lt;", "<",
		"&gt;", ">",
		"&quot;", `"`,
		"&apos;", "'",
		"&#39;", "'",
		"&nbsp;", " ",
	)
)

// decodeEntities resolves the handful of HTML entities that actually show up
// in scraped metadata, plus numeric references.
func decodeEntities(s string) string {
	s = decEntityPattern.ReplaceAllStringFunc(s, func(m string) string {
		code, err := strconv.Atoi(decEntityPattern.FindStringSubmatch(m)[1])
		if err != nil || code <= 0 {
			return m
		}
		return string(rune(code))
	})
	s = hexEntityPattern.ReplaceAllStringFunc(s, func(m string) string {
		code, err := strconv.ParseInt(hexEntityPattern.FindStringSubmatch(m)[1], 16, 32)
		if err != nil || code <= 0 {
			return m
		}
		return string(rune(code))
	})
	return namedEntities.Replace(s)
}
