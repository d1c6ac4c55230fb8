package transcript

import (
	"encoding/json"
	"regexp"
	"strings"
)

// captionTrack is one entry of the caption-track list embedded in a YouTube
// watch page.
type captionTrack struct {
	BaseURL      string `json:"baseUrl"`
	LanguageCode string `json:"languageCode"`
}

// trackStrategy locates caption tracks in watch-page HTML. Strategies are
// pure so each can be tested against captured page fragments and dropped
// independently when the page format shifts.
type trackStrategy func(html string) []captionTrack

// trackStrategies is tried in order; the first non-empty result wins.
var trackStrategies = []trackStrategy{
	directCaptionTracks,
	playerResponseCaptions,
	windowedCaptionSearch,
}

func findCaptionTracks(html string) []captionTrack {
	for _, strategy := range trackStrategies {
		if tracks := strategy(html); len(tracks) > 0 {
			return tracks
		}
	}
	return nil
}

var captionTracksPattern = regexp.MustCompile(`"captionTracks":(\[.*?\}\])`)

// directCaptionTracks regexes the captionTracks array straight out of the
// page. Cheapest and usually sufficient.
func directCaptionTracks(html string) []captionTrack {
	m := captionTracksPattern.FindStringSubmatch(html)
	if len(m) != 2 {
		return nil
	}
	var tracks []captionTrack
	if err := json.Unmarshal([]byte(m[1]), &tracks); err != nil {
		return nil
	}
	return tracks
}

var playerResponsePattern = regexp.MustCompile(`ytInitialPlayerResponse\s*=\s*(\{.+?\});(?:\s*var|\s*</script>)`)

// playerResponseCaptions parses the whole embedded player-state object and
// reads captions from its nested path. Slower but survives reordering of
// the page's inline scripts.
func playerResponseCaptions(html string) []captionTrack {
	m := playerResponsePattern.FindStringSubmatch(html)
	if len(m) != 2 {
		return nil
	}

	var player struct {
		Captions struct {
			PlayerCaptionsTracklistRenderer struct {
				CaptionTracks []captionTrack `json:"captionTracks"`
			} `json:"playerCaptionsTracklistRenderer"`
		} `json:"captions"`
	}
	if err := json.Unmarshal([]byte(m[1]), &player); err != nil {
		return nil
	}
	return player.Captions.PlayerCaptionsTracklistRenderer.CaptionTracks
}

const captionWindowSize = 50000

// windowedCaptionSearch anchors on a "captions": marker and runs the direct
// regex over a bounded window after it. Last resort for pages where the
// player response fails to parse as a whole.
func windowedCaptionSearch(html string) []captionTrack {
	idx := strings.Index(html, `"captions":`)
	if idx < 0 {
		return nil
	}
	end := idx + captionWindowSize
	if end > len(html) {
		end = len(html)
	}
	return directCaptionTracks(html[idx:end])
}

// selectTrack prefers an exact "en" track, then any en* variant, then the
// first available.
func selectTrack(tracks []captionTrack) *captionTrack {
	if len(tracks) == 0 {
		return nil
	}
	for i := range tracks {
		if tracks[i].LanguageCode == "en" {
			return &tracks[i]
		}
	}
	for i := range tracks {
		if strings.HasPrefix(tracks[i].LanguageCode, "en") {
			return &tracks[i]
		}
	}
	return &tracks[0]
}
