package transcript

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const directTracksHTML = `<script>var ytInitialPlayerResponse = {"other":true};</script>
<script>{"captionTracks":[{"baseUrl":"https://example.com/tt?lang=fr","languageCode":"fr"},{"baseUrl":"https://example.com/tt?lang=en","languageCode":"en"}]}</script>`

const playerResponseHTML = `<script>ytInitialPlayerResponse = {"captions":{"playerCaptionsTracklistRenderer":{"captionTracks":[{"baseUrl":"https://example.com/tt?lang=en-GB","languageCode":"en-GB"}]}}};</script>`

func TestFindCaptionTracksDirect(t *testing.T) {
	tracks := findCaptionTracks(directTracksHTML)
	require.Len(t, tracks, 2)
	assert.Equal(t, "fr", tracks[0].LanguageCode)
	assert.Equal(t, "https://example.com/tt?lang=en", tracks[1].BaseURL)
}

func TestFindCaptionTracksPlayerResponse(t *testing.T) {
	tracks := findCaptionTracks(playerResponseHTML)
	require.Len(t, tracks, 1)
	assert.Equal(t, "en-GB", tracks[0].LanguageCode)
}

func TestFindCaptionTracksNone(t *testing.T) {
	assert.Nil(t, findCaptionTracks("<html><body>no captions here</body></html>"))
}

func TestSelectTrack(t *testing.T) {
	tests := []struct {
		name   string
		tracks []captionTrack
		want   string
	}{
		{"exact en wins", []captionTrack{{LanguageCode: "de"}, {LanguageCode: "en"}, {LanguageCode: "en-US"}}, "en"},
		{"en variant over others", []captionTrack{{LanguageCode: "de"}, {LanguageCode: "en-US"}}, "en-US"},
		{"first as fallback", []captionTrack{{LanguageCode: "ja"}, {LanguageCode: "de"}}, "ja"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			track := selectTrack(tt.tracks)
			require.NotNil(t, track)
			assert.Equal(t, tt.want, track.LanguageCode)
		})
	}

	assert.Nil(t, selectTrack(nil))
}

func TestParseTimedText(t *testing.T) {
	xml := `<?xml version="1.0"?><transcript>
<text start="0.5" dur="2.1">Preheat the oven</text>
<text start="2.6" dur="3.0">to 400 degrees &amp;#39;F&amp;#39;</text>
<text start="5.6" dur="1.2">   </text>
<text start="6.8" dur="2.0">then add the  garlic</text>
</transcript>`

	got := parseTimedText(xml)
	assert.Equal(t, "Preheat the oven to 400 degrees 'F' then add the garlic", got)
}

func TestIsBotChallenge(t *testing.T) {
	assert.True(t, isBotChallenge(`<a href="https://consent.youtube.com/m?continue=x">`))
	assert.True(t, isBotChallenge(`<div class="g-recaptcha"></div>`))
	assert.False(t, isBotChallenge(`<html>normal watch page</html>`))
}

func TestExtractRecipeLinks(t *testing.T) {
	description := `Full recipe: https://www.budgetbites.com/lemon-orzo.
Follow me on https://www.instagram.com/chef.anna and https://linktr.ee/chefanna
Playlist: https://www.example.com/videos?list=PL123
Tools I use https://amzn.to/3xyz
Blog https://chefanna.blog/posts/orzo`

	links := ExtractRecipeLinks(description)
	assert.Equal(t, []string{
		"https://www.budgetbites.com/lemon-orzo",
		"https://chefanna.blog/posts/orzo",
	}, links)
}

func TestExtractRecipeLinksCap(t *testing.T) {
	description := "https://a.example.com/1 https://b.example.com/2 https://c.example.com/3"
	assert.Len(t, ExtractRecipeLinks(description), 2)
}

func TestExtractRecipeLinksDeduplicates(t *testing.T) {
	description := "https://a.example.com/r and again https://a.example.com/r"
	assert.Equal(t, []string{"https://a.example.com/r"}, ExtractRecipeLinks(description))
}

func TestIsDenylisted(t *testing.T) {
	assert.True(t, isDenylisted("www.youtube.com"))
	assert.True(t, isDenylisted("m.facebook.com"))
	assert.True(t, isDenylisted("bit.ly"))
	assert.False(t, isDenylisted("budgetbites.com"))
}
