package metadata

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractHashtags(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{"multiple tags", "Easy weeknight #pasta with #Garlic butter #dinner_ideas", []string{"pasta", "Garlic", "dinner_ideas"}},
		{"no tags", "just a plain caption", []string{}},
		{"tag at start", "#recipe of the day", []string{"recipe"}},
		{"empty", "", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractHashtags(tt.text))
		})
	}
}

func TestMetaContent(t *testing.T) {
	html := `<html><head>
		<meta property="og:title" content="Best Carbonara" />
		<meta name="og:description" content="Silky eggs &amp; pecorino, no cream">
		<meta content="https://img.example.com/c.jpg" property="og:image"/>
		<title>Fallback &quot;Title&quot;</title>
	</head></html>`

	assert.Equal(t, "Best Carbonara", metaContent(html, "og:title"))
	// name= attribute accepted, entities decoded
	assert.Equal(t, "Silky eggs & pecorino, no cream", metaContent(html, "og:description"))
	// reversed attribute order
	assert.Equal(t, "https://img.example.com/c.jpg", metaContent(html, "og:image"))
	assert.Equal(t, "", metaContent(html, "og:site_name"))
	assert.Equal(t, `Fallback "Title"`, titleTag(html))
}

func TestDecodeEntities(t *testing.T) {
	assert.Equal(t, `Tom & Jerry's "feast" <now>`,
		decodeEntities("Tom &amp; Jerry&#39;s &quot;feast&quot; &lt;now&gt;"))
	assert.Equal(t, "café", decodeEntities("caf&#233;"))
	assert.Equal(t, "café", decodeEntities("caf&#xe9;"))
}

func TestStripCaptionWrapper(t *testing.T) {
	tests := []struct {
		name        string
		description string
		wantCreator string
		wantCaption string
	}{
		{
			name:        "standard wrapper",
			description: `1,024 likes, 37 comments - chef.anna on Instagram: "One-pot lemon orzo you need to try #orzo"`,
			wantCreator: "chef.anna",
			wantCaption: "One-pot lemon orzo you need to try #orzo",
		},
		{
			name:        "abbreviated counts",
			description: `1.2M likes, 4,301 comments - bigkitchen on Instagram: "Crispy smashed potatoes"`,
			wantCreator: "bigkitchen",
			wantCaption: "Crispy smashed potatoes",
		},
		{
			name:        "no wrapper",
			description: "Just a plain description",
			wantCreator: "",
			wantCaption: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			creator, caption := StripCaptionWrapper(tt.description)
			assert.Equal(t, tt.wantCreator, creator)
			assert.Equal(t, tt.wantCaption, caption)
		})
	}
}
