package extract

import (
	"fmt"
	"strings"

	"github.com/plateful/ladle/internal/metadata"
	"github.com/plateful/ladle/internal/source"
)

const roleSection = `<ROLE>
You are a specialized AI assistant that extracts recipe information from social media content, web pages and food photographs. Your task is to identify whether the content describes a recipe and, if so, structure it in a specific JSON format.
</ROLE>`

const outputFormatSection = `<OUTPUT_FORMAT>
Always respond with only a JSON object in exactly this shape, with no additional text:

{
  "success": true,
  "confidence": 0.0,
  "error_message": "",
  "recipe": {
    "title": "",
    "description": "",
    "servings": null,
    "prep_time_minutes": null,
    "cook_time_minutes": null,
    "vegetarian": false,
    "ingredients": [
      {"name": "", "quantity": "", "unit": ""}
    ],
    "steps": [
      {"step_number": 1, "section": "", "instruction": ""}
    ]
  }
}

Rules for the envelope fields:
1. "success" is a boolean: true only when the content clearly describes a recipe you could extract.
2. "confidence" is a number from 0.0 to 1.0 reflecting how complete and reliable the extraction is.
3. When success is false, set "recipe" to null and explain why in "error_message".
</OUTPUT_FORMAT>`

const extractionRulesSection = `<EXTRACTION_RULES>
1. NEVER return zero steps for a confirmed recipe. If the content confirms a dish but gives no explicit steps, infer a plausible step list from the narrative and lower your confidence to indicate the inference.
2. Segment narrative or spoken monologue into discrete action-level steps. A typical dish needs 5 to 15 steps; if your extraction has fewer than 5 steps, check whether you merged several actions into one and split them.
3. Group steps under section labels when the recipe has distinct phases (e.g. "Sauce", "Assembly"). Leave "section" empty for single-phase recipes.
4. Prefer the original source title. Only rewrite it when it is clickbait, emoji-only or otherwise non-descriptive of the dish.
5. Cross-reference quantities mentioned in the steps against the ingredient list. When an ingredient's amount is ambiguous, resolve it using the quantity stated in the step that uses it.
6. Quantities stay as written in the source ("2-3", "1/2", "a pinch"); do not convert units.
7. Set "vegetarian" true only when no meat, poultry or fish appears in the ingredients.
8. Times are in minutes. Leave servings and times null when the source does not state them and they cannot be reasonably inferred.
</EXTRACTION_RULES>`

func platformContextSection(kind source.Kind) string {
	switch kind {
	case source.KindInstagram:
		return `<PLATFORM_CONTEXT>
This content comes from Instagram. Captions often carry the full recipe formatted with emojis or bullet points; hashtags may hint at cuisine or diet. Informal measurements ("a splash of", "a handful") are common.
</PLATFORM_CONTEXT>`
	case source.KindTikTok:
		return `<PLATFORM_CONTEXT>
This content comes from TikTok. Captions are usually minimal; rely on the transcript, where the recipe is spoken quickly in voiceover. Measurements may be visual or estimated ("eyeball it") and slang is common.
</PLATFORM_CONTEXT>`
	case source.KindYouTube:
		return `<PLATFORM_CONTEXT>
This content comes from YouTube. The transcript follows the video's pacing, so cooking actions may be interleaved with commentary, sponsor reads and tangents; extract only the recipe content.
</PLATFORM_CONTEXT>`
	case source.KindWeb:
		return `<PLATFORM_CONTEXT>
This content is a web page. You receive its raw HTML; the recipe may live in structured markup (lists, schema.org blocks) or free-form article text. Ignore navigation, ads and comment sections.
</PLATFORM_CONTEXT>`
	case source.KindImage:
		return `<PLATFORM_CONTEXT>
This content is a photograph, attached to this request as image data. It may show a recipe card, a cookbook page, a handwritten note or the finished dish. Transcribe visible text faithfully; for a photo of only the finished dish, infer a standard preparation and lower your confidence accordingly.
</PLATFORM_CONTEXT>`
	default:
		return ""
	}
}

func contentSection(meta *metadata.Metadata, contextText string, layer ContextLayer) string {
	var sb strings.Builder
	sb.WriteString("<CONTENT>\n")

	if meta != nil {
		if meta.Title != "" {
			fmt.Fprintf(&sb, "Title: %s\n", meta.Title)
		}
		if meta.Creator != "" {
			fmt.Fprintf(&sb, "Creator: %s\n", meta.Creator)
		}
		if len(meta.Hashtags) > 0 {
			fmt.Fprintf(&sb, "Hashtags: %s\n", strings.Join(meta.Hashtags, ", "))
		}
		if meta.Description != "" {
			fmt.Fprintf(&sb, "Description:\n%s\n", meta.Description)
		}
	}

	if contextText != "" {
		switch layer {
		case LayerTranscript:
			fmt.Fprintf(&sb, "\nVideo transcript:\n%s\n", contextText)
		case LayerWebScraping:
			fmt.Fprintf(&sb, "\nPage content:\n%s\n", contextText)
		default:
			fmt.Fprintf(&sb, "\nAdditional content:\n%s\n", contextText)
		}
	}

	sb.WriteString("</CONTENT>")
	return sb.String()
}

// BuildExtractionPrompt assembles the full first-pass prompt. contextText is
// the transcript, linked-page text or raw HTML; the caller truncates it to
// the budget for its source family before passing it in.
func BuildExtractionPrompt(meta *metadata.Metadata, contextText string, layer ContextLayer) string {
	var kind source.Kind
	if meta != nil {
		kind = meta.Platform
	}

	sections := []string{roleSection}
	if p := platformContextSection(kind); p != "" {
		sections = append(sections, p)
	}
	sections = append(sections,
		extractionRulesSection,
		outputFormatSection,
		contentSection(meta, contextText, layer),
	)
	return strings.Join(sections, "\n\n")
}

// BuildImagePrompt assembles the prompt for photo imports. The image bytes
// travel alongside the prompt as inline data, so there is no content text.
func BuildImagePrompt() string {
	sections := []string{
		roleSection,
		platformContextSection(source.KindImage),
		extractionRulesSection,
		outputFormatSection,
	}
	return strings.Join(sections, "\n\n")
}

const refinementTaskSection = `<TASK>
A first extraction pass over this content produced the ingredient list below but an under-segmented step list. Re-read the source text and produce ONLY a refined step list for this recipe: discrete action-level steps in cooking order, 5 to 15 for a typical dish, grouped under section labels where the recipe has phases.

Respond with only a JSON object in this shape:

{
  "success": true,
  "confidence": 0.0,
  "recipe": {
    "title": "",
    "ingredients": [],
    "steps": [
      {"step_number": 1, "section": "", "instruction": ""}
    ]
  }
}
</TASK>`

// BuildRefinementPrompt assembles the second-pass prompt from the backing
// text and the first pass's ingredient list.
func BuildRefinementPrompt(contextText string, ingredients []Ingredient) string {
	var sb strings.Builder
	sb.WriteString(roleSection)
	sb.WriteString("\n\n")
	sb.WriteString(refinementTaskSection)
	sb.WriteString("\n\n<INGREDIENTS>\n")
	for _, ing := range ingredients {
		var fields []string
		for _, f := range []string{ing.Quantity, ing.Unit, ing.Name} {
			if f != "" {
				fields = append(fields, f)
			}
		}
		sb.WriteString("- " + strings.Join(fields, " ") + "\n")
	}
	sb.WriteString("</INGREDIENTS>\n\n<CONTENT>\n")
	sb.WriteString(contextText)
	sb.WriteString("\n</CONTENT>")
	return sb.String()
}
