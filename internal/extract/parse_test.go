package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseResponsePlainJSON(t *testing.T) {
	raw := `{"success": true, "confidence": 0.85, "recipe": {"title": "Lemon Orzo", "steps": [{"step_number": 1, "instruction": "Boil the orzo until al dente"}], "ingredients": []}}`

	outcome := ParseResponse(raw)
	require.Equal(t, OutcomeOk, outcome.Kind)
	assert.True(t, outcome.Result.Success)
	assert.Equal(t, 0.85, outcome.Result.Confidence)
	require.NotNil(t, outcome.Result.Recipe)
	assert.Equal(t, "Lemon Orzo", outcome.Result.Recipe.Title)
}

func TestParseResponseMarkdownFences(t *testing.T) {
	raw := "Here is the extracted recipe:\n```json\n{\"success\": true, \"confidence\": 0.7, \"recipe\": {\"title\": \"Carbonara\", \"steps\": [{\"step_number\": 1, \"instruction\": \"Whisk eggs with pecorino\"}]}}\n```\nLet me know if you need anything else."

	outcome := ParseResponse(raw)
	require.Equal(t, OutcomeOk, outcome.Kind)
	assert.True(t, outcome.Result.Success)
	assert.Equal(t, "Carbonara", outcome.Result.Recipe.Title)
}

func TestParseResponseNestedBracesInStrings(t *testing.T) {
	// Braces and escaped quotes inside string values must not break the
	// depth counter.
	raw := `{"success": true, "confidence": 0.9, "recipe": {"title": "Chef's {special}", "description": "She said \"wow {really}\"", "steps": [{"step_number": 1, "instruction": "Mix {gently} until combined"}]}}`

	outcome := ParseResponse(raw)
	require.Equal(t, OutcomeOk, outcome.Kind)
	assert.True(t, outcome.Result.Success)
	assert.Equal(t, "Chef's {special}", outcome.Result.Recipe.Title)
}

func TestParseResponseSurroundingProse(t *testing.T) {
	raw := `Sure! Based on the transcript, here's what I found: {"success": false, "confidence": 0.1, "error_message": "content is a product review, not a recipe"} Hope that helps.`

	outcome := ParseResponse(raw)
	require.Equal(t, OutcomeOk, outcome.Kind)
	assert.False(t, outcome.Result.Success)
	assert.Equal(t, "content is a product review, not a recipe", outcome.Result.ErrorMessage)
}

func TestParseResponseMissingSuccessField(t *testing.T) {
	raw := `{"confidence": 0.8, "recipe": {"title": "Mystery"}}`

	outcome := ParseResponse(raw)
	require.Equal(t, OutcomeOk, outcome.Kind)
	assert.False(t, outcome.Result.Success)
	assert.Equal(t, float64(0), outcome.Result.Confidence)
	assert.NotEmpty(t, outcome.Result.ErrorMessage)
}

func TestParseResponseMissingConfidenceField(t *testing.T) {
	raw := `{"success": true, "recipe": {"title": "Mystery", "steps": [{"step_number": 1, "instruction": "Do the thing carefully"}]}}`

	outcome := ParseResponse(raw)
	require.Equal(t, OutcomeOk, outcome.Kind)
	assert.False(t, outcome.Result.Success)
	assert.Equal(t, float64(0), outcome.Result.Confidence)
}

func TestParseResponseNoJSON(t *testing.T) {
	outcome := ParseResponse("I'm sorry, I cannot extract a recipe from this content.")
	assert.Equal(t, OutcomeParseError, outcome.Kind)
	require.NotNil(t, outcome.Result)
	assert.False(t, outcome.Result.Success)
	assert.Equal(t, float64(0), outcome.Result.Confidence)
}

func TestParseResponseUnbalancedJSON(t *testing.T) {
	outcome := ParseResponse(`{"success": true, "confidence": 0.5, "recipe": {"title": "Trunca`)
	assert.Equal(t, OutcomeParseError, outcome.Kind)
}

func TestExtractJSONObject(t *testing.T) {
	assert.Equal(t, `{"a": {"b": 1}}`, extractJSONObject(`prefix {"a": {"b": 1}} suffix`))
	assert.Equal(t, `{"s": "va}lue"}`, extractJSONObject(`{"s": "va}lue"}`))
	assert.Equal(t, "", extractJSONObject("no braces here"))
	assert.Equal(t, "", extractJSONObject(`{"unclosed": true`))
}

func TestValidateResultZeroSteps(t *testing.T) {
	r := &Result{
		Success:    true,
		Confidence: 0.9,
		Recipe:     &Recipe{Title: "Empty", Steps: nil},
	}
	ValidateResult(r)
	assert.False(t, r.Success)
	assert.NotEmpty(t, r.ErrorMessage)

	r = &Result{Success: true, Confidence: 0.9}
	ValidateResult(r)
	assert.False(t, r.Success)
}

func TestValidateResultKeepsValidSuccess(t *testing.T) {
	r := &Result{
		Success:    true,
		Confidence: 0.8,
		Recipe: &Recipe{
			Title: "Fine",
			Steps: []Step{{Number: 1, Instruction: "Simmer gently for ten minutes"}},
		},
	}
	ValidateResult(r)
	assert.True(t, r.Success)
}
