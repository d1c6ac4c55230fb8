package extract

import (
	"encoding/json"
	"regexp"
	"strings"
)

// ParseResponse recovers a Result from raw model output. Models wrap JSON in
// markdown fences, prepend prose, and embed braces inside string values, so
// recovery runs in stages: fence stripping, depth-counted brace matching,
// then a greedy regex as a last resort. A response that defeats all three
// becomes a structured failure, never an error.
func ParseResponse(raw string) Outcome {
	text := stripCodeFences(raw)

	candidate := extractJSONObject(text)
	if candidate == "" {
		candidate = greedyJSONMatch(text)
	}
	if candidate == "" {
		return parseErrorOutcome("no JSON object found in model response")
	}

	result, ok := unmarshalResult(candidate)
	if !ok {
		// The depth-counted candidate may have been a decoy object embedded
		// in prose; the greedy match spans first-to-last brace instead.
		if fallback := greedyJSONMatch(text); fallback != "" && fallback != candidate {
			if result, ok = unmarshalResult(fallback); !ok {
				return parseErrorOutcome("model response JSON did not parse")
			}
		} else {
			return parseErrorOutcome("model response JSON did not parse")
		}
	}

	return okOutcome(result)
}

// unmarshalResult parses a candidate JSON document and validates the shape at
// the boundary: a payload without a boolean success or numeric confidence is
// invalid and rewritten to a failure Result.
func unmarshalResult(candidate string) (*Result, bool) {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal([]byte(candidate), &probe); err != nil {
		return nil, false
	}

	if !hasBool(probe, "success") || !hasNumber(probe, "confidence") {
		return &Result{
			Success:      false,
			Confidence:   0,
			ErrorMessage: "model response missing success or confidence field",
		}, true
	}

	var result Result
	if err := json.Unmarshal([]byte(candidate), &result); err != nil {
		return nil, false
	}
	return &result, true
}

func hasBool(probe map[string]json.RawMessage, key string) bool {
	raw, ok := probe[key]
	if !ok {
		return false
	}
	var b bool
	return json.Unmarshal(raw, &b) == nil
}

func hasNumber(probe map[string]json.RawMessage, key string) bool {
	raw, ok := probe[key]
	if !ok {
		return false
	}
	var f float64
	return json.Unmarshal(raw, &f) == nil
}

var codeFencePattern = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)```")

func stripCodeFences(text string) string {
	if m := codeFencePattern.FindStringSubmatch(text); len(m) == 2 {
		return strings.TrimSpace(m[1])
	}
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	return strings.TrimSpace(text)
}

// extractJSONObject finds the first '{' and walks forward counting brace
// depth, skipping braces inside string literals and honoring escapes, until
// the matching close. Returns "" when no balanced object exists.
func extractJSONObject(text string) string {
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return ""
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if escaped {
			escaped = false
			continue
		}
		switch c {
		case '\\':
			if inString {
				escaped = true
			}
		case '"':
			inString = !inString
		case '{':
			if !inString {
				depth++
			}
		case '}':
			if !inString {
				depth--
				if depth == 0 {
					return text[start : i+1]
				}
			}
		}
	}
	return ""
}

var greedyObjectPattern = regexp.MustCompile(`(?s)\{.*\}`)

func greedyJSONMatch(text string) string {
	return greedyObjectPattern.FindString(text)
}

// ValidateResult enforces the success invariant after parsing: a successful
// result must carry a recipe with at least one step. Violations are
// downgraded to failures in place.
func ValidateResult(r *Result) {
	if r == nil || !r.Success {
		return
	}
	if r.Recipe == nil || len(r.Recipe.Steps) == 0 {
		r.Success = false
		if r.ErrorMessage == "" {
			r.ErrorMessage = "model reported success without any recipe steps"
		}
	}
}
