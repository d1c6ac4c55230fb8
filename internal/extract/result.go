// Package extract turns gathered content context into a structured recipe by
// prompting a generative model and defensively parsing its output.
package extract

// ContextLayer names which slice of gathered context produced a result.
type ContextLayer string

const (
	LayerMetadata    ContextLayer = "metadata"
	LayerTranscript  ContextLayer = "transcript"
	LayerWebScraping ContextLayer = "web_scraping"
	LayerImageVision ContextLayer = "image_vision"
)

// Ingredient is one line of a recipe's ingredient list. Quantity stays a
// string here; normalization to numeric form happens at materialization.
type Ingredient struct {
	Name     string `json:"name"`
	Quantity string `json:"quantity"`
	Unit     string `json:"unit"`
}

// Step is one ordered cooking instruction, optionally grouped under a
// section label.
type Step struct {
	Number      int    `json:"step_number"`
	Section     string `json:"section,omitempty"`
	Instruction string `json:"instruction"`
}

// Recipe is the model's structured recipe payload.
type Recipe struct {
	Title           string       `json:"title"`
	Description     string       `json:"description"`
	Servings        *int         `json:"servings"`
	PrepTimeMinutes *int         `json:"prep_time_minutes"`
	CookTimeMinutes *int         `json:"cook_time_minutes"`
	Vegetarian      bool         `json:"vegetarian"`
	Ingredients     []Ingredient `json:"ingredients"`
	Steps           []Step       `json:"steps"`
}

// Result is one extraction pass's outcome as reported by the model itself.
// Success demands a recipe with at least one step; ValidateResult enforces
// that after parsing.
type Result struct {
	Success      bool         `json:"success"`
	Confidence   float64      `json:"confidence"`
	Recipe       *Recipe      `json:"recipe"`
	ErrorMessage string       `json:"error_message,omitempty"`
	ContextLayer ContextLayer `json:"-"`
}

// OutcomeKind tags how a model invocation resolved.
type OutcomeKind int

const (
	// OutcomeOk means the response parsed into a Result (which may itself
	// report success=false).
	OutcomeOk OutcomeKind = iota
	// OutcomeParseError means no JSON could be recovered from the response.
	OutcomeParseError
	// OutcomeSafetyBlocked means the provider refused to answer.
	OutcomeSafetyBlocked
)

// Outcome is the tagged result of one model invocation, separating provider
// refusals and unparseable responses from ordinary unsuccessful extractions.
type Outcome struct {
	Kind   OutcomeKind
	Result *Result
	Reason string
}

func okOutcome(r *Result) Outcome {
	return Outcome{Kind: OutcomeOk, Result: r}
}

func parseErrorOutcome(reason string) Outcome {
	return Outcome{
		Kind:   OutcomeParseError,
		Result: &Result{Success: false, Confidence: 0, ErrorMessage: reason},
		Reason: reason,
	}
}

func safetyBlockedOutcome(reason string) Outcome {
	return Outcome{
		Kind:   OutcomeSafetyBlocked,
		Result: &Result{Success: false, Confidence: 0, ErrorMessage: "content blocked by model safety filters: " + reason},
		Reason: reason,
	}
}
