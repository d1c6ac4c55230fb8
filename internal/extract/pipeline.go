package extract

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/plateful/ladle/internal/config"
	"github.com/plateful/ladle/internal/metadata"
	"github.com/plateful/ladle/internal/metrics"
	"github.com/plateful/ladle/internal/telemetry"
)

// Refinement fires when a successful pass looks under-segmented: fewer than
// minAcceptableSteps, or any step whose instruction is shorter than
// minStepInstructionLength characters.
const (
	minAcceptableSteps       = 3
	minStepInstructionLength = 10
)

// Extractor runs extraction passes and the second-pass refinement heuristic.
type Extractor struct {
	client   ModelClient
	pipeline config.PipelineConfig
}

func NewExtractor(client ModelClient, pipeline config.PipelineConfig) *Extractor {
	return &Extractor{client: client, pipeline: pipeline}
}

// Extract runs the full extraction for text-backed sources: one complete
// pass, the success invariant check, then the optional refinement pass.
// contextText must already be truncated to the source family's budget.
func (e *Extractor) Extract(ctx context.Context, meta *metadata.Metadata, contextText string, layer ContextLayer) Outcome {
	ctx, span := telemetry.Tracer("extract").Start(ctx, "extract.pipeline")
	defer span.End()

	prompt := BuildExtractionPrompt(meta, contextText, layer)
	outcome := e.runPass(ctx, func(ctx context.Context) (string, error) {
		return e.client.Generate(ctx, prompt)
	}, layer)
	if outcome.Kind != OutcomeOk || !outcome.Result.Success {
		return outcome
	}

	if e.pipeline.RefinementEnabled && contextText != "" && needsRefinement(outcome.Result) {
		e.refineSteps(ctx, outcome.Result, contextText)
	}
	return outcome
}

// ExtractImage runs the vision pass for photo imports.
func (e *Extractor) ExtractImage(ctx context.Context, imageData []byte, mimeType string) Outcome {
	ctx, span := telemetry.Tracer("extract").Start(ctx, "extract.image")
	defer span.End()

	prompt := BuildImagePrompt()
	return e.runPass(ctx, func(ctx context.Context) (string, error) {
		return e.client.GenerateWithImage(ctx, prompt, imageData, mimeType)
	}, LayerImageVision)
}

func (e *Extractor) runPass(ctx context.Context, invoke func(context.Context) (string, error), layer ContextLayer) Outcome {
	start := time.Now()
	raw, err := invoke(ctx)
	if metrics.ExtractionDuration != nil {
		metrics.ExtractionDuration.Record(ctx, time.Since(start).Seconds(),
			metric.WithAttributes(attribute.String("layer", string(layer))))
	}

	if err != nil {
		var blocked *SafetyBlockError
		if errors.As(err, &blocked) {
			slog.Warn("Model safety block", "reason", blocked.Reason)
			out := safetyBlockedOutcome(blocked.Reason)
			out.Result.ContextLayer = layer
			return out
		}
		out := parseErrorOutcome("model invocation failed: " + err.Error())
		out.Result.ContextLayer = layer
		return out
	}

	outcome := ParseResponse(raw)
	ValidateResult(outcome.Result)
	if outcome.Result != nil {
		outcome.Result.ContextLayer = layer
	}
	return outcome
}

// needsRefinement reports whether a successful pass's step list looks
// under-segmented.
func needsRefinement(r *Result) bool {
	if r.Recipe == nil {
		return false
	}
	if len(r.Recipe.Steps) < minAcceptableSteps {
		return true
	}
	for _, step := range r.Recipe.Steps {
		if len(step.Instruction) < minStepInstructionLength {
			return true
		}
	}
	return false
}

// refineSteps re-prompts with only the backing text and the first pass's
// ingredient list, asking for a refined step list. The refined steps replace
// the originals only when the second pass returns strictly more of them;
// ingredients always stay from the first pass. A heuristic quality gate, not
// a correctness proof.
func (e *Extractor) refineSteps(ctx context.Context, first *Result, contextText string) {
	if metrics.RefinementPassesTotal != nil {
		metrics.RefinementPassesTotal.Add(ctx, 1)
	}

	prompt := BuildRefinementPrompt(contextText, first.Recipe.Ingredients)
	raw, err := e.client.Generate(ctx, prompt)
	if err != nil {
		slog.Warn("Refinement pass failed, keeping first-pass steps", "error", err)
		return
	}

	outcome := ParseResponse(raw)
	if outcome.Kind != OutcomeOk || !outcome.Result.Success || outcome.Result.Recipe == nil {
		slog.Debug("Refinement pass unusable, keeping first-pass steps")
		return
	}

	refined := outcome.Result.Recipe.Steps
	if len(refined) > len(first.Recipe.Steps) {
		slog.Info("Refinement replaced step list",
			"before", len(first.Recipe.Steps), "after", len(refined))
		first.Recipe.Steps = refined
	}
}
