package extract

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/plateful/ladle/internal/metrics"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// SafetyBlockError reports a provider-side refusal. Kept distinct from parse
// failures so callers can report it as its own failure reason.
type SafetyBlockError struct {
	Reason string
}

func (e *SafetyBlockError) Error() string {
	return "model safety block: " + e.Reason
}

// ModelClient is one extraction pass against a generative model. Implemented
// by GeminiClient; mocked in tests.
type ModelClient interface {
	Generate(ctx context.Context, prompt string) (string, error)
	GenerateWithImage(ctx context.Context, prompt string, imageData []byte, mimeType string) (string, error)
}

// GeminiClient calls the Gemini API with JSON response mode and a low
// temperature for stable structured output.
type GeminiClient struct {
	client *genai.Client
	model  string
}

func NewGeminiClient(ctx context.Context, apiKey, model string) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("Gemini API key is required")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiClient{client: client, model: model}, nil
}

func (c *GeminiClient) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

func (c *GeminiClient) Generate(ctx context.Context, prompt string) (string, error) {
	return c.generate(ctx, genai.Text(prompt))
}

// GenerateWithImage sends the prompt with inline image bytes for photo
// imports.
func (c *GeminiClient) GenerateWithImage(ctx context.Context, prompt string, imageData []byte, mimeType string) (string, error) {
	format := strings.TrimPrefix(mimeType, "image/")
	return c.generate(ctx, genai.Text(prompt), genai.ImageData(format, imageData))
}

func (c *GeminiClient) generate(ctx context.Context, parts ...genai.Part) (string, error) {
	model := c.client.GenerativeModel(c.model)
	model.SetTemperature(0.1)
	model.ResponseMIMEType = "application/json"

	start := time.Now()
	resp, err := model.GenerateContent(ctx, parts...)
	if metrics.ExternalAPIDuration != nil {
		metrics.ExternalAPIDuration.Record(ctx, time.Since(start).Seconds(),
			metric.WithAttributes(attribute.String("provider", "Gemini")))
	}
	if err != nil {
		return "", fmt.Errorf("model invocation failed: %w", err)
	}

	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != genai.BlockReasonUnspecified {
		return "", &SafetyBlockError{Reason: resp.PromptFeedback.BlockReason.String()}
	}

	if len(resp.Candidates) == 0 {
		return "", fmt.Errorf("no candidates in model response")
	}

	candidate := resp.Candidates[0]
	if candidate.FinishReason == genai.FinishReasonSafety {
		return "", &SafetyBlockError{Reason: candidate.FinishReason.String()}
	}
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return "", fmt.Errorf("no content in model response")
	}

	var texts []string
	for _, part := range candidate.Content.Parts {
		if text, ok := part.(genai.Text); ok {
			texts = append(texts, string(text))
		}
	}
	if len(texts) == 0 {
		return "", fmt.Errorf("no text parts in model response")
	}
	return strings.Join(texts, ""), nil
}
