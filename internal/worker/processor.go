package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/plateful/ladle/internal/config"
	"github.com/plateful/ladle/internal/extract"
	"github.com/plateful/ladle/internal/httpclient"
	"github.com/plateful/ladle/internal/metadata"
	"github.com/plateful/ladle/internal/metrics"
	"github.com/plateful/ladle/internal/source"
	"github.com/plateful/ladle/internal/transcript"
	"github.com/plateful/ladle/internal/utils"
)

// JobStore is the slice of the query layer the processor drives the job
// ledger through.
type JobStore interface {
	MarkJobProcessing(ctx context.Context, id uuid.UUID) (bool, error)
	CompleteJob(ctx context.Context, id, recipeID uuid.UUID, confidence float64, snapshot any) error
	FailJob(ctx context.Context, id uuid.UUID, errorMessage string, confidence *float64) error
	SweepStaleJobs(ctx context.Context, olderThan time.Duration) (int64, error)
}

type recipeExtractor interface {
	Extract(ctx context.Context, meta *metadata.Metadata, contextText string, layer extract.ContextLayer) extract.Outcome
	ExtractImage(ctx context.Context, imageData []byte, mimeType string) extract.Outcome
}

type recipeMaterializer interface {
	Materialize(ctx context.Context, userID uuid.UUID, result *extract.Result, meta *metadata.Metadata, sourceURL string, kind source.Kind) (uuid.UUID, error)
}

type videoMetadataFetcher interface {
	Fetch(ctx context.Context, ref string) (*metadata.Metadata, error)
}

type webMetadataFetcher interface {
	Fetch(ctx context.Context, pageURL string) (*metadata.Metadata, string, error)
}

type captionFetcher interface {
	Transcript(ctx context.Context, videoID string) (string, error)
}

type linkScraper interface {
	ScrapeAll(ctx context.Context, links []string) string
}

// ImportProcessor executes one import job end to end: gather context for
// the source, run extraction, gate on confidence, materialize, and write
// exactly one terminal ledger state.
type ImportProcessor struct {
	store        JobStore
	materializer recipeMaterializer
	extractor    recipeExtractor

	youtube   videoMetadataFetcher
	instagram videoMetadataFetcher
	tiktok    videoMetadataFetcher
	web       webMetadataFetcher
	captions  captionFetcher
	links     linkScraper

	httpClient *http.Client
	pipeline   config.PipelineConfig
}

type ImportProcessorDeps struct {
	Store        JobStore
	Materializer recipeMaterializer
	Extractor    recipeExtractor
	YouTube      videoMetadataFetcher
	Instagram    videoMetadataFetcher
	TikTok       videoMetadataFetcher
	Web          webMetadataFetcher
	Captions     captionFetcher
	Links        linkScraper
}

func NewImportProcessor(deps ImportProcessorDeps, pipeline config.PipelineConfig) *ImportProcessor {
	return &ImportProcessor{
		store:        deps.Store,
		materializer: deps.Materializer,
		extractor:    deps.Extractor,
		youtube:      deps.YouTube,
		instagram:    deps.Instagram,
		tiktok:       deps.TikTok,
		web:          deps.Web,
		captions:     deps.Captions,
		links:        deps.Links,
		httpClient:   httpclient.InstrumentedClient,
		pipeline:     pipeline,
	}
}

// gatheredContext is everything the fetch phase hands to extraction.
type gatheredContext struct {
	meta      *metadata.Metadata
	text      string
	layer     extract.ContextLayer
	imageData []byte
	imageMIME string
}

func (p *ImportProcessor) HandleProcessImport(ctx context.Context, t *asynq.Task) error {
	var payload ProcessImportPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal payload: %w", err)
	}

	jobID, err := uuid.Parse(payload.JobID)
	if err != nil {
		return fmt.Errorf("invalid job id %q: %w", payload.JobID, err)
	}
	userID, err := uuid.Parse(payload.UserID)
	if err != nil {
		p.failJob(ctx, jobID, "invalid user reference on import job", nil)
		return nil
	}

	// A panic anywhere below still lands the job in a terminal state.
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Panic while processing import", "job_id", jobID, "panic", r)
			p.failJob(ctx, jobID, "internal error while processing the import", nil)
		}
	}()

	start := time.Now()
	slog.Info("Processing import", "job_id", jobID, "content_ref", payload.ContentRef)

	claimed, err := p.store.MarkJobProcessing(ctx, jobID)
	if err != nil {
		return err
	}
	if !claimed {
		slog.Warn("Import job not pending, skipping", "job_id", jobID)
		return nil
	}

	kind := p.classify(payload)
	if kind == source.KindUnknown {
		p.recordImport(ctx, kind, "unsupported", start)
		p.failJob(ctx, jobID, "unsupported content: submit a YouTube, Instagram, TikTok or web URL, or a photo", nil)
		return nil
	}

	gathered, fetchErr := p.gatherContext(ctx, payload.ContentRef, kind)
	if fetchErr != nil {
		p.recordImport(ctx, kind, "fetch_failed", start)
		p.failJob(ctx, jobID, fetchErr.Error(), nil)
		return nil
	}

	var outcome extract.Outcome
	if kind == source.KindImage {
		outcome = p.extractor.ExtractImage(ctx, gathered.imageData, gathered.imageMIME)
	} else {
		outcome = p.extractor.Extract(ctx, gathered.meta, gathered.text, gathered.layer)
	}

	switch outcome.Kind {
	case extract.OutcomeSafetyBlocked:
		p.recordImport(ctx, kind, "safety_blocked", start)
		p.failJob(ctx, jobID, outcome.Result.ErrorMessage, nil)
		return nil
	case extract.OutcomeParseError:
		p.recordImport(ctx, kind, "parse_failed", start)
		p.failJob(ctx, jobID, "could not understand the extraction response: "+outcome.Reason, nil)
		return nil
	}

	result := outcome.Result
	if !result.Success {
		msg := result.ErrorMessage
		if msg == "" {
			msg = "no recipe found in the submitted content"
		}
		p.recordImport(ctx, kind, "no_recipe", start)
		p.failJob(ctx, jobID, msg, &result.Confidence)
		return nil
	}

	threshold := p.pipeline.MinConfidence(kind.IsVideo())
	if result.Confidence < threshold {
		p.recordImport(ctx, kind, "low_confidence", start)
		p.failJob(ctx, jobID,
			fmt.Sprintf("extraction confidence %.2f below acceptance threshold %.2f", result.Confidence, threshold),
			&result.Confidence)
		return nil
	}

	recipeID, err := p.materializer.Materialize(ctx, userID, result, gathered.meta, payload.ContentRef, kind)
	if err != nil {
		slog.Error("Materialization failed", "job_id", jobID, "error", err)
		p.recordImport(ctx, kind, "persistence_failed", start)
		p.failJob(ctx, jobID, err.Error(), &result.Confidence)
		return nil
	}

	if err := p.store.CompleteJob(ctx, jobID, recipeID, result.Confidence, gathered.meta); err != nil {
		slog.Error("Failed to complete job", "job_id", jobID, "error", err)
		return err
	}

	p.recordImport(ctx, kind, "completed", start)
	slog.Info("Import completed", "job_id", jobID, "recipe_id", recipeID,
		"confidence", result.Confidence, "layer", result.ContextLayer)
	return nil
}

func (p *ImportProcessor) classify(payload ProcessImportPayload) source.Kind {
	if payload.SourceHint == string(source.KindImage) {
		return source.KindImage
	}
	return source.Classify(payload.ContentRef)
}

func (p *ImportProcessor) gatherContext(ctx context.Context, contentRef string, kind source.Kind) (*gatheredContext, error) {
	switch kind {
	case source.KindYouTube:
		return p.gatherYouTube(ctx, contentRef)
	case source.KindInstagram:
		return p.gatherSocial(ctx, p.instagram, contentRef)
	case source.KindTikTok:
		return p.gatherSocial(ctx, p.tiktok, contentRef)
	case source.KindWeb:
		return p.gatherWeb(ctx, contentRef)
	case source.KindImage:
		return p.gatherImage(ctx, contentRef)
	}
	return nil, fmt.Errorf("no context strategy for source kind %s", kind)
}

func (p *ImportProcessor) gatherYouTube(ctx context.Context, videoURL string) (*gatheredContext, error) {
	videoID, ok := source.ExtractContentID(videoURL, source.KindYouTube)
	if !ok {
		return nil, fmt.Errorf("could not identify the YouTube video in %q", videoURL)
	}

	meta, err := utils.WithStepTimeout(ctx, p.pipeline.StepTimeout(), func(ctx context.Context) (*metadata.Metadata, error) {
		return p.youtube.Fetch(ctx, videoID)
	})
	if err != nil {
		return nil, fmt.Errorf("could not fetch video details: %w", err)
	}

	text, err := utils.WithStepTimeout(ctx, p.pipeline.StepTimeout(), func(ctx context.Context) (string, error) {
		return p.captions.Transcript(ctx, videoID)
	})
	if err == nil && text != "" {
		return &gatheredContext{
			meta:  meta,
			text:  truncate(text, p.pipeline.TranscriptBudget),
			layer: extract.LayerTranscript,
		}, nil
	}
	if errors.Is(err, transcript.ErrBotChallenge) {
		slog.Warn("Transcript blocked by bot challenge", "video_id", videoID)
	}

	// No transcript: scrape recipe links from the description instead.
	if links := transcript.ExtractRecipeLinks(meta.Description); len(links) > 0 {
		linkText, _ := utils.WithStepTimeout(ctx, p.pipeline.StepTimeout(), func(ctx context.Context) (string, error) {
			return p.links.ScrapeAll(ctx, links), nil
		})
		if linkText != "" {
			return &gatheredContext{meta: meta, text: linkText, layer: extract.LayerWebScraping}, nil
		}
	}

	return &gatheredContext{meta: meta, layer: extract.LayerMetadata}, nil
}

func (p *ImportProcessor) gatherSocial(ctx context.Context, fetcher videoMetadataFetcher, postURL string) (*gatheredContext, error) {
	meta, err := utils.WithStepTimeout(ctx, p.pipeline.StepTimeout(), func(ctx context.Context) (*metadata.Metadata, error) {
		return fetcher.Fetch(ctx, postURL)
	})
	if err != nil {
		return nil, fmt.Errorf("could not fetch post details: %w", err)
	}
	// The caption travels in the metadata description; there is no separate
	// transcript source for these platforms.
	return &gatheredContext{meta: meta, layer: extract.LayerMetadata}, nil
}

func (p *ImportProcessor) gatherWeb(ctx context.Context, pageURL string) (*gatheredContext, error) {
	type webResult struct {
		meta *metadata.Metadata
		html string
	}
	res, err := utils.WithStepTimeout(ctx, p.pipeline.StepTimeout(), func(ctx context.Context) (webResult, error) {
		meta, html, err := p.web.Fetch(ctx, pageURL)
		return webResult{meta: meta, html: html}, err
	})
	if err != nil {
		return nil, fmt.Errorf("could not fetch page: %w", err)
	}
	return &gatheredContext{
		meta:  res.meta,
		text:  truncate(res.html, p.pipeline.WebHTMLBudget),
		layer: extract.LayerWebScraping,
	}, nil
}

func (p *ImportProcessor) gatherImage(ctx context.Context, imageURL string) (*gatheredContext, error) {
	type imageResult struct {
		data []byte
		mime string
	}
	res, err := utils.WithStepTimeout(ctx, p.pipeline.StepTimeout(), func(ctx context.Context) (imageResult, error) {
		req, err := http.NewRequestWithContext(ctx, "GET", imageURL, nil)
		if err != nil {
			return imageResult{}, err
		}
		resp, err := p.httpClient.Do(req)
		if err != nil {
			return imageResult{}, err
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return imageResult{}, fmt.Errorf("image fetch returned status %d", resp.StatusCode)
		}

		data, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
		if err != nil {
			return imageResult{}, err
		}

		mime := resp.Header.Get("Content-Type")
		if mime == "" || mime == "application/octet-stream" {
			mime = http.DetectContentType(data)
		}
		return imageResult{data: data, mime: mime}, nil
	})
	if err != nil {
		return nil, fmt.Errorf("could not fetch photo: %w", err)
	}
	return &gatheredContext{imageData: res.data, imageMIME: res.mime, layer: extract.LayerImageVision}, nil
}

// HandleSweepStaleJobs fails processing jobs whose worker died mid-flight.
func (p *ImportProcessor) HandleSweepStaleJobs(ctx context.Context, _ *asynq.Task) error {
	swept, err := p.store.SweepStaleJobs(ctx, p.pipeline.StaleJobTimeout())
	if err != nil {
		return err
	}
	if swept > 0 {
		slog.Warn("Swept stale import jobs", "count", swept)
	}
	return nil
}

func (p *ImportProcessor) failJob(ctx context.Context, jobID uuid.UUID, message string, confidence *float64) {
	slog.Error("Import failed", "job_id", jobID, "error", message)
	if err := p.store.FailJob(ctx, jobID, message, confidence); err != nil {
		slog.Error("Failed to record job failure", "job_id", jobID, "error", err)
	}
}

func (p *ImportProcessor) recordImport(ctx context.Context, kind source.Kind, status string, start time.Time) {
	if metrics.ImportsTotal != nil {
		metrics.ImportsTotal.Add(ctx, 1, metric.WithAttributes(
			attribute.String("source_kind", string(kind)),
			attribute.String("status", status)))
	}
	if metrics.ImportDuration != nil {
		metrics.ImportDuration.Record(ctx, time.Since(start).Seconds(),
			metric.WithAttributes(attribute.String("source_kind", string(kind))))
	}
}

func truncate(s string, limit int) string {
	if limit > 0 && len(s) > limit {
		return s[:limit]
	}
	return s
}
