package worker

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/plateful/ladle/internal/config"
	"github.com/plateful/ladle/internal/extract"
	"github.com/plateful/ladle/internal/metadata"
	"github.com/plateful/ladle/internal/source"
)

// Mocks

type MockJobStore struct {
	mock.Mock
}

func (m *MockJobStore) MarkJobProcessing(ctx context.Context, id uuid.UUID) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *MockJobStore) CompleteJob(ctx context.Context, id, recipeID uuid.UUID, confidence float64, snapshot any) error {
	args := m.Called(ctx, id, recipeID, confidence, snapshot)
	return args.Error(0)
}

func (m *MockJobStore) FailJob(ctx context.Context, id uuid.UUID, errorMessage string, confidence *float64) error {
	args := m.Called(ctx, id, errorMessage, confidence)
	return args.Error(0)
}

func (m *MockJobStore) SweepStaleJobs(ctx context.Context, olderThan time.Duration) (int64, error) {
	args := m.Called(ctx, olderThan)
	return args.Get(0).(int64), args.Error(1)
}

type MockExtractor struct {
	mock.Mock
}

func (m *MockExtractor) Extract(ctx context.Context, meta *metadata.Metadata, contextText string, layer extract.ContextLayer) extract.Outcome {
	args := m.Called(ctx, meta, contextText, layer)
	return args.Get(0).(extract.Outcome)
}

func (m *MockExtractor) ExtractImage(ctx context.Context, imageData []byte, mimeType string) extract.Outcome {
	args := m.Called(ctx, imageData, mimeType)
	return args.Get(0).(extract.Outcome)
}

type MockMaterializer struct {
	mock.Mock
}

func (m *MockMaterializer) Materialize(ctx context.Context, userID uuid.UUID, result *extract.Result, meta *metadata.Metadata, sourceURL string, kind source.Kind) (uuid.UUID, error) {
	args := m.Called(ctx, userID, result, meta, sourceURL, kind)
	return args.Get(0).(uuid.UUID), args.Error(1)
}

type MockVideoFetcher struct {
	mock.Mock
}

func (m *MockVideoFetcher) Fetch(ctx context.Context, ref string) (*metadata.Metadata, error) {
	args := m.Called(ctx, ref)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*metadata.Metadata), args.Error(1)
}

type MockWebFetcher struct {
	mock.Mock
}

func (m *MockWebFetcher) Fetch(ctx context.Context, pageURL string) (*metadata.Metadata, string, error) {
	args := m.Called(ctx, pageURL)
	if args.Get(0) == nil {
		return nil, "", args.Error(2)
	}
	return args.Get(0).(*metadata.Metadata), args.String(1), args.Error(2)
}

type MockCaptionFetcher struct {
	mock.Mock
}

func (m *MockCaptionFetcher) Transcript(ctx context.Context, videoID string) (string, error) {
	args := m.Called(ctx, videoID)
	return args.String(0), args.Error(1)
}

type MockLinkScraper struct {
	mock.Mock
}

func (m *MockLinkScraper) ScrapeAll(ctx context.Context, links []string) string {
	args := m.Called(ctx, links)
	return args.String(0)
}

// Helpers

type processorMocks struct {
	store        *MockJobStore
	extractor    *MockExtractor
	materializer *MockMaterializer
	youtube      *MockVideoFetcher
	instagram    *MockVideoFetcher
	tiktok       *MockVideoFetcher
	web          *MockWebFetcher
	captions     *MockCaptionFetcher
	links        *MockLinkScraper
}

func newTestProcessor() (*ImportProcessor, *processorMocks) {
	m := &processorMocks{
		store:        new(MockJobStore),
		extractor:    new(MockExtractor),
		materializer: new(MockMaterializer),
		youtube:      new(MockVideoFetcher),
		instagram:    new(MockVideoFetcher),
		tiktok:       new(MockVideoFetcher),
		web:          new(MockWebFetcher),
		captions:     new(MockCaptionFetcher),
		links:        new(MockLinkScraper),
	}

	cfg := &config.Config{}
	cfg.SetPipelineDefaults()

	p := NewImportProcessor(ImportProcessorDeps{
		Store:        m.store,
		Materializer: m.materializer,
		Extractor:    m.extractor,
		YouTube:      m.youtube,
		Instagram:    m.instagram,
		TikTok:       m.tiktok,
		Web:          m.web,
		Captions:     m.captions,
		Links:        m.links,
	}, cfg.Pipeline)
	return p, m
}

func importTask(t *testing.T, payload ProcessImportPayload) *asynq.Task {
	t.Helper()
	data, err := json.Marshal(payload)
	require.NoError(t, err)
	return asynq.NewTask(TypeProcessImport, data)
}

func successOutcome(confidence float64) extract.Outcome {
	return extract.Outcome{
		Kind: extract.OutcomeOk,
		Result: &extract.Result{
			Success:    true,
			Confidence: confidence,
			Recipe: &extract.Recipe{
				Title: "Lemon Orzo",
				Steps: []extract.Step{{Number: 1, Instruction: "Boil the orzo until al dente"}},
			},
			ContextLayer: extract.LayerTranscript,
		},
	}
}

// Tests

func TestProcessImportHappyPathYouTube(t *testing.T) {
	p, m := newTestProcessor()
	jobID := uuid.New()
	userID := uuid.New()
	recipeID := uuid.New()

	meta := &metadata.Metadata{Platform: source.KindYouTube, Title: "Lemon Orzo", Description: "easy dinner"}

	m.store.On("MarkJobProcessing", mock.Anything, jobID).Return(true, nil)
	m.youtube.On("Fetch", mock.Anything, "abc123xyz99").Return(meta, nil)
	m.captions.On("Transcript", mock.Anything, "abc123xyz99").Return("first boil the orzo then add lemon", nil)
	m.extractor.On("Extract", mock.Anything, meta, "first boil the orzo then add lemon", extract.LayerTranscript).
		Return(successOutcome(0.8))
	m.materializer.On("Materialize", mock.Anything, userID, mock.Anything, meta, "https://www.youtube.com/watch?v=abc123xyz99", source.KindYouTube).
		Return(recipeID, nil)
	m.store.On("CompleteJob", mock.Anything, jobID, recipeID, 0.8, meta).Return(nil)

	err := p.HandleProcessImport(context.Background(), importTask(t, ProcessImportPayload{
		JobID:      jobID.String(),
		UserID:     userID.String(),
		ContentRef: "https://www.youtube.com/watch?v=abc123xyz99",
	}))

	require.NoError(t, err)
	m.store.AssertExpectations(t)
	m.store.AssertNotCalled(t, "FailJob", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestProcessImportLowConfidenceFails(t *testing.T) {
	// Scenario: photo parses to success with confidence 0.4, below the 0.6
	// web/photo threshold. Job fails, no recipe is persisted.
	p, m := newTestProcessor()
	jobID := uuid.New()
	userID := uuid.New()

	m.store.On("MarkJobProcessing", mock.Anything, jobID).Return(true, nil)
	m.web.On("Fetch", mock.Anything, "https://example.com/maybe-recipe").
		Return(&metadata.Metadata{Platform: source.KindWeb}, "<html>vague</html>", nil)
	m.extractor.On("Extract", mock.Anything, mock.Anything, mock.Anything, extract.LayerWebScraping).
		Return(successOutcome(0.4))
	m.store.On("FailJob", mock.Anything, jobID, mock.MatchedBy(func(msg string) bool {
		return msg != ""
	}), mock.Anything).Return(nil)

	err := p.HandleProcessImport(context.Background(), importTask(t, ProcessImportPayload{
		JobID:      jobID.String(),
		UserID:     userID.String(),
		ContentRef: "https://example.com/maybe-recipe",
	}))

	require.NoError(t, err)
	m.materializer.AssertNotCalled(t, "Materialize", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	m.store.AssertNotCalled(t, "CompleteJob", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	m.store.AssertExpectations(t)
}

func TestProcessImportVideoThresholdLowerThanWeb(t *testing.T) {
	// Confidence 0.55 passes the 0.5 video threshold even though it would
	// fail the 0.6 web threshold.
	p, m := newTestProcessor()
	jobID := uuid.New()
	userID := uuid.New()
	recipeID := uuid.New()

	meta := &metadata.Metadata{Platform: source.KindTikTok, Description: "recipe in caption"}
	m.store.On("MarkJobProcessing", mock.Anything, jobID).Return(true, nil)
	m.tiktok.On("Fetch", mock.Anything, "https://www.tiktok.com/@cook/video/1234567").Return(meta, nil)
	m.extractor.On("Extract", mock.Anything, meta, "", extract.LayerMetadata).Return(successOutcome(0.55))
	m.materializer.On("Materialize", mock.Anything, userID, mock.Anything, meta, mock.Anything, source.KindTikTok).
		Return(recipeID, nil)
	m.store.On("CompleteJob", mock.Anything, jobID, recipeID, 0.55, meta).Return(nil)

	err := p.HandleProcessImport(context.Background(), importTask(t, ProcessImportPayload{
		JobID:      jobID.String(),
		UserID:     userID.String(),
		ContentRef: "https://www.tiktok.com/@cook/video/1234567",
	}))

	require.NoError(t, err)
	m.store.AssertExpectations(t)
}

func TestProcessImportUnsupportedSource(t *testing.T) {
	p, m := newTestProcessor()
	jobID := uuid.New()

	m.store.On("MarkJobProcessing", mock.Anything, jobID).Return(true, nil)
	m.store.On("FailJob", mock.Anything, jobID, mock.MatchedBy(func(msg string) bool {
		return len(msg) > 0
	}), (*float64)(nil)).Return(nil)

	err := p.HandleProcessImport(context.Background(), importTask(t, ProcessImportPayload{
		JobID:      jobID.String(),
		UserID:     uuid.New().String(),
		ContentRef: "ftp://not-supported.example.com/file",
	}))

	require.NoError(t, err)
	m.store.AssertExpectations(t)
	m.extractor.AssertNotCalled(t, "Extract", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestProcessImportSkipsNonPendingJob(t *testing.T) {
	// Redelivered task for a job that already reached a terminal state:
	// nothing runs, nothing is overwritten.
	p, m := newTestProcessor()
	jobID := uuid.New()

	m.store.On("MarkJobProcessing", mock.Anything, jobID).Return(false, nil)

	err := p.HandleProcessImport(context.Background(), importTask(t, ProcessImportPayload{
		JobID:      jobID.String(),
		UserID:     uuid.New().String(),
		ContentRef: "https://example.com/recipe",
	}))

	require.NoError(t, err)
	m.store.AssertNotCalled(t, "FailJob", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	m.store.AssertNotCalled(t, "CompleteJob", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	m.extractor.AssertNotCalled(t, "Extract", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestProcessImportFetchFailure(t *testing.T) {
	p, m := newTestProcessor()
	jobID := uuid.New()

	m.store.On("MarkJobProcessing", mock.Anything, jobID).Return(true, nil)
	m.youtube.On("Fetch", mock.Anything, "abc123xyz99").Return(nil, assert.AnError)
	m.store.On("FailJob", mock.Anything, jobID, mock.Anything, (*float64)(nil)).Return(nil)

	err := p.HandleProcessImport(context.Background(), importTask(t, ProcessImportPayload{
		JobID:      jobID.String(),
		UserID:     uuid.New().String(),
		ContentRef: "https://youtu.be/abc123xyz99",
	}))

	require.NoError(t, err)
	m.store.AssertExpectations(t)
	m.extractor.AssertNotCalled(t, "Extract", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestProcessImportSafetyBlocked(t *testing.T) {
	p, m := newTestProcessor()
	jobID := uuid.New()

	meta := &metadata.Metadata{Platform: source.KindInstagram, Description: "caption"}
	m.store.On("MarkJobProcessing", mock.Anything, jobID).Return(true, nil)
	m.instagram.On("Fetch", mock.Anything, mock.Anything).Return(meta, nil)
	m.extractor.On("Extract", mock.Anything, meta, "", extract.LayerMetadata).Return(extract.Outcome{
		Kind:   extract.OutcomeSafetyBlocked,
		Result: &extract.Result{Success: false, ErrorMessage: "content blocked by model safety filters: SAFETY"},
		Reason: "SAFETY",
	})
	m.store.On("FailJob", mock.Anything, jobID, "content blocked by model safety filters: SAFETY", (*float64)(nil)).Return(nil)

	err := p.HandleProcessImport(context.Background(), importTask(t, ProcessImportPayload{
		JobID:      jobID.String(),
		UserID:     uuid.New().String(),
		ContentRef: "https://www.instagram.com/p/Cabc123/",
	}))

	require.NoError(t, err)
	m.store.AssertExpectations(t)
}

func TestProcessImportNoTranscriptFallsBackToLinks(t *testing.T) {
	p, m := newTestProcessor()
	jobID := uuid.New()
	userID := uuid.New()
	recipeID := uuid.New()

	meta := &metadata.Metadata{
		Platform:    source.KindYouTube,
		Description: "full recipe at https://chefanna.blog/orzo",
	}
	m.store.On("MarkJobProcessing", mock.Anything, jobID).Return(true, nil)
	m.youtube.On("Fetch", mock.Anything, "abc123xyz99").Return(meta, nil)
	m.captions.On("Transcript", mock.Anything, "abc123xyz99").Return("", assert.AnError)
	m.links.On("ScrapeAll", mock.Anything, []string{"https://chefanna.blog/orzo"}).
		Return("Lemon orzo recipe: boil orzo, add lemon")
	m.extractor.On("Extract", mock.Anything, meta, "Lemon orzo recipe: boil orzo, add lemon", extract.LayerWebScraping).
		Return(successOutcome(0.7))
	m.materializer.On("Materialize", mock.Anything, userID, mock.Anything, meta, mock.Anything, source.KindYouTube).
		Return(recipeID, nil)
	m.store.On("CompleteJob", mock.Anything, jobID, recipeID, 0.7, meta).Return(nil)

	err := p.HandleProcessImport(context.Background(), importTask(t, ProcessImportPayload{
		JobID:      jobID.String(),
		UserID:     userID.String(),
		ContentRef: "https://youtu.be/abc123xyz99",
	}))

	require.NoError(t, err)
	m.links.AssertExpectations(t)
	m.store.AssertExpectations(t)
}

func TestProcessImportModelReportsNoRecipe(t *testing.T) {
	p, m := newTestProcessor()
	jobID := uuid.New()

	meta := &metadata.Metadata{Platform: source.KindWeb}
	m.store.On("MarkJobProcessing", mock.Anything, jobID).Return(true, nil)
	m.web.On("Fetch", mock.Anything, mock.Anything).Return(meta, "<html>cat pictures</html>", nil)
	m.extractor.On("Extract", mock.Anything, meta, mock.Anything, extract.LayerWebScraping).Return(extract.Outcome{
		Kind: extract.OutcomeOk,
		Result: &extract.Result{
			Success:      false,
			Confidence:   0.05,
			ErrorMessage: "page contains no recipe",
		},
	})
	m.store.On("FailJob", mock.Anything, jobID, "page contains no recipe", mock.Anything).Return(nil)

	err := p.HandleProcessImport(context.Background(), importTask(t, ProcessImportPayload{
		JobID:      jobID.String(),
		UserID:     uuid.New().String(),
		ContentRef: "https://example.com/cats",
	}))

	require.NoError(t, err)
	m.store.AssertExpectations(t)
}

func TestHandleSweepStaleJobs(t *testing.T) {
	p, m := newTestProcessor()
	m.store.On("SweepStaleJobs", mock.Anything, 15*time.Minute).Return(int64(2), nil)

	err := p.HandleSweepStaleJobs(context.Background(), NewSweepStaleJobsTask())

	require.NoError(t, err)
	m.store.AssertExpectations(t)
}
