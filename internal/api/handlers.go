// Package api exposes the import submission and polling endpoints.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/plateful/ladle/internal/config"
	apperrors "github.com/plateful/ladle/internal/errors"
	"github.com/plateful/ladle/internal/middleware"
	"github.com/plateful/ladle/internal/source"
	"github.com/plateful/ladle/internal/store"
	"github.com/plateful/ladle/internal/worker"
)

type taskEnqueuer interface {
	Enqueue(task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Store is the slice of the query layer the API uses.
type Store interface {
	CreateImportJob(ctx context.Context, id, userID uuid.UUID, sourceKind, contentRef string) (*store.ImportJob, error)
	GetImportJob(ctx context.Context, id, userID uuid.UUID) (*store.ImportJob, error)
	ListImportJobsByUser(ctx context.Context, userID uuid.UUID, limit int) ([]*store.ImportJob, error)
	GetRecipeWithChildren(ctx context.Context, id, userID uuid.UUID) (*store.RecipeWithChildren, error)
	DeleteRecipe(ctx context.Context, id, userID uuid.UUID) error
}

type Server struct {
	cfg         *config.Config
	store       Store
	asynqClient taskEnqueuer
}

func NewServer(cfg *config.Config, st Store, asynqClient taskEnqueuer) *Server {
	return &Server{
		cfg:         cfg,
		store:       st,
		asynqClient: asynqClient,
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

// writeError renders AppErrors with their status and code; anything else
// becomes an opaque 500.
func writeError(w http.ResponseWriter, err error) {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		writeJSON(w, appErr.StatusCode, map[string]any{
			"error":      appErr.Message,
			"error_code": appErr.ErrorCode,
			"recovery":   appErr.Recovery,
		})
		return
	}
	slog.Error("Unhandled API error", "error", err)
	writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "internal server error"})
}

func requestUserID(r *http.Request) (uuid.UUID, bool) {
	raw, ok := middleware.GetUserID(r.Context())
	if !ok {
		return uuid.Nil, false
	}
	userID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, false
	}
	return userID, true
}

type CreateImportRequest struct {
	ContentRef string `json:"content_ref"`
	SourceHint string `json:"source_hint,omitempty"`
}

type ImportJobResponse struct {
	ID           string   `json:"id"`
	SourceKind   string   `json:"source_kind"`
	ContentRef   string   `json:"content_ref"`
	Status       string   `json:"status"`
	RecipeID     string   `json:"recipe_id,omitempty"`
	ErrorMessage string   `json:"error_message,omitempty"`
	Confidence   *float64 `json:"confidence_score,omitempty"`
	CreatedAt    string   `json:"created_at"`
	UpdatedAt    string   `json:"updated_at"`
}

func jobResponse(job *store.ImportJob) ImportJobResponse {
	resp := ImportJobResponse{
		ID:         job.ID.String(),
		SourceKind: job.SourceKind,
		ContentRef: job.ContentRef,
		Status:     string(job.Status),
		CreatedAt:  job.CreatedAt.Format(time.RFC3339),
		UpdatedAt:  job.UpdatedAt.Format(time.RFC3339),
	}
	if job.RecipeID.Valid {
		resp.RecipeID = uuid.UUID(job.RecipeID.Bytes).String()
	}
	if job.ErrorMessage.Valid {
		resp.ErrorMessage = job.ErrorMessage.String
	}
	if job.Confidence.Valid {
		c := job.Confidence.Float64
		resp.Confidence = &c
	}
	return resp
}

// HandleCreateImport accepts a content reference, records a pending job and
// enqueues it for the worker.
func (s *Server) HandleCreateImport(w http.ResponseWriter, r *http.Request) {
	userID, ok := requestUserID(r)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req CreateImportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperrors.NewValidationError("invalid request body", "INVALID_BODY", "Send a JSON body with content_ref."))
		return
	}
	if req.ContentRef == "" {
		writeError(w, apperrors.NewValidationError("content_ref is required", "MISSING_CONTENT_REF", "Provide a URL or photo reference."))
		return
	}

	kind := source.Classify(req.ContentRef)
	if req.SourceHint == string(source.KindImage) {
		kind = source.KindImage
	}
	if kind == source.KindUnknown {
		writeError(w, apperrors.NewUnsupportedInputError("unsupported content reference", "UNSUPPORTED_CONTENT"))
		return
	}

	jobID := uuid.New()
	job, err := s.store.CreateImportJob(r.Context(), jobID, userID, string(kind), req.ContentRef)
	if err != nil {
		writeError(w, err)
		return
	}

	task, err := worker.NewProcessImportTask(worker.ProcessImportPayload{
		JobID:      jobID.String(),
		UserID:     userID.String(),
		ContentRef: req.ContentRef,
		SourceHint: req.SourceHint,
	})
	if err != nil {
		writeError(w, apperrors.NewPersistenceError("failed to create import task", "TASK_CREATE_FAILED", err))
		return
	}
	if _, err := s.asynqClient.Enqueue(task); err != nil {
		writeError(w, apperrors.NewPersistenceError("failed to enqueue import task", "TASK_ENQUEUE_FAILED", err))
		return
	}

	writeJSON(w, http.StatusAccepted, jobResponse(job))
}

// HandleGetImport is the polling endpoint for a single job.
func (s *Server) HandleGetImport(w http.ResponseWriter, r *http.Request) {
	userID, ok := requestUserID(r)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	jobID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, apperrors.NewValidationError("invalid job id", "INVALID_JOB_ID", ""))
		return
	}

	job, err := s.store.GetImportJob(r.Context(), jobID, userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, jobResponse(job))
}

type ListImportsResponse struct {
	Jobs []ImportJobResponse `json:"jobs"`
}

// HandleListImports returns the caller's recent import jobs.
func (s *Server) HandleListImports(w http.ResponseWriter, r *http.Request) {
	userID, ok := requestUserID(r)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	jobs, err := s.store.ListImportJobsByUser(r.Context(), userID, 50)
	if err != nil {
		writeError(w, err)
		return
	}

	resp := ListImportsResponse{Jobs: make([]ImportJobResponse, len(jobs))}
	for i, job := range jobs {
		resp.Jobs[i] = jobResponse(job)
	}
	writeJSON(w, http.StatusOK, resp)
}
