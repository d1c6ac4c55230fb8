package worker

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

// Task type constants
const (
	TypeProcessImport  = "import:process"
	TypeSweepStaleJobs = "import:sweep_stale"
)

// ProcessImportPayload is the payload for import processing tasks.
// SourceHint lets the API short-circuit classification for inputs the URL
// alone cannot identify (photo uploads).
type ProcessImportPayload struct {
	JobID      string `json:"job_id"`
	UserID     string `json:"user_id"`
	ContentRef string `json:"content_ref"`
	SourceHint string `json:"source_hint,omitempty"`
}

// NewProcessImportTask creates a new import processing task. MaxRetry is
// zero: a failed import is reported to the user, who resubmits if they want
// another attempt.
func NewProcessImportTask(payload ProcessImportPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeProcessImport, data, asynq.MaxRetry(0)), nil
}

// NewSweepStaleJobsTask creates the periodic stale-job sweep task.
func NewSweepStaleJobsTask() *asynq.Task {
	return asynq.NewTask(TypeSweepStaleJobs, nil, asynq.MaxRetry(0))
}
