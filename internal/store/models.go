package store

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

// JobStatus is the import job lifecycle state. Completed and failed are
// terminal; transitions into them happen exactly once.
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// ImportJob is one row of the import job ledger.
type ImportJob struct {
	ID               uuid.UUID
	UserID           uuid.UUID
	SourceKind       string
	ContentRef       string
	Status           JobStatus
	RecipeID         pgtype.UUID
	ErrorMessage     pgtype.Text
	Confidence       pgtype.Float8
	MetadataSnapshot json.RawMessage
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Recipe is a persisted recipe row, owned by a household.
type Recipe struct {
	ID              uuid.UUID
	HouseholdID     uuid.UUID
	CreatedBy       uuid.UUID
	Title           string
	Description     pgtype.Text
	Servings        int32
	PrepTimeMinutes pgtype.Int4
	CookTimeMinutes pgtype.Int4
	Vegetarian      bool
	ImageURL        pgtype.Text
	SourceURL       pgtype.Text
	SourcePlatform  pgtype.Text
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

type RecipeIngredient struct {
	ID       uuid.UUID
	RecipeID uuid.UUID
	Position int32
	Name     string
	Quantity pgtype.Numeric
	Unit     pgtype.Text
}

type RecipeStep struct {
	ID         uuid.UUID
	RecipeID   uuid.UUID
	StepNumber int32
	Section    pgtype.Text
	Instruction string
}

// RecipeWithChildren bundles a recipe with its ordered child rows for API
// responses.
type RecipeWithChildren struct {
	Recipe      Recipe
	Ingredients []RecipeIngredient
	Steps       []RecipeStep
}
