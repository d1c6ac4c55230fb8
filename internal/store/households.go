package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	apperrors "github.com/plateful/ladle/internal/errors"
)

// ErrNoHousehold means the user belongs to no household, so there is nowhere
// to attach a recipe. Materialization turns this into a descriptive job
// failure.
var ErrNoHousehold = errors.New("user has no household")

// GetHouseholdIDForUser resolves the household a new recipe should belong
// to. Users in several households get their oldest membership.
func (s *Store) GetHouseholdIDForUser(ctx context.Context, userID uuid.UUID) (uuid.UUID, error) {
	var householdID uuid.UUID
	err := s.pool.QueryRow(ctx,
		`SELECT household_id FROM household_members
		 WHERE user_id = $1 ORDER BY joined_at LIMIT 1`, userID).Scan(&householdID)
	if errors.Is(err, pgx.ErrNoRows) {
		return uuid.Nil, ErrNoHousehold
	}
	if err != nil {
		return uuid.Nil, apperrors.NewPersistenceError("failed to resolve household", "HOUSEHOLD_FETCH_FAILED", err)
	}
	return householdID, nil
}
