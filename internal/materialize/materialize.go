// Package materialize turns an accepted extraction result into persisted
// recipe rows.
package materialize

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/plateful/ladle/internal/extract"
	"github.com/plateful/ladle/internal/metadata"
	"github.com/plateful/ladle/internal/source"
	"github.com/plateful/ladle/internal/store"
)

const defaultServings = 4

// RecipeStore is the slice of the query layer materialization needs.
type RecipeStore interface {
	GetHouseholdIDForUser(ctx context.Context, userID uuid.UUID) (uuid.UUID, error)
	CreateRecipeWithChildren(ctx context.Context, recipe *store.Recipe, ingredients []store.RecipeIngredient, steps []store.RecipeStep) (int, int, error)
}

type Materializer struct {
	store RecipeStore
}

func New(s RecipeStore) *Materializer {
	return &Materializer{store: s}
}

// Materialize persists the extracted recipe for the job's owner and returns
// the new recipe's ID. The caller has already checked success and the
// confidence threshold; this layer only shapes rows and writes them.
func (m *Materializer) Materialize(ctx context.Context, userID uuid.UUID, result *extract.Result, meta *metadata.Metadata, sourceURL string, kind source.Kind) (uuid.UUID, error) {
	if result == nil || result.Recipe == nil {
		return uuid.Nil, fmt.Errorf("no recipe payload to materialize")
	}

	householdID, err := m.store.GetHouseholdIDForUser(ctx, userID)
	if err != nil {
		if err == store.ErrNoHousehold {
			return uuid.Nil, fmt.Errorf("cannot save recipe: user belongs to no household")
		}
		return uuid.Nil, err
	}

	recipe, ingredients, steps := buildRows(householdID, userID, result.Recipe, meta, sourceURL, kind)

	insertedIng, insertedSteps, err := m.store.CreateRecipeWithChildren(ctx, recipe, ingredients, steps)
	if err != nil {
		return uuid.Nil, err
	}

	// Claimed vs inserted divergence means rows were dropped for empty
	// names or instructions; worth seeing in logs.
	if insertedIng != len(result.Recipe.Ingredients) || insertedSteps != len(result.Recipe.Steps) {
		slog.Info("Materialized recipe with dropped rows",
			"recipe_id", recipe.ID,
			"claimed_ingredients", len(result.Recipe.Ingredients),
			"inserted_ingredients", insertedIng,
			"claimed_steps", len(result.Recipe.Steps),
			"inserted_steps", insertedSteps)
	}

	return recipe.ID, nil
}

func buildRows(householdID, userID uuid.UUID, r *extract.Recipe, meta *metadata.Metadata, sourceURL string, kind source.Kind) (*store.Recipe, []store.RecipeIngredient, []store.RecipeStep) {
	recipeID := uuid.New()

	servings := int32(defaultServings)
	if r.Servings != nil && *r.Servings > 0 {
		servings = int32(*r.Servings)
	}

	var imageURL string
	if meta != nil {
		imageURL = meta.ThumbnailURL
	}

	recipe := &store.Recipe{
		ID:              recipeID,
		HouseholdID:     householdID,
		CreatedBy:       userID,
		Title:           strings.TrimSpace(r.Title),
		Description:     pgText(r.Description),
		Servings:        servings,
		PrepTimeMinutes: pgInt4(r.PrepTimeMinutes),
		CookTimeMinutes: pgInt4(r.CookTimeMinutes),
		Vegetarian:      r.Vegetarian,
		ImageURL:        pgText(imageURL),
		SourceURL:       pgText(sourceURL),
		SourcePlatform:  pgText(string(kind)),
	}

	var ingredients []store.RecipeIngredient
	position := int32(0)
	for _, ing := range r.Ingredients {
		name := strings.TrimSpace(ing.Name)
		if name == "" {
			continue
		}
		position++
		ingredients = append(ingredients, store.RecipeIngredient{
			RecipeID: recipeID,
			Position: position,
			Name:     name,
			Quantity: pgNumeric(NormalizeQuantity(ing.Quantity)),
			Unit:     pgText(strings.TrimSpace(ing.Unit)),
		})
	}

	var steps []store.RecipeStep
	number := int32(0)
	for _, step := range r.Steps {
		instruction := strings.TrimSpace(step.Instruction)
		if instruction == "" {
			continue
		}
		number++
		steps = append(steps, store.RecipeStep{
			RecipeID:    recipeID,
			StepNumber:  number,
			Section:     pgText(strings.TrimSpace(step.Section)),
			Instruction: instruction,
		})
	}

	return recipe, ingredients, steps
}

func pgText(s string) pgtype.Text {
	return pgtype.Text{String: s, Valid: s != ""}
}

func pgInt4(v *int) pgtype.Int4 {
	if v == nil {
		return pgtype.Int4{}
	}
	return pgtype.Int4{Int32: int32(*v), Valid: true}
}

func pgNumeric(v *float64) pgtype.Numeric {
	if v == nil {
		return pgtype.Numeric{}
	}
	var n pgtype.Numeric
	if err := n.Scan(strconv.FormatFloat(*v, 'f', -1, 64)); err != nil {
		return pgtype.Numeric{}
	}
	return n
}
