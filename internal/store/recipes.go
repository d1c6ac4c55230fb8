package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	apperrors "github.com/plateful/ladle/internal/errors"
)

const recipeColumns = `id, household_id, created_by, title, description, servings,
	prep_time_minutes, cook_time_minutes, vegetarian, image_url, source_url,
	source_platform, created_at, updated_at`

func scanRecipe(row pgx.Row) (*Recipe, error) {
	var r Recipe
	err := row.Scan(&r.ID, &r.HouseholdID, &r.CreatedBy, &r.Title, &r.Description,
		&r.Servings, &r.PrepTimeMinutes, &r.CookTimeMinutes, &r.Vegetarian,
		&r.ImageURL, &r.SourceURL, &r.SourcePlatform, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// CreateRecipeWithChildren inserts the recipe and all its child rows in one
// transaction, so a failed ingredient or step insert never leaves a partial
// recipe behind. Returns the count of inserted children for logging.
func (s *Store) CreateRecipeWithChildren(ctx context.Context, recipe *Recipe, ingredients []RecipeIngredient, steps []RecipeStep) (ingredientCount, stepCount int, err error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, 0, apperrors.NewPersistenceError("failed to begin transaction", "RECIPE_CREATE_FAILED", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx,
		`INSERT INTO recipes (id, household_id, created_by, title, description,
		    servings, prep_time_minutes, cook_time_minutes, vegetarian,
		    image_url, source_url, source_platform)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		recipe.ID, recipe.HouseholdID, recipe.CreatedBy, recipe.Title,
		recipe.Description, recipe.Servings, recipe.PrepTimeMinutes,
		recipe.CookTimeMinutes, recipe.Vegetarian, recipe.ImageURL,
		recipe.SourceURL, recipe.SourcePlatform)
	if err != nil {
		return 0, 0, apperrors.NewPersistenceError("failed to insert recipe", "RECIPE_CREATE_FAILED", err)
	}

	for _, ing := range ingredients {
		_, err = tx.Exec(ctx,
			`INSERT INTO recipe_ingredients (recipe_id, position, name, quantity, unit)
			 VALUES ($1, $2, $3, $4, $5)`,
			recipe.ID, ing.Position, ing.Name, ing.Quantity, ing.Unit)
		if err != nil {
			return 0, 0, apperrors.NewPersistenceError("failed to insert ingredient", "RECIPE_CREATE_FAILED", err)
		}
		ingredientCount++
	}

	for _, step := range steps {
		_, err = tx.Exec(ctx,
			`INSERT INTO recipe_steps (recipe_id, step_number, section, instruction)
			 VALUES ($1, $2, $3, $4)`,
			recipe.ID, step.StepNumber, step.Section, step.Instruction)
		if err != nil {
			return 0, 0, apperrors.NewPersistenceError("failed to insert step", "RECIPE_CREATE_FAILED", err)
		}
		stepCount++
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, 0, apperrors.NewPersistenceError("failed to commit recipe", "RECIPE_CREATE_FAILED", err)
	}
	return ingredientCount, stepCount, nil
}

// GetRecipeWithChildren fetches a recipe with ordered ingredients and steps,
// scoped to households the user belongs to.
func (s *Store) GetRecipeWithChildren(ctx context.Context, id, userID uuid.UUID) (*RecipeWithChildren, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+recipeColumns+` FROM recipes
		 WHERE id = $1 AND household_id IN (
		     SELECT household_id FROM household_members WHERE user_id = $2
		 )`, id, userID)

	recipe, err := scanRecipe(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.NewNotFoundError("recipe not found", "RECIPE_NOT_FOUND", "Check the recipe identifier.")
	}
	if err != nil {
		return nil, apperrors.NewPersistenceError("failed to fetch recipe", "RECIPE_FETCH_FAILED", err)
	}

	result := &RecipeWithChildren{Recipe: *recipe}

	ingRows, err := s.pool.Query(ctx,
		`SELECT id, recipe_id, position, name, quantity, unit
		 FROM recipe_ingredients WHERE recipe_id = $1 ORDER BY position`, id)
	if err != nil {
		return nil, apperrors.NewPersistenceError("failed to fetch ingredients", "RECIPE_FETCH_FAILED", err)
	}
	defer ingRows.Close()
	for ingRows.Next() {
		var ing RecipeIngredient
		if err := ingRows.Scan(&ing.ID, &ing.RecipeID, &ing.Position, &ing.Name, &ing.Quantity, &ing.Unit); err != nil {
			return nil, apperrors.NewPersistenceError("failed to scan ingredient", "RECIPE_FETCH_FAILED", err)
		}
		result.Ingredients = append(result.Ingredients, ing)
	}

	stepRows, err := s.pool.Query(ctx,
		`SELECT id, recipe_id, step_number, section, instruction
		 FROM recipe_steps WHERE recipe_id = $1 ORDER BY step_number`, id)
	if err != nil {
		return nil, apperrors.NewPersistenceError("failed to fetch steps", "RECIPE_FETCH_FAILED", err)
	}
	defer stepRows.Close()
	for stepRows.Next() {
		var step RecipeStep
		if err := stepRows.Scan(&step.ID, &step.RecipeID, &step.StepNumber, &step.Section, &step.Instruction); err != nil {
			return nil, apperrors.NewPersistenceError("failed to scan step", "RECIPE_FETCH_FAILED", err)
		}
		result.Steps = append(result.Steps, step)
	}

	return result, nil
}

// DeleteRecipe removes a recipe the user can access; children cascade.
func (s *Store) DeleteRecipe(ctx context.Context, id, userID uuid.UUID) error {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM recipes
		 WHERE id = $1 AND household_id IN (
		     SELECT household_id FROM household_members WHERE user_id = $2
		 )`, id, userID)
	if err != nil {
		return apperrors.NewPersistenceError("failed to delete recipe", "RECIPE_DELETE_FAILED", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NewNotFoundError("recipe not found", "RECIPE_NOT_FOUND", "Check the recipe identifier.")
	}
	return nil
}
