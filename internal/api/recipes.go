package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	apperrors "github.com/plateful/ladle/internal/errors"
	"github.com/plateful/ladle/internal/store"
)

type IngredientResponse struct {
	Position int      `json:"position"`
	Name     string   `json:"name"`
	Quantity *float64 `json:"quantity,omitempty"`
	Unit     string   `json:"unit,omitempty"`
}

type StepResponse struct {
	StepNumber  int    `json:"step_number"`
	Section     string `json:"section,omitempty"`
	Instruction string `json:"instruction"`
}

type RecipeResponse struct {
	ID              string               `json:"id"`
	Title           string               `json:"title"`
	Description     string               `json:"description,omitempty"`
	Servings        int                  `json:"servings"`
	PrepTimeMinutes *int                 `json:"prep_time_minutes,omitempty"`
	CookTimeMinutes *int                 `json:"cook_time_minutes,omitempty"`
	Vegetarian      bool                 `json:"vegetarian"`
	ImageURL        string               `json:"image_url,omitempty"`
	SourceURL       string               `json:"source_url,omitempty"`
	SourcePlatform  string               `json:"source_platform,omitempty"`
	Ingredients     []IngredientResponse `json:"ingredients"`
	Steps           []StepResponse       `json:"steps"`
	CreatedAt       string               `json:"created_at"`
}

func recipeResponse(rwc *store.RecipeWithChildren) RecipeResponse {
	r := rwc.Recipe
	resp := RecipeResponse{
		ID:             r.ID.String(),
		Title:          r.Title,
		Description:    r.Description.String,
		Servings:       int(r.Servings),
		Vegetarian:     r.Vegetarian,
		ImageURL:       r.ImageURL.String,
		SourceURL:      r.SourceURL.String,
		SourcePlatform: r.SourcePlatform.String,
		Ingredients:    make([]IngredientResponse, 0, len(rwc.Ingredients)),
		Steps:          make([]StepResponse, 0, len(rwc.Steps)),
		CreatedAt:      r.CreatedAt.Format(time.RFC3339),
	}
	if r.PrepTimeMinutes.Valid {
		v := int(r.PrepTimeMinutes.Int32)
		resp.PrepTimeMinutes = &v
	}
	if r.CookTimeMinutes.Valid {
		v := int(r.CookTimeMinutes.Int32)
		resp.CookTimeMinutes = &v
	}

	for _, ing := range rwc.Ingredients {
		item := IngredientResponse{
			Position: int(ing.Position),
			Name:     ing.Name,
			Unit:     ing.Unit.String,
		}
		if ing.Quantity.Valid {
			if f, err := ing.Quantity.Float64Value(); err == nil && f.Valid {
				q := f.Float64
				item.Quantity = &q
			}
		}
		resp.Ingredients = append(resp.Ingredients, item)
	}

	for _, step := range rwc.Steps {
		resp.Steps = append(resp.Steps, StepResponse{
			StepNumber:  int(step.StepNumber),
			Section:     step.Section.String,
			Instruction: step.Instruction,
		})
	}
	return resp
}

// HandleGetRecipe returns a recipe with its ingredients and steps.
func (s *Server) HandleGetRecipe(w http.ResponseWriter, r *http.Request) {
	userID, ok := requestUserID(r)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	recipeID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, apperrors.NewValidationError("invalid recipe id", "INVALID_RECIPE_ID", ""))
		return
	}

	recipe, err := s.store.GetRecipeWithChildren(r.Context(), recipeID, userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, recipeResponse(recipe))
}

// HandleDeleteRecipe removes a recipe; ingredient and step rows cascade.
func (s *Server) HandleDeleteRecipe(w http.ResponseWriter, r *http.Request) {
	userID, ok := requestUserID(r)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	recipeID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, apperrors.NewValidationError("invalid recipe id", "INVALID_RECIPE_ID", ""))
		return
	}

	if err := s.store.DeleteRecipe(r.Context(), recipeID, userID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
