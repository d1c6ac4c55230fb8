package materialize

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/plateful/ladle/internal/extract"
	"github.com/plateful/ladle/internal/metadata"
	"github.com/plateful/ladle/internal/source"
	"github.com/plateful/ladle/internal/store"
)

type mockRecipeStore struct {
	mock.Mock
}

func (m *mockRecipeStore) GetHouseholdIDForUser(ctx context.Context, userID uuid.UUID) (uuid.UUID, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(uuid.UUID), args.Error(1)
}

func (m *mockRecipeStore) CreateRecipeWithChildren(ctx context.Context, recipe *store.Recipe, ingredients []store.RecipeIngredient, steps []store.RecipeStep) (int, int, error) {
	args := m.Called(ctx, recipe, ingredients, steps)
	return args.Int(0), args.Int(1), args.Error(2)
}

func intPtr(v int) *int { return &v }

func sampleResult() *extract.Result {
	return &extract.Result{
		Success:    true,
		Confidence: 0.8,
		Recipe: &extract.Recipe{
			Title:           "Lemon Orzo",
			Description:     "One-pot weeknight orzo",
			Servings:        intPtr(2),
			PrepTimeMinutes: intPtr(10),
			Ingredients: []extract.Ingredient{
				{Name: "orzo", Quantity: "250", Unit: "g"},
				{Name: "lemons", Quantity: "2-3", Unit: ""},
				{Name: "", Quantity: "1", Unit: "tbsp"},
			},
			Steps: []extract.Step{
				{Number: 1, Instruction: "Boil the orzo until al dente"},
				{Number: 2, Instruction: "   "},
				{Number: 3, Section: "Finish", Instruction: "Stir in lemon zest and serve"},
			},
		},
	}
}

func TestMaterializeBuildsRows(t *testing.T) {
	userID := uuid.New()
	householdID := uuid.New()

	s := new(mockRecipeStore)
	s.On("GetHouseholdIDForUser", mock.Anything, userID).Return(householdID, nil)

	var gotRecipe *store.Recipe
	var gotIngredients []store.RecipeIngredient
	var gotSteps []store.RecipeStep
	s.On("CreateRecipeWithChildren", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			gotRecipe = args.Get(1).(*store.Recipe)
			gotIngredients = args.Get(2).([]store.RecipeIngredient)
			gotSteps = args.Get(3).([]store.RecipeStep)
		}).
		Return(2, 2, nil)

	meta := &metadata.Metadata{ThumbnailURL: "https://img.example.com/t.jpg"}
	m := New(s)
	recipeID, err := m.Materialize(context.Background(), userID, sampleResult(), meta, "https://youtu.be/abc123def", source.KindYouTube)

	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, recipeID)

	require.NotNil(t, gotRecipe)
	assert.Equal(t, householdID, gotRecipe.HouseholdID)
	assert.Equal(t, userID, gotRecipe.CreatedBy)
	assert.Equal(t, "Lemon Orzo", gotRecipe.Title)
	assert.Equal(t, int32(2), gotRecipe.Servings)
	assert.Equal(t, "https://img.example.com/t.jpg", gotRecipe.ImageURL.String)
	assert.Equal(t, "video-youtube", gotRecipe.SourcePlatform.String)

	// Empty-name ingredient dropped; positions stay contiguous
	require.Len(t, gotIngredients, 2)
	assert.Equal(t, int32(1), gotIngredients[0].Position)
	assert.Equal(t, int32(2), gotIngredients[1].Position)
	assert.Equal(t, "lemons", gotIngredients[1].Name)

	// Blank-instruction step dropped; numbers renumbered
	require.Len(t, gotSteps, 2)
	assert.Equal(t, int32(1), gotSteps[0].StepNumber)
	assert.Equal(t, int32(2), gotSteps[1].StepNumber)
	assert.Equal(t, "Finish", gotSteps[1].Section.String)

	s.AssertExpectations(t)
}

func TestMaterializeDefaultServings(t *testing.T) {
	userID := uuid.New()
	s := new(mockRecipeStore)
	s.On("GetHouseholdIDForUser", mock.Anything, userID).Return(uuid.New(), nil)

	var gotRecipe *store.Recipe
	s.On("CreateRecipeWithChildren", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { gotRecipe = args.Get(1).(*store.Recipe) }).
		Return(0, 1, nil)

	result := sampleResult()
	result.Recipe.Servings = nil
	result.Recipe.Ingredients = nil

	m := New(s)
	_, err := m.Materialize(context.Background(), userID, result, nil, "", source.KindWeb)

	require.NoError(t, err)
	assert.Equal(t, int32(4), gotRecipe.Servings)
}

func TestMaterializeNoHousehold(t *testing.T) {
	userID := uuid.New()
	s := new(mockRecipeStore)
	s.On("GetHouseholdIDForUser", mock.Anything, userID).Return(uuid.Nil, store.ErrNoHousehold)

	m := New(s)
	_, err := m.Materialize(context.Background(), userID, sampleResult(), nil, "", source.KindWeb)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "no household")
	s.AssertNotCalled(t, "CreateRecipeWithChildren", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestMaterializeNilRecipe(t *testing.T) {
	m := New(new(mockRecipeStore))
	_, err := m.Materialize(context.Background(), uuid.New(), &extract.Result{Success: true}, nil, "", source.KindWeb)
	assert.Error(t, err)
}

func TestNormalizeQuantity(t *testing.T) {
	tests := []struct {
		raw  string
		want *float64
	}{
		{"3", floatPtr(3)},
		{"2.5", floatPtr(2.5)},
		{"2-3", floatPtr(2.5)},
		{"1 - 2", floatPtr(1.5)},
		{"1/2", floatPtr(0.5)},
		{"3/4", floatPtr(0.75)},
		{"about 2 cups", floatPtr(2)},
		{"", nil},
		{"a pinch", nil},
		{"to taste", nil},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got := NormalizeQuantity(tt.raw)
			if tt.want == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.InDelta(t, *tt.want, *got, 1e-9)
		})
	}
}

func floatPtr(v float64) *float64 { return &v }
