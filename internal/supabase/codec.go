package supabase

import (
	"encoding/json"
	"fmt"

	"smartplanner/internal/planner"
	"smartplanner/internal/recipe"
)

// Row shapes for the two PostgREST tables. The JSON columns (ingredients,
// instructions, meals) cross the wire as structured data; these are the
// only types that touch it, so the domain never sees untyped payloads.

type ingredientRow struct {
	ID     string  `json:"id"`
	Name   string  `json:"name"`
	Amount float64 `json:"amount"`
	Unit   string  `json:"unit"`
}

type recipeRow struct {
	ID           string          `json:"id"`
	Title        string          `json:"title"`
	Description  string          `json:"description"`
	Ingredients  []ingredientRow `json:"ingredients"`
	Instructions []string        `json:"instructions"`
	ImageURL     *string         `json:"image_url"`
	PrepTime     int             `json:"prep_time"`
	CookTime     int             `json:"cook_time"`
	Servings     int             `json:"servings"`
	UserID       *string         `json:"user_id,omitempty"`
}

type mealSlotRow struct {
	RecipeID *string `json:"recipeId,omitempty"`
}

type mealPlanRow struct {
	Date   string                 `json:"date"`
	Meals  map[string]mealSlotRow `json:"meals"`
	UserID *string                `json:"user_id,omitempty"`
}

func recipeToRow(rec recipe.Recipe, userID string) recipeRow {
	ings := make([]ingredientRow, 0, len(rec.Ingredients))
	for _, ing := range rec.Ingredients {
		ings = append(ings, ingredientRow(ing))
	}
	instructions := rec.Instructions
	if instructions == nil {
		instructions = []string{}
	}
	row := recipeRow{
		ID:           rec.ID,
		Title:        rec.Title,
		Description:  rec.Description,
		Ingredients:  ings,
		Instructions: instructions,
		PrepTime:     rec.PrepTime,
		CookTime:     rec.CookTime,
		Servings:     rec.Servings,
	}
	if rec.ImageURL != "" {
		row.ImageURL = &rec.ImageURL
	}
	if userID != "" {
		row.UserID = &userID
	}
	return row
}

func rowToRecipe(row recipeRow) recipe.Recipe {
	ings := make([]recipe.Ingredient, 0, len(row.Ingredients))
	for _, ing := range row.Ingredients {
		ings = append(ings, recipe.Ingredient(ing))
	}
	rec := recipe.Recipe{
		ID:           row.ID,
		Title:        row.Title,
		Description:  row.Description,
		Ingredients:  ings,
		Instructions: row.Instructions,
		PrepTime:     row.PrepTime,
		CookTime:     row.CookTime,
		Servings:     row.Servings,
	}
	if row.ImageURL != nil {
		rec.ImageURL = *row.ImageURL
	}
	return rec
}

func dailyPlanToRow(day planner.DailyPlan, userID string) mealPlanRow {
	meals := make(map[string]mealSlotRow, len(day.Meals))
	for t, slot := range day.Meals {
		row := mealSlotRow{}
		if !slot.Empty() {
			id := slot.RecipeID
			row.RecipeID = &id
		}
		meals[string(t)] = row
	}
	row := mealPlanRow{Date: day.Date, Meals: meals}
	if userID != "" {
		row.UserID = &userID
	}
	return row
}

// rowToDailyPlan decodes a stored meal plan row. Unknown meal type keys
// are dropped; missing ones come back as empty slots, so the four-key
// invariant holds no matter what the stored JSON looks like.
func rowToDailyPlan(row mealPlanRow) planner.DailyPlan {
	day := planner.NewDailyPlan(row.Date)
	for key, slot := range row.Meals {
		t := planner.MealType(key)
		if !t.Valid() || slot.RecipeID == nil {
			continue
		}
		day.Meals[t] = planner.MealSlot{RecipeID: *slot.RecipeID}
	}
	return day
}

// decodeRows is a schema-validated decode of a PostgREST response body.
func decodeRows[T any](data []byte) ([]T, error) {
	var rows []T
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("failed to decode rows: %w", err)
	}
	return rows, nil
}
