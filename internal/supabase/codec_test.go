package supabase

import (
	"testing"

	"smartplanner/internal/planner"
	"smartplanner/internal/recipe"
)

func TestRecipeRowRoundTrip(t *testing.T) {
	rec := recipe.Recipe{
		ID:          "r1",
		Title:       "Carbonara",
		Description: "Classic",
		Ingredients: []recipe.Ingredient{
			{ID: "1", Name: "Spaghetti", Amount: 400, Unit: "g"},
			{ID: "2", Name: "Egg", Amount: 2, Unit: "whole"},
		},
		Instructions: []string{"Boil pasta", "Mix"},
		ImageURL:     "https://img/c.jpg",
		PrepTime:     10,
		CookTime:     20,
		Servings:     4,
	}

	row := recipeToRow(rec, "user-1")
	if row.UserID == nil || *row.UserID != "user-1" {
		t.Errorf("Expected user id on row, got %v", row.UserID)
	}

	back := rowToRecipe(row)
	if back.ID != rec.ID || back.Title != rec.Title || back.ImageURL != rec.ImageURL {
		t.Errorf("Round trip changed recipe: %+v", back)
	}
	if len(back.Ingredients) != 2 || back.Ingredients[1].Amount != 2 {
		t.Errorf("Round trip changed ingredients: %+v", back.Ingredients)
	}
}

func TestRecipeRowOptionalColumns(t *testing.T) {
	row := recipeToRow(recipe.Recipe{ID: "r1", Title: "Toast"}, "")

	if row.ImageURL != nil {
		t.Errorf("Empty image must encode as null, got %v", row.ImageURL)
	}
	if row.UserID != nil {
		t.Errorf("No user id requested, got %v", row.UserID)
	}
	// PostgREST jsonb columns reject null where [] is meant.
	if row.Instructions == nil {
		t.Error("Instructions must encode as empty array, not null")
	}
}

func TestDailyPlanRowRoundTrip(t *testing.T) {
	day := planner.NewDailyPlan("2024-03-04")
	day.Meals[planner.Breakfast] = planner.MealSlot{RecipeID: "r1"}

	row := dailyPlanToRow(day, "user-1")
	if len(row.Meals) != len(planner.AllMealTypes) {
		t.Fatalf("Expected all meal keys on the wire, got %d", len(row.Meals))
	}
	if row.Meals["breakfast"].RecipeID == nil || *row.Meals["breakfast"].RecipeID != "r1" {
		t.Errorf("Breakfast encoded wrong: %+v", row.Meals["breakfast"])
	}
	if row.Meals["snack"].RecipeID != nil {
		t.Errorf("Empty snack slot must have no recipeId: %+v", row.Meals["snack"])
	}

	back := rowToDailyPlan(row)
	if back.Date != "2024-03-04" {
		t.Errorf("Date changed in round trip: %s", back.Date)
	}
	if back.Meals[planner.Breakfast].RecipeID != "r1" {
		t.Errorf("Breakfast lost in round trip: %+v", back.Meals)
	}
}

func TestRowToDailyPlanSparseAndUnknownKeys(t *testing.T) {
	r1 := "r1"
	row := mealPlanRow{
		Date: "2024-03-04",
		Meals: map[string]mealSlotRow{
			"lunch":  {RecipeID: &r1},
			"brunch": {RecipeID: &r1}, // not a known meal type
		},
	}

	day := rowToDailyPlan(row)

	if len(day.Meals) != len(planner.AllMealTypes) {
		t.Fatalf("Expected the full set of meal slots, got %d", len(day.Meals))
	}
	if day.Meals[planner.Lunch].RecipeID != "r1" {
		t.Errorf("Lunch slot lost: %+v", day.Meals)
	}
	if !day.Meals[planner.Breakfast].Empty() {
		t.Errorf("Missing slot should be empty: %+v", day.Meals[planner.Breakfast])
	}
}
