package sync

import (
	"context"
	"fmt"
	"testing"
	"time"

	"smartplanner/internal/planner"
	"smartplanner/internal/recipe"
	"smartplanner/internal/supabase"
)

// --- Fake store ---

type fakeStore struct {
	recipes   []recipe.Recipe
	mealPlans []planner.DailyPlan

	failInsert bool
	failUpdate bool
	failDelete bool
	failUpsert bool
	failList   bool

	upserts []planner.DailyPlan
}

func (f *fakeStore) ListRecipes(ctx context.Context, s *supabase.Session) ([]recipe.Recipe, error) {
	if f.failList {
		return nil, fmt.Errorf("fake list error")
	}
	return f.recipes, nil
}

func (f *fakeStore) InsertRecipe(ctx context.Context, s *supabase.Session, rec recipe.Recipe) error {
	if f.failInsert {
		return fmt.Errorf("fake insert error")
	}
	f.recipes = append(f.recipes, rec)
	return nil
}

func (f *fakeStore) UpdateRecipe(ctx context.Context, s *supabase.Session, rec recipe.Recipe) error {
	if f.failUpdate {
		return fmt.Errorf("fake update error")
	}
	return nil
}

func (f *fakeStore) DeleteRecipe(ctx context.Context, s *supabase.Session, id string) error {
	if f.failDelete {
		return fmt.Errorf("fake delete error")
	}
	return nil
}

func (f *fakeStore) ListMealPlansFrom(ctx context.Context, s *supabase.Session, fromDate string) ([]planner.DailyPlan, error) {
	if f.failList {
		return nil, fmt.Errorf("fake list error")
	}
	return f.mealPlans, nil
}

func (f *fakeStore) UpsertMealPlan(ctx context.Context, s *supabase.Session, day planner.DailyPlan) error {
	if f.failUpsert {
		return fmt.Errorf("fake upsert error")
	}
	f.upserts = append(f.upserts, day)
	return nil
}

func testSession() *supabase.Session {
	return &supabase.Session{
		AccessToken: "token",
		UserID:      "user-1",
		ExpiresAt:   time.Now().Add(time.Hour),
	}
}

func newTestController(store *fakeStore) *Controller {
	c := NewController(store)
	c.now = func() time.Time {
		return time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)
	}
	c.weekPlan = planner.NewWeekPlan(c.now())
	return c
}

// --- Tests ---

func TestStartLoadsAndMerges(t *testing.T) {
	store := &fakeStore{
		recipes: []recipe.Recipe{
			{ID: "r1", Title: "Pasta", Servings: 2},
		},
		mealPlans: []planner.DailyPlan{
			{Date: "2024-03-05", Meals: map[planner.MealType]planner.MealSlot{
				planner.Dinner: {RecipeID: "r1"},
			}},
		},
	}
	c := newTestController(store)

	if err := c.Start(context.Background(), testSession()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	if len(c.Recipes()) != 1 {
		t.Errorf("Expected 1 recipe after start, got %d", len(c.Recipes()))
	}

	week := c.WeekPlan()
	if len(week) != 7 {
		t.Fatalf("Expected 7-day plan, got %d days", len(week))
	}
	day, ok := week.Day("2024-03-05")
	if !ok {
		t.Fatal("Expected 2024-03-05 in the plan")
	}
	if day.Meals[planner.Dinner].RecipeID != "r1" {
		t.Errorf("Expected dinner r1, got %q", day.Meals[planner.Dinner].RecipeID)
	}
	// Template days without a remote row stay empty.
	first, _ := week.Day("2024-03-04")
	if !first.Meals[planner.Dinner].Empty() {
		t.Error("Expected 2024-03-04 dinner to stay empty")
	}
}

func TestStartFailureStaysSignedOut(t *testing.T) {
	store := &fakeStore{failList: true}
	c := newTestController(store)

	if err := c.Start(context.Background(), testSession()); err == nil {
		t.Fatal("Expected Start to fail")
	}
	if c.Session() != nil {
		t.Error("Expected controller to stay signed out after a failed start")
	}
}

func TestSignOutResetsState(t *testing.T) {
	store := &fakeStore{
		recipes: []recipe.Recipe{{ID: "r1", Title: "Pasta", Servings: 2}},
		mealPlans: []planner.DailyPlan{
			{Date: "2024-03-06", Meals: map[planner.MealType]planner.MealSlot{
				planner.Lunch: {RecipeID: "r1"},
			}},
		},
	}
	c := newTestController(store)
	if err := c.Start(context.Background(), testSession()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	c.SignOut()

	if c.Session() != nil {
		t.Error("Expected no session after sign-out")
	}
	if len(c.Recipes()) != 0 {
		t.Errorf("Expected empty catalog after sign-out, got %d recipes", len(c.Recipes()))
	}
	week := c.WeekPlan()
	if len(week) != 7 {
		t.Fatalf("Expected fresh 7-day template, got %d days", len(week))
	}
	for _, day := range week {
		for _, mt := range planner.AllMealTypes {
			if !day.Meals[mt].Empty() {
				t.Errorf("Expected all slots empty after sign-out, %s %s is not", day.Date, mt)
			}
		}
	}
}

func TestMutationsRequireSession(t *testing.T) {
	c := newTestController(&fakeStore{})
	ctx := context.Background()

	rec := recipe.Recipe{ID: "r1", Title: "Pasta", Servings: 2}
	if err := c.AddRecipe(ctx, rec); err != ErrNoSession {
		t.Errorf("Expected ErrNoSession from AddRecipe, got %v", err)
	}
	if err := c.UpdateRecipe(ctx, rec); err != ErrNoSession {
		t.Errorf("Expected ErrNoSession from UpdateRecipe, got %v", err)
	}
	if err := c.DeleteRecipe(ctx, "r1"); err != ErrNoSession {
		t.Errorf("Expected ErrNoSession from DeleteRecipe, got %v", err)
	}
	if err := c.UpdateMeal(ctx, "2024-03-04", planner.Dinner, "r1"); err != ErrNoSession {
		t.Errorf("Expected ErrNoSession from UpdateMeal, got %v", err)
	}
}

func TestAddRecipePessimistic(t *testing.T) {
	store := &fakeStore{failInsert: true}
	c := newTestController(store)
	if err := c.Start(context.Background(), testSession()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	err := c.AddRecipe(context.Background(), recipe.Recipe{Title: "Soup", Servings: 2})
	if err == nil {
		t.Fatal("Expected AddRecipe to surface the remote error")
	}
	if len(c.Recipes()) != 0 {
		t.Error("Expected no optimistic insert on remote failure")
	}

	store.failInsert = false
	if err := c.AddRecipe(context.Background(), recipe.Recipe{Title: "Soup", Servings: 2}); err != nil {
		t.Fatalf("AddRecipe failed: %v", err)
	}
	if len(c.Recipes()) != 1 {
		t.Errorf("Expected 1 recipe after successful add, got %d", len(c.Recipes()))
	}
	if c.Recipes()[0].ID == "" {
		t.Error("Expected an id to be assigned to the new recipe")
	}
}

func TestDeleteRecipeFailureKeepsRecipe(t *testing.T) {
	store := &fakeStore{
		recipes:    []recipe.Recipe{{ID: "r1", Title: "Pasta", Servings: 2}},
		failDelete: true,
	}
	c := newTestController(store)
	if err := c.Start(context.Background(), testSession()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	if err := c.DeleteRecipe(context.Background(), "r1"); err == nil {
		t.Fatal("Expected DeleteRecipe to fail")
	}
	if len(c.Recipes()) != 1 {
		t.Error("Expected recipe to remain in the catalog after failed delete")
	}
}

func TestUpdateMealOptimisticAndRevert(t *testing.T) {
	store := &fakeStore{
		recipes: []recipe.Recipe{{ID: "r1", Title: "Pasta", Servings: 2}},
	}
	c := newTestController(store)
	if err := c.Start(context.Background(), testSession()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	if err := c.UpdateMeal(context.Background(), "2024-03-05", planner.Dinner, "r1"); err != nil {
		t.Fatalf("UpdateMeal failed: %v", err)
	}
	day, _ := c.WeekPlan().Day("2024-03-05")
	if day.Meals[planner.Dinner].RecipeID != "r1" {
		t.Error("Expected optimistic update to be visible")
	}
	if len(store.upserts) != 1 || store.upserts[0].Date != "2024-03-05" {
		t.Errorf("Expected one upsert for 2024-03-05, got %v", store.upserts)
	}

	// On remote failure the optimistic change is reverted.
	store.failUpsert = true
	if err := c.UpdateMeal(context.Background(), "2024-03-05", planner.Dinner, ""); err == nil {
		t.Fatal("Expected UpdateMeal to fail")
	}
	day, _ = c.WeekPlan().Day("2024-03-05")
	if day.Meals[planner.Dinner].RecipeID != "r1" {
		t.Error("Expected failed clear to be reverted, slot should still hold r1")
	}
}

func TestUpdateMealRejectsUnknownDateAndType(t *testing.T) {
	store := &fakeStore{}
	c := newTestController(store)
	if err := c.Start(context.Background(), testSession()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	if err := c.UpdateMeal(context.Background(), "1999-01-01", planner.Dinner, "r1"); err == nil {
		t.Error("Expected error for a date outside the week")
	}
	if err := c.UpdateMeal(context.Background(), "2024-03-05", planner.MealType("brunch"), "r1"); err == nil {
		t.Error("Expected error for an unknown meal type")
	}
	if len(store.upserts) != 0 {
		t.Errorf("Expected no upserts, got %d", len(store.upserts))
	}
}

func TestShoppingListDerivation(t *testing.T) {
	store := &fakeStore{
		recipes: []recipe.Recipe{
			{ID: "r1", Title: "Pasta", Servings: 2, Ingredients: []recipe.Ingredient{
				{ID: "1", Name: "flour", Amount: 200, Unit: "g"},
			}},
		},
	}
	c := newTestController(store)
	if err := c.Start(context.Background(), testSession()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := c.UpdateMeal(context.Background(), "2024-03-04", planner.Dinner, "r1"); err != nil {
		t.Fatalf("UpdateMeal failed: %v", err)
	}

	list := c.ShoppingList()
	if len(list) != 1 || list[0].Name != "flour" || list[0].Amount != 200 {
		t.Errorf("Unexpected shopping list: %v", list)
	}
}
