package sync

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"smartplanner/internal/planner"
	"smartplanner/internal/recipe"
	"smartplanner/internal/shopping"
	"smartplanner/internal/supabase"
)

// ErrNoSession is returned by every mutation entry point when nobody is
// signed in.
var ErrNoSession = errors.New("no active session")

// Store is the remote persistence collaborator. Implemented by
// supabase.Client; tests substitute fakes.
type Store interface {
	ListRecipes(ctx context.Context, session *supabase.Session) ([]recipe.Recipe, error)
	InsertRecipe(ctx context.Context, session *supabase.Session, rec recipe.Recipe) error
	UpdateRecipe(ctx context.Context, session *supabase.Session, rec recipe.Recipe) error
	DeleteRecipe(ctx context.Context, session *supabase.Session, id string) error
	ListMealPlansFrom(ctx context.Context, session *supabase.Session, fromDate string) ([]planner.DailyPlan, error)
	UpsertMealPlan(ctx context.Context, session *supabase.Session, day planner.DailyPlan) error
}

// Controller mediates between in-memory state and the remote store.
//
// Two mutation policies coexist, deliberately kept distinct: recipe
// mutations are pessimistic (remote write first, local apply only on
// success), while meal-slot assignment is optimistic (local apply first,
// reverted if the remote upsert fails). See DESIGN.md.
type Controller struct {
	store Store
	now   func() time.Time

	mu       sync.Mutex
	session  *supabase.Session
	recipes  []recipe.Recipe
	weekPlan planner.WeekPlan
}

// NewController creates a signed-out controller with an empty catalog and
// a fresh 7-day template starting today.
func NewController(store Store) *Controller {
	c := &Controller{store: store, now: time.Now}
	c.weekPlan = planner.NewWeekPlan(c.now())
	return c
}

// Start adopts an authenticated session and loads remote state: the full
// catalog plus every plan row dated today or later, merged into a fresh
// template by date. On any fetch error the controller stays signed out.
func (c *Controller) Start(ctx context.Context, session *supabase.Session) error {
	today := c.now()

	recipes, err := c.store.ListRecipes(ctx, session)
	if err != nil {
		return fmt.Errorf("failed to load recipe catalog: %w", err)
	}

	fetched, err := c.store.ListMealPlansFrom(ctx, session, today.Format(planner.DateFormat))
	if err != nil {
		return fmt.Errorf("failed to load meal plans: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.session = session
	c.recipes = recipes
	c.weekPlan = planner.MergeRemote(planner.NewWeekPlan(today), fetched)
	return nil
}

// SignOut drops the session and resets all state, regardless of what was
// loaded before.
func (c *Controller) SignOut() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.session = nil
	c.recipes = nil
	c.weekPlan = planner.NewWeekPlan(c.now())
}

// Session returns the active session, or nil when signed out.
func (c *Controller) Session() *supabase.Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session
}

// Recipes returns a copy of the current catalog.
func (c *Controller) Recipes() []recipe.Recipe {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]recipe.Recipe(nil), c.recipes...)
}

// WeekPlan returns a copy of the current week plan.
func (c *Controller) WeekPlan() planner.WeekPlan {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append(planner.WeekPlan(nil), c.weekPlan...)
}

// ShoppingList derives the aggregated list for the current state.
func (c *Controller) ShoppingList() []shopping.Entry {
	c.mu.Lock()
	week := append(planner.WeekPlan(nil), c.weekPlan...)
	catalog := append([]recipe.Recipe(nil), c.recipes...)
	c.mu.Unlock()
	return shopping.Compute(week, catalog)
}

// AddRecipe validates and persists a new recipe, then adds it to the
// catalog. Pessimistic: a remote failure leaves local state unchanged.
func (c *Controller) AddRecipe(ctx context.Context, rec recipe.Recipe) error {
	if rec.ID == "" {
		rec.ID = recipe.NewID()
	}
	if err := rec.Validate(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return ErrNoSession
	}

	if err := c.store.InsertRecipe(ctx, c.session, rec); err != nil {
		return err
	}
	c.recipes = append(c.recipes, rec)
	return nil
}

// UpdateRecipe persists changes to an existing recipe, then applies them
// locally. Pessimistic, like AddRecipe.
func (c *Controller) UpdateRecipe(ctx context.Context, rec recipe.Recipe) error {
	if err := rec.Validate(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return ErrNoSession
	}

	if err := c.store.UpdateRecipe(ctx, c.session, rec); err != nil {
		return err
	}
	for i, existing := range c.recipes {
		if existing.ID == rec.ID {
			c.recipes[i] = rec
			break
		}
	}
	return nil
}

// DeleteRecipe removes a recipe remotely, then from the catalog. Slots
// still referencing it become dangling, which readers tolerate.
func (c *Controller) DeleteRecipe(ctx context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return ErrNoSession
	}

	if err := c.store.DeleteRecipe(ctx, c.session, id); err != nil {
		return err
	}
	kept := c.recipes[:0]
	for _, existing := range c.recipes {
		if existing.ID != id {
			kept = append(kept, existing)
		}
	}
	c.recipes = kept
	return nil
}

// UpdateMeal assigns (or, with an empty recipeID, clears) one meal slot.
// Optimistic: the local plan changes immediately, then the day is
// upserted remotely; on failure the local change is reverted and the
// error returned.
func (c *Controller) UpdateMeal(ctx context.Context, date string, mealType planner.MealType, recipeID string) error {
	if !mealType.Valid() {
		return fmt.Errorf("unknown meal type %q", mealType)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return ErrNoSession
	}

	prev := c.weekPlan
	c.weekPlan = c.weekPlan.SetMeal(date, mealType, recipeID)

	day, ok := c.weekPlan.Day(date)
	if !ok {
		c.weekPlan = prev
		return fmt.Errorf("date %s is not in the current week", date)
	}

	if err := c.store.UpsertMealPlan(ctx, c.session, day); err != nil {
		c.weekPlan = prev
		log.Printf("Reverting meal update for %s %s: %v", date, mealType, err)
		return err
	}
	return nil
}
