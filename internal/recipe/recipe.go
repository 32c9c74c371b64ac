package recipe

import (
	"fmt"

	"github.com/google/uuid"
)

// Ingredient is a single ingredient line of a recipe. The ID is only
// stable within one recipe's ingredient list.
type Ingredient struct {
	ID     string  `json:"id"`
	Name   string  `json:"name"`
	Amount float64 `json:"amount"`
	Unit   string  `json:"unit"`
}

// Recipe represents a single recipe in the user's catalog.
type Recipe struct {
	ID           string       `json:"id"`
	Title        string       `json:"title"`
	Description  string       `json:"description"`
	Ingredients  []Ingredient `json:"ingredients"`
	Instructions []string     `json:"instructions"`
	ImageURL     string       `json:"imageUrl,omitempty"`
	PrepTime     int          `json:"prepTime"`
	CookTime     int          `json:"cookTime"`
	Servings     int          `json:"servings"`
}

// NewID returns a fresh recipe ID.
func NewID() string {
	return uuid.NewString()
}

// Validate checks the structural invariants of a recipe.
func (r Recipe) Validate() error {
	if r.ID == "" {
		return fmt.Errorf("recipe has no id")
	}
	if r.Title == "" {
		return fmt.Errorf("recipe title must not be empty")
	}
	if r.PrepTime < 0 || r.CookTime < 0 {
		return fmt.Errorf("recipe times must not be negative")
	}
	if r.Servings < 1 {
		return fmt.Errorf("recipe must serve at least one")
	}
	for _, ing := range r.Ingredients {
		if ing.Amount < 0 {
			return fmt.Errorf("ingredient %q has a negative amount", ing.Name)
		}
	}
	return nil
}

// TotalTime returns prep plus cook time in minutes.
func (r Recipe) TotalTime() int {
	return r.PrepTime + r.CookTime
}

// FindByID resolves a recipe id against a catalog. The lookup is total:
// a dangling id yields found=false, never an error.
func FindByID(catalog []Recipe, id string) (Recipe, bool) {
	for _, r := range catalog {
		if r.ID == id {
			return r, true
		}
	}
	return Recipe{}, false
}
