package shopping

import (
	"sort"
	"strings"

	"smartplanner/internal/planner"
	"smartplanner/internal/recipe"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// Entry is one aggregated line of the shopping list. It is derived, never
// persisted: the ID is the composite name-unit key, and Amount is the sum
// over every meal assignment in the week.
type Entry struct {
	ID     string  `json:"id"`
	Name   string  `json:"name"`
	Amount float64 `json:"amount"`
	Unit   string  `json:"unit"`
}

// Key returns the aggregation key for an ingredient: ingredients with the
// same name and unit (case-insensitively) merge into one entry. No unit
// conversion happens, so "200 g" and "1 cup" of the same name stay apart.
func Key(name, unit string) string {
	return strings.ToLower(name) + "-" + strings.ToLower(unit)
}

// Compute folds a week of meal assignments and the recipe catalog into a
// deduplicated shopping list, sorted by ingredient name. It is a pure
// function: no I/O, no side effects, and identical inputs always yield an
// identical sequence. Slots referencing a recipe that no longer exists
// are skipped silently.
func Compute(week planner.WeekPlan, catalog []recipe.Recipe) []Entry {
	byKey := make(map[string]*Entry)

	for _, day := range week {
		for _, mealType := range planner.AllMealTypes {
			slot := day.Meals[mealType]
			if slot.Empty() {
				continue
			}
			rec, found := recipe.FindByID(catalog, slot.RecipeID)
			if !found {
				continue
			}
			for _, ing := range rec.Ingredients {
				key := Key(ing.Name, ing.Unit)
				if entry, ok := byKey[key]; ok {
					entry.Amount += ing.Amount
				} else {
					byKey[key] = &Entry{
						ID:     key,
						Name:   ing.Name,
						Amount: ing.Amount,
						Unit:   ing.Unit,
					}
				}
			}
		}
	}

	list := make([]Entry, 0, len(byKey))
	for _, entry := range byKey {
		list = append(list, *entry)
	}

	// Collators buffer comparison state internally, so each call gets its
	// own; sharing one across goroutines is a data race.
	nameCollator := collate.New(language.English, collate.IgnoreCase)
	sort.Slice(list, func(i, j int) bool {
		if c := nameCollator.CompareString(list[i].Name, list[j].Name); c != 0 {
			return c < 0
		}
		return list[i].ID < list[j].ID
	})

	return list
}
