package planner

import "time"

// DateFormat is the wire format for plan dates (ISO-8601 date).
const DateFormat = "2006-01-02"

// MealType identifies one of the four daily meal slots.
type MealType string

const (
	Breakfast MealType = "breakfast"
	Lunch     MealType = "lunch"
	Dinner    MealType = "dinner"
	Snack     MealType = "snack"
)

// AllMealTypes lists the meal types in display order.
var AllMealTypes = []MealType{Breakfast, Lunch, Dinner, Snack}

// Valid reports whether t is one of the known meal types.
func (t MealType) Valid() bool {
	switch t {
	case Breakfast, Lunch, Dinner, Snack:
		return true
	}
	return false
}

// MealSlot optionally references a recipe by id. An empty RecipeID means
// the slot is empty. The reference is not ownership: the recipe may have
// been deleted since, and readers must tolerate that.
type MealSlot struct {
	RecipeID string `json:"recipeId,omitempty"`
}

// Empty reports whether the slot has no recipe assigned.
func (s MealSlot) Empty() bool {
	return s.RecipeID == ""
}

// DailyPlan holds the four meal slots for one calendar day. All four meal
// type keys are always present.
type DailyPlan struct {
	Date  string                `json:"date"`
	Meals map[MealType]MealSlot `json:"meals"`
}

// NewDailyPlan returns an empty plan for the given date with all four
// slots present.
func NewDailyPlan(date string) DailyPlan {
	meals := make(map[MealType]MealSlot, len(AllMealTypes))
	for _, t := range AllMealTypes {
		meals[t] = MealSlot{}
	}
	return DailyPlan{Date: date, Meals: meals}
}

// WeekPlan is exactly seven consecutive days, dates strictly ascending.
type WeekPlan []DailyPlan

// NewWeekPlan builds an empty 7-day template starting at the given day.
func NewWeekPlan(start time.Time) WeekPlan {
	plan := make(WeekPlan, 0, 7)
	for i := 0; i < 7; i++ {
		date := start.AddDate(0, 0, i).Format(DateFormat)
		plan = append(plan, NewDailyPlan(date))
	}
	return plan
}

// MergeRemote overlays fetched days onto the template, matching on date.
// Template days without a remote counterpart keep their empty meals;
// remote days outside the template window are ignored. Stored meal maps
// may miss keys (or carry unknown ones), so slots are copied per known
// meal type rather than wholesale.
func MergeRemote(template WeekPlan, fetched []DailyPlan) WeekPlan {
	byDate := make(map[string]DailyPlan, len(fetched))
	for _, d := range fetched {
		byDate[d.Date] = d
	}

	merged := make(WeekPlan, 0, len(template))
	for _, day := range template {
		remote, ok := byDate[day.Date]
		if !ok {
			merged = append(merged, day)
			continue
		}
		filled := NewDailyPlan(day.Date)
		for _, t := range AllMealTypes {
			if slot, ok := remote.Meals[t]; ok {
				filled.Meals[t] = slot
			}
		}
		merged = append(merged, filled)
	}
	return merged
}

// Day returns the plan entry for a date, if present.
func (w WeekPlan) Day(date string) (DailyPlan, bool) {
	for _, d := range w {
		if d.Date == date {
			return d, true
		}
	}
	return DailyPlan{}, false
}

// SetMeal returns a copy of the week plan with one slot replaced. The
// original plan is left untouched so callers can hold onto it for
// reverting. Unknown dates or meal types leave the plan unchanged.
func (w WeekPlan) SetMeal(date string, mealType MealType, recipeID string) WeekPlan {
	out := make(WeekPlan, 0, len(w))
	for _, day := range w {
		if day.Date != date || !mealType.Valid() {
			out = append(out, day)
			continue
		}
		updated := DailyPlan{Date: day.Date, Meals: make(map[MealType]MealSlot, len(day.Meals))}
		for t, s := range day.Meals {
			updated.Meals[t] = s
		}
		updated.Meals[mealType] = MealSlot{RecipeID: recipeID}
		out = append(out, updated)
	}
	return out
}
