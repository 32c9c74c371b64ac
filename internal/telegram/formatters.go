package telegram

import (
	"fmt"
	"strconv"
	"strings"

	"smartplanner/internal/planner"
	"smartplanner/internal/recipe"
	"smartplanner/internal/shopping"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

func formatWeek(week planner.WeekPlan, catalog []recipe.Recipe) string {
	var sb strings.Builder
	sb.WriteString("📅 *This Week*\n\n")

	for _, day := range week {
		sb.WriteString(fmt.Sprintf("*%s*\n", day.Date))
		for _, mealType := range planner.AllMealTypes {
			slot := day.Meals[mealType]
			if slot.Empty() {
				continue
			}
			title := "—"
			if rec, found := recipe.FindByID(catalog, slot.RecipeID); found {
				title = rec.Title
			}
			sb.WriteString(fmt.Sprintf("  %s: %s\n", mealType, title))
		}
		sb.WriteString("\n")
	}

	return sb.String()
}

func formatRecipes(recipes []recipe.Recipe) string {
	if len(recipes) == 0 {
		return "📖 *Recipes*\n\n_No recipes yet. Send me a description or a URL to add one._"
	}

	var sb strings.Builder
	sb.WriteString("📖 *Recipes*\n\n")
	for i, rec := range recipes {
		sb.WriteString(fmt.Sprintf("%d. *%s*", i+1, rec.Title))
		if rec.TotalTime() > 0 {
			sb.WriteString(fmt.Sprintf(" (%d min)", rec.TotalTime()))
		}
		sb.WriteString("\n")
	}
	sb.WriteString("\nAssign with /assign <date> <meal> <number>, clear with 0.")
	return sb.String()
}

func formatShoppingList(entries []shopping.Entry, checklist *shopping.Checklist) string {
	if len(entries) == 0 {
		return "🛒 *Shopping List*\n\n_Empty. Assign some meals first._"
	}

	var sb strings.Builder
	sb.WriteString("🛒 *Shopping List*\n\n")
	for _, entry := range entries {
		mark := "◻️"
		if checklist.Checked(entry.ID) {
			mark = "✅"
		}
		// Zero-amount entries stay listed but show no quantity.
		if entry.Amount == 0 {
			sb.WriteString(fmt.Sprintf("%s %s\n", mark, entry.Name))
			continue
		}
		sb.WriteString(fmt.Sprintf("%s %s — %s %s\n", mark, entry.Name, formatAmount(entry.Amount), entry.Unit))
	}
	sb.WriteString("\nTap an item below to tick it off.")
	return sb.String()
}

// shoppingKeyboard builds one toggle button per entry. Callback data is
// limited to 64 bytes, so long keys are truncated; such entries simply
// lose their button.
func shoppingKeyboard(entries []shopping.Entry, checklist *shopping.Checklist) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	for _, entry := range entries {
		data := "check|" + entry.ID
		if len(data) > 64 {
			continue
		}
		label := entry.Name
		if checklist.Checked(entry.ID) {
			label = "✅ " + label
		}
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(label, data),
		))
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

// assignKeyboard offers one button per recipe for a given slot, plus a
// clear option. Callback data carries the whole assignment:
// "meal|date|type|recipeID" stays under the 64-byte limit with UUID ids.
func assignKeyboard(date string, mealType planner.MealType, recipes []recipe.Recipe) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	for _, rec := range recipes {
		data := fmt.Sprintf("meal|%s|%s|%s", date, mealType, rec.ID)
		if len(data) > 64 {
			continue
		}
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(rec.Title, data),
		))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("✖️ Clear slot", fmt.Sprintf("meal|%s|%s|", date, mealType)),
	))
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func formatRecipeSaved(rec recipe.Recipe) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("✅ *Recipe Saved!*\n\n*%s*\n", rec.Title))
	if rec.Description != "" {
		sb.WriteString(fmt.Sprintf("_%s_\n", rec.Description))
	}
	sb.WriteString(fmt.Sprintf("\n⏱ Prep %d min, cook %d min, serves %d\n", rec.PrepTime, rec.CookTime, rec.Servings))
	sb.WriteString(fmt.Sprintf("🧾 %d ingredients, %d steps\n", len(rec.Ingredients), len(rec.Instructions)))
	return sb.String()
}

// formatAmount renders amounts without trailing zeros: 2 not 2.000000,
// but 0.5 stays 0.5.
func formatAmount(amount float64) string {
	return strconv.FormatFloat(amount, 'f', -1, 64)
}
