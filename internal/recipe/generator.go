package recipe

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"smartplanner/internal/llm"
	"smartplanner/internal/shared"
)

// DraftIngredient is an ingredient as produced by the model, before it
// gets an id assigned.
type DraftIngredient struct {
	Name   string  `json:"name"`
	Amount float64 `json:"amount"`
	Unit   string  `json:"unit"`
}

// Draft is a partially filled recipe produced by the AI collaborator.
// Pointer fields distinguish "absent from the response" from zero values,
// so absent fields fall back to whatever the caller already has.
type Draft struct {
	Title        *string           `json:"title"`
	Description  *string           `json:"description"`
	Ingredients  []DraftIngredient `json:"ingredients"`
	Instructions []string          `json:"instructions"`
	PrepTime     *int              `json:"prepTime"`
	CookTime     *int              `json:"cookTime"`
	Servings     *int              `json:"servings"`
}

var fenceRe = regexp.MustCompile("```json\n?|\n?```")

const draftPromptFormat = `You are a helpful cooking assistant.
Generate a recipe based on the user's request.
Return ONLY valid JSON matching this structure:
{
  "title": "Recipe Title",
  "description": "Short description",
  "ingredients": [
    { "name": "ingredient name", "amount": number, "unit": "unit (e.g. g, ml, cup, tbsp, piece)" }
  ],
  "instructions": ["Step 1", "Step 2"],
  "prepTime": number (minutes),
  "cookTime": number (minutes),
  "servings": number
}
Do not include markdown formatting or backticks. Just the raw JSON.

User request: %s`

// GenerateDraft asks the text generator to produce a recipe draft from a
// free-text description. Markdown code fences are stripped before parsing,
// since models occasionally ignore the formatting instruction.
func GenerateDraft(ctx context.Context, textGen llm.TextGenerator, prompt string) (*Draft, shared.AgentMeta, error) {
	resp, err := textGen.GenerateContent(ctx, fmt.Sprintf(draftPromptFormat, prompt))
	meta := shared.AgentMeta{AgentName: "RecipeDraft", Usage: resp.Usage}
	if err != nil {
		return nil, meta, fmt.Errorf("failed to generate recipe: %w", err)
	}

	jsonStr := strings.TrimSpace(fenceRe.ReplaceAllString(resp.Content, ""))

	var draft Draft
	if err := json.Unmarshal([]byte(jsonStr), &draft); err != nil {
		return nil, meta, fmt.Errorf("failed to parse AI response as JSON: %w", err)
	}

	return &draft, meta, nil
}

// Apply merges the draft onto a base recipe. Fields the model did not
// return keep the base values. The result carries the base's id (or a new
// one if the base had none) and fresh per-recipe ingredient ids.
func (d *Draft) Apply(base Recipe) Recipe {
	out := base
	if out.ID == "" {
		out.ID = NewID()
	}
	if d.Title != nil {
		out.Title = *d.Title
	}
	if d.Description != nil {
		out.Description = *d.Description
	}
	if d.PrepTime != nil {
		out.PrepTime = *d.PrepTime
	}
	if d.CookTime != nil {
		out.CookTime = *d.CookTime
	}
	if d.Servings != nil {
		out.Servings = *d.Servings
	}
	if len(d.Ingredients) > 0 {
		out.Ingredients = make([]Ingredient, 0, len(d.Ingredients))
		for i, ing := range d.Ingredients {
			out.Ingredients = append(out.Ingredients, Ingredient{
				ID:     fmt.Sprintf("%d", i+1),
				Name:   ing.Name,
				Amount: ing.Amount,
				Unit:   ing.Unit,
			})
		}
	}
	if len(d.Instructions) > 0 {
		out.Instructions = append([]string(nil), d.Instructions...)
	}
	return out
}
