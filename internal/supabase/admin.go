package supabase

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"smartplanner/internal/config"
	"smartplanner/internal/recipe"
)

//go:embed schema.sql
var schemaSQL string

const managementAPIURL = "https://api.supabase.com"

var projectRefRe = regexp.MustCompile(`https://([^.]+)\.supabase\.co`)

// Admin runs SQL against the project through the Supabase Management API.
// It needs a personal access token and is only used by the provisioning
// commands, never at runtime.
type Admin struct {
	accessToken string
	projectRef  string
	baseURL     string
	httpClient  *http.Client
}

// NewAdmin creates a Management API client for the configured project.
func NewAdmin(cfg *config.Config) (*Admin, error) {
	if cfg.SupabaseAccessToken == "" {
		return nil, fmt.Errorf("SUPABASE_ACCESS_TOKEN environment variable not set")
	}

	m := projectRefRe.FindStringSubmatch(cfg.SupabaseURL)
	if m == nil {
		return nil, fmt.Errorf("could not extract project ref from %q", cfg.SupabaseURL)
	}

	return &Admin{
		accessToken: cfg.SupabaseAccessToken,
		projectRef:  m[1],
		baseURL:     managementAPIURL,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}, nil
}

// ExecSQL runs a query via the Management API SQL endpoint and returns
// the raw result rows.
func (a *Admin) ExecSQL(ctx context.Context, query string) ([]byte, error) {
	body, err := json.Marshal(map[string]string{"query": query})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal query: %w", err)
	}

	url := fmt.Sprintf("%s/v1/projects/%s/sql", a.baseURL, a.projectRef)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+a.accessToken)

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("management api error: status=%d body=%s", resp.StatusCode, string(respBody))
	}

	return respBody, nil
}

// Provision applies the embedded schema and verifies both tables exist.
func (a *Admin) Provision(ctx context.Context) error {
	if _, err := a.ExecSQL(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}

	data, err := a.ExecSQL(ctx, "SELECT table_name FROM information_schema.tables WHERE table_schema = 'public';")
	if err != nil {
		return fmt.Errorf("failed to verify tables: %w", err)
	}

	var rows []struct {
		TableName string `json:"table_name"`
	}
	// The SQL endpoint returns either a bare array of rows or {"result": [...]}
	// depending on API version.
	if err := json.Unmarshal(data, &rows); err != nil {
		var wrapped struct {
			Result []struct {
				TableName string `json:"table_name"`
			} `json:"result"`
		}
		if err := json.Unmarshal(data, &wrapped); err != nil {
			return fmt.Errorf("failed to decode verification result: %w", err)
		}
		rows = wrapped.Result
	}

	found := map[string]bool{}
	for _, r := range rows {
		found[r.TableName] = true
	}
	if !found["recipes"] || !found["meal_plans"] {
		return fmt.Errorf("verification failed: missing tables (found %v)", found)
	}
	return nil
}

// Seed inserts the starter recipes with no owner, making them visible to
// every user under the public-recipes policy. Running a superuser query
// through the Management API bypasses row-level security.
func (a *Admin) Seed(ctx context.Context) error {
	for _, rec := range StarterRecipes() {
		stmt, err := seedInsert(rec)
		if err != nil {
			return fmt.Errorf("failed to build seed statement for %q: %w", rec.Title, err)
		}
		if _, err := a.ExecSQL(ctx, stmt); err != nil {
			return fmt.Errorf("failed to seed recipe %q: %w", rec.Title, err)
		}
	}
	return nil
}

func seedInsert(rec recipe.Recipe) (string, error) {
	row := recipeToRow(rec, "")
	ingredients, err := json.Marshal(row.Ingredients)
	if err != nil {
		return "", err
	}
	instructions, err := json.Marshal(row.Instructions)
	if err != nil {
		return "", err
	}

	// Dollar-quoting sidesteps escaping inside titles and JSON payloads.
	quote := func(s string) string { return "$sp$" + s + "$sp$" }
	if strings.Contains(rec.Title+rec.Description+string(ingredients)+string(instructions)+rec.ImageURL, "$sp$") {
		return "", fmt.Errorf("seed data contains the quote tag")
	}

	return fmt.Sprintf(`INSERT INTO public.recipes (title, description, ingredients, instructions, prep_time, cook_time, servings, image_url)
VALUES (%s, %s, %s::jsonb, %s::jsonb, %d, %d, %d, %s);`,
		quote(rec.Title), quote(rec.Description), quote(string(ingredients)), quote(string(instructions)),
		rec.PrepTime, rec.CookTime, rec.Servings, quote(rec.ImageURL)), nil
}

// StarterRecipes returns the seed catalog shown to fresh installs.
func StarterRecipes() []recipe.Recipe {
	return []recipe.Recipe{
		{
			ID:          recipe.NewID(),
			Title:       "Spaghetti Carbonara",
			Description: "Classic Italian pasta dish with eggs, cheese, pancetta, and black pepper.",
			Ingredients: []recipe.Ingredient{
				{ID: "1", Name: "Spaghetti", Amount: 400, Unit: "g"},
				{ID: "2", Name: "Pancetta", Amount: 150, Unit: "g"},
				{ID: "3", Name: "Eggs", Amount: 4, Unit: "large"},
				{ID: "4", Name: "Pecorino Cheese", Amount: 100, Unit: "g"},
			},
			Instructions: []string{"Boil pasta", "Fry pancetta", "Mix eggs and cheese", "Combine all"},
			PrepTime:     10,
			CookTime:     15,
			Servings:     4,
			ImageURL:     "https://images.unsplash.com/photo-1612874742237-6526221588e3?auto=format&fit=crop&w=800&q=80",
		},
		{
			ID:          recipe.NewID(),
			Title:       "Chicken Stir Fry",
			Description: "Quick and healthy vegetable and chicken stir fry.",
			Ingredients: []recipe.Ingredient{
				{ID: "1", Name: "Chicken Breast", Amount: 500, Unit: "g"},
				{ID: "2", Name: "Bell Peppers", Amount: 2, Unit: "whole"},
				{ID: "3", Name: "Soy Sauce", Amount: 3, Unit: "tbsp"},
				{ID: "4", Name: "Rice", Amount: 200, Unit: "g"},
			},
			Instructions: []string{"Cook rice", "Fry chicken", "Add veggies", "Add sauce"},
			PrepTime:     15,
			CookTime:     10,
			Servings:     2,
			ImageURL:     "https://images.unsplash.com/photo-1512058564366-18510be2db19?auto=format&fit=crop&w=800&q=80",
		},
	}
}
