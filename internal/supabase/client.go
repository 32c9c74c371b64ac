package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"smartplanner/internal/config"
	"smartplanner/internal/planner"
	"smartplanner/internal/recipe"
)

// Client speaks PostgREST against the hosted backend. Every call is
// scoped by the caller's session: row-level security on the backend is
// what enforces per-user isolation, the client just forwards the token.
type Client struct {
	baseURL    string
	anonKey    string
	httpClient *http.Client
}

// NewClient creates a new PostgREST client.
func NewClient(cfg *config.Config) *Client {
	return &Client{
		baseURL: cfg.SupabaseURL,
		anonKey: cfg.SupabaseAnonKey,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

func (c *Client) do(ctx context.Context, session *Session, method, path string, query url.Values, body interface{}, prefer string) ([]byte, error) {
	var reqBody io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewBuffer(jsonBody)
	}

	u := fmt.Sprintf("%s/rest/v1/%s", c.baseURL, path)
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("apikey", c.anonKey)
	req.Header.Set("Authorization", "Bearer "+session.AccessToken)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if prefer != "" {
		req.Header.Set("Prefer", prefer)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("rest api error: status=%d body=%s", resp.StatusCode, string(respBody))
	}

	return respBody, nil
}

// ListRecipes fetches the caller's full recipe catalog.
func (c *Client) ListRecipes(ctx context.Context, session *Session) ([]recipe.Recipe, error) {
	query := url.Values{}
	query.Set("select", "*")
	query.Set("order", "created_at.asc")

	data, err := c.do(ctx, session, "GET", "recipes", query, nil, "")
	if err != nil {
		return nil, fmt.Errorf("failed to fetch recipes: %w", err)
	}

	rows, err := decodeRows[recipeRow](data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode recipes: %w", err)
	}

	recipes := make([]recipe.Recipe, 0, len(rows))
	for _, row := range rows {
		recipes = append(recipes, rowToRecipe(row))
	}
	return recipes, nil
}

// InsertRecipe creates a new catalog row owned by the session user.
func (c *Client) InsertRecipe(ctx context.Context, session *Session, rec recipe.Recipe) error {
	row := recipeToRow(rec, session.UserID)
	if _, err := c.do(ctx, session, "POST", "recipes", nil, row, "return=minimal"); err != nil {
		return fmt.Errorf("failed to insert recipe: %w", err)
	}
	return nil
}

// UpdateRecipe replaces the stored columns of an existing recipe.
func (c *Client) UpdateRecipe(ctx context.Context, session *Session, rec recipe.Recipe) error {
	query := url.Values{}
	query.Set("id", "eq."+rec.ID)

	row := recipeToRow(rec, "")
	if _, err := c.do(ctx, session, "PATCH", "recipes", query, row, "return=minimal"); err != nil {
		return fmt.Errorf("failed to update recipe: %w", err)
	}
	return nil
}

// DeleteRecipe removes a recipe row. Meal plans referencing it are left
// alone; readers tolerate the dangling id.
func (c *Client) DeleteRecipe(ctx context.Context, session *Session, id string) error {
	query := url.Values{}
	query.Set("id", "eq."+id)

	if _, err := c.do(ctx, session, "DELETE", "recipes", query, nil, ""); err != nil {
		return fmt.Errorf("failed to delete recipe: %w", err)
	}
	return nil
}

// ListMealPlansFrom fetches the caller's plan rows dated from the given
// day (inclusive) onward.
func (c *Client) ListMealPlansFrom(ctx context.Context, session *Session, fromDate string) ([]planner.DailyPlan, error) {
	query := url.Values{}
	query.Set("select", "*")
	query.Set("date", "gte."+fromDate)
	query.Set("order", "date.asc")

	data, err := c.do(ctx, session, "GET", "meal_plans", query, nil, "")
	if err != nil {
		return nil, fmt.Errorf("failed to fetch meal plans: %w", err)
	}

	rows, err := decodeRows[mealPlanRow](data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode meal plans: %w", err)
	}

	days := make([]planner.DailyPlan, 0, len(rows))
	for _, row := range rows {
		days = append(days, rowToDailyPlan(row))
	}
	return days, nil
}

// UpsertMealPlan writes a whole day's meals, keyed by (date, user).
func (c *Client) UpsertMealPlan(ctx context.Context, session *Session, day planner.DailyPlan) error {
	query := url.Values{}
	query.Set("on_conflict", "date,user_id")

	row := dailyPlanToRow(day, session.UserID)
	prefer := "resolution=merge-duplicates,return=minimal"
	if _, err := c.do(ctx, session, "POST", "meal_plans", query, row, prefer); err != nil {
		return fmt.Errorf("failed to upsert meal plan: %w", err)
	}
	return nil
}
