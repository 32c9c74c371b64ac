package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"smartplanner/internal/config"
	"smartplanner/internal/shared"
)

const (
	openRouterAPIURL = "https://openrouter.ai/api/v1/chat/completions"
	openRouterModel  = "openai/gpt-3.5-turbo"
)

// openRouterClient is a client for the OpenRouter API (OpenAI wire format).
type openRouterClient struct {
	apiKey     string
	siteURL    string
	siteName   string
	baseURL    string
	httpClient *http.Client
}

// NewOpenRouterClient creates a new OpenRouter API client.
func NewOpenRouterClient(cfg *config.Config) TextGenerator {
	return &openRouterClient{
		apiKey:   cfg.OpenRouterAPIKey,
		siteURL:  cfg.SiteURL,
		siteName: cfg.SiteName,
		baseURL:  openRouterAPIURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// GenerateContent sends a prompt to the OpenRouter model and returns the
// generated text along with token usage.
func (c *openRouterClient) GenerateContent(ctx context.Context, prompt string) (ContentResponse, error) {
	reqBody := map[string]interface{}{
		"model": openRouterModel,
		"messages": []map[string]string{
			{
				"role":    "user",
				"content": prompt,
			},
		},
		"temperature": 0.3,
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return ContentResponse{}, fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL, bytes.NewBuffer(jsonBody))
	if err != nil {
		return ContentResponse{}, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	// OpenRouter uses these for app attribution on their dashboard.
	if c.siteURL != "" {
		req.Header.Set("HTTP-Referer", c.siteURL)
	}
	req.Header.Set("X-Title", c.siteName)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return ContentResponse{}, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return ContentResponse{}, fmt.Errorf("openrouter api error: status=%d body=%s", resp.StatusCode, string(bodyBytes))
	}

	var orResp struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
		Usage struct {
			PromptTokens     int `json:"prompt_tokens"`
			CompletionTokens int `json:"completion_tokens"`
			TotalTokens      int `json:"total_tokens"`
		} `json:"usage"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&orResp); err != nil {
		return ContentResponse{}, fmt.Errorf("failed to decode response: %w", err)
	}

	if len(orResp.Choices) == 0 {
		return ContentResponse{}, fmt.Errorf("no content generated")
	}

	return ContentResponse{
		Content: orResp.Choices[0].Message.Content,
		Usage: shared.TokenUsage{
			PromptTokens:     orResp.Usage.PromptTokens,
			CompletionTokens: orResp.Usage.CompletionTokens,
			TotalTokens:      orResp.Usage.TotalTokens,
			Model:            openRouterModel,
		},
	}, nil
}
