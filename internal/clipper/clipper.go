package clipper

import (
	"context"
	"fmt"
	"net/http"
	"time"
	"unicode/utf8"

	"smartplanner/internal/llm"
	"smartplanner/internal/recipe"
	"smartplanner/internal/shared"

	"github.com/PuerkitoBio/goquery"
)

// Cap the page text handed to the model.
const maxContentLen = 12000

// Clipper imports recipes from web pages: fetch, strip the noise, and let
// the model structure what is left into a recipe draft.
type Clipper struct {
	textGen    llm.TextGenerator
	httpClient *http.Client
}

// NewClipper creates a new Clipper instance.
func NewClipper(textGen llm.TextGenerator) *Clipper {
	return &Clipper{
		textGen: textGen,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// ClipURL fetches the URL and extracts a recipe draft from its content.
func (c *Clipper) ClipURL(ctx context.Context, url string) (*recipe.Draft, shared.AgentMeta, error) {
	content, err := c.fetchAndCleanHTML(ctx, url)
	if err != nil {
		return nil, shared.AgentMeta{}, fmt.Errorf("failed to fetch content: %w", err)
	}
	content = truncateContent(content, maxContentLen)

	prompt := fmt.Sprintf("Extract the recipe from the following web page content:\n\n%s", content)
	draft, meta, err := recipe.GenerateDraft(ctx, c.textGen, prompt)
	if err != nil {
		return nil, meta, err
	}
	meta.AgentName = "Clipper"
	return draft, meta, nil
}

// truncateContent cuts the text at a rune boundary so the prompt never
// carries a torn multi-byte character.
func truncateContent(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	for limit > 0 && !utf8.RuneStart(s[limit]) {
		limit--
	}
	return s[:limit]
}

func (c *Clipper) fetchAndCleanHTML(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return "", err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("failed to fetch URL: status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return "", err
	}

	// Remove noise to save LLM tokens
	doc.Find("script, style, nav, footer, iframe, ads, .ads, #ads").Each(func(i int, s *goquery.Selection) {
		s.Remove()
	})

	return doc.Find("body").Text(), nil
}
