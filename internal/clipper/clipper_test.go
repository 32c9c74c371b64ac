package clipper

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"unicode/utf8"

	"smartplanner/internal/llm"
)

type MockTextGenerator struct {
	Response    string
	LastPrompt  string
	ShouldError bool
}

func (m *MockTextGenerator) GenerateContent(ctx context.Context, prompt string) (llm.ContentResponse, error) {
	m.LastPrompt = prompt
	if m.ShouldError {
		return llm.ContentResponse{}, fmt.Errorf("mock ai error")
	}
	return llm.ContentResponse{Content: m.Response}, nil
}

func TestFetchAndCleanHTML(t *testing.T) {
	// 1. Setup a test server serving dirty HTML
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		html := `
		<html>
			<head><script>alert('bad');</script></head>
			<body>
				<h1>Tasty Recipe</h1>
				<div class="ads">Buy stuff!</div>
				<p>Mix flour and water.</p>
				<script>more_bad_stuff()</script>
				<footer>Copyright 2024</footer>
			</body>
		</html>`
		w.Write([]byte(html))
	}))
	defer ts.Close()

	c := NewClipper(&MockTextGenerator{})

	cleanText, err := c.fetchAndCleanHTML(context.Background(), ts.URL)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if strings.Contains(cleanText, "alert('bad')") {
		t.Error("Failed to remove <script> tags")
	}
	if strings.Contains(cleanText, "Buy stuff!") {
		t.Error("Failed to remove .ads class")
	}
	if strings.Contains(cleanText, "Copyright 2024") {
		t.Error("Failed to remove <footer>")
	}
	if !strings.Contains(cleanText, "Mix flour and water.") {
		t.Error("Expected body text to survive cleaning")
	}
}

func TestClipURL(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><body><h1>Tomato Soup</h1><p>2 tomatoes, 1 onion.</p></body></html>`))
	}))
	defer ts.Close()

	gen := &MockTextGenerator{
		Response: `{
			"title": "Tomato Soup",
			"description": "Simple soup",
			"ingredients": [{"name": "tomato", "amount": 2, "unit": "whole"}],
			"instructions": ["Chop", "Simmer"],
			"prepTime": 10,
			"cookTime": 20,
			"servings": 2
		}`,
	}
	c := NewClipper(gen)

	draft, meta, err := c.ClipURL(context.Background(), ts.URL)
	if err != nil {
		t.Fatalf("ClipURL failed: %v", err)
	}
	if meta.AgentName != "Clipper" {
		t.Errorf("Expected agent name 'Clipper', got %q", meta.AgentName)
	}
	if draft.Title == nil || *draft.Title != "Tomato Soup" {
		t.Errorf("Unexpected draft title: %v", draft.Title)
	}
	if len(draft.Ingredients) != 1 || draft.Ingredients[0].Name != "tomato" {
		t.Errorf("Unexpected draft ingredients: %v", draft.Ingredients)
	}
	if !strings.Contains(gen.LastPrompt, "Tomato Soup") {
		t.Error("Expected page text to be included in the prompt")
	}
}

func TestTruncateContent(t *testing.T) {
	t.Run("ShortInputUntouched", func(t *testing.T) {
		if got := truncateContent("hello", 10); got != "hello" {
			t.Errorf("Expected input unchanged, got %q", got)
		}
	})

	t.Run("CutsOnRuneBoundary", func(t *testing.T) {
		// "é" is two bytes; a limit landing inside it must back up.
		in := "café"
		got := truncateContent(in, 4)
		if got != "caf" {
			t.Errorf("Expected %q, got %q", "caf", got)
		}
		if !utf8.ValidString(got) {
			t.Errorf("Truncated content is not valid UTF-8: %q", got)
		}
	})

	t.Run("LongMultibyteInputStaysValid", func(t *testing.T) {
		in := strings.Repeat("é", 100)
		for limit := 1; limit < 10; limit++ {
			if got := truncateContent(in, limit); !utf8.ValidString(got) {
				t.Errorf("Invalid UTF-8 at limit %d: %q", limit, got)
			}
		}
	})
}

func TestClipURLFetchFailure(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer ts.Close()

	c := NewClipper(&MockTextGenerator{})
	if _, _, err := c.ClipURL(context.Background(), ts.URL); err == nil {
		t.Fatal("Expected error for a 404 page")
	}
}
