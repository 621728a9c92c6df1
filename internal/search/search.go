// Package search provides the web-search tools the agents call: Serper,
// Tavily and keyless DuckDuckGo, plus a concurrent fan-out over several.
package search

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ErrNoResults is returned by Multi when every tool came back empty-handed.
var ErrNoResults = errors.New("no search results")

// Result is one hit.
type Result struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
	Source  string `json:"source"`
}

// Tool is a web search backend.
type Tool interface {
	Name() string
	Description() string
	Search(ctx context.Context, query string) ([]Result, error)
}

// DefaultTimeout bounds a single search request.
const DefaultTimeout = 30 * time.Second

// maxResults caps results per tool.
const maxResults = 10

func newHTTPClient(c *http.Client) *http.Client {
	if c != nil {
		return c
	}
	return &http.Client{Timeout: DefaultTimeout}
}

// checkStatus turns a non-2xx response into an error carrying the body.
func checkStatus(tool string, res *http.Response) error {
	if res.StatusCode >= 200 && res.StatusCode < 300 {
		return nil
	}
	b, _ := io.ReadAll(io.LimitReader(res.Body, 4*1024))
	return fmt.Errorf("%s: HTTP %d: %s", tool, res.StatusCode, strings.TrimSpace(string(b)))
}

// Format renders results as the markdown observation handed back to the model.
func Format(query string, results []Result) string {
	if len(results) == 0 {
		return "No results found for: " + query
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "# Search Results for: %s\n\n", query)
	for i, r := range results {
		fmt.Fprintf(&sb, "## %d. %s\n", i+1, r.Title)
		fmt.Fprintf(&sb, "**URL:** %s\n", r.URL)
		if r.Snippet != "" {
			fmt.Fprintf(&sb, "\n%s\n", r.Snippet)
		}
		sb.WriteString("\n---\n\n")
	}
	return sb.String()
}
