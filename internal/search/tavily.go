package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// TavilyURL is the Tavily search endpoint.
const TavilyURL = "https://api.tavily.com/search"

// Tavily searches through the Tavily research API.
type Tavily struct {
	APIKey   string
	Endpoint string
	Client   *http.Client
}

// NewTavily returns a Tavily tool for apiKey.
func NewTavily(apiKey string) *Tavily {
	return &Tavily{APIKey: apiKey, Endpoint: TavilyURL}
}

func (t *Tavily) Name() string { return "tavily_search" }

func (t *Tavily) Description() string {
	return "Search the web with Tavily for travel guides, itineraries and local recommendations."
}

type tavilyRequest struct {
	APIKey      string `json:"api_key"`
	Query       string `json:"query"`
	SearchDepth string `json:"search_depth"`
	MaxResults  int    `json:"max_results"`
}

type tavilyResponse struct {
	Results []struct {
		Title   string  `json:"title"`
		URL     string  `json:"url"`
		Content string  `json:"content"`
		Score   float64 `json:"score"`
	} `json:"results"`
}

// Search posts query to Tavily.
func (t *Tavily) Search(ctx context.Context, query string) ([]Result, error) {
	if t.APIKey == "" {
		return nil, fmt.Errorf("tavily: TAVILY_API_KEY not set")
	}
	body, err := json.Marshal(tavilyRequest{APIKey: t.APIKey, Query: query, SearchDepth: "basic", MaxResults: maxResults})
	if err != nil {
		return nil, err
	}
	endpoint := t.Endpoint
	if endpoint == "" {
		endpoint = TavilyURL
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("tavily: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+t.APIKey)
	req.Header.Set("Content-Type", "application/json")

	res, err := newHTTPClient(t.Client).Do(req)
	if err != nil {
		return nil, fmt.Errorf("tavily: %w", err)
	}
	defer res.Body.Close()
	if err := checkStatus("tavily", res); err != nil {
		return nil, err
	}

	var tr tavilyResponse
	if err := json.NewDecoder(res.Body).Decode(&tr); err != nil {
		return nil, fmt.Errorf("tavily: decoding response: %w", err)
	}
	results := make([]Result, 0, len(tr.Results))
	for _, r := range tr.Results {
		if r.URL == "" {
			continue
		}
		results = append(results, Result{
			Title:   strings.TrimSpace(r.Title),
			URL:     r.URL,
			Snippet: strings.TrimSpace(r.Content),
			Source:  t.Name(),
		})
	}
	return results, nil
}
