package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// SerperURL is the Serper Google search endpoint.
const SerperURL = "https://google.serper.dev/search"

// Serper searches Google through serper.dev.
type Serper struct {
	APIKey   string
	Endpoint string
	Client   *http.Client
}

// NewSerper returns a Serper tool for apiKey.
func NewSerper(apiKey string) *Serper {
	return &Serper{APIKey: apiKey, Endpoint: SerperURL}
}

func (s *Serper) Name() string { return "serper_search" }

func (s *Serper) Description() string {
	return "Search Google for current information about destinations, prices, weather and events."
}

type serperResponse struct {
	Organic []struct {
		Title   string `json:"title"`
		Link    string `json:"link"`
		Snippet string `json:"snippet"`
	} `json:"organic"`
}

// Search posts query to Serper and returns the organic results.
func (s *Serper) Search(ctx context.Context, query string) ([]Result, error) {
	if s.APIKey == "" {
		return nil, fmt.Errorf("serper: SERPER_API_KEY not set")
	}
	body, err := json.Marshal(map[string]any{"q": query, "num": maxResults})
	if err != nil {
		return nil, err
	}
	endpoint := s.Endpoint
	if endpoint == "" {
		endpoint = SerperURL
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("serper: %w", err)
	}
	req.Header.Set("X-API-KEY", s.APIKey)
	req.Header.Set("Content-Type", "application/json")

	res, err := newHTTPClient(s.Client).Do(req)
	if err != nil {
		return nil, fmt.Errorf("serper: %w", err)
	}
	defer res.Body.Close()
	if err := checkStatus("serper", res); err != nil {
		return nil, err
	}

	var sr serperResponse
	if err := json.NewDecoder(res.Body).Decode(&sr); err != nil {
		return nil, fmt.Errorf("serper: decoding response: %w", err)
	}
	results := make([]Result, 0, len(sr.Organic))
	for _, o := range sr.Organic {
		if o.Link == "" {
			continue
		}
		results = append(results, Result{
			Title:   strings.TrimSpace(o.Title),
			URL:     o.Link,
			Snippet: strings.TrimSpace(o.Snippet),
			Source:  s.Name(),
		})
	}
	return results, nil
}
