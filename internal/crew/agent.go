// Package crew runs tool-using language-model agents and chains them into
// the two-stage recommendation pipeline. Executors narrate their work to an
// io.Writer in the verbose agent-log format the stream adapter understands.
package crew

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/dkoosis/recommender/internal/llm"
	"github.com/dkoosis/recommender/internal/search"
	"github.com/dkoosis/recommender/internal/trip"
)

// ErrMaxIterations is returned when an agent never settles on an answer.
var ErrMaxIterations = errors.New("agent stopped after reaching max iterations")

// Invoker produces a recommendation for a set of trip parameters.
// Run blocks until every stage has finished.
type Invoker interface {
	Run(ctx context.Context, p trip.Params) (string, error)
}

// InvokerFunc adapts a function to Invoker.
type InvokerFunc func(ctx context.Context, p trip.Params) (string, error)

func (f InvokerFunc) Run(ctx context.Context, p trip.Params) (string, error) { return f(ctx, p) }

// Agent is a role-playing model with tools.
type Agent struct {
	Role            string
	Goal            string
	Backstory       string
	Tools           []Tool
	LLM             llm.Client
	AllowDelegation bool
	Verbose         bool
}

// Task is one unit of work for an agent. Context carries the output of
// earlier tasks.
type Task struct {
	Description    string
	ExpectedOutput string
	Agent          *Agent
	Context        string
}

// Tool is something an agent can call. Args is the raw JSON the model sent.
type Tool interface {
	Definition() llm.ToolDef
	Call(ctx context.Context, args string) (string, error)
}

// SearchTool exposes a search backend to agents.
type SearchTool struct {
	search.Tool
}

// FromSearch wraps a search backend as an agent tool.
func FromSearch(t search.Tool) Tool { return SearchTool{Tool: t} }

func (s SearchTool) Definition() llm.ToolDef {
	return llm.ToolDef{
		Name:        s.Name(),
		Description: s.Description(),
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"query": map[string]any{"type": "string", "description": "The search query"},
			},
			"required": []string{"query"},
		},
	}
}

// Call runs the search and formats the hits as the observation.
func (s SearchTool) Call(ctx context.Context, args string) (string, error) {
	query := queryFrom(args)
	if query == "" {
		return "", errors.New("query is required")
	}
	results, err := s.Search(ctx, query)
	if err != nil {
		return "", err
	}
	return search.Format(query, results), nil
}

// queryFrom accepts the argument spellings small models tend to produce,
// falling back to the raw text when it is not JSON.
func queryFrom(args string) string {
	var m map[string]any
	if err := json.Unmarshal([]byte(args), &m); err != nil {
		return strings.TrimSpace(args)
	}
	for _, k := range []string{"query", "search_query", "q"} {
		if v, ok := m[k].(string); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
