package search

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Multi sends each query to several tools at once and merges the hits.
type Multi struct {
	tools []Tool
	log   *zap.Logger
}

// NewMulti combines tools. Results keep tool order.
func NewMulti(log *zap.Logger, tools ...Tool) *Multi {
	if log == nil {
		log = zap.NewNop()
	}
	return &Multi{tools: tools, log: log}
}

// Tools returns the combined tools.
func (m *Multi) Tools() []Tool { return m.tools }

func (m *Multi) Name() string { return "web_search" }

func (m *Multi) Description() string {
	names := make([]string, len(m.tools))
	for i, t := range m.tools {
		names[i] = t.Name()
	}
	return fmt.Sprintf("Search the web for current information (backends: %s).", strings.Join(names, ", "))
}

// Search queries every tool concurrently. A failing tool is logged and
// skipped; the call fails only when all of them fail.
func (m *Multi) Search(ctx context.Context, query string) ([]Result, error) {
	if len(m.tools) == 0 {
		return nil, ErrNoResults
	}

	perTool := make([][]Result, len(m.tools))
	errs := make([]error, len(m.tools))

	var g errgroup.Group
	g.SetLimit(4)
	for i, t := range m.tools {
		g.Go(func() error {
			res, err := t.Search(ctx, query)
			if err != nil {
				m.log.Warn("search tool failed", zap.String("tool", t.Name()), zap.Error(err))
				errs[i] = err
				return nil
			}
			perTool[i] = res
			return nil
		})
	}
	_ = g.Wait()

	failed := 0
	for _, err := range errs {
		if err != nil {
			failed++
		}
	}
	if failed == len(m.tools) {
		return nil, fmt.Errorf("all search tools failed: %w", errors.Join(errs...))
	}

	seen := make(map[string]bool)
	var merged []Result
	for _, res := range perTool {
		for _, r := range res {
			key := strings.TrimRight(r.URL, "/")
			if seen[key] {
				continue
			}
			seen[key] = true
			merged = append(merged, r)
		}
	}
	m.log.Debug("search merged", zap.String("query", query), zap.Int("results", len(merged)))
	return merged, nil
}
