package search

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/net/html"
)

// DuckDuckGoURL is the keyless HTML search endpoint.
const DuckDuckGoURL = "https://html.duckduckgo.com/html/"

const ddgRedirectPrefix = "//duckduckgo.com/l/?uddg="

// DuckDuckGo scrapes DuckDuckGo's HTML results page. It needs no key.
type DuckDuckGo struct {
	Endpoint string
	Client   *http.Client
}

// NewDuckDuckGo returns the keyless search tool.
func NewDuckDuckGo() *DuckDuckGo {
	return &DuckDuckGo{Endpoint: DuckDuckGoURL}
}

func (d *DuckDuckGo) Name() string { return "duckduckgo_search" }

func (d *DuckDuckGo) Description() string {
	return "Search the web with DuckDuckGo. Use when other search tools are unavailable."
}

// Search fetches and parses one results page.
func (d *DuckDuckGo) Search(ctx context.Context, query string) ([]Result, error) {
	endpoint := d.Endpoint
	if endpoint == "" {
		endpoint = DuckDuckGoURL
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?q="+url.QueryEscape(query), nil)
	if err != nil {
		return nil, fmt.Errorf("duckduckgo: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (X11; Linux x86_64) recommender")
	req.Header.Set("Accept", "text/html")

	res, err := newHTTPClient(d.Client).Do(req)
	if err != nil {
		return nil, fmt.Errorf("duckduckgo: %w", err)
	}
	defer res.Body.Close()
	if err := checkStatus("duckduckgo", res); err != nil {
		return nil, err
	}
	results, err := parseDuckDuckGo(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return nil, err
	}
	for i := range results {
		results[i].Source = d.Name()
	}
	return results, nil
}

// parseDuckDuckGo walks the document for result blocks. Each block holds a
// result__a anchor (title and link) and an optional result__snippet.
func parseDuckDuckGo(r io.Reader) ([]Result, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("duckduckgo: parsing html: %w", err)
	}

	var results []Result
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if len(results) >= maxResults {
			return
		}
		if n.Type == html.ElementNode && n.Data == "div" && hasClass(n, "result") {
			if res := resultFrom(n); res.URL != "" && res.Title != "" {
				results = append(results, res)
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return results, nil
}

func resultFrom(block *html.Node) Result {
	var res Result
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch {
			case hasClass(n, "result__a"):
				res.Title = textOf(n)
				res.URL = unwrapRedirect(attr(n, "href"))
			case hasClass(n, "result__snippet"):
				res.Snippet = textOf(n)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(block)
	return res
}

// unwrapRedirect extracts the target from DuckDuckGo's click-tracking link.
func unwrapRedirect(href string) string {
	if !strings.HasPrefix(href, ddgRedirectPrefix) {
		return href
	}
	rest := strings.TrimPrefix(href, ddgRedirectPrefix)
	if i := strings.IndexByte(rest, '&'); i >= 0 {
		rest = rest[:i]
	}
	target, err := url.QueryUnescape(rest)
	if err != nil {
		return href
	}
	return target
}

func hasClass(n *html.Node, class string) bool {
	for _, f := range strings.Fields(attr(n, "class")) {
		if f == class {
			return true
		}
	}
	return false
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func textOf(n *html.Node) string {
	var parts []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			if s := strings.TrimSpace(n.Data); s != "" {
				parts = append(parts, s)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.Join(parts, " ")
}
