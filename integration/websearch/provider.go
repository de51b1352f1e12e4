// Package websearch is a reference Integration that queries a generic
// HTML search results page and scrapes result links with
// golang.org/x/net/html, standing in for a "Brave Search"-shaped
// external source. It is runnable without an API key against any
// search endpoint that returns an HTML results page: every anchor with
// an absolute http(s) href and non-empty text counts as a result.
package websearch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/html"

	"github.com/BrianMills2718/OSINT-sub007/integration"
	"github.com/BrianMills2718/OSINT-sub007/llm"
)

// Provider queries its endpoint with a "q" parameter and scrapes anchors
// whose href starts with "http://" or "https://".
type Provider struct {
	id          string
	displayName string
	endpoint    string
	httpClient  *http.Client

	// gateway is optional. When set, GenerateQuery asks the LLM Gateway
	// to tailor the search string via the hypothesis_query_generation
	// template; when nil, it falls back to the plain heuristic below.
	gateway *llm.Gateway
}

// New builds a websearch adapter against endpoint (a URL template the
// query is appended to as "?q=..."). timeout bounds each ExecuteSearch
// call.
func New(id, displayName, endpoint string, timeout time.Duration) *Provider {
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &Provider{
		id:          id,
		displayName: displayName,
		endpoint:    endpoint,
		httpClient:  &http.Client{Timeout: timeout},
	}
}

// NewWithGateway is New plus an LLM Gateway for query tailoring.
func NewWithGateway(id, displayName, endpoint string, timeout time.Duration, gateway *llm.Gateway) *Provider {
	p := New(id, displayName, endpoint, timeout)
	p.gateway = gateway
	return p
}

func (p *Provider) Metadata() integration.Metadata {
	return integration.Metadata{
		ID:             p.id,
		DisplayName:    p.displayName,
		Category:       "web_search",
		RequiresAPIKey: false,
		CostHint:       "free",
		LatencyHint:    p.httpClient.Timeout,
	}
}

// IsRelevant is a fast heuristic: web search is a broad-coverage source,
// relevant to virtually any question, so it always returns true unless
// the question is empty.
func (p *Provider) IsRelevant(question string) bool {
	return strings.TrimSpace(question) != ""
}

func (p *Provider) GenerateQuery(ctx context.Context, question, taskQuery, hypothesisStatement string) (integration.QueryParams, string, error) {
	if p.gateway == nil {
		return p.heuristicQuery(taskQuery, hypothesisStatement)
	}

	vars := map[string]interface{}{
		"Question":            question,
		"TaskQuery":            taskQuery,
		"HypothesisStatement": hypothesisStatement,
		"SignalKeywords":       "",
		"ExpectedEntityTypes": "",
		"SourceName":           p.displayName,
	}
	raw, err := p.gateway.Call(ctx, 0, "hypothesis_query_generation", vars, queryGenerationSchema(), "hypothesis_query_generation")
	if err != nil {
		// LLM-assisted query generation failing falls back to the
		// deterministic heuristic rather than skipping the source
		// outright —  only requires the *source* be skipped when
		// GenerateQuery reports not-applicable, not when the assist call
		// itself errors.
		return p.heuristicQuery(taskQuery, hypothesisStatement)
	}

	if applicable, ok := raw["applicable"].(bool); ok && !applicable {
		reasoning, _ := raw["reasoning"].(string)
		return integration.QueryParams{"relevant": false, "reason": reasoning}, reasoning, nil
	}

	q, _ := raw["query"].(string)
	if q == "" {
		return p.heuristicQuery(taskQuery, hypothesisStatement)
	}
	reasoning, _ := raw["reasoning"].(string)
	return integration.QueryParams{"q": q}, reasoning, nil
}

func (p *Provider) heuristicQuery(taskQuery, hypothesisStatement string) (integration.QueryParams, string, error) {
	q := taskQuery
	if hypothesisStatement != "" {
		q = taskQuery + " " + hypothesisStatement
	}
	return integration.QueryParams{"q": q}, "web search query derived from task query plus hypothesis statement", nil
}

func queryGenerationSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"query":       map[string]interface{}{"type": "string"},
			"applicable":  map[string]interface{}{"type": "boolean"},
			"reasoning":   map[string]interface{}{"type": "string"},
		},
	}
}

func (p *Provider) ExecuteSearch(ctx context.Context, params integration.QueryParams, limit int) (integration.QueryResult, error) {
	start := time.Now()

	q, _ := params["q"].(string)
	if q == "" {
		return integration.QueryResult{Success: false, Error: "empty query"}, fmt.Errorf("websearch: empty query")
	}

	reqURL := p.endpoint + "?q=" + url.QueryEscape(q)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return integration.QueryResult{Success: false, Error: err.Error()}, err
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return integration.QueryResult{Success: false, Error: err.Error()}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("websearch: unexpected status %d", resp.StatusCode)
		return integration.QueryResult{Success: false, Error: err.Error()}, err
	}

	records, err := parseResultLinks(resp.Body, p.displayName)
	if err != nil {
		return integration.QueryResult{Success: false, Error: err.Error()}, err
	}

	if limit > 0 && limit < len(records) {
		records = records[:limit]
	}

	return integration.QueryResult{
		Success:      true,
		Total:        len(records),
		Results:      records,
		ResponseTime: time.Since(start),
	}, nil
}

// parseResultLinks walks the HTML tree for anchors with an absolute
// http(s) href and non-empty text, treating each as one result. This is
// intentionally permissive: the teacher's examples use html.Parse plus a
// node walk rather than a CSS selector library, and this adapter does
// the same.
func parseResultLinks(body io.Reader, source string) ([]integration.Record, error) {
	doc, err := html.Parse(body)
	if err != nil {
		return nil, fmt.Errorf("websearch: parse html: %w", err)
	}

	var records []integration.Record
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "a" {
			href := attr(n, "href")
			text := textContent(n)
			if href != "" && text != "" && (strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://")) {
				records = append(records, integration.Record{
					Title:  text,
					URL:    href,
					Source: source,
				})
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return records, nil
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func textContent(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.TrimSpace(sb.String())
}

var _ integration.Integration = (*Provider)(nil)
