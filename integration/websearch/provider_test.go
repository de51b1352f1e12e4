package websearch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BrianMills2718/OSINT-sub007/integration"
)

func newResultsServer(t *testing.T, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestExecuteSearchScrapesAnchorsAsRecords(t *testing.T) {
	srv := newResultsServer(t, `<html><body>
		<a href="https://example.org/a">First Result</a>
		<a href="https://example.org/b">Second Result</a>
		<a href="/relative-path">Ignored Relative Link</a>
	</body></html>`)

	p := New("web_search", "Web Search", srv.URL, 5*time.Second)
	result, err := p.ExecuteSearch(context.Background(), integration.QueryParams{"q": "test query"}, 0)
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Len(t, result.Results, 2, "only absolute http(s) links should be scraped as results")
	assert.Equal(t, "First Result", result.Results[0].Title)
	assert.Equal(t, "Web Search", result.Results[0].Source)
}

func TestExecuteSearchRespectsLimit(t *testing.T) {
	srv := newResultsServer(t, `<html><body>
		<a href="https://example.org/a">A</a>
		<a href="https://example.org/b">B</a>
		<a href="https://example.org/c">C</a>
	</body></html>`)

	p := New("web_search", "Web Search", srv.URL, 5*time.Second)
	result, err := p.ExecuteSearch(context.Background(), integration.QueryParams{"q": "x"}, 1)
	require.NoError(t, err)
	assert.Len(t, result.Results, 1)
}

func TestExecuteSearchRejectsEmptyQuery(t *testing.T) {
	p := New("web_search", "Web Search", "http://unused.invalid", time.Second)
	result, err := p.ExecuteSearch(context.Background(), integration.QueryParams{}, 0)
	require.Error(t, err)
	assert.False(t, result.Success)
}

func TestExecuteSearchPropagatesNonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)

	p := New("web_search", "Web Search", srv.URL, 5*time.Second)
	result, err := p.ExecuteSearch(context.Background(), integration.QueryParams{"q": "x"}, 0)
	require.Error(t, err)
	assert.False(t, result.Success)
}

func TestIsRelevantRequiresNonEmptyQuestion(t *testing.T) {
	p := New("web_search", "Web Search", "http://unused.invalid", time.Second)
	assert.True(t, p.IsRelevant("who runs the organization"))
	assert.False(t, p.IsRelevant("   "))
}

func TestGenerateQueryHeuristicCombinesTaskAndHypothesis(t *testing.T) {
	p := New("web_search", "Web Search", "http://unused.invalid", time.Second)
	params, reasoning, err := p.GenerateQuery(context.Background(), "question", "task query", "hypothesis statement")
	require.NoError(t, err)
	assert.Equal(t, "task query hypothesis statement", params["q"])
	assert.NotEmpty(t, reasoning)
}
