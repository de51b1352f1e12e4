package mock

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BrianMills2718/OSINT-sub007/integration"
)

func TestProviderExecuteSearchReturnsSeededRecords(t *testing.T) {
	p := New("web_search", "Web Search")
	p.Seed([]integration.Record{
		NewSeededRecord("A", "https://example.org/a", "Web Search"),
		NewSeededRecord("B", "https://example.org/b", "Web Search"),
	})

	result, err := p.ExecuteSearch(context.Background(), integration.QueryParams{"q": "x"}, 0)
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Len(t, result.Results, 2)
	assert.Equal(t, 2, result.Total)
}

func TestProviderExecuteSearchRespectsLimit(t *testing.T) {
	p := New("web_search", "Web Search")
	p.Seed([]integration.Record{
		NewSeededRecord("A", "https://example.org/a", "Web Search"),
		NewSeededRecord("B", "https://example.org/b", "Web Search"),
		NewSeededRecord("C", "https://example.org/c", "Web Search"),
	})

	result, err := p.ExecuteSearch(context.Background(), integration.QueryParams{"q": "x"}, 2)
	require.NoError(t, err)
	assert.Len(t, result.Results, 2)
}

func TestProviderExecuteSearchFailsWithConfiguredError(t *testing.T) {
	p := New("web_search", "Web Search")
	p.FailWith(assert.AnError)

	result, err := p.ExecuteSearch(context.Background(), integration.QueryParams{"q": "x"}, 0)
	require.Error(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, assert.AnError.Error(), result.Error)
}

func TestProviderExecuteSearchHonorsContextCancellationDuringDelay(t *testing.T) {
	p := New("web_search", "Web Search")
	p.SetDelay(time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := p.ExecuteSearch(ctx, integration.QueryParams{"q": "x"}, 0)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestProviderIsRelevantDefaultsTrueAndCanBeOverridden(t *testing.T) {
	p := New("web_search", "Web Search")
	assert.True(t, p.IsRelevant("any question"))

	p.SetRelevant(false)
	assert.False(t, p.IsRelevant("any question"))
}

func TestProviderGenerateQueryDerivesFromTaskQuery(t *testing.T) {
	p := New("web_search", "Web Search")
	params, _, err := p.GenerateQuery(context.Background(), "question", "task query", "hypothesis")
	require.NoError(t, err)
	assert.Equal(t, "task query", params["q"])
}
