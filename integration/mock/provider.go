// Package mock provides a deterministic, in-memory Integration used by
// tests and by cmd/research's no-credentials demo path. Grounded on the
// teacher's core/mock_discovery.go: an in-memory stand-in exercising the
// same contract as a real adapter, with behavior the test can script.
package mock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/BrianMills2718/OSINT-sub007/integration"
)

// Provider is a scriptable Integration: tests preload Records via Seed,
// and ExecuteSearch returns all of them whatever the query is.
type Provider struct {
	id          string
	displayName string

	mu       sync.Mutex
	records  []integration.Record
	relevant bool
	fail     error // when set, ExecuteSearch returns this error
	delay    time.Duration
}

// New builds a mock adapter. By default IsRelevant returns true and
// ExecuteSearch succeeds with whatever records were seeded via Seed.
func New(id, displayName string) *Provider {
	return &Provider{id: id, displayName: displayName, relevant: true}
}

func (p *Provider) Metadata() integration.Metadata {
	return integration.Metadata{
		ID:             p.id,
		DisplayName:    p.displayName,
		Category:       "mock",
		RequiresAPIKey: false,
		CostHint:       "free",
		LatencyHint:    0,
	}
}

// Seed replaces the record set this provider returns.
func (p *Provider) Seed(records []integration.Record) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.records = records
}

// SetRelevant overrides the IsRelevant advisory (default true).
func (p *Provider) SetRelevant(relevant bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.relevant = relevant
}

// FailWith makes ExecuteSearch return err (simulating IntegrationCallFailed);
// pass nil to clear.
func (p *Provider) FailWith(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.fail = err
}

// SetDelay makes ExecuteSearch sleep before responding, for deadline tests.
func (p *Provider) SetDelay(d time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.delay = d
}

func (p *Provider) IsRelevant(question string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.relevant
}

func (p *Provider) GenerateQuery(ctx context.Context, question, taskQuery, hypothesisStatement string) (integration.QueryParams, string, error) {
	return integration.QueryParams{"q": taskQuery}, "mock: derived directly from task query", nil
}

func (p *Provider) ExecuteSearch(ctx context.Context, params integration.QueryParams, limit int) (integration.QueryResult, error) {
	p.mu.Lock()
	records, fail, delay := p.records, p.fail, p.delay
	p.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return integration.QueryResult{}, ctx.Err()
		}
	}
	if fail != nil {
		return integration.QueryResult{Success: false, Error: fail.Error()}, fail
	}

	if limit > 0 && limit < len(records) {
		records = records[:limit]
	}
	return integration.QueryResult{
		Success: true,
		Total:   len(records),
		Results: records,
	}, nil
}

var _ integration.Integration = (*Provider)(nil)

// NewSeededRecord is a small convenience constructor used heavily by
// tests to build a Record without repeating field names.
func NewSeededRecord(title, url, source string) integration.Record {
	return integration.Record{
		Title:       title,
		URL:         url,
		Source:      source,
		Description: fmt.Sprintf("mock record for %s", title),
	}
}
