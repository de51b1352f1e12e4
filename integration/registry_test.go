package integration_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BrianMills2718/OSINT-sub007/core"
	"github.com/BrianMills2718/OSINT-sub007/integration"
	"github.com/BrianMills2718/OSINT-sub007/integration/mock"
)

func TestRegistryGetLazilyInstantiatesOnce(t *testing.T) {
	calls := 0
	reg := integration.NewRegistry(nil)
	reg.Register("web_search", func() (integration.Integration, error) {
		calls++
		return mock.New("web_search", "Web Search"), nil
	})

	_, err := reg.Get("web_search")
	require.NoError(t, err)
	_, err = reg.Get("web_search")
	require.NoError(t, err)

	assert.Equal(t, 1, calls, "a source is instantiated at most once")
}

func TestRegistryGetUnknownIDReturnsUnavailable(t *testing.T) {
	reg := integration.NewRegistry(nil)
	_, err := reg.Get("nonexistent")
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrIntegrationUnavailable)
}

func TestRegistryGetFailedFactoryStaysUnavailable(t *testing.T) {
	calls := 0
	reg := integration.NewRegistry(nil)
	reg.Register("broken", func() (integration.Integration, error) {
		calls++
		return nil, errors.New("missing api key")
	})

	_, err1 := reg.Get("broken")
	require.Error(t, err1)
	_, err2 := reg.Get("broken")
	require.Error(t, err2)

	assert.Equal(t, 1, calls, "a failed factory is not retried on subsequent Get calls")
	assert.ErrorIs(t, err2, core.ErrIntegrationUnavailable)
}

func TestRegistryResolveDisplayNameRequiresPriorGet(t *testing.T) {
	reg := integration.NewRegistry(nil)
	reg.Register("web_search", func() (integration.Integration, error) {
		return mock.New("web_search", "Web Search"), nil
	})

	_, ok := reg.ResolveDisplayName("Web Search")
	assert.False(t, ok, "resolution requires the adapter to have been instantiated first")

	_, err := reg.Get("web_search")
	require.NoError(t, err)

	id, ok := reg.ResolveDisplayName("web search")
	assert.True(t, ok, "resolution is case-insensitive")
	assert.Equal(t, "web_search", id)
}

func TestRegistryWarmUpInstantiatesEveryRegisteredSource(t *testing.T) {
	reg := integration.NewRegistry(nil)
	reg.Register("a", func() (integration.Integration, error) { return mock.New("a", "Source A"), nil })
	reg.Register("b", func() (integration.Integration, error) { return mock.New("b", "Source B"), nil })
	reg.Register("c", func() (integration.Integration, error) { return nil, errors.New("unavailable") })

	live := reg.WarmUp()
	assert.ElementsMatch(t, []string{"a", "b"}, live)
}

func TestRegistryBreakerIsNilUntilInstantiated(t *testing.T) {
	reg := integration.NewRegistry(nil)
	reg.Register("web_search", func() (integration.Integration, error) {
		return mock.New("web_search", "Web Search"), nil
	})

	assert.Nil(t, reg.Breaker("web_search"))
	_, err := reg.Get("web_search")
	require.NoError(t, err)
	assert.NotNil(t, reg.Breaker("web_search"))
}
