package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuild(t *testing.T) {
	p, err := Build("simple", map[string]any{"quantity": 25})
	require.NoError(t, err)
	q, err := p.Decide(Observation{})
	require.NoError(t, err)
	assert.Equal(t, 25.0, q)

	_, err = Build("no-such-policy", nil)
	assert.ErrorContains(t, err, "unknown policy")

	_, err = Build("simple", map[string]any{"quantity": "lots"})
	assert.ErrorContains(t, err, "expected number")
}

func TestNames(t *testing.T) {
	names := Names()
	assert.Contains(t, names, "nothing")
	assert.Contains(t, names, "simple")
	assert.Contains(t, names, "moving_average")
	assert.IsNonDecreasing(t, names)
}

func TestMovingAverage(t *testing.T) {
	p, err := Build("moving_average", map[string]any{"window_size": 3})
	require.NoError(t, err)

	obs := Observation{MaxRateKW: 50}

	// Not enough history yet: idle.
	obs.PriceHistory = []float64{5, 6}
	obs.Price = 6
	q, err := p.Decide(obs)
	require.NoError(t, err)
	assert.Equal(t, 0.0, q)

	// Price above the window average: discharge at full rate.
	obs.PriceHistory = []float64{5, 6, 10}
	obs.Price = 10
	q, err = p.Decide(obs)
	require.NoError(t, err)
	assert.Equal(t, -50.0, q)

	// Price at or below the average: charge at full rate.
	obs.PriceHistory = []float64{10, 6, 2}
	obs.Price = 2
	q, err = p.Decide(obs)
	require.NoError(t, err)
	assert.Equal(t, 50.0, q)
}

func TestNothingPolicy(t *testing.T) {
	q, err := NothingPolicy{}.Decide(Observation{Price: 99, SoCPercent: 50})
	require.NoError(t, err)
	assert.Equal(t, 0.0, q)
}
