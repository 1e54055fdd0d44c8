package eval

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"battery-eval/internal/data"
	"battery-eval/internal/model"
	"battery-eval/internal/policy"
	"battery-eval/internal/sim"
	"battery-eval/internal/trial"
)

var testSpec = model.BatterySpec{CapacityKWh: 100, MaxRateKW: 50, Efficiency: 1}

func testRunner(t *testing.T, n int) *trial.Runner {
	t.Helper()
	ticks := make([]model.MarketTick, n)
	for i := range ticks {
		ticks[i].Price = float64(i%12) / 10
	}
	r, err := trial.NewRunner(&data.Dataset{Ticks: ticks}, testSpec, sim.Options{}, trial.Config{})
	require.NoError(t, err)
	return r
}

func TestEvaluate_Success(t *testing.T) {
	h := &Harness{
		Runner:     testRunner(t, 120),
		Seed:       42,
		Team:       "team1",
		CommitHash: "abc123",
	}
	p, err := policy.Build("moving_average", nil)
	require.NoError(t, err)

	res := h.Evaluate(context.Background(), p, 10, map[string]any{"window_size": 5})

	assert.Equal(t, StatusSuccess, res.Status)
	assert.Equal(t, "moving_average", res.ClassName)
	assert.Equal(t, 10, res.NumRuns)
	assert.Equal(t, 0, res.FailedRuns)
	assert.Equal(t, 0, res.MainTrialIdx)
	assert.Equal(t, "team1", res.Team)
	assert.Equal(t, "abc123", res.CommitHash)
	assert.NotEmpty(t, res.RunID)
	assert.Positive(t, res.SubmittedAt)

	require.NotNil(t, res.MeanProfit)
	require.NotNil(t, res.StdProfit)
	require.NotNil(t, res.Score)
	assert.Equal(t, *res.MeanProfit, *res.Score)
	assert.Nil(t, res.Error)
	assert.Nil(t, res.ErrorTraceback)

	require.NotNil(t, res.MainTrial)
	assert.Equal(t, 0, res.MainTrial.StartStep)
	assert.Equal(t, 120, res.MainTrial.EpisodeLength)
}

func TestEvaluate_SeedReproducible(t *testing.T) {
	p, err := policy.Build("moving_average", nil)
	require.NoError(t, err)

	run := func() *SubmissionResult {
		h := &Harness{Runner: testRunner(t, 120), Seed: 42}
		return h.Evaluate(context.Background(), p, 8, nil)
	}
	r1, r2 := run(), run()
	assert.Equal(t, *r1.MeanProfit, *r2.MeanProfit)
	assert.Equal(t, *r1.StdProfit, *r2.StdProfit)
	assert.Equal(t, r1.MainTrial, r2.MainTrial)
}

func TestEvaluate_OrderIndependentAggregation(t *testing.T) {
	p, err := policy.Build("moving_average", nil)
	require.NoError(t, err)

	serial := &Harness{Runner: testRunner(t, 120), Seed: 42, Parallelism: 1}
	parallel := &Harness{Runner: testRunner(t, 120), Seed: 42, Parallelism: 4}

	r1 := serial.Evaluate(context.Background(), p, 12, nil)
	r2 := parallel.Evaluate(context.Background(), p, 12, nil)

	assert.Equal(t, *r1.MeanProfit, *r2.MeanProfit)
	assert.Equal(t, *r1.StdProfit, *r2.StdProfit)
	assert.Equal(t, r1.FailedRuns, r2.FailedRuns)
}

// thirdCallPolicy fails on its third decision overall, so exactly one trial
// fails while the rest complete.
type thirdCallPolicy struct {
	mu    sync.Mutex
	calls int
}

func (*thirdCallPolicy) Name() string { return "third_call" }

func (p *thirdCallPolicy) Decide(policy.Observation) (float64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	if p.calls == 3 {
		return 0, errors.New("third decision blew up")
	}
	return 0, nil
}

func TestEvaluate_PartialFailureStillSucceeds(t *testing.T) {
	h := &Harness{Runner: testRunner(t, 120), Seed: 42}

	res := h.Evaluate(context.Background(), &thirdCallPolicy{}, 10, nil)

	assert.Equal(t, StatusSuccess, res.Status)
	assert.Equal(t, 10, res.NumRuns)
	assert.Equal(t, 1, res.FailedRuns)
	require.NotNil(t, res.MeanProfit)
	// The failing trial was trial 0 (the third call happens inside the
	// full-window trial), so the representative trial is a later one.
	assert.NotEqual(t, 0, res.MainTrialIdx)
	require.NotNil(t, res.MainTrial)
}

type alwaysFailPolicy struct{}

func (alwaysFailPolicy) Name() string { return "always_fail" }

func (alwaysFailPolicy) Decide(policy.Observation) (float64, error) {
	return 0, errors.New("cannot decide anything")
}

func TestEvaluate_AllTrialsFail(t *testing.T) {
	h := &Harness{Runner: testRunner(t, 120), Seed: 42}

	res := h.Evaluate(context.Background(), alwaysFailPolicy{}, 5, nil)

	assert.Equal(t, StatusError, res.Status)
	assert.Equal(t, 5, res.NumRuns)
	assert.Equal(t, 5, res.FailedRuns)
	assert.Nil(t, res.MeanProfit)
	assert.Nil(t, res.StdProfit)
	assert.Nil(t, res.Score)
	assert.Nil(t, res.MainTrial)
	require.NotNil(t, res.Error)
	assert.Contains(t, *res.Error, "cannot decide anything")
	require.NotNil(t, res.ErrorTraceback)
	assert.NotEmpty(t, *res.ErrorTraceback)
}

func TestEvaluate_ProgressEvents(t *testing.T) {
	var mu sync.Mutex
	var events []TrialEvent
	h := &Harness{
		Runner: testRunner(t, 120),
		Seed:   42,
		OnTrial: func(ev TrialEvent) {
			mu.Lock()
			events = append(events, ev)
			mu.Unlock()
		},
	}

	h.Evaluate(context.Background(), policy.NothingPolicy{}, 6, nil)

	assert.Len(t, events, 6)
	for _, ev := range events {
		assert.Equal(t, StatusSuccess, ev.Status)
	}
}

func TestSubmissionResult_RoundTrip(t *testing.T) {
	h := &Harness{Runner: testRunner(t, 120), Seed: 42, Team: "team1", CommitHash: "abc123"}
	p, err := policy.Build("moving_average", nil)
	require.NoError(t, err)
	res := h.Evaluate(context.Background(), p, 6, map[string]any{"window_size": 5})

	raw, err := res.MarshalIndent()
	require.NoError(t, err)

	var back SubmissionResult
	require.NoError(t, json.Unmarshal(raw, &back))

	assert.Equal(t, *res.MeanProfit, *back.MeanProfit)
	assert.Equal(t, *res.StdProfit, *back.StdProfit)
	assert.Equal(t, res.MainTrial.Profits, back.MainTrial.Profits)
	assert.Equal(t, res.MainTrial.SoCs, back.MainTrial.SoCs)
	assert.Equal(t, res.MainTrial.MarketPrices, back.MainTrial.MarketPrices)
	assert.Equal(t, res.MainTrial.Actions, back.MainTrial.Actions)
	assert.Equal(t, res.MainTrial.StartStep, back.MainTrial.StartStep)
	assert.Equal(t, res.MainTrial.EpisodeLength, back.MainTrial.EpisodeLength)
}

func TestSubmissionResult_WireSchema(t *testing.T) {
	h := &Harness{Runner: testRunner(t, 120), Seed: 42}
	res := h.Evaluate(context.Background(), policy.NothingPolicy{}, 3, nil)

	raw, err := json.Marshal(res)
	require.NoError(t, err)
	var m map[string]any
	require.NoError(t, json.Unmarshal(raw, &m))

	want := []string{
		"main_trial_idx", "std_profit", "error_traceback", "main_trial",
		"status", "class_name", "score", "submitted_at", "num_runs",
		"parameters", "team", "error", "mean_profit", "commit_hash",
	}
	assert.Len(t, m, len(want))
	for _, key := range want {
		assert.Contains(t, m, key)
	}

	mt, ok := m["main_trial"].(map[string]any)
	require.True(t, ok)
	for _, key := range []string{"profits", "socs", "start_step", "market_prices", "actions", "episode_length"} {
		assert.Contains(t, mt, key)
	}
	assert.Len(t, mt, 6)
}
