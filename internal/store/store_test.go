package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"battery-eval/internal/eval"
	"battery-eval/internal/trial"
)

func openTestStore(t *testing.T) *SubmissionStore {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "submissions.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func testResult(team, commit string, submittedAt int64) *eval.SubmissionResult {
	mean := 12.5
	std := 3.25
	return &eval.SubmissionResult{
		Status:      eval.StatusSuccess,
		ClassName:   "moving_average",
		Parameters:  map[string]any{"window_size": float64(5)},
		NumRuns:     10,
		Team:        team,
		CommitHash:  commit,
		SubmittedAt: submittedAt,
		MeanProfit:  &mean,
		StdProfit:   &std,
		Score:       &mean,
		MainTrial: &trial.Trial{
			StartStep:     0,
			EpisodeLength: 2,
			MarketPrices:  []float64{1, 2},
			Actions:       []float64{50, -50},
			SoCs:          []float64{54, 50},
			Profits:       []float64{-4, 8},
		},
	}
}

func TestStore_SaveAndQuery(t *testing.T) {
	s := openTestStore(t)

	ok, err := s.IsSubmitted("team1", "aaa")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Save(testResult("team1", "aaa", 1000)))
	require.NoError(t, s.Save(testResult("team1", "bbb", 2000)))
	require.NoError(t, s.Save(testResult("team2", "ccc", 3000)))

	ok, err = s.IsSubmitted("team1", "aaa")
	require.NoError(t, err)
	assert.True(t, ok)

	latest, err := s.Latest("team1")
	require.NoError(t, err)
	assert.Equal(t, "bbb", latest.CommitHash)
	require.NotNil(t, latest.MeanProfit)
	assert.Equal(t, 12.5, *latest.MeanProfit)
	require.NotNil(t, latest.MainTrial)
	assert.Equal(t, []float64{-4, 8}, latest.MainTrial.Profits)

	history, err := s.History("team1")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "bbb", history[0].CommitHash)
	assert.Equal(t, "aaa", history[1].CommitHash)
}

func TestStore_Upsert(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.Save(testResult("team1", "aaa", 1000)))
	updated := testResult("team1", "aaa", 2000)
	require.NoError(t, s.Save(updated))

	history, err := s.History("team1")
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, int64(2000), history[0].SubmittedAt)
}

func TestStore_ErrorResultKeepsNullScore(t *testing.T) {
	s := openTestStore(t)

	msg := "all trials failed"
	res := &eval.SubmissionResult{
		Status:      eval.StatusError,
		ClassName:   "broken",
		Team:        "team1",
		CommitHash:  "dead",
		NumRuns:     5,
		SubmittedAt: 1000,
		Error:       &msg,
	}
	require.NoError(t, s.Save(res))

	latest, err := s.Latest("team1")
	require.NoError(t, err)
	assert.Equal(t, eval.StatusError, latest.Status)
	assert.Nil(t, latest.MeanProfit)
	assert.Nil(t, latest.Score)
	require.NotNil(t, latest.Error)
}

func TestStore_MissingKeys(t *testing.T) {
	s := openTestStore(t)

	assert.Error(t, s.Save(&eval.SubmissionResult{CommitHash: "x"}))
	assert.Error(t, s.Save(&eval.SubmissionResult{Team: "x"}))

	_, err := s.Latest("ghost")
	assert.ErrorIs(t, err, ErrNotFound)
}
