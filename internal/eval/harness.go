package eval

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/stat"

	"battery-eval/internal/policy"
	"battery-eval/internal/trial"
)

// TrialEvent is emitted after each trial completes, successful or not.
// Consumed by the CLI progress log and the API websocket stream.
type TrialEvent struct {
	Index   int     `json:"index"`
	Status  string  `json:"status"`
	Profit  float64 `json:"profit"`
	Steps   int     `json:"steps"`
	Message string  `json:"message,omitempty"`
}

// Harness runs N independent trials and aggregates them into a
// SubmissionResult. Trials share only the immutable dataset, so they are
// fanned out across Parallelism workers.
type Harness struct {
	Runner *trial.Runner
	Log    *logrus.Entry

	// Seed makes the whole run reproducible; trial i always derives its
	// random source from Seed+i. Zero seeds from the clock.
	Seed int64
	// Parallelism is the worker count. Zero or negative means 1.
	Parallelism int
	// TrialTimeout bounds a single trial's wall time. A trial that blows
	// the budget is recorded as failed, never harness-fatal.
	TrialTimeout time.Duration

	Team       string
	CommitHash string

	// OnTrial, when set, receives a TrialEvent per completed trial. Called
	// from worker goroutines; the callback must be safe for concurrent use.
	OnTrial func(TrialEvent)
}

type trialOutcome struct {
	trial trial.Trial
	err   error
}

// Evaluate runs numRuns trials of p and assembles the submission result.
// It never returns an error: every fault is folded into a well-formed
// status:"error" result.
func (h *Harness) Evaluate(ctx context.Context, p policy.Policy, numRuns int, params map[string]any) *SubmissionResult {
	if numRuns < 1 {
		numRuns = 1
	}
	seed := h.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	workers := h.Parallelism
	if workers < 1 {
		workers = 1
	}
	if workers > numRuns {
		workers = numRuns
	}

	log := h.Log
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	runID := uuid.NewString()
	log = log.WithFields(logrus.Fields{
		"run_id":   runID,
		"policy":   p.Name(),
		"num_runs": numRuns,
	})
	log.Info("evaluation started")

	outcomes := make([]trialOutcome, numRuns)
	indices := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range indices {
				outcomes[i] = h.runOne(ctx, p, i, seed)
				h.emit(log, i, outcomes[i])
			}
		}()
	}
	for i := 0; i < numRuns; i++ {
		indices <- i
	}
	close(indices)
	wg.Wait()

	return h.assemble(log, p, runID, numRuns, params, outcomes)
}

// runOne executes trial i with its own derived random source. Trial 0 is
// the deterministic full-window trial kept for inspection; the rest are
// randomized.
func (h *Harness) runOne(ctx context.Context, p policy.Policy, i int, seed int64) trialOutcome {
	if h.TrialTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.TrialTimeout)
		defer cancel()
	}

	if i == 0 {
		t, err := h.Runner.RunMain(ctx, p)
		return trialOutcome{trial: t, err: err}
	}
	rng := rand.New(rand.NewSource(seed + int64(i)))
	t, err := h.Runner.Run(ctx, p, rng)
	return trialOutcome{trial: t, err: err}
}

func (h *Harness) emit(log *logrus.Entry, i int, out trialOutcome) {
	ev := TrialEvent{Index: i, Status: StatusSuccess, Profit: out.trial.TotalProfit, Steps: len(out.trial.Profits)}
	if out.err != nil {
		ev = TrialEvent{Index: i, Status: StatusError, Message: out.err.Error()}
		log.WithField("trial", i).WithError(out.err).Warn("trial failed")
	} else {
		log.WithFields(logrus.Fields{"trial": i, "profit": out.trial.TotalProfit}).Debug("trial done")
	}
	if h.OnTrial != nil {
		h.OnTrial(ev)
	}
}

func (h *Harness) assemble(log *logrus.Entry, p policy.Policy, runID string, numRuns int, params map[string]any, outcomes []trialOutcome) *SubmissionResult {
	res := &SubmissionResult{
		Status:      StatusError,
		ClassName:   p.Name(),
		Parameters:  params,
		NumRuns:     numRuns,
		Team:        h.Team,
		CommitHash:  h.CommitHash,
		SubmittedAt: time.Now().UnixMilli(),
		RunID:       runID,
	}
	if res.Parameters == nil {
		res.Parameters = map[string]any{}
	}

	profits := make([]float64, 0, numRuns)
	mainIdx := -1
	var firstErr error
	for i, out := range outcomes {
		if out.err != nil {
			res.FailedRuns++
			if firstErr == nil {
				firstErr = out.err
			}
			continue
		}
		profits = append(profits, out.trial.TotalProfit)
		if mainIdx == -1 {
			mainIdx = i
		}
	}

	if mainIdx == -1 {
		// Every trial failed. Leave the statistics null rather than zero;
		// a zero here would read as a real (bad) score downstream.
		msg := "all trials failed"
		stack := ""
		if firstErr != nil {
			msg = firstErr.Error()
			var perr *trial.PolicyError
			if errors.As(firstErr, &perr) && perr.Stack != "" {
				stack = perr.Stack
			}
		}
		if stack == "" {
			stack = msg
		}
		res.Error = strPtr(msg)
		res.ErrorTraceback = strPtr(stack)
		log.WithField("failed_runs", res.FailedRuns).Error("evaluation failed on every trial")
		return res
	}

	mean := stat.Mean(profits, nil)
	std := 0.0
	if len(profits) > 1 {
		std = stat.StdDev(profits, nil)
	}

	res.Status = StatusSuccess
	res.MainTrialIdx = mainIdx
	mt := outcomes[mainIdx].trial
	res.MainTrial = &mt
	res.MeanProfit = floatPtr(mean)
	res.StdProfit = floatPtr(std)
	res.Score = floatPtr(mean)

	log.WithFields(logrus.Fields{
		"mean_profit": mean,
		"std_profit":  std,
		"failed_runs": res.FailedRuns,
	}).Info("evaluation finished")
	return res
}
