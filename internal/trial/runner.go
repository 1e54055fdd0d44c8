package trial

import (
	"context"
	"fmt"
	"math/rand"
	"runtime/debug"

	"battery-eval/internal/data"
	"battery-eval/internal/model"
	"battery-eval/internal/policy"
	"battery-eval/internal/sim"
)

// Config bounds the randomized episode parameters a Runner draws per trial.
type Config struct {
	// InitialSoCMin/Max bound the uniform draw of the starting state of
	// charge in percent. Zero values mean the full [0,100] range.
	InitialSoCMin float64
	InitialSoCMax float64
	// MinEpisodeLength floors the drawn episode length. Defaults to 1.
	MinEpisodeLength int
	// MainInitialSoC is the starting state of charge for the deterministic
	// full-window trial. Defaults to 50.
	MainInitialSoC float64
}

func (c Config) withDefaults() Config {
	if c.InitialSoCMin == 0 && c.InitialSoCMax == 0 {
		c.InitialSoCMax = 100
	}
	if c.MinEpisodeLength <= 0 {
		c.MinEpisodeLength = 1
	}
	if c.MainInitialSoC == 0 {
		c.MainInitialSoC = 50
	}
	return c
}

// Runner produces Trials. The dataset is shared read-only across trials;
// each Run builds a fresh environment, so a Runner is safe for concurrent
// use as long as each call gets its own *rand.Rand.
type Runner struct {
	dataset *data.Dataset
	spec    model.BatterySpec
	opts    sim.Options
	cfg     Config
}

func NewRunner(dataset *data.Dataset, spec model.BatterySpec, opts sim.Options, cfg Config) (*Runner, error) {
	// Validate once up front so per-trial construction cannot fail on config.
	if _, err := sim.New(dataset, spec, opts); err != nil {
		return nil, err
	}
	cfg = cfg.withDefaults()
	if cfg.InitialSoCMin < 0 || cfg.InitialSoCMax > 100 || cfg.InitialSoCMin > cfg.InitialSoCMax {
		return nil, fmt.Errorf("initial SoC range [%v,%v] invalid", cfg.InitialSoCMin, cfg.InitialSoCMax)
	}
	return &Runner{dataset: dataset, spec: spec, opts: opts, cfg: cfg}, nil
}

// Run draws a randomized start step, initial SoC and episode length from
// rng and drives one episode to completion. A policy fault (error or panic)
// is returned, never retried; the caller records it as a failed trial.
func (r *Runner) Run(ctx context.Context, p policy.Policy, rng *rand.Rand) (Trial, error) {
	n := r.dataset.Len()
	startStep := rng.Intn(n)
	maxLen := n - startStep
	minLen := r.cfg.MinEpisodeLength
	if minLen > maxLen {
		minLen = maxLen
	}
	episodeLength := minLen + rng.Intn(maxLen-minLen+1)
	initialSoC := r.cfg.InitialSoCMin + rng.Float64()*(r.cfg.InitialSoCMax-r.cfg.InitialSoCMin)

	return r.RunWindow(ctx, p, startStep, initialSoC, episodeLength)
}

// RunMain runs the deterministic representative trial over the full dataset.
func (r *Runner) RunMain(ctx context.Context, p policy.Policy) (Trial, error) {
	return r.RunWindow(ctx, p, 0, r.cfg.MainInitialSoC, r.dataset.Len())
}

// RunWindow drives one episode over an explicit window. Exposed for the
// simulate command and for reproducing a specific trial.
func (r *Runner) RunWindow(ctx context.Context, p policy.Policy, startStep int, initialSoC float64, episodeLength int) (t Trial, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = &PolicyError{
				Policy: p.Name(),
				Err:    fmt.Errorf("panic: %v", rec),
				Stack:  string(debug.Stack()),
			}
		}
	}()

	env, err := sim.New(r.dataset, r.spec, r.opts)
	if err != nil {
		return Trial{}, err
	}
	if err := env.Reset(startStep, initialSoC, episodeLength); err != nil {
		return Trial{}, err
	}

	for {
		select {
		case <-ctx.Done():
			return Trial{}, fmt.Errorf("trial aborted at step %d: %w", len(env.Record()), ctx.Err())
		default:
		}

		_, done, err := env.Step(p)
		if err != nil {
			if _, ok := err.(*sim.StateError); ok {
				return Trial{}, err
			}
			return Trial{}, &PolicyError{Policy: p.Name(), Err: err}
		}
		if done {
			break
		}
	}

	return fromRecord(startStep, episodeLength, env.Record()), nil
}
