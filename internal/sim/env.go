package sim

import (
	"time"

	"battery-eval/internal/data"
	"battery-eval/internal/model"
	"battery-eval/internal/policy"
)

// Phase is the lifecycle state of an Environment.
type Phase string

const (
	PhaseInitialized Phase = "INITIALIZED"
	PhaseRunning     Phase = "RUNNING"
	PhaseDone        Phase = "DONE"
)

// Options tune the dispatch mechanics of an episode.
type Options struct {
	// DtMinutes is the length of one dispatch interval. Defaults to 5,
	// the NEM dispatch interval.
	DtMinutes float64
	// SpotWindow is how many recent dispatch prices are averaged into the
	// settlement price. 1 settles every step at the current tick price.
	SpotWindow int
}

func (o Options) withDefaults() Options {
	if o.DtMinutes == 0 {
		o.DtMinutes = 5
	}
	if o.SpotWindow == 0 {
		o.SpotWindow = 1
	}
	return o
}

// StepRecord is one row of the episode record.
type StepRecord struct {
	Timestamp   time.Time
	Price       float64
	SpotPrice   float64
	RequestedKW float64
	RealizedKW  float64
	SoCPercent  float64
	Profit      float64
}

// Environment drives one episode of a battery against a window of the
// market. One Environment owns one battery state for the lifetime of one
// episode; it is not safe for concurrent use.
type Environment struct {
	dataset *data.Dataset
	spec    model.BatterySpec
	opts    Options

	phase         Phase
	startStep     int
	episodeLength int
	cursor        int
	window        []model.MarketTick
	state         model.BatteryState
	priceHistory  []float64
	totalProfit   float64
	record        []StepRecord
}

// New validates the battery spec and returns an INITIALIZED environment.
func New(dataset *data.Dataset, spec model.BatterySpec, opts Options) (*Environment, error) {
	if dataset == nil || dataset.Len() == 0 {
		return nil, configErrorf("empty market dataset")
	}
	if err := spec.Validate(); err != nil {
		return nil, configErrorf("battery: %v", err)
	}
	opts = opts.withDefaults()
	if opts.DtMinutes <= 0 {
		return nil, configErrorf("DtMinutes must be > 0, got %v", opts.DtMinutes)
	}
	if opts.SpotWindow < 1 {
		return nil, configErrorf("SpotWindow must be >= 1, got %d", opts.SpotWindow)
	}
	return &Environment{
		dataset: dataset,
		spec:    spec,
		opts:    opts,
		phase:   PhaseInitialized,
	}, nil
}

// Reset selects the episode window and rewinds all per-episode state.
// The environment transitions to RUNNING on success.
func (e *Environment) Reset(startStep int, initialSoC float64, episodeLength int) error {
	if initialSoC < 0 || initialSoC > 100 {
		return configErrorf("initial SoC %v outside [0,100]", initialSoC)
	}
	window, err := e.dataset.Window(startStep, episodeLength)
	if err != nil {
		return err
	}

	e.startStep = startStep
	e.episodeLength = episodeLength
	e.window = window
	e.cursor = 0
	e.state = model.BatteryState{SoC: initialSoC}
	e.priceHistory = e.priceHistory[:0]
	e.totalProfit = 0
	e.record = e.record[:0]
	e.phase = PhaseRunning
	return nil
}

// Step asks the policy for an action at the current tick, applies it to the
// battery and settles the result. done reports whether the episode just
// finished. A policy error propagates unmodified; fault containment is the
// caller's job.
func (e *Environment) Step(p policy.Policy) (StepRecord, bool, error) {
	if e.phase != PhaseRunning {
		return StepRecord{}, false, &StateError{Op: "Step", Phase: e.phase}
	}

	tick := e.window[e.cursor]
	e.priceHistory = append(e.priceHistory, tick.Price)

	requested, err := p.Decide(policy.Observation{
		Step:           e.cursor,
		Price:          tick.Price,
		PriceHistory:   e.priceHistory,
		SoCPercent:     e.state.SoC,
		CapacityKWh:    e.spec.CapacityKWh,
		MaxRateKW:      e.spec.MaxRateKW,
		RemainingSteps: e.episodeLength - e.cursor - 1,
		TotalProfit:    e.totalProfit,
	})
	if err != nil {
		return StepRecord{}, false, err
	}

	newState, realized := e.spec.Advance(e.state, requested, e.opts.DtMinutes)
	spot := e.spotPrice()
	profit := model.StepProfit(realized, spot, e.opts.DtMinutes)

	e.state = newState
	e.totalProfit += profit
	rec := StepRecord{
		Timestamp:   tick.Timestamp,
		Price:       tick.Price,
		SpotPrice:   spot,
		RequestedKW: requested,
		RealizedKW:  realized,
		SoCPercent:  newState.SoC,
		Profit:      profit,
	}
	e.record = append(e.record, rec)

	e.cursor++
	done := e.cursor >= e.episodeLength
	if done {
		e.phase = PhaseDone
	}
	return rec, done, nil
}

// spotPrice is the settlement price for the current step: the mean of the
// last SpotWindow dispatch prices, including the current one.
func (e *Environment) spotPrice() float64 {
	n := e.opts.SpotWindow
	if n > len(e.priceHistory) {
		n = len(e.priceHistory)
	}
	window := e.priceHistory[len(e.priceHistory)-n:]
	sum := 0.0
	for _, p := range window {
		sum += p
	}
	return sum / float64(n)
}

func (e *Environment) Phase() Phase         { return e.phase }
func (e *Environment) StartStep() int       { return e.startStep }
func (e *Environment) EpisodeLength() int   { return e.episodeLength }
func (e *Environment) TotalProfit() float64 { return e.totalProfit }
func (e *Environment) SoCPercent() float64  { return e.state.SoC }

// Record returns the episode record accumulated so far. The slice is owned
// by the environment and is immutable once the episode is DONE.
func (e *Environment) Record() []StepRecord { return e.record }
