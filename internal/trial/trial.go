package trial

import (
	"fmt"

	"battery-eval/internal/sim"
)

// Trial is one completed episode flattened into the parallel arrays the
// submission schema expects. Never mutated after RunWindow/Run returns it.
type Trial struct {
	StartStep     int       `json:"start_step"`
	EpisodeLength int       `json:"episode_length"`
	MarketPrices  []float64 `json:"market_prices"`
	Actions       []float64 `json:"actions"`
	SoCs          []float64 `json:"socs"`
	Profits       []float64 `json:"profits"`

	// TotalProfit is this trial's score: the sum of Profits. Derived, so
	// it is not part of the wire schema.
	TotalProfit float64 `json:"-"`
}

func fromRecord(startStep, episodeLength int, record []sim.StepRecord) Trial {
	t := Trial{
		StartStep:     startStep,
		EpisodeLength: episodeLength,
		MarketPrices:  make([]float64, len(record)),
		Actions:       make([]float64, len(record)),
		SoCs:          make([]float64, len(record)),
		Profits:       make([]float64, len(record)),
	}
	for i, r := range record {
		t.MarketPrices[i] = r.Price
		t.Actions[i] = r.RealizedKW
		t.SoCs[i] = r.SoCPercent
		t.Profits[i] = r.Profit
		t.TotalProfit += r.Profit
	}
	return t
}

// PolicyError wraps a fault raised by the policy capability during a trial,
// including panics recovered at the trial boundary. The stack is kept as
// text so it can travel through the submission schema.
type PolicyError struct {
	Policy string
	Err    error
	Stack  string
}

func (e *PolicyError) Error() string {
	return fmt.Sprintf("policy %q: %v", e.Policy, e.Err)
}

func (e *PolicyError) Unwrap() error { return e.Err }
