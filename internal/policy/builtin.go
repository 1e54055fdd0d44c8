package policy

import "fmt"

func init() {
	Register("nothing", func(params map[string]any) (Policy, error) {
		return NothingPolicy{}, nil
	})
	Register("simple", func(params map[string]any) (Policy, error) {
		q, err := floatParam(params, "quantity", 10)
		if err != nil {
			return nil, err
		}
		return SimplePolicy{QuantityKW: q}, nil
	})
	Register("moving_average", func(params map[string]any) (Policy, error) {
		w, err := intParam(params, "window_size", 5)
		if err != nil {
			return nil, err
		}
		if w <= 0 {
			return nil, fmt.Errorf("window_size must be > 0, got %d", w)
		}
		return MovingAveragePolicy{WindowSize: w}, nil
	})
}

// NothingPolicy never acts. Useful as a baseline and in tests.
type NothingPolicy struct{}

func (NothingPolicy) Name() string                        { return "nothing" }
func (NothingPolicy) Decide(Observation) (float64, error) { return 0, nil }

// SimplePolicy requests a fixed power every step.
type SimplePolicy struct {
	QuantityKW float64
}

func (SimplePolicy) Name() string { return "simple" }

func (p SimplePolicy) Decide(Observation) (float64, error) {
	return p.QuantityKW, nil
}

// MovingAveragePolicy charges at full rate when the current price is below
// the moving average of recent prices and discharges at full rate when it is
// above. It idles until a full window of history is available.
type MovingAveragePolicy struct {
	WindowSize int
}

func (MovingAveragePolicy) Name() string { return "moving_average" }

func (p MovingAveragePolicy) Decide(obs Observation) (float64, error) {
	if len(obs.PriceHistory) < p.WindowSize {
		return 0, nil
	}
	window := obs.PriceHistory[len(obs.PriceHistory)-p.WindowSize:]
	sum := 0.0
	for _, v := range window {
		sum += v
	}
	avg := sum / float64(len(window))

	if obs.Price > avg {
		return -obs.MaxRateKW, nil
	}
	return obs.MaxRateKW, nil
}
