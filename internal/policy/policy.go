package policy

import (
	"fmt"
	"sort"
)

// Observation is everything a policy may look at when deciding an action.
// The price history covers the current episode only, most recent last, and
// always includes the current price.
type Observation struct {
	Step           int
	Price          float64
	PriceHistory   []float64
	SoCPercent     float64
	CapacityKWh    float64
	MaxRateKW      float64
	RemainingSteps int
	TotalProfit    float64
}

// Policy maps an observation to a requested power in kW
// (positive = charge, negative = discharge).
//
// The harness may drive several trials concurrently with the same Policy
// value, so Decide must not mutate shared state. Anything derivable from
// past prices is available through Observation.PriceHistory.
type Policy interface {
	Name() string
	Decide(obs Observation) (float64, error)
}

// Factory builds a policy variant from its configured parameters.
type Factory func(params map[string]any) (Policy, error)

var registry = map[string]Factory{}

// Register makes a policy variant available under class name. Called from
// init functions; duplicate names panic at startup.
func Register(name string, f Factory) {
	if _, ok := registry[name]; ok {
		panic(fmt.Sprintf("policy %q registered twice", name))
	}
	registry[name] = f
}

// Build resolves a class name to a configured policy instance.
func Build(name string, params map[string]any) (Policy, error) {
	f, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("unknown policy %q (known: %v)", name, Names())
	}
	return f(params)
}

// Names lists the registered class names, sorted.
func Names() []string {
	out := make([]string, 0, len(registry))
	for name := range registry {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// floatParam reads an optional numeric parameter, accepting the types that
// JSON and YAML decoding produce.
func floatParam(params map[string]any, key string, def float64) (float64, error) {
	v, ok := params[key]
	if !ok {
		return def, nil
	}
	switch x := v.(type) {
	case float64:
		return x, nil
	case float32:
		return float64(x), nil
	case int:
		return float64(x), nil
	case int64:
		return float64(x), nil
	default:
		return 0, fmt.Errorf("parameter %q: expected number, got %T", key, v)
	}
}

func intParam(params map[string]any, key string, def int) (int, error) {
	f, err := floatParam(params, key, float64(def))
	if err != nil {
		return 0, err
	}
	return int(f), nil
}
