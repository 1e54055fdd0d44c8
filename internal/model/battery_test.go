package model

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSpec = BatterySpec{
	CapacityKWh: 100,
	MaxRateKW:   50,
	Efficiency:  1,
}

func TestValidate(t *testing.T) {
	require.NoError(t, testSpec.Validate())

	bad := testSpec
	bad.CapacityKWh = 0
	assert.Error(t, bad.Validate())

	bad = testSpec
	bad.MaxRateKW = -1
	assert.Error(t, bad.Validate())

	bad = testSpec
	bad.Efficiency = 1.2
	assert.Error(t, bad.Validate())
}

func TestAdvance_ClipsToRateLimit(t *testing.T) {
	// A request beyond the power limit is realized at exactly the limit.
	_, realized := testSpec.Advance(BatteryState{SoC: 50}, 500, 5)
	assert.Equal(t, 50.0, realized)

	_, realized = testSpec.Advance(BatteryState{SoC: 50}, -500, 5)
	assert.Equal(t, -50.0, realized)
}

func TestAdvance_ChargeAndDischarge(t *testing.T) {
	// 50 kW for 5 min = 4.1667 kWh = 4.1667% of 100 kWh.
	st, realized := testSpec.Advance(BatteryState{SoC: 50}, 50, 5)
	assert.Equal(t, 50.0, realized)
	assert.InDelta(t, 50+50.0*5/60/100*100, st.SoC, 1e-9)

	st, realized = testSpec.Advance(st, -50, 5)
	assert.Equal(t, -50.0, realized)
	assert.InDelta(t, 50, st.SoC, 1e-9)
}

func TestAdvance_DischargeAtEmpty(t *testing.T) {
	// Requesting discharge at SoC 0 realizes nothing and SoC stays 0.
	st, realized := testSpec.Advance(BatteryState{SoC: 0}, -50, 5)
	assert.Equal(t, 0.0, realized)
	assert.Equal(t, 0.0, st.SoC)
}

func TestAdvance_ChargeAtFull(t *testing.T) {
	st, realized := testSpec.Advance(BatteryState{SoC: 100}, 50, 5)
	assert.Equal(t, 0.0, realized)
	assert.Equal(t, 100.0, st.SoC)
}

func TestAdvance_PartialClipNearBoundary(t *testing.T) {
	// 1 kWh of headroom; a 50 kW / 5 min request (4.1667 kWh) must be cut
	// to the power that exactly fills the battery.
	st, realized := testSpec.Advance(BatteryState{SoC: 99}, 50, 5)
	assert.InDelta(t, 100, st.SoC, 1e-9)
	// 1 kWh over 5 minutes is 12 kW.
	assert.InDelta(t, 12, realized, 1e-9)

	// Mirror case at the bottom.
	st, realized = testSpec.Advance(BatteryState{SoC: 1}, -50, 5)
	assert.InDelta(t, 0, st.SoC, 1e-9)
	assert.InDelta(t, -12, realized, 1e-9)
}

func TestAdvance_Efficiency(t *testing.T) {
	spec := testSpec
	spec.Efficiency = 0.9

	// Charging: grid energy 4.1667 kWh stores only 3.75 kWh.
	st, realized := spec.Advance(BatteryState{SoC: 50}, 50, 5)
	assert.Equal(t, 50.0, realized)
	assert.InDelta(t, 50+4.1666666667*0.9, st.SoC, 1e-6)

	// Discharging: delivering 4.1667 kWh withdraws 4.6296 kWh.
	st, realized = spec.Advance(BatteryState{SoC: 50}, -50, 5)
	assert.Equal(t, -50.0, realized)
	assert.InDelta(t, 50-4.1666666667/0.9, st.SoC, 1e-6)
}

func TestAdvance_SoCAlwaysInRange(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	specs := []BatterySpec{
		testSpec,
		{CapacityKWh: 13, MaxRateKW: 7, Efficiency: 0.85},
		{CapacityKWh: 1, MaxRateKW: 50, Efficiency: 1},
	}
	for _, spec := range specs {
		st := BatteryState{SoC: rng.Float64() * 100}
		for i := 0; i < 1000; i++ {
			req := (rng.Float64() - 0.5) * 4 * spec.MaxRateKW
			dt := rng.Float64() * 60
			next, realized := spec.Advance(st, req, dt)
			assert.GreaterOrEqual(t, next.SoC, 0.0)
			assert.LessOrEqual(t, next.SoC, 100.0)
			assert.LessOrEqual(t, realized, spec.MaxRateKW)
			assert.GreaterOrEqual(t, realized, -spec.MaxRateKW)
			st = next
		}
	}
}

func TestAdvance_Deterministic(t *testing.T) {
	st := BatteryState{SoC: 37.5}
	a1, r1 := testSpec.Advance(st, 23.4, 5)
	a2, r2 := testSpec.Advance(st, 23.4, 5)
	assert.Equal(t, a1, a2)
	assert.Equal(t, r1, r2)
}

func TestStepProfit_SignConvention(t *testing.T) {
	// Charging spends money, discharging earns it.
	assert.InDelta(t, -4.1666666667*10, StepProfit(50, 10, 5), 1e-6)
	assert.InDelta(t, 4.1666666667*10, StepProfit(-50, 10, 5), 1e-6)
	assert.Equal(t, 0.0, StepProfit(0, 10, 5))

	// Negative prices flip both directions.
	assert.Positive(t, StepProfit(50, -10, 5))
}
