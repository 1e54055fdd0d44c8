package model

import (
	"errors"
	"math"
)

// MinutesPerHour converts a power (kW) held for dt minutes into energy (kWh):
// energyKWh = powerKW * dtMinutes / MinutesPerHour.
//
// Unit conventions used throughout:
// - Power: kW (positive = charge, negative = discharge)
// - Energy: kWh
// - Time: minutes
// - SoC: percent of capacity [0,100]
// - Price: $/kWh
const MinutesPerHour = 60.0

// BatterySpec defines the physical parameters of the battery.
type BatterySpec struct {
	// CapacityKWh is the usable energy capacity in kWh.
	CapacityKWh float64
	// MaxRateKW is the symmetric charge/discharge power limit in kW.
	MaxRateKW float64
	// Efficiency is the one-way charge/discharge efficiency in (0,1].
	// Charging stores energy*Efficiency; discharging withdraws
	// energy/Efficiency from the battery per kWh delivered to the grid.
	Efficiency float64
}

// BatteryState is the mutable state of one battery instance.
type BatteryState struct {
	// SoC is the state of charge as a percent of capacity [0,100].
	SoC float64
}

func (s BatterySpec) Validate() error {
	if s.CapacityKWh <= 0 {
		return errors.New("CapacityKWh must be > 0")
	}
	if s.MaxRateKW <= 0 {
		return errors.New("MaxRateKW must be > 0")
	}
	if s.Efficiency <= 0 || s.Efficiency > 1 {
		return errors.New("Efficiency must be in (0, 1]")
	}
	return nil
}

// StoredKWh converts a SoC percent into stored energy for this spec.
func (s BatterySpec) StoredKWh(socPercent float64) float64 {
	return socPercent / 100 * s.CapacityKWh
}

// ClipRate enforces the power limit only, without SoC constraints.
func (s BatterySpec) ClipRate(powerKW float64) float64 {
	if powerKW > s.MaxRateKW {
		return s.MaxRateKW
	}
	if powerKW < -s.MaxRateKW {
		return -s.MaxRateKW
	}
	return powerKW
}

// Advance applies a requested power for dtMinutes and returns the new state
// together with the realized power. The request is first clipped to
// [-MaxRateKW, MaxRateKW] and then further reduced so the resulting SoC
// stays within [0,100]; the returned power is what the battery physically
// did, never more than it could. Pure function of its inputs.
func (s BatterySpec) Advance(state BatteryState, requestedKW, dtMinutes float64) (BatteryState, float64) {
	if dtMinutes <= 0 {
		return state, 0
	}

	p := s.ClipRate(requestedKW)
	dtH := dtMinutes / MinutesPerHour

	switch {
	case p > 0:
		// Charging: grid-side energy is p*dtH, of which Efficiency reaches
		// the cells. Headroom limits the grid-side request.
		headroomKWh := s.CapacityKWh - s.StoredKWh(state.SoC)
		if headroomKWh < 0 {
			headroomKWh = 0
		}
		maxGridKWh := headroomKWh / s.Efficiency
		gridKWh := p * dtH
		if gridKWh > maxGridKWh {
			gridKWh = maxGridKWh
			p = gridKWh / dtH
		}
		storedKWh := gridKWh * s.Efficiency
		state.SoC = clampSoC(state.SoC + storedKWh/s.CapacityKWh*100)
	case p < 0:
		// Discharging: delivering gridKWh to the grid withdraws
		// gridKWh/Efficiency from the cells.
		availableKWh := s.StoredKWh(state.SoC)
		if availableKWh < 0 {
			availableKWh = 0
		}
		maxGridKWh := availableKWh * s.Efficiency
		gridKWh := -p * dtH
		if gridKWh > maxGridKWh {
			gridKWh = maxGridKWh
			p = -gridKWh / dtH
		}
		withdrawnKWh := gridKWh / s.Efficiency
		state.SoC = clampSoC(state.SoC - withdrawnKWh/s.CapacityKWh*100)
	}

	return state, p
}

// GridEnergyKWh is the grid-side energy moved by holding powerKW for dtMinutes.
func GridEnergyKWh(powerKW, dtMinutes float64) float64 {
	return powerKW * dtMinutes / MinutesPerHour
}

// StepProfit is the settlement for one step: charging spends money,
// discharging earns it. price is $/kWh at the settlement price.
func StepProfit(realizedKW, price, dtMinutes float64) float64 {
	return -GridEnergyKWh(realizedKW, dtMinutes) * price
}

// clampSoC guards against float drift at the exact 0/100 boundaries; the
// feasibility clipping above already keeps the true value inside the range.
func clampSoC(soc float64) float64 {
	return math.Min(100, math.Max(0, soc))
}
