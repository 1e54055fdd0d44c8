package model

// Action is a human-friendly operating mode for a timestep.
// Keep these values stable; they appear in CSV output and log lines.
type Action string

const (
	ActionCharging    Action = "CHARGING"
	ActionIdle        Action = "IDLE"
	ActionDischarging Action = "DISCHARGING"
)

func ActionFromPowerKW(powerKW float64) Action {
	switch {
	case powerKW > 0:
		return ActionCharging
	case powerKW < 0:
		return ActionDischarging
	default:
		return ActionIdle
	}
}
