package sim

import "fmt"

// ConfigError reports invalid episode or battery configuration. It is fatal
// to the trial being configured and never retried.
type ConfigError struct {
	Msg string
}

func (e *ConfigError) Error() string { return "invalid configuration: " + e.Msg }

func configErrorf(format string, args ...any) *ConfigError {
	return &ConfigError{Msg: fmt.Sprintf(format, args...)}
}

// StateError reports a call that is illegal in the environment's current
// phase, such as stepping a finished episode. It indicates a harness bug.
type StateError struct {
	Op    string
	Phase Phase
}

func (e *StateError) Error() string {
	return fmt.Sprintf("%s called while environment is %s", e.Op, e.Phase)
}
