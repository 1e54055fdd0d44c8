package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"battery-eval/internal/logging"
	"battery-eval/internal/model"
	"battery-eval/internal/sim"
	"battery-eval/internal/trial"
)

// Config is the on-disk configuration shape (YAML).
type Config struct {
	// Data is the path to the market data CSV.
	Data    string         `yaml:"data"`
	Battery BatteryConfig  `yaml:"battery"`
	Env     EnvConfig      `yaml:"env"`
	Policy  PolicyConfig   `yaml:"policy"`
	Eval    EvalConfig     `yaml:"eval"`
	Store   StoreConfig    `yaml:"store"`
	Log     logging.Config `yaml:"log"`

	// Team and CommitHash identify the submission. Filled from the TEAM
	// and COMMIT_HASH environment variables (a .env file is honored) when
	// not set in YAML.
	Team       string `yaml:"team"`
	CommitHash string `yaml:"commit_hash"`
}

type BatteryConfig struct {
	CapacityKWh float64 `yaml:"capacity_kwh"`
	MaxRateKW   float64 `yaml:"max_rate_kw"`
	Efficiency  float64 `yaml:"efficiency"`
}

type EnvConfig struct {
	DtMinutes  float64 `yaml:"dt_minutes"`
	SpotWindow int     `yaml:"spot_window"`
}

type PolicyConfig struct {
	ClassName  string         `yaml:"class_name"`
	Parameters map[string]any `yaml:"parameters"`
}

type EvalConfig struct {
	NumRuns             int     `yaml:"num_runs"`
	Seed                int64   `yaml:"seed"`
	Parallelism         int     `yaml:"parallelism"`
	TrialTimeoutSeconds float64 `yaml:"trial_timeout_seconds"`
	InitialSoCMin       float64 `yaml:"initial_soc_min"`
	InitialSoCMax       float64 `yaml:"initial_soc_max"`
	MinEpisodeLength    int     `yaml:"min_episode_length"`
	MainInitialSoC      float64 `yaml:"main_initial_soc"`
}

type StoreConfig struct {
	// Path to the SQLite submissions database. Empty disables persistence.
	Path string `yaml:"path"`
}

// Load reads, defaults and validates a config file. A .env file next to
// the working directory is loaded first so TEAM/COMMIT_HASH can live there.
func Load(path string) (*Config, error) {
	// Missing .env is fine; explicit env vars still apply.
	_ = godotenv.Load()

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c Config
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	c.applyDefaults()
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &c, nil
}

func (c *Config) applyDefaults() {
	if c.Battery.CapacityKWh == 0 {
		c.Battery.CapacityKWh = 100
	}
	if c.Battery.MaxRateKW == 0 {
		c.Battery.MaxRateKW = 50
	}
	if c.Battery.Efficiency == 0 {
		c.Battery.Efficiency = 1
	}
	if c.Eval.NumRuns == 0 {
		c.Eval.NumRuns = 100
	}
	if c.Team == "" {
		c.Team = os.Getenv("TEAM")
	}
	if c.CommitHash == "" {
		c.CommitHash = os.Getenv("COMMIT_HASH")
	}
}

func (c *Config) Validate() error {
	if c.Data == "" {
		return errors.New("data path is required")
	}
	if c.Policy.ClassName == "" {
		return errors.New("policy.class_name is required")
	}
	if err := c.ToBatterySpec().Validate(); err != nil {
		return fmt.Errorf("battery config invalid: %w", err)
	}
	if c.Eval.NumRuns < 1 {
		return errors.New("eval.num_runs must be >= 1")
	}
	return nil
}

func (c *Config) ToBatterySpec() model.BatterySpec {
	return model.BatterySpec{
		CapacityKWh: c.Battery.CapacityKWh,
		MaxRateKW:   c.Battery.MaxRateKW,
		Efficiency:  c.Battery.Efficiency,
	}
}

func (c *Config) ToSimOptions() sim.Options {
	return sim.Options{
		DtMinutes:  c.Env.DtMinutes,
		SpotWindow: c.Env.SpotWindow,
	}
}

func (c *Config) ToTrialConfig() trial.Config {
	return trial.Config{
		InitialSoCMin:    c.Eval.InitialSoCMin,
		InitialSoCMax:    c.Eval.InitialSoCMax,
		MinEpisodeLength: c.Eval.MinEpisodeLength,
		MainInitialSoC:   c.Eval.MainInitialSoC,
	}
}

func (c *Config) TrialTimeout() time.Duration {
	return time.Duration(c.Eval.TrialTimeoutSeconds * float64(time.Second))
}
