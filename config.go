package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the structured run configuration (§ outputs a snapshot of it
// into every per-run report).
type Config struct {
	Dataset string `yaml:"dataset"`

	Simulation struct {
		Type        string `yaml:"type"` // simple | monte_carlo | walk_forward
		InitialFund int64  `yaml:"initial_fund"`
		RandomSeed  int64  `yaml:"random_seed"`
	} `yaml:"simulation"`

	MonteCarlo struct {
		NumTrials       int     `yaml:"num_trials"`
		Method          string  `yaml:"method"` // bootstrap | probability_based
		ConfidenceLevel float64 `yaml:"confidence_level"`
		TargetFund      int64   `yaml:"target_fund"`
	} `yaml:"monte_carlo"`

	WalkForward struct {
		TrainPeriodDays int `yaml:"train_period_days"`
		TestPeriodDays  int `yaml:"test_period_days"`
		StepDays        int `yaml:"step_days"`
	} `yaml:"walk_forward"`

	Strategy struct {
		Name   string         `yaml:"name"`
		Params map[string]any `yaml:"params"`
	} `yaml:"strategy"`

	CompositeStrategy struct {
		Enabled    bool `yaml:"enabled"`
		Strategies []struct {
			Name   string         `yaml:"name"`
			Weight float64        `yaml:"weight"`
			Params map[string]any `yaml:"params"`
		} `yaml:"strategies"`
	} `yaml:"composite_strategy"`

	FundManagement struct {
		Method      string         `yaml:"method"` // fixed | percentage | kelly
		Params      map[string]any `yaml:"params"`
		Constraints struct {
			MinBet            int64   `yaml:"min_bet"`
			MaxBetPerTicket   int64   `yaml:"max_bet_per_ticket"`
			MaxBetPerRace     int64   `yaml:"max_bet_per_race"`
			MaxBetPerDay      int64   `yaml:"max_bet_per_day"`
			StopLossThreshold float64 `yaml:"stop_loss_threshold"`
		} `yaml:"constraints"`
	} `yaml:"fund_management"`

	RaceFilter struct {
		MinHorseCount int     `yaml:"min_horse_count"`
		MinConfidence float64 `yaml:"min_confidence"`
		Surface       string  `yaml:"surface"` // empty = any
		DistanceMin   int     `yaml:"distance_min"`
		DistanceMax   int     `yaml:"distance_max"`
		Tracks        struct {
			Mode  string            `yaml:"mode"` // whitelist | blacklist | tier
			List  []string          `yaml:"list"`
			Tiers map[string]string `yaml:"tiers"`
		} `yaml:"tracks"`
		Years          []int `yaml:"years"`
		RaceNumbers    []int `yaml:"race_numbers"`
		SkipMaiden     bool  `yaml:"skip_maiden"`
		SkipBadWeather bool  `yaml:"skip_bad_weather"`
		SkipNoUpset    bool  `yaml:"skip_no_upset"`
	} `yaml:"race_filter"`

	Output struct {
		Directory string `yaml:"directory"`
		Formats   struct {
			JSON bool `yaml:"json"`
			CSV  bool `yaml:"csv"`
			TXT  bool `yaml:"txt"`
		} `yaml:"formats"`
		Charts bool `yaml:"charts"`
	} `yaml:"output"`
}

// DefaultConfig returns the defaults applied under a loaded document.
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.Simulation.Type = "simple"
	cfg.Simulation.InitialFund = 100000
	cfg.MonteCarlo.NumTrials = 10000
	cfg.MonteCarlo.Method = "bootstrap"
	cfg.MonteCarlo.ConfidenceLevel = 0.95
	cfg.WalkForward.TrainPeriodDays = 180
	cfg.WalkForward.TestPeriodDays = 30
	cfg.WalkForward.StepDays = 30
	cfg.Strategy.Name = "favorite_win"
	cfg.FundManagement.Method = "fixed"
	cfg.FundManagement.Constraints.MinBet = 100
	cfg.FundManagement.Constraints.MaxBetPerTicket = 100000
	cfg.FundManagement.Constraints.MaxBetPerRace = 500000
	cfg.RaceFilter.MinHorseCount = 12
	cfg.RaceFilter.DistanceMax = 99999
	cfg.Output.Directory = "output"
	cfg.Output.Formats.JSON = true
	cfg.Output.Formats.CSV = true
	cfg.Output.Formats.TXT = true
	return cfg
}

// LoadConfig reads and decodes a YAML configuration file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrConfigInvalid, path, err)
	}
	return cfg, nil
}

// Validate returns every problem found (empty means valid). Construction
// of the strategy and bankroll doubles as parameter validation.
func (cfg *Config) Validate() []string {
	var errs []string

	switch cfg.Simulation.Type {
	case "simple", "monte_carlo", "walk_forward":
	default:
		errs = append(errs, fmt.Sprintf("simulation.type must be simple, monte_carlo, or walk_forward, got %q", cfg.Simulation.Type))
	}
	if cfg.Simulation.InitialFund <= 0 {
		errs = append(errs, "simulation.initial_fund must be positive")
	}

	if cfg.Simulation.Type == "monte_carlo" {
		if cfg.MonteCarlo.NumTrials < 1 {
			errs = append(errs, "monte_carlo.num_trials must be >= 1")
		}
		if _, err := ParseMCMethod(cfg.MonteCarlo.Method); err != nil {
			errs = append(errs, err.Error())
		}
	}
	if cfg.Simulation.Type == "walk_forward" {
		if cfg.WalkForward.TrainPeriodDays <= 0 || cfg.WalkForward.TestPeriodDays <= 0 || cfg.WalkForward.StepDays <= 0 {
			errs = append(errs, "walk_forward periods must all be positive")
		}
	}

	if _, err := cfg.BuildStrategy(); err != nil {
		errs = append(errs, err.Error())
	}
	if _, err := cfg.BuildBankroll(); err != nil {
		errs = append(errs, err.Error())
	}
	if _, err := cfg.BuildFilter(); err != nil {
		errs = append(errs, err.Error())
	}

	if cfg.FundManagement.Constraints.StopLossThreshold < 0 || cfg.FundManagement.Constraints.StopLossThreshold >= 1 {
		errs = append(errs, "fund_management.constraints.stop_loss_threshold must be in [0, 1)")
	}
	return errs
}

// BuildStrategy constructs the configured strategy (composite when
// enabled).
func (cfg *Config) BuildStrategy() (*Strategy, error) {
	if cfg.CompositeStrategy.Enabled {
		var subs []WeightedStrategy
		for _, sub := range cfg.CompositeStrategy.Strategies {
			s, err := NewStrategy(sub.Name, sub.Params)
			if err != nil {
				return nil, err
			}
			subs = append(subs, WeightedStrategy{Strategy: s, Weight: sub.Weight})
		}
		return NewCompositeStrategy(subs)
	}
	return NewStrategy(cfg.Strategy.Name, cfg.Strategy.Params)
}

// BuildBankroll constructs the configured fund manager.
func (cfg *Config) BuildBankroll() (*Bankroll, error) {
	c := DefaultConstraints()
	cc := cfg.FundManagement.Constraints
	if cc.MinBet > 0 {
		c.MinBet = cc.MinBet
	}
	c.MaxBetPerTicket = cc.MaxBetPerTicket
	c.MaxBetPerRace = cc.MaxBetPerRace
	c.MaxBetPerDay = cc.MaxBetPerDay
	c.StopLossThreshold = cc.StopLossThreshold
	return NewBankroll(cfg.FundManagement.Method, cfg.FundManagement.Params, c)
}

// BuildFilter constructs the configured race filter.
func (cfg *Config) BuildFilter() (*RaceFilter, error) {
	f := NewRaceFilter()
	rf := cfg.RaceFilter
	if rf.MinHorseCount > 0 {
		f.MinHorseCount = rf.MinHorseCount
	}
	f.MinConfidence = rf.MinConfidence
	if rf.Surface != "" {
		surface, err := ParseSurface(rf.Surface)
		if err != nil {
			return nil, fmt.Errorf("%w: race_filter.surface: %v", ErrConfigInvalid, err)
		}
		f.Surface = &surface
	}
	f.DistanceMin = rf.DistanceMin
	if rf.DistanceMax > 0 {
		f.DistanceMax = rf.DistanceMax
	}
	switch rf.Tracks.Mode {
	case TrackModeOff, TrackModeWhitelist, TrackModeBlacklist, TrackModeTier:
		f.TrackMode = rf.Tracks.Mode
	default:
		return nil, fmt.Errorf("%w: race_filter.tracks.mode %q", ErrConfigInvalid, rf.Tracks.Mode)
	}
	f.Tracks = rf.Tracks.List
	f.Tiers = rf.Tracks.Tiers
	f.Years = rf.Years
	f.RaceNumbers = rf.RaceNumbers
	f.SkipMaiden = rf.SkipMaiden
	f.SkipBadWeather = rf.SkipBadWeather
	f.SkipNoUpset = rf.SkipNoUpset
	return f, nil
}
