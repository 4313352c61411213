package model

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Search    SearchConfig    `yaml:"search"`
	Heuristic HeuristicConfig `yaml:"heuristic"`
	Temporal  TemporalConfig  `yaml:"temporal"`
	Logging   LoggingConfig   `yaml:"logging"`
	Watch     WatchConfig     `yaml:"watch"`
}

type SearchConfig struct {
	Strategy      Strategy    `yaml:"strategy"`
	Weight        float64     `yaml:"weight"` // wastar only
	Dedup         DedupPolicy `yaml:"dedup"`
	CostModel     CostModel   `yaml:"cost_model"`
	MaxNodes      int         `yaml:"max_nodes"` // 0 = unlimited
	TimeoutSec    float64     `yaml:"timeout_sec"`
	Workers       int         `yaml:"workers"`
	ProgressEvery int         `yaml:"progress_every"`
}

type HeuristicConfig struct {
	Kind      HeuristicKind `yaml:"kind"`
	CacheSize int           `yaml:"cache_size"`
}

type TemporalConfig struct {
	// Epsilon separates interfering happenings and is the cost of an
	// instantaneous action under the duration cost model.
	Epsilon float64 `yaml:"epsilon"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

type WatchConfig struct {
	DebounceSec float64 `yaml:"debounce_sec"`
}

func DefaultConfig() Config {
	return Config{
		Search: SearchConfig{
			Strategy:      StrategyAStar,
			Weight:        1.0,
			Dedup:         DedupFacts,
			CostModel:     CostDuration,
			MaxNodes:      200000,
			Workers:       1,
			ProgressEvery: 1000,
		},
		Heuristic: HeuristicConfig{
			Kind:      HeuristicMax,
			CacheSize: 4096,
		},
		Temporal: TemporalConfig{Epsilon: 0.001},
		Logging:  LoggingConfig{Level: "info"},
		Watch:    WatchConfig{DebounceSec: 0.3},
	}
}

// LoadConfig reads a YAML config. Fields missing from the file keep their
// DefaultConfig values.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	if verrs := cfg.Validate(); verrs != nil {
		return cfg, verrs
	}
	return cfg, nil
}

var (
	validStrategies = map[Strategy]bool{StrategyAStar: true, StrategyWeighted: true, StrategyGreedy: true}
	validDedup      = map[DedupPolicy]bool{DedupFacts: true, DedupLogical: true, DedupNone: true}
	validCostModels = map[CostModel]bool{CostDuration: true, CostUnit: true, CostMakespan: true}
	validHeuristics = map[HeuristicKind]bool{HeuristicMax: true, HeuristicAdd: true, HeuristicBlind: true}
	validLogLevels  = map[string]bool{"debug": true, "info": true, "warn": true, "warning": true, "error": true}
)

func (c Config) Validate() *ValidationErrors {
	errs := &ValidationErrors{}
	if !validStrategies[c.Search.Strategy] {
		errs.Add("search.strategy", fmt.Sprintf("unknown strategy %q", c.Search.Strategy))
	}
	if c.Search.Strategy == StrategyWeighted && c.Search.Weight < 1 {
		errs.Add("search.weight", "must be >= 1 for wastar")
	}
	if !validDedup[c.Search.Dedup] {
		errs.Add("search.dedup", fmt.Sprintf("unknown dedup policy %q", c.Search.Dedup))
	}
	if !validCostModels[c.Search.CostModel] {
		errs.Add("search.cost_model", fmt.Sprintf("unknown cost model %q", c.Search.CostModel))
	}
	if c.Search.MaxNodes < 0 {
		errs.Add("search.max_nodes", "must be >= 0")
	}
	if c.Search.TimeoutSec < 0 {
		errs.Add("search.timeout_sec", "must be >= 0")
	}
	if c.Search.Workers < 1 {
		errs.Add("search.workers", "must be >= 1")
	}
	if !validHeuristics[c.Heuristic.Kind] {
		errs.Add("heuristic.kind", fmt.Sprintf("unknown heuristic %q", c.Heuristic.Kind))
	}
	if c.Heuristic.CacheSize < 0 {
		errs.Add("heuristic.cache_size", "must be >= 0")
	}
	if c.Temporal.Epsilon <= 0 {
		errs.Add("temporal.epsilon", "must be > 0")
	}
	if c.Watch.DebounceSec < 0 {
		errs.Add("watch.debounce_sec", "must be >= 0")
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs.Add("logging.level", fmt.Sprintf("unknown level %q", c.Logging.Level))
	}
	if errs.HasErrors() {
		return errs
	}
	return nil
}
