package cli

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/halwest/tapline/internal/causality"
	"github.com/halwest/tapline/internal/engine"
)

// ScoringConfig tunes the heuristic causality scorer. Zero-valued fields
// keep their defaults, so a config file only needs to name the weights it
// changes.
type ScoringConfig struct {
	BaseWeight      *float64 `yaml:"base_weight,omitempty"`
	SameAgentBonus  *float64 `yaml:"same_agent_bonus,omitempty"`
	DeclaredBonus   *float64 `yaml:"declared_bonus,omitempty"`
	ProximityWeight *float64 `yaml:"proximity_weight,omitempty"`
	ProximityScale  string   `yaml:"proximity_scale,omitempty"` // Go duration, e.g. "5m"
}

// Config is the on-disk CLI configuration.
type Config struct {
	Scoring ScoringConfig `yaml:"scoring,omitempty"`
}

// LoadConfig reads and parses a config YAML file. Unknown fields are
// rejected.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}

// Scorer builds the configured scorer on top of the defaults.
func (c *Config) Scorer() (*causality.HeuristicScorer, error) {
	s := causality.NewHeuristicScorer()
	if v := c.Scoring.BaseWeight; v != nil {
		s.BaseWeight = *v
	}
	if v := c.Scoring.SameAgentBonus; v != nil {
		s.SameAgentBonus = *v
	}
	if v := c.Scoring.DeclaredBonus; v != nil {
		s.DeclaredBonus = *v
	}
	if v := c.Scoring.ProximityWeight; v != nil {
		s.ProximityWeight = *v
	}
	if c.Scoring.ProximityScale != "" {
		scale, err := time.ParseDuration(c.Scoring.ProximityScale)
		if err != nil {
			return nil, fmt.Errorf("bad proximity_scale: %w", err)
		}
		s.ProximityScale = scale
	}
	return s, nil
}

// engineOptions resolves the optional --config flag into engine options.
func engineOptions(opts *RootOptions) ([]engine.Option, error) {
	if opts.ConfigPath == "" {
		return nil, nil
	}
	cfg, err := LoadConfig(opts.ConfigPath)
	if err != nil {
		return nil, err
	}
	scorer, err := cfg.Scorer()
	if err != nil {
		return nil, err
	}
	return []engine.Option{engine.WithScorer(scorer)}, nil
}
