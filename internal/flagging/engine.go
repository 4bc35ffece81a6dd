// Package flagging classifies measured values against reference ranges.
package flagging

import (
	"strings"

	"labportal_backend/internal/orders/domain"
)

// Config is one active reference range. Gender is empty for wildcard
// rows that apply to any patient.
type Config struct {
	TestCode string
	Gender   string
	Min      float64
	Max      float64
	IsActive bool
}

type configKey struct {
	testCode string
	gender   string
}

// Snapshot is an immutable view of the active flagging configuration.
// Classification over a snapshot is a pure function: no I/O, no side
// effects, deterministic for a given input.
type Snapshot struct {
	configs map[configKey]Config
}

// NewSnapshot builds a snapshot from the given configs. Inactive rows
// are dropped; a later row for the same (testCode, gender) wins.
func NewSnapshot(configs []Config) *Snapshot {
	indexed := make(map[configKey]Config, len(configs))
	for _, cfg := range configs {
		if !cfg.IsActive {
			continue
		}
		indexed[keyFor(cfg.TestCode, cfg.Gender)] = cfg
	}
	return &Snapshot{configs: indexed}
}

// Classify flags a numeric value for a test code. A gender-specific
// config takes precedence over a gender-agnostic one; with no config
// at all the value is flagged Normal. That default is deliberate: an
// unconfigured test code must not block ingestion.
func (s *Snapshot) Classify(testCode string, value float64, gender string) domain.Flag {
	cfg, ok := s.lookup(testCode, gender)
	if !ok {
		return domain.FlagNormal
	}

	switch {
	case value < cfg.Min:
		return domain.FlagLow
	case value > cfg.Max:
		return domain.FlagHigh
	default:
		return domain.FlagNormal
	}
}

// Has reports whether any config exists for the test code and gender.
func (s *Snapshot) Has(testCode, gender string) bool {
	_, ok := s.lookup(testCode, gender)
	return ok
}

func (s *Snapshot) lookup(testCode, gender string) (Config, bool) {
	if gender != "" {
		if cfg, ok := s.configs[keyFor(testCode, gender)]; ok {
			return cfg, true
		}
	}
	cfg, ok := s.configs[keyFor(testCode, "")]
	return cfg, ok
}

func keyFor(testCode, gender string) configKey {
	return configKey{
		testCode: strings.ToUpper(strings.TrimSpace(testCode)),
		gender:   strings.ToLower(strings.TrimSpace(gender)),
	}
}
