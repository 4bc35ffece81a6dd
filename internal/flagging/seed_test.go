package flagging

import (
	"strings"
	"testing"
)

const sampleSeed = `
ranges:
  - testCode: WBC
    min: 4
    max: 10
  - testCode: HGB
    gender: Male
    min: 13.5
    max: 17.5
  - testCode: HGB
    gender: Female
    min: 12.0
    max: 15.5
`

func TestParseSeed(t *testing.T) {
	configs, err := ParseSeed([]byte(sampleSeed))
	if err != nil {
		t.Fatalf("ParseSeed returned error: %v", err)
	}

	if len(configs) != 3 {
		t.Fatalf("expected 3 configs, got %d", len(configs))
	}

	if configs[0].TestCode != "WBC" || configs[0].Gender != "" {
		t.Errorf("unexpected first config: %+v", configs[0])
	}
	if configs[1].Gender != "Male" || configs[1].Min != 13.5 {
		t.Errorf("unexpected second config: %+v", configs[1])
	}
	for _, cfg := range configs {
		if !cfg.IsActive {
			t.Errorf("seeded config %s should be active", cfg.TestCode)
		}
	}
}

func TestParseSeedRejectsMissingTestCode(t *testing.T) {
	_, err := ParseSeed([]byte("ranges:\n  - min: 1\n    max: 2\n"))
	if err == nil || !strings.Contains(err.Error(), "testCode is required") {
		t.Fatalf("expected missing testCode error, got %v", err)
	}
}

func TestParseSeedRejectsInvertedRange(t *testing.T) {
	_, err := ParseSeed([]byte("ranges:\n  - testCode: WBC\n    min: 10\n    max: 4\n"))
	if err == nil || !strings.Contains(err.Error(), "must be below max") {
		t.Fatalf("expected inverted range error, got %v", err)
	}
}

func TestParseSeedRejectsMalformedYAML(t *testing.T) {
	if _, err := ParseSeed([]byte("ranges: [")); err == nil {
		t.Fatal("expected YAML parse error")
	}
}

func TestSeedFeedsSnapshot(t *testing.T) {
	configs, err := ParseSeed([]byte(sampleSeed))
	if err != nil {
		t.Fatalf("ParseSeed returned error: %v", err)
	}

	snap := NewSnapshot(configs)
	if !snap.Has("HGB", "Male") || !snap.Has("WBC", "Female") {
		t.Error("expected snapshot built from seed to resolve configs")
	}
}
