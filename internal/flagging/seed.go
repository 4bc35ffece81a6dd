package flagging

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// seedFile is the YAML document shape for reference range bootstrap data.
type seedFile struct {
	Ranges []seedRange `yaml:"ranges"`
}

type seedRange struct {
	TestCode string  `yaml:"testCode"`
	Gender   string  `yaml:"gender"`
	Min      float64 `yaml:"min"`
	Max      float64 `yaml:"max"`
}

// LoadSeed parses a reference-range seed file into flagging configs.
func LoadSeed(path string) ([]Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read flagging seed: %w", err)
	}
	return ParseSeed(data)
}

// ParseSeed parses seed YAML and validates each range.
func ParseSeed(data []byte) ([]Config, error) {
	var file seedFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse flagging seed: %w", err)
	}

	configs := make([]Config, 0, len(file.Ranges))
	for i, r := range file.Ranges {
		if r.TestCode == "" {
			return nil, fmt.Errorf("flagging seed range %d: testCode is required", i)
		}
		if r.Min >= r.Max {
			return nil, fmt.Errorf("flagging seed range %d (%s): min %v must be below max %v", i, r.TestCode, r.Min, r.Max)
		}
		configs = append(configs, Config{
			TestCode: r.TestCode,
			Gender:   r.Gender,
			Min:      r.Min,
			Max:      r.Max,
			IsActive: true,
		})
	}

	return configs, nil
}
