package cmd

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Scenario is a named, reproducible run preset in scenarios.yaml.
type Scenario struct {
	Protocol   string    `yaml:"protocol"`
	Seed       *int64    `yaml:"seed"`
	DurationMs int64     `yaml:"duration_ms"`
	Params     yaml.Node `yaml:"params"` // decoded strictly by the protocol's factory
}

// ScenarioFile represents the full scenarios.yaml structure.
// All top-level sections must be listed to satisfy KnownFields(true) strict parsing.
type ScenarioFile struct {
	Version   string              `yaml:"version"`
	Scenarios map[string]Scenario `yaml:"scenarios"`
}

// loadScenarioFile parses a scenario file with strict field checking.
func loadScenarioFile(path string) (*ScenarioFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading scenario file: %w", err)
	}
	var f ScenarioFile
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&f); err != nil {
		return nil, fmt.Errorf("parsing scenario file %s: %w", path, err)
	}
	return &f, nil
}

// loadScenario returns the named scenario of the file at path.
func loadScenario(path, name string) (*Scenario, error) {
	f, err := loadScenarioFile(path)
	if err != nil {
		return nil, err
	}
	sc, ok := f.Scenarios[name]
	if !ok {
		return nil, fmt.Errorf("scenario %q not found in %s", name, path)
	}
	if sc.Protocol == "" {
		return nil, fmt.Errorf("scenario %q has no protocol", name)
	}
	return &sc, nil
}

// RawParams re-encodes the params section for the protocol registry.
// A missing section yields nil (protocol defaults).
func (sc *Scenario) RawParams() ([]byte, error) {
	if sc.Params.Kind == 0 {
		return nil, nil
	}
	return yaml.Marshal(&sc.Params)
}

// apply fills opts from the scenario. Options whose flag was set explicitly
// are kept.
func (sc *Scenario) apply(opts *runOptions, changed func(flag string) bool) error {
	if !changed("protocol") {
		opts.Protocol = sc.Protocol
	}
	if sc.Seed != nil && !changed("seed") {
		opts.Seed = *sc.Seed
	}
	if sc.DurationMs > 0 && !changed("duration") {
		opts.DurationMs = sc.DurationMs
	}
	if !changed("params") {
		raw, err := sc.RawParams()
		if err != nil {
			return fmt.Errorf("scenario params: %w", err)
		}
		opts.Params = raw
	}
	return nil
}
