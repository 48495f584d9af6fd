// Package protocol maps protocol names to typed factories and exposes the
// control Session used by outer layers (CLI, remote inspection) to drive a
// simulation.
package protocol

import (
	"bytes"
	"fmt"
	"io"
	"sort"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/netsim/netsim/sim"
	"github.com/netsim/netsim/sim/stats"
)

// Protocol is a simulated protocol bound to its own Network. Init builds the
// node population and seeds the initial envelopes; afterwards the protocol
// is driven only through its Network's run primitives.
type Protocol interface {
	Network() *sim.Network
	Init()
}

// Reporter is implemented by protocols with outcome figures worth printing
// after a run (final color split, miner revenue, ...).
type Reporter interface {
	Report() logrus.Fields
}

// MetricsProvider is implemented by protocols that choose their own
// per-node metrics instead of stats.Defaults.
type MetricsProvider interface {
	Metrics() []stats.Getter
}

// Validator is implemented by parameter structs.
type Validator interface {
	Validate() error
}

// Factory builds one protocol from its typed parameters.
type Factory struct {
	Name        string
	Description string

	defaults func() any
	build    func(params any, key sim.SimulationKey) (Protocol, error)
}

var registry = map[string]*Factory{}

// Register adds a protocol under name. P is the protocol's parameter struct;
// defaults returns a fully populated default value. Registering the same name
// twice panics.
func Register[P any](name, description string, defaults func() *P, build func(*P, sim.SimulationKey) (Protocol, error)) {
	if _, dup := registry[name]; dup {
		panic(fmt.Sprintf("protocol %q registered twice", name))
	}
	registry[name] = &Factory{
		Name:        name,
		Description: description,
		defaults:    func() any { return defaults() },
		build: func(params any, key sim.SimulationKey) (Protocol, error) {
			p, ok := params.(*P)
			if !ok {
				return nil, fmt.Errorf("protocol %s: parameters have type %T, want %T", name, params, new(P))
			}
			return build(p, key)
		},
	}
}

// Names returns the registered protocol names, sorted.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Lookup returns the factory registered under name.
func Lookup(name string) (*Factory, error) {
	f, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("unknown protocol %q; valid: %v", name, Names())
	}
	return f, nil
}

// Defaults returns a fresh default parameter value (a pointer to the
// protocol's parameter struct).
func (f *Factory) Defaults() any {
	return f.defaults()
}

// Decode parses YAML parameters over the defaults. Unknown keys are rejected
// and the result is validated. Empty input yields the defaults.
func (f *Factory) Decode(raw []byte) (any, error) {
	params := f.defaults()
	if len(bytes.TrimSpace(raw)) > 0 {
		decoder := yaml.NewDecoder(bytes.NewReader(raw))
		decoder.KnownFields(true)
		if err := decoder.Decode(params); err != nil && err != io.EOF {
			return nil, fmt.Errorf("parsing %s parameters: %w", f.Name, err)
		}
	}
	if v, ok := params.(Validator); ok {
		if err := v.Validate(); err != nil {
			return nil, fmt.Errorf("invalid %s parameters: %w", f.Name, err)
		}
	}
	return params, nil
}

// Build creates the protocol. params must come from Defaults or Decode of
// this factory.
func (f *Factory) Build(params any, key sim.SimulationKey) (Protocol, error) {
	if v, ok := params.(Validator); ok {
		if err := v.Validate(); err != nil {
			return nil, fmt.Errorf("invalid %s parameters: %w", f.Name, err)
		}
	}
	return f.build(params, key)
}

// New looks up name, decodes raw parameters and builds the protocol.
// The protocol is not initialised.
func New(name string, raw []byte, key sim.SimulationKey) (Protocol, any, error) {
	f, err := Lookup(name)
	if err != nil {
		return nil, nil, err
	}
	params, err := f.Decode(raw)
	if err != nil {
		return nil, nil, err
	}
	p, err := f.Build(params, key)
	if err != nil {
		return nil, nil, err
	}
	return p, params, nil
}
