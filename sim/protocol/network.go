package protocol

import (
	"fmt"

	"github.com/netsim/netsim/sim"
	"github.com/netsim/netsim/sim/geo"
)

// NewNetwork creates the Network and NodeBuilder a protocol uses for the
// given latency configuration. The geo model places nodes in cities from the
// embedded table, or from cfg.CityFile when set; unknown cities fail here.
func NewNetwork(cfg sim.LatencyConfig, key sim.SimulationKey) (*sim.Network, *sim.NodeBuilder, error) {
	if cfg.Model != "geo" {
		latency, err := sim.NewLatencyModel(cfg, nil)
		if err != nil {
			return nil, nil, err
		}
		return sim.NewNetwork(key, latency), sim.NewNodeBuilder(), nil
	}

	table := geo.Default()
	if cfg.CityFile != "" {
		var err error
		if table, err = geo.LoadTable(cfg.CityFile); err != nil {
			return nil, nil, fmt.Errorf("loading cities: %w", err)
		}
	}
	latency, err := sim.NewLatencyModel(cfg, table)
	if err != nil {
		return nil, nil, err
	}
	builder, err := sim.NewNodeBuilderWithCities(table, cfg.Cities)
	if err != nil {
		return nil, nil, err
	}
	return sim.NewNetwork(key, latency), builder, nil
}

// Finisher is implemented by protocols with a natural end (every node done,
// every node decided).
type Finisher interface {
	Finished() bool
}

// RunToCompletion advances the session until the protocol reports it has
// finished, or maxMs have elapsed. Protocols without a natural end simply
// run maxMs. Returns whether the protocol finished.
func (s *Session) RunToCompletion(maxMs int64) bool {
	if f, ok := s.proto.(Finisher); ok {
		return s.net.RunUntil(f.Finished, maxMs)
	}
	s.net.RunMs(maxMs)
	return false
}
