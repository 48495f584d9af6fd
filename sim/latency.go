package sim

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru"

	"github.com/netsim/netsim/sim/geo"
)

// LatencyModel computes the network delay of one envelope.
// All delays are in milliseconds and never negative.
type LatencyModel interface {
	// Delay returns the transit time from one node to another. jitter is a
	// value in [0, 100) drawn by the Network for this envelope; models that
	// do not add noise ignore it.
	Delay(from, to *Node, jitter int) int64
}

// LatencyConfig selects and parameterises a latency model. Loaded from the
// "latency" section of protocol parameter files.
type LatencyConfig struct {
	Model    string   `yaml:"model"`
	Base     int64    `yaml:"base"`
	Jitter   int64    `yaml:"jitter"`
	PerUnit  float64  `yaml:"per_unit"`
	Cities   []string `yaml:"cities"`
	CityFile string   `yaml:"city_file"` // replaces the embedded city table (geo only)
}

// ValidLatencyModels is the set of recognized latency model names.
var ValidLatencyModels = map[string]bool{"": true, "fixed": true, "distance": true, "geo": true}

// Validate checks model name and ranges.
func (c LatencyConfig) Validate() error {
	if !ValidLatencyModels[c.Model] {
		return fmt.Errorf("unknown latency model %q", c.Model)
	}
	if c.Base < 0 {
		return fmt.Errorf("latency base must be non-negative, got %d", c.Base)
	}
	if c.Jitter < 0 {
		return fmt.Errorf("latency jitter must be non-negative, got %d", c.Jitter)
	}
	if c.PerUnit < 0 {
		return fmt.Errorf("latency per_unit must be non-negative, got %f", c.PerUnit)
	}
	return nil
}

// NewLatencyModel builds the model named in cfg. An empty name means "fixed".
// table is only consulted by the "geo" model; nil selects geo.Default().
func NewLatencyModel(cfg LatencyConfig, table *geo.Table) (LatencyModel, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	switch cfg.Model {
	case "", "fixed":
		return &FixedLatency{Base: cfg.Base, Jitter: cfg.Jitter}, nil
	case "distance":
		return &DistanceLatency{Base: cfg.Base, PerUnit: cfg.PerUnit, Jitter: cfg.Jitter}, nil
	case "geo":
		if table == nil {
			table = geo.Default()
		}
		return NewGeoLatency(table, cfg.Cities, cfg.Base, cfg.PerUnit)
	}
	return nil, fmt.Errorf("unknown latency model %q", cfg.Model)
}

// FixedLatency returns Base plus up to Jitter ms of noise regardless of the
// node pair. Without jitter it is symmetric by construction.
type FixedLatency struct {
	Base   int64
	Jitter int64
}

func (m *FixedLatency) Delay(_, _ *Node, jitter int) int64 {
	return m.Base + m.Jitter*int64(jitter)/100
}

// DistanceLatency grows linearly with the planar distance between nodes.
type DistanceLatency struct {
	Base    int64
	PerUnit float64
	Jitter  int64
}

func (m *DistanceLatency) Delay(from, to *Node, jitter int) int64 {
	return m.Base + int64(from.Dist(to)*m.PerUnit) + m.Jitter*int64(jitter)/100
}

// geoCacheSize bounds the memoised city-pair distances.
const geoCacheSize = 4096

// GeoLatency derives delay from the distance between the nodes' cities.
// Nodes must have been built with NewNodeBuilderWithCities over the same
// table; city labels are resolved when the model and the nodes are built.
type GeoLatency struct {
	table   *geo.Table
	base    int64
	perUnit float64
	dists   *lru.Cache
}

type cityPair struct{ a, b string }

// NewGeoLatency validates cities against table and returns the model.
// A zero perUnit defaults to 0.1 ms per map unit.
func NewGeoLatency(table *geo.Table, cities []string, base int64, perUnit float64) (*GeoLatency, error) {
	if err := table.Validate(cities); err != nil {
		return nil, fmt.Errorf("geo latency: %w", err)
	}
	cache, err := lru.New(geoCacheSize)
	if err != nil {
		return nil, fmt.Errorf("geo latency: %w", err)
	}
	if perUnit == 0 {
		perUnit = 0.1
	}
	return &GeoLatency{table: table, base: base, perUnit: perUnit, dists: cache}, nil
}

// Delay is symmetric and does not depend on jitter: the same city pair
// always yields the same delay.
func (m *GeoLatency) Delay(from, to *Node, _ int) int64 {
	if from.City == to.City {
		return m.base
	}
	key := cityPair{from.City, to.City}
	if from.City > to.City {
		key = cityPair{to.City, from.City}
	}
	if d, ok := m.dists.Get(key); ok {
		return d.(int64)
	}
	d := m.base + int64(from.Dist(to)*m.perUnit)
	m.dists.Add(key, d)
	return d
}
