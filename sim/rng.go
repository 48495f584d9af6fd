package sim

import (
	"hash/fnv"
	"math/rand"
)

// SimulationKey is the seed of a run. A network rebuilt from the same key
// and the same protocol parameters replays the same envelopes at the same
// times.
type SimulationKey int64

// NewSimulationKey wraps seed as a SimulationKey.
func NewSimulationKey(seed int64) SimulationKey {
	return SimulationKey(seed)
}

// Random streams handed out by PartitionedRNG.
const (
	// SubsystemNetwork drives latency jitter and flood peer order. It is
	// seeded with the key itself.
	SubsystemNetwork = "network"

	// SubsystemBuilder places nodes (random positions, city picks).
	SubsystemBuilder = "builder"

	// SubsystemProtocol is the default stream handed to protocol logic.
	SubsystemProtocol = "protocol"
)

// PartitionedRNG splits the network's key into named random streams, so
// drawing more numbers in one stream leaves the others untouched. Each
// Network owns one; it must only be used from the goroutine driving it.
type PartitionedRNG struct {
	key     SimulationKey
	streams map[string]*rand.Rand
}

// NewPartitionedRNG returns a PartitionedRNG with no streams opened yet.
func NewPartitionedRNG(key SimulationKey) *PartitionedRNG {
	return &PartitionedRNG{
		key:     key,
		streams: make(map[string]*rand.Rand),
	}
}

// ForSubsystem returns the stream called name, opening it on first use.
// Later calls with the same name share the same *rand.Rand.
func (p *PartitionedRNG) ForSubsystem(name string) *rand.Rand {
	rng, ok := p.streams[name]
	if !ok {
		rng = rand.New(rand.NewSource(p.seedFor(name)))
		p.streams[name] = rng
	}
	return rng
}

// seedFor mixes the stream name into the key. The network stream keeps the
// raw key.
func (p *PartitionedRNG) seedFor(name string) int64 {
	if name == SubsystemNetwork {
		return int64(p.key)
	}
	return int64(p.key) ^ streamSalt(name)
}

// Key returns the key the streams are derived from.
func (p *PartitionedRNG) Key() SimulationKey {
	return p.key
}

// streamSalt hashes a stream name with FNV-1a.
func streamSalt(name string) int64 {
	h := fnv.New64a()
	h.Write([]byte(name))
	return int64(h.Sum64())
}
