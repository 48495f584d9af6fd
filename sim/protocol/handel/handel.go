// Package handel simulates Handel-style signature aggregation: nodes are
// arranged in a binary tree of levels and periodically send their partial
// aggregate for each level to one peer of that level, verifying incoming
// aggregates one at a time.
package handel

import (
	"fmt"

	"github.com/bits-and-blooms/bitset"
	"github.com/sirupsen/logrus"

	"github.com/netsim/netsim/sim"
	"github.com/netsim/netsim/sim/stats"
)

// Params configures an aggregation run.
type Params struct {
	NodeCount   int               `yaml:"node_count"` // power of 2
	Threshold   int               `yaml:"threshold"`  // signatures needed to be done
	PairingTime int64             `yaml:"pairing_time"`
	PeriodMs    int64             `yaml:"period_ms"`
	DeadRatio   float64           `yaml:"dead_ratio"`
	MaxTimeMs   int64             `yaml:"max_time_ms"` // dissemination stops after this time
	Latency     sim.LatencyConfig `yaml:"latency"`
}

// DefaultParams returns the default aggregation configuration.
func DefaultParams() *Params {
	return &Params{
		NodeCount:   64,
		Threshold:   48,
		PairingTime: 4,
		PeriodMs:    50,
		DeadRatio:   0.1,
		MaxTimeMs:   10000,
		Latency:     sim.LatencyConfig{Model: "distance", Base: 5, PerUnit: 0.05, Jitter: 10},
	}
}

// DeadCount is the number of nodes stopped at start.
func (p *Params) DeadCount() int {
	return int(p.DeadRatio * float64(p.NodeCount))
}

// Validate checks parameter ranges.
func (p *Params) Validate() error {
	if p.NodeCount < 2 || p.NodeCount&(p.NodeCount-1) != 0 {
		return fmt.Errorf("node_count must be a power of 2 greater than 1, got %d", p.NodeCount)
	}
	if p.DeadRatio < 0 || p.DeadRatio >= 1 {
		return fmt.Errorf("dead_ratio must be in [0, 1), got %f", p.DeadRatio)
	}
	if live := p.NodeCount - p.DeadCount(); p.Threshold <= 0 || p.Threshold > live {
		return fmt.Errorf("threshold must be in [1, %d live nodes], got %d", live, p.Threshold)
	}
	if p.PeriodMs <= 0 {
		return fmt.Errorf("period_ms must be positive, got %d", p.PeriodMs)
	}
	if p.PairingTime < 0 || p.MaxTimeMs <= 0 {
		return fmt.Errorf("pairing_time must be non-negative and max_time_ms positive")
	}
	return p.Latency.Validate()
}

// Handel is the aggregation protocol.
type Handel struct {
	params  Params
	net     *sim.Network
	builder *sim.NodeBuilder
	levels  int
	done    int
}

// New creates an uninitialised aggregation protocol.
func New(params *Params, net *sim.Network, builder *sim.NodeBuilder) *Handel {
	levels := 0
	for 1<<levels < params.NodeCount {
		levels++
	}
	return &Handel{params: *params, net: net, builder: builder, levels: levels}
}

// Network implements protocol.Protocol.
func (h *Handel) Network() *sim.Network { return h.net }

// LevelPeers returns the ids of node id's peers at level l (1-based) in a
// tree of 2^levels nodes: the 2^(l-1) nodes sharing id's bits above l-1
// with bit l-1 flipped.
func LevelPeers(id, l int) []int {
	size := 1 << (l - 1)
	start := ((id >> (l - 1)) ^ 1) << (l - 1)
	out := make([]int, size)
	for i := range out {
		out[i] = start + i
	}
	return out
}

// Init builds the nodes, stops the dead ones and starts dissemination.
func (h *Handel) Init() {
	p := h.params
	rng := h.net.RNG.ForSubsystem(sim.SubsystemProtocol)
	states := make([]*signer, p.NodeCount)
	for i := 0; i < p.NodeCount; i++ {
		s := &signer{proto: h}
		states[i] = s
		s.node = h.net.NewNode(h.builder, s)
		s.own = bitset.New(uint(p.NodeCount)).Set(uint(s.node.ID))
	}
	for _, s := range states {
		s.peers = make([][]*sim.Node, h.levels+1)
		s.incoming = make([]*bitset.BitSet, h.levels+1)
		s.cursor = make([]int, h.levels+1)
		for l := 1; l <= h.levels; l++ {
			for _, id := range LevelPeers(s.node.ID, l) {
				s.peers[l] = append(s.peers[l], h.net.Node(id))
				sim.Connect(s.node, h.net.Node(id))
			}
			rng.Shuffle(len(s.peers[l]), func(i, j int) {
				s.peers[l][i], s.peers[l][j] = s.peers[l][j], s.peers[l][i]
			})
			s.incoming[l] = bitset.New(uint(p.NodeCount))
		}
	}
	for _, idx := range rng.Perm(p.NodeCount)[:p.DeadCount()] {
		states[idx].node.Stop()
	}
	for _, s := range states {
		if !s.node.Alive() {
			continue
		}
		start := 1 + rng.Int63n(p.PeriodMs)
		h.net.RegisterPeriodicTask(s.disseminate, start, p.PeriodMs, s.node, func() bool {
			return !h.Finished() && h.net.Clock < p.MaxTimeMs
		})
	}
	logrus.Debugf("handel: %d nodes, %d levels, %d dead, threshold %d", p.NodeCount, h.levels, p.DeadCount(), p.Threshold)
}

// Finished reports whether every live node reached the threshold.
func (h *Handel) Finished() bool {
	return h.done >= len(h.net.LiveNodes())
}

// Metrics implements protocol.MetricsProvider.
func (h *Handel) Metrics() []stats.Getter {
	return []stats.Getter{stats.DoneAt, stats.MsgSent, stats.BytesReceived}
}

// Report implements protocol.Reporter.
func (h *Handel) Report() logrus.Fields {
	return logrus.Fields{
		"done":      h.done,
		"liveNodes": len(h.net.LiveNodes()),
		"threshold": h.params.Threshold,
		"levels":    h.levels,
	}
}

// signer is the per-node state.
type signer struct {
	proto     *Handel
	node      *sim.Node
	own       *bitset.BitSet
	incoming  []*bitset.BitSet // best verified aggregate per level
	peers     [][]*sim.Node    // per level, in contact order
	cursor    []int
	busyUntil int64
}

// outgoing is the aggregate sent at level l: the node's own signature plus
// everything verified at lower levels.
func (s *signer) outgoing(l int) *bitset.BitSet {
	out := s.own.Clone()
	for i := 1; i < l; i++ {
		out.InPlaceUnion(s.incoming[i])
	}
	return out
}

// Total is the number of distinct signatures aggregated so far.
func (s *signer) Total() int {
	total := s.own.Count()
	for l := 1; l < len(s.incoming); l++ {
		total += s.incoming[l].Count()
	}
	return int(total)
}

func (s *signer) disseminate() {
	net := s.proto.net
	s.checkDone(net)
	for l := 1; l <= s.proto.levels; l++ {
		peers := s.peers[l]
		dest := peers[s.cursor[l]%len(peers)]
		s.cursor[l]++
		net.SendTo(&SigMessage{Level: l, Sigs: s.outgoing(l), nodeCount: s.proto.params.NodeCount}, net.Clock, s.node, dest)
	}
}

// receive queues the aggregate for verification. Verifications on one node
// are sequential, each taking PairingTime.
func (s *signer) receive(net *sim.Network, from *sim.Node, m *SigMessage) {
	sim.Assert(s.node.HasPeer(from.ID), "node %d got a level %d aggregate from non-peer %d", s.node.ID, m.Level, from.ID)
	at := max(net.Clock, s.busyUntil) + s.proto.params.PairingTime
	s.busyUntil = at
	net.RegisterTask(func() { s.verified(net, m) }, at, s.node)
}

func (s *signer) verified(net *sim.Network, m *SigMessage) {
	s.incoming[m.Level] = merge(s.incoming[m.Level], m.Sigs)
	s.checkDone(net)
}

func (s *signer) checkDone(net *sim.Network) {
	if !s.node.Done() && s.Total() >= s.proto.params.Threshold {
		s.node.DoneAt = net.Clock
		s.proto.done++
	}
}

// merge combines the current best aggregate of a level with a verified one:
// a superset replaces it, a disjoint set is added, and otherwise the larger
// set wins.
func merge(cur, in *bitset.BitSet) *bitset.BitSet {
	switch {
	case in.IsSuperSet(cur):
		return in
	case cur.IntersectionCardinality(in) == 0:
		return cur.Union(in)
	case in.Count() > cur.Count():
		return in
	}
	return cur
}

func (s *signer) Label() string { return "signer" }
func (s *signer) Fields() logrus.Fields {
	return logrus.Fields{"total": s.Total(), "busyUntil": s.busyUntil}
}

// SigMessage carries a partial aggregate for one level.
type SigMessage struct {
	Level     int
	Sigs      *bitset.BitSet
	nodeCount int
}

func (m *SigMessage) Action(net *sim.Network, from, to *sim.Node) {
	to.State.(*signer).receive(net, from, m)
}

// Size is the signer bitfield plus one aggregated signature.
func (m *SigMessage) Size() int     { return m.nodeCount/8 + 100 }
func (m *SigMessage) Label() string { return "handel-sig" }
func (m *SigMessage) Fields() logrus.Fields {
	return logrus.Fields{"level": m.Level, "count": m.Sigs.Count()}
}
