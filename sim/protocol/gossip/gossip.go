// Package gossip simulates flooding a set of messages over a random
// peer-to-peer graph with dead nodes.
package gossip

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/netsim/netsim/sim"
	"github.com/netsim/netsim/sim/stats"
)

// Params configures a flood run.
type Params struct {
	NodeCount         int               `yaml:"node_count"`
	DeadNodeCount     int               `yaml:"dead_node_count"`
	DelayBeforeResent int64             `yaml:"delay_before_resent"` // local validation delay
	MsgSize           int               `yaml:"msg_size"`
	MsgCount          int               `yaml:"msg_count"`      // floods started at t=1
	MsgToReceive      int               `yaml:"msg_to_receive"` // distinct messages for a node to be done
	PeersCount        int               `yaml:"peers_count"`
	DelayBetweenSends int64             `yaml:"delay_between_sends"`
	Latency           sim.LatencyConfig `yaml:"latency"`
}

// DefaultParams returns the default flood configuration.
func DefaultParams() *Params {
	return &Params{
		NodeCount:         100,
		DeadNodeCount:     10,
		DelayBeforeResent: 10,
		MsgSize:           2000,
		MsgCount:          1,
		MsgToReceive:      1,
		PeersCount:        10,
		DelayBetweenSends: 1,
		Latency:           sim.LatencyConfig{Model: "distance", Base: 5, PerUnit: 0.05, Jitter: 20},
	}
}

// Validate checks parameter ranges.
func (p *Params) Validate() error {
	if p.NodeCount <= 0 {
		return fmt.Errorf("node_count must be positive, got %d", p.NodeCount)
	}
	if p.DeadNodeCount < 0 || p.DeadNodeCount >= p.NodeCount {
		return fmt.Errorf("dead_node_count must be in [0, node_count), got %d", p.DeadNodeCount)
	}
	if p.MsgCount <= 0 || p.MsgCount > p.NodeCount-p.DeadNodeCount {
		return fmt.Errorf("msg_count must be in [1, live nodes], got %d", p.MsgCount)
	}
	if p.MsgToReceive <= 0 || p.MsgToReceive > p.MsgCount {
		return fmt.Errorf("msg_to_receive must be in [1, msg_count], got %d", p.MsgToReceive)
	}
	if p.PeersCount <= 0 {
		return fmt.Errorf("peers_count must be positive, got %d", p.PeersCount)
	}
	if p.MsgSize < 0 || p.DelayBeforeResent < 0 || p.DelayBetweenSends < 0 {
		return fmt.Errorf("msg_size and delays must be non-negative")
	}
	return p.Latency.Validate()
}

// Flood is the gossip protocol.
type Flood struct {
	params  Params
	net     *sim.Network
	builder *sim.NodeBuilder
	done    int
}

// New creates an uninitialised flood protocol.
func New(params *Params, net *sim.Network, builder *sim.NodeBuilder) *Flood {
	return &Flood{params: *params, net: net, builder: builder}
}

// Network implements protocol.Protocol.
func (f *Flood) Network() *sim.Network { return f.net }

// floodNode is the per-node state.
type floodNode struct {
	proto *Flood
}

func (s *floodNode) OnFlood(net *sim.Network, _, to *sim.Node, _ *sim.FloodMessage) {
	if !to.Done() && to.ReceivedCount() >= s.proto.params.MsgToReceive {
		to.DoneAt = net.Clock
		s.proto.done++
	}
}

// Init builds the graph, stops the dead nodes and schedules the floods.
func (f *Flood) Init() {
	p := f.params
	for i := 0; i < p.NodeCount; i++ {
		f.net.NewNode(f.builder, &floodNode{proto: f})
	}
	rng := f.net.RNG.ForSubsystem(sim.SubsystemProtocol)
	nodes := f.net.Nodes()
	sim.ConnectRandom(nodes, p.PeersCount, rng)

	order := rng.Perm(len(nodes))
	for _, idx := range order[:p.DeadNodeCount] {
		nodes[idx].Stop()
	}
	senders := order[p.DeadNodeCount : p.DeadNodeCount+p.MsgCount]
	for i, idx := range senders {
		origin := nodes[idx]
		msg := &sim.FloodMessage{
			ID:                int64(i),
			PayloadSize:       p.MsgSize,
			LocalDelay:        p.DelayBeforeResent,
			DelayBetweenPeers: p.DelayBetweenSends,
		}
		// Start at t=1 so that DoneAt=0 keeps meaning "not done".
		f.net.RegisterTask(func() { f.net.Flood(msg, origin) }, 1, origin)
	}
	logrus.Debugf("gossip: %d nodes, %d dead, %d floods", p.NodeCount, p.DeadNodeCount, p.MsgCount)
}

// Finished reports whether every live node is done.
func (f *Flood) Finished() bool {
	return f.done >= len(f.net.LiveNodes())
}

// Metrics implements protocol.MetricsProvider.
func (f *Flood) Metrics() []stats.Getter {
	return []stats.Getter{stats.DoneAt, stats.MsgReceived, stats.BytesSent}
}

// Report implements protocol.Reporter.
func (f *Flood) Report() logrus.Fields {
	return logrus.Fields{
		"done":      f.done,
		"liveNodes": len(f.net.LiveNodes()),
	}
}
