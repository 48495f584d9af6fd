// Package pow simulates proof-of-work block production with longest-chain
// fork choice and an optional selfish miner.
package pow

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/netsim/netsim/sim"
	"github.com/netsim/netsim/sim/stats"
)

// Params configures a mining run.
type Params struct {
	MinerCount      int               `yaml:"miner_count"`
	SelfishPower    float64           `yaml:"selfish_power"` // hash power of node 0; 0 disables selfish mining
	BlockIntervalMs int64             `yaml:"block_interval_ms"`
	TickMs          int64             `yaml:"tick_ms"`
	BlockSize       int               `yaml:"block_size"`
	Latency         sim.LatencyConfig `yaml:"latency"`
}

// DefaultParams returns the default mining configuration.
func DefaultParams() *Params {
	return &Params{
		MinerCount:      10,
		SelfishPower:    0,
		BlockIntervalMs: 10000,
		TickMs:          100,
		BlockSize:       1000,
		Latency:         sim.LatencyConfig{Model: "distance", Base: 20, PerUnit: 0.1, Jitter: 50},
	}
}

// Validate checks parameter ranges.
func (p *Params) Validate() error {
	if p.MinerCount < 2 {
		return fmt.Errorf("miner_count must be at least 2, got %d", p.MinerCount)
	}
	if p.SelfishPower < 0 || p.SelfishPower >= 0.5 {
		return fmt.Errorf("selfish_power must be in [0, 0.5), got %f", p.SelfishPower)
	}
	if p.BlockIntervalMs <= 0 || p.TickMs <= 0 || p.TickMs > p.BlockIntervalMs {
		return fmt.Errorf("need 0 < tick_ms <= block_interval_ms, got %d and %d", p.TickMs, p.BlockIntervalMs)
	}
	if p.BlockSize < 0 {
		return fmt.Errorf("block_size must be non-negative, got %d", p.BlockSize)
	}
	return p.Latency.Validate()
}

// PoW is the mining protocol.
type PoW struct {
	params  Params
	net     *sim.Network
	builder *sim.NodeBuilder
	genesis *Block
	miners  []*miner
	blocks  int
}

// New creates an uninitialised mining protocol.
func New(params *Params, net *sim.Network, builder *sim.NodeBuilder) *PoW {
	return &PoW{params: *params, net: net, builder: builder, genesis: NewGenesis()}
}

// Network implements protocol.Protocol.
func (p *PoW) Network() *sim.Network { return p.net }

// Init creates the miners and starts mining on every node.
func (p *PoW) Init() {
	n := p.params.MinerCount
	honest := 1 / float64(n)
	if p.params.SelfishPower > 0 {
		honest = (1 - p.params.SelfishPower) / float64(n-1)
	}
	for i := 0; i < n; i++ {
		m := &miner{proto: p, power: honest, head: p.genesis, seen: map[int]bool{p.genesis.ID: true}}
		m.node = p.net.NewNode(p.builder, m)
		if i == 0 && p.params.SelfishPower > 0 {
			m.power = p.params.SelfishPower
			m.selfish = newSelfishState(p.genesis)
		}
		p.miners = append(p.miners, m)
	}
	nodes := p.net.Nodes()
	sim.ConnectAll(nodes)
	for _, m := range p.miners {
		for _, other := range nodes {
			if other != m.node {
				m.others = append(m.others, other)
			}
		}
		p.net.RegisterPeriodicTask(m.tick, p.params.TickMs, p.params.TickMs, m.node, nil)
	}
	logrus.Debugf("pow: %d miners, selfish power %.2f", n, p.params.SelfishPower)
}

func (p *PoW) newBlock(parent *Block, producer int) *Block {
	p.blocks++
	return &Block{ID: p.blocks, Height: parent.Height + 1, Parent: parent, Producer: producer, ProducedAt: p.net.Clock}
}

// Canonical returns the best head among honest miners, lowest id first on
// ties.
func (p *PoW) Canonical() *Block {
	best := p.genesis
	for _, m := range p.miners {
		if m.selfish == nil && m.head.Better(best) {
			best = m.head
		}
	}
	return best
}

// Rewards counts canonical blocks per producer.
func (p *PoW) Rewards() map[int]int {
	out := make(map[int]int)
	for b := p.Canonical(); b.Parent != nil; b = b.Parent {
		out[b.Producer]++
	}
	return out
}

// Metrics implements protocol.MetricsProvider.
func (p *PoW) Metrics() []stats.Getter {
	return []stats.Getter{stats.MsgSent, stats.MsgReceived, stats.BytesSent}
}

// Report implements protocol.Reporter.
func (p *PoW) Report() logrus.Fields {
	head := p.Canonical()
	f := logrus.Fields{
		"height": head.Height,
		"blocks": p.blocks,
	}
	if p.blocks > 0 {
		f["orphanRate"] = 1 - float64(head.Height)/float64(p.blocks)
	}
	if p.params.SelfishPower > 0 && head.Height > 0 {
		f["selfishPower"] = p.params.SelfishPower
		f["selfishShare"] = float64(p.Rewards()[p.miners[0].node.ID]) / float64(head.Height)
	}
	return f
}

// miner is the per-node state.
type miner struct {
	proto   *PoW
	node    *sim.Node
	power   float64
	head    *Block
	seen    map[int]bool
	others  []*sim.Node
	mined   int
	selfish *selfishState
}

func (m *miner) tip() *Block {
	if m.selfish != nil {
		return m.selfish.privateHead
	}
	return m.head
}

func (m *miner) tick() {
	p := m.proto
	prob := m.power * float64(p.params.TickMs) / float64(p.params.BlockIntervalMs)
	if p.net.RNG.ForSubsystem(sim.SubsystemProtocol).Float64() >= prob {
		return
	}
	b := p.newBlock(m.tip(), m.node.ID)
	m.mined++
	m.seen[b.ID] = true
	if m.selfish != nil {
		m.broadcast(m.selfish.onOwnBlock(b)...)
		return
	}
	m.head = b
	m.broadcast(b)
}

func (m *miner) onBlock(b *Block) {
	if m.seen[b.ID] {
		return
	}
	m.seen[b.ID] = true
	if m.selfish != nil {
		m.broadcast(m.selfish.onOtherBlock(b)...)
		return
	}
	if b.Better(m.head) {
		m.head = b
	}
}

func (m *miner) broadcast(blocks ...*Block) {
	net := m.proto.net
	for _, b := range blocks {
		net.Send(&BlockMessage{Block: b, size: m.proto.params.BlockSize}, net.Clock, m.node, m.others, 0)
	}
}

func (m *miner) Label() string { return "miner" }
func (m *miner) Fields() logrus.Fields {
	f := logrus.Fields{"head": m.tip().Height, "mined": m.mined, "power": m.power}
	if m.selfish != nil {
		f["withheld"] = len(m.selfish.unpublished)
		f["lead"] = m.selfish.lead()
	}
	return f
}

// BlockMessage announces a block to one miner.
type BlockMessage struct {
	Block *Block
	size  int
}

func (m *BlockMessage) Action(_ *sim.Network, _, to *sim.Node) {
	to.State.(*miner).onBlock(m.Block)
}

func (m *BlockMessage) Size() int             { return m.size }
func (m *BlockMessage) Label() string         { return "block" }
func (m *BlockMessage) Fields() logrus.Fields { return m.Block.Fields() }
