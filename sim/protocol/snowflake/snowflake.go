// Package snowflake simulates the Snowflake binary consensus of the
// Avalanche family: nodes repeatedly sample k peers, switch to any color
// backed by an alpha quorum, and decide after beta consecutive successful
// rounds for the same color.
package snowflake

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/netsim/netsim/sim"
	"github.com/netsim/netsim/sim/stats"
)

// Color is a node's current preference.
type Color int

const (
	Uncolored Color = iota
	Red
	Blue
)

func (c Color) String() string {
	switch c {
	case Red:
		return "red"
	case Blue:
		return "blue"
	}
	return "uncolored"
}

// Opposite returns the other color; Uncolored maps to itself.
func (c Color) Opposite() Color {
	switch c {
	case Red:
		return Blue
	case Blue:
		return Red
	}
	return Uncolored
}

// Params configures a Snowflake run.
type Params struct {
	NodeCount      int               `yaml:"node_count"`
	K              int               `yaml:"k"`     // sample size
	Alpha          int               `yaml:"alpha"` // quorum size
	Beta           int               `yaml:"beta"`  // consecutive successes to decide
	MaxRounds      int               `yaml:"max_rounds"`
	ByzantineCount int               `yaml:"byzantine_count"`
	Latency        sim.LatencyConfig `yaml:"latency"`
}

// DefaultParams returns the default configuration.
func DefaultParams() *Params {
	return &Params{
		NodeCount:      100,
		K:              10,
		Alpha:          7,
		Beta:           10,
		MaxRounds:      200,
		ByzantineCount: 0,
		Latency:        sim.LatencyConfig{Model: "fixed", Base: 10, Jitter: 10},
	}
}

// Validate checks parameter ranges.
func (p *Params) Validate() error {
	if p.NodeCount < 3 {
		return fmt.Errorf("node_count must be at least 3, got %d", p.NodeCount)
	}
	if p.K <= 0 || p.K >= p.NodeCount {
		return fmt.Errorf("k must be in [1, node_count), got %d", p.K)
	}
	if p.Alpha*2 <= p.K || p.Alpha > p.K {
		return fmt.Errorf("alpha must be in (k/2, k], got %d", p.Alpha)
	}
	if p.Beta <= 0 || p.MaxRounds <= 0 {
		return fmt.Errorf("beta and max_rounds must be positive")
	}
	if p.ByzantineCount < 0 || p.ByzantineCount > p.NodeCount-2 {
		return fmt.Errorf("byzantine_count must be in [0, node_count-2], got %d", p.ByzantineCount)
	}
	return p.Latency.Validate()
}

// Snowflake is the consensus protocol.
type Snowflake struct {
	params  Params
	net     *sim.Network
	builder *sim.NodeBuilder
	states  []*voter
}

// New creates an uninitialised Snowflake protocol.
func New(params *Params, net *sim.Network, builder *sim.NodeBuilder) *Snowflake {
	return &Snowflake{params: *params, net: net, builder: builder}
}

// Network implements protocol.Protocol.
func (s *Snowflake) Network() *sim.Network { return s.net }

// Init creates the voters, picks the Byzantine ones among ids >= 2 and seeds
// red on node 0 and blue on node 1.
func (s *Snowflake) Init() {
	p := s.params
	for i := 0; i < p.NodeCount; i++ {
		v := &voter{proto: s}
		v.node = s.net.NewNode(s.builder, v)
		s.states = append(s.states, v)
	}
	rng := s.net.RNG.ForSubsystem(sim.SubsystemProtocol)
	for _, idx := range rng.Perm(p.NodeCount - 2)[:p.ByzantineCount] {
		s.states[idx+2].node.Byzantine = true
	}
	red, blue := s.states[0], s.states[1]
	s.net.RegisterTask(func() { red.adopt(Red) }, 1, red.node)
	s.net.RegisterTask(func() { blue.adopt(Blue) }, 1, blue.node)
	logrus.Debugf("snowflake: %d nodes, k=%d alpha=%d beta=%d, %d byzantine", p.NodeCount, p.K, p.Alpha, p.Beta, p.ByzantineCount)
}

// Finished reports whether every honest node has decided or tallied its last
// round, or nothing is left to dispatch.
func (s *Snowflake) Finished() bool {
	if s.net.Pending() == 0 {
		return true
	}
	for _, v := range s.states {
		if !v.node.Byzantine && !v.decided && !v.exhausted() {
			return false
		}
	}
	return true
}

// Colors counts honest nodes per color.
func (s *Snowflake) Colors() map[Color]int {
	out := make(map[Color]int)
	for _, v := range s.states {
		if !v.node.Byzantine {
			out[v.color]++
		}
	}
	return out
}

// Agreement reports whether all decided honest nodes decided the same color.
func (s *Snowflake) Agreement() bool {
	var seen Color
	for _, v := range s.states {
		if v.node.Byzantine || !v.decided {
			continue
		}
		if seen != Uncolored && v.color != seen {
			return false
		}
		seen = v.color
	}
	return true
}

// Metrics implements protocol.MetricsProvider.
func (s *Snowflake) Metrics() []stats.Getter {
	return []stats.Getter{stats.DoneAt, stats.MsgSent}
}

// Report implements protocol.Reporter.
func (s *Snowflake) Report() logrus.Fields {
	colors := s.Colors()
	decided := 0
	for _, v := range s.states {
		if v.decided {
			decided++
		}
	}
	return logrus.Fields{
		"red":       colors[Red],
		"blue":      colors[Blue],
		"uncolored": colors[Uncolored],
		"decided":   decided,
		"agreement": s.Agreement(),
	}
}

// voter is the per-node state.
type voter struct {
	proto   *Snowflake
	node    *sim.Node
	color   Color
	cnt     int
	round   int
	votes   [3]int
	answers int
	decided bool
}

// adopt colors an uncolored honest node and starts its first round.
func (v *voter) adopt(c Color) {
	if v.color != Uncolored || v.node.Byzantine {
		return
	}
	v.color = c
	v.query()
}

func (v *voter) query() {
	net := v.proto.net
	v.round++
	v.votes = [3]int{}
	v.answers = 0
	net.Send(&Query{Round: v.round, Color: v.color}, net.Clock, v.node, v.sample(), 0)
}

// sample picks k distinct nodes other than v.
func (v *voter) sample() []*sim.Node {
	net := v.proto.net
	rng := net.RNG.ForSubsystem(sim.SubsystemProtocol)
	out := make([]*sim.Node, 0, v.proto.params.K)
	for _, idx := range rng.Perm(net.Len()) {
		if idx == v.node.ID {
			continue
		}
		out = append(out, net.Node(idx))
		if len(out) == v.proto.params.K {
			break
		}
	}
	return out
}

func (v *voter) onQuery(net *sim.Network, from *sim.Node, q *Query) {
	answer := v.color
	if v.node.Byzantine {
		answer = q.Color.Opposite()
	} else if v.color == Uncolored {
		v.adopt(q.Color)
		answer = v.color
	}
	net.SendTo(&Answer{Round: q.Round, Color: answer}, net.Clock, v.node, from)
}

func (v *voter) onAnswer(net *sim.Network, a *Answer) {
	if a.Round != v.round || v.decided {
		return
	}
	v.votes[a.Color]++
	v.answers++
	if v.answers < v.proto.params.K {
		return
	}
	v.tally(v.proto.params.Alpha)
	if v.cnt >= v.proto.params.Beta {
		v.decided = true
		v.node.DoneAt = net.Clock
		return
	}
	if v.round < v.proto.params.MaxRounds {
		v.query()
	}
}

// tally applies one completed round: a quorum for the other color flips the
// preference and restarts the count, a quorum for the current color extends
// it, and no quorum resets it.
func (v *voter) tally(alpha int) {
	for _, c := range []Color{Red, Blue} {
		if v.votes[c] < alpha {
			continue
		}
		if c != v.color {
			v.color = c
			v.cnt = 1
		} else {
			v.cnt++
		}
		return
	}
	v.cnt = 0
}

// exhausted reports whether the final round has been tallied.
func (v *voter) exhausted() bool {
	return v.round >= v.proto.params.MaxRounds && v.answers >= v.proto.params.K
}

func (v *voter) Label() string { return "voter" }
func (v *voter) Fields() logrus.Fields {
	return logrus.Fields{"color": v.color.String(), "cnt": v.cnt, "round": v.round, "decided": v.decided}
}

// Query asks a node for its color.
type Query struct {
	Round int
	Color Color
}

func (q *Query) Action(net *sim.Network, from, to *sim.Node) {
	to.State.(*voter).onQuery(net, from, q)
}

func (q *Query) Size() int     { return 8 }
func (q *Query) Label() string { return "query" }
func (q *Query) Fields() logrus.Fields {
	return logrus.Fields{"round": q.Round, "color": q.Color.String()}
}

// Answer carries the queried node's color back to the asker.
type Answer struct {
	Round int
	Color Color
}

func (a *Answer) Action(net *sim.Network, _, to *sim.Node) {
	to.State.(*voter).onAnswer(net, a)
}

func (a *Answer) Size() int     { return 8 }
func (a *Answer) Label() string { return "answer" }
func (a *Answer) Fields() logrus.Fields {
	return logrus.Fields{"round": a.Round, "color": a.Color.String()}
}
