package gossip

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/netsim/netsim/sim"
	"github.com/netsim/netsim/sim/internal/testutil"
	"github.com/netsim/netsim/sim/protocol"
)

func build(t *testing.T, p *Params, seed int64) *Flood {
	t.Helper()
	require.NoError(t, p.Validate())
	net, builder, err := protocol.NewNetwork(p.Latency, sim.NewSimulationKey(seed))
	require.NoError(t, err)
	f := New(p, net, builder)
	f.Init()
	return f
}

func TestFlood_AllLiveNodesDone(t *testing.T) {
	// GIVEN 100 healthy nodes and a single flood
	p := DefaultParams()
	p.DeadNodeCount = 0
	f := build(t, p, 42)

	// WHEN running until finished
	ok := f.net.RunUntil(f.Finished, 5000)

	// THEN every node was reached once
	require.True(t, ok)
	for _, n := range f.net.Nodes() {
		assert.True(t, n.Done(), "node %d", n.ID)
		assert.Equal(t, 1, n.ReceivedCount())
	}
	assert.Equal(t, 100, f.Report()["done"])
}

func TestFlood_DeadNodesAreNeverReached(t *testing.T) {
	p := DefaultParams()
	p.DeadNodeCount = 20
	f := build(t, p, 7)
	f.net.RunMs(5000)

	var origin *sim.Node
	for _, n := range f.net.Nodes() {
		if !n.Alive() {
			assert.False(t, n.Done())
			assert.Zero(t, n.BytesReceived)
			assert.Zero(t, n.MsgSent)
		}
		if n.DoneAt == 1 {
			origin = n
		}
	}
	require.NotNil(t, origin)
	assert.Equal(t, len(sim.Reachable(f.net, origin)), f.done)
	assert.Equal(t, 20, len(f.net.Nodes())-len(f.net.LiveNodes()))
}

func TestFlood_MultipleMessages(t *testing.T) {
	p := DefaultParams()
	p.DeadNodeCount = 0
	p.MsgCount = 4
	p.MsgToReceive = 3
	f := build(t, p, 3)

	require.True(t, f.net.RunUntil(f.Finished, 10000))
	for _, n := range f.net.Nodes() {
		assert.GreaterOrEqual(t, n.ReceivedCount(), 3)
	}
}

func TestFlood_Deterministic(t *testing.T) {
	testutil.AssertDeterministic(t, 3, func() any {
		f := build(t, DefaultParams(), 99)
		f.net.RunMs(3000)
		out := []int64{f.net.Dispatched()}
		for _, n := range f.net.Nodes() {
			out = append(out, n.DoneAt)
		}
		return out
	})
}

func TestParams_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Params)
	}{
		{"no nodes", func(p *Params) { p.NodeCount = 0 }},
		{"all dead", func(p *Params) { p.DeadNodeCount = p.NodeCount }},
		{"negative dead", func(p *Params) { p.DeadNodeCount = -1 }},
		{"too many floods", func(p *Params) { p.MsgCount = p.NodeCount }},
		{"receive more than sent", func(p *Params) { p.MsgToReceive = 2 }},
		{"no peers", func(p *Params) { p.PeersCount = 0 }},
		{"negative delay", func(p *Params) { p.DelayBetweenSends = -1 }},
		{"bad latency", func(p *Params) { p.Latency.Model = "warp" }},
	}
	assert.NoError(t, DefaultParams().Validate())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := DefaultParams()
			tt.mutate(p)
			assert.Error(t, p.Validate())
		})
	}
}

func TestRegistry_DecodesYAML(t *testing.T) {
	raw := []byte("node_count: 30\ndead_node_count: 0\npeers_count: 4\nlatency:\n  model: fixed\n  base: 3\n")
	p, params, err := protocol.New(Name, raw, sim.NewSimulationKey(1))
	require.NoError(t, err)
	got := params.(*Params)
	assert.Equal(t, 30, got.NodeCount)
	assert.Equal(t, 2000, got.MsgSize, "unset keys keep defaults")
	assert.Equal(t, "fixed", got.Latency.Model)

	p.Init()
	assert.Equal(t, 30, p.Network().Len())

	_, _, err = protocol.New(Name, []byte("node_cnt: 3\n"), sim.NewSimulationKey(1))
	assert.Error(t, err, "unknown keys are rejected")
}

func TestGeoLatency_WithCities(t *testing.T) {
	p := DefaultParams()
	p.NodeCount = 40
	p.DeadNodeCount = 0
	p.Latency = sim.LatencyConfig{Model: "geo", Cities: []string{"Paris", "Tokyo", "New York"}}
	f := build(t, p, 5)
	for _, n := range f.net.Nodes() {
		assert.Contains(t, p.Latency.Cities, n.City)
	}
	assert.True(t, f.net.RunUntil(f.Finished, 20000))

	p.Latency.Cities = []string{"Paris", "Lilliput"}
	_, _, err := protocol.NewNetwork(p.Latency, sim.NewSimulationKey(5))
	assert.Error(t, err)
}
