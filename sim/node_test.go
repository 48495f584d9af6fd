package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/netsim/netsim/sim/geo"
)

func TestNode_DefaultsAlive(t *testing.T) {
	n := NewNode(1, 2)
	assert.True(t, n.Alive())
	assert.Equal(t, -1, n.ID)
	n.Stop()
	assert.False(t, n.Alive())
	n.Start()
	assert.True(t, n.Alive())
}

func TestNode_AddPeerIsIdempotentAndOrdered(t *testing.T) {
	n := NewNode(1, 1)
	n.ID = 0
	assert.True(t, n.AddPeer(5))
	assert.True(t, n.AddPeer(2))
	assert.False(t, n.AddPeer(5), "duplicate")
	assert.False(t, n.AddPeer(0), "self")
	assert.Equal(t, []int{5, 2}, n.Peers())
	assert.True(t, n.HasPeer(2))
	assert.False(t, n.HasPeer(3))

	// Peers returns a copy.
	p := n.Peers()
	p[0] = 99
	assert.Equal(t, []int{5, 2}, n.Peers())
}

func TestNode_DoneAndFields(t *testing.T) {
	n := NewNode(3, 4)
	n.ID = 8
	n.City = "Paris"
	assert.False(t, n.Done())
	n.DoneAt = 12
	assert.True(t, n.Done())

	label, fields := Describe(n)
	assert.Equal(t, "node-8", label)
	assert.Equal(t, 8, fields["id"])
	assert.Equal(t, "Paris", fields["city"])
	assert.Equal(t, int64(12), fields["doneAt"])
	assert.Equal(t, 5.0, n.Dist(NewNode(0, 0)))
}

func TestNodeBuilder_RandomPositionsOnMap(t *testing.T) {
	net := NewNetwork(NewSimulationKey(1), nil)
	b := NewNodeBuilder()
	for i := 0; i < 200; i++ {
		n := net.NewNode(b, nil)
		assert.GreaterOrEqual(t, n.X, 1)
		assert.LessOrEqual(t, n.X, geo.MaxX)
		assert.GreaterOrEqual(t, n.Y, 1)
		assert.LessOrEqual(t, n.Y, geo.MaxY)
		assert.Equal(t, i, n.ID)
	}
}

func TestNodeBuilder_WithCities(t *testing.T) {
	table := geo.Default()
	b, err := NewNodeBuilderWithCities(table, []string{"Tokyo", "Madrid"})
	require.NoError(t, err)
	net := NewNetwork(NewSimulationKey(1), nil)
	for i := 0; i < 20; i++ {
		n := net.NewNode(b, nil)
		require.Contains(t, []string{"Tokyo", "Madrid"}, n.City)
		p, _ := table.Lookup(n.City)
		assert.Equal(t, p.X, n.X)
		assert.Equal(t, p.Y, n.Y)
	}

	_, err = NewNodeBuilderWithCities(nil, nil)
	assert.Error(t, err)

	all, err := NewNodeBuilderWithCities(table, nil)
	require.NoError(t, err)
	assert.Len(t, all.cities, table.Len())
}

func TestConnectRandom_MinimumDegreeAndSymmetry(t *testing.T) {
	net := newTestNetwork(4, 50, nil)
	ConnectRandom(net.Nodes(), 6, net.RNG.ForSubsystem(SubsystemProtocol))
	for _, n := range net.Nodes() {
		assert.GreaterOrEqual(t, len(n.Peers()), 6)
		for _, id := range n.Peers() {
			assert.True(t, net.Node(id).HasPeer(n.ID), "link %d-%d is one-way", n.ID, id)
		}
	}
}

func TestConnectRandom_SmallPopulations(t *testing.T) {
	net := newTestNetwork(4, 3, nil)
	ConnectRandom(net.Nodes(), 10, net.RNG.ForSubsystem(SubsystemProtocol))
	for _, n := range net.Nodes() {
		assert.Len(t, n.Peers(), 2)
	}
	ConnectRandom(net.Nodes()[:1], 10, net.RNG.ForSubsystem(SubsystemProtocol))
}

func TestConnectAll(t *testing.T) {
	net := newTestNetwork(4, 5, nil)
	ConnectAll(net.Nodes())
	for _, n := range net.Nodes() {
		assert.Len(t, n.Peers(), 4)
	}
	assert.Len(t, Reachable(net, net.Node(0)), 5)
}
