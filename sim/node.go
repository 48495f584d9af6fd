package sim

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/sirupsen/logrus"

	"github.com/netsim/netsim/sim/geo"
)

// Node is a simulated participant. The kernel owns identity, position,
// liveness, the peer relation and traffic counters; everything protocol
// specific lives in State.
type Node struct {
	ID        int
	X, Y      int
	City      string
	Byzantine bool

	// DoneAt is the virtual time at which the protocol considered this node
	// finished; 0 means not done.
	DoneAt int64

	MsgSent       int64
	MsgReceived   int64
	BytesSent     int64
	BytesReceived int64

	// State is the protocol state of this node. If it implements
	// FloodHandler, flood deliveries are handed to it.
	State any

	alive    bool
	peers    []int
	peerSet  map[int]struct{}
	received map[int64]map[*FloodMessage]struct{}
}

// NewNode creates an alive, unregistered node at the given position.
func NewNode(x, y int) *Node {
	return &Node{
		ID:       -1,
		X:        x,
		Y:        y,
		alive:    true,
		peerSet:  make(map[int]struct{}),
		received: make(map[int64]map[*FloodMessage]struct{}),
	}
}

// Alive reports whether actions addressed to this node are executed.
func (n *Node) Alive() bool { return n.alive }

// Start marks the node alive.
func (n *Node) Start() { n.alive = true }

// Stop marks the node stopped. The node stays registered and stays in its
// peers' neighbor sets; envelopes addressed to it are consumed without effect.
func (n *Node) Stop() { n.alive = false }

// Done reports whether DoneAt has been set.
func (n *Node) Done() bool { return n.DoneAt > 0 }

// AddPeer adds id to the peer set. Adding an existing peer or the node
// itself is a no-op; returns true if the set changed.
func (n *Node) AddPeer(id int) bool {
	if id == n.ID {
		return false
	}
	if _, ok := n.peerSet[id]; ok {
		return false
	}
	n.peerSet[id] = struct{}{}
	n.peers = append(n.peers, id)
	return true
}

// HasPeer reports whether id is a neighbor.
func (n *Node) HasPeer(id int) bool {
	_, ok := n.peerSet[id]
	return ok
}

// Peers returns the neighbor ids in the order they were added.
func (n *Node) Peers() []int {
	out := make([]int, len(n.peers))
	copy(out, n.peers)
	return out
}

// Dist returns the planar distance between two nodes.
func (n *Node) Dist(o *Node) float64 {
	dx := float64(n.X - o.X)
	dy := float64(n.Y - o.Y)
	return math.Sqrt(dx*dx + dy*dy)
}

// markReceived records msg under id and reports whether it was new.
func (n *Node) markReceived(id int64, msg *FloodMessage) bool {
	set, ok := n.received[id]
	if !ok {
		set = make(map[*FloodMessage]struct{})
		n.received[id] = set
	}
	if _, seen := set[msg]; seen {
		return false
	}
	set[msg] = struct{}{}
	return true
}

// ReceivedCount returns the number of distinct flood message ids this node
// has accepted.
func (n *Node) ReceivedCount() int {
	return len(n.received)
}

// Label implements Describer.
func (n *Node) Label() string {
	return fmt.Sprintf("node-%d", n.ID)
}

// Fields implements Describer.
func (n *Node) Fields() logrus.Fields {
	f := logrus.Fields{
		"id":            n.ID,
		"x":             n.X,
		"y":             n.Y,
		"alive":         n.alive,
		"byzantine":     n.Byzantine,
		"peers":         len(n.peers),
		"doneAt":        n.DoneAt,
		"msgSent":       n.MsgSent,
		"msgReceived":   n.MsgReceived,
		"bytesSent":     n.BytesSent,
		"bytesReceived": n.BytesReceived,
	}
	if n.City != "" {
		f["city"] = n.City
	}
	return f
}

// NodeBuilder places new nodes on the map. Without cities positions are
// uniform over the map; with cities each node is put in one of them.
type NodeBuilder struct {
	table  *geo.Table
	cities []string
}

// NewNodeBuilder returns a builder placing nodes at random positions.
func NewNodeBuilder() *NodeBuilder {
	return &NodeBuilder{}
}

// NewNodeBuilderWithCities returns a builder placing nodes in the given
// cities. Every city must exist in table; an empty list means all of them.
func NewNodeBuilderWithCities(table *geo.Table, cities []string) (*NodeBuilder, error) {
	if table == nil {
		return nil, fmt.Errorf("node builder: nil city table")
	}
	if len(cities) == 0 {
		cities = table.Cities()
	}
	if err := table.Validate(cities); err != nil {
		return nil, fmt.Errorf("node builder: %w", err)
	}
	return &NodeBuilder{table: table, cities: append([]string(nil), cities...)}, nil
}

// Build creates an unregistered node, drawing its placement from rng.
func (b *NodeBuilder) Build(rng *rand.Rand) *Node {
	if len(b.cities) == 0 {
		return NewNode(1+rng.Intn(geo.MaxX), 1+rng.Intn(geo.MaxY))
	}
	city := b.cities[rng.Intn(len(b.cities))]
	pos, _ := b.table.Lookup(city) // validated at construction
	n := NewNode(pos.X, pos.Y)
	n.City = city
	return n
}
