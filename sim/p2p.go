package sim

import "math/rand"

// Connect makes a and b neighbors of each other.
func Connect(a, b *Node) {
	a.AddPeer(b.ID)
	b.AddPeer(a.ID)
}

// ConnectRandom gives every node at least peerCount neighbors, picking
// partners uniformly with rng. Links are bidirectional, so some nodes end up
// with more than peerCount. Nodes must be registered.
func ConnectRandom(nodes []*Node, peerCount int, rng *rand.Rand) {
	if len(nodes) < 2 {
		return
	}
	want := min(peerCount, len(nodes)-1)
	for _, n := range nodes {
		for len(n.peers) < want {
			other := nodes[rng.Intn(len(nodes))]
			if other != n {
				Connect(n, other)
			}
		}
	}
}

// ConnectAll links every pair of nodes.
func ConnectAll(nodes []*Node) {
	for i, a := range nodes {
		for _, b := range nodes[i+1:] {
			Connect(a, b)
		}
	}
}

// Reachable returns the ids reachable from origin through live nodes,
// origin included if alive.
func Reachable(net *Network, origin *Node) map[int]bool {
	seen := make(map[int]bool)
	if !origin.alive {
		return seen
	}
	stack := []*Node{origin}
	seen[origin.ID] = true
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, id := range n.peers {
			p := net.Node(id)
			if !seen[id] && p.alive {
				seen[id] = true
				stack = append(stack, p)
			}
		}
	}
	return seen
}
