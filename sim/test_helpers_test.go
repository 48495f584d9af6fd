package sim

import "github.com/netsim/netsim/sim/trace"

// floodCounter is a node state recording flood deliveries.
type floodCounter struct {
	calls []int64 // flood ids, one per OnFlood call
	times []int64
}

func (c *floodCounter) OnFlood(net *Network, _, _ *Node, msg *FloodMessage) {
	c.calls = append(c.calls, msg.ID)
	c.times = append(c.times, net.Clock)
}

// newTestNetwork creates a network with n nodes carrying floodCounter state.
func newTestNetwork(seed int64, n int, latency LatencyModel) *Network {
	net := NewNetwork(NewSimulationKey(seed), latency)
	b := NewNodeBuilder()
	for i := 0; i < n; i++ {
		net.NewNode(b, &floodCounter{})
	}
	return net
}

func counterOf(n *Node) *floodCounter {
	return n.State.(*floodCounter)
}

func withTrace(net *Network) *trace.Recorder {
	net.Trace = trace.NewRecorder(trace.TraceLevelEnvelopes)
	return net.Trace
}
