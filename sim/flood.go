package sim

import "github.com/sirupsen/logrus"

// NoDedup is the flood id that disables de-duplication: a message with this
// id is handed to the node and relayed on every reception. It is never
// recorded, so it does not count towards ReceivedCount.
const NoDedup int64 = -1

// FloodHandler is implemented by node states that want flood deliveries.
type FloodHandler interface {
	OnFlood(net *Network, from, to *Node, msg *FloodMessage)
}

// FloodMessage is relayed by every node that receives it for the first time
// to all its peers except the one it came from.
type FloodMessage struct {
	ID                int64
	PayloadSize       int
	LocalDelay        int64 // validation delay before the first relay
	DelayBetweenPeers int64 // stagger between successive peer sends
	Payload           any
}

// Action records the reception, notifies the node once, and relays.
func (m *FloodMessage) Action(net *Network, from, to *Node) {
	if m.ID != NoDedup && !to.markReceived(m.ID, m) {
		return
	}
	if h, ok := to.State.(FloodHandler); ok {
		h.OnFlood(net, from, to, m)
	}

	dests := make([]*Node, 0, len(to.peers))
	for _, id := range to.peers {
		if id != from.ID {
			dests = append(dests, net.Node(id))
		}
	}
	if len(dests) == 0 {
		return
	}
	net.Rand().Shuffle(len(dests), func(i, j int) { dests[i], dests[j] = dests[j], dests[i] })
	net.Send(m, net.Clock+m.LocalDelay, to, dests, m.DelayBetweenPeers)
}

func (m *FloodMessage) Size() int     { return m.PayloadSize }
func (m *FloodMessage) Label() string { return "flood" }
func (m *FloodMessage) Fields() logrus.Fields {
	return logrus.Fields{
		"id":                m.ID,
		"size":              m.PayloadSize,
		"localDelay":        m.LocalDelay,
		"delayBetweenPeers": m.DelayBetweenPeers,
	}
}

// Flood starts disseminating msg from origin at the current time: origin
// receives it from itself, which triggers its handler and the first relay.
func (net *Network) Flood(msg *FloodMessage, origin *Node) {
	net.SendArriveAt(msg, net.Clock, origin, origin)
}
