// register.go adds the gossip protocol to the protocol registry. The init()
// runs when any package imports sim/protocol/gossip.
package gossip

import (
	"github.com/netsim/netsim/sim"
	"github.com/netsim/netsim/sim/protocol"
)

// Name is the registry key of this protocol.
const Name = "gossip"

func init() {
	protocol.Register(Name, "P2P flood over a random graph with dead nodes", DefaultParams,
		func(p *Params, key sim.SimulationKey) (protocol.Protocol, error) {
			net, builder, err := protocol.NewNetwork(p.Latency, key)
			if err != nil {
				return nil, err
			}
			return New(p, net, builder), nil
		})
}
