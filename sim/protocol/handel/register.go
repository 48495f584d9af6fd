package handel

import (
	"github.com/netsim/netsim/sim"
	"github.com/netsim/netsim/sim/protocol"
)

// Name is the registry key of this protocol.
const Name = "handel"

func init() {
	protocol.Register(Name, "Handel signature aggregation over a binary level tree", DefaultParams,
		func(p *Params, key sim.SimulationKey) (protocol.Protocol, error) {
			net, builder, err := protocol.NewNetwork(p.Latency, key)
			if err != nil {
				return nil, err
			}
			return New(p, net, builder), nil
		})
}
