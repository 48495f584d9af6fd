package pow

import (
	"github.com/netsim/netsim/sim"
	"github.com/netsim/netsim/sim/protocol"
)

// Name is the registry key of this protocol.
const Name = "pow"

func init() {
	protocol.Register(Name, "proof-of-work mining with an optional selfish miner", DefaultParams,
		func(p *Params, key sim.SimulationKey) (protocol.Protocol, error) {
			net, builder, err := protocol.NewNetwork(p.Latency, key)
			if err != nil {
				return nil, err
			}
			return New(p, net, builder), nil
		})
}
