package snowflake

import (
	"github.com/netsim/netsim/sim"
	"github.com/netsim/netsim/sim/protocol"
)

// Name is the registry key of this protocol.
const Name = "snowflake"

func init() {
	protocol.Register(Name, "Snowflake sampling consensus with Byzantine responders", DefaultParams,
		func(p *Params, key sim.SimulationKey) (protocol.Protocol, error) {
			net, builder, err := protocol.NewNetwork(p.Latency, key)
			if err != nil {
				return nil, err
			}
			return New(p, net, builder), nil
		})
}
