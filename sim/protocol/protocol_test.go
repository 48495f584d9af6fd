package protocol_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/netsim/netsim/sim"
	"github.com/netsim/netsim/sim/protocol"
	"github.com/netsim/netsim/sim/protocol/gossip"
)

// ring is a minimal protocol: nodes on a cycle, no traffic until told.
type ringParams struct {
	Nodes int `yaml:"nodes"`
}

func (p *ringParams) Validate() error {
	if p.Nodes < 2 {
		return fmt.Errorf("nodes must be at least 2, got %d", p.Nodes)
	}
	return nil
}

type ring struct {
	params ringParams
	net    *sim.Network
}

func (r *ring) Network() *sim.Network { return r.net }

func (r *ring) Init() {
	b := sim.NewNodeBuilder()
	for i := 0; i < r.params.Nodes; i++ {
		r.net.NewNode(b, nil)
	}
	nodes := r.net.Nodes()
	for i, n := range nodes {
		sim.Connect(n, nodes[(i+1)%len(nodes)])
	}
}

const ringName = "ring-test"

func init() {
	protocol.Register(ringName, "test ring", func() *ringParams { return &ringParams{Nodes: 4} },
		func(p *ringParams, key sim.SimulationKey) (protocol.Protocol, error) {
			return &ring{params: *p, net: sim.NewNetwork(key, nil)}, nil
		})
}

func TestNames_Sorted(t *testing.T) {
	names := protocol.Names()
	assert.Contains(t, names, ringName)
	assert.Contains(t, names, gossip.Name)
	assert.IsNonDecreasing(t, names)
}

func TestLookup_Unknown(t *testing.T) {
	_, err := protocol.Lookup("nope")
	require.Error(t, err)
	assert.Contains(t, err.Error(), ringName, "error lists valid names")
}

func TestFactory_Decode(t *testing.T) {
	f, err := protocol.Lookup(ringName)
	require.NoError(t, err)

	tests := []struct {
		name    string
		raw     string
		want    int
		wantErr bool
	}{
		{"empty input keeps defaults", "", 4, false},
		{"whitespace keeps defaults", "  \n", 4, false},
		{"override", "nodes: 9\n", 9, false},
		{"unknown key", "nodez: 9\n", 0, true},
		{"wrong type", "nodes: many\n", 0, true},
		{"fails validation", "nodes: 1\n", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			params, err := f.Decode([]byte(tt.raw))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, params.(*ringParams).Nodes)
		})
	}
}

func TestFactory_BuildRejectsForeignParams(t *testing.T) {
	f, err := protocol.Lookup(ringName)
	require.NoError(t, err)
	_, err = f.Build(gossip.DefaultParams(), sim.NewSimulationKey(1))
	assert.Error(t, err)

	_, err = f.Build(&ringParams{Nodes: 0}, sim.NewSimulationKey(1))
	assert.Error(t, err, "Build validates too")
}

func TestRegister_DuplicatePanics(t *testing.T) {
	assert.Panics(t, func() {
		protocol.Register(ringName, "again", func() *ringParams { return &ringParams{} },
			func(*ringParams, sim.SimulationKey) (protocol.Protocol, error) { return nil, nil })
	})
}

func TestFactory_DefaultsAreFresh(t *testing.T) {
	f, err := protocol.Lookup(ringName)
	require.NoError(t, err)
	a := f.Defaults().(*ringParams)
	a.Nodes = 100
	assert.Equal(t, 4, f.Defaults().(*ringParams).Nodes)
}
