package protocol

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/netsim/netsim/sim"
	"github.com/netsim/netsim/sim/stats"
)

// NodeView is the flat description of a node handed to outer layers.
type NodeView struct {
	ID     int
	Label  string
	Fields logrus.Fields
}

// EnvelopeSpec describes an envelope produced outside the simulation.
type EnvelopeSpec struct {
	FromID         int
	ToIDs          []int
	SendTime       int64
	InterPeerDelay int64
}

// Session is one initialised protocol run with the control operations an
// external inspection layer needs. Unlike the kernel, the Session validates
// its inputs and returns errors instead of aborting.
type Session struct {
	Name   string
	RunID  uuid.UUID
	Params any

	proto Protocol
	net   *sim.Network
}

// runNamespace scopes run ids generated by this package.
var runNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("netsim/run"))

// NewSession builds and initialises the named protocol. The run id is
// derived from the name, seed and raw parameters, so a replayed run keeps
// its id.
func NewSession(name string, raw []byte, seed int64) (*Session, error) {
	p, params, err := New(name, raw, sim.NewSimulationKey(seed))
	if err != nil {
		return nil, err
	}
	s := &Session{
		Name:   name,
		RunID:  uuid.NewSHA1(runNamespace, []byte(fmt.Sprintf("%s/%d/%s", name, seed, raw))),
		Params: params,
		proto:  p,
		net:    p.Network(),
	}
	p.Init()
	logrus.WithFields(logrus.Fields{"protocol": name, "seed": seed, "run": s.RunID}).
		Infof("initialised %d nodes, %d pending envelopes", s.net.Len(), s.net.Pending())
	return s, nil
}

// Protocol returns the underlying protocol.
func (s *Session) Protocol() Protocol { return s.proto }

// Network returns the underlying network.
func (s *Session) Network() *sim.Network { return s.net }

// Time returns the current virtual time.
func (s *Session) Time() int64 { return s.net.Clock }

// Nodes describes every node, ordered by id.
func (s *Session) Nodes() []NodeView {
	nodes := s.net.Nodes()
	out := make([]NodeView, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, view(n))
	}
	return out
}

// Node describes one node.
func (s *Session) Node(id int) (NodeView, error) {
	n, ok := s.net.Lookup(id)
	if !ok {
		return NodeView{}, fmt.Errorf("unknown node id %d", id)
	}
	return view(n), nil
}

func view(n *sim.Node) NodeView {
	label, fields := sim.Describe(n)
	if d, ok := n.State.(sim.Describer); ok {
		for k, v := range d.Fields() {
			fields[k] = v
		}
	}
	return NodeView{ID: n.ID, Label: label, Fields: fields}
}

// Advance runs the simulation for ms virtual milliseconds.
func (s *Session) Advance(ms int64) error {
	if ms < 0 {
		return fmt.Errorf("cannot advance by negative duration %d", ms)
	}
	s.net.RunMs(ms)
	return nil
}

// Step dispatches at most steps envelopes and returns how many ran.
func (s *Session) Step(steps int) (int, error) {
	if steps < 0 {
		return 0, fmt.Errorf("cannot run negative step count %d", steps)
	}
	return s.net.Run(steps), nil
}

// StartNode marks a node alive.
func (s *Session) StartNode(id int) error {
	n, ok := s.net.Lookup(id)
	if !ok {
		return fmt.Errorf("unknown node id %d", id)
	}
	n.Start()
	return nil
}

// StopNode marks a node stopped.
func (s *Session) StopNode(id int) error {
	n, ok := s.net.Lookup(id)
	if !ok {
		return fmt.Errorf("unknown node id %d", id)
	}
	n.Stop()
	return nil
}

// Inject schedules an externally produced message.
func (s *Session) Inject(spec EnvelopeSpec, msg sim.Message) error {
	if msg == nil {
		return fmt.Errorf("inject: nil message")
	}
	if len(spec.ToIDs) == 0 {
		return fmt.Errorf("inject: no destination")
	}
	if spec.SendTime < s.net.Clock {
		return fmt.Errorf("inject: send time %d is before current time %d", spec.SendTime, s.net.Clock)
	}
	if spec.InterPeerDelay < 0 {
		return fmt.Errorf("inject: negative inter-peer delay %d", spec.InterPeerDelay)
	}
	from, ok := s.net.Lookup(spec.FromID)
	if !ok {
		return fmt.Errorf("inject: unknown sender %d", spec.FromID)
	}
	to := make([]*sim.Node, 0, len(spec.ToIDs))
	for _, id := range spec.ToIDs {
		n, ok := s.net.Lookup(id)
		if !ok {
			return fmt.Errorf("inject: unknown destination %d", id)
		}
		to = append(to, n)
	}
	s.net.Send(msg, spec.SendTime, from, to, spec.InterPeerDelay)
	return nil
}

// Stats summarizes per-node metrics at the current time.
func (s *Session) Stats() (stats.Counts, []stats.Summary) {
	nodes := s.net.Nodes()
	var getters []stats.Getter
	if mp, ok := s.proto.(MetricsProvider); ok {
		getters = mp.Metrics()
	}
	return stats.Census(nodes), stats.Collect(nodes, getters...)
}

// Report returns the kernel figures plus the protocol's own report.
func (s *Session) Report() logrus.Fields {
	f := logrus.Fields{
		"time":       s.net.Clock,
		"dispatched": s.net.Dispatched(),
		"pending":    s.net.Pending(),
		"totalBytes": stats.TotalBytes(s.net.Nodes()),
	}
	if r, ok := s.proto.(Reporter); ok {
		for k, v := range r.Report() {
			f[k] = v
		}
	}
	return f
}
