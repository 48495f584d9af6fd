// sim/network.go
package sim

import (
	"math/rand"

	"github.com/sirupsen/logrus"

	"github.com/netsim/netsim/sim/trace"
)

// Network is the simulation scheduler: it owns the virtual clock, the node
// registry, the pending envelopes and the run's only RandomSource.
// A Network is driven from a single goroutine.
type Network struct {
	// Clock is the current virtual time in milliseconds.
	Clock int64
	// RNG is the only source of randomness of the run.
	RNG     *PartitionedRNG
	Latency LatencyModel
	// Trace, when enabled, receives one record per dispatched envelope.
	Trace *trace.Recorder

	nodes      []*Node
	queue      *EnvelopeHeap
	nextSeq    uint64
	dispatched int64
}

// NewNetwork creates an empty network. A nil latency model means no delay.
func NewNetwork(key SimulationKey, latency LatencyModel) *Network {
	if latency == nil {
		latency = &FixedLatency{}
	}
	return &Network{
		RNG:     NewPartitionedRNG(key),
		Latency: latency,
		nodes:   make([]*Node, 0),
		queue:   NewEnvelopeHeap(),
	}
}

// Rand returns the kernel RNG stream. Protocols needing independent
// streams use RNG.ForSubsystem.
func (net *Network) Rand() *rand.Rand {
	return net.RNG.ForSubsystem(SubsystemNetwork)
}

// AddNode registers n, assigns it the next id and returns that id.
// Registering the same node twice is fatal.
func (net *Network) AddNode(n *Node) int {
	if n.ID >= 0 {
		Assert(false, "node %d registered twice", n.ID)
	}
	n.ID = len(net.nodes)
	net.nodes = append(net.nodes, n)
	return n.ID
}

// NewNode builds a node with b, attaches state and registers it.
func (net *Network) NewNode(b *NodeBuilder, state any) *Node {
	n := b.Build(net.RNG.ForSubsystem(SubsystemBuilder))
	n.State = state
	net.AddNode(n)
	return n
}

// Node returns the node with the given id. Unknown ids are fatal.
func (net *Network) Node(id int) *Node {
	if id < 0 || id >= len(net.nodes) {
		fatal(&UnknownNodeError{ID: id})
	}
	return net.nodes[id]
}

// Lookup returns the node with the given id, or false.
func (net *Network) Lookup(id int) (*Node, bool) {
	if id < 0 || id >= len(net.nodes) {
		return nil, false
	}
	return net.nodes[id], true
}

// Nodes returns all registered nodes ordered by id.
func (net *Network) Nodes() []*Node {
	out := make([]*Node, len(net.nodes))
	copy(out, net.nodes)
	return out
}

// LiveNodes returns the nodes currently alive, ordered by id.
func (net *Network) LiveNodes() []*Node {
	out := make([]*Node, 0, len(net.nodes))
	for _, n := range net.nodes {
		if n.alive {
			out = append(out, n)
		}
	}
	return out
}

// Len returns the number of registered nodes.
func (net *Network) Len() int {
	return len(net.nodes)
}

// Dispatched returns the number of envelopes popped so far, including those
// dropped because their destination was stopped.
func (net *Network) Dispatched() int64 {
	return net.dispatched
}

// Pending returns the number of envelopes waiting in the queue.
func (net *Network) Pending() int {
	return net.queue.Len()
}

// Send schedules msg from one node to each node of to. Destination i leaves
// at sendTime + i*interPeerDelay and arrives after the latency model's delay
// for the pair. Sending before the current time is fatal.
func (net *Network) Send(msg Message, sendTime int64, from *Node, to []*Node, interPeerDelay int64) {
	net.checkTime(msg, sendTime)
	net.checkRegistered(from)
	size := int64(msg.Size())
	for i, dest := range to {
		net.checkRegistered(dest)
		at := sendTime + int64(i)*interPeerDelay + net.Latency.Delay(from, dest, net.Rand().Intn(100))
		if from != dest {
			from.MsgSent++
			from.BytesSent += size
		}
		net.schedule(at, from, dest, msg)
	}
}

// SendTo is Send with a single destination.
func (net *Network) SendTo(msg Message, sendTime int64, from, to *Node) {
	net.Send(msg, sendTime, from, []*Node{to}, 0)
}

// SendArriveAt schedules exactly one envelope delivered at the given time,
// bypassing the latency model. Used for self-addressed tasks.
func (net *Network) SendArriveAt(msg Message, at int64, from, to *Node) {
	net.checkTime(msg, at)
	net.checkRegistered(from)
	net.checkRegistered(to)
	if from != to {
		from.MsgSent++
		from.BytesSent += int64(msg.Size())
	}
	net.schedule(at, from, to, msg)
}

func (net *Network) checkTime(msg Message, at int64) {
	if at < net.Clock {
		label, _ := Describe(msg)
		fatal(&SchedulingError{At: at, Clock: net.Clock, Msg: label})
	}
}

func (net *Network) checkRegistered(n *Node) {
	if n == nil || n.ID < 0 || n.ID >= len(net.nodes) || net.nodes[n.ID] != n {
		id := -1
		if n != nil {
			id = n.ID
		}
		fatal(&UnknownNodeError{ID: id})
	}
}

func (net *Network) schedule(at int64, from, to *Node, msg Message) {
	net.nextSeq++
	net.queue.Schedule(&Envelope{At: at, Seq: net.nextSeq, From: from, To: to, Msg: msg})
}

// RegisterTask runs work on node at the given time.
func (net *Network) RegisterTask(work func(), at int64, node *Node) {
	net.SendArriveAt(&Task{Work: work}, at, node, node)
}

// RegisterPeriodicTask runs work on node at start, start+period, ... for as
// long as continueIf holds. A nil continueIf never stops.
func (net *Network) RegisterPeriodicTask(work func(), start, period int64, node *Node, continueIf Condition) *PeriodicTask {
	Assert(period > 0, "periodic task period must be positive, got %d", period)
	t := &PeriodicTask{Work: work, Period: period, ContinueIf: continueIf}
	net.SendArriveAt(t, start, node, node)
	return t
}

// RegisterConditionalTask schedules a ConditionalTask on node at start,
// with start as its minimum start time. A task that repeats needs a
// positive duration.
func (net *Network) RegisterConditionalTask(work func(), start, duration int64, node *Node, startIf, repeatIf Condition) *ConditionalTask {
	Assert(repeatIf == nil || duration > 0, "repeating conditional task duration must be positive, got %d", duration)
	t := &ConditionalTask{Work: work, StartIf: startIf, RepeatIf: repeatIf, MinStart: start, Duration: duration}
	net.SendArriveAt(t, start, node, node)
	return t
}

// Run dispatches at most steps envelopes and returns how many were dispatched.
func (net *Network) Run(steps int) int {
	n := 0
	for n < steps && net.queue.Len() > 0 {
		net.dispatch(net.queue.PopNext())
		n++
	}
	return n
}

// RunMs dispatches every envelope due strictly before Clock+d, then moves
// the clock to Clock+d.
func (net *Network) RunMs(d int64) {
	end := net.Clock + d
	for {
		next := net.queue.Peek()
		if next == nil || next.At >= end {
			break
		}
		net.dispatch(net.queue.PopNext())
	}
	net.Clock = end
}

// RunUntil advances one millisecond at a time until cond holds or maxMs
// have elapsed. Returns whether cond holds.
func (net *Network) RunUntil(cond Condition, maxMs int64) bool {
	for elapsed := int64(0); elapsed < maxMs; elapsed++ {
		if cond() {
			return true
		}
		net.RunMs(1)
	}
	return cond()
}

// Drain dispatches envelopes until the queue is empty or maxSteps were
// dispatched. Returns whether the queue is empty.
func (net *Network) Drain(maxSteps int) bool {
	net.Run(maxSteps)
	return net.queue.Len() == 0
}

func (net *Network) dispatch(e *Envelope) {
	// Clock monotonicity
	if e.At < net.Clock {
		fatal(&SchedulingError{At: e.At, Clock: net.Clock, Msg: "dispatch"})
	}
	net.Clock = e.At
	net.dispatched++

	delivered := e.To.alive
	if net.Trace.Enabled() {
		net.record(e, delivered)
	}
	if !delivered {
		return
	}
	if e.From != e.To {
		e.To.MsgReceived++
		e.To.BytesReceived += int64(e.Msg.Size())
	}
	if logrus.IsLevelEnabled(logrus.TraceLevel) {
		label, fields := Describe(e.Msg)
		logrus.WithFields(fields).Tracef("[t %07d] %s %d -> %d", net.Clock, label, e.From.ID, e.To.ID)
	}
	e.Msg.Action(net, e.From, e.To)
}

func (net *Network) record(e *Envelope, delivered bool) {
	label, fields := Describe(e.Msg)
	rec := trace.EnvelopeRecord{
		Seq:       e.Seq,
		Clock:     e.At,
		FromID:    e.From.ID,
		ToID:      e.To.ID,
		Label:     label,
		Size:      e.Msg.Size(),
		Delivered: delivered,
	}
	if net.Trace.WantFields() {
		rec.Fields = fields
	}
	net.Trace.Record(rec)
}
