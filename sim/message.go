package sim

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// Message is the unit of work carried by an Envelope. A message is immutable
// once built and may be shared by every destination of one Send.
type Message interface {
	// Action runs when the envelope is dispatched to a live node.
	Action(net *Network, from, to *Node)
	// Size is the abstract payload size counted once per envelope.
	Size() int
}

// Describer is implemented by nodes and messages that can be rendered as a
// label and a flat field map for logs, traces and external inspection.
type Describer interface {
	Label() string
	Fields() logrus.Fields
}

// Describe returns the label and field map of v, or its Go type name and no
// fields if v does not implement Describer.
func Describe(v any) (string, logrus.Fields) {
	if d, ok := v.(Describer); ok {
		return d.Label(), d.Fields()
	}
	return typeName(v), logrus.Fields{}
}

// Condition is evaluated synchronously at dispatch time.
type Condition func() bool

// Task runs a closure on its destination node.
type Task struct {
	Name string
	Work func()
}

func (t *Task) Action(_ *Network, _, _ *Node) { t.Work() }
func (t *Task) Size() int                     { return 0 }
func (t *Task) Label() string                 { return labelOr(t.Name, "task") }
func (t *Task) Fields() logrus.Fields         { return logrus.Fields{"name": t.Name} }

// PeriodicTask runs Work and, while ContinueIf holds (or is nil), schedules
// itself again Period ms after the current dispatch time on the same node.
type PeriodicTask struct {
	Name       string
	Work       func()
	Period     int64
	ContinueIf Condition
}

func (t *PeriodicTask) Action(net *Network, from, to *Node) {
	t.Work()
	if t.ContinueIf == nil || t.ContinueIf() {
		Assert(t.Period > 0, "periodic task %q period must be positive, got %d", t.Name, t.Period)
		net.SendArriveAt(t, net.Clock+t.Period, from, to)
	}
}

func (t *PeriodicTask) Size() int     { return 0 }
func (t *PeriodicTask) Label() string { return labelOr(t.Name, "periodic-task") }
func (t *PeriodicTask) Fields() logrus.Fields {
	return logrus.Fields{"name": t.Name, "period": t.Period}
}

// ConditionalTask runs Work only if Clock >= MinStart and StartIf holds at
// dispatch. Otherwise the envelope is consumed and nothing is re-queued: a
// protocol that needs to retry must submit the task again itself. After a
// run, if RepeatIf is set and holds, the task schedules itself Duration ms
// later; Duration must then be positive.
type ConditionalTask struct {
	Name     string
	Work     func()
	StartIf  Condition
	RepeatIf Condition
	MinStart int64
	Duration int64
}

func (t *ConditionalTask) Action(net *Network, from, to *Node) {
	if net.Clock < t.MinStart || (t.StartIf != nil && !t.StartIf()) {
		return
	}
	t.Work()
	if t.RepeatIf != nil && t.RepeatIf() {
		Assert(t.Duration > 0, "repeating conditional task %q duration must be positive, got %d", t.Name, t.Duration)
		net.SendArriveAt(t, net.Clock+t.Duration, from, to)
	}
}

func (t *ConditionalTask) Size() int     { return 0 }
func (t *ConditionalTask) Label() string { return labelOr(t.Name, "conditional-task") }
func (t *ConditionalTask) Fields() logrus.Fields {
	return logrus.Fields{"name": t.Name, "minStart": t.MinStart, "duration": t.Duration, "repeats": t.RepeatIf != nil}
}

func typeName(v any) string {
	return fmt.Sprintf("%T", v)
}

func labelOr(name, fallback string) string {
	if name != "" {
		return name
	}
	return fallback
}
