package sim

import "container/heap"

// Envelope is one scheduled delivery: msg arrives at To at virtual time At.
// Seq is the insertion sequence assigned by the Network and breaks ties
// between envelopes scheduled for the same millisecond.
type Envelope struct {
	At   int64
	Seq  uint64
	From *Node
	To   *Node
	Msg  Message
}

// EnvelopeHeap implements a priority queue with deterministic ordering
// Ordering: delivery time → insertion sequence
type EnvelopeHeap struct {
	envelopes []*Envelope
}

// NewEnvelopeHeap creates a new envelope heap
func NewEnvelopeHeap() *EnvelopeHeap {
	h := &EnvelopeHeap{
		envelopes: make([]*Envelope, 0),
	}
	heap.Init(h)
	return h
}

// Len implements heap.Interface
func (h *EnvelopeHeap) Len() int {
	return len(h.envelopes)
}

// Less implements heap.Interface with deterministic ordering
func (h *EnvelopeHeap) Less(i, j int) bool {
	ei, ej := h.envelopes[i], h.envelopes[j]

	// Primary: delivery time (lower first)
	if ei.At != ej.At {
		return ei.At < ej.At
	}

	// Secondary: insertion sequence (lower first)
	return ei.Seq < ej.Seq
}

// Swap implements heap.Interface
func (h *EnvelopeHeap) Swap(i, j int) {
	h.envelopes[i], h.envelopes[j] = h.envelopes[j], h.envelopes[i]
}

// Push implements heap.Interface
func (h *EnvelopeHeap) Push(x interface{}) {
	h.envelopes = append(h.envelopes, x.(*Envelope))
}

// Pop implements heap.Interface
func (h *EnvelopeHeap) Pop() interface{} {
	old := h.envelopes
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	h.envelopes = old[0 : n-1]
	return item
}

// Schedule adds an envelope to the heap
func (h *EnvelopeHeap) Schedule(e *Envelope) {
	heap.Push(h, e)
}

// PopNext removes and returns the next envelope
func (h *EnvelopeHeap) PopNext() *Envelope {
	if h.Len() == 0 {
		return nil
	}
	return heap.Pop(h).(*Envelope)
}

// Peek returns the next envelope without removing it
func (h *EnvelopeHeap) Peek() *Envelope {
	if h.Len() == 0 {
		return nil
	}
	return h.envelopes[0]
}
