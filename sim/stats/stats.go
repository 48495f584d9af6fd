// Package stats aggregates per-node metrics of a running or finished
// simulation into summary statistics.
package stats

import (
	"fmt"
	"io"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/netsim/netsim/sim"
)

// Summary describes the distribution of one metric over a set of nodes.
type Summary struct {
	Name   string
	Count  int
	Min    float64
	Max    float64
	Mean   float64
	StdDev float64
	Median float64
	P90    float64
}

// Getter extracts one metric from a node. If Filter is set, only nodes it
// accepts contribute.
type Getter struct {
	Name   string
	Get    func(*sim.Node) float64
	Filter func(*sim.Node) bool
}

// Standard per-node metrics.
var (
	MsgSent       = Getter{Name: "msgSent", Get: func(n *sim.Node) float64 { return float64(n.MsgSent) }}
	MsgReceived   = Getter{Name: "msgReceived", Get: func(n *sim.Node) float64 { return float64(n.MsgReceived) }}
	BytesSent     = Getter{Name: "bytesSent", Get: func(n *sim.Node) float64 { return float64(n.BytesSent) }}
	BytesReceived = Getter{Name: "bytesReceived", Get: func(n *sim.Node) float64 { return float64(n.BytesReceived) }}
	DoneAt        = Getter{
		Name:   "doneAt",
		Get:    func(n *sim.Node) float64 { return float64(n.DoneAt) },
		Filter: func(n *sim.Node) bool { return n.Done() },
	}
)

// Defaults is the metric set reported when a protocol does not choose its own.
var Defaults = []Getter{DoneAt, MsgReceived, MsgSent, BytesReceived, BytesSent}

// Summarize computes a Summary over values. Empty input yields a zero
// Summary with Count 0.
func Summarize(name string, values []float64) Summary {
	s := Summary{Name: name, Count: len(values)}
	if len(values) == 0 {
		return s
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	s.Min = sorted[0]
	s.Max = sorted[len(sorted)-1]
	s.Mean = stat.Mean(sorted, nil)
	if len(sorted) > 1 {
		s.StdDev = stat.StdDev(sorted, nil)
	}
	s.Median = stat.Quantile(0.5, stat.Empirical, sorted, nil)
	s.P90 = stat.Quantile(0.9, stat.Empirical, sorted, nil)
	return s
}

// Collect applies each getter to the live nodes and summarizes the results.
// Stopped nodes are left out: their counters reflect a partial run.
func Collect(nodes []*sim.Node, getters ...Getter) []Summary {
	if len(getters) == 0 {
		getters = Defaults
	}
	out := make([]Summary, 0, len(getters))
	for _, g := range getters {
		values := make([]float64, 0, len(nodes))
		for _, n := range nodes {
			if !n.Alive() || (g.Filter != nil && !g.Filter(n)) {
				continue
			}
			values = append(values, g.Get(n))
		}
		out = append(out, Summarize(g.Name, values))
	}
	return out
}

// Counts is a census of node states.
type Counts struct {
	Total     int
	Live      int
	Stopped   int
	Done      int
	Byzantine int
}

// Census counts node states.
func Census(nodes []*sim.Node) Counts {
	c := Counts{Total: len(nodes)}
	for _, n := range nodes {
		if n.Alive() {
			c.Live++
		} else {
			c.Stopped++
		}
		if n.Done() {
			c.Done++
		}
		if n.Byzantine {
			c.Byzantine++
		}
	}
	return c
}

// TotalBytes sums bytes sent over all nodes, stopped ones included.
func TotalBytes(nodes []*sim.Node) int64 {
	var total int64
	for _, n := range nodes {
		total += n.BytesSent
	}
	return total
}

// Print writes a human-readable table of summaries.
func Print(w io.Writer, counts Counts, summaries []Summary) {
	fmt.Fprintln(w, "=== Simulation Stats ===")
	fmt.Fprintf(w, "Nodes                : %d (live %d, stopped %d, byzantine %d)\n",
		counts.Total, counts.Live, counts.Stopped, counts.Byzantine)
	fmt.Fprintf(w, "Done                 : %d\n", counts.Done)
	for _, s := range summaries {
		if s.Count == 0 {
			fmt.Fprintf(w, "%-20s : n/a\n", s.Name)
			continue
		}
		fmt.Fprintf(w, "%-20s : min %s  mean %s  median %s  p90 %s  max %s  (n=%d, sd %.2f)\n",
			s.Name, num(s.Min), num(s.Mean), num(s.Median), num(s.P90), num(s.Max), s.Count, s.StdDev)
	}
}

func num(v float64) string {
	if v == math.Trunc(v) && math.Abs(v) < 1e15 {
		return fmt.Sprintf("%d", int64(v))
	}
	return fmt.Sprintf("%.2f", v)
}
