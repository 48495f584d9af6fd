package cmd

import (
	"fmt"
	"io"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/netsim/netsim/sim/protocol"
	"github.com/netsim/netsim/sim/stats"
	"github.com/netsim/netsim/sim/trace"
)

// runOptions is everything one run needs.
type runOptions struct {
	Protocol   string
	Params     []byte // YAML; empty means defaults
	Seed       int64
	DurationMs int64
	TraceLevel trace.TraceLevel
}

// runSimulation runs one protocol to completion or until the time budget is
// spent, and writes stats and the protocol report to out. A kernel invariant
// violation is returned as an error carrying its stack.
func runSimulation(opts runOptions, out io.Writer) (err error) {
	if opts.DurationMs <= 0 {
		return fmt.Errorf("duration must be positive, got %d", opts.DurationMs)
	}
	var s *protocol.Session
	defer func() {
		if r := recover(); r != nil {
			var at int64
			if s != nil {
				at = s.Time()
			}
			logrus.Errorf("simulation aborted at t=%d: %+v", at, r)
			err = fmt.Errorf("simulation aborted at t=%d: %v", at, r)
		}
	}()

	if s, err = protocol.NewSession(opts.Protocol, opts.Params, opts.Seed); err != nil {
		return err
	}
	if opts.TraceLevel != "" && opts.TraceLevel != trace.TraceLevelNone {
		s.Network().Trace = trace.NewRecorder(opts.TraceLevel)
	}

	logrus.Infof("Starting %s (run %s) for at most %d ms", opts.Protocol, s.RunID, opts.DurationMs)
	finished := s.RunToCompletion(opts.DurationMs)

	fmt.Fprintf(out, "Protocol             : %s\n", opts.Protocol)
	fmt.Fprintf(out, "Run                  : %s\n", s.RunID)
	fmt.Fprintf(out, "Finished             : %v\n", finished)
	counts, summaries := s.Stats()
	stats.Print(out, counts, summaries)
	printReport(out, s.Report())
	if rec := s.Network().Trace; rec.Enabled() {
		printTrace(out, trace.Summarize(rec))
	}
	return nil
}

func printReport(out io.Writer, report logrus.Fields) {
	keys := make([]string, 0, len(report))
	for k := range report {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	fmt.Fprintln(out, "=== Report ===")
	for _, k := range keys {
		fmt.Fprintf(out, "%-20s : %v\n", k, report[k])
	}
}

func printTrace(out io.Writer, ts *trace.TraceSummary) {
	fmt.Fprintln(out, "=== Trace ===")
	fmt.Fprintf(out, "Envelopes            : %d (delivered %d, dropped %d)\n", ts.TotalEnvelopes, ts.Delivered, ts.Dropped)
	fmt.Fprintf(out, "Delivered bytes      : %d\n", ts.DeliveredBytes)
	fmt.Fprintf(out, "Span                 : [%d, %d] ms\n", ts.FirstClock, ts.LastClock)
	labels := make([]string, 0, len(ts.LabelCounts))
	for l := range ts.LabelCounts {
		labels = append(labels, l)
	}
	sort.Strings(labels)
	for _, l := range labels {
		fmt.Fprintf(out, "  %-18s : %d\n", l, ts.LabelCounts[l])
	}
}
