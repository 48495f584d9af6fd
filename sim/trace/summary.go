package trace

// TraceSummary aggregates statistics from a Recorder.
type TraceSummary struct {
	TotalEnvelopes int
	Delivered      int
	Dropped        int
	DeliveredBytes int64
	FirstClock     int64
	LastClock      int64
	LabelCounts    map[string]int // message label → delivered envelopes
}

// Summarize computes aggregate statistics from a Recorder.
// Safe for nil or empty recorders (returns zero-value fields).
func Summarize(r *Recorder) *TraceSummary {
	summary := &TraceSummary{
		LabelCounts: make(map[string]int),
	}
	if r == nil || len(r.Envelopes) == 0 {
		return summary
	}

	summary.TotalEnvelopes = len(r.Envelopes)
	summary.FirstClock = r.Envelopes[0].Clock
	summary.LastClock = r.Envelopes[len(r.Envelopes)-1].Clock
	for _, e := range r.Envelopes {
		if !e.Delivered {
			summary.Dropped++
			continue
		}
		summary.Delivered++
		summary.DeliveredBytes += int64(e.Size)
		summary.LabelCounts[e.Label]++
	}
	return summary
}
