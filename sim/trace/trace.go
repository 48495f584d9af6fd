package trace

// TraceLevel controls the verbosity of envelope tracing.
type TraceLevel string

const (
	// TraceLevelNone disables tracing (zero overhead).
	TraceLevelNone TraceLevel = "none"
	// TraceLevelEnvelopes records one EnvelopeRecord per dispatch.
	TraceLevelEnvelopes TraceLevel = "envelopes"
	// TraceLevelFields additionally stores each message's field map.
	TraceLevelFields TraceLevel = "fields"
)

// validTraceLevels maps accepted trace level strings.
var validTraceLevels = map[TraceLevel]bool{
	TraceLevelNone:      true,
	TraceLevelEnvelopes: true,
	TraceLevelFields:    true,
	"":                  true, // empty defaults to none
}

// IsValidTraceLevel returns true if the given level string is a recognized trace level.
func IsValidTraceLevel(level string) bool {
	return validTraceLevels[TraceLevel(level)]
}

// Recorder collects envelope records during a run.
type Recorder struct {
	Level     TraceLevel
	Envelopes []EnvelopeRecord
}

// NewRecorder creates a Recorder ready for recording.
func NewRecorder(level TraceLevel) *Recorder {
	return &Recorder{
		Level:     level,
		Envelopes: make([]EnvelopeRecord, 0),
	}
}

// Enabled reports whether records should be produced at all.
func (r *Recorder) Enabled() bool {
	return r != nil && r.Level != TraceLevelNone && r.Level != ""
}

// WantFields reports whether message field maps should be captured.
func (r *Recorder) WantFields() bool {
	return r != nil && r.Level == TraceLevelFields
}

// Record appends an envelope record.
func (r *Recorder) Record(rec EnvelopeRecord) {
	r.Envelopes = append(r.Envelopes, rec)
}
