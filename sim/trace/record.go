// Package trace provides envelope-trace recording for post-run analysis and
// for external inspection layers. This package has no dependencies on sim/:
// it stores pure data types.
package trace

// EnvelopeRecord captures a single dispatched envelope.
type EnvelopeRecord struct {
	Seq       uint64
	Clock     int64 // dispatch time
	FromID    int
	ToID      int
	Label     string
	Size      int
	Delivered bool           // false if the destination was stopped
	Fields    map[string]any // message field map; nil unless TraceLevelFields
}
