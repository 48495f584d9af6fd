// Package testutil provides shared test helpers for the sim packages.
package testutil

import (
	"math"
	"reflect"
	"testing"
)

// AssertFloat64Equal compares two float64 values with relative tolerance.
func AssertFloat64Equal(t *testing.T, name string, want, got, relTol float64) {
	t.Helper()
	if want == 0 && got == 0 {
		return
	}
	diff := math.Abs(want - got)
	maxVal := math.Max(math.Abs(want), math.Abs(got))
	if diff/maxVal > relTol {
		t.Errorf("%s: got %v, want %v (diff=%v, relDiff=%v)", name, got, want, diff, diff/maxVal)
	}
}

// AssertDeterministic runs the same simulation several times and fails if
// any run's observation differs from the first one.
func AssertDeterministic(t *testing.T, runs int, run func() any) {
	t.Helper()
	first := run()
	for i := 1; i < runs; i++ {
		if got := run(); !reflect.DeepEqual(first, got) {
			t.Fatalf("run %d diverged from run 0:\n first: %v\n   got: %v", i, first, got)
		}
	}
}
