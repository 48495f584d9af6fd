// Package geo maps city labels to planar map positions for the latency model.
// This package has no dependencies on sim/: it stores pure data types.
package geo

import (
	_ "embed"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
)

// Map dimensions of the projected plane. Positions are in [1, MaxX] x [1, MaxY].
const (
	MaxX = 2000
	MaxY = 1112
)

//go:embed cities.csv
var defaultCitiesCSV string

// Position is a projected point on the simulation map.
type Position struct {
	X int
	Y int
}

// Table is an immutable city → position lookup.
type Table struct {
	positions map[string]Position
	names     []string // sorted, for deterministic iteration
}

// Project converts latitude/longitude in degrees into map coordinates using an
// equirectangular projection. East–west and north–south ordering is preserved;
// distances are planar, not geodesic.
func Project(latitude, longitude float64) Position {
	x := (longitude + 180) / 360 * MaxX
	y := (90 - latitude) / 180 * MaxY
	return Position{X: clamp(int(x), 1, MaxX), Y: clamp(int(y), 1, MaxY)}
}

func clamp(v, lo, hi int) int {
	return max(lo, min(v, hi))
}

// Default returns the table built from the embedded city list.
func Default() *Table {
	t, err := Parse(strings.NewReader(defaultCitiesCSV))
	if err != nil {
		panic(fmt.Sprintf("embedded city table is invalid: %v", err))
	}
	return t
}

// LoadTable reads a city table from a CSV file with header city,latitude,longitude.
func LoadTable(path string) (*Table, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open city CSV: %w", err)
	}
	defer file.Close()
	return Parse(file)
}

// Parse reads a city table from CSV. Malformed rows, out-of-range coordinates
// and duplicate city names are rejected.
func Parse(r io.Reader) (*Table, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read city CSV: %w", err)
	}
	if len(records) < 2 {
		return nil, fmt.Errorf("city CSV empty or missing header")
	}

	t := &Table{positions: make(map[string]Position, len(records)-1)}
	for i, record := range records[1:] { // Skip header
		row := i + 2
		if len(record) < 3 {
			return nil, fmt.Errorf("city CSV row %d: expected 3 columns, got %d", row, len(record))
		}
		name := strings.TrimSpace(record[0])
		if name == "" {
			return nil, fmt.Errorf("city CSV row %d: empty city name", row)
		}
		lat, err := strconv.ParseFloat(record[1], 64)
		if err != nil {
			return nil, fmt.Errorf("city CSV row %d (%s): invalid latitude: %w", row, name, err)
		}
		lon, err := strconv.ParseFloat(record[2], 64)
		if err != nil {
			return nil, fmt.Errorf("city CSV row %d (%s): invalid longitude: %w", row, name, err)
		}
		if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
			return nil, fmt.Errorf("city CSV row %d (%s): coordinates out of range (%f, %f)", row, name, lat, lon)
		}
		if _, dup := t.positions[name]; dup {
			return nil, fmt.Errorf("city CSV row %d: duplicate city %q", row, name)
		}
		t.positions[name] = Project(lat, lon)
		t.names = append(t.names, name)
	}
	sort.Strings(t.names)
	return t, nil
}

// LookupError reports a city label absent from the table.
type LookupError struct {
	City string
}

func (e *LookupError) Error() string {
	return fmt.Sprintf("unknown city %q", e.City)
}

// Lookup returns the position of a city.
func (t *Table) Lookup(city string) (Position, error) {
	p, ok := t.positions[city]
	if !ok {
		return Position{}, &LookupError{City: city}
	}
	return p, nil
}

// Validate checks that every city is present in the table.
func (t *Table) Validate(cities []string) error {
	for _, c := range cities {
		if _, err := t.Lookup(c); err != nil {
			return err
		}
	}
	return nil
}

// Cities returns the sorted city names.
func (t *Table) Cities() []string {
	out := make([]string, len(t.names))
	copy(out, t.names)
	return out
}

// Len returns the number of cities.
func (t *Table) Len() int {
	return len(t.names)
}
