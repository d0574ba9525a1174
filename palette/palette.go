// Package palette defines the fixed Lights Out → Dim color substitution map
// and the CSS color value helpers built around it. These are the public API
// contract: the corrector, the stylesheet generator, and external callers all
// import this package.
package palette

import (
	"fmt"
)

// RGB is an exact 8-bit color triplet. Palette lookups match by integer
// equality only, never by nearest color.
type RGB struct {
	R, G, B uint8
}

// Hex returns the uppercase #RRGGBB form.
func (c RGB) Hex() string {
	return fmt.Sprintf("#%02X%02X%02X", c.R, c.G, c.B)
}

// Entry maps one Lights Out color to its Dim replacement.
type Entry struct {
	Source RGB `json:"source"`
	Target RGB `json:"target"`
}

// Map is an immutable source → target color mapping. Source and target sets
// are disjoint by construction, which is what makes element correction
// idempotent: a corrected value is never itself a lookup key.
type Map struct {
	entries  []Entry
	bySource map[RGB]RGB
}

// New builds a Map from entries. It rejects duplicate sources and any
// target that also appears as a source.
func New(entries []Entry) (*Map, error) {
	bySource := make(map[RGB]RGB, len(entries))
	for _, e := range entries {
		if _, dup := bySource[e.Source]; dup {
			return nil, fmt.Errorf("palette: duplicate source %s", e.Source.Hex())
		}
		bySource[e.Source] = e.Target
	}
	for _, e := range entries {
		if _, clash := bySource[e.Target]; clash {
			return nil, fmt.Errorf("palette: target %s is also a source", e.Target.Hex())
		}
	}
	return &Map{entries: append([]Entry(nil), entries...), bySource: bySource}, nil
}

// Default is the Lights Out → Dim substitution used by redim: pure black
// surfaces and their companion grays become the navy Dim palette.
func Default() *Map {
	m, err := New([]Entry{
		{Source: RGB{0, 0, 0}, Target: RGB{21, 32, 43}},      // page background
		{Source: RGB{22, 24, 28}, Target: RGB{30, 39, 50}},   // raised cards
		{Source: RGB{32, 35, 39}, Target: RGB{39, 51, 64}},   // inputs, search
		{Source: RGB{47, 51, 54}, Target: RGB{56, 68, 77}},   // borders, hover
	})
	if err != nil {
		panic(err) // fixed data, validated at init
	}
	return m
}

// Lookup returns the Dim replacement for a Lights Out color.
func (m *Map) Lookup(c RGB) (RGB, bool) {
	t, ok := m.bySource[c]
	return t, ok
}

// Entries returns the mapping in declaration order.
func (m *Map) Entries() []Entry {
	return append([]Entry(nil), m.entries...)
}
