package grid

import (
	"go.ngs.io/ofs-skill/internal/domain"
)

// Leveled is an unstructured mesh carrying explicit per-node vertical
// coordinates (negative-down) instead of sigma fractions. Stations
// output streams may additionally carry station name labels, which
// enable lexical matching when spatial search is ambiguous.
type Leveled struct {
	lat, lon []float64
	levels   [][]float64 // per-node elevations, negative-down; may hold NaN
	names    []string    // optional station labels, len 0 or len(lat)
}

// NewLeveled validates the node arrays. levels rows must match the
// coordinate arrays; names may be nil.
func NewLeveled(lat, lon []float64, levels [][]float64, names []string) (*Leveled, error) {
	n := len(lat)
	if len(lon) != n {
		return nil, &ShapeMismatchError{Grid: "leveled", Field: "lon", Want: n, Got: len(lon)}
	}
	if len(levels) != n {
		return nil, &ShapeMismatchError{Grid: "leveled", Field: "levels", Want: n, Got: len(levels)}
	}
	if names != nil && len(names) != n {
		return nil, &ShapeMismatchError{Grid: "leveled", Field: "names", Want: n, Got: len(names)}
	}

	g := &Leveled{
		lat:    append([]float64(nil), lat...),
		lon:    make([]float64, n),
		levels: levels,
		names:  names,
	}
	for i, l := range lon {
		g.lon[i] = domain.NormalizeLon360(l)
	}
	return g, nil
}

func (g *Leveled) Family() domain.GridFamily { return domain.FamilyUnstructuredLeveled }

// NodeCount returns the number of mesh nodes.
func (g *Leveled) NodeCount() int { return len(g.lat) }

// Points returns the node candidate set; all variables share it.
func (g *Leveled) Points(domain.VariableKind) PointSet {
	return flatPoints{lat: g.lat, lon: g.lon}
}

// DepthProfile returns the stored per-node elevations unchanged,
// including any NaN entries, which propagate to an unmatched vertical
// resolution downstream.
func (g *Leveled) DepthProfile(node int, _ domain.VariableKind) []float64 {
	return g.levels[node]
}

// HasNames reports whether the grid carries station labels.
func (g *Leveled) HasNames() bool { return len(g.names) > 0 }

// Name returns the station label at node, empty when absent.
func (g *Leveled) Name(node int) string {
	if g.names == nil {
		return ""
	}
	return g.names[node]
}
