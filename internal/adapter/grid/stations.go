package grid

import "go.ngs.io/ofs-skill/internal/domain"

// Stations is the sparse geometry of a stations output stream: one
// coordinate per pre-extracted output point, with none of the parent
// grid's arrays. Curvilinear streams record each point's parent grid
// cell alongside; sigma streams may carry per-point bathymetry for
// vertical placement.
type Stations struct {
	family   domain.GridFamily
	lat, lon []float64
	profiles [][]float64 // per-point elevations, negative-down; nil means surface only
	rows     []int       // parent grid row per point, curvilinear streams only
	cols     []int
}

// NewStations validates the output-point arrays. profiles and the
// rows/cols pair are optional; when present they must cover every
// point.
func NewStations(family domain.GridFamily, lat, lon []float64, profiles [][]float64, rows, cols []int) (*Stations, error) {
	n := len(lat)
	if len(lon) != n {
		return nil, &ShapeMismatchError{Grid: "stations", Field: "lon", Want: n, Got: len(lon)}
	}
	if profiles != nil && len(profiles) != n {
		return nil, &ShapeMismatchError{Grid: "stations", Field: "profiles", Want: n, Got: len(profiles)}
	}
	if rows != nil && len(rows) != n {
		return nil, &ShapeMismatchError{Grid: "stations", Field: "rows", Want: n, Got: len(rows)}
	}
	if cols != nil && len(cols) != n {
		return nil, &ShapeMismatchError{Grid: "stations", Field: "cols", Want: n, Got: len(cols)}
	}
	if (rows == nil) != (cols == nil) {
		return nil, &ShapeMismatchError{Grid: "stations", Field: "cols", Want: len(rows), Got: len(cols)}
	}

	g := &Stations{
		family:   family,
		lat:      append([]float64(nil), lat...),
		lon:      make([]float64, n),
		profiles: profiles,
		rows:     rows,
		cols:     cols,
	}
	for i, l := range lon {
		g.lon[i] = domain.NormalizeLon360(l)
	}
	return g, nil
}

func (g *Stations) Family() domain.GridFamily { return g.family }

// NodeCount returns the number of output points.
func (g *Stations) NodeCount() int { return len(g.lat) }

// Points returns the output points. Every variable of a stations
// stream lives at the same points, so the kind does not matter.
func (g *Stations) Points(domain.VariableKind) PointSet {
	return flatPoints{lat: g.lat, lon: g.lon}
}

// DepthProfile returns the point's elevations. Streams without the
// vertical arrays get a surface-only profile.
func (g *Stations) DepthProfile(node int, _ domain.VariableKind) []float64 {
	if g.profiles != nil {
		return g.profiles[node]
	}
	return []float64{0}
}

// GridIndex returns the parent grid cell recorded for output point i,
// when the stream carries the index arrays.
func (g *Stations) GridIndex(i int) (row, col int, ok bool) {
	if g.rows == nil || i < 0 || i >= len(g.rows) {
		return 0, 0, false
	}
	return g.rows[i], g.cols[i], true
}
