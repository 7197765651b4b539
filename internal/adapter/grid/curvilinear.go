package grid

import (
	"go.ngs.io/ofs-skill/internal/domain"
)

// Curvilinear is a structured 2-D grid with a land mask, positive-down
// bathymetry and terrain-following sigma fractions. All variables of
// interest live on the rho (cell center) grid after staggered velocity
// components have been averaged there.
type Curvilinear struct {
	lat   []float64 // flattened row-major, rows*cols
	lon   []float64
	water []bool
	depth []float64 // bathymetry h, positive down
	angle []float64 // grid rotation in radians, nil when absent
	sigma []float64 // s_rho fractions in (-1, 0), one per layer
	rows  int
	cols  int
}

// NewCurvilinear validates and flattens the 2-D grid arrays. mask uses
// the ROMS convention: 1 is water, 0 is land. angle may be nil.
func NewCurvilinear(lat, lon, mask, bathymetry, angle [][]float64, sigma []float64) (*Curvilinear, error) {
	rows := len(lat)
	if rows == 0 {
		return nil, &ShapeMismatchError{Grid: "curvilinear", Field: "lat", Want: 1, Got: 0}
	}
	cols := len(lat[0])

	check := func(field string, v [][]float64) error {
		if len(v) != rows {
			return &ShapeMismatchError{Grid: "curvilinear", Field: field, Want: rows, Got: len(v)}
		}
		for _, row := range v {
			if len(row) != cols {
				return &ShapeMismatchError{Grid: "curvilinear", Field: field, Want: cols, Got: len(row)}
			}
		}
		return nil
	}
	if err := check("lon", lon); err != nil {
		return nil, err
	}
	if err := check("mask", mask); err != nil {
		return nil, err
	}
	if err := check("bathymetry", bathymetry); err != nil {
		return nil, err
	}
	if angle != nil {
		if err := check("angle", angle); err != nil {
			return nil, err
		}
	}

	g := &Curvilinear{
		lat:   make([]float64, 0, rows*cols),
		lon:   make([]float64, 0, rows*cols),
		water: make([]bool, 0, rows*cols),
		depth: make([]float64, 0, rows*cols),
		sigma: append([]float64(nil), sigma...),
		rows:  rows,
		cols:  cols,
	}
	if angle != nil {
		g.angle = make([]float64, 0, rows*cols)
	}
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			g.lat = append(g.lat, lat[r][c])
			g.lon = append(g.lon, domain.NormalizeLon360(lon[r][c]))
			g.water = append(g.water, mask[r][c] == 1)
			g.depth = append(g.depth, bathymetry[r][c])
			if angle != nil {
				g.angle = append(g.angle, angle[r][c])
			}
		}
	}
	return g, nil
}

func (g *Curvilinear) Family() domain.GridFamily { return domain.FamilyCurvilinear }

// Rows returns the eta extent of the grid.
func (g *Curvilinear) Rows() int { return g.rows }

// Cols returns the xi extent of the grid.
func (g *Curvilinear) Cols() int { return g.cols }

// Unravel converts a flat row-major node index to (row, col).
func (g *Curvilinear) Unravel(node int) (row, col int) {
	return node / g.cols, node % g.cols
}

// Ravel converts (row, col) to the flat row-major node index.
func (g *Curvilinear) Ravel(row, col int) int {
	return row*g.cols + col
}

// Water reports whether node is a wet cell.
func (g *Curvilinear) Water(node int) bool { return g.water[node] }

// Angle returns the grid rotation at node in radians, 0 when the grid
// carries no angle field.
func (g *Curvilinear) Angle(node int) float64 {
	if g.angle == nil {
		return 0
	}
	return g.angle[node]
}

type curvPoints struct{ g *Curvilinear }

func (p curvPoints) Len() int                    { return len(p.g.lat) }
func (p curvPoints) At(i int) (float64, float64) { return p.g.lat[i], p.g.lon[i] }
func (p curvPoints) Usable(i int) bool           { return p.g.water[i] }

// Points returns the rho-grid candidate set. All variables resolve on
// the same set once velocities are centered.
func (g *Curvilinear) Points(domain.VariableKind) PointSet {
	return curvPoints{g}
}

// DepthProfile returns the sigma-layer elevations at node: fraction
// times bathymetry, negative-down, in the layer order of the source
// grid.
func (g *Curvilinear) DepthProfile(node int, _ domain.VariableKind) []float64 {
	h := g.depth[node]
	prof := make([]float64, len(g.sigma))
	for k, s := range g.sigma {
		prof[k] = s * h
	}
	return prof
}
