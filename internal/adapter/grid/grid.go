// Package grid holds the topology adapters for the three model grid
// families. Each adapter normalizes its family's layout (2-D
// curvilinear arrays, flat triangular meshes, explicit level arrays)
// behind one interface so the spatial and vertical resolvers never
// branch on model names.
package grid

import (
	"fmt"

	"go.ngs.io/ofs-skill/internal/domain"
)

// PointSet is a flat list of candidate coordinates for nearest-point
// search. Longitudes are already normalized to [0, 360).
type PointSet interface {
	Len() int
	At(i int) (lat, lon float64)
	// Usable reports whether index i may serve a station. Masked land
	// cells on curvilinear grids are not usable.
	Usable(i int) bool
}

// Adapter exposes the geometry of one model grid.
type Adapter interface {
	Family() domain.GridFamily
	// Points returns the candidate set a variable is defined on. On
	// nodal meshes currents live at element centers while scalars live
	// at nodes.
	Points(kind domain.VariableKind) PointSet
	// DepthProfile returns the vertical elevations (negative-down,
	// meters) of the cell serving node for the given variable.
	DepthProfile(node int, kind domain.VariableKind) []float64
}

// ShapeMismatchError reports grid arrays whose dimensions disagree.
// Construction fails loudly instead of broadcasting.
type ShapeMismatchError struct {
	Grid  string
	Field string
	Want  int
	Got   int
}

func (e *ShapeMismatchError) Error() string {
	return fmt.Sprintf("%s grid: %s has %d entries, want %d", e.Grid, e.Field, e.Got, e.Want)
}

// flatPoints adapts parallel lat/lon slices to a PointSet.
type flatPoints struct {
	lat, lon []float64
}

func (p flatPoints) Len() int                 { return len(p.lat) }
func (p flatPoints) At(i int) (lat, lon float64) { return p.lat[i], p.lon[i] }
func (p flatPoints) Usable(int) bool          { return true }
