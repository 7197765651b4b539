package modeldata

import (
	"fmt"
	"math"

	"go.ngs.io/ofs-skill/internal/adapter/grid"
	"go.ngs.io/ofs-skill/internal/domain"
)

// velocity variable candidates per family. Leveled fields split the
// components into per-variable files that still carry these names.
var (
	uVarNames = []string{"u", "ua", "horizontalVelX"}
	vVarNames = []string{"v", "va", "horizontalVelY"}
)

// CurrentColumns reads east/north velocity series at a resolved point.
// Curvilinear fields output stores the components on staggered grids
// rotated into grid coordinates, so those are averaged back to the
// cell center and rotated to true east/north. Stations files and the
// unstructured families store components at the point directly.
func CurrentColumns(set *Set, g grid.Adapter, fileKind domain.FileKind, node, layer int) (u, v []float64, err error) {
	if gr, ok := g.(*grid.Curvilinear); ok && fileKind == domain.FileFields {
		return curvilinearCurrents(set, gr, node, layer)
	}
	u, err = set.Column(uVarNames, Point{Node: node, Layer: layer})
	if err != nil {
		return nil, nil, err
	}
	v, err = set.Column(vVarNames, Point{Node: node, Layer: layer})
	return u, v, err
}

// UComponentColumn reads the east velocity component at an
// unstaggered point, for output that stores the components in
// separate file series.
func UComponentColumn(set *Set, node, layer int) ([]float64, error) {
	return set.Column(uVarNames, Point{Node: node, Layer: layer})
}

// VComponentColumn reads the north velocity component at an
// unstaggered point.
func VComponentColumn(set *Set, node, layer int) ([]float64, error) {
	return set.Column(vVarNames, Point{Node: node, Layer: layer})
}

func curvilinearCurrents(set *Set, g *grid.Curvilinear, node, layer int) (ue, vn []float64, err error) {
	row, col := g.Unravel(node)

	// u lives on the xi_u grid (one column short); the rho-centered
	// value averages the faces on both sides of the cell.
	uL, uR := col-1, col
	if uL < 0 {
		uL = 0
	}
	if uR > g.Cols()-2 {
		uR = g.Cols() - 2
	}
	uLeft, err := set.Column(uVarNames, Point{Gridded: true, Row: row, Col: uL, Layer: layer})
	if err != nil {
		return nil, nil, fmt.Errorf("u component: %w", err)
	}
	uRight, err := set.Column(uVarNames, Point{Gridded: true, Row: row, Col: uR, Layer: layer})
	if err != nil {
		return nil, nil, fmt.Errorf("u component: %w", err)
	}

	// v lives on the eta_v grid (one row short).
	vB, vT := row-1, row
	if vB < 0 {
		vB = 0
	}
	if vT > g.Rows()-2 {
		vT = g.Rows() - 2
	}
	vBot, err := set.Column(vVarNames, Point{Gridded: true, Row: vB, Col: col, Layer: layer})
	if err != nil {
		return nil, nil, fmt.Errorf("v component: %w", err)
	}
	vTop, err := set.Column(vVarNames, Point{Gridded: true, Row: vT, Col: col, Layer: layer})
	if err != nil {
		return nil, nil, fmt.Errorf("v component: %w", err)
	}

	angle := g.Angle(node)
	sin, cos := math.Sin(angle), math.Cos(angle)

	ue = make([]float64, len(uLeft))
	vn = make([]float64, len(uLeft))
	for i := range uLeft {
		ug := faceMean(uLeft[i], uRight[i])
		vg := faceMean(vBot[i], vTop[i])
		ue[i] = ug*cos - vg*sin
		vn[i] = ug*sin + vg*cos
	}
	return ue, vn, nil
}

// faceMean averages two staggered face values, falling back to the one
// usable face when the other is masked.
func faceMean(a, b float64) float64 {
	aOK, bOK := !math.IsNaN(a), !math.IsNaN(b)
	switch {
	case aOK && bOK:
		return (a + b) / 2
	case aOK:
		return a
	case bOK:
		return b
	}
	return math.NaN()
}

// scalarVarNames maps each variable kind to its name candidates across
// the model families.
func scalarVarNames(kind domain.VariableKind) []string {
	switch kind {
	case domain.WaterLevel:
		return []string{"zeta", "elev", "elevation", "cwl"}
	case domain.WaterTemperature:
		return []string{"temp", "temperature"}
	case domain.Salinity:
		return []string{"salt", "salinity", "zeta_salt"}
	}
	return nil
}

// ScalarColumn reads a non-vector variable series at a resolved point.
// On curvilinear fields grids the node index unravels to the rho-grid
// row and column; everywhere else it addresses the point dimension
// directly.
func ScalarColumn(set *Set, g grid.Adapter, fileKind domain.FileKind, kind domain.VariableKind, node, layer int) ([]float64, error) {
	names := scalarVarNames(kind)
	if names == nil {
		return nil, fmt.Errorf("no scalar reader for variable %v", kind)
	}
	pt := Point{Node: node, Layer: layer}
	if gr, ok := g.(*grid.Curvilinear); ok && fileKind == domain.FileFields {
		row, col := gr.Unravel(node)
		pt = Point{Gridded: true, Row: row, Col: col, Layer: layer}
	}
	return set.Column(names, pt)
}
