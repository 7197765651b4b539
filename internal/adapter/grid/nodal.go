package grid

import (
	"fmt"

	"go.ngs.io/ofs-skill/internal/domain"
)

// Nodal is an unstructured triangular mesh with flat node arrays and
// sigma layers. Scalars live at nodes; currents live at element
// centers, which carry their own coordinate arrays.
type Nodal struct {
	lat, lon   []float64 // node coordinates, lon in [0,360)
	latC, lonC []float64 // element-center coordinates
	tris       [][3]int  // zero-based vertex indices per element
	depth      []float64 // bathymetry h at nodes, positive down
	sigLay     []float64 // layer-midpoint fractions, negative
	sigLev     []float64 // level fractions, negative, len(sigLay)+1
}

// NewNodal validates the mesh arrays. latC/lonC and tris describe the
// element centers; tris vertex indices must address the node arrays.
func NewNodal(lat, lon, latC, lonC []float64, tris [][3]int, depth, sigLay, sigLev []float64) (*Nodal, error) {
	n := len(lat)
	if len(lon) != n {
		return nil, &ShapeMismatchError{Grid: "nodal", Field: "lon", Want: n, Got: len(lon)}
	}
	if len(depth) != n {
		return nil, &ShapeMismatchError{Grid: "nodal", Field: "bathymetry", Want: n, Got: len(depth)}
	}
	ne := len(tris)
	if len(latC) != ne {
		return nil, &ShapeMismatchError{Grid: "nodal", Field: "latc", Want: ne, Got: len(latC)}
	}
	if len(lonC) != ne {
		return nil, &ShapeMismatchError{Grid: "nodal", Field: "lonc", Want: ne, Got: len(lonC)}
	}
	for e, tri := range tris {
		for _, v := range tri {
			if v < 0 || v >= n {
				return nil, fmt.Errorf("nodal grid: element %d references node %d outside [0,%d)", e, v, n)
			}
		}
	}
	if len(sigLev) != 0 && len(sigLev) != len(sigLay)+1 {
		return nil, &ShapeMismatchError{Grid: "nodal", Field: "siglev", Want: len(sigLay) + 1, Got: len(sigLev)}
	}

	g := &Nodal{
		lat:    append([]float64(nil), lat...),
		lon:    make([]float64, n),
		latC:   append([]float64(nil), latC...),
		lonC:   make([]float64, ne),
		tris:   tris,
		depth:  append([]float64(nil), depth...),
		sigLay: append([]float64(nil), sigLay...),
		sigLev: append([]float64(nil), sigLev...),
	}
	for i, l := range lon {
		g.lon[i] = domain.NormalizeLon360(l)
	}
	for i, l := range lonC {
		g.lonC[i] = domain.NormalizeLon360(l)
	}
	return g, nil
}

// UniformSigma builds evenly spaced sigma levels and their layer
// midpoints for a mesh with kb levels, for outputs that omit the sigma
// arrays: siglev[iz] = -iz/(kb-1).
func UniformSigma(kb int) (levels, layers []float64, err error) {
	if kb < 2 {
		return nil, nil, fmt.Errorf("nodal grid: need at least 2 sigma levels, got %d", kb)
	}
	levels = make([]float64, kb)
	for iz := 0; iz < kb; iz++ {
		levels[iz] = -float64(iz) / float64(kb-1)
	}
	layers = make([]float64, kb-1)
	for iz := 0; iz < kb-1; iz++ {
		layers[iz] = (levels[iz] + levels[iz+1]) / 2
	}
	return levels, layers, nil
}

func (g *Nodal) Family() domain.GridFamily { return domain.FamilyUnstructuredNodal }

// NodeCount returns the number of mesh nodes.
func (g *Nodal) NodeCount() int { return len(g.lat) }

// ElementCount returns the number of mesh elements.
func (g *Nodal) ElementCount() int { return len(g.tris) }

// Triangle returns the vertex node indices of element e.
func (g *Nodal) Triangle(e int) [3]int { return g.tris[e] }

// Points returns element centers for currents and nodes for scalars.
func (g *Nodal) Points(kind domain.VariableKind) PointSet {
	if kind == domain.Currents {
		return flatPoints{lat: g.latC, lon: g.lonC}
	}
	return flatPoints{lat: g.lat, lon: g.lon}
}

// Layers returns the sigma layer-midpoint fractions.
func (g *Nodal) Layers() []float64 { return g.sigLay }

// DepthProfile returns the layer-midpoint elevations serving node:
// sigma fraction times bathymetry at a node, or the element's vertex
// mean for currents.
func (g *Nodal) DepthProfile(node int, kind domain.VariableKind) []float64 {
	prof := make([]float64, len(g.sigLay))
	if kind == domain.Currents {
		tri := g.tris[node]
		h := (g.depth[tri[0]] + g.depth[tri[1]] + g.depth[tri[2]]) / 3
		for k, s := range g.sigLay {
			prof[k] = s * h
		}
		return prof
	}
	h := g.depth[node]
	for k, s := range g.sigLay {
		prof[k] = s * h
	}
	return prof
}

// LayerDepths returns positive-down layer depths at node, the
// deplay-style product -siglay*h used when materializing z for outputs
// that ship only sigma fractions.
func (g *Nodal) LayerDepths(node int) []float64 {
	h := g.depth[node]
	out := make([]float64, len(g.sigLay))
	for k, s := range g.sigLay {
		out[k] = -s * h
	}
	return out
}
