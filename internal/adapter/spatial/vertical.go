package spatial

import (
	"math"

	"go.ngs.io/ofs-skill/internal/adapter/grid"
	"go.ngs.io/ofs-skill/internal/domain"
)

// NearestLayer picks the level whose elevation best matches a sensor
// depth: argmin over |depth + elevation| with elevations negative-down.
// NaN entries in the profile are skipped; an all-NaN profile or a NaN
// depth yields no match.
func NearestLayer(profile []float64, stationDepth float64) (int, error) {
	if math.IsNaN(stationDepth) {
		return 0, ErrNoMatch
	}
	best := -1
	bestDiff := math.Inf(1)
	for k, elev := range profile {
		if math.IsNaN(elev) {
			continue
		}
		if diff := math.Abs(stationDepth + elev); diff < bestDiff {
			bestDiff = diff
			best = k
		}
	}
	if best < 0 {
		return 0, ErrNoMatch
	}
	return best, nil
}

// ResolveLayer returns the level index recorded in a control file for
// one resolved node. Free-surface variables take the surface sentinel
// without consulting the grid.
func ResolveLayer(a grid.Adapter, node int, kind domain.VariableKind, stationDepth float64) (int, error) {
	if !kind.HasVerticalAxis() {
		return domain.SurfaceLayer, nil
	}
	return NearestLayer(a.DepthProfile(node, kind), stationDepth)
}
