package grid

import (
	"errors"
	"math"
	"testing"

	"go.ngs.io/ofs-skill/internal/domain"
)

func testCurvilinear(t *testing.T) *Curvilinear {
	t.Helper()
	lat := [][]float64{{36.9, 36.9, 36.9}, {37.0, 37.0, 37.0}, {37.1, 37.1, 37.1}}
	lon := [][]float64{{-76.1, -76.0, -75.9}, {-76.1, -76.0, -75.9}, {-76.1, -76.0, -75.9}}
	mask := [][]float64{{1, 1, 1}, {1, 0, 1}, {1, 1, 1}}
	h := [][]float64{{10, 10, 10}, {12, 12, 12}, {8, 8, 8}}
	g, err := NewCurvilinear(lat, lon, mask, h, nil, []float64{-0.9, -0.5, -0.1})
	if err != nil {
		t.Fatalf("NewCurvilinear: %v", err)
	}
	return g
}

func TestCurvilinearUnravel(t *testing.T) {
	g := testCurvilinear(t)
	for node := 0; node < g.Rows()*g.Cols(); node++ {
		r, c := g.Unravel(node)
		if got := g.Ravel(r, c); got != node {
			t.Errorf("Ravel(Unravel(%d)) = %d", node, got)
		}
	}
	r, c := g.Unravel(4)
	if r != 1 || c != 1 {
		t.Errorf("Unravel(4) = (%d,%d), want (1,1)", r, c)
	}
}

func TestCurvilinearMaskAndLon(t *testing.T) {
	g := testCurvilinear(t)
	pts := g.Points(domain.WaterLevel)
	if pts.Usable(4) {
		t.Error("center cell is land and must not be usable")
	}
	if !pts.Usable(0) {
		t.Error("wet cell must be usable")
	}
	_, lon := pts.At(0)
	if math.Abs(lon-283.9) > 1e-9 {
		t.Errorf("longitude not normalized to [0,360): %v", lon)
	}
}

func TestCurvilinearDepthProfile(t *testing.T) {
	g := testCurvilinear(t)
	prof := g.DepthProfile(3, domain.WaterTemperature) // h = 12
	want := []float64{-10.8, -6.0, -1.2}
	for k := range want {
		if math.Abs(prof[k]-want[k]) > 1e-9 {
			t.Errorf("layer %d elevation = %v, want %v", k, prof[k], want[k])
		}
	}
}

func TestCurvilinearShapeMismatch(t *testing.T) {
	lat := [][]float64{{36.9, 36.9}, {37.0, 37.0}}
	lon := [][]float64{{-76.1, -76.0}}
	var shapeErr *ShapeMismatchError
	_, err := NewCurvilinear(lat, lon, lat, lat, nil, []float64{-0.5})
	if !errors.As(err, &shapeErr) {
		t.Fatalf("want ShapeMismatchError, got %v", err)
	}
}

func TestUniformSigma(t *testing.T) {
	levels, layers, err := UniformSigma(21)
	if err != nil {
		t.Fatal(err)
	}
	if len(levels) != 21 || len(layers) != 20 {
		t.Fatalf("got %d levels, %d layers", len(levels), len(layers))
	}
	if levels[0] != 0 || math.Abs(levels[20]+1) > 1e-12 {
		t.Errorf("levels must span [0,-1], got %v..%v", levels[0], levels[20])
	}
	// Uniform spacing and midpoints between adjacent levels.
	for i := 0; i < 20; i++ {
		want := (levels[i] + levels[i+1]) / 2
		if math.Abs(layers[i]-want) > 1e-12 {
			t.Errorf("layer %d = %v, want midpoint %v", i, layers[i], want)
		}
	}
	if _, _, err := UniformSigma(1); err == nil {
		t.Error("single level mesh must be rejected")
	}
}

func testNodal(t *testing.T) *Nodal {
	t.Helper()
	lat := []float64{41.0, 41.1, 41.2, 41.3}
	lon := []float64{-82.0, -82.1, -82.2, -82.3}
	latC := []float64{41.1, 41.2}
	lonC := []float64{-82.1, -82.2}
	tris := [][3]int{{0, 1, 2}, {1, 2, 3}}
	depth := []float64{9, 12, 15, 18}
	lev, lay, err := UniformSigma(3)
	if err != nil {
		t.Fatal(err)
	}
	g, err := NewNodal(lat, lon, latC, lonC, tris, depth, lay, lev)
	if err != nil {
		t.Fatalf("NewNodal: %v", err)
	}
	return g
}

func TestNodalPointsByVariable(t *testing.T) {
	g := testNodal(t)
	if got := g.Points(domain.WaterTemperature).Len(); got != 4 {
		t.Errorf("scalar point set has %d entries, want 4", got)
	}
	if got := g.Points(domain.Currents).Len(); got != 2 {
		t.Errorf("currents point set has %d entries, want 2", got)
	}
}

func TestNodalDepthProfiles(t *testing.T) {
	g := testNodal(t)
	// Node 1: h=12, siglay = {-0.25, -0.75}.
	prof := g.DepthProfile(1, domain.Salinity)
	want := []float64{-3, -9}
	for k := range want {
		if math.Abs(prof[k]-want[k]) > 1e-9 {
			t.Errorf("node layer %d = %v, want %v", k, prof[k], want[k])
		}
	}
	// Element 0: vertex mean h = (9+12+15)/3 = 12.
	eprof := g.DepthProfile(0, domain.Currents)
	for k := range want {
		if math.Abs(eprof[k]-want[k]) > 1e-9 {
			t.Errorf("element layer %d = %v, want %v", k, eprof[k], want[k])
		}
	}
	// LayerDepths is the positive-down counterpart.
	depths := g.LayerDepths(1)
	for k := range want {
		if math.Abs(depths[k]+want[k]) > 1e-9 {
			t.Errorf("LayerDepths[%d] = %v, want %v", k, depths[k], -want[k])
		}
	}
}

func TestNodalRejectsBadConnectivity(t *testing.T) {
	lat := []float64{41.0, 41.1, 41.2}
	lon := []float64{-82.0, -82.1, -82.2}
	tris := [][3]int{{0, 1, 7}}
	_, err := NewNodal(lat, lon, []float64{41.1}, []float64{-82.1}, tris, []float64{9, 12, 15}, []float64{-0.5}, nil)
	if err == nil {
		t.Fatal("out-of-range vertex index must be rejected")
	}
}

func TestStationsPointsAndIndices(t *testing.T) {
	g, err := NewStations(domain.FamilyCurvilinear,
		[]float64{36.95, 36.96}, []float64{-76.00, -76.01}, nil,
		[]int{120, 121}, []int{44, 45})
	if err != nil {
		t.Fatalf("NewStations: %v", err)
	}
	pts := g.Points(domain.WaterLevel)
	if pts.Len() != 2 || !pts.Usable(0) {
		t.Fatalf("point set = %d entries", pts.Len())
	}
	_, lon := pts.At(0)
	if math.Abs(lon-284.0) > 1e-9 {
		t.Errorf("longitude not normalized to [0,360): %v", lon)
	}
	row, col, ok := g.GridIndex(1)
	if !ok || row != 121 || col != 45 {
		t.Errorf("GridIndex(1) = (%d,%d,%v), want (121,45,true)", row, col, ok)
	}
}

func TestStationsWithoutIndicesOrProfiles(t *testing.T) {
	g, err := NewStations(domain.FamilyUnstructuredNodal,
		[]float64{29.2}, []float64{-90.7}, nil, nil, nil)
	if err != nil {
		t.Fatalf("NewStations: %v", err)
	}
	if _, _, ok := g.GridIndex(0); ok {
		t.Error("stream without index arrays must report no grid cell")
	}
	prof := g.DepthProfile(0, domain.WaterLevel)
	if len(prof) != 1 || prof[0] != 0 {
		t.Errorf("surface-only profile = %v, want {0}", prof)
	}
}

func TestStationsDepthProfiles(t *testing.T) {
	profiles := [][]float64{{-2.5, -7.5}, {-3, -9}}
	g, err := NewStations(domain.FamilyUnstructuredNodal,
		[]float64{29.2, 29.3}, []float64{-90.7, -90.8}, profiles, nil, nil)
	if err != nil {
		t.Fatalf("NewStations: %v", err)
	}
	prof := g.DepthProfile(1, domain.WaterTemperature)
	if len(prof) != 2 || prof[1] != -9 {
		t.Errorf("profile = %v", prof)
	}
}

func TestStationsShapeMismatch(t *testing.T) {
	var shapeErr *ShapeMismatchError
	if _, err := NewStations(domain.FamilyCurvilinear,
		[]float64{36.95, 36.96}, []float64{-76.00}, nil, nil, nil); !errors.As(err, &shapeErr) {
		t.Fatalf("want ShapeMismatchError, got %v", err)
	}
	if _, err := NewStations(domain.FamilyCurvilinear,
		[]float64{36.95}, []float64{-76.00}, nil, []int{12}, nil); !errors.As(err, &shapeErr) {
		t.Fatalf("rows without columns: want ShapeMismatchError, got %v", err)
	}
}

func TestLeveledProfilesAndNames(t *testing.T) {
	lat := []float64{30.0, 30.1}
	lon := []float64{-81.0, -81.1}
	levels := [][]float64{{0, -2, -4.5, -6, -10}, {0, math.NaN(), -3}}
	g, err := NewLeveled(lat, lon, levels, []string{"8720218 Mayport", "8721604 Trident Pier"})
	if err != nil {
		t.Fatalf("NewLeveled: %v", err)
	}
	prof := g.DepthProfile(0, domain.WaterTemperature)
	if len(prof) != 5 || prof[2] != -4.5 {
		t.Errorf("profile = %v", prof)
	}
	if !math.IsNaN(g.DepthProfile(1, domain.WaterTemperature)[1]) {
		t.Error("NaN level entries must be preserved")
	}
	if !g.HasNames() || g.Name(0) != "8720218 Mayport" {
		t.Errorf("names not carried: %q", g.Name(0))
	}
}
