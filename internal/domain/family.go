package domain

import "fmt"

// GridFamily identifies the horizontal/vertical discretization of an
// operational forecast system. All grid-dependent behavior dispatches on
// this tag through per-family adapters rather than on raw model names.
type GridFamily int

const (
	// FamilyCurvilinear is a structured 2-D curvilinear grid with a land
	// mask and terrain-following sigma levels (ROMS-style output).
	FamilyCurvilinear GridFamily = iota
	// FamilyUnstructuredNodal is a triangular mesh with flat node arrays,
	// element connectivity and sigma layers (FVCOM-style output).
	FamilyUnstructuredNodal
	// FamilyUnstructuredLeveled is a triangular mesh carrying explicit
	// per-node z coordinates instead of sigma fractions (SCHISM-style
	// output).
	FamilyUnstructuredLeveled
)

func (f GridFamily) String() string {
	switch f {
	case FamilyCurvilinear:
		return "curvilinear"
	case FamilyUnstructuredNodal:
		return "unstructured-nodal"
	case FamilyUnstructuredLeveled:
		return "unstructured-leveled"
	}
	return fmt.Sprintf("GridFamily(%d)", int(f))
}

// Profile describes one operational forecast system: its grid family,
// run cycles and output cadence.
type Profile struct {
	Name          string
	Family        GridFamily
	Cycles        []int // model run cycles, UTC hours
	OutputStride  int   // hours between consecutive fields outputs
	ForecastHours int   // length of a single forecast cycle
	GreatLakes    bool  // Great Lakes systems reference LWD instead of MSL
}

// NativeDatum returns the vertical datum the model's zero references.
func (p Profile) NativeDatum() string {
	switch {
	case p.GreatLakes:
		return "LWD"
	case p.Name == "stofs_3d_atl", p.Name == "stofs_3d_pac":
		return "XGEOID20B"
	default:
		return "MSL"
	}
}

var profiles = map[string]Profile{
	"cbofs":  {Name: "cbofs", Family: FamilyCurvilinear, Cycles: []int{0, 6, 12, 18}, OutputStride: 1, ForecastHours: 48},
	"dbofs":  {Name: "dbofs", Family: FamilyCurvilinear, Cycles: []int{0, 6, 12, 18}, OutputStride: 1, ForecastHours: 48},
	"gomofs": {Name: "gomofs", Family: FamilyCurvilinear, Cycles: []int{0, 6, 12, 18}, OutputStride: 3, ForecastHours: 72},
	"tbofs":  {Name: "tbofs", Family: FamilyCurvilinear, Cycles: []int{0, 6, 12, 18}, OutputStride: 1, ForecastHours: 48},
	"ciofs":  {Name: "ciofs", Family: FamilyCurvilinear, Cycles: []int{0, 6, 12, 18}, OutputStride: 1, ForecastHours: 48},
	"wcofs":  {Name: "wcofs", Family: FamilyCurvilinear, Cycles: []int{3}, OutputStride: 3, ForecastHours: 72},

	"necofs": {Name: "necofs", Family: FamilyUnstructuredNodal, Cycles: []int{0, 6, 12, 18}, OutputStride: 3, ForecastHours: 72},
	"ngofs":  {Name: "ngofs", Family: FamilyUnstructuredNodal, Cycles: []int{3, 9, 15, 21}, OutputStride: 3, ForecastHours: 120},
	"ngofs2": {Name: "ngofs2", Family: FamilyUnstructuredNodal, Cycles: []int{3, 9, 15, 21}, OutputStride: 3, ForecastHours: 48},
	"creofs": {Name: "creofs", Family: FamilyUnstructuredNodal, Cycles: []int{3, 9, 15, 21}, OutputStride: 1, ForecastHours: 48},
	"sfbofs": {Name: "sfbofs", Family: FamilyUnstructuredNodal, Cycles: []int{3, 9, 15, 21}, OutputStride: 1, ForecastHours: 48},
	"sscofs": {Name: "sscofs", Family: FamilyUnstructuredNodal, Cycles: []int{3, 9, 15, 21}, OutputStride: 1, ForecastHours: 72},
	"leofs":  {Name: "leofs", Family: FamilyUnstructuredNodal, Cycles: []int{0, 6, 12, 18}, OutputStride: 1, ForecastHours: 120, GreatLakes: true},
	"lmhofs": {Name: "lmhofs", Family: FamilyUnstructuredNodal, Cycles: []int{0, 6, 12, 18}, OutputStride: 1, ForecastHours: 120, GreatLakes: true},
	"loofs":  {Name: "loofs", Family: FamilyUnstructuredNodal, Cycles: []int{0, 6, 12, 18}, OutputStride: 1, ForecastHours: 120, GreatLakes: true},
	"lsofs":  {Name: "lsofs", Family: FamilyUnstructuredNodal, Cycles: []int{0, 6, 12, 18}, OutputStride: 1, ForecastHours: 120, GreatLakes: true},

	"loofs2":       {Name: "loofs2", Family: FamilyUnstructuredLeveled, Cycles: []int{0, 6, 12, 18}, OutputStride: 1, ForecastHours: 120, GreatLakes: true},
	"stofs_3d_atl": {Name: "stofs_3d_atl", Family: FamilyUnstructuredLeveled, Cycles: []int{12}, OutputStride: 12, ForecastHours: 96},
	"stofs_3d_pac": {Name: "stofs_3d_pac", Family: FamilyUnstructuredLeveled, Cycles: []int{12}, OutputStride: 12, ForecastHours: 48},
}

// LookupOFS resolves an OFS name to its profile.
func LookupOFS(name string) (Profile, error) {
	p, ok := profiles[name]
	if !ok {
		return Profile{}, fmt.Errorf("unknown OFS %q", name)
	}
	return p, nil
}

// KnownOFS reports whether name is a recognized forecast system.
func KnownOFS(name string) bool {
	_, ok := profiles[name]
	return ok
}
