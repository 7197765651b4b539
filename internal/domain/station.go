package domain

import "math"

// Station is one observation site from the station inventory. Depth is
// meters below the surface; NaN when the inventory does not report one.
type Station struct {
	ID       string
	Name     string
	Provider string
	Lat      float64
	Lon      float64
	Depth    float64
	Datum    string // source datum of the observations, e.g. "NAVD88"
}

// HasDepth reports whether the inventory supplied a sensor depth.
func (s Station) HasDepth() bool {
	return !math.IsNaN(s.Depth)
}

// ControlFileRecord is one resolved station in a model control file:
// the grid node serving the station, the vertical level (or
// SurfaceLayer for free-surface variables), the station coordinates,
// and a static bias shift applied at extraction time.
type ControlFileRecord struct {
	Node      int
	Layer     int
	Lat       float64
	Lon       float64
	StationID string
	Shift     float64
}

// SurfaceLayer is the sentinel level index recorded for variables with
// no vertical axis.
const SurfaceLayer = 0
