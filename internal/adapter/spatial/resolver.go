// Package spatial resolves observation stations onto model grids: the
// nearest usable grid point for fields output, the nearest model output
// station for stations output, and the vertical level closest to a
// sensor depth.
package spatial

import (
	"errors"
	"math"
	"strings"

	"go.ngs.io/ofs-skill/internal/adapter/grid"
	"go.ngs.io/ofs-skill/internal/domain"
)

const (
	// nodeWindowDeg bounds the grid-point prefilter. Candidates outside
	// the box never get a haversine evaluation.
	nodeWindowDeg = 0.1
	// stationWindowDeg bounds the model-output-station prefilter. Output
	// station sets are sparse, so the window is wider.
	stationWindowDeg = 0.3
	// stationCutoffKm rejects output stations that are nearby in the
	// window sense but too far to represent the observation site.
	stationCutoffKm = 2.0
)

// ErrNoMatch means no candidate satisfied the search constraints. A
// station with no match is dropped from the control file rather than
// extrapolated.
var ErrNoMatch = errors.New("no candidate point within search window")

// Match is a resolved candidate and its great-circle distance.
type Match struct {
	Index      int
	DistanceKm float64
}

// nearest scans the candidate set with a bounding-box prefilter and
// ranks survivors by haversine distance. Ties keep the first minimum.
func nearest(set grid.PointSet, lat, lon, windowDeg float64) (Match, error) {
	lon = domain.NormalizeLon360(lon)
	best := -1
	bestKm := math.Inf(1)
	for i := 0; i < set.Len(); i++ {
		if !set.Usable(i) {
			continue
		}
		plat, plon := set.At(i)
		if math.Abs(plat-lat) > windowDeg || math.Abs(plon-lon) > windowDeg {
			continue
		}
		if d := domain.Haversine(lat, lon, plat, plon); d < bestKm {
			bestKm = d
			best = i
		}
	}
	if best < 0 {
		return Match{}, ErrNoMatch
	}
	return Match{Index: best, DistanceKm: bestKm}, nil
}

// NearestGridPoint finds the closest usable grid point for the
// variable's candidate set. Land cells on masked grids are never
// candidates.
func NearestGridPoint(a grid.Adapter, st domain.Station, kind domain.VariableKind) (Match, error) {
	return nearest(a.Points(kind), st.Lat, st.Lon, nodeWindowDeg)
}

// NearestOutputStation finds the model output station serving an
// observation site. Beyond the wider window, a hard distance cutoff
// applies: an output point 5 km away is not the same site even if it
// is the closest one.
func NearestOutputStation(set grid.PointSet, st domain.Station) (Match, error) {
	m, err := nearest(set, st.Lat, st.Lon, stationWindowDeg)
	if err != nil {
		return Match{}, err
	}
	if m.DistanceKm > stationCutoffKm {
		return Match{}, ErrNoMatch
	}
	return m, nil
}

// NearestNamedStation matches a station against labeled output points
// by name: the first label containing the station ID wins. Falls back
// to spatial matching when no label matches.
func NearestNamedStation(g *grid.Leveled, st domain.Station) (Match, error) {
	if g.HasNames() && st.ID != "" {
		for i := 0; i < g.NodeCount(); i++ {
			if strings.Contains(g.Name(i), st.ID) {
				lat, lon := g.Points(domain.WaterLevel).At(i)
				return Match{Index: i, DistanceKm: domain.Haversine(st.Lat, st.Lon, lat, lon)}, nil
			}
		}
	}
	return NearestOutputStation(g.Points(domain.WaterLevel), st)
}
