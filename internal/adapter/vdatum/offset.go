package vdatum

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"

	"go.ngs.io/ofs-skill/internal/adapter/nc"
	"go.ngs.io/ofs-skill/internal/domain"
)

// Request identifies one offset resolution: which system, which target
// datum, which output stream, and where the resolved node sits.
type Request struct {
	Profile     domain.Profile
	TargetDatum string
	Kind        domain.FileKind
	// Node is the flat grid index (fields) or output station index
	// (stations).
	Node int
	// GridCols unravels Node on curvilinear fields grids.
	GridCols int
	// StationRow/StationCol are the grid indices a curvilinear stations
	// file records for each output station.
	StationRow int
	StationCol int
	// Lat/Lon are the node coordinates, longitude in [0,360).
	Lat float64
	Lon float64
	// StationID tags log lines and the audit report.
	StationID string
}

// Transformer converts a height between two datums at a point. The
// production implementation calls the online geodetic transform
// service; the returned value is the transformed height.
type Transformer interface {
	Convert(ctx context.Context, fromDatum, toDatum string, lat, lon, height float64) (float64, error)
}

// transformProbe is the dummy height handed to the transform service;
// the offset is the difference between the transformed value and it.
const transformProbe = 10.0

// plausibleBound is the widest credible offset magnitude. Anything
// outside is a conversion artifact, not a datum shift.
const plausibleBound = 9999.0

// loofs2IGLDOffset is the fixed Lake Ontario LWD to IGLD85 shift in
// meters.
const loofs2IGLDOffset = -74.2

// sscofsModelZeroOffset is the system-wide distance from SSCOFS
// model-zero up to XGEOID20B in meters.
const sscofsModelZeroOffset = 0.23

// Resolver produces model-to-target datum offsets. Each grid family
// and the handful of special systems route through their own sampling
// strategy; the failure sentinels are the only cross-cutting currency.
type Resolver struct {
	store       *Store
	transformer Transformer
	auxDir      string // directory holding auxiliary correction grids
	logger      *slog.Logger
}

// NewResolver wires a resolver.
func NewResolver(store *Store, transformer Transformer, auxDir string, logger *slog.Logger) *Resolver {
	return &Resolver{store: store, transformer: transformer, auxDir: auxDir, logger: logger}
}

// Resolve returns the offset to add to model water levels, or a tagged
// failure. It never returns a zero stand-in for a failed conversion.
func (r *Resolver) Resolve(ctx context.Context, req Request) domain.DatumOffset {
	datum := strings.ToLower(req.TargetDatum)

	if off, done := shortcut(req.Profile, req.Kind, datum); done {
		return off
	}

	if req.Profile.Family == domain.FamilyUnstructuredLeveled {
		return r.geodetic(ctx, req, datum)
	}

	ds, err := r.store.Dataset(ctx, req.Profile.Name)
	if err != nil {
		r.logger.Error("opening vdatum dataset failed", "ofs", req.Profile.Name, "error", err)
		return domain.FailedOffset(domain.FailureDatumOpen)
	}

	fieldVals, fieldDims, reason := r.conversionField(ds, req.Profile, datum)
	if reason != domain.FailureNone {
		return domain.FailedOffset(reason)
	}

	raw, reason := sample(ds, req, fieldVals, fieldDims)
	if reason != domain.FailureNone {
		r.logger.Error("sampling conversion field failed",
			"ofs", req.Profile.Name, "station", req.StationID, "kind", req.Kind.String())
		return domain.FailedOffset(reason)
	}

	return finish(req.Profile, raw)
}

// shortcut handles the target datums that coincide with a system's
// native reference and need no conversion at all.
func shortcut(p domain.Profile, kind domain.FileKind, datum string) (domain.DatumOffset, bool) {
	switch {
	case datum == "lwd":
		return domain.Offset(0), true
	case p.Name == "stofs_3d_atl" && kind == domain.FileFields && datum == "xgeoid20b":
		return domain.Offset(0), true
	case p.Name == "stofs_3d_pac" && kind == domain.FileFields && datum == "xgeoid20b":
		return domain.Offset(0), true
	case p.Name == "stofs_3d_atl" && kind == domain.FileStations && datum == "navd88":
		return domain.Offset(0), true
	case p.Name == "stofs_3d_pac" && kind == domain.FileStations && datum == "msl":
		return domain.Offset(0), true
	}
	return domain.DatumOffset{}, false
}

// conversionField assembles the model-to-target field for one system.
// Great Lakes systems publish {datum}tolwd fields; SSCOFS goes through
// XGEOID20B with a fixed model-zero offset; everyone else publishes
// {datum}tomsl, with WCOFS needing an extra MSL-to-model-zero grid.
func (r *Resolver) conversionField(ds *Dataset, p domain.Profile, datum string) ([]float64, []uint64, domain.FailureReason) {
	if p.GreatLakes {
		vals, dims, err := ds.Field(datum + "tolwd")
		if err != nil {
			r.logger.Error("conversion field unavailable", "ofs", p.Name, "datum", datum, "error", err)
			return nil, nil, domain.FailureUnsupportedDatum
		}
		return vals, dims, domain.FailureNone
	}

	if p.Name == "sscofs" {
		geoid, dims, err := ds.Field("xgeoid20btomsl")
		if err != nil {
			r.logger.Error("conversion field unavailable", "ofs", p.Name, "datum", "xgeoid20b", "error", err)
			return nil, nil, domain.FailureUnsupportedDatum
		}
		out := make([]float64, len(geoid))
		for i, g := range geoid {
			out[i] = sscofsModelZeroOffset - g
		}
		if datum != "msl" {
			extra, _, err := ds.Field(datum + "tomsl")
			if err != nil {
				r.logger.Error("conversion field unavailable", "ofs", p.Name, "datum", datum, "error", err)
				return nil, nil, domain.FailureUnsupportedDatum
			}
			if len(extra) != len(out) {
				return nil, nil, domain.FailureUnsupportedDatum
			}
			for i := range out {
				out[i] += extra[i]
			}
		}
		return out, dims, domain.FailureNone
	}

	vals, dims, err := ds.Field(datum + "tomsl")
	if err != nil {
		r.logger.Error("conversion field unavailable", "ofs", p.Name, "datum", datum, "error", err)
		return nil, nil, domain.FailureUnsupportedDatum
	}

	if p.Name == "wcofs" {
		msl2mz, reason := r.wcofsCorrection(len(vals))
		if reason != domain.FailureNone {
			return nil, nil, reason
		}
		out := make([]float64, len(vals))
		for i := range vals {
			out[i] = vals[i] + msl2mz[i]
		}
		return out, dims, domain.FailureNone
	}
	return vals, dims, domain.FailureNone
}

// wcofsCorrection loads the auxiliary MSL-to-model-zero grid. WCOFS
// zero is not MSL, so the published field alone is incomplete. An
// absent file is the missing-auxiliary sentinel; a present file that
// cannot serve the correction means the conversion is unavailable.
func (r *Resolver) wcofsCorrection(want int) ([]float64, domain.FailureReason) {
	path := filepath.Join(r.auxDir, "wcofs_msl.nc")
	if _, err := os.Stat(path); err != nil {
		r.logger.Error("WCOFS MSL2MZ conversion grid not found", "path", path)
		return nil, domain.FailureMissingAuxiliary
	}
	ds, err := nc.Open(path)
	if err != nil {
		r.logger.Error("WCOFS MSL2MZ conversion grid not readable", "path", path, "error", err)
		return nil, domain.FailureUnsupportedDatum
	}
	defer func() { _ = ds.Close() }()

	v, _, err := nc.FindVar(ds, "MSL2MZ")
	if err != nil {
		return nil, domain.FailureUnsupportedDatum
	}
	dims, err := nc.Dims(v)
	if err != nil {
		return nil, domain.FailureUnsupportedDatum
	}
	vals, err := nc.ReadSlice(v, make([]uint64, len(dims)), dims)
	if err != nil || len(vals) != want {
		return nil, domain.FailureUnsupportedDatum
	}
	return vals, domain.FailureNone
}

// sample extracts the offset at the request's node.
func sample(ds *Dataset, req Request, vals []float64, dims []uint64) (float64, domain.FailureReason) {
	switch req.Kind {
	case domain.FileStations:
		v, err := sampleStations(ds, req, vals, dims)
		if err != nil {
			return 0, domain.FailureStationLookup
		}
		return v, domain.FailureNone
	case domain.FileFields:
		v, err := sampleFields(req, vals, dims)
		if err != nil {
			return 0, domain.FailureFieldLookup
		}
		return v, domain.FailureNone
	}
	return 0, domain.FailureFieldLookup
}

func sampleStations(ds *Dataset, req Request, vals []float64, dims []uint64) (float64, error) {
	switch req.Profile.Family {
	case domain.FamilyCurvilinear:
		if len(dims) != 2 {
			return 0, fmt.Errorf("conversion field is %dD, want 2D", len(dims))
		}
		rows, cols := int(dims[0]), int(dims[1])
		if req.StationRow < 0 || req.StationRow >= rows || req.StationCol < 0 || req.StationCol >= cols {
			return 0, fmt.Errorf("station grid index (%d,%d) outside field %dx%d",
				req.StationRow, req.StationCol, rows, cols)
		}
		return vals[req.StationRow*cols+req.StationCol], nil

	case domain.FamilyUnstructuredNodal:
		// Stations files don't carry mesh node numbers usable against
		// the conversion field, so match the station coordinates
		// against the field's own coordinate arrays.
		lat, lon, err := ds.Coordinates()
		if err != nil {
			return 0, err
		}
		tlon := req.Lon
		if tlon >= 180 {
			tlon -= 360
		}
		tlat := round3(req.Lat)
		tlon = round3(tlon)
		best := -1
		bestD := math.Inf(1)
		for i := range lat {
			dy := round3(lat[i]) - tlat
			dx := round3(lon[i]) - tlon
			if d := dx*dx + dy*dy; d < bestD {
				bestD = d
				best = i
			}
		}
		if best < 0 || best >= len(vals) {
			return 0, fmt.Errorf("no conversion point matched (%.3f, %.3f)", tlat, tlon)
		}
		return vals[best], nil
	}
	return 0, fmt.Errorf("unsupported family %v for stations sampling", req.Profile.Family)
}

func sampleFields(req Request, vals []float64, dims []uint64) (float64, error) {
	switch req.Profile.Family {
	case domain.FamilyCurvilinear:
		if len(dims) != 2 {
			return 0, fmt.Errorf("conversion field is %dD, want 2D", len(dims))
		}
		if req.GridCols <= 0 {
			return 0, fmt.Errorf("missing grid shape for curvilinear unravel")
		}
		row, col := req.Node/req.GridCols, req.Node%req.GridCols
		rows, cols := int(dims[0]), int(dims[1])
		if row >= rows || col >= cols {
			return 0, fmt.Errorf("node %d outside field %dx%d", req.Node, rows, cols)
		}
		return vals[row*cols+col], nil

	case domain.FamilyUnstructuredNodal:
		if req.Node < 0 || req.Node >= len(vals) {
			return 0, fmt.Errorf("node %d outside field of %d points", req.Node, len(vals))
		}
		return vals[req.Node], nil
	}
	return 0, fmt.Errorf("unsupported family %v for fields sampling", req.Profile.Family)
}

// geodetic resolves leveled-family systems through the transform
// service: convert a probe height from the native datum to the target
// at the node's coordinates and take the difference.
func (r *Resolver) geodetic(ctx context.Context, req Request, datum string) domain.DatumOffset {
	native := strings.ToLower(nativeForGeodetic(req.Profile, req.Kind))

	// Lake Ontario's LWD to IGLD85 relation is a fixed constant; the
	// transform service does not carry lake low water datums.
	if req.Profile.Name == "loofs2" && datum == "igld85" {
		return finish(req.Profile, round2(loofs2IGLDOffset))
	}

	lon := req.Lon
	if lon >= 180 {
		lon -= 360
	}
	z, err := r.transformer.Convert(ctx, native, datum, req.Lat, lon, transformProbe)
	if err != nil {
		r.logger.Error("geodetic transform failed",
			"ofs", req.Profile.Name, "station", req.StationID, "from", native, "to", datum, "error", err)
		if req.Kind == domain.FileStations {
			return domain.FailedOffset(domain.FailureStationLookup)
		}
		return domain.FailedOffset(domain.FailureFieldLookup)
	}
	return finish(req.Profile, round2(z-transformProbe))
}

// nativeForGeodetic returns the reference datum the transform starts
// from. The stations streams of the STOFS systems are published
// against shore datums rather than the geoid the fields use.
func nativeForGeodetic(p domain.Profile, kind domain.FileKind) string {
	if kind == domain.FileStations {
		switch p.Name {
		case "stofs_3d_atl":
			return "navd88"
		case "stofs_3d_pac":
			return "msl"
		}
	}
	if p.Name == "loofs2" {
		return "lwd"
	}
	return "xgeoid20b"
}

// finish applies the plausibility bound and the Great Lakes sign
// convention. The lake conversion fields are published target-to-model
// for every system except LEOFS, so those three flip sign.
func finish(p domain.Profile, raw float64) domain.DatumOffset {
	if raw < -plausibleBound || raw > plausibleBound {
		return domain.FailedOffset(domain.FailureImplausibleOffset)
	}
	switch p.Name {
	case "lmhofs", "loofs", "lsofs":
		raw = -raw
	}
	return domain.Offset(raw)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
