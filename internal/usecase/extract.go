// Package usecase orchestrates the extraction pipeline: request
// validation, model file discovery, station resolution, datum
// reconciliation and series assembly.
package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.ngs.io/ofs-skill/internal/adapter/ctlfile"
	"go.ngs.io/ofs-skill/internal/adapter/grid"
	"go.ngs.io/ofs-skill/internal/adapter/modeldata"
	"go.ngs.io/ofs-skill/internal/adapter/vdatum"
	"go.ngs.io/ofs-skill/internal/domain"
)

// Request is one extraction order. It is immutable once validated;
// everything derived from it travels in a Run.
type Request struct {
	OFS         string
	Variables   []domain.VariableKind
	Kind        domain.FileKind
	Cast        domain.Cast
	Start       time.Time
	End         time.Time
	Cycle       int    // run cycle for forecast_a
	TargetDatum string // water level target datum
	// UserCoords marks a run on user-supplied points instead of the
	// station inventory; it suppresses the datum audit report.
	UserCoords bool
}

// Validate checks the request against the system registry. Datum
// compatibility is structural: lake systems reference low water datum,
// coastal systems never do.
func (r Request) Validate() (domain.Profile, error) {
	p, err := domain.LookupOFS(r.OFS)
	if err != nil {
		return domain.Profile{}, err
	}
	if len(r.Variables) == 0 {
		return domain.Profile{}, fmt.Errorf("no variables requested")
	}
	if r.Start.IsZero() || r.End.IsZero() || r.End.Before(r.Start) {
		return domain.Profile{}, fmt.Errorf("bad time window [%v, %v]", r.Start, r.End)
	}
	if r.Cast == domain.ForecastA {
		ok := false
		for _, c := range p.Cycles {
			if c == r.Cycle {
				ok = true
				break
			}
		}
		if !ok {
			return domain.Profile{}, fmt.Errorf("%s has no %02dz cycle (runs at %v)", r.OFS, r.Cycle, p.Cycles)
		}
	}

	datum := strings.ToLower(r.TargetDatum)
	if datum == "lwd" && !p.GreatLakes {
		return domain.Profile{}, fmt.Errorf("low water datum applies to Great Lakes systems only, not %s", r.OFS)
	}
	if datum == "igld85" && p.Name != "loofs2" {
		return domain.Profile{}, fmt.Errorf("IGLD85 conversion is only available for loofs2")
	}
	return p, nil
}

// StationSeries is one station's extracted output: a scalar series or,
// for currents, a vector series.
type StationSeries struct {
	StationID string
	Series    domain.Series
	Vector    domain.VectorSeries
	// Offset is the model-to-target datum resolution for water level.
	Offset domain.DatumOffset
}

// Result is one variable's extraction across all resolved stations.
type Result struct {
	Variable domain.VariableKind
	Stations []StationSeries
}

// Extractor runs extractions end to end.
type Extractor struct {
	source *modeldata.Source
	loader *modeldata.Loader
	repo   *ctlfile.Repository
	datums *vdatum.Resolver
	report *vdatum.ReportWriter
	logger *slog.Logger
}

// NewExtractor wires the pipeline.
func NewExtractor(source *modeldata.Source, loader *modeldata.Loader, repo *ctlfile.Repository,
	datums *vdatum.Resolver, report *vdatum.ReportWriter, logger *slog.Logger) *Extractor {
	return &Extractor{
		source: source, loader: loader, repo: repo,
		datums: datums, report: report, logger: logger,
	}
}

// Extract resolves stations and pulls every requested variable. A
// variable that fails is logged and skipped so the remaining variables
// still produce output.
func (e *Extractor) Extract(ctx context.Context, req Request, stations []domain.Station) ([]Result, error) {
	p, err := req.Validate()
	if err != nil {
		return nil, err
	}

	var results []Result
	for _, v := range req.Variables {
		res, err := e.extractVariable(ctx, req, p, v, stations)
		if err != nil {
			e.logger.Error("variable extraction failed, skipping",
				"ofs", p.Name, "variable", v.String(), "error", err)
			continue
		}
		results = append(results, res)
	}
	if len(results) == 0 {
		return nil, fmt.Errorf("no variable produced output for %s", p.Name)
	}
	return results, nil
}

func (e *Extractor) extractVariable(ctx context.Context, req Request, p domain.Profile,
	v domain.VariableKind, stations []domain.Station) (Result, error) {

	q := modeldata.Query{
		Profile: p,
		Kind:    req.Kind,
		Cast:    req.Cast,
		Start:   req.Start,
		End:     req.End,
		Cycle:   req.Cycle,
	}
	files, err := e.source.Discover(q)
	if err != nil {
		return Result{}, err
	}

	// Leveled fields output splits each variable into its own files, so
	// every component gets its own set with its own time axis.
	split := q.Kind == domain.FileFields && p.Family == domain.FamilyUnstructuredLeveled
	primary := files
	if split {
		primary = filterSTOFSVariables(files, v, false)
	}
	set, err := e.loader.Open(ctx, q, primary)
	if err != nil {
		return Result{}, err
	}
	vset := set
	if split && v == domain.Currents {
		if vset, err = e.loader.Open(ctx, q, filterSTOFSVariables(files, v, true)); err != nil {
			return Result{}, err
		}
	}

	gridPath := set.FirstPath()
	if split && v.HasVerticalAxis() {
		// Vertical resolution on leveled meshes needs the explicit z
		// coordinates, which live in their own file series.
		var zfiles []modeldata.File
		for _, f := range files {
			if f.Variable == "zCoordinates" {
				zfiles = append(zfiles, f)
			}
		}
		if len(zfiles) > 0 {
			zset, err := e.loader.Open(ctx, q, zfiles[:1])
			if err != nil {
				return Result{}, fmt.Errorf("load z coordinates: %w", err)
			}
			gridPath = zset.FirstPath()
		}
	}
	g, err := modeldata.LoadGrid(gridPath, p, req.Kind)
	if err != nil {
		return Result{}, fmt.Errorf("load model grid: %w", err)
	}

	records, err := e.repo.ResolveOrBuild(p.Name, v, req.Kind, g, stations)
	if err != nil {
		return Result{}, err
	}

	res := Result{Variable: v}
	var reportEntries []vdatum.ReportEntry
	times := set.Times()
	for _, rec := range records {
		ss, entry, err := e.extractStation(ctx, req, p, v, g, set, vset, times, rec)
		if err != nil {
			e.logger.Warn("station extraction failed, skipping",
				"station", rec.StationID, "variable", v.String(), "error", err)
			if v == domain.WaterLevel {
				reportEntries = append(reportEntries, vdatum.ReportEntry{
					StationID: rec.StationID, HasModelData: false,
				})
			}
			continue
		}
		res.Stations = append(res.Stations, ss)
		if v == domain.WaterLevel {
			reportEntries = append(reportEntries, entry)
		}
	}

	if v == domain.WaterLevel && e.report != nil {
		if err := e.report.Write(p.Name, req.TargetDatum, req.UserCoords, reportEntries); err != nil {
			e.logger.Error("datum report write failed", "ofs", p.Name, "error", err)
		}
	}
	return res, nil
}

func (e *Extractor) extractStation(ctx context.Context, req Request, p domain.Profile,
	v domain.VariableKind, g grid.Adapter, set, vset *modeldata.Set, times []time.Time,
	rec domain.ControlFileRecord) (StationSeries, vdatum.ReportEntry, error) {

	ss := StationSeries{StationID: rec.StationID}

	// Keep two days either side of the window so downstream pairing and
	// interpolation against observations never run off the edge.
	trimStart := req.Start.AddDate(0, 0, -2)
	trimEnd := req.End.AddDate(0, 0, 2)

	if v == domain.Currents {
		u, vv, err := currentColumns(set, vset, g, req.Kind, rec)
		if err != nil {
			return ss, vdatum.ReportEntry{}, err
		}
		ss.Vector = domain.VectorSeries{StationID: rec.StationID}
		for i := range times {
			if i >= len(u) || i >= len(vv) {
				break
			}
			ue := domain.MaskSentinel(u[i])
			vn := domain.MaskSentinel(vv[i])
			speed, dir := domain.SpeedDirection(ue, vn)
			ss.Vector.Samples = append(ss.Vector.Samples, domain.VectorSample{
				Time: times[i], Speed: speed, Direction: dir,
			})
		}
		ss.Vector.TrimVector(trimStart, trimEnd)
		return ss, vdatum.ReportEntry{}, nil
	}

	vals, err := modeldata.ScalarColumn(set, g, req.Kind, v, rec.Node, rec.Layer)
	if err != nil {
		return ss, vdatum.ReportEntry{}, err
	}
	ss.Series = domain.Series{StationID: rec.StationID, Variable: v}
	for i := range times {
		if i >= len(vals) {
			break
		}
		ss.Series.Samples = append(ss.Series.Samples, domain.Sample{
			Time: times[i], Value: domain.MaskSentinel(vals[i]),
		})
	}

	entry := vdatum.ReportEntry{StationID: rec.StationID, HasModelData: true}
	if v == domain.WaterLevel {
		ss.Offset = e.resolveOffset(ctx, req, p, g, rec)
		entry.Offset = ss.Offset
		applyDatumOffset(&ss.Series, ss.Offset)
	}
	ss.Series.Shift(rec.Shift)
	ss.Series.Trim(trimStart, trimEnd)
	return ss, entry, nil
}

func (e *Extractor) resolveOffset(ctx context.Context, req Request, p domain.Profile,
	g grid.Adapter, rec domain.ControlFileRecord) domain.DatumOffset {

	vreq := vdatum.Request{
		Profile:     p,
		TargetDatum: req.TargetDatum,
		Kind:        req.Kind,
		Node:        rec.Node,
		Lat:         rec.Lat,
		Lon:         rec.Lon,
		StationID:   rec.StationID,
	}
	fillGridPlacement(&vreq, g, rec.Node)
	return e.datums.Resolve(ctx, vreq)
}

// fillGridPlacement addresses the conversion field for one record. A
// fields record on a curvilinear grid unravels directly; a stations
// record carries its parent grid cell in the output file, and a stream
// without the index arrays cannot be placed at all, which the sampler
// reports as a station lookup failure.
func fillGridPlacement(vreq *vdatum.Request, g grid.Adapter, node int) {
	switch t := g.(type) {
	case *grid.Curvilinear:
		vreq.GridCols = t.Cols()
		vreq.StationRow, vreq.StationCol = t.Unravel(node)
	case *grid.Stations:
		vreq.StationRow, vreq.StationCol = -1, -1
		if row, col, ok := t.GridIndex(node); ok {
			vreq.StationRow, vreq.StationCol = row, col
		}
	}
}

// applyDatumOffset moves model water levels onto the target datum. The
// conversion fields give the target-to-model-zero distance, so the
// sampled value is subtracted from the series. A failed resolution
// leaves the series in the model's native datum; the sentinel travels
// in the report, never the data.
func applyDatumOffset(s *domain.Series, off domain.DatumOffset) {
	if off.OK() {
		s.Shift(-off.Value)
	}
}

// currentColumns reads both velocity components. The components come
// from the same set except on leveled fields output, where each lives
// in its own file series.
func currentColumns(set, vset *modeldata.Set, g grid.Adapter, kind domain.FileKind,
	rec domain.ControlFileRecord) (u, v []float64, err error) {

	if set == vset {
		return modeldata.CurrentColumns(set, g, kind, rec.Node, rec.Layer)
	}
	if u, err = modeldata.UComponentColumn(set, rec.Node, rec.Layer); err != nil {
		return nil, nil, err
	}
	if v, err = modeldata.VComponentColumn(vset, rec.Node, rec.Layer); err != nil {
		return nil, nil, err
	}
	return u, v, nil
}

// filterSTOFSVariables keeps the per-variable fields files serving one
// extraction. The 2-D surface files carry the elevations water level
// reads; the other variables have dedicated file series, with the
// north velocity component selected by second.
func filterSTOFSVariables(files []modeldata.File, v domain.VariableKind, second bool) []modeldata.File {
	var want string
	switch v {
	case domain.WaterLevel:
		want = "out2d"
	case domain.WaterTemperature:
		want = "temperature"
	case domain.Salinity:
		want = "salinity"
	case domain.Currents:
		want = "horizontalVelX"
		if second {
			want = "horizontalVelY"
		}
	}

	var out []modeldata.File
	for _, f := range files {
		if f.Variable == want {
			out = append(out, f)
		}
	}
	return out
}
