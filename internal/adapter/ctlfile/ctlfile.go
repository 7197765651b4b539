// Package ctlfile persists the model control files: the resolved
// station-to-node mapping driving every extraction. A control file is
// built once per system and variable and reused until deleted, so
// re-resolution only happens when the station set changes.
package ctlfile

import (
	"bufio"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"go.ngs.io/ofs-skill/internal/adapter/grid"
	"go.ngs.io/ofs-skill/internal/adapter/spatial"
	"go.ngs.io/ofs-skill/internal/domain"
)

// FileName returns the control file name for one system, variable and
// output stream.
func FileName(ofs string, v domain.VariableKind, kind domain.FileKind) string {
	if kind == domain.FileStations {
		return fmt.Sprintf("%s_%s_model_station.ctl", ofs, v.ShortName())
	}
	return fmt.Sprintf("%s_%s_model.ctl", ofs, v.ShortName())
}

// Read parses a model control file: one station per line, six
// whitespace-separated fields.
//
//	node layer lat lon stationID shift
func Read(path string) ([]domain.ControlFileRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open model control file: %w", err)
	}
	defer func() { _ = f.Close() }()

	var records []domain.ControlFileRecord
	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		if len(fields) != 6 {
			return nil, fmt.Errorf("line %d: %d fields, want 6", lineNo, len(fields))
		}
		var rec domain.ControlFileRecord
		if rec.Node, err = strconv.Atoi(fields[0]); err != nil {
			return nil, fmt.Errorf("line %d: bad node %q", lineNo, fields[0])
		}
		if rec.Layer, err = strconv.Atoi(fields[1]); err != nil {
			return nil, fmt.Errorf("line %d: bad layer %q", lineNo, fields[1])
		}
		if rec.Lat, err = strconv.ParseFloat(fields[2], 64); err != nil {
			return nil, fmt.Errorf("line %d: bad latitude %q", lineNo, fields[2])
		}
		if rec.Lon, err = strconv.ParseFloat(fields[3], 64); err != nil {
			return nil, fmt.Errorf("line %d: bad longitude %q", lineNo, fields[3])
		}
		rec.StationID = fields[4]
		if rec.Shift, err = strconv.ParseFloat(fields[5], 64); err != nil {
			return nil, fmt.Errorf("line %d: bad shift %q", lineNo, fields[5])
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read model control file: %w", err)
	}
	return records, nil
}

// Write serializes records. An empty record set still writes the file:
// its presence records that resolution ran and matched nothing.
func Write(path string, records []domain.ControlFileRecord) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create model control file: %w", err)
	}
	defer func() { _ = f.Close() }()

	w := bufio.NewWriter(f)
	for _, rec := range records {
		fmt.Fprintf(w, "%d  %d  %.6f  %.6f  %s  %.3f\n",
			rec.Node, rec.Layer, rec.Lat, rec.Lon, rec.StationID, rec.Shift)
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("write model control file: %w", err)
	}
	return f.Close()
}

// Repository builds and caches control files in one directory.
type Repository struct {
	dir    string
	logger *slog.Logger
}

// NewRepository wires a repository rooted at dir.
func NewRepository(dir string, logger *slog.Logger) *Repository {
	return &Repository{dir: dir, logger: logger}
}

// Path returns the on-disk location of one control file.
func (r *Repository) Path(ofs string, v domain.VariableKind, kind domain.FileKind) string {
	return filepath.Join(r.dir, FileName(ofs, v, kind))
}

// ResolveOrBuild returns the control records for one extraction,
// resolving and persisting them on first use. An existing file wins
// even when empty; delete it to force re-resolution.
func (r *Repository) ResolveOrBuild(ofs string, v domain.VariableKind, kind domain.FileKind,
	g grid.Adapter, stations []domain.Station) ([]domain.ControlFileRecord, error) {

	path := r.Path(ofs, v, kind)
	if _, err := os.Stat(path); err == nil {
		r.logger.Info("using existing model control file", "path", path)
		return Read(path)
	}

	records := Resolve(g, v, kind, stations, r.logger)
	if err := Write(path, records); err != nil {
		return nil, err
	}
	r.logger.Info("model control file written",
		"path", path, "stations", len(stations), "resolved", len(records))
	return records, nil
}

// Resolve maps stations onto the grid. Stations with no acceptable
// match are dropped, not extrapolated.
func Resolve(g grid.Adapter, v domain.VariableKind, kind domain.FileKind,
	stations []domain.Station, logger *slog.Logger) []domain.ControlFileRecord {

	var records []domain.ControlFileRecord
	for _, st := range stations {
		m, err := match(g, v, kind, st)
		if err != nil {
			if errors.Is(err, spatial.ErrNoMatch) {
				logger.Warn("station has no model point within range, dropping",
					"station", st.ID, "lat", st.Lat, "lon", st.Lon)
				continue
			}
			logger.Warn("station resolution failed, dropping", "station", st.ID, "error", err)
			continue
		}

		// A station without a known sensor depth cannot place itself on a
		// 3-D variable; the NaN depth falls through to the no-match drop.
		layer, err := spatial.ResolveLayer(g, m.Index, v, st.Depth)
		if err != nil {
			logger.Warn("station has no usable vertical level, dropping",
				"station", st.ID, "depth", st.Depth)
			continue
		}

		lat, lon := g.Points(v).At(m.Index)
		records = append(records, domain.ControlFileRecord{
			Node:      m.Index,
			Layer:     layer,
			Lat:       lat,
			Lon:       math.Round(lon*1e6) / 1e6,
			StationID: st.ID,
		})
	}
	return records
}

// match dispatches the horizontal search on stream and family. Fields
// streams search the full grid; stations streams search the model's
// sparse output points, by label first when the stream carries labels.
func match(g grid.Adapter, v domain.VariableKind, kind domain.FileKind, st domain.Station) (spatial.Match, error) {
	if kind == domain.FileFields {
		return spatial.NearestGridPoint(g, st, v)
	}
	if lg, ok := g.(*grid.Leveled); ok {
		return spatial.NearestNamedStation(lg, st)
	}
	return spatial.NearestOutputStation(g.Points(v), st)
}
