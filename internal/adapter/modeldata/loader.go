package modeldata

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"sort"
	"time"

	"go.ngs.io/ofs-skill/internal/adapter/nc"
	"go.ngs.io/ofs-skill/internal/domain"
)

// Fetcher copies one remote object into a local writer, the same shape
// the datum store uses for its bucket access.
type Fetcher interface {
	Fetch(ctx context.Context, key string, dst io.Writer) error
}

// Loader stages remote model files and assembles multi-file time
// series sets. The netCDF C library reads local paths only, so remote
// objects land in cacheDir before opening.
type Loader struct {
	fetcher  Fetcher
	cacheDir string
	logger   *slog.Logger
}

// NewLoader wires a loader staging into cacheDir.
func NewLoader(fetcher Fetcher, cacheDir string, logger *slog.Logger) (*Loader, error) {
	if err := os.MkdirAll(cacheDir, 0o755); err != nil {
		return nil, fmt.Errorf("create model cache dir: %w", err)
	}
	return &Loader{fetcher: fetcher, cacheDir: cacheDir, logger: logger}, nil
}

// timeVarNames are the time axis candidates across the model families.
var timeVarNames = []string{"time", "ocean_time", "Times"}

// axis classification for placing point indices against a variable's
// dimensions. Model families disagree on every name.
var (
	timeDimNames = map[string]bool{
		"time": true, "ocean_time": true, "t": true,
	}
	verticalDimNames = map[string]bool{
		"s_rho": true, "s_w": true, "siglay": true, "siglev": true,
		"nSCHISM_vgrid_layers": true, "nvrt": true, "zl": true,
	}
	pointDimNames = map[string]bool{
		"station": true, "stations": true, "node": true, "nele": true,
		"nSCHISM_hgrid_node": true, "nSCHISM_hgrid_face": true,
	}
	rowDimNames = map[string]bool{
		"eta_rho": true, "eta_u": true, "eta_v": true, "ny": true,
	}
	colDimNames = map[string]bool{
		"xi_rho": true, "xi_u": true, "xi_v": true, "nx": true,
	}
)

// Point addresses one model location inside an output variable: a flat
// node or station index, or a curvilinear row/col pair, plus the
// vertical layer for variables that carry one.
type Point struct {
	Node    int
	Row     int
	Col     int
	Gridded bool // true selects Row/Col, false selects Node
	Layer   int
}

// step maps one output timestamp onto the file and record that supply
// it.
type step struct {
	file   int
	record int
	t      time.Time
}

// Set is an ordered multi-file model time series. Duplicate timestamps
// between overlapping files are resolved at build time; reads address
// the surviving records only.
type Set struct {
	paths  []string
	steps  []step
	logger *slog.Logger
	// stationRemap translates reference station indices to each file's
	// own ordering when stations files disagree on station count.
	stationRemap [][]int
}

// Open stages the discovered files and builds their merged time index.
// Nowcast series keep the newest record for a duplicated timestamp,
// since a later cycle's nowcast supersedes the previous cycle's
// overlap. Forecast series keep the first.
func (l *Loader) Open(ctx context.Context, q Query, files []File) (*Set, error) {
	if len(files) == 0 {
		return nil, fmt.Errorf("no model files to open")
	}

	set := &Set{logger: l.logger}
	var allTimes [][]time.Time
	for _, f := range files {
		local, err := l.localize(ctx, f)
		if err != nil {
			return nil, err
		}
		times, err := readTimeAxis(local)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", filepath.Base(local), err)
		}
		set.paths = append(set.paths, local)
		allTimes = append(allTimes, times)
	}

	set.steps = mergeSteps(allTimes, q.Cast == domain.Nowcast)

	if q.Kind == domain.FileStations {
		if err := set.buildStationRemap(); err != nil {
			return nil, err
		}
	}
	return set, nil
}

// mergeSteps resolves duplicate timestamps across overlapping files.
// With keepLast, a record from a later file replaces an earlier one at
// the same timestamp; otherwise the first occurrence wins.
func mergeSteps(allTimes [][]time.Time, keepLast bool) []step {
	chosen := make(map[time.Time]step)
	for fi, times := range allTimes {
		for ri, t := range times {
			if _, ok := chosen[t]; ok && !keepLast {
				continue
			}
			chosen[t] = step{file: fi, record: ri, t: t}
		}
	}
	steps := make([]step, 0, len(chosen))
	for _, st := range chosen {
		steps = append(steps, st)
	}
	sort.Slice(steps, func(i, j int) bool { return steps[i].t.Before(steps[j].t) })
	return steps
}

// localize returns a local path for one file, staging it when needed.
func (l *Loader) localize(ctx context.Context, f File) (string, error) {
	if f.LocalPath != "" {
		return f.LocalPath, nil
	}
	if l.fetcher == nil {
		return "", fmt.Errorf("model file %s not on disk and no fetcher configured", f.Key)
	}
	local := filepath.Join(l.cacheDir, filepath.Base(f.Key))
	if _, err := os.Stat(local); err == nil {
		return local, nil
	}

	l.logger.Info("staging model file", "key", f.Key)
	tmp, err := os.CreateTemp(l.cacheDir, ".staging-*")
	if err != nil {
		return "", fmt.Errorf("create staging file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()
	if err := l.fetcher.Fetch(ctx, f.Key, tmp); err != nil {
		_ = tmp.Close()
		return "", err
	}
	if err := tmp.Close(); err != nil {
		return "", err
	}
	if err := os.Rename(tmp.Name(), local); err != nil {
		return "", err
	}
	return local, nil
}

func readTimeAxis(path string) ([]time.Time, error) {
	ds, err := nc.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = ds.Close() }()

	v, _, err := nc.FindVar(ds, timeVarNames...)
	if err != nil {
		return nil, err
	}
	return nc.ReadTimes(v)
}

// buildStationRemap reconciles stations files whose station dimension
// disagrees across cycles. The file with the fewest stations is the
// reference; every other file must carry the reference's exact rounded
// coordinates. A reference station absent from any file fails the set:
// a nearest stand-in would splice a different site into the series.
func (s *Set) buildStationRemap() error {
	coords := make([][][2]float64, len(s.paths))
	minLen, ref := -1, -1
	for i, path := range s.paths {
		c, err := stationCoordinates(path)
		if err != nil {
			return fmt.Errorf("%s: %w", filepath.Base(path), err)
		}
		coords[i] = c
		if minLen < 0 || len(c) < minLen {
			minLen, ref = len(c), i
		}
	}

	uniform := true
	for _, c := range coords {
		if len(c) != minLen {
			uniform = false
			break
		}
	}
	if uniform {
		return nil
	}

	s.logger.Warn("stations files disagree on station count, remapping by coordinates",
		"reference", filepath.Base(s.paths[ref]), "stations", minLen)
	s.stationRemap = make([][]int, len(s.paths))
	for i, c := range coords {
		if i == ref || len(c) == minLen {
			continue
		}
		remap, err := remapStations(coords[ref], c)
		if err != nil {
			return fmt.Errorf("%s vs reference %s: %w",
				filepath.Base(s.paths[i]), filepath.Base(s.paths[ref]), err)
		}
		s.stationRemap[i] = remap
	}
	return nil
}

// remapStations maps each reference coordinate onto its position in c.
// Membership is exact over the rounded coordinates; a missing
// counterpart is an error, never a nearest stand-in.
func remapStations(ref, c [][2]float64) ([]int, error) {
	index := make(map[[2]float64]int, len(c))
	for k, have := range c {
		if _, dup := index[have]; !dup {
			index[have] = k
		}
	}
	remap := make([]int, len(ref))
	for j, want := range ref {
		k, ok := index[want]
		if !ok {
			return nil, fmt.Errorf("station (%.3f, %.3f) has no counterpart", want[0], want[1])
		}
		remap[j] = k
	}
	return remap, nil
}

func stationCoordinates(path string) ([][2]float64, error) {
	ds, err := nc.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = ds.Close() }()

	latVar, _, err := nc.FindVar(ds, "lat_rho", "lat", "latitude", "y")
	if err != nil {
		return nil, err
	}
	lonVar, _, err := nc.FindVar(ds, "lon_rho", "lon", "longitude", "x")
	if err != nil {
		return nil, err
	}
	lat, err := readStationAxis(latVar)
	if err != nil {
		return nil, err
	}
	lon, err := readStationAxis(lonVar)
	if err != nil {
		return nil, err
	}
	if len(lat) != len(lon) {
		return nil, fmt.Errorf("station coordinate arrays disagree: %d vs %d", len(lat), len(lon))
	}
	out := make([][2]float64, len(lat))
	for i := range lat {
		out[i] = [2]float64{round3(lat[i]), round3(domain.NormalizeLon360(lon[i]))}
	}
	return out, nil
}

// readStationAxis reads a station coordinate variable, collapsing a
// leading time dimension if the writer carried one.
func readStationAxis(v nc.Var) ([]float64, error) {
	dims, err := nc.Dims(v)
	if err != nil {
		return nil, err
	}
	switch len(dims) {
	case 1:
		return nc.Read1D(v)
	case 2:
		return nc.ReadSlice(v, []uint64{0, 0}, []uint64{1, dims[1]})
	}
	return nil, fmt.Errorf("station coordinate variable is %dD", len(dims))
}

// FirstPath returns the first file's local path, the one grid readers
// open: every file of a set shares its grid.
func (s *Set) FirstPath() string {
	if len(s.paths) == 0 {
		return ""
	}
	return s.paths[0]
}

// Times returns the merged, ordered output timestamps.
func (s *Set) Times() []time.Time {
	out := make([]time.Time, len(s.steps))
	for i, st := range s.steps {
		out[i] = st.t
	}
	return out
}

// Column reads one variable at one model point across the whole set,
// aligned with Times. Records a file cannot supply come back NaN.
func (s *Set) Column(names []string, pt Point) ([]float64, error) {
	out := make([]float64, len(s.steps))
	for i := range out {
		out[i] = math.NaN()
	}

	// Group the wanted records per file so each file opens once.
	perFile := make(map[int][]int)
	for i, st := range s.steps {
		perFile[st.file] = append(perFile[st.file], i)
	}

	for fi, stepIdx := range perFile {
		vals, err := s.readFileColumn(fi, names, pt)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", filepath.Base(s.paths[fi]), err)
		}
		for _, si := range stepIdx {
			rec := s.steps[si].record
			if rec < len(vals) {
				out[si] = vals[rec]
			}
		}
	}
	return out, nil
}

// readFileColumn reads the full time column of one variable at a point
// from a single file.
func (s *Set) readFileColumn(fi int, names []string, pt Point) ([]float64, error) {
	ds, err := nc.Open(s.paths[fi])
	if err != nil {
		return nil, err
	}
	defer func() { _ = ds.Close() }()

	v, _, err := nc.FindVar(ds, names...)
	if err != nil {
		return nil, err
	}
	dims, err := nc.Dims(v)
	if err != nil {
		return nil, err
	}
	dimNames, err := nc.DimNames(v)
	if err != nil {
		return nil, err
	}

	node := pt.Node
	if remap := s.stationRemap; remap != nil && remap[fi] != nil {
		if node < 0 || node >= len(remap[fi]) {
			return nil, fmt.Errorf("station %d outside remapped range", node)
		}
		node = remap[fi][node]
	}

	start := make([]uint64, len(dims))
	count := make([]uint64, len(dims))
	var nt uint64
	for i, name := range dimNames {
		switch {
		case timeDimNames[name]:
			if i != 0 {
				return nil, fmt.Errorf("time is dimension %d of %s, want leading", i, name)
			}
			start[i], count[i] = 0, dims[i]
			nt = dims[i]
		case verticalDimNames[name]:
			if uint64(pt.Layer) >= dims[i] {
				return nil, fmt.Errorf("layer %d outside %s of length %d", pt.Layer, name, dims[i])
			}
			start[i], count[i] = uint64(pt.Layer), 1
		case rowDimNames[name]:
			if !pt.Gridded || uint64(pt.Row) >= dims[i] {
				return nil, fmt.Errorf("row %d outside %s of length %d", pt.Row, name, dims[i])
			}
			start[i], count[i] = uint64(pt.Row), 1
		case colDimNames[name]:
			if !pt.Gridded || uint64(pt.Col) >= dims[i] {
				return nil, fmt.Errorf("col %d outside %s of length %d", pt.Col, name, dims[i])
			}
			start[i], count[i] = uint64(pt.Col), 1
		case pointDimNames[name]:
			if pt.Gridded || uint64(node) >= dims[i] {
				return nil, fmt.Errorf("node %d outside %s of length %d", node, name, dims[i])
			}
			start[i], count[i] = uint64(node), 1
		default:
			return nil, fmt.Errorf("unrecognized dimension %q", name)
		}
	}
	if nt == 0 {
		return nil, fmt.Errorf("variable has no time dimension")
	}
	return nc.ReadSlice(v, start, count)
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
