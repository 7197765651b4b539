package modeldata

import (
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"sort"
	"time"

	"go.ngs.io/ofs-skill/internal/domain"
)

// Query selects one stretch of model output.
type Query struct {
	Profile domain.Profile
	Kind    domain.FileKind
	Cast    domain.Cast
	// Start and End bound the assessment window, UTC.
	Start time.Time
	End   time.Time
	// Cycle picks the single run a forecast_a query extracts.
	Cycle int
}

// File is one model file the loader should read, either already on
// disk or addressed by its object-store key.
type File struct {
	Entry
	// LocalPath is set when the file exists on disk.
	LocalPath string
	// Key is the object-store key used when LocalPath is empty.
	Key string
}

// Source discovers model files under a local archive root, falling
// through to object-store keys for directories the archive lacks.
type Source struct {
	root      string // local archive root, one level above the per-OFS dirs
	useRemote bool
	logger    *slog.Logger
}

// NewSource wires a discovery source.
func NewSource(root string, useRemote bool, logger *slog.Logger) *Source {
	return &Source{root: root, useRemote: useRemote, logger: logger}
}

// remoteKey maps an archive-relative file onto its NODD object key.
func remoteKey(p domain.Profile, dir, name string) string {
	if p.Name == "stofs_3d_atl" {
		return path.Join("STOFS-3D-Atl", dir, name)
	}
	if p.Name == "stofs_3d_pac" {
		return path.Join("STOFS-3D-Pac", dir, name)
	}
	return path.Join(p.Name, "netcdf", dir, name)
}

// Discover lists, filters and orders the model files covering a query.
// Files are ordered by run day, then cycle, then output hour, which is
// the concatenation order of the stitched series.
func (s *Source) Discover(q Query) ([]File, error) {
	if q.Cast == domain.ForecastA {
		// A single forecast run only needs its start day's directory.
		q.End = q.Start
	}
	dates := DatesRange(q.Start, q.End, q.Profile, q.Cast)

	var out []File
	seen := make(map[[3]int]bool)
	visited := make(map[string]bool)
	for _, day := range dates {
		dir := Directory(q.Profile, day)
		if visited[dir] {
			continue
		}
		visited[dir] = true

		local := filepath.Join(s.root, q.Profile.Name, "netcdf", filepath.FromSlash(dir))
		names, ok, err := s.listDir(local, q, day)
		if err != nil {
			return nil, err
		}

		for _, name := range names {
			entry, recognized := ParseName(q.Profile, name)
			if !recognized {
				continue
			}
			if entry.Date.IsZero() {
				// STOFS names carry no date; the directory does.
				entry.Date = day
			}
			if !s.keep(q, entry) {
				continue
			}
			key := [3]int{entry.Hour, entry.Cycle, entry.Date.Day()}
			if entry.Variable == "" && seen[key] {
				continue
			}
			seen[key] = true

			f := File{Entry: entry}
			if ok {
				f.LocalPath = filepath.Join(local, name)
				if _, err := os.Stat(f.LocalPath); err != nil {
					f.LocalPath = ""
				}
			}
			if f.LocalPath == "" {
				if !s.useRemote {
					s.logger.Warn("model file missing and remote fallback disabled", "file", name)
					continue
				}
				f.Key = remoteKey(q.Profile, dir, name)
			}
			out = append(out, f)
		}
	}

	if len(out) == 0 {
		return nil, fmt.Errorf("no %s %s files found for %s between %s and %s",
			q.Profile.Name, q.Cast, q.Kind,
			q.Start.Format("2006-01-02T15"), q.End.Format("2006-01-02T15"))
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].Entry, out[j].Entry
		if !a.Date.Equal(b.Date) {
			return a.Date.Before(b.Date)
		}
		if a.Cycle != b.Cycle {
			return a.Cycle < b.Cycle
		}
		if a.Hour != b.Hour {
			return a.Hour < b.Hour
		}
		return a.Variable < b.Variable
	})
	return out, nil
}

// listDir returns a directory's file names, or the expected names when
// the directory is absent and remote fallback is on. The second result
// reports whether the directory exists locally.
func (s *Source) listDir(local string, q Query, day time.Time) ([]string, bool, error) {
	entries, err := os.ReadDir(local)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, false, fmt.Errorf("list model directory: %w", err)
		}
		if !s.useRemote {
			s.logger.Warn("model directory not found", "dir", local)
			return nil, false, nil
		}
		s.logger.Info("model directory not found locally, using expected file names", "dir", local)
		return ExpectedFiles(q.Profile, q.Kind, q.Cast, day), false, nil
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	if len(names) == 0 && s.useRemote {
		return ExpectedFiles(q.Profile, q.Kind, q.Cast, day), false, nil
	}
	return names, true, nil
}

// keep applies the per-cast filter to one parsed entry.
func (s *Source) keep(q Query, e Entry) bool {
	if e.Kind != q.Kind {
		return false
	}

	if isSTOFS(q.Profile) {
		if e.Kind == domain.FileStations {
			return true
		}
		if e.Forecast != (q.Cast != domain.Nowcast) {
			return false
		}
		// The variable fan-out means every kept window appears once per
		// variable; the loader groups them back together.
		return true
	}

	// The initial hours of a run repeat the previous run's output; hour
	// zero files are restart artifacts and never part of the series.
	if e.Kind == domain.FileFields && e.Hour == 0 {
		return false
	}

	lookAhead, lookBehind := 0, 0
	if q.Profile.Name == "wcofs" {
		lookAhead, lookBehind = 1, 1
	}

	switch q.Cast {
	case domain.Nowcast:
		if e.Forecast {
			return false
		}
		return !e.Date.Before(q.Start.Truncate(24*time.Hour)) &&
			!e.Date.After(q.End.Truncate(24*time.Hour).AddDate(0, 0, lookAhead))
	case domain.ForecastA:
		if !e.Forecast || e.Cycle != q.Cycle {
			return false
		}
		return e.Date.Equal(q.Start.Truncate(24 * time.Hour))
	case domain.ForecastB:
		if !e.Forecast {
			return false
		}
		if e.Kind == domain.FileFields {
			if e.Hour < 1 || e.Hour > forecastBHours(q.Profile) {
				return false
			}
		}
		return !e.Date.Before(q.Start.Truncate(24*time.Hour).AddDate(0, 0, -lookBehind)) &&
			!e.Date.After(q.End.Truncate(24 * time.Hour))
	}
	return false
}
