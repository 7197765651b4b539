package obs

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"strconv"
	"strings"

	"go.ngs.io/ofs-skill/internal/domain"
)

// LoadInventory reads a station inventory CSV:
//
//	id,name,lat,lon,provider[,depth[,datum]]
//
// The header row is required; depth and datum columns are optional.
func LoadInventory(path string) ([]domain.Station, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open station inventory: %w", err)
	}
	defer func() { _ = f.Close() }()

	r := csv.NewReader(f)
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("read inventory header: %w", err)
	}
	col := make(map[string]int, len(header))
	for i, name := range header {
		col[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, required := range []string{"id", "lat", "lon"} {
		if _, ok := col[required]; !ok {
			return nil, fmt.Errorf("inventory is missing required column %q", required)
		}
	}

	var stations []domain.Station
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read inventory row: %w", err)
		}

		st := domain.Station{
			ID:    rec[col["id"]],
			Depth: math.NaN(),
		}
		if i, ok := col["name"]; ok {
			st.Name = rec[i]
		}
		if i, ok := col["provider"]; ok {
			st.Provider = rec[i]
		}
		if st.Lat, err = strconv.ParseFloat(rec[col["lat"]], 64); err != nil {
			return nil, fmt.Errorf("station %s: bad latitude %q", st.ID, rec[col["lat"]])
		}
		if st.Lon, err = strconv.ParseFloat(rec[col["lon"]], 64); err != nil {
			return nil, fmt.Errorf("station %s: bad longitude %q", st.ID, rec[col["lon"]])
		}
		if i, ok := col["depth"]; ok && rec[i] != "" {
			if d, err := strconv.ParseFloat(rec[i], 64); err == nil {
				st.Depth = d
			}
		}
		if i, ok := col["datum"]; ok {
			st.Datum = rec[i]
		}
		stations = append(stations, st)
	}
	return stations, nil
}

// LoadUserPoints reads a user-supplied coordinate list, one point per
// line: "name lat lon [depth]". Malformed lines are logged and
// skipped; users hand-edit these files.
func LoadUserPoints(path string, logger *slog.Logger) ([]domain.Station, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open user coordinate file: %w", err)
	}
	defer func() { _ = f.Close() }()

	var stations []domain.Station
	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		if len(fields) < 3 {
			logger.Warn("skipping malformed user coordinate line", "line", lineNo)
			continue
		}
		lat, err1 := strconv.ParseFloat(fields[1], 64)
		lon, err2 := strconv.ParseFloat(fields[2], 64)
		if err1 != nil || err2 != nil {
			logger.Warn("skipping malformed user coordinate line", "line", lineNo)
			continue
		}
		st := domain.Station{ID: fields[0], Name: fields[0], Lat: lat, Lon: lon, Depth: math.NaN()}
		if len(fields) >= 4 {
			if d, err := strconv.ParseFloat(fields[3], 64); err == nil {
				st.Depth = d
			}
		}
		stations = append(stations, st)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read user coordinate file: %w", err)
	}
	return stations, nil
}
