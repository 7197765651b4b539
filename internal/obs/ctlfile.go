// Package obs is the thin boundary to the observation side of the
// skill run: the station inventory, the observation control files the
// retrieval stage writes, and the bounded per-provider fetch pools.
// Inventory construction itself happens upstream; this package only
// consumes its outputs.
package obs

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// ControlEntry is one station from an observation control file. The
// file carries two lines per station:
//
//	{id} {id}_{var}_{ofs}_{provider} "{name}"
//	  {lat:.3f} {lon:.3f} {offset} {depth} {datum}
//
// Offset stays a string: the retrieval stage records RANGE or UNKNOWN
// in place of a number when its own conversion failed, and the audit
// report passes those through.
type ControlEntry struct {
	StationID   string
	Provider    string
	Name        string
	Lat         float64
	Lon         float64
	Offset      string
	Depth       float64
	SourceDatum string
}

// OffsetValue returns the numeric observation offset, false when the
// retrieval stage recorded a failure tag instead.
func (e ControlEntry) OffsetValue() (float64, bool) {
	v, err := strconv.ParseFloat(e.Offset, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// ReadControlFile parses an observation control file.
func ReadControlFile(path string) ([]ControlEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open observation control file: %w", err)
	}
	defer func() { _ = f.Close() }()

	var entries []ControlEntry
	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		header := strings.TrimSpace(scanner.Text())
		if header == "" {
			continue
		}
		if !scanner.Scan() {
			return nil, fmt.Errorf("line %d: station %q has no data line", lineNo, header)
		}
		lineNo++
		data := strings.Fields(scanner.Text())

		entry, err := parseEntry(header, data)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		entries = append(entries, entry)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read observation control file: %w", err)
	}
	return entries, nil
}

func parseEntry(header string, data []string) (ControlEntry, error) {
	headFields := strings.SplitN(header, " ", 3)
	if len(headFields) < 2 {
		return ControlEntry{}, fmt.Errorf("malformed station header %q", header)
	}
	e := ControlEntry{StationID: headFields[0]}

	// The second token encodes provider as its trailing underscore
	// segment: {id}_{var}_{ofs}_{provider}.
	if segs := strings.Split(headFields[1], "_"); len(segs) > 0 {
		e.Provider = segs[len(segs)-1]
	}
	if len(headFields) == 3 {
		e.Name = strings.Trim(headFields[2], `"`)
	}

	if len(data) < 4 {
		return ControlEntry{}, fmt.Errorf("station %s: %d data fields, want at least 4", e.StationID, len(data))
	}
	var err error
	if e.Lat, err = strconv.ParseFloat(data[0], 64); err != nil {
		return ControlEntry{}, fmt.Errorf("station %s: bad latitude %q", e.StationID, data[0])
	}
	if e.Lon, err = strconv.ParseFloat(data[1], 64); err != nil {
		return ControlEntry{}, fmt.Errorf("station %s: bad longitude %q", e.StationID, data[1])
	}
	e.Offset = data[2]
	if d, err := strconv.ParseFloat(data[3], 64); err == nil {
		e.Depth = d
	}
	if len(data) >= 5 {
		e.SourceDatum = data[4]
	}
	return e, nil
}

// FindEntry returns the entry for a station ID.
func FindEntry(entries []ControlEntry, stationID string) (ControlEntry, bool) {
	for _, e := range entries {
		if e.StationID == stationID {
			return e, true
		}
	}
	return ControlEntry{}, false
}
