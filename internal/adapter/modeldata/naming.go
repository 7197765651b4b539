// Package modeldata discovers, names and loads operational model
// output. File naming and directory layout both changed mid-2024, so
// the package speaks every convention the archives still hold and
// normalizes discovered files into a single ordered sequence.
package modeldata

import (
	"fmt"
	"path"
	"strconv"
	"strings"
	"time"

	"go.ngs.io/ofs-skill/internal/domain"
)

// nameBoundary is the day the operational file naming convention
// switched from the nos.-prefixed layout to the cycle-first layout.
var nameBoundary = time.Date(2024, time.September, 1, 0, 0, 0, 0, time.UTC)

// dirBoundary is the last day of the monthly directory layout; later
// output lives in per-day directories.
var dirBoundary = time.Date(2024, time.December, 31, 0, 0, 0, 0, time.UTC)

// stofsFieldVariables are the per-variable fields files a STOFS cycle
// publishes.
var stofsFieldVariables = []string{
	"out2d", "horizontalVelX", "horizontalVelY", "salinity",
	"temperature", "zCoordinates",
}

// forecastBHours caps how deep into each cycle's forecast the stitched
// forecast_b series reaches. WCOFS runs once daily, so a full day of
// its forecast is needed to cover the gaps between cycles.
func forecastBHours(p domain.Profile) int {
	if p.Name == "wcofs" {
		return 24
	}
	return 6
}

func isSTOFS(p domain.Profile) bool {
	return p.Name == "stofs_3d_atl" || p.Name == "stofs_3d_pac"
}

// DatesRange lists the calendar days whose directories can hold output
// for [start, end]. WCOFS and the STOFS systems run on cycles that
// spill output across day boundaries, so those windows stretch a day
// ahead (nowcast) or behind (forecast).
func DatesRange(start, end time.Time, p domain.Profile, cast domain.Cast) []time.Time {
	start = start.UTC().Truncate(24 * time.Hour)
	end = end.UTC().Truncate(24 * time.Hour)

	extra, shift := 0, 0
	if p.Name == "wcofs" || isSTOFS(p) {
		switch {
		case cast == domain.ForecastB && p.Name == "wcofs":
			extra, shift = 1, -1
		case cast != domain.Nowcast && p.Name != "wcofs":
			extra, shift = 1, -1
		case cast == domain.Nowcast:
			extra, shift = 1, 0
		}
	}

	days := int(end.Sub(start).Hours()/24) + 1 + extra
	dates := make([]time.Time, 0, days)
	for i := 0; i < days; i++ {
		dates = append(dates, start.AddDate(0, 0, i+shift))
	}
	return dates
}

// Directory returns the archive directory holding one day's output,
// relative to the per-OFS netcdf root.
func Directory(p domain.Profile, day time.Time) string {
	day = day.UTC()
	if isSTOFS(p) {
		return fmt.Sprintf("%s.%s", p.Name, day.Format("20060102"))
	}
	if day.After(dirBoundary) {
		return day.Format("2006/01/02")
	}
	return day.Format("200601")
}

// Directories maps a date range onto its distinct archive directories.
// Under the monthly layout many days share one directory.
func Directories(p domain.Profile, dates []time.Time) []string {
	var dirs []string
	seen := make(map[string]bool)
	for _, d := range dates {
		dir := Directory(p, d)
		if !seen[dir] {
			seen[dir] = true
			dirs = append(dirs, dir)
		}
	}
	return dirs
}

// FileName builds one model output file name. hour is the n/f output
// hour for fields files and ignored for stations files.
func FileName(p domain.Profile, kind domain.FileKind, cast domain.Cast, day time.Time, cycle, hour int) string {
	day = day.UTC()
	date := day.Format("20060102")

	castTag := "forecast"
	prefix := "f"
	if cast == domain.Nowcast {
		castTag = "nowcast"
		prefix = "n"
	}

	if kind == domain.FileStations {
		if isSTOFS(p) {
			return fmt.Sprintf("%s.t%02dz.points.cwl.temp.salt.vel.nc", p.Name, cycle)
		}
		if day.Before(nameBoundary) {
			return fmt.Sprintf("nos.%s.stations.%s.%s.t%02dz.nc", p.Name, castTag, date, cycle)
		}
		return fmt.Sprintf("%s.t%02dz.%s.stations.%s.nc", p.Name, cycle, date, castTag)
	}

	if day.Before(nameBoundary) {
		return fmt.Sprintf("nos.%s.fields.%s%03d.%s.t%02dz.nc", p.Name, prefix, hour, date, cycle)
	}
	return fmt.Sprintf("%s.t%02dz.%s.fields.%s%03d.nc", p.Name, cycle, date, prefix, hour)
}

// STOFSFieldName builds one STOFS per-variable fields file covering the
// 12-hour output range [startHr, endHr].
func STOFSFieldName(p domain.Profile, cast domain.Cast, cycle int, variable string, startHr, endHr int) string {
	prefix := "f"
	if cast == domain.Nowcast {
		prefix = "n"
	}
	return fmt.Sprintf("%s.t%02dz.fields.%s_%s%03d_%03d.nc",
		p.Name, cycle, variable, prefix, startHr, endHr)
}

// stofsHourRanges lists the 12-hour output windows of one STOFS cycle.
func stofsHourRanges(p domain.Profile, cast domain.Cast) [][2]int {
	length := 24
	if cast != domain.Nowcast {
		length = p.ForecastHours
	}
	var ranges [][2]int
	for end := 12; end <= length; end += 12 {
		ranges = append(ranges, [2]int{end - 11, end})
	}
	return ranges
}

// ExpectedFiles builds the file names one archive directory should
// hold for a cast, used when the directory is not available locally
// and the loader falls through to object storage.
func ExpectedFiles(p domain.Profile, kind domain.FileKind, cast domain.Cast, day time.Time) []string {
	var files []string

	if isSTOFS(p) && kind == domain.FileFields {
		for _, cycle := range p.Cycles {
			for _, hr := range stofsHourRanges(p, cast) {
				for _, variable := range stofsFieldVariables {
					files = append(files, STOFSFieldName(p, cast, cycle, variable, hr[0], hr[1]))
				}
			}
		}
		return files
	}

	if kind == domain.FileStations {
		for _, cycle := range p.Cycles {
			files = append(files, FileName(p, kind, cast, day, cycle, 0))
		}
		return files
	}

	for _, cycle := range p.Cycles {
		for _, hour := range expectedHours(p, cast) {
			files = append(files, FileName(p, kind, cast, day, cycle, hour))
		}
	}
	return files
}

// expectedHours lists the fields output hours one cycle contributes.
func expectedHours(p domain.Profile, cast domain.Cast) []int {
	stride := p.OutputStride
	var max int
	switch cast {
	case domain.Nowcast:
		max = 24 / len(p.Cycles)
	case domain.ForecastA:
		max = p.ForecastHours
	case domain.ForecastB:
		max = forecastBHours(p)
	}
	var hours []int
	for h := stride; h <= max; h += stride {
		hours = append(hours, h)
	}
	return hours
}

// Entry is one discovered model file, normalized across naming
// conventions so filtering and ordering never re-parse names.
type Entry struct {
	Path  string
	Kind  domain.FileKind
	Date  time.Time // run date encoded in the name
	Cycle int       // run cycle, UTC hour
	Hour  int       // n/f output hour; stationsHour for stations files
	// Forecast is true for f-prefixed output.
	Forecast bool
	// HourRange carries the STOFS fields window [start, end]; zero
	// otherwise.
	HourRange [2]int
	// Variable is the STOFS per-variable fields tag.
	Variable string
}

// stationsHour is the sort rank of stations files, which carry a whole
// cycle in one file and sort after any hourly output of the same cycle.
const stationsHour = 999

// ParseName decodes a model file name in either convention. It returns
// false for names this package does not recognize, so directory
// listings can carry unrelated files.
func ParseName(p domain.Profile, name string) (Entry, bool) {
	name = path.Base(name)
	if !strings.HasSuffix(name, ".nc") {
		return Entry{}, false
	}
	if isSTOFS(p) {
		return parseSTOFSName(p, name)
	}
	parts := strings.Split(strings.TrimSuffix(name, ".nc"), ".")

	if parts[0] == "nos" {
		// nos.{ofs}.{kind}.{cast}{hhh}.{date}.t{cc}z
		if len(parts) != 6 || parts[1] != p.Name {
			return Entry{}, false
		}
		return decodeEntry(parts[2], parts[3], parts[4], parts[5])
	}

	// {ofs}.t{cc}z.{date}.{kind}.{cast}{hhh}
	if len(parts) != 5 || parts[0] != p.Name {
		return Entry{}, false
	}
	return decodeEntry(parts[3], parts[4], parts[2], parts[1])
}

// decodeEntry assembles an Entry from the kind, cast, date and cycle
// tokens shared by both conventions.
func decodeEntry(kindTok, castTok, dateTok, cycleTok string) (Entry, bool) {
	var e Entry
	switch kindTok {
	case "fields":
		e.Kind = domain.FileFields
	case "stations":
		e.Kind = domain.FileStations
	default:
		return Entry{}, false
	}

	date, err := time.Parse("20060102", dateTok)
	if err != nil {
		return Entry{}, false
	}
	e.Date = date

	if len(cycleTok) != 4 || cycleTok[0] != 't' || cycleTok[3] != 'z' {
		return Entry{}, false
	}
	cycle, err := strconv.Atoi(cycleTok[1:3])
	if err != nil {
		return Entry{}, false
	}
	e.Cycle = cycle

	switch {
	case e.Kind == domain.FileFields && len(castTok) == 4:
		// n001 / f001 / h001
		hour, err := strconv.Atoi(castTok[1:])
		if err != nil {
			return Entry{}, false
		}
		e.Hour = hour
		e.Forecast = castTok[0] == 'f'
		if castTok[0] != 'n' && castTok[0] != 'f' && castTok[0] != 'h' {
			return Entry{}, false
		}
	case e.Kind == domain.FileStations:
		e.Hour = stationsHour
		e.Forecast = strings.HasPrefix(castTok, "forecast")
		if !e.Forecast && !strings.HasPrefix(castTok, "nowcast") && !strings.HasPrefix(castTok, "hindcast") {
			return Entry{}, false
		}
	default:
		return Entry{}, false
	}
	return e, true
}

// parseSTOFSName decodes the STOFS conventions:
//
//	{ofs}.t12z.fields.{variable}_{n|f}SSS_EEE.nc
//	{ofs}.t12z.points.cwl.temp.salt.vel.nc
func parseSTOFSName(p domain.Profile, name string) (Entry, bool) {
	trimmed := strings.TrimSuffix(name, ".nc")
	if !strings.HasPrefix(trimmed, p.Name+".t") {
		return Entry{}, false
	}
	rest := strings.TrimPrefix(trimmed, p.Name+".")
	parts := strings.SplitN(rest, ".", 3)
	if len(parts) < 3 {
		return Entry{}, false
	}
	cycleTok := parts[0]
	if len(cycleTok) != 4 || cycleTok[0] != 't' || cycleTok[3] != 'z' {
		return Entry{}, false
	}
	cycle, err := strconv.Atoi(cycleTok[1:3])
	if err != nil {
		return Entry{}, false
	}

	if parts[1] == "points" {
		return Entry{Kind: domain.FileStations, Cycle: cycle, Hour: stationsHour}, true
	}
	if parts[1] != "fields" {
		return Entry{}, false
	}

	// {variable}_{n|f}SSS_EEE
	segs := strings.Split(parts[2], "_")
	if len(segs) < 3 {
		return Entry{}, false
	}
	startTok, endTok := segs[len(segs)-2], segs[len(segs)-1]
	if len(startTok) != 4 || (startTok[0] != 'n' && startTok[0] != 'f') {
		return Entry{}, false
	}
	start, err1 := strconv.Atoi(startTok[1:])
	end, err2 := strconv.Atoi(endTok)
	if err1 != nil || err2 != nil {
		return Entry{}, false
	}

	return Entry{
		Kind:      domain.FileFields,
		Cycle:     cycle,
		Hour:      start,
		Forecast:  startTok[0] == 'f',
		HourRange: [2]int{start, end},
		Variable:  strings.Join(segs[:len(segs)-2], "_"),
	}, true
}
