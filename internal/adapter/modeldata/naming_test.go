package modeldata

import (
	"testing"
	"time"

	"go.ngs.io/ofs-skill/internal/domain"
)

func profile(t *testing.T, ofs string) domain.Profile {
	t.Helper()
	p, err := domain.LookupOFS(ofs)
	if err != nil {
		t.Fatalf("LookupOFS(%q): %v", ofs, err)
	}
	return p
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestFileNameConventionBoundary(t *testing.T) {
	cbofs := profile(t, "cbofs")

	old := FileName(cbofs, domain.FileFields, domain.Nowcast, day(2024, 8, 31), 6, 3)
	if old != "nos.cbofs.fields.n003.20240831.t06z.nc" {
		t.Errorf("pre-boundary name = %q", old)
	}

	niu := FileName(cbofs, domain.FileFields, domain.Nowcast, day(2024, 9, 1), 6, 3)
	if niu != "cbofs.t06z.20240901.fields.n003.nc" {
		t.Errorf("post-boundary name = %q", niu)
	}

	st := FileName(cbofs, domain.FileStations, domain.ForecastA, day(2025, 1, 15), 0, 0)
	if st != "cbofs.t00z.20250115.stations.forecast.nc" {
		t.Errorf("stations name = %q", st)
	}
}

func TestSTOFSNames(t *testing.T) {
	atl := profile(t, "stofs_3d_atl")

	st := FileName(atl, domain.FileStations, domain.Nowcast, day(2025, 3, 1), 12, 0)
	if st != "stofs_3d_atl.t12z.points.cwl.temp.salt.vel.nc" {
		t.Errorf("points name = %q", st)
	}

	f := STOFSFieldName(atl, domain.ForecastA, 12, "zCoordinates", 13, 24)
	if f != "stofs_3d_atl.t12z.fields.zCoordinates_f013_024.nc" {
		t.Errorf("fields name = %q", f)
	}
}

func TestDirectoryLayoutBoundary(t *testing.T) {
	cbofs := profile(t, "cbofs")
	if got := Directory(cbofs, day(2024, 12, 31)); got != "202412" {
		t.Errorf("monthly dir = %q", got)
	}
	if got := Directory(cbofs, day(2025, 1, 1)); got != "2025/01/01" {
		t.Errorf("daily dir = %q", got)
	}
	atl := profile(t, "stofs_3d_atl")
	if got := Directory(atl, day(2025, 3, 1)); got != "stofs_3d_atl.20250301" {
		t.Errorf("stofs dir = %q", got)
	}
}

func TestDirectoriesCollapseMonthly(t *testing.T) {
	cbofs := profile(t, "cbofs")
	dates := []time.Time{day(2024, 11, 1), day(2024, 11, 2), day(2024, 11, 3)}
	dirs := Directories(cbofs, dates)
	if len(dirs) != 1 || dirs[0] != "202411" {
		t.Errorf("monthly dirs = %v", dirs)
	}
}

func TestDatesRange(t *testing.T) {
	start, end := day(2025, 1, 1), day(2025, 1, 3)

	plain := DatesRange(start, end, profile(t, "cbofs"), domain.Nowcast)
	if len(plain) != 3 || !plain[0].Equal(start) || !plain[2].Equal(end) {
		t.Errorf("plain range = %v", plain)
	}

	// WCOFS nowcast reaches a day ahead to cover its late daily cycle.
	ahead := DatesRange(start, end, profile(t, "wcofs"), domain.Nowcast)
	if len(ahead) != 4 || !ahead[3].Equal(day(2025, 1, 4)) {
		t.Errorf("wcofs nowcast range = %v", ahead)
	}

	// WCOFS forecast_b reaches a day behind instead.
	behind := DatesRange(start, end, profile(t, "wcofs"), domain.ForecastB)
	if len(behind) != 4 || !behind[0].Equal(day(2024, 12, 31)) {
		t.Errorf("wcofs forecast_b range = %v", behind)
	}

	// STOFS forecasts also look a day behind for the previous cycle.
	stofs := DatesRange(start, end, profile(t, "stofs_3d_atl"), domain.ForecastB)
	if len(stofs) != 4 || !stofs[0].Equal(day(2024, 12, 31)) {
		t.Errorf("stofs forecast range = %v", stofs)
	}
}

func TestParseNameBothConventions(t *testing.T) {
	cbofs := profile(t, "cbofs")

	e, ok := ParseName(cbofs, "nos.cbofs.fields.n003.20240831.t06z.nc")
	if !ok {
		t.Fatal("old-convention name not recognized")
	}
	if e.Hour != 3 || e.Cycle != 6 || e.Forecast || !e.Date.Equal(day(2024, 8, 31)) {
		t.Errorf("old-convention entry = %+v", e)
	}

	e, ok = ParseName(cbofs, "cbofs.t18z.20250115.fields.f012.nc")
	if !ok {
		t.Fatal("new-convention name not recognized")
	}
	if e.Hour != 12 || e.Cycle != 18 || !e.Forecast {
		t.Errorf("new-convention entry = %+v", e)
	}

	e, ok = ParseName(cbofs, "cbofs.t00z.20250115.stations.nowcast.nc")
	if !ok {
		t.Fatal("stations name not recognized")
	}
	if e.Kind != domain.FileStations || e.Hour != stationsHour {
		t.Errorf("stations entry = %+v", e)
	}

	for _, bad := range []string{
		"cbofs.t00z.20250115.fields.n001.nc.tmp",
		"readme.txt",
		"dbofs.t00z.20250115.fields.n001.nc",
		"nos.cbofs.fields.x001.20240831.t06z.nc",
	} {
		if _, ok := ParseName(cbofs, bad); ok {
			t.Errorf("unrecognizable name accepted: %q", bad)
		}
	}
}

func TestParseSTOFSNames(t *testing.T) {
	atl := profile(t, "stofs_3d_atl")

	e, ok := ParseName(atl, "stofs_3d_atl.t12z.fields.horizontalVelX_f013_024.nc")
	if !ok {
		t.Fatal("stofs fields name not recognized")
	}
	if e.Variable != "horizontalVelX" || e.HourRange != [2]int{13, 24} || !e.Forecast {
		t.Errorf("stofs fields entry = %+v", e)
	}

	e, ok = ParseName(atl, "stofs_3d_atl.t12z.points.cwl.temp.salt.vel.nc")
	if !ok {
		t.Fatal("stofs points name not recognized")
	}
	if e.Kind != domain.FileStations || e.Cycle != 12 {
		t.Errorf("stofs points entry = %+v", e)
	}
}

func TestExpectedFiles(t *testing.T) {
	// 4 cycles x 6 hourly nowcast outputs per cycle.
	cbofs := profile(t, "cbofs")
	files := ExpectedFiles(cbofs, domain.FileFields, domain.Nowcast, day(2025, 1, 15))
	if len(files) != 24 {
		t.Errorf("cbofs nowcast expects %d files, want 24", len(files))
	}

	// 3-hourly output, 72-hour forecast, one daily cycle.
	wcofs := profile(t, "wcofs")
	files = ExpectedFiles(wcofs, domain.FileFields, domain.ForecastA, day(2025, 1, 15))
	if len(files) != 24 {
		t.Errorf("wcofs forecast_a expects %d files, want 24", len(files))
	}

	// forecast_b takes the first 24 hours of the daily WCOFS run.
	files = ExpectedFiles(wcofs, domain.FileFields, domain.ForecastB, day(2025, 1, 15))
	if len(files) != 8 {
		t.Errorf("wcofs forecast_b expects %d files, want 8", len(files))
	}

	// STOFS nowcast: 2 windows x 6 variables for the single cycle.
	atl := profile(t, "stofs_3d_atl")
	files = ExpectedFiles(atl, domain.FileFields, domain.Nowcast, day(2025, 1, 15))
	if len(files) != 12 {
		t.Errorf("stofs nowcast expects %d files, want 12", len(files))
	}
}
