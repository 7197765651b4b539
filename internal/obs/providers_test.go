package obs

import (
	"strings"
	"testing"
	"time"

	"go.ngs.io/ofs-skill/internal/domain"
)

func TestStationURL(t *testing.T) {
	f := &SeriesFetcher{
		start: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		end:   time.Date(2025, 1, 3, 0, 0, 0, 0, time.UTC),
	}

	tests := []struct {
		provider string
		id       string
		ext      string
		contains []string
	}{
		{"CO-OPS", "8638610", "csv", []string{
			"tidesandcurrents.noaa.gov",
			"begin_date=20250101", "end_date=20250103",
			"station=8638610", "product=water_level",
		}},
		{"NDBC", "44009", "txt", []string{"ndbc.noaa.gov/data/realtime2/44009.txt"}},
		{"USGS", "01578310", "json", []string{
			"waterservices.usgs.gov", "sites=01578310", "parameterCd=00065",
		}},
		{"CHS", "5cebf1df3d0f4a073c4bb996", "json", []string{
			"api-iwls.dfo-mpo.gc.ca", "time-series-code=wlo",
		}},
	}
	for _, tt := range tests {
		t.Run(tt.provider, func(t *testing.T) {
			u, ext, err := f.stationURL(domain.Station{ID: tt.id, Provider: tt.provider})
			if err != nil {
				t.Fatalf("stationURL: %v", err)
			}
			if ext != tt.ext {
				t.Errorf("ext = %q, want %q", ext, tt.ext)
			}
			for _, want := range tt.contains {
				if !strings.Contains(u, want) {
					t.Errorf("url %q missing %q", u, want)
				}
			}
		})
	}
}

func TestStationURLUnknownProvider(t *testing.T) {
	f := &SeriesFetcher{}
	if _, _, err := f.stationURL(domain.Station{ID: "x", Provider: "WMO"}); err == nil {
		t.Error("unknown provider accepted")
	}
}

func TestStationURLUSGSKey(t *testing.T) {
	f := &SeriesFetcher{usgsKey: "k123"}
	u, _, err := f.stationURL(domain.Station{ID: "01578310", Provider: "USGS"})
	if err != nil {
		t.Fatalf("stationURL: %v", err)
	}
	if !strings.Contains(u, "api_key=k123") {
		t.Errorf("url %q missing api key", u)
	}
}
