package obs

import (
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"testing"
)

func TestLoadInventory(t *testing.T) {
	content := `id,name,lat,lon,provider,depth,datum
8594900,"Washington, DC",38.873,-77.022,CO-OPS,,MLLW
45005,West Erie,41.677,-82.414,NDBC,10.5,MSL
`
	path := filepath.Join(t.TempDir(), "stations.csv")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	stations, err := LoadInventory(path)
	if err != nil {
		t.Fatalf("LoadInventory: %v", err)
	}
	if len(stations) != 2 {
		t.Fatalf("loaded %d stations, want 2", len(stations))
	}

	dc := stations[0]
	if dc.ID != "8594900" || dc.Provider != "CO-OPS" || dc.Datum != "MLLW" {
		t.Errorf("first station = %+v", dc)
	}
	if !math.IsNaN(dc.Depth) {
		t.Errorf("blank depth = %v, want NaN", dc.Depth)
	}
	if buoy := stations[1]; buoy.Depth != 10.5 {
		t.Errorf("buoy depth = %v, want 10.5", buoy.Depth)
	}
}

func TestLoadInventoryMissingColumn(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stations.csv")
	if err := os.WriteFile(path, []byte("id,name\na,b\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadInventory(path); err == nil {
		t.Error("inventory without lat/lon columns must fail")
	}
}

func TestLoadUserPoints(t *testing.T) {
	content := `dock_a 38.873 -77.022
dock_b 38.573 -76.078 4.5
this line is broken
`
	path := filepath.Join(t.TempDir(), "points.txt")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	stations, err := LoadUserPoints(path, logger)
	if err != nil {
		t.Fatalf("LoadUserPoints: %v", err)
	}
	if len(stations) != 2 {
		t.Fatalf("loaded %d points, want 2 with the malformed line skipped", len(stations))
	}
	if !math.IsNaN(stations[0].Depth) {
		t.Errorf("depthless point = %v, want NaN", stations[0].Depth)
	}
	if stations[1].Depth != 4.5 {
		t.Errorf("point depth = %v, want 4.5", stations[1].Depth)
	}
}
