package vdatum

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"testing"

	"go.ngs.io/ofs-skill/internal/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func profile(t *testing.T, ofs string) domain.Profile {
	t.Helper()
	p, err := domain.LookupOFS(ofs)
	if err != nil {
		t.Fatalf("LookupOFS(%q): %v", ofs, err)
	}
	return p
}

func TestShortcuts(t *testing.T) {
	tests := []struct {
		name  string
		ofs   string
		kind  domain.FileKind
		datum string
		want  bool
	}{
		{"lwd is always free", "leofs", domain.FileFields, "lwd", true},
		{"lwd case-insensitive", "loofs", domain.FileStations, "lwd", true},
		{"stofs atl fields native geoid", "stofs_3d_atl", domain.FileFields, "xgeoid20b", true},
		{"stofs pac fields native geoid", "stofs_3d_pac", domain.FileFields, "xgeoid20b", true},
		{"stofs atl stations navd88", "stofs_3d_atl", domain.FileStations, "navd88", true},
		{"stofs pac stations msl", "stofs_3d_pac", domain.FileStations, "msl", true},
		{"stofs atl stations msl needs conversion", "stofs_3d_atl", domain.FileStations, "msl", false},
		{"cbofs navd88 needs conversion", "cbofs", domain.FileFields, "navd88", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			off, done := shortcut(profile(t, tt.ofs), tt.kind, tt.datum)
			if done != tt.want {
				t.Fatalf("shortcut = %v, want %v", done, tt.want)
			}
			if done && (!off.OK() || off.Value != 0) {
				t.Errorf("shortcut offset = %v, want 0", off)
			}
		})
	}
}

func TestFinishSignConvention(t *testing.T) {
	tests := []struct {
		ofs  string
		raw  float64
		want float64
	}{
		// Lake systems flip sign, except Lake Erie.
		{"lmhofs", 0.35, -0.35},
		{"loofs", -0.12, 0.12},
		{"lsofs", 0.5, -0.5},
		{"leofs", 0.35, 0.35},
		{"cbofs", 0.35, 0.35},
	}

	for _, tt := range tests {
		off := finish(profile(t, tt.ofs), tt.raw)
		if !off.OK() {
			t.Fatalf("%s: finish(%v) failed: %v", tt.ofs, tt.raw, off)
		}
		if math.Abs(off.Value-tt.want) > 1e-12 {
			t.Errorf("%s: finish(%v) = %v, want %v", tt.ofs, tt.raw, off.Value, tt.want)
		}
	}
}

func TestFinishPlausibilityBound(t *testing.T) {
	off := finish(profile(t, "cbofs"), 12345.0)
	if off.OK() {
		t.Fatal("implausible offset accepted")
	}
	if off.Reason != domain.FailureImplausibleOffset {
		t.Errorf("reason = %v, want implausible", off.Reason)
	}
	if off.Code() != -9999 {
		t.Errorf("code = %v, want -9999", off.Code())
	}
}

type fakeTransformer struct {
	z   float64
	err error
	// captured arguments
	from, to string
	lat, lon float64
}

func (f *fakeTransformer) Convert(_ context.Context, fromDatum, toDatum string, lat, lon, _ float64) (float64, error) {
	f.from, f.to = fromDatum, toDatum
	f.lat, f.lon = lat, lon
	return f.z, f.err
}

func TestGeodeticOffset(t *testing.T) {
	tr := &fakeTransformer{z: transformProbe + 0.456}
	r := NewResolver(nil, tr, "", discardLogger())

	req := Request{
		Profile:     profile(t, "stofs_3d_atl"),
		TargetDatum: "MLLW",
		Kind:        domain.FileStations,
		Lat:         30.39,
		Lon:         domain.NormalizeLon360(-81.43),
		StationID:   "8720218",
	}
	off := r.Resolve(context.Background(), req)
	if !off.OK() {
		t.Fatalf("Resolve failed: %v", off)
	}
	if math.Abs(off.Value-0.46) > 1e-9 {
		t.Errorf("offset = %v, want probe difference rounded to 0.46", off.Value)
	}
	if tr.from != "navd88" {
		t.Errorf("stations stream of stofs_3d_atl must convert from navd88, got %q", tr.from)
	}
	if tr.lon > 180 {
		t.Errorf("transform longitude must be signed degrees, got %v", tr.lon)
	}
}

func TestGeodeticNativeDatums(t *testing.T) {
	tests := []struct {
		ofs  string
		kind domain.FileKind
		want string
	}{
		{"stofs_3d_atl", domain.FileStations, "navd88"},
		{"stofs_3d_pac", domain.FileStations, "msl"},
		{"stofs_3d_atl", domain.FileFields, "xgeoid20b"},
		{"stofs_3d_pac", domain.FileFields, "xgeoid20b"},
		{"loofs2", domain.FileStations, "lwd"},
	}
	for _, tt := range tests {
		got := nativeForGeodetic(profile(t, tt.ofs), tt.kind)
		if got != tt.want {
			t.Errorf("%s %v native = %q, want %q", tt.ofs, tt.kind, got, tt.want)
		}
	}
}

func TestGeodeticLakeOntarioIGLD(t *testing.T) {
	tr := &fakeTransformer{err: fmt.Errorf("service must not be called")}
	r := NewResolver(nil, tr, "", discardLogger())

	req := Request{
		Profile:     profile(t, "loofs2"),
		TargetDatum: "IGLD85",
		Kind:        domain.FileStations,
		Lat:         43.6,
		Lon:         domain.NormalizeLon360(-79.4),
	}
	off := r.Resolve(context.Background(), req)
	if !off.OK() {
		t.Fatalf("Resolve failed: %v", off)
	}
	if math.Abs(off.Value-loofs2IGLDOffset) > 1e-9 {
		t.Errorf("offset = %v, want fixed %v", off.Value, loofs2IGLDOffset)
	}
}

func TestGeodeticFailureKinds(t *testing.T) {
	tr := &fakeTransformer{err: fmt.Errorf("no conversion here")}
	r := NewResolver(nil, tr, "", discardLogger())

	base := Request{
		Profile:     profile(t, "stofs_3d_pac"),
		TargetDatum: "navd88",
		Lat:         46.2,
		Lon:         domain.NormalizeLon360(-123.8),
	}

	base.Kind = domain.FileStations
	if off := r.Resolve(context.Background(), base); off.Reason != domain.FailureStationLookup {
		t.Errorf("stations failure reason = %v, want station lookup", off.Reason)
	}
	base.Kind = domain.FileFields
	if off := r.Resolve(context.Background(), base); off.Reason != domain.FailureFieldLookup {
		t.Errorf("fields failure reason = %v, want field lookup", off.Reason)
	}
}

func TestSampleFieldsCurvilinear(t *testing.T) {
	// 2x3 conversion field; node 4 unravels to (1,1) with 3 columns.
	vals := []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6}
	dims := []uint64{2, 3}
	req := Request{Profile: profile(t, "cbofs"), Kind: domain.FileFields, Node: 4, GridCols: 3}

	got, err := sampleFields(req, vals, dims)
	if err != nil {
		t.Fatalf("sampleFields: %v", err)
	}
	if got != 0.5 {
		t.Errorf("sampled %v, want 0.5", got)
	}

	req.Node = 99
	if _, err := sampleFields(req, vals, dims); err == nil {
		t.Error("out-of-field node must fail")
	}
}

func TestSampleFieldsNodal(t *testing.T) {
	vals := []float64{1.1, 1.2, 1.3}
	req := Request{Profile: profile(t, "ngofs2"), Kind: domain.FileFields, Node: 2}
	got, err := sampleFields(req, vals, []uint64{3})
	if err != nil {
		t.Fatalf("sampleFields: %v", err)
	}
	if got != 1.3 {
		t.Errorf("sampled %v, want 1.3", got)
	}
}

func TestSampleStationsCurvilinear(t *testing.T) {
	vals := []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6}
	dims := []uint64{2, 3}
	req := Request{
		Profile:    profile(t, "cbofs"),
		Kind:       domain.FileStations,
		StationRow: 1,
		StationCol: 2,
	}
	got, err := sampleStations(nil, req, vals, dims)
	if err != nil {
		t.Fatalf("sampleStations: %v", err)
	}
	if got != 0.6 {
		t.Errorf("sampled %v, want 0.6", got)
	}

	req.StationRow = 5
	if _, err := sampleStations(nil, req, vals, dims); err == nil {
		t.Error("out-of-grid station index must fail")
	}
}

func TestWCOFSCorrectionFailureCodes(t *testing.T) {
	dir := t.TempDir()
	r := NewResolver(nil, nil, dir, discardLogger())

	// Absent auxiliary grid is its own sentinel.
	if _, reason := r.wcofsCorrection(4); reason != domain.FailureMissingAuxiliary {
		t.Errorf("missing file reason = %v, want FailureMissingAuxiliary", reason)
	}

	// A present file that cannot serve the correction means the
	// conversion is unavailable, not that the file is missing.
	if err := os.WriteFile(filepath.Join(dir, "wcofs_msl.nc"), []byte("not a netcdf file"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, reason := r.wcofsCorrection(4); reason != domain.FailureUnsupportedDatum {
		t.Errorf("unreadable file reason = %v, want FailureUnsupportedDatum", reason)
	}
}
