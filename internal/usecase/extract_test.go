package usecase

import (
	"testing"
	"time"

	"go.ngs.io/ofs-skill/internal/adapter/grid"
	"go.ngs.io/ofs-skill/internal/adapter/modeldata"
	"go.ngs.io/ofs-skill/internal/adapter/vdatum"
	"go.ngs.io/ofs-skill/internal/domain"
)

func baseRequest() Request {
	return Request{
		OFS:         "cbofs",
		Variables:   []domain.VariableKind{domain.WaterLevel},
		Kind:        domain.FileFields,
		Cast:        domain.Nowcast,
		Start:       time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		End:         time.Date(2025, 1, 3, 0, 0, 0, 0, time.UTC),
		TargetDatum: "MLLW",
	}
}

func TestValidate(t *testing.T) {
	if _, err := baseRequest().Validate(); err != nil {
		t.Fatalf("valid request rejected: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*Request)
	}{
		{"unknown system", func(r *Request) { r.OFS = "nbofs" }},
		{"no variables", func(r *Request) { r.Variables = nil }},
		{"inverted window", func(r *Request) { r.Start, r.End = r.End, r.Start }},
		{"lwd outside the lakes", func(r *Request) { r.TargetDatum = "LWD" }},
		{"igld85 outside lake ontario", func(r *Request) { r.TargetDatum = "IGLD85" }},
		{"cycle the system never runs", func(r *Request) {
			r.Cast = domain.ForecastA
			r.Cycle = 3
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := baseRequest()
			tt.mutate(&r)
			if _, err := r.Validate(); err == nil {
				t.Error("invalid request accepted")
			}
		})
	}
}

func TestValidateLakeDatums(t *testing.T) {
	r := baseRequest()
	r.OFS = "leofs"
	r.TargetDatum = "LWD"
	if _, err := r.Validate(); err != nil {
		t.Errorf("LWD on a lake system rejected: %v", err)
	}

	r.OFS = "loofs2"
	r.TargetDatum = "IGLD85"
	if _, err := r.Validate(); err != nil {
		t.Errorf("IGLD85 on loofs2 rejected: %v", err)
	}
}

func TestValidateForecastCycle(t *testing.T) {
	r := baseRequest()
	r.Cast = domain.ForecastA
	r.Cycle = 12
	if _, err := r.Validate(); err != nil {
		t.Errorf("12z cycle on cbofs rejected: %v", err)
	}
}

func TestApplyDatumOffset(t *testing.T) {
	t0 := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	s := domain.Series{Samples: []domain.Sample{{Time: t0, Value: 1.0}}}

	// A model reading of 1.00 m with a 0.46 m target-to-model-zero
	// conversion sits at 0.54 m on the target datum.
	applyDatumOffset(&s, domain.Offset(0.46))
	if got := s.Samples[0].Value; got != 0.54 {
		t.Errorf("converted value = %v, want 0.54", got)
	}

	s = domain.Series{Samples: []domain.Sample{{Time: t0, Value: 1.0}}}
	applyDatumOffset(&s, domain.FailedOffset(domain.FailureDatumOpen))
	if got := s.Samples[0].Value; got != 1.0 {
		t.Errorf("failed conversion moved the series to %v", got)
	}
}

func TestFillGridPlacement(t *testing.T) {
	withIndices, err := grid.NewStations(domain.FamilyCurvilinear,
		[]float64{36.95, 36.96}, []float64{-76.00, -76.01}, nil,
		[]int{120, 121}, []int{44, 45})
	if err != nil {
		t.Fatal(err)
	}
	var vreq vdatum.Request
	fillGridPlacement(&vreq, withIndices, 1)
	if vreq.StationRow != 121 || vreq.StationCol != 45 {
		t.Errorf("placement = (%d,%d), want the recorded grid cell (121,45)",
			vreq.StationRow, vreq.StationCol)
	}

	// A stream without the index arrays cannot address the conversion
	// field; the sampler must see an out-of-grid placement, not cell
	// (0,0).
	bare, err := grid.NewStations(domain.FamilyCurvilinear,
		[]float64{36.95}, []float64{-76.00}, nil, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	vreq = vdatum.Request{}
	fillGridPlacement(&vreq, bare, 0)
	if vreq.StationRow != -1 || vreq.StationCol != -1 {
		t.Errorf("placement = (%d,%d), want (-1,-1)", vreq.StationRow, vreq.StationCol)
	}
}

func TestFilterSTOFSVariables(t *testing.T) {
	files := []modeldata.File{
		{Entry: modeldata.Entry{Variable: "out2d"}},
		{Entry: modeldata.Entry{Variable: "temperature"}},
		{Entry: modeldata.Entry{Variable: "horizontalVelX"}},
		{Entry: modeldata.Entry{Variable: "horizontalVelY"}},
		{Entry: modeldata.Entry{Variable: "zCoordinates"}},
	}

	wl := filterSTOFSVariables(files, domain.WaterLevel, false)
	if len(wl) != 1 || wl[0].Variable != "out2d" {
		t.Errorf("water level files = %+v", wl)
	}

	u := filterSTOFSVariables(files, domain.Currents, false)
	if len(u) != 1 || u[0].Variable != "horizontalVelX" {
		t.Errorf("east component files = %+v", u)
	}
	v := filterSTOFSVariables(files, domain.Currents, true)
	if len(v) != 1 || v[0].Variable != "horizontalVelY" {
		t.Errorf("north component files = %+v", v)
	}
}
