package domain

import "testing"

func TestLookupOFSFamilies(t *testing.T) {
	tests := []struct {
		ofs    string
		family GridFamily
	}{
		{"cbofs", FamilyCurvilinear},
		{"wcofs", FamilyCurvilinear},
		{"ngofs2", FamilyUnstructuredNodal},
		{"leofs", FamilyUnstructuredNodal},
		{"sscofs", FamilyUnstructuredNodal},
		{"stofs_3d_atl", FamilyUnstructuredLeveled},
		{"stofs_3d_pac", FamilyUnstructuredLeveled},
		{"loofs2", FamilyUnstructuredLeveled},
	}

	for _, tt := range tests {
		p, err := LookupOFS(tt.ofs)
		if err != nil {
			t.Fatalf("LookupOFS(%q): %v", tt.ofs, err)
		}
		if p.Family != tt.family {
			t.Errorf("%s family = %v, want %v", tt.ofs, p.Family, tt.family)
		}
	}

	if _, err := LookupOFS("nonesuch"); err == nil {
		t.Error("LookupOFS should fail for unknown systems")
	}
}

func TestNativeDatum(t *testing.T) {
	tests := []struct {
		ofs  string
		want string
	}{
		{"leofs", "LWD"},
		{"loofs2", "LWD"},
		{"stofs_3d_atl", "XGEOID20B"},
		{"cbofs", "MSL"},
	}

	for _, tt := range tests {
		p, err := LookupOFS(tt.ofs)
		if err != nil {
			t.Fatalf("LookupOFS(%q): %v", tt.ofs, err)
		}
		if got := p.NativeDatum(); got != tt.want {
			t.Errorf("%s native datum = %q, want %q", tt.ofs, got, tt.want)
		}
	}
}

func TestParseVariable(t *testing.T) {
	for _, kind := range []VariableKind{WaterLevel, WaterTemperature, Salinity, Currents} {
		got, err := ParseVariable(kind.ShortName())
		if err != nil {
			t.Fatalf("ParseVariable(%q): %v", kind.ShortName(), err)
		}
		if got != kind {
			t.Errorf("ParseVariable(%q) = %v, want %v", kind.ShortName(), got, kind)
		}
	}
	if _, err := ParseVariable("zeta"); err == nil {
		t.Error("model-side names are not valid short tags")
	}
}
