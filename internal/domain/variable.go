package domain

import "fmt"

// VariableKind identifies a model output variable of interest.
type VariableKind int

const (
	WaterLevel VariableKind = iota
	WaterTemperature
	Salinity
	Currents
)

// ShortName returns the two/four letter tag used in control file and
// report names.
func (v VariableKind) ShortName() string {
	switch v {
	case WaterLevel:
		return "wl"
	case WaterTemperature:
		return "temp"
	case Salinity:
		return "salt"
	case Currents:
		return "cu"
	}
	return fmt.Sprintf("VariableKind(%d)", int(v))
}

func (v VariableKind) String() string {
	switch v {
	case WaterLevel:
		return "water_level"
	case WaterTemperature:
		return "water_temperature"
	case Salinity:
		return "salinity"
	case Currents:
		return "currents"
	}
	return fmt.Sprintf("VariableKind(%d)", int(v))
}

// HasVerticalAxis reports whether the variable carries a depth dimension.
// Water level is a free-surface quantity and resolves to the surface
// sentinel layer instead of a real level index.
func (v VariableKind) HasVerticalAxis() bool {
	return v != WaterLevel
}

// ParseVariable maps a short tag back to its kind.
func ParseVariable(tag string) (VariableKind, error) {
	switch tag {
	case "wl":
		return WaterLevel, nil
	case "temp":
		return WaterTemperature, nil
	case "salt":
		return Salinity, nil
	case "cu":
		return Currents, nil
	}
	return 0, fmt.Errorf("unknown variable tag %q", tag)
}
