package domain

import "fmt"

// FileKind distinguishes the two model output streams: full-grid
// fields files and sparse pre-extracted stations files.
type FileKind int

const (
	FileFields FileKind = iota
	FileStations
)

func (k FileKind) String() string {
	switch k {
	case FileFields:
		return "fields"
	case FileStations:
		return "stations"
	}
	return fmt.Sprintf("FileKind(%d)", int(k))
}

// ParseFileKind maps the config tag to its kind.
func ParseFileKind(tag string) (FileKind, error) {
	switch tag {
	case "fields":
		return FileFields, nil
	case "stations":
		return FileStations, nil
	}
	return 0, fmt.Errorf("unknown file kind %q", tag)
}

// Cast identifies which model run stream a request extracts.
type Cast int

const (
	// Nowcast stitches the nowcast hours of consecutive cycles.
	Nowcast Cast = iota
	// ForecastA is a single full forecast cycle.
	ForecastA
	// ForecastB stitches the leading forecast hours of consecutive
	// cycles.
	ForecastB
)

func (c Cast) String() string {
	switch c {
	case Nowcast:
		return "nowcast"
	case ForecastA:
		return "forecast_a"
	case ForecastB:
		return "forecast_b"
	}
	return fmt.Sprintf("Cast(%d)", int(c))
}

// ParseCast maps the config tag to its cast.
func ParseCast(tag string) (Cast, error) {
	switch tag {
	case "nowcast":
		return Nowcast, nil
	case "forecast_a":
		return ForecastA, nil
	case "forecast_b":
		return ForecastB, nil
	}
	return 0, fmt.Errorf("unknown cast %q", tag)
}
