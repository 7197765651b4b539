package domain

import "fmt"

// FailureReason says why a datum offset could not be produced. The
// numeric codes ride along with the time series instead of being
// coerced to zero so that a missing conversion can never masquerade as
// a real shift of 0 m.
type FailureReason int

const (
	FailureNone FailureReason = iota
	// FailureOutOfRange marks a station outside the model's geographic
	// coverage.
	FailureOutOfRange
	// FailureDatumOpen marks a vdatum netCDF that could not be opened.
	FailureDatumOpen
	// FailureUnsupportedDatum marks a target datum with no conversion
	// field for this OFS.
	FailureUnsupportedDatum
	// FailureStationLookup marks a failed conversion-field sample for a
	// stations-file node.
	FailureStationLookup
	// FailureFieldLookup marks a failed conversion-field sample for a
	// fields-file node.
	FailureFieldLookup
	// FailureMissingAuxiliary marks a missing auxiliary correction file
	// (the WCOFS MSL-to-model-zero grid).
	FailureMissingAuxiliary
	// FailureImplausibleOffset marks an offset outside the plausible
	// band. It shares the out-of-range wire code for compatibility with
	// the historical report format.
	FailureImplausibleOffset
)

// Code returns the numeric sentinel written in place of an offset.
func (r FailureReason) Code() float64 {
	switch r {
	case FailureOutOfRange, FailureImplausibleOffset:
		return -9999
	case FailureDatumOpen:
		return -9990
	case FailureUnsupportedDatum:
		return -9991
	case FailureStationLookup:
		return -9992
	case FailureFieldLookup:
		return -9993
	case FailureMissingAuxiliary:
		return -9994
	}
	return 0
}

// Message returns the audit-report wording for the failure.
func (r FailureReason) Message() string {
	switch r {
	case FailureOutOfRange, FailureImplausibleOffset:
		return "Out of geographic range (model)"
	case FailureDatumOpen:
		return "Error opening model vdatum netcdf on the fly"
	case FailureUnsupportedDatum:
		return "Target datum is unavailable for model conversion"
	case FailureStationLookup:
		return "Error finding model XY location (station file)"
	case FailureFieldLookup:
		return "Error finding model XY location (field file)"
	case FailureMissingAuxiliary:
		return "WCOFS MSL to model-0 conversion file not found"
	}
	return ""
}

// DatumOffset is the result of a model-to-target datum resolution:
// either a real vertical shift in meters or a tagged failure.
type DatumOffset struct {
	Value  float64
	Reason FailureReason
}

// Offset wraps a successful resolution.
func Offset(v float64) DatumOffset {
	return DatumOffset{Value: v}
}

// FailedOffset wraps a failed resolution.
func FailedOffset(r FailureReason) DatumOffset {
	return DatumOffset{Reason: r}
}

// OK reports whether the offset holds a usable value.
func (o DatumOffset) OK() bool {
	return o.Reason == FailureNone
}

// Code returns the value for a successful resolution and the failure
// sentinel otherwise.
func (o DatumOffset) Code() float64 {
	if o.OK() {
		return o.Value
	}
	return o.Reason.Code()
}

func (o DatumOffset) String() string {
	if o.OK() {
		return fmt.Sprintf("%.3f m", o.Value)
	}
	return fmt.Sprintf("failed(%s)", o.Reason.Message())
}

// FailureFromCode maps a wire sentinel back to its reason.
func FailureFromCode(code float64) (FailureReason, bool) {
	switch code {
	case -9999:
		return FailureOutOfRange, true
	case -9990:
		return FailureDatumOpen, true
	case -9991:
		return FailureUnsupportedDatum, true
	case -9992:
		return FailureStationLookup, true
	case -9993:
		return FailureFieldLookup, true
	case -9994:
		return FailureMissingAuxiliary, true
	}
	return FailureNone, false
}
