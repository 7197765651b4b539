// Package nc wraps the low-level netCDF access shared by the grid,
// datum and model-output readers: candidate variable-name lookup,
// typed reads with scale/fill handling, hyperslab subsets, char-matrix
// labels and CF time axes.
package nc

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/fhs/go-netcdf/netcdf"
)

// Var and Dataset alias the library's handles so callers can pass them
// between helpers without importing the binding directly.
type (
	Var     = netcdf.Var
	Dataset = netcdf.Dataset
)

// Open opens a netCDF file read-only.
func Open(path string) (netcdf.Dataset, error) {
	ds, err := netcdf.OpenFile(path, netcdf.NOWRITE)
	if err != nil {
		return netcdf.Dataset{}, fmt.Errorf("failed to open netCDF file %s: %w", path, err)
	}
	return ds, nil
}

// FindVar returns the first variable matching one of the candidate
// names. Model outputs are not uniform about naming, so every reader
// works from a candidate list instead of a single expected name.
func FindVar(ds netcdf.Dataset, names ...string) (netcdf.Var, string, error) {
	for _, name := range names {
		if v, err := ds.Var(name); err == nil {
			return v, name, nil
		}
	}
	return netcdf.Var{}, "", fmt.Errorf("variable not found (tried: %v)", names)
}

// HasVar reports whether any of the candidate names exists.
func HasVar(ds netcdf.Dataset, names ...string) bool {
	_, _, err := FindVar(ds, names...)
	return err == nil
}

// Dims returns the dimension lengths of a variable.
func Dims(v netcdf.Var) ([]uint64, error) {
	dims, err := v.Dims()
	if err != nil {
		return nil, fmt.Errorf("failed to get dimensions: %w", err)
	}
	out := make([]uint64, len(dims))
	for i, d := range dims {
		n, err := d.Len()
		if err != nil {
			return nil, fmt.Errorf("failed to get dim %d length: %w", i, err)
		}
		out[i] = n
	}
	return out, nil
}

// DimNames returns the dimension names of a variable, in order.
func DimNames(v netcdf.Var) ([]string, error) {
	dims, err := v.Dims()
	if err != nil {
		return nil, fmt.Errorf("failed to get dimensions: %w", err)
	}
	out := make([]string, len(dims))
	for i, d := range dims {
		name, err := d.Name()
		if err != nil {
			return nil, fmt.Errorf("failed to get dim %d name: %w", i, err)
		}
		out[i] = name
	}
	return out, nil
}

// FillValue returns the _FillValue or missing_value attribute if
// present.
func FillValue(v netcdf.Var) (float64, bool) {
	for _, name := range []string{"_FillValue", "missing_value"} {
		a := v.Attr(name)
		if a == (netcdf.Attr{}) {
			continue
		}
		if n, err := a.Len(); err == nil && n > 0 {
			buf64 := make([]float64, 1)
			if err := a.ReadFloat64s(buf64); err == nil {
				return buf64[0], true
			}
			buf32 := make([]float32, 1)
			if err := a.ReadFloat32s(buf32); err == nil {
				return float64(buf32[0]), true
			}
			bufi := make([]int32, 1)
			if err := a.ReadInt32s(bufi); err == nil {
				return float64(bufi[0]), true
			}
		}
	}
	return 0, false
}

// scaleOffset returns scale_factor and add_offset, defaulting to the
// identity transform.
func scaleOffset(v netcdf.Var) (scale, offset float64) {
	scale, offset = 1, 0
	if a := v.Attr("scale_factor"); a != (netcdf.Attr{}) {
		if n, err := a.Len(); err == nil && n > 0 {
			buf := make([]float64, 1)
			if err := a.ReadFloat64s(buf); err == nil {
				scale = buf[0]
			} else {
				buf32 := make([]float32, 1)
				if err := a.ReadFloat32s(buf32); err == nil {
					scale = float64(buf32[0])
				}
			}
		}
	}
	if a := v.Attr("add_offset"); a != (netcdf.Attr{}) {
		if n, err := a.Len(); err == nil && n > 0 {
			buf := make([]float64, 1)
			if err := a.ReadFloat64s(buf); err == nil {
				offset = buf[0]
			}
		}
	}
	return scale, offset
}

// readFlat reads count values starting at start, converting the on-disk
// type to float64 and applying scale/offset. Fill values become NaN.
//
//nolint:gocyclo // Type dispatch over the netCDF numeric types.
func readFlat(v netcdf.Var, start, count []uint64) ([]float64, error) {
	total := uint64(1)
	for _, c := range count {
		total *= c
	}
	t, err := v.Type()
	if err != nil {
		return nil, fmt.Errorf("failed to get var type: %w", err)
	}

	var flat []float64
	switch t {
	case netcdf.DOUBLE:
		flat = make([]float64, total)
		if err := v.ReadFloat64Slice(flat, start, count); err != nil {
			return nil, fmt.Errorf("failed to read float64 subset: %w", err)
		}
	case netcdf.FLOAT:
		tmp := make([]float32, total)
		if err := v.ReadFloat32Slice(tmp, start, count); err != nil {
			return nil, fmt.Errorf("failed to read float32 subset: %w", err)
		}
		flat = make([]float64, total)
		for i, val := range tmp {
			flat[i] = float64(val)
		}
	case netcdf.INT:
		tmp := make([]int32, total)
		if err := v.ReadInt32Slice(tmp, start, count); err != nil {
			return nil, fmt.Errorf("failed to read int32 subset: %w", err)
		}
		flat = make([]float64, total)
		for i, val := range tmp {
			flat[i] = float64(val)
		}
	case netcdf.SHORT:
		tmp := make([]int16, total)
		if err := v.ReadInt16Slice(tmp, start, count); err != nil {
			return nil, fmt.Errorf("failed to read int16 subset: %w", err)
		}
		flat = make([]float64, total)
		for i, val := range tmp {
			flat[i] = float64(val)
		}
	case netcdf.BYTE, netcdf.CHAR, netcdf.UBYTE, netcdf.USHORT, netcdf.UINT, netcdf.INT64, netcdf.UINT64, netcdf.STRING:
		return nil, fmt.Errorf("unsupported var type: %v", t)
	default:
		return nil, fmt.Errorf("unsupported var type: %v", t)
	}

	if fv, ok := FillValue(v); ok {
		for i := range flat {
			if flat[i] == fv {
				flat[i] = math.NaN()
			}
		}
	}
	scale, offset := scaleOffset(v)
	if scale != 1 || offset != 0 {
		for i := range flat {
			flat[i] = flat[i]*scale + offset
		}
	}
	return flat, nil
}

// Read1D reads a full 1-D variable.
func Read1D(v netcdf.Var) ([]float64, error) {
	dims, err := Dims(v)
	if err != nil {
		return nil, err
	}
	if len(dims) != 1 {
		return nil, fmt.Errorf("expected 1D variable, got %dD", len(dims))
	}
	return readFlat(v, []uint64{0}, dims)
}

// Read2D reads a full 2-D variable as rows of its leading dimension.
func Read2D(v netcdf.Var) ([][]float64, error) {
	dims, err := Dims(v)
	if err != nil {
		return nil, err
	}
	if len(dims) != 2 {
		return nil, fmt.Errorf("expected 2D variable, got %dD", len(dims))
	}
	flat, err := readFlat(v, []uint64{0, 0}, dims)
	if err != nil {
		return nil, err
	}
	return Reshape2D(flat, int(dims[0]), int(dims[1])), nil
}

// ReadSlice reads an arbitrary hyperslab.
func ReadSlice(v netcdf.Var, start, count []uint64) ([]float64, error) {
	return readFlat(v, start, count)
}

// Reshape2D views a flat row-major slice as rows.
func Reshape2D(flat []float64, nRows, nCols int) [][]float64 {
	values := make([][]float64, nRows)
	for i := 0; i < nRows; i++ {
		values[i] = flat[i*nCols : (i+1)*nCols]
	}
	return values
}

// Transpose2D transposes a 2-D array.
func Transpose2D(data [][]float64) [][]float64 {
	if len(data) == 0 {
		return data
	}
	nRows := len(data)
	nCols := len(data[0])
	out := make([][]float64, nCols)
	for i := 0; i < nCols; i++ {
		out[i] = make([]float64, nRows)
		for j := 0; j < nRows; j++ {
			out[i][j] = data[j][i]
		}
	}
	return out
}

// ReadStrings reads a [n, strlen] CHAR matrix into trimmed strings, the
// layout stations files use for their name labels.
func ReadStrings(v netcdf.Var) ([]string, error) {
	dims, err := Dims(v)
	if err != nil {
		return nil, err
	}
	if len(dims) != 2 {
		return nil, fmt.Errorf("expected [n, strlen] char matrix, got %dD", len(dims))
	}
	n, strlen := dims[0], dims[1]
	buf := make([]byte, n*strlen)
	if err := v.ReadBytes(buf); err != nil {
		return nil, fmt.Errorf("failed to read char matrix: %w", err)
	}
	out := make([]string, n)
	for i := uint64(0); i < n; i++ {
		raw := buf[i*strlen : (i+1)*strlen]
		out[i] = strings.TrimRight(strings.TrimRight(string(raw), "\x00"), " ")
	}
	return out, nil
}

// ReadTimes reads a CF time axis: numeric values plus a units attribute
// of the form "<unit> since <epoch>". Timestamps are rounded to the
// nearest minute; sub-minute jitter between consecutive output files is
// noise from the writers, not signal.
func ReadTimes(v netcdf.Var) ([]time.Time, error) {
	vals, err := Read1D(v)
	if err != nil {
		return nil, err
	}
	epoch, step, err := timeUnits(v)
	if err != nil {
		return nil, err
	}
	out := make([]time.Time, len(vals))
	for i, val := range vals {
		out[i] = epoch.Add(time.Duration(val * float64(step))).Round(time.Minute)
	}
	return out, nil
}

// timeUnits parses the CF units attribute into an epoch and a unit
// duration.
func timeUnits(v netcdf.Var) (time.Time, time.Duration, error) {
	a := v.Attr("units")
	if a == (netcdf.Attr{}) {
		return time.Time{}, 0, fmt.Errorf("time variable has no units attribute")
	}
	n, err := a.Len()
	if err != nil {
		return time.Time{}, 0, fmt.Errorf("failed to get units length: %w", err)
	}
	buf := make([]byte, n)
	if err := a.ReadBytes(buf); err != nil {
		return time.Time{}, 0, fmt.Errorf("failed to read units: %w", err)
	}
	units := strings.TrimRight(string(buf), "\x00")

	parts := strings.SplitN(units, " since ", 2)
	if len(parts) != 2 {
		return time.Time{}, 0, fmt.Errorf("unparseable time units %q", units)
	}

	var step time.Duration
	switch strings.ToLower(strings.TrimSpace(parts[0])) {
	case "seconds", "second", "secs", "sec", "s":
		step = time.Second
	case "minutes", "minute", "mins", "min":
		step = time.Minute
	case "hours", "hour", "hrs", "hr", "h":
		step = time.Hour
	case "days", "day", "d":
		step = 24 * time.Hour
	default:
		return time.Time{}, 0, fmt.Errorf("unsupported time unit in %q", units)
	}

	epochStr := strings.TrimSpace(parts[1])
	epochStr = strings.TrimSuffix(epochStr, " UTC")
	var epoch time.Time
	var perr error
	for _, layout := range []string{
		"2006-01-02 15:04:05",
		"2006-01-02T15:04:05Z",
		"2006-01-02T15:04:05",
		"2006-01-02 15:04",
		"2006-01-02",
	} {
		epoch, perr = time.ParseInLocation(layout, epochStr, time.UTC)
		if perr == nil {
			return epoch, step, nil
		}
	}
	return time.Time{}, 0, fmt.Errorf("unparseable time epoch %q: %w", epochStr, perr)
}
