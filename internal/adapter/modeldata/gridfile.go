package modeldata

import (
	"fmt"

	"go.ngs.io/ofs-skill/internal/adapter/grid"
	"go.ngs.io/ofs-skill/internal/adapter/nc"
	"go.ngs.io/ofs-skill/internal/domain"
)

// LoadGrid builds the grid adapter for one system from a model output
// file. Fields files carry the full grid arrays; stations files only
// carry the output points, so they get their own reader regardless of
// the parent family. Leveled stations output still holds the full node
// list and goes through the mesh reader.
func LoadGrid(path string, p domain.Profile, kind domain.FileKind) (grid.Adapter, error) {
	if kind == domain.FileStations && p.Family != domain.FamilyUnstructuredLeveled {
		return LoadStationsGrid(path, p)
	}
	switch p.Family {
	case domain.FamilyCurvilinear:
		return LoadCurvilinear(path)
	case domain.FamilyUnstructuredNodal:
		return LoadNodal(path)
	case domain.FamilyUnstructuredLeveled:
		return LoadLeveled(path)
	}
	return nil, fmt.Errorf("no grid reader for family %v", p.Family)
}

// LoadStationsGrid reads the sparse geometry of a stations output
// file: one coordinate per output point, stored either 1-D per point
// or 2-D [time, point] with the coordinates repeated every record.
// Curvilinear streams carry the parent grid cell of each point; sigma
// streams may carry bathymetry and fractions for vertical placement.
func LoadStationsGrid(path string, p domain.Profile) (*grid.Stations, error) {
	ds, err := nc.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = ds.Close() }()

	lat, err := readStationCoordinate(ds, "lat_rho", "lat", "latitude", "y")
	if err != nil {
		return nil, fmt.Errorf("station latitude: %w", err)
	}
	lon, err := readStationCoordinate(ds, "lon_rho", "lon", "longitude", "x")
	if err != nil {
		return nil, fmt.Errorf("station longitude: %w", err)
	}
	if len(lon) != len(lat) {
		return nil, fmt.Errorf("station coordinates disagree: %d lat, %d lon", len(lat), len(lon))
	}

	rows, cols, err := readStationGridIndices(ds, len(lat))
	if err != nil {
		return nil, err
	}

	return grid.NewStations(p.Family, lat, lon, stationDepthProfiles(ds, len(lat)), rows, cols)
}

// readStationCoordinate reads one coordinate axis of a stations file.
// Some systems write the per-point coordinates once; others repeat them
// every time record, where the first record can hold fill values from
// model spin-up and the second is the one to trust.
func readStationCoordinate(ds nc.Dataset, names ...string) ([]float64, error) {
	v, _, err := nc.FindVar(ds, names...)
	if err != nil {
		return nil, err
	}
	dims, err := nc.Dims(v)
	if err != nil {
		return nil, err
	}
	switch len(dims) {
	case 1:
		return nc.Read1D(v)
	case 2:
		record := uint64(0)
		if dims[0] > 1 {
			record = 1
		}
		return nc.ReadSlice(v, []uint64{record, 0}, []uint64{1, dims[1]})
	}
	return nil, fmt.Errorf("coordinate is %dD, want 1D or [time, station]", len(dims))
}

// readStationGridIndices reads the parent grid cell of each output
// point. Only curvilinear stations files carry them; their absence is
// not an error, it just leaves conversion-field sampling without a
// cell to address.
func readStationGridIndices(ds nc.Dataset, n int) (rows, cols []int, err error) {
	jVar, _, jErr := nc.FindVar(ds, "Jpos", "jpos")
	iVar, _, iErr := nc.FindVar(ds, "Ipos", "ipos")
	if jErr != nil || iErr != nil {
		return nil, nil, nil
	}
	j, err := nc.Read1D(jVar)
	if err != nil {
		return nil, nil, fmt.Errorf("station grid rows: %w", err)
	}
	i, err := nc.Read1D(iVar)
	if err != nil {
		return nil, nil, fmt.Errorf("station grid columns: %w", err)
	}
	if len(j) != n || len(i) != n {
		return nil, nil, fmt.Errorf("grid indices cover %d/%d points, want %d", len(j), len(i), n)
	}
	rows = make([]int, n)
	cols = make([]int, n)
	for k := range j {
		rows[k] = int(j[k])
		cols[k] = int(i[k])
	}
	return rows, cols, nil
}

// stationDepthProfiles builds per-point elevations from bathymetry and
// sigma fractions when the stream carries both. Streams without them
// are surface-only and return nil.
func stationDepthProfiles(ds nc.Dataset, n int) [][]float64 {
	hVar, _, err := nc.FindVar(ds, "h")
	if err != nil {
		return nil
	}
	h, err := nc.Read1D(hVar)
	if err != nil || len(h) != n {
		return nil
	}

	var frac []float64
	if sigLay, _, err := readSigma(ds); err == nil {
		frac = sigLay
	} else if v, _, err := nc.FindVar(ds, "s_rho"); err == nil {
		if frac, err = nc.Read1D(v); err != nil {
			return nil
		}
	}
	if len(frac) == 0 {
		return nil
	}

	out := make([][]float64, n)
	for i := range out {
		prof := make([]float64, len(frac))
		for k, f := range frac {
			prof[k] = f * h[i]
		}
		out[i] = prof
	}
	return out
}

// LoadCurvilinear reads a rho-grid definition: coordinates, land mask,
// bathymetry, rotation angle and sigma fractions.
func LoadCurvilinear(path string) (*grid.Curvilinear, error) {
	ds, err := nc.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = ds.Close() }()

	read2 := func(names ...string) ([][]float64, error) {
		v, _, err := nc.FindVar(ds, names...)
		if err != nil {
			return nil, err
		}
		return nc.Read2D(v)
	}

	lat, err := read2("lat_rho", "lat")
	if err != nil {
		return nil, fmt.Errorf("grid latitude: %w", err)
	}
	lon, err := read2("lon_rho", "lon")
	if err != nil {
		return nil, fmt.Errorf("grid longitude: %w", err)
	}
	mask, err := read2("mask_rho", "mask")
	if err != nil {
		return nil, fmt.Errorf("land mask: %w", err)
	}
	depth, err := read2("h")
	if err != nil {
		return nil, fmt.Errorf("bathymetry: %w", err)
	}

	// The rotation angle is optional; unrotated grids simply omit it.
	var angle [][]float64
	if nc.HasVar(ds, "angle") {
		if angle, err = read2("angle"); err != nil {
			return nil, fmt.Errorf("grid angle: %w", err)
		}
	}

	var sigma []float64
	if v, _, err := nc.FindVar(ds, "s_rho"); err == nil {
		if sigma, err = nc.Read1D(v); err != nil {
			return nil, fmt.Errorf("sigma fractions: %w", err)
		}
	}

	return grid.NewCurvilinear(lat, lon, mask, depth, angle, sigma)
}

// LoadNodal reads a triangular mesh: node and element-center
// coordinates, connectivity, bathymetry and sigma arrays. Meshes that
// omit the sigma variables get uniform spacing from the layer
// dimension.
func LoadNodal(path string) (*grid.Nodal, error) {
	ds, err := nc.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = ds.Close() }()

	read1 := func(names ...string) ([]float64, error) {
		v, _, err := nc.FindVar(ds, names...)
		if err != nil {
			return nil, err
		}
		return nc.Read1D(v)
	}

	lat, err := read1("lat")
	if err != nil {
		return nil, fmt.Errorf("node latitude: %w", err)
	}
	lon, err := read1("lon")
	if err != nil {
		return nil, fmt.Errorf("node longitude: %w", err)
	}
	latC, err := read1("latc")
	if err != nil {
		return nil, fmt.Errorf("element latitude: %w", err)
	}
	lonC, err := read1("lonc")
	if err != nil {
		return nil, fmt.Errorf("element longitude: %w", err)
	}
	depth, err := read1("h")
	if err != nil {
		return nil, fmt.Errorf("bathymetry: %w", err)
	}

	tris, err := readConnectivity(ds)
	if err != nil {
		return nil, err
	}

	sigLay, sigLev, err := readSigma(ds)
	if err != nil {
		return nil, err
	}

	return grid.NewNodal(lat, lon, latC, lonC, tris, depth, sigLay, sigLev)
}

// readConnectivity reads the nv element table, stored [3, nele] with
// one-based vertex indices.
func readConnectivity(ds nc.Dataset) ([][3]int, error) {
	v, _, err := nc.FindVar(ds, "nv")
	if err != nil {
		return nil, fmt.Errorf("element connectivity: %w", err)
	}
	nv, err := nc.Read2D(v)
	if err != nil {
		return nil, fmt.Errorf("element connectivity: %w", err)
	}
	if len(nv) != 3 {
		return nil, fmt.Errorf("element connectivity has %d vertex rows, want 3", len(nv))
	}
	ne := len(nv[0])
	tris := make([][3]int, ne)
	for e := 0; e < ne; e++ {
		for k := 0; k < 3; k++ {
			tris[e][k] = int(nv[k][e]) - 1
		}
	}
	return tris, nil
}

// readSigma reads the siglay/siglev fractions. They are stored per
// node but uniform across the mesh, so the first node's column stands
// for all. Outputs without the variables fall back to uniform spacing
// over the siglev dimension.
func readSigma(ds nc.Dataset) (sigLay, sigLev []float64, err error) {
	readCol := func(name string) ([]float64, error) {
		v, _, err := nc.FindVar(ds, name)
		if err != nil {
			return nil, err
		}
		dims, err := nc.Dims(v)
		if err != nil {
			return nil, err
		}
		switch len(dims) {
		case 1:
			return nc.Read1D(v)
		case 2:
			return nc.ReadSlice(v, []uint64{0, 0}, []uint64{dims[0], 1})
		}
		return nil, fmt.Errorf("%s is %dD, want 1D or 2D", name, len(dims))
	}

	sigLay, layErr := readCol("siglay")
	sigLev, levErr := readCol("siglev")
	if layErr == nil && levErr == nil {
		return sigLay, sigLev, nil
	}

	dim, err := ds.Dim("siglev")
	if err != nil {
		return nil, nil, fmt.Errorf("mesh has no sigma variables and no siglev dimension")
	}
	kb, err := dim.Len()
	if err != nil {
		return nil, nil, err
	}
	sigLev, sigLay, err = grid.UniformSigma(int(kb))
	if err != nil {
		return nil, nil, err
	}
	return sigLay, sigLev, nil
}

// LoadLeveled reads a leveled mesh from a 2-D output file plus, when
// present, the first record of its z-coordinate companion. Nodes
// without a usable z profile keep NaN levels.
func LoadLeveled(path string) (*grid.Leveled, error) {
	ds, err := nc.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = ds.Close() }()

	latVar, _, err := nc.FindVar(ds, "SCHISM_hgrid_node_y", "lat", "y")
	if err != nil {
		return nil, fmt.Errorf("node latitude: %w", err)
	}
	lonVar, _, err := nc.FindVar(ds, "SCHISM_hgrid_node_x", "lon", "x")
	if err != nil {
		return nil, fmt.Errorf("node longitude: %w", err)
	}
	lat, err := nc.Read1D(latVar)
	if err != nil {
		return nil, err
	}
	lon, err := nc.Read1D(lonVar)
	if err != nil {
		return nil, err
	}

	levels, err := readLeveledZ(ds, len(lat))
	if err != nil {
		return nil, err
	}

	var names []string
	if v, _, err := nc.FindVar(ds, "station_name"); err == nil {
		if names, err = nc.ReadStrings(v); err != nil {
			return nil, fmt.Errorf("station names: %w", err)
		}
	}

	return grid.NewLeveled(lat, lon, levels, names)
}

// readLeveledZ reads the first record of the explicit z coordinates,
// [time, node, layer]. Files without them get one-level zero profiles,
// which serve the surface-only stations streams.
func readLeveledZ(ds nc.Dataset, nodes int) ([][]float64, error) {
	v, _, err := nc.FindVar(ds, "zCoordinates", "zcor")
	if err != nil {
		out := make([][]float64, nodes)
		for i := range out {
			out[i] = []float64{0}
		}
		return out, nil
	}

	dims, err := nc.Dims(v)
	if err != nil {
		return nil, err
	}
	if len(dims) != 3 || int(dims[1]) != nodes {
		return nil, fmt.Errorf("z coordinates are %v, want [time, %d, layers]", dims, nodes)
	}
	flat, err := nc.ReadSlice(v, []uint64{0, 0, 0}, []uint64{1, dims[1], dims[2]})
	if err != nil {
		return nil, fmt.Errorf("z coordinates: %w", err)
	}
	return nc.Reshape2D(flat, int(dims[1]), int(dims[2])), nil
}
