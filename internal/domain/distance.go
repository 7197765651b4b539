package domain

import "math"

const earthRadiusKm = 6371.0

// Deg2Rad converts degrees to radians.
func Deg2Rad(deg float64) float64 {
	return deg * math.Pi / 180.0
}

// Haversine returns the great-circle distance in kilometers between two
// points on a spherical Earth.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	phi1 := Deg2Rad(lat1)
	phi2 := Deg2Rad(lat2)
	dPhi := Deg2Rad(lat2 - lat1)
	dLambda := Deg2Rad(lon2 - lon1)

	a := math.Sin(dPhi/2)*math.Sin(dPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusKm * c
}

// NormalizeLon360 maps a longitude to the [0, 360) convention used for
// all internal comparisons. Model grids arrive in either convention;
// normalizing once at the boundary keeps every distance computation in
// a single frame.
func NormalizeLon360(lon float64) float64 {
	lon = math.Mod(lon, 360)
	if lon < 0 {
		lon += 360
	}
	return lon
}
