package util

import "math"

const earthRadiusKm = 6371.0

// HaversineKm returns the great-circle distance between two lat/lng points in km.
func HaversineKm(lat1, lng1, lat2, lng2 float64) float64 {
	lat1Rad := lat1 * math.Pi / 180
	lat2Rad := lat2 * math.Pi / 180
	dLat := (lat2 - lat1) * math.Pi / 180
	dLng := (lng2 - lng1) * math.Pi / 180

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1Rad)*math.Cos(lat2Rad)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return earthRadiusKm * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

// BoundingBox returns the lat/lng rectangle enclosing a circle of radiusKm around the point.
// The box is a superset of the circle; callers post-filter with HaversineKm.
func BoundingBox(lat, lng, radiusKm float64) (minLat, maxLat, minLng, maxLng float64) {
	dLat := radiusKm / 111.0
	cos := math.Cos(lat * math.Pi / 180)
	dLng := 180.0
	if cos > 1e-9 {
		dLng = math.Min(180, radiusKm/(111.0*cos))
	}
	return lat - dLat, lat + dLat, lng - dLng, lng + dLng
}

// Round rounds v to the given number of decimal places.
func Round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
