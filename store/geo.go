package store

import "math"

const earthRadiusKm = 6371.0

// HaversineKm is the great-circle distance between two points in km.
func HaversineKm(lat1, lng1, lat2, lng2 float64) float64 {
	dLat := radians(lat2 - lat1)
	dLng := radians(lng2 - lng1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(radians(lat1))*math.Cos(radians(lat2))*
			math.Sin(dLng/2)*math.Sin(dLng/2)
	return earthRadiusKm * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

// BoundingBox returns the lat/lng window enclosing a circle of radiusKm
// around a point. The longitude delta widens with latitude.
func BoundingBox(lat, lng, radiusKm float64) (minLat, maxLat, minLng, maxLng float64) {
	latDelta := radiusKm / 111.0
	lngDelta := radiusKm / (111.0 * math.Cos(radians(lat)))
	return lat - latDelta, lat + latDelta, lng - lngDelta, lng + lngDelta
}

func radians(deg float64) float64 { return deg * math.Pi / 180 }
