package domain

import "math"

// Immutable geographic coordinates (longitude, latitude).
type Coordinates struct {
	Lon float64
	Lat float64
}

// Return coordinates as [lon, lat] for external API compatibility.
func (c Coordinates) CoordsToList() []float64 { return []float64{c.Lon, c.Lat} }

const earthRadiusMeters = 6371000

// DistanceMeters returns the great-circle distance to other.
// Used for proximity detection on tracking pings, not for routing.
func (c Coordinates) DistanceMeters(other Coordinates) float64 {
	lat1 := c.Lat * math.Pi / 180
	lat2 := other.Lat * math.Pi / 180
	dLat := (other.Lat - c.Lat) * math.Pi / 180
	dLon := (other.Lon - c.Lon) * math.Pi / 180

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return earthRadiusMeters * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}
