package types

import "math"

const earthRadiusKm = 6371.0

// TrackStats are aggregates derived from the full point sequence on demand.
type TrackStats struct {
	DistanceKm      float64
	DurationMinutes float64
	ElevationGain   float64
}

// Stats walks the point sequence and computes distance, duration and
// elevation gain. An empty or single-point track yields zero stats.
func (t *Track) Stats() TrackStats {
	var stats TrackStats
	if len(t.Points) < 2 {
		return stats
	}

	for i := 1; i < len(t.Points); i++ {
		prev, cur := t.Points[i-1], t.Points[i]
		stats.DistanceKm += haversineKm(prev.Latitude, prev.Longitude, cur.Latitude, cur.Longitude)
		if climb := cur.Altitude - prev.Altitude; climb > 0 {
			stats.ElevationGain += climb
		}
	}

	first, last := t.Points[0], t.Points[len(t.Points)-1]
	stats.DurationMinutes = float64(last.Timestamp-first.Timestamp) / 1000.0 / 60.0

	return stats
}

// haversineKm returns the great-circle distance between two coordinates.
func haversineKm(lat1, lng1, lat2, lng2 float64) float64 {
	dLat := (lat2 - lat1) * math.Pi / 180.0
	dLng := (lng2 - lng1) * math.Pi / 180.0

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*math.Pi/180.0)*math.Cos(lat2*math.Pi/180.0)*
			math.Sin(dLng/2)*math.Sin(dLng/2)

	return earthRadiusKm * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}
