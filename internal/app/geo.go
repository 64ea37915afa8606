package app

import (
	"math"
	"sort"
)

const earthRadiusKm = 6371.0

// haversineKm is the great-circle distance between two coordinates.
func haversineKm(lat1, lng1, lat2, lng2 float64) float64 {
	toRad := func(deg float64) float64 { return deg * math.Pi / 180 }
	dLat := toRad(lat2 - lat1)
	dLng := toRad(lng2 - lng1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*
			math.Sin(dLng/2)*math.Sin(dLng/2)
	return earthRadiusKm * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

type NearbyPost struct {
	Post       Post    `json:"post"`
	DistanceKm float64 `json:"distance_km"`
}

// NearbyPosts finds published, geotagged posts within radiusKm of a
// point, closest first. The bounding-box prefilter keeps the haversine
// pass off the bulk of the table.
func (s *Store) NearbyPosts(lat, lng, radiusKm float64, limit int) ([]NearbyPost, error) {
	if radiusKm <= 0 {
		radiusKm = 50
	}
	if limit <= 0 {
		limit = 20
	}

	latDelta := radiusKm / 111.0
	lngDelta := latDelta
	if cos := math.Cos(lat * math.Pi / 180); cos > 0.01 {
		lngDelta = latDelta / cos
	}

	var posts []Post
	err := s.DB.
		Where("status = ?", PostStatusPublished).
		Where("latitude BETWEEN ? AND ?", lat-latDelta, lat+latDelta).
		Where("longitude BETWEEN ? AND ?", lng-lngDelta, lng+lngDelta).
		Where("latitude <> 0 OR longitude <> 0").
		Find(&posts).Error
	if err != nil {
		return nil, err
	}

	var nearby []NearbyPost
	for _, p := range posts {
		d := haversineKm(lat, lng, p.Latitude, p.Longitude)
		if d <= radiusKm {
			nearby = append(nearby, NearbyPost{Post: p, DistanceKm: math.Round(d*100) / 100})
		}
	}
	sort.Slice(nearby, func(i, j int) bool { return nearby[i].DistanceKm < nearby[j].DistanceKm })
	if len(nearby) > limit {
		nearby = nearby[:limit]
	}
	return nearby, nil
}
