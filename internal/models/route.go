package models

// Distance sources
const (
	DistanceSourceDatabase  = "calculate_distance"
	DistanceSourceHaversine = "haversine"
)

type RouteRequest struct {
	Origin      Location `json:"origin" validate:"required"`
	Destination Location `json:"destination" validate:"required"`
}

type RouteEstimate struct {
	DistanceKm      float64 `json:"distance_km"`
	DurationMinutes int     `json:"duration_minutes"`
	Source          string  `json:"source"`
}
