package models

// MatchRequest asks for available drivers around an origin.
type MatchRequest struct {
	Origin        Location `json:"origin" validate:"required"`
	Destination   Location `json:"destination"`
	VehicleType   string   `json:"vehicle_type,omitempty"`
	MaxDistanceKm float64  `json:"max_distance_km,omitempty" validate:"gte=0"`
	Urgency       string   `json:"urgency,omitempty" validate:"omitempty,oneof=low medium high"`
}

// DriverMatch is a scored candidate driver for a ride request.
type DriverMatch struct {
	Driver              *Driver `json:"driver"`
	DistanceKm          float64 `json:"distance_km"`
	EstimatedArrivalMin int     `json:"estimated_arrival_min"`
	Score               float64 `json:"score"`
}
