package models

import (
	"time"
)

// Ride status constants
const (
	RideStatusRequested  = "requested"
	RideStatusAccepted   = "accepted"
	RideStatusInProgress = "in_progress"
	RideStatusCompleted  = "completed"
	RideStatusCancelled  = "cancelled"
)

// Valid ride state transitions
var ValidRideTransitions = map[string][]string{
	RideStatusRequested:  {RideStatusAccepted, RideStatusCancelled},
	RideStatusAccepted:   {RideStatusInProgress, RideStatusCancelled},
	RideStatusInProgress: {RideStatusCompleted, RideStatusCancelled},
	RideStatusCompleted:  {},
	RideStatusCancelled:  {},
}

// Urgency levels
const (
	UrgencyLow    = "low"
	UrgencyMedium = "medium"
	UrgencyHigh   = "high"
)

type Location struct {
	Lat     float64 `json:"lat" validate:"latitude"`
	Lng     float64 `json:"lng" validate:"longitude"`
	Address string  `json:"address,omitempty"`
}

type Ride struct {
	ID                 string     `db:"id" json:"id"`
	PatientID          string     `db:"patient_id" json:"patient_id"`
	DriverID           *string    `db:"driver_id" json:"driver_id,omitempty"`
	OriginLat          float64    `db:"origin_lat" json:"origin_lat"`
	OriginLng          float64    `db:"origin_lng" json:"origin_lng"`
	OriginAddress      string     `db:"origin_address" json:"origin_address"`
	DestinationLat     float64    `db:"destination_lat" json:"destination_lat"`
	DestinationLng     float64    `db:"destination_lng" json:"destination_lng"`
	DestinationAddress string     `db:"destination_address" json:"destination_address"`
	Status             string     `db:"status" json:"status"`
	VehicleType        string     `db:"vehicle_type" json:"vehicle_type"`
	Urgency            string     `db:"urgency" json:"urgency"`
	Price              *float64   `db:"price" json:"price,omitempty"`
	DistanceKm         *float64   `db:"distance_km" json:"distance_km,omitempty"`
	DurationMinutes    *int       `db:"duration_minutes" json:"duration_minutes,omitempty"`
	Notes              *string    `db:"notes" json:"notes,omitempty"`
	MedicalNotes       *string    `db:"medical_notes" json:"medical_notes,omitempty"`
	AppointmentType    *string    `db:"appointment_type" json:"appointment_type,omitempty"`
	ScheduledFor       *time.Time `db:"scheduled_for" json:"scheduled_for,omitempty"`
	CancellationReason *string    `db:"cancellation_reason" json:"cancellation_reason,omitempty"`
	ServiceRating      *int       `db:"service_rating" json:"service_rating,omitempty"`
	DriverRating       *int       `db:"driver_rating" json:"driver_rating,omitempty"`
	AcceptedAt         *time.Time `db:"accepted_at" json:"accepted_at,omitempty"`
	StartedAt          *time.Time `db:"started_at" json:"started_at,omitempty"`
	CompletedAt        *time.Time `db:"completed_at" json:"completed_at,omitempty"`
	CancelledAt        *time.Time `db:"cancelled_at" json:"cancelled_at,omitempty"`
	CreatedAt          time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time  `db:"updated_at" json:"updated_at"`
}

// RideRequest is what a patient submits to request transport.
type RideRequest struct {
	PatientID       string     `json:"patient_id" validate:"required"`
	Origin          Location   `json:"origin" validate:"required"`
	Destination     Location   `json:"destination" validate:"required"`
	VehicleType     string     `json:"vehicle_type" validate:"required,oneof=economico conforto acessivel"`
	Urgency         string     `json:"urgency,omitempty" validate:"omitempty,oneof=low medium high"`
	DriverID        string     `json:"driver_id,omitempty"`
	DurationMinutes *int       `json:"duration_minutes,omitempty" validate:"omitempty,min=0"`
	ScheduledFor    *time.Time `json:"scheduled_for,omitempty"`
	Notes           string     `json:"notes,omitempty" validate:"max=500"`
	MedicalNotes    string     `json:"medical_notes,omitempty" validate:"max=1000"`
	AppointmentType string     `json:"appointment_type,omitempty"`
}

type UpdateRideStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=requested accepted in_progress completed cancelled"`
	Reason string `json:"reason,omitempty"`
}

type AcceptRideRequest struct {
	DriverID string `json:"driver_id" validate:"required"`
}

type CancelRideRequest struct {
	Reason string `json:"reason,omitempty" validate:"max=500"`
}

type RateRideRequest struct {
	ServiceRating int `json:"service_rating" validate:"required,min=1,max=5"`
	DriverRating  int `json:"driver_rating" validate:"required,min=1,max=5"`
}

// RideResult is returned by ride creation; Offline is set when the
// ride was stored in the sync queue instead of the database.
type RideResult struct {
	Ride     *Ride           `json:"ride"`
	Price    *PriceBreakdown `json:"price,omitempty"`
	Warnings []string        `json:"warnings,omitempty"`
	Offline  bool            `json:"offline"`
}

// CanTransitionTo checks if a ride can transition to a new status
func (r *Ride) CanTransitionTo(newStatus string) bool {
	return CanTransition(r.Status, newStatus)
}

// CanTransition reports whether from -> to is an edge of the status graph.
func CanTransition(from, to string) bool {
	validNextStates, exists := ValidRideTransitions[from]
	if !exists {
		return false
	}

	for _, state := range validNextStates {
		if state == to {
			return true
		}
	}
	return false
}

// IsActive returns true if the ride is not in a terminal state
func (r *Ride) IsActive() bool {
	return !IsTerminalStatus(r.Status)
}

func IsTerminalStatus(status string) bool {
	return status == RideStatusCompleted || status == RideStatusCancelled
}

func IsValidRideStatus(status string) bool {
	_, ok := ValidRideTransitions[status]
	return ok
}

// Origin returns the pickup point as a Location.
func (r *Ride) Origin() Location {
	return Location{Lat: r.OriginLat, Lng: r.OriginLng, Address: r.OriginAddress}
}

// Destination returns the drop-off point as a Location.
func (r *Ride) Destination() Location {
	return Location{Lat: r.DestinationLat, Lng: r.DestinationLng, Address: r.DestinationAddress}
}

// RideHistoryEntry is appended to ride_history on every terminal transition.
type RideHistoryEntry struct {
	ID         int64     `db:"id" json:"id"`
	RideID     string    `db:"ride_id" json:"ride_id"`
	PatientID  string    `db:"patient_id" json:"patient_id"`
	DriverID   *string   `db:"driver_id" json:"driver_id,omitempty"`
	Status     string    `db:"status" json:"status"`
	Price      *float64  `db:"price" json:"price,omitempty"`
	DistanceKm *float64  `db:"distance_km" json:"distance_km,omitempty"`
	RecordedAt time.Time `db:"recorded_at" json:"recorded_at"`
}
