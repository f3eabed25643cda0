package models

import (
	"time"
)

// Verification status constants
const (
	VerificationPending  = "pending"
	VerificationApproved = "approved"
	VerificationRejected = "rejected"
)

// Vehicle types
const (
	VehicleTypeEconomico = "economico"
	VehicleTypeConforto  = "conforto"
	VehicleTypeAcessivel = "acessivel"
)

type Driver struct {
	ID                 string     `db:"id" json:"id"`
	Name               string     `db:"name" json:"name"`
	Phone              string     `db:"phone" json:"phone"`
	IsAvailable        bool       `db:"is_available" json:"is_available"`
	CurrentLat         *float64   `db:"current_lat" json:"current_lat,omitempty"`
	CurrentLng         *float64   `db:"current_lng" json:"current_lng,omitempty"`
	Rating             float64    `db:"rating" json:"rating"`
	TotalRides         int        `db:"total_rides" json:"total_rides"`
	VehicleMake        string     `db:"vehicle_make" json:"vehicle_make"`
	VehicleModel       string     `db:"vehicle_model" json:"vehicle_model"`
	VehiclePlate       string     `db:"vehicle_plate" json:"vehicle_plate"`
	VehicleType        string     `db:"vehicle_type" json:"vehicle_type"`
	VehicleColor       string     `db:"vehicle_color" json:"vehicle_color"`
	VerificationStatus string     `db:"verification_status" json:"verification_status"`
	LicenseExpiresAt   *time.Time `db:"license_expires_at" json:"license_expires_at,omitempty"`
	LastLocationAt     *time.Time `db:"last_location_at" json:"last_location_at,omitempty"`
	CreatedAt          time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time  `db:"updated_at" json:"updated_at"`
}

type UpdateDriverLocationRequest struct {
	Lat      float64  `json:"lat" validate:"latitude"`
	Lng      float64  `json:"lng" validate:"longitude"`
	Heading  *float64 `json:"heading,omitempty"`
	Speed    *float64 `json:"speed,omitempty"`
	Accuracy *float64 `json:"accuracy,omitempty"`
	// GeoErrorCode is set instead of coordinates when the device failed to locate itself.
	GeoErrorCode *int `json:"geo_error_code,omitempty"`
}

type SetAvailabilityRequest struct {
	IsAvailable bool `json:"is_available"`
}

type VerifyDriverRequest struct {
	Status string `json:"status" validate:"required,oneof=approved rejected pending"`
}

// HasLocation reports whether the driver has last-known coordinates.
func (d *Driver) HasLocation() bool {
	return d.CurrentLat != nil && d.CurrentLng != nil
}

func IsValidVehicleType(vt string) bool {
	return vt == VehicleTypeEconomico || vt == VehicleTypeConforto || vt == VehicleTypeAcessivel
}
