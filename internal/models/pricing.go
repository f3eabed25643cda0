package models

import (
	"time"
)

// VehicleTypeAll marks a pricing rule that applies to every vehicle type.
const VehicleTypeAll = "all"

// PricingConfig is the rate triple of one vehicle type.
type PricingConfig struct {
	VehicleType    string    `db:"vehicle_type" json:"vehicle_type"`
	BaseFare       float64   `db:"base_fare" json:"base_fare"`
	PricePerKm     float64   `db:"price_per_km" json:"price_per_km"`
	PricePerMinute float64   `db:"price_per_minute" json:"price_per_minute"`
	IsActive       bool      `db:"is_active" json:"is_active"`
	Version        int       `db:"version" json:"version"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// PricingRule is a named multiplier with an optional activation window.
// StartTime and EndTime use the "HH:MM" format; DaysOfWeek uses 0 for Sunday.
type PricingRule struct {
	ID          string  `db:"id" json:"id"`
	Name        string  `db:"name" json:"name" validate:"required"`
	Multiplier  float64 `db:"multiplier" json:"multiplier" validate:"gt=0"`
	VehicleType string  `db:"vehicle_type" json:"vehicle_type" validate:"required"`
	StartTime   *string `db:"start_time" json:"start_time,omitempty"`
	EndTime     *string `db:"end_time" json:"end_time,omitempty"`
	DaysOfWeek  []int   `db:"-" json:"days_of_week,omitempty"`
	IsHoliday   bool    `db:"is_holiday" json:"is_holiday"`
	IsActive    bool    `db:"is_active" json:"is_active"`
}

type UpdatePricingConfigRequest struct {
	BaseFare       float64 `json:"base_fare" validate:"gte=0"`
	PricePerKm     float64 `json:"price_per_km" validate:"gte=0"`
	PricePerMinute float64 `json:"price_per_minute" validate:"gte=0"`
	IsActive       bool    `json:"is_active"`
}

type PriceRequest struct {
	VehicleType     string     `json:"vehicle_type" validate:"required"`
	DistanceKm      float64    `json:"distance_km" validate:"gte=0"`
	DurationMinutes float64    `json:"duration_minutes" validate:"gte=0"`
	IsElderly       bool       `json:"is_elderly"`
	HasDisability   bool       `json:"has_disability"`
	ReferenceTime   *time.Time `json:"reference_time,omitempty"`
}

type PriceBreakdown struct {
	BasePrice         float64  `json:"base_price"`
	DistancePrice     float64  `json:"distance_price"`
	TimePrice         float64  `json:"time_price"`
	MultiplierApplied float64  `json:"multiplier_applied"`
	DiscountApplied   float64  `json:"discount_applied"`
	FinalPrice        float64  `json:"final_price"`
	AppliedRules      []string `json:"applied_rules"`
}
