package models

import (
	"time"
)

// Profile roles
const (
	RolePatient = "patient"
	RoleDriver  = "driver"
	RoleAdmin   = "admin"
)

type Profile struct {
	ID            string    `db:"id" json:"id"`
	FullName      string    `db:"full_name" json:"full_name"`
	Phone         string    `db:"phone" json:"phone"`
	Role          string    `db:"role" json:"role"`
	IsElderly     bool      `db:"is_elderly" json:"is_elderly"`
	HasDisability bool      `db:"has_disability" json:"has_disability"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

type UpdateProfileRequest struct {
	FullName      *string `json:"full_name,omitempty" validate:"omitempty,min=2,max=100"`
	Phone         *string `json:"phone,omitempty" validate:"omitempty,min=10,max=15"`
	IsElderly     *bool   `json:"is_elderly,omitempty"`
	HasDisability *bool   `json:"has_disability,omitempty"`
}
