package models

import (
	"encoding/json"
	"time"
)

// Notification types
const (
	NotificationRideRequest  = "ride_request"
	NotificationRideAccepted = "ride_accepted"
	NotificationRideStatus   = "ride_status"
	NotificationRowChange    = "row_change"
	NotificationGeneric      = "info"
)

// NotificationPayload is what travels on a broadcast channel.
type NotificationPayload struct {
	Type  string          `json:"type"`
	Title string          `json:"title"`
	Body  string          `json:"body"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type Notification struct {
	ID         string          `json:"id"`
	Channel    string          `json:"channel"`
	Type       string          `json:"type"`
	Title      string          `json:"title"`
	Body       string          `json:"body"`
	Data       json.RawMessage `json:"data,omitempty"`
	ReceivedAt time.Time       `json:"received_at"`
}

// RowChange is a database change event scoped to a user.
type RowChange struct {
	Table     string          `json:"table"`
	Type      string          `json:"type"`
	Record    json.RawMessage `json:"record,omitempty"`
	OldRecord json.RawMessage `json:"old_record,omitempty"`
}

// SendNotificationRequest targets one user or a named channel.
type SendNotificationRequest struct {
	UserID  string          `json:"user_id,omitempty"`
	Channel string          `json:"channel,omitempty"`
	Type    string          `json:"type" validate:"required"`
	Title   string          `json:"title"`
	Message string          `json:"message" validate:"required"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// DashboardMetrics is the admin overview snapshot.
type DashboardMetrics struct {
	RidesByStatus    map[string]int `json:"rides_by_status"`
	AvailableDrivers int            `json:"available_drivers"`
	PendingDrivers   int            `json:"pending_verifications"`
	RevenueToday     float64        `json:"revenue_today"`
	RefreshedAt      time.Time      `json:"refreshed_at"`
}
