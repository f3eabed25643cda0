package models

import (
	"encoding/json"
	"time"
)

// Pending operation types
const (
	OperationCreate = "create"
	OperationUpdate = "update"
	OperationDelete = "delete"
)

// PendingOperation is a remote mutation waiting for connectivity.
type PendingOperation struct {
	ID         string          `json:"id"`
	Type       string          `json:"type" validate:"required,oneof=create update delete"`
	Table      string          `json:"table" validate:"required"`
	RecordID   string          `json:"record_id,omitempty"`
	Data       json.RawMessage `json:"data,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
	RetryCount int             `json:"retry_count"`
	LastError  string          `json:"last_error,omitempty"`
}

// OfflineRide is a ride mirrored locally before it reaches the database.
type OfflineRide struct {
	Ride
	IsOffline   bool   `json:"is_offline"`
	OperationID string `json:"operation_id"`
}

// SyncReport summarises one drain of the pending operation queue.
type SyncReport struct {
	Skipped   bool `json:"skipped"`
	Attempted int  `json:"attempted"`
	Succeeded int  `json:"succeeded"`
	Failed    int  `json:"failed"`
	Dropped   int  `json:"dropped"`
	Remaining int  `json:"remaining"`
}
