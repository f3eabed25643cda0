package utils

import (
	"strings"

	"github.com/google/uuid"
	"github.com/pwendlys/viaja-mais/internal/offline"
)

// IsValidUUID checks if a string is a valid UUID
func IsValidUUID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// IsValidRideID accepts database ids and the temporary ids of rides
// created while offline.
func IsValidRideID(id string) bool {
	return IsValidUUID(strings.TrimPrefix(id, offline.OfflineIDPrefix))
}
