package errors

import (
	"errors"
	"net/http"
)

// ToAPIError maps any service error onto the shape handlers send.
func ToAPIError(err error) *APIError {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}

	var valErr *ValidationError
	if errors.As(err, &valErr) {
		return wrap(err, "validation_failed", valErr.Error(), http.StatusUnprocessableEntity)
	}

	switch {
	case errors.Is(err, ErrNoDriversAvailable):
		return NoDriversAvailable()
	case errors.Is(err, ErrRideAlreadyAssigned):
		return RideAlreadyAssigned()
	case errors.Is(err, ErrPatientHasActiveRide):
		return PatientHasActiveRide()
	case errors.Is(err, ErrDriverUnavailable):
		return DriverUnavailable()
	case errors.Is(err, ErrSyncInProgress):
		return wrap(err, "sync_in_progress", "sincronização já em andamento", http.StatusConflict)
	case errors.Is(err, ErrStoreClosed):
		return wrap(err, "store_closed", "armazenamento local indisponível", http.StatusServiceUnavailable)
	}

	switch kind := Classify(err); kind {
	case KindNetwork:
		return wrap(err, string(kind), UserMessage(kind), http.StatusServiceUnavailable)
	case KindUniqueViolation:
		return wrap(err, string(kind), UserMessage(kind), http.StatusConflict)
	case KindForeignKey:
		return wrap(err, string(kind), UserMessage(kind), http.StatusUnprocessableEntity)
	case KindPermissionDenied:
		return wrap(err, string(kind), UserMessage(kind), http.StatusForbidden)
	case KindSessionExpired:
		return wrap(err, string(kind), UserMessage(kind), http.StatusUnauthorized)
	case KindNotFound:
		return wrap(err, string(kind), UserMessage(kind), http.StatusNotFound)
	}

	return wrap(err, "internal_error", UserMessage(KindUnknown), http.StatusInternalServerError)
}
