package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors
var (
	ErrNotFound       = errors.New("resource not found")
	ErrConflict       = errors.New("resource conflict")
	ErrBadRequest     = errors.New("bad request")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrInternalServer = errors.New("internal server error")

	// Business errors
	ErrNoDriversAvailable   = errors.New("no drivers available")
	ErrRideAlreadyAssigned  = errors.New("ride already assigned")
	ErrInvalidTransition    = errors.New("invalid state transition")
	ErrPatientHasActiveRide = errors.New("patient already has an active ride")
	ErrDriverUnavailable    = errors.New("driver is not available")
	ErrSyncInProgress       = errors.New("sync already in progress")
	ErrUnknownFunction      = errors.New("unknown remote function")
	ErrUnknownAction        = errors.New("unknown function action")
	ErrStoreClosed          = errors.New("local store closed")
)

// APIError represents a structured API error
type APIError struct {
	Code       string `json:"error"`
	Message    string `json:"message"`
	StatusCode int    `json:"-"`
	Err        error  `json:"-"`
}

func (e *APIError) Error() string {
	return e.Message
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// NewAPIError creates a new API error
func NewAPIError(code, message string, statusCode int) *APIError {
	return &APIError{
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
	}
}

func wrap(err error, code, message string, statusCode int) *APIError {
	apiErr := NewAPIError(code, message, statusCode)
	apiErr.Err = err
	return apiErr
}

// Common API errors
func NotFound(resource string) *APIError {
	return wrap(ErrNotFound, "not_found", fmt.Sprintf("%s não encontrado(a)", resource), http.StatusNotFound)
}

func BadRequest(message string) *APIError {
	return wrap(ErrBadRequest, "bad_request", message, http.StatusBadRequest)
}

func Conflict(message string) *APIError {
	return wrap(ErrConflict, "conflict", message, http.StatusConflict)
}

func InternalError(message string) *APIError {
	return wrap(ErrInternalServer, "internal_error", message, http.StatusInternalServerError)
}

func Unauthorized(message string) *APIError {
	return wrap(ErrUnauthorized, "unauthorized", message, http.StatusUnauthorized)
}

func Forbidden(message string) *APIError {
	return wrap(ErrForbidden, "forbidden", message, http.StatusForbidden)
}

func IdempotencyConflict() *APIError {
	return NewAPIError("idempotency_conflict", "chave de idempotência já utilizada com outra requisição", http.StatusConflict)
}

func NoDriversAvailable() *APIError {
	return wrap(ErrNoDriversAvailable, "no_drivers_available", "nenhum motorista encontrado na sua região", http.StatusServiceUnavailable)
}

func RideAlreadyAssigned() *APIError {
	return wrap(ErrRideAlreadyAssigned, "ride_already_assigned", "esta corrida já foi aceita por outro motorista", http.StatusConflict)
}

func InvalidTransition(from, to string) *APIError {
	return wrap(ErrInvalidTransition, "invalid_transition", fmt.Sprintf("transição inválida de %s para %s", from, to), http.StatusBadRequest)
}

func PatientHasActiveRide() *APIError {
	return wrap(ErrPatientHasActiveRide, "active_ride_exists", "você já possui uma corrida ativa", http.StatusConflict)
}

func DriverUnavailable() *APIError {
	return wrap(ErrDriverUnavailable, "driver_unavailable", "motorista indisponível", http.StatusConflict)
}

func UnknownFunction(name string) *APIError {
	return wrap(ErrUnknownFunction, "unknown_function", fmt.Sprintf("função %q não existe", name), http.StatusNotFound)
}

func UnknownAction(function, action string) *APIError {
	return wrap(ErrUnknownAction, "unknown_action", fmt.Sprintf("ação %q não suportada por %s", action, function), http.StatusBadRequest)
}

// ValidationError carries the field-level messages of a failed validation.
type ValidationError struct {
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings,omitempty"`
}

func (e *ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "validação falhou"
	}
	return e.Errors[0]
}

func Validation(errs, warnings []string) *ValidationError {
	return &ValidationError{Errors: errs, Warnings: warnings}
}
