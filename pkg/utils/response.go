package utils

import (
	"encoding/json"
	"net/http"

	apperrors "github.com/pwendlys/viaja-mais/internal/errors"
)

// Response is the envelope remote functions answer with.
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *ErrorInfo  `json:"error,omitempty"`
}

type ErrorInfo struct {
	Code    string   `json:"code"`
	Message string   `json:"message"`
	Details []string `json:"details,omitempty"`
}

// JSON sends a JSON response
func JSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// Success sends a success response
func Success(w http.ResponseWriter, status int, data interface{}) {
	JSON(w, status, data)
}

// Error sends an error response
func Error(w http.ResponseWriter, err *apperrors.APIError) {
	JSON(w, err.StatusCode, map[string]string{
		"error":   err.Code,
		"message": err.Message,
	})
}

// ValidationFailed sends a 422 with every validation message.
func ValidationFailed(w http.ResponseWriter, err *apperrors.ValidationError) {
	JSON(w, http.StatusUnprocessableEntity, map[string]interface{}{
		"error":    "validation_failed",
		"message":  err.Error(),
		"errors":   err.Errors,
		"warnings": err.Warnings,
	})
}

// Envelope sends {"success": true, "data": ...}.
func Envelope(w http.ResponseWriter, data interface{}) {
	JSON(w, http.StatusOK, Response{Success: true, Data: data})
}

// EnvelopeError sends {"success": false, "error": {...}} with the error's status.
func EnvelopeError(w http.ResponseWriter, err error) {
	apiErr := apperrors.ToAPIError(err)
	info := &ErrorInfo{Code: apiErr.Code, Message: apiErr.Message}
	if valErr, ok := err.(*apperrors.ValidationError); ok {
		info.Details = valErr.Errors
	}
	JSON(w, apiErr.StatusCode, Response{Success: false, Error: info})
}

// BadRequest sends a 400 error
func BadRequest(w http.ResponseWriter, message string) {
	Error(w, apperrors.BadRequest(message))
}

// NotFound sends a 404 error
func NotFound(w http.ResponseWriter, resource string) {
	Error(w, apperrors.NotFound(resource))
}

// InternalError sends a 500 error
func InternalError(w http.ResponseWriter, message string) {
	Error(w, apperrors.InternalError(message))
}

// Created sends a 201 response
func Created(w http.ResponseWriter, data interface{}) {
	JSON(w, http.StatusCreated, data)
}

// NoContent sends a 204 response
func NoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}
