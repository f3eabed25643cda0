package utils

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	apperrors "github.com/pwendlys/viaja-mais/internal/errors"
)

func TestIsValidRideID(t *testing.T) {
	tests := []struct {
		id   string
		want bool
	}{
		{"7c9e6679-7425-40de-944b-e07fc1f90ae7", true},
		{"offline_7c9e6679-7425-40de-944b-e07fc1f90ae7", true},
		{"offline_", false},
		{"r1", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := IsValidRideID(tt.id); got != tt.want {
			t.Errorf("IsValidRideID(%q) = %v, want %v", tt.id, got, tt.want)
		}
	}
}

func TestEnvelope(t *testing.T) {
	rec := httptest.NewRecorder()
	Envelope(rec, map[string]int{"n": 1})

	var resp struct {
		Success bool           `json:"success"`
		Data    map[string]int `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if rec.Code != http.StatusOK || !resp.Success || resp.Data["n"] != 1 {
		t.Errorf("got %d %+v", rec.Code, resp)
	}
}

func TestEnvelopeError(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantStatus  int
		wantCode    string
		wantDetails int
	}{
		{"api error", apperrors.UnknownAction("ride-management", "fly"), http.StatusBadRequest, "unknown_action", 0},
		{"validation", apperrors.Validation([]string{"a", "b"}, nil), http.StatusUnprocessableEntity, "validation_failed", 2},
		{"unexpected", errors.New("boom"), http.StatusInternalServerError, "internal_error", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			EnvelopeError(rec, tt.err)

			var resp Response
			if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
				t.Fatal(err)
			}
			if rec.Code != tt.wantStatus || resp.Success || resp.Error == nil {
				t.Fatalf("got %d %+v", rec.Code, resp)
			}
			if resp.Error.Code != tt.wantCode || len(resp.Error.Details) != tt.wantDetails {
				t.Errorf("error = %+v", resp.Error)
			}
		})
	}
}
