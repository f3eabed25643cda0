package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/pwendlys/viaja-mais/internal/models"
)

var (
	paulista = models.Location{Lat: -23.5614, Lng: -46.6559, Address: "Av. Paulista, 1578 - Bela Vista"}
	hcfmusp  = models.Location{Lat: -23.5572, Lng: -46.6691, Address: "Av. Dr. Enéas Carvalho de Aguiar, 255"}
)

func newTestValidator(rides *fakeRideRepo, drivers *fakeDriverRepo) *validationService {
	return NewValidationService(rides, drivers).(*validationService)
}

func containsMsg(msgs []string, fragment string) bool {
	for _, m := range msgs {
		if strings.Contains(m, fragment) {
			return true
		}
	}
	return false
}

func TestValidateRideRequest(t *testing.T) {
	now := time.Date(2026, 3, 11, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)
	farFuture := now.Add(10 * 24 * time.Hour)
	campinas := models.Location{Lat: -22.9099, Lng: -47.0626, Address: "Centro, Campinas - SP"}
	rio := models.Location{Lat: -22.9068, Lng: -43.1729, Address: "Centro, Rio de Janeiro - RJ"}

	tests := []struct {
		name        string
		req         models.RideRequest
		wantValid   bool
		wantError   string
		wantWarning string
	}{
		{
			name:      "valid request",
			req:       models.RideRequest{PatientID: "p1", Origin: paulista, Destination: hcfmusp},
			wantValid: true,
		},
		{
			name:      "latitude out of range",
			req:       models.RideRequest{PatientID: "p1", Origin: models.Location{Lat: 91, Lng: 0}, Destination: hcfmusp},
			wantError: "latitude de origem",
		},
		{
			name:      "null island",
			req:       models.RideRequest{PatientID: "p1", Origin: paulista, Destination: models.Location{}},
			wantError: "coordenadas de destino",
		},
		{
			name:      "same origin and destination",
			req:       models.RideRequest{PatientID: "p1", Origin: paulista, Destination: paulista},
			wantError: "iguais",
		},
		{
			name:        "long ride warns",
			req:         models.RideRequest{PatientID: "p1", Origin: paulista, Destination: campinas},
			wantValid:   true,
			wantWarning: "corrida longa",
		},
		{
			name:      "too far",
			req:       models.RideRequest{PatientID: "p1", Origin: paulista, Destination: rio},
			wantError: "excede o limite",
		},
		{
			name:      "scheduled in the past",
			req:       models.RideRequest{PatientID: "p1", Origin: paulista, Destination: hcfmusp, ScheduledFor: &past},
			wantError: "futuro",
		},
		{
			name:        "scheduled far ahead",
			req:         models.RideRequest{PatientID: "p1", Origin: paulista, Destination: hcfmusp, ScheduledFor: &farFuture},
			wantValid:   true,
			wantWarning: "7 dias",
		},
		{
			name: "short address",
			req: models.RideRequest{PatientID: "p1", Origin: models.Location{Lat: paulista.Lat, Lng: paulista.Lng, Address: "Casa"},
				Destination: hcfmusp},
			wantValid:   true,
			wantWarning: "endereço de origem",
		},
		{
			name:      "patient with active ride",
			req:       models.RideRequest{PatientID: "busy", Origin: paulista, Destination: hcfmusp},
			wantError: "corrida ativa",
		},
		{
			name:      "unknown driver",
			req:       models.RideRequest{PatientID: "p1", Origin: paulista, Destination: hcfmusp, DriverID: "ghost"},
			wantError: "não encontrado",
		},
		{
			name:      "unavailable driver",
			req:       models.RideRequest{PatientID: "p1", Origin: paulista, Destination: hcfmusp, DriverID: "off"},
			wantError: "não está disponível",
		},
		{
			name:        "driver without coordinates",
			req:         models.RideRequest{PatientID: "p1", Origin: paulista, Destination: hcfmusp, DriverID: "nogps"},
			wantValid:   true,
			wantWarning: "localização do motorista",
		},
	}

	rides := newFakeRideRepo(&models.Ride{ID: "r1", PatientID: "busy", Status: models.RideStatusAccepted})
	drivers := newFakeDriverRepo(
		&models.Driver{ID: "off", IsAvailable: false},
		&models.Driver{ID: "nogps", IsAvailable: true},
	)
	v := newTestValidator(rides, drivers)
	v.now = func() time.Time { return now }

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := v.ValidateRideRequest(context.Background(), &tt.req)
			if err != nil {
				t.Fatalf("ValidateRideRequest() error = %v", err)
			}
			if res.IsValid != tt.wantValid {
				t.Errorf("IsValid = %v, want %v (errors %v)", res.IsValid, tt.wantValid, res.Errors)
			}
			if tt.wantError != "" && !containsMsg(res.Errors, tt.wantError) {
				t.Errorf("errors = %v, want one containing %q", res.Errors, tt.wantError)
			}
			if tt.wantWarning != "" && !containsMsg(res.Warnings, tt.wantWarning) {
				t.Errorf("warnings = %v, want one containing %q", res.Warnings, tt.wantWarning)
			}
		})
	}
}

func TestValidateRideRequestReportsRepoErrors(t *testing.T) {
	rides := newFakeRideRepo()
	rides.err = errors.New("dial tcp: connection refused")
	v := newTestValidator(rides, newFakeDriverRepo())

	res, err := v.ValidateRideRequest(context.Background(), &models.RideRequest{PatientID: "p1", Origin: paulista, Destination: hcfmusp})
	if err == nil {
		t.Fatal("expected repository error")
	}
	if res == nil || len(res.Errors) != 0 {
		t.Errorf("local checks should pass, got %+v", res)
	}
}

func TestValidateDriverStatus(t *testing.T) {
	now := time.Date(2026, 3, 11, 12, 0, 0, 0, time.UTC)
	expired := now.AddDate(0, 0, -1)
	soon := now.AddDate(0, 0, 10)
	later := now.AddDate(1, 0, 0)
	lat, lng := -23.55, -46.63

	tests := []struct {
		name        string
		driver      models.Driver
		wantValid   bool
		wantWarning string
	}{
		{
			name:      "ready",
			driver:    models.Driver{VerificationStatus: "approved", IsAvailable: true, CurrentLat: &lat, CurrentLng: &lng, LicenseExpiresAt: &later},
			wantValid: true,
		},
		{
			name:   "pending verification",
			driver: models.Driver{VerificationStatus: "pending", IsAvailable: true, CurrentLat: &lat, CurrentLng: &lng},
		},
		{
			name:   "expired licence",
			driver: models.Driver{VerificationStatus: "approved", IsAvailable: true, CurrentLat: &lat, CurrentLng: &lng, LicenseExpiresAt: &expired},
		},
		{
			name:   "not available",
			driver: models.Driver{VerificationStatus: "approved", CurrentLat: &lat, CurrentLng: &lng},
		},
		{
			name:        "licence expiring soon",
			driver:      models.Driver{VerificationStatus: "approved", IsAvailable: true, CurrentLat: &lat, CurrentLng: &lng, LicenseExpiresAt: &soon},
			wantValid:   true,
			wantWarning: "30 dias",
		},
		{
			name:        "no coordinates",
			driver:      models.Driver{VerificationStatus: "approved", IsAvailable: true},
			wantValid:   true,
			wantWarning: "localização",
		},
	}

	v := newTestValidator(newFakeRideRepo(), newFakeDriverRepo())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := v.ValidateDriverStatus(&tt.driver, now)
			if res.IsValid != tt.wantValid {
				t.Errorf("IsValid = %v, want %v (errors %v)", res.IsValid, tt.wantValid, res.Errors)
			}
			if tt.wantWarning != "" && !containsMsg(res.Warnings, tt.wantWarning) {
				t.Errorf("warnings = %v, want one containing %q", res.Warnings, tt.wantWarning)
			}
		})
	}
}

func TestValidateStatusTransition(t *testing.T) {
	now := time.Date(2026, 3, 11, 12, 0, 0, 0, time.UTC)
	driverID := "d1"

	tests := []struct {
		name        string
		ride        models.Ride
		next        string
		wantValid   bool
		wantError   string
		wantWarning string
	}{
		{"requested to accepted", models.Ride{Status: "requested"}, "accepted", true, "", ""},
		{"requested to cancelled", models.Ride{Status: "requested"}, "cancelled", true, "", ""},
		{"accepted to in_progress", models.Ride{Status: "accepted", DriverID: &driverID}, "in_progress", true, "", ""},
		{"requested to completed", models.Ride{Status: "requested"}, "completed", false, "transição inválida", ""},
		{"completed to in_progress", models.Ride{Status: "completed", DriverID: &driverID}, "in_progress", false, "transição inválida", ""},
		{"cancelled is terminal", models.Ride{Status: "cancelled"}, "requested", false, "transição inválida", ""},
		{"self transition", models.Ride{Status: "accepted"}, "accepted", false, "transição inválida", ""},
		{"complete without driver", models.Ride{Status: "in_progress", CreatedAt: now.Add(-time.Hour)}, "completed", false, "sem motorista", ""},
		{"complete too quickly", models.Ride{Status: "in_progress", DriverID: &driverID, CreatedAt: now.Add(-time.Minute)}, "completed", true, "", "2 minutos"},
		{"complete normally", models.Ride{Status: "in_progress", DriverID: &driverID, CreatedAt: now.Add(-30 * time.Minute)}, "completed", true, "", ""},
	}

	v := newTestValidator(newFakeRideRepo(), newFakeDriverRepo())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := v.ValidateStatusTransition(&tt.ride, tt.next, now)
			if res.IsValid != tt.wantValid {
				t.Errorf("IsValid = %v, want %v (errors %v)", res.IsValid, tt.wantValid, res.Errors)
			}
			if tt.wantError != "" && !containsMsg(res.Errors, tt.wantError) {
				t.Errorf("errors = %v, want one containing %q", res.Errors, tt.wantError)
			}
			if tt.wantWarning != "" && !containsMsg(res.Warnings, tt.wantWarning) {
				t.Errorf("warnings = %v, want one containing %q", res.Warnings, tt.wantWarning)
			}
			if tt.wantWarning == "" && len(res.Warnings) != 0 {
				t.Errorf("unexpected warnings %v", res.Warnings)
			}
		})
	}
}
