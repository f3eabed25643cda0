package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/pwendlys/viaja-mais/internal/models"
	"github.com/pwendlys/viaja-mais/internal/repository"
)

const (
	maxRideDistanceKm     = 100.0
	longRideDistanceKm    = 50.0
	minAddressLength      = 10
	maxScheduleAhead      = 7 * 24 * time.Hour
	licenseExpiryWarning  = 30 * 24 * time.Hour
	suspiciousRideMinimum = 2 * time.Minute
)

type ValidationService interface {
	// ValidateRideRequest fills in coordinate checks before touching the
	// database, so a returned error always comes with those results.
	ValidateRideRequest(ctx context.Context, req *models.RideRequest) (*models.ValidationResult, error)
	ValidateDriverStatus(driver *models.Driver, now time.Time) *models.ValidationResult
	ValidateStatusTransition(ride *models.Ride, next string, now time.Time) *models.ValidationResult
}

type validationService struct {
	rideRepo   repository.RideRepository
	driverRepo repository.DriverRepository
	now        func() time.Time
}

func NewValidationService(rideRepo repository.RideRepository, driverRepo repository.DriverRepository) ValidationService {
	return &validationService{
		rideRepo:   rideRepo,
		driverRepo: driverRepo,
		now:        time.Now,
	}
}

func (s *validationService) ValidateRideRequest(ctx context.Context, req *models.RideRequest) (*models.ValidationResult, error) {
	res := models.NewValidationResult()
	now := s.now()

	originOK := checkLocation(res, "origem", req.Origin)
	destOK := checkLocation(res, "destino", req.Destination)

	if originOK && destOK {
		if req.Origin.Lat == req.Destination.Lat && req.Origin.Lng == req.Destination.Lng {
			res.AddError("origem e destino não podem ser iguais")
		} else {
			distance := haversineDistance(req.Origin.Lat, req.Origin.Lng, req.Destination.Lat, req.Destination.Lng)
			switch {
			case distance > maxRideDistanceKm:
				res.AddError(fmt.Sprintf("distância de %.1f km excede o limite de %.0f km", distance, maxRideDistanceKm))
			case distance > longRideDistanceKm:
				res.AddWarning(fmt.Sprintf("corrida longa: %.1f km", distance))
			}
		}
	}

	checkAddress(res, "origem", req.Origin.Address)
	checkAddress(res, "destino", req.Destination.Address)

	if req.ScheduledFor != nil {
		switch {
		case req.ScheduledFor.Before(now):
			res.AddError("o horário agendado deve estar no futuro")
		case req.ScheduledFor.Sub(now) > maxScheduleAhead:
			res.AddWarning("agendamento com mais de 7 dias de antecedência")
		}
	}

	if len(res.Errors) > 0 {
		return res.Finish(), nil
	}

	active, err := s.rideRepo.GetActiveRideByPatientID(ctx, req.PatientID)
	if err != nil {
		return res.Finish(), err
	}
	if active != nil {
		res.AddError("paciente já possui uma corrida ativa")
	}

	if req.DriverID != "" {
		driver, err := s.driverRepo.GetByID(ctx, req.DriverID)
		if err != nil {
			return res.Finish(), err
		}
		switch {
		case driver == nil:
			res.AddError("motorista solicitado não encontrado")
		case !driver.IsAvailable:
			res.AddError("motorista solicitado não está disponível")
		case !driver.HasLocation():
			res.AddWarning("localização do motorista solicitado é desconhecida")
		}
	}

	return res.Finish(), nil
}

func checkLocation(res *models.ValidationResult, label string, loc models.Location) bool {
	ok := true
	if loc.Lat < -90 || loc.Lat > 90 {
		res.AddError(fmt.Sprintf("latitude de %s fora do intervalo", label))
		ok = false
	}
	if loc.Lng < -180 || loc.Lng > 180 {
		res.AddError(fmt.Sprintf("longitude de %s fora do intervalo", label))
		ok = false
	}
	if ok && loc.Lat == 0 && loc.Lng == 0 {
		res.AddError(fmt.Sprintf("coordenadas de %s não informadas", label))
		ok = false
	}
	return ok
}

func checkAddress(res *models.ValidationResult, label, address string) {
	if len([]rune(strings.TrimSpace(address))) < minAddressLength {
		res.AddWarning(fmt.Sprintf("endereço de %s muito curto", label))
	}
}

func (s *validationService) ValidateDriverStatus(driver *models.Driver, now time.Time) *models.ValidationResult {
	res := models.NewValidationResult()

	if driver.VerificationStatus != models.VerificationApproved {
		res.AddError("motorista ainda não foi aprovado")
	}
	if driver.LicenseExpiresAt != nil {
		switch {
		case driver.LicenseExpiresAt.Before(now):
			res.AddError("CNH do motorista está vencida")
		case driver.LicenseExpiresAt.Sub(now) < licenseExpiryWarning:
			res.AddWarning("CNH do motorista vence em menos de 30 dias")
		}
	}
	if !driver.IsAvailable {
		res.AddError("motorista não está disponível")
	}
	if !driver.HasLocation() {
		res.AddWarning("localização do motorista é desconhecida")
	}

	return res.Finish()
}

func (s *validationService) ValidateStatusTransition(ride *models.Ride, next string, now time.Time) *models.ValidationResult {
	res := models.NewValidationResult()

	if !ride.CanTransitionTo(next) {
		res.AddError(fmt.Sprintf("transição inválida de %s para %s", ride.Status, next))
		return res.Finish()
	}

	if next == models.RideStatusCompleted {
		if ride.DriverID == nil {
			res.AddError("corrida sem motorista não pode ser concluída")
		}
		if !ride.CreatedAt.IsZero() && now.Sub(ride.CreatedAt) < suspiciousRideMinimum {
			res.AddWarning("corrida concluída menos de 2 minutos após a solicitação")
		}
	}

	return res.Finish()
}
