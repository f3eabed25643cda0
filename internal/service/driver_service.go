package service

import (
	"context"
	"log"
	"time"

	"github.com/pwendlys/viaja-mais/internal/cache"
	apperrors "github.com/pwendlys/viaja-mais/internal/errors"
	"github.com/pwendlys/viaja-mais/internal/models"
	"github.com/pwendlys/viaja-mais/internal/repository"
	"github.com/pwendlys/viaja-mais/internal/retry"
)

// DriverEvents receives location pings of drivers serving a ride.
type DriverEvents interface {
	DriverMoved(ctx context.Context, rideID, driverID string, lat, lng float64)
}

type DriverService interface {
	GetDriver(ctx context.Context, id string) (*models.Driver, error)
	UpdateLocation(ctx context.Context, driverID string, req *models.UpdateDriverLocationRequest) error
	SetAvailability(ctx context.Context, driverID string, available bool) ([]string, error)
	VerifyDriver(ctx context.Context, driverID, status string) (*models.Driver, error)
}

type driverService struct {
	driverRepo  repository.DriverRepository
	driverCache cache.DriverLocationCache
	policy      *retry.Policy
	events      DriverEvents
}

// NewDriverService manages driver presence. driverCache and events may be nil.
func NewDriverService(
	driverRepo repository.DriverRepository,
	driverCache cache.DriverLocationCache,
	policy *retry.Policy,
	events DriverEvents,
) DriverService {
	return &driverService{
		driverRepo:  driverRepo,
		driverCache: driverCache,
		policy:      policy,
		events:      events,
	}
}

func (s *driverService) GetDriver(ctx context.Context, id string) (*models.Driver, error) {
	driver, err := s.driverRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if driver == nil {
		return nil, apperrors.NotFound("motorista")
	}

	// Get current location from cache
	if s.driverCache != nil {
		loc, err := s.driverCache.GetDriverLocation(ctx, id)
		if err == nil && loc != nil {
			driver.CurrentLat = &loc.Lat
			driver.CurrentLng = &loc.Lng
			at := time.Unix(loc.UpdatedAt, 0)
			driver.LastLocationAt = &at
		}
	}

	return driver, nil
}

func (s *driverService) UpdateLocation(ctx context.Context, driverID string, req *models.UpdateDriverLocationRequest) error {
	if req.GeoErrorCode != nil {
		geoErr := apperrors.NewGeolocationError(apperrors.GeolocationCode(*req.GeoErrorCode))
		log.Printf("driver %s could not be located: %v", driverID, geoErr)
		return apperrors.BadRequest(geoErr.Message + " " + geoErr.Hint)
	}

	driver, err := s.driverRepo.GetByID(ctx, driverID)
	if err != nil {
		return err
	}
	if driver == nil {
		return apperrors.NotFound("motorista")
	}

	// Update cache (primary - fast)
	if s.driverCache != nil {
		if err := s.driverCache.UpdateLocation(ctx, driverID, req.Lat, req.Lng, req.Heading, req.Speed, req.Accuracy); err != nil {
			log.Printf("failed to update driver location in cache: %v", err)
		}
	}

	// Update database (secondary - for persistence)
	err = s.policy.Do(ctx, retry.Idempotent, "update driver location", func(ctx context.Context) error {
		return s.driverRepo.UpdateLocation(ctx, driverID, req.Lat, req.Lng)
	})
	if err != nil {
		log.Printf("failed to update driver location in db: %v", err)
	}

	if s.events != nil && s.driverCache != nil {
		rideID, err := s.driverCache.GetActiveRide(ctx, driverID)
		if err == nil && rideID != "" {
			s.events.DriverMoved(ctx, rideID, driverID, req.Lat, req.Lng)
		}
	}

	return nil
}

// SetAvailability toggles the driver's availability. Going available without a
// known position is allowed and reported as a warning.
func (s *driverService) SetAvailability(ctx context.Context, driverID string, available bool) ([]string, error) {
	driver, err := s.GetDriver(ctx, driverID)
	if err != nil {
		return nil, err
	}

	warnings := []string{}
	if available {
		if driver.VerificationStatus != models.VerificationApproved {
			return nil, apperrors.Forbidden("motorista ainda não foi aprovado")
		}
		if !driver.HasLocation() {
			warnings = append(warnings, "localização desconhecida: ative o GPS para receber corridas")
		}
	}

	err = s.policy.Do(ctx, retry.Idempotent, "set driver availability", func(ctx context.Context) error {
		return s.driverRepo.SetAvailability(ctx, driverID, available)
	})
	if err != nil {
		return nil, err
	}

	if !available && s.driverCache != nil {
		if err := s.driverCache.RemoveDriver(ctx, driverID); err != nil {
			log.Printf("failed to remove driver %s from location cache: %v", driverID, err)
		}
	}

	log.Printf("driver %s availability set to %t", driverID, available)
	return warnings, nil
}

func (s *driverService) VerifyDriver(ctx context.Context, driverID, status string) (*models.Driver, error) {
	switch status {
	case models.VerificationApproved, models.VerificationRejected, models.VerificationPending:
	default:
		return nil, apperrors.BadRequest("status de verificação inválido")
	}

	driver, err := s.driverRepo.GetByID(ctx, driverID)
	if err != nil {
		return nil, err
	}
	if driver == nil {
		return nil, apperrors.NotFound("motorista")
	}

	err = s.policy.Do(ctx, retry.Idempotent, "verify driver", func(ctx context.Context) error {
		return s.driverRepo.SetVerificationStatus(ctx, driverID, status)
	})
	if err != nil {
		return nil, err
	}
	driver.VerificationStatus = status

	if status != models.VerificationApproved && driver.IsAvailable {
		if err := s.driverRepo.SetAvailability(ctx, driverID, false); err != nil {
			log.Printf("failed to take unverified driver %s offline: %v", driverID, err)
		}
		driver.IsAvailable = false
	}
	return driver, nil
}
