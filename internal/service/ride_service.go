package service

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pwendlys/viaja-mais/internal/cache"
	apperrors "github.com/pwendlys/viaja-mais/internal/errors"
	"github.com/pwendlys/viaja-mais/internal/models"
	"github.com/pwendlys/viaja-mais/internal/offline"
	"github.com/pwendlys/viaja-mais/internal/repository"
	"github.com/pwendlys/viaja-mais/internal/retry"
)

// RideEvents receives ride changes for realtime delivery.
type RideEvents interface {
	RideUpdated(ctx context.Context, ride *models.Ride)
}

// OfflineQueue stores ride mutations while the database is unreachable.
type OfflineQueue interface {
	CreateRideOffline(ctx context.Context, ride *models.Ride) (*models.OfflineRide, error)
	UpdateRideOffline(ctx context.Context, rideID string, changes map[string]interface{}) (*models.OfflineRide, error)
	GetOfflineRide(ctx context.Context, rideID string) (*models.OfflineRide, error)
}

type RideService interface {
	CreateRide(ctx context.Context, req *models.RideRequest) (*models.RideResult, error)
	GetRide(ctx context.Context, id string) (*models.Ride, error)
	ListPatientRides(ctx context.Context, patientID string, limit int) ([]*models.Ride, error)
	AcceptRide(ctx context.Context, rideID string, req *models.AcceptRideRequest) (*models.RideResult, error)
	UpdateRideStatus(ctx context.Context, rideID string, req *models.UpdateRideStatusRequest) (*models.RideResult, error)
	CancelRide(ctx context.Context, rideID string, req *models.CancelRideRequest) (*models.RideResult, error)
	RateRide(ctx context.Context, rideID string, req *models.RateRideRequest) (*models.Ride, error)
	GetHistory(ctx context.Context, patientID string, limit int) ([]*models.RideHistoryEntry, error)
}

type rideService struct {
	rideRepo    repository.RideRepository
	driverRepo  repository.DriverRepository
	profileRepo repository.ProfileRepository
	historyRepo repository.HistoryRepository
	geoRepo     repository.GeoRepository
	pricing     PricingService
	validator   ValidationService
	queue       OfflineQueue
	policy      *retry.Policy
	driverCache cache.DriverLocationCache
	events      RideEvents
	now         func() time.Time
}

// NewRideService wires the ride lifecycle. queue, driverCache and events may be nil.
func NewRideService(
	rideRepo repository.RideRepository,
	driverRepo repository.DriverRepository,
	profileRepo repository.ProfileRepository,
	historyRepo repository.HistoryRepository,
	geoRepo repository.GeoRepository,
	pricing PricingService,
	validator ValidationService,
	queue OfflineQueue,
	policy *retry.Policy,
	driverCache cache.DriverLocationCache,
	events RideEvents,
) RideService {
	return &rideService{
		rideRepo:    rideRepo,
		driverRepo:  driverRepo,
		profileRepo: profileRepo,
		historyRepo: historyRepo,
		geoRepo:     geoRepo,
		pricing:     pricing,
		validator:   validator,
		queue:       queue,
		policy:      policy,
		driverCache: driverCache,
		events:      events,
		now:         time.Now,
	}
}

func (s *rideService) CreateRide(ctx context.Context, req *models.RideRequest) (*models.RideResult, error) {
	if req.Urgency == "" {
		req.Urgency = models.UrgencyLow
	}

	res, err := s.validator.ValidateRideRequest(ctx, req)
	if err != nil {
		if apperrors.IsNetwork(err) && len(res.Errors) == 0 {
			return s.createOffline(ctx, s.newRide(req), nil, res.Warnings)
		}
		return nil, err
	}
	if !res.IsValid {
		return nil, apperrors.Validation(res.Errors, res.Warnings)
	}

	ride := s.newRide(req)

	var profile *models.Profile
	if s.profileRepo != nil {
		profile, err = s.profileRepo.GetByID(ctx, req.PatientID)
		if err != nil {
			if apperrors.IsNetwork(err) {
				return s.createOffline(ctx, ride, nil, res.Warnings)
			}
			return nil, err
		}
	}

	distance := s.distance(ctx, req.Origin, req.Destination)
	duration := s.pricing.EstimateDuration(distance)
	if req.DurationMinutes != nil {
		duration = *req.DurationMinutes
	}

	priceReq := &models.PriceRequest{
		VehicleType:     req.VehicleType,
		DistanceKm:      distance,
		DurationMinutes: float64(duration),
		ReferenceTime:   req.ScheduledFor,
	}
	if profile != nil {
		priceReq.IsElderly = profile.IsElderly
		priceReq.HasDisability = profile.HasDisability
	}
	price, err := s.pricing.CalculatePrice(ctx, priceReq)
	if err != nil {
		if apperrors.IsNetwork(err) {
			return s.createOffline(ctx, ride, nil, res.Warnings)
		}
		return nil, err
	}

	distance = round(distance)
	ride.DistanceKm = &distance
	ride.DurationMinutes = &duration
	ride.Price = &price.FinalPrice

	err = s.policy.Do(ctx, retry.NonIdempotent, "create ride", func(ctx context.Context) error {
		return s.rideRepo.Create(ctx, ride)
	})
	if err != nil {
		if apperrors.IsNetwork(err) {
			return s.createOffline(ctx, ride, price, res.Warnings)
		}
		return nil, err
	}

	if s.driverCache != nil {
		if err := s.driverCache.SetPatientActiveRide(ctx, ride.PatientID, ride.ID); err != nil {
			log.Printf("failed to cache active ride for patient %s: %v", ride.PatientID, err)
		}
	}
	s.publish(ctx, ride)

	log.Printf("ride %s requested by patient %s (%.2f km, R$ %.2f)", ride.ID, ride.PatientID, distance, price.FinalPrice)
	return &models.RideResult{Ride: ride, Price: price, Warnings: res.Warnings}, nil
}

func (s *rideService) newRide(req *models.RideRequest) *models.Ride {
	ride := &models.Ride{
		ID:                 uuid.New().String(),
		PatientID:          req.PatientID,
		OriginLat:          req.Origin.Lat,
		OriginLng:          req.Origin.Lng,
		OriginAddress:      req.Origin.Address,
		DestinationLat:     req.Destination.Lat,
		DestinationLng:     req.Destination.Lng,
		DestinationAddress: req.Destination.Address,
		Status:             models.RideStatusRequested,
		VehicleType:        req.VehicleType,
		Urgency:            req.Urgency,
		ScheduledFor:       req.ScheduledFor,
	}
	if req.DriverID != "" {
		ride.DriverID = &req.DriverID
	}
	ride.Notes = optionalString(req.Notes)
	ride.MedicalNotes = optionalString(req.MedicalNotes)
	ride.AppointmentType = optionalString(req.AppointmentType)
	return ride
}

func optionalString(v string) *string {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	return &v
}

func (s *rideService) createOffline(ctx context.Context, ride *models.Ride, price *models.PriceBreakdown, warnings []string) (*models.RideResult, error) {
	if s.queue == nil {
		return nil, apperrors.InternalError("serviço indisponível no momento")
	}

	// the server-minted id is replaced so the mirror is recognisable
	ride.ID = ""
	mirror, err := s.queue.CreateRideOffline(ctx, ride)
	if err != nil {
		return nil, err
	}
	log.Printf("database unreachable, ride %s stored offline for patient %s", mirror.ID, mirror.PatientID)

	warnings = append(warnings, "sem conexão: corrida salva e será sincronizada automaticamente")
	return &models.RideResult{Ride: &mirror.Ride, Price: price, Warnings: warnings, Offline: true}, nil
}

// distance prefers the database routine and falls back to a local great-circle estimate.
func (s *rideService) distance(ctx context.Context, from, to models.Location) float64 {
	if s.geoRepo != nil {
		km, err := s.geoRepo.CalculateDistance(ctx, from.Lat, from.Lng, to.Lat, to.Lng)
		if err == nil {
			return km
		}
		log.Printf("calculate_distance failed, using haversine: %v", err)
	}
	return haversineDistance(from.Lat, from.Lng, to.Lat, to.Lng)
}

func (s *rideService) GetRide(ctx context.Context, id string) (*models.Ride, error) {
	ride, err := s.rideRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if ride == nil {
		return nil, apperrors.NotFound("corrida")
	}
	return ride, nil
}

func (s *rideService) ListPatientRides(ctx context.Context, patientID string, limit int) ([]*models.Ride, error) {
	rides, err := s.rideRepo.ListByPatientID(ctx, patientID, limit)
	if err != nil {
		return nil, err
	}
	if rides == nil {
		rides = []*models.Ride{}
	}
	return rides, nil
}

func (s *rideService) AcceptRide(ctx context.Context, rideID string, req *models.AcceptRideRequest) (*models.RideResult, error) {
	ride, err := s.GetRide(ctx, rideID)
	if err != nil {
		return nil, err
	}
	if ride.Status != models.RideStatusRequested {
		return nil, apperrors.RideAlreadyAssigned()
	}

	driver, err := s.driverRepo.GetByID(ctx, req.DriverID)
	if err != nil {
		return nil, err
	}
	if driver == nil {
		return nil, apperrors.NotFound("motorista")
	}
	check := s.validator.ValidateDriverStatus(driver, s.now())
	if !check.IsValid {
		return nil, apperrors.Validation(check.Errors, check.Warnings)
	}

	active, err := s.rideRepo.GetActiveRideByDriverID(ctx, driver.ID)
	if err != nil {
		return nil, err
	}
	if active != nil {
		return nil, apperrors.DriverUnavailable()
	}

	var accepted *models.Ride
	err = s.policy.Do(ctx, retry.Idempotent, "accept ride", func(ctx context.Context) error {
		var err error
		accepted, err = s.rideRepo.Accept(ctx, rideID, driver.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	if accepted == nil {
		return nil, apperrors.NotFound("corrida")
	}
	if accepted.DriverID == nil || *accepted.DriverID != driver.ID {
		return nil, apperrors.RideAlreadyAssigned()
	}

	if s.driverCache != nil {
		if err := s.driverCache.SetActiveRide(ctx, driver.ID, rideID); err != nil {
			log.Printf("failed to cache active ride for driver %s: %v", driver.ID, err)
		}
	}
	s.publish(ctx, accepted)

	log.Printf("ride %s accepted by driver %s", rideID, driver.ID)
	return &models.RideResult{Ride: accepted, Warnings: check.Warnings}, nil
}

func (s *rideService) UpdateRideStatus(ctx context.Context, rideID string, req *models.UpdateRideStatusRequest) (*models.RideResult, error) {
	if req.Status == models.RideStatusAccepted {
		return nil, apperrors.BadRequest("use a ação de aceite para atribuir um motorista")
	}
	// A mirrored ride has not reached the database yet; once its create
	// replays the mirror is gone and the row is authoritative.
	if strings.HasPrefix(rideID, offline.OfflineIDPrefix) && s.queue != nil {
		mirror, err := s.queue.GetOfflineRide(ctx, rideID)
		if err != nil {
			return nil, err
		}
		if mirror != nil {
			return s.updateOffline(ctx, rideID, &mirror.Ride, req)
		}
	}

	ride, err := s.rideRepo.GetByID(ctx, rideID)
	if err != nil {
		if apperrors.IsNetwork(err) {
			return s.updateOffline(ctx, rideID, nil, req)
		}
		return nil, err
	}
	if ride == nil {
		return nil, apperrors.NotFound("corrida")
	}

	now := s.now()
	check := s.validator.ValidateStatusTransition(ride, req.Status, now)
	if !check.IsValid {
		return nil, apperrors.Validation(check.Errors, check.Warnings)
	}

	applyStatus(ride, req.Status, req.Reason, now)

	err = s.policy.Do(ctx, retry.Idempotent, "update ride status", func(ctx context.Context) error {
		return s.rideRepo.UpdateStatus(ctx, ride)
	})
	if err != nil {
		if apperrors.IsNetwork(err) {
			return s.updateOffline(ctx, rideID, nil, req)
		}
		return nil, err
	}

	if models.IsTerminalStatus(ride.Status) {
		s.finish(ctx, ride)
	}
	s.publish(ctx, ride)

	log.Printf("ride %s moved to %s", ride.ID, ride.Status)
	return &models.RideResult{Ride: ride, Warnings: check.Warnings}, nil
}

func applyStatus(ride *models.Ride, status, reason string, now time.Time) {
	ride.Status = status
	switch status {
	case models.RideStatusInProgress:
		ride.StartedAt = &now
	case models.RideStatusCompleted:
		ride.CompletedAt = &now
	case models.RideStatusCancelled:
		ride.CancelledAt = &now
		ride.CancellationReason = optionalString(reason)
	}
}

// updateOffline queues a status change. current is the locally known ride,
// checked against the transition graph; nil means already checked or unknown.
func (s *rideService) updateOffline(ctx context.Context, rideID string, current *models.Ride, req *models.UpdateRideStatusRequest) (*models.RideResult, error) {
	if s.queue == nil {
		return nil, apperrors.InternalError("serviço indisponível no momento")
	}

	now := s.now()
	warnings := []string{"sem conexão: alteração será sincronizada automaticamente"}
	if current != nil {
		check := s.validator.ValidateStatusTransition(current, req.Status, now)
		if !check.IsValid {
			return nil, apperrors.Validation(check.Errors, check.Warnings)
		}
		warnings = append(check.Warnings, warnings...)
	}

	changes := map[string]interface{}{"status": req.Status}
	switch req.Status {
	case models.RideStatusInProgress:
		changes["started_at"] = now
	case models.RideStatusCompleted:
		changes["completed_at"] = now
	case models.RideStatusCancelled:
		changes["cancelled_at"] = now
		if r := optionalString(req.Reason); r != nil {
			changes["cancellation_reason"] = *r
		}
	}

	mirror, err := s.queue.UpdateRideOffline(ctx, rideID, changes)
	if err != nil {
		return nil, err
	}

	ride := &models.Ride{ID: rideID, Status: req.Status, UpdatedAt: now}
	if mirror != nil {
		ride = &mirror.Ride
	}
	log.Printf("database unreachable, status %s of ride %s queued", req.Status, rideID)
	return &models.RideResult{
		Ride:     ride,
		Warnings: warnings,
		Offline:  true,
	}, nil
}

// finish records history and releases the driver after a terminal transition.
func (s *rideService) finish(ctx context.Context, ride *models.Ride) {
	if s.historyRepo != nil {
		if err := s.historyRepo.Append(ctx, ride); err != nil {
			log.Printf("failed to append history for ride %s: %v", ride.ID, err)
		}
	}

	if ride.DriverID != nil {
		driverID := *ride.DriverID
		var err error
		if ride.Status == models.RideStatusCompleted {
			err = s.policy.Do(ctx, retry.NonIdempotent, "record completed ride", func(ctx context.Context) error {
				return s.driverRepo.RecordCompletedRide(ctx, driverID)
			})
		} else {
			err = s.policy.Do(ctx, retry.Idempotent, "release driver", func(ctx context.Context) error {
				return s.driverRepo.SetAvailability(ctx, driverID, true)
			})
		}
		if err != nil {
			log.Printf("failed to release driver %s: %v", driverID, err)
		}
		if s.driverCache != nil {
			s.driverCache.ClearActiveRide(ctx, driverID)
		}
	}

	if s.driverCache != nil {
		s.driverCache.ClearPatientActiveRide(ctx, ride.PatientID)
	}
}

func (s *rideService) CancelRide(ctx context.Context, rideID string, req *models.CancelRideRequest) (*models.RideResult, error) {
	return s.UpdateRideStatus(ctx, rideID, &models.UpdateRideStatusRequest{
		Status: models.RideStatusCancelled,
		Reason: req.Reason,
	})
}

func (s *rideService) RateRide(ctx context.Context, rideID string, req *models.RateRideRequest) (*models.Ride, error) {
	if req.ServiceRating < 1 || req.ServiceRating > 5 || req.DriverRating < 1 || req.DriverRating > 5 {
		return nil, apperrors.BadRequest("as notas devem estar entre 1 e 5")
	}

	ride, err := s.GetRide(ctx, rideID)
	if err != nil {
		return nil, err
	}
	if ride.Status != models.RideStatusCompleted {
		return nil, apperrors.BadRequest("apenas corridas concluídas podem ser avaliadas")
	}
	if ride.ServiceRating != nil || ride.DriverRating != nil {
		return nil, apperrors.Conflict("corrida já avaliada")
	}

	err = s.policy.Do(ctx, retry.Idempotent, "rate ride", func(ctx context.Context) error {
		return s.rideRepo.Rate(ctx, rideID, req.ServiceRating, req.DriverRating)
	})
	if err != nil {
		return nil, err
	}
	ride.ServiceRating = &req.ServiceRating
	ride.DriverRating = &req.DriverRating

	if ride.DriverID != nil {
		if err := s.driverRepo.RefreshRating(ctx, *ride.DriverID); err != nil {
			log.Printf("failed to refresh rating of driver %s: %v", *ride.DriverID, err)
		}
	}
	return ride, nil
}

func (s *rideService) GetHistory(ctx context.Context, patientID string, limit int) ([]*models.RideHistoryEntry, error) {
	entries, err := s.historyRepo.ListByPatientID(ctx, patientID, limit)
	if err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []*models.RideHistoryEntry{}
	}
	return entries, nil
}

func (s *rideService) publish(ctx context.Context, ride *models.Ride) {
	if s.events != nil {
		s.events.RideUpdated(ctx, ride)
	}
}
