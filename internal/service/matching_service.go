package service

import (
	"context"
	"log"
	"math"
	"sort"

	"github.com/pwendlys/viaja-mais/internal/cache"
	"github.com/pwendlys/viaja-mais/internal/models"
	"github.com/pwendlys/viaja-mais/internal/repository"
)

const (
	defaultMatchRadius = 20.0 // km
	defaultSpeedKmh    = 30.0
)

// EconomyAcceptsAnyType lets an economico or untyped request be served by any vehicle.
const EconomyAcceptsAnyType = true

var urgencyWeights = map[string]float64{
	models.UrgencyLow:    1.0,
	models.UrgencyMedium: 1.5,
	models.UrgencyHigh:   2.0,
}

type MatchingService interface {
	FindNearbyDrivers(ctx context.Context, req *models.MatchRequest) ([]models.DriverMatch, error)
}

type matchingService struct {
	driverRepo  repository.DriverRepository
	driverCache cache.DriverLocationCache
	matchRadius float64
	speedKmh    float64
}

// NewMatchingService ranks available drivers. driverCache may be nil.
func NewMatchingService(
	driverRepo repository.DriverRepository,
	driverCache cache.DriverLocationCache,
	matchRadius, speedKmh float64,
) MatchingService {
	if matchRadius <= 0 {
		matchRadius = defaultMatchRadius
	}
	if speedKmh <= 0 {
		speedKmh = defaultSpeedKmh
	}
	return &matchingService{
		driverRepo:  driverRepo,
		driverCache: driverCache,
		matchRadius: matchRadius,
		speedKmh:    speedKmh,
	}
}

func (s *matchingService) FindNearbyDrivers(ctx context.Context, req *models.MatchRequest) ([]models.DriverMatch, error) {
	drivers, err := s.driverRepo.ListAvailable(ctx)
	if err != nil {
		return nil, err
	}

	maxDistance := req.MaxDistanceKm
	if maxDistance <= 0 {
		maxDistance = s.matchRadius
	}
	weight, ok := urgencyWeights[req.Urgency]
	if !ok {
		weight = urgencyWeights[models.UrgencyLow]
	}

	fresh := s.freshLocations(ctx, drivers)

	matches := make([]models.DriverMatch, 0, len(drivers))
	for _, d := range drivers {
		if !acceptsVehicle(req.VehicleType, d.VehicleType) {
			continue
		}

		lat, lng, ok := driverPosition(d, fresh[d.ID])
		if !ok {
			continue
		}

		distance := haversineDistance(req.Origin.Lat, req.Origin.Lng, lat, lng)
		if distance > maxDistance {
			continue
		}

		matches = append(matches, models.DriverMatch{
			Driver:              d,
			DistanceKm:          round(distance),
			EstimatedArrivalMin: int(math.Ceil(distance * 60 / s.speedKmh)),
			Score:               round(driverScore(d, distance, weight)),
		})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		a, b := matches[i], matches[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.DistanceKm != b.DistanceKm {
			return a.DistanceKm < b.DistanceKm
		}
		return a.Driver.ID < b.Driver.ID
	})

	return matches, nil
}

// freshLocations reads cached pings; a cache failure falls back to table coordinates.
func (s *matchingService) freshLocations(ctx context.Context, drivers []*models.Driver) map[string]*cache.DriverLocation {
	if s.driverCache == nil || len(drivers) == 0 {
		return nil
	}
	ids := make([]string, len(drivers))
	for i, d := range drivers {
		ids[i] = d.ID
	}
	locs, err := s.driverCache.GetLocations(ctx, ids)
	if err != nil {
		log.Printf("matching: location cache unavailable, using stored coordinates: %v", err)
		return nil
	}
	return locs
}

func driverPosition(d *models.Driver, cached *cache.DriverLocation) (float64, float64, bool) {
	if cached != nil {
		return cached.Lat, cached.Lng, true
	}
	if !d.HasLocation() {
		return 0, 0, false
	}
	return *d.CurrentLat, *d.CurrentLng, true
}

func acceptsVehicle(requested, offered string) bool {
	if requested == "" || (EconomyAcceptsAnyType && requested == models.VehicleTypeEconomico) {
		return true
	}
	return requested == offered
}

// driverScore favours proximity (weighted by urgency), then rating and experience.
func driverScore(d *models.Driver, distanceKm, urgencyWeight float64) float64 {
	proximity := math.Max(0, 10-distanceKm) * urgencyWeight
	experience := math.Min(5, float64(d.TotalRides)/20)
	return proximity + d.Rating*2 + experience
}
