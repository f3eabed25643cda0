package service

import (
	"context"
	"log"

	apperrors "github.com/pwendlys/viaja-mais/internal/errors"
	"github.com/pwendlys/viaja-mais/internal/models"
	"github.com/pwendlys/viaja-mais/internal/repository"
)

type RouteService interface {
	CalculateRoute(ctx context.Context, req *models.RouteRequest) (*models.RouteEstimate, error)
}

type routeService struct {
	geoRepo repository.GeoRepository
	pricing PricingService
}

// NewRouteService estimates trips. geoRepo may be nil, in which case every
// distance is computed locally.
func NewRouteService(geoRepo repository.GeoRepository, pricing PricingService) RouteService {
	return &routeService{geoRepo: geoRepo, pricing: pricing}
}

func (s *routeService) CalculateRoute(ctx context.Context, req *models.RouteRequest) (*models.RouteEstimate, error) {
	if !validCoordinate(req.Origin) || !validCoordinate(req.Destination) {
		return nil, apperrors.BadRequest("coordenadas inválidas")
	}

	estimate := &models.RouteEstimate{Source: models.DistanceSourceHaversine}
	km := -1.0
	if s.geoRepo != nil {
		d, err := s.geoRepo.CalculateDistance(ctx, req.Origin.Lat, req.Origin.Lng, req.Destination.Lat, req.Destination.Lng)
		if err == nil {
			km = d
			estimate.Source = models.DistanceSourceDatabase
		} else {
			log.Printf("calculate_distance failed, using haversine: %v", err)
		}
	}
	if km < 0 {
		km = haversineDistance(req.Origin.Lat, req.Origin.Lng, req.Destination.Lat, req.Destination.Lng)
	}

	estimate.DistanceKm = round(km)
	estimate.DurationMinutes = s.pricing.EstimateDuration(km)
	return estimate, nil
}

func validCoordinate(l models.Location) bool {
	return l.Lat >= -90 && l.Lat <= 90 && l.Lng >= -180 && l.Lng <= 180
}
