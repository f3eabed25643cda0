package service

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/pwendlys/viaja-mais/internal/models"
	"github.com/pwendlys/viaja-mais/internal/repository"
)

type AdminService interface {
	// Metrics returns the cached snapshot, computing one on first use.
	Metrics(ctx context.Context) (*models.DashboardMetrics, error)
	Refresh(ctx context.Context) (*models.DashboardMetrics, error)
	Run(ctx context.Context)
}

type adminService struct {
	rideRepo   repository.RideRepository
	driverRepo repository.DriverRepository
	interval   time.Duration
	loc        *time.Location
	now        func() time.Time

	mu       sync.RWMutex
	snapshot *models.DashboardMetrics
}

func NewAdminService(rideRepo repository.RideRepository, driverRepo repository.DriverRepository, interval time.Duration, loc *time.Location) AdminService {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	if loc == nil {
		loc = time.UTC
	}
	return &adminService{
		rideRepo:   rideRepo,
		driverRepo: driverRepo,
		interval:   interval,
		loc:        loc,
		now:        time.Now,
	}
}

func (s *adminService) Metrics(ctx context.Context) (*models.DashboardMetrics, error) {
	s.mu.RLock()
	snap := s.snapshot
	s.mu.RUnlock()
	if snap != nil {
		return snap, nil
	}
	return s.Refresh(ctx)
}

func (s *adminService) Refresh(ctx context.Context) (*models.DashboardMetrics, error) {
	counts, err := s.rideRepo.CountByStatus(ctx)
	if err != nil {
		return nil, err
	}
	available, err := s.driverRepo.CountAvailable(ctx)
	if err != nil {
		return nil, err
	}
	pending, err := s.driverRepo.CountPendingVerification(ctx)
	if err != nil {
		return nil, err
	}

	now := s.now().In(s.loc)
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.loc)
	revenue, err := s.rideRepo.RevenueSince(ctx, midnight)
	if err != nil {
		return nil, err
	}

	snap := &models.DashboardMetrics{
		RidesByStatus:    counts,
		AvailableDrivers: available,
		PendingDrivers:   pending,
		RevenueToday:     round(revenue),
		RefreshedAt:      now,
	}

	s.mu.Lock()
	s.snapshot = snap
	s.mu.Unlock()
	return snap, nil
}

// Run refreshes the snapshot on every tick until ctx is done.
func (s *adminService) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.Refresh(ctx); err != nil {
				log.Printf("admin metrics refresh failed: %v", err)
			}
		}
	}
}
