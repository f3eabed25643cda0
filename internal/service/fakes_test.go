package service

import (
	"context"
	"sync"
	"time"

	"github.com/pwendlys/viaja-mais/internal/models"
)

type fakePricingRepo struct {
	configs map[string]*models.PricingConfig
	rules   []*models.PricingRule
	upserts int
}

func newFakePricingRepo(cfgs ...*models.PricingConfig) *fakePricingRepo {
	r := &fakePricingRepo{configs: map[string]*models.PricingConfig{}}
	for _, c := range cfgs {
		r.configs[c.VehicleType] = c
	}
	return r
}

func (r *fakePricingRepo) GetConfig(ctx context.Context, vehicleType string) (*models.PricingConfig, error) {
	return r.configs[vehicleType], nil
}

func (r *fakePricingRepo) ListConfigs(ctx context.Context) ([]*models.PricingConfig, error) {
	out := make([]*models.PricingConfig, 0, len(r.configs))
	for _, c := range r.configs {
		out = append(out, c)
	}
	return out, nil
}

func (r *fakePricingRepo) UpdateConfig(ctx context.Context, cfg *models.PricingConfig) error {
	if prev, ok := r.configs[cfg.VehicleType]; ok {
		cfg.Version = prev.Version + 1
	} else {
		cfg.Version = 1
	}
	r.configs[cfg.VehicleType] = cfg
	return nil
}

func (r *fakePricingRepo) ListActiveRules(ctx context.Context, vehicleType string) ([]*models.PricingRule, error) {
	return r.rules, nil
}

func (r *fakePricingRepo) ListRules(ctx context.Context) ([]*models.PricingRule, error) {
	return r.rules, nil
}

func (r *fakePricingRepo) UpsertRule(ctx context.Context, rule *models.PricingRule) error {
	r.upserts++
	return nil
}

type fakeDriverRepo struct {
	mu        sync.Mutex
	drivers   map[string]*models.Driver
	order     []string
	err       error
	completed map[string]int
}

func newFakeDriverRepo(drivers ...*models.Driver) *fakeDriverRepo {
	r := &fakeDriverRepo{drivers: map[string]*models.Driver{}, completed: map[string]int{}}
	for _, d := range drivers {
		r.drivers[d.ID] = d
		r.order = append(r.order, d.ID)
	}
	return r
}

func (r *fakeDriverRepo) GetByID(ctx context.Context, id string) (*models.Driver, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	return r.drivers[id], nil
}

func (r *fakeDriverRepo) ListAvailable(ctx context.Context) ([]*models.Driver, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	out := []*models.Driver{}
	for _, id := range r.order {
		if d := r.drivers[id]; d.IsAvailable {
			out = append(out, d)
		}
	}
	return out, nil
}

func (r *fakeDriverRepo) UpdateLocation(ctx context.Context, id string, lat, lng float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	if d := r.drivers[id]; d != nil {
		d.CurrentLat, d.CurrentLng = &lat, &lng
	}
	return nil
}

func (r *fakeDriverRepo) SetAvailability(ctx context.Context, id string, available bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	if d := r.drivers[id]; d != nil {
		d.IsAvailable = available
	}
	return nil
}

func (r *fakeDriverRepo) SetVerificationStatus(ctx context.Context, id, status string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if d := r.drivers[id]; d != nil {
		d.VerificationStatus = status
	}
	return nil
}

func (r *fakeDriverRepo) RecordCompletedRide(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.completed[id]++
	if d := r.drivers[id]; d != nil {
		d.TotalRides++
		d.IsAvailable = true
	}
	return nil
}

func (r *fakeDriverRepo) RefreshRating(ctx context.Context, id string) error {
	return nil
}

func (r *fakeDriverRepo) CountAvailable(ctx context.Context) (int, error) {
	drivers, err := r.ListAvailable(ctx)
	return len(drivers), err
}

func (r *fakeDriverRepo) CountPendingVerification(ctx context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, d := range r.drivers {
		if d.VerificationStatus == models.VerificationPending {
			n++
		}
	}
	return n, nil
}

type fakeRideRepo struct {
	mu      sync.Mutex
	rides   map[string]*models.Ride
	err     error
	created int
}

func newFakeRideRepo(rides ...*models.Ride) *fakeRideRepo {
	r := &fakeRideRepo{rides: map[string]*models.Ride{}}
	for _, ride := range rides {
		r.rides[ride.ID] = ride
	}
	return r
}

func (r *fakeRideRepo) Create(ctx context.Context, ride *models.Ride) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	if ride.ID == "" {
		ride.ID = "ride-" + time.Now().Format("150405.000000")
	}
	ride.Status = models.RideStatusRequested
	ride.CreatedAt = time.Now()
	ride.UpdatedAt = ride.CreatedAt
	cp := *ride
	r.rides[ride.ID] = &cp
	r.created++
	return nil
}

func (r *fakeRideRepo) GetByID(ctx context.Context, id string) (*models.Ride, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	ride, ok := r.rides[id]
	if !ok {
		return nil, nil
	}
	cp := *ride
	return &cp, nil
}

func (r *fakeRideRepo) ListByPatientID(ctx context.Context, patientID string, limit int) ([]*models.Ride, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []*models.Ride{}
	for _, ride := range r.rides {
		if ride.PatientID == patientID {
			cp := *ride
			out = append(out, &cp)
		}
	}
	return out, r.err
}

func (r *fakeRideRepo) UpdateStatus(ctx context.Context, ride *models.Ride) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	cp := *ride
	r.rides[ride.ID] = &cp
	return nil
}

func (r *fakeRideRepo) Accept(ctx context.Context, rideID, driverID string) (*models.Ride, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	ride, ok := r.rides[rideID]
	if !ok {
		return nil, nil
	}
	if ride.Status == models.RideStatusRequested {
		now := time.Now()
		ride.DriverID = &driverID
		ride.Status = models.RideStatusAccepted
		ride.AcceptedAt = &now
	}
	cp := *ride
	return &cp, nil
}

func (r *fakeRideRepo) Rate(ctx context.Context, rideID string, serviceRating, driverRating int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if ride, ok := r.rides[rideID]; ok {
		ride.ServiceRating, ride.DriverRating = &serviceRating, &driverRating
	}
	return r.err
}

func (r *fakeRideRepo) GetActiveRideByPatientID(ctx context.Context, patientID string) (*models.Ride, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	for _, ride := range r.rides {
		if ride.PatientID == patientID && ride.IsActive() {
			cp := *ride
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *fakeRideRepo) GetActiveRideByDriverID(ctx context.Context, driverID string) (*models.Ride, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	for _, ride := range r.rides {
		if ride.DriverID != nil && *ride.DriverID == driverID && ride.IsActive() {
			cp := *ride
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *fakeRideRepo) CountByStatus(ctx context.Context) (map[string]int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	counts := map[string]int{}
	for _, ride := range r.rides {
		counts[ride.Status]++
	}
	return counts, r.err
}

func (r *fakeRideRepo) RevenueSince(ctx context.Context, since time.Time) (float64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	total := 0.0
	for _, ride := range r.rides {
		if ride.Status == models.RideStatusCompleted && ride.Price != nil && ride.CompletedAt != nil && !ride.CompletedAt.Before(since) {
			total += *ride.Price
		}
	}
	return total, r.err
}

type fakeProfileRepo struct {
	profiles map[string]*models.Profile
}

func (r *fakeProfileRepo) GetByID(ctx context.Context, id string) (*models.Profile, error) {
	if r == nil || r.profiles == nil {
		return nil, nil
	}
	return r.profiles[id], nil
}

func (r *fakeProfileRepo) Update(ctx context.Context, profile *models.Profile) error {
	r.profiles[profile.ID] = profile
	return nil
}

type fakeHistoryRepo struct {
	mu      sync.Mutex
	entries []*models.RideHistoryEntry
}

func (r *fakeHistoryRepo) Append(ctx context.Context, ride *models.Ride) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, &models.RideHistoryEntry{
		RideID:    ride.ID,
		PatientID: ride.PatientID,
		DriverID:  ride.DriverID,
		Status:    ride.Status,
		Price:     ride.Price,
	})
	return nil
}

func (r *fakeHistoryRepo) ListByPatientID(ctx context.Context, patientID string, limit int) ([]*models.RideHistoryEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []*models.RideHistoryEntry{}
	for _, e := range r.entries {
		if e.PatientID == patientID {
			out = append(out, e)
		}
	}
	return out, nil
}

type fakeGeoRepo struct {
	km  float64
	err error
}

func (r *fakeGeoRepo) CalculateDistance(ctx context.Context, lat1, lng1, lat2, lng2 float64) (float64, error) {
	return r.km, r.err
}
