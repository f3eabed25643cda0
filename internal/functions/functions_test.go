package functions

import (
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"testing"
	"time"

	apperrors "github.com/pwendlys/viaja-mais/internal/errors"
	"github.com/pwendlys/viaja-mais/internal/models"
	"github.com/pwendlys/viaja-mais/internal/service"
)

type fakePricing struct {
	service.PricingService
	got *models.PriceRequest
}

func (f *fakePricing) CalculatePrice(ctx context.Context, req *models.PriceRequest) (*models.PriceBreakdown, error) {
	f.got = req
	return &models.PriceBreakdown{FinalPrice: 22}, nil
}

type fakeRides struct {
	service.RideService
	calls []string
}

func (f *fakeRides) record(call string) *models.RideResult {
	f.calls = append(f.calls, call)
	return &models.RideResult{Ride: &models.Ride{ID: "r1"}}
}

func (f *fakeRides) CreateRide(ctx context.Context, req *models.RideRequest) (*models.RideResult, error) {
	return f.record("create:" + req.PatientID), nil
}

func (f *fakeRides) AcceptRide(ctx context.Context, rideID string, req *models.AcceptRideRequest) (*models.RideResult, error) {
	return f.record("accept:" + rideID + ":" + req.DriverID), nil
}

func (f *fakeRides) UpdateRideStatus(ctx context.Context, rideID string, req *models.UpdateRideStatusRequest) (*models.RideResult, error) {
	return f.record("status:" + rideID + ":" + req.Status), nil
}

func (f *fakeRides) CancelRide(ctx context.Context, rideID string, req *models.CancelRideRequest) (*models.RideResult, error) {
	return f.record("cancel:" + rideID + ":" + req.Reason), nil
}

func (f *fakeRides) RateRide(ctx context.Context, rideID string, req *models.RateRideRequest) (*models.Ride, error) {
	f.record("rate:" + rideID)
	return &models.Ride{ID: rideID}, nil
}

type fakeNotifier struct {
	got []*models.SendNotificationRequest
	err error
}

func (f *fakeNotifier) Send(ctx context.Context, req *models.SendNotificationRequest) (string, error) {
	f.got = append(f.got, req)
	if f.err != nil {
		return "", f.err
	}
	if req.Channel != "" {
		return req.Channel, nil
	}
	return "user_" + req.UserID, nil
}

type fakeAdmin struct {
	service.AdminService
	refreshed int
}

func (f *fakeAdmin) Metrics(ctx context.Context) (*models.DashboardMetrics, error) {
	return &models.DashboardMetrics{AvailableDrivers: 1}, nil
}

func (f *fakeAdmin) Refresh(ctx context.Context) (*models.DashboardMetrics, error) {
	f.refreshed++
	return &models.DashboardMetrics{AvailableDrivers: 2}, nil
}

type fakeProfiles struct {
	updated *models.UpdateProfileRequest
}

func (f *fakeProfiles) GetProfile(ctx context.Context, id string) (*models.Profile, error) {
	if id != "p1" {
		return nil, apperrors.NotFound("perfil")
	}
	return &models.Profile{ID: id, FullName: "Maria"}, nil
}

func (f *fakeProfiles) UpdateProfile(ctx context.Context, id string, req *models.UpdateProfileRequest) (*models.Profile, error) {
	f.updated = req
	return &models.Profile{ID: id, FullName: *req.FullName}, nil
}

type fakeRoutes struct{}

func (fakeRoutes) CalculateRoute(ctx context.Context, req *models.RouteRequest) (*models.RouteEstimate, error) {
	return &models.RouteEstimate{DistanceKm: 5, DurationMinutes: 10, Source: models.DistanceSourceDatabase}, nil
}

type fixture struct {
	registry *Registry
	pricing  *fakePricing
	rides    *fakeRides
	notifier *fakeNotifier
	admin    *fakeAdmin
	profiles *fakeProfiles
}

func newFixture() *fixture {
	f := &fixture{
		pricing:  &fakePricing{},
		rides:    &fakeRides{},
		notifier: &fakeNotifier{},
		admin:    &fakeAdmin{},
		profiles: &fakeProfiles{},
	}
	f.registry = NewDefault(Services{
		Pricing:  f.pricing,
		Rides:    f.rides,
		Notifier: f.notifier,
		Admin:    f.admin,
		Profiles: f.profiles,
		Routes:   fakeRoutes{},
	}, time.Second)
	return f
}

func call(t *testing.T, r *Registry, name, body string) (interface{}, error) {
	t.Helper()
	return r.Call(context.Background(), name, json.RawMessage(body))
}

func TestRegistryNames(t *testing.T) {
	want := []string{
		FunctionAdmin,
		FunctionPrice,
		FunctionRoutes,
		FunctionNotifications,
		FunctionRides,
		FunctionUsers,
	}
	if got := newFixture().registry.Names(); !reflect.DeepEqual(got, want) {
		t.Errorf("Names() = %v, want %v", got, want)
	}

	partial := NewDefault(Services{Routes: fakeRoutes{}}, 0)
	if got := partial.Names(); !reflect.DeepEqual(got, []string{FunctionRoutes}) {
		t.Errorf("Names() = %v", got)
	}
}

func TestDecodeErrors(t *testing.T) {
	f := newFixture()
	tests := []struct {
		name     string
		function string
		body     string
		sentinel error
	}{
		{"unknown function", "send-sms", `{"action":"x"}`, apperrors.ErrUnknownFunction},
		{"unknown action", FunctionRides, `{"action":"delete_ride"}`, apperrors.ErrUnknownAction},
		{"missing action", FunctionPrice, `{"vehicle_type":"conforto"}`, apperrors.ErrBadRequest},
		{"malformed body", FunctionAdmin, `{"action":`, apperrors.ErrBadRequest},
		{"validation", FunctionRides, `{"action":"rate_ride","ride_id":"r1","service_rating":6,"driver_rating":5}`, apperrors.ErrBadRequest},
		{"missing ride id", FunctionRides, `{"action":"cancel_ride"}`, apperrors.ErrBadRequest},
		{"broadcast without channel", FunctionNotifications, `{"action":"broadcast","type":"info","message":"oi"}`, apperrors.ErrBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := call(t, f.registry, tt.function, tt.body)
			if !errors.Is(err, tt.sentinel) {
				t.Errorf("error = %v, want %v", err, tt.sentinel)
			}
		})
	}
	if len(f.rides.calls) != 0 {
		t.Errorf("service called on bad input: %v", f.rides.calls)
	}
}

func TestRideManagementDispatch(t *testing.T) {
	tests := []struct {
		body string
		want string
	}{
		{`{"action":"create_ride","patient_id":"p1","origin":{"lat":-23.56,"lng":-46.65},"destination":{"lat":-23.55,"lng":-46.66},"vehicle_type":"conforto"}`, "create:p1"},
		{`{"action":"accept_ride","ride_id":"r1","driver_id":"d1"}`, "accept:r1:d1"},
		{`{"action":"update_status","ride_id":"r1","status":"in_progress"}`, "status:r1:in_progress"},
		{`{"action":"cancel_ride","ride_id":"r1","reason":"consulta remarcada"}`, "cancel:r1:consulta remarcada"},
		{`{"action":"rate_ride","ride_id":"r1","service_rating":5,"driver_rating":4}`, "rate:r1"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			f := newFixture()
			if _, err := call(t, f.registry, FunctionRides, tt.body); err != nil {
				t.Fatalf("Call() error = %v", err)
			}
			if !reflect.DeepEqual(f.rides.calls, []string{tt.want}) {
				t.Errorf("calls = %v, want [%s]", f.rides.calls, tt.want)
			}
		})
	}
}

func TestCalculatePrice(t *testing.T) {
	f := newFixture()
	got, err := call(t, f.registry, FunctionPrice, `{"action":"calculate","vehicle_type":"conforto","distance_km":5,"duration_minutes":10,"is_elderly":true}`)
	if err != nil {
		t.Fatalf("Call() error = %v", err)
	}
	if got.(*models.PriceBreakdown).FinalPrice != 22 {
		t.Errorf("result = %+v", got)
	}
	if f.pricing.got.VehicleType != "conforto" || f.pricing.got.DistanceKm != 5 || !f.pricing.got.IsElderly {
		t.Errorf("request = %+v", f.pricing.got)
	}
}

func TestNotifications(t *testing.T) {
	f := newFixture()

	got, err := call(t, f.registry, FunctionNotifications, `{"action":"broadcast","channel":"ride_requests","type":"info","message":"nova corrida"}`)
	if err != nil {
		t.Fatalf("broadcast error = %v", err)
	}
	if got.(sentNotification).Channel != "ride_requests" {
		t.Errorf("result = %+v", got)
	}

	got, err = call(t, f.registry, FunctionNotifications, `{"action":"send_notification","user_id":"p1","type":"info","message":"motorista a caminho"}`)
	if err != nil {
		t.Fatalf("send_notification error = %v", err)
	}
	if got.(sentNotification).Channel != "user_p1" {
		t.Errorf("result = %+v", got)
	}
	if len(f.notifier.got) != 2 || f.notifier.got[1].Message != "motorista a caminho" {
		t.Errorf("notifier got %+v", f.notifier.got)
	}

	f.notifier.err = errors.New("redis down")
	if _, err := call(t, f.registry, FunctionNotifications, `{"action":"send_notification","user_id":"p1","type":"info","message":"x"}`); err == nil {
		t.Error("expected notifier error")
	}
}

func TestAdminAndUsers(t *testing.T) {
	f := newFixture()

	got, err := call(t, f.registry, FunctionAdmin, `{"action":"get_metrics"}`)
	if err != nil || got.(*models.DashboardMetrics).AvailableDrivers != 1 {
		t.Fatalf("cached metrics = %+v, %v", got, err)
	}
	got, err = call(t, f.registry, FunctionAdmin, `{"action":"get_metrics","refresh":true}`)
	if err != nil || got.(*models.DashboardMetrics).AvailableDrivers != 2 || f.admin.refreshed != 1 {
		t.Fatalf("refreshed metrics = %+v, %v", got, err)
	}

	if _, err := call(t, f.registry, FunctionUsers, `{"action":"get_profile","user_id":"nobody"}`); !errors.Is(err, apperrors.ErrNotFound) {
		t.Errorf("get_profile error = %v, want not found", err)
	}
	got, err = call(t, f.registry, FunctionUsers, `{"action":"update_profile","user_id":"p1","full_name":"Maria Silva"}`)
	if err != nil {
		t.Fatalf("update_profile error = %v", err)
	}
	if got.(*models.Profile).FullName != "Maria Silva" || f.profiles.updated.Phone != nil {
		t.Errorf("profile = %+v", got)
	}
}

func TestInvokeEncodesResult(t *testing.T) {
	f := newFixture()
	raw, err := f.registry.Invoke(context.Background(), FunctionRoutes,
		[]byte(`{"action":"calculate_route","origin":{"lat":-23.56,"lng":-46.65},"destination":{"lat":-23.55,"lng":-46.66}}`))
	if err != nil {
		t.Fatalf("Invoke() error = %v", err)
	}
	if string(raw) != `{"distance_km":5,"duration_minutes":10,"source":"calculate_distance"}` {
		t.Errorf("Invoke() = %s", raw)
	}

	if _, err := f.registry.Invoke(context.Background(), "nope", []byte(`{}`)); !errors.Is(err, apperrors.ErrUnknownFunction) {
		t.Errorf("error = %v", err)
	}
}

func TestCallAppliesTimeout(t *testing.T) {
	r := NewRegistry(50 * time.Millisecond)
	r.Register("slow", func(ctx context.Context, body json.RawMessage) (interface{}, error) {
		if _, ok := ctx.Deadline(); !ok {
			t.Error("handler ran without a deadline")
		}
		<-ctx.Done()
		return nil, ctx.Err()
	})

	if _, err := r.Call(context.Background(), "slow", nil); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("error = %v, want deadline exceeded", err)
	}
}
