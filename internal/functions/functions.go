package functions

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/pwendlys/viaja-mais/internal/models"
	"github.com/pwendlys/viaja-mais/internal/service"
)

// Notifier publishes a notification and reports the channel it went to.
type Notifier interface {
	Send(ctx context.Context, req *models.SendNotificationRequest) (string, error)
}

// Services are the backends the built-in functions dispatch to. A nil
// service leaves its function unregistered.
type Services struct {
	Pricing  service.PricingService
	Rides    service.RideService
	Notifier Notifier
	Admin    service.AdminService
	Profiles service.ProfileService
	Routes   service.RouteService
}

// NewDefault registers every function the services can back.
func NewDefault(svc Services, timeout time.Duration) *Registry {
	r := NewRegistry(timeout)
	if svc.Pricing != nil {
		r.Register(FunctionPrice, priceFunction(svc.Pricing))
	}
	if svc.Rides != nil {
		r.Register(FunctionRides, rideFunction(svc.Rides))
	}
	if svc.Notifier != nil {
		r.Register(FunctionNotifications, notificationFunction(svc.Notifier))
	}
	if svc.Admin != nil {
		r.Register(FunctionAdmin, adminFunction(svc.Admin))
	}
	if svc.Profiles != nil {
		r.Register(FunctionUsers, userFunction(svc.Profiles))
	}
	if svc.Routes != nil {
		r.Register(FunctionRoutes, routeFunction(svc.Routes))
	}
	return r
}

func unhandled(action interface{}) error {
	return fmt.Errorf("no handler for action %T", action)
}

func priceFunction(pricing service.PricingService) Handler {
	return func(ctx context.Context, body json.RawMessage) (interface{}, error) {
		action, err := DecodePriceAction(body)
		if err != nil {
			return nil, err
		}
		switch a := action.(type) {
		case *CalculatePrice:
			return pricing.CalculatePrice(ctx, &a.PriceRequest)
		}
		return nil, unhandled(action)
	}
}

func rideFunction(rides service.RideService) Handler {
	return func(ctx context.Context, body json.RawMessage) (interface{}, error) {
		action, err := DecodeRideAction(body)
		if err != nil {
			return nil, err
		}
		switch a := action.(type) {
		case *CreateRide:
			return rides.CreateRide(ctx, &a.RideRequest)
		case *AcceptRide:
			return rides.AcceptRide(ctx, a.RideID, &a.AcceptRideRequest)
		case *UpdateStatus:
			return rides.UpdateRideStatus(ctx, a.RideID, &a.UpdateRideStatusRequest)
		case *CancelRide:
			return rides.CancelRide(ctx, a.RideID, &a.CancelRideRequest)
		case *RateRide:
			return rides.RateRide(ctx, a.RideID, &a.RateRideRequest)
		}
		return nil, unhandled(action)
	}
}

type sentNotification struct {
	Channel string `json:"channel"`
	Sent    bool   `json:"sent"`
}

func notificationFunction(notifier Notifier) Handler {
	return func(ctx context.Context, body json.RawMessage) (interface{}, error) {
		action, err := DecodeNotificationAction(body)
		if err != nil {
			return nil, err
		}
		var req *models.SendNotificationRequest
		switch a := action.(type) {
		case *SendNotification:
			req = &a.SendNotificationRequest
		case *Broadcast:
			req = &models.SendNotificationRequest{
				Channel: a.Channel,
				Type:    a.Type,
				Title:   a.Title,
				Message: a.Message,
				Data:    a.Data,
			}
		default:
			return nil, unhandled(action)
		}
		channel, err := notifier.Send(ctx, req)
		if err != nil {
			return nil, err
		}
		return sentNotification{Channel: channel, Sent: true}, nil
	}
}

func adminFunction(admin service.AdminService) Handler {
	return func(ctx context.Context, body json.RawMessage) (interface{}, error) {
		action, err := DecodeAdminAction(body)
		if err != nil {
			return nil, err
		}
		switch a := action.(type) {
		case *GetMetrics:
			if a.Refresh {
				return admin.Refresh(ctx)
			}
			return admin.Metrics(ctx)
		}
		return nil, unhandled(action)
	}
}

func userFunction(profiles service.ProfileService) Handler {
	return func(ctx context.Context, body json.RawMessage) (interface{}, error) {
		action, err := DecodeUserAction(body)
		if err != nil {
			return nil, err
		}
		switch a := action.(type) {
		case *GetProfile:
			return profiles.GetProfile(ctx, a.UserID)
		case *UpdateProfile:
			return profiles.UpdateProfile(ctx, a.UserID, &a.UpdateProfileRequest)
		}
		return nil, unhandled(action)
	}
}

func routeFunction(routes service.RouteService) Handler {
	return func(ctx context.Context, body json.RawMessage) (interface{}, error) {
		action, err := DecodeRouteAction(body)
		if err != nil {
			return nil, err
		}
		switch a := action.(type) {
		case *CalculateRoute:
			return routes.CalculateRoute(ctx, &a.RouteRequest)
		}
		return nil, unhandled(action)
	}
}
