package functions

import (
	"encoding/json"

	"github.com/go-playground/validator/v10"
	apperrors "github.com/pwendlys/viaja-mais/internal/errors"
	"github.com/pwendlys/viaja-mais/internal/models"
)

// Function names
const (
	FunctionPrice         = "calculate-ride-price"
	FunctionRides         = "ride-management"
	FunctionNotifications = "realtime-notifications"
	FunctionAdmin         = "admin-dashboard"
	FunctionUsers         = "user-management"
	FunctionRoutes        = "mapbox-health-transport"
)

var validate = validator.New()

func readAction(body json.RawMessage) (string, error) {
	var envelope struct {
		Action string `json:"action"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return "", apperrors.BadRequest("corpo da requisição inválido")
	}
	if envelope.Action == "" {
		return "", apperrors.BadRequest("campo action é obrigatório")
	}
	return envelope.Action, nil
}

func decodeInto(body json.RawMessage, v interface{}) error {
	if err := json.Unmarshal(body, v); err != nil {
		return apperrors.BadRequest("corpo da requisição inválido")
	}
	if err := validate.Struct(v); err != nil {
		return apperrors.BadRequest(err.Error())
	}
	return nil
}

// calculate-ride-price

type PriceAction interface{ priceAction() }

type CalculatePrice struct {
	models.PriceRequest
}

func (*CalculatePrice) priceAction() {}

func DecodePriceAction(body json.RawMessage) (PriceAction, error) {
	action, err := readAction(body)
	if err != nil {
		return nil, err
	}
	var a PriceAction
	switch action {
	case "calculate":
		a = &CalculatePrice{}
	default:
		return nil, apperrors.UnknownAction(FunctionPrice, action)
	}
	if err := decodeInto(body, a); err != nil {
		return nil, err
	}
	return a, nil
}

// ride-management

type RideAction interface{ rideAction() }

type CreateRide struct {
	models.RideRequest
}

type AcceptRide struct {
	RideID string `json:"ride_id" validate:"required"`
	models.AcceptRideRequest
}

type UpdateStatus struct {
	RideID string `json:"ride_id" validate:"required"`
	models.UpdateRideStatusRequest
}

type CancelRide struct {
	RideID string `json:"ride_id" validate:"required"`
	models.CancelRideRequest
}

type RateRide struct {
	RideID string `json:"ride_id" validate:"required"`
	models.RateRideRequest
}

func (*CreateRide) rideAction()   {}
func (*AcceptRide) rideAction()   {}
func (*UpdateStatus) rideAction() {}
func (*CancelRide) rideAction()   {}
func (*RateRide) rideAction()     {}

func DecodeRideAction(body json.RawMessage) (RideAction, error) {
	action, err := readAction(body)
	if err != nil {
		return nil, err
	}
	var a RideAction
	switch action {
	case "create_ride":
		a = &CreateRide{}
	case "accept_ride":
		a = &AcceptRide{}
	case "update_status":
		a = &UpdateStatus{}
	case "cancel_ride":
		a = &CancelRide{}
	case "rate_ride":
		a = &RateRide{}
	default:
		return nil, apperrors.UnknownAction(FunctionRides, action)
	}
	if err := decodeInto(body, a); err != nil {
		return nil, err
	}
	return a, nil
}

// realtime-notifications

type NotificationAction interface{ notificationAction() }

type SendNotification struct {
	models.SendNotificationRequest
}

type Broadcast struct {
	Channel string          `json:"channel" validate:"required"`
	Type    string          `json:"type" validate:"required"`
	Title   string          `json:"title"`
	Message string          `json:"message" validate:"required"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func (*SendNotification) notificationAction() {}
func (*Broadcast) notificationAction()        {}

func DecodeNotificationAction(body json.RawMessage) (NotificationAction, error) {
	action, err := readAction(body)
	if err != nil {
		return nil, err
	}
	var a NotificationAction
	switch action {
	case "send_notification":
		a = &SendNotification{}
	case "broadcast":
		a = &Broadcast{}
	default:
		return nil, apperrors.UnknownAction(FunctionNotifications, action)
	}
	if err := decodeInto(body, a); err != nil {
		return nil, err
	}
	return a, nil
}

// admin-dashboard

type AdminAction interface{ adminAction() }

type GetMetrics struct {
	Refresh bool `json:"refresh"`
}

func (*GetMetrics) adminAction() {}

func DecodeAdminAction(body json.RawMessage) (AdminAction, error) {
	action, err := readAction(body)
	if err != nil {
		return nil, err
	}
	var a AdminAction
	switch action {
	case "get_metrics":
		a = &GetMetrics{}
	default:
		return nil, apperrors.UnknownAction(FunctionAdmin, action)
	}
	if err := decodeInto(body, a); err != nil {
		return nil, err
	}
	return a, nil
}

// user-management

type UserAction interface{ userAction() }

type GetProfile struct {
	UserID string `json:"user_id" validate:"required"`
}

type UpdateProfile struct {
	UserID string `json:"user_id" validate:"required"`
	models.UpdateProfileRequest
}

func (*GetProfile) userAction()    {}
func (*UpdateProfile) userAction() {}

func DecodeUserAction(body json.RawMessage) (UserAction, error) {
	action, err := readAction(body)
	if err != nil {
		return nil, err
	}
	var a UserAction
	switch action {
	case "get_profile":
		a = &GetProfile{}
	case "update_profile":
		a = &UpdateProfile{}
	default:
		return nil, apperrors.UnknownAction(FunctionUsers, action)
	}
	if err := decodeInto(body, a); err != nil {
		return nil, err
	}
	return a, nil
}

// mapbox-health-transport

type RouteAction interface{ routeAction() }

type CalculateRoute struct {
	models.RouteRequest
}

func (*CalculateRoute) routeAction() {}

func DecodeRouteAction(body json.RawMessage) (RouteAction, error) {
	action, err := readAction(body)
	if err != nil {
		return nil, err
	}
	var a RouteAction
	switch action {
	case "calculate_route":
		a = &CalculateRoute{}
	default:
		return nil, apperrors.UnknownAction(FunctionRoutes, action)
	}
	if err := decodeInto(body, a); err != nil {
		return nil, err
	}
	return a, nil
}
