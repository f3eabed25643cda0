package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/pwendlys/viaja-mais/internal/models"
)

var rideTitles = map[string]string{
	models.RideStatusRequested:  "Nova solicitação de corrida",
	models.RideStatusAccepted:   "Corrida aceita",
	models.RideStatusInProgress: "Corrida iniciada",
	models.RideStatusCompleted:  "Corrida concluída",
	models.RideStatusCancelled:  "Corrida cancelada",
}

// Publisher turns service events into broadcast messages and socket pushes.
// It satisfies service.RideEvents and service.DriverEvents.
type Publisher struct {
	transport Transport
	hub       *Hub
}

// NewPublisher builds a publisher. hub may be nil.
func NewPublisher(transport Transport, hub *Hub) *Publisher {
	return &Publisher{transport: transport, hub: hub}
}

// Send publishes a notification on req.Channel, or on the user's channel
// when no channel is named.
func (p *Publisher) Send(ctx context.Context, req *models.SendNotificationRequest) (string, error) {
	channel := req.Channel
	if channel == "" {
		if req.UserID == "" {
			return "", fmt.Errorf("notification needs a user or a channel")
		}
		channel = UserChannel(req.UserID)
	}
	title := req.Title
	if title == "" {
		title = "Viaja+"
	}
	payload, err := json.Marshal(models.NotificationPayload{
		Type:  req.Type,
		Title: title,
		Body:  req.Message,
		Data:  req.Data,
	})
	if err != nil {
		return "", err
	}
	return channel, p.transport.Publish(ctx, channel, payload)
}

func (p *Publisher) RideUpdated(ctx context.Context, ride *models.Ride) {
	if p.hub != nil {
		p.hub.PublishRideUpdate(ride.ID, ride)
	}

	data, err := json.Marshal(ride)
	if err != nil {
		log.Printf("ride %s: encode event: %v", ride.ID, err)
		return
	}

	kind := models.NotificationRideStatus
	switch ride.Status {
	case models.RideStatusRequested:
		kind = models.NotificationRideRequest
	case models.RideStatusAccepted:
		kind = models.NotificationRideAccepted
	}

	targets := []string{UserChannel(ride.PatientID)}
	if ride.DriverID != nil && *ride.DriverID != "" {
		targets = append(targets, UserChannel(*ride.DriverID))
	}
	if ride.Status == models.RideStatusRequested {
		targets = append(targets, ChannelRideRequests)
	}

	for _, channel := range targets {
		_, err := p.Send(ctx, &models.SendNotificationRequest{
			Channel: channel,
			Type:    kind,
			Title:   rideTitles[ride.Status],
			Message: ride.OriginAddress + " → " + ride.DestinationAddress,
			Data:    data,
		})
		if err != nil {
			log.Printf("ride %s: publish to %s failed: %v", ride.ID, channel, err)
		}
	}
}

func (p *Publisher) DriverMoved(ctx context.Context, rideID, driverID string, lat, lng float64) {
	if p.hub != nil {
		p.hub.PublishDriverLocation(rideID, driverID, lat, lng)
	}
}
