package handler

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/pwendlys/viaja-mais/internal/models"
	"github.com/pwendlys/viaja-mais/internal/realtime"
	"github.com/pwendlys/viaja-mais/internal/service"
	"github.com/pwendlys/viaja-mais/pkg/utils"
)

const defaultStreamHeartbeat = 30 * time.Second

type sendNotificationRequest struct {
	Type    string          `json:"type" validate:"required"`
	Message string          `json:"message" validate:"required"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// StreamHandler serves per-user notification streams over SSE and live ride
// tracking over websockets.
type StreamHandler struct {
	manager     *realtime.Manager
	fanout      *realtime.Fanout
	hub         *realtime.Hub
	invoker     realtime.FunctionInvoker
	rideService service.RideService
	validate    *validator.Validate
	heartbeat   time.Duration
}

func NewStreamHandler(
	manager *realtime.Manager,
	fanout *realtime.Fanout,
	hub *realtime.Hub,
	invoker realtime.FunctionInvoker,
	rideService service.RideService,
) *StreamHandler {
	return &StreamHandler{
		manager:     manager,
		fanout:      fanout,
		hub:         hub,
		invoker:     invoker,
		rideService: rideService,
		validate:    validator.New(),
		heartbeat:   defaultStreamHeartbeat,
	}
}

func (h *StreamHandler) RegisterRoutes(r chi.Router) {
	r.Get("/users/{id}/notifications", h.StreamNotifications)
	r.Get("/users/{id}/notifications/history", h.History)
	r.Delete("/users/{id}/notifications/history", h.ClearHistory)
	r.Post("/users/{id}/notifications", h.SendNotification)
	r.Get("/rides/{id}/ws", h.TrackRide)
}

// GET /v1/users/{id}/notifications?role=driver&channels=a,b
func (h *StreamHandler) StreamNotifications(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")
	if userID == "" {
		utils.BadRequest(w, "id do usuário é obrigatório")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		utils.InternalError(w, "streaming não suportado")
		return
	}

	var custom []string
	if raw := r.URL.Query().Get("channels"); raw != "" {
		custom = strings.Split(raw, ",")
	}

	// Register before acquiring so nothing delivered on connect is missed.
	stream, unregister := h.fanout.Register(userID)
	defer unregister()
	bridge := h.manager.Acquire(userID, r.URL.Query().Get("role"), custom...)
	defer h.manager.Release(userID)

	// Streams outlive the server write timeout.
	if err := http.NewResponseController(w).SetWriteDeadline(time.Time{}); err != nil {
		log.Printf("notification stream for %s keeps the server write deadline: %v", userID, err)
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	writeEvent(w, "state", map[string]string{"state": bridge.State().String()})
	flusher.Flush()

	ctx := r.Context()
	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case n, ok := <-stream:
			if !ok {
				return
			}
			writeEvent(w, "notification", n)
			flusher.Flush()
		case <-ticker.C:
			writeEvent(w, "heartbeat", map[string]string{
				"state": bridge.State().String(),
				"time":  time.Now().Format(time.RFC3339),
			})
			flusher.Flush()
		}
	}
}

func writeEvent(w http.ResponseWriter, event string, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
}

// GET /v1/users/{id}/notifications/history
func (h *StreamHandler) History(w http.ResponseWriter, r *http.Request) {
	history := []models.Notification{}
	if bridge, ok := h.manager.Get(chi.URLParam(r, "id")); ok {
		history = bridge.History()
	}

	utils.Success(w, http.StatusOK, history)
}

// DELETE /v1/users/{id}/notifications/history
func (h *StreamHandler) ClearHistory(w http.ResponseWriter, r *http.Request) {
	if bridge, ok := h.manager.Get(chi.URLParam(r, "id")); ok {
		bridge.ClearHistory()
	}

	utils.NoContent(w)
}

// POST /v1/users/{id}/notifications
func (h *StreamHandler) SendNotification(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")
	if userID == "" {
		utils.BadRequest(w, "id do usuário é obrigatório")
		return
	}

	var req sendNotificationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.BadRequest(w, "corpo da requisição inválido")
		return
	}

	if err := h.validate.Struct(req); err != nil {
		utils.BadRequest(w, err.Error())
		return
	}

	if err := realtime.SendNotification(r.Context(), h.invoker, userID, req.Type, req.Message, req.Data); err != nil {
		handleError(w, err)
		return
	}

	utils.Success(w, http.StatusAccepted, map[string]interface{}{
		"sent":    true,
		"channel": realtime.UserChannel(userID),
	})
}

// GET /v1/rides/{id}/ws
func (h *StreamHandler) TrackRide(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !utils.IsValidRideID(id) {
		utils.BadRequest(w, "id da corrida inválido")
		return
	}

	ride, err := h.rideService.GetRide(r.Context(), id)
	if err != nil {
		handleError(w, err)
		return
	}

	h.hub.ServeRide(w, r, id, map[string]interface{}{
		"type": "ride_update",
		"ride": ride,
	})
}
