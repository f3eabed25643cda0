package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/pwendlys/viaja-mais/internal/models"
	"github.com/pwendlys/viaja-mais/internal/service"
	"github.com/pwendlys/viaja-mais/pkg/utils"
)

type RideHandler struct {
	rideService     service.RideService
	matchingService service.MatchingService
	validate        *validator.Validate
}

func NewRideHandler(rideService service.RideService, matchingService service.MatchingService) *RideHandler {
	return &RideHandler{
		rideService:     rideService,
		matchingService: matchingService,
		validate:        validator.New(),
	}
}

func (h *RideHandler) RegisterRoutes(r chi.Router) {
	r.Post("/rides", h.CreateRide)
	r.Post("/rides/match", h.MatchDrivers)
	r.Get("/rides/{id}", h.GetRide)
	r.Post("/rides/{id}/accept", h.AcceptRide)
	r.Post("/rides/{id}/status", h.UpdateStatus)
	r.Post("/rides/{id}/cancel", h.CancelRide)
	r.Post("/rides/{id}/rate", h.RateRide)
	r.Get("/patients/{id}/rides", h.ListPatientRides)
	r.Get("/patients/{id}/history", h.GetHistory)
}

// POST /v1/rides
func (h *RideHandler) CreateRide(w http.ResponseWriter, r *http.Request) {
	var req models.RideRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.BadRequest(w, "corpo da requisição inválido")
		return
	}

	if err := h.validate.Struct(req); err != nil {
		utils.BadRequest(w, err.Error())
		return
	}

	result, err := h.rideService.CreateRide(r.Context(), &req)
	if err != nil {
		handleError(w, err)
		return
	}

	// Offline rides are only queued locally.
	if result.Offline {
		utils.Success(w, http.StatusAccepted, result)
		return
	}
	utils.Created(w, result)
}

// POST /v1/rides/match
func (h *RideHandler) MatchDrivers(w http.ResponseWriter, r *http.Request) {
	var req models.MatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.BadRequest(w, "corpo da requisição inválido")
		return
	}

	if err := h.validate.Struct(req); err != nil {
		utils.BadRequest(w, err.Error())
		return
	}

	matches, err := h.matchingService.FindNearbyDrivers(r.Context(), &req)
	if err != nil {
		handleError(w, err)
		return
	}

	resp := map[string]interface{}{"drivers": matches}
	if len(matches) == 0 {
		resp["drivers"] = []models.DriverMatch{}
		resp["message"] = "nenhum motorista encontrado"
	}
	utils.Success(w, http.StatusOK, resp)
}

// GET /v1/rides/{id}
func (h *RideHandler) GetRide(w http.ResponseWriter, r *http.Request) {
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

	utils.Success(w, http.StatusOK, ride)
}

// POST /v1/rides/{id}/accept
func (h *RideHandler) AcceptRide(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !utils.IsValidRideID(id) {
		utils.BadRequest(w, "id da corrida inválido")
		return
	}

	var req models.AcceptRideRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.BadRequest(w, "corpo da requisição inválido")
		return
	}

	if err := h.validate.Struct(req); err != nil {
		utils.BadRequest(w, err.Error())
		return
	}

	result, err := h.rideService.AcceptRide(r.Context(), id, &req)
	if err != nil {
		handleError(w, err)
		return
	}

	utils.Success(w, http.StatusOK, result)
}

// POST /v1/rides/{id}/status
func (h *RideHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !utils.IsValidRideID(id) {
		utils.BadRequest(w, "id da corrida inválido")
		return
	}

	var req models.UpdateRideStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.BadRequest(w, "corpo da requisição inválido")
		return
	}

	if err := h.validate.Struct(req); err != nil {
		utils.BadRequest(w, err.Error())
		return
	}

	result, err := h.rideService.UpdateRideStatus(r.Context(), id, &req)
	if err != nil {
		handleError(w, err)
		return
	}

	utils.Success(w, http.StatusOK, result)
}

// POST /v1/rides/{id}/cancel
func (h *RideHandler) CancelRide(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !utils.IsValidRideID(id) {
		utils.BadRequest(w, "id da corrida inválido")
		return
	}

	var req models.CancelRideRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			utils.BadRequest(w, "corpo da requisição inválido")
			return
		}
	}

	if err := h.validate.Struct(req); err != nil {
		utils.BadRequest(w, err.Error())
		return
	}

	result, err := h.rideService.CancelRide(r.Context(), id, &req)
	if err != nil {
		handleError(w, err)
		return
	}

	utils.Success(w, http.StatusOK, result)
}

// POST /v1/rides/{id}/rate
func (h *RideHandler) RateRide(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !utils.IsValidRideID(id) {
		utils.BadRequest(w, "id da corrida inválido")
		return
	}

	var req models.RateRideRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.BadRequest(w, "corpo da requisição inválido")
		return
	}

	if err := h.validate.Struct(req); err != nil {
		utils.BadRequest(w, err.Error())
		return
	}

	ride, err := h.rideService.RateRide(r.Context(), id, &req)
	if err != nil {
		handleError(w, err)
		return
	}

	utils.Success(w, http.StatusOK, ride)
}

// GET /v1/patients/{id}/rides
func (h *RideHandler) ListPatientRides(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		utils.BadRequest(w, "id do paciente é obrigatório")
		return
	}

	rides, err := h.rideService.ListPatientRides(r.Context(), id, queryLimit(r, 20, 100))
	if err != nil {
		handleError(w, err)
		return
	}
	if rides == nil {
		rides = []*models.Ride{}
	}

	utils.Success(w, http.StatusOK, rides)
}

// GET /v1/patients/{id}/history
func (h *RideHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		utils.BadRequest(w, "id do paciente é obrigatório")
		return
	}

	entries, err := h.rideService.GetHistory(r.Context(), id, queryLimit(r, 50, 200))
	if err != nil {
		handleError(w, err)
		return
	}
	if entries == nil {
		entries = []*models.RideHistoryEntry{}
	}

	utils.Success(w, http.StatusOK, entries)
}
