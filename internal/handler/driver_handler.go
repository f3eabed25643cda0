package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/pwendlys/viaja-mais/internal/models"
	"github.com/pwendlys/viaja-mais/internal/service"
	"github.com/pwendlys/viaja-mais/pkg/utils"
)

type DriverHandler struct {
	driverService service.DriverService
	validate      *validator.Validate
}

func NewDriverHandler(driverService service.DriverService) *DriverHandler {
	return &DriverHandler{
		driverService: driverService,
		validate:      validator.New(),
	}
}

func (h *DriverHandler) RegisterRoutes(r chi.Router) {
	r.Get("/drivers/{id}", h.GetDriver)
	r.Post("/drivers/{id}/location", h.UpdateLocation)
	r.Post("/drivers/{id}/availability", h.SetAvailability)
	r.Post("/drivers/{id}/verify", h.VerifyDriver)
}

// GET /v1/drivers/{id}
func (h *DriverHandler) GetDriver(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		utils.BadRequest(w, "id do motorista é obrigatório")
		return
	}

	driver, err := h.driverService.GetDriver(r.Context(), id)
	if err != nil {
		handleError(w, err)
		return
	}

	utils.Success(w, http.StatusOK, driver)
}

// POST /v1/drivers/{id}/location
func (h *DriverHandler) UpdateLocation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		utils.BadRequest(w, "id do motorista é obrigatório")
		return
	}

	var req models.UpdateDriverLocationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.BadRequest(w, "corpo da requisição inválido")
		return
	}

	if err := h.validate.Struct(req); err != nil {
		utils.BadRequest(w, err.Error())
		return
	}

	if err := h.driverService.UpdateLocation(r.Context(), id, &req); err != nil {
		handleError(w, err)
		return
	}

	utils.Success(w, http.StatusOK, map[string]interface{}{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

// POST /v1/drivers/{id}/availability
func (h *DriverHandler) SetAvailability(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		utils.BadRequest(w, "id do motorista é obrigatório")
		return
	}

	var req models.SetAvailabilityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.BadRequest(w, "corpo da requisição inválido")
		return
	}

	warnings, err := h.driverService.SetAvailability(r.Context(), id, req.IsAvailable)
	if err != nil {
		handleError(w, err)
		return
	}

	utils.Success(w, http.StatusOK, map[string]interface{}{
		"is_available": req.IsAvailable,
		"warnings":     warnings,
	})
}

// POST /v1/drivers/{id}/verify
func (h *DriverHandler) VerifyDriver(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		utils.BadRequest(w, "id do motorista é obrigatório")
		return
	}

	var req models.VerifyDriverRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.BadRequest(w, "corpo da requisição inválido")
		return
	}

	if err := h.validate.Struct(req); err != nil {
		utils.BadRequest(w, err.Error())
		return
	}

	driver, err := h.driverService.VerifyDriver(r.Context(), id, req.Status)
	if err != nil {
		handleError(w, err)
		return
	}

	utils.Success(w, http.StatusOK, driver)
}
