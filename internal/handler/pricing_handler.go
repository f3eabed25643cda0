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

// PricingHandler serves fare quotes, route estimates and tariff administration.
type PricingHandler struct {
	pricingService service.PricingService
	routeService   service.RouteService
	validate       *validator.Validate
}

func NewPricingHandler(pricingService service.PricingService, routeService service.RouteService) *PricingHandler {
	return &PricingHandler{
		pricingService: pricingService,
		routeService:   routeService,
		validate:       validator.New(),
	}
}

func (h *PricingHandler) RegisterRoutes(r chi.Router) {
	r.Post("/pricing/calculate", h.Calculate)
	r.Post("/routes/estimate", h.EstimateRoute)
	r.Get("/pricing/configs", h.ListConfigs)
	r.Put("/pricing/configs/{vehicleType}", h.UpdateConfig)
	r.Get("/pricing/rules", h.ListRules)
	r.Post("/pricing/rules", h.UpsertRule)
	r.Put("/pricing/rules/{id}", h.UpsertRule)
}

// POST /v1/pricing/calculate
func (h *PricingHandler) Calculate(w http.ResponseWriter, r *http.Request) {
	var req models.PriceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.BadRequest(w, "corpo da requisição inválido")
		return
	}

	if err := h.validate.Struct(req); err != nil {
		utils.BadRequest(w, err.Error())
		return
	}

	breakdown, err := h.pricingService.CalculatePrice(r.Context(), &req)
	if err != nil {
		handleError(w, err)
		return
	}

	utils.Success(w, http.StatusOK, breakdown)
}

// POST /v1/routes/estimate
func (h *PricingHandler) EstimateRoute(w http.ResponseWriter, r *http.Request) {
	var req models.RouteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.BadRequest(w, "corpo da requisição inválido")
		return
	}

	if err := h.validate.Struct(req); err != nil {
		utils.BadRequest(w, err.Error())
		return
	}

	estimate, err := h.routeService.CalculateRoute(r.Context(), &req)
	if err != nil {
		handleError(w, err)
		return
	}

	utils.Success(w, http.StatusOK, estimate)
}

// GET /v1/pricing/configs
func (h *PricingHandler) ListConfigs(w http.ResponseWriter, r *http.Request) {
	configs, err := h.pricingService.ListConfigs(r.Context())
	if err != nil {
		handleError(w, err)
		return
	}
	if configs == nil {
		configs = []*models.PricingConfig{}
	}

	utils.Success(w, http.StatusOK, configs)
}

// PUT /v1/pricing/configs/{vehicleType}
func (h *PricingHandler) UpdateConfig(w http.ResponseWriter, r *http.Request) {
	vehicleType := chi.URLParam(r, "vehicleType")

	var req models.UpdatePricingConfigRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.BadRequest(w, "corpo da requisição inválido")
		return
	}

	if err := h.validate.Struct(req); err != nil {
		utils.BadRequest(w, err.Error())
		return
	}

	cfg, err := h.pricingService.UpdateConfig(r.Context(), vehicleType, &req)
	if err != nil {
		handleError(w, err)
		return
	}

	utils.Success(w, http.StatusOK, cfg)
}

// GET /v1/pricing/rules
func (h *PricingHandler) ListRules(w http.ResponseWriter, r *http.Request) {
	rules, err := h.pricingService.ListRules(r.Context())
	if err != nil {
		handleError(w, err)
		return
	}
	if rules == nil {
		rules = []*models.PricingRule{}
	}

	utils.Success(w, http.StatusOK, rules)
}

// POST /v1/pricing/rules and PUT /v1/pricing/rules/{id}
func (h *PricingHandler) UpsertRule(w http.ResponseWriter, r *http.Request) {
	var rule models.PricingRule
	if err := json.NewDecoder(r.Body).Decode(&rule); err != nil {
		utils.BadRequest(w, "corpo da requisição inválido")
		return
	}
	if id := chi.URLParam(r, "id"); id != "" {
		rule.ID = id
	}

	if err := h.validate.Struct(rule); err != nil {
		utils.BadRequest(w, err.Error())
		return
	}

	if err := h.pricingService.UpsertRule(r.Context(), &rule); err != nil {
		handleError(w, err)
		return
	}

	utils.Success(w, http.StatusOK, rule)
}
