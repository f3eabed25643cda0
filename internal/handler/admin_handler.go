package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/pwendlys/viaja-mais/internal/models"
	"github.com/pwendlys/viaja-mais/internal/service"
	"github.com/pwendlys/viaja-mais/pkg/utils"
)

type AdminHandler struct {
	adminService service.AdminService
}

func NewAdminHandler(adminService service.AdminService) *AdminHandler {
	return &AdminHandler{adminService: adminService}
}

func (h *AdminHandler) RegisterRoutes(r chi.Router) {
	r.Get("/admin/metrics", h.Metrics)
}

// GET /v1/admin/metrics[?refresh=true]
func (h *AdminHandler) Metrics(w http.ResponseWriter, r *http.Request) {
	var (
		metrics *models.DashboardMetrics
		err     error
	)
	if r.URL.Query().Get("refresh") == "true" {
		metrics, err = h.adminService.Refresh(r.Context())
	} else {
		metrics, err = h.adminService.Metrics(r.Context())
	}
	if err != nil {
		handleError(w, err)
		return
	}

	utils.Success(w, http.StatusOK, metrics)
}
