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

type FavoriteHandler struct {
	favoriteService service.FavoriteService
	validate        *validator.Validate
}

func NewFavoriteHandler(favoriteService service.FavoriteService) *FavoriteHandler {
	return &FavoriteHandler{
		favoriteService: favoriteService,
		validate:        validator.New(),
	}
}

func (h *FavoriteHandler) RegisterRoutes(r chi.Router) {
	r.Get("/users/{id}/favorites", h.List)
	r.Post("/users/{id}/favorites", h.Add)
	r.Delete("/users/{id}/favorites/{favoriteID}", h.Remove)
}

// GET /v1/users/{id}/favorites
func (h *FavoriteHandler) List(w http.ResponseWriter, r *http.Request) {
	favs, err := h.favoriteService.List(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleError(w, err)
		return
	}

	utils.Success(w, http.StatusOK, favs)
}

// POST /v1/users/{id}/favorites
func (h *FavoriteHandler) Add(w http.ResponseWriter, r *http.Request) {
	var req models.CreateFavoriteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.BadRequest(w, "corpo da requisição inválido")
		return
	}

	if err := h.validate.Struct(req); err != nil {
		utils.BadRequest(w, err.Error())
		return
	}

	fav, err := h.favoriteService.Add(r.Context(), chi.URLParam(r, "id"), &req)
	if err != nil {
		handleError(w, err)
		return
	}

	utils.Created(w, fav)
}

// DELETE /v1/users/{id}/favorites/{favoriteID}
func (h *FavoriteHandler) Remove(w http.ResponseWriter, r *http.Request) {
	err := h.favoriteService.Remove(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "favoriteID"))
	if err != nil {
		handleError(w, err)
		return
	}

	utils.NoContent(w)
}
