package handler

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	apperrors "github.com/pwendlys/viaja-mais/internal/errors"
	"github.com/pwendlys/viaja-mais/pkg/utils"
)

const maxFunctionBody = 1 << 20

// FunctionCaller runs a named remote function.
type FunctionCaller interface {
	Call(ctx context.Context, name string, body json.RawMessage) (interface{}, error)
}

// FunctionHandler exposes the function registry under /functions/v1/{name},
// answering in the {"success", "data" | "error"} envelope.
type FunctionHandler struct {
	functions FunctionCaller
}

func NewFunctionHandler(functions FunctionCaller) *FunctionHandler {
	return &FunctionHandler{functions: functions}
}

func (h *FunctionHandler) RegisterRoutes(r chi.Router) {
	r.Post("/functions/v1/{name}", h.Invoke)
}

// POST /functions/v1/{name}
func (h *FunctionHandler) Invoke(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxFunctionBody))
	if err != nil {
		utils.EnvelopeError(w, apperrors.BadRequest("corpo da requisição inválido"))
		return
	}

	result, err := h.functions.Call(r.Context(), chi.URLParam(r, "name"), body)
	if err != nil {
		utils.EnvelopeError(w, err)
		return
	}

	utils.Envelope(w, result)
}
