package handler

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	apperrors "github.com/pwendlys/viaja-mais/internal/errors"
	"github.com/pwendlys/viaja-mais/pkg/utils"
)

func handleError(w http.ResponseWriter, err error) {
	var valErr *apperrors.ValidationError
	if errors.As(err, &valErr) {
		utils.ValidationFailed(w, valErr)
		return
	}

	apiErr := apperrors.ToAPIError(err)
	if apiErr.StatusCode >= http.StatusInternalServerError {
		log.Printf("request failed: %v", err)
	}
	utils.Error(w, apiErr)
}

// queryLimit reads ?limit=, clamped to [1, max].
func queryLimit(r *http.Request, def, max int) int {
	n, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || n <= 0 {
		return def
	}
	if n > max {
		return max
	}
	return n
}
