// Package render maps engine results and rejections onto HTTP responses.
package render

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/mbeaufort/loadboard/core/model"
)

// errorBody is the JSON shape of every rejection.
type errorBody struct {
	Error string `json:"error"`
}

// JSON writes v with the given status.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Error writes the rejection with the HTTP status matching its kind. Business
// rejections keep their message; unknown errors are hidden behind a 500.
func Error(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, model.ErrNotFound):
		JSON(w, http.StatusNotFound, errorBody{Error: err.Error()})
	case errors.Is(err, model.ErrNotAuthorized):
		JSON(w, http.StatusForbidden, errorBody{Error: err.Error()})
	case errors.Is(err, model.ErrInvalidTransition),
		errors.Is(err, model.ErrWindowClosed),
		errors.Is(err, model.ErrAlreadySelected),
		errors.Is(err, model.ErrBidNotEligible),
		errors.Is(err, model.ErrAlreadyAssigned):
		JSON(w, http.StatusConflict, errorBody{Error: err.Error()})
	case errors.Is(err, model.ErrUnavailable):
		JSON(w, http.StatusServiceUnavailable, errorBody{Error: err.Error()})
	default:
		JSON(w, http.StatusInternalServerError, errorBody{Error: "internal error"})
	}
}
