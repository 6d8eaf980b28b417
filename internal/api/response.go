package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/example/bankcore/internal/bank"
	"github.com/example/bankcore/internal/credit"
)

// envelope is the uniform response shape of the request layer.
type envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeOK(w http.ResponseWriter, data any, message string) {
	writeJSON(w, http.StatusOK, envelope{Success: true, Message: message, Data: data})
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, statusFor(err), envelope{Success: false, Message: err.Error()})
}

// statusFor maps engine failure kinds onto HTTP statuses. Everything the
// engine classifies as a client error rolls back and reports without
// touching the process.
func statusFor(err error) int {
	if !bank.IsClientError(err) {
		if errors.Is(err, credit.ErrScoreTimeout) {
			return http.StatusGatewayTimeout
		}
		return http.StatusInternalServerError
	}
	switch {
	case errors.Is(err, bank.ErrCustomerNotFound), errors.Is(err, bank.ErrAccountNotFound):
		return http.StatusNotFound
	case errors.Is(err, bank.ErrInsufficientFunds):
		return http.StatusConflict
	default:
		return http.StatusBadRequest
	}
}
