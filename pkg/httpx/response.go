// Package httpx renders the JSON envelope used by every endpoint:
// {"success":true,"data":...} or {"success":false,"error":...,"details":...}.
package httpx

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/dmehra2102/shop-cart-service/pkg/apperr"
)

type envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
}

type errorBody struct {
	Success   bool   `json:"success"`
	Error     string `json:"error"`
	Details   string `json:"details,omitempty"`
	Code      string `json:"code"`
	Retryable bool   `json:"retryable"`
}

func WriteData(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, envelope{Success: true, Data: data})
}

func WriteMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, envelope{Success: true, Message: message})
}

// StatusFor maps an error kind to its HTTP status.
func StatusFor(kind apperr.Kind) int {
	switch kind {
	case apperr.KindValidation:
		return http.StatusBadRequest
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindConflict:
		return http.StatusConflict
	case apperr.KindUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// WriteError logs server-side failures and writes the error envelope.
// Persistence failures never leak driver messages to the client.
func WriteError(w http.ResponseWriter, log *slog.Logger, err error) {
	kind := apperr.KindOf(err)
	status := StatusFor(kind)

	body := errorBody{
		Success:   false,
		Code:      kind.String(),
		Retryable: kind.Retryable(),
	}

	var ae *apperr.Error
	if errors.As(err, &ae) {
		body.Error = ae.Message
		body.Details = ae.Details
	}
	if kind == apperr.KindPersistence || kind == apperr.KindUnavailable {
		log.Error("request failed", "err", err, "status", status)
		if body.Error == "" {
			body.Error = "internal error"
		}
	} else if body.Error == "" {
		body.Error = err.Error()
	}

	writeJSON(w, status, body)
}

// DecodeJSON reads a JSON request body into dst.
func DecodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		return apperr.Validation("invalid request body").WithDetails(err.Error())
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
