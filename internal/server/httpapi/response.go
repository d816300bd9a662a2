package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"gym-tenancy/backend/internal/platform/autherr"
	"gym-tenancy/backend/internal/tenancy"
)

// Body is the standard API response envelope.
type Body struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *ErrorBody  `json:"error,omitempty"`
}

// ErrorBody is the error part of the envelope. Code is stable and meant for clients to branch on.
type ErrorBody struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body Body) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func ok(w http.ResponseWriter, data interface{}) {
	writeJSON(w, http.StatusOK, Body{Success: true, Data: data})
}

func created(w http.ResponseWriter, data interface{}) {
	writeJSON(w, http.StatusCreated, Body{Success: true, Data: data})
}

func noContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, Body{Error: &ErrorBody{Code: "bad_request", Message: msg}})
}

// writeError renders err. Auth errors keep their generic message; anything unclassified is
// logged and reported as an internal error without detail.
func writeError(w http.ResponseWriter, log *zap.Logger, err error) {
	if code := autherr.CodeOf(err); code != "" {
		var e *autherr.Error
		errors.As(err, &e)
		if code == autherr.CodeTemporaryUnavailable {
			log.Warn("store temporarily unavailable", zap.Error(err))
		}
		writeJSON(w, autherr.HTTPStatus(err), Body{Error: &ErrorBody{
			Code:      string(code),
			Message:   e.Message,
			Retryable: autherr.IsRetryable(err),
		}})
		return
	}
	switch {
	case errors.Is(err, tenancy.ErrUnknownOrganization), errors.Is(err, tenancy.ErrUnknownUser), errors.Is(err, tenancy.ErrNotMember):
		writeJSON(w, http.StatusNotFound, Body{Error: &ErrorBody{Code: "not_found", Message: err.Error()}})
	case errors.Is(err, tenancy.ErrAlreadyMember):
		writeJSON(w, http.StatusConflict, Body{Error: &ErrorBody{Code: "conflict", Message: err.Error()}})
	case errors.Is(err, tenancy.ErrInvalidRole):
		badRequest(w, err.Error())
	default:
		log.Error("request failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, Body{Error: &ErrorBody{Code: "internal", Message: "internal error"}})
	}
}
