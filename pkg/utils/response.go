package utils

import (
	"encoding/json"
	"errors"
	"net/http"

	"keepalive/pkg/apperror"

	"github.com/rs/zerolog/log"
)

type ErrorResponse struct {
	Error     string        `json:"error"`
	Kind      apperror.Kind `json:"kind"` // error code, not the http code
	RequestID string        `json:"request_id,omitempty"`
}

// WriteJSON writes data as the whole response body.
func WriteJSON[T any](w http.ResponseWriter, status int, data T) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Error().Err(err).Msg("error in encoding Success Response and sending it to client")
	}
}

func FromAppError(w http.ResponseWriter, reqID string, err error) {
	var appErr *apperror.Error
	if !errors.As(err, &appErr) {
		appErr = &apperror.Error{
			Kind:    apperror.Internal,
			Message: "internal server error",
		}
	}

	msg := appErr.Message
	if msg == "" {
		msg = "internal server error"
	}

	WriteError(w, apperror.GetHTTPStatus(appErr.Kind), reqID, appErr.Kind, msg)
}

func WriteError(w http.ResponseWriter, httpStatusCode int, reqID string, code apperror.Kind, message string) {
	res := ErrorResponse{
		Error:     message,
		Kind:      code,
		RequestID: reqID,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpStatusCode)

	if err := json.NewEncoder(w).Encode(res); err != nil {
		log.Error().Err(err).Msg("error in encoding Error Response and sending it to client")
	}
}
