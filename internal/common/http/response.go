package http

import (
	"encoding/json"
	"net/http"

	"webhook-gateway/internal/common/errors"
	"webhook-gateway/internal/common/logging"
)

// JSONContentType is the content type of every JSON body the gateway writes
const JSONContentType = "application/json; charset=UTF-8"

// GenericErrorMessage replaces the message of errors that must not reach callers
const GenericErrorMessage = "An internal error occurred"

// ErrorBody is the shape of every error response
type ErrorBody struct {
	Error string      `json:"error"`
	Data  interface{} `json:"data,omitempty"`
}

// WriteJSON writes v as a JSON response with the given status
func WriteJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", JSONContentType)
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Warn("Failed to encode response", logging.Field{Key: "error", Value: err.Error()})
	}
}

// WriteError maps err to a status code and error body. Errors that are not safe to
// show are logged with their cause and answered with a generic message.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	status := errors.HTTPStatus(err)
	body := ErrorBody{Error: GenericErrorMessage}

	if errors.IsSafe(err) {
		appErr, _ := errors.As(err)
		body.Error = appErr.Message
		body.Data = appErr.Data
	} else {
		logger := logging.GetGlobalLogger()
		if r != nil {
			logger = logger.WithContext(r.Context()).WithFields(
				logging.Field{Key: "method", Value: r.Method},
				logging.Field{Key: "path", Value: r.URL.Path},
			)
		}
		logger.Error("Request failed", err, logging.Field{Key: "status", Value: status})
	}

	WriteJSON(w, status, body)
}
