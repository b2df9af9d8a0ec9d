package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/bleepstore/blobstore/blobstore"
)

// APIError is the JSON error body returned by every endpoint. It implements
// huma.StatusError so JSON API operations can return it directly.
type APIError struct {
	Status   int    `json:"status"`
	Code     string `json:"code"`
	Message  string `json:"message"`
	Resource string `json:"resource,omitempty"`

	cause error
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return e.Message
}

// Unwrap returns the engine error this APIError stands for, if any.
func (e *APIError) Unwrap() error {
	return e.cause
}

// GetStatus returns the HTTP status code.
func (e *APIError) GetStatus() int {
	return e.Status
}

// Host-layer errors with no engine counterpart.
var (
	errEntityTooLarge = &APIError{
		Status:  http.StatusRequestEntityTooLarge,
		Code:    "EntityTooLarge",
		Message: "object exceeds the maximum allowed size",
	}
	errMissingObjectName = &APIError{
		Status:  http.StatusBadRequest,
		Code:    "InvalidRequest",
		Message: "object name is required",
	}
)

// toAPIError maps err onto an APIError. Engine errors keep their code and
// status; anything else becomes a 500 with a generic message.
func toAPIError(err error) *APIError {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}
	var be *blobstore.Error
	if errors.As(err, &be) {
		return &APIError{
			Status:   be.HTTPStatus,
			Code:     be.Code,
			Message:  be.Error(),
			Resource: be.Name,
		}
	}
	slog.Error("unexpected handler error", "error", err)
	return &APIError{
		Status:  http.StatusInternalServerError,
		Code:    blobstore.ErrInternal.Code,
		Message: blobstore.ErrInternal.Message,
	}
}

// writeError writes err as a JSON error response. HEAD responses carry the
// status only.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	apiErr := toAPIError(err)
	if r.Method == http.MethodHead {
		w.WriteHeader(apiErr.Status)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Del("Content-Length")
	w.WriteHeader(apiErr.Status)
	_ = json.NewEncoder(w).Encode(apiErr)
}
