package svcerr

import (
	"encoding/json"
	"net/http"
)

// APIError is the wire format for failures.
// Code is a short stable code for machine handling; Message is safe to show.
type APIError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

// ErrorResponse is the root object in an error reply.
type ErrorResponse struct {
	Error APIError `json:"error"`
}

// HTTPStatus maps an error kind to its HTTP status code.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindInvalidInput, KindInvalidOperation:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindNotFound:
		return http.StatusNotFound
	case KindAlreadyExists:
		return http.StatusConflict
	case KindNotEligible:
		return http.StatusPreconditionFailed
	case KindConsentRequired, KindNotMatched:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// WriteError writes the canonical error envelope for an error, echoing the
// request id when present so clients can report failures with a trace handle.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	resp := ErrorResponse{
		Error: APIError{
			Code:    KindOf(err).Code(),
			Message: MessageOf(err),
		},
	}
	if rid := r.Header.Get("X-Request-Id"); rid != "" {
		resp.Error.RequestID = rid
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(HTTPStatus(err))
	_ = json.NewEncoder(w).Encode(resp)
}
