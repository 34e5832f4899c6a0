/*
Package resp writes the JSON envelope every HTTP endpoint of the service answers with.

The envelope carries a business code (0 on success, an errs code otherwise), a client-facing
message, the optional payload and the chi request ID, so an operator can match a response
to its access log line.
*/
package resp

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5/middleware"

	"planpoker/internal/pkg/errs"
	"planpoker/internal/pkg/logx"
)

// RetryAfterSeconds is advertised on rate limited responses.
const RetryAfterSeconds = 1

// JSONResponse defines the standardized JSON response structure returned by the application to clients.
type JSONResponse struct {
	// Code is the business status code (0 for success, others for specific errors, see errs package).
	Code int `json:"code"`

	// Message is the client-friendly status description or error message.
	Message string `json:"message"`

	// Data is the optional response payload (a room projection, the health snapshot, ...).
	Data any `json:"data,omitempty"`

	// RequestID echoes the X-Request-Id assigned by the router, when there is one.
	RequestID string `json:"requestId,omitempty"`
}

// RespondJSON sets the JSON headers and writes payload with the given status.
// An encoding failure is answered with a bare 500 and logged with the request ID.
func RespondJSON(w http.ResponseWriter, r *http.Request, httpStatus int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Content-Type-Options", "nosniff")

	reqID := middleware.GetReqID(r.Context())

	body, err := json.Marshal(payload)
	if err != nil {
		logx.Error(err, "Error encoding JSON response",
			"http_status", httpStatus,
			"request_id", reqID,
			"path", r.URL.Path,
		)
		http.Error(w, "Error encoding JSON response", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(httpStatus)
	if _, err := w.Write(body); err != nil {
		logx.Logger().Debug().Err(err).Str("request_id", reqID).Str("path", r.URL.Path).Msg("Failed to write JSON response")
	}
}

// RespondSuccess sends a successful HTTP response (HTTP 200 OK).
func RespondSuccess(w http.ResponseWriter, r *http.Request, data any) {
	RespondJSON(w, r, http.StatusOK, JSONResponse{
		Code:      0,
		Message:   "success",
		Data:      data,
		RequestID: middleware.GetReqID(r.Context()),
	})
}

// RespondError sends customErr as an error envelope with its HTTP status.
// A nil error is reported as errs.ErrUnknown. Rate limited responses carry Retry-After.
func RespondError(w http.ResponseWriter, r *http.Request, customErr *errs.CustomError) {
	if customErr == nil {
		customErr = errs.NewError(errs.ErrUnknown)
	}

	if customErr.Status == http.StatusTooManyRequests {
		w.Header().Set("Retry-After", strconv.Itoa(RetryAfterSeconds))
	}
	if customErr.Status >= http.StatusInternalServerError {
		logx.Warn("Responding with server error",
			"code", customErr.Code,
			"request_id", middleware.GetReqID(r.Context()),
			"path", r.URL.Path,
		)
	}

	RespondJSON(w, r, customErr.Status, JSONResponse{
		Code:      customErr.Code,
		Message:   customErr.Message,
		RequestID: middleware.GetReqID(r.Context()),
	})
}
