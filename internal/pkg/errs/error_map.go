/*
Package errs provides custom error types and application-level error code constants.

This file defines the map from error codes to the CustomError struct, used to standardize
WebSocket error replies and HTTP responses.
*/
package errs

import "net/http"

// errorMap stores the detailed CustomError struct corresponding to every application error code.
var errorMap = map[int]CustomError{
	ErrValidation:        {Code: ErrValidation, Message: "Invalid command parameters.", Status: http.StatusBadRequest},
	ErrInvalidJSONFormat: {Code: ErrInvalidJSONFormat, Message: "Malformed message.", Status: http.StatusBadRequest},
	ErrRateLimitExceeded: {Code: ErrRateLimitExceeded, Message: "Too many requests. Please try again later.", Status: http.StatusTooManyRequests},
	ErrUnknownCommand:    {Code: ErrUnknownCommand, Message: "Unknown command.", Status: http.StatusBadRequest},

	ErrRoomNotFound: {Code: ErrRoomNotFound, Message: "Room not found.", Status: http.StatusNotFound},

	ErrNotBound:     {Code: ErrNotBound, Message: "You are not in a room.", Status: http.StatusConflict},
	ErrForbidden:    {Code: ErrForbidden, Message: "You are not allowed to do that.", Status: http.StatusForbidden},
	ErrUnauthorized: {Code: ErrUnauthorized, Message: "Operator token required.", Status: http.StatusUnauthorized},

	ErrUnknown: {Code: ErrUnknown, Message: "Something went wrong. Please try again.", Status: http.StatusInternalServerError},
	ErrStore:   {Code: ErrStore, Message: "Room storage is unavailable. Please try again.", Status: http.StatusServiceUnavailable},
}
