/*
Package errs provides custom error types and application-level error code constants.

These error codes are used to clearly identify specific business or system errors
both internally within the server and in communication with clients.
*/
package errs

// 1xxx: Command Validation Errors
const (
	// ErrValidation indicates that a command field is missing or malformed.
	ErrValidation = 1001

	// ErrInvalidJSONFormat indicates that an inbound frame is not a valid JSON envelope.
	ErrInvalidJSONFormat = 1003

	// ErrRateLimitExceeded indicates that the request rate has exceeded the set limit.
	ErrRateLimitExceeded = 1007

	// ErrUnknownCommand indicates that the envelope carried an unrecognized type tag.
	ErrUnknownCommand = 1008
)

// 2xxx: Room Errors
const (
	// ErrRoomNotFound indicates that the referenced room no longer exists.
	ErrRoomNotFound = 2103
)

// 3xxx: Session and Authorization Errors
const (
	// ErrNotBound indicates that the command requires an active room membership on this connection.
	ErrNotBound = 3005

	// ErrForbidden indicates that an authorization predicate failed (owner-only
	// action, spectator voting, owner becoming a spectator).
	ErrForbidden = 3006

	// ErrUnauthorized indicates a missing or invalid operator token on a monitoring endpoint.
	ErrUnauthorized = 3401
)

// 5xxx: Internal System Errors
const (
	// ErrUnknown represents an unclassified, general server internal error.
	ErrUnknown = 5000

	// ErrStore indicates that the room store failed or timed out.
	ErrStore = 5001
)
