// Package errors provides structured error handling for warppoint services.
package errors

import "net/http"

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// Validation errors
	CodeWarpNameInvalid Code = "WARP_NAME_INVALID"
	CodeOwnerIDInvalid  Code = "OWNER_ID_INVALID"
	CodeLimitNegative   Code = "WARP_LIMIT_NEGATIVE"

	// Quota and uniqueness errors
	CodeLimitExceeded       Code = "WARP_LIMIT_EXCEEDED"
	CodeDuplicateName       Code = "WARP_DUPLICATE_NAME"
	CodeTargetLimitExceeded Code = "TRANSFER_TARGET_LIMIT_EXCEEDED"
	CodeTargetDuplicateName Code = "TRANSFER_TARGET_DUPLICATE_NAME"

	// Teleport errors
	CodeCooldownActive   Code = "TELEPORT_COOLDOWN_ACTIVE"
	CodeWorldUnavailable Code = "TELEPORT_WORLD_UNAVAILABLE"
	CodeTeleportFailed   Code = "TELEPORT_FAILED"

	// Storage errors
	CodeNotFound           Code = "NOT_FOUND"
	CodeTransactionFailure Code = "TRANSACTION_FAILURE"
	CodePoolExhausted      Code = "POOL_EXHAUSTED"

	// Front-end errors
	CodeRateLimited Code = "RATE_LIMITED"

	// CodeInternal collapses unexpected conditions for callers.
	CodeInternal Code = "INTERNAL"
)

// HTTPStatus maps domain codes to HTTP status codes for the REST surface.
func (c Code) HTTPStatus() int {
	switch c {
	// Bad request - validation failures, malformed input
	case CodeWarpNameInvalid,
		CodeOwnerIDInvalid,
		CodeLimitNegative:
		return http.StatusBadRequest

	// Conflict - state or uniqueness disallows the operation
	case CodeLimitExceeded,
		CodeDuplicateName,
		CodeTargetLimitExceeded,
		CodeTargetDuplicateName,
		CodeWorldUnavailable:
		return http.StatusConflict

	// NotFound - resource doesn't exist
	case CodeNotFound:
		return http.StatusNotFound

	// TooManyRequests - cooldowns and rate limits
	case CodeCooldownActive,
		CodeRateLimited:
		return http.StatusTooManyRequests

	// ServiceUnavailable - resource exhaustion
	case CodePoolExhausted:
		return http.StatusServiceUnavailable

	default:
		return http.StatusInternalServerError
	}
}
