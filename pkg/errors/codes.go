package errors

import (
	"net/http"
	"strings"
)

// ErrorCode is a string representation of a specific error condition.
type ErrorCode string

func (c ErrorCode) String() string {
	return string(c)
}

// Common error codes.
const (
	ErrCodeInternal           ErrorCode = "COMMON_001"
	ErrCodeBadRequest         ErrorCode = "COMMON_002"
	ErrCodeNotFound           ErrorCode = "COMMON_005"
	ErrCodeConflict           ErrorCode = "COMMON_006"
	ErrCodeServiceUnavailable ErrorCode = "COMMON_008"
	ErrCodeTimeout            ErrorCode = "COMMON_009"
	ErrCodeValidation         ErrorCode = "COMMON_010"
	ErrCodeSerialization      ErrorCode = "COMMON_011"
	ErrCodeDatabaseError      ErrorCode = "COMMON_012"
	ErrCodeCacheError         ErrorCode = "COMMON_013"
	ErrCodeExternalService    ErrorCode = "COMMON_014"
	ErrCodeMessagingError     ErrorCode = "COMMON_017"
	ErrCodeStorageError       ErrorCode = "COMMON_018"
)

const (
	CodeOK      = ErrorCode("OK")
	CodeUnknown = ErrorCode("UNKNOWN")
)

// Signature module error codes.
const (
	ErrCodeNoSignature      ErrorCode = "SIG_001"
	ErrCodeStaleSession     ErrorCode = "SIG_002"
	ErrCodeInvalidScheme    ErrorCode = "SIG_003"
	ErrCodeInvalidMatchMode ErrorCode = "SIG_004"
	ErrCodeInvalidCutoff    ErrorCode = "SIG_005"
)

// Interaction module error codes.
const (
	ErrCodeUnknownEffector   ErrorCode = "INT_001"
	ErrCodeStructureParse    ErrorCode = "INT_002"
	ErrCodeComplexIncomplete ErrorCode = "INT_003"
)

// Remote fetch error codes.
const (
	ErrCodeResourceMissing ErrorCode = "FETCH_001"
	ErrCodeFetchExhausted  ErrorCode = "FETCH_002"
)

// ErrorCodeHTTPStatus maps codes to HTTP status codes.
var ErrorCodeHTTPStatus = map[ErrorCode]int{
	ErrCodeInternal:           http.StatusInternalServerError,
	ErrCodeBadRequest:         http.StatusBadRequest,
	ErrCodeNotFound:           http.StatusNotFound,
	ErrCodeConflict:           http.StatusConflict,
	ErrCodeServiceUnavailable: http.StatusServiceUnavailable,
	ErrCodeTimeout:            http.StatusGatewayTimeout,
	ErrCodeValidation:         http.StatusUnprocessableEntity,
	ErrCodeSerialization:      http.StatusInternalServerError,
	ErrCodeDatabaseError:      http.StatusInternalServerError,
	ErrCodeCacheError:         http.StatusInternalServerError,
	ErrCodeExternalService:    http.StatusBadGateway,
	ErrCodeMessagingError:     http.StatusInternalServerError,
	ErrCodeStorageError:       http.StatusInternalServerError,

	ErrCodeNoSignature:      http.StatusPreconditionFailed,
	ErrCodeStaleSession:     http.StatusPreconditionFailed,
	ErrCodeInvalidScheme:    http.StatusBadRequest,
	ErrCodeInvalidMatchMode: http.StatusBadRequest,
	ErrCodeInvalidCutoff:    http.StatusBadRequest,

	ErrCodeUnknownEffector:   http.StatusBadRequest,
	ErrCodeStructureParse:    http.StatusUnprocessableEntity,
	ErrCodeComplexIncomplete: http.StatusUnprocessableEntity,

	ErrCodeResourceMissing: http.StatusNotFound,
	ErrCodeFetchExhausted:  http.StatusBadGateway,
}

// ErrorCodeMessage holds default messages per code.
var ErrorCodeMessage = map[ErrorCode]string{
	ErrCodeInternal:           "internal server error",
	ErrCodeBadRequest:         "bad request",
	ErrCodeNotFound:           "resource not found",
	ErrCodeConflict:           "resource conflict",
	ErrCodeServiceUnavailable: "service unavailable",
	ErrCodeTimeout:            "request timeout",
	ErrCodeValidation:         "validation failed",
	ErrCodeSerialization:      "serialization error",
	ErrCodeDatabaseError:      "database error",
	ErrCodeCacheError:         "cache error",
	ErrCodeExternalService:    "external service error",
	ErrCodeMessagingError:     "messaging error",
	ErrCodeStorageError:       "object storage error",

	ErrCodeNoSignature:      "no signature in session",
	ErrCodeStaleSession:     "stored signature uses an unsupported schema version",
	ErrCodeInvalidScheme:    "invalid feature scheme",
	ErrCodeInvalidMatchMode: "invalid match mode",
	ErrCodeInvalidCutoff:    "cutoff must be between 0 and 1",

	ErrCodeUnknownEffector:   "unknown effector",
	ErrCodeStructureParse:    "failed to parse structure",
	ErrCodeComplexIncomplete: "complex metadata incomplete",

	ErrCodeResourceMissing: "remote resource does not exist",
	ErrCodeFetchExhausted:  "remote fetch attempts exhausted",
}

// HTTPStatusForCode returns the HTTP status code for an ErrorCode.
func HTTPStatusForCode(code ErrorCode) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// DefaultMessageForCode returns the default message for an ErrorCode.
func DefaultMessageForCode(code ErrorCode) string {
	if msg, ok := ErrorCodeMessage[code]; ok {
		return msg
	}
	return "unknown error"
}

// IsClientError returns true if the code maps to a 4xx status.
func IsClientError(code ErrorCode) bool {
	status := HTTPStatusForCode(code)
	return status >= 400 && status < 500
}

// IsServerError returns true if the code maps to a 5xx status.
func IsServerError(code ErrorCode) bool {
	status := HTTPStatusForCode(code)
	return status >= 500 && status < 600
}

// ModuleForCode returns the module prefix of an ErrorCode.
func ModuleForCode(code ErrorCode) string {
	parts := strings.Split(string(code), "_")
	if len(parts) > 0 && parts[0] != "" {
		return parts[0]
	}
	return "UNKNOWN"
}
