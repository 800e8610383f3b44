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

// Common error codes shared by every module.
const (
	ErrCodeInternal           ErrorCode = "COMMON_001"
	ErrCodeBadRequest         ErrorCode = "COMMON_002"
	ErrCodeNotFound           ErrorCode = "COMMON_003"
	ErrCodeConflict           ErrorCode = "COMMON_004"
	ErrCodeTooManyRequests    ErrorCode = "COMMON_005"
	ErrCodeServiceUnavailable ErrorCode = "COMMON_006"
	ErrCodeTimeout            ErrorCode = "COMMON_007"
	ErrCodeValidation         ErrorCode = "COMMON_008"
	ErrCodeSerialization      ErrorCode = "COMMON_009"
	ErrCodeDatabaseError      ErrorCode = "COMMON_010"
	ErrCodeCacheError         ErrorCode = "COMMON_011"
	ErrCodeExternalService    ErrorCode = "COMMON_012"
)

// Insight module error codes.
const (
	ErrCodeUnknownMetric      ErrorCode = "INS_001"
	ErrCodeUnknownDomain      ErrorCode = "INS_002"
	ErrCodeUnknownLevel       ErrorCode = "INS_003"
	ErrCodeInvalidPeriod      ErrorCode = "INS_004"
	ErrCodeInvalidThreshold   ErrorCode = "INS_005"
	ErrCodeInvalidTopK        ErrorCode = "INS_006"
	ErrCodeRefreshInProgress  ErrorCode = "INS_007"
	ErrCodeRefreshFailed      ErrorCode = "INS_008"
	ErrCodeDuplicateCandidate ErrorCode = "INS_009"
)

// Query-cache module error codes.
const (
	ErrCodeTranslatorUnavailable ErrorCode = "QRY_001"
	ErrCodeEmbeddingFailed       ErrorCode = "QRY_002"
	ErrCodeQuerySchemaInvalid    ErrorCode = "QRY_003"
	ErrCodeVectorIndexError      ErrorCode = "QRY_004"
)

// Fact-store module error codes.
const (
	ErrCodeFactScanFailed    ErrorCode = "FCT_001"
	ErrCodeSourceOverlap     ErrorCode = "FCT_002"
	ErrCodeSnapshotArchiving ErrorCode = "FCT_003"
)

// Aliases used by the factory helpers in errors.go.
const (
	CodeInternal     = ErrCodeInternal
	CodeInvalidParam = ErrCodeBadRequest
	CodeNotFound     = ErrCodeNotFound
	CodeConflict     = ErrCodeConflict
	CodeRateLimit    = ErrCodeTooManyRequests
	CodeUnavailable  = ErrCodeServiceUnavailable
	CodeOK           = ErrorCode("OK")
	CodeUnknown      = ErrorCode("UNKNOWN")
)

// ErrorCodeHTTPStatus maps ErrorCodes to HTTP status codes.
var ErrorCodeHTTPStatus = map[ErrorCode]int{
	ErrCodeInternal:           http.StatusInternalServerError,
	ErrCodeBadRequest:         http.StatusBadRequest,
	ErrCodeNotFound:           http.StatusNotFound,
	ErrCodeConflict:           http.StatusConflict,
	ErrCodeTooManyRequests:    http.StatusTooManyRequests,
	ErrCodeServiceUnavailable: http.StatusServiceUnavailable,
	ErrCodeTimeout:            http.StatusGatewayTimeout,
	ErrCodeValidation:         http.StatusUnprocessableEntity,
	ErrCodeSerialization:      http.StatusInternalServerError,
	ErrCodeDatabaseError:      http.StatusInternalServerError,
	ErrCodeCacheError:         http.StatusInternalServerError,
	ErrCodeExternalService:    http.StatusBadGateway,

	ErrCodeUnknownMetric:      http.StatusBadRequest,
	ErrCodeUnknownDomain:      http.StatusBadRequest,
	ErrCodeUnknownLevel:       http.StatusBadRequest,
	ErrCodeInvalidPeriod:      http.StatusBadRequest,
	ErrCodeInvalidThreshold:   http.StatusBadRequest,
	ErrCodeInvalidTopK:        http.StatusBadRequest,
	ErrCodeRefreshInProgress:  http.StatusConflict,
	ErrCodeRefreshFailed:      http.StatusInternalServerError,
	ErrCodeDuplicateCandidate: http.StatusInternalServerError,

	ErrCodeTranslatorUnavailable: http.StatusServiceUnavailable,
	ErrCodeEmbeddingFailed:       http.StatusServiceUnavailable,
	ErrCodeQuerySchemaInvalid:    http.StatusUnprocessableEntity,
	ErrCodeVectorIndexError:      http.StatusInternalServerError,

	ErrCodeFactScanFailed:    http.StatusInternalServerError,
	ErrCodeSourceOverlap:     http.StatusInternalServerError,
	ErrCodeSnapshotArchiving: http.StatusInternalServerError,
}

// ErrorCodeMessage maps ErrorCodes to default messages.
var ErrorCodeMessage = map[ErrorCode]string{
	ErrCodeInternal:           "internal server error",
	ErrCodeBadRequest:         "bad request",
	ErrCodeNotFound:           "resource not found",
	ErrCodeConflict:           "resource conflict",
	ErrCodeTooManyRequests:    "too many requests",
	ErrCodeServiceUnavailable: "service unavailable",
	ErrCodeTimeout:            "request timeout",
	ErrCodeValidation:         "validation failed",
	ErrCodeSerialization:      "serialization failed",
	ErrCodeDatabaseError:      "database error",
	ErrCodeCacheError:         "cache error",
	ErrCodeExternalService:    "external service error",

	ErrCodeUnknownMetric:      "unknown metric",
	ErrCodeUnknownDomain:      "unknown domain",
	ErrCodeUnknownLevel:       "unknown spatial level",
	ErrCodeInvalidPeriod:      "period must be YYYY, YYYY-MM, or YYYY-MM-DD",
	ErrCodeInvalidThreshold:   "z_threshold must be greater than 0",
	ErrCodeInvalidTopK:        "top_k is out of range",
	ErrCodeRefreshInProgress:  "advanced insight refresh already in progress",
	ErrCodeRefreshFailed:      "advanced insight refresh failed",
	ErrCodeDuplicateCandidate: "duplicate insight candidate row",

	ErrCodeTranslatorUnavailable: "query translator unavailable",
	ErrCodeEmbeddingFailed:       "embedding generation failed",
	ErrCodeQuerySchemaInvalid:    "structured query failed schema validation",
	ErrCodeVectorIndexError:      "vector index operation failed",

	ErrCodeFactScanFailed:    "fact store scan failed",
	ErrCodeSourceOverlap:     "overlapping sources detected for fact key",
	ErrCodeSnapshotArchiving: "snapshot archiving failed",
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

// IsClientError returns true if the ErrorCode corresponds to a 4xx HTTP status.
func IsClientError(code ErrorCode) bool {
	status := HTTPStatusForCode(code)
	return status >= 400 && status < 500
}

// IsServerError returns true if the ErrorCode corresponds to a 5xx HTTP status.
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
