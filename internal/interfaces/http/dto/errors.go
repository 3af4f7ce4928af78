package dto

import "net/http"

// Transport-level codes. Domain codes such as UNBALANCED or NOT_RELEASABLE
// reach clients unchanged; the generic shared ones are renamed into this
// ERR_ namespace by NormalizeErrorCode.
const (
	ErrCodeInternal            = "ERR_INTERNAL"
	ErrCodeValidation          = "ERR_VALIDATION"
	ErrCodeNotFound            = "ERR_NOT_FOUND"
	ErrCodeAlreadyExists       = "ERR_ALREADY_EXISTS"
	ErrCodeConcurrencyConflict = "ERR_CONCURRENCY_CONFLICT"
	ErrCodeInvalidState        = "ERR_INVALID_STATE"
	ErrCodeInsufficientStock   = "ERR_INSUFFICIENT_STOCK"
	ErrCodeBadRequest          = "ERR_BAD_REQUEST"
	ErrCodeInvalidInput        = "ERR_INVALID_INPUT"
	ErrCodeInvalidJSON         = "ERR_INVALID_JSON"
	ErrCodeRequestTooLarge     = "ERR_REQUEST_TOO_LARGE"
	ErrCodeRateLimited         = "ERR_RATE_LIMITED"
)

var sharedCodes = map[string]string{
	"NOT_FOUND":            ErrCodeNotFound,
	"ALREADY_EXISTS":       ErrCodeAlreadyExists,
	"INVALID_INPUT":        ErrCodeInvalidInput,
	"INVALID_STATE":        ErrCodeInvalidState,
	"CONCURRENCY_CONFLICT": ErrCodeConcurrencyConflict,
	"INSUFFICIENT_STOCK":   ErrCodeInsufficientStock,
	"VALIDATION_ERROR":     ErrCodeValidation,
	"BAD_REQUEST":          ErrCodeBadRequest,
	"INTERNAL_ERROR":       ErrCodeInternal,
}

var codeStatus = map[string]int{
	ErrCodeInternal:            http.StatusInternalServerError,
	ErrCodeValidation:          http.StatusBadRequest,
	ErrCodeBadRequest:          http.StatusBadRequest,
	ErrCodeInvalidInput:        http.StatusBadRequest,
	ErrCodeInvalidJSON:         http.StatusBadRequest,
	ErrCodeNotFound:            http.StatusNotFound,
	ErrCodeAlreadyExists:       http.StatusConflict,
	ErrCodeConcurrencyConflict: http.StatusConflict,
	ErrCodeRequestTooLarge:     http.StatusRequestEntityTooLarge,
	ErrCodeInvalidState:        http.StatusUnprocessableEntity,
	ErrCodeInsufficientStock:   http.StatusUnprocessableEntity,
	ErrCodeRateLimited:         http.StatusTooManyRequests,

	// malformed commands and webhook payloads
	"INVALID_AMOUNT":          http.StatusBadRequest,
	"NON_POSITIVE_AMOUNT":     http.StatusBadRequest,
	"INVALID_CURRENCY":        http.StatusBadRequest,
	"INVALID_SIDE":            http.StatusBadRequest,
	"INVALID_ACCOUNT_CODE":    http.StatusBadRequest,
	"INVALID_ACCOUNT_CLASS":   http.StatusBadRequest,
	"INVALID_DATE_RANGE":      http.StatusBadRequest,
	"INVALID_MARKETPLACE":     http.StatusBadRequest,
	"INVALID_PAYMENT_MODE":    http.StatusBadRequest,
	"INVALID_PAYMENT_EVENT":   http.StatusBadRequest,
	"INVALID_CARRIER_EVENT":   http.StatusBadRequest,
	"UNKNOWN_SHIPMENT_STATUS": http.StatusBadRequest,
	"MISSING_ATTEMPT_KEY":     http.StatusBadRequest,
	"MISSING_SOURCE":          http.StatusBadRequest,
	"EMPTY_ENTRY":             http.StatusBadRequest,
	"FEES_EXCEED_SUBTOTAL":    http.StatusBadRequest,

	"ENTRY_NOT_FOUND": http.StatusNotFound,
	"NOT_ORDER_BUYER": http.StatusForbidden,

	"SOURCE_ALREADY_POSTED": http.StatusConflict,
	"ALREADY_REVERSED":      http.StatusConflict,

	"UNBALANCED":              http.StatusUnprocessableEntity,
	"UNBALANCED_ENTRY":        http.StatusUnprocessableEntity,
	"UNKNOWN_ACCOUNT":         http.StatusUnprocessableEntity,
	"CANNOT_REVERSE_STORNO":   http.StatusUnprocessableEntity,
	"NOT_RELEASABLE":          http.StatusUnprocessableEntity,
	"ORDER_NOT_DELIVERED":     http.StatusUnprocessableEntity,
	"PAYMENT_NOT_INITIATED":   http.StatusUnprocessableEntity,
	"PAYMENT_AMOUNT_MISMATCH": http.StatusUnprocessableEntity,
	"CURRENCY_MISMATCH":       http.StatusUnprocessableEntity,
	"BACKWARD_TRANSITION":     http.StatusUnprocessableEntity,
	"TERMINAL_SHIPMENT":       http.StatusUnprocessableEntity,
	"OUTBOX_NOT_DEAD":         http.StatusUnprocessableEntity,
	"OUTBOX_NOT_CLAIMABLE":    http.StatusUnprocessableEntity,
}

// GetHTTPStatus maps a normalized code to its status; unknown codes are 500
func GetHTTPStatus(code string) int {
	if status, ok := codeStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// NormalizeErrorCode renames the generic shared codes into the ERR_ namespace
func NormalizeErrorCode(code string) string {
	if renamed, ok := sharedCodes[code]; ok {
		return renamed
	}
	return code
}
