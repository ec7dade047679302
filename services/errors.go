package services

import "net/http"

// ServiceError is a typed failure surfaced to controllers. The code maps
// onto the API error envelope and an HTTP status; the message is
// human-readable.
type ServiceError struct {
	Code    string
	Message string
}

func (e *ServiceError) Error() string {
	return e.Message
}

// Error codes returned by the domain services
const (
	CodeInvalidTransition   = "INVALID_TRANSITION"
	CodeAlreadyAssigned     = "ALREADY_ASSIGNED"
	CodeRoleMismatch        = "ROLE_MISMATCH"
	CodeForbidden           = "FORBIDDEN"
	CodeOrderNotFound       = "ORDER_NOT_FOUND"
	CodeUserNotFound        = "USER_NOT_FOUND"
	CodeProductNotFound     = "PRODUCT_NOT_FOUND"
	CodeDesignNotFound      = "DESIGN_NOT_FOUND"
	CodeNotFound            = "NOT_FOUND"
	CodeOTPInvalid          = "OTP_INVALID"
	CodeInsufficientBalance = "INSUFFICIENT_BALANCE"
	CodeInsufficientStock   = "INSUFFICIENT_STOCK"
	CodeValidation          = "VALIDATION_ERROR"
	CodeConflict            = "CONFLICT"
	CodeDatabase            = "DATABASE_ERROR"
)

var statusByCode = map[string]int{
	CodeInvalidTransition:   http.StatusConflict,
	CodeAlreadyAssigned:     http.StatusConflict,
	CodeConflict:            http.StatusConflict,
	CodeRoleMismatch:        http.StatusForbidden,
	CodeForbidden:           http.StatusForbidden,
	CodeOrderNotFound:       http.StatusNotFound,
	CodeUserNotFound:        http.StatusNotFound,
	CodeProductNotFound:     http.StatusNotFound,
	CodeDesignNotFound:      http.StatusNotFound,
	CodeNotFound:            http.StatusNotFound,
	CodeOTPInvalid:          http.StatusUnprocessableEntity,
	CodeInsufficientBalance: http.StatusUnprocessableEntity,
	CodeInsufficientStock:   http.StatusUnprocessableEntity,
	CodeValidation:          http.StatusBadRequest,
	CodeDatabase:            http.StatusInternalServerError,
}

// HTTPStatus maps a service error to the HTTP status controllers should
// respond with. Unknown codes fall back to 500.
func (e *ServiceError) HTTPStatus() int {
	if status, ok := statusByCode[e.Code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

func newError(code, message string) *ServiceError {
	return &ServiceError{Code: code, Message: message}
}

// ErrInvalidTransition reports a status move that is not an edge of the
// workflow.
func ErrInvalidTransition(from, to string) *ServiceError {
	return newError(CodeInvalidTransition, "cannot transition order from "+from+" to "+to)
}

// ErrAlreadyAssigned reports a designer/delivery slot that is occupied.
func ErrAlreadyAssigned(what string) *ServiceError {
	return newError(CodeAlreadyAssigned, "order already has a "+what+" assigned")
}

// ErrRoleMismatch reports an actor lacking permission for the mutation.
func ErrRoleMismatch(message string) *ServiceError {
	return newError(CodeRoleMismatch, message)
}

// ErrValidation reports malformed or missing request data.
func ErrValidation(message string) *ServiceError {
	return newError(CodeValidation, message)
}
