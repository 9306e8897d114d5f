package apierror

import (
	"fmt"
	"net/http"
	"sort"
	"strings"
)

const (
	CodeValidationFailed      = "VALIDATION_FAILED"
	CodeBadRequest            = "BAD_REQUEST"
	CodeAlreadyExists         = "ALREADY_EXISTS"
	CodeInvalidCredentials    = "INVALID_CREDENTIALS"
	CodeAuthorizationRequired = "AUTHORIZATION_REQUIRED"
	CodeTokenExpired          = "TOKEN_EXPIRED"
	CodeInvalidToken          = "INVALID_TOKEN"
	CodeForbidden             = "FORBIDDEN"
	CodeNotFound              = "NOT_FOUND"
	CodeInternal              = "INTERNAL_ERROR"
)

// MessageTokenExpired tells the client to obtain a new session.
const MessageTokenExpired = "token expired, log in again"

type APIError struct {
	Code       string            `json:"code"`
	Message    string            `json:"message"`
	Details    string            `json:"details,omitempty"`
	Fields     map[string]string `json:"fields,omitempty"`
	HTTPStatus int               `json:"-"`
}

func (e *APIError) Error() string {
	if e == nil {
		return ""
	}

	if len(e.Fields) > 0 {
		keys := make([]string, 0, len(e.Fields))
		for k := range e.Fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, k+": "+e.Fields[k])
		}
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, strings.Join(parts, "; "))
	}

	if e.Details != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Details)
	}

	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func New(code string, message string, details string, status int) *APIError {
	return &APIError{Code: code, Message: message, Details: details, HTTPStatus: status}
}

// Validation reports field-level input problems keyed by JSON field name.
func Validation(fields map[string]string) *APIError {
	return &APIError{
		Code:       CodeValidationFailed,
		Message:    "request validation failed",
		Fields:     fields,
		HTTPStatus: http.StatusBadRequest,
	}
}

// Conflict reports a uniqueness violation on the named field.
func Conflict(field string) *APIError {
	return New(CodeAlreadyExists, field+" is already registered", field, http.StatusConflict)
}

// InvalidCredentials is deliberately identical for unknown accounts and wrong passwords.
func InvalidCredentials() *APIError {
	return New(CodeInvalidCredentials, "invalid credentials", "", http.StatusUnauthorized)
}
