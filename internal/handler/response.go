package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"go-school-portal/internal/middleware"
	"go-school-portal/internal/model"
	"go-school-portal/pkg/apierror"
)

const maxBodyBytes = 1 << 20

func writeSuccess(w http.ResponseWriter, status int, data any, meta *model.Meta) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(model.APIResponse{
		Success: true,
		Data:    data,
		Meta:    meta,
	})
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	body := &model.APIError{
		Code:    apierror.CodeInternal,
		Message: "unexpected server error",
	}

	var apiErr *apierror.APIError
	if errors.As(err, &apiErr) {
		status = apiErr.HTTPStatus
		body.Code = apiErr.Code
		body.Message = apiErr.Message
		body.Details = apiErr.Details
		body.Fields = apiErr.Fields
	} else if errors.Is(err, model.ErrInvalidCredentials) {
		status = http.StatusUnauthorized
		body.Code = apierror.CodeInvalidCredentials
		body.Message = "invalid credentials"
	} else if errors.Is(err, model.ErrExpiredToken) {
		status = http.StatusUnauthorized
		body.Code = apierror.CodeTokenExpired
		body.Message = apierror.MessageTokenExpired
	} else if errors.Is(err, model.ErrInvalidToken) {
		status = http.StatusForbidden
		body.Code = apierror.CodeInvalidToken
		body.Message = "invalid token"
	} else if errors.Is(err, model.ErrUnauthorized) {
		status = http.StatusForbidden
		body.Code = apierror.CodeAuthorizationRequired
		body.Message = "authorization required"
	} else if errors.Is(err, model.ErrForbidden) {
		status = http.StatusForbidden
		body.Code = apierror.CodeForbidden
		body.Message = "access denied"
	} else if errors.Is(err, model.ErrEmailTaken) {
		status = http.StatusConflict
		body.Code = apierror.CodeAlreadyExists
		body.Message = "email is already registered"
		body.Details = "email"
	} else if errors.Is(err, model.ErrPhoneTaken) {
		status = http.StatusConflict
		body.Code = apierror.CodeAlreadyExists
		body.Message = "phone is already registered"
		body.Details = "phone"
	} else if errors.Is(err, model.ErrCredentialNotFound) {
		status = http.StatusNotFound
		body.Code = apierror.CodeNotFound
		body.Message = "account not found"
	} else if errors.Is(err, model.ErrInvalidInput) {
		status = http.StatusBadRequest
		body.Code = apierror.CodeBadRequest
		body.Message = "invalid input"
	} else if errors.Is(err, context.DeadlineExceeded) {
		status = http.StatusServiceUnavailable
		body.Code = "REQUEST_TIMEOUT"
		body.Message = "request timed out"
	} else {
		// Storage and unclassified errors stay out of the response body.
		slog.Error("request failed",
			"request_id", middleware.RequestIDFromContext(r.Context()),
			"method", r.Method,
			"path", r.URL.Path,
			"storage", errors.Is(err, model.ErrStorage),
			"error", err.Error(),
		)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(model.APIResponse{
		Success: false,
		Error:   body,
	})
}

// decodeJSON reads a single JSON object from the request body.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	defer r.Body.Close()

	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		return apierror.New(apierror.CodeBadRequest, "invalid JSON body", "", http.StatusBadRequest)
	}
	return nil
}
