package handler

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"go-school-portal/internal/metrics"
	"go-school-portal/internal/middleware"
	"go-school-portal/internal/model"
	"go-school-portal/internal/service"
	"go-school-portal/pkg/apierror"
)

type AuthHandler struct {
	service *service.AuthService
	metrics *metrics.Metrics
}

func NewAuthHandler(service *service.AuthService, m *metrics.Metrics) *AuthHandler {
	return &AuthHandler{service: service, metrics: m}
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	entity := chi.URLParam(r, "entity")

	var payload model.RegisterRequest
	if err := decodeJSON(w, r, &payload); err != nil {
		h.metrics.RegistrationAttempt(entity, metrics.OutcomeValidationFailed)
		writeError(w, r, err)
		return
	}

	created, err := h.service.Register(r.Context(), entity, payload)
	h.metrics.RegistrationAttempt(entity, outcomeOf(err))
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeSuccess(w, http.StatusCreated, created, nil)
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	entity := chi.URLParam(r, "entity")

	var payload model.LoginRequest
	if err := decodeJSON(w, r, &payload); err != nil {
		h.metrics.LoginAttempt(entity, metrics.OutcomeValidationFailed)
		writeError(w, r, err)
		return
	}

	session, err := h.service.Login(r.Context(), entity, payload)
	h.metrics.LoginAttempt(entity, outcomeOf(err))
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeSuccess(w, http.StatusOK, session, nil)
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, r, model.ErrUnauthorized)
		return
	}

	me, err := h.service.Me(r.Context(), claims)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeSuccess(w, http.StatusOK, me, nil)
}

func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, r, model.ErrUnauthorized)
		return
	}

	var payload model.ChangePasswordRequest
	if err := decodeJSON(w, r, &payload); err != nil {
		writeError(w, r, err)
		return
	}

	if err := h.service.ChangePassword(r.Context(), claims, payload); err != nil {
		writeError(w, r, err)
		return
	}

	writeSuccess(w, http.StatusOK, map[string]any{"changed": true}, nil)
}

// List returns the registry's members from the caller's own school.
func (h *AuthHandler) List(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, r, model.ErrUnauthorized)
		return
	}

	members, err := h.service.ListMembers(r.Context(), chi.URLParam(r, "entity"), claims)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeSuccess(w, http.StatusOK, model.PublicCredentialList{Items: members}, &model.Meta{Total: len(members)})
}

func outcomeOf(err error) string {
	if err == nil {
		return metrics.OutcomeSuccess
	}

	var apiErr *apierror.APIError
	if !errors.As(err, &apiErr) {
		return metrics.OutcomeError
	}

	switch apiErr.Code {
	case apierror.CodeValidationFailed, apierror.CodeBadRequest, apierror.CodeNotFound:
		return metrics.OutcomeValidationFailed
	case apierror.CodeAlreadyExists:
		return metrics.OutcomeConflict
	case apierror.CodeInvalidCredentials:
		return metrics.OutcomeInvalidCredentials
	default:
		return metrics.OutcomeError
	}
}
