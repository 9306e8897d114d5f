package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"go-school-portal/internal/middleware"
	"go-school-portal/internal/model"
	"go-school-portal/internal/service"
	"go-school-portal/pkg/apierror"
)

type AuditHandler struct {
	service *service.AuditService
}

func NewAuditHandler(service *service.AuditService) *AuditHandler {
	return &AuditHandler{service: service}
}

func (h *AuditHandler) List(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, r, model.ErrUnauthorized)
		return
	}

	limit := 0
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			writeError(w, r, apierror.New(apierror.CodeBadRequest, "limit must be a positive integer", "limit", http.StatusBadRequest))
			return
		}
		limit = parsed
	}

	entries, err := h.service.Recent(r.Context(), chi.URLParam(r, "entity"), claims, limit)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeSuccess(w, http.StatusOK, model.AuditEntryList{Items: entries}, &model.Meta{Total: len(entries)})
}
