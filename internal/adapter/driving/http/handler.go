// Package httphandler implements the JSON API driving adapter.
package httphandler

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/ericfisherdev/credpanel/internal/application"
	"github.com/ericfisherdev/credpanel/internal/domain/model"
	"github.com/ericfisherdev/credpanel/internal/domain/port/driven"
)

// Handler is the HTTP driving adapter that serves the REST API.
type Handler struct {
	svc    *application.CredentialService
	logger *slog.Logger
}

// NewHandler creates a Handler with all required dependencies.
func NewHandler(svc *application.CredentialService, logger *slog.Logger) *Handler {
	return &Handler{
		svc:    svc,
		logger: logger,
	}
}

// RegisterAPIRoutes registers all JSON API routes on the provided mux.
func RegisterAPIRoutes(mux *http.ServeMux, h *Handler) {
	mux.HandleFunc("GET /api/v1/health", h.Health)
	mux.HandleFunc("GET /api/v1/provider", h.Provider)
	mux.HandleFunc("GET /api/v1/credentials", h.ListCredentials)
	mux.HandleFunc("POST /api/v1/credentials", h.CreateCredential)
	mux.HandleFunc("GET /api/v1/credentials/{id}", h.GetCredential)
	mux.HandleFunc("POST /api/v1/credentials/{id}/usage", h.RecordUsage)
	mux.HandleFunc("POST /api/v1/acquire", h.Acquire)
	mux.HandleFunc("POST /api/v1/errors/classify", h.ClassifyError)
}

// NewServeMux creates an http.Handler with the API routes registered and
// wrapped with logging and recovery middleware.
func NewServeMux(h *Handler, logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()
	RegisterAPIRoutes(mux, h)
	return ApplyMiddleware(mux, logger)
}

// ListCredentials returns all credentials without their secrets.
func (h *Handler) ListCredentials(w http.ResponseWriter, r *http.Request) {
	creds, err := h.svc.List(r.Context())
	if err != nil {
		h.logger.Error("failed to list credentials", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	resp := make([]CredentialResponse, 0, len(creds))
	for _, c := range creds {
		resp = append(resp, toCredentialResponse(c, h.svc.Busy().Get(c.ID)))
	}

	writeJSON(w, http.StatusOK, resp)
}

// GetCredential returns a single credential by ID.
func (h *Handler) GetCredential(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	cred, err := h.svc.Get(r.Context(), id)
	if errors.Is(err, driven.ErrCredentialNotFound) {
		writeError(w, http.StatusNotFound, "credential not found")
		return
	}
	if err != nil {
		h.logger.Error("failed to get credential", "credential_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusOK, toCredentialResponse(*cred, h.svc.Busy().Get(id)))
}

// CreateCredential validates and stores a new credential.
func (h *Handler) CreateCredential(w http.ResponseWriter, r *http.Request) {
	var req CreateCredentialRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}

	cred, err := h.svc.Create(r.Context(), req.AuthType, application.CreateInput{
		Name: req.Name,
		Data: model.CredentialData{
			Email:            req.Email,
			Region:           req.Region,
			BaseURL:          req.BaseURL,
			Expire:           req.Expire,
			OrganizationName: req.OrganizationName,
		},
		Secrets: model.CredentialSecrets{
			AccessToken:     req.AccessToken,
			RefreshToken:    req.RefreshToken,
			AccessKeyID:     req.AccessKeyID,
			SecretAccessKey: req.SecretAccessKey,
			SessionToken:    req.SessionToken,
			APIKey:          req.APIKey,
		},
	})
	switch {
	case errors.Is(err, application.ErrUnknownAuthType), errors.Is(err, application.ErrInvalidCredential):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, driven.ErrEncryptionKeyNotSet):
		writeError(w, http.StatusServiceUnavailable, driven.ErrEncryptionKeyNotSet.Error())
		return
	case err != nil:
		h.logger.Error("failed to create credential", "auth_type", req.AuthType, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusCreated, toCredentialResponse(*cred, h.svc.Busy().Get(cred.ID)))
}

// RecordUsage accounts one proxied request made with a credential.
func (h *Handler) RecordUsage(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req UsageRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}

	cred, err := h.svc.RecordUsage(r.Context(), id, model.UsageResult{
		Failed:        req.Failed,
		ErrorMessage:  req.ErrorMessage,
		MarkUnhealthy: req.MarkUnhealthy,
	})
	if errors.Is(err, driven.ErrCredentialNotFound) {
		writeError(w, http.StatusNotFound, "credential not found")
		return
	}
	if err != nil {
		h.logger.Error("failed to record usage", "credential_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusOK, toCredentialResponse(*cred, h.svc.Busy().Get(id)))
}

// Acquire selects a usable credential for the requested model.
func (h *Handler) Acquire(w http.ResponseWriter, r *http.Request) {
	var req AcquireRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}

	acquired, err := h.svc.Acquire(r.Context(), req.Model)
	switch {
	case errors.Is(err, application.ErrUnsupportedModel):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, application.ErrNoHealthyCredential):
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	case errors.Is(err, driven.ErrEncryptionKeyNotSet):
		writeError(w, http.StatusServiceUnavailable, driven.ErrEncryptionKeyNotSet.Error())
		return
	case err != nil:
		h.logger.Error("failed to acquire credential", "model", req.Model, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusOK, toAcquireResponse(*acquired))
}

// ClassifyError maps a failed upstream status to its error type, retry advice
// and cooldown.
func (h *Handler) ClassifyError(w http.ResponseWriter, r *http.Request) {
	var req ClassifyErrorRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}
	if req.StatusCode < 100 || req.StatusCode > 599 {
		writeError(w, http.StatusBadRequest, "status_code must be an HTTP status")
		return
	}

	classified, ok := model.ClassifyUpstreamError(req.StatusCode, req.Body)
	writeJSON(w, http.StatusOK, toClassifyErrorResponse(req.StatusCode, classified, ok))
}

// Provider describes the supported auth types and model families.
func (h *Handler) Provider(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, toProviderResponse())
}

// Health returns a simple health check response.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status: "ok",
		Time:   time.Now().UTC().Format(time.RFC3339),
	})
}
