// Package web implements the HTML GUI driving adapter using templ components.
package web

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/a-h/templ"

	"github.com/ericfisherdev/credpanel/internal/adapter/driving/web/templates"
	"github.com/ericfisherdev/credpanel/internal/application"
	"github.com/ericfisherdev/credpanel/internal/card"
	"github.com/ericfisherdev/credpanel/internal/domain/model"
	"github.com/ericfisherdev/credpanel/internal/domain/port/driven"
)

// Handler is the web GUI driving adapter that serves HTML via templ components.
type Handler struct {
	svc    *application.CredentialService
	loc    *time.Location
	logger *slog.Logger
}

// NewHandler creates a Handler. Card dates are formatted in loc.
func NewHandler(svc *application.CredentialService, loc *time.Location, logger *slog.Logger) *Handler {
	if loc == nil {
		loc = time.Local
	}
	return &Handler{
		svc:    svc,
		loc:    loc,
		logger: logger,
	}
}

// Dashboard renders the main dashboard page with the full HTML layout.
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	token := csrfToken(w, r)

	creds, err := h.svc.List(r.Context())
	if err != nil {
		h.logger.Error("failed to list credentials", "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	d := toDashboardViewModel(creds, h.svc.Busy().Get, h.loc, token)
	layout := templates.Layout("credpanel", templates.Dashboard(d))

	if err := layout.Render(r.Context(), w); err != nil {
		h.logger.Error("failed to render dashboard", "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
	}
}

// CardFragment renders a single credential card. Busy cards poll this route.
func (h *Handler) CardFragment(w http.ResponseWriter, r *http.Request) {
	cred, ok := h.loadCredential(w, r)
	if !ok {
		return
	}
	h.renderCard(w, r, *cred)
}

// CredentialAction activates one card control. The request is routed through
// the card's own activation rules, so absent controls are rejected and
// disabled (busy) controls are no-ops that re-render the current card.
func (h *Handler) CredentialAction(w http.ResponseWriter, r *http.Request) {
	kind, ok := card.ParseAction(r.PathValue("action"))
	if !ok {
		http.NotFound(w, r)
		return
	}

	cred, ok := h.loadCredential(w, r)
	if !ok {
		return
	}

	view := h.buildView(*cred)
	if _, offered := view.Control(kind); !offered {
		http.Error(w, "action not available for this credential", http.StatusConflict)
		return
	}

	acts := &boundActions{ctx: r.Context(), svc: h.svc, id: cred.ID}
	if !card.Activate(view, kind, acts) {
		h.renderCard(w, r, *cred)
		return
	}

	if acts.err != nil {
		h.handleActionError(w, r, kind, cred.ID, acts.err)
		return
	}

	switch {
	case acts.editing:
		h.render(w, r, http.StatusOK, templates.EditForm(toEditFormViewModel(*cred, csrfToken(w, r))))
	case acts.deleted:
		// An empty body swaps the card out of the grid.
		w.WriteHeader(http.StatusOK)
	default:
		h.reloadCard(w, r, cred.ID)
	}
}

// SubmitEdit applies the edit form and swaps the card back in.
func (h *Handler) SubmitEdit(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	in := application.EditInput{
		Name:    r.FormValue("name"),
		Email:   r.FormValue("email"),
		Region:  r.FormValue("region"),
		BaseURL: r.FormValue("base_url"),
	}

	cred, err := h.svc.Edit(r.Context(), id, in)
	switch {
	case errors.Is(err, driven.ErrCredentialNotFound):
		http.NotFound(w, r)
	case errors.Is(err, application.ErrInvalidCredential):
		current, getErr := h.svc.Get(r.Context(), id)
		if getErr != nil {
			h.logger.Error("failed to reload credential", "credential_id", id, "error", getErr)
			http.Error(w, "internal server error", http.StatusInternalServerError)
			return
		}
		f := toEditFormViewModel(*current, csrfToken(w, r))
		f.Name, f.Email, f.Region, f.BaseURL = in.Name, in.Email, in.Region, in.BaseURL
		f.Error = userMessage(err)
		h.render(w, r, http.StatusUnprocessableEntity, templates.EditForm(f))
	case err != nil:
		h.logger.Error("failed to edit credential", "credential_id", id, "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
	default:
		h.renderCard(w, r, *cred)
	}
}

// NewForm renders the creation form for the auth type picked on the dashboard.
func (h *Handler) NewForm(w http.ResponseWriter, r *http.Request) {
	at, ok := model.ParseAuthType(r.FormValue("auth_type"))
	if !ok {
		http.Error(w, "unsupported auth type", http.StatusBadRequest)
		return
	}
	h.render(w, r, http.StatusOK, templates.NewForm(toNewFormViewModel(at, csrfToken(w, r))))
}

// CreateCredential stores a new credential from the creation form and reloads
// the dashboard.
func (h *Handler) CreateCredential(w http.ResponseWriter, r *http.Request) {
	authType := r.FormValue("auth_type")
	in := application.CreateInput{
		Name: r.FormValue("name"),
		Data: model.CredentialData{
			Email:            strings.TrimSpace(r.FormValue("email")),
			Region:           strings.TrimSpace(r.FormValue("region")),
			BaseURL:          strings.TrimSpace(r.FormValue("base_url")),
			OrganizationName: strings.TrimSpace(r.FormValue("organization_name")),
		},
		Secrets: model.CredentialSecrets{
			AccessToken:     strings.TrimSpace(r.FormValue("access_token")),
			RefreshToken:    strings.TrimSpace(r.FormValue("refresh_token")),
			AccessKeyID:     strings.TrimSpace(r.FormValue("access_key_id")),
			SecretAccessKey: strings.TrimSpace(r.FormValue("secret_access_key")),
			SessionToken:    strings.TrimSpace(r.FormValue("session_token")),
			APIKey:          strings.TrimSpace(r.FormValue("api_key")),
		},
	}

	_, err := h.svc.Create(r.Context(), authType, in)
	switch {
	case errors.Is(err, application.ErrUnknownAuthType):
		http.Error(w, "unsupported auth type", http.StatusBadRequest)
	case errors.Is(err, application.ErrInvalidCredential), errors.Is(err, driven.ErrEncryptionKeyNotSet):
		at, _ := model.ParseAuthType(authType)
		f := toNewFormViewModel(at, csrfToken(w, r))
		f.Name, f.Email, f.Region, f.BaseURL = in.Name, in.Data.Email, in.Data.Region, in.Data.BaseURL
		f.OrganizationName = in.Data.OrganizationName
		f.Error = userMessage(err)
		h.render(w, r, http.StatusUnprocessableEntity, templates.NewForm(f))
	case err != nil:
		h.logger.Error("failed to create credential", "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
	default:
		w.Header().Set("HX-Refresh", "true")
		w.WriteHeader(http.StatusCreated)
	}
}

func (h *Handler) loadCredential(w http.ResponseWriter, r *http.Request) (*model.Credential, bool) {
	id := r.PathValue("id")
	cred, err := h.svc.Get(r.Context(), id)
	if errors.Is(err, driven.ErrCredentialNotFound) {
		http.NotFound(w, r)
		return nil, false
	}
	if err != nil {
		h.logger.Error("failed to load credential", "credential_id", id, "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return nil, false
	}
	return cred, true
}

func (h *Handler) buildView(c model.Credential) card.View {
	return card.BuildIn(c, h.svc.Busy().Get(c.ID), h.loc)
}

func (h *Handler) reloadCard(w http.ResponseWriter, r *http.Request, id string) {
	cred, err := h.svc.Get(r.Context(), id)
	if errors.Is(err, driven.ErrCredentialNotFound) {
		// Deleted concurrently; drop the card.
		w.WriteHeader(http.StatusOK)
		return
	}
	if err != nil {
		h.logger.Error("failed to reload credential", "credential_id", id, "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	h.renderCard(w, r, *cred)
}

func (h *Handler) renderCard(w http.ResponseWriter, r *http.Request, c model.Credential) {
	h.render(w, r, http.StatusOK, templates.CredentialCard(h.buildView(c)))
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, status int, c templ.Component) {
	templ.Handler(c,
		templ.WithStatus(status),
		templ.WithErrorHandler(func(r *http.Request, err error) http.Handler {
			h.logger.Error("failed to render component", "path", r.URL.Path, "error", err)
			return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				http.Error(w, "internal server error", http.StatusInternalServerError)
			})
		}),
	).ServeHTTP(w, r)
}

func (h *Handler) handleActionError(w http.ResponseWriter, r *http.Request, kind card.ActionKind, id string, err error) {
	if errors.Is(err, driven.ErrCredentialNotFound) {
		http.NotFound(w, r)
		return
	}
	h.logger.Error("credential action failed", "credential_id", id, "action", string(kind), "error", err)
	http.Error(w, "internal server error", http.StatusInternalServerError)
}

// userMessage strips wrapping context and returns the validation detail.
func userMessage(err error) string {
	msg := err.Error()
	for _, sentinel := range []error{application.ErrInvalidCredential, driven.ErrEncryptionKeyNotSet} {
		if i := strings.Index(msg, sentinel.Error()); i >= 0 {
			return msg[i:]
		}
	}
	return msg
}
