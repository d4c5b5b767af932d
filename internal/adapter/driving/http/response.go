package httphandler

import (
	"encoding/json"
	"mime"
	"net/http"
	"time"

	"github.com/ericfisherdev/credpanel/internal/card"
	"github.com/ericfisherdev/credpanel/internal/domain/model"
)

// writeJSON marshals v to JSON and writes it to the response with the given
// status code. If marshaling fails, a 500 error is written instead.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"internal server error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

// writeError writes a JSON error response with the given status code and message.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// decodeJSONBody decodes the request body into v. Requests that are not
// declared as application/json get 415, so plain HTML forms posted from other
// sites cannot reach the API. It writes the error response and returns false
// on failure.
func decodeJSONBody(w http.ResponseWriter, r *http.Request, v any) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil || mediaType != "application/json" {
		writeError(w, http.StatusUnsupportedMediaType, "content type must be application/json")
		return false
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

// errorResponse is the standard error response body.
type errorResponse struct {
	Error string `json:"error"`
}

// CredentialResponse is the JSON representation of a credential. Secrets are
// never included.
type CredentialResponse struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	AuthType         string `json:"auth_type"`
	AuthTypeLabel    string `json:"auth_type_label"`
	IsDisabled       bool   `json:"is_disabled"`
	HealthStatus     string `json:"health_status"`
	Healthy          bool   `json:"healthy"`
	RefreshEligible  bool   `json:"refresh_eligible"`
	UsageCount       int64  `json:"usage_count"`
	ErrorCount       int64  `json:"error_count"`
	LastError        string `json:"last_error,omitempty"`
	Email            string `json:"email,omitempty"`
	Region           string `json:"region,omitempty"`
	BaseURL          string `json:"base_url,omitempty"`
	Expire           string `json:"expire,omitempty"`
	LastRefresh      string `json:"last_refresh,omitempty"`
	OrganizationName string `json:"organization_name,omitempty"`
	CreatedAt        string `json:"created_at"`
	UpdatedAt        string `json:"updated_at"`

	Busy BusyResponse `json:"busy"`
}

// BusyResponse reports the operations currently in flight for a credential.
type BusyResponse struct {
	Deleting        bool `json:"deleting"`
	CheckingHealth  bool `json:"checking_health"`
	RefreshingToken bool `json:"refreshing_token"`
}

// CreateCredentialRequest is the expected JSON body for POST /api/v1/credentials.
type CreateCredentialRequest struct {
	AuthType         string `json:"auth_type"`
	Name             string `json:"name"`
	Email            string `json:"email"`
	Region           string `json:"region"`
	BaseURL          string `json:"base_url"`
	OrganizationName string `json:"organization_name"`
	Expire           string `json:"expire"`

	AccessToken     string `json:"access_token"`
	RefreshToken    string `json:"refresh_token"`
	AccessKeyID     string `json:"access_key_id"`
	SecretAccessKey string `json:"secret_access_key"`
	SessionToken    string `json:"session_token"`
	APIKey          string `json:"api_key"`
}

// UsageRequest is the expected JSON body for POST /api/v1/credentials/{id}/usage.
type UsageRequest struct {
	Failed        bool   `json:"failed"`
	ErrorMessage  string `json:"error_message"`
	MarkUnhealthy bool   `json:"mark_unhealthy"`
}

// AcquireRequest is the expected JSON body for POST /api/v1/acquire.
type AcquireRequest struct {
	Model string `json:"model"`
}

// AcquireResponse carries what a proxy needs to send one upstream request.
type AcquireResponse struct {
	ID        string            `json:"id"`
	Name      string            `json:"name"`
	AuthType  string            `json:"auth_type"`
	BaseURL   string            `json:"base_url"`
	Headers   map[string]string `json:"headers"`
	Model     string            `json:"model"`
	InvokeURL string            `json:"invoke_url"`
}

// ClassifyErrorRequest is the expected JSON body for POST /api/v1/errors/classify.
type ClassifyErrorRequest struct {
	StatusCode int    `json:"status_code"`
	Body       string `json:"body"`
}

// ClassifyErrorResponse tells a proxy how to react to a failed upstream call.
// Classified is false for statuses that say nothing about the credential.
type ClassifyErrorResponse struct {
	Classified      bool   `json:"classified"`
	ErrorType       string `json:"error_type,omitempty"`
	Message         string `json:"message,omitempty"`
	StatusCode      int    `json:"status_code"`
	Retryable       bool   `json:"retryable"`
	CooldownSeconds *int   `json:"cooldown_seconds,omitempty"`
}

// ProviderResponse describes the supported auth types and model families.
type ProviderResponse struct {
	ID            string                `json:"id"`
	DisplayName   string                `json:"display_name"`
	AuthTypes     []AuthTypeResponse    `json:"auth_types"`
	ModelFamilies []ModelFamilyResponse `json:"model_families"`
	Models        []ModelResponse       `json:"models"`
}

// ModelResponse is the JSON representation of one model.
type ModelResponse struct {
	ID             string `json:"id"`
	DisplayName    string `json:"display_name"`
	Family         string `json:"family"`
	ContextLength  int    `json:"context_length"`
	SupportsVision bool   `json:"supports_vision"`
	SupportsTools  bool   `json:"supports_tools"`
	BedrockModelID string `json:"bedrock_model_id"`
}

// AuthTypeResponse is the JSON representation of one auth type.
type AuthTypeResponse struct {
	ID              string `json:"id"`
	DisplayName     string `json:"display_name"`
	Category        string `json:"category"`
	Icon            string `json:"icon"`
	Color           string `json:"color"`
	RefreshEligible bool   `json:"refresh_eligible"`
	Help            string `json:"help"`
}

// ModelFamilyResponse is the JSON representation of a model family.
type ModelFamilyResponse struct {
	Name        string `json:"name"`
	Pattern     string `json:"pattern"`
	Tier        *int   `json:"tier"`
	Description string `json:"description"`
}

// HealthResponse is the JSON body for the health check endpoint.
type HealthResponse struct {
	Status string `json:"status"`
	Time   string `json:"time"`
}

// toCredentialResponse converts a domain Credential to its JSON representation.
func toCredentialResponse(c model.Credential, busy card.Busy) CredentialResponse {
	authType := c.Data.ResolvedAuthType()

	return CredentialResponse{
		ID:               c.ID,
		Name:             c.Name,
		AuthType:         authType,
		AuthTypeLabel:    card.Classify(authType).Label,
		IsDisabled:       c.IsDisabled,
		HealthStatus:     string(c.HealthStatus),
		Healthy:          card.DeriveHealth(c.IsDisabled, c.HealthStatus),
		RefreshEligible:  card.IsRefreshEligible(authType),
		UsageCount:       c.UsageCount,
		ErrorCount:       c.ErrorCount,
		LastError:        c.LastError,
		Email:            c.Data.Email,
		Region:           c.Data.Region,
		BaseURL:          c.Data.BaseURL,
		Expire:           c.Data.Expire,
		LastRefresh:      c.Data.LastRefresh,
		OrganizationName: c.Data.OrganizationName,
		CreatedAt:        formatTimestamp(c.CreatedAt),
		UpdatedAt:        formatTimestamp(c.UpdatedAt),
		Busy: BusyResponse{
			Deleting:        busy.Deleting,
			CheckingHealth:  busy.CheckingHealth,
			RefreshingToken: busy.RefreshingToken,
		},
	}
}

func toAcquireResponse(a model.AcquiredCredential) AcquireResponse {
	return AcquireResponse{
		ID:        a.ID,
		Name:      a.Name,
		AuthType:  string(a.AuthType),
		BaseURL:   a.BaseURL,
		Headers:   a.Headers,
		Model:     a.Model,
		InvokeURL: a.InvokeURL,
	}
}

func toClassifyErrorResponse(status int, e model.UpstreamError, ok bool) ClassifyErrorResponse {
	if !ok {
		return ClassifyErrorResponse{StatusCode: status}
	}
	resp := ClassifyErrorResponse{
		Classified: true,
		ErrorType:  string(e.Type),
		Message:    e.Message,
		StatusCode: e.StatusCode,
		Retryable:  e.Retryable,
	}
	if e.Retryable {
		secs := int(e.Cooldown / time.Second)
		resp.CooldownSeconds = &secs
	}
	return resp
}

func toProviderResponse() ProviderResponse {
	resp := ProviderResponse{
		ID:            "claude",
		DisplayName:   "Claude (Anthropic)",
		AuthTypes:     make([]AuthTypeResponse, 0, len(model.AuthTypeCatalog)),
		ModelFamilies: make([]ModelFamilyResponse, 0, len(model.ModelFamilies)),
		Models:        make([]ModelResponse, 0, len(model.Models)),
	}

	for _, info := range model.AuthTypeCatalog {
		meta := card.Classify(string(info.Type))
		resp.AuthTypes = append(resp.AuthTypes, AuthTypeResponse{
			ID:              string(info.Type),
			DisplayName:     info.DisplayName,
			Category:        string(info.Category),
			Icon:            string(meta.Icon),
			Color:           string(meta.Color),
			RefreshEligible: card.IsRefreshEligible(string(info.Type)),
			Help:            info.Help,
		})
	}

	for _, f := range model.ModelFamilies {
		mf := ModelFamilyResponse{Name: f.Name, Pattern: f.Pattern, Description: f.Description}
		if f.Tier > 0 {
			tier := f.Tier
			mf.Tier = &tier
		}
		resp.ModelFamilies = append(resp.ModelFamilies, mf)
	}

	for _, m := range model.Models {
		resp.Models = append(resp.Models, ModelResponse{
			ID:             m.ID,
			DisplayName:    m.DisplayName,
			Family:         m.Family,
			ContextLength:  m.ContextLength,
			SupportsVision: m.SupportsVision,
			SupportsTools:  m.SupportsTools,
			BedrockModelID: model.BedrockModelID(m.ID),
		})
	}

	return resp
}

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
