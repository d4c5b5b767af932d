package httphandler_test

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	httphandler "github.com/ericfisherdev/credpanel/internal/adapter/driving/http"
	"github.com/ericfisherdev/credpanel/internal/application"
	"github.com/ericfisherdev/credpanel/internal/domain/model"
	"github.com/ericfisherdev/credpanel/internal/domain/port/driven"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- Mock implementations ---

type mockCredentialStore struct {
	mu      sync.Mutex
	creds   map[string]model.Credential
	secrets map[string]model.CredentialSecrets

	listErr   error
	createErr error
	panicList bool
}

func newMockStore(creds ...model.Credential) *mockCredentialStore {
	m := &mockCredentialStore{
		creds:   make(map[string]model.Credential),
		secrets: make(map[string]model.CredentialSecrets),
	}
	for _, c := range creds {
		m.creds[c.ID] = c
	}
	return m
}

func (m *mockCredentialStore) withSecrets(id string, s model.CredentialSecrets) *mockCredentialStore {
	m.secrets[id] = s
	return m
}

func (m *mockCredentialStore) Create(_ context.Context, cred model.Credential, secrets model.CredentialSecrets) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.creds[cred.ID] = cred
	m.secrets[cred.ID] = secrets
	return nil
}

func (m *mockCredentialStore) Get(_ context.Context, id string) (*model.Credential, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.creds[id]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (m *mockCredentialStore) GetSecrets(_ context.Context, id string) (model.CredentialSecrets, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.secrets[id], nil
}

func (m *mockCredentialStore) List(_ context.Context) ([]model.Credential, error) {
	if m.panicList {
		panic("store exploded")
	}
	if m.listErr != nil {
		return nil, m.listErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.Credential, 0, len(m.creds))
	for _, c := range m.creds {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *mockCredentialStore) Update(_ context.Context, cred model.Credential) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.creds[cred.ID]; !ok {
		return driven.ErrCredentialNotFound
	}
	m.creds[cred.ID] = cred
	return nil
}

func (m *mockCredentialStore) UpdateSecrets(_ context.Context, id string, secrets model.CredentialSecrets) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.secrets[id] = secrets
	return nil
}

func (m *mockCredentialStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.creds, id)
	delete(m.secrets, id)
	return nil
}

// --- Test helpers ---

var testTime = time.Date(2026, 2, 10, 12, 0, 0, 0, time.UTC)

const testTimeStr = "2026-02-10T12:00:00Z"

func setupMux(t *testing.T, store *mockCredentialStore) http.Handler {
	t.Helper()
	svc := application.NewCredentialService(store, nil, application.NewBusyTracker(), 5*time.Second, slog.Default())
	t.Cleanup(svc.Wait)
	h := httphandler.NewHandler(svc, slog.Default())
	return httphandler.NewServeMux(h, slog.Default())
}

func serve(mux http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func decodeJSON(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	assert.Equal(t, "application/json; charset=utf-8", rec.Header().Get("Content-Type"))
	err := json.NewDecoder(rec.Body).Decode(v)
	require.NoError(t, err)
}

func oauthCredential(id string) model.Credential {
	return model.Credential{
		ID:         id,
		Name:       "Personal",
		UsageCount: 12,
		ErrorCount: 1,
		Data: model.CredentialData{
			AuthType: string(model.AuthTypeOAuth),
			Email:    "me@example.com",
			Expire:   "2026-03-01T00:00:00Z",
		},
		CreatedAt: testTime,
		UpdatedAt: testTime,
	}
}

// --- Tests ---

func TestHealth(t *testing.T) {
	mux := setupMux(t, newMockStore())
	rec := serve(mux, http.MethodGet, "/api/v1/health", "")

	assert.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]any
	decodeJSON(t, rec, &resp)
	assert.Equal(t, "ok", resp["status"])
	assert.NotEmpty(t, resp["time"])
}

func TestProvider(t *testing.T) {
	mux := setupMux(t, newMockStore())
	rec := serve(mux, http.MethodGet, "/api/v1/provider", "")

	require.Equal(t, http.StatusOK, rec.Code)

	var resp httphandler.ProviderResponse
	decodeJSON(t, rec, &resp)
	assert.Equal(t, "claude", resp.ID)
	require.Len(t, resp.AuthTypes, len(model.KnownAuthTypes))
	for i, at := range model.KnownAuthTypes {
		assert.Equal(t, string(at), resp.AuthTypes[i].ID)
	}

	byID := make(map[string]httphandler.AuthTypeResponse)
	for _, a := range resp.AuthTypes {
		byID[a.ID] = a
	}
	assert.True(t, byID["oauth"].RefreshEligible)
	assert.False(t, byID["setup_token"].RefreshEligible)
	assert.False(t, byID["bedrock"].RefreshEligible)
	assert.Equal(t, "api_key", byID["ccr"].Category)

	require.NotEmpty(t, resp.ModelFamilies)
	last := resp.ModelFamilies[len(resp.ModelFamilies)-1]
	assert.Equal(t, "claude-*", last.Pattern)
	assert.Nil(t, last.Tier)
	require.NotNil(t, resp.ModelFamilies[0].Tier)

	require.Len(t, resp.Models, len(model.Models))
	assert.Equal(t, "claude-opus-4-20250514", resp.Models[0].ID)
	assert.Equal(t, 200000, resp.Models[0].ContextLength)
	assert.Equal(t, "us.anthropic.claude-opus-4-20250514-v1:0", resp.Models[0].BedrockModelID)
}

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name         string
		body         string
		wantStatus   int
		wantType     string
		wantRetry    bool
		wantCooldown *int
	}{
		{"rate limit", `{"status_code":429}`, http.StatusOK, "rate_limit", true, intPtr(60)},
		{"expired token", `{"status_code":401}`, http.StatusOK, "authentication", true, intPtr(0)},
		{"forbidden", `{"status_code":403}`, http.StatusOK, "authorization", false, nil},
		{"overloaded", `{"status_code":529,"body":"overloaded"}`, http.StatusOK, "server_error", true, intPtr(10)},
		{"bad request is not classified", `{"status_code":400}`, http.StatusOK, "", false, nil},
		{"missing status", `{}`, http.StatusBadRequest, "", false, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mux := setupMux(t, newMockStore())
			rec := serve(mux, http.MethodPost, "/api/v1/errors/classify", tt.body)

			require.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantStatus != http.StatusOK {
				return
			}

			var resp httphandler.ClassifyErrorResponse
			decodeJSON(t, rec, &resp)
			assert.Equal(t, tt.wantType != "", resp.Classified)
			assert.Equal(t, tt.wantType, resp.ErrorType)
			assert.Equal(t, tt.wantRetry, resp.Retryable)
			assert.Equal(t, tt.wantCooldown, resp.CooldownSeconds)
		})
	}
}

func intPtr(v int) *int { return &v }

func TestListCredentials(t *testing.T) {
	tests := []struct {
		name       string
		store      *mockCredentialStore
		wantStatus int
		wantLen    int
		checkFirst func(t *testing.T, c map[string]any)
	}{
		{
			name:       "empty list",
			store:      newMockStore(),
			wantStatus: http.StatusOK,
			wantLen:    0,
		},
		{
			name: "two credentials",
			store: newMockStore(
				oauthCredential("a-1"),
				model.Credential{
					ID:           "b-2",
					IsDisabled:   true,
					HealthStatus: model.HealthStatusUnhealthy,
					Data:         model.CredentialData{AuthType: string(model.AuthTypeBedrock), Region: "eu-west-1"},
					CreatedAt:    testTime,
					UpdatedAt:    testTime,
				},
			),
			wantStatus: http.StatusOK,
			wantLen:    2,
			checkFirst: func(t *testing.T, c map[string]any) {
				assert.Equal(t, "a-1", c["id"])
				assert.Equal(t, "Personal", c["name"])
				assert.Equal(t, "oauth", c["auth_type"])
				assert.Equal(t, "OAuth", c["auth_type_label"])
				assert.Equal(t, false, c["is_disabled"])
				assert.Equal(t, true, c["healthy"])
				assert.Equal(t, true, c["refresh_eligible"])
				assert.Equal(t, float64(12), c["usage_count"])
				assert.Equal(t, float64(1), c["error_count"])
				assert.Equal(t, "me@example.com", c["email"])
				assert.Equal(t, testTimeStr, c["created_at"])
				assert.NotContains(t, c, "access_token")
				assert.NotContains(t, c, "refresh_token")

				busy, ok := c["busy"].(map[string]any)
				require.True(t, ok)
				assert.Equal(t, false, busy["deleting"])
			},
		},
		{
			name:       "store error",
			store:      &mockCredentialStore{listErr: errors.New("db fail")},
			wantStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mux := setupMux(t, tt.store)
			rec := serve(mux, http.MethodGet, "/api/v1/credentials", "")

			assert.Equal(t, tt.wantStatus, rec.Code)

			if tt.wantStatus == http.StatusOK {
				var resp []map[string]any
				decodeJSON(t, rec, &resp)
				require.NotNil(t, resp)
				assert.Len(t, resp, tt.wantLen)

				if tt.checkFirst != nil && len(resp) > 0 {
					tt.checkFirst(t, resp[0])
				}
			}
		})
	}
}

func TestListCredentials_EmptyIsArray(t *testing.T) {
	mux := setupMux(t, newMockStore())
	rec := serve(mux, http.MethodGet, "/api/v1/credentials", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())
}

func TestGetCredential(t *testing.T) {
	tests := []struct {
		name       string
		path       string
		wantStatus int
	}{
		{name: "found", path: "/api/v1/credentials/a-1", wantStatus: http.StatusOK},
		{name: "not found", path: "/api/v1/credentials/missing", wantStatus: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mux := setupMux(t, newMockStore(oauthCredential("a-1")))
			rec := serve(mux, http.MethodGet, tt.path, "")

			assert.Equal(t, tt.wantStatus, rec.Code)

			var resp map[string]any
			decodeJSON(t, rec, &resp)
			if tt.wantStatus == http.StatusOK {
				assert.Equal(t, "a-1", resp["id"])
			} else {
				assert.Equal(t, "credential not found", resp["error"])
			}
		})
	}
}

func TestCreateCredential(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		createErr  error
		wantStatus int
		wantError  string
	}{
		{
			name:       "bedrock gets default region",
			body:       `{"auth_type":"bedrock","name":"AWS","access_key_id":"AKIA","secret_access_key":"shh"}`,
			wantStatus: http.StatusCreated,
		},
		{
			name:       "unknown auth type",
			body:       `{"auth_type":"gemini","access_token":"x"}`,
			wantStatus: http.StatusBadRequest,
			wantError:  "unsupported auth type",
		},
		{
			name:       "missing secret",
			body:       `{"auth_type":"setup_token"}`,
			wantStatus: http.StatusBadRequest,
			wantError:  "invalid credential",
		},
		{
			name:       "invalid JSON",
			body:       `{not json`,
			wantStatus: http.StatusBadRequest,
			wantError:  "invalid request body",
		},
		{
			name:       "no encryption key",
			body:       `{"auth_type":"setup_token","access_token":"sk-ant-oat01"}`,
			createErr:  driven.ErrEncryptionKeyNotSet,
			wantStatus: http.StatusServiceUnavailable,
			wantError:  "encryption key not configured",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newMockStore()
			store.createErr = tt.createErr
			mux := setupMux(t, store)

			rec := serve(mux, http.MethodPost, "/api/v1/credentials", tt.body)

			assert.Equal(t, tt.wantStatus, rec.Code)

			var resp map[string]any
			decodeJSON(t, rec, &resp)
			if tt.wantError != "" {
				assert.Contains(t, resp["error"], tt.wantError)
				return
			}

			assert.NotEmpty(t, resp["id"])
			assert.Equal(t, "AWS", resp["name"])
			assert.Equal(t, "bedrock", resp["auth_type"])
			assert.Equal(t, "us-east-1", resp["region"])
			assert.NotContains(t, resp, "secret_access_key")
		})
	}
}

func TestRecordUsage(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		wantUsage   float64
		wantErrors  float64
		wantHealth  string
		wantHealthy bool
	}{
		{
			name:        "success marks healthy",
			body:        `{}`,
			wantUsage:   13,
			wantErrors:  1,
			wantHealth:  "healthy",
			wantHealthy: true,
		},
		{
			name:        "failure keeps status",
			body:        `{"failed":true,"error_message":"overloaded"}`,
			wantUsage:   13,
			wantErrors:  2,
			wantHealth:  "",
			wantHealthy: true,
		},
		{
			name:        "failure marks unhealthy",
			body:        `{"failed":true,"error_message":"401 unauthorized","mark_unhealthy":true}`,
			wantUsage:   13,
			wantErrors:  2,
			wantHealth:  "unhealthy",
			wantHealthy: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mux := setupMux(t, newMockStore(oauthCredential("a-1")))
			rec := serve(mux, http.MethodPost, "/api/v1/credentials/a-1/usage", tt.body)

			require.Equal(t, http.StatusOK, rec.Code)

			var resp map[string]any
			decodeJSON(t, rec, &resp)
			assert.Equal(t, tt.wantUsage, resp["usage_count"])
			assert.Equal(t, tt.wantErrors, resp["error_count"])
			assert.Equal(t, tt.wantHealth, resp["health_status"])
			assert.Equal(t, tt.wantHealthy, resp["healthy"])
		})
	}
}

func TestRecordUsage_NotFound(t *testing.T) {
	mux := setupMux(t, newMockStore())
	rec := serve(mux, http.MethodPost, "/api/v1/credentials/missing/usage", `{}`)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAcquire(t *testing.T) {
	disabled := oauthCredential("a-0")
	disabled.IsDisabled = true

	tests := []struct {
		name       string
		store      *mockCredentialStore
		body       string
		wantStatus int
		check      func(t *testing.T, resp httphandler.AcquireResponse)
	}{
		{
			name:       "unsupported model",
			store:      newMockStore(oauthCredential("a-1")),
			body:       `{"model":"gpt-4o"}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "no credentials",
			store:      newMockStore(),
			body:       `{"model":"claude-sonnet-4-5"}`,
			wantStatus: http.StatusServiceUnavailable,
		},
		{
			name: "skips disabled credential",
			store: newMockStore(disabled, oauthCredential("a-1")).
				withSecrets("a-0", model.CredentialSecrets{AccessToken: "tok-disabled"}).
				withSecrets("a-1", model.CredentialSecrets{AccessToken: "tok-1"}),
			body:       `{"model":"claude-sonnet-4-5"}`,
			wantStatus: http.StatusOK,
			check: func(t *testing.T, resp httphandler.AcquireResponse) {
				assert.Equal(t, "a-1", resp.ID)
				assert.Equal(t, "oauth", resp.AuthType)
				assert.Equal(t, "https://api.anthropic.com", resp.BaseURL)
				assert.Equal(t, "Bearer tok-1", resp.Headers["Authorization"])
				assert.Equal(t, "2023-06-01", resp.Headers["anthropic-version"])
			},
		},
		{
			name: "ccr relay",
			store: newMockStore(model.Credential{
				ID:        "c-1",
				Data:      model.CredentialData{AuthType: string(model.AuthTypeCCR), BaseURL: "https://relay.example.com/"},
				CreatedAt: testTime,
				UpdatedAt: testTime,
			}).withSecrets("c-1", model.CredentialSecrets{APIKey: "relay-key"}),
			body:       `{"model":"claude-opus-4-1"}`,
			wantStatus: http.StatusOK,
			check: func(t *testing.T, resp httphandler.AcquireResponse) {
				assert.Equal(t, "https://relay.example.com", resp.BaseURL)
				assert.Equal(t, "relay-key", resp.Headers["x-api-key"])
				assert.NotContains(t, resp.Headers, "Authorization")
				assert.Equal(t, "https://relay.example.com/v1/messages", resp.InvokeURL)
			},
		},
		{
			name: "bedrock model url",
			store: newMockStore(model.Credential{
				ID:        "b-1",
				Data:      model.CredentialData{AuthType: string(model.AuthTypeBedrock), Region: "us-west-2"},
				CreatedAt: testTime,
				UpdatedAt: testTime,
			}).withSecrets("b-1", model.CredentialSecrets{AccessKeyID: "AKIA", SecretAccessKey: "s"}),
			body:       `{"model":"claude-sonnet-4-5-20250929"}`,
			wantStatus: http.StatusOK,
			check: func(t *testing.T, resp httphandler.AcquireResponse) {
				assert.Equal(t, "us.anthropic.claude-sonnet-4-5-20250929-v1:0", resp.Model)
				assert.Equal(t,
					"https://bedrock-runtime.us-west-2.amazonaws.com/model/us.anthropic.claude-sonnet-4-5-20250929-v1:0/invoke-with-response-stream",
					resp.InvokeURL)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mux := setupMux(t, tt.store)
			rec := serve(mux, http.MethodPost, "/api/v1/acquire", tt.body)

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.check == nil {
				return
			}

			var resp httphandler.AcquireResponse
			decodeJSON(t, rec, &resp)
			tt.check(t, resp)
		})
	}
}

func TestRecoveryMiddleware(t *testing.T) {
	store := newMockStore()
	store.panicList = true
	mux := setupMux(t, store)

	rec := serve(mux, http.MethodGet, "/api/v1/credentials", "")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	var resp map[string]any
	decodeJSON(t, rec, &resp)
	assert.Equal(t, "internal server error", resp["error"])
}

func TestPostEndpoints_RequireJSONContentType(t *testing.T) {
	tests := []struct {
		name        string
		path        string
		contentType string
		wantStatus  int
	}{
		{"create as text/plain form", "/api/v1/credentials", "text/plain", http.StatusUnsupportedMediaType},
		{"create as urlencoded form", "/api/v1/credentials", "application/x-www-form-urlencoded", http.StatusUnsupportedMediaType},
		{"usage without content type", "/api/v1/credentials/a-1/usage", "", http.StatusUnsupportedMediaType},
		{"acquire as multipart", "/api/v1/acquire", "multipart/form-data; boundary=x", http.StatusUnsupportedMediaType},
		{"usage with charset", "/api/v1/credentials/a-1/usage", "application/json; charset=utf-8", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newMockStore(oauthCredential("a-1"))
			mux := setupMux(t, store)

			req := httptest.NewRequest(http.MethodPost, tt.path, strings.NewReader(`{"auth_type":"setup_token","access_token":"x"}`))
			if tt.contentType != "" {
				req.Header.Set("Content-Type", tt.contentType)
			}
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantStatus == http.StatusUnsupportedMediaType {
				var resp map[string]any
				decodeJSON(t, rec, &resp)
				assert.Equal(t, "content type must be application/json", resp["error"])
				assert.Len(t, store.creds, 1, "rejected requests must not create credentials")
			}
		})
	}
}
