// Package application contains use-case orchestration services.
package application

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ericfisherdev/credpanel/internal/domain/model"
	"github.com/ericfisherdev/credpanel/internal/domain/port/driven"
)

// Errors returned by CredentialService.
var (
	ErrUnknownAuthType        = errors.New("unsupported auth type")
	ErrInvalidCredential      = errors.New("invalid credential")
	ErrRefreshNotSupported    = errors.New("auth type does not support token refresh")
	ErrRefresherNotConfigured = errors.New("token refresh is not configured")
	ErrRefreshTokenMissing    = errors.New("credential has no refresh token")
	ErrRefreshTokenTruncated  = errors.New("refresh token looks truncated")
)

const (
	// minRefreshTokenLength rejects refresh tokens that were clearly cut off
	// when pasted; real tokens are much longer.
	minRefreshTokenLength = 50

	defaultBedrockRegion = "us-east-1"

	lockStripes = 64
)

// CreateInput carries the user-supplied fields of a new credential.
type CreateInput struct {
	Name    string
	Data    model.CredentialData
	Secrets model.CredentialSecrets
}

// EditInput carries the fields a user may change on an existing credential.
type EditInput struct {
	Name    string
	Email   string
	Region  string
	BaseURL string
}

// CredentialService performs every mutating operation behind the credential
// card actions. It depends only on port interfaces.
type CredentialService struct {
	store     driven.CredentialStore
	refresher driven.TokenRefresher // nil disables token refresh.
	busy      *BusyTracker
	opTimeout time.Duration
	logger    *slog.Logger
	now       func() time.Time

	// locks serialize read-modify-write cycles on the same credential.
	locks [lockStripes]sync.Mutex
	wg    sync.WaitGroup
}

// NewCredentialService creates a CredentialService. refresher may be nil when no
// OAuth token endpoint is configured. opTimeout bounds background operations.
func NewCredentialService(
	store driven.CredentialStore,
	refresher driven.TokenRefresher,
	busy *BusyTracker,
	opTimeout time.Duration,
	logger *slog.Logger,
) *CredentialService {
	if busy == nil {
		busy = NewBusyTracker()
	}
	return &CredentialService{
		store:     store,
		refresher: refresher,
		busy:      busy,
		opTimeout: opTimeout,
		logger:    logger,
		now:       time.Now,
	}
}

// Busy returns the tracker holding the in-flight flags of every credential.
func (s *CredentialService) Busy() *BusyTracker {
	return s.busy
}

// List returns all credentials.
func (s *CredentialService) List(ctx context.Context) ([]model.Credential, error) {
	creds, err := s.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list credentials: %w", err)
	}
	return creds, nil
}

// Get returns a credential or driven.ErrCredentialNotFound.
func (s *CredentialService) Get(ctx context.Context, id string) (*model.Credential, error) {
	cred, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get credential %q: %w", id, err)
	}
	if cred == nil {
		return nil, driven.ErrCredentialNotFound
	}
	return cred, nil
}

// Create validates and stores a new credential of the given auth type.
func (s *CredentialService) Create(ctx context.Context, authType string, in CreateInput) (*model.Credential, error) {
	at, ok := model.ParseAuthType(authType)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownAuthType, authType)
	}

	if err := validateSecrets(at, in.Secrets, in.Data); err != nil {
		return nil, err
	}

	data := in.Data
	data.AuthType = string(at)
	if data.Expire != "" {
		expire, ok := model.NormalizeTimestamp(strings.TrimSpace(data.Expire))
		if !ok {
			return nil, fmt.Errorf("%w: expire %q is not a timestamp", ErrInvalidCredential, data.Expire)
		}
		data.Expire = expire
	}
	if at == model.AuthTypeBedrock && data.Region == "" {
		data.Region = defaultBedrockRegion
	}

	now := s.now().UTC()
	cred := model.Credential{
		ID:        uuid.NewString(),
		Name:      strings.TrimSpace(in.Name),
		Data:      data,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.store.Create(ctx, cred, in.Secrets); err != nil {
		return nil, fmt.Errorf("create credential: %w", err)
	}

	s.logger.Info("credential created", "credential_id", cred.ID, "auth_type", at)
	return &cred, nil
}

func validateSecrets(at model.AuthType, secrets model.CredentialSecrets, data model.CredentialData) error {
	switch at {
	case model.AuthTypeOAuth, model.AuthTypeClaudeCode, model.AuthTypeConsole:
		if secrets.AccessToken == "" && secrets.RefreshToken == "" {
			return fmt.Errorf("%w: %s requires an access token or a refresh token", ErrInvalidCredential, at)
		}
	case model.AuthTypeSetupToken:
		if secrets.AccessToken == "" {
			return fmt.Errorf("%w: setup_token requires an access token", ErrInvalidCredential)
		}
	case model.AuthTypeBedrock:
		if secrets.AccessKeyID == "" || secrets.SecretAccessKey == "" {
			return fmt.Errorf("%w: bedrock requires an access key id and a secret access key", ErrInvalidCredential)
		}
	case model.AuthTypeCCR:
		if secrets.APIKey == "" || data.BaseURL == "" {
			return fmt.Errorf("%w: ccr requires an api key and a base url", ErrInvalidCredential)
		}
	}
	return nil
}

// Toggle flips the disabled flag of a credential.
func (s *CredentialService) Toggle(ctx context.Context, id string) (*model.Credential, error) {
	return s.mutate(ctx, id, func(c *model.Credential) error {
		c.IsDisabled = !c.IsDisabled
		return nil
	})
}

// Reset clears the usage and error counters, the last error and the health
// status of a credential.
func (s *CredentialService) Reset(ctx context.Context, id string) (*model.Credential, error) {
	return s.mutate(ctx, id, func(c *model.Credential) error {
		c.UsageCount = 0
		c.ErrorCount = 0
		c.LastError = ""
		c.HealthStatus = model.HealthStatusUnknown
		return nil
	})
}

// Edit updates the user-editable fields of a credential.
func (s *CredentialService) Edit(ctx context.Context, id string, in EditInput) (*model.Credential, error) {
	return s.mutate(ctx, id, func(c *model.Credential) error {
		baseURL := strings.TrimSpace(in.BaseURL)
		if model.AuthType(c.Data.ResolvedAuthType()) == model.AuthTypeCCR && baseURL == "" {
			return fmt.Errorf("%w: ccr requires a base url", ErrInvalidCredential)
		}

		c.Name = strings.TrimSpace(in.Name)
		c.Data.Email = strings.TrimSpace(in.Email)
		c.Data.Region = strings.TrimSpace(in.Region)
		c.Data.BaseURL = baseURL
		return nil
	})
}

// Delete removes a credential.
func (s *CredentialService) Delete(ctx context.Context, id string) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete credential %q: %w", id, err)
	}
	s.logger.Info("credential deleted", "credential_id", id)
	return nil
}

// CheckHealth inspects a credential's configuration and token expiry, stores
// the resulting health status and returns the updated credential.
func (s *CredentialService) CheckHealth(ctx context.Context, id string) (*model.Credential, error) {
	var problem string
	cred, err := s.mutate(ctx, id, func(c *model.Credential) error {
		secrets, err := s.store.GetSecrets(ctx, id)
		if err != nil {
			return fmt.Errorf("load secrets for %q: %w", id, err)
		}

		problem = s.diagnose(*c, secrets)
		if problem == "" {
			c.HealthStatus = model.HealthStatusHealthy
			c.LastError = ""
		} else {
			c.HealthStatus = model.HealthStatusUnhealthy
			c.LastError = problem
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("credential health checked",
		"credential_id", id,
		"health_status", cred.HealthStatus,
		"problem", problem,
	)
	return cred, nil
}

// diagnose returns a human-readable problem description, or "" when healthy.
func (s *CredentialService) diagnose(cred model.Credential, secrets model.CredentialSecrets) string {
	at, ok := model.ParseAuthType(cred.Data.ResolvedAuthType())
	if !ok {
		return fmt.Sprintf("unsupported auth type %q", cred.Data.AuthType)
	}

	if err := validateSecrets(at, secrets, cred.Data); err != nil {
		return "incomplete configuration: " + strings.TrimPrefix(err.Error(), ErrInvalidCredential.Error()+": ")
	}

	if at.SupportsTokenRefresh() || at == model.AuthTypeSetupToken {
		if secrets.AccessToken == "" {
			return "no access token; refresh the token"
		}
		if cred.Data.Expire != "" && IsTokenExpired(cred.Data.Expire, s.now()) {
			return "access token expired at " + cred.Data.Expire
		}
	}

	return ""
}

// RefreshToken exchanges the credential's refresh token for new tokens. On
// failure the error is recorded on the credential and returned. The exchange
// runs without holding the credential's lock; only the refresh fields are
// written back, onto a fresh copy of the credential.
func (s *CredentialService) RefreshToken(ctx context.Context, id string) (*model.Credential, error) {
	cred, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	at := model.AuthType(cred.Data.ResolvedAuthType())
	if !at.SupportsTokenRefresh() {
		return nil, fmt.Errorf("%w: %s", ErrRefreshNotSupported, at)
	}
	if s.refresher == nil {
		return nil, ErrRefresherNotConfigured
	}

	secrets, err := s.store.GetSecrets(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load secrets for %q: %w", id, err)
	}

	switch {
	case secrets.RefreshToken == "":
		return nil, s.recordFailure(ctx, id, ErrRefreshTokenMissing)
	case len(secrets.RefreshToken) < minRefreshTokenLength:
		return nil, s.recordFailure(ctx, id,
			fmt.Errorf("%w: %d characters", ErrRefreshTokenTruncated, len(secrets.RefreshToken)))
	}

	s.logger.Info("refreshing token", "credential_id", id, "auth_type", at)

	tokens, err := s.refresher.Refresh(ctx, secrets.RefreshToken)
	if err != nil {
		return nil, s.recordFailure(ctx, id, fmt.Errorf("refresh token: %w", err))
	}

	updated, err := s.mutate(ctx, id, func(c *model.Credential) error {
		current, err := s.store.GetSecrets(ctx, id)
		if err != nil {
			return fmt.Errorf("load secrets for %q: %w", id, err)
		}
		current.AccessToken = tokens.AccessToken
		if tokens.RefreshToken != "" {
			current.RefreshToken = tokens.RefreshToken
		}
		if err := s.store.UpdateSecrets(ctx, id, current); err != nil {
			return fmt.Errorf("store refreshed tokens for %q: %w", id, err)
		}

		c.Data.Expire = ""
		if !tokens.ExpiresAt.IsZero() {
			c.Data.Expire = tokens.ExpiresAt.UTC().Format(time.RFC3339)
		}
		c.Data.LastRefresh = s.now().UTC().Format(time.RFC3339)
		if tokens.Email != "" {
			c.Data.Email = tokens.Email
		}
		c.HealthStatus = model.HealthStatusHealthy
		c.LastError = ""
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("token refreshed", "credential_id", id)
	return updated, nil
}

// recordFailure stores cause as the credential's last error, bumps its error
// count and returns cause. It is recorded even when ctx has already expired.
func (s *CredentialService) recordFailure(ctx context.Context, id string, cause error) error {
	_, err := s.mutate(context.WithoutCancel(ctx), id, func(c *model.Credential) error {
		c.ErrorCount++
		c.LastError = cause.Error()
		return nil
	})
	if err != nil {
		s.logger.Error("failed to record credential error",
			"credential_id", id,
			"cause", cause,
			"error", err,
		)
	}
	return cause
}

// RecordUsage accounts one request made with a credential.
func (s *CredentialService) RecordUsage(ctx context.Context, id string, result model.UsageResult) (*model.Credential, error) {
	return s.mutate(ctx, id, func(c *model.Credential) error {
		c.UsageCount++
		if !result.Failed {
			c.HealthStatus = model.HealthStatusHealthy
			c.LastError = ""
			return nil
		}

		c.ErrorCount++
		c.LastError = result.ErrorMessage
		if result.MarkUnhealthy {
			c.HealthStatus = model.HealthStatusUnhealthy
			s.logger.Warn("credential marked unhealthy", "credential_id", c.ID, "error", result.ErrorMessage)
		}
		return nil
	})
}

// mutate loads a credential, applies fn and stores the result while holding
// the credential's lock. fn must not call mutate.
func (s *CredentialService) mutate(ctx context.Context, id string, fn func(*model.Credential) error) (*model.Credential, error) {
	mu := s.lockFor(id)
	mu.Lock()
	defer mu.Unlock()

	cred, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := fn(cred); err != nil {
		return nil, err
	}
	cred.UpdatedAt = s.now().UTC()

	if err := s.store.Update(ctx, *cred); err != nil {
		return nil, fmt.Errorf("update credential %q: %w", id, err)
	}
	return cred, nil
}

func (s *CredentialService) lockFor(id string) *sync.Mutex {
	h := fnv.New32a()
	_, _ = h.Write([]byte(id))
	return &s.locks[h.Sum32()%lockStripes]
}
