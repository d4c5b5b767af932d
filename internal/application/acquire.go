package application

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ericfisherdev/credpanel/internal/card"
	"github.com/ericfisherdev/credpanel/internal/domain/model"
)

// Errors returned by Acquire.
var (
	ErrUnsupportedModel    = errors.New("unsupported model")
	ErrNoHealthyCredential = errors.New("no healthy credential available")
)

const (
	anthropicBaseURL     = "https://api.anthropic.com"
	anthropicVersion     = "2023-06-01"
	anthropicMessagesAPI = "/v1/messages"
)

// SupportsModel reports whether a model name is served by Claude credentials.
func SupportsModel(name string) bool {
	return strings.HasPrefix(name, "claude-")
}

// Acquire selects the first enabled, healthy and completely configured
// credential and returns the base URL and headers needed to call the model.
func (s *CredentialService) Acquire(ctx context.Context, modelName string) (*model.AcquiredCredential, error) {
	if !SupportsModel(modelName) {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedModel, modelName)
	}

	creds, err := s.List(ctx)
	if err != nil {
		return nil, err
	}

	for _, cred := range creds {
		if !card.DeriveHealth(cred.IsDisabled, cred.HealthStatus) {
			continue
		}

		secrets, err := s.store.GetSecrets(ctx, cred.ID)
		if err != nil {
			return nil, fmt.Errorf("load secrets for %q: %w", cred.ID, err)
		}

		acquired, ok := buildAcquired(cred, secrets, modelName)
		if !ok {
			s.logger.Debug("skipping incomplete credential", "credential_id", cred.ID)
			continue
		}
		return acquired, nil
	}

	return nil, ErrNoHealthyCredential
}

func buildAcquired(cred model.Credential, secrets model.CredentialSecrets, modelName string) (*model.AcquiredCredential, bool) {
	at, known := model.ParseAuthType(cred.Data.ResolvedAuthType())
	if !known {
		return nil, false
	}

	acquired := &model.AcquiredCredential{
		ID:       cred.ID,
		Name:     cred.Name,
		AuthType: at,
		Headers:  map[string]string{"Content-Type": "application/json"},
		Model:    modelName,
	}

	switch at {
	case model.AuthTypeOAuth, model.AuthTypeClaudeCode, model.AuthTypeConsole, model.AuthTypeSetupToken:
		if secrets.AccessToken == "" {
			return nil, false
		}
		acquired.BaseURL = anthropicBaseURL
		acquired.Headers["Authorization"] = "Bearer " + secrets.AccessToken
		acquired.Headers["anthropic-version"] = anthropicVersion
	case model.AuthTypeBedrock:
		region := cred.Data.Region
		if region == "" {
			region = defaultBedrockRegion
		}
		acquired.BaseURL = model.BedrockRuntimeURL(region)
		acquired.Model = model.BedrockModelID(modelName)
		acquired.InvokeURL = model.BedrockInvokeURL(region, acquired.Model)
	case model.AuthTypeCCR:
		if secrets.APIKey == "" || cred.Data.BaseURL == "" {
			return nil, false
		}
		acquired.BaseURL = strings.TrimRight(cred.Data.BaseURL, "/")
		acquired.Headers["x-api-key"] = secrets.APIKey
		acquired.Headers["anthropic-version"] = anthropicVersion
	}
	if acquired.InvokeURL == "" {
		acquired.InvokeURL = acquired.BaseURL + anthropicMessagesAPI
	}

	return acquired, true
}
