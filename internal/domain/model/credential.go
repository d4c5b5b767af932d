package model

import "time"

// Credential is a stored authorization record for the Claude provider. It is the
// snapshot handed to presentation code; secret material lives in CredentialSecrets
// and is never part of it.
type Credential struct {
	ID           string
	Name         string // Optional; empty means unnamed.
	IsDisabled   bool
	HealthStatus HealthStatus // Empty when no health check or usage has reported yet.
	UsageCount   int64
	ErrorCount   int64
	LastError    string // Optional; empty when the last operation succeeded.
	Data         CredentialData
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// CredentialData holds the non-secret, auth-type specific attributes of a
// credential. Every field is independently optional and empty means absent.
type CredentialData struct {
	AuthType         string // Raw auth type key; empty is treated as AuthTypeOAuth.
	Email            string
	Region           string // Bedrock only.
	BaseURL          string // CCR only.
	Expire           string // Access token expiry, RFC3339 when written by credpanel.
	LastRefresh      string // Last successful token refresh, RFC3339.
	OrganizationName string // Console only.
}

// ResolvedAuthType returns the credential's auth type with the OAuth default
// applied when the field is absent.
func (d CredentialData) ResolvedAuthType() string {
	if d.AuthType == "" {
		return string(AuthTypeOAuth)
	}
	return d.AuthType
}

// CredentialSecrets holds the secret material of a credential. Stores persist it
// encrypted at rest.
type CredentialSecrets struct {
	AccessToken     string `json:"access_token,omitempty"`
	RefreshToken    string `json:"refresh_token,omitempty"`
	AccessKeyID     string `json:"access_key_id,omitempty"`
	SecretAccessKey string `json:"secret_access_key,omitempty"`
	SessionToken    string `json:"session_token,omitempty"`
	APIKey          string `json:"api_key,omitempty"`
}

// TokenSet is the result of a successful OAuth token refresh.
type TokenSet struct {
	AccessToken  string
	RefreshToken string    // Empty when the server did not rotate the refresh token.
	ExpiresAt    time.Time // Zero when the server did not report an expiry.
	Email        string
}
