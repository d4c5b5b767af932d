package model

// AuthType identifies the authentication scheme a credential uses.
type AuthType string

const (
	AuthTypeOAuth      AuthType = "oauth"       // Claude.ai OAuth 2.0 + PKCE.
	AuthTypeClaudeCode AuthType = "claude_code" // Claude Code CLI credentials.
	AuthTypeConsole    AuthType = "console"     // Anthropic Console OAuth.
	AuthTypeSetupToken AuthType = "setup_token" // Inference-only token, cannot be refreshed.
	AuthTypeBedrock    AuthType = "bedrock"     // AWS Bedrock access keys.
	AuthTypeCCR        AuthType = "ccr"         // Third-party relay with API key.
)

// KnownAuthTypes lists every auth type credpanel can create, in display order.
var KnownAuthTypes = []AuthType{
	AuthTypeOAuth,
	AuthTypeClaudeCode,
	AuthTypeConsole,
	AuthTypeSetupToken,
	AuthTypeBedrock,
	AuthTypeCCR,
}

// ParseAuthType returns the AuthType for a raw key and whether it is known.
func ParseAuthType(raw string) (AuthType, bool) {
	for _, at := range KnownAuthTypes {
		if string(at) == raw {
			return at, true
		}
	}
	return AuthType(raw), false
}

// SupportsTokenRefresh reports whether credentials of this type carry a
// refresh token that can be exchanged for a new access token.
func (a AuthType) SupportsTokenRefresh() bool {
	switch a {
	case AuthTypeOAuth, AuthTypeClaudeCode, AuthTypeConsole:
		return true
	default:
		return false
	}
}

// HealthStatus is the externally computed liveness signal of a credential.
type HealthStatus string

const (
	HealthStatusUnknown   HealthStatus = ""
	HealthStatusHealthy   HealthStatus = "healthy"
	HealthStatusUnhealthy HealthStatus = "unhealthy"
)
