package model

// AuthCategory groups auth types by how their secret is obtained.
type AuthCategory string

const (
	AuthCategoryOAuth  AuthCategory = "oauth"
	AuthCategoryToken  AuthCategory = "token"
	AuthCategoryAPIKey AuthCategory = "api_key"
)

// AuthTypeInfo describes an auth type for the credential creation flow.
// Help is markdown shown next to the form.
type AuthTypeInfo struct {
	Type        AuthType
	DisplayName string
	Category    AuthCategory
	Help        string
}

// ModelFamily is a group of Claude models matched by a glob pattern.
type ModelFamily struct {
	Name        string
	Pattern     string
	Tier        int // 0 when the family spans tiers.
	Description string
}

// ModelInfo describes one Claude model served through the credentials.
type ModelInfo struct {
	ID             string
	DisplayName    string
	Family         string
	ContextLength  int
	SupportsVision bool
	SupportsTools  bool
}

// AuthTypeCatalog lists the creation help for every known auth type, in
// KnownAuthTypes order.
var AuthTypeCatalog = []AuthTypeInfo{
	{
		Type:        AuthTypeOAuth,
		DisplayName: "OAuth login",
		Category:    AuthCategoryOAuth,
		Help:        "Authorize with a **Claude.ai** account. Paste the `refresh_token` (and optionally the current `access_token`) issued by the OAuth flow.",
	},
	{
		Type:        AuthTypeClaudeCode,
		DisplayName: "Claude Code",
		Category:    AuthCategoryOAuth,
		Help:        "Reuse the credentials of the Claude Code CLI. Copy `refreshToken` and `accessToken` from `~/.claude/.credentials.json`.",
	},
	{
		Type:        AuthTypeConsole,
		DisplayName: "Console OAuth",
		Category:    AuthCategoryOAuth,
		Help:        "Authorize with an **Anthropic Console** organization account (teams and enterprise).",
	},
	{
		Type:        AuthTypeSetupToken,
		DisplayName: "Setup Token",
		Category:    AuthCategoryToken,
		Help:        "An inference-only token with minimal scope, created with `claude setup-token`. It cannot be refreshed.",
	},
	{
		Type:        AuthTypeBedrock,
		DisplayName: "AWS Bedrock",
		Category:    AuthCategoryAPIKey,
		Help:        "Call Claude through **AWS Bedrock**. Requires an access key id and secret access key; the region defaults to `us-east-1`.",
	},
	{
		Type:        AuthTypeCCR,
		DisplayName: "CCR relay",
		Category:    AuthCategoryAPIKey,
		Help:        "Send requests through a third-party Claude relay. Requires the relay's base URL and API key.",
	},
}

// ModelFamilies lists the Claude model families credentials can serve.
var ModelFamilies = []ModelFamily{
	{Name: "opus", Pattern: "claude-opus-*", Tier: 3, Description: "Claude Opus, the most capable tier"},
	{Name: "sonnet", Pattern: "claude-*-sonnet*", Tier: 2, Description: "Claude Sonnet, balanced"},
	{Name: "haiku", Pattern: "claude-*-haiku*", Tier: 1, Description: "Claude Haiku, fastest"},
	{Name: "all-claude", Pattern: "claude-*", Description: "Every Claude model"},
}

// Models lists the Claude models known to the provider.
var Models = []ModelInfo{
	{ID: "claude-opus-4-20250514", DisplayName: "Claude Opus 4", Family: "opus", ContextLength: 200000, SupportsVision: true, SupportsTools: true},
	{ID: "claude-opus-4-5-20251101", DisplayName: "Claude Opus 4.5", Family: "opus", ContextLength: 200000, SupportsVision: true, SupportsTools: true},
	{ID: "claude-sonnet-4-20250514", DisplayName: "Claude Sonnet 4", Family: "sonnet", ContextLength: 200000, SupportsVision: true, SupportsTools: true},
	{ID: "claude-sonnet-4-5-20250929", DisplayName: "Claude Sonnet 4.5", Family: "sonnet", ContextLength: 200000, SupportsVision: true, SupportsTools: true},
	{ID: "claude-haiku-3-5-20241022", DisplayName: "Claude Haiku 3.5", Family: "haiku", ContextLength: 200000, SupportsVision: true, SupportsTools: true},
	{ID: "claude-3-5-sonnet-20241022", DisplayName: "Claude 3.5 Sonnet", Family: "sonnet", ContextLength: 200000, SupportsVision: true, SupportsTools: true},
}

// LookupModel returns the catalog entry of a model id.
func LookupModel(id string) (ModelInfo, bool) {
	for _, m := range Models {
		if m.ID == id {
			return m, true
		}
	}
	return ModelInfo{}, false
}

// LookupAuthTypeInfo returns the catalog entry for a known auth type.
func LookupAuthTypeInfo(at AuthType) (AuthTypeInfo, bool) {
	for _, info := range AuthTypeCatalog {
		if info.Type == at {
			return info, true
		}
	}
	return AuthTypeInfo{}, false
}
