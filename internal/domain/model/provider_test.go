package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyUpstreamError(t *testing.T) {
	tests := []struct {
		status       int
		wantType     UpstreamErrorType
		wantRetry    bool
		wantCooldown time.Duration
	}{
		{401, UpstreamErrorAuthentication, true, 0},
		{403, UpstreamErrorAuthorization, false, 0},
		{429, UpstreamErrorRateLimit, true, time.Minute},
		{500, UpstreamErrorServer, true, 10 * time.Second},
		{529, UpstreamErrorServer, true, 10 * time.Second},
	}
	for _, tt := range tests {
		got, ok := ClassifyUpstreamError(tt.status, "overloaded")
		require.True(t, ok, "status %d", tt.status)
		assert.Equal(t, tt.wantType, got.Type)
		assert.Equal(t, tt.wantRetry, got.Retryable)
		assert.Equal(t, tt.wantCooldown, got.Cooldown)
		assert.Equal(t, tt.status, got.StatusCode)
	}

	got, _ := ClassifyUpstreamError(503, "overloaded")
	assert.Equal(t, "server error: overloaded", got.Message)

	for _, status := range []int{200, 400, 404, 600} {
		_, ok := ClassifyUpstreamError(status, "")
		assert.False(t, ok, "status %d", status)
	}
}

func TestBedrockModelID(t *testing.T) {
	assert.Equal(t, "us.anthropic.claude-opus-4-5-20251101-v1:0", BedrockModelID("claude-opus-4-5-20251101"))
	assert.Equal(t, "us.anthropic.claude-3-5-sonnet-20241022-v2:0", BedrockModelID("claude-3-5-sonnet-20241022"))
	assert.Equal(t, "us.anthropic.claude-next-v1:0", BedrockModelID("claude-next"))
}

func TestBedrockInvokeURL(t *testing.T) {
	assert.Equal(t,
		"https://bedrock-runtime.us-east-1.amazonaws.com/model/us.anthropic.claude-opus-4-5-20251101-v1:0/invoke-with-response-stream",
		BedrockInvokeURL("us-east-1", "us.anthropic.claude-opus-4-5-20251101-v1:0"))
}

func TestModels_EveryModelHasAFamilyAndBedrockMapping(t *testing.T) {
	families := make(map[string]bool)
	for _, f := range ModelFamilies {
		families[f.Name] = true
	}
	for _, m := range Models {
		assert.True(t, families[m.Family], "%s family %q", m.ID, m.Family)
		assert.Contains(t, bedrockModelIDs, m.ID)
		assert.Positive(t, m.ContextLength)
	}

	got, ok := LookupModel("claude-sonnet-4-5-20250929")
	require.True(t, ok)
	assert.Equal(t, "Claude Sonnet 4.5", got.DisplayName)
	_, ok = LookupModel("claude-unknown")
	assert.False(t, ok)
}
