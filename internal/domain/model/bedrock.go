package model

import "fmt"

// bedrockModelIDs maps Anthropic model ids to Bedrock inference profile ids
// where the version suffix differs from the default rule.
var bedrockModelIDs = map[string]string{
	"claude-opus-4-20250514":     "us.anthropic.claude-opus-4-20250514-v1:0",
	"claude-opus-4-5-20251101":   "us.anthropic.claude-opus-4-5-20251101-v1:0",
	"claude-sonnet-4-20250514":   "us.anthropic.claude-sonnet-4-20250514-v1:0",
	"claude-sonnet-4-5-20250929": "us.anthropic.claude-sonnet-4-5-20250929-v1:0",
	"claude-haiku-3-5-20241022":  "us.anthropic.claude-haiku-3-5-20241022-v1:0",
	"claude-3-5-sonnet-20241022": "us.anthropic.claude-3-5-sonnet-20241022-v2:0",
}

// BedrockModelID returns the Bedrock model id for an Anthropic model id.
// Unmapped models get the us.anthropic.<model>-v1:0 form.
func BedrockModelID(model string) string {
	if id, ok := bedrockModelIDs[model]; ok {
		return id
	}
	return "us.anthropic." + model + "-v1:0"
}

// BedrockRuntimeURL is the Bedrock runtime endpoint of a region.
func BedrockRuntimeURL(region string) string {
	return fmt.Sprintf("https://bedrock-runtime.%s.amazonaws.com", region)
}

// BedrockInvokeURL is the streaming invoke endpoint of a Bedrock model.
func BedrockInvokeURL(region, modelID string) string {
	return BedrockRuntimeURL(region) + "/model/" + modelID + "/invoke-with-response-stream"
}
