package providers

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/architects-toolkit/smarthopper-ai/capability"
	"github.com/architects-toolkit/smarthopper-ai/interaction"
	"github.com/architects-toolkit/smarthopper-ai/models"
)

func testMistralCodec() *Mistral {
	return NewMistral(Deps{Models: models.NewManager()}).(*Mistral)
}

// TestMistral_Encode_SafePromptSetting tests the safe_prompt toggle
func TestMistral_Encode_SafePromptSetting(t *testing.T) {
	p := testMistralCodec()

	payload, err := p.encode([]interaction.Interaction{interaction.NewUser("hi")}, CallOptions{Model: "mistral-large-latest"})
	require.NoError(t, err)
	assert.NotContains(t, string(payload), "safe_prompt")

	p.SetSetting("safe_prompt", true)
	payload, err = p.encode([]interaction.Interaction{interaction.NewUser("hi")}, CallOptions{Model: "mistral-large-latest"})
	require.NoError(t, err)

	var req mistralChatRequest
	require.NoError(t, json.Unmarshal(payload, &req))
	assert.True(t, req.SafePrompt)
	assert.Equal(t, "mistral-large-latest", req.Model)
}

// TestMistral_Decode_NormalizesFinishReason tests finish-reason folding
func TestMistral_Decode_NormalizesFinishReason(t *testing.T) {
	p := testMistralCodec()

	payload := []byte(`{
		"choices": [{
			"message": {"role": "assistant", "content": "truncated answer"},
			"finish_reason": "model_length"
		}],
		"usage": {"prompt_tokens": 9, "completion_tokens": 3}
	}`)

	body, metrics, err := p.decode(payload)
	require.NoError(t, err)
	require.Len(t, body, 1)
	assert.Equal(t, "length", metrics.FinishReason)
	assert.Equal(t, 9, metrics.InputTokens)
}

// TestMistral_Decode_ToolCalls tests tool-call extraction
func TestMistral_Decode_ToolCalls(t *testing.T) {
	p := testMistralCodec()

	payload := []byte(`{
		"choices": [{
			"message": {
				"role": "assistant",
				"content": "",
				"tool_calls": [{"id": "m1", "function": {"name": "gh_get", "arguments": "{}"}}]
			},
			"finish_reason": "tool_calls"
		}]
	}`)

	body, _, err := p.decode(payload)
	require.NoError(t, err)
	require.Len(t, body, 1)
	assert.Equal(t, interaction.KindToolCall, body[0].Kind)
	assert.Equal(t, "m1", body[0].ToolCall.ID)
}

// TestClassifyMistralModel_FamilyCapabilities tests prefix classification
func TestClassifyMistralModel_FamilyCapabilities(t *testing.T) {
	assert.True(t, classifyMistralModel("mistral-large-latest").Has(capability.StructuredOutput))
	assert.True(t, classifyMistralModel("pixtral-12b").Has(capability.ImageInput))
	assert.True(t, classifyMistralModel("codestral-latest").Has(capability.JSONOutput))
	assert.False(t, classifyMistralModel("codestral-latest").Has(capability.FunctionCalling))
	assert.True(t, classifyMistralModel("mistral-small-latest").Has(capability.FunctionCalling))
}

// TestNormalizeMistralFinish_Vocabulary tests the mapping table
func TestNormalizeMistralFinish_Vocabulary(t *testing.T) {
	assert.Equal(t, "length", normalizeMistralFinish("model_length"))
	assert.Equal(t, "stop", normalizeMistralFinish("stop"))
	assert.Equal(t, "tool_calls", normalizeMistralFinish("tool_calls"))
}
