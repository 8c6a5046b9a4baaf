package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/architects-toolkit/smarthopper-ai/capability"
	"github.com/architects-toolkit/smarthopper-ai/interaction"
)

const openAIServerURL = "https://api.openai.com/v1"

// seed catalog used when the models endpoint is unreachable, so the
// provider stays usable offline.
var openAISeedModels = []string{
	"gpt-4o",
	"gpt-4o-mini",
	"gpt-4-turbo",
	"gpt-3.5-turbo",
	"o1",
	"o1-mini",
}

// OpenAI integrates the OpenAI chat completions API.
type OpenAI struct {
	*Base
}

// NewOpenAI creates the OpenAI provider.
func NewOpenAI(deps Deps) Provider {
	p := &OpenAI{}
	p.Base = NewBase("openai", openAIServerURL, p, deps, map[string]any{
		"auth_scheme": string(AuthBearer),
		"temperature": 0.7,
	})
	return p
}

func init() {
	RegisterFactory("openai", NewOpenAI)
}

// Initialize registers model capabilities. Once the registry knows this
// provider it returns immediately, so repeated initialization never
// repeats the model-list call.
func (p *OpenAI) Initialize(ctx context.Context) error {
	if p.Models().HasProviderCapabilities(p.Name()) {
		return nil
	}

	ids, err := p.listModelIDs(ctx)
	if err != nil || len(ids) == 0 {
		p.logf("model discovery unavailable, seeding catalog: %v", err)
		ids = openAISeedModels
	}
	for _, id := range ids {
		if !usableOpenAIModel(id) {
			continue
		}
		p.Models().RegisterCapabilities(p.Name(), id, classifyOpenAIModel(id), capability.None)
	}

	// Family defaults, first match wins in this order.
	p.Models().RegisterCapabilities(p.Name(), "gpt-4o*", classifyOpenAIModel("gpt-4o"),
		capability.BasicChat|capability.Text2JSON|capability.Image2Text)
	p.Models().RegisterCapabilities(p.Name(), "gpt-4*", classifyOpenAIModel("gpt-4-turbo"),
		capability.BasicChat)
	p.Models().RegisterCapabilities(p.Name(), "gpt-3.5*", classifyOpenAIModel("gpt-3.5-turbo"),
		capability.Text2Text)
	return nil
}

// usableOpenAIModel filters out non-chat models from the catalog.
func usableOpenAIModel(id string) bool {
	for _, prefix := range []string{"text-embedding", "whisper", "tts", "dall-e", "text-moderation", "davinci", "babbage"} {
		if strings.HasPrefix(id, prefix) {
			return false
		}
	}
	return true
}

// classifyOpenAIModel derives a capability set from the model family.
func classifyOpenAIModel(id string) capability.Capability {
	switch {
	case strings.HasPrefix(id, "gpt-4o"):
		return capability.BasicChat | capability.Text2JSON |
			capability.ImageInput | capability.StructuredOutput
	case strings.HasPrefix(id, "gpt-4"):
		return capability.BasicChat | capability.Text2JSON
	case strings.HasPrefix(id, "o1") || strings.HasPrefix(id, "o3"):
		// Reasoning models accept no tool definitions on this endpoint.
		return capability.Text2Text | capability.Text2JSON
	case strings.HasPrefix(id, "gpt-3.5"):
		return capability.Text2Text | capability.FunctionCalling
	default:
		return capability.Text2Text
	}
}

// --- wire format ---

type openaiFunction struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

type openaiToolCall struct {
	ID       string         `json:"id"`
	Type     string         `json:"type"`
	Function openaiFunction `json:"function"`
}

type openaiMessage struct {
	Role       string           `json:"role"`
	Content    string           `json:"content"`
	ToolCalls  []openaiToolCall `json:"tool_calls,omitempty"`
	ToolCallID string           `json:"tool_call_id,omitempty"`
	Name       string           `json:"name,omitempty"`
}

type openaiTool struct {
	Type     string `json:"type"`
	Function struct {
		Name        string         `json:"name"`
		Description string         `json:"description,omitempty"`
		Parameters  map[string]any `json:"parameters"`
	} `json:"function"`
}

type openaiChatRequest struct {
	Model       string          `json:"model"`
	Messages    []openaiMessage `json:"messages"`
	Tools       []openaiTool    `json:"tools,omitempty"`
	ToolChoice  string          `json:"tool_choice,omitempty"`
	Temperature float64         `json:"temperature,omitempty"`
	Stream      bool            `json:"stream,omitempty"`
}

type openaiChatResponse struct {
	ID      string `json:"id"`
	Choices []struct {
		Message      openaiMessage `json:"message"`
		FinishReason string        `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

func (p *OpenAI) chatEndpoint(serverURL string) string {
	return serverURL + "/chat/completions"
}

func (p *OpenAI) encode(body []interaction.Interaction, opts CallOptions) ([]byte, error) {
	req := openaiChatRequest{
		Model:       opts.Model,
		Messages:    encodeOpenAIMessages(body),
		Temperature: Setting[float64](p.Base, "temperature"),
		Stream:      opts.Stream,
	}
	for _, t := range opts.Tools {
		var wire openaiTool
		wire.Type = "function"
		wire.Function.Name = t.Name
		wire.Function.Description = t.Description
		wire.Function.Parameters = t.Schema
		req.Tools = append(req.Tools, wire)
	}
	if len(req.Tools) > 0 {
		req.ToolChoice = "auto"
	}
	return json.Marshal(req)
}

// encodeOpenAIMessages maps interactions onto chat messages. Tool calls
// become assistant messages carrying tool_calls; tool results become
// role "tool" messages answering their call id.
func encodeOpenAIMessages(body []interaction.Interaction) []openaiMessage {
	messages := make([]openaiMessage, 0, len(body))
	for _, it := range body {
		switch it.Kind {
		case interaction.KindSystem:
			messages = append(messages, openaiMessage{Role: "system", Content: it.Text})
		case interaction.KindUser:
			messages = append(messages, openaiMessage{Role: "user", Content: it.Text})
		case interaction.KindAssistant:
			messages = append(messages, openaiMessage{Role: "assistant", Content: it.Text})
		case interaction.KindToolCall:
			messages = append(messages, openaiMessage{
				Role: "assistant",
				ToolCalls: []openaiToolCall{{
					ID:   it.ToolCall.ID,
					Type: "function",
					Function: openaiFunction{
						Name:      it.ToolCall.Name,
						Arguments: string(it.ToolCall.Arguments),
					},
				}},
			})
		case interaction.KindToolResult:
			messages = append(messages, openaiMessage{
				Role:       "tool",
				Content:    string(it.ToolResult.Result),
				ToolCallID: it.ToolResult.ToolCallID,
				Name:       it.ToolResult.Name,
			})
		case interaction.KindError:
			// Errors are local bookkeeping; they never go back on the wire.
		}
	}
	return messages
}

func (p *OpenAI) decode(payload []byte) ([]interaction.Interaction, interaction.Metrics, error) {
	var resp openaiChatResponse
	if err := json.Unmarshal(payload, &resp); err != nil {
		return nil, interaction.Metrics{}, fmt.Errorf("parsing chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, interaction.Metrics{}, fmt.Errorf("response contains no choices")
	}

	choice := resp.Choices[0]
	var body []interaction.Interaction
	if choice.Message.Content != "" {
		body = append(body, interaction.NewAssistant(choice.Message.Content))
	}
	for _, tc := range choice.Message.ToolCalls {
		body = append(body, interaction.NewToolCall(tc.ID, tc.Function.Name,
			json.RawMessage(tc.Function.Arguments)))
	}

	metrics := interaction.Metrics{
		InputTokens:  resp.Usage.PromptTokens,
		OutputTokens: resp.Usage.CompletionTokens,
		FinishReason: choice.FinishReason,
	}
	return body, metrics, nil
}
