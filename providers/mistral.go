package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/architects-toolkit/smarthopper-ai/capability"
	"github.com/architects-toolkit/smarthopper-ai/interaction"
)

const mistralServerURL = "https://api.mistral.ai/v1"

var mistralSeedModels = []string{
	"mistral-large-latest",
	"mistral-small-latest",
	"codestral-latest",
	"pixtral-large-latest",
}

// Mistral integrates the Mistral AI chat API. The wire shape is in the
// OpenAI family but carries Mistral's own fields (safe_prompt, random
// seed) and finish reasons.
type Mistral struct {
	*Base
}

// NewMistral creates the Mistral provider.
func NewMistral(deps Deps) Provider {
	p := &Mistral{}
	p.Base = NewBase("mistralai", mistralServerURL, p, deps, map[string]any{
		"auth_scheme": string(AuthBearer),
		"safe_prompt": false,
	})
	return p
}

func init() {
	RegisterFactory("mistralai", NewMistral)
}

// Initialize registers model capabilities, skipping the network call once
// the registry already knows this provider.
func (p *Mistral) Initialize(ctx context.Context) error {
	if p.Models().HasProviderCapabilities(p.Name()) {
		return nil
	}

	ids, err := p.listModelIDs(ctx)
	if err != nil || len(ids) == 0 {
		p.logf("model discovery unavailable, seeding catalog: %v", err)
		ids = mistralSeedModels
	}
	for _, id := range ids {
		p.Models().RegisterCapabilities(p.Name(), id, classifyMistralModel(id), capability.None)
	}

	p.Models().RegisterCapabilities(p.Name(), "mistral-large*", classifyMistralModel("mistral-large-latest"),
		capability.BasicChat|capability.Text2JSON)
	p.Models().RegisterCapabilities(p.Name(), "pixtral*", classifyMistralModel("pixtral-large-latest"),
		capability.Image2Text)
	p.Models().RegisterCapabilities(p.Name(), "mistral-small*", classifyMistralModel("mistral-small-latest"),
		capability.Text2Text)
	return nil
}

func classifyMistralModel(id string) capability.Capability {
	switch {
	case strings.HasPrefix(id, "mistral-large"):
		return capability.BasicChat | capability.Text2JSON | capability.StructuredOutput
	case strings.HasPrefix(id, "pixtral"):
		return capability.BasicChat | capability.ImageInput
	case strings.HasPrefix(id, "codestral"):
		return capability.Text2Text | capability.JSONOutput
	default:
		return capability.Text2Text | capability.FunctionCalling
	}
}

// --- wire format ---

type mistralFunction struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

type mistralToolCall struct {
	ID       string          `json:"id"`
	Function mistralFunction `json:"function"`
}

type mistralMessage struct {
	Role       string            `json:"role"`
	Content    string            `json:"content"`
	ToolCalls  []mistralToolCall `json:"tool_calls,omitempty"`
	ToolCallID string            `json:"tool_call_id,omitempty"`
	Name       string            `json:"name,omitempty"`
}

type mistralTool struct {
	Type     string `json:"type"`
	Function struct {
		Name        string         `json:"name"`
		Description string         `json:"description,omitempty"`
		Parameters  map[string]any `json:"parameters"`
	} `json:"function"`
}

type mistralChatRequest struct {
	Model      string           `json:"model"`
	Messages   []mistralMessage `json:"messages"`
	Tools      []mistralTool    `json:"tools,omitempty"`
	ToolChoice string           `json:"tool_choice,omitempty"`
	SafePrompt bool             `json:"safe_prompt,omitempty"`
	Stream     bool             `json:"stream,omitempty"`
}

type mistralChatResponse struct {
	ID      string `json:"id"`
	Choices []struct {
		Message      mistralMessage `json:"message"`
		FinishReason string         `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

func (p *Mistral) chatEndpoint(serverURL string) string {
	return serverURL + "/chat/completions"
}

func (p *Mistral) encode(body []interaction.Interaction, opts CallOptions) ([]byte, error) {
	req := mistralChatRequest{
		Model:      opts.Model,
		Messages:   encodeMistralMessages(body),
		SafePrompt: Setting[bool](p.Base, "safe_prompt"),
		Stream:     opts.Stream,
	}
	for _, t := range opts.Tools {
		var wire mistralTool
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

func encodeMistralMessages(body []interaction.Interaction) []mistralMessage {
	messages := make([]mistralMessage, 0, len(body))
	for _, it := range body {
		switch it.Kind {
		case interaction.KindSystem:
			messages = append(messages, mistralMessage{Role: "system", Content: it.Text})
		case interaction.KindUser:
			messages = append(messages, mistralMessage{Role: "user", Content: it.Text})
		case interaction.KindAssistant:
			messages = append(messages, mistralMessage{Role: "assistant", Content: it.Text})
		case interaction.KindToolCall:
			messages = append(messages, mistralMessage{
				Role: "assistant",
				ToolCalls: []mistralToolCall{{
					ID: it.ToolCall.ID,
					Function: mistralFunction{
						Name:      it.ToolCall.Name,
						Arguments: string(it.ToolCall.Arguments),
					},
				}},
			})
		case interaction.KindToolResult:
			messages = append(messages, mistralMessage{
				Role:       "tool",
				Content:    string(it.ToolResult.Result),
				ToolCallID: it.ToolResult.ToolCallID,
				Name:       it.ToolResult.Name,
			})
		case interaction.KindError:
		}
	}
	return messages
}

func (p *Mistral) decode(payload []byte) ([]interaction.Interaction, interaction.Metrics, error) {
	var resp mistralChatResponse
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
		FinishReason: normalizeMistralFinish(choice.FinishReason),
	}
	return body, metrics, nil
}

// normalizeMistralFinish folds Mistral's finish reasons onto the uniform
// vocabulary the rest of the pipeline reads.
func normalizeMistralFinish(reason string) string {
	switch reason {
	case "model_length":
		return "length"
	default:
		return reason
	}
}
