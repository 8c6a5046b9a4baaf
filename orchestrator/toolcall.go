package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/architects-toolkit/smarthopper-ai/capability"
	"github.com/architects-toolkit/smarthopper-ai/interaction"
)

// toolCallSystemPrompt instructs the model to satisfy the request through
// the exposed tool rather than answering in prose.
const toolCallSystemPrompt = "You have access to local tools. Use the %q tool to fulfil the request, then report its outcome."

// CallAiTool is the tool-oriented entry point consumed by host
// components: it asks the AI to drive the named tool with the given
// parameters and extracts the nested tool result payload. The success
// criterion is a tool result for that tool somewhere in the final body;
// its absence, or a failed call, surfaces as an error carrying the
// result's severity-tagged messages verbatim.
func (o *Orchestrator) CallAiTool(ctx context.Context, toolName string, params map[string]any, opts CallOptions) (map[string]any, error) {
	if _, ok := o.tools.Get(toolName); !ok {
		return nil, fmt.Errorf("tool %q is not registered", toolName)
	}

	encoded, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("encoding tool parameters: %w", err)
	}

	if opts.ToolFilter == "" {
		opts.ToolFilter = "+" + toolName
	}
	if opts.Required == capability.None {
		opts.Required = capability.BasicChat
	}

	history := []interaction.Interaction{
		interaction.NewSystem(fmt.Sprintf(toolCallSystemPrompt, toolName)),
		interaction.NewUser(fmt.Sprintf("Run %s with these parameters: %s", toolName, encoded)),
	}

	ret, transcript, err := o.run(ctx, history, opts)
	if err != nil {
		return nil, err
	}
	if !ret.Success {
		return nil, fmt.Errorf("AI call failed: %s", formatMessages(ret.Messages))
	}

	result := lastResultFor(transcript, toolName)
	if result == nil {
		return nil, fmt.Errorf("AI completed without producing a %q result", toolName)
	}

	var payload map[string]any
	if err := json.Unmarshal(result.Result, &payload); err != nil {
		return nil, fmt.Errorf("decoding %q result: %w", toolName, err)
	}
	return payload, nil
}

// lastResultFor finds the last tool result for the named tool; the last
// one in the transcript is authoritative for the turn.
func lastResultFor(transcript []interaction.Interaction, toolName string) *interaction.ToolResult {
	for i := len(transcript) - 1; i >= 0; i-- {
		it := transcript[i]
		if it.Kind == interaction.KindToolResult && it.ToolResult.Name == toolName {
			return it.ToolResult
		}
	}
	return nil
}

func formatMessages(messages []interaction.Message) string {
	if len(messages) == 0 {
		return "no details provided"
	}
	out := ""
	for i, m := range messages {
		if i > 0 {
			out += "; "
		}
		out += fmt.Sprintf("[%s] %s", m.Severity, m.Text)
	}
	return out
}
