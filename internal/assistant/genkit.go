package assistant

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"

	"github.com/foliobot/folio/internal/tools"
)

// GenkitModel adapts a Genkit instance to the Model interface. Tool
// requests are returned to the orchestrator rather than auto-executed, so
// the generate/execute loop stays under the orchestrator's control.
type GenkitModel struct {
	g         *genkit.Genkit
	modelName string
	toolRefs  []ai.ToolRef
}

// NewGenkitModel creates a GenkitModel for the provider-qualified
// modelName using the pre-registered toolRefs.
func NewGenkitModel(g *genkit.Genkit, modelName string, toolRefs []ai.ToolRef) *GenkitModel {
	return &GenkitModel{g: g, modelName: modelName, toolRefs: toolRefs}
}

// Complete implements Model.
func (m *GenkitModel) Complete(ctx context.Context, req Request) (*Completion, error) {
	messages, err := toGenkitMessages(req.Messages)
	if err != nil {
		return nil, err
	}

	opts := []ai.GenerateOption{
		ai.WithModelName(m.modelName),
		ai.WithMessages(messages...),
	}
	if req.UseTools && len(m.toolRefs) > 0 {
		opts = append(opts,
			ai.WithTools(m.toolRefs...),
			ai.WithReturnToolRequests(true),
		)
	}

	resp, err := genkit.Generate(ctx, m.g, opts...)
	if err != nil {
		if strings.Contains(err.Error(), "tool_use_failed") {
			return nil, fmt.Errorf("%w: %v", ErrToolUseFailed, err)
		}
		return nil, fmt.Errorf("generating completion: %w", err)
	}

	completion := &Completion{Content: resp.Text()}
	for _, tr := range resp.ToolRequests() {
		args, err := json.Marshal(tr.Input)
		if err != nil {
			return nil, fmt.Errorf("marshaling tool request input: %w", err)
		}
		completion.ToolCalls = append(completion.ToolCalls, tools.Call{
			Ref:  tr.Ref,
			Name: tr.Name,
			Args: args,
		})
	}
	return completion, nil
}

// toGenkitMessages converts the orchestrator's message sequence into
// Genkit's wire shape, reattaching tool request/response parts.
func toGenkitMessages(messages []Message) ([]*ai.Message, error) {
	out := make([]*ai.Message, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case RoleSystem:
			out = append(out, ai.NewSystemMessage(ai.NewTextPart(m.Content)))

		case RoleUser:
			out = append(out, ai.NewUserMessage(ai.NewTextPart(m.Content)))

		case RoleAssistant:
			var parts []*ai.Part
			if m.Content != "" {
				parts = append(parts, ai.NewTextPart(m.Content))
			}
			for _, call := range m.ToolCalls {
				var input any
				if len(call.Args) > 0 {
					if err := json.Unmarshal(call.Args, &input); err != nil {
						return nil, fmt.Errorf("decoding tool call args: %w", err)
					}
				}
				parts = append(parts, &ai.Part{
					Kind: ai.PartToolRequest,
					ToolRequest: &ai.ToolRequest{
						Name:  call.Name,
						Ref:   call.Ref,
						Input: input,
					},
				})
			}
			out = append(out, &ai.Message{Role: ai.RoleModel, Content: parts})

		case RoleTool:
			if m.ToolResult == nil {
				continue
			}
			var output any
			if len(m.ToolResult.Output) > 0 {
				if err := json.Unmarshal(m.ToolResult.Output, &output); err != nil {
					return nil, fmt.Errorf("decoding tool result: %w", err)
				}
			}
			out = append(out, &ai.Message{
				Role: ai.RoleTool,
				Content: []*ai.Part{ai.NewToolResponsePart(&ai.ToolResponse{
					Name:   m.ToolResult.Name,
					Ref:    m.ToolResult.Ref,
					Output: output,
				})},
			})

		default:
			return nil, fmt.Errorf("unsupported message role %q", m.Role)
		}
	}
	return out, nil
}
