package tools

import (
	"encoding/json"
	"fmt"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
)

// DefineGenkitTools registers the registry's tools with Genkit so the model
// sees their declarative schemas, and returns refs for generate calls.
// Generation runs with tool requests returned to the caller, so the
// handlers here only fire if Genkit is ever asked to auto-execute.
func DefineGenkitTools(g *genkit.Genkit, registry *Registry) []ai.ToolRef {
	refs := make([]ai.ToolRef, 0, 2)
	if t, ok := registry.Get(RecordUserDetailsName); ok {
		refs = append(refs, defineTyped[UserDetailsInput](g, t))
	}
	if t, ok := registry.Get(RecordUnknownQuestionName); ok {
		refs = append(refs, defineTyped[UnknownQuestionInput](g, t))
	}
	return refs
}

func defineTyped[In any](g *genkit.Genkit, t Tool) ai.Tool {
	return genkit.DefineTool(g, t.Name(), t.Description(),
		func(toolCtx *ai.ToolContext, input In) (any, error) {
			args, err := json.Marshal(input)
			if err != nil {
				return nil, fmt.Errorf("marshaling tool input: %w", err)
			}
			return t.Execute(toolCtx.Context, args)
		})
}
