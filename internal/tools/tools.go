// Package tools exposes the fixed set of side-effecting actions the model
// may call, and executes model-issued invocations against them.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
)

// Tool is one callable action. Execute receives the model-issued argument
// payload as raw JSON and returns a serializable result.
type Tool interface {
	Name() string
	Description() string
	Execute(ctx context.Context, args json.RawMessage) (any, error)
}

// funcTool adapts a typed handler to the Tool interface. Arguments are
// decoded through JSON so loosely structured payloads from the model are
// validated against the handler's input type before dispatch.
type funcTool[In any] struct {
	name        string
	description string
	validate    func(In) error
	handler     func(context.Context, In) (any, error)
}

// NewTool creates a Tool with type-safe argument handling. validate runs
// after decoding and before the handler; it enforces required fields the
// JSON shape alone cannot express. Pass nil to skip validation.
func NewTool[In any](
	name, description string,
	validate func(In) error,
	handler func(context.Context, In) (any, error),
) Tool {
	return &funcTool[In]{
		name:        name,
		description: description,
		validate:    validate,
		handler:     handler,
	}
}

func (t *funcTool[In]) Name() string        { return t.name }
func (t *funcTool[In]) Description() string { return t.description }

func (t *funcTool[In]) Execute(ctx context.Context, args json.RawMessage) (any, error) {
	var input In
	if len(args) > 0 {
		if err := json.Unmarshal(args, &input); err != nil {
			return nil, fmt.Errorf("invalid arguments for %s: %w", t.name, err)
		}
	}
	if t.validate != nil {
		if err := t.validate(input); err != nil {
			return nil, fmt.Errorf("invalid arguments for %s: %w", t.name, err)
		}
	}
	return t.handler(ctx, input)
}
