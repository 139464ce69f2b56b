package tools

import (
	"context"
	"encoding/json"
	"log/slog"
)

// Call is one model-issued tool invocation.
type Call struct {
	// Ref correlates this call with its result in the next model turn.
	Ref  string
	Name string
	Args json.RawMessage
}

// CallResult pairs a serialized tool result with the call that produced it.
// Every Call yields exactly one CallResult, whatever went wrong, so the
// conversation's call/result pairing is never left unset.
type CallResult struct {
	Ref    string
	Name   string
	Output json.RawMessage
}

// Executor dispatches model-issued calls against a Registry.
type Executor struct {
	registry *Registry
	logger   *slog.Logger
}

// NewExecutor creates an Executor over registry.
func NewExecutor(registry *Registry, logger *slog.Logger) *Executor {
	return &Executor{registry: registry, logger: logger}
}

// Execute runs each call in order. An unregistered name yields an empty
// object result; a handler failure yields a structured error result. One
// bad invocation never aborts the rest of the batch.
func (e *Executor) Execute(ctx context.Context, calls []Call) []CallResult {
	results := make([]CallResult, 0, len(calls))
	for _, call := range calls {
		results = append(results, e.executeOne(ctx, call))
	}
	return results
}

func (e *Executor) executeOne(ctx context.Context, call Call) CallResult {
	e.logger.Info("tool called", "tool", call.Name)

	tool, ok := e.registry.Get(call.Name)
	if !ok {
		e.logger.Warn("unknown tool requested", "tool", call.Name)
		return CallResult{Ref: call.Ref, Name: call.Name, Output: json.RawMessage(`{}`)}
	}

	output, err := tool.Execute(ctx, call.Args)
	if err != nil {
		e.logger.Error("tool execution failed", "tool", call.Name, "error", err)
		return CallResult{Ref: call.Ref, Name: call.Name, Output: marshalError(err)}
	}

	serialized, err := json.Marshal(output)
	if err != nil {
		e.logger.Error("tool result not serializable", "tool", call.Name, "error", err)
		return CallResult{Ref: call.Ref, Name: call.Name, Output: marshalError(err)}
	}
	return CallResult{Ref: call.Ref, Name: call.Name, Output: serialized}
}

func marshalError(err error) json.RawMessage {
	out, mErr := json.Marshal(map[string]string{"error": err.Error()})
	if mErr != nil {
		return json.RawMessage(`{"error": "tool execution failed"}`)
	}
	return out
}
