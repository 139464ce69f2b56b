package assistant

import (
	"context"
	"errors"

	"github.com/foliobot/folio/internal/tools"
)

// ErrToolUseFailed marks a completion rejection caused by the model
// emitting an unsupported tool-calling form. Some providers reject the
// whole request in this case; the orchestrator retries once with tools
// disabled.
var ErrToolUseFailed = errors.New("model tool use failed")

// Request is one completion request.
type Request struct {
	Messages []Message
	// UseTools exposes the tool schemas to the model. Disabled on the
	// scoped retry after ErrToolUseFailed.
	UseTools bool
}

// Completion is the model's reply. A non-empty ToolCalls means the model
// stopped to request tools rather than produce a final answer.
type Completion struct {
	Content   string
	ToolCalls []tools.Call
}

// Model is the language model boundary. Implementations must distinguish
// "final answer" from "wants to call tools" via Completion.ToolCalls.
type Model interface {
	Complete(ctx context.Context, req Request) (*Completion, error)
}
