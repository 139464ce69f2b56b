package assistant

import "github.com/foliobot/folio/internal/tools"

// Role identifies who produced a conversation message.
type Role string

// Conversation roles.
const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Message is one entry in the conversation sequence sent to the model.
// Assistant messages may carry requested tool invocations; tool messages
// carry exactly one paired result.
type Message struct {
	Role       Role              `json:"role"`
	Content    string            `json:"content"`
	ToolCalls  []tools.Call      `json:"-"`
	ToolResult *tools.CallResult `json:"-"`
}

// SanitizeHistory reduces caller-supplied history to plain role/content
// pairs with recognized roles. Tool plumbing and any unknown fields from
// the front end are dropped; the orchestrator rebuilds tool exchanges
// itself each turn.
func SanitizeHistory(history []Message) []Message {
	clean := make([]Message, 0, len(history))
	for _, m := range history {
		switch m.Role {
		case RoleSystem, RoleUser, RoleAssistant, RoleTool:
		default:
			continue
		}
		clean = append(clean, Message{Role: m.Role, Content: m.Content})
	}
	return clean
}
