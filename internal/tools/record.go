package tools

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/foliobot/folio/internal/leads"
	"github.com/foliobot/folio/internal/notify"
)

// Tool names the model may call.
const (
	RecordUserDetailsName     = "record_user_details"
	RecordUnknownQuestionName = "record_unknown_question"
)

// Descriptions shown to the model. The wording steers when it calls each
// tool, so changes here change behavior.
const (
	recordUserDetailsDesc = "Use this tool to record that a user is interested in " +
		"being in touch and provided an email address"
	recordUnknownQuestionDesc = "Always use this tool to record any question that " +
		"couldn't be answered as you didn't know the answer"
)

// Ack is the acknowledgement every recording tool returns.
type Ack struct {
	Recorded string `json:"recorded"`
}

// UserDetailsInput captures a visitor who wants to get in touch.
type UserDetailsInput struct {
	Email string `json:"email" jsonschema_description:"The email address of this user"`
	Name  string `json:"name,omitempty" jsonschema_description:"The user's name, if they provided it"`
	Notes string `json:"notes,omitempty" jsonschema_description:"Any additional information about the conversation that's worth recording to give context"`
}

// UnknownQuestionInput captures a question the assistant could not answer.
type UnknownQuestionInput struct {
	Question string `json:"question" jsonschema_description:"The question that couldn't be answered"`
}

// NewRecordUserDetails builds the lead-recording tool. The notification is
// best effort and never affects the recorded result.
func NewRecordUserDetails(store *leads.Store, notifier notify.Notifier, logger *slog.Logger) Tool {
	return NewTool(RecordUserDetailsName, recordUserDetailsDesc,
		func(in UserDetailsInput) error {
			if in.Email == "" {
				return errors.New("email is required")
			}
			return nil
		},
		func(ctx context.Context, in UserDetailsInput) (any, error) {
			if _, err := store.InsertLead(ctx, in.Email, in.Name, in.Notes); err != nil {
				return nil, err
			}
			name := in.Name
			if name == "" {
				name = leads.DefaultName
			}
			notifier.Push(ctx, fmt.Sprintf(
				"Recording interest from %s with email %s and notes %s", name, in.Email, in.Notes))
			return Ack{Recorded: "ok"}, nil
		})
}

// NewRecordUnknownQuestion builds the knowledge-gap-recording tool.
func NewRecordUnknownQuestion(store *leads.Store, notifier notify.Notifier, logger *slog.Logger) Tool {
	return NewTool(RecordUnknownQuestionName, recordUnknownQuestionDesc,
		func(in UnknownQuestionInput) error {
			if in.Question == "" {
				return errors.New("question is required")
			}
			return nil
		},
		func(ctx context.Context, in UnknownQuestionInput) (any, error) {
			if _, err := store.InsertGap(ctx, in.Question); err != nil {
				return nil, err
			}
			notifier.Push(ctx, fmt.Sprintf("Recording %s asked that I couldn't answer", in.Question))
			return Ack{Recorded: "ok"}, nil
		})
}

// NewDefaultRegistry builds the registry holding the fixed tool set.
func NewDefaultRegistry(store *leads.Store, notifier notify.Notifier, logger *slog.Logger) *Registry {
	return NewRegistry(
		NewRecordUserDetails(store, notifier, logger),
		NewRecordUnknownQuestion(store, notifier, logger),
	)
}
