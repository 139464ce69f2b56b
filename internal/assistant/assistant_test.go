package assistant

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/foliobot/folio/internal/log"
	"github.com/foliobot/folio/internal/retriever"
	"github.com/foliobot/folio/internal/tools"
)

// scriptedModel replays a fixed sequence of completions.
type scriptedModel struct {
	script   []func(Request) (*Completion, error)
	calls    int
	requests []Request
}

func (m *scriptedModel) Complete(_ context.Context, req Request) (*Completion, error) {
	m.requests = append(m.requests, req)
	if m.calls >= len(m.script) {
		return nil, fmt.Errorf("unexpected model call %d", m.calls+1)
	}
	step := m.script[m.calls]
	m.calls++
	return step(req)
}

// stubRetriever returns a fixed context block.
type stubRetriever struct {
	formatted string
}

func (r *stubRetriever) Retrieve(_ context.Context, query string) retriever.Context {
	return retriever.Context{Query: query, Formatted: r.formatted}
}

// mapCache is an in-memory ResponseCache.
type mapCache struct {
	entries map[string]string
	stores  int
}

func newMapCache() *mapCache { return &mapCache{entries: make(map[string]string)} }

func (c *mapCache) Lookup(_ context.Context, query, contextBlock string) (string, bool) {
	v, ok := c.entries[query+"|"+contextBlock]
	return v, ok
}

func (c *mapCache) Store(_ context.Context, query, contextBlock, answer string, _ map[string]string) {
	c.entries[query+"|"+contextBlock] = answer
	c.stores++
}

// countingExecutor wraps a real executor and counts batches.
type countingExecutor struct {
	inner   *tools.Executor
	batches [][]tools.Call
}

func (e *countingExecutor) Execute(ctx context.Context, calls []tools.Call) []tools.CallResult {
	e.batches = append(e.batches, calls)
	return e.inner.Execute(ctx, calls)
}

func newTestExecutor(t *testing.T) (*countingExecutor, *int) {
	t.Helper()
	recorded := 0
	gapTool := tools.NewTool("record_unknown_question", "record a question", nil,
		func(context.Context, struct {
			Question string `json:"question"`
		}) (any, error) {
			recorded++
			return map[string]string{"recorded": "ok"}, nil
		})
	exec := tools.NewExecutor(tools.NewRegistry(gapTool), log.NewNop())
	return &countingExecutor{inner: exec}, &recorded
}

func newAssistant(t *testing.T, model Model, ret ContextRetriever, c ResponseCache, exec ToolExecutor) *Assistant {
	t.Helper()
	a, err := New(Config{
		Model:         model,
		Retriever:     ret,
		Cache:         c,
		Executor:      exec,
		Logger:        log.NewNop(),
		Name:          "Alex",
		Email:         "alex@example.com",
		MaxToolRounds: 8,
	})
	if err != nil {
		t.Fatal(err)
	}
	return a
}

func finalAnswer(text string) func(Request) (*Completion, error) {
	return func(Request) (*Completion, error) {
		return &Completion{Content: text}, nil
	}
}

func TestReply_DirectAnswer(t *testing.T) {
	model := &scriptedModel{script: []func(Request) (*Completion, error){
		finalAnswer("I have ten years of experience."),
	}}
	exec, _ := newTestExecutor(t)
	a := newAssistant(t, model, &stubRetriever{formatted: "=== CONTEXT ==="}, newMapCache(), exec)

	got, err := a.Reply(context.Background(), "What is your experience?", nil)
	if err != nil {
		t.Fatalf("Reply() error = %v", err)
	}
	if got != "I have ten years of experience." {
		t.Errorf("Reply() = %q", got)
	}

	// The grounding prompt leads the sequence and embeds the context.
	first := model.requests[0].Messages[0]
	if first.Role != RoleSystem {
		t.Errorf("first message role = %s, want system", first.Role)
	}
	for _, want := range []string{"Alex", "=== CONTEXT ===", "record_unknown_question", "alex@example.com"} {
		if !strings.Contains(first.Content, want) {
			t.Errorf("system prompt missing %q", want)
		}
	}
	last := model.requests[0].Messages[len(model.requests[0].Messages)-1]
	if last.Role != RoleUser || last.Content != "What is your experience?" {
		t.Errorf("last message = %+v", last)
	}
}

func TestReply_ToolLoopTerminates(t *testing.T) {
	model := &scriptedModel{script: []func(Request) (*Completion, error){
		func(Request) (*Completion, error) {
			return &Completion{ToolCalls: []tools.Call{{
				Ref:  "call-1",
				Name: "record_unknown_question",
				Args: json.RawMessage(`{"question": "favorite color?"}`),
			}}}, nil
		},
		finalAnswer("I don't know, but I recorded your question."),
	}}
	exec, recorded := newTestExecutor(t)
	a := newAssistant(t, model, &stubRetriever{formatted: "ctx"}, newMapCache(), exec)

	got, err := a.Reply(context.Background(), "What is your favorite color?", nil)
	if err != nil {
		t.Fatalf("Reply() error = %v", err)
	}
	if got != "I don't know, but I recorded your question." {
		t.Errorf("Reply() = %q", got)
	}

	if len(exec.batches) != 1 || len(exec.batches[0]) != 1 {
		t.Fatalf("executor batches = %v, want exactly one call", exec.batches)
	}
	if *recorded != 1 {
		t.Errorf("tool ran %d times, want 1", *recorded)
	}

	// Second model call must carry the assistant tool-call message and
	// exactly one paired tool result.
	second := model.requests[1].Messages
	assistantMsg := second[len(second)-2]
	toolMsg := second[len(second)-1]
	if assistantMsg.Role != RoleAssistant || len(assistantMsg.ToolCalls) != 1 {
		t.Errorf("penultimate message = %+v, want assistant tool-call message", assistantMsg)
	}
	if toolMsg.Role != RoleTool || toolMsg.ToolResult == nil {
		t.Fatalf("last message = %+v, want tool result", toolMsg)
	}
	if toolMsg.ToolResult.Ref != "call-1" {
		t.Errorf("tool result ref = %q, want call-1", toolMsg.ToolResult.Ref)
	}
}

func TestReply_SecondIdenticalRequestHitsCache(t *testing.T) {
	model := &scriptedModel{script: []func(Request) (*Completion, error){
		finalAnswer("cached me"),
	}}
	exec, _ := newTestExecutor(t)
	c := newMapCache()
	a := newAssistant(t, model, &stubRetriever{formatted: "ctx"}, c, exec)
	ctx := context.Background()

	first, err := a.Reply(ctx, "hello", nil)
	if err != nil {
		t.Fatal(err)
	}
	second, err := a.Reply(ctx, "hello", nil)
	if err != nil {
		t.Fatal(err)
	}
	if first != second {
		t.Errorf("answers differ: %q vs %q", first, second)
	}
	if model.calls != 1 {
		t.Errorf("model calls = %d, want 1 (second request must be a cache hit)", model.calls)
	}
	if c.stores != 1 {
		t.Errorf("cache stores = %d, want 1", c.stores)
	}
}

func TestReply_UngroundedStillAnswers(t *testing.T) {
	model := &scriptedModel{script: []func(Request) (*Completion, error){
		finalAnswer("Happy to chat even without my notes."),
	}}
	exec, _ := newTestExecutor(t)
	a := newAssistant(t, model, &stubRetriever{formatted: retriever.NoContextSentinel}, newMapCache(), exec)

	got, err := a.Reply(context.Background(), "Tell me anything", nil)
	if err != nil {
		t.Fatal(err)
	}
	if got == "" {
		t.Error("Reply() returned empty answer for ungrounded query")
	}
	if !strings.Contains(model.requests[0].Messages[0].Content, retriever.NoContextSentinel) {
		t.Error("sentinel missing from grounding prompt")
	}
}

func TestReply_ToolUseFailedRetriesWithoutTools(t *testing.T) {
	model := &scriptedModel{script: []func(Request) (*Completion, error){
		func(req Request) (*Completion, error) {
			if !req.UseTools {
				t.Error("first call should offer tools")
			}
			return nil, fmt.Errorf("%w: provider rejected raw function text", ErrToolUseFailed)
		},
		func(req Request) (*Completion, error) {
			if req.UseTools {
				t.Error("retry must disable tools")
			}
			return &Completion{Content: "plain answer"}, nil
		},
	}}
	exec, _ := newTestExecutor(t)
	a := newAssistant(t, model, &stubRetriever{formatted: "ctx"}, newMapCache(), exec)

	got, err := a.Reply(context.Background(), "hello", nil)
	if err != nil {
		t.Fatalf("Reply() error = %v", err)
	}
	if got != "plain answer" {
		t.Errorf("Reply() = %q", got)
	}
	if model.calls != 2 {
		t.Errorf("model calls = %d, want 2 (one scoped retry)", model.calls)
	}
}

func TestReply_ToolRoundCapExceeded(t *testing.T) {
	insatiable := func(Request) (*Completion, error) {
		return &Completion{ToolCalls: []tools.Call{{
			Ref:  "r",
			Name: "record_unknown_question",
			Args: json.RawMessage(`{"question": "again"}`),
		}}}, nil
	}
	script := make([]func(Request) (*Completion, error), 0, 16)
	for range 16 {
		script = append(script, insatiable)
	}
	model := &scriptedModel{script: script}
	exec, _ := newTestExecutor(t)
	a := newAssistant(t, model, &stubRetriever{formatted: "ctx"}, newMapCache(), exec)

	_, err := a.Reply(context.Background(), "loop forever", nil)
	if !errors.Is(err, ErrToolRoundsExceeded) {
		t.Fatalf("Reply() error = %v, want ErrToolRoundsExceeded", err)
	}
}

func TestReply_ModelErrorPropagates(t *testing.T) {
	model := &scriptedModel{script: []func(Request) (*Completion, error){
		func(Request) (*Completion, error) {
			return nil, errors.New("upstream unavailable")
		},
	}}
	exec, _ := newTestExecutor(t)
	c := newMapCache()
	a := newAssistant(t, model, &stubRetriever{formatted: "ctx"}, c, exec)

	_, err := a.Reply(context.Background(), "hello", nil)
	if err == nil {
		t.Fatal("Reply() succeeded, want upstream error")
	}
	if c.stores != 0 {
		t.Error("failed generation must not populate the cache")
	}
}

func TestReply_SanitizesFinalAnswer(t *testing.T) {
	model := &scriptedModel{script: []func(Request) (*Completion, error){
		finalAnswer("Hello <function=foo>{\"a\":1}</s>\n\n\n\nWorld"),
	}}
	exec, _ := newTestExecutor(t)
	c := newMapCache()
	a := newAssistant(t, model, &stubRetriever{formatted: "ctx"}, c, exec)

	got, err := a.Reply(context.Background(), "hi", nil)
	if err != nil {
		t.Fatal(err)
	}
	if got != "Hello World" {
		t.Errorf("Reply() = %q, want %q", got, "Hello World")
	}
	// The sanitized form is what gets cached.
	if cached, ok := c.Lookup(context.Background(), "hi", "ctx"); !ok || cached != "Hello World" {
		t.Errorf("cached = %q, %v", cached, ok)
	}
}

