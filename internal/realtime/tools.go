package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/cory-johannsen/tabletop/internal/chat"
	"github.com/cory-johannsen/tabletop/internal/todo"
)

// ErrUnknownTool is returned for tool names outside the agent's tool set.
var ErrUnknownTool = errors.New("unknown tool")

// ErrInvalidArguments is returned when tool arguments fail to decode.
var ErrInvalidArguments = errors.New("invalid tool arguments")

// TodoService is the subset of todo.Service the tools drive.
type TodoService interface {
	Create(ctx context.Context, req todo.CreateRequest) (todo.Todo, error)
	List(ctx context.Context) ([]todo.Todo, error)
	Remove(ctx context.Context, id string) error
	UpdateText(ctx context.Context, id, text string) (todo.Todo, error)
	SetCompleted(ctx context.Context, id string, done bool) (todo.Todo, error)
	Toggle(ctx context.Context, id string) (todo.Todo, error)
}

// Log records realtime messages.
type Log interface {
	SendRealtime(ctx context.Context, in chat.RealtimeMessage) (chat.SendResult, error)
}

// ToolNames lists the tools the realtime agent may call.
var ToolNames = []string{"add_todo", "list_todos", "delete_todo", "update_todo", "check_todo", "toggle_todo"}

// Tools executes agent tool calls and mirrors them into the realtime log.
type Tools struct {
	todos  TodoService
	log    Log
	logger *zap.Logger
}

// NewTools creates a Tools executor.
//
// Precondition: todos, log, and logger must be non-nil.
func NewTools(todos TodoService, log Log, logger *zap.Logger) *Tools {
	return &Tools{todos: todos, log: log, logger: logger}
}

type addArgs struct {
	Text          string  `json:"text"`
	NeedsResearch *bool   `json:"needsResearch"`
	Context       *string `json:"context"`
}

type idArgs struct {
	ID string `json:"id"`
}

type updateArgs struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

type checkArgs struct {
	ID   string `json:"id"`
	Done bool   `json:"done"`
}

// Call runs the named tool with JSON arguments and returns its text result.
func (t *Tools) Call(ctx context.Context, name string, args json.RawMessage) (string, error) {
	if len(args) == 0 {
		args = json.RawMessage("{}")
	}
	var (
		result string
		err    error
	)
	switch name {
	case "add_todo":
		var a addArgs
		if err = decodeArgs(args, &a); err == nil {
			result, err = t.addTodo(ctx, a)
		}
	case "list_todos":
		result, err = t.listTodos(ctx)
	case "delete_todo":
		var a idArgs
		if err = decodeArgs(args, &a); err == nil {
			t.record(ctx, fmt.Sprintf("delete_todo(id=%s)", a.ID))
			if err = t.todos.Remove(ctx, a.ID); err == nil {
				result = "Deleted todo " + a.ID
			}
		}
	case "update_todo":
		var a updateArgs
		if err = decodeArgs(args, &a); err == nil {
			t.record(ctx, fmt.Sprintf("update_todo(id=%s, text=%s)", a.ID, quote(a.Text)))
			if _, err = t.todos.UpdateText(ctx, a.ID, a.Text); err == nil {
				result = "Updated todo " + a.ID
			}
		}
	case "check_todo":
		var a checkArgs
		if err = decodeArgs(args, &a); err == nil {
			t.record(ctx, fmt.Sprintf("check_todo(id=%s, done=%t)", a.ID, a.Done))
			if _, err = t.todos.SetCompleted(ctx, a.ID, a.Done); err == nil {
				result = "Updated completion for " + a.ID
			}
		}
	case "toggle_todo":
		var a idArgs
		if err = decodeArgs(args, &a); err == nil {
			t.record(ctx, fmt.Sprintf("toggle_todo(id=%s)", a.ID))
			if _, err = t.todos.Toggle(ctx, a.ID); err == nil {
				result = "Toggled completion for " + a.ID
			}
		}
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownTool, name)
	}
	if err != nil {
		t.logger.Warn("tool call failed", zap.String("tool", name), zap.Error(err))
		return "", err
	}

	t.record(ctx, result)
	t.logger.Info("tool call", zap.String("tool", name))
	return result, nil
}

// addTodo creates a todo from an agent call. Research runs only when the
// agent asks for it; the keyword classifier is not consulted.
func (t *Tools) addTodo(ctx context.Context, a addArgs) (string, error) {
	t.mirror(ctx, chat.RoleUser, a.Text)
	t.record(ctx, fmt.Sprintf("add_todo(text=%s)", quote(a.Text)))

	requested := a.NeedsResearch != nil && *a.NeedsResearch
	created, err := t.todos.Create(ctx, todo.CreateRequest{
		Text:          a.Text,
		NeedsResearch: &requested,
		Context:       a.Context,
	})
	if err != nil {
		return "", err
	}

	result := "Added todo: " + created.Text
	if requested {
		result += " (research started)"
	}
	return result, nil
}

func (t *Tools) listTodos(ctx context.Context) (string, error) {
	t.record(ctx, "list_todos()")
	todos, err := t.todos.List(ctx)
	if err != nil {
		return "", err
	}
	if len(todos) == 0 {
		return "No todos yet.", nil
	}
	lines := make([]string, len(todos))
	for i, td := range todos {
		state := "[todo]"
		if td.IsCompleted {
			state = "[done]"
		}
		lines[i] = fmt.Sprintf("- %s: %s %s", td.ID, td.Text, state)
	}
	return "Current todos with IDs:\n" + strings.Join(lines, "\n"), nil
}

func (t *Tools) record(ctx context.Context, content string) {
	t.mirror(ctx, chat.RoleTool, content)
}

// mirror writes to the realtime log without auto-reply. Failures are logged
// so a log outage never blocks the tool itself.
func (t *Tools) mirror(ctx context.Context, role chat.Role, content string) {
	off := false
	if _, err := t.log.SendRealtime(ctx, chat.RealtimeMessage{Content: content, Role: role, AutoReply: &off}); err != nil {
		t.logger.Warn("mirroring tool message", zap.String("role", string(role)), zap.Error(err))
	}
}

func decodeArgs(raw json.RawMessage, v any) error {
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidArguments, err)
	}
	return nil
}

// quote renders s as a JSON string literal. HTML characters are left as-is.
func quote(s string) string {
	var b strings.Builder
	enc := json.NewEncoder(&b)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return strconv.Quote(s)
	}
	return strings.TrimSuffix(b.String(), "\n")
}
