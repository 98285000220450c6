package tools

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func echoTool() Tool {
	return NewFuncTool(Definition{
		Name:        "echo",
		Description: "Echoes the message back",
		Parameters: []Parameter{
			{Name: "message", Type: "string", Description: "Text to echo", Required: true},
		},
	}, func(ctx context.Context, args map[string]any) (any, error) {
		return args["message"], nil
	})
}

func TestRegistry_Register(t *testing.T) {
	r := NewRegistry()

	if err := r.Register(echoTool()); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if r.Count() != 1 {
		t.Errorf("Count() = %d, want 1", r.Count())
	}
}

func TestRegistry_Register_Duplicate(t *testing.T) {
	r := NewRegistry()

	if err := r.Register(echoTool()); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	err := r.Register(echoTool())
	if err == nil {
		t.Fatal("expected error when registering duplicate tool")
	}
	var regErr *RegistryError
	if !errors.As(err, &regErr) {
		t.Errorf("error type = %T, want *RegistryError", err)
	}
}

func TestRegistry_Register_EmptyName(t *testing.T) {
	r := NewRegistry()

	err := r.Register(NewFuncTool(Definition{}, nil))
	if err == nil {
		t.Error("expected error for empty tool name")
	}
}

func TestRegistry_Invoke_Success(t *testing.T) {
	r := NewRegistry()
	r.Register(echoTool())

	reply := r.Invoke(context.Background(), "echo", map[string]any{"message": "hello"})
	if reply["result"] != "hello" {
		t.Errorf("Invoke() result = %v, want hello", reply["result"])
	}
	if _, hasErr := reply["error"]; hasErr {
		t.Errorf("Invoke() unexpected error: %v", reply["error"])
	}
}

func TestRegistry_Invoke_UnknownTool(t *testing.T) {
	r := NewRegistry()

	reply := r.Invoke(context.Background(), "does_not_exist", nil)
	msg, ok := reply["error"].(string)
	if !ok {
		t.Fatalf("Invoke() = %v, want error payload", reply)
	}
	if !strings.Contains(msg, "unknown tool: does_not_exist") {
		t.Errorf("error message = %q", msg)
	}
}

func TestRegistry_Invoke_MissingRequiredArg(t *testing.T) {
	r := NewRegistry()
	r.Register(echoTool())

	reply := r.Invoke(context.Background(), "echo", map[string]any{})
	msg, ok := reply["error"].(string)
	if !ok {
		t.Fatalf("Invoke() = %v, want error payload", reply)
	}
	if !strings.Contains(msg, "invalid arguments") {
		t.Errorf("error message = %q", msg)
	}
}

func TestRegistry_Invoke_WrongArgType(t *testing.T) {
	r := NewRegistry()
	r.Register(echoTool())

	reply := r.Invoke(context.Background(), "echo", map[string]any{"message": 42})
	if _, ok := reply["error"].(string); !ok {
		t.Fatalf("Invoke() = %v, want error payload for wrong type", reply)
	}
}

func TestRegistry_Invoke_HandlerError(t *testing.T) {
	r := NewRegistry()
	r.Register(NewFuncTool(Definition{
		Name:        "broken",
		Description: "Always fails",
	}, func(ctx context.Context, args map[string]any) (any, error) {
		return nil, errors.New("backend unavailable")
	}))

	reply := r.Invoke(context.Background(), "broken", nil)
	if reply["error"] != "backend unavailable" {
		t.Errorf("Invoke() error = %v, want handler message", reply["error"])
	}
}

func TestRegistry_Invoke_EnumValidation(t *testing.T) {
	r := NewRegistry()
	r.Register(NewFuncTool(Definition{
		Name:        "classify",
		Description: "Classifies sentiment",
		Parameters: []Parameter{
			{Name: "sentiment", Type: "string", Required: true,
				Enum: []string{"bullish", "bearish", "neutral"}},
		},
	}, func(ctx context.Context, args map[string]any) (any, error) {
		return args["sentiment"], nil
	}))

	reply := r.Invoke(context.Background(), "classify", map[string]any{"sentiment": "bullish"})
	if reply["result"] != "bullish" {
		t.Errorf("Invoke() result = %v", reply["result"])
	}

	reply = r.Invoke(context.Background(), "classify", map[string]any{"sentiment": "sideways"})
	if _, ok := reply["error"].(string); !ok {
		t.Errorf("Invoke() = %v, want enum violation error", reply)
	}
}

func TestRegistry_Declarations(t *testing.T) {
	r := NewRegistry()
	r.Register(echoTool())
	r.Register(NewFuncTool(Definition{Name: "ping", Description: "Pings"}, func(ctx context.Context, args map[string]any) (any, error) {
		return "pong", nil
	}))

	all := r.Declarations()
	if len(all) != 2 {
		t.Fatalf("Declarations() len = %d, want 2", len(all))
	}

	subset := r.Declarations("ping", "missing")
	if len(subset) != 1 || subset[0].Name != "ping" {
		t.Errorf("Declarations(subset) = %+v", subset)
	}
}

func TestDefinition_Schema(t *testing.T) {
	def := Definition{
		Name: "fetch_market_indices",
		Parameters: []Parameter{
			{Name: "names", Type: "array", Required: true, Items: map[string]any{"type": "string"}},
			{Name: "verbose", Type: "boolean"},
		},
	}

	schema := def.Schema()
	if schema["type"] != "object" {
		t.Errorf("schema type = %v, want object", schema["type"])
	}

	props := schema["properties"].(map[string]any)
	if _, ok := props["names"]; !ok {
		t.Error("schema missing names property")
	}

	required := schema["required"].([]string)
	if len(required) != 1 || required[0] != "names" {
		t.Errorf("required = %v, want [names]", required)
	}
}
