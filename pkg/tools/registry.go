package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/pulselabs/marketpulse/pkg/observability"
	"github.com/pulselabs/marketpulse/pkg/registry"
)

// RegistryError describes a registry failure with its component and action.
type RegistryError struct {
	Component string
	Action    string
	Message   string
	Err       error
}

func (e *RegistryError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s.%s: %s: %v", e.Component, e.Action, e.Message, e.Err)
	}
	return fmt.Sprintf("%s.%s: %s", e.Component, e.Action, e.Message)
}

func (e *RegistryError) Unwrap() error {
	return e.Err
}

func newRegistryError(action, message string, err error) *RegistryError {
	return &RegistryError{
		Component: "ToolRegistry",
		Action:    action,
		Message:   message,
		Err:       err,
	}
}

// entry pairs a tool with its compiled argument schema.
type entry struct {
	tool   Tool
	schema *jsonschema.Schema
}

// Registry maps tool names to handlers and validates arguments before
// dispatch. Immutable after startup; safe for concurrent use.
type Registry struct {
	base   *registry.Named[entry]
	logger *slog.Logger
}

// NewRegistry creates an empty tool registry.
func NewRegistry() *Registry {
	return &Registry{
		base:   registry.New[entry](),
		logger: slog.Default(),
	}
}

// Register adds a tool, compiling its parameter schema. Fails if the name is
// already registered or the schema does not compile.
func (r *Registry) Register(t Tool) error {
	def := t.Definition()
	if def.Name == "" {
		return newRegistryError("Register", "tool name cannot be empty", nil)
	}

	schema, err := compileSchema(def)
	if err != nil {
		return newRegistryError("Register",
			fmt.Sprintf("invalid parameter schema for tool %s", def.Name), err)
	}

	if err := r.base.Register(def.Name, entry{tool: t, schema: schema}); err != nil {
		return newRegistryError("Register",
			fmt.Sprintf("tool %s already registered", def.Name), err)
	}
	return nil
}

// compileSchema compiles a tool's parameter declaration for validation.
func compileSchema(def Definition) (*jsonschema.Schema, error) {
	raw, err := json.Marshal(def.Schema())
	if err != nil {
		return nil, err
	}

	compiler := jsonschema.NewCompiler()
	url := def.Name + ".schema.json"
	if err := compiler.AddResource(url, bytes.NewReader(raw)); err != nil {
		return nil, err
	}
	return compiler.Compile(url)
}

// Names returns all registered tool names, sorted.
func (r *Registry) Names() []string {
	return r.base.Names()
}

// Count returns the number of registered tools.
func (r *Registry) Count() int {
	return r.base.Len()
}

// Declarations returns the definitions for the named tools, in the order
// given, skipping unknown names. With no names it returns every tool in
// sorted name order.
func (r *Registry) Declarations(names ...string) []Definition {
	if len(names) == 0 {
		names = r.base.Names()
	}

	defs := make([]Definition, 0, len(names))
	for _, name := range names {
		e, ok := r.base.Lookup(name)
		if !ok {
			r.logger.Warn("unknown tool requested in declarations", "tool", name)
			continue
		}
		defs = append(defs, e.tool.Definition())
	}
	return defs
}

// Invoke validates args against the tool's schema, dispatches, and returns
// {"result": value} on success or {"error": message} on any failure.
// Unknown names return an error payload, never an error value: the reply is
// always something the model can read.
func (r *Registry) Invoke(ctx context.Context, name string, args map[string]any) map[string]any {
	start := time.Now()

	e, ok := r.base.Lookup(name)
	if !ok {
		r.logger.Warn("unknown tool called", "tool", name)
		return map[string]any{"error": fmt.Sprintf("unknown tool: %s", name)}
	}

	if args == nil {
		args = map[string]any{}
	}

	if err := e.schema.Validate(normalizeArgs(args)); err != nil {
		r.logger.Warn("tool argument validation failed", "tool", name, "error", err)
		recordInvocation(ctx, name, start, err)
		return map[string]any{"error": fmt.Sprintf("invalid arguments: %v", err)}
	}

	result, err := e.tool.Execute(ctx, args)
	recordInvocation(ctx, name, start, err)
	if err != nil {
		r.logger.Warn("tool execution failed", "tool", name, "error", err)
		return map[string]any{"error": err.Error()}
	}

	return map[string]any{"result": result}
}

func recordInvocation(ctx context.Context, tool string, start time.Time, err error) {
	if m := observability.GetGlobalMetrics(); m != nil {
		m.RecordToolInvocation(ctx, tool, time.Since(start), err)
	}
}

// normalizeArgs round-trips args through encoding/json so validation sees
// the same value shapes the wire carries (typed slices become []any, ints
// become float64).
func normalizeArgs(args map[string]any) any {
	raw, err := json.Marshal(args)
	if err != nil {
		return args
	}
	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return args
	}
	return generic
}
