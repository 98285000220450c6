// Package tools implements the tool registry: named deterministic handlers
// with JSON-Schema parameter declarations, validated dispatch, and the
// {result}/{error} reply contract the model gateway feeds back to the model.
package tools

import (
	"context"
	"fmt"
)

// Parameter describes one tool argument.
type Parameter struct {
	Name        string
	Type        string
	Description string
	Required    bool
	Enum        []string
	Items       map[string]any
}

// Definition declares a tool to the model: name, description, and an
// object-typed parameter schema.
type Definition struct {
	Name        string
	Description string
	Parameters  []Parameter
}

// Schema renders the parameter declarations as a JSON-Schema object:
// {type: "object", properties: {...}, required: [...]}.
func (d Definition) Schema() map[string]any {
	properties := make(map[string]any, len(d.Parameters))
	var required []string

	for _, p := range d.Parameters {
		prop := map[string]any{
			"type": p.Type,
		}
		if p.Description != "" {
			prop["description"] = p.Description
		}
		if len(p.Enum) > 0 {
			enum := make([]any, len(p.Enum))
			for i, e := range p.Enum {
				enum[i] = e
			}
			prop["enum"] = enum
		}
		if len(p.Items) > 0 {
			prop["items"] = p.Items
		}
		properties[p.Name] = prop

		if p.Required {
			required = append(required, p.Name)
		}
	}

	schema := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

// Handler is a deterministic tool implementation. The returned value must
// serialize to JSON.
type Handler func(ctx context.Context, args map[string]any) (any, error)

// Tool couples a declaration with its handler.
type Tool interface {
	Definition() Definition
	Execute(ctx context.Context, args map[string]any) (any, error)
}

// FuncTool adapts a Handler into a Tool.
type FuncTool struct {
	def Definition
	fn  Handler
}

// NewFuncTool creates a Tool from a definition and handler.
func NewFuncTool(def Definition, fn Handler) *FuncTool {
	return &FuncTool{def: def, fn: fn}
}

func (t *FuncTool) Definition() Definition {
	return t.def
}

func (t *FuncTool) Execute(ctx context.Context, args map[string]any) (any, error) {
	if t.fn == nil {
		return nil, fmt.Errorf("tool %s has no handler", t.def.Name)
	}
	return t.fn(ctx, args)
}

var _ Tool = (*FuncTool)(nil)
