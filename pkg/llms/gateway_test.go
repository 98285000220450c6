package llms

import (
	"errors"
	"strings"
	"testing"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

func TestStripCodeFences(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", `{"a":1}`, `{"a":1}`},
		{"json fence", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"bare fence", "```\n{\"a\":1}\n```", `{"a":1}`},
		{"surrounding whitespace", "  \n```json\n{\"a\":1}\n```\n ", `{"a":1}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StripCodeFences(tt.in); got != tt.want {
				t.Errorf("StripCodeFences(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestParseStructured_Plain(t *testing.T) {
	var out struct {
		Phase string `json:"market_phase"`
	}
	if err := ParseStructured(`{"market_phase":"pre"}`, nil, &out); err != nil {
		t.Fatalf("ParseStructured() error = %v", err)
	}
	if out.Phase != "pre" {
		t.Errorf("parsed phase = %q", out.Phase)
	}
}

func TestParseStructured_Fenced(t *testing.T) {
	var out map[string]any
	raw := "```json\n{\"market_phase\":\"mid\"}\n```"
	if err := ParseStructured(raw, nil, &out); err != nil {
		t.Fatalf("ParseStructured() error = %v", err)
	}
	if out["market_phase"] != "mid" {
		t.Errorf("parsed = %v", out)
	}
}

func TestParseStructured_InvalidJSON(t *testing.T) {
	var out map[string]any
	err := ParseStructured("not json at all", nil, &out)

	var pe *ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("error type = %T, want *ParseError", err)
	}
	if pe.Preview != "not json at all" {
		t.Errorf("preview = %q", pe.Preview)
	}
}

func TestParseStructured_PreviewCapped(t *testing.T) {
	raw := strings.Repeat("x", 2000)
	var out map[string]any
	err := ParseStructured(raw, nil, &out)

	var pe *ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("error type = %T, want *ParseError", err)
	}
	if len(pe.Preview) != previewLimit {
		t.Errorf("preview length = %d, want %d", len(pe.Preview), previewLimit)
	}
}

func TestParseStructured_SchemaValidation(t *testing.T) {
	schema := jsonschema.MustCompileString("out.schema.json", `{
		"type": "object",
		"properties": {"count": {"type": "integer"}},
		"required": ["count"]
	}`)

	var out map[string]any
	if err := ParseStructured(`{"count": 3}`, schema, &out); err != nil {
		t.Fatalf("valid payload rejected: %v", err)
	}

	err := ParseStructured(`{"count": "three"}`, schema, &out)
	var pe *ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("error type = %T, want *ParseError", err)
	}
	if !strings.Contains(pe.Message, "schema validation") {
		t.Errorf("message = %q", pe.Message)
	}
}
