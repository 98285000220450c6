// Package llms provides the model gateway: single-shot generation, the
// multi-turn tool-calling loop, and structured-output parsing on top of the
// google.golang.org/genai SDK.
package llms

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/pulselabs/marketpulse/pkg/tools"
)

// previewLimit caps how much raw model output a ParseError carries.
const previewLimit = 500

// DefaultMaxToolTurns bounds the tool-calling loop when the caller does not
// set a limit.
const DefaultMaxToolTurns = 10

var (
	// ErrNoCandidates is returned when the model response carries no
	// candidates at all.
	ErrNoCandidates = errors.New("no candidates in model response")

	// ErrToolLoopExceeded is returned when the model keeps requesting tools
	// past the configured turn limit.
	ErrToolLoopExceeded = errors.New("tool loop exceeded maximum turns")
)

// ParseError reports model output that could not be parsed or validated as
// the expected JSON shape. Preview holds at most the first 500 characters of
// the raw output.
type ParseError struct {
	Message string
	Preview string
}

func (e *ParseError) Error() string {
	return e.Message
}

func newParseError(msg, raw string) *ParseError {
	preview := raw
	if len(preview) > previewLimit {
		preview = preview[:previewLimit]
	}
	return &ParseError{Message: msg, Preview: preview}
}

// GenerateConfig carries per-call generation parameters.
type GenerateConfig struct {
	// Model overrides the gateway's default model for this call.
	Model string

	// SystemInstruction is the agent's system prompt.
	SystemInstruction string

	// Temperature is omitted from the request when nil.
	Temperature *float64

	// MaxOutputTokens limits the response length when positive.
	MaxOutputTokens int

	// StructuredOutput requests application/json responses. Ignored when
	// Tools are present: the API rejects forced JSON during tool calling.
	StructuredOutput bool

	// Tools declares the functions the model may call.
	Tools []tools.Definition

	// MaxToolTurns bounds the tool-calling loop. Zero means
	// DefaultMaxToolTurns.
	MaxToolTurns int
}

// Invoker dispatches a tool call and returns the reply payload to feed back
// to the model. Replies are always readable payloads, never errors.
type Invoker interface {
	Invoke(ctx context.Context, name string, args map[string]any) map[string]any
}

// ParseStructured parses raw model output as JSON into out, validating
// against schema when one is given. Markdown code fences around the payload
// are stripped first. Failures come back as *ParseError.
func ParseStructured(raw string, schema *jsonschema.Schema, out any) error {
	text := StripCodeFences(raw)

	var generic any
	if err := json.Unmarshal([]byte(text), &generic); err != nil {
		return newParseError(fmt.Sprintf("invalid JSON in model response: %v", err), raw)
	}

	if schema != nil {
		if err := schema.Validate(generic); err != nil {
			return newParseError(fmt.Sprintf("model response failed schema validation: %v", err), raw)
		}
	}

	dec := json.NewDecoder(bytes.NewReader([]byte(text)))
	if err := dec.Decode(out); err != nil {
		return newParseError(fmt.Sprintf("model response does not match expected shape: %v", err), raw)
	}
	return nil
}

// StripCodeFences removes a surrounding markdown code fence, with or without
// a json language tag, from model output.
func StripCodeFences(raw string) string {
	text := strings.TrimSpace(raw)
	if strings.HasPrefix(text, "```json") {
		text = text[len("```json"):]
	} else if strings.HasPrefix(text, "```") {
		text = text[len("```"):]
	}
	text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	return strings.TrimSpace(text)
}
