package llms

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"google.golang.org/genai"

	"github.com/pulselabs/marketpulse/pkg/logger"
	"github.com/pulselabs/marketpulse/pkg/observability"
	"github.com/pulselabs/marketpulse/pkg/tools"
)

// sendFunc issues one GenerateContent call. Swappable in tests.
type sendFunc func(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)

// GeminiGateway talks to the Gemini API through the official genai SDK.
// Safe for concurrent use.
type GeminiGateway struct {
	defaultModel string
	logger       *slog.Logger
	send         sendFunc
}

// GeminiOptions configures a GeminiGateway.
type GeminiOptions struct {
	// APIKey is the Google AI API key. Required.
	APIKey string

	// DefaultModel is used when a call does not name a model.
	DefaultModel string
}

// NewGeminiGateway creates a gateway backed by a real genai client.
func NewGeminiGateway(ctx context.Context, opts GeminiOptions) (*GeminiGateway, error) {
	if opts.APIKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}
	if opts.DefaultModel == "" {
		opts.DefaultModel = "gemini-2.0-flash"
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: opts.APIKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiGateway{
		defaultModel: opts.DefaultModel,
		logger:       logger.New("gemini"),
		send: func(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
			return client.Models.GenerateContent(ctx, model, contents, config)
		},
	}, nil
}

// Generate runs a single-turn generation and returns the response text.
func (g *GeminiGateway) Generate(ctx context.Context, prompt string, cfg GenerateConfig) (string, error) {
	model := g.model(cfg)
	contents := []*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)}

	resp, err := g.sendRecorded(ctx, model, contents, g.buildConfig(cfg))
	if err != nil {
		return "", fmt.Errorf("gemini generation failed: %w", err)
	}
	if len(resp.Candidates) == 0 {
		return "", ErrNoCandidates
	}
	return responseText(resp), nil
}

// ChatWithTools runs the tool-calling loop: the model may request function
// calls, which are dispatched through invoker and fed back as function
// responses, in the order the model requested them, until the model replies
// with plain text or the turn limit is hit.
func (g *GeminiGateway) ChatWithTools(ctx context.Context, prompt string, invoker Invoker, cfg GenerateConfig) (string, error) {
	model := g.model(cfg)
	maxTurns := cfg.MaxToolTurns
	if maxTurns <= 0 {
		maxTurns = DefaultMaxToolTurns
	}

	genCfg := g.buildConfig(cfg)
	contents := []*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)}

	resp, err := g.sendRecorded(ctx, model, contents, genCfg)
	if err != nil {
		return "", fmt.Errorf("gemini generation failed: %w", err)
	}

	for turn := 0; ; turn++ {
		if len(resp.Candidates) == 0 {
			return "", ErrNoCandidates
		}

		candidate := resp.Candidates[0]
		calls := functionCalls(candidate)
		if len(calls) == 0 {
			return responseText(resp), nil
		}

		// A text answer on the last turn is still an answer; only a model
		// that keeps asking for tools past the budget is an error.
		if turn == maxTurns {
			return "", ErrToolLoopExceeded
		}

		// Keep the model's turn in the transcript, then reply with one
		// function response per call, in the model's order.
		contents = append(contents, candidate.Content)

		replies := make([]*genai.Part, 0, len(calls))
		for _, fc := range calls {
			g.logger.Info("executing tool", "tool", fc.Name, "turn", turn)
			reply := invoker.Invoke(ctx, fc.Name, fc.Args)
			replies = append(replies, &genai.Part{
				FunctionResponse: &genai.FunctionResponse{
					ID:       fc.ID,
					Name:     fc.Name,
					Response: reply,
				},
			})
		}
		contents = append(contents, &genai.Content{Role: genai.RoleUser, Parts: replies})

		resp, err = g.sendRecorded(ctx, model, contents, genCfg)
		if err != nil {
			return "", fmt.Errorf("gemini generation failed: %w", err)
		}
	}
}

func (g *GeminiGateway) model(cfg GenerateConfig) string {
	if cfg.Model != "" {
		return cfg.Model
	}
	return g.defaultModel
}

// sendRecorded wraps one API call with duration and token accounting.
func (g *GeminiGateway) sendRecorded(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	start := time.Now()
	resp, err := g.send(ctx, model, contents, config)

	var inTokens, outTokens int
	if resp != nil && resp.UsageMetadata != nil {
		inTokens = int(resp.UsageMetadata.PromptTokenCount)
		outTokens = int(resp.UsageMetadata.CandidatesTokenCount)
	}
	if m := observability.GetGlobalMetrics(); m != nil {
		m.RecordLLMCall(ctx, model, time.Since(start), inTokens, outTokens, err)
	}
	return resp, err
}

// buildConfig translates a GenerateConfig into the SDK's request config.
func (g *GeminiGateway) buildConfig(cfg GenerateConfig) *genai.GenerateContentConfig {
	config := &genai.GenerateContentConfig{}

	if cfg.SystemInstruction != "" {
		config.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: cfg.SystemInstruction}},
		}
	}
	if cfg.Temperature != nil {
		config.Temperature = genai.Ptr(float32(*cfg.Temperature))
	}
	if cfg.MaxOutputTokens > 0 {
		config.MaxOutputTokens = int32(cfg.MaxOutputTokens)
	}

	// Forced JSON responses and function calling are mutually exclusive.
	if cfg.StructuredOutput && len(cfg.Tools) == 0 {
		config.ResponseMIMEType = "application/json"
	}

	if len(cfg.Tools) > 0 {
		config.Tools = buildTools(cfg.Tools)
	}

	return config
}

// buildTools converts tool definitions to Gemini function declarations.
func buildTools(defs []tools.Definition) []*genai.Tool {
	var genaiTools []*genai.Tool
	for _, d := range defs {
		genaiTools = append(genaiTools, &genai.Tool{
			FunctionDeclarations: []*genai.FunctionDeclaration{
				{
					Name:        d.Name,
					Description: d.Description,
					Parameters:  toGenaiSchema(d.Schema()),
				},
			},
		})
	}
	return genaiTools
}

// toGenaiSchema converts a JSON-Schema map to the SDK's schema type.
func toGenaiSchema(schema map[string]any) *genai.Schema {
	if schema == nil {
		return nil
	}

	s := &genai.Schema{}

	if t, ok := schema["type"].(string); ok {
		s.Type = genai.Type(t)
	}
	if desc, ok := schema["description"].(string); ok {
		s.Description = desc
	}
	if props, ok := schema["properties"].(map[string]any); ok {
		s.Properties = make(map[string]*genai.Schema)
		for name, prop := range props {
			if propMap, ok := prop.(map[string]any); ok {
				s.Properties[name] = toGenaiSchema(propMap)
			}
		}
	}
	switch required := schema["required"].(type) {
	case []string:
		s.Required = append(s.Required, required...)
	case []any:
		for _, r := range required {
			if rs, ok := r.(string); ok {
				s.Required = append(s.Required, rs)
			}
		}
	}
	if items, ok := schema["items"].(map[string]any); ok {
		s.Items = toGenaiSchema(items)
	}
	if enum, ok := schema["enum"].([]any); ok {
		for _, e := range enum {
			if es, ok := e.(string); ok {
				s.Enum = append(s.Enum, es)
			}
		}
	}

	return s
}

// functionCalls extracts the function-call parts of a candidate, in order.
func functionCalls(candidate *genai.Candidate) []*genai.FunctionCall {
	if candidate.Content == nil {
		return nil
	}
	var calls []*genai.FunctionCall
	for _, part := range candidate.Content.Parts {
		if part.FunctionCall != nil {
			calls = append(calls, part.FunctionCall)
		}
	}
	return calls
}

// responseText concatenates the text parts of the first candidate, skipping
// thought parts.
func responseText(resp *genai.GenerateContentResponse) string {
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var text string
	for _, part := range resp.Candidates[0].Content.Parts {
		if part.Text != "" && !part.Thought {
			text += part.Text
		}
	}
	return text
}
