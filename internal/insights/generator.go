package insights

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/2beens/stravainsights/internal/telemetry/tracing"

	openai "github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel/attribute"
)

const (
	DefaultOpenAIBaseURL = "https://api.openai.com/v1"
	// gemini exposes an openai compatible surface
	DefaultGeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta/openai"

	replyInstruction = "\n\nReturn only valid JSON with keys: summary, coach_tips, tags."
	temperature      = 0.6
)

var (
	ErrGeneratorNotConfigured = errors.New("text generator api key not configured")
	ErrGeneratorBadStatus     = errors.New("text generator returned an error status")
	ErrGeneratorBadReply      = errors.New("text generator reply is not valid json")
)

type GeneratorConfig struct {
	Provider string
	Model    string
	BaseURL  string
	APIKey   string
}

// ChatGenerator talks to an openai compatible chat completions endpoint.
// The http client carries the timeout.
type ChatGenerator struct {
	provider string
	model    string
	apiKey   string
	client   *openai.Client
}

func NewChatGenerator(cfg GeneratorConfig, httpClient *http.Client) *ChatGenerator {
	provider := strings.ToLower(strings.TrimSpace(cfg.Provider))
	if provider == "" {
		provider = "openai"
	}

	model := cfg.Model
	baseURL := strings.TrimSuffix(cfg.BaseURL, "/")
	if provider == "google" {
		// "gemini/<model>" is the routing form some proxies expect, the api itself wants the bare name
		model = strings.TrimPrefix(model, "gemini/")
		if baseURL == "" || baseURL == DefaultOpenAIBaseURL {
			baseURL = DefaultGeminiBaseURL
		}
	}
	if baseURL == "" {
		baseURL = DefaultOpenAIBaseURL
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	clientConfig.BaseURL = baseURL
	clientConfig.HTTPClient = httpClient

	return &ChatGenerator{
		provider: provider,
		model:    model,
		apiKey:   cfg.APIKey,
		client:   openai.NewClientWithConfig(clientConfig),
	}
}

func (g *ChatGenerator) Provider() string {
	return g.provider
}

func (g *ChatGenerator) Model() string {
	return g.model
}

// classifyErr maps client errors onto the generator error kinds
func classifyErr(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("%w: %d: %s", ErrGeneratorBadStatus, apiErr.HTTPStatusCode, apiErr.Message)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return fmt.Errorf("%w: %d", ErrGeneratorBadStatus, reqErr.HTTPStatusCode)
	}
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
		return fmt.Errorf("%w: %w", ErrGeneratorBadReply, err)
	}
	return fmt.Errorf("chat completions: %w", err)
}

// Generate returns the decoded json object of the reply. A reply without
// a model gets the one reported by the endpoint.
func (g *ChatGenerator) Generate(ctx context.Context, systemPrompt, userPrompt string) (_ map[string]any, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "insights.generator.generate")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(
		attribute.String("ai.provider", g.provider),
		attribute.String("ai.model", g.model),
	)

	if g.apiKey == "" {
		return nil, ErrGeneratorNotConfigured
	}

	chat, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt + replyInstruction},
		},
		Temperature: temperature,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return nil, classifyErr(err)
	}
	if len(chat.Choices) == 0 {
		return nil, fmt.Errorf("%w: no choices", ErrGeneratorBadReply)
	}

	var content any
	if err := json.Unmarshal([]byte(chat.Choices[0].Message.Content), &content); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrGeneratorBadReply, err)
	}
	reply, ok := content.(map[string]any)
	if !ok {
		reply = map[string]any{"summary": asText(content)}
	}

	if _, ok := reply["model"]; !ok {
		reply["model"] = chat.Model
		if chat.Model == "" {
			reply["model"] = g.model
		}
	}
	return reply, nil
}
