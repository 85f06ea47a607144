// Package anyllm provides a universal LLM provider backed by
// github.com/mozilla-ai/any-llm-go, a unified multi-provider interface that
// supports OpenAI, Anthropic, Gemini, Ollama, DeepSeek, Mistral, Groq, and more.
//
// It serves as the budget-friendly secondary backend of the interview
// pipeline. The default deployment pairs it with Groq-hosted open models.
//
// Usage:
//
//	p, err := anyllm.NewGroq(anyllmlib.WithAPIKey("gsk_..."))
//	p, err := anyllm.New("mistral", "mistral-large-latest", "mistral-small-latest")
package anyllm

import (
	"context"
	"fmt"
	"strings"

	anyllmlib "github.com/mozilla-ai/any-llm-go"
	"github.com/mozilla-ai/any-llm-go/providers/anthropic"
	"github.com/mozilla-ai/any-llm-go/providers/deepseek"
	"github.com/mozilla-ai/any-llm-go/providers/gemini"
	"github.com/mozilla-ai/any-llm-go/providers/groq"
	"github.com/mozilla-ai/any-llm-go/providers/llamacpp"
	"github.com/mozilla-ai/any-llm-go/providers/llamafile"
	"github.com/mozilla-ai/any-llm-go/providers/mistral"
	"github.com/mozilla-ai/any-llm-go/providers/ollama"
	anyllmoai "github.com/mozilla-ai/any-llm-go/providers/openai"

	"github.com/coachly-ai/coachly/pkg/provider/llm"
)

// tierModels holds the chat/fast model pair for one backend.
type tierModels struct {
	chat string
	fast string
}

// defaultTierModels maps each supported backend to its stock tier models.
// Local-inference backends have no sensible defaults and require explicit
// model names.
var defaultTierModels = map[string]tierModels{
	"groq":      {chat: "llama-3.3-70b-versatile", fast: "llama-3.1-8b-instant"},
	"openai":    {chat: "gpt-4o", fast: "gpt-4o-mini"},
	"anthropic": {chat: "claude-3-5-sonnet-latest", fast: "claude-3-5-haiku-latest"},
	"gemini":    {chat: "gemini-1.5-pro", fast: "gemini-1.5-flash"},
	"mistral":   {chat: "mistral-large-latest", fast: "mistral-small-latest"},
	"deepseek":  {chat: "deepseek-chat", fast: "deepseek-chat"},
}

// Provider implements llm.Provider by wrapping github.com/mozilla-ai/any-llm-go.
type Provider struct {
	backend anyllmlib.Provider
	models  tierModels
}

var _ llm.Provider = (*Provider)(nil)

// New creates a new Provider backed by the given LLM provider name.
//
// providerName is one of: "openai", "anthropic", "gemini", "ollama",
// "deepseek", "mistral", "groq", "llamacpp", "llamafile".
//
// chatModel and fastModel name the models used for llm.TierChat and
// llm.TierFast requests. Either may be empty, in which case the backend's
// stock model for that tier is used. Local backends (ollama, llamacpp,
// llamafile) require at least chatModel.
//
// opts are any-llm-go configuration options (e.g., anyllmlib.WithAPIKey,
// anyllmlib.WithBaseURL). If no API key option is provided, the provider
// falls back to the relevant environment variable (e.g., GROQ_API_KEY).
func New(providerName, chatModel, fastModel string, opts ...anyllmlib.Option) (*Provider, error) {
	if providerName == "" {
		return nil, fmt.Errorf("anyllm: providerName must not be empty")
	}

	name := strings.ToLower(providerName)
	models := defaultTierModels[name]
	if chatModel != "" {
		models.chat = chatModel
	}
	if fastModel != "" {
		models.fast = fastModel
	}
	if models.fast == "" {
		models.fast = models.chat
	}
	if models.chat == "" {
		return nil, fmt.Errorf("anyllm: no default models for %q; chatModel must be set", providerName)
	}

	backend, err := createBackend(name, opts...)
	if err != nil {
		return nil, fmt.Errorf("anyllm: create %q backend: %w", providerName, err)
	}

	return &Provider{backend: backend, models: models}, nil
}

// NewGroq creates a Provider backed by Groq with its stock tier models.
// Without options, it reads the GROQ_API_KEY environment variable.
func NewGroq(opts ...anyllmlib.Option) (*Provider, error) {
	return New("groq", "", "", opts...)
}

// NewOpenAI creates a Provider backed by OpenAI.
// Without options, it reads the OPENAI_API_KEY environment variable.
func NewOpenAI(opts ...anyllmlib.Option) (*Provider, error) {
	return New("openai", "", "", opts...)
}

// NewAnthropic creates a Provider backed by Anthropic.
// Without options, it reads the ANTHROPIC_API_KEY environment variable.
func NewAnthropic(opts ...anyllmlib.Option) (*Provider, error) {
	return New("anthropic", "", "", opts...)
}

// NewOllama creates a Provider backed by Ollama (local inference).
// Without options, it connects to http://localhost:11434.
func NewOllama(chatModel string, opts ...anyllmlib.Option) (*Provider, error) {
	return New("ollama", chatModel, "", opts...)
}

// createBackend creates the underlying any-llm-go provider for the given
// provider name.
func createBackend(providerName string, opts ...anyllmlib.Option) (anyllmlib.Provider, error) {
	switch providerName {
	case "openai":
		return anyllmoai.New(opts...)
	case "anthropic":
		return anthropic.New(opts...)
	case "gemini":
		return gemini.New(opts...)
	case "ollama":
		return ollama.New(opts...)
	case "deepseek":
		return deepseek.New(opts...)
	case "mistral":
		return mistral.New(opts...)
	case "groq":
		return groq.New(opts...)
	case "llamacpp":
		return llamacpp.New(opts...)
	case "llamafile":
		return llamafile.New(opts...)
	default:
		return nil, fmt.Errorf("unsupported provider %q; supported: openai, anthropic, gemini, ollama, deepseek, mistral, groq, llamacpp, llamafile", providerName)
	}
}

// StreamCompletion implements llm.Provider.
func (p *Provider) StreamCompletion(ctx context.Context, req llm.CompletionRequest) (<-chan llm.Chunk, error) {
	params := p.buildParams(req)

	backendChunks, backendErrs := p.backend.CompletionStream(ctx, params)

	ch := make(chan llm.Chunk, 32)
	go func() {
		defer close(ch)

		for chunk := range backendChunks {
			if len(chunk.Choices) == 0 {
				continue
			}
			choice := chunk.Choices[0]

			out := llm.Chunk{
				Text:         choice.Delta.Content,
				FinishReason: choice.FinishReason,
			}

			select {
			case ch <- out:
			case <-ctx.Done():
				return
			}
		}

		// Check for backend errors after the chunk channel is drained.
		if err := <-backendErrs; err != nil {
			select {
			case ch <- llm.Chunk{FinishReason: "error", Text: err.Error()}:
			case <-ctx.Done():
			}
		}
	}()

	return ch, nil
}

// Complete implements llm.Provider.
func (p *Provider) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	params := p.buildParams(req)

	resp, err := p.backend.Completion(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("anyllm: completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("anyllm: empty choices in response")
	}

	result := &llm.CompletionResponse{
		Content: resp.Choices[0].Message.ContentString(),
	}
	if resp.Usage != nil {
		result.Usage = llm.Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		}
	}
	return result, nil
}

// Capabilities implements llm.Provider.
func (p *Provider) Capabilities() llm.ModelCapabilities {
	return modelCapabilities(p.models.chat)
}

// modelForTier translates a tier to a concrete backend model name.
func (p *Provider) modelForTier(tier llm.ModelTier) string {
	if tier == llm.TierFast {
		return p.models.fast
	}
	return p.models.chat
}

// buildParams converts our CompletionRequest into anyllm CompletionParams.
func (p *Provider) buildParams(req llm.CompletionRequest) anyllmlib.CompletionParams {
	var messages []anyllmlib.Message

	if req.SystemPrompt != "" {
		messages = append(messages, anyllmlib.Message{
			Role:    anyllmlib.RoleSystem,
			Content: req.SystemPrompt,
		})
	}

	for _, m := range req.Messages {
		messages = append(messages, anyllmlib.Message{
			Role:    m.Role,
			Content: m.Content,
		})
	}

	params := anyllmlib.CompletionParams{
		Model:    p.modelForTier(req.Tier),
		Messages: messages,
	}

	if req.Temperature != 0 {
		t := req.Temperature
		params.Temperature = &t
	}
	if req.MaxTokens > 0 {
		mt := req.MaxTokens
		params.MaxTokens = &mt
	}

	return params
}

// modelCapabilities returns ModelCapabilities based on known model names.
// Unknown models receive sensible defaults.
func modelCapabilities(model string) llm.ModelCapabilities {
	caps := llm.ModelCapabilities{
		SupportsStreaming: true,
		MaxContextTokens:  128_000,
		MaxOutputTokens:   4_096,
		ModelID:           model,
	}

	lower := strings.ToLower(model)
	switch {
	case strings.HasPrefix(lower, "llama-3.3-70b"), strings.HasPrefix(lower, "llama-3.1"):
		caps.MaxContextTokens = 131_072
		caps.MaxOutputTokens = 32_768

	case strings.HasPrefix(lower, "gpt-4o"):
		caps.MaxOutputTokens = 16_384

	case strings.HasPrefix(lower, "claude"):
		caps.MaxContextTokens = 200_000
		caps.MaxOutputTokens = 8_192

	case strings.Contains(lower, "gemini-1.5-pro"):
		caps.MaxContextTokens = 2_097_152
		caps.MaxOutputTokens = 8_192

	case strings.HasPrefix(lower, "gemini"):
		caps.MaxContextTokens = 1_048_576
		caps.MaxOutputTokens = 8_192

	case strings.HasPrefix(lower, "mistral"):
		caps.MaxContextTokens = 131_072
		caps.MaxOutputTokens = 8_192

	case strings.HasPrefix(lower, "deepseek"):
		caps.MaxContextTokens = 65_536
		caps.MaxOutputTokens = 8_192
	}

	return caps
}
