// Package anyllm provides a universal LLM responder backed by
// github.com/mozilla-ai/any-llm-go, a unified multi-provider interface that
// supports OpenAI, Anthropic, Gemini, Ollama, DeepSeek, Mistral, Groq, and more.
//
// Usage:
//
//	r, err := anyllm.New("openai", "gpt-4o", anyllmlib.WithAPIKey("sk-..."))
//	r, err := anyllm.NewOllama("llama3.2")
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

	"github.com/wakepal/wakepal/pkg/provider/llm"
)

// Responder implements llm.Responder by wrapping github.com/mozilla-ai/any-llm-go.
type Responder struct {
	backend      anyllmlib.Provider
	model        string
	systemPrompt string
}

var _ llm.Responder = (*Responder)(nil)

// Option is a functional option for configuring a [Responder].
type Option func(*Responder)

// WithSystemPrompt prepends a system message to every request.
func WithSystemPrompt(prompt string) Option {
	return func(r *Responder) { r.systemPrompt = prompt }
}

// New creates a new Responder backed by the given LLM provider name.
//
// providerName is one of: "openai", "anthropic", "gemini", "ollama",
// "deepseek", "mistral", "groq", "llamacpp", "llamafile".
//
// model is the specific model to use (e.g., "gpt-4o", "llama3.2").
//
// backendOpts are any-llm-go configuration options (e.g., anyllmlib.WithAPIKey,
// anyllmlib.WithBaseURL). If no API key option is provided, the provider will
// fall back to the relevant environment variable (e.g., OPENAI_API_KEY).
func New(providerName, model string, backendOpts []anyllmlib.Option, opts ...Option) (*Responder, error) {
	if providerName == "" {
		return nil, fmt.Errorf("anyllm: providerName must not be empty")
	}
	if model == "" {
		return nil, fmt.Errorf("anyllm: model must not be empty")
	}

	backend, err := createBackend(providerName, backendOpts...)
	if err != nil {
		return nil, fmt.Errorf("anyllm: create %q backend: %w", providerName, err)
	}

	r := &Responder{backend: backend, model: model}
	for _, o := range opts {
		o(r)
	}
	return r, nil
}

// NewOpenAI creates a Responder backed by OpenAI.
// Without backend options, it reads the OPENAI_API_KEY environment variable.
func NewOpenAI(model string, backendOpts ...anyllmlib.Option) (*Responder, error) {
	return New("openai", model, backendOpts)
}

// NewAnthropic creates a Responder backed by Anthropic.
// Without backend options, it reads the ANTHROPIC_API_KEY environment variable.
func NewAnthropic(model string, backendOpts ...anyllmlib.Option) (*Responder, error) {
	return New("anthropic", model, backendOpts)
}

// NewGemini creates a Responder backed by Google Gemini.
// Without backend options, it reads the GEMINI_API_KEY or GOOGLE_API_KEY
// environment variable.
func NewGemini(model string, backendOpts ...anyllmlib.Option) (*Responder, error) {
	return New("gemini", model, backendOpts)
}

// NewOllama creates a Responder backed by Ollama (local inference).
// Without backend options, it connects to http://localhost:11434.
func NewOllama(model string, backendOpts ...anyllmlib.Option) (*Responder, error) {
	return New("ollama", model, backendOpts)
}

// createBackend creates the underlying any-llm-go provider for the given
// provider name.
func createBackend(providerName string, opts ...anyllmlib.Option) (anyllmlib.Provider, error) {
	switch strings.ToLower(providerName) {
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

// Respond implements [llm.Responder].
func (r *Responder) Respond(ctx context.Context, prompt string) (string, error) {
	var messages []anyllmlib.Message
	if r.systemPrompt != "" {
		messages = append(messages, anyllmlib.Message{
			Role:    anyllmlib.RoleSystem,
			Content: r.systemPrompt,
		})
	}
	messages = append(messages, anyllmlib.Message{
		Role:    anyllmlib.RoleUser,
		Content: prompt,
	})

	resp, err := r.backend.Completion(ctx, anyllmlib.CompletionParams{
		Model:    r.model,
		Messages: messages,
	})
	if err != nil {
		return "", fmt.Errorf("anyllm: completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("anyllm: empty choices in response")
	}
	return strings.TrimSpace(resp.Choices[0].Message.ContentString()), nil
}
