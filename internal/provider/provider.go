package provider

import (
	"context"
	"fmt"
	"strings"
)

// Message represents a chat message.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Response represents the output from the model.
type Response struct {
	Content string `json:"content"`
	Usage   Usage  `json:"usage"`
}

type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Provider defines the interface for the generation backend behind the agents.
type Provider interface {
	// Chat sends a list of messages to the model and returns a response.
	Chat(ctx context.Context, messages []Message) (*Response, error)

	// Name returns the provider identifier (e.g., "stub", "openai").
	Name() string
}

// Sampling bounds a completion. Zero values keep the backend default.
type Sampling struct {
	Temperature float32
	MaxTokens   int
}

// Settings selects and configures a provider.
type Settings struct {
	Kind     string
	Model    string
	APIKey   string
	BaseURL  string
	CLIPath  string
	Sampling Sampling
}

const deepseekBaseURL = "https://api.deepseek.com"

var deepseekSampling = Sampling{Temperature: 0.7, MaxTokens: 2000}

// New builds the provider named by s.Kind.
func New(s Settings) (Provider, error) {
	switch strings.ToLower(s.Kind) {
	case "", "stub":
		return NewStubProvider(), nil
	case "openai":
		p, err := NewOpenAIProvider(s.APIKey, s.BaseURL, s.Model)
		if err != nil {
			return nil, err
		}
		p.SetSampling(s.Sampling)
		return p, nil
	case "deepseek":
		baseURL := s.BaseURL
		if baseURL == "" {
			baseURL = deepseekBaseURL
		}
		model := s.Model
		if model == "" {
			model = "deepseek-chat"
		}
		p, err := NewOpenAIProvider(s.APIKey, baseURL, model)
		if err != nil {
			return nil, err
		}
		p.name = "deepseek"
		sampling := s.Sampling
		if sampling == (Sampling{}) {
			sampling = deepseekSampling
		}
		p.SetSampling(sampling)
		return p, nil
	case "ollama":
		p, err := NewOllamaProvider(s.BaseURL, s.Model)
		if err != nil {
			return nil, err
		}
		p.SetSampling(s.Sampling)
		return p, nil
	case "gemini":
		return NewGeminiProvider(s.APIKey, s.Model)
	case "anthropic":
		return NewAnthropicProvider(s.APIKey, s.Model)
	case "cli":
		return NewCLIProvider(s.CLIPath, nil)
	default:
		return nil, fmt.Errorf("unknown provider: %s", s.Kind)
	}
}

// SystemAndUser is a convenience for the common two-message exchange.
func SystemAndUser(system, user string) []Message {
	return []Message{
		{Role: "system", Content: system},
		{Role: "user", Content: user},
	}
}
