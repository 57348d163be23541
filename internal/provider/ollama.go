package provider

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"

	"github.com/ollama/ollama/api"
)

const defaultOllamaHost = "http://localhost:11434"

type OllamaProvider struct {
	client   *api.Client
	model    string
	sampling Sampling
}

// NewOllamaProvider connects to host, falling back to $OLLAMA_HOST and then
// the local default port.
func NewOllamaProvider(host, model string) (*OllamaProvider, error) {
	if model == "" {
		model = "llama3.2"
	}
	if host == "" {
		host = os.Getenv("OLLAMA_HOST")
	}
	if host == "" {
		host = defaultOllamaHost
	}
	uri, err := url.Parse(host)
	if err != nil {
		return nil, fmt.Errorf("invalid ollama host %q: %w", host, err)
	}

	return &OllamaProvider{
		client: api.NewClient(uri, http.DefaultClient),
		model:  model,
	}, nil
}

func (p *OllamaProvider) Name() string {
	return "ollama"
}

func (p *OllamaProvider) SetSampling(s Sampling) {
	p.sampling = s
}

func (p *OllamaProvider) options() map[string]any {
	opts := map[string]any{}
	if p.sampling.Temperature > 0 {
		opts["temperature"] = p.sampling.Temperature
	}
	if p.sampling.MaxTokens > 0 {
		opts["num_predict"] = p.sampling.MaxTokens
	}
	if len(opts) == 0 {
		return nil
	}
	return opts
}

func (p *OllamaProvider) Chat(ctx context.Context, messages []Message) (*Response, error) {
	apiMsgs := make([]api.Message, 0, len(messages))
	for _, m := range messages {
		apiMsgs = append(apiMsgs, api.Message{Role: m.Role, Content: m.Content})
	}

	stream := false
	req := &api.ChatRequest{
		Model:    p.model,
		Messages: apiMsgs,
		Stream:   &stream,
		Options:  p.options(),
	}

	var sb strings.Builder
	var usage Usage
	err := p.client.Chat(ctx, req, func(resp api.ChatResponse) error {
		sb.WriteString(resp.Message.Content)
		if resp.Done {
			usage.PromptTokens = resp.PromptEvalCount
			usage.CompletionTokens = resp.EvalCount
			usage.TotalTokens = usage.PromptTokens + usage.CompletionTokens
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("ollama chat failed: %w", err)
	}

	return &Response{Content: sb.String(), Usage: usage}, nil
}
