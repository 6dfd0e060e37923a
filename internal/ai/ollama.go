package ai

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/ollama/ollama/api"
)

// OllamaCompleter generates completions through a local Ollama server.
type OllamaCompleter struct {
	client *api.Client
	model  string
}

// NewOllamaCompleter creates an Ollama-backed completer.
func NewOllamaCompleter(baseURL, model string) (*OllamaCompleter, error) {
	client, err := api.ClientFromEnvironment()
	if err != nil {
		// If env-based client fails, create one with the base URL
		parsedURL, parseErr := url.Parse(baseURL)
		if parseErr != nil {
			return nil, fmt.Errorf("invalid base URL: %w", parseErr)
		}
		client = api.NewClient(parsedURL, nil)
	}

	return &OllamaCompleter{client: client, model: model}, nil
}

func (o *OllamaCompleter) Model() string { return o.model }

// Complete sends the prompt and accumulates the full response.
func (o *OllamaCompleter) Complete(ctx context.Context, req Request) (string, error) {
	genReq := &api.GenerateRequest{
		Model:  o.model,
		Prompt: req.Prompt,
		Stream: new(bool), // false
	}
	if req.Temperature > 0 {
		genReq.Options = map[string]interface{}{
			"temperature": req.Temperature,
		}
	}
	if req.Inline != nil {
		genReq.Images = []api.ImageData{api.ImageData(req.Inline.Data)}
	}

	var fullResponse strings.Builder
	err := o.client.Generate(ctx, genReq, func(resp api.GenerateResponse) error {
		fullResponse.WriteString(resp.Response)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("ollama generate failed: %w", err)
	}
	return fullResponse.String(), nil
}
