package ai

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"
)

// GeminiCompleter generates completions through the Google GenAI API.
type GeminiCompleter struct {
	client *genai.Client
	model  string
}

// NewGeminiCompleter creates a Gemini-backed completer.
func NewGeminiCompleter(ctx context.Context, apiKey, model string) (*GeminiCompleter, error) {
	if apiKey == "" {
		return nil, ErrNotConfigured
	}
	if model == "" {
		model = "gemini-2.0-flash"
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: apiKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}

	return &GeminiCompleter{client: client, model: model}, nil
}

func (g *GeminiCompleter) Model() string { return g.model }

// Complete sends the prompt and returns the first candidate's text.
func (g *GeminiCompleter) Complete(ctx context.Context, req Request) (string, error) {
	var config *genai.GenerateContentConfig
	if req.Temperature > 0 {
		config = &genai.GenerateContentConfig{
			Temperature: genai.Ptr(float32(req.Temperature)),
		}
	}

	contents := genai.Text(req.Prompt)
	if req.Inline != nil {
		parts := []*genai.Part{
			genai.NewPartFromText(req.Prompt),
			genai.NewPartFromBytes(req.Inline.Data, req.Inline.MIMEType),
		}
		contents = []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, config)
	if err != nil {
		var apiErr genai.APIError
		if errors.As(err, &apiErr) {
			switch apiErr.Code {
			case 400, 401, 403, 404:
				return "", &ClientError{StatusCode: apiErr.Code, Message: apiErr.Message}
			}
		}
		return "", fmt.Errorf("gemini generate failed: %w", err)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("gemini returned no candidates")
	}
	return resp.Candidates[0].Content.Parts[0].Text, nil
}
