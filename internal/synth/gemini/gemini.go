package gemini

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"github.com/vbonduro/freezerinv/internal/synth"
)

const DefaultModel = "gemini-2.5-flash-lite"

type Options struct {
	Model string
	// BaseURL overrides the API endpoint; empty uses the public Gemini API.
	BaseURL string
}

type Synthesizer struct {
	client *genai.Client
	model  string
}

func New(ctx context.Context, apiKey string, opts Options) (*Synthesizer, error) {
	cfg := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if opts.BaseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: opts.BaseURL}
	}
	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	model := opts.Model
	if model == "" {
		model = DefaultModel
	}
	return &Synthesizer{client: client, model: model}, nil
}

func (s *Synthesizer) Name() string { return "gemini" }

func (s *Synthesizer) Synthesize(ctx context.Context, coordinate string, texts []string) (string, error) {
	result, err := s.client.Models.GenerateContent(ctx, s.model, []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromText(synth.Prompt(coordinate, texts)),
		}, genai.RoleUser),
	}, nil)
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}
	if len(result.Candidates) == 0 || result.Candidates[0].Content == nil {
		return "", fmt.Errorf("no response from Gemini")
	}
	return result.Text(), nil
}
