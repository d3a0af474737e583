package claude

import (
	"context"
	"fmt"

	"github.com/liushuangls/go-anthropic/v2"

	"github.com/vbonduro/freezerinv/internal/synth"
)

const DefaultModel = "claude-3-5-haiku-latest"

// maxTokens comfortably fits a one-line label description.
const maxTokens = 256

type Options struct {
	Model   string
	BaseURL string
}

type Synthesizer struct {
	client *anthropic.Client
	model  string
}

func New(apiKey string, opts Options) *Synthesizer {
	var clientOpts []anthropic.ClientOption
	if opts.BaseURL != "" {
		clientOpts = append(clientOpts, anthropic.WithBaseURL(opts.BaseURL))
	}
	model := opts.Model
	if model == "" {
		model = DefaultModel
	}
	return &Synthesizer{
		client: anthropic.NewClient(apiKey, clientOpts...),
		model:  model,
	}
}

func (s *Synthesizer) Name() string { return "claude" }

func (s *Synthesizer) Synthesize(ctx context.Context, coordinate string, texts []string) (string, error) {
	resp, err := s.client.CreateMessages(ctx, anthropic.MessagesRequest{
		Model:     anthropic.Model(s.model),
		MaxTokens: maxTokens,
		Messages: []anthropic.Message{
			anthropic.NewUserTextMessage(synth.Prompt(coordinate, texts)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to call claude: %w", err)
	}
	return resp.GetFirstContentText(), nil
}
