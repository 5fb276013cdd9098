package anthropic

import (
	"context"
	"fmt"
	"os"

	"github.com/harunnryd/sift/internal/model/contract"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const defaultMaxTokens = 2048

type Provider struct {
	client anthropic.Client
}

func New(apiKey string) *Provider {
	if apiKey == "" {
		apiKey = os.Getenv("ANTHROPIC_API_KEY")
	}
	client := anthropic.NewClient(option.WithAPIKey(apiKey))
	return &Provider{client: client}
}

func (p *Provider) Name() string {
	return "anthropic"
}

func (p *Provider) Generate(ctx context.Context, req contract.CompletionRequest) (*contract.CompletionResponse, error) {
	var messages []anthropic.MessageParam
	for _, m := range req.Messages {
		if m.Role == contract.RoleAssistant {
			messages = append(messages, anthropic.NewAssistantMessage(anthropic.NewTextBlock(m.Content)))
			continue
		}
		messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
	}

	modelName := req.Model
	if modelName == "" {
		modelName = string(anthropic.ModelClaude3_7SonnetLatest)
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(modelName),
		MaxTokens: defaultMaxTokens,
		Messages:  messages,
	}
	if req.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.System}}
	}

	msg, err := p.client.Messages.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("anthropic request failed: %w", err)
	}

	resp := &contract.CompletionResponse{}
	for _, block := range msg.Content {
		if b, ok := block.AsAny().(anthropic.TextBlock); ok {
			resp.Content += b.Text
		}
	}

	return resp, nil
}
