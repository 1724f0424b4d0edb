package llm

import (
	"context"
	"encoding/json"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rotisserie/eris"
)

// AnthropicProvider backs completions with the Anthropic Messages API.
// Schema-constrained output is obtained by forcing a single tool call
// whose input schema is the requested schema; the tool input is the
// structured result.
type AnthropicProvider struct {
	client    sdk.Client
	model     string
	maxTokens int64
}

// NewAnthropicProvider creates an Anthropic backend.
func NewAnthropicProvider(cfg Config) (*AnthropicProvider, error) {
	if cfg.APIKey == "" {
		return nil, eris.New("anthropic: api key is required")
	}
	if cfg.Model == "" {
		return nil, eris.New("anthropic: model must be configured")
	}
	maxTokens := int64(cfg.MaxTokens)
	if maxTokens == 0 {
		maxTokens = 1024
	}

	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &AnthropicProvider{
		client:    sdk.NewClient(opts...),
		model:     cfg.Model,
		maxTokens: maxTokens,
	}, nil
}

func (p *AnthropicProvider) Name() string { return "anthropic" }

func (p *AnthropicProvider) ModelID() string { return p.model }

func (p *AnthropicProvider) Complete(ctx context.Context, req Request) (json.RawMessage, error) {
	toolName := req.SchemaName
	if toolName == "" {
		toolName = "structured_response"
	}

	var schema struct {
		Properties json.RawMessage `json:"properties"`
		Required   []string        `json:"required"`
	}
	if err := json.Unmarshal(req.Schema, &schema); err != nil {
		return nil, eris.Wrap(err, "anthropic: parse schema")
	}
	var props any
	if len(schema.Properties) > 0 {
		if err := json.Unmarshal(schema.Properties, &props); err != nil {
			return nil, eris.Wrap(err, "anthropic: parse schema properties")
		}
	}

	params := sdk.MessageNewParams{
		Model:     sdk.Model(p.model),
		MaxTokens: p.maxTokens,
		System: []sdk.TextBlockParam{
			{Text: req.System},
		},
		Messages: []sdk.MessageParam{
			sdk.NewUserMessage(sdk.NewTextBlock(req.Prompt)),
		},
		Tools: []sdk.ToolUnionParam{
			{
				OfTool: &sdk.ToolParam{
					Name:        toolName,
					Description: sdk.String("Record the structured response."),
					InputSchema: sdk.ToolInputSchemaParam{
						Properties: props,
						Required:   schema.Required,
					},
				},
			},
		},
		ToolChoice: sdk.ToolChoiceUnionParam{
			OfTool: &sdk.ToolChoiceToolParam{Name: toolName},
		},
	}
	if req.Temperature > 0 {
		params.Temperature = sdk.Float(req.Temperature)
	}

	msg, err := p.client.Messages.New(ctx, params)
	if err != nil {
		return nil, eris.Wrap(err, "anthropic: create message")
	}

	for _, block := range msg.Content {
		if block.Type == "tool_use" && block.Name == toolName {
			return json.RawMessage(block.Input), nil
		}
	}
	return nil, eris.Errorf("anthropic: no %s tool call in response", toolName)
}
