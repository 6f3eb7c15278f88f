package openai

import (
	"context"
	"errors"
	"fmt"
	"io"

	goopenai "github.com/sashabaranov/go-openai"

	"rag-workspace-be/pkg/llm"
)

type OpenAiProvider struct {
	client    *goopenai.Client
	modelName string
}

var _ llm.Provider = &OpenAiProvider{}

func NewOpenAiProvider(apiKey, baseURL, modelName string) *OpenAiProvider {
	if modelName == "" {
		modelName = goopenai.GPT4oMini
	}
	config := goopenai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	return &OpenAiProvider{
		client:    goopenai.NewClientWithConfig(config),
		modelName: modelName,
	}
}

func (p *OpenAiProvider) buildRequest(history []llm.Message, options *llm.Options) goopenai.ChatCompletionRequest {
	messages := make([]goopenai.ChatCompletionMessage, len(history))
	for i, msg := range history {
		role := msg.Role
		if role == "model" {
			role = llm.RoleAssistant
		}
		messages[i] = goopenai.ChatCompletionMessage{
			Role:    role,
			Content: msg.Content,
		}
	}

	model := p.modelName
	if options.Model != "" {
		model = options.Model
	}

	req := goopenai.ChatCompletionRequest{
		Model:       model,
		Messages:    messages,
		Temperature: float32(options.Temperature),
	}
	if options.MaxTokens > 0 {
		req.MaxTokens = options.MaxTokens
	}
	return req
}

func (p *OpenAiProvider) Chat(ctx context.Context, history []llm.Message, opts ...llm.Option) (string, error) {
	options := &llm.Options{Temperature: 0.7}
	for _, opt := range opts {
		opt(options)
	}

	resp, err := p.client.CreateChatCompletion(ctx, p.buildRequest(history, options))
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("chat completion returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

func (p *OpenAiProvider) Generate(ctx context.Context, prompt string, opts ...llm.Option) (string, error) {
	return p.Chat(ctx, []llm.Message{{Role: llm.RoleUser, Content: prompt}}, opts...)
}

func (p *OpenAiProvider) ChatStream(ctx context.Context, history []llm.Message, opts ...llm.Option) (<-chan llm.Fragment, error) {
	options := &llm.Options{Temperature: 0.7}
	for _, opt := range opts {
		opt(options)
	}

	stream, err := p.client.CreateChatCompletionStream(ctx, p.buildRequest(history, options))
	if err != nil {
		return nil, fmt.Errorf("open completion stream: %w", err)
	}

	fragments := make(chan llm.Fragment)
	go func() {
		defer close(fragments)
		defer stream.Close()

		for {
			resp, err := stream.Recv()
			if errors.Is(err, io.EOF) {
				fragments <- llm.Fragment{Done: true}
				return
			}
			if err != nil {
				if ctx.Err() != nil {
					fragments <- llm.Fragment{Err: ctx.Err()}
					return
				}
				fragments <- llm.Fragment{Err: fmt.Errorf("stream recv: %w", err)}
				return
			}
			if len(resp.Choices) == 0 {
				continue
			}
			delta := resp.Choices[0].Delta.Content
			if delta == "" {
				continue
			}
			select {
			case fragments <- llm.Fragment{Content: delta}:
			case <-ctx.Done():
				fragments <- llm.Fragment{Err: ctx.Err()}
				return
			}
		}
	}()

	return fragments, nil
}
