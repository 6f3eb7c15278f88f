package embedding

import (
	"context"
	"errors"
	"fmt"

	"github.com/sashabaranov/go-openai"
)

// OpenAiProvider uses the embeddings API, or any compatible endpoint when a
// custom base URL is configured.
type OpenAiProvider struct {
	client     *openai.Client
	model      string
	dimensions int
}

func NewOpenAiProvider(apiKey, baseURL, model string, dimensions int) *OpenAiProvider {
	if model == "" {
		model = "text-embedding-3-small"
	}
	if dimensions <= 0 {
		dimensions = 1536
	}

	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}

	return &OpenAiProvider{
		client:     openai.NewClientWithConfig(config),
		model:      model,
		dimensions: dimensions,
	}
}

func (p *OpenAiProvider) Name() string { return "openai" }

func (p *OpenAiProvider) Description() string {
	return "OpenAI text-embedding models via the API"
}

func (p *OpenAiProvider) Dimensions() int { return p.dimensions }

func (p *OpenAiProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := p.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (p *OpenAiProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	resp, err := p.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Model: openai.EmbeddingModel(p.model),
		Input: texts,
	})
	if err != nil {
		return nil, err
	}
	if len(resp.Data) != len(texts) {
		return nil, errors.New("embedding response count mismatch")
	}

	vectors := make([][]float32, len(texts))
	for _, item := range resp.Data {
		if item.Index < 0 || item.Index >= len(texts) {
			return nil, fmt.Errorf("embedding response index %d out of range", item.Index)
		}
		vectors[item.Index] = normalizeVector(item.Embedding)
	}
	return vectors, nil
}
