package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"rag-workspace-be/pkg/llm"
)

const entityExtractionPrompt = `Extract the named entities from the text below.
Return ONLY a JSON array, no prose, where each element is:
{"label": "<entity name>", "type": "<person|organization|location|concept|product|event|other>"}

Text:
%s`

const relationExtractionPrompt = `Given the text and the known entities below, extract relationships between the entities.
Return ONLY a JSON array, no prose, where each element is:
{"subject": "<entity label>", "relation": "<short verb phrase>", "object": "<entity label>", "weight": <confidence 0.0-1.0>}
Only use entities from the known list.

Known entities: %s

Text:
%s`

// LlmEntityExtractor asks the generation model for a JSON entity list.
type LlmEntityExtractor struct {
	provider llm.Provider
}

func NewLlmEntityExtractor(provider llm.Provider) *LlmEntityExtractor {
	return &LlmEntityExtractor{provider: provider}
}

func (e *LlmEntityExtractor) Name() string { return "llm" }

func (e *LlmEntityExtractor) Description() string {
	return "Named entities extracted by the generation model"
}

func (e *LlmEntityExtractor) Extract(ctx context.Context, text string) ([]Entity, error) {
	prompt := fmt.Sprintf(entityExtractionPrompt, text)
	raw, err := e.provider.Generate(ctx, prompt, llm.WithTemperature(0.0))
	if err != nil {
		return nil, fmt.Errorf("entity extraction call: %w", err)
	}

	var entities []Entity
	if err := json.Unmarshal([]byte(extractJsonArray(raw)), &entities); err != nil {
		return nil, fmt.Errorf("parse entity extraction output: %w", err)
	}

	kept := entities[:0]
	for _, ent := range entities {
		if strings.TrimSpace(ent.Label) != "" {
			kept = append(kept, ent)
		}
	}
	return kept, nil
}

// LlmRelationExtractor asks the model for triples restricted to the entities
// already found in the chunk.
type LlmRelationExtractor struct {
	provider llm.Provider
}

func NewLlmRelationExtractor(provider llm.Provider) *LlmRelationExtractor {
	return &LlmRelationExtractor{provider: provider}
}

func (e *LlmRelationExtractor) Name() string { return "llm" }

func (e *LlmRelationExtractor) Description() string {
	return "Subject-relation-object triples extracted by the generation model"
}

func (e *LlmRelationExtractor) Extract(ctx context.Context, text string, entities []Entity) ([]Triple, error) {
	if len(entities) < 2 {
		return nil, nil
	}

	labels := make([]string, len(entities))
	for i, ent := range entities {
		labels[i] = ent.Label
	}

	prompt := fmt.Sprintf(relationExtractionPrompt, strings.Join(labels, ", "), text)
	raw, err := e.provider.Generate(ctx, prompt, llm.WithTemperature(0.0))
	if err != nil {
		return nil, fmt.Errorf("relation extraction call: %w", err)
	}

	var triples []Triple
	if err := json.Unmarshal([]byte(extractJsonArray(raw)), &triples); err != nil {
		return nil, fmt.Errorf("parse relation extraction output: %w", err)
	}

	known := make(map[string]bool, len(entities))
	for _, ent := range entities {
		known[CanonicalLabel(ent.Label)] = true
	}

	kept := triples[:0]
	for _, t := range triples {
		if !known[CanonicalLabel(t.Subject)] || !known[CanonicalLabel(t.Object)] {
			continue
		}
		if strings.TrimSpace(t.Relation) == "" {
			continue
		}
		if t.Weight <= 0 || t.Weight > 1 {
			t.Weight = 0.5
		}
		kept = append(kept, t)
	}
	return kept, nil
}

// extractJsonArray pulls the first JSON array out of a model response that
// may be wrapped in markdown fences or prose.
func extractJsonArray(raw string) string {
	start := strings.Index(raw, "[")
	end := strings.LastIndex(raw, "]")
	if start < 0 || end <= start {
		return "[]"
	}
	return raw[start : end+1]
}
