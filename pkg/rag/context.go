package rag

import (
	"strings"

	"github.com/google/uuid"
)

// Provenance tags one snippet of assembled context for later citation.
type Provenance struct {
	DocumentId uuid.UUID  `json:"document_id"`
	ChunkId    *uuid.UUID `json:"chunk_id,omitempty"`
	NodeId     *uuid.UUID `json:"node_id,omitempty"`
	Score      float64    `json:"score"`
}

// ContextBlock is the prompt-ready context with its citation trail.
type ContextBlock struct {
	Text       string
	Provenance []Provenance
}

// ContextBuilder concatenates ranked results into a prompt block, folding
// near-identical snippets and truncating at the size cap.
type ContextBuilder struct {
	maxChars      int
	dupThreshold  float64
	snippetPrefix string
}

func NewContextBuilder(maxChars int) *ContextBuilder {
	if maxChars <= 0 {
		maxChars = 8000
	}
	return &ContextBuilder{
		maxChars:      maxChars,
		dupThreshold:  0.9,
		snippetPrefix: "- ",
	}
}

func (b *ContextBuilder) Build(results []Result) *ContextBlock {
	block := &ContextBlock{}
	if len(results) == 0 {
		return block
	}

	var sb strings.Builder
	var kept [][]string

	for _, res := range results {
		text := strings.TrimSpace(res.Text)
		if text == "" {
			continue
		}

		tokens := tokenize(text)
		if isNearDuplicate(tokens, kept, b.dupThreshold) {
			continue
		}

		snippet := b.snippetPrefix + text + "\n"
		if sb.Len()+len(snippet) > b.maxChars {
			break
		}
		sb.WriteString(snippet)
		kept = append(kept, tokens)

		block.Provenance = append(block.Provenance, Provenance{
			DocumentId: res.DocumentId,
			ChunkId:    res.ChunkId,
			NodeId:     res.NodeId,
			Score:      res.Score,
		})
	}

	block.Text = strings.TrimRight(sb.String(), "\n")
	return block
}

// isNearDuplicate reports whether the token set overlaps an already kept
// snippet beyond the threshold (jaccard similarity).
func isNearDuplicate(tokens []string, kept [][]string, threshold float64) bool {
	if len(tokens) == 0 {
		return true
	}
	set := make(map[string]bool, len(tokens))
	for _, t := range tokens {
		set[t] = true
	}

	for _, other := range kept {
		otherSet := make(map[string]bool, len(other))
		for _, t := range other {
			otherSet[t] = true
		}
		intersection := 0
		for t := range set {
			if otherSet[t] {
				intersection++
			}
		}
		union := len(set) + len(otherSet) - intersection
		if union > 0 && float64(intersection)/float64(union) >= threshold {
			return true
		}
	}
	return false
}
