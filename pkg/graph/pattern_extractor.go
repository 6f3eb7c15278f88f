package graph

import (
	"context"
	"strings"
	"unicode"
)

// PatternEntityExtractor finds capitalized phrases without calling a model.
// Cheap and deterministic; meant for offline setups and as the test fixture
// strategy.
type PatternEntityExtractor struct{}

func NewPatternEntityExtractor() *PatternEntityExtractor {
	return &PatternEntityExtractor{}
}

func (e *PatternEntityExtractor) Name() string { return "pattern" }

func (e *PatternEntityExtractor) Description() string {
	return "Capitalized-phrase heuristics, no model calls"
}

func (e *PatternEntityExtractor) Extract(ctx context.Context, text string) ([]Entity, error) {
	var entities []Entity
	seen := make(map[string]bool)

	words := strings.Fields(text)
	var phrase []string
	sentenceStart := true

	flush := func() {
		if len(phrase) == 0 {
			return
		}
		label := strings.Join(phrase, " ")
		phrase = nil
		canonical := CanonicalLabel(label)
		if len(canonical) < 2 || seen[canonical] {
			return
		}
		seen[canonical] = true
		entities = append(entities, Entity{Label: label, Type: "concept"})
	}

	for _, word := range words {
		trimmed := strings.TrimFunc(word, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsNumber(r)
		})
		endsSentence := strings.ContainsAny(word, ".!?")
		if trimmed == "" {
			flush()
			if endsSentence {
				sentenceStart = true
			}
			continue
		}

		first := []rune(trimmed)[0]
		if unicode.IsUpper(first) && !sentenceStart {
			phrase = append(phrase, trimmed)
		} else {
			// Sentence-initial capitals are ambiguous, skip them.
			flush()
		}

		if endsSentence {
			flush()
			sentenceStart = true
		} else {
			sentenceStart = false
		}
	}
	flush()

	return entities, nil
}

// CooccurrenceRelationExtractor links entities that appear in the same
// sentence with a generic relation. Weight grows with repeat co-occurrence
// and saturates at 1.
type CooccurrenceRelationExtractor struct{}

func NewCooccurrenceRelationExtractor() *CooccurrenceRelationExtractor {
	return &CooccurrenceRelationExtractor{}
}

func (e *CooccurrenceRelationExtractor) Name() string { return "cooccurrence" }

func (e *CooccurrenceRelationExtractor) Description() string {
	return "Links entities that appear in the same sentence"
}

func (e *CooccurrenceRelationExtractor) Extract(ctx context.Context, text string, entities []Entity) ([]Triple, error) {
	if len(entities) < 2 {
		return nil, nil
	}

	sentences := strings.FieldsFunc(text, func(r rune) bool {
		return r == '.' || r == '!' || r == '?' || r == '\n'
	})

	counts := make(map[[2]string]int)
	for _, sentence := range sentences {
		lower := strings.ToLower(sentence)
		var present []string
		for _, ent := range entities {
			if strings.Contains(lower, CanonicalLabel(ent.Label)) {
				present = append(present, ent.Label)
			}
		}
		for i := 0; i < len(present); i++ {
			for j := i + 1; j < len(present); j++ {
				counts[[2]string{present[i], present[j]}]++
			}
		}
	}

	triples := make([]Triple, 0, len(counts))
	for pair, count := range counts {
		weight := 0.3 + 0.2*float64(count)
		if weight > 1 {
			weight = 1
		}
		triples = append(triples, Triple{
			Subject:  pair[0],
			Relation: "related_to",
			Object:   pair[1],
			Weight:   weight,
		})
	}
	return triples, nil
}
