package chunker

import "strings"

// CharacterChunker slides a fixed rune window across the text with overlap.
// The simplest strategy and the fallback when structure does not matter.
type CharacterChunker struct{}

func NewCharacterChunker() *CharacterChunker {
	return &CharacterChunker{}
}

func (c *CharacterChunker) Name() string { return "character" }

func (c *CharacterChunker) Description() string {
	return "Fixed-size character windows with overlap, ignoring structure"
}

func (c *CharacterChunker) Split(text string, opts Options) ([]Piece, error) {
	opts = opts.normalized()

	clean := normalizeWhitespace(text)
	if clean == "" {
		return nil, nil
	}

	runes := []rune(clean)
	step := opts.ChunkSize - opts.ChunkOverlap
	if step <= 0 {
		step = opts.ChunkSize
	}

	var pieces []Piece
	for start := 0; start < len(runes); start += step {
		end := start + opts.ChunkSize
		if end > len(runes) {
			end = len(runes)
		}
		chunkText := strings.TrimSpace(string(runes[start:end]))
		if chunkText != "" {
			pieces = append(pieces, Piece{
				Text:        chunkText,
				StartOffset: start,
				EndOffset:   end,
				TokenCount:  approxTokens(chunkText),
			})
		}
		if end == len(runes) {
			break
		}
	}

	return pieces, nil
}
