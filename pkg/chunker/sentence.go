package chunker

import "strings"

// SentenceChunker accumulates whole sentences until the chunk size would be
// exceeded, then starts the next chunk with the trailing sentences that fit
// in the overlap budget. Sentences longer than the chunk size become their
// own oversized piece rather than being cut mid-sentence.
type SentenceChunker struct{}

func NewSentenceChunker() *SentenceChunker {
	return &SentenceChunker{}
}

func (c *SentenceChunker) Name() string { return "sentence" }

func (c *SentenceChunker) Description() string {
	return "Whole sentences packed up to the chunk size, never cut mid-sentence"
}

func (c *SentenceChunker) Split(text string, opts Options) ([]Piece, error) {
	opts = opts.normalized()

	clean := normalizeWhitespace(text)
	if clean == "" {
		return nil, nil
	}

	sentences := splitSentences(clean)
	if len(sentences) == 0 {
		return nil, nil
	}

	var pieces []Piece
	var current []string
	currentLen := 0

	flush := func() {
		if len(current) == 0 {
			return
		}
		chunkText := strings.TrimSpace(strings.Join(current, " "))
		if chunkText != "" {
			pieces = append(pieces, Piece{Text: chunkText, TokenCount: approxTokens(chunkText)})
		}

		// Carry trailing sentences into the next chunk as overlap.
		var carried []string
		carriedLen := 0
		for i := len(current) - 1; i >= 0; i-- {
			sl := len([]rune(current[i]))
			if carriedLen+sl > opts.ChunkOverlap {
				break
			}
			carried = append([]string{current[i]}, carried...)
			carriedLen += sl
		}
		current = carried
		currentLen = carriedLen
	}

	for _, sentence := range sentences {
		sl := len([]rune(sentence))
		if currentLen > 0 && currentLen+sl > opts.ChunkSize {
			flush()
		}
		current = append(current, sentence)
		currentLen += sl
	}
	if len(current) > 0 {
		chunkText := strings.TrimSpace(strings.Join(current, " "))
		if chunkText != "" && (len(pieces) == 0 || !strings.HasSuffix(pieces[len(pieces)-1].Text, chunkText)) {
			pieces = append(pieces, Piece{Text: chunkText, TokenCount: approxTokens(chunkText)})
		}
	}

	return assignSentenceOffsets(clean, pieces), nil
}

func assignSentenceOffsets(source string, pieces []Piece) []Piece {
	sourceRunes := []rune(source)
	cursor := 0
	for i := range pieces {
		// Overlapping chunks repeat text, so anchor each piece by its first
		// sentence rather than scanning strictly forward.
		firstSentence := pieces[i].Text
		if idx := strings.IndexAny(firstSentence, ".!?"); idx >= 0 {
			firstSentence = firstSentence[:idx+1]
		}
		start := indexRunes(sourceRunes, []rune(firstSentence), 0)
		if start < 0 {
			start = cursor
		}
		end := start + len([]rune(pieces[i].Text))
		if end > len(sourceRunes) {
			end = len(sourceRunes)
		}
		pieces[i].StartOffset = start
		pieces[i].EndOffset = end
		cursor = end
	}
	return pieces
}

// splitSentences breaks text on terminal punctuation followed by whitespace.
func splitSentences(text string) []string {
	var sentences []string
	runes := []rune(text)
	start := 0
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		if r == '.' || r == '!' || r == '?' || r == '\n' {
			end := i + 1
			for end < len(runes) && (runes[end] == '.' || runes[end] == '!' || runes[end] == '?') {
				end++
			}
			sentence := strings.TrimSpace(string(runes[start:end]))
			if sentence != "" {
				sentences = append(sentences, sentence)
			}
			i = end - 1
			start = end
		}
	}
	if start < len(runes) {
		if tail := strings.TrimSpace(string(runes[start:])); tail != "" {
			sentences = append(sentences, tail)
		}
	}
	return sentences
}
