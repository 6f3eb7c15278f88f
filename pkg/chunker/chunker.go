package chunker

import (
	"fmt"
	"sort"
	"strings"
	"unicode"
)

// Piece is one split segment with its location in the source text. Offsets
// are rune positions into the normalized input.
type Piece struct {
	Text        string
	StartOffset int
	EndOffset   int
	TokenCount  int
}

// Options carry the per-workspace splitting knobs.
type Options struct {
	ChunkSize    int
	ChunkOverlap int
}

func (o Options) normalized() Options {
	if o.ChunkSize <= 0 {
		o.ChunkSize = 800
	}
	if o.ChunkOverlap < 0 {
		o.ChunkOverlap = 0
	}
	if o.ChunkOverlap >= o.ChunkSize {
		o.ChunkOverlap = o.ChunkSize / 4
	}
	return o
}

// Chunker splits parsed text into pieces. A non-empty input always yields at
// least one piece.
type Chunker interface {
	Name() string
	Description() string
	Split(text string, opts Options) ([]Piece, error)
}

// Option pairs a strategy name with its human-readable description for the
// configuration surface.
type Option struct {
	Name        string
	Description string
}

// Registry resolves chunkers by strategy name.
type Registry struct {
	chunkers map[string]Chunker
}

func NewRegistry() *Registry {
	r := &Registry{chunkers: make(map[string]Chunker)}
	r.Register(NewCharacterChunker())
	r.Register(NewSentenceChunker())
	r.Register(NewSemanticChunker())
	r.Register(NewTokenChunker())
	r.Register(NewMarkdownChunker())
	r.Register(NewHtmlChunker())
	r.Register(NewCodeChunker())
	return r
}

func (r *Registry) Register(c Chunker) {
	r.chunkers[c.Name()] = c
}

func (r *Registry) Resolve(name string) (Chunker, error) {
	c, ok := r.chunkers[name]
	if !ok {
		return nil, fmt.Errorf("unknown chunker strategy: %s", name)
	}
	return c, nil
}

func (r *Registry) Options() []Option {
	options := make([]Option, 0, len(r.chunkers))
	for _, c := range r.chunkers {
		options = append(options, Option{Name: c.Name(), Description: c.Description()})
	}
	sort.Slice(options, func(i, j int) bool { return options[i].Name < options[j].Name })
	return options
}

// approxTokens estimates token count as whitespace-separated words. Good
// enough for metadata and context budgeting.
func approxTokens(s string) int {
	return len(strings.Fields(s))
}

func normalizeWhitespace(s string) string {
	var builder strings.Builder
	builder.Grow(len(s))

	var prevSpace bool
	for _, r := range s {
		if unicode.IsSpace(r) && r != '\n' {
			if prevSpace {
				continue
			}
			builder.WriteRune(' ')
			prevSpace = true
			continue
		}
		builder.WriteRune(r)
		prevSpace = false
	}

	return strings.TrimSpace(builder.String())
}

// locatePieces assigns offsets to already-split fragments by scanning the
// source left to right. Fragments whose text was rewritten by the splitter
// fall back to the previous piece's end.
func locatePieces(source string, fragments []string) []Piece {
	sourceRunes := []rune(source)
	pieces := make([]Piece, 0, len(fragments))
	cursor := 0
	for _, frag := range fragments {
		trimmed := strings.TrimSpace(frag)
		if trimmed == "" {
			continue
		}
		start := indexRunes(sourceRunes, []rune(trimmed), cursor)
		if start < 0 {
			start = cursor
		}
		end := start + len([]rune(trimmed))
		if end > len(sourceRunes) {
			end = len(sourceRunes)
		}
		pieces = append(pieces, Piece{
			Text:        trimmed,
			StartOffset: start,
			EndOffset:   end,
			TokenCount:  approxTokens(trimmed),
		})
		if end > cursor {
			cursor = end
		}
	}
	return pieces
}

func indexRunes(haystack, needle []rune, from int) int {
	if from < 0 {
		from = 0
	}
	n := len(needle)
	if n == 0 || from+n > len(haystack) {
		return -1
	}
	for i := from; i+n <= len(haystack); i++ {
		match := true
		for j := 0; j < n; j++ {
			if haystack[i+j] != needle[j] {
				match = false
				break
			}
		}
		if match {
			return i
		}
	}
	return -1
}
