package chunker

import (
	"github.com/tmc/langchaingo/textsplitter"
)

// The structure-aware strategies delegate to langchaingo's splitters and then
// map the fragments back onto source offsets.

// SemanticChunker splits recursively on paragraph, line, sentence and word
// boundaries, keeping semantically related text together.
type SemanticChunker struct{}

func NewSemanticChunker() *SemanticChunker {
	return &SemanticChunker{}
}

func (c *SemanticChunker) Name() string { return "semantic" }

func (c *SemanticChunker) Description() string {
	return "Recursive splitting on paragraph, line and sentence boundaries"
}

func (c *SemanticChunker) Split(text string, opts Options) ([]Piece, error) {
	opts = opts.normalized()
	splitter := textsplitter.NewRecursiveCharacter(
		textsplitter.WithChunkSize(opts.ChunkSize),
		textsplitter.WithChunkOverlap(opts.ChunkOverlap),
	)
	fragments, err := splitter.SplitText(text)
	if err != nil {
		return nil, err
	}
	return locatePieces(text, fragments), nil
}

// TokenChunker splits on model token boundaries using tiktoken counts, so
// chunk size is measured in tokens rather than runes.
type TokenChunker struct{}

func NewTokenChunker() *TokenChunker {
	return &TokenChunker{}
}

func (c *TokenChunker) Name() string { return "token" }

func (c *TokenChunker) Description() string {
	return "Chunk sizes measured in model tokens instead of characters"
}

func (c *TokenChunker) Split(text string, opts Options) ([]Piece, error) {
	opts = opts.normalized()
	splitter := textsplitter.NewTokenSplitter(
		textsplitter.WithChunkSize(opts.ChunkSize),
		textsplitter.WithChunkOverlap(opts.ChunkOverlap),
	)
	fragments, err := splitter.SplitText(text)
	if err != nil {
		return nil, err
	}
	return locatePieces(text, fragments), nil
}

// MarkdownChunker splits along markdown structure (headings, lists, code
// fences) before falling back to size limits.
type MarkdownChunker struct{}

func NewMarkdownChunker() *MarkdownChunker {
	return &MarkdownChunker{}
}

func (c *MarkdownChunker) Name() string { return "markdown" }

func (c *MarkdownChunker) Description() string {
	return "Splits along markdown headings, lists and code fences"
}

func (c *MarkdownChunker) Split(text string, opts Options) ([]Piece, error) {
	opts = opts.normalized()
	splitter := textsplitter.NewMarkdownTextSplitter(
		textsplitter.WithChunkSize(opts.ChunkSize),
		textsplitter.WithChunkOverlap(opts.ChunkOverlap),
	)
	fragments, err := splitter.SplitText(text)
	if err != nil {
		return nil, err
	}
	return locatePieces(text, fragments), nil
}

// HtmlChunker splits text extracted from html on block-level boundaries.
type HtmlChunker struct{}

func NewHtmlChunker() *HtmlChunker {
	return &HtmlChunker{}
}

func (c *HtmlChunker) Name() string { return "html" }

func (c *HtmlChunker) Description() string {
	return "Block-level splitting for text extracted from HTML"
}

func (c *HtmlChunker) Split(text string, opts Options) ([]Piece, error) {
	opts = opts.normalized()
	splitter := textsplitter.NewRecursiveCharacter(
		textsplitter.WithChunkSize(opts.ChunkSize),
		textsplitter.WithChunkOverlap(opts.ChunkOverlap),
		textsplitter.WithSeparators([]string{"\n\n", "\n", ". ", " ", ""}),
	)
	fragments, err := splitter.SplitText(text)
	if err != nil {
		return nil, err
	}
	return locatePieces(text, fragments), nil
}

// CodeChunker prefers declaration and blank-line boundaries so functions stay
// intact where possible.
type CodeChunker struct{}

func NewCodeChunker() *CodeChunker {
	return &CodeChunker{}
}

func (c *CodeChunker) Name() string { return "code" }

func (c *CodeChunker) Description() string {
	return "Prefers declaration and blank-line boundaries so functions stay intact"
}

func (c *CodeChunker) Split(text string, opts Options) ([]Piece, error) {
	opts = opts.normalized()
	splitter := textsplitter.NewRecursiveCharacter(
		textsplitter.WithChunkSize(opts.ChunkSize),
		textsplitter.WithChunkOverlap(opts.ChunkOverlap),
		textsplitter.WithSeparators([]string{"\nfunc ", "\nclass ", "\ndef ", "\n\n", "\n", " ", ""}),
	)
	fragments, err := splitter.SplitText(text)
	if err != nil {
		return nil, err
	}
	return locatePieces(text, fragments), nil
}
