package parser

import (
	"fmt"
	"sort"
	"strings"
)

// Parser extracts plain text from a raw document payload. The output is the
// canonical text every downstream stage operates on.
type Parser interface {
	Parse(raw []byte) (string, error)
	ContentTypes() []string
	Description() string
}

// Option pairs a supported content type with a human-readable description of
// how it is handled.
type Option struct {
	Name        string
	Description string
}

// Registry resolves a parser by MIME content type. Parameters such as
// "; charset=utf-8" are stripped before lookup.
type Registry struct {
	parsers map[string]Parser
}

func NewRegistry() *Registry {
	r := &Registry{parsers: make(map[string]Parser)}
	r.Register(NewPlainTextParser())
	r.Register(NewMarkdownParser())
	r.Register(NewHtmlParser())
	r.Register(NewPdfParser())
	return r
}

func (r *Registry) Register(p Parser) {
	for _, ct := range p.ContentTypes() {
		r.parsers[ct] = p
	}
}

func (r *Registry) Resolve(contentType string) (Parser, error) {
	ct := strings.ToLower(strings.TrimSpace(contentType))
	if idx := strings.Index(ct, ";"); idx >= 0 {
		ct = strings.TrimSpace(ct[:idx])
	}
	p, ok := r.parsers[ct]
	if !ok {
		return nil, fmt.Errorf("unsupported content type: %s", contentType)
	}
	return p, nil
}

func (r *Registry) Options() []Option {
	options := make([]Option, 0, len(r.parsers))
	for ct, p := range r.parsers {
		options = append(options, Option{Name: ct, Description: p.Description()})
	}
	sort.Slice(options, func(i, j int) bool { return options[i].Name < options[j].Name })
	return options
}
