package parser

import (
	"strings"

	"github.com/gomarkdown/markdown/ast"
	mdparser "github.com/gomarkdown/markdown/parser"
)

// MarkdownParser renders markdown down to its textual content. Headings keep
// their own line so chunkers can split on structure; code blocks survive
// verbatim, formatting markers are dropped.
type MarkdownParser struct{}

func NewMarkdownParser() *MarkdownParser {
	return &MarkdownParser{}
}

func (p *MarkdownParser) ContentTypes() []string {
	return []string{"text/markdown", "text/x-markdown"}
}

func (p *MarkdownParser) Description() string {
	return "Markdown rendered down to text, headings and code blocks preserved"
}

func (p *MarkdownParser) Parse(raw []byte) (string, error) {
	md := mdparser.NewWithExtensions(mdparser.CommonExtensions)
	doc := md.Parse(raw)

	var sb strings.Builder
	ast.WalkFunc(doc, func(node ast.Node, entering bool) ast.WalkStatus {
		if !entering {
			switch node.(type) {
			case *ast.Paragraph, *ast.Heading, *ast.ListItem, *ast.BlockQuote:
				sb.WriteString("\n\n")
			}
			return ast.GoToNext
		}
		switch n := node.(type) {
		case *ast.Text:
			sb.Write(n.Literal)
		case *ast.CodeBlock:
			sb.Write(n.Literal)
			sb.WriteString("\n\n")
		case *ast.Code:
			sb.Write(n.Literal)
		case *ast.Softbreak, *ast.Hardbreak:
			sb.WriteString("\n")
		}
		return ast.GoToNext
	})

	return strings.TrimSpace(sb.String()), nil
}
