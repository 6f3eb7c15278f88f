package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryResolve(t *testing.T) {
	registry := NewRegistry()

	testCases := []struct {
		name        string
		contentType string
		wantErr     bool
	}{
		{name: "plain text", contentType: "text/plain", wantErr: false},
		{name: "with charset parameter", contentType: "text/plain; charset=utf-8", wantErr: false},
		{name: "markdown", contentType: "text/markdown", wantErr: false},
		{name: "html", contentType: "text/html", wantErr: false},
		{name: "pdf", contentType: "application/pdf", wantErr: false},
		{name: "uppercase normalized", contentType: "TEXT/HTML", wantErr: false},
		{name: "unsupported", contentType: "image/png", wantErr: true},
		{name: "empty", contentType: "", wantErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			p, err := registry.Resolve(tc.contentType)
			if tc.wantErr {
				assert.Error(t, err)
				assert.Nil(t, p)
			} else {
				assert.NoError(t, err)
				assert.NotNil(t, p)
			}
		})
	}
}

func TestPlainTextParser(t *testing.T) {
	p := NewPlainTextParser()

	text, err := p.Parse([]byte("hello\r\nworld\r\n"))
	require.NoError(t, err)
	assert.Equal(t, "hello\nworld", text)
}

func TestPlainTextParserInvalidUtf8(t *testing.T) {
	p := NewPlainTextParser()

	text, err := p.Parse([]byte{'o', 'k', 0xff, 0xfe, '!'})
	require.NoError(t, err)
	assert.Equal(t, "ok!", text)
}

func TestMarkdownParserStripsFormatting(t *testing.T) {
	p := NewMarkdownParser()

	input := "# Title\n\nSome **bold** and *italic* text.\n\n- first\n- second\n\n```\ncode block\n```\n"
	text, err := p.Parse([]byte(input))
	require.NoError(t, err)

	assert.Contains(t, text, "Title")
	assert.Contains(t, text, "Some bold and italic text.")
	assert.Contains(t, text, "first")
	assert.Contains(t, text, "code block")
	assert.NotContains(t, text, "**")
	assert.NotContains(t, text, "# ")
}

func TestHtmlParserStripsMarkup(t *testing.T) {
	p := NewHtmlParser()

	input := `<html><head><title>ignored</title><style>.x{color:red}</style></head>
<body><h1>Heading</h1><p>Paragraph text.</p><script>var x = 1;</script></body></html>`
	text, err := p.Parse([]byte(input))
	require.NoError(t, err)

	assert.Contains(t, text, "Heading")
	assert.Contains(t, text, "Paragraph text.")
	assert.NotContains(t, text, "var x")
	assert.NotContains(t, text, "color:red")
	assert.NotContains(t, text, "<p>")
}

func TestPdfParserEmptyInput(t *testing.T) {
	p := NewPdfParser()

	text, err := p.Parse(nil)
	require.NoError(t, err)
	assert.Empty(t, text)
}
