package parser

import (
	"strings"
	"unicode/utf8"
)

type PlainTextParser struct{}

func NewPlainTextParser() *PlainTextParser {
	return &PlainTextParser{}
}

func (p *PlainTextParser) ContentTypes() []string {
	return []string{"text/plain", "text/csv"}
}

func (p *PlainTextParser) Description() string {
	return "Plain text taken as is, normalized to UTF-8"
}

func (p *PlainTextParser) Parse(raw []byte) (string, error) {
	text := string(raw)
	if !utf8.ValidString(text) {
		text = strings.ToValidUTF8(text, "")
	}
	text = strings.ReplaceAll(text, "\r\n", "\n")
	return strings.TrimSpace(text), nil
}
