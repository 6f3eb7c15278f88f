package parser

import (
	"bytes"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"
)

type PdfParser struct{}

func NewPdfParser() *PdfParser {
	return &PdfParser{}
}

func (p *PdfParser) ContentTypes() []string {
	return []string{"application/pdf"}
}

func (p *PdfParser) Description() string {
	return "Text extracted from PDF pages"
}

// Parse returns the PDF's plain text. A PDF with no extractable text yields
// an empty string and no error; the pipeline treats that as a parse failure
// for the document.
func (p *PdfParser) Parse(raw []byte) (string, error) {
	if len(raw) == 0 {
		return "", nil
	}
	reader, err := pdf.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return "", err
	}
	plain, err := reader.GetPlainText()
	if err != nil {
		return "", err
	}
	out, err := io.ReadAll(plain)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}
