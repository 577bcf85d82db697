package extract

import (
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// PDFParser extracts text page by page. Pages that fail to decode are
// skipped; the parse fails only when no page yields any text.
type PDFParser struct{}

func (PDFParser) Parse(path string) (string, error) {
	file, reader, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("%w: open pdf: %v", ErrExtractionFailed, err)
	}
	defer file.Close()

	var pages []string
	total := reader.NumPage()
	for i := 1; i <= total; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		if strings.TrimSpace(text) != "" {
			pages = append(pages, text)
		}
	}

	content := strings.Join(pages, "\n\n")
	if strings.TrimSpace(content) == "" {
		return "", fmt.Errorf("%w: no text extracted from pdf", ErrExtractionFailed)
	}
	return content, nil
}

func (PDFParser) Extensions() []string { return []string{"pdf"} }

func (PDFParser) Name() string { return "PDF Parser" }
