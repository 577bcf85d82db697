package extract

import (
	"archive/zip"
	"encoding/xml"
	"fmt"
	"io"
	"strings"
)

// WordParser reads the main document part of an OOXML .docx archive and
// collects paragraph text. Empty paragraphs are skipped. Legacy binary
// .doc files are not a zip archive and fail as extraction errors.
type WordParser struct{}

func (WordParser) Parse(path string) (string, error) {
	archive, err := zip.OpenReader(path)
	if err != nil {
		return "", fmt.Errorf("%w: open word document: %v", ErrExtractionFailed, err)
	}
	defer archive.Close()

	var doc *zip.File
	for _, f := range archive.File {
		if f.Name == "word/document.xml" {
			doc = f
			break
		}
	}
	if doc == nil {
		return "", fmt.Errorf("%w: word document has no document.xml", ErrExtractionFailed)
	}

	rc, err := doc.Open()
	if err != nil {
		return "", fmt.Errorf("%w: read word document: %v", ErrExtractionFailed, err)
	}
	defer rc.Close()

	paragraphs, err := wordParagraphs(rc)
	if err != nil {
		return "", fmt.Errorf("%w: parse word document: %v", ErrExtractionFailed, err)
	}
	if len(paragraphs) == 0 {
		return "", fmt.Errorf("%w: word document has no text content", ErrExtractionFailed)
	}
	return strings.Join(paragraphs, "\n\n"), nil
}

// wordParagraphs walks the WordprocessingML token stream, joining the
// <w:t> runs of each <w:p> paragraph.
func wordParagraphs(r io.Reader) ([]string, error) {
	decoder := xml.NewDecoder(r)
	var (
		paragraphs []string
		current    strings.Builder
		inText     bool
	)
	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "t":
				inText = true
			case "tab":
				current.WriteString("\t")
			case "br", "cr":
				current.WriteString("\n")
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				if text := strings.TrimSpace(current.String()); text != "" {
					paragraphs = append(paragraphs, text)
				}
				current.Reset()
			}
		case xml.CharData:
			if inText {
				current.Write(t)
			}
		}
	}
	return paragraphs, nil
}

func (WordParser) Extensions() []string { return []string{"doc", "docx"} }

func (WordParser) Name() string { return "Word Parser" }
