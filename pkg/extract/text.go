package extract

import (
	"fmt"
	"os"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/simplifiedchinese"
)

// TextParser reads plain-text and markdown files as UTF-8, falling back
// to GBK when the bytes do not decode as valid UTF-8.
type TextParser struct{}

func (TextParser) Parse(path string) (string, error) {
	content, err := readTextFile(path)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(content) == "" {
		return "", fmt.Errorf("%w: file is empty", ErrExtractionFailed)
	}
	return strings.TrimSpace(content), nil
}

func (TextParser) Extensions() []string { return []string{"txt", "md", "markdown"} }

func (TextParser) Name() string { return "Text Parser" }

func readTextFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("%w: read file: %v", ErrExtractionFailed, err)
	}
	if utf8.Valid(data) {
		return string(data), nil
	}
	decoded, err := simplifiedchinese.GBK.NewDecoder().Bytes(data)
	if err != nil {
		return "", fmt.Errorf("%w: file is not valid utf-8 or gbk", ErrExtractionFailed)
	}
	return string(decoded), nil
}
