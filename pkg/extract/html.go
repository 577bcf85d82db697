package extract

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"
)

// HTMLParser extracts visible text from HTML documents. Script and style
// subtrees are skipped; block boundaries become newlines.
type HTMLParser struct{}

func (HTMLParser) Parse(path string) (string, error) {
	raw, err := readTextFile(path)
	if err != nil {
		return "", err
	}
	doc, err := html.Parse(strings.NewReader(raw))
	if err != nil {
		return "", fmt.Errorf("%w: parse html: %v", ErrExtractionFailed, err)
	}
	content := strings.TrimSpace(htmlText(doc))
	if content == "" {
		return "", fmt.Errorf("%w: html document has no text content", ErrExtractionFailed)
	}
	return content, nil
}

func htmlText(n *html.Node) string {
	if n.Type == html.ElementNode {
		switch n.Data {
		case "script", "style", "head":
			return ""
		}
	}
	if n.Type == html.TextNode {
		return n.Data
	}
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		b.WriteString(htmlText(c))
	}
	text := b.String()
	if n.Type == html.ElementNode && isBlockElement(n.Data) && strings.TrimSpace(text) != "" {
		return strings.TrimSpace(text) + "\n"
	}
	return text
}

func isBlockElement(tag string) bool {
	switch tag {
	case "p", "div", "section", "article", "li", "h1", "h2", "h3", "h4", "h5", "h6", "br", "tr":
		return true
	}
	return false
}

func (HTMLParser) Extensions() []string { return []string{"html", "htm"} }

func (HTMLParser) Name() string { return "HTML Parser" }
