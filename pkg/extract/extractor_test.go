package extract

import (
	"archive/zip"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"golang.org/x/text/encoding/simplifiedchinese"
)

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestRegistryGetUnsupported(t *testing.T) {
	r := Default()
	_, err := r.Get("xlsx")
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("Get(xlsx) error = %v, want ErrUnsupportedFormat", err)
	}
	if !strings.Contains(err.Error(), "pdf") {
		t.Errorf("error %q does not list supported formats", err)
	}
}

func TestRegistryGetNormalizesExtension(t *testing.T) {
	r := Default()
	for _, ext := range []string{"txt", ".txt", "TXT", " .Txt "} {
		p, err := r.Get(ext)
		if err != nil {
			t.Fatalf("Get(%q) error = %v", ext, err)
		}
		if p.Name() != "Text Parser" {
			t.Errorf("Get(%q).Name() = %q, want %q", ext, p.Name(), "Text Parser")
		}
	}
}

func TestRegistrySupported(t *testing.T) {
	supported := Default().Supported()
	want := []string{"doc", "docx", "htm", "html", "markdown", "md", "pdf", "txt"}
	if len(supported) != len(want) {
		t.Fatalf("Supported() = %v, want %v", supported, want)
	}
	for i := range want {
		if supported[i] != want[i] {
			t.Fatalf("Supported() = %v, want %v", supported, want)
		}
	}
}

func TestTextParserUTF8(t *testing.T) {
	path := writeFile(t, "doc.txt", []byte("  hello world\n"))
	got, err := TextParser{}.Parse(path)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if got != "hello world" {
		t.Errorf("Parse() = %q, want %q", got, "hello world")
	}
}

func TestTextParserGBKFallback(t *testing.T) {
	encoded, err := simplifiedchinese.GBK.NewEncoder().Bytes([]byte("文献管理"))
	if err != nil {
		t.Fatalf("encode fixture: %v", err)
	}
	path := writeFile(t, "doc.txt", encoded)
	got, err := TextParser{}.Parse(path)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if got != "文献管理" {
		t.Errorf("Parse() = %q, want %q", got, "文献管理")
	}
}

func TestTextParserEmpty(t *testing.T) {
	path := writeFile(t, "doc.txt", []byte("   \n\t  "))
	_, err := TextParser{}.Parse(path)
	if !errors.Is(err, ErrExtractionFailed) {
		t.Fatalf("Parse() error = %v, want ErrExtractionFailed", err)
	}
}

func writeDocx(t *testing.T, documentXML string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "doc.docx")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create docx: %v", err)
	}
	zw := zip.NewWriter(f)
	w, err := zw.Create("word/document.xml")
	if err != nil {
		t.Fatalf("create document.xml: %v", err)
	}
	if _, err := w.Write([]byte(documentXML)); err != nil {
		t.Fatalf("write document.xml: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("close file: %v", err)
	}
	return path
}

func TestWordParserParagraphs(t *testing.T) {
	path := writeDocx(t, `<?xml version="1.0"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
  <w:body>
    <w:p><w:r><w:t>First paragraph</w:t></w:r></w:p>
    <w:p></w:p>
    <w:p><w:r><w:t>Second</w:t></w:r><w:r><w:t xml:space="preserve"> half</w:t></w:r></w:p>
  </w:body>
</w:document>`)
	got, err := WordParser{}.Parse(path)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	want := "First paragraph\n\nSecond half"
	if got != want {
		t.Errorf("Parse() = %q, want %q", got, want)
	}
}

func TestWordParserTabsAndBreaks(t *testing.T) {
	path := writeDocx(t, `<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
<w:body><w:p><w:r><w:t>a</w:t><w:tab/><w:t>b</w:t><w:br/><w:t>c</w:t></w:r></w:p></w:body>
</w:document>`)
	got, err := WordParser{}.Parse(path)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	want := "a\tb\nc"
	if got != want {
		t.Errorf("Parse() = %q, want %q", got, want)
	}
}

func TestWordParserNotAZip(t *testing.T) {
	path := writeFile(t, "legacy.doc", []byte("\xd0\xcf\x11\xe0 not a zip"))
	_, err := WordParser{}.Parse(path)
	if !errors.Is(err, ErrExtractionFailed) {
		t.Fatalf("Parse() error = %v, want ErrExtractionFailed", err)
	}
}

func TestWordParserNoText(t *testing.T) {
	path := writeDocx(t, `<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body></w:body></w:document>`)
	_, err := WordParser{}.Parse(path)
	if !errors.Is(err, ErrExtractionFailed) {
		t.Fatalf("Parse() error = %v, want ErrExtractionFailed", err)
	}
}

func TestHTMLParserSkipsScriptAndStyle(t *testing.T) {
	path := writeFile(t, "page.html", []byte(`<html>
<head><title>ignored</title><style>p{color:red}</style></head>
<body><p>Visible text</p><script>alert("no")</script><div>More</div></body>
</html>`))
	got, err := HTMLParser{}.Parse(path)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if !strings.Contains(got, "Visible text") || !strings.Contains(got, "More") {
		t.Errorf("Parse() = %q, want visible text preserved", got)
	}
	if strings.Contains(got, "alert") || strings.Contains(got, "color") || strings.Contains(got, "ignored") {
		t.Errorf("Parse() = %q, want script/style/head dropped", got)
	}
}

func TestHTMLParserEmpty(t *testing.T) {
	path := writeFile(t, "page.html", []byte(`<html><body><script>only()</script></body></html>`))
	_, err := HTMLParser{}.Parse(path)
	if !errors.Is(err, ErrExtractionFailed) {
		t.Fatalf("Parse() error = %v, want ErrExtractionFailed", err)
	}
}

func TestExtractDispatch(t *testing.T) {
	path := writeFile(t, "notes.md", []byte("# Heading\nbody"))
	got, err := Default().Extract(path, "md")
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if got != "# Heading\nbody" {
		t.Errorf("Extract() = %q, want %q", got, "# Heading\nbody")
	}
}
