// Package extract turns checkable text out of the input formats the CLI and
// API accept: plain text, HTML and PDF.
package extract

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/ledongthuc/pdf"
	"golang.org/x/net/html"
)

// Kind identifies an input format.
type Kind string

const (
	KindText Kind = "text"
	KindHTML Kind = "html"
	KindPDF  Kind = "pdf"
)

// KindForPath guesses the input format from a file extension.
func KindForPath(path string) Kind {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return KindPDF
	case ".html", ".htm":
		return KindHTML
	default:
		return KindText
	}
}

// FromFile reads a file and extracts its text, picking the format from the
// file extension.
func FromFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	text, err := FromReader(f, KindForPath(path))
	if err != nil {
		return "", fmt.Errorf("extracting text from %s: %w", path, err)
	}
	return text, nil
}

// FromReader extracts text from r in the given format. The reader is fully
// consumed.
func FromReader(r io.Reader, kind Kind) (string, error) {
	switch kind {
	case KindPDF:
		data, err := io.ReadAll(r)
		if err != nil {
			return "", err
		}
		return pdfText(bytes.NewReader(data), int64(len(data)))
	case KindHTML:
		return htmlText(r)
	default:
		data, err := io.ReadAll(r)
		if err != nil {
			return "", err
		}
		// Strip a UTF-8 BOM so offsets line up with what editors show.
		data = bytes.TrimPrefix(data, []byte{0xEF, 0xBB, 0xBF})
		return string(data), nil
	}
}

func pdfText(ra io.ReaderAt, size int64) (string, error) {
	reader, err := pdf.NewReader(ra, size)
	if err != nil {
		return "", fmt.Errorf("reading pdf: %w", err)
	}
	plain, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("reading pdf text: %w", err)
	}
	data, err := io.ReadAll(plain)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// blockTags end a line in the extracted text so sentences from separate
// elements don't run together.
var blockTags = map[string]bool{
	"p": true, "div": true, "br": true, "li": true, "tr": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"blockquote": true, "pre": true, "section": true, "article": true,
}

func htmlText(r io.Reader) (string, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return "", fmt.Errorf("parsing html: %w", err)
	}

	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "noscript", "head":
				return
			}
		}
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if n.Type == html.ElementNode && blockTags[n.Data] {
			b.WriteByte('\n')
		}
	}
	walk(doc)

	return tidyLines(b.String()), nil
}

// tidyLines trims per-line whitespace and squeezes runs of blank lines left
// behind by markup.
func tidyLines(text string) string {
	lines := strings.Split(text, "\n")
	var out []string
	blank := true
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			if !blank {
				out = append(out, "")
			}
			blank = true
			continue
		}
		out = append(out, line)
		blank = false
	}
	for len(out) > 0 && out[len(out)-1] == "" {
		out = out[:len(out)-1]
	}
	return strings.Join(out, "\n")
}

// IgnoreLines blanks out every line matching the pattern while keeping the
// line breaks, so match positions still map onto the original file.
func IgnoreLines(text, pattern string) (string, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return "", fmt.Errorf("invalid ignore pattern: %w", err)
	}
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		if re.MatchString(line) {
			lines[i] = ""
		}
	}
	return strings.Join(lines, "\n"), nil
}
