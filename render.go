package chainpost

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"gopkg.in/yaml.v3"
)

// ContentRenderer turns a stored body into a display document: it strips and
// parses the leading header block, then renders the remaining markdown to
// HTML.
type ContentRenderer struct {
	content *ContentStore
	md      goldmark.Markdown
}

// NewContentRenderer returns a renderer reading bodies from content.
func NewContentRenderer(content *ContentStore) *ContentRenderer {
	return &ContentRenderer{
		content: content,
		md: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
		),
	}
}

// Render reads the body at contentPath and produces a Document. A missing
// body file is reported as ErrNotFound.
func (r *ContentRenderer) Render(contentPath string) (Document, error) {
	raw, err := r.content.Read(contentPath)
	if err != nil {
		return Document{}, err
	}
	header, body := splitHeader(raw)

	var doc Document
	if len(header) > 0 {
		var h struct {
			Title    string `yaml:"title"`
			Author   string `yaml:"author"`
			Date     string `yaml:"date"`
			Category string `yaml:"category"`
			Image    string `yaml:"image"`
			Featured bool   `yaml:"featured"`
		}
		if err := yaml.Unmarshal(header, &h); err != nil {
			return Document{}, fmt.Errorf("parse header of %s: %w", contentPath, err)
		}
		doc.Title = h.Title
		doc.Author = h.Author
		doc.Date = h.Date
		doc.Category = h.Category
		doc.Image = h.Image
		doc.Featured = h.Featured
	}

	var buf bytes.Buffer
	if err := r.md.Convert(body, &buf); err != nil {
		return Document{}, fmt.Errorf("render %s: %w", contentPath, err)
	}
	doc.HTML = buf.String()
	return doc, nil
}

const headerDelim = "---"

// splitHeader separates the delimited header block from the markdown body.
// Bodies without a header block are returned whole.
func splitHeader(raw []byte) (header, body []byte) {
	text := string(raw)
	if !strings.HasPrefix(text, headerDelim+"\n") && !strings.HasPrefix(text, headerDelim+"\r\n") {
		return nil, raw
	}
	rest := text[len(headerDelim):]
	rest = strings.TrimPrefix(rest, "\r\n")
	rest = strings.TrimPrefix(rest, "\n")
	end := strings.Index(rest, "\n"+headerDelim)
	if end < 0 {
		return nil, raw
	}
	header = []byte(rest[:end+1])
	after := rest[end+1+len(headerDelim):]
	// Swallow the delimiter's own line ending and one blank separator line.
	// Further blank lines belong to the body.
	after = trimOneNewline(after)
	after = trimOneNewline(after)
	return header, []byte(after)
}

func trimOneNewline(s string) string {
	if strings.HasPrefix(s, "\r\n") {
		return s[2:]
	}
	return strings.TrimPrefix(s, "\n")
}
