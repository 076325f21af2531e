// Package frontmatter splits content files into a YAML metadata block and a body.
//
// The metadata block is bracketed by lines whose trimmed content is exactly
// `---`. Every such line toggles between metadata and body and is dropped from
// both. Lines keep their original terminators, so a file without delimiters
// comes back byte-for-byte as its body.
//
// Known limitation: a body line that is exactly `---` (a Markdown thematic
// break, for example) is indistinguishable from a delimiter and is consumed as
// one. Use `***` or `___` for horizontal rules in content files.
package frontmatter

import (
	"bytes"
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Delimiter is the line that opens and closes a metadata block.
const Delimiter = "---"

// ErrDecode indicates the metadata block is not a valid YAML mapping.
var ErrDecode = errors.New("front matter is not a valid YAML mapping")

// Document is a content file split into its front matter and body.
type Document struct {
	// Fields holds the decoded metadata. It is nil when the file carries no
	// metadata or an empty block.
	Fields map[string]any
	Body   []byte
}

// HasFrontMatter reports whether the document carried a non-empty metadata block.
func (d Document) HasFrontMatter() bool {
	return len(d.Fields) > 0
}

// Split scans content line by line and separates metadata lines from body lines.
func Split(content []byte) (meta []byte, body []byte) {
	inside := false
	rest := content
	for len(rest) > 0 {
		line := rest
		if i := bytes.IndexByte(rest, '\n'); i >= 0 {
			line = rest[:i+1]
		}
		rest = rest[len(line):]

		if string(bytes.TrimSpace(line)) == Delimiter {
			inside = !inside
			continue
		}
		if inside {
			meta = append(meta, line...)
		} else {
			body = append(body, line...)
		}
	}
	return meta, body
}

// Parse splits content and decodes its metadata block.
func Parse(content []byte) (Document, error) {
	meta, body := Split(content)
	fields, err := ParseYAML(meta)
	if err != nil {
		return Document{Body: body}, err
	}
	return Document{Fields: fields, Body: body}, nil
}

// ParseYAML decodes a raw metadata block (without delimiters). A block that is
// empty or holds only whitespace yields nil fields.
func ParseYAML(meta []byte) (map[string]any, error) {
	if len(bytes.TrimSpace(meta)) == 0 {
		return nil, nil
	}
	var fields map[string]any
	if err := yaml.Unmarshal(meta, &fields); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	return fields, nil
}
