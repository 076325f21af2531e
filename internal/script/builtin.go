package script

import (
	"bytes"

	"github.com/yuin/goldmark"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Builtin is an in-process transform addressed as "@name".
type Builtin func(input []byte) ([]byte, error)

// DefaultBuiltins returns the transforms available without any external program.
func DefaultBuiltins() map[string]Builtin {
	return map[string]Builtin{
		"markdown": markdownToHTML,
		"upcase":   caser(func() cases.Caser { return cases.Upper(language.Und) }),
		"downcase": caser(func() cases.Caser { return cases.Lower(language.Und) }),
		"title":    caser(func() cases.Caser { return cases.Title(language.Und) }),
	}
}

func markdownToHTML(input []byte) ([]byte, error) {
	var buf bytes.Buffer
	if err := goldmark.Convert(input, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// caser builds a fresh Caser per call; a Caser keeps state and must not be shared.
func caser(newCaser func() cases.Caser) Builtin {
	return func(input []byte) ([]byte, error) {
		return newCaser().Bytes(input), nil
	}
}
