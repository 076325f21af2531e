package compose

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"

	"git.home.luguber.info/inful/incscript/internal/config"
	ferrors "git.home.luguber.info/inful/incscript/internal/foundation/errors"
	"git.home.luguber.info/inful/incscript/internal/frontmatter"
	"git.home.luguber.info/inful/incscript/internal/logfields"
	"git.home.luguber.info/inful/incscript/internal/observability"
	"git.home.luguber.info/inful/incscript/internal/prefs"
)

// Preference paths read by the composer.
const (
	KeyPageContents  = "page.contents"
	KeyPageScripts   = "page.scripts"
	KeyOnceCompiled  = "once_page_is_compiled"
	KeyOnceScripts   = "once_page_is_compiled.scripts"
	KeyOncePrepends  = "once_page_is_compiled.prepends"
	KeyOncePostpends = "once_page_is_compiled.postpends"
)

var (
	// ErrContentCycle is returned when a reference includes itself, directly or indirectly.
	ErrContentCycle = errors.New("content reference cycle")
	// ErrDepthExceeded is returned when nesting goes deeper than the configured limit.
	ErrDepthExceeded = errors.New("content nesting too deep")
)

// Piper runs text through a list of named scripts.
type Piper interface {
	Pipe(ctx context.Context, text []byte, names []string) ([]byte, error)
}

// Options tunes composition.
type Options struct {
	// Separator is placed between the prepend block, the body and the postpend block.
	Separator string
	MaxDepth  int
}

// Page is the result of compiling a content file.
type Page struct {
	// Fields is the file's own front matter, nil when it had none.
	Fields map[string]any
	Output []byte
}

// Composer compiles references against one content root. It holds no mutable
// state and is safe for concurrent use.
type Composer struct {
	root      string
	pipe      Piper
	separator []byte
	maxDepth  int
}

// New returns a Composer for the given content root.
func New(contentRoot string, pipe Piper, opts Options) (*Composer, error) {
	root, err := filepath.Abs(contentRoot)
	if err != nil {
		return nil, err
	}
	if resolved, err := filepath.EvalSymlinks(root); err == nil {
		root = resolved
	}
	maxDepth := opts.MaxDepth
	if maxDepth <= 0 {
		maxDepth = config.DefaultMaxDepth
	}
	return &Composer{root: root, pipe: pipe, separator: []byte(opts.Separator), maxDepth: maxDepth}, nil
}

// Root returns the absolute content root.
func (c *Composer) Root() string {
	return c.root
}

// Compile resolves ref and composes it with base as the inherited preferences.
func (c *Composer) Compile(ctx context.Context, ref string, base prefs.Prefs) ([]byte, error) {
	page, err := c.compile(ctx, ref, base, chain{})
	return page.Output, err
}

// CompilePage compiles a content file, also returning its own front matter.
// Unlike Compile, a ref that does not name a file under the root is an error.
func (c *Composer) CompilePage(ctx context.Context, ref string, base prefs.Prefs) (Page, error) {
	if _, _, ok := c.resolve(ref); !ok {
		return Page{}, ferrors.ContentError("not a content file under the content root").
			WithContext("reference", ref).Build()
	}
	return c.compile(ctx, ref, base, chain{})
}

// chain is the list of file references currently being compiled, outermost first.
type chain []string

func (ch chain) contains(key string) bool {
	for _, k := range ch {
		if k == key {
			return true
		}
	}
	return false
}

func (ch chain) with(key string) chain {
	next := make(chain, len(ch), len(ch)+1)
	copy(next, ch)
	return append(next, key)
}

func (c *Composer) compile(ctx context.Context, ref string, base prefs.Prefs, ch chain) (Page, error) {
	if err := ctx.Err(); err != nil {
		return Page{}, err
	}
	rel, abs, ok := c.resolve(ref)
	if !ok {
		return Page{Output: []byte(ref)}, nil
	}
	if ch.contains(rel) {
		return Page{}, ferrors.WrapError(ErrContentCycle, ferrors.CategoryContent, "content reference cycle").
			WithContext("reference", rel).
			WithContext("chain", strings.Join(ch.with(rel), " -> ")).
			Build()
	}
	if len(ch) >= c.maxDepth {
		return Page{}, ferrors.WrapError(ErrDepthExceeded, ferrors.CategoryContent, "content nesting too deep").
			WithContext("reference", rel).
			WithContext("max_depth", c.maxDepth).
			Build()
	}
	ch = ch.with(rel)
	ctx = observability.WithFile(ctx, rel)

	raw, err := os.ReadFile(abs)
	if err != nil {
		return Page{}, ferrors.WrapError(err, ferrors.CategoryFileSystem, "cannot read content file").
			WithContext("path", rel).Build()
	}
	doc, err := frontmatter.Parse(raw)
	if err != nil {
		return Page{}, ferrors.WrapError(err, ferrors.CategoryContent, "invalid front matter").
			WithContext("path", rel).Build()
	}
	if !doc.HasFrontMatter() {
		return Page{Output: doc.Body}, nil
	}

	p := base.Merge(doc.Fields)
	body, err := c.body(ctx, p, doc.Body, ch)
	if err != nil {
		return Page{}, err
	}
	if p.Has(KeyOnceCompiled) {
		if body, err = c.finish(ctx, p, body, ch); err != nil {
			return Page{}, err
		}
	}
	observability.DebugContext(ctx, "Composed content file", logfields.Path(rel), logfields.Count(len(body)))
	return Page{Fields: doc.Fields, Output: body}, nil
}

// body builds the page body from page.contents, or from page.scripts applied
// to the file's own body.
func (c *Composer) body(ctx context.Context, p prefs.Prefs, own []byte, ch chain) ([]byte, error) {
	if p.Has(KeyPageContents) {
		refs, err := stringList(p, KeyPageContents)
		if err != nil {
			return nil, err
		}
		return c.concat(ctx, refs, ch)
	}
	scripts, err := stringList(p, KeyPageScripts)
	if err != nil {
		return nil, err
	}
	return c.pipe.Pipe(ctx, own, scripts)
}

// finish applies the once_page_is_compiled stage.
func (c *Composer) finish(ctx context.Context, p prefs.Prefs, body []byte, ch chain) ([]byte, error) {
	scripts, err := stringList(p, KeyOnceScripts)
	if err != nil {
		return nil, err
	}
	if body, err = c.pipe.Pipe(ctx, body, scripts); err != nil {
		return nil, err
	}
	prepends, err := stringList(p, KeyOncePrepends)
	if err != nil {
		return nil, err
	}
	postpends, err := stringList(p, KeyOncePostpends)
	if err != nil {
		return nil, err
	}

	var out bytes.Buffer
	if len(prepends) > 0 {
		block, err := c.concat(ctx, prepends, ch)
		if err != nil {
			return nil, err
		}
		out.Write(block)
		out.Write(c.separator)
	}
	out.Write(body)
	if len(postpends) > 0 {
		block, err := c.concat(ctx, postpends, ch)
		if err != nil {
			return nil, err
		}
		out.Write(c.separator)
		out.Write(block)
	}
	return out.Bytes(), nil
}

func (c *Composer) concat(ctx context.Context, refs []string, ch chain) ([]byte, error) {
	var out bytes.Buffer
	for _, ref := range refs {
		page, err := c.compile(ctx, ref, prefs.Empty(), ch)
		if err != nil {
			return nil, err
		}
		out.Write(page.Output)
	}
	return out.Bytes(), nil
}

// resolve maps ref to a regular file under the content root. It returns the
// canonical slash-separated relative path and the absolute path. References
// that are absolute, escape the root or do not name a regular file are not
// file references.
func (c *Composer) resolve(ref string) (rel string, abs string, ok bool) {
	if ref == "" || strings.ContainsAny(ref, "\n\r\x00") {
		return "", "", false
	}
	clean := filepath.Clean(filepath.FromSlash(ref))
	if filepath.IsAbs(clean) || !filepath.IsLocal(clean) {
		return "", "", false
	}
	abs, err := filepath.EvalSymlinks(filepath.Join(c.root, clean))
	if err != nil {
		return "", "", false
	}
	rel, err = filepath.Rel(c.root, abs)
	if err != nil || !filepath.IsLocal(rel) {
		return "", "", false
	}
	info, err := os.Stat(abs)
	if err != nil || !info.Mode().IsRegular() {
		return "", "", false
	}
	return filepath.ToSlash(rel), abs, true
}

func stringList(p prefs.Prefs, key string) ([]string, error) {
	list, err := p.StringsAt(key)
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryContent, "invalid preference value").
			WithContext("key", key).Build()
	}
	return list, nil
}
