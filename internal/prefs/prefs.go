// Package prefs holds the Preferences value that cascades from the source root
// down to each content file.
//
// A Prefs is immutable: every operation returns a new value built from deep
// copies, so sibling directories and files never observe each other's merges.
package prefs

import (
	"maps"
	"sort"
	"strings"
)

// Prefs is an immutable mapping from string keys to decoded YAML values.
type Prefs struct {
	m map[string]any
}

// Empty returns a Prefs with no keys.
func Empty() Prefs {
	return Prefs{}
}

// New returns a Prefs holding a deep copy of m.
func New(m map[string]any) Prefs {
	if len(m) == 0 {
		return Prefs{}
	}
	return Prefs{m: copyMap(m)}
}

// Merge returns p with override laid on top. A top-level key present in
// override replaces the base value wholesale; nested maps are not merged.
// Keys absent from override are retained. A base key written in dotted form
// ("page.scripts") belongs to its first segment, so an override of "page"
// replaces it too.
func (p Prefs) Merge(override map[string]any) Prefs {
	if len(override) == 0 {
		return p
	}
	out := make(map[string]any, len(p.m)+len(override))
	maps.Copy(out, p.m)
	for k := range p.m {
		head, _, dotted := strings.Cut(k, ".")
		if _, replaced := override[head]; dotted && replaced {
			delete(out, k)
		}
	}
	for k, v := range override {
		out[k] = copyValue(v)
	}
	return Prefs{m: out}
}

// MergePrefs is Merge with a Prefs override.
func (p Prefs) MergePrefs(override Prefs) Prefs {
	return p.Merge(override.m)
}

// Len returns the number of top-level keys.
func (p Prefs) Len() int {
	return len(p.m)
}

// Keys returns the top-level keys in sorted order.
func (p Prefs) Keys() []string {
	keys := make([]string, 0, len(p.m))
	for k := range p.m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Map returns a deep copy of the underlying mapping.
func (p Prefs) Map() map[string]any {
	return copyMap(p.m)
}

// Lookup resolves a dotted path such as "page.scripts". A literal top-level
// key equal to the full path wins; otherwise the path walks nested maps.
// The returned value is a copy.
func (p Prefs) Lookup(path string) (any, bool) {
	if v, ok := p.m[path]; ok {
		return copyValue(v), true
	}
	parts := strings.Split(path, ".")
	var cur any = p.m
	for _, part := range parts {
		m, ok := asStringMap(cur)
		if !ok {
			return nil, false
		}
		next, ok := m[part]
		if !ok {
			return nil, false
		}
		cur = next
	}
	return copyValue(cur), true
}

// Has reports whether Lookup(path) would succeed.
func (p Prefs) Has(path string) bool {
	_, ok := p.Lookup(path)
	return ok
}

// Sub returns the mapping at path as Prefs. It returns false when the path is
// absent or does not hold a mapping.
func (p Prefs) Sub(path string) (Prefs, bool) {
	v, ok := p.Lookup(path)
	if !ok {
		return Prefs{}, false
	}
	m, ok := asStringMap(v)
	if !ok {
		return Prefs{}, false
	}
	return Prefs{m: m}, true
}

// String returns the value at path when it is a string.
func (p Prefs) String(path string) (string, bool) {
	v, ok := p.Lookup(path)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

func asStringMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case map[any]any:
		out := make(map[string]any, len(m))
		for k, val := range m {
			ks, ok := k.(string)
			if !ok {
				return nil, false
			}
			out[ks] = val
		}
		return out, true
	}
	return nil, false
}

func copyMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = copyValue(v)
	}
	return out
}

func copyValue(v any) any {
	switch vv := v.(type) {
	case map[string]any:
		return copyMap(vv)
	case map[any]any:
		out := make(map[any]any, len(vv))
		for k, val := range vv {
			out[k] = copyValue(val)
		}
		return out
	case []any:
		out := make([]any, len(vv))
		for i, val := range vv {
			out[i] = copyValue(val)
		}
		return out
	default:
		return v
	}
}
