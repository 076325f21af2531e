package prefs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestMerge_ReplacesSharedKeysWholesale(t *testing.T) {
	base := New(map[string]any{
		"page":  map[string]any{"scripts": []any{"a"}, "contents": "x.txt"},
		"title": "root",
	})
	merged := base.Merge(map[string]any{
		"page": map[string]any{"scripts": []any{"b"}},
	})

	page, ok := merged.Lookup("page")
	require.True(t, ok)
	assert.Equal(t, map[string]any{"scripts": []any{"b"}}, page, "nested maps are replaced, not merged")
	title, _ := merged.String("title")
	assert.Equal(t, "root", title, "keys absent from the override are retained")
	assert.False(t, merged.Has("page.contents"))
}

func TestMerge_NestedOverrideReplacesDottedBaseKey(t *testing.T) {
	base := New(map[string]any{
		"page.scripts":  "upcase",
		"page.contents": "x.txt",
		"pagination":    true,
	})
	merged := base.Merge(map[string]any{
		"page": map[string]any{"scripts": "downcase"},
	})

	scripts, err := merged.StringsAt("page.scripts")
	require.NoError(t, err)
	assert.Equal(t, []string{"downcase"}, scripts)
	assert.False(t, merged.Has("page.contents"))
	assert.True(t, merged.Has("pagination"))
	assert.True(t, base.Has("page.contents"), "base is untouched")
}

func TestMerge_DottedOverrideWinsOverNestedBase(t *testing.T) {
	base := New(map[string]any{"page": map[string]any{"scripts": "upcase"}})
	merged := base.Merge(map[string]any{"page.scripts": "downcase"})

	scripts, err := merged.StringsAt("page.scripts")
	require.NoError(t, err)
	assert.Equal(t, []string{"downcase"}, scripts)
}

func TestMerge_DoesNotMutateBase(t *testing.T) {
	base := New(map[string]any{"k": "base"})
	_ = base.Merge(map[string]any{"k": "override", "extra": 1})

	v, _ := base.String("k")
	assert.Equal(t, "base", v)
	assert.Equal(t, 1, base.Len())
}

func TestNew_CopiesInput(t *testing.T) {
	src := map[string]any{"list": []any{"a"}, "nested": map[string]any{"x": 1}}
	p := New(src)

	src["list"].([]any)[0] = "mutated"
	src["nested"].(map[string]any)["x"] = 2

	list, _ := p.StringsAt("list")
	assert.Equal(t, []string{"a"}, list)
	x, _ := p.Lookup("nested.x")
	assert.Equal(t, 1, x)
}

func TestLookup_ReturnsCopies(t *testing.T) {
	p := New(map[string]any{"page": map[string]any{"scripts": []any{"a"}}})
	v, _ := p.Lookup("page")
	v.(map[string]any)["scripts"] = []any{"changed"}

	list, err := p.StringsAt("page.scripts")
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, list)
}

func TestLookup_LiteralDottedKeyWins(t *testing.T) {
	p := New(map[string]any{
		"page.scripts": "literal",
		"page":         map[string]any{"scripts": "nested"},
	})
	v, ok := p.String("page.scripts")
	require.True(t, ok)
	assert.Equal(t, "literal", v)
}

func TestLookup_ThroughNonMapFails(t *testing.T) {
	p := New(map[string]any{"page": "flat"})
	assert.False(t, p.Has("page.scripts"))
	_, ok := p.Sub("page")
	assert.False(t, ok)
}

func TestSub_ReturnsNestedPrefs(t *testing.T) {
	p := New(map[string]any{"once_page_is_compiled": map[string]any{"prepends": "_header.html"}})
	sub, ok := p.Sub("once_page_is_compiled")
	require.True(t, ok)
	list, err := sub.StringsAt("prepends")
	require.NoError(t, err)
	assert.Equal(t, []string{"_header.html"}, list)
	assert.Equal(t, []string{"prepends"}, sub.Keys())
}

func TestCascadeLaw(t *testing.T) {
	// effective(D) == replaceMerge(effective(parent(D)), override(D)) at every level.
	root := New(map[string]any{"a": 1, "b": map[string]any{"x": 1}})
	overrides := []map[string]any{
		{"b": map[string]any{"y": 2}},
		{},
		{"a": 3, "c": "new"},
	}
	eff := root
	for _, o := range overrides {
		next := eff.Merge(o)
		for _, k := range eff.Keys() {
			if _, overridden := o[k]; overridden {
				continue
			}
			want, _ := eff.Lookup(k)
			got, _ := next.Lookup(k)
			assert.Equal(t, want, got)
		}
		for k, v := range o {
			got, _ := next.Lookup(k)
			assert.Equal(t, v, got)
		}
		eff = next
	}
	assert.Equal(t, []string{"a", "b", "c"}, eff.Keys())
}

func TestStrings_Normalization(t *testing.T) {
	cases := []struct {
		name string
		in   any
		want []string
	}{
		{"nil", nil, nil},
		{"single", "a.txt", []string{"a.txt"}},
		{"list", []any{"a.txt", "b.txt"}, []string{"a.txt", "b.txt"}},
		{"number", 42, []string{"42"}},
		{"mixed scalars", []any{"a", 1, true}, []string{"a", "1", "true"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Strings(tc.in)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got.Items())
		})
	}

	_, err := Strings(map[string]any{"k": "v"})
	assert.Error(t, err)
	_, err = Strings([]any{"ok", []any{"nested"}})
	assert.Error(t, err)
}

func TestOneOrMany_UnmarshalYAML(t *testing.T) {
	var doc struct {
		One  OneOrMany[string] `yaml:"one"`
		Many OneOrMany[string] `yaml:"many"`
		None OneOrMany[string] `yaml:"none"`
	}
	require.NoError(t, yaml.Unmarshal([]byte("one: md\nmany: [md, html]\nnone: null\n"), &doc))
	assert.Equal(t, []string{"md"}, doc.One.Items())
	assert.Equal(t, []string{"md", "html"}, doc.Many.Items())
	assert.Empty(t, doc.None.Items())

	out, err := yaml.Marshal(doc)
	require.NoError(t, err)
	assert.Contains(t, string(out), "one: md\n")
}
