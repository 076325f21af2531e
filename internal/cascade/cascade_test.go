package cascade

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/incscript/internal/config"
	ferrors "git.home.luguber.info/inful/incscript/internal/foundation/errors"
	"git.home.luguber.info/inful/incscript/internal/prefs"
)

func writeOverride(t *testing.T, dir, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, config.OverrideFileName), []byte(content), 0o644))
}

func TestCascade_NoOverride_ReturnsInherited(t *testing.T) {
	inherited := prefs.New(map[string]any{"title": "root"})
	got, err := Cascade(t.TempDir(), inherited)
	require.NoError(t, err)
	assert.Equal(t, inherited.Map(), got.Map())
}

func TestCascade_OverrideReplacesWholesale(t *testing.T) {
	dir := t.TempDir()
	writeOverride(t, dir, "page:\n  scripts: [b]\nlayout: post\n")
	inherited := prefs.New(map[string]any{
		"page":  map[string]any{"scripts": []any{"a"}, "contents": "x"},
		"title": "root",
	})

	got, err := Cascade(dir, inherited)
	require.NoError(t, err)

	assert.Equal(t, map[string]any{
		"page":   map[string]any{"scripts": []any{"b"}},
		"title":  "root",
		"layout": "post",
	}, got.Map())
	assert.True(t, inherited.Has("page.contents"), "inherited value is untouched")
}

func TestCascade_NestedDirectoriesFollowLaw(t *testing.T) {
	parent := t.TempDir()
	child := filepath.Join(parent, "child")
	require.NoError(t, os.Mkdir(child, 0o755))
	writeOverride(t, parent, "a: 1\nb: 1\n")
	writeOverride(t, child, "b: 2\n")

	root := prefs.New(map[string]any{"z": true})
	p1, err := Cascade(parent, root)
	require.NoError(t, err)
	p2, err := Cascade(child, p1)
	require.NoError(t, err)

	assert.Equal(t, map[string]any{"z": true, "a": 1, "b": 2}, p2.Map())
	assert.Equal(t, map[string]any{"z": true, "a": 1, "b": 1}, p1.Map())
}

func TestCascade_EmptyOverride_MergesNothing(t *testing.T) {
	dir := t.TempDir()
	writeOverride(t, dir, "")
	inherited := prefs.New(map[string]any{"k": "v"})

	got, err := Cascade(dir, inherited)
	require.NoError(t, err)
	assert.Equal(t, inherited.Map(), got.Map())
}

func TestCascade_BadOverride_IsFatalConfigError(t *testing.T) {
	dir := t.TempDir()
	writeOverride(t, dir, "page: [unclosed\n")

	_, err := Cascade(dir, prefs.Empty())
	require.Error(t, err)
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryConfig))
	assert.True(t, ferrors.IsFatal(err))
}

func TestCascade_NonMappingOverride_IsError(t *testing.T) {
	dir := t.TempDir()
	writeOverride(t, dir, "- a\n- b\n")

	_, err := Cascade(dir, prefs.Empty())
	assert.Error(t, err)
}
