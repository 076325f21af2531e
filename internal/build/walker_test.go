package build

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ferrors "git.home.luguber.info/inful/incscript/internal/foundation/errors"
	"git.home.luguber.info/inful/incscript/internal/testutil"
)

func noPath(string) (string, error) { return "", errors.New("not found") }

func runBuild(t *testing.T, src, dest string, opts BuildOptions) *BuildResult {
	t.Helper()
	result, err := NewBuildService().WithLookPath(noPath).Run(context.Background(), BuildRequest{
		SourceRoot:      src,
		DestinationRoot: dest,
		Options:         opts,
	})
	require.NoError(t, err)
	return result
}

func readOut(t *testing.T, dest, rel string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(dest, filepath.FromSlash(rel)))
	require.NoError(t, err)
	return string(data)
}

const siteConfig = `
create_wrapper_folder:
  extensions: [md]
passthrough:
  extensions: [png]
  paths: [.htaccess, static]
site_name: demo
`

func siteFiles() map[string]string {
	return map[string]string{
		"about.md":              "---\npage:\n  scripts: \"@upcase\"\n---\nabout us",
		"readme.txt":            "plain readme\n",
		"_header.html":          "<header>",
		"_drafts/secret.md":     "never published",
		".htaccess":             "---\nnot: front matter\n---\n",
		"logo.png":              "\x89PNG\r\n\x1a\n---\x00",
		"static/raw.md":         "---\ntitle: raw\n---\nkept",
		"blog/_incscript.yaml":  "page:\n  scripts: \"@downcase\"\n",
		"blog/post.md":          "---\ntitle: Post\n---\nHELLO POST",
		"blog/plain.txt":        "UNTOUCHED",
		"blog/deep/nested.html": "---\nonce_page_is_compiled:\n  prepends: [_header.html]\n---\n<main>",
	}
}

func TestWalk_BuildsMirroredTree(t *testing.T) {
	src := testutil.NewSource(t, siteConfig, siteFiles())
	dest := filepath.Join(t.TempDir(), "out")

	result := runBuild(t, src, dest, BuildOptions{})
	assert.Equal(t, BuildStatusSuccess, result.Status)

	assert.Equal(t, map[string]string{
		"about/index.html":      "ABOUT US",
		"readme.txt":            "plain readme\n",
		".htaccess":             "---\nnot: front matter\n---\n",
		"logo.png":              "\x89PNG\r\n\x1a\n---\x00",
		"static/raw.md":         "---\ntitle: raw\n---\nkept",
		"blog/post/index.html":  "hello post",
		"blog/plain.txt":        "UNTOUCHED",
		"blog/deep/nested.html": "<header><main>",
	}, testutil.ReadTree(t, dest))

	assert.Equal(t, 3, result.Report.Count("passthrough"))
	assert.Empty(t, result.Report.Skipped())
}

func TestWalk_ExcludedNamesNeverAppear(t *testing.T) {
	src := testutil.NewSource(t, siteConfig, siteFiles())
	dest := t.TempDir()
	runBuild(t, src, dest, BuildOptions{})

	for rel := range testutil.ReadTree(t, dest) {
		for _, part := range strings.Split(rel, "/") {
			assert.False(t, strings.HasPrefix(part, "_"), rel)
		}
	}
	assert.NoDirExists(t, filepath.Join(dest, "_drafts"))
	assert.NoFileExists(t, filepath.Join(dest, "_header.html"))
	assert.NoFileExists(t, filepath.Join(dest, "blog", "_incscript.yaml"))
}

func TestWalk_IsIdempotentAndDestructive(t *testing.T) {
	src := testutil.NewSource(t, siteConfig, siteFiles())
	dest := t.TempDir()

	first := runBuild(t, src, dest, BuildOptions{})
	tree := testutil.ReadTree(t, dest)

	require.NoError(t, os.WriteFile(filepath.Join(dest, "stale.txt"), []byte("old"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(dest, "blog", "gone"), 0o755))

	second := runBuild(t, src, dest, BuildOptions{})
	assert.Equal(t, tree, testutil.ReadTree(t, dest))
	assert.NoDirExists(t, filepath.Join(dest, "blog", "gone"))
	assert.Equal(t, first.Manifest().Hash(), second.Manifest().Hash())
	assert.NotEqual(t, first.BuildID, second.BuildID)
}

func TestWalk_ConcurrentWorkersMatchSequential(t *testing.T) {
	files := siteFiles()
	for _, d := range []string{"a", "b", "c", "d", "e"} {
		files[d+"/index.md"] = "---\npage:\n  scripts: \"@upcase\"\n---\n" + d
		files[d+"/sub/leaf.txt"] = d
	}
	src := testutil.NewSource(t, siteConfig, files)

	seqDest, parDest := t.TempDir(), t.TempDir()
	seq := runBuild(t, src, seqDest, BuildOptions{Workers: 1})
	par := runBuild(t, src, parDest, BuildOptions{Workers: 4})

	assert.Equal(t, testutil.ReadTree(t, seqDest), testutil.ReadTree(t, parDest))
	assert.Equal(t, seq.Manifest().Hash(), par.Manifest().Hash())
}

func TestWalk_WrapperFolderSurvivesSiblingDirectory(t *testing.T) {
	src := testutil.NewSource(t, siteConfig, map[string]string{
		"about.md":        "about page",
		"about/team.txt":  "team",
		"about/index.txt": "index",
	})
	dest := t.TempDir()

	result := runBuild(t, src, dest, BuildOptions{})
	assert.Equal(t, "about page", readOut(t, dest, "about/index.html"))
	assert.Equal(t, "team", readOut(t, dest, "about/team.txt"))
	assert.Zero(t, result.Report.Collisions())
}

func TestWalk_CollisionKeepsLaterFile(t *testing.T) {
	src := testutil.NewSource(t, siteConfig, map[string]string{
		"about.md":         "from about.md",
		"about/index.html": "from directory",
	})
	dest := t.TempDir()

	result := runBuild(t, src, dest, BuildOptions{})
	assert.Equal(t, "from about.md", readOut(t, dest, "about/index.html"))
	assert.Equal(t, 1, result.Report.Collisions())
	assert.Equal(t, BuildStatusSuccess, result.Status)
	entries := result.Report.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, "about.md", entries[0].Source)
}

func TestWalk_PerFileErrorsArePartial(t *testing.T) {
	src := testutil.NewSource(t, siteConfig, map[string]string{
		"bad.md":  "---\n: [unclosed\n---\nbody",
		"loop.md": "---\npage:\n  contents: [loop.md]\n---\n",
		"good.md": "fine",
	})
	dest := t.TempDir()

	result := runBuild(t, src, dest, BuildOptions{})
	assert.Equal(t, BuildStatusPartial, result.Status)
	assert.Equal(t, "fine", readOut(t, dest, "good/index.html"))
	assert.NoDirExists(t, filepath.Join(dest, "bad"))

	skipped := result.Report.Skipped()
	require.Len(t, skipped, 2)
	assert.Equal(t, "bad.md", skipped[0].Path)
	assert.True(t, ferrors.HasCategory(skipped[0].Err, ferrors.CategoryContent))
	assert.Equal(t, "loop.md", skipped[1].Path)
}

func TestWalk_BadOverrideSkipsOnlyItsSubtree(t *testing.T) {
	src := testutil.NewSource(t, siteConfig, map[string]string{
		"broken/_incscript.yaml": "page: [unclosed",
		"broken/page.txt":        "hidden",
		"fine/page.txt":          "shown",
	})
	dest := t.TempDir()

	result := runBuild(t, src, dest, BuildOptions{})
	assert.Equal(t, BuildStatusPartial, result.Status)
	assert.NoDirExists(t, filepath.Join(dest, "broken"))
	assert.Equal(t, "shown", readOut(t, dest, "fine/page.txt"))

	skipped := result.Report.Skipped()
	require.Len(t, skipped, 1)
	assert.Equal(t, "broken/_incscript.yaml", skipped[0].Path)
	assert.True(t, ferrors.HasCategory(skipped[0].Err, ferrors.CategoryConfig))
}

func TestWalk_BadRootOverrideClearsPreviousOutput(t *testing.T) {
	src := testutil.NewSource(t, siteConfig, map[string]string{
		"page.txt":      "v1",
		"blog/post.txt": "v1",
	})
	dest := t.TempDir()
	runBuild(t, src, dest, BuildOptions{})
	require.Equal(t, "v1", readOut(t, dest, "page.txt"))

	content := filepath.Join(src, "filesystem")
	require.NoError(t, os.Remove(filepath.Join(content, "page.txt")))
	require.NoError(t, os.WriteFile(filepath.Join(content, "_incscript.yaml"), []byte("page: [unclosed"), 0o644))

	result := runBuild(t, src, dest, BuildOptions{})
	assert.Equal(t, BuildStatusPartial, result.Status)
	assert.DirExists(t, dest)
	assert.Empty(t, testutil.ReadTree(t, dest), "no stale output survives a skipped root")
	require.Len(t, result.Report.Skipped(), 1)
	assert.Equal(t, "_incscript.yaml", result.Report.Skipped()[0].Path)
}

func TestWalk_BadOverrideRemovesStaleSubtree(t *testing.T) {
	src := testutil.NewSource(t, siteConfig, map[string]string{
		"blog/post.txt": "v1",
	})
	dest := t.TempDir()
	runBuild(t, src, dest, BuildOptions{})
	require.FileExists(t, filepath.Join(dest, "blog", "post.txt"))

	require.NoError(t, os.WriteFile(filepath.Join(src, "filesystem", "blog", "_incscript.yaml"), []byte("page: [unclosed"), 0o644))

	result := runBuild(t, src, dest, BuildOptions{})
	assert.Equal(t, BuildStatusPartial, result.Status)
	assert.NoDirExists(t, filepath.Join(dest, "blog"))
}

func TestWalk_SymlinkLeavingContentRootIsIgnored(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks need privileges on windows")
	}
	outside := filepath.Join(t.TempDir(), "secret.txt")
	require.NoError(t, os.WriteFile(outside, []byte("secret"), 0o644))
	src := testutil.NewSource(t, siteConfig, map[string]string{
		"page.txt": "shown",
	})
	content := filepath.Join(src, "filesystem")
	require.NoError(t, os.Symlink(outside, filepath.Join(content, "leak.txt")))
	require.NoError(t, os.Symlink("page.txt", filepath.Join(content, "alias.txt")))
	dest := t.TempDir()

	result := runBuild(t, src, dest, BuildOptions{})
	assert.Equal(t, BuildStatusSuccess, result.Status)
	assert.Empty(t, result.Report.Skipped())
	assert.Equal(t, map[string]string{
		"alias.txt": "shown",
		"page.txt":  "shown",
	}, testutil.ReadTree(t, dest))
}

func TestWalk_FailFastAbortsRun(t *testing.T) {
	src := testutil.NewSource(t, siteConfig, map[string]string{
		"broken/_incscript.yaml": "page: [unclosed",
		"fine/page.txt":          "shown",
	})
	failFast := true

	result, err := NewBuildService().WithLookPath(noPath).Run(context.Background(), BuildRequest{
		SourceRoot:      src,
		DestinationRoot: t.TempDir(),
		Options:         BuildOptions{FailFast: &failFast},
	})
	require.ErrorIs(t, err, ErrSubtreeAborted)
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryRuntime))
	assert.Equal(t, BuildStatusFailed, result.Status)
}

func TestWalk_CanceledContext(t *testing.T) {
	src := testutil.NewSource(t, siteConfig, siteFiles())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := NewBuildService().Run(ctx, BuildRequest{SourceRoot: src, DestinationRoot: t.TempDir()})
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, BuildStatusCancelled, result.Status)
}

func TestWalk_ScriptsDirectoryPipeline(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts are not supported on windows")
	}
	src := testutil.NewSource(t, siteConfig, map[string]string{
		"index.md": "---\npage:\n  scripts: [upcase]\n---\nhello",
		"file.md":  "---\npage:\n  scripts: [whoami]\n---\n",
	})
	testutil.AddScript(t, src, "upcase", "#!/bin/sh\ntr '[:lower:]' '[:upper:]'\n")
	testutil.AddScript(t, src, "whoami", "#!/bin/sh\nprintf '%s' \"$INCSCRIPT_FILE\"\n")
	dest := t.TempDir()

	runBuild(t, src, dest, BuildOptions{})
	assert.Equal(t, "HELLO", readOut(t, dest, "index/index.html"))
	assert.Equal(t, "file.md", readOut(t, dest, "file/index.html"))
}

func TestWalk_PassthroughIsByteIdentical(t *testing.T) {
	binary := bytes.Repeat([]byte{0x00, 0xff, '-', '-', '-', '\n'}, 64)
	src := testutil.NewSource(t, siteConfig, map[string]string{"img/photo.png": string(binary)})
	dest := t.TempDir()

	runBuild(t, src, dest, BuildOptions{})
	got, err := os.ReadFile(filepath.Join(dest, "img", "photo.png"))
	require.NoError(t, err)
	assert.Equal(t, binary, got)
}
