package filter_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/idelchi/unqmc/internal/filter"
)

func touch(t *testing.T, root string, names ...string) {
	t.Helper()

	for _, name := range names {
		path := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, nil, 0o600))
	}
}

func rel(t *testing.T, root string, paths []string) []string {
	t.Helper()

	out := make([]string, 0, len(paths))

	for _, p := range paths {
		r, err := filepath.Rel(root, p)
		require.NoError(t, err)

		out = append(out, filepath.ToSlash(r))
	}

	return out
}

func TestResolveDefaultsToTracks(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	touch(t, root, "a/one.mflac", "a/two.mflac0", "b/three.mgg1", "b/four.mmp4", "b/cover.jpg", "notes.txt")

	files, scanned, err := filter.Resolve([]string{root}, filter.Selection{})
	require.NoError(t, err)

	assert.Equal(t, 6, scanned)
	assert.ElementsMatch(t, []string{"a/one.mflac", "a/two.mflac0", "b/three.mgg1", "b/four.mmp4"}, rel(t, root, files))
}

func TestResolveIncludeExclude(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	touch(t, root, "a/one.mflac", "a/two.mgg", "b/three.mflac")

	files, _, err := filter.Resolve([]string{root}, filter.Selection{
		Include: []string{"*.mflac"},
		Exclude: []string{"*/b/*"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"a/one.mflac"}, rel(t, root, files))
}

func TestResolveExplicitFileBypassesFilter(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	touch(t, root, "song.bin")

	files, scanned, err := filter.Resolve([]string{filepath.Join(root, "song.bin")}, filter.Selection{})
	require.NoError(t, err)
	assert.Equal(t, 1, scanned)
	assert.Len(t, files, 1)
}

func TestResolveNothingMatched(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	touch(t, root, "cover.jpg")

	_, _, err := filter.Resolve([]string{root}, filter.Selection{})
	require.ErrorContains(t, err, "no tracks matched")
}

func TestSelectionPatternsFromFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "include.jsonc")
	require.NoError(t, os.WriteFile(path, []byte(`[
  // lossless only
  "./*.mflac*",
]`), 0o600))

	includes, excludes, hasIncludes, err := filter.Selection{
		Include:     []string{"./extra/*"},
		IncludeFrom: path,
	}.Patterns()
	require.NoError(t, err)

	assert.True(t, hasIncludes)
	assert.Equal(t, []string{"extra/*", "*.mflac*"}, includes)
	assert.Empty(t, excludes)
}

func TestSelectionWidensTrackExtensions(t *testing.T) {
	t.Parallel()

	includes, excludes, hasIncludes, err := filter.Selection{
		Include: []string{".mgg", "./.MFLAC"},
		Exclude: []string{".mmp4", "*.mgg"},
	}.Patterns()
	require.NoError(t, err)

	assert.True(t, hasIncludes)
	assert.Equal(t, []string{"*.mgg*", "*.mflac*"}, includes)
	assert.Equal(t, []string{"*.mmp4", "*.mgg"}, excludes, "globs are left alone")
}

func TestResolveByTrackExtension(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	touch(t, root, "a/one.mgg", "a/two.mgg1", "a/three.mggl", "a/four.mflac")

	files, _, err := filter.Resolve([]string{root}, filter.Selection{Include: []string{".mgg"}})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a/one.mgg", "a/two.mgg1", "a/three.mggl"}, rel(t, root, files))
}

func TestSelectionRejectsMalformedFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "exclude.jsonc")
	require.NoError(t, os.WriteFile(path, []byte(`{"exclude": "*.mgg"}`), 0o600))

	_, _, _, err := filter.Selection{ExcludeFrom: path}.Patterns()
	require.ErrorContains(t, err, "loading exclude patterns")
}

func TestWalk(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	touch(t, root, "x/a.mflac", "x/b.txt")

	paths, err := filter.Walk([]string{root, filepath.Join(root, "x", "a.mflac")})
	require.NoError(t, err)
	assert.Len(t, paths, 2)
}
