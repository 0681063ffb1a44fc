package buildtree

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCopy(t *testing.T) {
	src := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(src, "debian", "tests"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(src, "debian", "tests", "smoke"), []byte("#!/bin/sh\nexit 0\n"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(src, "README"), []byte("hello\n"), 0o644))
	require.NoError(t, os.Symlink("README", filepath.Join(src, "link")))

	tree, err := Copy(src, nil)
	require.NoError(t, err)
	defer tree.Remove() //nolint:errcheck

	// Contents carried over with permission bits.
	data, err := os.ReadFile(filepath.Join(tree.Root, "README"))
	require.NoError(t, err)
	assert.Equal(t, "hello\n", string(data))

	info, err := os.Stat(filepath.Join(tree.Root, "debian", "tests", "smoke"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o755), info.Mode().Perm())

	dest, err := os.Readlink(filepath.Join(tree.Root, "link"))
	require.NoError(t, err)
	assert.Equal(t, "README", dest)

	// Writes to the copy leave the original untouched.
	require.NoError(t, os.WriteFile(filepath.Join(tree.Root, "README"), []byte("scribbled\n"), 0o644))
	data, err = os.ReadFile(filepath.Join(src, "README"))
	require.NoError(t, err)
	assert.Equal(t, "hello\n", string(data))
}

func TestCopy_MissingSource(t *testing.T) {
	_, err := Copy(filepath.Join(t.TempDir(), "nope"), nil)
	assert.Error(t, err)
}

func TestTree_RemoveOnce(t *testing.T) {
	src := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(src, "f"), []byte("x"), 0o644))

	tree, err := Copy(src, nil)
	require.NoError(t, err)

	require.NoError(t, tree.Remove())
	assert.NoDirExists(t, tree.Root)

	// Second call is a no-op, not an error.
	assert.NoError(t, tree.Remove())
}
