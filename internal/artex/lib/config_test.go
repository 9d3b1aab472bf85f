package lib

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupExemptTest creates a cache root with the given hermetic-ignore content.
func setupExemptTest(t *testing.T, ignoreContent string) string {
	t.Helper()
	cacheDir := t.TempDir()
	if ignoreContent != "" {
		require.NoError(t, os.WriteFile(filepath.Join(cacheDir, HermeticIgnoreFilename), []byte(ignoreContent), 0644))
	}
	ResetExemptState()
	return cacheDir
}

func TestIsPathExempt(t *testing.T) {
	testCases := []struct {
		name           string
		ignoreContent  string
		pathToCheck    string
		shouldBeExempt bool
	}{
		{
			name:           "proc is always exempt",
			ignoreContent:  "",
			pathToCheck:    "/proc/self/maps",
			shouldBeExempt: true,
		},
		{
			name:           "ordinary paths are not exempt",
			ignoreContent:  "",
			pathToCheck:    "/etc/hosts",
			shouldBeExempt: false,
		},
		{
			name:           "user pattern exempts a file",
			ignoreContent:  "/etc/ld.so.cache\n",
			pathToCheck:    "/etc/ld.so.cache",
			shouldBeExempt: true,
		},
		{
			name:           "user directory pattern exempts a subtree",
			ignoreContent:  "/usr/lib/locale/\n",
			pathToCheck:    "/usr/lib/locale/C.utf8/LC_CTYPE",
			shouldBeExempt: true,
		},
		{
			name:           "comments are not patterns",
			ignoreContent:  "# /etc/hosts\n",
			pathToCheck:    "/etc/hosts",
			shouldBeExempt: false,
		},
		{
			name:           "patterns do not match unrelated paths",
			ignoreContent:  "/etc/ld.so.cache\n",
			pathToCheck:    "/etc/hosts",
			shouldBeExempt: false,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cacheDir := setupExemptTest(t, tc.ignoreContent)
			assert.Equal(t, tc.shouldBeExempt, IsPathExempt(cacheDir, tc.pathToCheck))
		})
	}
}

func TestEnsureCacheDirs(t *testing.T) {
	cacheDir := filepath.Join(t.TempDir(), "cache")

	paths, err := EnsureCacheDirs(cacheDir)
	require.NoError(t, err)

	assert.DirExists(t, paths.ObjectsDir)
	assert.DirExists(t, paths.PathIndexDir)
	assert.DirExists(t, paths.ActionsDir)

	// Idempotent.
	_, err = EnsureCacheDirs(cacheDir)
	require.NoError(t, err)
}

func TestCacheLayoutPaths(t *testing.T) {
	cacheDir := "/cache"

	assert.Equal(t, "/cache/objects/abc", GetObjectPath(cacheDir, "abc"))
	assert.Equal(t, "/cache/actions/abc", GetActionPath(cacheDir, "abc"))
	// Absolute real paths are mirrored verbatim under path-index/.
	assert.Equal(t, "/cache/path-index/tmp/a.txt", GetPathIndexPath(cacheDir, "/tmp/a.txt"))
}
