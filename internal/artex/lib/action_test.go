package lib

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSerializeEnvironment(t *testing.T) {
	env := map[string]string{
		"PATH": "/usr/bin:/bin",
		"A":    "1",
		"HOME": "/root",
	}

	serialized := string(SerializeEnvironment(env))
	assert.Equal(t, "A=1\nHOME=/root\nPATH=/usr/bin:/bin\n", serialized)

	// Identical maps always serialize identically.
	assert.Equal(t, serialized, string(SerializeEnvironment(map[string]string{
		"HOME": "/root", "A": "1", "PATH": "/usr/bin:/bin",
	})))
}

func TestParseEnvironment(t *testing.T) {
	env, err := ParseEnvironment(strings.NewReader("A=1\n\nB=x=y\n"))
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"A": "1", "B": "x=y"}, env)

	_, err = ParseEnvironment(strings.NewReader("no-equals-sign\n"))
	assert.ErrorIs(t, err, ErrConfig)
}

func TestSerializeArgs(t *testing.T) {
	assert.Equal(t, "a\nb c\n", string(SerializeArgs([]string{"a", "b c"})))
	assert.Equal(t, "", string(SerializeArgs(nil)))
}

func TestSerializeWorkingDir(t *testing.T) {
	// The actual directory string is persisted, never an empty line.
	assert.Equal(t, "/work/src\n", string(SerializeWorkingDir("/work/src")))
}

// setupKeyedAction creates a program and input files and returns the pieces
// needed to compute action keys against a fresh store.
func setupKeyedAction(t *testing.T) (store *Store, program string, inputs []string) {
	t.Helper()
	store = newTestStore(t)

	dir := t.TempDir()
	program = filepath.Join(dir, "tool.sh")
	writeAgedFile(t, program, []byte("#!/bin/sh\n"))

	inputA := filepath.Join(dir, "a.txt")
	inputB := filepath.Join(dir, "b.txt")
	writeAgedFile(t, inputA, []byte("aaa\n"))
	writeAgedFile(t, inputB, []byte("bbb\n"))

	return store, program, []string{inputA, inputB}
}

func TestComputeActionKey(t *testing.T) {
	t.Run("all five components and the key line become objects", func(t *testing.T) {
		store, program, inputs := setupKeyedAction(t)

		key, err := ComputeActionKey(store, "/work", map[string]string{"A": "1"}, program, []string{"x"}, inputs)
		require.NoError(t, err)

		for _, digest := range []string{key.ID, key.WorkingDir, key.Env, key.Program, key.Args, key.Inputs} {
			assert.True(t, store.ObjectExists(digest), "digest %s must be stored as an object", digest)
		}

		// The identifier is the hash of the joined sub-digests.
		keyLine := JoinDigests(key.WorkingDir, key.Env, key.Program, key.Args, key.Inputs)
		assert.Equal(t, GetHash(keyLine), key.ID)

		// The inputs manifest covers the declared inputs plus the program.
		assert.Len(t, key.InputsManifest, 3)
	})

	t.Run("declared input order never changes the identifier", func(t *testing.T) {
		store, program, inputs := setupKeyedAction(t)

		key1, err := ComputeActionKey(store, "/work", nil, program, nil, []string{inputs[0], inputs[1]})
		require.NoError(t, err)
		key2, err := ComputeActionKey(store, "/work", nil, program, nil, []string{inputs[1], inputs[0]})
		require.NoError(t, err)

		assert.Equal(t, key1.ID, key2.ID)
	})

	t.Run("changing an input's content changes the identifier", func(t *testing.T) {
		store, program, inputs := setupKeyedAction(t)

		key1, err := ComputeActionKey(store, "/work", nil, program, nil, inputs)
		require.NoError(t, err)

		// Rewrite with a current mtime: the path-index stamp no longer
		// dominates the file, so the next keying rehashes it.
		require.NoError(t, os.WriteFile(inputs[0], []byte("changed\n"), 0644))
		key2, err := ComputeActionKey(store, "/work", nil, program, nil, inputs)
		require.NoError(t, err)

		assert.NotEqual(t, key1.ID, key2.ID)
	})

	t.Run("changing the arguments changes the identifier", func(t *testing.T) {
		store, program, inputs := setupKeyedAction(t)

		key1, err := ComputeActionKey(store, "/work", nil, program, []string{"a"}, inputs)
		require.NoError(t, err)
		key2, err := ComputeActionKey(store, "/work", nil, program, []string{"b"}, inputs)
		require.NoError(t, err)

		assert.NotEqual(t, key1.ID, key2.ID)
	})

	t.Run("the outputs digest is not part of the key", func(t *testing.T) {
		store, program, inputs := setupKeyedAction(t)

		key, err := ComputeActionKey(store, "/work", nil, program, nil, inputs)
		require.NoError(t, err)

		recordA := key.Record("outputs-digest-a")
		recordB := key.Record("outputs-digest-b")
		assert.NotEqual(t, recordA, recordB)
		assert.Equal(t, recordA.Inputs, recordB.Inputs)
	})

	t.Run("a missing declared input is fatal", func(t *testing.T) {
		store, program, _ := setupKeyedAction(t)

		_, err := ComputeActionKey(store, "/work", nil, program, nil, []string{filepath.Join(t.TempDir(), "nope")})
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestResolvePath(t *testing.T) {
	dir := t.TempDir()
	resolvedDir, err := filepath.EvalSymlinks(dir)
	require.NoError(t, err)

	filePath := filepath.Join(dir, "f.txt")
	require.NoError(t, os.WriteFile(filePath, []byte("x"), 0644))

	resolved, err := ResolvePath(filePath)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(resolvedDir, "f.txt"), resolved)

	// The final component need not exist.
	missing, err := ResolvePath(filepath.Join(dir, "missing.txt"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(resolvedDir, "missing.txt"), missing)
}
