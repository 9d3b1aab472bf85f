package lib

import (
	"bufio"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gingerrexayers/artex-go/internal/artex/types"
)

// SerializeWorkingDir renders the working directory component as its
// single-line file form. The actual directory string is persisted.
func SerializeWorkingDir(workingDir string) []byte {
	return []byte(workingDir + "\n")
}

// SerializeEnvironment renders an environment map as sorted "KEY=VALUE"
// lines. Sorting is byte-wise so identical maps always serialize identically.
func SerializeEnvironment(env map[string]string) []byte {
	lines := make([]string, 0, len(env))
	for key, value := range env {
		lines = append(lines, key+"="+value)
	}
	sort.Strings(lines)

	var builder strings.Builder
	for _, line := range lines {
		builder.WriteString(line)
		builder.WriteByte('\n')
	}
	return []byte(builder.String())
}

// ParseEnvironment reads "KEY=VALUE" lines. Values may contain further "="
// characters; empty lines are skipped.
func ParseEnvironment(r io.Reader) (map[string]string, error) {
	env := make(map[string]string)
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		key, value, found := strings.Cut(line, "=")
		if !found {
			return nil, fmt.Errorf("%w: malformed environment line %q", ErrConfig, line)
		}
		env[key] = value
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return env, nil
}

// SerializeArgs renders the argument list one per line, order preserved.
func SerializeArgs(args []string) []byte {
	var builder strings.Builder
	for _, arg := range args {
		builder.WriteString(arg)
		builder.WriteByte('\n')
	}
	return []byte(builder.String())
}

// ParseLines reads a line-per-entry file (arguments, declared input or output
// paths), skipping empty lines.
func ParseLines(r io.Reader) ([]string, error) {
	var lines []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if line := scanner.Text(); line != "" {
			lines = append(lines, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return lines, nil
}

// ActionKey is the computed identity of an action: the identifier plus the
// five sub-digests it was derived from. The outputs-manifest digest is a
// value recorded after execution, never part of the key.
type ActionKey struct {
	ID             string
	WorkingDir     string
	Env            string
	Program        string
	Args           string
	Inputs         string
	InputsManifest []types.ManifestEntry
}

// Record pairs the key's five digests with an outputs-manifest digest to form
// a publishable action record.
func (k ActionKey) Record(outputsManifest string) types.ActionRecord {
	return types.ActionRecord{
		WorkingDir: k.WorkingDir,
		Env:        k.Env,
		Program:    k.Program,
		Args:       k.Args,
		Inputs:     k.Inputs,
		Outputs:    outputsManifest,
	}
}

// ComputeActionKey canonicalizes and hashes the action tuple
// (WD, ENV, PROG, ARGS, INPUTS). Objects for all five components and for the
// key line itself are stored as a side effect, so a later replay can verify
// every digest bit-exactly.
//
// The inputs manifest covers the declared inputs plus the program binary,
// each stamped with its content hash and size.
func ComputeActionKey(store *Store, workingDir string, env map[string]string, program string, args, declaredInputs []string) (ActionKey, error) {
	programPath, err := ResolvePath(program)
	if err != nil {
		return ActionKey{}, fmt.Errorf("failed to resolve program path %s: %w", program, err)
	}

	wdHash, err := store.PutObject(SerializeWorkingDir(workingDir))
	if err != nil {
		return ActionKey{}, err
	}
	envHash, err := store.PutObject(SerializeEnvironment(env))
	if err != nil {
		return ActionKey{}, err
	}
	argsHash, err := store.PutObject(SerializeArgs(args))
	if err != nil {
		return ActionKey{}, err
	}

	progStamp, err := store.CacheFile(programPath, programPath)
	if err != nil {
		return ActionKey{}, fmt.Errorf("failed to cache program binary: %w", err)
	}

	manifestPaths := make([]string, 0, len(declaredInputs)+1)
	manifestPaths = append(manifestPaths, declaredInputs...)
	manifestPaths = append(manifestPaths, programPath)

	entries := make([]types.ManifestEntry, 0, len(manifestPaths))
	for _, inputPath := range manifestPaths {
		resolved, err := ResolvePath(inputPath)
		if err != nil {
			return ActionKey{}, fmt.Errorf("failed to resolve declared input %s: %w", inputPath, err)
		}
		if err := ValidateManifestPath(resolved); err != nil {
			return ActionKey{}, err
		}
		stamp, err := store.CacheFile(resolved, resolved)
		if err != nil {
			return ActionKey{}, fmt.Errorf("failed to cache declared input %s: %w", resolved, err)
		}
		entries = append(entries, types.ManifestEntry{Path: resolved, Hash: stamp.Hash, Size: stamp.Size})
	}

	manifestBody := BuildManifest(entries)
	inputsHash, err := store.PutObject(manifestBody)
	if err != nil {
		return ActionKey{}, err
	}
	parsedEntries, err := ParseManifest(manifestBody)
	if err != nil {
		return ActionKey{}, err
	}

	keyLine := JoinDigests(wdHash, envHash, progStamp.Hash, argsHash, inputsHash)
	id, err := store.PutObject(keyLine)
	if err != nil {
		return ActionKey{}, err
	}

	return ActionKey{
		ID:             id,
		WorkingDir:     wdHash,
		Env:            envHash,
		Program:        progStamp.Hash,
		Args:           argsHash,
		Inputs:         inputsHash,
		InputsManifest: parsedEntries,
	}, nil
}

// ResolvePath resolves a path to an absolute form with symlinks in its parent
// directories evaluated, so the same file always keys identically. The final
// component need not exist.
func ResolvePath(path string) (string, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	resolvedDir, err := filepath.EvalSymlinks(filepath.Dir(absPath))
	if err != nil {
		// Parents that do not exist yet (declared outputs) keep their
		// lexical form.
		return filepath.Clean(absPath), nil
	}
	return filepath.Join(resolvedDir, filepath.Base(absPath)), nil
}
