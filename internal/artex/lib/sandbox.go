package lib

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gingerrexayers/artex-go/internal/artex/logging"
)

// Sandbox is a temporary directory S such that every file access required by
// an action maps to S/<absolute-path>. It is a hermeticity check based on
// path rebasing, not a kernel-enforced jail.
type Sandbox struct {
	Root string
}

// NewSandbox creates a fresh sandbox directory under the given temp root.
func NewSandbox(tempRoot string) (*Sandbox, error) {
	root, err := os.MkdirTemp(tempRoot, "sandbox-")
	if err != nil {
		return nil, fmt.Errorf("failed to create sandbox directory: %w", err)
	}
	return &Sandbox{Root: root}, nil
}

// Remove deletes the sandbox tree.
func (s *Sandbox) Remove() error {
	return os.RemoveAll(s.Root)
}

// Rebase maps an absolute real path to its location inside the sandbox.
func (s *Sandbox) Rebase(absPath string) string {
	return filepath.Join(s.Root, absPath)
}

// Contains reports whether a path lies inside the sandbox.
func (s *Sandbox) Contains(path string) bool {
	return path == s.Root || strings.HasPrefix(path, s.Root+string(filepath.Separator))
}

// StripPrefix removes the sandbox root from a path that lies inside it,
// recovering the real absolute path.
func (s *Sandbox) StripPrefix(path string) string {
	return strings.TrimPrefix(path, s.Root)
}

// StageInputs copies every declared input (the program binary included) from
// its real absolute path p to S/p, creating parents on demand. Copies are
// made owner-writable so the traced program may overwrite its own inputs.
func (s *Sandbox) StageInputs(paths []string) error {
	for _, path := range paths {
		resolved, err := ResolvePath(path)
		if err != nil {
			return fmt.Errorf("failed to resolve input %s: %w", path, err)
		}
		if _, err := os.Stat(resolved); err != nil {
			if os.IsNotExist(err) {
				return fmt.Errorf("%w: declared input %s", ErrNotFound, resolved)
			}
			return err
		}

		staged := s.Rebase(resolved)
		if err := CopyFile(resolved, staged); err != nil {
			return fmt.Errorf("failed to stage input %s: %w", resolved, err)
		}
		info, err := os.Stat(resolved)
		if err != nil {
			return err
		}
		// Preserve the execute bits; the program binary must stay runnable.
		if err := os.Chmod(staged, info.Mode().Perm()|0200); err != nil {
			return err
		}
	}
	return nil
}

// MirrorWorkingDir creates S/wd so the program can be launched inside the
// rebased working directory.
func (s *Sandbox) MirrorWorkingDir(workingDir string) error {
	return os.MkdirAll(s.Rebase(workingDir), 0755)
}

// EnvRebaser rewrites environment values for execution inside a sandbox.
// Replacements for the default must accept (sandbox_root, input_env) and
// return the rebased environment.
type EnvRebaser func(sandboxRoot string, env map[string]string) map[string]string

// RebasePathsInEnvironment is the default EnvRebaser. Every absolute path
// segment of a value — the whole value when it begins with "/", or any
// ":"-delimited segment beginning with "/" — is prefixed with the sandbox
// root. Values matching neither pattern pass through unchanged.
func RebasePathsInEnvironment(sandboxRoot string, env map[string]string) map[string]string {
	rebased := make(map[string]string, len(env))
	for key, value := range env {
		segments := strings.Split(value, ":")
		for i, segment := range segments {
			if strings.HasPrefix(segment, "/") {
				segments[i] = sandboxRoot + segment
			}
		}
		rebased[key] = strings.Join(segments, ":")
	}
	return rebased
}

// CheckHermeticFiles verifies traced paths against the sandbox. A traced path
// inside the sandbox is hermetic. For any other path (exempt paths aside) the
// real file is compared byte-wise against its sandbox counterpart: equal
// contents produce a warning, different or missing contents are fatal.
func (s *Sandbox) CheckHermeticFiles(cacheDir string, tracedPaths []string) error {
	logger := logging.Get("sandbox")

	for _, path := range tracedPaths {
		if s.Contains(path) {
			continue
		}
		if IsPathExempt(cacheDir, path) {
			continue
		}

		staged := s.Rebase(path)
		equal, err := FilesEqual(path, staged)
		if err != nil {
			return fmt.Errorf("%w: %s escaped the sandbox (%v)", ErrNonHermeticDivergent, path, err)
		}
		if !equal {
			return fmt.Errorf("%w: %s", ErrNonHermeticDivergent, path)
		}
		logger.Warn("non-hermetic access with identical contents", "path", path)
	}
	return nil
}

// ExtractOutputs copies each declared output from S/<path> back to its real
// absolute path, then touches the corresponding path-index leaf so its mtime
// dominates the freshly written file and the next CacheFile call fast-paths.
func (s *Sandbox) ExtractOutputs(store *Store, outputs []string) error {
	for _, outputPath := range outputs {
		staged := s.Rebase(outputPath)
		if _, err := os.Stat(staged); err != nil {
			if os.IsNotExist(err) {
				return fmt.Errorf("%w: expected sandbox output %s", ErrNotFound, staged)
			}
			return err
		}
		if err := CopyFile(staged, outputPath); err != nil {
			return fmt.Errorf("failed to extract output %s: %w", outputPath, err)
		}
		if err := store.TouchPathIndex(outputPath); err != nil {
			return fmt.Errorf("failed to touch path-index for %s: %w", outputPath, err)
		}
	}
	return nil
}
