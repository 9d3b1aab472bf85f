// Package lib contains the core, reusable services for the artex application.
package lib

import (
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/adrg/xdg"
	"github.com/denormal/go-gitignore"
)

// --- Constants ---

// ObjectsDirName is the name of the subdirectory holding content-addressed blobs.
const ObjectsDirName = "objects"

// PathIndexDirName is the name of the subdirectory mirroring real absolute
// paths; each leaf file stores the last observed "<hash>|<size>" stamp.
const PathIndexDirName = "path-index"

// ActionsDirName is the name of the subdirectory holding one record file per
// cached action, named by action identifier.
const ActionsDirName = "actions"

// HermeticIgnoreFilename is the name of the optional file in the cache root
// containing user-defined patterns for paths exempt from hermeticity analysis.
const HermeticIgnoreFilename = "hermetic-ignore"

// HashAlgorithm is the chosen hashing algorithm. Digests are hex-encoded
// lowercase throughout the cache layout.
const HashAlgorithm = "sha256"

// --- Package-level Variables ---

// defaultExemptPatterns contains paths that are always excluded from
// hermeticity analysis. Kernel-backed pseudo-files under /proc have no stable
// content to compare.
var defaultExemptPatterns = []string{
	"/proc/**",
}

var (
	// exemptCache stores compiled gitignore.GitIgnore matchers to avoid
	// re-reading and re-parsing the hermetic-ignore file. The key is the
	// cache root directory. Access is serialized by a global mutex because
	// the gitignore library is not safe for concurrent use.
	exemptCache = make(map[string]gitignore.GitIgnore)
	exemptMutex = &sync.Mutex{}
)

// --- Path Helper Functions ---

// DefaultCacheDir returns the cache root used when neither the --cache-dir
// flag nor ARTIFACT_EXECUTOR_CACHE is set.
func DefaultCacheDir() string {
	return filepath.Join(xdg.CacheHome, "artex")
}

// GetObjectsDir returns the absolute path to the objects subdirectory.
func GetObjectsDir(cacheDir string) string {
	return filepath.Join(cacheDir, ObjectsDirName)
}

// GetPathIndexDir returns the absolute path to the path-index subdirectory.
func GetPathIndexDir(cacheDir string) string {
	return filepath.Join(cacheDir, PathIndexDirName)
}

// GetActionsDir returns the absolute path to the actions subdirectory.
func GetActionsDir(cacheDir string) string {
	return filepath.Join(cacheDir, ActionsDirName)
}

// GetObjectPath returns the blob path for a digest.
func GetObjectPath(cacheDir, hash string) string {
	return filepath.Join(GetObjectsDir(cacheDir), hash)
}

// GetPathIndexPath returns the path-index leaf for an absolute real path.
// The real path's components are mirrored verbatim under path-index/.
func GetPathIndexPath(cacheDir, absPath string) string {
	return filepath.Join(GetPathIndexDir(cacheDir), absPath)
}

// GetActionPath returns the record file path for an action identifier.
func GetActionPath(cacheDir, actionID string) string {
	return filepath.Join(GetActionsDir(cacheDir), actionID)
}

// CachePaths holds the structured paths for a cache root.
type CachePaths struct {
	CacheDir     string
	ObjectsDir   string
	PathIndexDir string
	ActionsDir   string
}

// EnsureCacheDirs ensures that the three core cache directories exist,
// creating them if necessary. It is idempotent.
func EnsureCacheDirs(cacheDir string) (CachePaths, error) {
	paths := CachePaths{
		CacheDir:     cacheDir,
		ObjectsDir:   GetObjectsDir(cacheDir),
		PathIndexDir: GetPathIndexDir(cacheDir),
		ActionsDir:   GetActionsDir(cacheDir),
	}

	if err := os.MkdirAll(paths.ObjectsDir, 0755); err != nil {
		return CachePaths{}, err
	}
	if err := os.MkdirAll(paths.PathIndexDir, 0755); err != nil {
		return CachePaths{}, err
	}
	if err := os.MkdirAll(paths.ActionsDir, 0755); err != nil {
		return CachePaths{}, err
	}

	return paths, nil
}

// IsPathExempt reports whether an absolute path is excluded from hermeticity
// analysis. /proc is always exempt; further patterns come from the
// hermetic-ignore file in the cache root.
func IsPathExempt(cacheDir, path string) bool {
	exemptMutex.Lock()
	defer exemptMutex.Unlock()

	matcher, found := exemptCache[cacheDir]
	if !found {
		matcher = loadExemptMatcher(cacheDir)
		exemptCache[cacheDir] = matcher
	}

	// Patterns are rooted at "/", so match against the path relative to it.
	// Relative matching is lexical: the path need not exist on disk.
	relative := strings.TrimPrefix(path, "/")
	match := matcher.Relative(relative, false)
	if match == nil {
		return false
	}
	return match.Ignore()
}

// loadExemptMatcher compiles the default patterns plus any user-defined ones
// from the hermetic-ignore file into a gitignore matcher.
func loadExemptMatcher(cacheDir string) gitignore.GitIgnore {
	rawPatterns := make([]string, len(defaultExemptPatterns))
	copy(rawPatterns, defaultExemptPatterns)

	ignoreFilePath := filepath.Join(cacheDir, HermeticIgnoreFilename)
	if content, err := os.ReadFile(ignoreFilePath); err == nil {
		rawPatterns = append(rawPatterns, strings.Split(string(content), "\n")...)
	}

	var finalPatterns []string
	for _, p := range rawPatterns {
		trimmed := strings.TrimSpace(p)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		// The matcher is rooted at "/", so patterns lose their leading slash
		// and directory patterns become recursive globs.
		trimmed = strings.TrimPrefix(trimmed, "/")
		if strings.HasSuffix(trimmed, "/") {
			trimmed += "**"
		}
		finalPatterns = append(finalPatterns, trimmed)
	}

	reader := strings.NewReader(strings.Join(finalPatterns, "\n"))
	matcher := gitignore.New(reader, "/", func(err gitignore.Error) bool { return false })
	if matcher == nil {
		return gitignore.New(strings.NewReader(""), "/", nil)
	}
	return matcher
}

// ResetExemptState clears the exemption matcher cache. This is used for testing.
func ResetExemptState() {
	exemptMutex.Lock()
	defer exemptMutex.Unlock()
	exemptCache = make(map[string]gitignore.GitIgnore)
}
