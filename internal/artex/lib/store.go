package lib

import (
	"fmt"
	"os"
	"time"

	"github.com/gingerrexayers/artex-go/internal/artex/types"
)

// Store provides access to one cache root: the content-addressed objects/
// tree and the path-index/ mirror of real absolute paths.
//
// The store is intended for single-writer use. Concurrent object creation is
// tolerated because blob paths are a function of content and writes go
// through an atomic rename, but no cross-process locking is performed.
type Store struct {
	CacheDir string
}

// NewStore creates a Store for the given cache root. The root's
// subdirectories are created lazily by EnsureCacheDirs callers.
func NewStore(cacheDir string) *Store {
	return &Store{CacheDir: cacheDir}
}

// ObjectExists reports whether a blob for the digest is present.
func (s *Store) ObjectExists(hash string) bool {
	_, err := os.Stat(GetObjectPath(s.CacheDir, hash))
	return err == nil
}

// PutObject stores in-memory content as a blob, keyed by its own digest, and
// returns the digest. Storing the same content twice is a no-op.
func (s *Store) PutObject(data []byte) (string, error) {
	hash := GetHash(data)
	objectPath := GetObjectPath(s.CacheDir, hash)
	if _, err := os.Stat(objectPath); err == nil {
		return hash, nil
	}
	if err := WriteFileAtomic(objectPath, data, 0644); err != nil {
		return "", fmt.Errorf("failed to store object %s: %w", hash, err)
	}
	return hash, nil
}

// EnsureObjectFrom copies srcPath into objects/<hash> if the blob is absent.
// The caller asserts that srcPath's content hashes to hash. The stored blob
// is made owner-writable to allow later eviction.
func (s *Store) EnsureObjectFrom(hash, srcPath string) error {
	objectPath := GetObjectPath(s.CacheDir, hash)
	if _, err := os.Stat(objectPath); err == nil {
		return nil
	}
	if err := CopyFileAtomic(srcPath, objectPath); err != nil {
		return fmt.Errorf("failed to copy %s into object store: %w", srcPath, err)
	}
	return MakeOwnerWritable(objectPath)
}

// ReadObject retrieves a blob's contents by digest.
func (s *Store) ReadObject(hash string) ([]byte, error) {
	data, err := os.ReadFile(GetObjectPath(s.CacheDir, hash))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: object %s", ErrNotFound, hash)
		}
		return nil, err
	}
	return data, nil
}

// ReadPathStamp reads the "<hash>|<size>" stamp recorded for an absolute path.
func (s *Store) ReadPathStamp(absPath string) (types.FileStamp, error) {
	content, err := os.ReadFile(GetPathIndexPath(s.CacheDir, absPath))
	if err != nil {
		return types.FileStamp{}, err
	}
	return types.ParseFileStamp(string(content))
}

// WritePathStamp records the stamp for an absolute path, creating parent
// directories in the path-index mirror on demand.
func (s *Store) WritePathStamp(absPath string, stamp types.FileStamp) error {
	return WriteFileAtomic(GetPathIndexPath(s.CacheDir, absPath), []byte(stamp.String()+"\n"), 0644)
}

// TouchPathIndex bumps the mtime of the path-index leaf for an absolute path
// so it dominates the real file's mtime and the next CacheFile call takes the
// fast path.
func (s *Store) TouchPathIndex(absPath string) error {
	now := time.Now()
	return os.Chtimes(GetPathIndexPath(s.CacheDir, absPath), now, now)
}

// CacheFile ingests one file into the store and returns its content stamp.
// aliasPath is the absolute path the stamp is indexed under; pass realPath
// itself when no alias is needed.
//
// Fast path: when the path-index leaf for aliasPath is newer than realPath,
// the stored stamp is trusted without rehashing. This may return a stale
// stamp if the user mutated realPath without updating its mtime; that is
// documented behavior.
func (s *Store) CacheFile(realPath, aliasPath string) (types.FileStamp, error) {
	realInfo, err := os.Stat(realPath)
	if err != nil {
		if os.IsNotExist(err) {
			return types.FileStamp{}, fmt.Errorf("%w: %s", ErrNotFound, realPath)
		}
		return types.FileStamp{}, err
	}

	indexPath := GetPathIndexPath(s.CacheDir, aliasPath)
	if indexInfo, err := os.Stat(indexPath); err == nil && indexInfo.ModTime().After(realInfo.ModTime()) {
		stamp, err := s.ReadPathStamp(aliasPath)
		if err == nil {
			if !s.ObjectExists(stamp.Hash) {
				if err := s.EnsureObjectFrom(stamp.Hash, realPath); err != nil {
					return types.FileStamp{}, err
				}
			}
			return stamp, nil
		}
		// A corrupt stamp falls through to the slow path and is rewritten.
	}

	hash, err := GetFileHash(realPath)
	if err != nil {
		return types.FileStamp{}, fmt.Errorf("failed to hash %s: %w", realPath, err)
	}
	if err := s.EnsureObjectFrom(hash, realPath); err != nil {
		return types.FileStamp{}, err
	}

	stamp := types.FileStamp{Hash: hash, Size: realInfo.Size()}
	if err := s.WritePathStamp(aliasPath, stamp); err != nil {
		return types.FileStamp{}, fmt.Errorf("failed to write path-index stamp for %s: %w", aliasPath, err)
	}
	return stamp, nil
}

// IsFileCached reports whether a path has a fast-path match: the file exists
// and its path-index leaf is newer than the file itself.
func (s *Store) IsFileCached(absPath string) bool {
	realInfo, err := os.Stat(absPath)
	if err != nil {
		return false
	}
	indexInfo, err := os.Stat(GetPathIndexPath(s.CacheDir, absPath))
	if err != nil {
		return false
	}
	return indexInfo.ModTime().After(realInfo.ModTime())
}
