package commands

import (
	"fmt"

	"github.com/gingerrexayers/artex-go/internal/artex/lib"
	"github.com/gingerrexayers/artex-go/internal/artex/logging"
	"github.com/gingerrexayers/artex-go/internal/artex/types"
)

// CacheFileOptions holds the configuration for the cache-file command.
type CacheFileOptions struct {
	CacheDir string
	File     string
	// AliasPath is the absolute path the stamp is indexed under. Empty means
	// the file's own path.
	AliasPath string
}

// CacheFile ingests one file into the cache and returns its content stamp.
func CacheFile(opts CacheFileOptions) (types.FileStamp, error) {
	if opts.CacheDir == "" {
		return types.FileStamp{}, fmt.Errorf("%w: no cache directory given and ARTIFACT_EXECUTOR_CACHE is unset", lib.ErrConfig)
	}
	if opts.File == "" {
		return types.FileStamp{}, fmt.Errorf("%w: no file given", lib.ErrConfig)
	}

	if _, err := lib.EnsureCacheDirs(opts.CacheDir); err != nil {
		return types.FileStamp{}, fmt.Errorf("failed to ensure cache directories: %w", err)
	}

	realPath, err := lib.ResolvePath(opts.File)
	if err != nil {
		return types.FileStamp{}, fmt.Errorf("failed to resolve %s: %w", opts.File, err)
	}
	aliasPath := realPath
	if opts.AliasPath != "" {
		aliasPath, err = lib.ResolvePath(opts.AliasPath)
		if err != nil {
			return types.FileStamp{}, fmt.Errorf("failed to resolve alias %s: %w", opts.AliasPath, err)
		}
	}

	store := lib.NewStore(opts.CacheDir)
	stamp, err := store.CacheFile(realPath, aliasPath)
	if err != nil {
		return types.FileStamp{}, err
	}

	logging.Get("store").Debug("file cached", "path", aliasPath, "hash", stamp.Hash[:12], "size", stamp.Size)
	return stamp, nil
}

// IsCached reports whether a path has a fast-path cache match.
func IsCached(cacheDir, file string) (bool, error) {
	if cacheDir == "" {
		return false, fmt.Errorf("%w: no cache directory given and ARTIFACT_EXECUTOR_CACHE is unset", lib.ErrConfig)
	}
	if file == "" {
		return false, fmt.Errorf("%w: no file given", lib.ErrConfig)
	}

	realPath, err := lib.ResolvePath(file)
	if err != nil {
		return false, fmt.Errorf("failed to resolve %s: %w", file, err)
	}

	return lib.NewStore(cacheDir).IsFileCached(realPath), nil
}
