package commands

import (
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/gingerrexayers/artex-go/internal/artex/lib"
)

// Stats reports object-store statistics for a cache: blob counts, stored
// bytes, and an estimate of sub-file duplication computed by content-defined
// chunking every blob and deduplicating the chunk digests.
func Stats(cacheDir string) error {
	if cacheDir == "" {
		return fmt.Errorf("%w: no cache directory given and ARTIFACT_EXECUTOR_CACHE is unset", lib.ErrConfig)
	}

	totalSize, objectCount, err := getStoredObjectsSize(cacheDir)
	if err != nil {
		return fmt.Errorf("failed to measure object store: %w", err)
	}

	actions, err := lib.GetSortedActions(cacheDir)
	if err != nil {
		return fmt.Errorf("failed to list actions: %w", err)
	}

	uniqueChunks := make(map[string]int64)
	var chunkedBytes int64

	objectsDir := lib.GetObjectsDir(cacheDir)
	dirEntries, err := os.ReadDir(objectsDir)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	for _, entry := range dirEntries {
		if entry.IsDir() {
			continue
		}
		chunks, size, err := lib.ChunkFile(lib.GetObjectPath(cacheDir, entry.Name()))
		if err != nil {
			return fmt.Errorf("failed to chunk object %s: %w", entry.Name(), err)
		}
		chunkedBytes += size
		for _, chunk := range chunks {
			uniqueChunks[chunk.Hash] = chunk.Size
		}
	}

	var uniqueBytes int64
	for _, size := range uniqueChunks {
		uniqueBytes += size
	}

	fmt.Printf("Cache \"%s\":\n", cacheDir)
	fmt.Printf("  Actions:          %d\n", len(actions))
	fmt.Printf("  Objects:          %d (%s)\n", objectCount, humanize.IBytes(uint64(totalSize)))
	fmt.Printf("  Unique chunks:    %d (%s)\n", len(uniqueChunks), humanize.IBytes(uint64(uniqueBytes)))
	if chunkedBytes > uniqueBytes {
		fmt.Printf("  Chunk-level dupes: %s could be recovered by sub-file dedup\n",
			humanize.IBytes(uint64(chunkedBytes-uniqueBytes)))
	}
	return nil
}
