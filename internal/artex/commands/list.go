package commands

import (
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/gingerrexayers/artex-go/internal/artex/lib"
)

// List prints a table of cached actions, oldest first.
func List(cacheDir string) error {
	if cacheDir == "" {
		return fmt.Errorf("%w: no cache directory given and ARTIFACT_EXECUTOR_CACHE is unset", lib.ErrConfig)
	}

	actions, err := lib.GetSortedActions(cacheDir)
	if err != nil {
		return fmt.Errorf("failed to list actions: %w", err)
	}
	if len(actions) == 0 {
		fmt.Printf("No cached actions in \"%s\".\n", cacheDir)
		return nil
	}

	store := lib.NewStore(cacheDir)

	fmt.Printf("Cached actions in \"%s\":\n", cacheDir)
	fmt.Printf("%-14s %-21s %-8s %-8s %s\n", "ACTION", "TIMESTAMP", "INPUTS", "OUTPUTS", "OUTPUT SIZE")
	fmt.Printf("%-14s %-21s %-8s %-8s %s\n", "============", "===================", "======", "=======", "===========")

	for _, action := range actions {
		inputCount := manifestEntryCount(store, action.Record.Inputs)
		outputCount, outputBytes := manifestEntryStats(store, action.Record.Outputs)

		fmt.Printf("%-14s %-21s %-8d %-8d %s\n",
			action.ID[:12],
			action.ModTime.Format("2006-01-02 15:04:05"),
			inputCount,
			outputCount,
			humanize.IBytes(uint64(outputBytes)),
		)
	}
	return nil
}

// manifestEntryCount counts the entries of a stored manifest, treating an
// unreadable manifest as empty.
func manifestEntryCount(store *lib.Store, manifestHash string) int {
	count, _ := manifestEntryStats(store, manifestHash)
	return count
}

// manifestEntryStats returns the entry count and summed sizes of a stored
// manifest.
func manifestEntryStats(store *lib.Store, manifestHash string) (int, int64) {
	body, err := store.ReadObject(manifestHash)
	if err != nil {
		return 0, 0
	}
	entries, err := lib.ParseManifest(body)
	if err != nil {
		return 0, 0
	}

	var total int64
	for _, entry := range entries {
		total += entry.Size
	}
	return len(entries), total
}

// getStoredObjectsSize calculates the total size of all blobs on disk.
func getStoredObjectsSize(cacheDir string) (int64, int, error) {
	dirEntries, err := os.ReadDir(lib.GetObjectsDir(cacheDir))
	if err != nil {
		if os.IsNotExist(err) {
			return 0, 0, nil // No objects exist yet.
		}
		return 0, 0, err
	}

	var totalSize int64
	count := 0
	for _, entry := range dirEntries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue // Skip files we can't get info for.
		}
		totalSize += info.Size()
		count++
	}
	return totalSize, count, nil
}
