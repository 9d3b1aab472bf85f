package lib

import (
	"os"
	"sync"
)

var (
	tempMutex    = &sync.Mutex{}
	tempRootPath string
)

// ProcessTempDir returns the single temporary root scoped to this process,
// creating it on first use. Sandboxes and trace event files live under it.
func ProcessTempDir() (string, error) {
	tempMutex.Lock()
	defer tempMutex.Unlock()

	if tempRootPath != "" {
		return tempRootPath, nil
	}

	root, err := os.MkdirTemp("", "artex-")
	if err != nil {
		return "", err
	}
	tempRootPath = root
	return root, nil
}

// CleanupProcessTempDir removes the process temp root. Safe to call when no
// temp root was ever created.
func CleanupProcessTempDir() error {
	tempMutex.Lock()
	defer tempMutex.Unlock()

	if tempRootPath == "" {
		return nil
	}
	root := tempRootPath
	tempRootPath = ""
	return os.RemoveAll(root)
}
