package lib

import (
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/gingerrexayers/artex-go/internal/artex/types"
)

// ActionDetail enhances a parsed action record with its identifier (the
// record's filename) and the record file's modification time.
type ActionDetail struct {
	ID      string
	ModTime time.Time
	Record  types.ActionRecord
}

// GetSortedActions reads every cached action for a cache root and returns
// them sorted oldest first by record mtime (ties broken by identifier so the
// order is deterministic).
func GetSortedActions(cacheDir string) ([]ActionDetail, error) {
	actionsDir := GetActionsDir(cacheDir)

	dirEntries, err := os.ReadDir(actionsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []ActionDetail{}, nil // No actions dir exists, so no actions. Not an error.
		}
		return nil, err
	}

	var details []ActionDetail
	for _, entry := range dirEntries {
		if entry.IsDir() {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}

		record, err := ReadActionRecord(cacheDir, entry.Name())
		if err != nil {
			// One corrupt record should not hide the rest.
			continue
		}

		details = append(details, ActionDetail{
			ID:      entry.Name(),
			ModTime: info.ModTime(),
			Record:  record,
		})
	}

	sort.Slice(details, func(i, j int) bool {
		if !details[i].ModTime.Equal(details[j].ModTime) {
			return details[i].ModTime.Before(details[j].ModTime)
		}
		return details[i].ID < details[j].ID
	})

	return details, nil
}

// ReadActionRecord parses the record file for an action identifier.
func ReadActionRecord(cacheDir, actionID string) (types.ActionRecord, error) {
	content, err := os.ReadFile(GetActionPath(cacheDir, actionID))
	if err != nil {
		if os.IsNotExist(err) {
			return types.ActionRecord{}, fmt.Errorf("%w: action %s", ErrNotFound, actionID)
		}
		return types.ActionRecord{}, err
	}
	return types.ParseActionRecord(string(content))
}

// WriteActionRecord publishes a record under actions/<id>. Publishing is
// create-or-replace, never append, and goes through an atomic rename so a
// partially written record is never observable.
func WriteActionRecord(cacheDir, actionID string, record types.ActionRecord) error {
	return WriteFileAtomic(GetActionPath(cacheDir, actionID), []byte(record.String()+"\n"), 0644)
}
