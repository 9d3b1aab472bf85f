package lib

import (
	"fmt"
	"sort"
	"strings"

	"github.com/gingerrexayers/artex-go/internal/artex/types"
)

// ValidateManifestPath rejects paths that cannot be represented in the
// line-oriented manifest format.
func ValidateManifestPath(path string) error {
	if !strings.HasPrefix(path, "/") {
		return fmt.Errorf("%w: manifest path %q is not absolute", ErrConfig, path)
	}
	if strings.ContainsAny(path, "|\n") {
		return fmt.Errorf("%w: manifest path %q contains a reserved character", ErrConfig, path)
	}
	return nil
}

// BuildManifest serializes entries into the canonical manifest body: one
// "<path>|<hash>|<size>" line per entry, LF-separated, sorted byte-wise over
// the path field. Two identical logical manifests always serialize to the
// same bytes and therefore the same digest.
func BuildManifest(entries []types.ManifestEntry) []byte {
	sorted := make([]types.ManifestEntry, len(entries))
	copy(sorted, entries)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Path < sorted[j].Path
	})

	var builder strings.Builder
	for _, entry := range sorted {
		builder.WriteString(entry.String())
		builder.WriteByte('\n')
	}
	return []byte(builder.String())
}

// ParseManifest parses a manifest body back into entries.
func ParseManifest(data []byte) ([]types.ManifestEntry, error) {
	var entries []types.ManifestEntry
	for _, line := range strings.Split(string(data), "\n") {
		if line == "" {
			continue
		}
		entry, err := types.ParseManifestEntry(line)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, nil
}
