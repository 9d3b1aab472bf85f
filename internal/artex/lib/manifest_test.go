package lib

import (
	"testing"

	"github.com/gingerrexayers/artex-go/internal/artex/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildManifest(t *testing.T) {
	entries := []types.ManifestEntry{
		{Path: "/b", Hash: "h2", Size: 2},
		{Path: "/a", Hash: "h1", Size: 1},
	}

	body := BuildManifest(entries)
	assert.Equal(t, "/a|h1|1\n/b|h2|2\n", string(body))

	// The input order never changes the serialized bytes.
	reversed := BuildManifest([]types.ManifestEntry{entries[1], entries[0]})
	assert.Equal(t, body, reversed)
}

func TestParseManifest(t *testing.T) {
	entries, err := ParseManifest([]byte("/a|h1|1\n/b|h2|2\n"))
	require.NoError(t, err)
	assert.Equal(t, []types.ManifestEntry{
		{Path: "/a", Hash: "h1", Size: 1},
		{Path: "/b", Hash: "h2", Size: 2},
	}, entries)

	_, err = ParseManifest([]byte("not-a-manifest\n"))
	assert.Error(t, err)
}

func TestValidateManifestPath(t *testing.T) {
	assert.NoError(t, ValidateManifestPath("/tmp/ok.txt"))
	assert.ErrorIs(t, ValidateManifestPath("relative/path"), ErrConfig)
	assert.ErrorIs(t, ValidateManifestPath("/has|pipe"), ErrConfig)
	assert.ErrorIs(t, ValidateManifestPath("/has\nnewline"), ErrConfig)
}
