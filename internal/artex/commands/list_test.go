package commands_test

import (
	"testing"

	"github.com/gingerrexayers/artex-go/internal/artex/commands"
	"github.com/gingerrexayers/artex-go/internal/artex/lib"
	"github.com/stretchr/testify/assert"
)

func TestListAndStats(t *testing.T) {
	cacheDir, _, _ := setupSharedInputCache(t)

	// Smoke over a populated cache: both reports must succeed.
	assert.NoError(t, commands.List(cacheDir))
	assert.NoError(t, commands.Stats(cacheDir))
}

func TestListEmptyCache(t *testing.T) {
	assert.NoError(t, commands.List(t.TempDir()))
}

func TestListAndStatsRequireConfiguration(t *testing.T) {
	assert.ErrorIs(t, commands.List(""), lib.ErrConfig)
	assert.ErrorIs(t, commands.Stats(""), lib.ErrConfig)
}
