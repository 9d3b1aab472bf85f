package main

import (
	"github.com/gingerrexayers/artex-go/internal/artex/commands"
	"github.com/spf13/cobra"
)

func NewStatsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show object-store statistics and chunk-level dedup estimates.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return commands.Stats(cacheDir())
		},
	}
}
