package main

import (
	"github.com/gingerrexayers/artex-go/internal/artex/commands"
	"github.com/spf13/cobra"
)

func NewListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List cached actions.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return commands.List(cacheDir())
		},
	}
}
