package main

import (
	"os"

	"github.com/gingerrexayers/artex-go/internal/artex/commands"
	"github.com/spf13/cobra"
)

// NewShrinkCommand creates the 'shrink' command for the CLI.
func NewShrinkCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "shrink",
		Short: "Interactively remove cached actions and reclaim unreferenced objects.",
		Long: `Walks cached actions oldest first and prompts for each: remove it, skip it,
or quit. Objects and path-index entries no longer referenced by any surviving
action are deleted afterwards.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			prompter, err := commands.NewTerminalPrompter()
			if err != nil {
				// No controlling terminal; read choices from stdin so the
				// command stays scriptable.
				prompter = &commands.ReaderPrompter{R: os.Stdin}
			}
			return commands.Shrink(commands.ShrinkOptions{
				CacheDir: cacheDir(),
				Prompter: prompter,
			})
		},
	}

	return cmd
}
