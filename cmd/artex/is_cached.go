package main

import (
	"github.com/gingerrexayers/artex-go/internal/artex/commands"
	"github.com/spf13/cobra"
)

// notCachedError is returned when the file has no fast-path match. Like any
// other error it makes the command exit 1.
type notCachedError struct{}

func (notCachedError) Error() string { return "not cached" }

func NewIsCachedCommand() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:           "is-cached",
		Short:         "Exit 0 if a file has a fast-path cache match, 1 otherwise.",
		Args:          cobra.NoArgs,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cached, err := commands.IsCached(cacheDir(), file)
			if err != nil {
				return err
			}
			if !cached {
				return notCachedError{}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "file to check")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}
