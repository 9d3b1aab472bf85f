package main

import (
	"fmt"

	"github.com/gingerrexayers/artex-go/internal/artex/commands"
	"github.com/spf13/cobra"
)

func NewCacheFileCommand() *cobra.Command {
	var file string
	var aliasPath string

	cmd := &cobra.Command{
		Use:   "cache-file",
		Short: "Ingest one file into the content-addressed cache.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			stamp, err := commands.CacheFile(commands.CacheFileOptions{
				CacheDir:  cacheDir(),
				File:      file,
				AliasPath: aliasPath,
			})
			if err != nil {
				return err
			}
			fmt.Println(stamp.String())
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "file to ingest")
	cmd.Flags().StringVarP(&aliasPath, "path", "p", "", "alias path to index the stamp under (default: the file's own path)")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}
