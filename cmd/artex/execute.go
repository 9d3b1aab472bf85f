package main

import (
	"os"

	"github.com/gingerrexayers/artex-go/internal/artex/commands"
	"github.com/gingerrexayers/artex-go/internal/artex/lib"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func NewExecuteCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "execute",
		Aliases: []string{"exec", "artifact-execute"},
		Short:   "Run a program through the action cache.",
		Long: `Executes a program in a sandbox under filesystem tracing, verifies that
its accesses match the declared inputs and outputs, and records the action in
the cache. A rerun of an identical action replays the cached outputs without
executing anything.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := loadEnvManifest(viper.GetString("env"))
			if err != nil {
				return err
			}
			programArgs, err := loadLinesManifest(viper.GetString("args"))
			if err != nil {
				return err
			}
			inputs, err := loadLinesManifest(viper.GetString("inputs"))
			if err != nil {
				return err
			}
			outputs, err := loadLinesManifest(viper.GetString("outputs"))
			if err != nil {
				return err
			}

			workingDir, err := os.Getwd()
			if err != nil {
				return err
			}

			return commands.Execute(commands.ExecuteOptions{
				CacheDir:   cacheDir(),
				WorkingDir: workingDir,
				Env:        env,
				Program:    viper.GetString("program"),
				Args:       programArgs,
				Inputs:     inputs,
				Outputs:    outputs,
				Tracer:     &lib.ExecTracer{Binary: viper.GetString("tracer")},
			})
		},
	}

	cmd.Flags().StringP("env", "e", "", "file of KEY=VALUE environment lines (default: $ARTIFACT_EXECUTOR_ENV)")
	cmd.Flags().StringP("program", "p", "", "program to execute (default: $ARTIFACT_EXECUTOR_PROGRAM)")
	cmd.Flags().StringP("args", "a", "", "file with one argument per line (default: $ARTIFACT_EXECUTOR_ARGS)")
	cmd.Flags().StringP("inputs", "i", "", "file with one declared input path per line (default: $ARTIFACT_EXECUTOR_INPUTS)")
	cmd.Flags().StringP("outputs", "o", "", "file with one declared output path per line (default: $ARTIFACT_EXECUTOR_OUTPUTS)")
	cmd.Flags().String("tracer", "fstrace", "filesystem tracer binary")
	_ = viper.BindPFlag("env", cmd.Flags().Lookup("env"))
	_ = viper.BindPFlag("program", cmd.Flags().Lookup("program"))
	_ = viper.BindPFlag("args", cmd.Flags().Lookup("args"))
	_ = viper.BindPFlag("inputs", cmd.Flags().Lookup("inputs"))
	_ = viper.BindPFlag("outputs", cmd.Flags().Lookup("outputs"))
	_ = viper.BindPFlag("tracer", cmd.Flags().Lookup("tracer"))

	return cmd
}

// loadEnvManifest parses a KEY=VALUE manifest file. An unset path yields an
// empty environment.
func loadEnvManifest(path string) (map[string]string, error) {
	if path == "" {
		return map[string]string{}, nil
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return lib.ParseEnvironment(file)
}

// loadLinesManifest parses a line-per-entry manifest file. An unset path
// yields an empty list.
func loadLinesManifest(path string) ([]string, error) {
	if path == "" {
		return nil, nil
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return lib.ParseLines(file)
}
