package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/gingerrexayers/artex-go/internal/artex/lib"
	"github.com/gingerrexayers/artex-go/internal/artex/logging"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func main() {
	var rootCmd = &cobra.Command{
		Use:   "artex",
		Short: "Content-addressed action cache and sandboxed executor.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return logging.Init(viper.GetString("log_level"))
		},
	}

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringP("cache-dir", "c", "", "cache root directory (default: $ARTIFACT_EXECUTOR_CACHE)")
	rootCmd.PersistentFlags().String("log-level", "info", "log verbosity (debug, info, warn, error)")
	_ = viper.BindPFlag("cache", rootCmd.PersistentFlags().Lookup("cache-dir"))
	_ = viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))

	// Add commands
	rootCmd.AddCommand(NewExecuteCommand())
	rootCmd.AddCommand(NewCacheFileCommand())
	rootCmd.AddCommand(NewIsCachedCommand())
	rootCmd.AddCommand(NewShrinkCommand())
	rootCmd.AddCommand(NewListCommand())
	rootCmd.AddCommand(NewStatsCommand())
	rootCmd.AddCommand(NewCompletionCommand())

	defer func() {
		_ = lib.CleanupProcessTempDir()
	}()

	if err := rootCmd.Execute(); err != nil {
		_ = lib.CleanupProcessTempDir()
		fmt.Println(err)
		os.Exit(1)
	}
}

// initConfig wires the ARTIFACT_EXECUTOR_* environment fallbacks for every
// flag bound into viper.
func initConfig() {
	viper.SetEnvPrefix("ARTIFACT_EXECUTOR")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

// cacheDir resolves the cache root from the flag, the environment, or the
// XDG default, in that order.
func cacheDir() string {
	if dir := viper.GetString("cache"); dir != "" {
		return dir
	}
	return lib.DefaultCacheDir()
}
