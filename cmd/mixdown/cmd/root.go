package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/corey/mixdown/internal/app"
	"github.com/corey/mixdown/internal/config"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:           "mixdown",
	Short:         "mixdown — instruction-tuning corpus assembler",
	Long:          "Streams heterogeneous datasets into one deduplicated, capability-mixed JSONL corpus.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// loadConfig reads the tool config, honoring --config. With no flag, a
// missing ./mixdown.toml just means defaults.
func loadConfig() (*config.Config, error) {
	return config.Load(configPath)
}

// cachePath resolves the dedup store location: flag first, then the config
// file, then in-memory.
func cachePath(flag string, cfg *config.Config) string {
	if flag != "" {
		return flag
	}
	return cfg.Cache.Path
}

// ExitCode maps an operation error to the process exit code: 2 when zero
// records would be written, 1 for everything else.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	if errors.Is(err, app.ErrZeroOutput) {
		return 2
	}
	return 1
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to mixdown.toml (default: ./mixdown.toml)")
	rootCmd.AddCommand(buildProfileCmd)
	rootCmd.AddCommand(mergeAllCmd)
	rootCmd.AddCommand(rebalanceCmd)
	rootCmd.AddCommand(recategorizeCmd)
	rootCmd.AddCommand(profilesCmd)
	rootCmd.AddCommand(wipeCmd)
}
