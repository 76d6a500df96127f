package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/dchud/marcstream/pkg/config"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "marc",
	Short: "marcstream - MARC 21 record tooling",
	Long: `marcstream reads, validates, and indexes MARC 21 (ISO 2709)
bibliographic record files using a parallel decode pipeline.

Files ending in .zst are decompressed transparently.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

// loadSettings resolves tool configuration: the file named by --config
// when given, built-in defaults otherwise. The --workers flag overrides
// the file; the MARCSTREAM_WORKERS environment variable overrides both
// via Config.ResolveWorkers.
func loadSettings(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if path, _ := cmd.Flags().GetString("config"); path != "" {
		loaded, err := config.LoadConfig(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if w, _ := cmd.Flags().GetInt("workers"); w > 0 {
		cfg.Workers = w
	}
	return cfg, nil
}

func init() {
	rootCmd.PersistentFlags().IntP("workers", "w", 0, "Decode workers (0 = all cores)")
	rootCmd.PersistentFlags().String("config", "", "Path to a marcstream config file")
}
