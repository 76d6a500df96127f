package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dchud/marcstream/pkg/index"
)

// indexCmd represents the index command
var indexCmd = &cobra.Command{
	Use:   "index <file>",
	Short: "Build a control-number index for a MARC file",
	Long: `Build a persistent index mapping each record's control number
(tag 001) to its byte offset, so single records can be retrieved
later with 'marc get' without re-parsing the file.

Example:
  marc index records.mrc --index-dir ./records.idx`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadSettings(cmd)
		if err != nil {
			return err
		}
		dir, _ := cmd.Flags().GetString("index-dir")

		ix, err := index.Open(dir)
		if err != nil {
			return err
		}
		defer ix.Close()

		result, err := ix.Build(args[0], cfg.ResolveWorkers())
		if err != nil {
			return err
		}

		fmt.Printf("build %s: %d records indexed, %d without 001, %d parse errors\n",
			result.BuildID, result.Records, result.Skipped, result.Errors)
		return nil
	},
}

func init() {
	indexCmd.Flags().String("index-dir", "./marc.idx", "Index directory")
	rootCmd.AddCommand(indexCmd)
}
