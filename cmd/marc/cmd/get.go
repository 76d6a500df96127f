package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dchud/marcstream/pkg/index"
)

// getCmd represents the get command
var getCmd = &cobra.Command{
	Use:   "get <control-number>",
	Short: "Retrieve one record by control number",
	Long: `Retrieve a single record from an indexed MARC file by its
control number (tag 001) and print it in mnemonic form.

Example:
  marc get ocm12345678 --index-dir ./records.idx`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, _ := cmd.Flags().GetString("index-dir")

		ix, err := index.Open(dir)
		if err != nil {
			return err
		}
		defer ix.Close()

		rec, err := ix.Get(args[0])
		if err != nil {
			return err
		}

		fmt.Println(formatRecord(rec))
		return nil
	},
}

func init() {
	getCmd.Flags().String("index-dir", "./marc.idx", "Index directory")
	rootCmd.AddCommand(getCmd)
}
