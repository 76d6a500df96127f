package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dchud/marcstream/pkg/pipeline"
	"github.com/dchud/marcstream/pkg/source"
)

// countCmd represents the count command
var countCmd = &cobra.Command{
	Use:   "count <file>",
	Short: "Count records in a MARC file",
	Long: `Count records in a MARC file, reporting how many decoded
cleanly and how many carried parse errors.

Example:
  marc count records.mrc`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadSettings(cmd)
		if err != nil {
			return err
		}

		src, err := source.OpenFileSource(args[0])
		if err != nil {
			return err
		}
		p, err := pipeline.New(src,
			pipeline.WithWorkers(cfg.ResolveWorkers()),
			pipeline.WithChunkSize(cfg.ChunkSize),
			pipeline.WithChannelCapacity(cfg.ChannelCapacity),
		)
		if err != nil {
			return err
		}
		defer p.Close()

		var good, bad int
		for {
			res, err := p.Next()
			if err != nil {
				if errors.Is(err, pipeline.ErrExhausted) {
					break
				}
				return err
			}
			if res.Err != nil {
				bad++
			} else {
				good++
			}
		}

		fmt.Printf("%d records, %d parse errors\n", good, bad)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(countCmd)
}
