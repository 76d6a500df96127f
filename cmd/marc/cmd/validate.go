package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dchud/marcstream/pkg/pipeline"
	"github.com/dchud/marcstream/pkg/source"
)

// validateCmd represents the validate command
var validateCmd = &cobra.Command{
	Use:   "validate <file>",
	Short: "Report every record that fails to decode",
	Long: `Validate a MARC file record by record. Each parse failure is
reported with its position in the file and the byte offset of the
fault; well-formed records are passed over silently.

Example:
  marc validate records.mrc`,
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

		var n, bad int
		for {
			res, err := p.Next()
			if err != nil {
				if errors.Is(err, pipeline.ErrExhausted) {
					break
				}
				return err
			}
			n++
			if res.Err != nil {
				bad++
				fmt.Printf("record %d: %v\n", n, res.Err)
			}
		}

		if bad > 0 {
			return fmt.Errorf("%d of %d records failed to decode", bad, n)
		}
		fmt.Printf("all %d records decoded cleanly\n", n)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
