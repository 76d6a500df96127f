package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dchud/marcstream/pkg/marc"
	"github.com/dchud/marcstream/pkg/pipeline"
	"github.com/dchud/marcstream/pkg/source"
)

// dumpCmd represents the dump command
var dumpCmd = &cobra.Command{
	Use:   "dump <file>",
	Short: "Print records in a readable text form",
	Long: `Dump a MARC file record by record in a mnemonic text form:
the leader, then one line per field with indicators and $-prefixed
subfield codes.

Example:
  marc dump records.mrc`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadSettings(cmd)
		if err != nil {
			return err
		}
		limit, _ := cmd.Flags().GetInt("limit")

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

		var n int
		for limit <= 0 || n < limit {
			res, err := p.Next()
			if err != nil {
				if errors.Is(err, pipeline.ErrExhausted) {
					break
				}
				return err
			}
			n++
			if res.Err != nil {
				fmt.Printf("record %d: %v\n\n", n, res.Err)
				continue
			}
			fmt.Println(formatRecord(res.Record))
		}
		return nil
	},
}

// formatRecord renders a record in mnemonic form.
func formatRecord(rec *marc.Record) string {
	var b strings.Builder
	lb := rec.Leader.Bytes()
	fmt.Fprintf(&b, "LDR %s\n", string(lb[:]))

	for i := range rec.Fields {
		f := &rec.Fields[i]
		if f.IsControl() {
			fmt.Fprintf(&b, "%s    %s\n", f.Tag, f.Value)
			continue
		}
		fmt.Fprintf(&b, "%s %c%c", f.Tag, f.Ind1, f.Ind2)
		for _, sf := range f.Subfields {
			fmt.Fprintf(&b, " $%c%s", sf.Code, sf.Value)
		}
		b.WriteByte('\n')
	}
	return b.String()
}

func init() {
	dumpCmd.Flags().IntP("limit", "n", 0, "Stop after this many records (0 = no limit)")
	rootCmd.AddCommand(dumpCmd)
}
