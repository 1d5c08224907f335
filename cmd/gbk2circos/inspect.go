package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/scttfrdmn/gbk2circos/pkg/annotation"
	"github.com/spf13/cobra"
)

var (
	inspectFormat string
	inspectLimit  int
	inspectStrict bool
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <annotation>",
	Short: "Show the genes extracted from an annotation file",
	Long: `Display what gbk2circos extracts from one annotation file: the genome
length, the number of coding sequences and the first genes in label order.

Useful to check which identifiers a BLAST report must use before running
the conversion.

Example:
  gbk2circos inspect plastome.gbk
  gbk2circos inspect --limit 0 s3://bucket/mito.gff3.gz`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]

		annoFormat, err := annotation.ParseFormat(inspectFormat)
		if err != nil {
			return err
		}

		genome, err := annotation.Extract(cmd.Context(), path, annotation.Options{
			Format: annoFormat,
			Strict: inspectStrict,
			Region: region,
		})
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, "===========================================")
		fmt.Fprintln(out, "Annotation Summary")
		fmt.Fprintln(out, "===========================================")
		fmt.Fprintln(out)
		fmt.Fprintf(out, "Source: %s\n", genome.Source)
		fmt.Fprintf(out, "Records: %d\n", genome.Records)
		fmt.Fprintf(out, "Genome length: %s bp\n", humanize.Comma(int64(genome.Length)))
		fmt.Fprintf(out, "Genes: %s\n", humanize.Comma(int64(genome.Genes.Len())))
		fmt.Fprintln(out)

		genes := genome.Genes.Genes()
		if inspectLimit > 0 && len(genes) > inspectLimit {
			genes = genes[:inspectLimit]
		}
		if len(genes) == 0 {
			return nil
		}

		fmt.Fprintln(out, "Genes:")
		for _, g := range genes {
			fmt.Fprintf(out, "  %-20s %9d %9d %s  (%s bp)\n",
				g.ID, g.Start, g.End, g.Strand, humanize.Comma(int64(g.Len())))
		}
		if rest := genome.Genes.Len() - len(genes); rest > 0 {
			fmt.Fprintf(out, "  ... and %d more\n", rest)
		}
		return nil
	},
}

func init() {
	inspectCmd.Flags().StringVar(&inspectFormat, "format", "",
		"Annotation format: genbank, gff (default: from file extension)")
	inspectCmd.Flags().IntVar(&inspectLimit, "limit", 10,
		"Number of genes to list (0 = all)")
	inspectCmd.Flags().BoolVar(&inspectStrict, "strict", false,
		"Fail on duplicate gene identifiers")
}
