// Package circos formats genomes, genes and alignment links as Circos
// karyotype, label and link files.
package circos

import (
	"bufio"
	"fmt"
	"io"

	"github.com/scttfrdmn/gbk2circos/pkg/annotation"
)

// WriteKaryotype writes the two chromosome lines, query first
func WriteKaryotype(w io.Writer, cfg *Config, queryLength, subjectLength int) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "chr - %s %s 0 %d %s\n", cfg.QueryName, cfg.QueryName, queryLength, cfg.QueryColor)
	fmt.Fprintf(bw, "chr - %s %s 0 %d %s\n", cfg.SubjectName, cfg.SubjectName, subjectLength, cfg.SubjectColor)
	return bw.Flush()
}

// WriteLabels writes one line per gene, all query genes before the subject
// genes, each in mapping order
func WriteLabels(w io.Writer, cfg *Config, query, subject *annotation.GeneMap) error {
	bw := bufio.NewWriter(w)
	for _, g := range query.Genes() {
		fmt.Fprintf(bw, "%s %d %d %s\n", cfg.QueryName, g.Start, g.End, g.ID)
	}
	for _, g := range subject.Genes() {
		fmt.Fprintf(bw, "%s %d %d %s\n", cfg.SubjectName, g.Start, g.End, g.ID)
	}
	return bw.Flush()
}
