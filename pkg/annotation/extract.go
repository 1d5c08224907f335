// Package annotation extracts coding features and genome length from
// GenBank and GFF annotation files.
package annotation

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/scttfrdmn/gbk2circos/pkg/logger"
	"github.com/scttfrdmn/gbk2circos/pkg/storage"
	"go.uber.org/zap"
)

// Format of an annotation file
type Format string

const (
	FormatAuto    Format = ""
	FormatGenBank Format = "genbank"
	FormatGFF     Format = "gff"
)

// ParseFormat validates a user-supplied format name
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "", "auto":
		return FormatAuto, nil
	case "genbank", "gbk", "gb":
		return FormatGenBank, nil
	case "gff", "gff3", "gtf":
		return FormatGFF, nil
	}
	return FormatAuto, fmt.Errorf("unknown annotation format %q (genbank, gff)", s)
}

// DetectFormat guesses the format from the file name, ignoring any
// compression suffix. Anything that is not GFF is read as GenBank.
func DetectFormat(path string) Format {
	ext := strings.ToLower(filepath.Ext(storage.TrimCompressionSuffix(path)))
	switch ext {
	case ".gff", ".gff3", ".gtf", ".gff2":
		return FormatGFF
	}
	return FormatGenBank
}

// Options controls extraction
type Options struct {
	Format Format
	// Strict rejects a second CDS with an identifier already seen instead of
	// overwriting the earlier one.
	Strict bool
	// AWS region for s3:// inputs
	Region string
}

// Extract reads the annotation file at path (local or s3://, optionally
// compressed).
func Extract(ctx context.Context, path string, opts Options) (*Genome, error) {
	if opts.Format == FormatAuto {
		opts.Format = DetectFormat(path)
	}

	rc, err := storage.Open(ctx, path, opts.Region)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	genome, err := Parse(rc, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	genome.Source = path

	logger.Debug("Extracted annotation",
		zap.String("path", path),
		zap.String("format", string(opts.Format)),
		zap.Int("records", genome.Records),
		zap.Int("genes", genome.Genes.Len()),
		zap.Int("length", genome.Length))

	return genome, nil
}

// Parse extracts genes from an annotation stream. FormatAuto means GenBank.
func Parse(r io.Reader, opts Options) (*Genome, error) {
	if opts.Format == FormatGFF {
		return parseGFF(r, opts)
	}
	return parseGenBank(r, opts)
}

func parseGenBank(r io.Reader, opts Options) (*Genome, error) {
	genome := &Genome{Genes: NewGeneMap()}
	reader := NewGenBankReader(r)

	for {
		rec, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}

		genome.Records++
		// Only the first record defines the genome length
		if genome.Records == 1 {
			genome.Length = rec.Length
		}

		for i := range rec.Features {
			feat := &rec.Features[i]
			if feat.Key != FeatureCDS {
				continue
			}

			span, err := ParseLocation(feat.Location)
			if err != nil {
				logger.Warn("Skipping CDS with unreadable location",
					zap.String("record", rec.Name),
					zap.Error(err))
				continue
			}

			g := Gene{
				ID:     resolveIDQualifiers(feat),
				Start:  span.Start,
				End:    span.End,
				Strand: span.Strand,
			}
			if err := genome.put(g, opts); err != nil {
				return nil, err
			}
		}
	}

	return genome, nil
}

// resolveIDQualifiers applies the gene → locus_tag → placeholder fallback
// to a GenBank feature
func resolveIDQualifiers(f *Feature) string {
	gene, _ := f.Qualifier(QualifierGene)
	locusTag, _ := f.Qualifier(QualifierLocusTag)
	return resolveID(gene, locusTag)
}

// resolveID picks the gene name, falling back to the locus tag when the name
// is absent or empty. A name equal to the placeholder also falls back, and
// an empty identifier is never returned.
func resolveID(gene, locusTag string) string {
	if gene != "" && gene != UnknownID {
		return gene
	}
	if locusTag != "" {
		return locusTag
	}
	return UnknownID
}

func (g *Genome) put(gene Gene, opts Options) error {
	if g.Genes.Put(gene) {
		if opts.Strict {
			return fmt.Errorf("%w: %s", ErrDuplicateGene, gene.ID)
		}
		logger.Debug("Gene identifier seen again, keeping the later feature",
			zap.String("gene", gene.ID))
	}
	return nil
}
