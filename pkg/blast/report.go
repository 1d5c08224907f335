// Package blast reads tabular (outfmt 6) BLAST reports.
package blast

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/scttfrdmn/gbk2circos/pkg/logger"
	"github.com/scttfrdmn/gbk2circos/pkg/storage"
	"go.uber.org/zap"
)

// NumColumns is the number of fields of a standard tabular BLAST row
const NumColumns = 12

// DefaultMinIdentity is the percent identity a row needs to be kept
const DefaultMinIdentity = 50.0

// Column names in report order
var Columns = [NumColumns]string{
	"qseqid", "sseqid", "pident", "length", "mismatch", "gapopen",
	"qstart", "qend", "sstart", "send", "evalue", "bitscore",
}

// Row is one local alignment. Coordinates are one-based and relative to
// the query and subject sequences of the search.
type Row struct {
	QueryID         string
	SubjectID       string
	PercentIdentity float64
	AlignmentLength int
	Mismatches      int
	GapOpens        int
	QueryStart      int
	QueryEnd        int
	SubjectStart    int
	SubjectEnd      int
	EValue          float64
	BitScore        float64
}

// ParseError describes a line that could not be read as a row
type ParseError struct {
	Line   int
	Column string // empty when the column count is wrong
	Err    error
}

func (e *ParseError) Error() string {
	if e.Column == "" {
		return fmt.Sprintf("line %d: %v", e.Line, e.Err)
	}
	return fmt.Sprintf("line %d: column %s: %v", e.Line, e.Column, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Options controls report filtering
type Options struct {
	// MinIdentity is inclusive
	MinIdentity float64
	// Lenient records malformed lines in Report.Malformed and keeps going.
	// Otherwise the first malformed line aborts the read.
	Lenient bool
	// AWS region for s3:// inputs
	Region string
}

// DefaultOptions returns fail-fast options with the default threshold
func DefaultOptions() Options {
	return Options{MinIdentity: DefaultMinIdentity}
}

// Report is the result of reading a report
type Report struct {
	Rows      []Row // rows passing the identity filter, in file order
	Total     int   // well-formed rows read
	Malformed []*ParseError
}

// ReadReport reads and filters the report at path (local or s3://,
// optionally compressed).
func ReadReport(ctx context.Context, path string, opts Options) (*Report, error) {
	rc, err := storage.Open(ctx, path, opts.Region)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	report, err := Parse(rc, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to read BLAST report %s: %w", path, err)
	}

	logger.Debug("Read BLAST report",
		zap.String("path", path),
		zap.Int("rows", report.Total),
		zap.Int("kept", len(report.Rows)),
		zap.Int("malformed", len(report.Malformed)),
		zap.Float64("min_identity", opts.MinIdentity))

	return report, nil
}

// Parse reads rows from r. Blank lines and '#' comment lines (outfmt 7)
// are skipped; columns past the twelfth are ignored.
func Parse(r io.Reader, opts Options) (*Report, error) {
	report := &Report{}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(line) == "" || strings.HasPrefix(line, "#") {
			continue
		}

		row, err := ParseRow(strings.Split(line, "\t"))
		if err != nil {
			err.Line = lineNo
			if !opts.Lenient {
				return nil, err
			}
			logger.Warn("Skipping malformed BLAST line", zap.Error(err))
			report.Malformed = append(report.Malformed, err)
			continue
		}

		report.Total++
		if row.PercentIdentity >= opts.MinIdentity {
			report.Rows = append(report.Rows, row)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return report, nil
}

// ParseRow converts the fields of one line. The returned error has no
// line number set.
func ParseRow(fields []string) (Row, *ParseError) {
	if len(fields) < NumColumns {
		return Row{}, &ParseError{
			Err: fmt.Errorf("expected %d tab-separated columns, got %d", NumColumns, len(fields)),
		}
	}

	p := fieldParser{fields: fields}
	row := Row{
		QueryID:         fields[0],
		SubjectID:       fields[1],
		PercentIdentity: p.atof(2),
		AlignmentLength: p.atoi(3),
		Mismatches:      p.atoi(4),
		GapOpens:        p.atoi(5),
		QueryStart:      p.atoi(6),
		QueryEnd:        p.atoi(7),
		SubjectStart:    p.atoi(8),
		SubjectEnd:      p.atoi(9),
		EValue:          p.atof(10),
		BitScore:        p.atof(11),
	}
	if p.err != nil {
		return Row{}, p.err
	}
	return row, nil
}

// fieldParser keeps the first conversion error
type fieldParser struct {
	fields []string
	err    *ParseError
}

func (p *fieldParser) atoi(i int) int {
	if p.err != nil {
		return 0
	}
	v, err := strconv.Atoi(strings.TrimSpace(p.fields[i]))
	if err != nil {
		p.err = &ParseError{Column: Columns[i], Err: err}
	}
	return v
}

func (p *fieldParser) atof(i int) float64 {
	if p.err != nil {
		return 0
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(p.fields[i]), 64)
	if err != nil {
		p.err = &ParseError{Column: Columns[i], Err: err}
	}
	return v
}
