// Package pipeline runs the extract → filter → emit sequence that turns two
// annotation files and a BLAST report into Circos input files.
package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
	"github.com/scttfrdmn/gbk2circos/pkg/annotation"
	"github.com/scttfrdmn/gbk2circos/pkg/blast"
	"github.com/scttfrdmn/gbk2circos/pkg/circos"
	"github.com/scttfrdmn/gbk2circos/pkg/logger"
	"github.com/scttfrdmn/gbk2circos/pkg/rundb"
	"github.com/scttfrdmn/gbk2circos/pkg/storage"
	"go.uber.org/zap"
)

// Options for one run
type Options struct {
	QueryPath   string
	SubjectPath string
	ReportPath  string
	// OutDir defaults to the directory of QueryPath
	OutDir string

	Config *circos.Config

	Format  annotation.Format
	Strict  bool
	Lenient bool

	// DBPath, when set, records the run in a SQLite database
	DBPath string
	// AWS region for s3:// paths
	Region string

	// Progress and diagnostics; io.Discard when nil
	Out io.Writer
}

// OutputFile is a written output
type OutputFile struct {
	Path string
	Size int
}

// Summary describes a completed run
type Summary struct {
	QueryGenes   int
	SubjectGenes int
	Alignments   int // rows kept by the identity filter
	Links        int
	Unresolved   []circos.Unresolved
	Malformed    []*blast.ParseError
	Karyotype    OutputFile
	Labels       OutputFile
	LinksFile    OutputFile
	RunID        string
}

// OutputDir returns where the outputs of a run with these options go
func (o *Options) OutputDir() string {
	if o.OutDir != "" {
		return o.OutDir
	}
	return storage.Dir(o.QueryPath)
}

// Run executes the pipeline. Output files already written stay in place
// when a later stage fails.
func Run(ctx context.Context, opts Options) (*Summary, error) {
	if opts.Config == nil {
		return nil, fmt.Errorf("missing configuration")
	}
	if err := opts.Config.Validate(); err != nil {
		return nil, err
	}
	out := opts.Out
	if out == nil {
		out = io.Discard
	}
	cfg := opts.Config
	summary := &Summary{}

	annoOpts := annotation.Options{Format: opts.Format, Strict: opts.Strict, Region: opts.Region}

	query, err := annotation.Extract(ctx, opts.QueryPath, annoOpts)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	subject, err := annotation.Extract(ctx, opts.SubjectPath, annoOpts)
	if err != nil {
		return nil, err
	}
	summary.QueryGenes = query.Genes.Len()
	summary.SubjectGenes = subject.Genes.Len()
	fmt.Fprintf(out, "Parsed %d genes from query annotation file.\n", summary.QueryGenes)
	fmt.Fprintf(out, "Parsed %d genes from subject annotation file.\n", summary.SubjectGenes)

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	report, err := blast.ReadReport(ctx, opts.ReportPath, blast.Options{
		MinIdentity: cfg.MinIdentity,
		Lenient:     opts.Lenient,
		Region:      opts.Region,
	})
	if err != nil {
		return nil, err
	}
	summary.Alignments = len(report.Rows)
	summary.Malformed = report.Malformed
	for _, m := range report.Malformed {
		fmt.Fprintf(out, "Skipped malformed BLAST %v\n", m)
	}
	fmt.Fprintf(out, "Parsed %d alignments from BLAST report.\n", summary.Alignments)

	outDir := opts.OutputDir()
	store, err := storage.NewStorage(ctx, outDir, opts.Region)
	if err != nil {
		return nil, fmt.Errorf("failed to create output storage: %w", err)
	}

	var buf bytes.Buffer
	if err := circos.WriteKaryotype(&buf, cfg, query.Length, subject.Length); err != nil {
		return nil, err
	}
	if summary.Karyotype, err = writeOutput(ctx, store, outDir, circos.KaryotypeFile, &buf); err != nil {
		return nil, err
	}

	buf.Reset()
	if err := circos.WriteLabels(&buf, cfg, query.Genes, subject.Genes); err != nil {
		return nil, err
	}
	if summary.Labels, err = writeOutput(ctx, store, outDir, circos.LabelsFile, &buf); err != nil {
		return nil, err
	}

	links, unresolved := circos.Translate(report.Rows, query.Genes, subject.Genes)
	for _, u := range unresolved {
		fmt.Fprintln(out, u.String())
	}
	summary.Unresolved = unresolved

	buf.Reset()
	n, err := circos.WriteLinks(&buf, links, cfg.QueryName, cfg.SubjectName)
	if err != nil {
		return nil, err
	}
	if summary.LinksFile, err = writeOutput(ctx, store, outDir, circos.LinksFile, &buf); err != nil {
		return nil, err
	}
	summary.Links = n
	fmt.Fprintf(out, "Generated %d links.\n", n)

	logger.Info("Circos input files written",
		zap.String("out_dir", store.GetBasePath()),
		zap.Bool("s3", store.IsS3()),
		zap.Int("links", n),
		zap.Int("unresolved", len(unresolved)))

	if opts.DBPath != "" {
		runID, err := recordRun(ctx, opts.DBPath, rundb.Run{
			Config:     cfg,
			Query:      query,
			Subject:    subject,
			Alignments: summary.Alignments,
			Links:      links,
		})
		if err != nil {
			return nil, err
		}
		summary.RunID = runID
	}

	return summary, nil
}

func writeOutput(ctx context.Context, store storage.Storage, dir, name string, buf *bytes.Buffer) (OutputFile, error) {
	if exists, err := store.Exists(ctx, name); err == nil && exists {
		logger.Debug("Overwriting existing output", zap.String("file", name))
	}
	if err := store.WriteFile(ctx, name, buf.Bytes()); err != nil {
		return OutputFile{}, fmt.Errorf("failed to write %s: %w", name, err)
	}
	return OutputFile{Path: storage.Join(dir, name), Size: buf.Len()}, nil
}

func recordRun(ctx context.Context, path string, run rundb.Run) (string, error) {
	db, err := rundb.Open(ctx, path)
	if err != nil {
		return "", err
	}
	defer db.Close()

	runID, err := db.Record(ctx, run)
	if err != nil {
		return "", fmt.Errorf("failed to record run in %s: %w", path, err)
	}
	logger.Info("Recorded run", zap.String("run_id", runID), zap.String("db", path))
	return runID, nil
}

// PrintSummary prints the closing lines of a run
func PrintSummary(w io.Writer, s *Summary) {
	fmt.Fprintf(w, "Circos input files generated successfully!\n")
	for _, f := range []struct {
		label string
		file  OutputFile
	}{
		{"Karyotype file", s.Karyotype},
		{"Labels file", s.Labels},
		{"Links file", s.LinksFile},
	} {
		fmt.Fprintf(w, "%s: %s (%s)\n", f.label, f.file.Path, humanize.Bytes(uint64(f.file.Size)))
	}
	if s.RunID != "" {
		fmt.Fprintf(w, "Run ID: %s\n", s.RunID)
	}
}
