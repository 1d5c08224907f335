package pipeline

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/scttfrdmn/gbk2circos/pkg/blast"
	"github.com/scttfrdmn/gbk2circos/pkg/circos"
)

const queryGBK = `LOCUS       plastome               10000 bp    DNA     circular PLN 01-JAN-2020
DEFINITION  test plastome.
FEATURES             Location/Qualifiers
     source          1..10000
                     /organism="Testus plastidus"
     CDS             101..400
                     /gene="qa"
                     /locus_tag="PT_0001"
//
`

const subjectGBK = `LOCUS       mito                    8000 bp    DNA     circular PLN 01-JAN-2020
DEFINITION  test mitogenome.
FEATURES             Location/Qualifiers
     CDS             complement(201..500)
                     /gene="sa"
//
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}

func TestRunEndToEnd(t *testing.T) {
	dir := t.TempDir()
	opts := Options{
		QueryPath:   writeFile(t, dir, "q.gbk", queryGBK),
		SubjectPath: writeFile(t, dir, "s.gbk", subjectGBK),
		ReportPath: writeFile(t, dir, "hits.tsv",
			"qa\tsa\t80.0\t50\t10\t0\t1\t50\t1\t40\t1e-20\t90.5\n"+
				"qa\tsa\t30.0\t50\t35\t0\t1\t50\t1\t40\t1e-2\t20.0\n"),
		Config: circos.NewConfig("plastome", "mito"),
	}
	var out bytes.Buffer
	opts.Out = &out

	summary, err := Run(context.Background(), opts)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if got := readFile(t, filepath.Join(dir, circos.KaryotypeFile)); got != "chr - plastome plastome 0 10000 green\nchr - mito mito 0 8000 blue\n" {
		t.Errorf("karyotype = %q", got)
	}
	if got := readFile(t, filepath.Join(dir, circos.LabelsFile)); got != "plastome 100 400 qa\nmito 200 500 sa\n" {
		t.Errorf("labels = %q", got)
	}
	if got := readFile(t, filepath.Join(dir, circos.LinksFile)); got != "plastome 101 150 mito 201 240\n" {
		t.Errorf("links = %q", got)
	}

	if summary.QueryGenes != 1 || summary.SubjectGenes != 1 || summary.Alignments != 1 || summary.Links != 1 {
		t.Errorf("summary = %+v", summary)
	}
	if summary.LinksFile.Path != filepath.Join(dir, circos.LinksFile) {
		t.Errorf("links path = %s", summary.LinksFile.Path)
	}
	if !strings.Contains(out.String(), "Generated 1 links.") {
		t.Errorf("output missing link count:\n%s", out.String())
	}
}

func TestRunReportsUnresolved(t *testing.T) {
	dir := t.TempDir()
	outDir := filepath.Join(dir, "out")
	if err := os.Mkdir(outDir, 0755); err != nil {
		t.Fatal(err)
	}
	opts := Options{
		QueryPath:   writeFile(t, dir, "q.gbk", queryGBK),
		SubjectPath: writeFile(t, dir, "s.gbk", subjectGBK),
		ReportPath: writeFile(t, dir, "hits.tsv",
			"ghost\tsa\t99\t10\t0\t0\t1\t10\t1\t10\t0\t50\n"+
				"qa\tsa\t99\t10\t0\t0\t2\t11\t3\t12\t0\t50\n"),
		OutDir: outDir,
		Config: circos.NewConfig("Q", "S"),
	}
	var out bytes.Buffer
	opts.Out = &out

	summary, err := Run(context.Background(), opts)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(summary.Unresolved) != 1 || summary.Unresolved[0].ID != "ghost" {
		t.Errorf("unresolved = %+v", summary.Unresolved)
	}
	if !strings.Contains(out.String(), "Query gene ghost not found in query annotation file.") {
		t.Errorf("output missing diagnostic:\n%s", out.String())
	}
	if got := readFile(t, filepath.Join(outDir, circos.LinksFile)); got != "Q 102 111 S 203 212\n" {
		t.Errorf("links = %q", got)
	}
}

func TestRunMalformedReport(t *testing.T) {
	dir := t.TempDir()
	opts := Options{
		QueryPath:   writeFile(t, dir, "q.gbk", queryGBK),
		SubjectPath: writeFile(t, dir, "s.gbk", subjectGBK),
		ReportPath:  writeFile(t, dir, "hits.tsv", "qa\tsa\tnot-a-number\t50\t10\t0\t1\t50\t1\t40\t1e-20\t90.5\n"),
		Config:      circos.NewConfig("Q", "S"),
	}

	_, err := Run(context.Background(), opts)
	var perr *blast.ParseError
	if !errors.As(err, &perr) {
		t.Fatalf("Run error = %v, want *blast.ParseError", err)
	}
	if _, statErr := os.Stat(filepath.Join(dir, circos.LinksFile)); !os.IsNotExist(statErr) {
		t.Errorf("links file written despite malformed report")
	}

	opts.Lenient = true
	summary, err := Run(context.Background(), opts)
	if err != nil {
		t.Fatalf("lenient Run: %v", err)
	}
	if len(summary.Malformed) != 1 || summary.Links != 0 {
		t.Errorf("summary = %+v", summary)
	}
}

func TestRunMissingInput(t *testing.T) {
	dir := t.TempDir()
	opts := Options{
		QueryPath:   filepath.Join(dir, "absent.gbk"),
		SubjectPath: writeFile(t, dir, "s.gbk", subjectGBK),
		ReportPath:  writeFile(t, dir, "hits.tsv", ""),
		Config:      circos.NewConfig("Q", "S"),
	}
	if _, err := Run(context.Background(), opts); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Run error = %v, want os.ErrNotExist", err)
	}
}

func TestRunCancelled(t *testing.T) {
	dir := t.TempDir()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	opts := Options{
		QueryPath:   writeFile(t, dir, "q.gbk", queryGBK),
		SubjectPath: writeFile(t, dir, "s.gbk", subjectGBK),
		ReportPath:  writeFile(t, dir, "hits.tsv", ""),
		Config:      circos.NewConfig("Q", "S"),
	}
	if _, err := Run(ctx, opts); !errors.Is(err, context.Canceled) {
		t.Errorf("Run error = %v, want context.Canceled", err)
	}
}

func TestRunRecordsToDB(t *testing.T) {
	dir := t.TempDir()
	opts := Options{
		QueryPath:   writeFile(t, dir, "q.gbk", queryGBK),
		SubjectPath: writeFile(t, dir, "s.gbk", subjectGBK),
		ReportPath:  writeFile(t, dir, "hits.tsv", "qa\tsa\t80\t50\t10\t0\t1\t50\t1\t40\t1e-20\t90.5\n"),
		Config:      circos.NewConfig("Q", "S"),
		DBPath:      filepath.Join(dir, "runs.db"),
	}
	summary, err := Run(context.Background(), opts)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.RunID == "" {
		t.Error("no run id returned")
	}

	var buf bytes.Buffer
	PrintSummary(&buf, summary)
	if !strings.Contains(buf.String(), "Run ID: "+summary.RunID) {
		t.Errorf("summary output:\n%s", buf.String())
	}
}

func TestRunCountsArePlainIntegers(t *testing.T) {
	dir := t.TempDir()
	var hits strings.Builder
	for i := 0; i < 1234; i++ {
		hits.WriteString("qa\tsa\t90\t50\t5\t0\t1\t50\t1\t40\t1e-20\t90.5\n")
	}
	opts := Options{
		QueryPath:   writeFile(t, dir, "q.gbk", queryGBK),
		SubjectPath: writeFile(t, dir, "s.gbk", subjectGBK),
		ReportPath:  writeFile(t, dir, "hits.tsv", hits.String()),
		Config:      circos.NewConfig("Q", "S"),
	}
	var out bytes.Buffer
	opts.Out = &out

	if _, err := Run(context.Background(), opts); err != nil {
		t.Fatalf("Run: %v", err)
	}
	for _, want := range []string{
		"Parsed 1 genes from query annotation file.\n",
		"Parsed 1234 alignments from BLAST report.\n",
		"Generated 1234 links.\n",
	} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("output missing %q:\n%s", want, out.String())
		}
	}
}
