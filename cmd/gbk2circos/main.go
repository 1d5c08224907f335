package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/scttfrdmn/gbk2circos/pkg/annotation"
	"github.com/scttfrdmn/gbk2circos/pkg/circos"
	"github.com/scttfrdmn/gbk2circos/pkg/config"
	"github.com/scttfrdmn/gbk2circos/pkg/logger"
	"github.com/scttfrdmn/gbk2circos/pkg/pipeline"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var (
	queryPath    string
	subjectPath  string
	reportPath   string
	queryName    string
	subjectName  string
	outDir       string
	minIdentity  float64
	queryColor   string
	subjectColor string
	strict       bool
	lenient      bool
	format       string
	dbPath       string
	showConfig   bool
	logLevel     string
	region       string
)

// env is loaded in main before the command line is parsed
var env = &config.Env{
	MinIdentity:  config.DefaultMinIdentity,
	QueryColor:   config.DefaultQueryColor,
	SubjectColor: config.DefaultSubjectColor,
	LogLevel:     config.DefaultLogLevel,
}

var rootCmd = &cobra.Command{
	Use:   "gbk2circos",
	Short: "Convert annotations and BLAST hits into Circos input files",
	Long: `gbk2circos turns a pair of annotated genomes and a BLAST tabular report
of gene-vs-gene alignments into the three plain-text files Circos needs:

  karyotype.txt  one chromosome line per genome
  labels.txt     one label per coding sequence
  links.txt      one ribbon per alignment, in genome coordinates

Annotations may be GenBank or GFF3, plain or compressed (.gz, .bgz, .zst),
local or on S3 (s3://bucket/key). Alignments below the identity threshold
are dropped. Alignments that mention a gene missing from either annotation
are reported and skipped.

Defaults can be set in the environment or a .env file:
  GBK2CIRCOS_MIN_IDENTITY, GBK2CIRCOS_QUERY_COLOR, GBK2CIRCOS_SUBJECT_COLOR,
  GBK2CIRCOS_LOG_LEVEL, GBK2CIRCOS_DB, AWS_REGION

Examples:
  # Plastome against mitogenome
  gbk2circos --query_gbk plastome.gbk --subject_gbk mito.gbk \
    --blast_report hits.tsv --query_name plastome --subject_name mito

  # Stricter threshold, outputs on S3
  gbk2circos --query_gbk q.gbk.gz --subject_gbk s.gff3 --blast_report hits.tsv \
    --query_name Q --subject_name S --min_identity 80 --out_dir s3://bucket/circos

  # Show effective configuration
  gbk2circos --show-config --query_gbk q.gbk --subject_gbk s.gbk \
    --blast_report hits.tsv --query_name Q --subject_name S`,
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		applyEnvDefaults(cmd.Flags())
		level, err := logger.ParseLevel(logLevel)
		if err != nil {
			return fmt.Errorf("invalid log level: %w", err)
		}
		return logger.InitLogger(level)
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		annoFormat, err := annotation.ParseFormat(format)
		if err != nil {
			return err
		}

		cfg := circos.NewConfig(queryName, subjectName)
		cfg.QueryColor = queryColor
		cfg.SubjectColor = subjectColor
		cfg.MinIdentity = minIdentity

		opts := pipeline.Options{
			QueryPath:   queryPath,
			SubjectPath: subjectPath,
			ReportPath:  reportPath,
			OutDir:      outDir,
			Config:      cfg,
			Format:      annoFormat,
			Strict:      strict,
			Lenient:     lenient,
			DBPath:      dbPath,
			Region:      region,
			Out:         cmd.OutOrStdout(),
		}

		if showConfig {
			if err := cfg.Validate(); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			cfg.ShowConfig(out)
			fmt.Fprintf(out, "  Output directory: %s\n", opts.OutputDir())
			if dbPath != "" {
				fmt.Fprintf(out, "  Run database: %s\n", dbPath)
			}
			if env.DotenvLoaded {
				fmt.Fprintf(out, "  Defaults loaded from .env\n")
			}
			return nil
		}

		summary, err := pipeline.Run(cmd.Context(), opts)
		if err != nil {
			return err
		}
		pipeline.PrintSummary(cmd.OutOrStdout(), summary)
		return nil
	},
}

func main() {
	loaded, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	env = loaded

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err = rootCmd.ExecuteContext(ctx)
	stop()
	logger.Sync()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(inspectCmd)
	rootCmd.AddCommand(runsCmd)
	rootCmd.AddCommand(versionCmd)

	rootCmd.Flags().StringVar(&queryPath, "query_gbk", "", "Query annotation file (GenBank or GFF3)")
	rootCmd.Flags().StringVar(&subjectPath, "subject_gbk", "", "Subject annotation file (GenBank or GFF3)")
	rootCmd.Flags().StringVar(&reportPath, "blast_report", "", "BLAST tabular report (-outfmt 6)")
	rootCmd.Flags().StringVar(&queryName, "query_name", "", "Display name of the query genome")
	rootCmd.Flags().StringVar(&subjectName, "subject_name", "", "Display name of the subject genome")
	for _, name := range []string{"query_gbk", "subject_gbk", "blast_report", "query_name", "subject_name"} {
		rootCmd.MarkFlagRequired(name)
	}

	rootCmd.Flags().StringVar(&outDir, "out_dir", "",
		"Output directory or s3:// prefix (default: directory of --query_gbk)")
	rootCmd.Flags().Float64Var(&minIdentity, "min_identity", config.DefaultMinIdentity,
		"Minimum percent identity of an alignment")
	rootCmd.Flags().StringVar(&queryColor, "query_color", config.DefaultQueryColor,
		"Karyotype color of the query genome")
	rootCmd.Flags().StringVar(&subjectColor, "subject_color", config.DefaultSubjectColor,
		"Karyotype color of the subject genome")
	rootCmd.Flags().BoolVar(&strict, "strict", false,
		"Fail on duplicate gene identifiers instead of keeping the last one")
	rootCmd.Flags().BoolVar(&lenient, "lenient", false,
		"Skip malformed BLAST lines instead of aborting")
	rootCmd.Flags().StringVar(&format, "format", "",
		"Annotation format: genbank, gff (default: from file extension)")
	rootCmd.Flags().StringVar(&dbPath, "db", "",
		"Record the run in this SQLite database")
	rootCmd.Flags().BoolVar(&showConfig, "show-config", false,
		"Show effective configuration and exit")

	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", config.DefaultLogLevel,
		"Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&region, "region", "",
		"AWS region for s3:// paths (default: AWS_REGION or the SDK default)")
}

// applyEnvDefaults fills every flag the user did not set from the
// environment
func applyEnvDefaults(flags *pflag.FlagSet) {
	if !flags.Changed("min_identity") {
		minIdentity = env.MinIdentity
	}
	if !flags.Changed("query_color") {
		queryColor = env.QueryColor
	}
	if !flags.Changed("subject_color") {
		subjectColor = env.SubjectColor
	}
	if !flags.Changed("log-level") {
		logLevel = env.LogLevel
	}
	if !flags.Changed("db") {
		dbPath = env.DB
	}
	if !flags.Changed("region") {
		region = env.AWSRegion
	}
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("gbk2circos version 0.1.0")
		fmt.Println("GenBank/GFF + BLAST to Circos converter")
	},
}
