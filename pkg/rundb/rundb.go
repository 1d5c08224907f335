// Package rundb records runs, their genes and emitted links in a SQLite
// database.
package rundb

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/scttfrdmn/gbk2circos/pkg/annotation"
	"github.com/scttfrdmn/gbk2circos/pkg/circos"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	run_id         TEXT PRIMARY KEY,
	created        TEXT NOT NULL,
	query_name     TEXT NOT NULL,
	subject_name   TEXT NOT NULL,
	query_source   TEXT NOT NULL,
	subject_source TEXT NOT NULL,
	query_length   INTEGER NOT NULL,
	subject_length INTEGER NOT NULL,
	min_identity   REAL NOT NULL,
	alignments     INTEGER NOT NULL,
	links          INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS genes (
	run_id     TEXT NOT NULL REFERENCES runs(run_id),
	genome     TEXT NOT NULL,
	gene_id    TEXT NOT NULL,
	start_pos  INTEGER NOT NULL,
	end_pos    INTEGER NOT NULL,
	strand     TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS links (
	run_id        TEXT NOT NULL REFERENCES runs(run_id),
	query_gene    TEXT NOT NULL,
	query_start   INTEGER NOT NULL,
	query_end     INTEGER NOT NULL,
	subject_gene  TEXT NOT NULL,
	subject_start INTEGER NOT NULL,
	subject_end   INTEGER NOT NULL,
	identity      REAL NOT NULL,
	evalue        REAL NOT NULL,
	bit_score     REAL NOT NULL
);
`

// Run is everything recorded for one invocation
type Run struct {
	Config     *circos.Config
	Query      *annotation.Genome
	Subject    *annotation.Genome
	Alignments int
	Links      []circos.Link
}

// DB wraps the run database
type DB struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at path and ensures the
// schema exists
func Open(ctx context.Context, path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open run database %s: %w", path, err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema in %s: %w", path, err)
	}
	return &DB{db: db}, nil
}

// Close closes the database
func (d *DB) Close() error {
	return d.db.Close()
}

// Record stores a run in one transaction and returns its generated id
func (d *DB) Record(ctx context.Context, run Run) (string, error) {
	runID := uuid.New().String()

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (run_id, created, query_name, subject_name, query_source, subject_source,
			query_length, subject_length, min_identity, alignments, links)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		runID, time.Now().UTC().Format(time.RFC3339),
		run.Config.QueryName, run.Config.SubjectName,
		run.Query.Source, run.Subject.Source,
		run.Query.Length, run.Subject.Length,
		run.Config.MinIdentity, run.Alignments, len(run.Links))
	if err != nil {
		return "", fmt.Errorf("failed to insert run: %w", err)
	}

	geneStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO genes (run_id, genome, gene_id, start_pos, end_pos, strand) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return "", err
	}
	defer geneStmt.Close()

	genomes := []struct {
		name  string
		genes *annotation.GeneMap
	}{
		{run.Config.QueryName, run.Query.Genes},
		{run.Config.SubjectName, run.Subject.Genes},
	}
	for _, g := range genomes {
		for _, gene := range g.genes.Genes() {
			if _, err := geneStmt.ExecContext(ctx, runID, g.name, gene.ID, gene.Start, gene.End, gene.Strand.String()); err != nil {
				return "", fmt.Errorf("failed to insert gene %s: %w", gene.ID, err)
			}
		}
	}

	linkStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO links (run_id, query_gene, query_start, query_end, subject_gene, subject_start, subject_end,
			identity, evalue, bit_score) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return "", err
	}
	defer linkStmt.Close()

	for _, l := range run.Links {
		if _, err := linkStmt.ExecContext(ctx, runID,
			l.Row.QueryID, l.QueryStart, l.QueryEnd,
			l.Row.SubjectID, l.SubjectStart, l.SubjectEnd,
			l.Row.PercentIdentity, l.Row.EValue, l.Row.BitScore); err != nil {
			return "", fmt.Errorf("failed to insert link: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", err
	}
	return runID, nil
}

// RunSummary is a row of the runs table
type RunSummary struct {
	RunID       string
	Created     string
	QueryName   string
	SubjectName string
	Alignments  int
	Links       int
}

// Runs lists recorded runs, newest first
func (d *DB) Runs(ctx context.Context) ([]RunSummary, error) {
	stm, err := d.db.PrepareContext(ctx,
		`SELECT run_id, created, query_name, subject_name, alignments, links FROM runs ORDER BY created DESC, rowid DESC`)
	if err != nil {
		return nil, err
	}
	defer stm.Close()

	rows, err := stm.QueryContext(ctx)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []RunSummary
	for rows.Next() {
		var r RunSummary
		if err := rows.Scan(&r.RunID, &r.Created, &r.QueryName, &r.SubjectName, &r.Alignments, &r.Links); err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

// CountLinks returns how many links were stored for a run
func (d *DB) CountLinks(ctx context.Context, runID string) (int, error) {
	var n int
	err := d.db.QueryRowContext(ctx, `SELECT count(*) FROM links WHERE run_id = ?`, runID).Scan(&n)
	return n, err
}
