package circos

import (
	"bufio"
	"fmt"
	"io"

	"github.com/scttfrdmn/gbk2circos/pkg/annotation"
	"github.com/scttfrdmn/gbk2circos/pkg/blast"
)

// Side names the genome an unresolved identifier belongs to
type Side string

const (
	SideQuery   Side = "query"
	SideSubject Side = "subject"
)

// Link joins an interval of the query genome to one of the subject genome.
// Coordinates are absolute genome positions.
type Link struct {
	QueryStart   int
	QueryEnd     int
	SubjectStart int
	SubjectEnd   int
	Row          blast.Row
}

// Unresolved records an alignment row skipped because a gene was missing
type Unresolved struct {
	Side Side
	ID   string
	Row  blast.Row
}

func (u Unresolved) String() string {
	if u.Side == SideQuery {
		return fmt.Sprintf("Query gene %s not found in query annotation file.", u.ID)
	}
	return fmt.Sprintf("Subject gene %s not found in subject annotation file.", u.ID)
}

// Translate maps alignment-local coordinates onto the genomes. Alignment
// coordinates are taken as offsets from the matched gene's start, so the
// report must have been computed between individual genes. Rows whose query
// or subject gene is missing are returned as unresolved; the query side is
// checked first.
func Translate(rows []blast.Row, query, subject *annotation.GeneMap) ([]Link, []Unresolved) {
	var links []Link
	var unresolved []Unresolved

	for _, row := range rows {
		qg, ok := query.Get(row.QueryID)
		if !ok {
			unresolved = append(unresolved, Unresolved{Side: SideQuery, ID: row.QueryID, Row: row})
			continue
		}
		sg, ok := subject.Get(row.SubjectID)
		if !ok {
			unresolved = append(unresolved, Unresolved{Side: SideSubject, ID: row.SubjectID, Row: row})
			continue
		}

		links = append(links, Link{
			QueryStart:   qg.Start + row.QueryStart,
			QueryEnd:     qg.Start + row.QueryEnd,
			SubjectStart: sg.Start + row.SubjectStart,
			SubjectEnd:   sg.Start + row.SubjectEnd,
			Row:          row,
		})
	}

	return links, unresolved
}

// WriteLinks writes one line per link and returns how many were written
func WriteLinks(w io.Writer, links []Link, queryName, subjectName string) (int, error) {
	bw := bufio.NewWriter(w)
	for _, l := range links {
		if _, err := fmt.Fprintf(bw, "%s %d %d %s %d %d\n",
			queryName, l.QueryStart, l.QueryEnd,
			subjectName, l.SubjectStart, l.SubjectEnd); err != nil {
			return 0, err
		}
	}
	if err := bw.Flush(); err != nil {
		return 0, err
	}
	return len(links), nil
}
