package annotation

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"net/url"
	"strconv"
	"strings"

	"github.com/biogo/biogo/io/featio"
	"github.com/biogo/biogo/io/featio/gff"
	"github.com/biogo/biogo/seq"
)

// parseGFF extracts CDS features from GFF2/GFF3/GTF input. Consecutive CDS
// lines carrying the same ID attribute are one feature split over several
// rows and are merged into a single span.
func parseGFF(r io.Reader, opts Options) (*Genome, error) {
	filtered, regions, err := filterGFFPragmas(r)
	if err != nil {
		return nil, err
	}

	genome := &Genome{Genes: NewGeneMap(), Records: len(regions)}
	if len(regions) > 0 {
		genome.Length = regions[0].length
	}

	var pending *Gene
	pendingID := ""
	flush := func() error {
		if pending == nil {
			return nil
		}
		g := *pending
		pending, pendingID = nil, ""
		return genome.put(g, opts)
	}

	sc := featio.NewScanner(gff.NewReader(filtered))
	for sc.Next() {
		f, ok := sc.Feat().(*gff.Feature)
		if !ok || f.Feature != FeatureCDS {
			continue
		}

		strand := Reverse
		if f.FeatStrand == seq.Plus {
			strand = Forward
		}
		attrs := gffAttributes(f.FeatAttributes)
		rowID := attrs["ID"]

		if pending != nil && rowID != "" && rowID == pendingID {
			pending.Start = min(pending.Start, f.Start())
			pending.End = max(pending.End, f.End())
			if strand != Forward {
				pending.Strand = Reverse
			}
			continue
		}
		if err := flush(); err != nil {
			return nil, err
		}

		pending = &Gene{
			ID:     resolveID(attrs[QualifierGene], attrs[QualifierLocusTag]),
			Start:  f.Start(),
			End:    f.End(),
			Strand: strand,
		}
		pendingID = rowID
	}
	if err := sc.Error(); err != nil {
		return nil, fmt.Errorf("failed to read GFF: %w", err)
	}
	if err := flush(); err != nil {
		return nil, err
	}

	return genome, nil
}

// gffAttributes flattens the attribute column. Only the first of several
// comma-separated values is kept, and the first occurrence of a tag wins.
func gffAttributes(attrs gff.Attributes) map[string]string {
	out := make(map[string]string, len(attrs))
	for _, a := range attrs {
		tag := strings.TrimSpace(a.Tag)
		value := strings.Trim(strings.TrimSpace(a.Value), `"`)
		if v, _, ok := strings.Cut(value, ","); ok {
			value = v
		}
		if v, err := url.PathUnescape(value); err == nil {
			value = v
		}
		if _, seen := out[tag]; !seen {
			out[tag] = value
		}
	}
	return out
}

type gffRegion struct {
	name   string
	length int
}

// filterGFFPragmas strips the ## pragma lines, which the GFF2 reader does not
// accept, collecting ##sequence-region entries on the way. Everything after
// ##FASTA is sequence data and is dropped too.
func filterGFFPragmas(r io.Reader) (io.Reader, []gffRegion, error) {
	var buf bytes.Buffer
	var regions []gffRegion
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if strings.HasPrefix(line, "##") {
			fields := strings.Fields(line[2:])
			if len(fields) == 0 {
				continue
			}
			if fields[0] == "FASTA" {
				break
			}
			if fields[0] == "sequence-region" && len(fields) == 4 {
				start, err1 := strconv.Atoi(fields[2])
				end, err2 := strconv.Atoi(fields[3])
				if err1 != nil || err2 != nil {
					return nil, nil, fmt.Errorf("bad sequence-region pragma %q", line)
				}
				regions = append(regions, gffRegion{name: fields[1], length: end - start + 1})
			}
			continue
		}
		if strings.TrimSpace(line) == "" {
			continue
		}
		buf.WriteString(toGFF2Attributes(line))
		buf.WriteByte('\n')
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, fmt.Errorf("failed to read GFF: %w", err)
	}
	return &buf, regions, nil
}

// gffAttributeColumn is the index of the attribute column
const gffAttributeColumn = 8

// toGFF2Attributes rewrites GFF3 attributes ("ID=cds-1;gene=nad1") into the
// GFF2 form ("ID \"cds-1\"; gene \"nad1\"") read by the featio GFF reader.
// GFF2 and GTF attributes pass through unchanged. Tags the reader cannot
// hold (anything but letters and '_') are dropped, as is an empty ".".
func toGFF2Attributes(line string) string {
	fields := strings.SplitN(line, "\t", gffAttributeColumn+2)
	if len(fields) <= gffAttributeColumn {
		return line
	}

	var parts []string
	for _, part := range strings.Split(fields[gffAttributeColumn], ";") {
		part = strings.TrimSpace(part)
		if part == "" || part == "." {
			continue
		}
		tag, value, ok := strings.Cut(part, "=")
		if !ok || strings.ContainsAny(tag, " \t") {
			// already GFF2: tag, whitespace, value
			if tag, _, _ := strings.Cut(part, " "); isGFF2Tag(strings.TrimSpace(tag)) {
				parts = append(parts, part)
			}
			continue
		}
		if isGFF2Tag(tag) {
			parts = append(parts, tag+` "`+strings.ReplaceAll(value, `"`, "")+`"`)
		}
	}
	fields[gffAttributeColumn] = strings.Join(parts, "; ")
	return strings.Join(fields, "\t")
}

func isGFF2Tag(tag string) bool {
	if tag == "" {
		return false
	}
	for i := 0; i < len(tag); i++ {
		c := tag[i]
		if !(c >= 'a' && c <= 'z') && !(c >= 'A' && c <= 'Z') && c != '_' {
			return false
		}
	}
	return true
}
