package annotation

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Record is one LOCUS ... // block of a GenBank flatfile, reduced to what
// the extractor needs.
type Record struct {
	Name     string
	Length   int
	Features []Feature
}

// Feature is one entry of the FEATURES table
type Feature struct {
	Key        string
	Location   string
	Qualifiers map[string][]string
}

// Qualifier returns the first value of a qualifier
func (f *Feature) Qualifier(name string) (string, bool) {
	v, ok := f.Qualifiers[name]
	if !ok || len(v) == 0 {
		return "", false
	}
	return v[0], true
}

const (
	sectionHeader = iota
	sectionFeatures
	sectionOrigin
)

// GenBankReader streams records from a GenBank flatfile
type GenBankReader struct {
	scanner *bufio.Scanner
	line    int
	pending string // LOCUS line already consumed by the previous record
	done    bool
}

// NewGenBankReader creates a reader over r
func NewGenBankReader(r io.Reader) *GenBankReader {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)
	return &GenBankReader{scanner: scanner}
}

func (r *GenBankReader) nextLine() (string, bool) {
	if r.pending != "" {
		line := r.pending
		r.pending = ""
		return line, true
	}
	if !r.scanner.Scan() {
		return "", false
	}
	r.line++
	return strings.TrimRight(r.scanner.Text(), "\r"), true
}

// Read returns the next record, or io.EOF when the input is exhausted.
// Text before the first LOCUS line (release headers) is skipped.
func (r *GenBankReader) Read() (*Record, error) {
	if r.done {
		return nil, io.EOF
	}

	var rec *Record
	var feat *Feature
	var qual string      // qualifier currently being filled
	var qualOpen bool    // qualifier value has an unterminated quote
	var qualValue string // accumulated qualifier text
	var residues int
	section := sectionHeader

	flushQualifier := func() {
		if feat == nil || qual == "" {
			return
		}
		feat.Qualifiers[qual] = append(feat.Qualifiers[qual], unquote(qualValue))
		qual, qualValue, qualOpen = "", "", false
	}
	flushFeature := func() {
		flushQualifier()
		if feat != nil {
			rec.Features = append(rec.Features, *feat)
			feat = nil
		}
	}
	finish := func() *Record {
		flushFeature()
		if residues > 0 {
			rec.Length = residues
		}
		return rec
	}

	for {
		line, ok := r.nextLine()
		if !ok {
			if err := r.scanner.Err(); err != nil {
				return nil, fmt.Errorf("line %d: %w", r.line, err)
			}
			r.done = true
			if rec != nil {
				// missing terminator on the last record
				return finish(), nil
			}
			return nil, io.EOF
		}

		if strings.HasPrefix(line, "LOCUS") {
			if rec != nil {
				// a new record started without "//"
				r.pending = line
				return finish(), nil
			}
			name, length := parseLocus(line)
			rec = &Record{Name: name, Length: length}
			section = sectionHeader
			continue
		}
		if rec == nil {
			continue
		}

		if strings.HasPrefix(line, "//") {
			return finish(), nil
		}

		if line != "" && line[0] != ' ' {
			flushFeature()
			switch {
			case strings.HasPrefix(line, "FEATURES"):
				section = sectionFeatures
			case strings.HasPrefix(line, "ORIGIN"):
				section = sectionOrigin
			default:
				section = sectionHeader
			}
			continue
		}

		switch section {
		case sectionOrigin:
			residues += countResidues(line)

		case sectionFeatures:
			if isFeatureKeyLine(line) {
				flushFeature()
				fields := strings.Fields(line)
				feat = &Feature{
					Key:        fields[0],
					Location:   strings.Join(fields[1:], ""),
					Qualifiers: make(map[string][]string),
				}
				continue
			}
			if feat == nil {
				continue
			}

			text := strings.TrimSpace(line)
			switch {
			case qualOpen:
				qualValue += " " + text
				qualOpen = !quoteBalanced(qualValue)
			case strings.HasPrefix(text, "/"):
				flushQualifier()
				name, value, hasValue := strings.Cut(text[1:], "=")
				qual = name
				qualValue = value
				qualOpen = hasValue && strings.HasPrefix(value, `"`) && !quoteBalanced(value)
			case qual == "":
				feat.Location += text
			default:
				qualValue += " " + text
			}
		}
	}
}

// isFeatureKeyLine reports a line with the feature key in columns 6-20
func isFeatureKeyLine(line string) bool {
	return len(line) > 5 && strings.HasPrefix(line, "     ") && line[5] != ' '
}

// parseLocus reads the name and declared length from a LOCUS line. The
// length is the number preceding the "bp" or "aa" unit.
func parseLocus(line string) (string, int) {
	fields := strings.Fields(line)
	name := ""
	if len(fields) > 1 {
		name = fields[1]
	}
	for i := 2; i < len(fields); i++ {
		if fields[i] == "bp" || fields[i] == "aa" {
			if n, err := strconv.Atoi(fields[i-1]); err == nil {
				return name, n
			}
		}
	}
	if len(fields) > 2 {
		if n, err := strconv.Atoi(fields[2]); err == nil {
			return name, n
		}
	}
	return name, 0
}

// countResidues counts sequence letters on an ORIGIN line such as
// "       61 gatcagcgat cgatcgatcg"
func countResidues(line string) int {
	n := 0
	for i := 0; i < len(line); i++ {
		c := line[i]
		if (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c == '*' || c == '-' {
			n++
		}
	}
	return n
}

// quoteBalanced reports whether every quote in a quoted value is closed.
// Embedded quotes are written as "" in GenBank.
func quoteBalanced(s string) bool {
	return strings.Count(s, `"`)%2 == 0
}

func unquote(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 && strings.HasPrefix(s, `"`) && strings.HasSuffix(s, `"`) {
		s = s[1 : len(s)-1]
	}
	return strings.ReplaceAll(s, `""`, `"`)
}
