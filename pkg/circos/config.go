package circos

import (
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/scttfrdmn/gbk2circos/pkg/blast"
)

// Output file names, written side by side in the output directory
const (
	KaryotypeFile = "karyotype.txt"
	LabelsFile    = "labels.txt"
	LinksFile     = "links.txt"
)

// Default karyotype colors
const (
	DefaultQueryColor   = "green"
	DefaultSubjectColor = "blue"
)

// Config holds the display settings of a run
type Config struct {
	QueryName    string
	SubjectName  string
	QueryColor   string // karyotype color of the query genome (default: green)
	SubjectColor string // karyotype color of the subject genome (default: blue)
	MinIdentity  float64
}

// NewConfig creates a Config with the default colors and threshold
func NewConfig(queryName, subjectName string) *Config {
	return &Config{
		QueryName:    queryName,
		SubjectName:  subjectName,
		QueryColor:   DefaultQueryColor,
		SubjectColor: DefaultSubjectColor,
		MinIdentity:  blast.DefaultMinIdentity,
	}
}

// Validate checks that every value can be written to the space-separated
// output formats
func (c *Config) Validate() error {
	fields := []struct{ name, value string }{
		{"query name", c.QueryName},
		{"subject name", c.SubjectName},
		{"query color", c.QueryColor},
		{"subject color", c.SubjectColor},
	}
	for _, f := range fields {
		if f.value == "" {
			return fmt.Errorf("%s must not be empty", f.name)
		}
		if strings.ContainsAny(f.value, " \t\r\n") {
			return fmt.Errorf("%s %q must not contain whitespace", f.name, f.value)
		}
	}
	if math.IsNaN(c.MinIdentity) || c.MinIdentity < 0 || c.MinIdentity > 100 {
		return fmt.Errorf("minimum identity must be between 0 and 100, got %v", c.MinIdentity)
	}
	return nil
}

// ShowConfig prints the effective configuration
func (c *Config) ShowConfig(w io.Writer) {
	fmt.Fprintf(w, "Configuration:\n")
	fmt.Fprintf(w, "  Query: %s (%s)\n", c.QueryName, c.QueryColor)
	fmt.Fprintf(w, "  Subject: %s (%s)\n", c.SubjectName, c.SubjectColor)
	fmt.Fprintf(w, "  Minimum identity: %.3f%%\n", c.MinIdentity)
}
