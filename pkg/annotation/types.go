package annotation

import "errors"

// UnknownID is used for CDS features with neither a gene nor a locus_tag
const UnknownID = "unknown"

// Qualifier names tried, in order, for a gene identifier
const (
	QualifierGene     = "gene"
	QualifierLocusTag = "locus_tag"
)

// FeatureCDS is the only feature key the extractor consumes
const FeatureCDS = "CDS"

// ErrDuplicateGene is returned in strict mode when two CDS features share
// an identifier
var ErrDuplicateGene = errors.New("duplicate gene identifier")

// Strand of a gene. Anything that is not explicitly forward is Reverse.
type Strand int8

const (
	Reverse Strand = iota
	Forward
)

func (s Strand) String() string {
	if s == Forward {
		return "+"
	}
	return "-"
}

// Gene is one annotated coding feature. Start/End are zero-based, half-open.
type Gene struct {
	ID     string
	Start  int
	End    int
	Strand Strand
}

// Len returns the span length in bases
func (g Gene) Len() int {
	return g.End - g.Start
}

// Genome is the extraction result for one annotation file
type Genome struct {
	Genes   *GeneMap
	Length  int
	Records int // sequence records seen in the file
	Source  string
}

// GeneMap maps identifiers to genes, preserving first-insertion order.
// Put on an existing identifier replaces the gene in place.
type GeneMap struct {
	order []string
	genes map[string]Gene
}

// NewGeneMap creates an empty map
func NewGeneMap() *GeneMap {
	return &GeneMap{genes: make(map[string]Gene)}
}

// Put inserts or overwrites g, returning true when an earlier gene with the
// same identifier was replaced.
func (m *GeneMap) Put(g Gene) bool {
	if _, ok := m.genes[g.ID]; ok {
		m.genes[g.ID] = g
		return true
	}
	m.order = append(m.order, g.ID)
	m.genes[g.ID] = g
	return false
}

// Get looks up a gene by exact identifier
func (m *GeneMap) Get(id string) (Gene, bool) {
	g, ok := m.genes[id]
	return g, ok
}

// Len returns the number of distinct identifiers
func (m *GeneMap) Len() int {
	return len(m.order)
}

// Genes returns the genes in insertion order
func (m *GeneMap) Genes() []Gene {
	out := make([]Gene, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.genes[id])
	}
	return out
}
