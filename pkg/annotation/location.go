package annotation

import (
	"fmt"
	"strconv"
	"strings"
)

// Span is the outer extent of a feature location with its strand
type Span struct {
	Start  int
	End    int
	Strand Strand
}

type locationPart struct {
	start, end int
	minus      bool
}

// ParseLocation resolves a GenBank location string ("123..456",
// "complement(join(1..10,20..30))", "<1..>200", ...) to its outer span.
// The strand is Forward only when every part lies on the plus strand.
// Parts that reference other entries ("J00194.1:100..202") are ignored.
func ParseLocation(loc string) (Span, error) {
	parts, err := parseLocationParts(strings.ReplaceAll(loc, " ", ""), false)
	if err != nil {
		return Span{}, fmt.Errorf("location %q: %w", loc, err)
	}
	if len(parts) == 0 {
		return Span{}, fmt.Errorf("location %q: no local parts", loc)
	}

	span := Span{Start: parts[0].start, End: parts[0].end, Strand: Forward}
	for _, p := range parts {
		span.Start = min(span.Start, p.start)
		span.End = max(span.End, p.end)
		if p.minus {
			span.Strand = Reverse
		}
	}
	return span, nil
}

func parseLocationParts(loc string, minus bool) ([]locationPart, error) {
	if inner, ok := unwrap(loc, "complement"); ok {
		return parseLocationParts(inner, !minus)
	}
	for _, op := range []string{"join", "order", "bond"} {
		if inner, ok := unwrap(loc, op); ok {
			var parts []locationPart
			for _, item := range splitTopLevel(inner) {
				sub, err := parseLocationParts(item, minus)
				if err != nil {
					return nil, err
				}
				parts = append(parts, sub...)
			}
			return parts, nil
		}
	}

	if strings.Contains(loc, ":") {
		return nil, nil
	}
	if strings.ContainsAny(loc, "()") {
		return nil, fmt.Errorf("unsupported operator in %q", loc)
	}

	start, end, err := parseRange(loc)
	if err != nil {
		return nil, err
	}
	return []locationPart{{start: start, end: end, minus: minus}}, nil
}

// parseRange converts a simple one-based range to zero-based half-open
func parseRange(s string) (int, int, error) {
	s = strings.NewReplacer("<", "", ">", "").Replace(s)

	if a, b, ok := strings.Cut(s, ".."); ok {
		start, err := atoiLocation(a)
		if err != nil {
			return 0, 0, err
		}
		end, err := atoiLocation(b)
		if err != nil {
			return 0, 0, err
		}
		return start - 1, end, nil
	}

	// between two bases: 123^124 is a zero-length site after base 123
	if a, _, ok := strings.Cut(s, "^"); ok {
		pos, err := atoiLocation(a)
		if err != nil {
			return 0, 0, err
		}
		return pos, pos, nil
	}

	pos, err := atoiLocation(s)
	if err != nil {
		return 0, 0, err
	}
	return pos - 1, pos, nil
}

// atoiLocation also accepts the old single-base-within form "(102.110)"
// already stripped of parentheses, taking the first position.
func atoiLocation(s string) (int, error) {
	if a, _, ok := strings.Cut(s, "."); ok {
		s = a
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("bad position %q", s)
	}
	return n, nil
}

func unwrap(s, op string) (string, bool) {
	if strings.HasPrefix(s, op+"(") && strings.HasSuffix(s, ")") {
		return s[len(op)+1 : len(s)-1], true
	}
	return "", false
}

// splitTopLevel splits on commas that are not nested inside parentheses
func splitTopLevel(s string) []string {
	var out []string
	depth, last := 0, 0
	for i, c := range s {
		switch c {
		case '(':
			depth++
		case ')':
			depth--
		case ',':
			if depth == 0 {
				out = append(out, s[last:i])
				last = i + 1
			}
		}
	}
	return append(out, s[last:])
}
