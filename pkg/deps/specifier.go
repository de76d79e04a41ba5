package deps

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/matzehuels/pypi-updater/pkg/version"
)

var reqNameRE = regexp.MustCompile(`^[A-Za-z0-9](?:[A-Za-z0-9._-]*[A-Za-z0-9])?`)

// Longest operators first so that "===" is not read as "==" plus "=".
var (
	pep440Ops  = []Operator{OpArbitrary, OpEqual, OpCompat, OpNotEqual, OpLessEq, OpGreaterEq, OpLess, OpGreater}
	poetryOps  = []Operator{OpEqual, OpCompat, OpNotEqual, OpLessEq, OpGreaterEq, OpCaret, OpTilde, OpLess, OpGreater, OpExact}
	errNoMatch = fmt.Errorf("not a requirement")
)

// parseRequirement parses a PEP 508 requirement string s that starts at
// byte offset base of the file. Direct references ("name @ url") and text
// that does not look like a requirement report ok=false and stay opaque.
func parseRequirement(s string, base int) (*Declaration, bool) {
	i := skipSpace(s, 0)
	name := reqNameRE.FindString(s[i:])
	if name == "" {
		return nil, false
	}
	d := &Declaration{RawName: name, Name: Normalize(name), pos: base + i}
	i = skipSpace(s, i+len(name))

	if i < len(s) && s[i] == '[' {
		end := strings.IndexByte(s[i:], ']')
		if end < 0 {
			return nil, false
		}
		for _, e := range strings.Split(s[i+1:i+end], ",") {
			if e = strings.TrimSpace(e); e != "" {
				d.Extras = append(d.Extras, e)
			}
		}
		i = skipSpace(s, i+end+1)
	}
	if i < len(s) && s[i] == '@' {
		return nil, false
	}

	specEnd := len(s)
	if k := strings.IndexByte(s[i:], ';'); k >= 0 {
		specEnd = i + k
		d.Marker = strings.TrimSpace(s[specEnd+1:])
	}
	clauses, err := parseClauses(s[i:specEnd], base+i, pep440Ops, false)
	if err != nil {
		return nil, false
	}
	d.Clauses = clauses
	d.Warning = clauseWarning(d)
	return d, true
}

// parseConstraint parses a Poetry constraint such as "^2.28", ">=1,<2" or
// "2.0.1". A wildcard yields no clauses.
func parseConstraint(s string, base int) ([]Clause, error) {
	if t := strings.TrimSpace(s); t == "*" || t == "" {
		return nil, nil
	}
	if strings.Contains(s, "||") || strings.Contains(s, "|") {
		return nil, fmt.Errorf("alternative constraints %q are not rewritten", s)
	}
	return parseClauses(s, base, poetryOps, true)
}

// parseClauses splits a comma separated specifier list. When bare is set, a
// clause without operator is accepted as an exact pin.
func parseClauses(spec string, base int, ops []Operator, bare bool) ([]Clause, error) {
	start, end := 0, len(spec)
	for start < end && isSpace(spec[start]) {
		start++
	}
	for end > start && isSpace(spec[end-1]) {
		end--
	}
	if start == end {
		return nil, nil
	}
	// Legacy parenthesized form: "requests (>=2.0)"
	if spec[start] == '(' {
		if spec[end-1] != ')' {
			return nil, errNoMatch
		}
		start++
		end--
	}

	var clauses []Clause
	for pos := start; pos <= end; {
		next := strings.IndexByte(spec[pos:end], ',')
		partEnd := end
		if next >= 0 {
			partEnd = pos + next
		}
		c, err := parseClause(spec[pos:partEnd], base+pos, ops, bare)
		if err != nil {
			return nil, err
		}
		clauses = append(clauses, c)
		if next < 0 {
			break
		}
		pos = partEnd + 1
	}
	return clauses, nil
}

func parseClause(part string, base int, ops []Operator, bare bool) (Clause, error) {
	i := skipSpace(part, 0)
	op := OpNone
	for _, candidate := range ops {
		if strings.HasPrefix(part[i:], string(candidate)) {
			op = candidate
			break
		}
	}
	if op == OpNone {
		if !bare {
			return Clause{}, errNoMatch
		}
		op = OpExact
	} else {
		i = skipSpace(part, i+len(op))
	}

	j := i
	for j < len(part) && !isSpace(part[j]) && part[j] != ',' && part[j] != ')' {
		j++
	}
	if j == i || skipSpace(part, j) != len(part) {
		return Clause{}, errNoMatch
	}

	c := Clause{Op: op, Text: part[i:j], Span: Span{Start: base + i, End: base + j}}
	if v, err := version.Parse(c.Text); err == nil {
		c.Version = v
	}
	return c, nil
}

func clauseWarning(d *Declaration) error {
	for _, c := range d.Clauses {
		if c.Version == nil {
			return fmt.Errorf("%s: unparseable version %q", d.RawName, c.Text)
		}
	}
	return nil
}

func skipSpace(s string, i int) int {
	for i < len(s) && isSpace(s[i]) {
		i++
	}
	return i
}

func isSpace(b byte) bool { return b == ' ' || b == '\t' || b == '\r' || b == '\n' }
