package deps

import (
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/pypi-updater/pkg/errors"
)

// PyProject parses pyproject.toml. It reads PEP 621 [project] dependency
// arrays and the Poetry dependency tables from the same file.
//
// The document is decoded with a real TOML parser first; the raw text is
// then scanned to locate each entry's bytes, and only entries the decoder
// agrees exist become declarations.
type PyProject struct{}

type pyprojectDoc struct {
	Project struct {
		Dependencies         []string            `toml:"dependencies"`
		OptionalDependencies map[string][]string `toml:"optional-dependencies"`
	} `toml:"project"`
	Tool struct {
		Poetry struct {
			Dependencies    map[string]any `toml:"dependencies"`
			DevDependencies map[string]any `toml:"dev-dependencies"`
			Group           map[string]struct {
				Dependencies map[string]any `toml:"dependencies"`
			} `toml:"group"`
		} `toml:"poetry"`
	} `toml:"tool"`
}

// poetryTable returns the decoded dependency table for a table header such
// as "tool.poetry.group.dev.dependencies".
func (p *pyprojectDoc) poetryTable(header string) (map[string]any, bool) {
	switch header {
	case "tool.poetry.dependencies":
		return p.Tool.Poetry.Dependencies, true
	case "tool.poetry.dev-dependencies":
		return p.Tool.Poetry.DevDependencies, true
	}
	group, ok := strings.CutPrefix(header, "tool.poetry.group.")
	if !ok {
		return nil, false
	}
	group, ok = strings.CutSuffix(group, ".dependencies")
	if !ok {
		return nil, false
	}
	g, ok := p.Tool.Poetry.Group[unquoteKey(group)]
	return g.Dependencies, ok
}

var (
	tableHeaderRE = regexp.MustCompile(`^\s*\[\s*([^\[\]]+?)\s*\]\s*(?:#.*)?$`)
	arrayKeyRE    = regexp.MustCompile(`^\s*("[^"]+"|'[^']+'|[A-Za-z0-9_-]+)\s*=\s*\[`)
	poetryKeyRE   = regexp.MustCompile(`^\s*("[^"]+"|'[^']+'|[A-Za-z0-9_.-]+)\s*=\s*`)
	inlineVerRE   = regexp.MustCompile(`\bversion\s*=\s*["']`)
)

func (PyProject) Parse(file *File, content []byte) (*Document, error) {
	var decoded pyprojectDoc
	if _, err := toml.Decode(string(content), &decoded); err != nil {
		return nil, errors.Wrap(errors.ErrCodeParse, err, "%s: invalid TOML", file)
	}

	doc := &Document{File: file, Content: content}
	table := ""
	lines := splitLines(content)
	for i := 0; i < len(lines); i++ {
		ln := lines[i]
		if strings.HasPrefix(strings.TrimSpace(ln.text), "[[") {
			table = ""
			continue
		}
		if m := tableHeaderRE.FindStringSubmatch(ln.text); m != nil {
			table = strings.Join(strings.Fields(m[1]), "")
			continue
		}

		switch {
		case table == "project":
			if key := arrayKey(ln.text); key == "dependencies" {
				i = doc.scanArray(lines, i, decoded.Project.Dependencies)
			}
		case table == "project.optional-dependencies":
			if key := arrayKey(ln.text); key != "" {
				i = doc.scanArray(lines, i, decoded.Project.OptionalDependencies[key])
			}
		default:
			if known, ok := decoded.poetryTable(table); ok {
				doc.poetryEntry(ln, known)
			} else if name, known, ok := decoded.poetrySubTable(table); ok {
				doc.poetrySubTableEntry(ln, name, known)
			}
		}
	}

	sortByOffset(doc.Declarations)
	return doc, nil
}

func arrayKey(text string) string {
	m := arrayKeyRE.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	return unquoteKey(m[1])
}

// scanArray collects the requirement strings of the array that opens on
// lines[i] and returns the index of the line holding its close bracket.
func (d *Document) scanArray(lines []line, i int, known []string) int {
	open := lines[i].start + strings.IndexByte(lines[i].text, '[')
	lits, end, ok := scanBracket(d.Content, open)
	if !ok {
		return i
	}
	for _, lit := range lits {
		if lit.depth == 1 && !lit.escaped && slices.Contains(known, lit.value) {
			d.addLiteral(lit)
		}
	}
	for i+1 < len(lines) && lines[i+1].start < end {
		i++
	}
	return i
}

// poetryEntry handles `name = "^1.2"` and `name = { version = "^1.2", ... }`.
func (d *Document) poetryEntry(ln line, known map[string]any) {
	m := poetryKeyRE.FindStringSubmatchIndex(ln.text)
	if m == nil {
		return
	}
	key := unquoteKey(ln.text[m[2]:m[3]])
	if strings.EqualFold(key, "python") {
		return
	}
	want, ok := poetryVersion(known[key])
	if !ok {
		return
	}

	rest := m[1]
	if rest < len(ln.text) && ln.text[rest] == '{' {
		loc := inlineVerRE.FindStringIndex(ln.text[rest:])
		if loc == nil {
			return
		}
		rest += loc[1] - 1
	}
	d.addPoetry(ln, key, rest, want)
}

// poetrySubTable matches "[tool.poetry.dependencies.requests]" style
// tables that spell out a single dependency.
func (p *pyprojectDoc) poetrySubTable(header string) (string, map[string]any, bool) {
	k := strings.LastIndexByte(header, '.')
	if k < 0 {
		return "", nil, false
	}
	known, ok := p.poetryTable(header[:k])
	if !ok {
		return "", nil, false
	}
	name := unquoteKey(header[k+1:])
	_, ok = known[name]
	return name, known, ok
}

func (d *Document) poetrySubTableEntry(ln line, name string, known map[string]any) {
	m := poetryKeyRE.FindStringSubmatchIndex(ln.text)
	if m == nil || unquoteKey(ln.text[m[2]:m[3]]) != "version" {
		return
	}
	want, ok := poetryVersion(known[name])
	if !ok {
		return
	}
	d.addPoetry(ln, name, m[1], want)
}

// addPoetry records the constraint string whose opening quote is at
// ln.text[at], provided it matches the decoded value.
func (d *Document) addPoetry(ln line, name string, at int, want string) {
	if at >= len(ln.text) || (ln.text[at] != '"' && ln.text[at] != '\'') {
		return
	}
	lit, _, ok := scanString(d.Content, ln.start+at)
	if !ok || lit.escaped || lit.value != want {
		return
	}

	decl := &Declaration{
		Name:    Normalize(name),
		RawName: name,
		File:    d.File,
		Line:    ln.index,
		RawLine: ln.text,
		pos:     ln.start,
	}
	clauses, err := parseConstraint(lit.value, lit.start)
	if err != nil {
		decl.Warning = fmt.Errorf("%s: %w", name, err)
	} else {
		decl.Clauses = clauses
		decl.Warning = clauseWarning(decl)
	}
	d.Declarations = append(d.Declarations, decl)
}

// poetryVersion extracts the version constraint from a decoded Poetry
// dependency value.
func poetryVersion(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, true
	case map[string]any:
		s, ok := t["version"].(string)
		return s, ok
	}
	return "", false
}

func unquoteKey(k string) string {
	k = strings.TrimSpace(k)
	if len(k) >= 2 && (k[0] == '"' || k[0] == '\'') && k[len(k)-1] == k[0] {
		return k[1 : len(k)-1]
	}
	return k
}
