package deps

import "regexp"

// SetupScript parses the requirement lists passed to setup() in setup.py.
// Only literal lists are understood; requirements computed at runtime
// (read_requirements("base.in"), variables) are left alone.
type SetupScript struct{}

var (
	setupListRE = regexp.MustCompile(`\b(?:install_requires|setup_requires|tests_require)\s*=\s*[\[(]`)
	setupDictRE = regexp.MustCompile(`\bextras_require\s*=\s*\{`)
)

func (SetupScript) Parse(file *File, content []byte) (*Document, error) {
	doc := &Document{File: file, Content: content}

	skip := nonCode(content)
	collect := func(re *regexp.Regexp, depth int) {
		for _, m := range re.FindAllIndex(content, -1) {
			if skip[m[0]] {
				continue
			}
			lits, _, ok := scanBracket(content, m[1]-1)
			if !ok {
				continue
			}
			for _, lit := range lits {
				if lit.depth != depth || lit.escaped {
					continue
				}
				doc.addLiteral(lit)
			}
		}
	}
	collect(setupListRE, 1)
	// extras_require maps group names (depth 1) to lists (depth 2).
	collect(setupDictRE, 2)

	sortByOffset(doc.Declarations)
	return doc, nil
}

// addLiteral parses a quoted requirement string and records it.
func (d *Document) addLiteral(lit literal) {
	decl, ok := parseRequirement(lit.value, lit.start)
	if !ok {
		return
	}
	decl.File = d.File
	decl.Line, decl.RawLine = lineAt(d.Content, lit.start)
	d.Declarations = append(d.Declarations, decl)
}
