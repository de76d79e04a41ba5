package deps

import (
	"regexp"
	"strings"

	"github.com/matzehuels/pypi-updater/pkg/version"
)

// Format identifies the dialect of a declaration file. It is decided once at
// discovery time and selects the [Parser].
type Format string

const (
	FormatRequirements Format = "requirements" // requirements*.txt
	FormatPipTools     Format = "pip-tools"    // pip-compile input (*.in)
	FormatSetup        Format = "setup"        // setup.py install_requires
	FormatPyProject    Format = "pyproject"    // PEP 621 [project] tables
	FormatPoetry       Format = "poetry"       // [tool.poetry] tables
)

// File identifies a declaration file for the duration of a run.
type File struct {
	ID     int    // Discovery index, breaks ordering ties
	Path   string // Absolute path
	Rel    string // Path relative to the project root, for display
	Format Format
}

func (f *File) String() string {
	if f.Rel != "" {
		return f.Rel
	}
	return f.Path
}

// Operator is a version comparison operator. Poetry's caret and tilde are
// included alongside the PEP 440 set.
type Operator string

const (
	OpNone      Operator = ""
	OpEqual     Operator = "=="
	OpArbitrary Operator = "==="
	OpGreaterEq Operator = ">="
	OpLessEq    Operator = "<="
	OpGreater   Operator = ">"
	OpLess      Operator = "<"
	OpCompat    Operator = "~="
	OpNotEqual  Operator = "!="
	OpCaret     Operator = "^"
	OpTilde     Operator = "~"
	OpExact     Operator = "=" // bare Poetry version, or "=1.0"
)

// Span is a half-open byte range [Start, End) in the file content.
type Span struct {
	Start, End int
}

// Clause is one "operator version" pair of a version constraint.
type Clause struct {
	Op      Operator
	Text    string           // Version token as written
	Version *version.Version // nil when Text is not a valid PEP 440 version
	Span    Span             // Location of Text
}

// Declaration is one package requirement found in a file.
type Declaration struct {
	Name    string   // PEP 503 normalized name
	RawName string   // Name as written
	Extras  []string // "requests[socks,security]"
	Clauses []Clause
	Marker  string // Environment marker after ';'
	File    *File
	Line    int    // 0-based line of the declaration
	RawLine string // Full text of that line, without the newline
	Hashed  bool   // Pinned together with --hash options

	// Warning is set when the declaration was recognized but its version
	// could not be parsed. Such declarations are never rewritten.
	Warning error

	pos int // byte offset of the name, orders declarations within a file
}

// Primary returns the clause whose version token is rewritten on update,
// or nil when the declaration has no version constraint.
func (d *Declaration) Primary() *Clause {
	if len(d.Clauses) == 0 {
		return nil
	}
	return &d.Clauses[0]
}

// Operator returns the operator of the primary clause.
func (d *Declaration) Operator() Operator {
	if c := d.Primary(); c != nil {
		return c.Op
	}
	return OpNone
}

// Version returns the parsed version of the primary clause, or nil.
func (d *Declaration) Version() *version.Version {
	if c := d.Primary(); c != nil {
		return c.Version
	}
	return nil
}

// Specifier renders the constraint as written, e.g. ">=2.25.0,<3".
func (d *Declaration) Specifier() string {
	parts := make([]string, len(d.Clauses))
	for i, c := range d.Clauses {
		op := string(c.Op)
		if c.Op == OpExact {
			op = ""
		}
		parts[i] = op + c.Text
	}
	return strings.Join(parts, ",")
}

func (d *Declaration) String() string {
	return d.RawName + d.Specifier()
}

// IncludeKind distinguishes "-r" from "-c" directives.
type IncludeKind string

const (
	IncludeRequirement IncludeKind = "requirement"
	IncludeConstraint  IncludeKind = "constraint"
)

// Include is a "-r path" or "-c path" directive.
type Include struct {
	File   *File  // File containing the directive
	Target string // Path as written
	Path   string // Absolute path of the target
	Line   int
	Kind   IncludeKind
}

// Document is a parsed declaration file. Content holds the exact bytes read
// from disk; everything that is not a version token is carried through
// [Document.Render] untouched.
type Document struct {
	File         *File
	Content      []byte
	Declarations []*Declaration
	Includes     []Include
}

// Warnings returns the per-declaration warnings in file order.
func (d *Document) Warnings() []error {
	var out []error
	for _, decl := range d.Declarations {
		if decl.Warning != nil {
			out = append(out, decl.Warning)
		}
	}
	return out
}

var nameSepRE = regexp.MustCompile(`[-_.]+`)

// Normalize returns the PEP 503 form of a project name: lowercase with runs
// of '-', '_' and '.' collapsed into a single '-'.
func Normalize(name string) string {
	return strings.ToLower(nameSepRE.ReplaceAllString(strings.TrimSpace(name), "-"))
}
