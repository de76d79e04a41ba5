package deps

import (
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/matzehuels/pypi-updater/pkg/errors"
)

// Parser extracts declarations and include directives from the content of
// one file. Implementations must not modify content and must record spans
// relative to it.
type Parser interface {
	Parse(file *File, content []byte) (*Document, error)
}

var parsers = map[Format]Parser{
	FormatRequirements: Requirements{},
	FormatPipTools:     Requirements{},
	FormatSetup:        SetupScript{},
	FormatPyProject:    PyProject{},
	FormatPoetry:       PyProject{},
}

// ParserFor returns the parser for a format.
func ParserFor(f Format) (Parser, bool) {
	p, ok := parsers[f]
	return p, ok
}

// Parse reads file from disk and parses it with the parser for its format.
// A read failure is coded [errors.ErrCodeFileRead]; malformed content is
// coded [errors.ErrCodeParse].
func Parse(file *File) (*Document, error) {
	content, err := os.ReadFile(file.Path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeFileRead, err, "read %s", file)
	}
	return ParseContent(file, content)
}

// ParseContent parses content already read for file.
func ParseContent(file *File, content []byte) (*Document, error) {
	p, ok := ParserFor(file.Format)
	if !ok {
		return nil, errors.New(errors.ErrCodeInvalidFormat, "%s: unsupported format %q", file, file.Format)
	}
	doc, err := p.Parse(file, content)
	if err != nil {
		if errors.GetCode(err) == "" {
			err = errors.Wrap(errors.ErrCodeParse, err, "parse %s", file)
		}
		return nil, err
	}
	return doc, nil
}

// Render returns the file content with the primary version token of each
// edited declaration replaced by the given version string. With no edits
// the original content is returned unchanged.
func (d *Document) Render(edits map[*Declaration]string) ([]byte, error) {
	type edit struct {
		span Span
		text string
	}
	var list []edit
	for decl, v := range edits {
		if decl.File != d.File || !slices.Contains(d.Declarations, decl) {
			return nil, fmt.Errorf("render %s: declaration %s belongs to another file", d.File, decl.RawName)
		}
		c := decl.Primary()
		if c == nil {
			return nil, fmt.Errorf("render %s: %s has no version to replace", d.File, decl.RawName)
		}
		if strings.ContainsAny(v, " \t\r\n,;#\"'") || v == "" {
			return nil, fmt.Errorf("render %s: invalid version token %q", d.File, v)
		}
		list = append(list, edit{span: c.Span, text: v})
	}
	slices.SortFunc(list, func(a, b edit) int { return a.span.Start - b.span.Start })

	out := make([]byte, 0, len(d.Content)+16*len(list))
	prev := 0
	for _, e := range list {
		if e.span.Start < prev || e.span.End > len(d.Content) {
			return nil, fmt.Errorf("render %s: overlapping edit at byte %d", d.File, e.span.Start)
		}
		out = append(out, d.Content[prev:e.span.Start]...)
		out = append(out, e.text...)
		prev = e.span.End
	}
	return append(out, d.Content[prev:]...), nil
}

func sortByOffset(decls []*Declaration) {
	slices.SortStableFunc(decls, func(a, b *Declaration) int { return a.pos - b.pos })
}
