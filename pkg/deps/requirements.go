package deps

import (
	"bytes"
	"path/filepath"
	"strings"
)

// Requirements parses requirements*.txt and pip-tools *.in files.
type Requirements struct{}

// line is a physical line of a file with its byte offset.
type line struct {
	text  string // without the trailing newline or carriage return
	start int
	index int
}

func splitLines(content []byte) []line {
	var lines []line
	start := 0
	for i := 0; start < len(content); i++ {
		end := bytes.IndexByte(content[start:], '\n')
		if end < 0 {
			end = len(content) - start
		}
		text := strings.TrimSuffix(string(content[start:start+end]), "\r")
		lines = append(lines, line{text: text, start: start, index: i})
		start += end + 1
	}
	return lines
}

// lineAt returns the 0-based line number and the line text containing
// offset.
func lineAt(content []byte, offset int) (int, string) {
	n := bytes.Count(content[:offset], []byte{'\n'})
	start := bytes.LastIndexByte(content[:offset], '\n') + 1
	end := bytes.IndexByte(content[offset:], '\n')
	if end < 0 {
		end = len(content)
	} else {
		end += offset
	}
	return n, strings.TrimSuffix(string(content[start:end]), "\r")
}

func (Requirements) Parse(file *File, content []byte) (*Document, error) {
	doc := &Document{File: file, Content: content}
	lines := splitLines(content)

	for i := 0; i < len(lines); i++ {
		first := lines[i]
		logical := first.text
		// Backslash continuations belong to the declaration on the first line.
		for strings.HasSuffix(strings.TrimRight(lines[i].text, " \t"), `\`) && i+1 < len(lines) {
			i++
			logical += "\n" + lines[i].text
		}

		text := stripComment(first.text)
		text = strings.TrimSuffix(strings.TrimRight(text, " \t"), `\`)
		trimmed := strings.TrimSpace(text)
		switch {
		case trimmed == "":
			continue
		case strings.HasPrefix(trimmed, "-"):
			if inc, ok := parseInclude(file, trimmed, first.index); ok {
				doc.Includes = append(doc.Includes, inc)
			}
			continue
		case isReference(trimmed):
			continue
		}

		decl, ok := parseRequirement(text, first.start)
		if !ok {
			continue
		}
		decl.File = file
		decl.Line = first.index
		decl.RawLine = first.text
		decl.Hashed = strings.Contains(logical, "--hash")
		doc.Declarations = append(doc.Declarations, decl)
	}
	return doc, nil
}

// stripComment drops a '#' comment that starts the line or follows
// whitespace. URL fragments ("#egg=") are left alone.
func stripComment(s string) string {
	for i := 0; i < len(s); i++ {
		if s[i] == '#' && (i == 0 || s[i-1] == ' ' || s[i-1] == '\t') {
			return s[:i]
		}
	}
	return s
}

func isReference(s string) bool {
	return strings.Contains(s, "://") ||
		strings.HasPrefix(s, "git+") ||
		strings.HasPrefix(s, ".") ||
		strings.HasPrefix(s, "/") ||
		strings.HasPrefix(s, "~")
}

var includeFlags = map[string]IncludeKind{
	"-r":            IncludeRequirement,
	"--requirement": IncludeRequirement,
	"-c":            IncludeConstraint,
	"--constraint":  IncludeConstraint,
}

// parseInclude recognizes "-r path", "-rpath", "--requirement=path" and the
// constraint equivalents.
func parseInclude(file *File, s string, lineNo int) (Include, bool) {
	flag, target := s, ""
	if k := strings.IndexAny(s, " \t="); k >= 0 {
		flag, target = s[:k], strings.TrimSpace(s[k+1:])
	} else if len(s) > 2 && (s[:2] == "-r" || s[:2] == "-c") && s[1] != '-' {
		flag, target = s[:2], s[2:]
	}
	kind, ok := includeFlags[flag]
	if !ok || target == "" {
		return Include{}, false
	}

	path := target
	if !filepath.IsAbs(path) {
		path = filepath.Join(filepath.Dir(file.Path), filepath.FromSlash(target))
	}
	return Include{File: file, Target: target, Path: filepath.Clean(path), Line: lineNo, Kind: kind}, true
}
