// Package deps reads and rewrites Python dependency declaration files.
//
// # Formats
//
// Four dialects are understood, each behind a [Parser]:
//
//   - requirements*.txt and pip-tools *.in files, including "-r" and "-c"
//     directives
//   - setup.py, string literals in install_requires, setup_requires,
//     tests_require and extras_require
//   - pyproject.toml PEP 621 dependencies and optional-dependencies
//   - pyproject.toml Poetry dependency tables
//
// [Detect] picks the format from the file name and content; [Discover]
// finds files under a project root with doublestar patterns.
//
// # Round-trip
//
// Parsing never normalizes the file. A [Document] keeps the original bytes
// and each [Declaration] records the byte [Span] of its version token, so
//
//	out, _ := doc.Render(map[*deps.Declaration]string{decl: "4.2.0"})
//
// changes exactly those bytes. Comments, extras, markers, quoting, blank
// lines and anything the parser did not recognize come back unchanged, and
// Render with no edits returns the input verbatim.
package deps
