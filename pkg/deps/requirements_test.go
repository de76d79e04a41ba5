package deps

import (
	"path/filepath"
	"testing"
)

const requirementsIn = `# Base requirements
-r common.in
Django==4.1.0  # web framework
requests[socks]>=2.25.0,<3 ; python_version >= "3.8"
httpx

-e ./local-package
git+https://github.com/user/repo.git#egg=repo
numpy==1.2.*
cryptography==41.0.0 \
    --hash=sha256:abc
-c ../constraints.txt
`

func mustParse(t *testing.T, name string, format Format, content string) *Document {
	t.Helper()
	file := &File{Path: filepath.Join("/project", name), Rel: name, Format: format}
	doc, err := ParseContent(file, []byte(content))
	if err != nil {
		t.Fatalf("ParseContent(%s) error: %v", name, err)
	}
	return doc
}

func TestRequirements_Parse(t *testing.T) {
	doc := mustParse(t, "requirements/base.in", FormatPipTools, requirementsIn)

	want := []struct {
		name    string
		op      Operator
		version string
		line    int
	}{
		{"django", OpEqual, "4.1.0", 2},
		{"requests", OpGreaterEq, "2.25.0", 3},
		{"httpx", OpNone, "", 4},
		{"numpy", OpEqual, "1.2.*", 8},
		{"cryptography", OpEqual, "41.0.0", 9},
	}
	if len(doc.Declarations) != len(want) {
		t.Fatalf("got %d declarations, want %d", len(doc.Declarations), len(want))
	}
	for i, w := range want {
		d := doc.Declarations[i]
		if d.Name != w.name {
			t.Errorf("[%d] Name = %q, want %q", i, d.Name, w.name)
		}
		if d.Operator() != w.op {
			t.Errorf("[%d] Operator() = %q, want %q", i, d.Operator(), w.op)
		}
		if c := d.Primary(); c != nil && c.Text != w.version {
			t.Errorf("[%d] version = %q, want %q", i, c.Text, w.version)
		}
		if d.Line != w.line {
			t.Errorf("[%d] Line = %d, want %d", i, d.Line, w.line)
		}
		if c := d.Primary(); c != nil {
			if got := requirementsIn[c.Span.Start:c.Span.End]; got != c.Text {
				t.Errorf("[%d] span covers %q, want %q", i, got, c.Text)
			}
		}
	}

	req := doc.Declarations[1]
	if len(req.Extras) != 1 || req.Extras[0] != "socks" {
		t.Errorf("Extras = %v, want [socks]", req.Extras)
	}
	if req.Marker != `python_version >= "3.8"` {
		t.Errorf("Marker = %q", req.Marker)
	}
	if req.Specifier() != ">=2.25.0,<3" {
		t.Errorf("Specifier() = %q, want >=2.25.0,<3", req.Specifier())
	}
	if doc.Declarations[0].RawLine != "Django==4.1.0  # web framework" {
		t.Errorf("RawLine = %q", doc.Declarations[0].RawLine)
	}
	if doc.Declarations[3].Warning == nil || doc.Declarations[3].Version() != nil {
		t.Error("numpy==1.2.* should carry a warning and no version")
	}
	if !doc.Declarations[4].Hashed {
		t.Error("cryptography should be marked hash-pinned")
	}
	if len(doc.Warnings()) != 1 {
		t.Errorf("Warnings() = %v, want 1", doc.Warnings())
	}
}

func TestRequirements_Includes(t *testing.T) {
	doc := mustParse(t, "requirements/dev.in", FormatPipTools, requirementsIn)

	if len(doc.Includes) != 2 {
		t.Fatalf("got %d includes, want 2", len(doc.Includes))
	}
	tests := []struct {
		target string
		path   string
		kind   IncludeKind
		line   int
	}{
		{"common.in", filepath.FromSlash("/project/requirements/common.in"), IncludeRequirement, 1},
		{"../constraints.txt", filepath.FromSlash("/project/constraints.txt"), IncludeConstraint, 11},
	}
	for i, tt := range tests {
		inc := doc.Includes[i]
		if inc.Target != tt.target || inc.Path != tt.path || inc.Kind != tt.kind || inc.Line != tt.line {
			t.Errorf("Includes[%d] = %+v, want %+v", i, inc, tt)
		}
	}
}

func TestParseInclude(t *testing.T) {
	file := &File{Path: "/p/requirements/dev.in"}
	tests := []struct {
		line   string
		target string
		ok     bool
	}{
		{"-r base.in", "base.in", true},
		{"-rbase.in", "base.in", true},
		{"--requirement base.in", "base.in", true},
		{"--requirement=base.in", "base.in", true},
		{"-c constraints.txt", "constraints.txt", true},
		{"--constraint=constraints.txt", "constraints.txt", true},
		{"-e .", "", false},
		{"--index-url https://example.com/simple", "", false},
		{"-r", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			inc, ok := parseInclude(file, tt.line, 0)
			if ok != tt.ok || inc.Target != tt.target {
				t.Errorf("parseInclude(%q) = %q, %v; want %q, %v", tt.line, inc.Target, ok, tt.target, tt.ok)
			}
		})
	}
}

func TestParseRequirement(t *testing.T) {
	tests := []struct {
		in      string
		name    string
		spec    string
		ok      bool
		warning bool
	}{
		{"Django==4.1.0", "django", "==4.1.0", true, false},
		{"zope.interface>=5", "zope-interface", ">=5", true, false},
		{"Foo_Bar ~= 1.4.2", "foo-bar", "~=1.4.2", true, false},
		{"requests (>=2.0, <3.0)", "requests", ">=2.0,<3.0", true, false},
		{"pkg===1.0-custom", "pkg", "===1.0-custom", true, true},
		{"pkg!=1.5", "pkg", "!=1.5", true, false},
		{"pkg @ https://example.com/pkg.whl", "", "", false, false},
		{"not a requirement", "", "", false, false},
		{"pkg>=", "", "", false, false},
		{"pkg==1.0,", "", "", false, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			d, ok := parseRequirement(tt.in, 0)
			if ok != tt.ok {
				t.Fatalf("parseRequirement(%q) ok = %v, want %v", tt.in, ok, tt.ok)
			}
			if !ok {
				return
			}
			if d.Name != tt.name || d.Specifier() != tt.spec {
				t.Errorf("parseRequirement(%q) = %s %s, want %s %s", tt.in, d.Name, d.Specifier(), tt.name, tt.spec)
			}
			if (d.Warning != nil) != tt.warning {
				t.Errorf("Warning = %v, want warning %v", d.Warning, tt.warning)
			}
		})
	}
}

func TestNormalize(t *testing.T) {
	tests := map[string]string{
		"Django":         "django",
		"zope.interface": "zope-interface",
		"Foo__Bar":       "foo-bar",
		"a-_.b":          "a-b",
		" requests ":     "requests",
	}
	for in, want := range tests {
		if got := Normalize(in); got != want {
			t.Errorf("Normalize(%q) = %q, want %q", in, got, want)
		}
	}
}
