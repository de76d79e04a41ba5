package deps

import (
	"strings"
	"testing"
)

const setupPy = `from setuptools import setup

setup(
    name="demo",
    install_requires=[
        "Django>=4.1.0",  # web, "quoted"
        'requests==2.25.0',
        "click",
    ],
    extras_require={
        "dev": ["pytest==7.0.0", "black>=22.1"],
    },
    tests_require=read_requirements("test.in"),
    description="""install_requires=["ignored==1.0"]""",
)
`

func TestSetupScript_Parse(t *testing.T) {
	doc := mustParse(t, "setup.py", FormatSetup, setupPy)

	want := []string{"django>=4.1.0", "requests==2.25.0", "click", "pytest==7.0.0", "black>=22.1"}
	if len(doc.Declarations) != len(want) {
		t.Fatalf("got %d declarations, want %d: %v", len(doc.Declarations), len(want), doc.Declarations)
	}
	for i, w := range want {
		d := doc.Declarations[i]
		if got := d.Name + d.Specifier(); got != w {
			t.Errorf("[%d] = %q, want %q", i, got, w)
		}
	}
	if got := doc.Declarations[1].Line; got != 6 {
		t.Errorf("requests Line = %d, want 6", got)
	}
	if got := doc.Declarations[1].RawLine; got != "        'requests==2.25.0'," {
		t.Errorf("requests RawLine = %q", got)
	}
}

func TestSetupScript_Render(t *testing.T) {
	doc := mustParse(t, "setup.py", FormatSetup, setupPy)
	out, err := doc.Render(map[*Declaration]string{doc.Declarations[3]: "8.0.0"})
	if err != nil {
		t.Fatal(err)
	}
	want := `"dev": ["pytest==8.0.0", "black>=22.1"],`
	if !strings.Contains(string(out), want) {
		t.Errorf("Render() output missing %q", want)
	}
}

func TestSetupScript_NoLiterals(t *testing.T) {
	doc := mustParse(t, "setup.py", FormatSetup, "setup(install_requires=read_requirements('common.in'))\n")
	if len(doc.Declarations) != 0 {
		t.Errorf("got %d declarations, want 0", len(doc.Declarations))
	}
}
