package planner

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/matzehuels/pypi-updater/pkg/deps"
)

func TestWriteAtomic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "requirements.txt")
	if err := os.WriteFile(path, []byte("Django==4.1.0\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	if err := writeAtomic(path, []byte("Django==4.2.0\n")); err != nil {
		t.Fatalf("writeAtomic() error: %v", err)
	}

	data, _ := os.ReadFile(path)
	if string(data) != "Django==4.2.0\n" {
		t.Errorf("content = %q", data)
	}
	info, _ := os.Stat(path)
	if info.Mode().Perm() != 0o600 {
		t.Errorf("mode = %v, want 0600", info.Mode().Perm())
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Errorf("directory has %d entries, want no leftover temp files", len(entries))
	}
}

func TestWriteAtomic_MissingDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nope", "requirements.txt")
	if err := writeAtomic(path, []byte("x")); err == nil {
		t.Error("expected error for missing directory")
	}
}

func TestApply_OnDisk(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pyproject.toml")
	content := "[tool.poetry.dependencies]\npython = \"^3.11\"\ndjango = \"^4.1.0\"\nrequests = { version = \">=2.25.0\", extras = [\"socks\"] }\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	file := &deps.File{Path: path, Rel: "pyproject.toml", Format: deps.FormatPoetry}
	doc, err := deps.Parse(file)
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}

	p, err := New(Options{})
	if err != nil {
		t.Fatal(err)
	}
	_, outcomes := p.Run(context.Background(), []*deps.Document{doc}, testResults())
	if !outcomes[0].Written || outcomes[0].Changes != 2 {
		t.Fatalf("outcome = %+v, want 2 written changes", outcomes[0])
	}

	data, _ := os.ReadFile(path)
	want := "[tool.poetry.dependencies]\npython = \"^3.11\"\ndjango = \"^4.2.0\"\nrequests = { version = \">=2.31.0\", extras = [\"socks\"] }\n"
	if string(data) != want {
		t.Errorf("content:\n%s\nwant:\n%s", data, want)
	}
}
