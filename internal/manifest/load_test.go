package manifest

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func writeManifest(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, ManifestFileName)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing manifest: %v", err)
	}
	return path
}

func TestLoadMinimal(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, `
[package]
name = "hello-world"
edition = "20"
version = "0.1.0"
`)
	m, err := Load(filepath.Join(dir, ManifestFileName))
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if m.Package.Name != "hello-world" {
		t.Errorf("Name = %q", m.Package.Name)
	}
	dev, err := ResolveProfile(m, "dev")
	if err != nil {
		t.Fatalf("ResolveProfile(dev): %v", err)
	}
	if !dev.Debug || dev.OptLevel != 0 {
		t.Errorf("dev profile defaults wrong: %+v", dev)
	}
	release, err := ResolveProfile(m, "release")
	if err != nil {
		t.Fatalf("ResolveProfile(release): %v", err)
	}
	if release.Debug || release.OptLevel != 3 {
		t.Errorf("release profile defaults wrong: %+v", release)
	}
}

func TestLoadRejectsInvalidOptLevel(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, `
[package]
name = "hello-world"
edition = "20"
version = "0.1.0"

[profile]
opt-level = 4
`)
	if _, err := Load(filepath.Join(dir, ManifestFileName)); err == nil {
		t.Fatal("expected error for opt-level=4")
	}
}

func TestLoadRejectsInvalidEdition(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, `
[package]
name = "hello-world"
edition = "13"
version = "0.1.0"
`)
	if _, err := Load(filepath.Join(dir, ManifestFileName)); err == nil {
		t.Fatal("expected error for invalid edition")
	}
}

func TestLoadRejectsKeywordName(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, `
[package]
name = "class"
edition = "20"
version = "0.1.0"
`)
	if _, err := Load(filepath.Join(dir, ManifestFileName)); err == nil {
		t.Fatal("expected error for reserved keyword name")
	}
}

func TestLoadDependencyVariants(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, `
[package]
name = "hello-world"
edition = "20"
version = "0.1.0"

[dependencies]
fmt = { git = "https://github.com/fmtlib/fmt", tag = "10.2.1" }
inner = { path = "../inner" }
zlib = { version = "1.2", system = true }
`)
	m, err := Load(filepath.Join(dir, ManifestFileName))
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	deps, err := m.ParsedDependencies()
	if err != nil {
		t.Fatalf("ParsedDependencies() error: %v", err)
	}
	if len(deps) != 3 {
		t.Fatalf("got %d deps, want 3", len(deps))
	}
	var sawGit, sawPath, sawSystem bool
	for _, d := range deps {
		switch dep := d.(type) {
		case GitDependency:
			sawGit = true
			if dep.Target != "10.2.1" {
				t.Errorf("git target = %q", dep.Target)
			}
		case PathDependency:
			sawPath = true
		case SystemDependency:
			sawSystem = true
		}
	}
	if !sawGit || !sawPath || !sawSystem {
		t.Errorf("missing a variant: git=%v path=%v system=%v", sawGit, sawPath, sawSystem)
	}
}

func TestParsedDependenciesPreservesDeclarationOrder(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, `
[package]
name = "hello-world"
edition = "20"
version = "0.1.0"

[dependencies]
zlib = { version = "1.2", system = true }
fmt = { git = "https://github.com/fmtlib/fmt", tag = "10.2.1" }
inner = { path = "../inner" }
`)
	m, err := Load(filepath.Join(dir, ManifestFileName))
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	deps, err := m.ParsedDependencies()
	if err != nil {
		t.Fatalf("ParsedDependencies() error: %v", err)
	}
	want := []string{"zlib", "fmt", "inner"}
	if len(deps) != len(want) {
		t.Fatalf("got %d deps, want %d", len(deps), len(want))
	}
	for i, d := range deps {
		if got := Name(d); got != want[i] {
			t.Errorf("deps[%d] = %q, want %q (order = %v)", i, got, want[i], namesOf(deps))
		}
	}
}

func namesOf(deps []Dependency) []string {
	names := make([]string, len(deps))
	for i, d := range deps {
		names[i] = Name(d)
	}
	return names
}

func TestLoadRejectsAmbiguousDependency(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, `
[package]
name = "hello-world"
edition = "20"
version = "0.1.0"

[dependencies]
bad = { git = "https://x", path = "../y" }
`)
	if _, err := Load(filepath.Join(dir, ManifestFileName)); err == nil {
		t.Fatal("expected error for ambiguous dependency")
	}
}

func TestFindAndLoadAscends(t *testing.T) {
	root := t.TempDir()
	writeManifest(t, root, `
[package]
name = "hello-world"
edition = "20"
version = "0.1.0"
`)
	nested := filepath.Join(root, "src", "deep", "nested")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatal(err)
	}
	m, err := FindAndLoad(nested)
	if err != nil {
		t.Fatalf("FindAndLoad() error: %v", err)
	}
	if m.Package.Name != "hello-world" {
		t.Errorf("Name = %q", m.Package.Name)
	}
}

func TestFindAndLoadMissing(t *testing.T) {
	dir := t.TempDir()
	if _, err := FindAndLoad(dir); err == nil {
		t.Fatal("expected error when no cabin.toml exists")
	}
}

func TestTestProfileInheritsFromDevAppend(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, `
[package]
name = "hello-world"
edition = "20"
version = "0.1.0"

[profile.dev]
cxxflags = ["-g"]

[profile.test]
cxxflags = ["-DTESTING"]
`)
	m, err := Load(filepath.Join(dir, ManifestFileName))
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	test, err := ResolveProfile(m, "test")
	if err != nil {
		t.Fatalf("ResolveProfile(test): %v", err)
	}
	want := []string{"-g", "-DTESTING"}
	if len(test.CxxFlags) != 2 || test.CxxFlags[0] != want[0] || test.CxxFlags[1] != want[1] {
		t.Errorf("test.CxxFlags = %v, want %v", test.CxxFlags, want)
	}
}

func TestTestProfileOverwriteMode(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, `
[package]
name = "hello-world"
edition = "20"
version = "0.1.0"

[profile.dev]
cxxflags = ["-g"]

[profile.test]
cxxflags = ["-DTESTING"]
inherit-mode = "overwrite"
`)
	m, err := Load(filepath.Join(dir, ManifestFileName))
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	test, err := ResolveProfile(m, "test")
	if err != nil {
		t.Fatalf("ResolveProfile(test): %v", err)
	}
	if len(test.CxxFlags) != 1 || test.CxxFlags[0] != "-DTESTING" {
		t.Errorf("test.CxxFlags = %v, want [-DTESTING]", test.CxxFlags)
	}
}

func TestValidateFlag(t *testing.T) {
	cases := []struct {
		flag string
		ok   bool
	}{
		{"-O2", true},
		{"-framework Metal", true},
		{"O2", false},
		{"-framework Apple Metal", false},
		{"-weird$char", false},
	}
	for _, c := range cases {
		err := ValidateFlag(c.flag)
		if (err == nil) != c.ok {
			t.Errorf("ValidateFlag(%q) error=%v, want ok=%v", c.flag, err, c.ok)
		}
	}
}

func TestValidateDependencyName(t *testing.T) {
	cases := []struct {
		name string
		ok   bool
	}{
		{"fmt", true},
		{"owner/repo", true},
		{"a.b1", false}, // '.' must be wrapped by digits on both sides
		{"1.2", true},
		{"a++", true},
		{"a+", false},
		{"a//b", false},
		{"a--b", false},
	}
	for _, c := range cases {
		err := ValidateDependencyName(c.name)
		if (err == nil) != c.ok {
			t.Errorf("ValidateDependencyName(%q) error=%v, want ok=%v", c.name, err, c.ok)
		}
	}
}

func TestDeclarationOrder(t *testing.T) {
	data := []byte(`
[package]
name = "hello-world"

[dependencies]
zlib = { system = true }
fmt = { git = "https://github.com/fmtlib/fmt" }

[profile]
debug = true

[dev-dependencies]
catch2 = { system = true }
`)
	if got := declarationOrder(data, "dependencies"); !reflect.DeepEqual(got, []string{"zlib", "fmt"}) {
		t.Errorf("declarationOrder(dependencies) = %v, want [zlib fmt]", got)
	}
	if got := declarationOrder(data, "dev-dependencies"); !reflect.DeepEqual(got, []string{"catch2"}) {
		t.Errorf("declarationOrder(dev-dependencies) = %v, want [catch2]", got)
	}
	if got := declarationOrder(data, "missing"); len(got) != 0 {
		t.Errorf("declarationOrder(missing) = %v, want empty", got)
	}
}

func TestOrderedNamesFallsBackAlphabeticallyForUnknownKeys(t *testing.T) {
	raw := map[string]RawDep{
		"zlib":  {System: true},
		"fmt":   {Git: "https://github.com/fmtlib/fmt"},
		"extra": {System: true}, // not mentioned in order
	}
	got := orderedNames(raw, []string{"zlib", "fmt"})
	want := []string{"zlib", "fmt", "extra"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("orderedNames() = %v, want %v", got, want)
	}
}
