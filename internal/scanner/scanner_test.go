package scanner

import (
	"os"
	"path/filepath"
	"testing"
)

func mustWrite(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestScanProjectBinaryTarget(t *testing.T) {
	root := t.TempDir()
	mustWrite(t, filepath.Join(root, "src", "main.cc"), "int main() {}")
	mustWrite(t, filepath.Join(root, "src", "helper.cc"), "void helper() {}")

	s, err := ScanProject(root, Options{})
	if err != nil {
		t.Fatalf("ScanProject() error: %v", err)
	}
	if s.MainSource == "" {
		t.Fatal("expected MainSource to be set")
	}
	if len(s.SrcFiles) != 1 {
		t.Fatalf("SrcFiles = %v, want 1 entry", s.SrcFiles)
	}
}

func TestScanProjectLibraryOnly(t *testing.T) {
	root := t.TempDir()
	mustWrite(t, filepath.Join(root, "lib", "widget.cc"), "void widget() {}")

	s, err := ScanProject(root, Options{})
	if err != nil {
		t.Fatalf("ScanProject() error: %v", err)
	}
	if s.MainSource != "" {
		t.Errorf("MainSource = %q, want empty", s.MainSource)
	}
	if len(s.LibFiles) != 1 {
		t.Fatalf("LibFiles = %v, want 1 entry", s.LibFiles)
	}
}

func TestScanProjectNoSourcesFails(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(root, 0o755); err != nil {
		t.Fatal(err)
	}
	if _, err := ScanProject(root, Options{}); err == nil {
		t.Fatal("expected error when no src/main and no lib/ sources exist")
	}
}

func TestScanProjectMultipleMainSourcesFails(t *testing.T) {
	root := t.TempDir()
	mustWrite(t, filepath.Join(root, "src", "main.cc"), "int main() {}")
	mustWrite(t, filepath.Join(root, "src", "main.cpp"), "int main() {}")

	if _, err := ScanProject(root, Options{}); err == nil {
		t.Fatal("expected error for multiple main sources")
	}
}

func TestScanProjectHonorsGitignore(t *testing.T) {
	root := t.TempDir()
	mustWrite(t, filepath.Join(root, "lib", "widget.cc"), "void widget() {}")
	mustWrite(t, filepath.Join(root, "lib", "generated.cc"), "void gen() {}")
	mustWrite(t, filepath.Join(root, ".gitignore"), "lib/generated.cc\n")

	s, err := ScanProject(root, Options{})
	if err != nil {
		t.Fatalf("ScanProject() error: %v", err)
	}
	if len(s.LibFiles) != 1 {
		t.Fatalf("LibFiles = %v, want only widget.cc", s.LibFiles)
	}
}

func TestScanProjectNoIgnoreVCS(t *testing.T) {
	root := t.TempDir()
	mustWrite(t, filepath.Join(root, "lib", "widget.cc"), "void widget() {}")
	mustWrite(t, filepath.Join(root, "lib", "generated.cc"), "void gen() {}")
	mustWrite(t, filepath.Join(root, ".gitignore"), "lib/generated.cc\n")

	s, err := ScanProject(root, Options{NoIgnoreVCS: true})
	if err != nil {
		t.Fatalf("ScanProject() error: %v", err)
	}
	if len(s.LibFiles) != 2 {
		t.Fatalf("LibFiles = %v, want both files with NoIgnoreVCS", s.LibFiles)
	}
}

func TestListFormatTargetsHonorsGitignoreAndExcludes(t *testing.T) {
	root := t.TempDir()
	mustWrite(t, filepath.Join(root, "src", "main.cc"), "int main(){}")
	mustWrite(t, filepath.Join(root, "include", "widget.hpp"), "// hpp")
	mustWrite(t, filepath.Join(root, "build", "out.cc"), "// generated")
	mustWrite(t, filepath.Join(root, ".gitignore"), "/build\n")

	files, err := ListFormatTargets(root, []string{"include/widget.hpp"}, false)
	if err != nil {
		t.Fatalf("ListFormatTargets() error: %v", err)
	}
	for _, f := range files {
		if f == filepath.Join("build", "out.cc") {
			t.Errorf("ListFormatTargets() included gitignored file: %v", files)
		}
		if f == filepath.Join("include", "widget.hpp") {
			t.Errorf("ListFormatTargets() included excluded file: %v", files)
		}
	}
	if len(files) != 1 || files[0] != filepath.Join("src", "main.cc") {
		t.Errorf("ListFormatTargets() = %v, want only src/main.cc", files)
	}
}

func TestListFormatTargetsSkipsNestedProjects(t *testing.T) {
	root := t.TempDir()
	mustWrite(t, filepath.Join(root, "src", "main.cc"), "int main(){}")
	mustWrite(t, filepath.Join(root, "vendor", "lib1", "cabin.toml"), "[package]\n")
	mustWrite(t, filepath.Join(root, "vendor", "lib1", "lib", "one.cc"), "void one(){}")

	files, err := ListFormatTargets(root, nil, true)
	if err != nil {
		t.Fatalf("ListFormatTargets() error: %v", err)
	}
	for _, f := range files {
		if filepath.Dir(f) == filepath.Join("vendor", "lib1", "lib") {
			t.Errorf("ListFormatTargets() descended into nested project: %v", files)
		}
	}
}
