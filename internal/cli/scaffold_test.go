package cli

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestCreateProjectFilesBinary(t *testing.T) {
	root := t.TempDir()
	if err := createProjectFiles(true, root, "hello_world", false); err != nil {
		t.Fatalf("createProjectFiles() error: %v", err)
	}

	for _, rel := range []string{"cabin.toml", ".gitignore", filepath.Join("src", "main.cc")} {
		if _, err := os.Stat(filepath.Join(root, rel)); err != nil {
			t.Errorf("expected %s to exist: %v", rel, err)
		}
	}

	data, err := os.ReadFile(filepath.Join(root, "src", "main.cc"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "Hello, world!") {
		t.Errorf("src/main.cc = %q, want it to print Hello, world!", data)
	}
}

func TestCreateProjectFilesLibraryUsesUnderscoreNamespace(t *testing.T) {
	root := t.TempDir()
	if err := createProjectFiles(false, root, "my-lib", false); err != nil {
		t.Fatalf("createProjectFiles() error: %v", err)
	}

	header, err := os.ReadFile(filepath.Join(root, "include", "my-lib", "my-lib.hpp"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(header), "namespace my_lib") {
		t.Errorf("header = %q, want namespace my_lib", header)
	}

	impl, err := os.ReadFile(filepath.Join(root, "lib", "my-lib.cc"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(impl), "namespace my_lib") {
		t.Errorf("impl = %q, want namespace my_lib", impl)
	}
}

func TestCreateProjectFilesRefusesToOverwrite(t *testing.T) {
	root := t.TempDir()
	if err := createProjectFiles(true, root, "widget", false); err != nil {
		t.Fatal(err)
	}
	if err := createProjectFiles(true, root, "widget", false); err == nil {
		t.Error("expected an error overwriting an existing project, got nil")
	}
}

func TestCreateProjectFilesSkipExistingDoesNotError(t *testing.T) {
	root := t.TempDir()
	if err := createProjectFiles(true, root, "widget", false); err != nil {
		t.Fatal(err)
	}
	if err := createProjectFiles(true, root, "widget", true); err != nil {
		t.Errorf("createProjectFiles(skipExisting=true) error: %v", err)
	}
}
