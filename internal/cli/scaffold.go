package cli

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/cabinpm/cabin/internal/cabinerr"
	"github.com/cabinpm/cabin/internal/cabinlog"
	"github.com/cabinpm/cabin/internal/manifest"
	"github.com/cabinpm/cabin/internal/vcsgit"
)

var gitRepo = vcsgit.New()

// fileTemplate is one scaffolded file, grounded on original_source/src/Cmd/
// New.cc's FileTemplate struct.
type fileTemplate struct {
	path     string
	contents string
}

const mainCC = `#include <iostream>

int main() {
  std::cout << "Hello, world!" << std::endl;
  return 0;
}
`

func toNamespaceName(projectName string) string {
	return strings.ReplaceAll(projectName, "-", "_")
}

// gitAuthor shells out to "git config" for the user's configured identity,
// matching New.cc's getAuthor(): any failure (no git, unset config) yields
// an empty string rather than an error.
func gitAuthor() string {
	name, errName := gitConfigValue("user.name")
	email, errEmail := gitConfigValue("user.email")
	if errName != nil || errEmail != nil || name == "" {
		return ""
	}
	return fmt.Sprintf("%s <%s>", name, email)
}

func gitConfigValue(key string) (string, error) {
	cmd := exec.Command("git", "config", "--get", key)
	var out bytes.Buffer
	cmd.Stdout = &out
	if err := cmd.Run(); err != nil {
		return "", err
	}
	return strings.TrimSpace(out.String()), nil
}

func createCabinToml(projectName string) string {
	author := gitAuthor()
	authorsLine := ""
	if author != "" {
		authorsLine = fmt.Sprintf("authors = [%q]\n", author)
	}
	return fmt.Sprintf("[package]\nname = %q\nversion = \"0.1.0\"\n%sedition = \"20\"\n", projectName, authorsLine)
}

func libraryHeader(projectName string) string {
	ns := toNamespaceName(projectName)
	macro := strings.ToUpper(strings.ReplaceAll(projectName, "-", "_"))
	return fmt.Sprintf(`#ifndef %[1]s_HPP
#define %[1]s_HPP

namespace %[2]s {
void hello_world();
}  // namespace %[2]s

#endif  // !%[1]s_HPP
`, macro, ns)
}

func libraryImpl(projectName string) string {
	ns := toNamespaceName(projectName)
	return fmt.Sprintf(`#include "%[1]s/%[1]s.hpp"
#include <iostream>

namespace %[2]s {
void hello_world() {
  std::cout << "Hello, world from %[1]s!" << std::endl;
}
}  // namespace %[2]s
`, projectName, ns)
}

// createProjectFiles scaffolds either a binary or library package layout
// under root, grounded on New.cc's createProjectFiles. skipExisting lets
// `init` write only the files an existing directory is missing.
func createProjectFiles(isBin bool, root, projectName string, skipExisting bool) error {
	var templates []fileTemplate

	if isBin {
		if err := os.MkdirAll(filepath.Join(root, "src"), 0o755); err != nil {
			return &cabinerr.IOError{Msg: "creating src/", Err: err}
		}
		templates = []fileTemplate{
			{path: filepath.Join(root, manifest.ManifestFileName), contents: createCabinToml(projectName)},
			{path: filepath.Join(root, ".gitignore"), contents: "/cabin-out\n"},
			{path: filepath.Join(root, "src", "main.cc"), contents: mainCC},
		}
	} else {
		includeDir := filepath.Join(root, "include", projectName)
		if err := os.MkdirAll(includeDir, 0o755); err != nil {
			return &cabinerr.IOError{Msg: "creating include/", Err: err}
		}
		if err := os.MkdirAll(filepath.Join(root, "lib"), 0o755); err != nil {
			return &cabinerr.IOError{Msg: "creating lib/", Err: err}
		}
		templates = []fileTemplate{
			{path: filepath.Join(root, manifest.ManifestFileName), contents: createCabinToml(projectName)},
			{path: filepath.Join(root, ".gitignore"), contents: "/cabin-out\n"},
			{path: filepath.Join(includeDir, projectName+".hpp"), contents: libraryHeader(projectName)},
			{path: filepath.Join(root, "lib", projectName+".cc"), contents: libraryImpl(projectName)},
		}
	}

	for _, t := range templates {
		if err := writeNewFile(t.path, t.contents, skipExisting); err != nil {
			return err
		}
	}

	kind := "binary (application)"
	if !isBin {
		kind = "library"
	}
	cabinlog.Info("Created", "%s `%s` package", kind, projectName)
	return nil
}

func writeNewFile(path, contents string, skipIfExists bool) error {
	if _, err := os.Stat(path); err == nil {
		if skipIfExists {
			return nil
		}
		return &cabinerr.IOError{Msg: fmt.Sprintf("refusing to overwrite `%s`; file already exists", path)}
	}
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		return &cabinerr.IOError{Msg: fmt.Sprintf("writing `%s`", path), Err: err}
	}
	return nil
}

func gitInitQuiet(dir string) {
	if err := gitRepo.InitRepo(context.Background(), dir); err != nil {
		cabinlog.Warn("%s", err)
	}
}
