// Package scanner enumerates and classifies a project's source tree: the
// binary entry point under src/, library sources under lib/, and
// integration test sources under tests/, honoring .gitignore the way a
// normal repository-aware tool walk does.
//
// Grounded on original_source/lib/Builder/BuildGraph.cc's listSourceFilePaths
// and the src/-scoped main-source detection in its configure(), with the
// .gitignore-aware walk adapted from phobologic-repoguide's internal/discover
// package (same github.com/sabhiram/go-gitignore library).
package scanner

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	ignore "github.com/sabhiram/go-gitignore"

	"github.com/cabinpm/cabin/internal/cabinerr"
	"github.com/cabinpm/cabin/internal/cabinlog"
)

// SourceExts is the recognized C++ source-file extension set.
var SourceExts = map[string]bool{".c": true, ".c++": true, ".cc": true, ".cpp": true, ".cxx": true}

// HeaderExts is the recognized C++ header-file extension set.
var HeaderExts = map[string]bool{".h": true, ".h++": true, ".hh": true, ".hpp": true, ".hxx": true}

// Options controls a scan.
type Options struct {
	// NoIgnoreVCS disables .gitignore filtering. Only the fmt subcommand's
	// own file list may set this; build/test/tidy always honor .gitignore.
	NoIgnoreVCS bool
}

// Sources is the classified result of scanning a project root.
type Sources struct {
	// MainSource is the absolute path of src/main.{ext}, or "" if none.
	MainSource string
	// SrcFiles is every other source file under src/, sorted.
	SrcFiles []string
	// LibFiles is every source file under lib/, sorted.
	LibFiles []string
	// TestFiles is every source file under tests/, sorted.
	TestFiles []string
}

// ScanProject scans the canonical src/, lib/, tests/ roots beneath
// projectDir.
func ScanProject(projectDir string, opts Options) (*Sources, error) {
	srcDir := filepath.Join(projectDir, "src")
	libDir := filepath.Join(projectDir, "lib")
	testsDir := filepath.Join(projectDir, "tests")

	var s Sources

	var gi *ignore.GitIgnore
	var giRoot string
	if !opts.NoIgnoreVCS {
		giRoot, gi = loadGitignore(projectDir)
	}

	if dirExists(srcDir) {
		files, err := listSourceFiles(srcDir, giRoot, gi)
		if err != nil {
			return nil, err
		}
		mainSource, rest, err := splitMainSource(srcDir, files)
		if err != nil {
			return nil, err
		}
		s.MainSource = mainSource
		s.SrcFiles = rest
	}

	if dirExists(libDir) {
		files, err := listSourceFiles(libDir, giRoot, gi)
		if err != nil {
			return nil, err
		}
		s.LibFiles = files
	}

	if dirExists(testsDir) {
		files, err := listSourceFiles(testsDir, giRoot, gi)
		if err != nil {
			return nil, err
		}
		s.TestFiles = files
	}

	if s.MainSource == "" && len(s.LibFiles) == 0 {
		return nil, &cabinerr.ScanError{Msg: fmt.Sprintf("expected either src/main%v or at least one source file under lib/ matching %v", extsList(SourceExts), extsList(SourceExts))}
	}

	return &s, nil
}

// splitMainSource pulls out the single src/main.{ext} entry point, directly
// inside srcDir (not in a nested subdirectory). More than one is fatal.
func splitMainSource(srcDir string, files []string) (string, []string, error) {
	var mainSource string
	rest := make([]string, 0, len(files))
	for _, f := range files {
		stem := strings.TrimSuffix(filepath.Base(f), filepath.Ext(f))
		isDirectChild := filepath.Dir(f) == srcDir
		if stem == "main" && isDirectChild {
			if mainSource != "" {
				return "", nil, &cabinerr.ScanError{Msg: "multiple main sources were found"}
			}
			mainSource = f
			continue
		}
		if stem == "main" && !isDirectChild {
			cabinlog.Warn("%s is named `main` but is not a direct child of src/; it will not be treated as the entry point", f)
		}
		rest = append(rest, f)
	}
	return mainSource, rest, nil
}

// listSourceFiles recursively lists recognized source files under dir,
// sorted lexicographically, skipping paths gi excludes (matched relative to
// giRoot, the directory the .gitignore file itself lives in).
func listSourceFiles(dir, giRoot string, gi *ignore.GitIgnore) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if gi != nil {
			rel, relErr := filepath.Rel(giRoot, path)
			if relErr == nil && gi.MatchesPath(rel) {
				return nil
			}
		}
		if SourceExts[filepath.Ext(path)] {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, &cabinerr.ScanError{Msg: fmt.Sprintf("scanning %s", dir), Err: err}
	}
	sort.Strings(paths)
	return paths, nil
}

// loadGitignore looks upward from dir for a .gitignore; absence is not an
// error. Returns the directory the file was found in (relative paths passed
// to GitIgnore.MatchesPath must be anchored there) and the compiled matcher.
func loadGitignore(dir string) (string, *ignore.GitIgnore) {
	root := dir
	for {
		path := filepath.Join(root, ".gitignore")
		if _, err := os.Stat(path); err == nil {
			gi, err := ignore.CompileIgnoreFile(path)
			if err == nil {
				return root, gi
			}
			return "", nil
		}
		parent := filepath.Dir(root)
		if parent == root {
			return "", nil
		}
		root = parent
	}
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

func extsList(exts map[string]bool) []string {
	out := make([]string, 0, len(exts))
	for e := range exts {
		out = append(out, e)
	}
	sort.Strings(out)
	return out
}

// ListFormatTargets walks projectDir recursively collecting every source or
// header file, honoring .gitignore (unless noIgnoreVCS) and the given
// project-relative excludes, and skipping any nested directory that is
// itself a package root (contains its own cabin.toml). Grounded on
// original_source/src/Cmd/Fmt.cc's collectFormatTargets.
func ListFormatTargets(projectDir string, excludes []string, noIgnoreVCS bool) ([]string, error) {
	excluded := make(map[string]bool, len(excludes))
	for _, e := range excludes {
		excluded[filepath.ToSlash(e)] = true
	}

	var gi *ignore.GitIgnore
	var giRoot string
	if !noIgnoreVCS {
		giRoot, gi = loadGitignore(projectDir)
	}

	var files []string
	err := filepath.WalkDir(projectDir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path == projectDir {
			return nil
		}
		rel, relErr := filepath.Rel(projectDir, path)
		if relErr != nil {
			return &cabinerr.ScanError{Msg: fmt.Sprintf("relativizing %s", path), Err: relErr}
		}
		relSlash := filepath.ToSlash(rel)

		if d.IsDir() {
			if _, err := os.Stat(filepath.Join(path, "cabin.toml")); err == nil {
				return filepath.SkipDir
			}
			if matchesIgnore(gi, giRoot, path) || excluded[relSlash] {
				return filepath.SkipDir
			}
			return nil
		}

		if matchesIgnore(gi, giRoot, path) || excluded[relSlash] {
			return nil
		}
		ext := filepath.Ext(path)
		if SourceExts[ext] || HeaderExts[ext] {
			files = append(files, rel)
		}
		return nil
	})
	if err != nil {
		return nil, &cabinerr.ScanError{Msg: fmt.Sprintf("scanning %s", projectDir), Err: err}
	}
	sort.Strings(files)
	return files, nil
}

func matchesIgnore(gi *ignore.GitIgnore, giRoot, path string) bool {
	if gi == nil {
		return false
	}
	rel, err := filepath.Rel(giRoot, path)
	return err == nil && gi.MatchesPath(rel)
}
