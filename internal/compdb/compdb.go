// Package compdb aggregates per-profile compile_commands.json fragments
// (emitted by Ninja's own "-t compdb" tool) into one combined database at
// the workspace root.
//
// Grounded on original_source/src/BuildConfig.cc's generateCompdb: sibling
// cabin-out/<profile> directories that carry a build.ninja are each asked
// for their compdb fragment, fragments are merged keyed by (directory,
// file) to drop duplicates, and the combined array is written out
// 2-space-indented.
package compdb

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/cabinpm/cabin/internal/cabinerr"
)

// entryKey identifies one compile_commands.json entry for deduplication.
type entryKey struct {
	directory string
	file      string
}

// Generate runs "ninja -t compdb cxx_compile" in buildDir and every sibling
// directory of buildDir that also carries a build.ninja, merges the
// results, and writes the combined database to
// <parent-of-buildDir>/compile_commands.json. jobs bounds how many of those
// fetches run concurrently, the same --jobs value used for scanning.
func Generate(ctx context.Context, buildDir string, jobs int) error {
	cabinOutRoot := filepath.Dir(buildDir)

	buildDirs := map[string]bool{buildDir: true}
	if entries, err := os.ReadDir(cabinOutRoot); err == nil {
		for _, e := range entries {
			if !e.IsDir() {
				continue
			}
			candidate := filepath.Join(cabinOutRoot, e.Name())
			if _, err := os.Stat(filepath.Join(candidate, "build.ninja")); err == nil {
				buildDirs[candidate] = true
			}
		}
	}

	dirs := make([]string, 0, len(buildDirs))
	for d := range buildDirs {
		dirs = append(dirs, d)
	}
	sort.Strings(dirs)

	fragments := make([][]json.RawMessage, len(dirs))
	g, gctx := errgroup.WithContext(ctx)
	if jobs > 0 {
		g.SetLimit(jobs)
	}
	var mu sync.Mutex
	for i, d := range dirs {
		i, d := i, d
		g.Go(func() error {
			entries, err := fetchFragment(gctx, d)
			if err != nil {
				return err
			}
			mu.Lock()
			fragments[i] = entries
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	combined := mergeFragments(fragments)

	data, err := json.MarshalIndent(combined, "", "  ")
	if err != nil {
		return &cabinerr.IOError{Msg: "marshaling compile_commands.json", Err: err}
	}
	data = append(data, '\n')

	if err := os.MkdirAll(cabinOutRoot, 0o755); err != nil {
		return &cabinerr.IOError{Msg: fmt.Sprintf("creating %s", cabinOutRoot), Err: err}
	}
	outPath := filepath.Join(cabinOutRoot, "compile_commands.json")
	if err := os.WriteFile(outPath, data, 0o644); err != nil {
		return &cabinerr.IOError{Msg: fmt.Sprintf("writing %s", outPath), Err: err}
	}
	return nil
}

// mergeFragments merges a set of ninja -t compdb outputs, keyed by
// (directory, file) to drop duplicate entries, sorted for determinism.
func mergeFragments(fragments [][]json.RawMessage) []json.RawMessage {
	merged := make(map[entryKey]json.RawMessage)
	var order []entryKey
	for _, frag := range fragments {
		for _, raw := range frag {
			var fields struct {
				Directory string `json:"directory"`
				File      string `json:"file"`
			}
			if err := json.Unmarshal(raw, &fields); err != nil {
				continue
			}
			if fields.Directory == "" || fields.File == "" {
				continue
			}
			key := entryKey{directory: fields.Directory, file: fields.File}
			if _, exists := merged[key]; !exists {
				order = append(order, key)
			}
			merged[key] = raw
		}
	}

	sort.Slice(order, func(i, j int) bool {
		if order[i].directory != order[j].directory {
			return order[i].directory < order[j].directory
		}
		return order[i].file < order[j].file
	})

	combined := make([]json.RawMessage, 0, len(order))
	for _, k := range order {
		combined = append(combined, merged[k])
	}
	return combined
}

// fetchFragment is swappable in tests to avoid shelling out to ninja.
var fetchFragment = compdbFragment

func compdbFragment(ctx context.Context, buildDir string) ([]json.RawMessage, error) {
	if _, err := os.Stat(filepath.Join(buildDir, "build.ninja")); err != nil {
		return nil, nil
	}

	cmd := exec.CommandContext(ctx, "ninja", "-C", buildDir, "-t", "compdb", "cxx_compile")
	out, err := cmd.Output()
	if err != nil {
		return nil, &cabinerr.ExecutorError{Msg: fmt.Sprintf("ninja -t compdb in %s", buildDir), Err: err}
	}

	var entries []json.RawMessage
	if err := json.Unmarshal(out, &entries); err != nil {
		return nil, &cabinerr.ExecutorError{Msg: fmt.Sprintf("parsing ninja -t compdb output from %s", buildDir), Err: err}
	}
	return entries, nil
}
