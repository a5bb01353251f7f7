package ninjaplan

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/cabinpm/cabin/internal/buildgraph"
)

func TestWriteFilesProducesAllFourFiles(t *testing.T) {
	dir := t.TempDir()
	p := New(dir)
	p.AddEdge(buildgraph.Edge{
		Outputs:        []string{"obj/main.o"},
		Rule:           "cxx_compile",
		Inputs:         []string{"src/main.cc"},
		ImplicitInputs: []string{"src/foo.h"},
		Bindings:       [][2]string{{"out_dir", "obj"}},
	})
	p.AddEdge(buildgraph.Edge{
		Outputs: []string{"widget"},
		Rule:    "cxx_link_exe",
		Inputs:  []string{"obj/main.o"},
	})
	p.AddDefaultTarget("widget")
	p.SetTestTargets([]string{"unit/src/foo.cc.test"})

	tc := Toolchain{Cxx: "g++", CxxFlags: "-std=c++20", Archiver: "ar"}
	if err := p.WriteFiles(tc); err != nil {
		t.Fatalf("WriteFiles() error = %v", err)
	}

	for _, name := range []string{"rules.ninja", "config.ninja", "targets.ninja", "build.ninja"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("expected %s to exist: %v", name, err)
		}
	}

	targets, err := os.ReadFile(filepath.Join(dir, "targets.ninja"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(targets), "build obj/main.o: cxx_compile src/main.cc | src/foo.h") {
		t.Errorf("targets.ninja missing expected compile edge:\n%s", targets)
	}
	if !strings.Contains(string(targets), "build tests: phony unit/src/foo.cc.test") {
		t.Errorf("targets.ninja missing phony tests aggregate:\n%s", targets)
	}

	build, err := os.ReadFile(filepath.Join(dir, "build.ninja"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(build), "default widget") {
		t.Errorf("build.ninja missing default target:\n%s", build)
	}
	if !strings.Contains(string(build), "ninja_required_version = "+RequiredVersion) {
		t.Errorf("build.ninja missing ninja_required_version:\n%s", build)
	}

	config, err := os.ReadFile(filepath.Join(dir, "config.ninja"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(config), "cxx = g++") {
		t.Errorf("config.ninja missing cxx binding:\n%s", config)
	}
}

func TestNeedsRegenerateMissingFile(t *testing.T) {
	dir := t.TempDir()
	if !NeedsRegenerate(dir, time.Now()) {
		t.Error("NeedsRegenerate() = false for missing build.ninja, want true")
	}
}

func TestNeedsRegenerateStaleFile(t *testing.T) {
	dir := t.TempDir()
	p := New(dir)
	if err := p.WriteFiles(Toolchain{Cxx: "g++"}); err != nil {
		t.Fatal(err)
	}

	future := time.Now().Add(time.Hour)
	if !NeedsRegenerate(dir, future) {
		t.Error("NeedsRegenerate() = false for a build.ninja older than newerThan, want true")
	}
	past := time.Now().Add(-time.Hour)
	if NeedsRegenerate(dir, past) {
		t.Error("NeedsRegenerate() = true for a build.ninja newer than newerThan, want false")
	}
}

func TestFromGraphCopiesEdgesAndTargets(t *testing.T) {
	g := &buildgraph.Graph{
		Edges:          []buildgraph.Edge{{Outputs: []string{"a.o"}, Rule: "cxx_compile", Inputs: []string{"a.cc"}}},
		DefaultTargets: []string{"widget"},
		TestTargets:    []buildgraph.TestTarget{{NinjaTarget: "unit/a.cc.test", Kind: buildgraph.TestUnit}},
	}
	p := FromGraph("/tmp/cabin-out/dev", g)
	if len(p.edges) != 1 || len(p.defaultTargets) != 1 || len(p.testTargets) != 1 {
		t.Fatalf("FromGraph did not copy fields: edges=%d defaults=%d tests=%d", len(p.edges), len(p.defaultTargets), len(p.testTargets))
	}
	if p.testTargets[0] != "unit/a.cc.test" {
		t.Errorf("testTargets[0] = %q, want %q", p.testTargets[0], "unit/a.cc.test")
	}
}
