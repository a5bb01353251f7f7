package buildgraph

import (
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/cabinpm/cabin/internal/ccprobe"
	"github.com/cabinpm/cabin/internal/scanner"
)

// fakeDepScanner returns pre-scripted (objName, deps) pairs keyed by source
// path, so tests don't need a real compiler.
type fakeDepScanner struct {
	results map[string]fakeScanResult
}

type fakeScanResult struct {
	objName string
	deps    []string
}

func (f fakeDepScanner) Scan(source string, isTest bool) (string, []string, error) {
	r, ok := f.results[source]
	if !ok {
		return filepath.Base(source) + ".o", nil, nil
	}
	return r.objName, r.deps, nil
}

// fakePreprocessor reports a CABIN_TEST difference for any source whose
// path is present in the "different" set; otherwise plain == withTest.
type fakePreprocessor struct {
	different map[string]bool
}

func (f fakePreprocessor) Preprocess(sourcePath string, defineCabinTest bool) (string, error) {
	if f.different[sourcePath] && defineCabinTest {
		return "with-test", nil
	}
	return "plain", nil
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestConfigureBinaryOnlyLinksTransitiveSrcDep(t *testing.T) {
	dir := t.TempDir()
	mainSrc := filepath.Join(dir, "src", "main.cc")
	fooSrc := filepath.Join(dir, "src", "foo.cc")
	fooHdr := filepath.Join(dir, "src", "foo.h")
	writeFile(t, mainSrc, `#include "foo.h"`+"\n")
	writeFile(t, fooSrc, `#include "foo.h"`+"\n")
	writeFile(t, fooHdr, "void foo();\n")

	sources := &scanner.Sources{MainSource: mainSrc, SrcFiles: []string{fooSrc}}

	ds := fakeDepScanner{results: map[string]fakeScanResult{
		mainSrc: {objName: "main.o", deps: []string{fooHdr}},
		fooSrc:  {objName: "foo.o", deps: nil},
	}}

	g := NewGraph(Config{
		ProjectDir:  dir,
		OutBasePath: filepath.Join(dir, "cabin-out", "dev"),
		PackageName: "widget",
		LibName:     ccprobe.ArchiveName("widget"),
		ProfileName: "dev",
		DepScanner:  ds,
		Jobs:        2,
		Sources:     sources,
	})

	if err := g.Configure(); err != nil {
		t.Fatalf("Configure() error = %v", err)
	}

	if !g.HasBinaryTarget || g.HasLibraryTarget {
		t.Fatalf("HasBinaryTarget/HasLibraryTarget = %v/%v, want true/false", g.HasBinaryTarget, g.HasLibraryTarget)
	}
	if len(g.DefaultTargets) != 1 || g.DefaultTargets[0] != "widget" {
		t.Fatalf("DefaultTargets = %v, want [widget]", g.DefaultTargets)
	}

	var linkEdge *Edge
	for i := range g.Edges {
		if g.Edges[i].Rule == "cxx_link_exe" {
			linkEdge = &g.Edges[i]
		}
	}
	if linkEdge == nil {
		t.Fatal("no cxx_link_exe edge emitted")
	}
	want := []string{"obj/foo.o", "obj/main.o"}
	got := append([]string{}, linkEdge.Inputs...)
	sort.Strings(got)
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("link inputs = %v, want %v", got, want)
	}
}

func TestConfigureBinaryLinksMultiHopTransitiveSrcDeps(t *testing.T) {
	dir := t.TempDir()
	mainSrc := filepath.Join(dir, "src", "main.cc")
	aSrc := filepath.Join(dir, "src", "a.cc")
	aHdr := filepath.Join(dir, "src", "a.h")
	bSrc := filepath.Join(dir, "src", "b.cc")
	bHdr := filepath.Join(dir, "src", "b.h")
	cSrc := filepath.Join(dir, "src", "c.cc")
	cHdr := filepath.Join(dir, "src", "c.h")
	for _, f := range []string{mainSrc, aSrc, aHdr, bSrc, bHdr, cSrc, cHdr} {
		writeFile(t, f, "// stub\n")
	}

	sources := &scanner.Sources{MainSource: mainSrc, SrcFiles: []string{aSrc, bSrc, cSrc}}

	// main -> a.h -> (a.cc depends on b.h) -> (b.cc depends on c.h) -> c.cc.
	// Each hop is only discoverable by following the previous object's own
	// dependency set, exercising collectBinDepObjs's multi-level traversal.
	ds := fakeDepScanner{results: map[string]fakeScanResult{
		mainSrc: {objName: "main.o", deps: []string{aHdr}},
		aSrc:    {objName: "a.o", deps: []string{bHdr}},
		bSrc:    {objName: "b.o", deps: []string{cHdr}},
		cSrc:    {objName: "c.o", deps: nil},
	}}

	g := NewGraph(Config{
		ProjectDir:  dir,
		OutBasePath: filepath.Join(dir, "cabin-out", "dev"),
		PackageName: "widget",
		LibName:     ccprobe.ArchiveName("widget"),
		ProfileName: "dev",
		DepScanner:  ds,
		Jobs:        2,
		Sources:     sources,
	})

	if err := g.Configure(); err != nil {
		t.Fatalf("Configure() error = %v", err)
	}

	var linkEdge *Edge
	for i := range g.Edges {
		if g.Edges[i].Rule == "cxx_link_exe" {
			linkEdge = &g.Edges[i]
		}
	}
	if linkEdge == nil {
		t.Fatal("no cxx_link_exe edge emitted")
	}
	want := []string{"obj/a.o", "obj/b.o", "obj/c.o", "obj/main.o"}
	got := append([]string{}, linkEdge.Inputs...)
	sort.Strings(got)
	if len(got) != len(want) {
		t.Fatalf("link inputs = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("link inputs = %v, want %v", got, want)
			break
		}
	}
}

func TestConfigureWithLibraryArchivesAndLinksLib(t *testing.T) {
	dir := t.TempDir()
	mainSrc := filepath.Join(dir, "src", "main.cc")
	barSrc := filepath.Join(dir, "lib", "bar.cc")
	writeFile(t, mainSrc, "int main(){}\n")
	writeFile(t, barSrc, "void bar(){}\n")

	sources := &scanner.Sources{MainSource: mainSrc, LibFiles: []string{barSrc}}

	ds := fakeDepScanner{results: map[string]fakeScanResult{
		mainSrc: {objName: "main.o"},
		barSrc:  {objName: "bar.o"},
	}}

	libName := ccprobe.ArchiveName("widget")
	g := NewGraph(Config{
		ProjectDir:  dir,
		OutBasePath: filepath.Join(dir, "cabin-out", "dev"),
		PackageName: "widget",
		LibName:     libName,
		ProfileName: "dev",
		DepScanner:  ds,
		Jobs:        1,
		Sources:     sources,
	})

	if err := g.Configure(); err != nil {
		t.Fatalf("Configure() error = %v", err)
	}
	if !g.HasLibraryTarget {
		t.Fatal("HasLibraryTarget = false, want true")
	}

	var archiveEdge, linkEdge *Edge
	for i := range g.Edges {
		switch g.Edges[i].Rule {
		case "cxx_link_static_lib":
			archiveEdge = &g.Edges[i]
		case "cxx_link_exe":
			linkEdge = &g.Edges[i]
		}
	}
	if archiveEdge == nil {
		t.Fatal("no cxx_link_static_lib edge emitted")
	}
	if archiveEdge.Outputs[0] != libName {
		t.Errorf("archive output = %v, want %v", archiveEdge.Outputs, libName)
	}
	if archiveEdge.Inputs[0] != "obj/lib/bar.o" {
		t.Errorf("archive inputs = %v, want [obj/lib/bar.o]", archiveEdge.Inputs)
	}

	if linkEdge == nil {
		t.Fatal("no cxx_link_exe edge emitted")
	}
	found := false
	for _, in := range linkEdge.Inputs {
		if in == libName {
			found = true
		}
	}
	if !found {
		t.Errorf("link inputs = %v, want to include %v", linkEdge.Inputs, libName)
	}
}

func TestConfigureDiscoversUnitAndIntegrationTests(t *testing.T) {
	dir := t.TempDir()
	mainSrc := filepath.Join(dir, "src", "main.cc")
	fooSrc := filepath.Join(dir, "src", "foo.cc")
	itSrc := filepath.Join(dir, "tests", "it_test.cc")
	writeFile(t, mainSrc, "int main(){}\n")
	writeFile(t, fooSrc, "// CABIN_TEST gated checks live here\nvoid foo(){}\n")
	writeFile(t, itSrc, "int main(){ return 0; }\n")

	sources := &scanner.Sources{
		MainSource: mainSrc,
		SrcFiles:   []string{fooSrc},
		TestFiles:  []string{itSrc},
	}

	ds := fakeDepScanner{results: map[string]fakeScanResult{
		mainSrc: {objName: "main.o"},
		fooSrc:  {objName: "foo.o"},
		itSrc:   {objName: "it_test.o"},
	}}
	pre := fakePreprocessor{different: map[string]bool{fooSrc: true}}

	g := NewGraph(Config{
		ProjectDir:   dir,
		OutBasePath:  filepath.Join(dir, "cabin-out", "test"),
		PackageName:  "widget",
		LibName:      ccprobe.ArchiveName("widget"),
		ProfileName:  "test",
		DepScanner:   ds,
		Preprocessor: pre,
		Jobs:         2,
		Sources:      sources,
	})

	if err := g.Configure(); err != nil {
		t.Fatalf("Configure() error = %v", err)
	}

	var unitKinds, integrationKinds int
	for _, tt := range g.TestTargets {
		switch tt.Kind {
		case TestUnit:
			unitKinds++
		case TestIntegration:
			integrationKinds++
		}
	}
	if unitKinds != 1 {
		t.Errorf("unit test targets = %d, want 1 (only foo.cc mentions+differs on CABIN_TEST)", unitKinds)
	}
	if integrationKinds != 1 {
		t.Errorf("integration test targets = %d, want 1", integrationKinds)
	}
}
