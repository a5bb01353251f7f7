package buildgraph

import (
	"errors"
	"fmt"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/cabinpm/cabin/internal/cabinerr"
	"github.com/cabinpm/cabin/internal/scanner"
	"github.com/cabinpm/cabin/internal/workpool"
)

// Config configures a Graph.
type Config struct {
	ProjectDir   string
	OutBasePath  string // e.g. <projectDir>/cabin-out/<profile>
	PackageName  string
	LibName      string // e.g. libfoo.a; from ccprobe.ArchiveName(PackageName)
	ProfileName  string // "dev", "release", or "test"
	DepScanner   DepScanner
	Preprocessor scanner.Preprocessor
	Jobs         int
	Sources      *scanner.Sources
}

// Graph is the compiled build graph for one project, one profile.
type Graph struct {
	projectDir   string
	outBasePath  string
	buildOutPath string
	integTestOut string

	PackageName string
	LibName     string
	ProfileName string

	depScanner   DepScanner
	preprocessor scanner.Preprocessor
	jobs         int
	sources      *scanner.Sources

	HasBinaryTarget bool
	HasLibraryTarget bool

	CompileUnits map[string]*CompileUnit
	TestTargets  []TestTarget
	Edges        []Edge
	DefaultTargets []string

	srcObjectTargets map[string]bool
	libObjTargets    map[string]bool

	mu sync.Mutex
}

// NewGraph creates a Graph ready for Configure.
func NewGraph(cfg Config) *Graph {
	jobs := cfg.Jobs
	if jobs < 1 {
		jobs = 1
	}
	return &Graph{
		projectDir:   cfg.ProjectDir,
		outBasePath:  cfg.OutBasePath,
		buildOutPath: filepath.Join(cfg.OutBasePath, "obj"),
		integTestOut: filepath.Join(cfg.OutBasePath, "intg"),
		PackageName:  cfg.PackageName,
		LibName:      cfg.LibName,
		ProfileName:  cfg.ProfileName,
		depScanner:   cfg.DepScanner,
		preprocessor: cfg.Preprocessor,
		jobs:         jobs,
		sources:      cfg.Sources,
		CompileUnits: make(map[string]*CompileUnit),
	}
}

func (g *Graph) srcDir() string     { return filepath.Join(g.projectDir, "src") }
func (g *Graph) libDir() string     { return filepath.Join(g.projectDir, "lib") }
func (g *Graph) includeDir() string { return filepath.Join(g.projectDir, "include") }
func (g *Graph) testsDir() string   { return filepath.Join(g.projectDir, "tests") }

// Configure runs the full scan/compile-unit/link-closure/test-discovery
// pipeline, populating CompileUnits, Edges, DefaultTargets, and TestTargets.
func (g *Graph) Configure() error {
	g.CompileUnits = make(map[string]*CompileUnit)
	g.Edges = nil
	g.DefaultTargets = nil
	g.TestTargets = nil

	s := g.sources
	g.HasBinaryTarget = s.MainSource != ""
	g.HasLibraryTarget = len(s.LibFiles) > 0

	var mainObjTarget string
	var err error
	if g.HasBinaryTarget {
		mainObjTarget, err = g.processSrc(s.MainSource, sourceRoot{directory: g.srcDir()})
		if err != nil {
			return err
		}
	}

	srcObjTargets, err := g.processSources(s.SrcFiles, sourceRoot{directory: g.srcDir()})
	if err != nil {
		return err
	}
	g.srcObjectTargets = srcObjTargets

	libObjTargets := map[string]bool{}
	if g.HasLibraryTarget {
		libObjTargets, err = g.processSources(s.LibFiles, sourceRoot{directory: g.libDir(), objectSubdir: "lib"})
		if err != nil {
			return err
		}
	}
	g.libObjTargets = libObjTargets

	buildObjTargets := map[string]bool{}
	for k := range srcObjTargets {
		buildObjTargets[k] = true
	}
	for k := range libObjTargets {
		buildObjTargets[k] = true
	}
	if g.HasBinaryTarget {
		buildObjTargets[mainObjTarget] = true
	}

	if g.HasBinaryTarget {
		if err := g.addBinaryLinkEdge(mainObjTarget, buildObjTargets, libObjTargets); err != nil {
			return err
		}
	}

	if g.HasLibraryTarget {
		if err := g.addArchiveEdge(libObjTargets); err != nil {
			return err
		}
	}

	if g.ProfileName == "test" {
		if err := g.discoverTests(s, mainObjTarget); err != nil {
			return err
		}
	}

	return nil
}

func (g *Graph) addBinaryLinkEdge(mainObjTarget string, buildObjTargets, libObjTargets map[string]bool) error {
	mainCU, ok := g.CompileUnits[mainObjTarget]
	if !ok {
		return &cabinerr.PlanInvariantError{Msg: fmt.Sprintf("missing compile unit for %s", mainObjTarget)}
	}

	deps := map[string]bool{mainObjTarget: true}
	g.collectBinDepObjs(deps, "", mainCU.Dependencies, buildObjTargets)

	var inputs []string
	if g.HasLibraryTarget {
		delete(deps, mainObjTarget)
		var srcInputs []string
		for d := range deps {
			if !libObjTargets[d] {
				srcInputs = append(srcInputs, d)
			}
		}
		sort.Strings(srcInputs)
		inputs = append([]string{mainObjTarget}, srcInputs...)
		inputs = append(inputs, g.LibName)
	} else {
		inputs = sortedKeys(deps)
	}

	g.Edges = append(g.Edges, Edge{
		Outputs:  []string{g.PackageName},
		Rule:     "cxx_link_exe",
		Inputs:   inputs,
		Bindings: [][2]string{{"out_dir", parentDirOrDot(g.PackageName)}},
	})
	g.DefaultTargets = append(g.DefaultTargets, g.PackageName)
	return nil
}

func (g *Graph) addArchiveEdge(libObjTargets map[string]bool) error {
	libInputs := sortedKeys(libObjTargets)
	if len(libInputs) == 0 {
		return &cabinerr.PlanInvariantError{Msg: "expected objects for library target"}
	}
	g.Edges = append(g.Edges, Edge{
		Outputs:  []string{g.LibName},
		Rule:     "cxx_link_static_lib",
		Inputs:   libInputs,
		Bindings: [][2]string{{"out_dir", parentDirOrDot(g.LibName)}},
	})
	g.DefaultTargets = append(g.DefaultTargets, g.LibName)
	return nil
}

func (g *Graph) discoverTests(s *scanner.Sources, mainObjTarget string) error {
	var discovered []TestTarget

	allSrc := append([]string{}, s.SrcFiles...)
	if g.HasBinaryTarget {
		allSrc = append([]string{s.MainSource}, allSrc...)
	}
	for _, p := range allSrc {
		t, err := g.processUnittestSrc(p)
		if err != nil {
			return err
		}
		if t != nil {
			discovered = append(discovered, *t)
		}
	}
	for _, p := range s.LibFiles {
		t, err := g.processUnittestSrc(p)
		if err != nil {
			return err
		}
		if t != nil {
			discovered = append(discovered, *t)
		}
	}
	for _, p := range s.TestFiles {
		t, err := g.processIntegrationTestSrc(p)
		if err != nil {
			return err
		}
		if t != nil {
			discovered = append(discovered, *t)
		}
	}

	sort.Slice(discovered, func(i, j int) bool { return discovered[i].NinjaTarget < discovered[j].NinjaTarget })
	g.TestTargets = discovered
	return nil
}

// processSources scans and registers paths under root, in parallel, and
// returns the set of resulting build-object targets.
func (g *Graph) processSources(paths []string, root sourceRoot) (map[string]bool, error) {
	result := make(map[string]bool, len(paths))
	var resMu sync.Mutex

	errs := workpool.ForEach(paths, g.jobs, func(p string) error {
		objTarget, err := g.processSrc(p, root)
		if err != nil {
			return err
		}
		resMu.Lock()
		result[objTarget] = true
		resMu.Unlock()
		return nil
	})
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return result, nil
}

// processSrc scans one TU and registers its compile unit, returning its
// build-object target (a Ninja-relative path using "/" separators).
func (g *Graph) processSrc(sourcePath string, root sourceRoot) (string, error) {
	objName, deps, err := g.depScanner.Scan(sourcePath, false)
	if err != nil {
		return "", err
	}

	targetBaseDir, err := filepath.Rel(root.directory, filepath.Dir(sourcePath))
	if err != nil {
		return "", &cabinerr.ScanError{Msg: fmt.Sprintf("computing relative path for %s", sourcePath), Err: err}
	}
	if targetBaseDir == ".." || strings.HasPrefix(targetBaseDir, ".."+string(filepath.Separator)) {
		return "", &cabinerr.ScanError{Msg: fmt.Sprintf("source file %q must reside under %q", sourcePath, root.directory)}
	}

	buildTargetBaseDir := g.buildOutPath
	if root.objectSubdir != "" {
		buildTargetBaseDir = filepath.Join(buildTargetBaseDir, root.objectSubdir)
	}
	if targetBaseDir != "." {
		buildTargetBaseDir = filepath.Join(buildTargetBaseDir, targetBaseDir)
	}

	objOutput := filepath.Join(buildTargetBaseDir, objName)
	buildObjTarget, err := relSlash(g.outBasePath, objOutput)
	if err != nil {
		return "", &cabinerr.ScanError{Msg: fmt.Sprintf("computing object target for %s", sourcePath), Err: err}
	}

	g.registerCompileUnit(buildObjTarget, sourcePath, deps, false)
	return buildObjTarget, nil
}

func (g *Graph) registerCompileUnit(objTarget, source string, deps []string, isTest bool) {
	depsSet := make(map[string]bool, len(deps))
	for _, d := range deps {
		depsSet[d] = true
	}

	extraFlags := ""
	if isTest {
		extraFlags = "-DCABIN_TEST"
	}
	edge := Edge{
		Outputs:        []string{objTarget},
		Rule:           "cxx_compile",
		Inputs:         []string{source},
		ImplicitInputs: sortedKeys(depsSet),
		Bindings:       [][2]string{{"out_dir", parentDirOrDot(objTarget)}, {"extra_flags", extraFlags}},
	}

	g.mu.Lock()
	g.CompileUnits[objTarget] = &CompileUnit{Source: source, Dependencies: depsSet, IsTest: isTest}
	g.Edges = append(g.Edges, edge)
	g.mu.Unlock()
}

// mapHeaderToObj computes the object target a same-stemmed source file
// under src/, include/, or lib/ would have produced, without requiring that
// object to actually have been registered — the caller checks membership in
// its own build-object-target set.
func (g *Graph) mapHeaderToObj(headerPath string) string {
	tryMap := func(rootDir, prefix string) (string, bool) {
		rel, err := filepath.Rel(rootDir, filepath.Dir(headerPath))
		if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return "", false
		}
		objPath := "obj"
		if prefix != "" {
			objPath = filepath.Join(objPath, prefix)
		}
		if rel != "." {
			objPath = filepath.Join(objPath, rel)
		}
		stem := strings.TrimSuffix(filepath.Base(headerPath), filepath.Ext(headerPath))
		objPath = filepath.Join(objPath, stem+".o")
		return filepath.ToSlash(objPath), true
	}

	if o, ok := tryMap(g.srcDir(), ""); ok {
		return o
	}
	if o, ok := tryMap(g.includeDir(), "lib"); ok {
		return o
	}
	if o, ok := tryMap(g.libDir(), "lib"); ok {
		return o
	}
	stem := strings.TrimSuffix(filepath.Base(headerPath), filepath.Ext(headerPath))
	return path.Join("obj", stem+".o")
}

// collectBinDepObjs walks objTargetDeps (a TU's scanned header set),
// pulling in the objects of any header that maps to an object already
// present in buildObjTargets — i.e. a header whose same-named source file
// was itself compiled, and so must be linked in too. Traversal uses an
// explicit worklist of pending dependency sets rather than recursing into
// collectBinDepObjs itself, so a pathologically deep header-dependency
// chain grows the worklist slice instead of the goroutine stack.
func (g *Graph) collectBinDepObjs(deps map[string]bool, sourceStem string, objTargetDeps map[string]bool, buildObjTargets map[string]bool) {
	pending := []map[string]bool{objTargetDeps}
	for len(pending) > 0 {
		n := len(pending) - 1
		current := pending[n]
		pending = pending[:n]

		for dep := range current {
			stem := strings.TrimSuffix(filepath.Base(dep), filepath.Ext(dep))
			if stem == sourceStem {
				continue
			}
			if !scanner.HeaderExts[filepath.Ext(dep)] {
				continue
			}
			objTarget := g.mapHeaderToObj(dep)
			if !buildObjTargets[objTarget] {
				continue
			}
			if deps[objTarget] {
				continue
			}
			deps[objTarget] = true

			if cu, ok := g.CompileUnits[objTarget]; ok {
				pending = append(pending, cu.Dependencies)
			}
		}
	}
}

func (g *Graph) containsTestCode(sourcePath string) (bool, error) {
	if g.preprocessor == nil {
		return false, nil
	}
	return scanner.ContainsTestCode(g.preprocessor, sourcePath)
}

func (g *Graph) processUnittestSrc(sourcePath string) (*TestTarget, error) {
	hasTest, err := g.containsTestCode(sourcePath)
	if err != nil {
		return nil, err
	}
	if !hasTest {
		return nil, nil
	}

	objName, deps, err := g.depScanner.Scan(sourcePath, true)
	if err != nil {
		return nil, err
	}

	relBase := "unit"
	isSrcUnit := false

	canonicalSource := canonicalOrClean(sourcePath)
	canonicalSrcRoot := canonicalOrClean(g.srcDir())
	canonicalLibRoot := canonicalOrClean(g.libDir())

	handled := false
	if remainder, ok := underRoot(canonicalSource, canonicalSrcRoot); ok {
		relBase = filepath.Join(relBase, "src")
		if parent := filepath.Dir(remainder); parent != "." {
			relBase = filepath.Join(relBase, parent)
		}
		handled = true
		isSrcUnit = true
	} else if remainder, ok := underRoot(canonicalSource, canonicalLibRoot); ok {
		relBase = filepath.Join(relBase, "lib")
		if parent := filepath.Dir(remainder); parent != "." {
			relBase = filepath.Join(relBase, parent)
		}
		handled = true
	}
	if !handled {
		if relRootParent, err := filepath.Rel(g.projectDir, filepath.Dir(sourcePath)); err == nil && relRootParent != "." {
			relBase = filepath.Join(relBase, relRootParent)
		}
	}

	testObjTarget := filepath.ToSlash(filepath.Join(relBase, objName))
	testBinary := filepath.ToSlash(filepath.Join(relBase, filepath.Base(sourcePath)) + ".test")

	g.registerCompileUnit(testObjTarget, sourcePath, deps, true)

	linkInputs := []string{testObjTarget}
	if isSrcUnit {
		depsSet := map[string]bool{}
		stem := strings.TrimSuffix(filepath.Base(sourcePath), filepath.Ext(sourcePath))
		depSet := make(map[string]bool, len(deps))
		for _, d := range deps {
			depSet[d] = true
		}
		g.collectBinDepObjs(depsSet, stem, depSet, g.srcObjectTargets)
		var srcDeps []string
		for d := range depsSet {
			srcDeps = append(srcDeps, d)
		}
		sort.Strings(srcDeps)
		linkInputs = append(linkInputs, srcDeps...)
	}
	if g.HasLibraryTarget {
		linkInputs = append(linkInputs, g.LibName)
	}

	g.mu.Lock()
	g.Edges = append(g.Edges, Edge{
		Outputs:  []string{testBinary},
		Rule:     "cxx_link_exe",
		Inputs:   linkInputs,
		Bindings: [][2]string{{"out_dir", parentDirOrDot(testBinary)}},
	})
	g.mu.Unlock()

	relSource, _ := filepath.Rel(g.projectDir, sourcePath)
	return &TestTarget{NinjaTarget: testBinary, SourcePath: filepath.ToSlash(relSource), Kind: TestUnit}, nil
}

func (g *Graph) processIntegrationTestSrc(sourcePath string) (*TestTarget, error) {
	objName, deps, err := g.depScanner.Scan(sourcePath, true)
	if err != nil {
		return nil, err
	}

	targetBaseDir, err := filepath.Rel(g.testsDir(), filepath.Dir(sourcePath))
	if err != nil {
		return nil, &cabinerr.ScanError{Msg: fmt.Sprintf("computing relative path for %s", sourcePath), Err: err}
	}
	testTargetBaseDir := g.integTestOut
	if targetBaseDir != "." {
		testTargetBaseDir = filepath.Join(testTargetBaseDir, targetBaseDir)
	}

	testObjOutput := filepath.Join(testTargetBaseDir, objName)
	testObjTarget, err := relSlash(g.outBasePath, testObjOutput)
	if err != nil {
		return nil, &cabinerr.ScanError{Msg: fmt.Sprintf("computing object target for %s", sourcePath), Err: err}
	}
	stem := strings.TrimSuffix(filepath.Base(sourcePath), filepath.Ext(sourcePath))
	testBinaryPath := filepath.Join(testTargetBaseDir, stem)
	testBinary, err := relSlash(g.outBasePath, testBinaryPath)
	if err != nil {
		return nil, &cabinerr.ScanError{Msg: fmt.Sprintf("computing binary target for %s", sourcePath), Err: err}
	}

	linkInputs := []string{testObjTarget}
	if g.HasLibraryTarget {
		linkInputs = append(linkInputs, g.LibName)
	}
	sort.Strings(linkInputs)

	g.registerCompileUnit(testObjTarget, sourcePath, deps, true)

	g.mu.Lock()
	g.Edges = append(g.Edges, Edge{
		Outputs:  []string{testBinary},
		Rule:     "cxx_link_exe",
		Inputs:   linkInputs,
		Bindings: [][2]string{{"out_dir", parentDirOrDot(testBinary)}},
	})
	g.mu.Unlock()

	relSource, _ := filepath.Rel(g.projectDir, sourcePath)
	return &TestTarget{NinjaTarget: testBinary, SourcePath: filepath.ToSlash(relSource), Kind: TestIntegration}, nil
}

func relSlash(base, target string) (string, error) {
	rel, err := filepath.Rel(base, target)
	if err != nil {
		return "", err
	}
	return filepath.ToSlash(rel), nil
}

func parentDirOrDot(target string) string {
	dir := path.Dir(filepath.ToSlash(target))
	if dir == "" {
		return "."
	}
	return dir
}

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// canonicalOrClean approximates fs::weakly_canonical without resolving
// symlinks: an absolute, lexically-cleaned path.
func canonicalOrClean(p string) string {
	abs, err := filepath.Abs(p)
	if err != nil {
		return filepath.Clean(p)
	}
	return abs
}

// underRoot reports whether canonicalPath lies strictly beneath root,
// returning the path relative to root.
func underRoot(canonicalPath, root string) (string, bool) {
	if root == "" || len(canonicalPath) <= len(root) || !strings.HasPrefix(canonicalPath, root) {
		return "", false
	}
	if canonicalPath[len(root)] != filepath.Separator {
		return "", false
	}
	remainder := canonicalPath[len(root)+1:]
	if remainder == "" {
		return "", false
	}
	return remainder, true
}
