// Package driver orchestrates one project/profile's full pipeline: resolve
// dependencies, scan sources, build the graph, plan Ninja files, and invoke
// the executor for build/test/run, plus the clean subcommand.
//
// Grounded line-for-line on original_source/src/Builder/Builder.cc +
// Builder.hpp: schedule()/build()/test()/run() map onto Schedule/Build/
// Test/Run below, including the dry-run-gated "Compiling" line (from
// BuildGraph::buildTargets/needsBuild) and the pass/fail/elapsed test
// summary shape.
package driver

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/cabinpm/cabin/internal/buildgraph"
	"github.com/cabinpm/cabin/internal/cabinerr"
	"github.com/cabinpm/cabin/internal/cabinlog"
	"github.com/cabinpm/cabin/internal/ccprobe"
	"github.com/cabinpm/cabin/internal/compdb"
	"github.com/cabinpm/cabin/internal/manifest"
	"github.com/cabinpm/cabin/internal/ninjaplan"
	"github.com/cabinpm/cabin/internal/resolver"
	"github.com/cabinpm/cabin/internal/scanner"
)

// Options mirrors ScheduleOptions: the knobs a caller (the root CLI
// invocation, or a path dependency building a sub-project) can set before
// Schedule runs.
type Options struct {
	IncludeDevDeps      bool
	EnableCoverage      bool
	SuppressAnalysisLog bool
	SuppressFinishLog   bool
	SuppressDepDiag     bool
	Jobs                int
}

// Driver carries one project/profile through resolve -> plan -> build/test/
// run. Create with New, call Schedule once, then any of Build/Test/Run.
type Driver struct {
	rootPath    string
	profileName string
	options     Options

	mf       *manifest.Manifest
	profile  manifest.Profile
	compiler ccprobe.Compiler
	commands ccprobe.Commands
	graph    *buildgraph.Graph
	outDir   string
}

// New creates a Driver for the project rooted at rootPath, under the named
// profile ("dev", "release", or "test").
func New(rootPath, profileName string, options Options) *Driver {
	return &Driver{rootPath: rootPath, profileName: profileName, options: options}
}

// OutDir returns the profile's build output directory. Valid after Schedule.
func (d *Driver) OutDir() string { return d.outDir }

// Graph returns the configured build graph. Valid after Schedule.
func (d *Driver) Graph() *buildgraph.Graph { return d.graph }

// Schedule loads the manifest, resolves the profile and dependency closure,
// probes the toolchain, scans sources, configures the build graph, and (if
// stale) rewrites the Ninja plan files, then regenerates the combined
// compilation database. It must be called before Build/Test/Run.
func (d *Driver) Schedule(ctx context.Context) error {
	mf, err := manifest.Load(filepath.Join(d.rootPath, manifest.ManifestFileName))
	if err != nil {
		return err
	}
	d.mf = mf

	profile, err := manifest.ResolveProfile(mf, d.profileName)
	if err != nil {
		return err
	}
	d.profile = profile

	compiler, err := ccprobe.Probe(profile.Lto)
	if err != nil {
		return err
	}
	d.compiler = compiler

	if !d.options.SuppressDepDiag {
		cabinlog.Debugf("resolve", "resolving dependency closure for %s", mf.Package.Name)
	}
	res := resolver.New(d)
	opts, err := res.Resolve(ctx, mf, d.profileName, d.options.IncludeDevDeps)
	if err != nil {
		return err
	}
	if d.options.EnableCoverage {
		opts.CFlags.Others = append(opts.CFlags.Others, "--coverage")
		opts.LdFlags.Others = append(opts.LdFlags.Others, "--coverage")
	}
	d.commands = ccprobe.Commands{Compiler: compiler, Opts: opts}

	if !d.options.SuppressAnalysisLog {
		cabinlog.Info("Analyzing", "project dependencies...")
	}

	sources, err := scanner.ScanProject(d.rootPath, scanner.Options{})
	if err != nil {
		return err
	}

	outBasePath := filepath.Join(d.rootPath, "cabin-out", d.profileName)
	d.outDir = outBasePath

	graph := buildgraph.NewGraph(buildgraph.Config{
		ProjectDir:   d.rootPath,
		OutBasePath:  outBasePath,
		PackageName:  mf.Package.Name,
		LibName:      ccprobe.ArchiveName(mf.Package.Name),
		ProfileName:  d.profileName,
		DepScanner:   buildgraph.NewDepScanner(d.commands),
		Preprocessor: d.commands,
		Jobs:         jobsOrDefault(d.options.Jobs),
		Sources:      sources,
	})
	if err := graph.Configure(); err != nil {
		return err
	}
	d.graph = graph

	manifestPath := filepath.Join(d.rootPath, manifest.ManifestFileName)
	stale := ninjaplan.NeedsRegenerate(outBasePath, latestWatchedMtime(d.rootPath, manifestPath))
	cabinlog.Debugf("plan", "build.ninja is %sup to date", ifElse(stale, "NOT ", ""))
	if stale {
		plan := ninjaplan.FromGraph(outBasePath, graph)
		if err := plan.WriteFiles(d.toolchain()); err != nil {
			return err
		}
	}

	if err := compdb.Generate(ctx, outBasePath, jobsOrDefault(d.options.Jobs)); err != nil {
		return err
	}
	return nil
}

func (d *Driver) ensureScheduled() error {
	if d.graph == nil {
		return &cabinerr.PlanInvariantError{Msg: "driver.Schedule() must be called first"}
	}
	return nil
}

// Build builds the library target (if any), then the binary target (if
// any), logging "Compiling" only when the executor's dry run reports real
// work, and "Finished" with the elapsed wall-clock time on success.
func (d *Driver) Build(ctx context.Context) error {
	if err := d.ensureScheduled(); err != nil {
		return err
	}
	start := time.Now()

	if d.graph.HasLibraryTarget {
		if err := d.buildTargets(ctx, []string{d.graph.LibName}, fmt.Sprintf("%s(lib)", d.mf.Package.Name)); err != nil {
			return err
		}
	}
	if d.graph.HasBinaryTarget {
		if err := d.buildTargets(ctx, []string{d.graph.PackageName}, d.mf.Package.Name); err != nil {
			return err
		}
	}

	if !d.options.SuppressFinishLog {
		cabinlog.Info("Finished", "`%s` profile [%s] target(s) in %.2fs", d.profileName, profileLabel(d.profile), time.Since(start).Seconds())
	}
	return nil
}

// Test builds the library and every discovered test binary in one executor
// invocation, then runs each test binary sequentially in lexicographic
// target order (the order Configure already sorted TestTargets into),
// optionally skipping any target whose NinjaTarget doesn't contain filter.
func (d *Driver) Test(ctx context.Context, filter string) error {
	if err := d.ensureScheduled(); err != nil {
		return err
	}
	start := time.Now()

	targets := d.graph.TestTargets
	if len(targets) == 0 {
		cabinlog.Warn("No test targets found")
		return nil
	}

	names := make([]string, 0, len(targets)+1)
	if d.graph.HasLibraryTarget {
		names = append(names, d.graph.LibName)
	}
	for _, t := range targets {
		names = append(names, t.NinjaTarget)
	}
	if err := d.buildTargets(ctx, names, fmt.Sprintf("%s(test)", d.mf.Package.Name)); err != nil {
		return err
	}

	if !d.options.SuppressFinishLog {
		cabinlog.Info("Finished", "`%s` profile [%s] target(s) in %.2fs", d.profileName, profileLabel(d.profile), time.Since(start).Seconds())
	}

	runStart := time.Now()
	var passed, failed, filteredOut int
	var firstFailure error

	for _, t := range targets {
		if filter != "" && !strings.Contains(t.NinjaTarget, filter) {
			filteredOut++
			continue
		}

		binPath := filepath.Join(d.outDir, t.NinjaTarget)
		relBin, err := filepath.Rel(filepath.Dir(filepath.Join(d.rootPath, manifest.ManifestFileName)), binPath)
		if err != nil {
			relBin = binPath
		}
		cabinlog.Info("Running", "%s test %s (%s)", t.Kind, t.SourcePath, relBin)

		if _, err := runTestBinary(ctx, binPath); err != nil {
			failed++
			if firstFailure == nil {
				firstFailure = err
			}
		} else {
			passed++
		}
	}

	elapsed := time.Since(runStart).Seconds()
	summary := fmt.Sprintf("%d passed; %d failed; %d filtered out; finished in %.2fs", passed, failed, filteredOut, elapsed)
	if failed > 0 {
		return &cabinerr.ExecutorError{Msg: summary, Err: firstFailure}
	}
	cabinlog.Info("Ok", "%s", summary)
	return nil
}

// Run builds the project, then execs the binary target with args, returning
// its exit code.
func (d *Driver) Run(ctx context.Context, args []string) (int, error) {
	if err := d.Build(ctx); err != nil {
		return 1, err
	}

	binPath := filepath.Join(d.outDir, d.mf.Package.Name)
	relOutDir, err := filepath.Rel(d.rootPath, d.outDir)
	if err != nil {
		relOutDir = d.outDir
	}
	cabinlog.Info("Running", "`%s/%s`", relOutDir, d.mf.Package.Name)

	return runBinary(ctx, binPath, args)
}

// BuildLibrary implements resolver.PathBuilder: it schedules and builds a
// path dependency's sub-project under profileName, with its own analysis
// and finish logs suppressed, returning the produced archive (empty if the
// sub-project has no library target) and the include directory to add.
func (d *Driver) BuildLibrary(dir, profileName string) (archive, includeDir string, err error) {
	sub := New(dir, profileName, Options{
		SuppressAnalysisLog: true,
		SuppressFinishLog:   true,
		SuppressDepDiag:     true,
		Jobs:                d.options.Jobs,
	})
	ctx := context.Background()
	if err := sub.Schedule(ctx); err != nil {
		return "", "", err
	}

	includeDir = filepath.Join(dir, "include")
	if !dirExists(includeDir) {
		includeDir = dir
	}

	if !sub.graph.HasLibraryTarget {
		return "", includeDir, nil
	}
	if err := sub.buildTargets(ctx, []string{sub.graph.LibName}, fmt.Sprintf("%s(lib)", sub.mf.Package.Name)); err != nil {
		return "", "", err
	}
	return filepath.Join(sub.outDir, sub.graph.LibName), includeDir, nil
}

// Clean removes cabin-out/ (profileName == "") or just cabin-out/<profileName>
// beneath rootPath, per the §4.8A clean semantics.
func Clean(rootPath, profileName string) error {
	outRoot := filepath.Join(rootPath, "cabin-out")
	target := outRoot
	if profileName != "" {
		target = filepath.Join(outRoot, profileName)
	}
	if err := os.RemoveAll(target); err != nil {
		return &cabinerr.IOError{Msg: fmt.Sprintf("removing %s", target), Err: err}
	}
	return nil
}

// buildTargets invokes the executor over targets, first dry-running to
// decide whether a "Compiling" line is warranted (grounded on
// BuildGraph::buildTargets/needsBuild: the log only fires when the dry run
// reports real work, i.e. its stdout does NOT contain "ninja: no work to
// do.").
func (d *Driver) buildTargets(ctx context.Context, targets []string, displayName string) error {
	needsBuild, err := d.needsBuild(ctx, targets)
	if err != nil {
		return err
	}
	if needsBuild {
		cabinlog.Info("Compiling", "%s v%s (%s)", displayName, d.mf.Package.Version, d.rootPath)
	}

	if err := runNinjaBuild(ctx, d.outDir, jobsOrDefault(d.options.Jobs), targets); err != nil {
		return &cabinerr.ExecutorError{Msg: fmt.Sprintf("building %s", strings.Join(targets, " ")), Err: err}
	}
	return nil
}

func (d *Driver) needsBuild(ctx context.Context, targets []string) (bool, error) {
	stdout, err := runNinjaDryRun(ctx, d.outDir, targets)
	if err != nil {
		// A failed dry run can't tell us there's no work to do, so fall
		// through to a real build attempt that will surface the error.
		return true, nil
	}
	return !strings.Contains(stdout, "ninja: no work to do."), nil
}

// runNinjaDryRun, runNinjaBuild, runTestBinary, and runBinary are
// package-level so tests can substitute fakes without a real toolchain or
// compiled binaries, the same seam compdb.fetchFragment uses.
var (
	runNinjaDryRun = defaultNinjaDryRun
	runNinjaBuild  = defaultNinjaBuild
	runTestBinary  = defaultRunTestBinary
	runBinary      = defaultRunBinary
)

func defaultNinjaDryRun(ctx context.Context, outDir string, targets []string) (string, error) {
	args := append([]string{"-C", outDir, "-n"}, targets...)
	cmd := exec.CommandContext(ctx, "ninja", args...)
	var stdout bytes.Buffer
	cmd.Stdout = &stdout
	err := cmd.Run()
	return stdout.String(), err
}

func defaultNinjaBuild(ctx context.Context, outDir string, jobs int, targets []string) error {
	args := append([]string{"-C", outDir, fmt.Sprintf("-j%d", jobs)}, targets...)
	cmd := exec.CommandContext(ctx, "ninja", args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

func defaultRunTestBinary(ctx context.Context, binPath string) (int, error) {
	cmd := exec.CommandContext(ctx, binPath)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	err := cmd.Run()
	return exitCodeOf(err), err
}

func defaultRunBinary(ctx context.Context, binPath string, args []string) (int, error) {
	cmd := exec.CommandContext(ctx, binPath, args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Stdin = os.Stdin
	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return exitErr.ExitCode(), nil
		}
		return 1, &cabinerr.ExecutorError{Msg: "run " + binPath, Err: err}
	}
	return 0, nil
}

func exitCodeOf(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return 1
}

// toolchain renders the profile's scalar knobs (edition, debug, opt-level,
// lto) and the resolved dependency closure's CompilerOpts into the Ninja
// config.ninja variable set.
func (d *Driver) toolchain() ninjaplan.Toolchain {
	cxxFlags := append(profileCompileFlags(d.mf.Package.Edition, d.profile), d.commands.Opts.CFlags.Others...)
	ldFlags := append(profileLinkFlags(d.profile), d.commands.Opts.LdFlags.Others...)
	libs := append(append([]string{}, d.commands.Opts.LdFlags.RenderLibDirs()...), d.commands.Opts.LdFlags.RenderLibs()...)

	return ninjaplan.Toolchain{
		Cxx:      d.compiler.Cxx,
		CxxFlags: strings.Join(cxxFlags, " "),
		Defines:  strings.Join(d.commands.Opts.CFlags.RenderMacros(), " "),
		Includes: strings.Join(d.commands.Opts.CFlags.RenderIncludes(), " "),
		LdFlags:  strings.Join(ldFlags, " "),
		Libs:     strings.Join(libs, " "),
		Archiver: d.compiler.Archiver,
	}
}

// profileCompileFlags renders a profile's scalar fields into compiler flags:
// the edition's -std=c++NN, -g when debug, -O<level>, -flto when enabled,
// then the profile's own free-form cxxflags.
func profileCompileFlags(edition manifest.Edition, p manifest.Profile) []string {
	flags := []string{"-std=c++" + string(edition)}
	if p.Debug {
		flags = append(flags, "-g")
	}
	flags = append(flags, fmt.Sprintf("-O%d", p.OptLevel))
	if p.Lto {
		flags = append(flags, "-flto")
	}
	return append(flags, p.CxxFlags...)
}

func profileLinkFlags(p manifest.Profile) []string {
	var flags []string
	if p.Lto {
		flags = append(flags, "-flto")
	}
	return append(flags, p.LdFlags...)
}

func profileLabel(p manifest.Profile) string {
	return fmt.Sprintf("+debug=%v,opt=%d", p.Debug, p.OptLevel)
}

// latestWatchedMtime mirrors BuildGraph::isUpToDate's "newer than
// configTime" comparison: the max mtime across the project's src/, lib/,
// include/ trees (each optional) and the manifest file itself.
func latestWatchedMtime(rootPath, manifestPath string) time.Time {
	var latest time.Time
	update := func(t time.Time) {
		if t.After(latest) {
			latest = t
		}
	}

	if info, err := os.Stat(manifestPath); err == nil {
		update(info.ModTime())
	}

	for _, sub := range []string{"src", "lib", "include"} {
		dir := filepath.Join(rootPath, sub)
		_ = filepath.WalkDir(dir, func(path string, entry fs.DirEntry, err error) error {
			if err != nil || entry.IsDir() {
				return nil
			}
			if info, err := entry.Info(); err == nil {
				update(info.ModTime())
			}
			return nil
		})
	}
	return latest
}

func jobsOrDefault(jobs int) int {
	if jobs > 0 {
		return jobs
	}
	return runtime.NumCPU()
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

func ifElse(cond bool, a, b string) string {
	if cond {
		return a
	}
	return b
}
