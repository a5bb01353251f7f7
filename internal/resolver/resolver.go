// Package resolver walks a manifest's dependency closure depth-first, in
// manifest declaration order, fetching git/path/system dependencies and
// merging their CompilerOpts contributions while detecting identity
// conflicts across the closure.
package resolver

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/cabinpm/cabin/internal/cabinerr"
	"github.com/cabinpm/cabin/internal/ccprobe"
	"github.com/cabinpm/cabin/internal/env"
	"github.com/cabinpm/cabin/internal/manifest"
	"github.com/cabinpm/cabin/internal/module"
	"github.com/cabinpm/cabin/internal/vcsgit"
)

// PathBuilder recursively builds a path dependency's sub-project so the
// resolver can find out whether it produced a library archive to link
// against. The driver implements this (it owns the full build pipeline);
// resolver only depends on the interface to avoid an import cycle.
type PathBuilder interface {
	// BuildLibrary builds the sub-project rooted at dir under the named
	// profile, with its own analysis/finish logging suppressed. archive is
	// empty if the sub-project produced no library (e.g. header-only).
	BuildLibrary(dir, profileName string) (archive string, includeDir string, err error)
}

// Git is the subset of *vcsgit.Git the resolver needs; satisfied by
// *vcsgit.Git, substitutable in tests.
type Git interface {
	Sync(ctx context.Context, remote, target, dir string) error
}

// Resolver walks a manifest's dependency closure.
type Resolver struct {
	Git         Git
	PathBuilder PathBuilder
	PkgConfig   string // defaults to "pkg-config"
}

// New creates a Resolver with the default git fetcher.
func New(pathBuilder PathBuilder) *Resolver {
	return &Resolver{Git: vcsgit.New(), PathBuilder: pathBuilder, PkgConfig: "pkg-config"}
}

// Resolve walks root's dependency closure, returning the merged
// CompilerOpts contribution of the whole closure. includeDevDeps also walks
// root's (and only root's — never a path dependency's) dev-dependencies.
func (r *Resolver) Resolve(ctx context.Context, root *manifest.Manifest, profileName string, includeDevDeps bool) (ccprobe.CompilerOpts, error) {
	seen := make(map[string]module.DepKey)
	var merged ccprobe.CompilerOpts

	deps, err := root.ParsedDependencies()
	if err != nil {
		return merged, err
	}
	merged, err = r.walk(ctx, root.Dir, deps, profileName, seen, merged)
	if err != nil {
		return merged, err
	}

	if !includeDevDeps {
		return merged, nil
	}

	devDeps, err := root.ParsedDevDependencies()
	if err != nil {
		return merged, err
	}
	merged, err = r.walk(ctx, root.Dir, devDeps, profileName, seen, merged)
	if err != nil {
		return merged, err
	}
	return merged, nil
}

func (r *Resolver) walk(ctx context.Context, manifestDir string, deps []manifest.Dependency, profileName string, seen map[string]module.DepKey, acc ccprobe.CompilerOpts) (ccprobe.CompilerOpts, error) {
	for _, dep := range deps {
		name := manifest.Name(dep)
		key, opts, err := r.resolveOne(ctx, manifestDir, dep, profileName)
		if err != nil {
			return acc, err
		}
		if prior, ok := seen[name]; ok && prior != key {
			return acc, &cabinerr.ResolveError{Msg: fmt.Sprintf("dependency %s conflicts across manifests", name)}
		}
		seen[name] = key

		acc = ccprobe.Merge(acc, opts)

		if pd, ok := dep.(manifest.PathDependency); ok {
			subDir := filepath.Join(manifestDir, pd.Path)
			subManifest, err := manifest.Load(filepath.Join(subDir, manifest.ManifestFileName))
			if err != nil {
				return acc, err
			}
			subDeps, err := subManifest.ParsedDependencies()
			if err != nil {
				return acc, err
			}
			acc, err = r.walk(ctx, subDir, subDeps, profileName, seen, acc)
			if err != nil {
				return acc, err
			}
		}
	}
	return acc, nil
}

func (r *Resolver) resolveOne(ctx context.Context, manifestDir string, dep manifest.Dependency, profileName string) (module.DepKey, ccprobe.CompilerOpts, error) {
	switch d := dep.(type) {
	case manifest.GitDependency:
		return r.resolveGit(ctx, d)
	case manifest.PathDependency:
		return r.resolvePath(manifestDir, d, profileName)
	case manifest.SystemDependency:
		return r.resolveSystem(ctx, d)
	default:
		return module.DepKey{}, ccprobe.CompilerOpts{}, &cabinerr.ResolveError{Msg: fmt.Sprintf("unknown dependency variant for %s", manifest.Name(dep))}
	}
}

func (r *Resolver) resolveGit(ctx context.Context, d manifest.GitDependency) (module.DepKey, ccprobe.CompilerOpts, error) {
	key := module.GitKey(d.URL, d.Target)
	cacheKey := filepath.Join(vcsgit.EscapeURL(d.URL), orDefault(d.Target, "HEAD"))
	dir, err := env.GitCacheDir(cacheKey)
	if err != nil {
		return key, ccprobe.CompilerOpts{}, &cabinerr.ResolveError{Msg: "resolving git cache dir", Err: err}
	}
	if err := r.Git.Sync(ctx, d.URL, d.Target, dir); err != nil {
		return key, ccprobe.CompilerOpts{}, &cabinerr.ResolveError{Msg: fmt.Sprintf("syncing %s", d.Name), Err: err}
	}

	includeDir := filepath.Join(dir, "include")
	if !dirExists(includeDir) {
		includeDir = dir
	}
	opts := ccprobe.CompilerOpts{CFlags: ccprobe.CFlags{Dirs: []ccprobe.IncludeDir{{Path: includeDir, IsSystem: true}}}}
	return key, opts, nil
}

func (r *Resolver) resolvePath(manifestDir string, d manifest.PathDependency, profileName string) (module.DepKey, ccprobe.CompilerOpts, error) {
	canonical, err := filepath.Abs(filepath.Join(manifestDir, d.Path))
	if err != nil {
		return module.DepKey{}, ccprobe.CompilerOpts{}, &cabinerr.ResolveError{Msg: "canonicalizing path dependency", Err: err}
	}
	key := module.PathKey(canonical)

	if _, err := manifest.Load(filepath.Join(canonical, manifest.ManifestFileName)); err != nil {
		return key, ccprobe.CompilerOpts{}, &cabinerr.ResolveError{Msg: fmt.Sprintf("path dependency %s has no cabin.toml at %s", d.Name, canonical), Err: err}
	}

	opts := ccprobe.CompilerOpts{CFlags: ccprobe.CFlags{Dirs: []ccprobe.IncludeDir{{Path: canonical, IsSystem: true}}}}
	if includeDir := filepath.Join(canonical, "include"); dirExists(includeDir) {
		opts.CFlags.Dirs[0].Path = includeDir
	}

	if r.PathBuilder == nil {
		return key, opts, nil
	}
	archive, includeDir, err := r.PathBuilder.BuildLibrary(canonical, profileName)
	if err != nil {
		return key, opts, &cabinerr.ResolveError{Msg: fmt.Sprintf("building path dependency %s", d.Name), Err: err}
	}
	if includeDir != "" {
		opts.CFlags.Dirs[0].Path = includeDir
	}
	if archive != "" {
		libName := strings.TrimSuffix(filepath.Base(archive), ".a")
		libName = strings.TrimPrefix(libName, "lib")
		opts.LdFlags.LibDirs = append([]string{filepath.Dir(archive)}, opts.LdFlags.LibDirs...)
		opts.LdFlags.Libs = append([]string{libName}, opts.LdFlags.Libs...)
	}
	return key, opts, nil
}

func (r *Resolver) resolveSystem(ctx context.Context, d manifest.SystemDependency) (module.DepKey, ccprobe.CompilerOpts, error) {
	key := module.SystemKey(d.VersionReq)
	pkgConfig := r.PkgConfig
	if pkgConfig == "" {
		pkgConfig = "pkg-config"
	}

	cflagsArgs := []string{"--cflags", d.Name}
	ldflagsArgs := []string{"--libs", d.Name}
	if d.VersionReq != "" {
		versionArg := fmt.Sprintf("%s >= %s", d.Name, d.VersionReq)
		cflagsArgs = []string{"--cflags", versionArg}
		ldflagsArgs = []string{"--libs", versionArg}
	}

	cflagsOut, err := exec.CommandContext(ctx, pkgConfig, cflagsArgs...).Output()
	if err != nil {
		return key, ccprobe.CompilerOpts{}, &cabinerr.ResolveError{Msg: fmt.Sprintf("pkg-config --cflags %s", d.Name), Err: err}
	}
	ldflagsOut, err := exec.CommandContext(ctx, pkgConfig, ldflagsArgs...).Output()
	if err != nil {
		return key, ccprobe.CompilerOpts{}, &cabinerr.ResolveError{Msg: fmt.Sprintf("pkg-config --libs %s", d.Name), Err: err}
	}

	opts := parsePkgConfigOutput(string(cflagsOut), string(ldflagsOut))
	return key, opts, nil
}

// parsePkgConfigOutput splits pkg-config's whitespace-delimited flag output
// into macros/includes (from --cflags) and libdirs/libs/others (from --libs).
func parsePkgConfigOutput(cflags, ldflags string) ccprobe.CompilerOpts {
	var opts ccprobe.CompilerOpts
	for _, tok := range strings.Fields(cflags) {
		switch {
		case strings.HasPrefix(tok, "-I"):
			opts.CFlags.Dirs = append(opts.CFlags.Dirs, ccprobe.IncludeDir{Path: strings.TrimPrefix(tok, "-I"), IsSystem: true})
		case strings.HasPrefix(tok, "-D"):
			opts.CFlags.Macros = append(opts.CFlags.Macros, strings.TrimPrefix(tok, "-D"))
		default:
			opts.CFlags.Others = append(opts.CFlags.Others, tok)
		}
	}
	for _, tok := range strings.Fields(ldflags) {
		switch {
		case strings.HasPrefix(tok, "-L"):
			opts.LdFlags.LibDirs = append(opts.LdFlags.LibDirs, strings.TrimPrefix(tok, "-L"))
		case strings.HasPrefix(tok, "-l"):
			opts.LdFlags.Libs = append(opts.LdFlags.Libs, strings.TrimPrefix(tok, "-l"))
		default:
			opts.LdFlags.Others = append(opts.LdFlags.Others, tok)
		}
	}
	return opts
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
