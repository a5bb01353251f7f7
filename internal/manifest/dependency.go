package manifest

import (
	"fmt"
	"sort"

	"github.com/cabinpm/cabin/internal/cabinerr"
)

// Dependency is the tagged-variant sum type described in spec.md §9: a
// dependency is exactly one of Git, Path, or System. The idiomatic Go
// analogue of a native tagged union is an unexported marker method plus a
// type switch at call sites.
type Dependency interface {
	depName() string
	isDependency()
}

// GitDependency clones a remote repository, optionally pinned to a rev, tag,
// or branch.
type GitDependency struct {
	Name   string
	URL    string
	Target string // rev, tag, or branch; empty means "default branch HEAD"
}

func (d GitDependency) depName() string { return d.Name }
func (GitDependency) isDependency()     {}

// PathDependency refers to another fully-formed package by relative path.
type PathDependency struct {
	Name string
	Path string
}

func (d PathDependency) depName() string { return d.Name }
func (PathDependency) isDependency()     {}

// SystemDependency is resolved via pkg-config.
type SystemDependency struct {
	Name       string
	VersionReq string
}

func (d SystemDependency) depName() string { return d.Name }
func (SystemDependency) isDependency()     {}

// Name returns the dependency's declared name regardless of its variant.
func Name(d Dependency) string { return d.depName() }

// parseDependencies converts a RawDep map into validated Dependency values,
// ordered per spec.md §5 ("dependency installation is performed in manifest
// declaration order"). order is the declaration order recovered from the
// source text by declarationOrder; any name in raw that order doesn't
// mention sorts after every name order does, alphabetically, as a
// deterministic fallback rather than Go's unspecified map iteration order.
func parseDependencies(raw map[string]RawDep, order []string) ([]Dependency, error) {
	names := orderedNames(raw, order)

	deps := make([]Dependency, 0, len(raw))
	for _, name := range names {
		r := raw[name]
		if err := ValidateDependencyName(name); err != nil {
			return nil, wrapManifestErr(fmt.Sprintf("[dependencies.%s]", name), err)
		}
		dep, err := classifyDependency(name, r)
		if err != nil {
			return nil, wrapManifestErr(fmt.Sprintf("[dependencies.%s]", name), err)
		}
		deps = append(deps, dep)
	}
	return deps, nil
}

// orderedNames returns raw's keys ordered by their position in order, with
// any key order omits appended afterward in alphabetical order.
func orderedNames(raw map[string]RawDep, order []string) []string {
	seen := make(map[string]bool, len(order))
	names := make([]string, 0, len(raw))
	for _, name := range order {
		if _, ok := raw[name]; ok && !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	if len(names) == len(raw) {
		return names
	}
	rest := make([]string, 0, len(raw)-len(names))
	for name := range raw {
		if !seen[name] {
			rest = append(rest, name)
		}
	}
	sort.Strings(rest)
	return append(names, rest...)
}

// classifyDependency determines which of the three variants r describes,
// rejecting ambiguous or empty specifications.
func classifyDependency(name string, r RawDep) (Dependency, error) {
	count := 0
	if r.Git != "" {
		count++
	}
	if r.Path != "" {
		count++
	}
	if r.System {
		count++
	}
	switch {
	case count == 0:
		return nil, &cabinerr.ManifestError{Msg: fmt.Sprintf("dependency %q must specify exactly one of git, path, or system", name)}
	case count > 1:
		return nil, &cabinerr.ManifestError{Msg: fmt.Sprintf("dependency %q specifies more than one dependency kind", name)}
	}

	if r.Git != "" {
		target := r.Rev
		if target == "" {
			target = r.Tag
		}
		if target == "" {
			target = r.Branch
		}
		if countNonEmpty(r.Rev, r.Tag, r.Branch) > 1 {
			return nil, &cabinerr.ManifestError{Msg: fmt.Sprintf("dependency %q specifies more than one of rev, tag, branch", name)}
		}
		return GitDependency{Name: name, URL: r.Git, Target: target}, nil
	}
	if r.Path != "" {
		return PathDependency{Name: name, Path: r.Path}, nil
	}
	return SystemDependency{Name: name, VersionReq: r.Version}, nil
}

func countNonEmpty(vals ...string) int {
	n := 0
	for _, v := range vals {
		if v != "" {
			n++
		}
	}
	return n
}
