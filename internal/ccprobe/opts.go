// Package ccprobe selects the system C++ compiler/archiver and builds the
// compile/scan/preprocess/link/archive command lines the build graph needs.
//
// Its fluent option-merging shape follows a chainable builder pattern,
// regeneralized from "invoke cmake" to "invoke the system compiler directly".
package ccprobe

// IncludeDir is a single -I/-isystem entry; System marks it as a system
// include (rendered with -isystem so compiler warnings are suppressed for
// dependency headers).
type IncludeDir struct {
	Path     string
	IsSystem bool
}

// CFlags is the compile-side half of CompilerOpts.
type CFlags struct {
	Macros []string
	Dirs   []IncludeDir
	Others []string
}

// LdFlags is the link-side half of CompilerOpts.
type LdFlags struct {
	LibDirs []string
	Libs    []string
	Others  []string
}

// CompilerOpts is the per-dependency contribution to the compile/link
// command lines: include dirs, link dirs, libraries, macros, extra flags.
type CompilerOpts struct {
	CFlags  CFlags
	LdFlags LdFlags
}

// Merge combines two CompilerOpts per spec.md §3: macros/includeDirs/others
// append, libDirs/others extend, libs dedup by name preserving first
// occurrence. Returns a new value; neither receiver nor other is mutated.
func Merge(a, b CompilerOpts) CompilerOpts {
	out := CompilerOpts{
		CFlags: CFlags{
			Macros: append(append([]string{}, a.CFlags.Macros...), b.CFlags.Macros...),
			Dirs:   append(append([]IncludeDir{}, a.CFlags.Dirs...), b.CFlags.Dirs...),
			Others: append(append([]string{}, a.CFlags.Others...), b.CFlags.Others...),
		},
		LdFlags: LdFlags{
			LibDirs: append(append([]string{}, a.LdFlags.LibDirs...), b.LdFlags.LibDirs...),
			Others:  append(append([]string{}, a.LdFlags.Others...), b.LdFlags.Others...),
		},
	}
	out.LdFlags.Libs = mergeLibs(a.LdFlags.Libs, b.LdFlags.Libs)
	return out
}

// mergeLibs concatenates a then b, deduplicating by name and preserving the
// first occurrence's position (spec.md §3 dedup law; order-stable under
// Merge(x,y) vs Merge(y,x) commutation only in the sense that each side's
// own first occurrence wins within the combined list).
func mergeLibs(a, b []string) []string {
	seen := make(map[string]bool, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))
	for _, lib := range a {
		if !seen[lib] {
			seen[lib] = true
			out = append(out, lib)
		}
	}
	for _, lib := range b {
		if !seen[lib] {
			seen[lib] = true
			out = append(out, lib)
		}
	}
	return out
}

// RenderIncludes renders the include-dir flags, using -isystem for entries
// marked IsSystem and -I otherwise.
func (c CFlags) RenderIncludes() []string {
	out := make([]string, 0, len(c.Dirs))
	for _, d := range c.Dirs {
		if d.IsSystem {
			out = append(out, "-isystem", d.Path)
		} else {
			out = append(out, "-I"+d.Path)
		}
	}
	return out
}

// RenderMacros renders -D flags.
func (c CFlags) RenderMacros() []string {
	out := make([]string, 0, len(c.Macros))
	for _, m := range c.Macros {
		out = append(out, "-D"+m)
	}
	return out
}

// RenderLibDirs renders -L flags.
func (l LdFlags) RenderLibDirs() []string {
	out := make([]string, 0, len(l.LibDirs))
	for _, d := range l.LibDirs {
		out = append(out, "-L"+d)
	}
	return out
}

// RenderLibs renders -l flags.
func (l LdFlags) RenderLibs() []string {
	out := make([]string, 0, len(l.Libs))
	for _, lib := range l.Libs {
		out = append(out, "-l"+lib)
	}
	return out
}
