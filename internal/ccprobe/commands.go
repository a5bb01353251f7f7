package ccprobe

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
)

// Commands builds the command lines the build graph and driver invoke,
// given the resolved compiler/archiver and the merged project-wide
// CompilerOpts.
type Commands struct {
	Compiler Compiler
	Opts     CompilerOpts
}

// CompileArgs builds: cxx <others> <macros> <includes> -c <src> -o <obj>
func (c Commands) CompileArgs(src, obj string, extraFlags ...string) []string {
	args := append([]string{}, c.Opts.CFlags.Others...)
	args = append(args, extraFlags...)
	args = append(args, c.Opts.CFlags.RenderMacros()...)
	args = append(args, c.Opts.CFlags.RenderIncludes()...)
	args = append(args, "-c", src, "-o", obj)
	return args
}

// ScanArgs builds: cxx <others> <macros> <includes> -MM <src>
// (+ -DCABIN_TEST when scanning the test variant).
func (c Commands) ScanArgs(src string, isTest bool) []string {
	args := append([]string{}, c.Opts.CFlags.Others...)
	if isTest {
		args = append(args, "-DCABIN_TEST")
	}
	args = append(args, c.Opts.CFlags.RenderMacros()...)
	args = append(args, c.Opts.CFlags.RenderIncludes()...)
	args = append(args, "-MM", src)
	return args
}

// PreprocessArgs builds: cxx -E <others> <macros> <includes> <src>
// (with and without -DCABIN_TEST; used only for unit-test detection).
func (c Commands) PreprocessArgs(src string, defineCabinTest bool) []string {
	args := []string{"-E"}
	args = append(args, c.Opts.CFlags.Others...)
	if defineCabinTest {
		args = append(args, "-DCABIN_TEST")
	}
	args = append(args, c.Opts.CFlags.RenderMacros()...)
	args = append(args, c.Opts.CFlags.RenderIncludes()...)
	args = append(args, src)
	return args
}

// LinkExeArgs builds the link command for an executable.
func (c Commands) LinkExeArgs(objs []string, out string) []string {
	args := append([]string{}, objs...)
	args = append(args, "-o", out)
	args = append(args, c.Opts.LdFlags.RenderLibDirs()...)
	args = append(args, c.Opts.LdFlags.RenderLibs()...)
	args = append(args, c.Opts.LdFlags.Others...)
	return args
}

// ArchiveArgs builds the archiver command for a static library: ar rcs
// <archive> <objs...>
func ArchiveArgs(archive string, objs []string) []string {
	args := []string{"rcs", archive}
	return append(args, objs...)
}

// Preprocess runs the compiler's -E step over src, optionally defining
// CABIN_TEST, and returns its stdout. Satisfies internal/scanner.Preprocessor.
func (c Commands) Preprocess(src string, defineCabinTest bool) (string, error) {
	args := c.PreprocessArgs(src, defineCabinTest)
	cmd := exec.CommandContext(context.Background(), c.Compiler.Cxx, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("%s: %w", stderr.String(), err)
	}
	return stdout.String(), nil
}

// ArchiveName returns the archive filename for a library named name:
// lib<name>.a, or <name>.a if name already starts with "lib".
func ArchiveName(name string) string {
	if len(name) >= 3 && name[:3] == "lib" {
		return name + ".a"
	}
	return "lib" + name + ".a"
}
