package buildgraph

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/cabinpm/cabin/internal/cabinerr"
	"github.com/cabinpm/cabin/internal/ccprobe"
)

// DepScanner runs the header-dependency scan for one translation unit,
// returning the compiler-chosen object basename (from -MM's target) and its
// header dependency set.
type DepScanner interface {
	Scan(source string, isTest bool) (objName string, deps []string, err error)
}

// ccScanner is the production DepScanner: it shells out to the resolved
// compiler's -MM flag.
type ccScanner struct {
	commands ccprobe.Commands
}

// NewDepScanner returns the production compiler-backed DepScanner.
func NewDepScanner(commands ccprobe.Commands) DepScanner {
	return ccScanner{commands: commands}
}

func (s ccScanner) Scan(source string, isTest bool) (string, []string, error) {
	args := s.commands.ScanArgs(source, isTest)
	cmd := exec.CommandContext(context.Background(), s.commands.Compiler.Cxx, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", nil, &cabinerr.ScanError{Msg: fmt.Sprintf("scanning %s: %s", source, strings.TrimSpace(stderr.String())), Err: err}
	}
	target, deps := parseMakeDeps(stdout.String())
	return target, deps, nil
}

// parseMakeDeps parses -MM's Make-rule output ("target: dep1 dep2 \\\ndep3
// ..."), skipping the first dependency (the source file itself, always
// listed first).
func parseMakeDeps(output string) (target string, deps []string) {
	idx := strings.Index(output, ":")
	if idx < 0 {
		return "", nil
	}
	target = strings.TrimSpace(output[:idx])
	rest := strings.ReplaceAll(output[idx+1:], "\\\n", " ")
	rest = strings.ReplaceAll(rest, "\\\r\n", " ")

	fields := strings.Fields(rest)
	if len(fields) <= 1 {
		return target, nil
	}
	return target, fields[1:]
}
