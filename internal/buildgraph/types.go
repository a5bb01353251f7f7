// Package buildgraph builds the graph of compile, link, and archive edges
// for a project: one compile unit per translation unit (scanned via the
// compiler's -MM flag), a link edge for the binary and/or static library
// target, and a link edge per discovered unit/integration test.
//
// Mirrors the dependency-graph construction in
// original_source/include/Builder/BuildGraph.hpp and
// lib/Builder/BuildGraph.cc line-for-line. Parallel per-TU scanning reuses
// internal/workpool (adapted from cmd/go's par.Work[T], there driving
// parallel MVS module loads).
package buildgraph

// TestKind distinguishes a unit test (CABIN_TEST-gated code living beside
// its production source) from an integration test (a standalone source
// under tests/).
type TestKind int

const (
	TestUnit TestKind = iota
	TestIntegration
)

func (k TestKind) String() string {
	if k == TestIntegration {
		return "integration"
	}
	return "unit"
}

// TestTarget is one discovered test binary.
type TestTarget struct {
	NinjaTarget string
	SourcePath  string
	Kind        TestKind
}

// CompileUnit is one registered translation unit.
type CompileUnit struct {
	Source       string
	Dependencies map[string]bool // header paths from -MM, as a set
	IsTest       bool
}

// Edge is a Ninja build edge: outputs built from inputs (+ implicit/order-only
// inputs) via a named rule, with rule-specific variable bindings.
type Edge struct {
	Outputs         []string
	Rule            string
	Inputs          []string
	ImplicitInputs  []string
	OrderOnlyInputs []string
	Bindings        [][2]string
}

// sourceRoot is one of the two TU roots the graph compiles from: src/ (no
// object subdir) or lib/ (objects placed under "lib").
type sourceRoot struct {
	directory    string
	objectSubdir string
}
