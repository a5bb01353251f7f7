// Grounded on original_source/src/Cmd/Fmt.cc: collect every source/header
// file (honoring .gitignore unless --no-ignore-vcs, minus --exclude),
// shell out to clang-format (CABIN_FMT overrides the binary name) with
// -Werror, --check passes --dry-run instead of -i.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/exec"

	"github.com/spf13/cobra"

	"github.com/cabinpm/cabin/internal/cabinerr"
	"github.com/cabinpm/cabin/internal/cabinlog"
	"github.com/cabinpm/cabin/internal/manifest"
	"github.com/cabinpm/cabin/internal/scanner"
)

var (
	fmtCheck       bool
	fmtExclude     []string
	fmtNoIgnoreVCS bool
)

var fmtCmd = &cobra.Command{
	Use:   "fmt",
	Short: "Format code using clang-format",
	Args:  cobra.NoArgs,
	RunE:  runFmt,
}

func init() {
	fmtCmd.Flags().BoolVar(&fmtCheck, "check", false, "Run clang-format in check mode")
	fmtCmd.Flags().StringArrayVar(&fmtExclude, "exclude", nil, "Exclude files from formatting")
	fmtCmd.Flags().BoolVar(&fmtNoIgnoreVCS, "no-ignore-vcs", false, "Do not exclude git-ignored files from formatting")
	rootCmd.AddCommand(fmtCmd)
}

func runFmt(cmd *cobra.Command, args []string) error {
	clangFormat := "clang-format"
	if env := os.Getenv("CABIN_FMT"); env != "" {
		clangFormat = env
	}
	if _, err := exec.LookPath(clangFormat); err != nil {
		return &cabinerr.ToolchainError{Msg: "fmt command requires clang-format; try installing it by:\n  apt/brew install clang-format"}
	}

	mf, err := manifest.FindAndLoad(".")
	if err != nil {
		return err
	}

	files, err := scanner.ListFormatTargets(mf.Dir, fmtExclude, fmtNoIgnoreVCS)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		cabinlog.Warn("no files to format")
		return nil
	}

	clangArgs := []string{"--style=file", "--fallback-style=LLVM", "-Werror"}
	if flagVerbose || flagVeryVerb {
		clangArgs = append(clangArgs, "--verbose")
	}
	if fmtCheck {
		clangArgs = append(clangArgs, "--dry-run")
	} else {
		clangArgs = append(clangArgs, "-i")
	}
	clangArgs = append(clangArgs, files...)

	c := exec.CommandContext(context.Background(), clangFormat, clangArgs...)
	c.Dir = mf.Dir
	c.Stdout = os.Stdout
	c.Stderr = os.Stderr
	if err := c.Run(); err != nil {
		return &cabinerr.ExecutorError{Msg: fmt.Sprintf("clang-format %s", err), Err: err}
	}

	if fmtCheck {
		cabinlog.Info("Checked", "%d file(s) with no format required", len(files))
	} else {
		cabinlog.Info("Formatted", "%d file(s)", len(files))
	}
	return nil
}
