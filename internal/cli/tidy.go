// Grounded on original_source/src/Cmd/Tidy.cc: schedule the dev then test
// profiles (test's schedule includes dev-dependencies) so both compilation
// databases exist, then shell out to run-clang-tidy (CABIN_TIDY overrides
// the binary name) pointed at cabin-out/, where the merged
// compile_commands.json is written.
package cli

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/cabinpm/cabin/internal/cabinerr"
	"github.com/cabinpm/cabin/internal/cabinlog"
	"github.com/cabinpm/cabin/internal/driver"
	"github.com/cabinpm/cabin/internal/manifest"
)

var (
	tidyFix  bool
	tidyJobs int
)

var tidyCmd = &cobra.Command{
	Use:   "tidy",
	Short: "Execute run-clang-tidy",
	Args:  cobra.NoArgs,
	RunE:  runTidy,
}

func init() {
	tidyCmd.Flags().BoolVar(&tidyFix, "fix", false, "Automatically apply lint suggestions")
	tidyCmd.Flags().IntVarP(&tidyJobs, "jobs", "j", 0, "Number of parallel jobs (default: number of CPUs)")
	rootCmd.AddCommand(tidyCmd)
}

func runTidy(cmd *cobra.Command, args []string) error {
	jobs := tidyJobs
	if tidyFix && jobs != 1 {
		cabinlog.Warn("`--fix` implies `--jobs 1` to avoid race conditions")
		jobs = 1
	}

	mf, err := manifest.FindAndLoad(".")
	if err != nil {
		return err
	}

	ctx := context.Background()
	var compdbDir string
	for i, profileName := range []string{"dev", "test"} {
		d := driver.New(mf.Dir, profileName, driver.Options{
			IncludeDevDeps:      profileName == "test",
			SuppressAnalysisLog: i > 0,
			Jobs:                jobs,
		})
		if err := d.Schedule(ctx); err != nil {
			return err
		}
		compdbDir = filepath.Dir(d.OutDir())
	}

	runClangTidy := "run-clang-tidy"
	if env := os.Getenv("CABIN_TIDY"); env != "" {
		runClangTidy = env
	}
	if _, err := exec.LookPath(runClangTidy); err != nil {
		return &cabinerr.ToolchainError{Msg: "run-clang-tidy is required"}
	}

	tidyArgs := []string{"-p", compdbDir}
	if configPath := filepath.Join(mf.Dir, ".clang-tidy"); fileExists(configPath) {
		tidyArgs = append(tidyArgs, "-config-file="+configPath)
	}
	if !flagVerbose && !flagVeryVerb {
		tidyArgs = append(tidyArgs, "-quiet")
	}
	if tidyFix {
		tidyArgs = append(tidyArgs, "-fix")
	}
	if jobs > 0 {
		tidyArgs = append(tidyArgs, "-j", strconv.Itoa(jobs))
	}

	cabinlog.Info("Running", "run-clang-tidy")
	c := exec.CommandContext(ctx, runClangTidy, tidyArgs...)
	c.Dir = mf.Dir
	c.Stdout = os.Stdout
	c.Stderr = os.Stderr
	if err := c.Run(); err != nil {
		return &cabinerr.ExecutorError{Msg: "run-clang-tidy failed", Err: err}
	}
	cabinlog.Info("Finished", "run-clang-tidy")
	return nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
