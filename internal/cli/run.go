package cli

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/cabinpm/cabin/internal/driver"
	"github.com/cabinpm/cabin/internal/manifest"
)

var (
	runRelease bool
	runJobs    int
)

var runCmd = &cobra.Command{
	Use:     "run [args...]",
	Aliases: []string{"r"},
	Short:   "Build and execute src/main.cc",
	RunE:    runRun,
}

func init() {
	runCmd.Flags().BoolVarP(&runRelease, "release", "r", false, "Build artifacts in release mode")
	runCmd.Flags().IntVarP(&runJobs, "jobs", "j", 0, "Number of parallel jobs (default: number of CPUs)")
	runCmd.Flags().SetInterspersed(false)
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	mf, err := manifest.FindAndLoad(".")
	if err != nil {
		return err
	}

	d := driver.New(mf.Dir, profileNameFor(runRelease), driver.Options{Jobs: runJobs})
	ctx := context.Background()
	if err := d.Schedule(ctx); err != nil {
		return err
	}

	code, err := d.Run(ctx, args)
	if err != nil {
		return err
	}
	if code != 0 {
		os.Exit(code)
	}
	return nil
}
