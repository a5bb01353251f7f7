package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/cabinpm/cabin/internal/driver"
	"github.com/cabinpm/cabin/internal/manifest"
)

var (
	testJobs     int
	testCoverage bool
)

var testCmd = &cobra.Command{
	Use:     "test [filter]",
	Aliases: []string{"t"},
	Short:   "Run the tests of a local package",
	Args:    cobra.MaximumNArgs(1),
	RunE:    runTest,
}

func init() {
	testCmd.Flags().IntVarP(&testJobs, "jobs", "j", 0, "Number of parallel jobs (default: number of CPUs)")
	testCmd.Flags().BoolVar(&testCoverage, "coverage", false, "Enable code coverage analysis")
	rootCmd.AddCommand(testCmd)
}

func runTest(cmd *cobra.Command, args []string) error {
	mf, err := manifest.FindAndLoad(".")
	if err != nil {
		return err
	}

	filter := ""
	if len(args) == 1 {
		filter = args[0]
	}

	d := driver.New(mf.Dir, "test", driver.Options{
		IncludeDevDeps: true,
		EnableCoverage: testCoverage,
		Jobs:           testJobs,
	})
	ctx := context.Background()
	if err := d.Schedule(ctx); err != nil {
		return err
	}
	return d.Test(ctx, filter)
}
