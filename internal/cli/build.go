package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/cabinpm/cabin/internal/cabinlog"
	"github.com/cabinpm/cabin/internal/driver"
	"github.com/cabinpm/cabin/internal/manifest"
)

var (
	buildRelease bool
	buildCompdb  bool
	buildJobs    int
)

var buildCmd = &cobra.Command{
	Use:     "build",
	Aliases: []string{"b"},
	Short:   "Compile a local package and all of its dependencies",
	Args:    cobra.NoArgs,
	RunE:    runBuild,
}

func init() {
	buildCmd.Flags().BoolVarP(&buildRelease, "release", "r", false, "Build artifacts in release mode")
	buildCmd.Flags().BoolVar(&buildCompdb, "compdb", false, "Generate compilation database instead of building")
	buildCmd.Flags().IntVarP(&buildJobs, "jobs", "j", 0, "Number of parallel jobs (default: number of CPUs)")
	rootCmd.AddCommand(buildCmd)
}

func profileNameFor(release bool) string {
	if release {
		return "release"
	}
	return "dev"
}

func runBuild(cmd *cobra.Command, args []string) error {
	mf, err := manifest.FindAndLoad(".")
	if err != nil {
		return err
	}

	d := driver.New(mf.Dir, profileNameFor(buildRelease), driver.Options{Jobs: buildJobs})
	ctx := context.Background()
	if err := d.Schedule(ctx); err != nil {
		return err
	}

	if buildCompdb {
		cabinlog.Info("Generated", "%s/compile_commands.json", mf.Package.Name)
		return nil
	}
	return d.Build(ctx)
}
