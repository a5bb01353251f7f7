package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cabinpm/cabin/internal/cabinlog"
	"github.com/cabinpm/cabin/internal/driver"
	"github.com/cabinpm/cabin/internal/manifest"
)

var cleanProfile string

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Remove the built directory",
	Args:  cobra.NoArgs,
	RunE:  runClean,
}

func init() {
	cleanCmd.Flags().StringVarP(&cleanProfile, "profile", "p", "", "Clean artifacts of the specified profile (dev or release)")
	rootCmd.AddCommand(cleanCmd)
}

func runClean(cmd *cobra.Command, args []string) error {
	if cleanProfile != "" && cleanProfile != "dev" && cleanProfile != "release" {
		return fmt.Errorf("invalid argument for --profile: %s", cleanProfile)
	}

	mf, err := manifest.FindAndLoad(".")
	if err != nil {
		return err
	}

	cabinlog.Info("Removing", "%s/cabin-out", mf.Package.Name)
	return driver.Clean(mf.Dir, cleanProfile)
}
