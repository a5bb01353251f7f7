package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/cabinpm/cabin/internal/manifest"
)

var (
	initBin bool
	initLib bool
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a new cabin package in an existing directory",
	Args:  cobra.NoArgs,
	RunE:  runInitCmd,
}

func init() {
	initCmd.Flags().BoolVarP(&initBin, "bin", "b", true, "Create a binary package (default)")
	initCmd.Flags().BoolVarP(&initLib, "lib", "l", false, "Create a library package")
	rootCmd.AddCommand(initCmd)
}

func runInitCmd(cmd *cobra.Command, args []string) error {
	if _, err := os.Stat(manifest.ManifestFileName); err == nil {
		return fmt.Errorf("cannot initialize an existing cabin package")
	}

	root, err := os.Getwd()
	if err != nil {
		return err
	}
	projectName := filepath.Base(root)
	if err := manifest.ValidatePackageName(projectName); err != nil {
		return err
	}

	return createProjectFiles(initBin && !initLib, root, projectName, true)
}
