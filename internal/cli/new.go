package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cabinpm/cabin/internal/manifest"
)

var (
	newBin bool
	newLib bool
)

var newCmd = &cobra.Command{
	Use:   "new <name>",
	Short: "Create a new cabin project",
	Args:  cobra.ExactArgs(1),
	RunE:  runNew,
}

func init() {
	newCmd.Flags().BoolVarP(&newBin, "bin", "b", true, "Create a binary package (default)")
	newCmd.Flags().BoolVarP(&newLib, "lib", "l", false, "Create a library package")
	rootCmd.AddCommand(newCmd)
}

func runNew(cmd *cobra.Command, args []string) error {
	projectName := args[0]
	if err := manifest.ValidatePackageName(projectName); err != nil {
		return err
	}
	if _, err := os.Stat(projectName); err == nil {
		return fmt.Errorf("directory `%s` already exists", projectName)
	}

	if err := os.MkdirAll(projectName, 0o755); err != nil {
		return err
	}
	if err := createProjectFiles(newBin && !newLib, projectName, projectName, false); err != nil {
		return err
	}
	gitInitQuiet(projectName)
	return nil
}
