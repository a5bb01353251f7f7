// Grounded directly on original_source/src/Cmd/Remove.cc: parse cabin.toml,
// erase each named key from [dependencies] if present (warning, not erroring,
// on names that aren't there), write the file back, and report what was
// actually removed.
package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/cabinpm/cabin/internal/cabinlog"
)

var removeCmd = &cobra.Command{
	Use:   "remove <deps...>",
	Short: "Remove dependencies from cabin.toml",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runRemove,
}

func init() {
	rootCmd.AddCommand(removeCmd)
}

func runRemove(cmd *cobra.Command, args []string) error {
	path, doc, err := loadManifestDoc()
	if err != nil {
		return err
	}
	deps := dependenciesTable(doc)

	var removed []string
	for _, name := range args {
		if _, ok := deps[name]; ok {
			delete(deps, name)
			removed = append(removed, name)
		} else {
			cabinlog.Warn("dependency `%s` not found in %s", name, path)
		}
	}

	if len(removed) == 0 {
		return nil
	}
	if err := writeManifestDoc(path, doc); err != nil {
		return err
	}
	cabinlog.Info("Removed", "%s from %s", strings.Join(removed, ", "), path)
	return nil
}
