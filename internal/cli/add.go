// Grounded on original_source/src/Cmd/Remove.cc's toml-edit round trip
// (parse cabin.toml, mutate the [dependencies] table, write it back); there
// is no Add.cc in the retrieved sources, so the system-dependency-only
// `name[@version]` argument shape here is this command's own design,
// listed in DESIGN.md among the un-grounded original work.
package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/cabinpm/cabin/internal/cabinlog"
	"github.com/cabinpm/cabin/internal/manifest"
)

var addCmd = &cobra.Command{
	Use:   "add <deps...>",
	Short: "Add dependencies to cabin.toml",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runAdd,
}

func init() {
	rootCmd.AddCommand(addCmd)
}

func runAdd(cmd *cobra.Command, args []string) error {
	path, doc, err := loadManifestDoc()
	if err != nil {
		return err
	}
	deps := dependenciesTable(doc)

	var added []string
	for _, spec := range args {
		name, version := parseAddSpec(spec)
		if err := manifest.ValidateDependencyName(name); err != nil {
			return err
		}
		entry := map[string]any{"system": true}
		if version != "" {
			entry["version"] = version
		}
		deps[name] = entry
		added = append(added, spec)
	}

	if err := writeManifestDoc(path, doc); err != nil {
		return err
	}
	cabinlog.Info("Added", "%s to %s", strings.Join(added, ", "), path)
	return nil
}
