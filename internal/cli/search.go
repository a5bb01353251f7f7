package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cabinpm/cabin/internal/cabinlog"
	"github.com/cabinpm/cabin/internal/searchindex"
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search cabin's library index",
	Args:  cobra.ExactArgs(1),
	RunE:  runSearch,
}

func init() {
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	matches := searchindex.Search(args[0])
	if len(matches) == 0 {
		cabinlog.Warn("no libraries found matching `%s`", args[0])
		return nil
	}
	for _, m := range matches {
		fmt.Printf("%-20s %s\n    %s\n", m.Name, m.URL, m.Description)
	}
	return nil
}
