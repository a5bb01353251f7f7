// Package cli wires cabin's Cobra command tree: one file per subcommand
// (a var *cobra.Command plus an init() registering it with rootCmd),
// covering the build/run/test/clean/new/init/add/remove/fmt/tidy/search/
// version surface.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cabinpm/cabin/internal/cabinlog"
)

// version is overridden at link time via -ldflags "-X ...cli.version=...".
var version = "0.1.0-dev"

var (
	flagVerbose  bool
	flagVeryVerb bool
	flagQuiet    bool
	flagColor    string
	flagShowVer  bool
	flagListCmds bool
)

var rootCmd = &cobra.Command{
	Use:           "cabin",
	Short:         "cabin is a package manager and build system for C++",
	Long:          `cabin manages dependencies, plans incremental builds, and drives a Ninja-compatible executor for C++ projects.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		configureLogging()
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		if flagShowVer {
			fmt.Println("cabin " + version)
			return nil
		}
		if flagListCmds {
			for _, c := range cmd.Commands() {
				fmt.Println(c.Name())
			}
			return nil
		}
		return cmd.Help()
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "Use verbose output")
	rootCmd.PersistentFlags().BoolVar(&flagVeryVerb, "vv", false, "Use very verbose (trace) output")
	_ = rootCmd.PersistentFlags().MarkHidden("vv")
	rootCmd.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false, "Do not print cabin log messages")
	rootCmd.PersistentFlags().StringVar(&flagColor, "color", "auto", "Coloring: auto, always, never")
	rootCmd.Flags().BoolVarP(&flagShowVer, "version", "V", false, "Print version info and exit")
	rootCmd.Flags().BoolVar(&flagListCmds, "list", false, "List installed commands")
	_ = rootCmd.Flags().MarkHidden("list")
}

// configureLogging reconciles the global flags into cabinlog's process-wide
// singleton; called once per invocation from PersistentPreRun so every
// subcommand's RunE observes the final level/color before doing anything.
func configureLogging() {
	level := cabinlog.LevelNormal
	switch {
	case flagQuiet:
		level = cabinlog.LevelQuiet
	case flagVeryVerb:
		level = cabinlog.LevelVeryVerbose
	case flagVerbose:
		level = cabinlog.LevelVerbose
	default:
		if env := os.Getenv("CABIN_LOG"); env != "" {
			level = cabinlog.ParseLevel(env)
		}
	}

	color := flagColor
	if env := os.Getenv("CABIN_TERM_COLOR"); color == "auto" && env != "" {
		color = env
	}
	cabinlog.Configure(level, color, os.Stderr)
}

// Execute runs the root command; this is cmd/cabin/main.go's only call.
func Execute() int {
	if err := rootCmd.Execute(); err != nil {
		cabinlog.Error("%s", err)
		return 1
	}
	return 0
}
