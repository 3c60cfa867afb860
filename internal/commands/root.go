// Package commands implements the stormcost command tree.
package commands

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
)

// buildInfo is injected by the linker through main.
type buildInfo struct {
	version string
	commit  string
	date    string
}

// Execute runs the root command with injected build info.
func Execute(v, c, d string) error {
	return newRootCmd(buildInfo{version: v, commit: c, date: d}).Execute()
}

func newRootCmd(info buildInfo) *cobra.Command {
	var verbose bool

	root := &cobra.Command{
		Use:   "stormcost",
		Short: "stormcost: weather damage cost analytics",
		Long: `stormcost loads a weather damage event export, classifies each event by type,
and reports where damage costs concentrate by category, installation, year
and state. It also estimates the impact of mitigation scenarios.`,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			level := slog.LevelWarn
			if verbose {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level})))
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().BoolVar(&verbose, "verbose", false, "Enable verbose logging")
	root.AddCommand(newReportCmd(info))
	root.AddCommand(newValidateCmd(info))
	root.AddCommand(newScenariosCmd(info))
	root.AddCommand(newVersionCmd(info))
	return root
}

func newVersionCmd(info buildInfo) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "stormcost %s (commit: %s, built: %s)\n", info.version, info.commit, info.date)
			return err
		},
	}
}
