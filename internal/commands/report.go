package commands

import (
	"github.com/couchcryptid/storm-damage-dashboard/internal/analytics"
	"github.com/couchcryptid/storm-damage-dashboard/internal/report"
	"github.com/spf13/cobra"
)

type reportFlags struct {
	data       string
	catalog    string
	year       string
	category   string
	top        int
	topEvents  int
	format     string
	outputFile string
}

func newReportCmd(info buildInfo) *cobra.Command {
	var flags reportFlags

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Report damage costs by category, installation, year and state",
		Long: `Load a damage event export and print every aggregate view for the selected
year and category. Both selectors default to "all".`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runReport(cmd, info, flags)
		},
	}

	cmd.Flags().StringVar(&flags.data, "data", "", "Path or http(s) URL of the damage event CSV")
	cmd.Flags().StringVar(&flags.catalog, "catalog", "", "Catalog YAML file (default: embedded catalog)")
	cmd.Flags().StringVar(&flags.year, "year", analytics.SelectAll, "Year to include, or all")
	cmd.Flags().StringVar(&flags.category, "category", analytics.SelectAll, "Event category to include, or all")
	cmd.Flags().IntVar(&flags.top, "top", analytics.DefaultTopInstallations, "Number of installations to rank")
	cmd.Flags().IntVar(&flags.topEvents, "top-events", analytics.DefaultTopEvents, "Number of individual events to rank (0 for all)")
	cmd.Flags().StringVar(&flags.format, "format", "text", "Output format: text, json")
	cmd.Flags().StringVarP(&flags.outputFile, "output", "o", "", "Output file path (default: stdout)")
	return cmd
}

func runReport(cmd *cobra.Command, info buildInfo, flags reportFlags) error {
	sel, err := analytics.ParseSelection(flags.year, flags.category)
	if err != nil {
		return err
	}
	cat, err := loadCatalog(flags.catalog)
	if err != nil {
		return err
	}
	res, err := loadEvents(cmd.Context(), flags.data, 0)
	if err != nil {
		return err
	}

	engine := analytics.NewEngine(cat.Classifier())
	data := report.DashboardData{
		Header: header(info),
		Source: flags.data,
		Stats:  res.Stats,
		Dashboard: engine.Build(res.Events, sel, analytics.LimitOptions(flags.top, flags.topEvents)),
	}

	reporter, closeFn, err := selectReporter(cmd.OutOrStdout(), flags.format, flags.outputFile)
	if err != nil {
		return err
	}
	if err := reporter.Dashboard(data); err != nil {
		_ = closeFn()
		return err
	}
	return closeFn()
}
