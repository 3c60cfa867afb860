package commands

import (
	"strings"

	"github.com/couchcryptid/storm-damage-dashboard/internal/analytics"
	"github.com/couchcryptid/storm-damage-dashboard/internal/report"
	"github.com/spf13/cobra"
)

type scenariosFlags struct {
	catalog string
	selects []string
	format  string
}

func newScenariosCmd(info buildInfo) *cobra.Command {
	var flags scenariosFlags

	cmd := &cobra.Command{
		Use:   "scenarios",
		Short: "List mitigation scenarios and estimate their impact",
		Long: `List the mitigation scenario catalog. With --select, estimate the annual
cost after applying the selected scenarios to the baseline, together with
the illustrative five-year forecast.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runScenarios(cmd, info, flags)
		},
	}

	cmd.Flags().StringVar(&flags.catalog, "catalog", "", "Catalog YAML file (default: embedded catalog)")
	cmd.Flags().StringSliceVar(&flags.selects, "select", nil, "Scenario IDs to apply (comma-separated)")
	cmd.Flags().StringVar(&flags.format, "format", "text", "Output format: text, json")
	return cmd
}

func runScenarios(cmd *cobra.Command, info buildInfo, flags scenariosFlags) error {
	cat, err := loadCatalog(flags.catalog)
	if err != nil {
		return err
	}
	calc := analytics.NewCalculator(cat.BaselineCost(), cat.Scenarios())

	data := report.ScenarioData{
		Header:       header(info),
		BaselineCost: calc.Baseline(),
		Scenarios:    calc.Scenarios(),
		Forecast:     []analytics.Projection{},
	}

	ids := make([]string, 0, len(flags.selects))
	for _, id := range flags.selects {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	if len(ids) > 0 {
		res, err := calc.Compute(ids)
		if err != nil {
			return err
		}
		data.Result = &res
		data.Forecast = analytics.Project(cat.Forecast(), res.EffectiveReductionFraction)
	}

	reporter, closeFn, err := selectReporter(cmd.OutOrStdout(), flags.format, "")
	if err != nil {
		return err
	}
	if err := reporter.Scenarios(data); err != nil {
		_ = closeFn()
		return err
	}
	return closeFn()
}
