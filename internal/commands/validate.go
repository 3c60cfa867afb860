package commands

import (
	"errors"
	"fmt"

	"github.com/couchcryptid/storm-damage-dashboard/internal/analytics"
	"github.com/couchcryptid/storm-damage-dashboard/internal/domain"
	"github.com/couchcryptid/storm-damage-dashboard/internal/ingest"
	"github.com/couchcryptid/storm-damage-dashboard/internal/report"
	"github.com/spf13/cobra"
)

// errNoUsableRows is returned when a data file yields no events at all.
var errNoUsableRows = errors.New("no usable rows")

type validateFlags struct {
	data          string
	catalog       string
	maxRejections int
	format        string
}

func newValidateCmd(info buildInfo) *cobra.Command {
	var flags validateFlags

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check how a damage event export ingests",
		Long: `Parse a damage event export and report row counts, dropped rows with their
line numbers, and event descriptions that no category rule matches.
Exits non-zero when no row survives validation.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runValidate(cmd, info, flags)
		},
	}

	cmd.Flags().StringVar(&flags.data, "data", "", "Path or http(s) URL of the damage event CSV")
	cmd.Flags().StringVar(&flags.catalog, "catalog", "", "Catalog YAML file (default: embedded catalog)")
	cmd.Flags().IntVar(&flags.maxRejections, "max-rejections", ingest.DefaultMaxRejections, "Number of rejected rows to list")
	cmd.Flags().StringVar(&flags.format, "format", "text", "Output format: text, json")
	return cmd
}

func runValidate(cmd *cobra.Command, info buildInfo, flags validateFlags) error {
	cat, err := loadCatalog(flags.catalog)
	if err != nil {
		return err
	}
	res, err := loadEvents(cmd.Context(), flags.data, flags.maxRejections)
	if err != nil {
		return err
	}

	data := report.ValidationData{
		Header:       header(info),
		Source:       flags.data,
		Stats:        res.Stats,
		Unclassified: unclassified(analytics.NewEngine(cat.Classifier()), res.Events),
	}

	reporter, closeFn, err := selectReporter(cmd.OutOrStdout(), flags.format, "")
	if err != nil {
		return err
	}
	if err := reporter.Validation(data); err != nil {
		_ = closeFn()
		return err
	}
	if err := closeFn(); err != nil {
		return err
	}

	if res.Stats.Accepted == 0 {
		return fmt.Errorf("%w: %d of %d rows dropped", errNoUsableRows, res.Stats.Dropped, res.Stats.Total)
	}
	return nil
}

// unclassified returns the distinct descriptions that fall through to Other,
// in order of first appearance.
func unclassified(engine *analytics.Engine, events []domain.WeatherEvent) []string {
	seen := make(map[string]struct{})
	out := []string{}
	for _, ev := range events {
		if engine.Classify(ev) != domain.CategoryOther {
			continue
		}
		if _, ok := seen[ev.Description]; ok {
			continue
		}
		seen[ev.Description] = struct{}{}
		out = append(out, ev.Description)
	}
	return out
}
