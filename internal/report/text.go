package report

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/couchcryptid/storm-damage-dashboard/internal/analytics"
	"github.com/couchcryptid/storm-damage-dashboard/internal/domain"
	"github.com/couchcryptid/storm-damage-dashboard/internal/ingest"
	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"
)

// Dashboard writes the summary and every aggregate view as tables.
func (r *TextReporter) Dashboard(data DashboardData) error {
	w := &errWriter{w: r.Writer}
	d := data.Dashboard

	title(w, "stormcost: Weather Damage Cost Report")
	w.printf("Source:    %s\n", data.Source)
	w.printf("Selection: year=%s category=%s\n\n", selectionYear(d.Selection), selectionCategory(d.Selection))

	if d.Summary.EventCount == 0 {
		w.println("No events match the selection.")
		w.println("")
		writeIngestion(w, data.Stats)
		return w.err
	}

	w.printf("Total cost:     %s\n", money(d.Summary.TotalCost))
	w.printf("Events:         %d\n", d.Summary.EventCount)
	w.printf("Installations:  %d\n", d.Summary.InstallationCount)
	w.printf("Average cost:   %s\n", money(d.Summary.AverageCost))
	w.printf("Years:          %d-%d\n\n", d.Summary.FirstYear, d.Summary.LastYear)

	section(w, "By category")
	rows := make([][]string, len(d.ByCategory))
	for i, c := range d.ByCategory {
		rows[i] = []string{c.Key, money(c.TotalCost), fmt.Sprintf("%d%%", c.Percentage), fmt.Sprint(c.EventCount)}
	}
	table(w, []string{"CATEGORY", "COST", "SHARE", "EVENTS"}, rows)

	section(w, fmt.Sprintf("Top %d installations", len(d.ByInstallation)))
	table(w, []string{"INSTALLATION", "COST", "EVENTS"}, bucketRows(d.ByInstallation))

	section(w, "By year")
	rows = make([][]string, len(d.ByYear))
	for i, y := range d.ByYear {
		rows[i] = []string{y.Key, money(y.TotalCost), fmt.Sprint(y.EventCount)}
	}
	table(w, []string{"YEAR", "COST", "EVENTS"}, rows)

	section(w, "By state")
	table(w, []string{"STATE", "COST", "EVENTS"}, bucketRows(d.ByState))

	section(w, "Top events")
	table(w, []string{"EVENT", "COST", "EVENTS"}, bucketRows(d.TopEvents))

	writeIngestion(w, data.Stats)
	return w.err
}

// Validation writes ingestion stats, the retained rejections, and the
// descriptions the classifier could not place.
func (r *TextReporter) Validation(data ValidationData) error {
	w := &errWriter{w: r.Writer}

	title(w, "stormcost: Data Validation")
	w.printf("Source: %s\n\n", data.Source)
	writeIngestion(w, data.Stats)

	if len(data.Stats.Rejections) > 0 {
		section(w, fmt.Sprintf("Rejected rows (showing %d of %d)", len(data.Stats.Rejections), data.Stats.Dropped))
		rows := make([][]string, len(data.Stats.Rejections))
		for i, rej := range data.Stats.Rejections {
			rows[i] = []string{fmt.Sprint(rej.Line), string(rej.Reason), rej.Detail}
		}
		table(w, []string{"LINE", "REASON", "DETAIL"}, rows)
	}

	if len(data.Unclassified) > 0 {
		section(w, fmt.Sprintf("Descriptions classified as %s (%d)", domain.CategoryOther, len(data.Unclassified)))
		for _, d := range data.Unclassified {
			w.printf("  - %s\n", d)
		}
		w.println("")
	}
	return w.err
}

// Scenarios writes the catalog and, when present, the estimated impact.
func (r *TextReporter) Scenarios(data ScenarioData) error {
	w := &errWriter{w: r.Writer}

	title(w, "stormcost: Mitigation Scenarios")
	w.printf("Baseline annual cost: %s\n\n", money(data.BaselineCost))

	rows := make([][]string, len(data.Scenarios))
	for i, s := range data.Scenarios {
		rows[i] = []string{s.ID, s.Name, string(s.TargetCategory), percent(s.CostReductionFraction), money(s.ImplementationCost)}
	}
	table(w, []string{"ID", "NAME", "TARGET", "REDUCTION", "IMPLEMENTATION"}, rows)

	if data.Result == nil {
		return w.err
	}

	res := data.Result
	section(w, "Estimated impact")
	if len(res.Selected) == 0 {
		w.println("No scenarios selected.")
	} else {
		w.printf("Selected:             %s\n", strings.Join(res.Selected, ", "))
	}
	w.printf("Combined reduction:   %s (applied %s)\n", percent(res.TotalReductionFraction), percent(res.EffectiveReductionFraction))
	w.printf("Mitigated cost:       %s\n", money(res.Mitigated))
	w.printf("Annual savings:       %s\n", money(res.Savings))
	w.printf("Implementation cost:  %s\n\n", money(res.TotalImplementationCost))

	if len(data.Forecast) > 0 {
		section(w, "Forecast (illustrative)")
		rows = make([][]string, len(data.Forecast))
		for i, p := range data.Forecast {
			rows[i] = []string{fmt.Sprint(p.Year), money(p.ProjectedCost), money(p.MitigatedCost), money(p.Savings)}
		}
		table(w, []string{"YEAR", "PROJECTED", "MITIGATED", "SAVINGS"}, rows)
	}
	return w.err
}

func writeIngestion(w *errWriter, s ingest.Stats) {
	w.println("Ingestion")
	w.println("---------")
	w.printf("Rows read:        %d\n", s.Total)
	w.printf("Rows accepted:    %d\n", s.Accepted)
	w.printf("Rows dropped:     %d\n", s.Dropped)
	if len(s.DroppedByReason) > 0 {
		w.printf("By reason:        %s\n", strings.Join(formatReasons(s.DroppedByReason), ", "))
	}
	if s.YearMismatches > 0 {
		w.printf("Year mismatches:  %d (year taken from the event date)\n", s.YearMismatches)
	}
	w.println("")
}

func title(w *errWriter, s string) {
	w.println(s)
	w.println(strings.Repeat("=", len(s)))
	w.println("")
}

func section(w *errWriter, s string) {
	w.println(s)
	w.println(strings.Repeat("-", len(s)))
}

// table aligns rows under a header with a dashed rule.
func table(w *errWriter, header []string, rows [][]string) {
	if w.err != nil {
		return
	}
	tw := tabwriter.NewWriter(w.w, 0, 4, 2, ' ', 0)
	tw2 := &errWriter{w: tw}

	rule := make([]string, len(header))
	for i, h := range header {
		rule[i] = strings.Repeat("-", len(h))
	}
	tw2.printf("%s\n", strings.Join(header, "\t"))
	tw2.printf("%s\n", strings.Join(rule, "\t"))
	for _, row := range rows {
		tw2.printf("%s\n", strings.Join(row, "\t"))
	}
	if tw2.err != nil {
		w.err = tw2.err
		return
	}
	if err := tw.Flush(); err != nil {
		w.err = err
		return
	}
	w.println("")
}

func bucketRows(buckets []analytics.Bucket) [][]string {
	rows := make([][]string, len(buckets))
	for i, b := range buckets {
		rows[i] = []string{b.Key, money(b.TotalCost), fmt.Sprint(b.EventCount)}
	}
	return rows
}

// money formats an amount as whole dollars and cents with thousands
// separators.
func money(d decimal.Decimal) string {
	sign := ""
	if d.IsNegative() {
		sign = "-"
		d = d.Neg()
	}
	d = d.Round(2)
	whole := d.IntPart()
	cents := d.Sub(decimal.NewFromInt(whole)).Mul(decimal.NewFromInt(100)).IntPart()
	return fmt.Sprintf("%s$%s.%02d", sign, humanize.Comma(whole), cents)
}

func percent(f decimal.Decimal) string {
	return f.Mul(decimal.NewFromInt(100)).Round(1).String() + "%"
}

func selectionYear(s analytics.Selection) string {
	if s.Year == 0 {
		return analytics.SelectAll
	}
	return fmt.Sprint(s.Year)
}

func selectionCategory(s analytics.Selection) string {
	if s.Category == "" {
		return analytics.SelectAll
	}
	return string(s.Category)
}

func formatReasons(m map[domain.RejectReason]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, string(k))
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%d", k, m[domain.RejectReason(k)]))
	}
	return parts
}

// errWriter wraps an io.Writer and captures the first error.
type errWriter struct {
	w   io.Writer
	err error
}

func (ew *errWriter) printf(format string, args ...any) {
	if ew.err != nil {
		return
	}
	_, ew.err = fmt.Fprintf(ew.w, format, args...)
}

func (ew *errWriter) println(s string) {
	if ew.err != nil {
		return
	}
	_, ew.err = fmt.Fprintln(ew.w, s)
}
