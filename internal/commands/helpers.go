package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/couchcryptid/storm-damage-dashboard/internal/catalog"
	"github.com/couchcryptid/storm-damage-dashboard/internal/domain"
	"github.com/couchcryptid/storm-damage-dashboard/internal/ingest"
	"github.com/couchcryptid/storm-damage-dashboard/internal/report"
)

const defaultLoadTimeout = 2 * time.Minute

// loadEvents reads and parses the data file or URL at location.
func loadEvents(ctx context.Context, location string, maxRejections int) (ingest.Result, error) {
	if location == "" {
		return ingest.Result{}, fmt.Errorf("no data source; use --data")
	}
	ctx, cancel := context.WithTimeout(ctx, defaultLoadTimeout)
	defer cancel()

	src := ingest.NewSource(location, &http.Client{Timeout: defaultLoadTimeout})
	rc, err := src.Open(ctx)
	if err != nil {
		return ingest.Result{}, fmt.Errorf("open %s: %w", src, err)
	}
	defer rc.Close()

	res, err := ingest.NewParser(slog.Default(), maxRejections).Parse(rc)
	if err != nil {
		return ingest.Result{}, fmt.Errorf("parse %s: %w", src, err)
	}
	slog.Debug("data loaded", "source", src.String(), "accepted", res.Stats.Accepted, "dropped", res.Stats.Dropped)
	return res, nil
}

func loadCatalog(path string) (*catalog.Catalog, error) {
	c, err := catalog.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	return c, nil
}

// selectReporter returns a reporter writing to outputFile, or to w when no
// file is given. The returned close func must be called once output is done.
// The output file is only created for a supported format.
func selectReporter(w io.Writer, format, outputFile string) (report.Reporter, func() error, error) {
	newReporter, err := reporterFor(format)
	if err != nil {
		return nil, nil, err
	}

	closeFn := func() error { return nil }
	if outputFile != "" {
		f, err := os.Create(outputFile)
		if err != nil {
			return nil, nil, fmt.Errorf("create output file: %w", err)
		}
		w = f
		closeFn = f.Close
	}
	return newReporter(w), closeFn, nil
}

func reporterFor(format string) (func(io.Writer) report.Reporter, error) {
	switch format {
	case "json":
		return func(w io.Writer) report.Reporter { return &report.JSONReporter{Writer: w} }, nil
	case "text":
		return func(w io.Writer) report.Reporter { return &report.TextReporter{Writer: w} }, nil
	default:
		return nil, fmt.Errorf("unsupported format: %s (use text or json)", format)
	}
}

func header(info buildInfo) report.Header {
	return report.Header{
		Tool:        "stormcost",
		Version:     info.version,
		GeneratedAt: domain.Now().UTC(),
	}
}
