// Package ingest turns a delimited damage-event export into validated
// WeatherEvents, accounting for every row it drops.
package ingest

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/couchcryptid/storm-damage-dashboard/internal/domain"
)

var (
	// ErrMissingHeader reports a header row without a required column.
	ErrMissingHeader = errors.New("missing required column")

	// ErrEmptyInput reports input with no header row at all.
	ErrEmptyInput = errors.New("empty input")
)

// DefaultMaxRejections bounds how many row rejections Stats retains.
const DefaultMaxRejections = 100

var requiredHeaders = []string{
	domain.HeaderEvent,
	domain.HeaderDate,
	domain.HeaderCost,
	domain.HeaderInstallation,
}

// Stats summarizes one ingestion run.
type Stats struct {
	Total           int                         `json:"total"`
	Accepted        int                         `json:"accepted"`
	Dropped         int                         `json:"dropped"`
	DroppedByReason map[domain.RejectReason]int `json:"dropped_by_reason"`
	YearMismatches  int                         `json:"year_mismatches"`
	Rejections      []Rejection                 `json:"rejections,omitempty"`
}

// Rejection records a single dropped row.
type Rejection struct {
	Line   int                 `json:"line"`
	Reason domain.RejectReason `json:"reason"`
	Detail string              `json:"detail"`
}

// Result is the ordered event sequence plus its ingestion stats.
type Result struct {
	Events []domain.WeatherEvent
	Stats  Stats
}

// Parser reads header-driven CSV into WeatherEvents.
type Parser struct {
	logger        *slog.Logger
	maxRejections int
}

// NewParser creates a Parser. maxRejections <= 0 uses DefaultMaxRejections.
func NewParser(logger *slog.Logger, maxRejections int) *Parser {
	if maxRejections <= 0 {
		maxRejections = DefaultMaxRejections
	}
	return &Parser{logger: logger, maxRejections: maxRejections}
}

// maxLineBytes bounds a single input line.
const maxLineBytes = 1 << 20

// Parse reads every row of r. Rows with an unusable cost or date are dropped
// and counted; output order matches input order. Only a missing or unusable
// header row, or a read failure of r itself, is an error.
//
// Records are one per line. Each line is split on its own, so a broken
// quote only affects the row it appears in.
func (p *Parser) Parse(r io.Reader) (Result, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	line := 0
	next := func() (string, bool) {
		for scanner.Scan() {
			line++
			if text := scanner.Text(); strings.TrimSpace(text) != "" {
				return text, true
			}
		}
		return "", false
	}

	headerLine, ok := next()
	if !ok {
		if err := scanner.Err(); err != nil {
			return Result{}, fmt.Errorf("read csv header: %w", err)
		}
		return Result{}, ErrEmptyInput
	}
	header, err := splitLine(headerLine)
	if err != nil {
		return Result{}, fmt.Errorf("read csv header: %w", err)
	}

	columns, err := indexHeader(header)
	if err != nil {
		return Result{}, err
	}

	res := Result{
		Events: make([]domain.WeatherEvent, 0),
		Stats:  Stats{DroppedByReason: make(map[domain.RejectReason]int)},
	}

	for {
		text, ok := next()
		if !ok {
			break
		}
		res.Stats.Total++

		row, err := splitLine(text)
		if err != nil {
			p.reject(&res.Stats, &domain.RowError{Line: line, Reason: domain.ReasonMalformed, Err: err})
			continue
		}

		rec := columns.record(row, line)
		event, err := domain.ParseRecord(rec)
		if err != nil {
			var rowErr *domain.RowError
			if !errors.As(err, &rowErr) {
				rowErr = &domain.RowError{Line: line, Reason: domain.ReasonMalformed, Err: err}
			}
			p.reject(&res.Stats, rowErr)
			continue
		}

		if domain.YearMismatch(rec.Year, event.Year) {
			res.Stats.YearMismatches++
			p.logger.Debug("year column disagrees with event date",
				"line", line,
				"year_column", rec.Year,
				"derived_year", event.Year,
			)
		}

		res.Events = append(res.Events, event)
		res.Stats.Accepted++
	}

	if err := scanner.Err(); err != nil {
		return Result{}, fmt.Errorf("read csv: %w", err)
	}
	return res, nil
}

// splitLine splits one CSV line into fields. A stray quote inside an
// unquoted field is kept literally; an unterminated or misplaced quoted
// field is an error.
func splitLine(text string) ([]string, error) {
	fields, err := readFields(text, false)
	if errors.Is(err, csv.ErrBareQuote) {
		return readFields(text, true)
	}
	return fields, err
}

func readFields(text string, lazy bool) ([]string, error) {
	reader := csv.NewReader(strings.NewReader(text))
	// Rows may omit trailing optional columns.
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	reader.LazyQuotes = lazy

	fields, err := reader.Read()
	if err != nil {
		var parseErr *csv.ParseError
		if errors.As(err, &parseErr) {
			return nil, parseErr.Err
		}
		return nil, err
	}
	return fields, nil
}

func (p *Parser) reject(stats *Stats, rowErr *domain.RowError) {
	stats.Dropped++
	stats.DroppedByReason[rowErr.Reason]++
	if len(stats.Rejections) < p.maxRejections {
		stats.Rejections = append(stats.Rejections, Rejection{
			Line:   rowErr.Line,
			Reason: rowErr.Reason,
			Detail: rowErr.Err.Error(),
		})
	}
	p.logger.Debug("row dropped", "line", rowErr.Line, "reason", rowErr.Reason, "error", rowErr.Err)
}

// columnIndex maps known header names to row positions; -1 means absent.
type columnIndex map[string]int

func indexHeader(header []string) (columnIndex, error) {
	idx := make(columnIndex, len(header))
	for i, h := range header {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		if _, dup := idx[h]; !dup {
			idx[h] = i
		}
	}

	var missing []string
	for _, req := range requiredHeaders {
		if _, ok := idx[req]; !ok {
			missing = append(missing, req)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingHeader, strings.Join(missing, ", "))
	}
	return idx, nil
}

func (c columnIndex) get(row []string, name string) string {
	i, ok := c[name]
	if !ok || i >= len(row) {
		return ""
	}
	return row[i]
}

func (c columnIndex) record(row []string, line int) domain.RawRecord {
	return domain.RawRecord{
		Line:         line,
		Event:        c.get(row, domain.HeaderEvent),
		Date:         c.get(row, domain.HeaderDate),
		Year:         c.get(row, domain.HeaderYear),
		Cost:         c.get(row, domain.HeaderCost),
		Installation: c.get(row, domain.HeaderInstallation),
		State:        c.get(row, domain.HeaderState),
		Branch:       c.get(row, domain.HeaderBranch),
		NamedStorm:   c.get(row, domain.HeaderNamedStorm),
	}
}
