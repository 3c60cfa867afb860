package domain

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var (
	// ErrMissingValue reports an empty required field.
	ErrMissingValue = errors.New("missing value")

	// ErrNegativeCost reports a cost below zero.
	ErrNegativeCost = errors.New("negative cost")
)

// RejectReason classifies why a row was excluded from the working set.
type RejectReason string

const (
	ReasonMissingCost  RejectReason = "missing_cost"
	ReasonInvalidCost  RejectReason = "invalid_cost"
	ReasonNegativeCost RejectReason = "negative_cost"
	ReasonMissingDate  RejectReason = "missing_date"
	ReasonInvalidDate  RejectReason = "invalid_date"
	ReasonMalformed    RejectReason = "malformed"
)

// RejectReasons lists every reason in reporting order.
func RejectReasons() []RejectReason {
	return []RejectReason{
		ReasonMissingCost,
		ReasonInvalidCost,
		ReasonNegativeCost,
		ReasonMissingDate,
		ReasonInvalidDate,
		ReasonMalformed,
	}
}

// RowError explains why a raw row could not become a WeatherEvent.
type RowError struct {
	Line   int
	Reason RejectReason
	Err    error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("line %d: %s: %v", e.Line, e.Reason, e.Err)
}

func (e *RowError) Unwrap() error { return e.Err }

// ParseRecord validates a raw row and converts it into a WeatherEvent.
// Rows with an unusable cost or date return a *RowError.
func ParseRecord(rec RawRecord) (WeatherEvent, error) {
	cost, err := ParseCost(rec.Cost)
	if err != nil {
		reason := ReasonInvalidCost
		switch {
		case errors.Is(err, ErrMissingValue):
			reason = ReasonMissingCost
		case errors.Is(err, ErrNegativeCost):
			reason = ReasonNegativeCost
		}
		return WeatherEvent{}, &RowError{Line: rec.Line, Reason: reason, Err: err}
	}

	occurredOn, err := ParseEventDate(rec.Date)
	if err != nil {
		reason := ReasonInvalidDate
		if errors.Is(err, ErrMissingValue) {
			reason = ReasonMissingDate
		}
		return WeatherEvent{}, &RowError{Line: rec.Line, Reason: reason, Err: err}
	}

	description := strings.TrimSpace(rec.Event)
	installation := strings.TrimSpace(rec.Installation)

	return WeatherEvent{
		ID:           generateID(description, installation, occurredOn, cost),
		Branch:       strings.TrimSpace(rec.Branch),
		Description:  description,
		NamedStorm:   strings.TrimSpace(rec.NamedStorm),
		OccurredOn:   occurredOn,
		Year:         occurredOn.Year(),
		Cost:         cost,
		Installation: installation,
		State:        strings.TrimSpace(rec.State),
		SourceLine:   rec.Line,
	}, nil
}

// ParseCost parses a US dollar amount. A leading "$" and thousands
// separators are accepted; negative amounts are rejected.
func ParseCost(s string) (decimal.Decimal, error) {
	raw := strings.TrimSpace(s)
	if raw == "" {
		return decimal.Zero, ErrMissingValue
	}
	s = strings.TrimSpace(strings.TrimPrefix(raw, "$"))
	s = strings.ReplaceAll(s, ",", "")
	if s == "" {
		return decimal.Zero, fmt.Errorf("parse cost %q: no digits", raw)
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse cost: %w", err)
	}
	if d.IsNegative() {
		return decimal.Zero, fmt.Errorf("parse cost %s: %w", d, ErrNegativeCost)
	}
	return d, nil
}

// ParseEventDate parses M/D/YY dates with the implicit century 2000+YY.
// Four-digit years from 2000 onward are taken literally. Dates that do not
// exist on the calendar are rejected.
func ParseEventDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, ErrMissingValue
	}

	parts := strings.Split(s, "/")
	if len(parts) != 3 {
		return time.Time{}, fmt.Errorf("parse date %q: want MM/DD/YY", s)
	}
	for _, p := range parts {
		if !isDigits(p) {
			return time.Time{}, fmt.Errorf("parse date %q: non-numeric component", s)
		}
	}

	month, _ := strconv.Atoi(parts[0])
	day, _ := strconv.Atoi(parts[1])
	year, _ := strconv.Atoi(parts[2])

	switch len(parts[2]) {
	case 1, 2:
		year += 2000
	case 4:
		if year < 2000 {
			return time.Time{}, fmt.Errorf("parse date %q: years before 2000 are not supported", s)
		}
	default:
		return time.Time{}, fmt.Errorf("parse date %q: want a two-digit year", s)
	}

	if month < 1 || month > 12 {
		return time.Time{}, fmt.Errorf("parse date %q: month out of range", s)
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if t.Day() != day || int(t.Month()) != month {
		return time.Time{}, fmt.Errorf("parse date %q: not a calendar date", s)
	}
	return t, nil
}

// YearMismatch reports whether a literal Year column disagrees with the
// derived year. Empty or non-numeric literals never mismatch.
func YearMismatch(literal string, derived int) bool {
	literal = strings.TrimSpace(literal)
	if literal == "" {
		return false
	}
	y, err := strconv.Atoi(literal)
	if err != nil {
		return false
	}
	return y != derived
}

func isDigits(s string) bool {
	if s == "" || len(s) > 4 {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
