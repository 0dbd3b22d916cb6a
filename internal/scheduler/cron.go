// Package scheduler implements the cron-style Scheduler (spec.md
// §4.7): five-field cron parsing and fire-time computation, and the
// background job lifecycle that fires a ScheduledTask's batch backup
// when its expression matches wall-clock time.
//
// No cron-scheduling library exists anywhere in the retrieved pack
// (SPEC_FULL.md §3), so the parser and fire-time search below are
// hand-written, grounded on the teacher's context-cancellation job
// lifecycle rather than any external dependency.
package scheduler

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// fieldRange bounds one of the five cron fields.
type fieldRange struct {
	min, max int
}

var (
	minuteRange = fieldRange{0, 59}
	hourRange   = fieldRange{0, 23}
	dayRange    = fieldRange{1, 31}
	monthRange  = fieldRange{1, 12}
	dowRange    = fieldRange{0, 6} // 0 = Sunday
)

// Expr is a parsed five-field cron expression (minute hour
// day-of-month month day-of-week). Step values are not supported, per
// spec.md §4.7.
type Expr struct {
	raw                                      string
	minute, hour, day, month, dayOfWeek map[int]bool
}

// Parse validates and compiles a five-field cron expression.
func Parse(expr string) (*Expr, error) {
	fields := strings.Fields(expr)
	if len(fields) != 5 {
		return nil, fmt.Errorf("scheduler: cron expression must have 5 fields, got %d", len(fields))
	}

	minute, err := parseField(fields[0], minuteRange)
	if err != nil {
		return nil, fmt.Errorf("scheduler: minute field: %w", err)
	}
	hour, err := parseField(fields[1], hourRange)
	if err != nil {
		return nil, fmt.Errorf("scheduler: hour field: %w", err)
	}
	day, err := parseField(fields[2], dayRange)
	if err != nil {
		return nil, fmt.Errorf("scheduler: day field: %w", err)
	}
	month, err := parseField(fields[3], monthRange)
	if err != nil {
		return nil, fmt.Errorf("scheduler: month field: %w", err)
	}
	dow, err := parseField(fields[4], dowRange)
	if err != nil {
		return nil, fmt.Errorf("scheduler: day-of-week field: %w", err)
	}

	return &Expr{raw: expr, minute: minute, hour: hour, day: day, month: month, dayOfWeek: dow}, nil
}

// Validate reports whether expr is a well-formed cron expression and,
// if not, why.
func Validate(expr string) (ok bool, reason string) {
	if _, err := Parse(expr); err != nil {
		return false, err.Error()
	}
	return true, ""
}

// matches reports whether t's wall-clock fields satisfy every cron
// field (all five, conjunctively — spec.md does not specify the
// traditional cron day/dow "OR" special case, so this implementation
// requires all fields to match).
func (e *Expr) matches(t time.Time) bool {
	return e.minute[t.Minute()] &&
		e.hour[t.Hour()] &&
		e.day[t.Day()] &&
		e.month[int(t.Month())] &&
		e.dayOfWeek[int(t.Weekday())]
}

// maxSearchWindow bounds NextFireTime's linear minute-by-minute scan
// so an unsatisfiable expression (e.g. day=31 and month=2) fails
// instead of looping forever.
const maxSearchWindow = 4 * 366 * 24 * time.Hour

// NextFireTime returns the first wall-clock minute strictly after
// from, in loc, that matches expr. Pure function of (expr, from, loc)
// — spec.md §8's determinism property.
func NextFireTime(expr string, from time.Time, loc *time.Location) (time.Time, error) {
	e, err := Parse(expr)
	if err != nil {
		return time.Time{}, err
	}
	return e.NextFireTime(from, loc), nil
}

// NextFireTime is the Expr-typed equivalent of the package-level
// NextFireTime, avoiding a re-parse when a Scheduler job fires
// repeatedly against the same expression.
func (e *Expr) NextFireTime(from time.Time, loc *time.Location) time.Time {
	t := from.In(loc).Truncate(time.Minute).Add(time.Minute)
	deadline := t.Add(maxSearchWindow)
	for t.Before(deadline) {
		if e.matches(t) {
			return t
		}
		t = t.Add(time.Minute)
	}
	return time.Time{}
}

// parseField parses one cron field: "*", a comma-separated list of
// integers, and/or simple "a-b" ranges (no step values, per spec.md
// §4.7).
func parseField(field string, r fieldRange) (map[int]bool, error) {
	set := make(map[int]bool)

	if field == "*" {
		for i := r.min; i <= r.max; i++ {
			set[i] = true
		}
		return set, nil
	}

	for _, part := range strings.Split(field, ",") {
		if part == "" {
			return nil, fmt.Errorf("empty segment in %q", field)
		}
		if lo, hi, isRange := strings.Cut(part, "-"); isRange {
			loVal, err := strconv.Atoi(lo)
			if err != nil {
				return nil, fmt.Errorf("invalid range start %q", lo)
			}
			hiVal, err := strconv.Atoi(hi)
			if err != nil {
				return nil, fmt.Errorf("invalid range end %q", hi)
			}
			if loVal > hiVal {
				return nil, fmt.Errorf("invalid range %q: start exceeds end", part)
			}
			for i := loVal; i <= hiVal; i++ {
				if i < r.min || i > r.max {
					return nil, fmt.Errorf("value %d out of range [%d,%d]", i, r.min, r.max)
				}
				set[i] = true
			}
			continue
		}
		v, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("invalid value %q", part)
		}
		if v < r.min || v > r.max {
			return nil, fmt.Errorf("value %d out of range [%d,%d]", v, r.min, r.max)
		}
		set[v] = true
	}
	return set, nil
}
