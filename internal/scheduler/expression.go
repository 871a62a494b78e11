package scheduler

import (
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

const (
	everyPrefix = "@every "
	minInterval = time.Second
)

// Schedule computes run times for a parsed schedule expression.
type Schedule interface {
	// Next returns the first run time strictly after t, in t's location.
	// The boolean is false when no further run exists.
	Next(t time.Time) (time.Time, bool)
	// Recurring reports whether the schedule runs more than once.
	Recurring() bool
}

// ParseExpression accepts "@every <duration>", a five-field cron expression
// (minute hour day-of-month month day-of-week) or one of the cron
// descriptors such as "@daily", or an RFC 3339 timestamp for a one-shot run.
func ParseExpression(expr string) (Schedule, error) {
	expr = strings.TrimSpace(expr)
	switch {
	case expr == "":
		return nil, fmt.Errorf("schedule expression is empty")
	case strings.HasPrefix(expr, everyPrefix):
		d, err := time.ParseDuration(strings.TrimSpace(strings.TrimPrefix(expr, everyPrefix)))
		if err != nil {
			return nil, fmt.Errorf("invalid @every duration: %w", err)
		}
		if d < minInterval {
			return nil, fmt.Errorf("@every interval must be at least %s", minInterval)
		}
		return every{interval: d}, nil
	case strings.HasPrefix(expr, "@") || len(strings.Fields(expr)) == 5:
		spec, err := cron.ParseStandard(expr)
		if err != nil {
			return nil, fmt.Errorf("invalid cron expression: %w", err)
		}
		return cronSchedule{spec: spec}, nil
	default:
		at, err := time.Parse(time.RFC3339, expr)
		if err != nil {
			return nil, fmt.Errorf("expected @every, a 5-field cron expression, or an RFC 3339 timestamp: %q", expr)
		}
		return once{at: at}, nil
	}
}

type every struct{ interval time.Duration }

func (e every) Next(t time.Time) (time.Time, bool) { return t.Add(e.interval), true }
func (e every) Recurring() bool                    { return true }

type once struct{ at time.Time }

func (o once) Next(t time.Time) (time.Time, bool) {
	if o.at.After(t) {
		return o.at.In(t.Location()), true
	}
	return time.Time{}, false
}

func (o once) Recurring() bool { return false }

// cronSchedule evaluates a parsed cron spec in the location of the time it
// is given. The spec gives up after five years and returns the zero time,
// so "0 0 31 2 *" has no run.
type cronSchedule struct{ spec cron.Schedule }

func (c cronSchedule) Next(t time.Time) (time.Time, bool) {
	next := c.spec.Next(t)
	if next.IsZero() {
		return time.Time{}, false
	}
	return next, true
}

func (c cronSchedule) Recurring() bool { return true }
