package automode

import (
	"slices"
	"time"
)

// ResolveMode returns the mode in effect at now, evaluated in now's
// location. Windows are checked in declaration order and the first match
// wins. A disabled config, or no matching window, yields DefaultMode and a
// nil window.
func ResolveMode(cfg Config, now time.Time) (Mode, *TimeWindow) {
	if !cfg.Enabled {
		return cfg.DefaultMode, nil
	}
	for i := range cfg.TimeWindows {
		if activeAt(cfg.TimeWindows[i], now) {
			w := cfg.TimeWindows[i]
			return w.Mode, &w
		}
	}
	return cfg.DefaultMode, nil
}

// activeAt reports whether w covers now. Days are matched against now's own
// weekday; a window with start after end covers the evening and the early
// morning of each listed day. A window with equal start and end is empty.
func activeAt(w TimeWindow, now time.Time) bool {
	m := now.Hour()*60 + now.Minute()
	start, end := w.StartTime.minutes(), w.EndTime.minutes()
	if start == end || !slices.Contains(w.DaysOfWeek, int(now.Weekday())) {
		return false
	}
	if start < end {
		return m >= start && m < end
	}
	return m >= start || m < end
}

// NextBoundary returns the next instant strictly after now at which a window
// starts or ends, evaluated in now's location:
//
//  1. today's starts and ends still ahead, for windows listing today;
//  2. otherwise starts of windows scheduled tomorrow;
//  3. otherwise the earliest start within the following week.
//
// It returns nil when no window can ever start.
func NextBoundary(cfg Config, now time.Time) *time.Time {
	today := startOfDay(now)
	weekday := int(now.Weekday())

	var candidates []time.Time
	add := func(t time.Time) {
		if t.After(now) {
			candidates = append(candidates, t)
		}
	}

	for _, w := range cfg.TimeWindows {
		if w.StartTime.minutes() == w.EndTime.minutes() || !slices.Contains(w.DaysOfWeek, weekday) {
			continue
		}
		add(at(today, 0, w.StartTime))
		add(at(today, 0, w.EndTime))
	}
	if t := earliest(candidates); t != nil {
		return t
	}

	for offset := 1; offset <= 7; offset++ {
		day := (weekday + offset) % 7
		for _, w := range cfg.TimeWindows {
			if w.StartTime.minutes() == w.EndTime.minutes() || !slices.Contains(w.DaysOfWeek, day) {
				continue
			}
			add(at(today, offset, w.StartTime))
		}
		if t := earliest(candidates); t != nil {
			return t
		}
	}
	return nil
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// at builds the wall-clock instant c on the day offset days after day.
// time.Date normalizes across month ends and DST transitions.
func at(day time.Time, offset int, c ClockTime) time.Time {
	y, m, d := day.Date()
	return time.Date(y, m, d+offset, c.Hour, c.Minute, 0, 0, day.Location())
}

func earliest(ts []time.Time) *time.Time {
	if len(ts) == 0 {
		return nil
	}
	first := ts[0]
	for _, t := range ts[1:] {
		if t.Before(first) {
			first = t
		}
	}
	return &first
}
