package schedule

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const minutesPerDay = 24 * 60

// TimeWindow is a daily "HH:MM"-"HH:MM" window. A window whose start is after
// its end wraps midnight. A missing or malformed side leaves the window incomplete.
type TimeWindow struct {
	Start string
	End   string
}

// String renders the window as "HH:MM-HH:MM".
func (w TimeWindow) String() string {
	return w.Start + "-" + w.End
}

// ParseClock parses "HH:MM" (or "HH:MM:SS") into an offset from midnight.
func ParseClock(value string) (time.Duration, error) {
	parts := strings.Split(strings.TrimSpace(value), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, fmt.Errorf("%w %q (expected HH:MM)", ErrInvalidClock, value)
	}

	limits := []int{23, 59, 59}
	units := []time.Duration{time.Hour, time.Minute, time.Second}
	var offset time.Duration
	for i, part := range parts {
		n, err := strconv.Atoi(part)
		if err != nil || n < 0 || n > limits[i] {
			return 0, fmt.Errorf("%w %q (expected HH:MM)", ErrInvalidClock, value)
		}
		offset += time.Duration(n) * units[i]
	}
	return offset, nil
}

// ParseWindow parses "HH:MM-HH:MM". Empty input yields a nil window.
func ParseWindow(value string) (*TimeWindow, error) {
	value = strings.TrimSpace(value)
	if value == "" || strings.EqualFold(value, "none") {
		return nil, nil
	}
	start, end, ok := strings.Cut(value, "-")
	if !ok {
		return nil, fmt.Errorf("%w %q (expected HH:MM-HH:MM)", ErrInvalidClock, value)
	}
	w := &TimeWindow{Start: strings.TrimSpace(start), End: strings.TrimSpace(end)}
	if _, err := ParseClock(w.Start); err != nil {
		return nil, err
	}
	if _, err := ParseClock(w.End); err != nil {
		return nil, err
	}
	return w, nil
}

func (w *TimeWindow) bounds() (start, end time.Duration, ok bool) {
	if w == nil || w.Start == "" || w.End == "" {
		return 0, 0, false
	}
	start, errStart := ParseClock(w.Start)
	end, errEnd := ParseClock(w.End)
	if errStart != nil || errEnd != nil {
		return 0, 0, false
	}
	return start, end, true
}

func clockOf(t time.Time) time.Duration {
	h, m, s := t.Clock()
	return time.Duration(h)*time.Hour + time.Duration(m)*time.Minute +
		time.Duration(s)*time.Second + time.Duration(t.Nanosecond())
}

// InQuietHours reports whether t falls inside the window. Both ends are inclusive.
// A nil or incomplete window is never quiet.
func InQuietHours(w *TimeWindow, t time.Time) bool {
	start, end, ok := w.bounds()
	if !ok {
		return false
	}
	now := clockOf(t)
	if start <= end {
		return start <= now && now <= end
	}
	return now >= start || now <= end
}

// DayPart buckets a time of day.
type DayPart string

const (
	Morning   DayPart = "morning"
	Afternoon DayPart = "afternoon"
	Evening   DayPart = "evening"
)

// TimeOfDay returns morning for [05:00,12:00), afternoon for [12:00,17:00)
// and evening otherwise.
func TimeOfDay(t time.Time) DayPart {
	switch hour := t.Hour(); {
	case hour >= 5 && hour < 12:
		return Morning
	case hour >= 12 && hour < 17:
		return Afternoon
	default:
		return Evening
	}
}

// NextDeliveryInstant returns the next end-of-quiet-hours instant after from.
// Without a window end it returns from unchanged.
//
// The end hour being before noon is taken to mean an overnight window, so once
// today's end has passed the next delivery is tomorrow's end.
func NextDeliveryInstant(w *TimeWindow, from time.Time) time.Time {
	if w == nil || w.End == "" {
		return from
	}
	end, err := ParseClock(w.End)
	if err != nil {
		return from
	}

	endHour := int(end / time.Hour)
	endMinute := int((end % time.Hour) / time.Minute)
	candidate := time.Date(from.Year(), from.Month(), from.Day(), endHour, endMinute, 0, 0, from.Location())

	if clockOf(from) >= end && endHour < 12 {
		candidate = candidate.AddDate(0, 0, 1)
	}
	if !candidate.After(from) {
		candidate = candidate.AddDate(0, 0, 1)
	}
	return candidate
}

// ActiveMinutes returns how many minutes per day the window covers, or a full
// day when the window is nil or incomplete.
func ActiveMinutes(w *TimeWindow) int {
	start, end, ok := w.bounds()
	if !ok {
		return minutesPerDay
	}
	startMin := int(start / time.Minute)
	endMin := int(end / time.Minute)
	if startMin > endMin {
		return (minutesPerDay - startMin) + endMin
	}
	return endMin - startMin
}
