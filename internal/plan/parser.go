package plan

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/faizmokh/nibab/internal/schedule"
)

const (
	dateLayout   = "2006-01-02"
	stampLayout  = "2006-01-02 15:04"
	unitsHeading = "## Units"
)

var (
	titlePattern  = regexp.MustCompile(`^# Reading plan (\S+)$`)
	headerPattern = regexp.MustCompile(`^- ([a-z-]+):\s*(.*)$`)
	unitPattern   = regexp.MustCompile(`^- \[( |>|x)\] #(\d+) (.+?) (\d+):(\d+)-(\d+)(?: \((.*)\))?$`)
)

// Parse reads a plan document. Dates and unit timestamps, which carry no
// zone in the file, are interpreted in loc.
func Parse(r io.Reader, loc *time.Location) (Document, error) {
	if loc == nil {
		loc = time.Local
	}

	var (
		doc       Document
		seenTitle bool
		inUnits   bool
		lineNo    int
		seen      = map[string]bool{}
	)

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		switch {
		case !seenTitle:
			matches := titlePattern.FindStringSubmatch(line)
			if matches == nil {
				return Document{}, malformed(lineNo, `expected "# Reading plan <id>"`)
			}
			doc.Plan.ID = matches[1]
			seenTitle = true
		case line == unitsHeading:
			inUnits = true
		case inUnits:
			if !strings.HasPrefix(line, "- [") {
				continue
			}
			unit, err := parseUnitLine(line, loc)
			if err != nil {
				return Document{}, malformed(lineNo, err.Error())
			}
			doc.Units = append(doc.Units, unit)
		default:
			matches := headerPattern.FindStringSubmatch(line)
			if matches == nil {
				continue
			}
			if err := applyHeader(&doc.Plan, matches[1], strings.TrimSpace(matches[2]), loc); err != nil {
				return Document{}, malformed(lineNo, err.Error())
			}
			seen[matches[1]] = true
		}
	}
	if err := scanner.Err(); err != nil {
		return Document{}, err
	}

	if !seenTitle {
		return Document{}, malformed(0, "empty document")
	}
	for _, key := range []string{"books", "state", "created"} {
		if !seen[key] {
			return Document{}, malformed(0, "missing "+key)
		}
	}
	if !seen["updated"] {
		doc.Plan.UpdatedAt = doc.Plan.CreatedAt
	}
	return doc, nil
}

func malformed(line int, msg string) error {
	if line == 0 {
		return fmt.Errorf("%w: %s", ErrMalformedPlan, msg)
	}
	return fmt.Errorf("%w: line %d: %s", ErrMalformedPlan, line, msg)
}

func applyHeader(p *schedule.Plan, key, value string, loc *time.Location) error {
	var err error
	switch key {
	case "books":
		p.Books = nil
		for _, name := range strings.Split(value, "|") {
			if name = strings.TrimSpace(name); name != "" {
				p.Books = append(p.Books, name)
			}
		}
		if len(p.Books) == 0 {
			return fmt.Errorf("books: empty")
		}
	case "boundary":
		p.Boundary, err = parseBoundary(value)
	case "target":
		p.TargetDate, err = parseTarget(value, loc)
	case "frequency":
		p.Frequency, err = schedule.ParseFrequency(value)
	case "quiet-hours":
		p.QuietHours, err = schedule.ParseWindow(value)
	case "working-hours":
		p.WorkingHours, err = schedule.ParseWindow(value)
	case "max-verses":
		p.MaxVersesPerUnit, err = strconv.Atoi(value)
	case "time-lap":
		p.TimeLapMinutes, err = strconv.Atoi(value)
	case "state":
		p.State, err = schedule.ParsePlanState(value)
	case "created":
		p.CreatedAt, err = time.Parse(time.RFC3339, value)
	case "updated":
		p.UpdatedAt, err = time.Parse(time.RFC3339, value)
	}
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	return nil
}

func parseTarget(value string, loc *time.Location) (*time.Time, error) {
	if value == "" || value == "none" {
		return nil, nil
	}
	t, err := time.ParseInLocation(dateLayout, value, loc)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// parseBoundary reads "C:V-C:V". Either side may be empty, and the end may
// be a bare chapter "C" or a bare verse ":V".
func parseBoundary(value string) (*schedule.Boundary, error) {
	if value == "" || value == "none" {
		return nil, nil
	}
	start, end, ok := strings.Cut(value, "-")
	if !ok {
		return nil, fmt.Errorf("%q: expected C:V-C:V", value)
	}

	b := &schedule.Boundary{}
	if start != "" {
		ch, v, err := parseRef(start)
		if err != nil {
			return nil, err
		}
		if ch == nil {
			return nil, fmt.Errorf("%q: start needs a chapter", value)
		}
		b.ChapterStart = *ch
		if v != nil {
			b.VerseStart = *v
		}
	}
	if end != "" {
		ch, v, err := parseRef(end)
		if err != nil {
			return nil, err
		}
		b.ChapterEnd, b.VerseEnd = ch, v
	}
	return b, nil
}

// ParseRef parses "C", "C:V" or ":V" into optional chapter and verse numbers.
func ParseRef(value string) (chapter, verse *int, err error) {
	return parseRef(strings.TrimSpace(value))
}

func parseRef(value string) (*int, *int, error) {
	chPart, vPart, hasVerse := strings.Cut(value, ":")
	var ch, v *int
	if chPart != "" {
		n, err := positive(chPart)
		if err != nil {
			return nil, nil, err
		}
		ch = &n
	}
	if hasVerse {
		n, err := positive(vPart)
		if err != nil {
			return nil, nil, err
		}
		v = &n
	}
	if ch == nil && v == nil {
		return nil, nil, fmt.Errorf("empty reference %q", value)
	}
	return ch, v, nil
}

func positive(value string) (int, error) {
	n, err := strconv.Atoi(value)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("%q is not a positive number", value)
	}
	return n, nil
}

func parseUnitLine(line string, loc *time.Location) (schedule.ReadingUnit, error) {
	matches := unitPattern.FindStringSubmatch(line)
	if matches == nil {
		return schedule.ReadingUnit{}, fmt.Errorf("unrecognised unit %q", line)
	}

	u := schedule.ReadingUnit{Book: matches[3]}
	switch matches[1] {
	case ">":
		u.State = schedule.UnitDelivered
	case "x":
		u.State = schedule.UnitRead
	}

	// The pattern guarantees digits.
	u.Index, _ = strconv.Atoi(matches[2])
	u.Chapter, _ = strconv.Atoi(matches[4])
	u.VerseStart, _ = strconv.Atoi(matches[5])
	u.VerseEnd, _ = strconv.Atoi(matches[6])

	if matches[7] != "" {
		for _, note := range strings.Split(matches[7], ",") {
			kind, stamp, ok := strings.Cut(strings.TrimSpace(note), " ")
			if !ok {
				return schedule.ReadingUnit{}, fmt.Errorf("unit #%d: bad annotation %q", u.Index, note)
			}
			at, err := time.ParseInLocation(stampLayout, strings.TrimSpace(stamp), loc)
			if err != nil {
				return schedule.ReadingUnit{}, fmt.Errorf("unit #%d: %w", u.Index, err)
			}
			switch kind {
			case "delivered":
				u.DeliveredAt = &at
			case "read":
				u.ReadAt = &at
			default:
				return schedule.ReadingUnit{}, fmt.Errorf("unit #%d: unknown annotation %q", u.Index, kind)
			}
		}
	}
	return u, nil
}
