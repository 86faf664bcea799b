package plan

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"
)

// Event names written to a plan's history.
const (
	EventPlanCreated   = "plan_created"
	EventUnitDelivered = "unit_delivered"
	EventUnitRead      = "unit_read"
	EventPlanExtended  = "plan_extended"
	EventPlanUpdated   = "plan_updated"
	EventPlanCompleted = "plan_completed"
)

// Event is a single history entry.
type Event struct {
	Timestamp time.Time      `json:"timestamp"`
	Event     string         `json:"event"`
	Data      map[string]any `json:"data,omitempty"`
}

// EventLog appends events to a JSON Lines file next to the plan.
type EventLog struct {
	path string
}

// NewEventLog returns a log writing to path.
func NewEventLog(path string) *EventLog {
	return &EventLog{path: path}
}

// Log appends one event stamped with at.
func (l *EventLog) Log(at time.Time, event string, data map[string]any) error {
	line, err := json.Marshal(Event{Timestamp: at, Event: event, Data: data})
	if err != nil {
		return err
	}
	line = append(line, '\n')

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, filePermissions)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = f.Write(line)
	return err
}

// Events reads the whole history in the order it was written. A missing
// file means an empty history.
func (l *EventLog) Events() ([]Event, error) {
	f, err := os.Open(l.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	var events []Event
	scanner := bufio.NewScanner(f)
	line := 0
	for scanner.Scan() {
		line++
		if len(scanner.Bytes()) == 0 {
			continue
		}
		var e Event
		if err := json.Unmarshal(scanner.Bytes(), &e); err != nil {
			return nil, fmt.Errorf("%s line %d: %w", l.path, line, err)
		}
		events = append(events, e)
	}
	return events, scanner.Err()
}
