package schedule

import "errors"

// ErrBookNotFound is returned when a book name cannot be resolved by the metadata provider.
var ErrBookNotFound = errors.New("book not found")

// ErrExhaustedRange is returned when an extension walk runs past the last
// configured book before every remaining verse was placed.
var ErrExhaustedRange = errors.New("reading range exhausted before remaining verses were placed")

// ErrInvalidTransition indicates a unit state change that would move backwards.
var ErrInvalidTransition = errors.New("invalid unit state transition")

// ErrUnitNotFound indicates the caller referenced a unit index the plan does not have.
var ErrUnitNotFound = errors.New("unit not found")

// ErrInvalidPlan wraps request validation failures for plan creation and updates.
var ErrInvalidPlan = errors.New("invalid plan")

// ErrInvalidFrequency indicates an unsupported frequency value.
var ErrInvalidFrequency = errors.New("invalid frequency")

// ErrInvalidState indicates an unsupported plan state value.
var ErrInvalidState = errors.New("invalid plan state")

// ErrInvalidClock indicates a malformed HH:MM value.
var ErrInvalidClock = errors.New("invalid clock time")
