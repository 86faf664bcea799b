package plan

import "errors"

// ErrPlanNotFound is returned when no plan file matches the requested id.
var ErrPlanNotFound = errors.New("plan not found")

// ErrAmbiguousID is returned when an id prefix matches more than one plan.
var ErrAmbiguousID = errors.New("plan id prefix is ambiguous")

// ErrPlanExists is returned when creating a plan whose file already exists.
var ErrPlanExists = errors.New("plan already exists")

// ErrMalformedPlan indicates a plan file that does not follow the expected layout.
var ErrMalformedPlan = errors.New("malformed plan file")

// ErrReadUnitChanged is returned when a save would alter or drop a read unit.
var ErrReadUnitChanged = errors.New("read units cannot change")

// ErrQuietHours is returned when a delivery is attempted inside the plan's quiet hours.
var ErrQuietHours = errors.New("inside quiet hours")

// ErrPlanNotActive is returned when delivering from a paused or completed plan.
var ErrPlanNotActive = errors.New("plan is not active")

// ErrNothingPending is returned when every unit was already delivered or read.
var ErrNothingPending = errors.New("no pending units")

// ErrLockTimeout is returned when another process holds the plan lock for too long.
var ErrLockTimeout = errors.New("plan lock timeout")
