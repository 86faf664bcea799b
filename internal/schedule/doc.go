// Package schedule turns a scripture selection and a deadline into reading units.
//
// Everything here is a pure function of its inputs: plans, units, a book
// metadata snapshot and an explicit now. Nothing is stored and nothing blocks.
// Callers own persistence and must serialise Extend calls per plan, since two
// extensions computed from the same snapshot would replace overlapping indexes.
//
// Typical flow:
//
//	plan, units, err := schedule.NewPlan(catalog, req, time.Now())
//	est := schedule.Calculate(plan, units, time.Now())
//	if schedule.OfferExtension(plan, est.AdjustedVersesPerUnit) {
//	    res, err := schedule.Extend(catalog, plan, units, 0, time.Now())
//	    ...
//	}
package schedule
