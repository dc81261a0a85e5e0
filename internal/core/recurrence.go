package core

// Cadence is a named recurrence step.
type Cadence int

const (
	Daily Cadence = iota
	Weekly
	Monthly
)

func (c Cadence) String() string {
	switch c {
	case Daily:
		return "daily"
	case Weekly:
		return "weekly"
	case Monthly:
		return "monthly"
	default:
		return "unknown"
	}
}

// Recurrence is the generation state of a recurring transaction.
//
// Exactly one cadence selector must be set: either the named Cadence or
// an explicit IntervalDays. End and Occurrences are mutually exclusive
// end conditions. LastGenerated is the watermark: the last date for
// which a concrete transaction has already been materialized.
type Recurrence struct {
	Start         Date
	LastGenerated *Date
	End           *Date
	Occurrences   *int
	Cadence       *Cadence
	IntervalDays  *int
}

// NewRecurrence builds a named-cadence rule starting at start.
func NewRecurrence(c Cadence, start Date) *Recurrence {
	return &Recurrence{Start: start, Cadence: &c}
}

// NewIntervalRecurrence builds an every-n-days rule starting at start.
func NewIntervalRecurrence(days int, start Date) *Recurrence {
	return &Recurrence{Start: start, IntervalDays: &days}
}

// Validate rejects invalid rules before anything is generated or
// persisted.
func (r *Recurrence) Validate() error {
	if (r.Cadence == nil) == (r.IntervalDays == nil) {
		return ErrNoCadence
	}
	if r.IntervalDays != nil && *r.IntervalDays < 1 {
		return ErrInvalidInterval
	}
	if r.End != nil && r.Occurrences != nil {
		return ErrAmbiguousRecurrence
	}
	return r.Start.Validate()
}

// step advances one cadence unit.
func (r *Recurrence) step(d Date) Date {
	if r.IntervalDays != nil {
		return d.AddDays(*r.IntervalDays)
	}
	switch *r.Cadence {
	case Daily:
		return d.AddDays(1)
	case Weekly:
		return d.AddDays(7)
	default:
		return d.AddMonths(1)
	}
}

// occurrencesPassed counts the cadence steps already consumed between
// Start and the watermark. Day-based cadences use the closed form; the
// monthly cadence walks the calendar backwards so clamped month ends
// count exactly as generation produced them.
func (r *Recurrence) occurrencesPassed() int {
	last := r.Start
	if r.LastGenerated != nil {
		last = *r.LastGenerated
	}
	if !last.After(r.Start) {
		return 0
	}

	if r.Cadence != nil && *r.Cadence == Monthly {
		count := 0
		for cur := last; cur.After(r.Start); {
			cur = cur.AddMonths(-1)
			if !cur.Before(r.Start) {
				count++
			}
		}
		return count
	}

	interval := 1
	if r.Cadence != nil && *r.Cadence == Weekly {
		interval = 7
	}
	if r.IntervalDays != nil {
		interval = *r.IntervalDays
	}
	return r.Start.DaysUntil(last) / interval
}

// MissingDates returns every date the rule still owes as of asOf, in
// chronological order. It does not advance the watermark; callers do
// that with Advance once the generated transactions are persisted.
//
// The computation is idempotent: once the watermark reaches the
// effective as-of date the result is empty.
func (r *Recurrence) MissingDates(asOf Date) []Date {
	effective := asOf
	if r.End != nil && r.End.Before(asOf) {
		effective = *r.End
	}

	if r.Start.After(effective) {
		// not yet due
		return nil
	}
	if r.LastGenerated != nil && r.LastGenerated.Equal(effective) {
		// already current
		return nil
	}

	// generation resumes from the watermark, but never from before the
	// start date
	cur := r.Start
	if r.LastGenerated != nil && r.LastGenerated.After(r.Start) {
		cur = *r.LastGenerated
	}

	var dates []Date
	for cur.Before(effective) {
		cur = r.step(cur)
		if cur.After(effective) {
			break
		}
		dates = append(dates, cur)
	}

	if r.Occurrences != nil {
		left := *r.Occurrences - r.occurrencesPassed()
		if left <= 0 {
			return nil
		}
		if len(dates) > left {
			dates = dates[:left]
		}
	}
	return dates
}

// Advance moves the watermark to the last generated date. A no-op for
// an empty generation.
func (r *Recurrence) Advance(generated []Date) {
	if len(generated) == 0 {
		return
	}
	last := generated[len(generated)-1]
	r.LastGenerated = &last
}
