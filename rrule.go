// Package rrule computes the set of calendar date-times produced by an
// iCalendar recurrence rule (RFC 5545 §3.3.10 / §3.8.5) and its set-level
// composition operators (RRULE/EXRULE/RDATE/EXDATE). It lazily enumerates
// occurrences in strictly ascending order, applying BY-filters, interval
// expansion, and time-zone/DST rules, and never performs I/O or mutates
// wall-clock state on the recurrence path.
package rrule

import (
	"sort"
	"time"
)

// Frequency denotes the period on which a rule is evaluated.
type Frequency int

// Frequency values, ordered coarsest to finest; code relies on this
// ordering (e.g. "r.Freq < HOURLY") to decide whether BYHOUR etc. default
// from DTSTART.
const (
	YEARLY Frequency = iota
	MONTHLY
	WEEKLY
	DAILY
	HOURLY
	MINUTELY
	SECONDLY
)

// Weekday identifies a day of the week, optionally qualified with an nth-
// in-period selector (e.g. BYDAY=+2MO is Weekday{weekday: 0, n: 2}). Not
// specifying N (0) means "every" occurrence of that weekday in the period.
type Weekday struct {
	weekday int
	n       int
}

// Nth returns a copy of wday qualified to select only its n-th occurrence
// within the rule's period (negative counts from the end).
func (wday Weekday) Nth(n int) Weekday {
	return Weekday{wday.weekday, n}
}

// N returns the nth-in-period selector, e.g. for 3MO, N() returns 3. Zero
// means "every".
func (wday Weekday) N() int {
	return wday.n
}

// Day returns the day-of-week index (0 for MO .. 6 for SU).
func (wday Weekday) Day() int {
	return wday.weekday
}

// Weekday constants.
var (
	MO = Weekday{weekday: 0}
	TU = Weekday{weekday: 1}
	WE = Weekday{weekday: 2}
	TH = Weekday{weekday: 3}
	FR = Weekday{weekday: 4}
	SA = Weekday{weekday: 5}
	SU = Weekday{weekday: 6}
)

// ROption is the unvalidated rule record: raw field values exactly as a
// caller or parser supplies them, with no range checking or defaulting
// performed yet. NewRRule (or StrToRRule) is the only Unvalidated ->
// Validated gate; an ROption by itself cannot be iterated.
type ROption struct {
	Freq       Frequency
	Dtstart    time.Time
	Interval   int
	Wkst       Weekday
	Count      int
	Until      time.Time
	Bysetpos   []int
	Bymonth    []int
	Bymonthday []int
	Byyearday  []int
	Byweekno   []int
	Byweekday  []Weekday
	Byhour     []int
	Byminute   []int
	Bysecond   []int
	Byeaster   []int
	// RFC, when true, renders (*RRule).String without a synthesized
	// DTSTART part, matching bare RFC 5545 RRULE value text.
	RFC bool
	// Unsafe disables the safety limits in DefaultLimits (not the RFC
	// structural invariants, which are always enforced), for producers
	// that need full RFC reach and accept the risk of runaway iteration.
	Unsafe bool
}

// RRule is a validated recurrence rule: an immutable, frozen input ready to
// be iterated. Its derived fields are only ever computed inside NewRRule
// and the documented mutators DTStart/Until, never by an iterator.
type RRule struct {
	OrigOptions             ROption
	Options                 ROption
	Freq                    Frequency
	DateStart               time.Time
	Interval                int
	Wkst                    int
	Count                   int
	UntilTime               time.Time
	Bysetpos                []int
	Bymonth                 []int
	Bymonthday, Bynmonthday []int
	Byyearday               []int
	Byweekno                []int
	Byweekday               []int
	Bynweekday              []Weekday
	Byhour                  []int
	Byminute                []int
	Bysecond                []int
	Byeaster                []int
	Timeset                 []time.Time
}

// NewRRule validates arg and, on success, constructs a frozen *RRule ready
// for iteration. This is the rule's only Unvalidated -> Validated gate.
func NewRRule(arg ROption) (*RRule, error) {
	if err := validateBounds(arg); err != nil {
		return nil, err
	}
	r := RRule{}
	r.OrigOptions = arg
	if arg.Dtstart.IsZero() {
		arg.Dtstart = time.Now().UTC()
	}
	arg.Dtstart = arg.Dtstart.Truncate(time.Second)
	r.DateStart = arg.Dtstart
	r.Freq = arg.Freq
	if arg.Interval == 0 {
		r.Interval = 1
	} else {
		r.Interval = arg.Interval
	}
	r.Count = arg.Count
	if arg.Until.IsZero() {
		// Largest representable duration (~290 years): effectively
		// unbounded without making UntilTime's zero-value ambiguous with
		// "no UNTIL at all".
		arg.Until = r.DateStart.Add(time.Duration(1<<63 - 1))
	}
	r.UntilTime = arg.Until
	r.Wkst = arg.Wkst.weekday

	r.Bysetpos = intSet(arg.Bysetpos)

	// Values omitted in the rule but required to place an occurrence on
	// the clock default to the matching DTSTART component.
	if len(arg.Byweekno) == 0 &&
		len(arg.Byyearday) == 0 &&
		len(arg.Bymonthday) == 0 &&
		len(arg.Byweekday) == 0 &&
		len(arg.Byeaster) == 0 {
		if r.Freq == YEARLY {
			if len(arg.Bymonth) == 0 {
				arg.Bymonth = []int{int(r.DateStart.Month())}
			}
			arg.Bymonthday = []int{r.DateStart.Day()}
		} else if r.Freq == MONTHLY {
			arg.Bymonthday = []int{r.DateStart.Day()}
		} else if r.Freq == WEEKLY {
			arg.Byweekday = []Weekday{{weekday: toPyWeekday(r.DateStart.Weekday())}}
		}
	}
	r.Bymonth = intSet(arg.Bymonth)
	r.Byyearday = intSet(arg.Byyearday)
	r.Byeaster = arg.Byeaster
	for _, mday := range arg.Bymonthday {
		if mday > 0 {
			r.Bymonthday = append(r.Bymonthday, mday)
		} else if mday < 0 {
			r.Bynmonthday = append(r.Bynmonthday, mday)
		}
	}
	r.Bymonthday = intSet(r.Bymonthday)
	r.Bynmonthday = intSet(r.Bynmonthday)
	r.Byweekno = intSet(arg.Byweekno)
	for _, wday := range arg.Byweekday {
		if wday.n == 0 || r.Freq > MONTHLY {
			r.Byweekday = append(r.Byweekday, wday.weekday)
		} else {
			r.Bynweekday = append(r.Bynweekday, wday)
		}
	}
	r.Byweekday = intSet(r.Byweekday)
	if len(arg.Byhour) == 0 {
		if r.Freq < HOURLY {
			r.Byhour = []int{r.DateStart.Hour()}
		}
	} else {
		r.Byhour = intSet(arg.Byhour)
	}
	if len(arg.Byminute) == 0 {
		if r.Freq < MINUTELY {
			r.Byminute = []int{r.DateStart.Minute()}
		}
	} else {
		r.Byminute = intSet(arg.Byminute)
	}
	if len(arg.Bysecond) == 0 {
		if r.Freq < SECONDLY {
			r.Bysecond = []int{r.DateStart.Second()}
		}
	} else {
		r.Bysecond = intSet(arg.Bysecond)
	}

	r.Options = arg
	r.calculateTimeset()

	return &r, nil
}

// calculateTimeset recomputes Timeset, the BYHOUR x BYMINUTE x BYSECOND
// cross product used directly for frequencies coarser than hourly.
func (r *RRule) calculateTimeset() {
	r.Timeset = []time.Time{}
	if r.Freq < HOURLY {
		for _, hour := range r.Byhour {
			for _, minute := range r.Byminute {
				for _, second := range r.Bysecond {
					r.Timeset = append(r.Timeset, time.Date(1, 1, 1, hour, minute, second, 0, r.DateStart.Location()))
				}
			}
		}
		sort.Sort(timeSlice(r.Timeset))
	}
}

// DTStart sets a new DTStart for the rule and recalculates any BY-field
// defaults and the Timeset that depend on it.
func (r *RRule) DTStart(dt time.Time) {
	r.DateStart = dt.Truncate(time.Second)
	r.Options.Dtstart = r.DateStart

	if len(r.Options.Byhour) == 0 && r.Freq < HOURLY {
		r.Byhour = []int{r.DateStart.Hour()}
	}
	if len(r.Options.Byminute) == 0 && r.Freq < MINUTELY {
		r.Byminute = []int{r.DateStart.Minute()}
	}
	if len(r.Options.Bysecond) == 0 && r.Freq < SECONDLY {
		r.Bysecond = []int{r.DateStart.Second()}
	}
	r.calculateTimeset()
}

// Until sets a new UNTIL bound for the rule.
func (r *RRule) Until(ut time.Time) {
	r.UntilTime = ut
	r.Options.Until = ut
}

func (r *RRule) newIterator() *rIterator {
	iterator := &rIterator{loopLimit: DefaultLimits.MaxLoopIterations}
	iterator.year, iterator.month, iterator.day = r.DateStart.Date()
	iterator.hour, iterator.minute, iterator.second = r.DateStart.Clock()
	iterator.weekday = toPyWeekday(r.DateStart.Weekday())

	iterator.ii = iterInfo{rrule: r}
	iterator.ii.rebuild(iterator.year, iterator.month)

	if r.Freq < HOURLY {
		iterator.timeset = r.Timeset
	} else {
		if r.Freq >= HOURLY && len(r.Byhour) != 0 && !contains(r.Byhour, iterator.hour) ||
			r.Freq >= MINUTELY && len(r.Byminute) != 0 && !contains(r.Byminute, iterator.minute) ||
			r.Freq >= SECONDLY && len(r.Bysecond) != 0 && !contains(r.Bysecond, iterator.second) {
			iterator.timeset = []time.Time{}
		} else {
			iterator.timeset = iterator.ii.gettimeset(r.Freq, iterator.hour, iterator.minute, iterator.second)
		}
	}
	iterator.count = r.Count
	return iterator
}

// Iterator returns a Next function that yields this rule's occurrences in
// strictly ascending order.
func (r *RRule) Iterator() Next {
	return r.newIterator().next
}

// IteratorWithError is Iterator's counterpart exposing the sticky iteration
// error once the returned Next function stops yielding.
func (r *RRule) IteratorWithError() (Next, func() *IterationError) {
	it := r.newIterator()
	return it.next, func() *IterationError { return it.err }
}

// All returns every occurrence of the rule. For an open-ended rule (no
// COUNT, no UNTIL) this can run until the safety limits or year-range
// overflow stop it; use AllWithError to observe why it stopped, or Between
// to bound the range explicitly.
func (r *RRule) All() []time.Time {
	return all(r.Iterator())
}

// AllWithError returns every occurrence together with the sticky iteration
// error, if one was raised before the iterator finished. The returned
// slice is the valid partial prefix even when err is non-nil.
func (r *RRule) AllWithError() (occurrences []time.Time, err *IterationError) {
	it := r.newIterator()
	for {
		t, ok := it.next()
		if !ok {
			break
		}
		occurrences = append(occurrences, t)
	}
	return occurrences, it.err
}

// Between returns all occurrences of the rule between after and before.
// inc controls whether after/before themselves count if they are
// occurrences.
func (r *RRule) Between(after, before time.Time, inc bool) []time.Time {
	return between(r.Iterator(), after, before, inc)
}

// Before returns the last occurrence strictly before dt (or, if inc, at or
// before dt), or the zero time if none match.
func (r *RRule) Before(dt time.Time, inc bool) time.Time {
	return before(r.Iterator(), dt, inc)
}

// After returns the first occurrence strictly after dt (or, if inc, at or
// after dt), or the zero time if none match.
func (r *RRule) After(dt time.Time, inc bool) time.Time {
	return after(r.Iterator(), dt, inc)
}
