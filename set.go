package rrule

import (
	"sort"
	"time"
)

// Set composes zero or more positive generators (RRULEs, RDATEs) with zero
// or more negative generators (EXRULEs, EXDATEs) into a single strictly
// ascending, de-duplicated occurrence stream. A Set keeps the *RRule
// pointers it is given, not copies of the rules; its iterators read those
// rules and never modify them.
type Set struct {
	dtstart    time.Time
	dtstartSet bool
	rrule      []*RRule
	rdate      []time.Time
	exrule     []*RRule
	exdate     []time.Time
}

// DTStart anchors every rule owned by this set and determines UNTIL's zone
// rule during serialization.
func (set *Set) DTStart(dt time.Time) {
	set.dtstart = dt.Truncate(time.Second)
	set.dtstartSet = true
}

// GetDTStart returns the set's anchor instant.
func (set *Set) GetDTStart() time.Time {
	return set.dtstart
}

// RRule adds a positive generator rule to the set.
func (set *Set) RRule(r *RRule) {
	set.rrule = append(set.rrule, r)
}

// GetRRule returns the set's positive generator rules.
func (set *Set) GetRRule() []*RRule {
	return set.rrule
}

// ExRule adds a negative generator rule to the set.
func (set *Set) ExRule(r *RRule) {
	set.exrule = append(set.exrule, r)
}

// GetExRule returns the set's negative generator rules.
func (set *Set) GetExRule() []*RRule {
	return set.exrule
}

// RDate adds an explicit positive occurrence instant.
func (set *Set) RDate(t time.Time) {
	set.rdate = append(set.rdate, t)
}

// GetRDate returns the set's explicit positive instants.
func (set *Set) GetRDate() []time.Time {
	return set.rdate
}

// ExDate adds an explicit negative (excluded) occurrence instant.
func (set *Set) ExDate(t time.Time) {
	set.exdate = append(set.exdate, t)
}

// GetExDate returns the set's explicit negative instants.
func (set *Set) GetExDate() []time.Time {
	return set.exdate
}

// setIterator merges k rule iterators, a pre-sorted RDATE stream, an
// EXRULE pool, and an EXDATE set into one strictly ascending de-duplicated
// stream. Each head stream is only advanced once it has actually been
// consumed, so no work happens beyond what next() demands.
type setIterator struct {
	rruleHeads   []ruleHead
	rdate        []time.Time // remaining, ascending; index 0 is the head
	exruleIters  []*rIterator
	exdate       map[int64]bool
	exclusionCap int
	err          *IterationError
	finished     bool
}

type ruleHead struct {
	it       *rIterator
	buffered bool
	value    time.Time
	ok       bool
}

func (set *Set) newSetIterator() *setIterator {
	si := &setIterator{
		exdate:       map[int64]bool{},
		exclusionCap: DefaultLimits.MaxExclusionRounds,
	}
	for _, r := range set.rrule {
		si.rruleHeads = append(si.rruleHeads, ruleHead{it: r.newIterator()})
	}
	si.rdate = append(si.rdate, set.rdate...)
	sort.Sort(timeSlice(si.rdate))
	for _, r := range set.exrule {
		si.exruleIters = append(si.exruleIters, r.newIterator())
	}
	for _, t := range set.exdate {
		si.exdate[t.UnixNano()] = true
	}
	return si
}

func (si *setIterator) fail(err *IterationError) {
	si.err = err
	si.finished = true
}

// ensureHead makes sure head.value/head.ok reflect the next unconsumed
// instant from head.it, fetching one if the buffer is currently empty.
func ensureHead(head *ruleHead) {
	if head.buffered {
		return
	}
	head.value, head.ok = head.it.next()
	head.buffered = true
}

// next returns the next surviving instant in ascending order, or
// (zero, false) once every stream is exhausted or a sticky error fires.
func (si *setIterator) next() (time.Time, bool) {
	if si.err != nil || si.finished {
		return time.Time{}, false
	}

	for {
		// Step 1: buffer every RRULE head.
		for i := range si.rruleHeads {
			ensureHead(&si.rruleHeads[i])
		}

		// Step 2: pick the smallest candidate among RRULE heads (in
		// declaration order on ties) and the top RDATE.
		pickIdx := -1
		var pick time.Time
		for i := range si.rruleHeads {
			h := &si.rruleHeads[i]
			if !h.ok {
				continue
			}
			if pickIdx == -1 || h.value.Before(pick) {
				pickIdx = i
				pick = h.value
			}
		}
		hasRdate := len(si.rdate) > 0
		if hasRdate && (pickIdx == -1 || si.rdate[0].Before(pick)) {
			pickIdx = -2
			pick = si.rdate[0]
		}
		if pickIdx == -1 {
			si.finished = true
			return time.Time{}, false
		}

		// Consume the chosen head (and any other stream coincident with it).
		if pickIdx == -2 {
			si.rdate = si.rdate[1:]
		} else {
			si.rruleHeads[pickIdx].buffered = false
		}
		for i := range si.rruleHeads {
			h := &si.rruleHeads[i]
			if h.buffered && h.ok && h.value.Equal(pick) {
				h.buffered = false
			}
		}
		for len(si.rdate) > 0 && si.rdate[0].Equal(pick) {
			si.rdate = si.rdate[1:]
		}

		// Step 3: check exclusion, advancing EXRULEs past pick as needed.
		excluded, ok := si.isExcluded(pick)
		if !ok {
			return time.Time{}, false
		}
		if excluded {
			continue
		}
		return pick, true
	}
}

// isExcluded reports whether pick is covered by EXDATE, advancing every
// EXRULE iterator past pick (feeding their output into the EXDATE
// accumulator) until none of them could still produce something <= pick
// or the exclusion-round cap trips, bounding pathological EXRULE
// divergence.
func (si *setIterator) isExcluded(pick time.Time) (excluded bool, ok bool) {
	rounds := 0
	for {
		if si.exdate[pick.UnixNano()] {
			return true, true
		}
		progressed := false
		for _, it := range si.exruleIters {
			for {
				t, more := it.peek()
				if !more {
					break
				}
				if t.After(pick) {
					break
				}
				it.consumePeek()
				si.exdate[t.UnixNano()] = true
				progressed = true
			}
		}
		if !progressed {
			return si.exdate[pick.UnixNano()], true
		}
		rounds++
		if rounds > si.exclusionCap {
			si.fail(newIterationError(IterationLoopLimit,
				"exceeded exclusion-round cap (%d) resolving EXRULE subtraction", si.exclusionCap))
			return false, false
		}
	}
}

// peek returns the next value of it without consuming it, so isExcluded
// can decide whether to advance an EXRULE without losing a value it still
// needs on a later call.
func (it *rIterator) peek() (time.Time, bool) {
	if it.err != nil {
		return time.Time{}, false
	}
	if len(it.remain) == 0 && !it.finished {
		it.generate()
	}
	if len(it.remain) == 0 {
		return time.Time{}, false
	}
	return it.remain[0], true
}

func (it *rIterator) consumePeek() {
	if len(it.remain) > 0 {
		it.remain = it.remain[1:]
	}
}

// Iterator returns a Next function yielding the set's composed, strictly
// ascending, de-duplicated occurrence stream.
func (set *Set) Iterator() Next {
	return set.newSetIterator().next
}

// IteratorWithError is Iterator's counterpart exposing the sticky iteration
// error once the returned Next function stops yielding.
func (set *Set) IteratorWithError() (Next, func() *IterationError) {
	si := set.newSetIterator()
	return si.next, func() *IterationError { return si.err }
}

// All returns every occurrence of the set: the sorted, de-duplicated
// union of the RRULEs and RDATEs minus whatever the EXRULEs and EXDATEs
// cover.
func (set *Set) All() []time.Time {
	return all(set.Iterator())
}

// AllWithError is All's counterpart exposing the sticky iteration error
// alongside the valid partial prefix already produced.
func (set *Set) AllWithError() (occurrences []time.Time, err *IterationError) {
	si := set.newSetIterator()
	for {
		t, ok := si.next()
		if !ok {
			break
		}
		occurrences = append(occurrences, t)
	}
	return occurrences, si.err
}

// Between returns all occurrences of the set between after and before.
func (set *Set) Between(after, before time.Time, inc bool) []time.Time {
	return between(set.Iterator(), after, before, inc)
}

// Before returns the last occurrence strictly before dt (or, if inc, at or
// before dt), or the zero time if none match.
func (set *Set) Before(dt time.Time, inc bool) time.Time {
	return before(set.Iterator(), dt, inc)
}

// After returns the first occurrence strictly after dt (or, if inc, at or
// after dt), or the zero time if none match.
func (set *Set) After(dt time.Time, inc bool) time.Time {
	return after(set.Iterator(), dt, inc)
}
